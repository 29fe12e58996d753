package repl

import (
	"testing"

	"github.com/ardnew/avon/lang"
)

// newBenchRuntime returns a fresh Runtime with each (name, src) pair bound
// by evaluating src and binding the result under name.
func newBenchRuntime(b *testing.B, bindings ...string) *lang.Runtime {
	b.Helper()

	rt := lang.NewRuntime()

	for i := 0; i+1 < len(bindings); i += 2 {
		name, src := bindings[i], bindings[i+1]

		a, perr := lang.Parse(src)
		if perr != nil {
			b.Fatalf("parse %q: %v", src, perr)
		}

		v, eerr := rt.Eval(a)
		if eerr != nil {
			b.Fatalf("eval %q: %v", src, eerr)
		}

		rt.Env.Bind(name, v)
	}

	return rt
}

// BenchmarkDetectFunctionCall benchmarks the paren-scanning heuristic on a
// moderately nested call.
func BenchmarkDetectFunctionCall(b *testing.B) {
	input := "add(mul(2, 3), sub(4,"
	cursor := len(input)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = detectFunctionCall(input, cursor)
	}
}

// BenchmarkGetSignatureClosure benchmarks signature lookup for a
// user-defined closure binding.
func BenchmarkGetSignatureClosure(b *testing.B) {
	rt := newBenchRuntime(b, "add", `\x y x + y`)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = getSignature(rt.Env, "add")
	}
}

// BenchmarkGetSignatureBuiltin benchmarks signature lookup for a builtin
// binding.
func BenchmarkGetSignatureBuiltin(b *testing.B) {
	rt := newBenchRuntime(b)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = getSignature(rt.Env, "join")
	}
}

// BenchmarkGetSignatureMiss benchmarks the unbound-name path.
func BenchmarkGetSignatureMiss(b *testing.B) {
	rt := newBenchRuntime(b)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = getSignature(rt.Env, "doesnotexist")
	}
}

// BenchmarkRenderSignatureHint benchmarks rendering a multi-param hint.
func BenchmarkRenderSignatureHint(b *testing.B) {
	params := []string{"x", "y", "greeting=..."}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = renderSignatureHint("add(x, y, greeting=...)", params, 1)
	}
}

package eval

import (
	"testing"

	"github.com/ardnew/avon/lang/builtin"
	"github.com/ardnew/avon/lang/environment"
	"github.com/ardnew/avon/lang/parser"
	"github.com/ardnew/avon/lang/value"
)

func newRootEnv(ev *Evaluator) *environment.Env {
	env := environment.New()
	builtin.Register(env, ev.Apply)

	return env
}

func run(t *testing.T, src string) *value.Value {
	t.Helper()

	prog, perr := parser.ParseProgram(src)
	if perr != nil {
		t.Fatalf("ParseProgram(%q) error: %v", src, perr)
	}

	ev := New()
	env := newRootEnv(ev)

	v, eerr := ev.Eval(prog.Body, env)
	if eerr != nil {
		t.Fatalf("Eval(%q) error: %v", src, eerr)
	}

	return v
}

func runErr(t *testing.T, src string) *testing.T {
	t.Helper()

	prog, perr := parser.ParseProgram(src)
	if perr != nil {
		t.Fatalf("ParseProgram(%q) error: %v", src, perr)
	}

	ev := New()
	env := newRootEnv(ev)

	if _, eerr := ev.Eval(prog.Body, env); eerr == nil {
		t.Fatalf("Eval(%q) succeeded, want an error", src)
	}

	return t
}

func TestArithmetic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want string
	}{
		{"1 + 2 * 3", "7"},
		{"10 - 3", "7"},
		{"2 * 3.5", "7"},
		{"7 / 2", "3"},
		{"7 % 2", "1"},
		{"7.0 / 2", "3.5"},
		{"-5 + 3", "-2"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()

			if got := run(t, tt.src).ToString(); got != tt.want {
				t.Errorf("eval(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestDivideByZero(t *testing.T) {
	t.Parallel()
	runErr(t, "1 / 0")
	runErr(t, "1.0 / 0.0")
}

func TestComparisonsAndLogic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want bool
	}{
		{"1 < 2", true},
		{"2 <= 2", true},
		{"3 > 2", true},
		{"2 >= 3", false},
		{"1 == 1", true},
		{"1 != 2", true},
		{`1 == "1"`, false},
		{`1 != "1"`, true},
		{"true && false", false},
		{"true || false", true},
		{"!true", false},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()

			v := run(t, tt.src)
			if v.Kind != value.BoolKind || v.Bool != tt.want {
				t.Errorf("eval(%q) = %v, want Bool(%v)", tt.src, v.Inspect(), tt.want)
			}
		})
	}
}

func TestStringConcatAndListConcat(t *testing.T) {
	t.Parallel()

	if got := run(t, `"a" + "b"`).ToString(); got != "ab" {
		t.Errorf(`"a"+"b" = %q, want "ab"`, got)
	}

	if got := run(t, "[1,2] + [3]").Inspect(); got != "[1, 2, 3]" {
		t.Errorf("[1,2]+[3] = %q, want [1, 2, 3]", got)
	}
}

func TestTemplateEquivalence(t *testing.T) {
	t.Parallel()

	// "{e}" ≡ to_string e.
	if got := run(t, `"port={8080}"`).ToString(); got != "port=8080" {
		t.Errorf(`template = %q, want "port=8080"`, got)
	}

	if got := run(t, `let port = 8080 in "port={port}"`).ToString(); got != "port=8080" {
		t.Errorf(`template = %q`, got)
	}
}

func TestClosureCapture(t *testing.T) {
	t.Parallel()

	src := `let x = 1 in let f = \y x + y in let x = 99 in f 2`
	if got := run(t, src).ToString(); got != "3" {
		t.Errorf("closure capture result = %q, want 3", got)
	}
}

func TestDefaultArguments(t *testing.T) {
	t.Parallel()

	if got := run(t, `(\x y = 10 x + y) 5`).ToString(); got != "15" {
		t.Errorf("default-arg call = %q, want 15", got)
	}

	if got := run(t, `(\x y = 10 x + y) 5 7`).ToString(); got != "12" {
		t.Errorf("override-default call = %q, want 12", got)
	}
}

func TestCurrying(t *testing.T) {
	t.Parallel()

	src := `let add = \x y x + y in let add5 = add 5 in add5 3`
	if got := run(t, src).ToString(); got != "8" {
		t.Errorf("curried call = %q, want 8", got)
	}
}

func TestRanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want string
	}{
		{"[1..5]", "[1, 2, 3, 4, 5]"},
		{"[1,3..9]", "[1, 3, 5, 7, 9]"},
		{"[5..1]", "[]"},
		{"[1,1..5]", "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()

			if got := run(t, tt.src).Inspect(); got != tt.want {
				t.Errorf("eval(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestIfExpression(t *testing.T) {
	t.Parallel()

	if got := run(t, `if true then "yes" else "no"`).ToString(); got != "yes" {
		t.Errorf(`if true = %q, want "yes"`, got)
	}

	if got := run(t, `if false then "yes" else "no"`).ToString(); got != "no" {
		t.Errorf(`if false = %q, want "no"`, got)
	}
}

func TestIfConditionMustBeBool(t *testing.T) {
	t.Parallel()
	runErr(t, `if 1 then "a" else "b"`)
}

func TestUnknownSymbol(t *testing.T) {
	t.Parallel()
	runErr(t, "nope")
}

func TestPipeEquivalence(t *testing.T) {
	t.Parallel()

	if got := run(t, `"hello" -> upper`).ToString(); got != "HELLO" {
		t.Errorf(`"hello" -> upper = %q, want "HELLO"`, got)
	}

	a := run(t, "5 -> (\\x x + 1)").ToString()
	b := run(t, "(\\x x + 1) 5").ToString()

	if a != b {
		t.Errorf("pipe vs direct application diverge: %q != %q", a, b)
	}
}

func TestMapFilterBuiltins(t *testing.T) {
	t.Parallel()

	if got := run(t, "map (\\x x * 2) [1,2,3]").Inspect(); got != "[2, 4, 6]" {
		t.Errorf("map result = %q, want [2, 4, 6]", got)
	}

	if got := run(t, "filter (\\x (x > 2)) [1,2,3,4,5]").Inspect(); got != "[3, 4, 5]" {
		t.Errorf("filter result = %q, want [3, 4, 5]", got)
	}
}

func TestDictMemberAccess(t *testing.T) {
	t.Parallel()

	if got := run(t, `{name: "avon"}.name`).ToString(); got != "avon" {
		t.Errorf(`dict.name = %q, want "avon"`, got)
	}

	runErr(t, `{name: "avon"}.missing`)
}

func TestMemberAccessAsMethodDispatch(t *testing.T) {
	t.Parallel()

	// `x.upper` behaves as `upper x` for non-dict targets.
	if got := run(t, `"abc".upper`).ToString(); got != "ABC" {
		t.Errorf(`"abc".upper = %q, want "ABC"`, got)
	}
}

func TestRecursionDepthExceeded(t *testing.T) {
	t.Parallel()

	prog, perr := parser.ParseProgram(`let f = \n f (n+1) in f 0`)
	if perr != nil {
		t.Fatalf("ParseProgram error: %v", perr)
	}

	ev := New()
	ev.MaxDepth = 100
	env := newRootEnv(ev)

	_, eerr := ev.Eval(prog.Body, env)
	if eerr == nil {
		t.Fatal("expected RecursionDepthExceeded, evaluation terminated without error")
	}
}

func TestDeployNodeEvaluatesToDeployValue(t *testing.T) {
	t.Parallel()

	v := run(t, `@/etc/app.conf {"content=x"}`)
	if v.Kind != value.DeployKind {
		t.Fatalf("kind = %s, want deploy", v.Kind)
	}

	if v.Deploy.Path != "/etc/app.conf" || v.Deploy.Content != "content=x" {
		t.Errorf("deploy = %+v, want path=/etc/app.conf content=content=x", v.Deploy)
	}
}

func TestListElementFullPrecedence(t *testing.T) {
	t.Parallel()

	if got := run(t, `[(if true then "yes" else "no"), "x"]`).Inspect(); got != `["yes", "x"]` {
		t.Errorf("result = %q, want [\"yes\", \"x\"]", got)
	}
}

func TestOverApplicationError(t *testing.T) {
	t.Parallel()
	runErr(t, `(\x x) 1 2`)
}

func TestTypeMismatchShowsBothKinds(t *testing.T) {
	t.Parallel()

	prog, perr := parser.ParseProgram(`1 + true`)
	if perr != nil {
		t.Fatalf("parse error: %v", perr)
	}

	ev := New()
	env := newRootEnv(ev)

	_, eerr := ev.Eval(prog.Body, env)
	if eerr == nil {
		t.Fatal("expected a TypeMismatch error")
	}
}

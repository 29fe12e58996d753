// Package lang is Avon's public facade over lexer, parser, value,
// environment, eval, builtin, and deploy: it assembles the pipeline
// into the few entry points the CLI needs —
// parse a source file, build a runtime environment with the builtin
// library bound in, evaluate, and format a result for display.
package lang

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/avon/lang/ast"
	"github.com/ardnew/avon/lang/builtin"
	"github.com/ardnew/avon/lang/diag"
	"github.com/ardnew/avon/lang/environment"
	"github.com/ardnew/avon/lang/eval"
	"github.com/ardnew/avon/lang/lexer"
	"github.com/ardnew/avon/lang/parser"
	"github.com/ardnew/avon/lang/token"
	"github.com/ardnew/avon/lang/value"
)

// AST wraps a parsed program together with the source text it was
// parsed from, so later diagnostics can render a caret-pointing
// excerpt.
type AST struct {
	Program *ast.Program
	Source  string
}

// Parse parses src into an AST.
func Parse(src string) (*AST, *diag.Error) {
	prog, err := parser.ParseProgram(src)
	if err != nil {
		return nil, err
	}

	return &AST{Program: prog, Source: src}, nil
}

// ParseReader reads all of r and parses it.
func ParseReader(r io.Reader) (*AST, *diag.Error) {
	b, ioErr := io.ReadAll(r)
	if ioErr != nil {
		return nil, diag.New(diag.Unknown, "read source").Wrap(ioErr)
	}

	return Parse(stripBOM(string(b)))
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}

// Print writes a debug dump of the token stream followed by the
// s-expression AST, matching the CLI's `--debug` flag.
func (a *AST) Print(w io.Writer) error {
	toks, err := lexer.All(a.Source)
	if err != nil {
		return err
	}

	if _, e := io.WriteString(w, "-- tokens --\n"); e != nil {
		return e
	}

	for _, t := range toks {
		if _, e := io.WriteString(w, t.String()+"\n"); e != nil {
			return e
		}
	}

	if _, e := io.WriteString(w, "-- ast --\n"); e != nil {
		return e
	}

	_, e := io.WriteString(w, a.Program.Inspect()+"\n")

	return e
}

// Format re-emits the parsed program in native Avon syntax (the
// s-expression Inspect form — see lang/ast's Inspect methods). indent
// is accepted for parity with FormatJSON/FormatYAML but unused: the
// native form has no configurable indentation.
func (a *AST) Format(w io.Writer, indent int) error {
	_, err := io.WriteString(w, a.Program.Inspect()+"\n")

	return err
}

// Runtime is an evaluation session: a builtin-populated root
// environment and the evaluator that owns call-stack depth tracking
// for it. A Runtime may evaluate many ASTs in sequence (as the REPL
// does): Eval runs against the root environment and EvalIn against a
// caller-supplied frame. A `let` binds in a child frame of its own, so
// bindings made while evaluating one line don't leak into the next
// unless explicitly kept (bound into the frame with Env.Bind).
type Runtime struct {
	Env       *environment.Env
	Evaluator *eval.Evaluator
}

// NewRuntime returns a Runtime with the full builtin library bound
// into its root environment.
func NewRuntime() *Runtime {
	ev := eval.New()
	env := environment.New()

	builtin.Register(env, ev.Apply)

	return &Runtime{Env: env, Evaluator: ev}
}

// Bind injects name => Str(val) into the runtime's root environment,
// implementing the CLI's `-<name> <value>` flag.
func (rt *Runtime) Bind(name, val string) {
	rt.Env.Bind(name, value.Str(val))
}

// Eval evaluates a's program against the runtime's root environment.
func (rt *Runtime) Eval(a *AST) (*value.Value, *diag.Error) {
	return rt.Evaluator.Eval(a.Program.Body, rt.Env)
}

// EvalIn evaluates a's program against env instead of the runtime's
// root environment, e.g. a REPL's accumulated session frame.
func (rt *Runtime) EvalIn(a *AST, env *environment.Env) (*value.Value, *diag.Error) {
	return rt.Evaluator.Eval(a.Program.Body, env)
}

// FormatJSON evaluates a and writes its result as JSON.
func FormatJSON(rt *Runtime, a *AST, w io.Writer, indent int) error {
	v, err := rt.Eval(a)
	if err != nil {
		return err
	}

	b, jerr := marshalJSON(v.Native(), indent)
	if jerr != nil {
		return jerr
	}

	_, werr := w.Write(append(b, '\n'))

	return werr
}

// FormatYAML evaluates a and writes its result as YAML.
func FormatYAML(ctx context.Context, rt *Runtime, a *AST, w io.Writer, indent int) error {
	v, err := rt.Eval(a)
	if err != nil {
		return err
	}

	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	b, yerr := yaml.MarshalContext(ctx, v.Native(), opts...)
	if yerr != nil {
		return yerr
	}

	_, werr := io.WriteString(w, string(b))

	return werr
}

func marshalJSON(v any, indent int) ([]byte, error) {
	if indent > 0 {
		return json.MarshalIndent(v, "", strings.Repeat(" ", indent))
	}

	return json.Marshal(v)
}

// ResolveSpan looks up the token.Span's source excerpt within a's
// source text, used by the CLI's error reporter.
func (a *AST) ResolveSpan(sp token.Span) string {
	lines := strings.Split(a.Source, "\n")
	if sp.Start.Line-1 < 0 || sp.Start.Line-1 >= len(lines) {
		return ""
	}

	return lines[sp.Start.Line-1]
}

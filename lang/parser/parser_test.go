package parser

import (
	"testing"

	"github.com/ardnew/avon/lang/ast"
)

func mustParse(t *testing.T, src string) ast.Expr {
	t.Helper()

	prog, err := ParseProgram(src)
	if err != nil {
		t.Fatalf("ParseProgram(%q) error: %v", src, err)
	}

	return prog.Body
}

func TestPrecedenceAdditiveOverComparison(t *testing.T) {
	t.Parallel()

	expr := mustParse(t, "1 + 2 == 3")

	bin, ok := expr.(*ast.BinaryOp)
	if !ok {
		t.Fatalf("top-level node is %T, want *ast.BinaryOp", expr)
	}

	if bin.Op.String() != "==" {
		t.Fatalf("top-level op = %s, want ==", bin.Op)
	}

	if _, ok := bin.Left.(*ast.BinaryOp); !ok {
		t.Errorf("left operand is %T, want *ast.BinaryOp (1 + 2)", bin.Left)
	}
}

func TestPrecedenceMultiplicativeOverAdditive(t *testing.T) {
	t.Parallel()

	expr := mustParse(t, "1 + 2 * 3")

	bin, ok := expr.(*ast.BinaryOp)
	if !ok || bin.Op.String() != "+" {
		t.Fatalf("top-level node = %#v, want '+' BinaryOp", expr)
	}

	right, ok := bin.Right.(*ast.BinaryOp)
	if !ok || right.Op.String() != "*" {
		t.Errorf("right operand = %#v, want '*' BinaryOp", bin.Right)
	}
}

func TestPrecedenceAndOverOr(t *testing.T) {
	t.Parallel()

	expr := mustParse(t, "true || false && false")

	bin, ok := expr.(*ast.BinaryOp)
	if !ok || bin.Op.String() != "||" {
		t.Fatalf("top-level node = %#v, want '||' BinaryOp", expr)
	}

	if _, ok := bin.Right.(*ast.BinaryOp); !ok {
		t.Errorf("right operand = %#v, want '&&' BinaryOp", bin.Right)
	}
}

// TestUniformPrecedenceInListElement verifies the central parsing
// requirement: list elements parse at full expression precedence, not just
// application precedence.
func TestUniformPrecedenceInListElement(t *testing.T) {
	t.Parallel()

	expr := mustParse(t, `[(if true then "yes" else "no"), "x"]`)

	list, ok := expr.(*ast.ListLit)
	if !ok || len(list.Elements) != 2 {
		t.Fatalf("top-level node = %#v, want a 2-element ListLit", expr)
	}

	if _, ok := list.Elements[0].(*ast.If); !ok {
		t.Errorf("element[0] = %#v, want *ast.If", list.Elements[0])
	}
}

func TestUniformPrecedenceInLambdaBody(t *testing.T) {
	t.Parallel()

	expr := mustParse(t, `\x x + 1 -> double`)

	lam, ok := expr.(*ast.Lambda)
	if !ok {
		t.Fatalf("top-level node = %#v, want *ast.Lambda", expr)
	}

	// The body "x + 1 -> double" must parse as a whole (pipe-level), i.e.
	// desugar to `double (x + 1)`, not stop at "x" (application-level).
	app, ok := lam.Body.(*ast.Apply)
	if !ok {
		t.Fatalf("lambda body = %#v, want *ast.Apply (pipe-desugared)", lam.Body)
	}

	if id, ok := app.Fn.(*ast.Ident); !ok || id.Name != "double" {
		t.Errorf("pipe target = %#v, want ident 'double'", app.Fn)
	}
}

func TestApplicationLeftAssociative(t *testing.T) {
	t.Parallel()

	expr := mustParse(t, "f x y")

	app, ok := expr.(*ast.Apply)
	if !ok || len(app.Args) != 2 {
		t.Fatalf("top-level node = %#v, want 2-arg Apply", expr)
	}

	if id, ok := app.Fn.(*ast.Ident); !ok || id.Name != "f" {
		t.Errorf("fn = %#v, want ident 'f'", app.Fn)
	}
}

func TestApplicationStopsAtLowerPrecedence(t *testing.T) {
	t.Parallel()

	expr := mustParse(t, "f x + 1")

	bin, ok := expr.(*ast.BinaryOp)
	if !ok || bin.Op.String() != "+" {
		t.Fatalf("top-level node = %#v, want '+' BinaryOp", expr)
	}

	app, ok := bin.Left.(*ast.Apply)
	if !ok || len(app.Args) != 1 {
		t.Errorf("left operand = %#v, want 1-arg Apply (f x)", bin.Left)
	}
}

func TestPipeDesugarsToApplication(t *testing.T) {
	t.Parallel()

	expr := mustParse(t, "a -> f")

	app, ok := expr.(*ast.Apply)
	if !ok || len(app.Args) != 1 {
		t.Fatalf("top-level node = %#v, want 1-arg Apply", expr)
	}

	if id, ok := app.Args[0].(*ast.Ident); !ok || id.Name != "a" {
		t.Errorf("arg = %#v, want ident 'a'", app.Args[0])
	}
}

func TestPipeAppendsToExistingApplication(t *testing.T) {
	t.Parallel()

	expr := mustParse(t, "x -> f y z")

	app, ok := expr.(*ast.Apply)
	if !ok {
		t.Fatalf("top-level node = %#v, want *ast.Apply", expr)
	}

	if len(app.Args) != 3 {
		t.Fatalf("arg count = %d, want 3 (y, z, x)", len(app.Args))
	}

	names := make([]string, 3)
	for i, a := range app.Args {
		id, ok := a.(*ast.Ident)
		if !ok {
			t.Fatalf("arg[%d] = %#v, not an ident", i, a)
		}

		names[i] = id.Name
	}

	if names[0] != "y" || names[1] != "z" || names[2] != "x" {
		t.Errorf("args = %v, want [y z x]", names)
	}
}

func TestRangeLiteral(t *testing.T) {
	t.Parallel()

	expr := mustParse(t, "[1..5]")

	list, ok := expr.(*ast.ListLit)
	if !ok || !list.IsRange || len(list.Elements) != 1 {
		t.Fatalf("top-level node = %#v, want 1-bound range ListLit", expr)
	}
}

func TestRangeWithStep(t *testing.T) {
	t.Parallel()

	expr := mustParse(t, "[1,3..9]")

	list, ok := expr.(*ast.ListLit)
	if !ok || !list.IsRange || len(list.Elements) != 2 {
		t.Fatalf("top-level node = %#v, want 2-bound range ListLit", expr)
	}
}

func TestLambdaDefaultArguments(t *testing.T) {
	t.Parallel()

	expr := mustParse(t, `\x y = 10 x + y`)

	lam, ok := expr.(*ast.Lambda)
	if !ok || len(lam.Params) != 2 {
		t.Fatalf("top-level node = %#v, want 2-param Lambda", expr)
	}

	if lam.Params[0].Default != nil {
		t.Error("first parameter x should have no default")
	}

	if lam.Params[1].Default == nil {
		t.Error("second parameter y should have a default")
	}
}

// TestLambdaBareIdentAfterDefaultIsBody verifies the grammar's
// resolution of the "required parameter after a defaulted one"
// ambiguity: since there is no syntax to distinguish the two, a bare
// identifier following a defaulted parameter is never treated as
// another parameter — it is always the start of the body.
func TestLambdaBareIdentAfterDefaultIsBody(t *testing.T) {
	t.Parallel()

	expr := mustParse(t, `\x = 1 y body`)

	lam, ok := expr.(*ast.Lambda)
	if !ok || len(lam.Params) != 1 {
		t.Fatalf("top-level node = %#v, want 1-param Lambda", expr)
	}

	if lam.Params[0].Default == nil {
		t.Fatal("parameter x should carry the default 1")
	}

	app, ok := lam.Body.(*ast.Apply)
	if !ok {
		t.Fatalf("lambda body = %#v, want *ast.Apply (y applied to body)", lam.Body)
	}

	if id, ok := app.Fn.(*ast.Ident); !ok || id.Name != "y" {
		t.Errorf("body function = %#v, want ident 'y'", app.Fn)
	}
}

// TestLambdaDefaultDoesNotSwallowNextParam exercises a worked example
// directly at the parser level: the defaulted parameter's value must
// not extend into what follows.
func TestLambdaDefaultDoesNotSwallowNextParam(t *testing.T) {
	t.Parallel()

	expr := mustParse(t, `\x y = 10 x + y`)

	lam, ok := expr.(*ast.Lambda)
	if !ok || len(lam.Params) != 2 {
		t.Fatalf("top-level node = %#v, want 2-param Lambda", expr)
	}

	if lam.Params[0].Default != nil {
		t.Error("parameter x should have no default")
	}

	def, ok := lam.Params[1].Default.(*ast.IntLit)
	if !ok || def.Value != 10 {
		t.Fatalf("parameter y default = %#v, want IntLit(10)", lam.Params[1].Default)
	}

	bin, ok := lam.Body.(*ast.BinaryOp)
	if !ok || bin.Op.String() != "+" {
		t.Fatalf("lambda body = %#v, want 'x + y' BinaryOp", lam.Body)
	}
}

// TestLambdaMultipleDefaultsInARow verifies consecutive defaulted
// parameters are each recognized in turn, since each is individually
// disambiguated by peeking for the '=' that follows it.
func TestLambdaMultipleDefaultsInARow(t *testing.T) {
	t.Parallel()

	expr := mustParse(t, `\x=1 y=2 body`)

	lam, ok := expr.(*ast.Lambda)
	if !ok || len(lam.Params) != 2 {
		t.Fatalf("top-level node = %#v, want 2-param Lambda", expr)
	}

	if lam.Params[0].Default == nil || lam.Params[1].Default == nil {
		t.Error("both x and y should carry defaults")
	}

	if id, ok := lam.Body.(*ast.Ident); !ok || id.Name != "body" {
		t.Errorf("lambda body = %#v, want ident 'body'", lam.Body)
	}
}

func TestDeployNode(t *testing.T) {
	t.Parallel()

	expr := mustParse(t, `@/etc/{name}.conf {"content={name}"}`)

	dep, ok := expr.(*ast.Deploy)
	if !ok {
		t.Fatalf("top-level node = %#v, want *ast.Deploy", expr)
	}

	if len(dep.Path.Chunks) != 3 {
		t.Errorf("path chunk count = %d, want 3", len(dep.Path.Chunks))
	}
}

func TestMemberAccess(t *testing.T) {
	t.Parallel()

	expr := mustParse(t, "d.key")

	mem, ok := expr.(*ast.Member)
	if !ok || mem.Name != "key" {
		t.Fatalf("top-level node = %#v, want Member 'key'", expr)
	}
}

func TestDictLiteral(t *testing.T) {
	t.Parallel()

	expr := mustParse(t, `{name: "x", age: 1}`)

	dict, ok := expr.(*ast.DictLit)
	if !ok || len(dict.Entries) != 2 {
		t.Fatalf("top-level node = %#v, want 2-entry DictLit", expr)
	}
}

func TestLetAndIf(t *testing.T) {
	t.Parallel()

	expr := mustParse(t, `let x = 1 in if x == 1 then "a" else "b"`)

	let, ok := expr.(*ast.Let)
	if !ok || let.Name != "x" {
		t.Fatalf("top-level node = %#v, want Let 'x'", expr)
	}

	if _, ok := let.Body.(*ast.If); !ok {
		t.Errorf("let body = %#v, want *ast.If", let.Body)
	}
}

func TestUnexpectedTokenIsParseError(t *testing.T) {
	t.Parallel()

	if _, err := ParseProgram("let x = "); err == nil {
		t.Error("expected a ParseError")
	}
}

func TestTrailingTokensIsParseError(t *testing.T) {
	t.Parallel()

	if _, err := ParseProgram("1 2 )"); err == nil {
		t.Error("expected a ParseError for unconsumed trailing tokens")
	}
}

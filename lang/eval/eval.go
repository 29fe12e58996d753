// Package eval implements Avon's tree-walking evaluator: a pure
// function from (ast.Expr, *environment.Env) to a runtime value.Value,
// covering template interpolation, currying, default arguments, the
// pipe-desugared application form, member access, and deploy-value
// construction.
package eval

import (
	"strings"

	"github.com/ardnew/avon/lang/ast"
	"github.com/ardnew/avon/lang/diag"
	"github.com/ardnew/avon/lang/environment"
	"github.com/ardnew/avon/lang/token"
	"github.com/ardnew/avon/lang/value"
)

// DefaultMaxDepth is the recommended maximum call-stack depth.
const DefaultMaxDepth = 10000

// Evaluator walks an ast.Expr against an environment. It is not safe
// for concurrent reuse across goroutines (Avon's evaluation model is
// single-threaded), but a fresh Evaluator is cheap to construct per
// evaluation.
type Evaluator struct {
	MaxDepth int
	depth    int
}

// New returns an Evaluator with the recommended maximum recursion
// depth.
func New() *Evaluator {
	return &Evaluator{MaxDepth: DefaultMaxDepth}
}

// Eval evaluates expr in env.
func (e *Evaluator) Eval(expr ast.Expr, env *environment.Env) (*value.Value, *diag.Error) {
	switch n := expr.(type) {
	case *ast.IntLit:
		return value.Int(n.Value), nil
	case *ast.FloatLit:
		return value.Float(n.Value), nil
	case *ast.BoolLit:
		return value.Bool(n.Value), nil
	case *ast.StringLit:
		s, err := e.evalChunks(n.Chunks, env)
		if err != nil {
			return nil, err
		}

		return value.Str(s), nil
	case *ast.PathLit:
		s, err := e.evalChunks(n.Chunks, env)
		if err != nil {
			return nil, err
		}

		return value.Path(s), nil
	case *ast.Ident:
		v, ok := env.Lookup(n.Name)
		if !ok {
			return nil, e.unknownSymbol(n.Name, n.Sp, env)
		}

		return v, nil
	case *ast.ListLit:
		return e.evalList(n, env)
	case *ast.DictLit:
		return e.evalDict(n, env)
	case *ast.Member:
		return e.evalMember(n, env)
	case *ast.Lambda:
		return value.ClosureVal(&value.Closure{Params: n.Params, Body: n.Body, Env: env}), nil
	case *ast.Apply:
		return e.evalApply(n, env)
	case *ast.Let:
		return e.evalLet(n, env)
	case *ast.If:
		return e.evalIf(n, env)
	case *ast.UnaryOp:
		return e.evalUnary(n, env)
	case *ast.BinaryOp:
		return e.evalBinary(n, env)
	case *ast.Deploy:
		return e.evalDeploy(n, env)
	default:
		return nil, diag.Newf(diag.Unknown, "unhandled AST node %T", expr).AtSpan(expr.Span())
	}
}

func (e *Evaluator) unknownSymbol(name string, sp token.Span, env *environment.Env) *diag.Error {
	err := diag.Newf(diag.UnknownSymbol, "%q is not in scope", name).AtSpan(sp)

	if hint := nearestName(name, env.Names()); hint != "" {
		err = err.WithHint("did you mean '" + hint + "'?")
	}

	return err
}

// nearestName returns the candidate with the smallest Levenshtein
// distance to name, or "" if none is close enough to be a useful
// hint. The CLI's interactive surfaces (cli/cmd/repl) use the richer
// github.com/sahilm/fuzzy ranker for completion; this is a small,
// dependency-free check suitable for a single hint on a hard error.
func nearestName(name string, candidates []string) string {
	best := ""
	bestDist := -1

	for _, c := range candidates {
		d := levenshtein(name, c)
		if d <= 2 && (bestDist == -1 || d < bestDist) {
			best, bestDist = c, d
		}
	}

	return best
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		cur[0] = i

		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}

			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost

			m := del
			if ins < m {
				m = ins
			}

			if sub < m {
				m = sub
			}

			cur[j] = m
		}

		prev, cur = cur, prev
	}

	return prev[len(rb)]
}

func (e *Evaluator) evalChunks(chunks []ast.Chunk, env *environment.Env) (string, *diag.Error) {
	var b strings.Builder

	for _, c := range chunks {
		if c.Expr == nil {
			b.WriteString(c.Literal)

			continue
		}

		v, err := e.Eval(c.Expr, env)
		if err != nil {
			return "", err
		}

		b.WriteString(v.ToString())
	}

	return b.String(), nil
}

func (e *Evaluator) evalList(n *ast.ListLit, env *environment.Env) (*value.Value, *diag.Error) {
	if !n.IsRange {
		vals := make([]*value.Value, len(n.Elements))

		for i, el := range n.Elements {
			v, err := e.Eval(el, env)
			if err != nil {
				return nil, err
			}

			vals[i] = v
		}

		return value.List(vals), nil
	}

	lo, err := e.evalInt(n.Elements[0], env, "range bound")
	if err != nil {
		return nil, err
	}

	hi, err := e.evalInt(n.RangeHi, env, "range bound")
	if err != nil {
		return nil, err
	}

	step := int64(1)

	if len(n.Elements) == 2 {
		next, err := e.evalInt(n.Elements[1], env, "range step")
		if err != nil {
			return nil, err
		}

		step = next - lo
	}

	var vals []*value.Value

	if step != 0 {
		if step > 0 {
			for v := lo; v <= hi; v += step {
				vals = append(vals, value.Int(v))
			}
		} else {
			for v := lo; v >= hi; v += step {
				vals = append(vals, value.Int(v))
			}
		}
	}

	return value.List(vals), nil
}

func (e *Evaluator) evalInt(expr ast.Expr, env *environment.Env, what string) (int64, *diag.Error) {
	v, err := e.Eval(expr, env)
	if err != nil {
		return 0, err
	}

	if v.Kind != value.IntKind {
		return 0, diag.Newf(diag.TypeMismatch, "%s must be an integer, got %s", what, v.Kind).AtSpan(expr.Span())
	}

	return v.Int, nil
}

func (e *Evaluator) evalDict(n *ast.DictLit, env *environment.Env) (*value.Value, *diag.Error) {
	d := value.NewDict()

	for _, entry := range n.Entries {
		var key string

		if id, ok := entry.Key.(*ast.Ident); ok {
			key = id.Name
		} else {
			kv, err := e.Eval(entry.Key, env)
			if err != nil {
				return nil, err
			}

			key = kv.ToString()
		}

		v, err := e.Eval(entry.Value, env)
		if err != nil {
			return nil, err
		}

		d.Set(key, v)
	}

	return value.DictVal(d), nil
}

func (e *Evaluator) evalMember(n *ast.Member, env *environment.Env) (*value.Value, *diag.Error) {
	target, err := e.Eval(n.Target, env)
	if err != nil {
		return nil, err
	}

	if target.Kind == value.DictKind {
		if v, ok := target.Dict.Get(n.Name); ok {
			return v, nil
		}

		return nil, diag.Newf(diag.KeyMissing, "dict has no key %q", n.Name).AtSpan(n.Sp)
	}

	// Method-like dispatch: `v.k` with v not a dict looks up `k` as a
	// function in scope and applies it with v bound first, so `x.upper`
	// behaves as `upper x` (fully invoked, upper has arity 1) and
	// `x.pad_left 5` as `pad_left x 5` (pad_left still short one arg,
	// so this yields a partial application, same as calling apply does
	// anywhere else).
	fn, ok := env.Lookup(n.Name)
	if !ok {
		return nil, e.unknownSymbol(n.Name, n.Sp, env)
	}

	if fn.Kind != value.ClosureKind && fn.Kind != value.BuiltinKind {
		return nil, diag.Newf(diag.TypeMismatch, "member access target %s is not a dict or function", fn.Kind).AtSpan(n.Sp)
	}

	return e.apply(fn, []*value.Value{target}, n.Sp)
}

func (e *Evaluator) evalApply(n *ast.Apply, env *environment.Env) (*value.Value, *diag.Error) {
	fn, err := e.Eval(n.Fn, env)
	if err != nil {
		return nil, err
	}

	args := make([]*value.Value, len(n.Args))

	for i, a := range n.Args {
		v, err := e.Eval(a, env)
		if err != nil {
			return nil, err
		}

		args[i] = v
	}

	return e.apply(fn, args, n.Sp)
}

// apply feeds args into fn one saturating call at a time, implementing
// currying (when args run out before params are satisfied) and
// over-application (when args remain after a call produces a result,
// they are applied to that result in turn).
func (e *Evaluator) apply(fn *value.Value, args []*value.Value, sp token.Span) (*value.Value, *diag.Error) {
	if len(args) == 0 {
		return fn, nil
	}

	switch fn.Kind {
	case value.ClosureKind:
		return e.applyClosure(fn.Closure, args, sp)
	case value.BuiltinKind:
		return e.applyBuiltin(fn.Builtin, args, sp)
	default:
		return nil, diag.Newf(diag.TypeMismatch, "cannot apply arguments to non-function value of kind %s", fn.Kind).AtSpan(sp)
	}
}

func (e *Evaluator) applyClosure(c *value.Closure, args []*value.Value, sp token.Span) (*value.Value, *diag.Error) {
	need := len(c.Params) - len(c.Bound)

	take, leftover := args, []*value.Value(nil)
	if len(args) > need {
		take, leftover = args[:need], args[need:]
	}

	bound := append(append([]*value.Value{}, c.Bound...), take...)

	callerEnv, ok := c.Env.(*environment.Env)
	if !ok {
		return nil, diag.New(diag.Unknown, "closure environment is not an *environment.Env").AtSpan(sp)
	}

	if len(bound) < len(c.Params) {
		filled := append([]*value.Value{}, bound...)

		for i := len(bound); i < len(c.Params); i++ {
			p := c.Params[i]
			if p.Default == nil {
				// Still under-supplied with no default to fall back
				// on: this is the currying case, return a partial
				// closure.
				return value.ClosureVal(&value.Closure{Params: c.Params, Body: c.Body, Env: c.Env, Bound: bound}), nil
			}

			dv, err := e.Eval(p.Default, callerEnv)
			if err != nil {
				return nil, err
			}

			filled = append(filled, dv)
		}

		bound = filled
	}

	callEnv := callerEnv.Child()
	for i, p := range c.Params {
		callEnv.Bind(p.Name, bound[i])
	}

	e.depth++
	if e.depth > e.MaxDepth {
		e.depth--

		return nil, diag.New(diag.RecursionDepthExceeded, "maximum call-stack depth exceeded").AtSpan(sp)
	}

	result, err := e.Eval(c.Body, callEnv)
	e.depth--

	if err != nil {
		return nil, err
	}

	if len(leftover) > 0 {
		return e.apply(result, leftover, sp)
	}

	return result, nil
}

func (e *Evaluator) applyBuiltin(b *value.Builtin, args []*value.Value, sp token.Span) (*value.Value, *diag.Error) {
	if b.Arity < 0 {
		bound := append(append([]*value.Value{}, b.Bound...), args...)

		v, gerr := b.Fn(bound)
		if gerr != nil {
			return nil, toDiag(gerr, sp)
		}

		return v, nil
	}

	need := b.Arity - len(b.Bound)

	take, leftover := args, []*value.Value(nil)
	if len(args) > need {
		take, leftover = args[:need], args[need:]
	}

	bound := append(append([]*value.Value{}, b.Bound...), take...)

	if len(bound) < b.Arity {
		return value.BuiltinVal(&value.Builtin{Name: b.Name, Arity: b.Arity, Fn: b.Fn, Bound: bound}), nil
	}

	result, gerr := b.Fn(bound)
	if gerr != nil {
		return nil, toDiag(gerr, sp)
	}

	if len(leftover) > 0 {
		return e.apply(result, leftover, sp)
	}

	return result, nil
}

func toDiag(err error, sp token.Span) *diag.Error {
	if de, ok := err.(*diag.Error); ok {
		return de
	}

	return diag.New(diag.Arity, err.Error()).AtSpan(sp)
}

func (e *Evaluator) evalLet(n *ast.Let, env *environment.Env) (*value.Value, *diag.Error) {
	// Self-referential let: construct the child frame first, then
	// evaluate the bound expression inside it. This is safe even when
	// Value is a lambda referencing Name, because the lambda's body is
	// not evaluated until the closure is later called — by which time
	// the frame has been bound. Only after evaluating Value do we
	// mutate this still-private frame to add the binding.
	child := env.Child()

	v, err := e.Eval(n.Value, child)
	if err != nil {
		return nil, err
	}

	child.Bind(n.Name, v)

	return e.Eval(n.Body, child)
}

func (e *Evaluator) evalIf(n *ast.If, env *environment.Env) (*value.Value, *diag.Error) {
	cond, err := e.Eval(n.Cond, env)
	if err != nil {
		return nil, err
	}

	if cond.Kind != value.BoolKind {
		return nil, diag.Newf(diag.TypeMismatch, "if condition must be a bool, got %s", cond.Kind).AtSpan(n.Cond.Span())
	}

	if cond.Bool {
		return e.Eval(n.Then, env)
	}

	return e.Eval(n.Else, env)
}

func (e *Evaluator) evalUnary(n *ast.UnaryOp, env *environment.Env) (*value.Value, *diag.Error) {
	v, err := e.Eval(n.Operand, env)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case token.Minus:
		switch v.Kind {
		case value.IntKind:
			return value.Int(-v.Int), nil
		case value.FloatKind:
			return value.Float(-v.Float), nil
		default:
			return nil, diag.Newf(diag.TypeMismatch, "unary '-' requires a number, got %s", v.Kind).AtSpan(n.Sp)
		}
	case token.Not:
		if v.Kind != value.BoolKind {
			return nil, diag.Newf(diag.TypeMismatch, "unary '!' requires a bool, got %s", v.Kind).AtSpan(n.Sp)
		}

		return value.Bool(!v.Bool), nil
	default:
		return nil, diag.Newf(diag.Unknown, "unhandled unary operator %s", n.Op).AtSpan(n.Sp)
	}
}

func (e *Evaluator) evalBinary(n *ast.BinaryOp, env *environment.Env) (*value.Value, *diag.Error) {
	left, err := e.Eval(n.Left, env)
	if err != nil {
		return nil, err
	}

	// && and || short-circuit; evaluate the right operand lazily.
	if n.Op == token.And || n.Op == token.Or {
		if left.Kind != value.BoolKind {
			return nil, diag.Newf(diag.TypeMismatch, "%s requires bools, got %s", n.Op, left.Kind).AtSpan(n.Sp)
		}

		if n.Op == token.And && !left.Bool {
			return value.Bool(false), nil
		}

		if n.Op == token.Or && left.Bool {
			return value.Bool(true), nil
		}

		right, err := e.Eval(n.Right, env)
		if err != nil {
			return nil, err
		}

		if right.Kind != value.BoolKind {
			return nil, diag.Newf(diag.TypeMismatch, "%s requires bools, got %s", n.Op, right.Kind).AtSpan(n.Sp)
		}

		return right, nil
	}

	right, err := e.Eval(n.Right, env)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case token.Eq:
		return value.Bool(left.Equal(right)), nil
	case token.NotEq:
		return value.Bool(!left.Equal(right)), nil
	case token.Lt, token.LtEq, token.Gt, token.GtEq:
		return e.compare(n.Op, left, right, n.Sp)
	case token.Plus:
		return e.add(left, right, n.Sp)
	case token.Minus:
		return e.arith(n.Op, left, right, n.Sp)
	case token.Star, token.Slash, token.Percent:
		return e.arith(n.Op, left, right, n.Sp)
	default:
		return nil, diag.Newf(diag.Unknown, "unhandled binary operator %s", n.Op).AtSpan(n.Sp)
	}
}

func (e *Evaluator) add(left, right *value.Value, sp token.Span) (*value.Value, *diag.Error) {
	switch {
	case left.Kind == value.StrKind && right.Kind == value.StrKind:
		return value.Str(left.Str + right.Str), nil
	case left.Kind == value.ListKind && right.Kind == value.ListKind:
		out := make([]*value.Value, 0, len(left.List)+len(right.List))
		out = append(out, left.List...)
		out = append(out, right.List...)

		return value.List(out), nil
	case left.IsNumeric() && right.IsNumeric():
		return e.arith(token.Plus, left, right, sp)
	default:
		return nil, diag.Newf(diag.TypeMismatch, "'+' is not defined for %s and %s", left.Kind, right.Kind).AtSpan(sp)
	}
}

func (e *Evaluator) arith(op token.Kind, left, right *value.Value, sp token.Span) (*value.Value, *diag.Error) {
	if !left.IsNumeric() || !right.IsNumeric() {
		return nil, diag.Newf(diag.TypeMismatch, "%s requires numbers, got %s and %s", op, left.Kind, right.Kind).AtSpan(sp)
	}

	if left.Kind == value.IntKind && right.Kind == value.IntKind {
		switch op {
		case token.Minus:
			return value.Int(left.Int - right.Int), nil
		case token.Star:
			return value.Int(left.Int * right.Int), nil
		case token.Slash:
			if right.Int == 0 {
				return nil, diag.New(diag.DivideByZero, "division by zero").AtSpan(sp)
			}

			return value.Int(left.Int / right.Int), nil
		case token.Percent:
			if right.Int == 0 {
				return nil, diag.New(diag.DivideByZero, "division by zero").AtSpan(sp)
			}

			return value.Int(left.Int % right.Int), nil
		case token.Plus:
			return value.Int(left.Int + right.Int), nil
		}
	}

	lf, rf := left.AsFloat(), right.AsFloat()

	switch op {
	case token.Plus:
		return value.Float(lf + rf), nil
	case token.Minus:
		return value.Float(lf - rf), nil
	case token.Star:
		return value.Float(lf * rf), nil
	case token.Slash:
		if rf == 0 {
			return nil, diag.New(diag.DivideByZero, "division by zero").AtSpan(sp)
		}

		return value.Float(lf / rf), nil
	case token.Percent:
		if rf == 0 {
			return nil, diag.New(diag.DivideByZero, "division by zero").AtSpan(sp)
		}

		return value.Float(float64(int64(lf) % int64(rf))), nil
	default:
		return nil, diag.Newf(diag.Unknown, "unhandled arithmetic operator %s", op).AtSpan(sp)
	}
}

func (e *Evaluator) compare(op token.Kind, left, right *value.Value, sp token.Span) (*value.Value, *diag.Error) {
	if left.IsNumeric() && right.IsNumeric() {
		lf, rf := left.AsFloat(), right.AsFloat()

		return value.Bool(compareOp(op, cmp(lf, rf))), nil
	}

	if left.Kind == value.StrKind && right.Kind == value.StrKind {
		return value.Bool(compareOp(op, strings.Compare(left.Str, right.Str))), nil
	}

	return nil, diag.Newf(diag.TypeMismatch, "%s is not defined for %s and %s", op, left.Kind, right.Kind).AtSpan(sp)
}

func cmp[T int | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareOp(op token.Kind, c int) bool {
	switch op {
	case token.Lt:
		return c < 0
	case token.LtEq:
		return c <= 0
	case token.Gt:
		return c > 0
	case token.GtEq:
		return c >= 0
	default:
		return false
	}
}

// Apply applies fn to args, implementing the same currying and
// over-application rules as function application in source (§4.4). It
// is exported so lang/builtin's higher-order combinators (map, filter,
// fold, flatmap) can call back into user closures without lang/builtin
// importing lang/eval's unexported apply path.
func (e *Evaluator) Apply(fn *value.Value, args []*value.Value) (*value.Value, error) {
	v, err := e.apply(fn, args, token.Span{})
	if err != nil {
		return nil, err
	}

	return v, nil
}

func (e *Evaluator) evalDeploy(n *ast.Deploy, env *environment.Env) (*value.Value, *diag.Error) {
	path, err := e.evalChunks(n.Path.Chunks, env)
	if err != nil {
		return nil, err
	}

	content, err := e.Eval(n.Content, env)
	if err != nil {
		return nil, err
	}

	return value.DeployVal(&value.Deploy{Path: path, Content: content.ToString()}), nil
}

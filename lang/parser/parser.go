// Package parser implements Avon's hand-written recursive-descent
// parser. A single parseExpr entry point is used in every expression
// context — list elements, dict values, lambda bodies, conditional
// branches, let bodies — so that the uniform-precedence rule mandated
// by the specification (§9) holds everywhere, never only at the
// top level.
package parser

import (
	"strconv"

	"github.com/ardnew/avon/lang/ast"
	"github.com/ardnew/avon/lang/diag"
	"github.com/ardnew/avon/lang/lexer"
	"github.com/ardnew/avon/lang/token"
)

// Parser turns a token stream into an ast.Program.
type Parser struct {
	lex  *lexer.Lexer
	tok  token.Token
	prev token.Token
	// noApply disables the implicit-juxtaposition argument loop in
	// parseApplication. It is set only while parsing a lambda
	// parameter's default expression, where a following bare
	// identifier is ambiguous between "argument applied to the
	// default value" and "the next parameter name" — the grammar
	// resolves that ambiguity by never treating it as an argument.
	// Any delimited sub-expression entered from within a default
	// (parens, list/dict elements, a nested lambda's body, let's
	// value/body, if's branches, deploy content) clears it for the
	// duration of that sub-expression via parseExprDelimited.
	noApply bool
}

// New returns a Parser over src, primed with its first token.
func New(src string) (*Parser, *diag.Error) {
	p := &Parser{lex: lexer.New(src)}

	if err := p.next(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Parser) next() *diag.Error {
	p.prev = p.tok

	tok, err := p.lex.Next()
	if err != nil {
		return err
	}

	p.tok = tok

	return nil
}

// peekNext reports the token that follows the current one, without
// consuming it. Lexer is a small value type (no pointers), so a cheap
// copy gives us one extra token of lookahead when needed.
func (p *Parser) peekNext() (token.Token, *diag.Error) {
	tmp := *p.lex

	tok, err := tmp.Next()
	if err != nil {
		return token.Token{}, err
	}

	return tok, nil
}

// parseExprDelimited parses a full expression while clearing noApply
// for its duration, for use at every entry point into a sub-expression
// whose extent is bounded by an explicit delimiter or keyword (so the
// juxtaposition ambiguity that motivates noApply cannot arise there).
func (p *Parser) parseExprDelimited() (ast.Expr, *diag.Error) {
	save := p.noApply
	p.noApply = false

	defer func() { p.noApply = save }()

	return p.parseExpr()
}

func (p *Parser) errf(format string, args ...any) *diag.Error {
	return diag.Newf(diag.ParseError, format, args...).AtSpan(p.tok.Span)
}

func (p *Parser) expect(kind token.Kind) (token.Token, *diag.Error) {
	if p.tok.Kind != kind {
		return token.Token{}, p.errf("expected %s, got %s", kind, p.tok.Kind)
	}

	tok := p.tok

	if err := p.next(); err != nil {
		return token.Token{}, err
	}

	return tok, nil
}

// ParseProgram parses `parse_expr ; EOF`.
func ParseProgram(src string) (*ast.Program, *diag.Error) {
	p, err := New(src)
	if err != nil {
		return nil, err
	}

	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if p.tok.Kind != token.EOF {
		return nil, p.errf("expected end of input, got %s", p.tok.Kind)
	}

	return &ast.Program{Body: expr}, nil
}

// parseExpr is the single entry point used in every expression
// context (§9): pipe/`||`-level precedence, the lowest level.
func (p *Parser) parseExpr() (ast.Expr, *diag.Error) {
	return p.parseOr()
}

// parseOr handles `||` and the pipe operator `->`, sharing the bottom
// precedence level. `a -> b` desugars immediately to application
// `b a`; when b is itself an application `f y`, the result is `f y a`
// (a becomes f's final argument).
func (p *Parser) parseOr() (ast.Expr, *diag.Error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.tok.Kind == token.Or || p.tok.Kind == token.Arrow {
		isPipe := p.tok.Kind == token.Arrow
		opSpan := p.tok.Span

		if err := p.next(); err != nil {
			return nil, err
		}

		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}

		if isPipe {
			left = desugarPipe(left, right, opSpan)
		} else {
			left = &ast.BinaryOp{Op: token.Or, Left: left, Right: right, Sp: left.Span().Union(right.Span())}
		}
	}

	return left, nil
}

// desugarPipe implements `a -> b` ≡ `b a`, and `a -> f y` ≡ `f y a`
// (a appended as f's last argument when b is already an application).
func desugarPipe(left, right ast.Expr, opSpan token.Span) ast.Expr {
	if app, ok := right.(*ast.Apply); ok {
		return &ast.Apply{
			Fn:   app.Fn,
			Args: append(append([]ast.Expr{}, app.Args...), left),
			Sp:   left.Span().Union(right.Span()),
		}
	}

	return &ast.Apply{Fn: right, Args: []ast.Expr{left}, Sp: left.Span().Union(right.Span())}
}

func (p *Parser) parseAnd() (ast.Expr, *diag.Error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}

	for p.tok.Kind == token.And {
		if err := p.next(); err != nil {
			return nil, err
		}

		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}

		left = &ast.BinaryOp{Op: token.And, Left: left, Right: right, Sp: left.Span().Union(right.Span())}
	}

	return left, nil
}

func isComparisonOp(k token.Kind) bool {
	switch k {
	case token.Eq, token.NotEq, token.Lt, token.LtEq, token.Gt, token.GtEq:
		return true
	default:
		return false
	}
}

func (p *Parser) parseComparison() (ast.Expr, *diag.Error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	for isComparisonOp(p.tok.Kind) {
		op := p.tok.Kind
		if err := p.next(); err != nil {
			return nil, err
		}

		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}

		left = &ast.BinaryOp{Op: op, Left: left, Right: right, Sp: left.Span().Union(right.Span())}
	}

	return left, nil
}

func (p *Parser) parseAdditive() (ast.Expr, *diag.Error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}

	for p.tok.Kind == token.Plus || p.tok.Kind == token.Minus {
		op := p.tok.Kind
		if err := p.next(); err != nil {
			return nil, err
		}

		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}

		left = &ast.BinaryOp{Op: op, Left: left, Right: right, Sp: left.Span().Union(right.Span())}
	}

	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, *diag.Error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.tok.Kind == token.Star || p.tok.Kind == token.Slash || p.tok.Kind == token.Percent {
		op := p.tok.Kind
		if err := p.next(); err != nil {
			return nil, err
		}

		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		left = &ast.BinaryOp{Op: op, Left: left, Right: right, Sp: left.Span().Union(right.Span())}
	}

	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, *diag.Error) {
	if p.tok.Kind == token.Minus || p.tok.Kind == token.Not {
		op := p.tok.Kind
		start := p.tok.Span

		if err := p.next(); err != nil {
			return nil, err
		}

		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		return &ast.UnaryOp{Op: op, Operand: operand, Sp: start.Union(operand.Span())}, nil
	}

	return p.parseApplication()
}

// stopsApplication reports whether tok terminates a juxtaposition
// argument list: a token that begins a lower-precedence operator, a
// comma, a closing bracket, a structural keyword, or end of input.
func stopsApplication(k token.Kind) bool {
	switch k {
	case token.Or, token.Arrow, token.And,
		token.Eq, token.NotEq, token.Lt, token.LtEq, token.Gt, token.GtEq,
		token.Plus, token.Minus, token.Star, token.Slash, token.Percent, token.Not,
		token.Comma, token.RParen, token.RBracket, token.RBrace,
		token.Colon, token.DotDot, token.Assign,
		token.In, token.Then, token.Else, token.EOF:
		return true
	default:
		return false
	}
}

func (p *Parser) parseApplication() (ast.Expr, *diag.Error) {
	fn, err := p.parseMember()
	if err != nil {
		return nil, err
	}

	if p.noApply {
		return fn, nil
	}

	var args []ast.Expr

	for !stopsApplication(p.tok.Kind) {
		arg, err := p.parseMember()
		if err != nil {
			return nil, err
		}

		args = append(args, arg)
	}

	if len(args) == 0 {
		return fn, nil
	}

	last := args[len(args)-1]

	return &ast.Apply{Fn: fn, Args: args, Sp: fn.Span().Union(last.Span())}, nil
}

func (p *Parser) parseMember() (ast.Expr, *diag.Error) {
	target, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for p.tok.Kind == token.Dot {
		if err := p.next(); err != nil {
			return nil, err
		}

		name, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}

		target = &ast.Member{Target: target, Name: name.Raw, Sp: target.Span().Union(name.Span)}
	}

	return target, nil
}

func (p *Parser) parsePrimary() (ast.Expr, *diag.Error) {
	switch p.tok.Kind {
	case token.Number:
		return p.parseNumber()
	case token.Boolean:
		tok := p.tok
		if err := p.next(); err != nil {
			return nil, err
		}

		return &ast.BoolLit{Value: tok.Raw == "true", Sp: tok.Span}, nil
	case token.String:
		return p.parseStringLit()
	case token.PathTok:
		return p.parsePathOrDeploy()
	case token.Ident:
		tok := p.tok
		if err := p.next(); err != nil {
			return nil, err
		}

		return &ast.Ident{Name: tok.Raw, Sp: tok.Span}, nil
	case token.LParen:
		if err := p.next(); err != nil {
			return nil, err
		}

		inner, err := p.parseExprDelimited()
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}

		return inner, nil
	case token.LBracket:
		return p.parseList()
	case token.LBrace:
		return p.parseDict()
	case token.Backslash:
		return p.parseLambda()
	case token.Let:
		return p.parseLet()
	case token.If:
		return p.parseIf()
	default:
		return nil, p.errf("unexpected token %s", p.tok.Kind)
	}
}

func (p *Parser) parseNumber() (ast.Expr, *diag.Error) {
	tok := p.tok
	if err := p.next(); err != nil {
		return nil, err
	}

	if f, ferr := strconv.ParseFloat(tok.Raw, 64); ferr == nil {
		if i, ierr := strconv.ParseInt(tok.Raw, 10, 64); ierr == nil {
			return &ast.IntLit{Value: i, Sp: tok.Span}, nil
		}

		return &ast.FloatLit{Value: f, Sp: tok.Span}, nil
	}

	return nil, diag.Newf(diag.ParseError, "invalid number literal %q", tok.Raw).AtSpan(tok.Span)
}

// reparseChunks turns a token's raw Chunk sequence (literal text plus
// unparsed interpolation source slices) into ast.Chunks by recursively
// invoking the full expression grammar on each interpolation.
func reparseChunks(chunks []token.Chunk) ([]ast.Chunk, *diag.Error) {
	out := make([]ast.Chunk, 0, len(chunks))

	for _, c := range chunks {
		if !c.IsExpr() {
			out = append(out, ast.Chunk{Literal: c.Literal})

			continue
		}

		expr, err := ParseProgram(c.Expr)
		if err != nil {
			return nil, err
		}

		out = append(out, ast.Chunk{Expr: expr.Body})
	}

	return out, nil
}

func (p *Parser) parseStringLit() (ast.Expr, *diag.Error) {
	tok := p.tok
	if err := p.next(); err != nil {
		return nil, err
	}

	chunks, err := reparseChunks(tok.Chunks)
	if err != nil {
		return nil, err
	}

	return &ast.StringLit{Chunks: chunks, Sp: tok.Span}, nil
}

// parsePathOrDeploy consumes a PathTok and, if immediately followed
// (after only whitespace, which the lexer already consumed as
// trivia) by `{`, assembles a full Deploy node; otherwise the path
// token stands alone as a PathLit value.
func (p *Parser) parsePathOrDeploy() (ast.Expr, *diag.Error) {
	tok := p.tok
	if err := p.next(); err != nil {
		return nil, err
	}

	chunks, err := reparseChunks(tok.Chunks)
	if err != nil {
		return nil, err
	}

	pathLit := &ast.PathLit{Chunks: chunks, Sp: tok.Span}

	if p.tok.Kind != token.LBrace {
		return pathLit, nil
	}

	if err := p.next(); err != nil {
		return nil, err
	}

	content, err := p.parseExprDelimited()
	if err != nil {
		return nil, err
	}

	end, err := p.expect(token.RBrace)
	if err != nil {
		return nil, err
	}

	return &ast.Deploy{Path: pathLit, Content: content, Sp: tok.Span.Union(end.Span)}, nil
}

// parseList parses `[e1, e2, …]`, `[lo .. hi]`, or `[lo, next .. hi]`.
// Every element is parsed with parseExpr — full expression precedence
// — per the uniform-precedence rule.
func (p *Parser) parseList() (ast.Expr, *diag.Error) {
	start := p.tok.Span

	if err := p.next(); err != nil {
		return nil, err
	}

	if p.tok.Kind == token.RBracket {
		end := p.tok.Span
		if err := p.next(); err != nil {
			return nil, err
		}

		return &ast.ListLit{Sp: start.Union(end)}, nil
	}

	first, err := p.parseExprDelimited()
	if err != nil {
		return nil, err
	}

	if p.tok.Kind == token.DotDot {
		if err := p.next(); err != nil {
			return nil, err
		}

		hi, err := p.parseExprDelimited()
		if err != nil {
			return nil, err
		}

		end, err := p.expect(token.RBracket)
		if err != nil {
			return nil, err
		}

		return &ast.ListLit{Elements: []ast.Expr{first}, IsRange: true, RangeHi: hi, Sp: start.Union(end.Span)}, nil
	}

	elements := []ast.Expr{first}

	if p.tok.Kind == token.Comma {
		if err := p.next(); err != nil {
			return nil, err
		}

		second, err := p.parseExprDelimited()
		if err != nil {
			return nil, err
		}

		if p.tok.Kind == token.DotDot {
			if err := p.next(); err != nil {
				return nil, err
			}

			hi, err := p.parseExprDelimited()
			if err != nil {
				return nil, err
			}

			end, err := p.expect(token.RBracket)
			if err != nil {
				return nil, err
			}

			return &ast.ListLit{
				Elements: []ast.Expr{first, second}, IsRange: true, RangeHi: hi,
				Sp: start.Union(end.Span),
			}, nil
		}

		elements = append(elements, second)

		for p.tok.Kind == token.Comma {
			if err := p.next(); err != nil {
				return nil, err
			}

			if p.tok.Kind == token.RBracket {
				break
			}

			el, err := p.parseExprDelimited()
			if err != nil {
				return nil, err
			}

			elements = append(elements, el)
		}
	}

	end, err := p.expect(token.RBracket)
	if err != nil {
		return nil, err
	}

	return &ast.ListLit{Elements: elements, Sp: start.Union(end.Span)}, nil
}

// parseDict parses `{ key: value, … }`. A bare identifier key is
// taken literally as that identifier's name (not looked up); any
// other key expression is evaluated normally and coerced to a string
// at eval time.
func (p *Parser) parseDict() (ast.Expr, *diag.Error) {
	start := p.tok.Span

	if err := p.next(); err != nil {
		return nil, err
	}

	var entries []ast.DictEntry

	for p.tok.Kind != token.RBrace {
		key, err := p.parseExprDelimited()
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}

		val, err := p.parseExprDelimited()
		if err != nil {
			return nil, err
		}

		entries = append(entries, ast.DictEntry{Key: key, Value: val})

		if p.tok.Kind == token.Comma {
			if err := p.next(); err != nil {
				return nil, err
			}

			continue
		}

		break
	}

	end, err := p.expect(token.RBrace)
	if err != nil {
		return nil, err
	}

	return &ast.DictLit{Entries: entries, Sp: start.Union(end.Span)}, nil
}

// parseLambda parses `\ param1 param2 … body`. The first identifier
// after '\' is always a parameter. Each later identifier is taken as
// another parameter only when the token after it is an identifier or
// '='; otherwise it is the first token of the body. So `\x y x + y`
// has parameters x and y and body `x + y`, and `\y x + y` has the one
// parameter y. A body that starts with two juxtaposed identifiers
// (`\x f x`) reads the first of them as a parameter, so such a body
// needs parentheses. Any parameter may be followed by
// `= default-expr`. The body is parsed at full expression precedence.
//
// A bare identifier is ambiguous once a default has been seen: it
// could be one more defaulted parameter, or the first identifier of
// the body. The grammar resolves this the only way it can without
// more lookahead than one token: it peeks past the identifier, and
// only consumes it as a parameter if '=' follows immediately. This is
// also why "a parameter without a default may not follow one with a
// default" — such a parameter would be syntactically indistinguishable
// from the start of the body, so it is simply never recognized as one.
func (p *Parser) parseLambda() (ast.Expr, *diag.Error) {
	start := p.tok.Span

	if err := p.next(); err != nil {
		return nil, err
	}

	var params []ast.Param

	sawDefault := false

	for p.tok.Kind == token.Ident {
		if len(params) > 0 {
			nxt, err := p.peekNext()
			if err != nil {
				return nil, err
			}

			if nxt.Kind != token.Assign && (sawDefault || nxt.Kind != token.Ident) {
				break
			}
		}

		name := p.tok.Raw
		if err := p.next(); err != nil {
			return nil, err
		}

		param := ast.Param{Name: name}

		if p.tok.Kind == token.Assign {
			if err := p.next(); err != nil {
				return nil, err
			}

			def, err := p.parseLambdaDefault()
			if err != nil {
				return nil, err
			}

			param.Default = def
			sawDefault = true
		}

		params = append(params, param)
	}

	if len(params) == 0 {
		return nil, p.errf("expected at least one parameter after '\\'")
	}

	body, err := p.parseExprDelimited()
	if err != nil {
		return nil, err
	}

	return &ast.Lambda{Params: params, Body: body, Sp: start.Union(body.Span())}, nil
}

// parseLambdaDefault parses a parameter's default expression with
// noApply set: a default may use unary, arithmetic, comparison, and
// boolean operators freely (all introduced by explicit tokens), but
// may not apply itself to a following bare identifier via
// juxtaposition, since that identifier must remain available to be
// either the next defaulted parameter or the start of the body.
func (p *Parser) parseLambdaDefault() (ast.Expr, *diag.Error) {
	save := p.noApply
	p.noApply = true

	defer func() { p.noApply = save }()

	return p.parseOr()
}

// parseLet parses `let name = expr in body`.
func (p *Parser) parseLet() (ast.Expr, *diag.Error) {
	start := p.tok.Span

	if err := p.next(); err != nil {
		return nil, err
	}

	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.Assign); err != nil {
		return nil, err
	}

	value, err := p.parseExprDelimited()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.In); err != nil {
		return nil, err
	}

	body, err := p.parseExprDelimited()
	if err != nil {
		return nil, err
	}

	return &ast.Let{Name: name.Raw, Value: value, Body: body, Sp: start.Union(body.Span())}, nil
}

// parseIf parses `if cond then t else e`, every branch at full
// expression precedence.
func (p *Parser) parseIf() (ast.Expr, *diag.Error) {
	start := p.tok.Span

	if err := p.next(); err != nil {
		return nil, err
	}

	cond, err := p.parseExprDelimited()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.Then); err != nil {
		return nil, err
	}

	then, err := p.parseExprDelimited()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.Else); err != nil {
		return nil, err
	}

	els, err := p.parseExprDelimited()
	if err != nil {
		return nil, err
	}

	return &ast.If{Cond: cond, Then: then, Else: els, Sp: start.Union(els.Span())}, nil
}

// Package ast defines Avon's expression tree. Every node is a small
// struct implementing the Expr interface; the tree is produced by
// lang/parser and walked by lang/eval.
package ast

import (
	"fmt"
	"strings"

	"github.com/ardnew/avon/lang/token"
)

// Expr is implemented by every AST node. Inspect renders a debug
// s-expression form, used by the `--debug` dump and tests.
type Expr interface {
	Span() token.Span
	Inspect() string
}

// Chunk is one piece of a template: either literal text or a
// sub-expression produced by recursively parsing an interpolation's
// source slice.
type Chunk struct {
	Literal string
	Expr    Expr // nil for literal chunks
}

// Program is the root node: a single top-level expression.
type Program struct {
	Body Expr
}

func (p *Program) Span() token.Span { return p.Body.Span() }
func (p *Program) Inspect() string  { return p.Body.Inspect() }

// IntLit is an integer literal.
type IntLit struct {
	Value int64
	Sp    token.Span
}

func (n *IntLit) Span() token.Span { return n.Sp }
func (n *IntLit) Inspect() string  { return fmt.Sprintf("%d", n.Value) }

// FloatLit is a floating-point literal.
type FloatLit struct {
	Value float64
	Sp    token.Span
}

func (n *FloatLit) Span() token.Span { return n.Sp }
func (n *FloatLit) Inspect() string  { return fmt.Sprintf("%g", n.Value) }

// BoolLit is a boolean literal.
type BoolLit struct {
	Value bool
	Sp    token.Span
}

func (n *BoolLit) Span() token.Span { return n.Sp }
func (n *BoolLit) Inspect() string  { return fmt.Sprintf("%t", n.Value) }

// StringLit is a (possibly templated) string literal.
type StringLit struct {
	Chunks []Chunk
	Sp     token.Span
}

func (n *StringLit) Span() token.Span { return n.Sp }

func (n *StringLit) Inspect() string {
	var b strings.Builder

	b.WriteString(`"`)

	for _, c := range n.Chunks {
		if c.Expr != nil {
			fmt.Fprintf(&b, "{%s}", c.Expr.Inspect())
		} else {
			b.WriteString(c.Literal)
		}
	}

	b.WriteString(`"`)

	return b.String()
}

// PathLit is a (possibly templated) `@path` literal with no attached
// content block — a bare deploy-path value, distinct from a full
// Deploy node.
type PathLit struct {
	Chunks []Chunk
	Sp     token.Span
}

func (n *PathLit) Span() token.Span { return n.Sp }

func (n *PathLit) Inspect() string {
	var b strings.Builder

	b.WriteString("@")

	for _, c := range n.Chunks {
		if c.Expr != nil {
			fmt.Fprintf(&b, "{%s}", c.Expr.Inspect())
		} else {
			b.WriteString(c.Literal)
		}
	}

	return b.String()
}

// Ident is an identifier reference.
type Ident struct {
	Name string
	Sp   token.Span
}

func (n *Ident) Span() token.Span { return n.Sp }
func (n *Ident) Inspect() string  { return n.Name }

// ListLit is a literal list, or a range form when IsRange is set.
// For a range, Elements holds [lo] or [lo, next] and RangeHi holds hi.
type ListLit struct {
	Elements []Expr
	IsRange  bool
	RangeHi  Expr
	Sp       token.Span
}

func (n *ListLit) Span() token.Span { return n.Sp }

func (n *ListLit) Inspect() string {
	var parts []string
	for _, e := range n.Elements {
		parts = append(parts, e.Inspect())
	}

	if n.IsRange {
		return fmt.Sprintf("[%s .. %s]", strings.Join(parts, ", "), n.RangeHi.Inspect())
	}

	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}

// DictEntry is one (key, value) pair of a dict literal.
type DictEntry struct {
	Key   Expr
	Value Expr
}

// DictLit is a literal dict, insertion-ordered.
type DictLit struct {
	Entries []DictEntry
	Sp      token.Span
}

func (n *DictLit) Span() token.Span { return n.Sp }

func (n *DictLit) Inspect() string {
	var parts []string
	for _, e := range n.Entries {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Key.Inspect(), e.Value.Inspect()))
	}

	return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
}

// Member is member access `expr.ident`.
type Member struct {
	Target Expr
	Name   string
	Sp     token.Span
}

func (n *Member) Span() token.Span { return n.Sp }
func (n *Member) Inspect() string  { return fmt.Sprintf("%s.%s", n.Target.Inspect(), n.Name) }

// Param is a lambda parameter, optionally carrying a default
// expression.
type Param struct {
	Name    string
	Default Expr // nil if required
}

// Lambda is `\ param1 param2 … body`.
type Lambda struct {
	Params []Param
	Body   Expr
	Sp     token.Span
}

func (n *Lambda) Span() token.Span { return n.Sp }

func (n *Lambda) Inspect() string {
	var parts []string
	for _, p := range n.Params {
		if p.Default != nil {
			parts = append(parts, fmt.Sprintf("%s=%s", p.Name, p.Default.Inspect()))
		} else {
			parts = append(parts, p.Name)
		}
	}

	return fmt.Sprintf(`(\%s %s)`, strings.Join(parts, " "), n.Body.Inspect())
}

// Apply is application `f x`, left-associative, n-ary by construction
// (Args holds every argument gathered by the parser's juxtaposition
// loop).
type Apply struct {
	Fn   Expr
	Args []Expr
	Sp   token.Span
}

func (n *Apply) Span() token.Span { return n.Sp }

func (n *Apply) Inspect() string {
	var parts []string
	for _, a := range n.Args {
		parts = append(parts, a.Inspect())
	}

	return fmt.Sprintf("(%s %s)", n.Fn.Inspect(), strings.Join(parts, " "))
}

// Let is `let name = expr in body`.
type Let struct {
	Name  string
	Value Expr
	Body  Expr
	Sp    token.Span
}

func (n *Let) Span() token.Span { return n.Sp }

func (n *Let) Inspect() string {
	return fmt.Sprintf("(let %s = %s in %s)", n.Name, n.Value.Inspect(), n.Body.Inspect())
}

// If is `if cond then t else e`.
type If struct {
	Cond Expr
	Then Expr
	Else Expr
	Sp   token.Span
}

func (n *If) Span() token.Span { return n.Sp }

func (n *If) Inspect() string {
	return fmt.Sprintf("(if %s then %s else %s)", n.Cond.Inspect(), n.Then.Inspect(), n.Else.Inspect())
}

// UnaryOp is a prefix operator: `-` or `!`.
type UnaryOp struct {
	Op      token.Kind
	Operand Expr
	Sp      token.Span
}

func (n *UnaryOp) Span() token.Span { return n.Sp }
func (n *UnaryOp) Inspect() string  { return fmt.Sprintf("(%s%s)", n.Op, n.Operand.Inspect()) }

// BinaryOp is an infix operator: arithmetic, comparison, or boolean.
type BinaryOp struct {
	Op    token.Kind
	Left  Expr
	Right Expr
	Sp    token.Span
}

func (n *BinaryOp) Span() token.Span { return n.Sp }

func (n *BinaryOp) Inspect() string {
	return fmt.Sprintf("(%s %s %s)", n.Left.Inspect(), n.Op, n.Right.Inspect())
}

// Deploy is `@ path-template { content-template }`.
type Deploy struct {
	Path    *PathLit
	Content Expr
	Sp      token.Span
}

func (n *Deploy) Span() token.Span { return n.Sp }

func (n *Deploy) Inspect() string {
	return fmt.Sprintf("(deploy %s {%s})", n.Path.Inspect(), n.Content.Inspect())
}

// Package diag provides the unified error type used across the lexer,
// parser, evaluator, and deploy collector, along with the caret-style
// source diagnostics renderer used to report it to a terminal.
package diag

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ardnew/avon/lang/token"
)

// Kind classifies a diagnostic per the error taxonomy in the language
// specification.
type Kind int

const (
	Unknown Kind = iota
	LexError
	ParseError
	UnknownSymbol
	TypeMismatch
	Arity
	DivideByZero
	IndexOutOfRange
	KeyMissing
	RecursionDepthExceeded
	DeployExists
	DeployEscapes
	DeployIO
)

var kindNames = map[Kind]string{
	Unknown:                "Error",
	LexError:               "LexError",
	ParseError:             "ParseError",
	UnknownSymbol:          "UnknownSymbol",
	TypeMismatch:           "TypeMismatch",
	Arity:                  "Arity",
	DivideByZero:           "DivideByZero",
	IndexOutOfRange:        "IndexOutOfRange",
	KeyMissing:             "KeyMissing",
	RecursionDepthExceeded: "RecursionDepthExceeded",
	DeployExists:           "DeployError{Exists}",
	DeployEscapes:          "DeployError{Escapes}",
	DeployIO:               "DeployError{Io}",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}

	return "Error"
}

// ExitCode maps a Kind to the process exit code mandated by the CLI
// surface: 1 for eval/parse/lex errors, 2 for deploy I/O errors.
func (k Kind) ExitCode() int {
	switch k {
	case DeployExists, DeployEscapes, DeployIO:
		return 2
	default:
		return 1
	}
}

// Error is the diagnostic type threaded through every stage of the
// pipeline. It wraps an underlying cause (often nil, for leaf errors),
// carries zero or more source spans, and accumulates structured
// attributes with an immutable builder so call sites can annotate an
// error as it propagates without losing the original message.
type Error struct {
	kind  Kind
	msg   string
	err   error
	spans []token.Span
	attrs []slog.Attr
	hint  string
}

// New creates a leaf diagnostic of the given kind with a message.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Newf creates a leaf diagnostic with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(e.kind.String())
	if e.msg != "" {
		b.WriteString(": ")
		b.WriteString(e.msg)
	}

	if e.hint != "" {
		fmt.Fprintf(&b, " (hint: %s)", e.hint)
	}

	if e.err != nil {
		fmt.Fprintf(&b, ": %s", e.err)
	}

	return b.String()
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.err }

// LogValue implements slog.LogValuer so an *Error can be passed
// directly as a log attribute and renders its kind and attrs.
func (e *Error) LogValue() slog.Value {
	attrs := append([]slog.Attr{slog.String("kind", e.kind.String())}, e.attrs...)

	return slog.GroupValue(attrs...)
}

// Kind returns the diagnostic's classification.
func (e *Error) Kind() Kind { return e.kind }

// Spans returns the source spans attached to this diagnostic, in the
// order they were added (innermost/most-specific first).
func (e *Error) Spans() []token.Span { return e.spans }

// With returns a copy of e with the given attributes appended. The
// receiver is left unmodified.
func (e *Error) With(attrs ...slog.Attr) *Error {
	cp := *e
	cp.attrs = append(append([]slog.Attr{}, e.attrs...), attrs...)

	return &cp
}

// AtSpan returns a copy of e with span appended to its span list.
func (e *Error) AtSpan(span token.Span) *Error {
	cp := *e
	cp.spans = append(append([]token.Span{}, e.spans...), span)

	return &cp
}

// WithHint returns a copy of e carrying a "did you mean" style hint
// string, rendered alongside the message.
func (e *Error) WithHint(hint string) *Error {
	cp := *e
	cp.hint = hint

	return &cp
}

// Wrap returns a copy of e whose cause is set to err.
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.err = err

	return &cp
}

// Is supports errors.Is comparison by Kind: two *Error values match if
// their Kind fields are equal.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.kind == other.kind
	}

	return false
}

// Format renders a file:line:col diagnostic with a caret pointing at
// the primary (first) span and the offending source line excerpted
// around it, in the style of a compiler error message.
func (e *Error) Format(filename, source string) string {
	var b strings.Builder

	if len(e.spans) == 0 {
		b.WriteString(e.Error())

		return b.String()
	}

	span := e.spans[0]

	fmt.Fprintf(&b, "%s:%s: %s\n", filename, span.Start, e.Error())

	lines := strings.Split(source, "\n")
	lineIdx := span.Start.Line - 1

	if lineIdx >= 0 && lineIdx < len(lines) {
		line := lines[lineIdx]
		b.WriteString(line)
		b.WriteByte('\n')

		col := span.Start.Column
		if col < 1 {
			col = 1
		}

		width := span.End.Column - span.Start.Column
		if span.End.Line != span.Start.Line || width < 1 {
			width = 1
		}

		b.WriteString(strings.Repeat(" ", col-1))
		b.WriteString(strings.Repeat("^", width))
	}

	return b.String()
}

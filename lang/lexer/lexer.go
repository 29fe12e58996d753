// Package lexer implements Avon's streaming, single-pass tokenizer,
// including the balanced-brace scanning that turns `"…"` template
// strings and `@…` deploy paths into structured token.Chunk sequences.
package lexer

import (
	"strings"
	"unicode/utf8"

	"github.com/ardnew/avon/lang/diag"
	"github.com/ardnew/avon/lang/token"
)

// Lexer scans a single in-memory source buffer. It is not safe for
// concurrent use; each Avon evaluation owns one Lexer (directly, or
// indirectly through Parser).
type Lexer struct {
	src       string
	offset    int // byte offset of the next unread rune
	line, col int
}

// New returns a Lexer positioned at the start of src. A UTF-8 byte
// order mark, if present, is discarded.
func New(src string) *Lexer {
	src = strings.TrimPrefix(src, "\uFEFF")
	src = strings.ReplaceAll(src, "\r\n", "\n")

	return &Lexer{src: src, line: 1, col: 1}
}

func (l *Lexer) pos() token.Pos {
	return token.Pos{Offset: l.offset, Line: l.line, Column: l.col}
}

// peekRune returns the rune at the current offset without consuming
// it, or 0, false at end of input.
func (l *Lexer) peekRune() (rune, bool) {
	if l.offset >= len(l.src) {
		return 0, false
	}

	r, _ := utf8.DecodeRuneInString(l.src[l.offset:])

	return r, true
}

// peekAt returns the rune n positions ahead of the current offset
// without consuming anything.
func (l *Lexer) peekAt(n int) (rune, bool) {
	off := l.offset
	var r rune

	for i := 0; i <= n; i++ {
		if off >= len(l.src) {
			return 0, false
		}

		var size int
		r, size = utf8.DecodeRuneInString(l.src[off:])
		off += size
	}

	return r, true
}

// advance consumes and returns the next rune, updating line/column
// bookkeeping.
func (l *Lexer) advance() (rune, bool) {
	if l.offset >= len(l.src) {
		return 0, false
	}

	r, size := utf8.DecodeRuneInString(l.src[l.offset:])
	l.offset += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}

	return r, true
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentCont(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\v' || r == '\f'
}

// skipTrivia consumes whitespace and `#`-to-newline comments.
func (l *Lexer) skipTrivia() {
	for {
		r, ok := l.peekRune()
		if !ok {
			return
		}

		if isSpace(r) {
			l.advance()

			continue
		}

		if r == '#' {
			for {
				r, ok := l.peekRune()
				if !ok || r == '\n' {
					break
				}

				l.advance()
			}

			continue
		}

		return
	}
}

// Next scans and returns the next token.
func (l *Lexer) Next() (token.Token, *diag.Error) {
	l.skipTrivia()

	start := l.pos()

	r, ok := l.peekRune()
	if !ok {
		return token.Token{Kind: token.EOF, Span: token.Span{Start: start, End: start}}, nil
	}

	switch {
	case isIdentStart(r):
		return l.lexIdent(start), nil
	case isDigit(r):
		return l.lexNumber(start)
	case r == '"':
		return l.lexString(start)
	case r == '@':
		return l.lexPath(start)
	}

	l.advance()

	two := func(second rune, kind2 token.Kind, kind1 token.Kind, raw1 string) token.Token {
		if next, ok := l.peekRune(); ok && next == second {
			l.advance()

			return token.Token{Kind: kind2, Raw: raw1 + string(second), Span: token.Span{Start: start, End: l.pos()}}
		}

		return token.Token{Kind: kind1, Raw: raw1, Span: token.Span{Start: start, End: l.pos()}}
	}

	switch r {
	case '(':
		return token.Token{Kind: token.LParen, Raw: "(", Span: token.Span{Start: start, End: l.pos()}}, nil
	case ')':
		return token.Token{Kind: token.RParen, Raw: ")", Span: token.Span{Start: start, End: l.pos()}}, nil
	case '{':
		return token.Token{Kind: token.LBrace, Raw: "{", Span: token.Span{Start: start, End: l.pos()}}, nil
	case '}':
		return token.Token{Kind: token.RBrace, Raw: "}", Span: token.Span{Start: start, End: l.pos()}}, nil
	case '[':
		return token.Token{Kind: token.LBracket, Raw: "[", Span: token.Span{Start: start, End: l.pos()}}, nil
	case ']':
		return token.Token{Kind: token.RBracket, Raw: "]", Span: token.Span{Start: start, End: l.pos()}}, nil
	case ',':
		return token.Token{Kind: token.Comma, Raw: ",", Span: token.Span{Start: start, End: l.pos()}}, nil
	case ':':
		return token.Token{Kind: token.Colon, Raw: ":", Span: token.Span{Start: start, End: l.pos()}}, nil
	case '\\':
		return token.Token{Kind: token.Backslash, Raw: `\`, Span: token.Span{Start: start, End: l.pos()}}, nil
	case '.':
		return two('.', token.DotDot, token.Dot, "."), nil
	case '=':
		return two('=', token.Eq, token.Assign, "="), nil
	case '+':
		return token.Token{Kind: token.Plus, Raw: "+", Span: token.Span{Start: start, End: l.pos()}}, nil
	case '*':
		return token.Token{Kind: token.Star, Raw: "*", Span: token.Span{Start: start, End: l.pos()}}, nil
	case '/':
		return token.Token{Kind: token.Slash, Raw: "/", Span: token.Span{Start: start, End: l.pos()}}, nil
	case '%':
		return token.Token{Kind: token.Percent, Raw: "%", Span: token.Span{Start: start, End: l.pos()}}, nil
	case '!':
		return two('=', token.NotEq, token.Not, "!"), nil
	case '<':
		return two('=', token.LtEq, token.Lt, "<"), nil
	case '>':
		return two('=', token.GtEq, token.Gt, ">"), nil
	case '&':
		if next, ok := l.peekRune(); ok && next == '&' {
			l.advance()

			return token.Token{Kind: token.And, Raw: "&&", Span: token.Span{Start: start, End: l.pos()}}, nil
		}

		return token.Token{}, diag.New(diag.LexError, "stray character '&'").AtSpan(token.Span{Start: start, End: l.pos()})
	case '|':
		if next, ok := l.peekRune(); ok && next == '|' {
			l.advance()

			return token.Token{Kind: token.Or, Raw: "||", Span: token.Span{Start: start, End: l.pos()}}, nil
		}

		return token.Token{}, diag.New(diag.LexError, "stray character '|'").AtSpan(token.Span{Start: start, End: l.pos()})
	case '-':
		if next, ok := l.peekRune(); ok && next == '>' {
			l.advance()

			return token.Token{Kind: token.Arrow, Raw: "->", Span: token.Span{Start: start, End: l.pos()}}, nil
		}

		return token.Token{Kind: token.Minus, Raw: "-", Span: token.Span{Start: start, End: l.pos()}}, nil
	}

	return token.Token{}, diag.Newf(diag.LexError, "stray character %q", r).AtSpan(token.Span{Start: start, End: l.pos()})
}

func (l *Lexer) lexIdent(start token.Pos) token.Token {
	var b strings.Builder

	for {
		r, ok := l.peekRune()
		if !ok || !isIdentCont(r) {
			break
		}

		b.WriteRune(r)
		l.advance()
	}

	raw := b.String()
	span := token.Span{Start: start, End: l.pos()}

	if kind, ok := token.Keywords[raw]; ok {
		return token.Token{Kind: kind, Raw: raw, Span: span}
	}

	return token.Token{Kind: token.Ident, Raw: raw, Span: span}
}

func (l *Lexer) lexNumber(start token.Pos) (token.Token, *diag.Error) {
	var b strings.Builder

	for {
		r, ok := l.peekRune()
		if !ok || !isDigit(r) {
			break
		}

		b.WriteRune(r)
		l.advance()
	}

	if r, ok := l.peekRune(); ok && r == '.' {
		if next, ok := l.peekAt(1); ok && isDigit(next) {
			b.WriteRune(r)
			l.advance()

			for {
				r, ok := l.peekRune()
				if !ok || !isDigit(r) {
					break
				}

				b.WriteRune(r)
				l.advance()
			}
		}
	}

	return token.Token{Kind: token.Number, Raw: b.String(), Span: token.Span{Start: start, End: l.pos()}}, nil
}

// lexString scans a `"…"` template string, decoding escapes in literal
// chunks and collecting balanced-brace interpolation chunks.
func (l *Lexer) lexString(start token.Pos) (token.Token, *diag.Error) {
	l.advance() // opening quote

	chunks, err := l.scanTemplateBody('"', true)
	if err != nil {
		return token.Token{}, err
	}

	if _, ok := l.peekRune(); !ok {
		return token.Token{}, diag.New(diag.LexError, "unterminated string").
			AtSpan(token.Span{Start: start, End: l.pos()})
	}

	l.advance() // closing quote

	end := l.pos()

	return token.Token{
		Kind: token.String, Raw: l.src[start.Offset:end.Offset],
		Span: token.Span{Start: start, End: end}, Chunks: chunks,
	}, nil
}

// lexPath scans a `@path{…}` deploy path token: literal text (with no
// escape decoding) interleaved with interpolations, terminated by the
// first whitespace (or the end of input) that is not part of an
// interpolation. Punctuation such as `,` or `)` outside an
// interpolation is part of the path.
func (l *Lexer) lexPath(start token.Pos) (token.Token, *diag.Error) {
	l.advance() // '@'

	chunks, err := l.scanTemplateBody(0, false)
	if err != nil {
		return token.Token{}, err
	}

	end := l.pos()

	return token.Token{
		Kind: token.PathTok, Raw: l.src[start.Offset:end.Offset],
		Span: token.Span{Start: start, End: end}, Chunks: chunks,
	}, nil
}

// scanTemplateBody scans literal/interpolation chunks until:
//   - terminator != 0 and an unescaped rune == terminator is seen (string mode), or
//   - terminator == 0 and whitespace/EOF is reached (path mode).
//
// The terminator rune itself is left unconsumed (lexString/lexPath
// consume the closing quote explicitly; path mode has no closing
// delimiter to consume).
func (l *Lexer) scanTemplateBody(terminator rune, decodeEscapes bool) ([]token.Chunk, *diag.Error) {
	var chunks []token.Chunk

	var lit strings.Builder

	litStart := l.pos()

	flush := func() {
		if lit.Len() == 0 {
			return
		}

		chunks = append(chunks, token.Chunk{Literal: lit.String(), Span: token.Span{Start: litStart, End: l.pos()}})
		lit.Reset()
	}

	for {
		r, ok := l.peekRune()
		if !ok {
			flush()

			return chunks, nil
		}

		if terminator != 0 && r == terminator {
			flush()

			return chunks, nil
		}

		if terminator == 0 && isSpace(r) {
			flush()

			return chunks, nil
		}

		if decodeEscapes && r == '\\' {
			esc, ok := l.peekAt(1)
			if !ok {
				return nil, diag.New(diag.LexError, "unterminated string: trailing backslash").
					AtSpan(token.Span{Start: l.pos(), End: l.pos()})
			}

			switch esc {
			case 'n':
				lit.WriteByte('\n')
			case 'r':
				lit.WriteByte('\r')
			case 't':
				lit.WriteByte('\t')
			case '\\':
				lit.WriteByte('\\')
			case '"':
				lit.WriteByte('"')
			case '{':
				lit.WriteByte('{')
			case '}':
				lit.WriteByte('}')
			default:
				escStart := l.pos()
				l.advance()
				l.advance()

				return nil, diag.Newf(diag.LexError, "invalid escape sequence '\\%c'", esc).
					AtSpan(token.Span{Start: escStart, End: l.pos()})
			}

			l.advance()
			l.advance()

			continue
		}

		if r == '{' {
			flush()

			exprStart := l.pos()
			l.advance() // consume '{'

			exprSrcStart := l.offset

			depth := 1

			for depth > 0 {
				r, ok := l.peekRune()
				if !ok {
					return nil, diag.New(diag.LexError, "unterminated interpolation").
						AtSpan(token.Span{Start: exprStart, End: l.pos()})
				}

				switch r {
				case '{':
					depth++
					l.advance()
				case '}':
					depth--
					l.advance()
				case '"':
					if err := l.skipNestedString(); err != nil {
						return nil, err
					}
				default:
					l.advance()
				}
			}

			exprSrcEnd := l.offset - 1 // exclude the closing '}' just consumed

			chunks = append(chunks, token.Chunk{
				Expr: l.src[exprSrcStart:exprSrcEnd],
				Span: token.Span{Start: exprStart, End: l.pos()},
			})

			litStart = l.pos()

			continue
		}

		lit.WriteRune(r)
		l.advance()
	}
}

// skipNestedString consumes a `"…"` literal appearing inside a
// template interpolation, per the Open Question resolution in §9: the
// inner quote unambiguously opens its own nested string and its
// escapes are decoded at that level, so braces inside it never
// perturb the enclosing interpolation's balance count.
func (l *Lexer) skipNestedString() *diag.Error {
	start := l.pos()
	l.advance() // opening '"'

	for {
		r, ok := l.peekRune()
		if !ok {
			return diag.New(diag.LexError, "unterminated string").
				AtSpan(token.Span{Start: start, End: l.pos()})
		}

		if r == '"' {
			l.advance()

			return nil
		}

		if r == '\\' {
			if _, ok := l.peekAt(1); ok {
				l.advance()
				l.advance()

				continue
			}
		}

		l.advance()
	}
}

// All scans the entire source and returns the full token slice
// including a trailing EOF token. Useful for --debug token dumps and
// tests.
func All(src string) ([]token.Token, *diag.Error) {
	l := New(src)

	var toks []token.Token

	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}

		toks = append(toks, tok)

		if tok.Kind == token.EOF {
			return toks, nil
		}
	}
}

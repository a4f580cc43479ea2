package syntax

import (
	"bufio"
	"io"

	"github.com/Happy-Ferret/kvasir/report"
)

// Sexpr is an element of the untyped parse tree: either an atom holding a
// single token or a list of child expressions.
type Sexpr interface {
	// Span returns the text span over which the expression occurs.
	Span() *report.TextSpan
}

// Atom is a leaf s-expression: a single non-bracket token.
type Atom struct {
	Tok *Token
}

func (a *Atom) Span() *report.TextSpan {
	return a.Tok.Span
}

// List is a parenthesized or bracketed sequence of s-expressions.  Parens and
// brackets are interchangeable at this level but must balance against their
// own kind.
type List struct {
	Items []Sexpr

	// Bracketed indicates the list was delimited with `[` `]`.
	Bracketed bool

	span *report.TextSpan
}

func (l *List) Span() *report.TextSpan {
	return l.span
}

// NewList creates a new list over the given span.  It is exported for use by
// the expander when it synthesizes rewritten forms.
func NewList(items []Sexpr, bracketed bool, span *report.TextSpan) *List {
	return &List{Items: items, Bracketed: bracketed, span: span}
}

// -----------------------------------------------------------------------------

// Reader converts the token stream of a source file into a sequence of
// s-expressions.
type Reader struct {
	lexer *Lexer

	// tok is the token currently being considered.
	tok *Token
}

// NewReader creates a new reader over the given source file.
func NewReader(file *bufio.Reader) *Reader {
	return &Reader{lexer: NewLexer(file)}
}

// ReadAll reads every top-level s-expression from the input.
func (r *Reader) ReadAll() ([]Sexpr, error) {
	if err := r.next(); err != nil {
		return nil, err
	}

	var exprs []Sexpr
	for r.tok.Kind != TOK_EOF {
		expr, err := r.readSexpr()
		if err != nil {
			return nil, err
		}

		exprs = append(exprs, expr)
	}

	return exprs, nil
}

// ReadSource is a convenience entry point which reads all the top-level
// s-expressions from a reader in one call.
func ReadSource(src io.Reader) ([]Sexpr, error) {
	return NewReader(bufio.NewReader(src)).ReadAll()
}

// -----------------------------------------------------------------------------

// readSexpr reads a single s-expression beginning at the current token.
func (r *Reader) readSexpr() (Sexpr, error) {
	switch r.tok.Kind {
	case TOK_LPAREN:
		return r.readList(TOK_RPAREN, false)
	case TOK_LBRACKET:
		return r.readList(TOK_RBRACKET, true)
	case TOK_RPAREN, TOK_RBRACKET:
		return nil, report.Raise(report.KindRead, r.tok.Span, "unexpected closing delimiter")
	default:
		atom := &Atom{Tok: r.tok}
		if err := r.next(); err != nil {
			return nil, err
		}

		return atom, nil
	}
}

// readList reads a delimited list.  The opening delimiter is the current
// token; closer is the token kind which must close it.
func (r *Reader) readList(closer int, bracketed bool) (Sexpr, error) {
	openSpan := r.tok.Span
	if err := r.next(); err != nil {
		return nil, err
	}

	var items []Sexpr
	for {
		switch r.tok.Kind {
		case closer:
			span := report.NewSpanOver(openSpan, r.tok.Span)
			if err := r.next(); err != nil {
				return nil, err
			}

			return NewList(items, bracketed, span), nil
		case TOK_RPAREN, TOK_RBRACKET:
			// The wrong kind of closing delimiter for this list.
			return nil, report.Raise(report.KindRead, r.tok.Span, "mismatched closing delimiter")
		case TOK_EOF:
			return nil, report.Raise(report.KindRead, openSpan, "unclosed delimiter at end of file")
		default:
			item, err := r.readSexpr()
			if err != nil {
				return nil, err
			}

			items = append(items, item)
		}
	}
}

// next advances the reader to the next token.
func (r *Reader) next() error {
	tok, err := r.lexer.NextToken()
	if err != nil {
		return err
	}

	r.tok = tok
	return nil
}

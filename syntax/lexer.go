package syntax

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/Happy-Ferret/kvasir/report"
)

// Lexer is responsible for tokenizing a source file.  Whitespace separates
// tokens, `;` begins a line comment, and brackets are tokenized separately
// from parentheses so the reader can check that they balance against their own
// kind.
type Lexer struct {
	file    *bufio.Reader
	tokBuff *strings.Builder

	line, col           int
	startLine, startCol int
}

// NewLexer creates a new lexer over the given source file.
func NewLexer(file *bufio.Reader) *Lexer {
	return &Lexer{
		file:    file,
		tokBuff: &strings.Builder{},
	}
}

// NextToken retrieves the next token from the input file.  If the file has
// ended, this will be an EOF token.
func (l *Lexer) NextToken() (*Token, error) {
	for {
		c, err := l.peek()
		if err != nil {
			return nil, err
		} else if c == -1 {
			break
		}

		switch c {
		case '\n', '\t', ' ', '\r', '\v', '\f':
			l.skip()
		case ';':
			// `;` through `;;;;` all begin the same line comment.
			if err := l.skipLineComment(); err != nil {
				return nil, err
			}
		case '(':
			return l.lexPunct(TOK_LPAREN)
		case ')':
			return l.lexPunct(TOK_RPAREN)
		case '[':
			return l.lexPunct(TOK_LBRACKET)
		case ']':
			return l.lexPunct(TOK_RBRACKET)
		case '"':
			return l.lexStringLit()
		default:
			if isDecimalDigit(c) {
				return l.lexNumericLit(false)
			}

			return l.lexSymbolOrKeyword()
		}
	}

	return &Token{Kind: TOK_EOF, Span: l.getSpan()}, nil
}

// -----------------------------------------------------------------------------

// lexPunct lexes a single-character punctuation token of the given kind.
func (l *Lexer) lexPunct(kind int) (*Token, error) {
	l.mark()

	if err := l.eat(); err != nil {
		return nil, err
	}

	return l.makeToken(kind), nil
}

// skipLineComment skips a `;` comment through the end of the line.
func (l *Lexer) skipLineComment() error {
	for {
		c, err := l.peek()
		if err != nil {
			return err
		}

		if c == -1 || c == '\n' {
			return nil
		}

		l.skip()
	}
}

// lexStringLit lexes a string literal.  Only the `\"`, `\\`, `\n` and `\t`
// escapes are recognized.
func (l *Lexer) lexStringLit() (*Token, error) {
	l.mark()

	// Skip the leading quote: it is not part of the token value.
	l.skip()

	for {
		c, err := l.peek()
		if err != nil {
			return nil, err
		}

		switch c {
		case -1, '\n':
			return nil, report.Raise(report.KindLex, l.getSpan(), "unterminated string literal")
		case '"':
			l.skip()
			return l.makeToken(TOK_STRINGLIT), nil
		case '\\':
			l.skip()

			esc, err := l.peek()
			if err != nil {
				return nil, err
			}

			switch esc {
			case '"':
				l.tokBuff.WriteRune('"')
			case '\\':
				l.tokBuff.WriteRune('\\')
			case 'n':
				l.tokBuff.WriteRune('\n')
			case 't':
				l.tokBuff.WriteRune('\t')
			default:
				return nil, report.Raise(report.KindLex, l.getSpan(), "unknown escape sequence: `\\%c`", esc)
			}

			l.skip()
		default:
			if err := l.eat(); err != nil {
				return nil, err
			}
		}
	}
}

// lexNumericLit lexes a numeric literal: decimal digits with an optional
// leading sign, a trailing `.` followed by digits making it a float, and a
// trailing `u` making it unsigned.  The sign is assumed to have already been
// consumed if `signed` is true.
func (l *Lexer) lexNumericLit(signed bool) (*Token, error) {
	if !signed {
		l.mark()
	}

	isFloat := false
	for {
		c, err := l.peek()
		if err != nil {
			return nil, err
		}

		if isDecimalDigit(c) {
			if err := l.eat(); err != nil {
				return nil, err
			}
		} else if c == '.' {
			if isFloat {
				return nil, report.Raise(report.KindLex, l.getSpan(), "multiple decimal points in numeric literal")
			}

			isFloat = true
			if err := l.eat(); err != nil {
				return nil, err
			}

			// A decimal point must be followed by at least one digit.
			c, err = l.peek()
			if err != nil {
				return nil, err
			}

			if !isDecimalDigit(c) {
				return nil, report.Raise(report.KindLex, l.getSpan(), "expected digits after decimal point")
			}
		} else if c == 'u' {
			if isFloat {
				return nil, report.Raise(report.KindLex, l.getSpan(), "unsigned suffix on float literal")
			}

			l.skip()

			if c, err = l.peek(); err != nil {
				return nil, err
			} else if isSymbolChar(c) {
				return nil, report.Raise(report.KindLex, l.getSpan(), "malformed numeric literal")
			}

			return l.makeToken(TOK_UINTLIT), nil
		} else if isSymbolChar(c) {
			return nil, report.Raise(report.KindLex, l.getSpan(), "malformed numeric literal")
		} else {
			break
		}
	}

	if isFloat {
		return l.makeToken(TOK_FLOATLIT), nil
	}

	return l.makeToken(TOK_INTLIT), nil
}

// keywordAtoms maps the reserved atoms to their token kinds.
var keywordAtoms = map[string]int{
	"true":  TOK_BOOLLIT,
	"false": TOK_BOOLLIT,
	"nil":   TOK_NIL,
}

// lexSymbolOrKeyword lexes a symbol, keyword atom, or signed numeric literal.
func (l *Lexer) lexSymbolOrKeyword() (*Token, error) {
	l.mark()

	first, err := l.peek()
	if err != nil {
		return nil, err
	}

	if !isSymbolChar(first) {
		l.skip()
		return nil, report.Raise(report.KindLex, l.getSpan(), "unknown rune: `%c`", first)
	}

	if err := l.eat(); err != nil {
		return nil, err
	}

	// A leading sign followed by a digit begins a signed numeric literal; a
	// bare sign is an ordinary symbol.
	if first == '-' || first == '+' {
		if c, err := l.peek(); err != nil {
			return nil, err
		} else if isDecimalDigit(c) {
			return l.lexNumericLit(true)
		}
	}

	for {
		c, err := l.peek()
		if err != nil {
			return nil, err
		}

		if !isSymbolChar(c) {
			break
		}

		if err := l.eat(); err != nil {
			return nil, err
		}
	}

	if kind, ok := keywordAtoms[l.tokBuff.String()]; ok {
		return l.makeToken(kind), nil
	}

	return l.makeToken(TOK_SYMBOL), nil
}

// -----------------------------------------------------------------------------

// makeToken produces a token of the given kind from the lexer's token buffer.
func (l *Lexer) makeToken(kind int) *Token {
	tok := &Token{Kind: kind, Value: l.tokBuff.String(), Span: l.getSpan()}
	l.tokBuff.Reset()

	return tok
}

// mark marks the beginning of a new token at the lexer's current position.
func (l *Lexer) mark() {
	l.startLine = l.line
	l.startCol = l.col
}

// getSpan returns the span from the marked position to the current position.
func (l *Lexer) getSpan() *report.TextSpan {
	return &report.TextSpan{
		StartLine: l.startLine,
		StartCol:  l.startCol,
		EndLine:   l.line,
		EndCol:    l.col,
	}
}

// peek returns the next character in the input without moving the lexer
// forward.  It returns -1 if the input has ended.
func (l *Lexer) peek() (rune, error) {
	c, _, err := l.file.ReadRune()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return -1, nil
		}

		return 0, err
	}

	if err := l.file.UnreadRune(); err != nil {
		return 0, err
	}

	return c, nil
}

// eat moves the lexer forward one character and writes that character into the
// token buffer.
func (l *Lexer) eat() error {
	c, _, err := l.file.ReadRune()
	if err != nil {
		return err
	}

	l.tokBuff.WriteRune(c)
	l.advance(c)
	return nil
}

// skip moves the lexer forward one character without recording it.
func (l *Lexer) skip() {
	c, _, err := l.file.ReadRune()
	if err != nil {
		return
	}

	l.advance(c)
}

// advance updates the lexer's position based on the consumed character.
func (l *Lexer) advance(c rune) {
	if c == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// -----------------------------------------------------------------------------

// isDecimalDigit returns whether the rune is a decimal digit.
func isDecimalDigit(c rune) bool {
	return '0' <= c && c <= '9'
}

// delimiters is the set of runes which terminate a symbol.
var delimiters = map[rune]struct{}{
	'(': {}, ')': {}, '[': {}, ']': {},
	'"': {}, ';': {},
	' ': {}, '\t': {}, '\n': {}, '\r': {}, '\v': {}, '\f': {},
}

// isSymbolChar returns whether the rune may appear inside a symbol.
func isSymbolChar(c rune) bool {
	if c == -1 {
		return false
	}

	_, delim := delimiters[c]
	return !delim
}

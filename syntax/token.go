package syntax

import "github.com/Happy-Ferret/kvasir/report"

// Token represents a single lexical token.
type Token struct {
	// The kind of the token.  This must be one of the enumerated token kinds.
	Kind int

	// The string value of the token.  This may not directly correspond to the
	// source text: eg. the value of a string token has the leading quotes
	// trimmed off for convenience.
	Value string

	// The text span over which the token exists.
	Span *report.TextSpan
}

// Enumeration of token kinds.
const (
	TOK_LPAREN = iota
	TOK_RPAREN
	TOK_LBRACKET
	TOK_RBRACKET

	TOK_SYMBOL

	TOK_INTLIT
	TOK_UINTLIT
	TOK_FLOATLIT
	TOK_STRINGLIT
	TOK_BOOLLIT
	TOK_NIL

	TOK_EOF
)

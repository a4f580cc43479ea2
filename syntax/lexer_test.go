package syntax

import (
	"bufio"
	"strings"
	"testing"
)

// lexAll runs the lexer over a source string and collects every token before
// EOF.
func lexAll(t *testing.T, src string) []*Token {
	t.Helper()

	l := NewLexer(bufio.NewReader(strings.NewReader(src)))

	var toks []*Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("unexpected lex error: %s", err)
		}

		if tok.Kind == TOK_EOF {
			return toks
		}

		toks = append(toks, tok)
	}
}

func TestLexTokenKinds(t *testing.T) {
	tests := []struct {
		src   string
		kinds []int
	}{
		{"()", []int{TOK_LPAREN, TOK_RPAREN}},
		{"[]", []int{TOK_LBRACKET, TOK_RBRACKET}},
		{"foo", []int{TOK_SYMBOL}},
		{"-foo +bar", []int{TOK_SYMBOL, TOK_SYMBOL}},
		{"42", []int{TOK_INTLIT}},
		{"-42", []int{TOK_INTLIT}},
		{"42u", []int{TOK_UINTLIT}},
		{"3.25", []int{TOK_FLOATLIT}},
		{"-3.25", []int{TOK_FLOATLIT}},
		{`"hi"`, []int{TOK_STRINGLIT}},
		{"true false nil", []int{TOK_BOOLLIT, TOK_BOOLLIT, TOK_NIL}},
		{"(+ 1 2)", []int{TOK_LPAREN, TOK_SYMBOL, TOK_INTLIT, TOK_INTLIT, TOK_RPAREN}},
		{"a ; comment ()\nb", []int{TOK_SYMBOL, TOK_SYMBOL}},
		{";;;; all comment", nil},
		{">>= /= <", []int{TOK_SYMBOL, TOK_SYMBOL, TOK_SYMBOL}},
	}

	for _, tc := range tests {
		toks := lexAll(t, tc.src)

		if len(toks) != len(tc.kinds) {
			t.Errorf("%q: expected %d tokens, got %d", tc.src, len(tc.kinds), len(toks))
			continue
		}

		for i, kind := range tc.kinds {
			if toks[i].Kind != kind {
				t.Errorf("%q: token %d: expected kind %d, got %d", tc.src, i, kind, toks[i].Kind)
			}
		}
	}
}

func TestLexTokenValues(t *testing.T) {
	tests := []struct {
		src   string
		value string
	}{
		{"foo-bar", "foo-bar"},
		{"-42", "-42"},
		{`"a\"b"`, `a"b`},
		{`"a\\b"`, `a\b`},
		{`"tab\there"`, "tab\there"},
	}

	for _, tc := range tests {
		toks := lexAll(t, tc.src)

		if len(toks) != 1 {
			t.Fatalf("%q: expected a single token", tc.src)
		}

		if toks[0].Value != tc.value {
			t.Errorf("%q: expected value %q, got %q", tc.src, tc.value, toks[0].Value)
		}
	}
}

func TestLexErrors(t *testing.T) {
	tests := []string{
		`"unterminated`,
		`"bad \q escape"`,
		"1.",
		"1.2.3",
		"12abc",
		"3.5u",
	}

	for _, src := range tests {
		l := NewLexer(bufio.NewReader(strings.NewReader(src)))

		var err error
		for err == nil {
			var tok *Token
			tok, err = l.NextToken()
			if err == nil && tok.Kind == TOK_EOF {
				t.Errorf("%q: expected a lex error", src)
				break
			}
		}
	}
}

func TestLexSpans(t *testing.T) {
	toks := lexAll(t, "ab\n  cd")

	if toks[0].Span.StartLine != 0 || toks[0].Span.StartCol != 0 {
		t.Errorf("first token span: got %+v", toks[0].Span)
	}

	if toks[1].Span.StartLine != 1 || toks[1].Span.StartCol != 2 {
		t.Errorf("second token span: got %+v", toks[1].Span)
	}
}

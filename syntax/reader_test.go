package syntax

import (
	"strings"
	"testing"

	"github.com/Happy-Ferret/kvasir/report"
)

func readAll(t *testing.T, src string) []Sexpr {
	t.Helper()

	forms, err := ReadSource(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected read error: %s", err)
	}

	return forms
}

func TestReadNesting(t *testing.T) {
	forms := readAll(t, "(a (b c) [d])")

	if len(forms) != 1 {
		t.Fatalf("expected one top-level form, got %d", len(forms))
	}

	list, ok := forms[0].(*List)
	if !ok || len(list.Items) != 3 {
		t.Fatalf("expected a three-item list")
	}

	if _, ok := list.Items[0].(*Atom); !ok {
		t.Errorf("expected first item to be an atom")
	}

	inner, ok := list.Items[2].(*List)
	if !ok || !inner.Bracketed {
		t.Errorf("expected third item to be a bracketed list")
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		src  string
		kind int
	}{
		{"(a b", report.KindRead},
		{"(a b]", report.KindRead},
		{"[a b)", report.KindRead},
		{")", report.KindRead},
		{"]", report.KindRead},
	}

	for _, tc := range tests {
		_, err := ReadSource(strings.NewReader(tc.src))
		if err == nil {
			t.Errorf("%q: expected a read error", tc.src)
			continue
		}

		cerr, ok := err.(*report.CompileError)
		if !ok || cerr.Kind != tc.kind {
			t.Errorf("%q: expected a read error, got %v", tc.src, err)
		}
	}
}

// Printing a parse tree and reading it back must reproduce the same tree.
func TestPrintRoundTrip(t *testing.T) {
	tests := []string{
		"(define (fib n) (if (< n 2) n (+ (fib (- n 1)) (fib (- n 2)))))",
		"[a [b c] 1 2.5 -3 4u true nil]",
		`(display "hi\n")`,
		"(let ((x 1) ((f y) (+ x y))) (f 2))",
	}

	for _, src := range tests {
		first := PrintSexpr(readAll(t, src)[0])
		second := PrintSexpr(readAll(t, first)[0])

		if first != second {
			t.Errorf("round trip mismatch:\n  first:  %s\n  second: %s", first, second)
		}
	}
}

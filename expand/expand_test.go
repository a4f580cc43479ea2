package expand

import (
	"strings"
	"testing"

	"github.com/Happy-Ferret/kvasir/ast"
	"github.com/Happy-Ferret/kvasir/report"
	"github.com/Happy-Ferret/kvasir/syntax"
)

// expandSource parses and expands a source string with no import path.
func expandSource(t *testing.T, src string) *ast.Program {
	t.Helper()

	forms, err := syntax.ReadSource(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected read error: %s", err)
	}

	prog, err := Expand(forms, nil)
	if err != nil {
		t.Fatalf("unexpected expand error: %s", err)
	}

	return prog
}

// expandError expects expansion to fail and returns the error.
func expandError(t *testing.T, src string) *report.CompileError {
	t.Helper()

	forms, err := syntax.ReadSource(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected read error: %s", err)
	}

	_, err = Expand(forms, nil)
	if err == nil {
		t.Fatalf("expected an expand error for %q", src)
	}

	return err.(*report.CompileError)
}

func TestDefineFunctionShorthand(t *testing.T) {
	prog := expandSource(t, "(define (f x y) x) (define main (f 1 2))")

	f := prog.DefsByName["f"]
	lam, ok := f.Body.(*ast.Lambda)
	if !ok {
		t.Fatalf("expected `f` to expand to a lambda")
	}

	if len(lam.Params) != 2 {
		t.Errorf("expected two parameters, got %d", len(lam.Params))
	}

	// `(f 1 2)` curries into App(App(f, 1), 2).
	outer, ok := prog.Main.Body.(*ast.App)
	if !ok {
		t.Fatalf("expected main body to be an application")
	}

	if _, ok := outer.Fn.(*ast.App); !ok {
		t.Errorf("expected a curried application chain")
	}
}

func TestCondRewritesToNestedIfs(t *testing.T) {
	prog := expandSource(t, `
		(define (f x)
			(cond (x 1)
			      (x 2)
			      (else 3)))
		(define main (f true))`)

	lam := prog.DefsByName["f"].Body.(*ast.Lambda)

	first, ok := lam.Body.(*ast.If)
	if !ok {
		t.Fatalf("expected `cond` to expand to an if")
	}

	second, ok := first.Else.(*ast.If)
	if !ok {
		t.Fatalf("expected a nested if in the else branch")
	}

	if _, ok := second.Else.(*ast.Literal); !ok {
		t.Errorf("expected the else clause as the innermost branch")
	}
}

func TestLetFunctionShorthandAndRecursion(t *testing.T) {
	prog := expandSource(t, `
		(define (f n)
			(let (((iter a count) (if true a (iter a count))))
				(iter n n)))
		(define main (f 1))`)

	lam := prog.DefsByName["f"].Body.(*ast.Lambda)

	let, ok := lam.Body.(*ast.Let)
	if !ok {
		t.Fatalf("expected a let")
	}

	if len(let.Bindings) != 1 {
		t.Fatalf("expected one binding")
	}

	if _, ok := let.Bindings[0].Value.(*ast.Lambda); !ok {
		t.Errorf("expected the function shorthand to produce a lambda")
	}
}

func TestFreeVariableSets(t *testing.T) {
	prog := expandSource(t, `
		(define (adder n)
			(lambda (m) (cons n m)))
		(define main (adder 1))`)

	outer := prog.DefsByName["adder"].Body.(*ast.Lambda)
	inner := outer.Body.(*ast.Lambda)

	if len(outer.FreeVars) != 0 {
		t.Errorf("outer lambda must have no free variables, got %d", len(outer.FreeVars))
	}

	if len(inner.FreeVars) != 1 || inner.FreeVars[0].Name != "n" {
		t.Fatalf("expected inner lambda to capture exactly `n`")
	}
}

func TestDataAndCase(t *testing.T) {
	prog := expandSource(t, `
		(data Shape
		      Point
		      (Circle Int64)
		      (Rect Int64 Int64))
		(define (area s)
			(case s
				(Point 0)
				((Circle r) r)
				((Rect w h) w)))
		(define main (area Point))`)

	dd := prog.DataDefs["Shape"]
	if dd == nil || len(dd.Ctors) != 3 {
		t.Fatalf("expected three constructors")
	}

	if dd.Ctors[1].Name != "Circle" || dd.Ctors[1].Index != 1 || len(dd.Ctors[1].FieldTypes) != 1 {
		t.Errorf("constructor `Circle` registered incorrectly")
	}

	lam := prog.DefsByName["area"].Body.(*ast.Lambda)
	match, ok := lam.Body.(*ast.Match)
	if !ok {
		t.Fatalf("expected `case` to expand to a match")
	}

	if len(match.Arms) != 3 || match.Default != nil {
		t.Errorf("expected three arms and no default")
	}

	if len(match.Arms[2].Binders) != 2 {
		t.Errorf("expected two binders in the `Rect` arm")
	}
}

func TestImportInjection(t *testing.T) {
	lib := "(define (helper x) x)"

	importer := func(name string, span *report.TextSpan) ([]syntax.Sexpr, error) {
		if name != "prelude" {
			t.Fatalf("unexpected import: %s", name)
		}

		return syntax.ReadSource(strings.NewReader(lib))
	}

	forms, err := syntax.ReadSource(strings.NewReader(`
		(import prelude)
		(define main (helper 1))`))
	if err != nil {
		t.Fatalf("unexpected read error: %s", err)
	}

	prog, err := Expand(forms, importer)
	if err != nil {
		t.Fatalf("unexpected expand error: %s", err)
	}

	if _, ok := prog.DefsByName["helper"]; !ok {
		t.Errorf("expected the imported definition to be registered")
	}
}

func TestExpandErrors(t *testing.T) {
	tests := []struct {
		src  string
		kind int
	}{
		{"(define main unknown-name)", report.KindName},
		{"(define x 1) (define x 2) (define main x)", report.KindExpand},
		{"(frobnicate x 1)", report.KindExpand},
		{"(define main (let x 1))", report.KindExpand},
		{"(define x 1)", report.KindExpand}, // no main
		{"(data Shape (Circle Int64)) (define main Circle)", report.KindExpand},
		{"(data Shape (Circle Int64)) (define main (Circle 1 2))", report.KindExpand},
		{"(define main (if true 1))", report.KindExpand},
		{"(extern f (-> t t)) (define main (f 1))", report.KindExpand},
	}

	for _, tc := range tests {
		cerr := expandError(t, tc.src)
		if cerr.Kind != tc.kind {
			t.Errorf("%q: expected error kind %d, got %d (%s)", tc.src, tc.kind, cerr.Kind, cerr.Message)
		}
	}
}

func TestAscriptionForm(t *testing.T) {
	prog := expandSource(t, "(define main (: 1 Int64))")

	asc, ok := prog.Main.Body.(*ast.Ascription)
	if !ok {
		t.Fatalf("expected an ascription node")
	}

	if asc.Ascribed.Repr() != "Int64" {
		t.Errorf("expected ascribed type Int64, got %s", asc.Ascribed.Repr())
	}
}

func TestDefineWithSignature(t *testing.T) {
	prog := expandSource(t, "(define: (id x) (-> t t) x) (define main (id 1))")

	def := prog.DefsByName["id"]
	if def.Ascription == nil {
		t.Fatalf("expected an attached signature")
	}

	if len(def.AscriptionVars) != 1 {
		t.Errorf("expected one type parameter, got %d", len(def.AscriptionVars))
	}
}

package walk

import (
	"strings"
	"testing"

	"github.com/Happy-Ferret/kvasir/ast"
	"github.com/Happy-Ferret/kvasir/expand"
	"github.com/Happy-Ferret/kvasir/report"
	"github.com/Happy-Ferret/kvasir/syntax"
	"github.com/Happy-Ferret/kvasir/typing"
)

// checkSource parses, expands, and type checks a source string.
func checkSource(t *testing.T, src string) *ast.Program {
	t.Helper()

	forms, err := syntax.ReadSource(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected read error: %s", err)
	}

	prog, err := expand.Expand(forms, nil)
	if err != nil {
		t.Fatalf("unexpected expand error: %s", err)
	}

	if err := WalkProgram(prog); err != nil {
		t.Fatalf("unexpected type error: %s", err)
	}

	return prog
}

// checkError expects inference to fail.
func checkError(t *testing.T, src string) *report.CompileError {
	t.Helper()

	forms, err := syntax.ReadSource(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected read error: %s", err)
	}

	prog, err := expand.Expand(forms, nil)
	if err != nil {
		t.Fatalf("unexpected expand error: %s", err)
	}

	werr := WalkProgram(prog)
	if werr == nil {
		t.Fatalf("expected a type error for %q", src)
	}

	return werr.(*report.CompileError)
}

func TestPolymorphicIdentity(t *testing.T) {
	prog := checkSource(t, `
		(define (id x) x)
		(define main (cons (id 1) (id true)))`)

	id := prog.DefsByName["id"]
	if id.Sym.Scheme == nil || len(id.Sym.Scheme.Vars) != 1 {
		t.Fatalf("expected `id` to generalize over one variable")
	}

	mainType := typing.Apply(prog.Main.Body.Type())
	ct, ok := mainType.(*typing.ConType)
	if !ok || ct.Name != typing.ConCons {
		t.Fatalf("expected main to have a Cons type, got %s", mainType.Repr())
	}

	if !typing.Equals(ct.Args[1], typing.Bool) {
		t.Errorf("expected the second use of `id` at Bool, got %s", ct.Args[1].Repr())
	}
}

func TestSignatureSeedsInference(t *testing.T) {
	prog := checkSource(t, `
		(define: (id x) (-> t t) x)
		(define main (cons (id 1) (id true)))`)

	id := prog.DefsByName["id"]
	if id.Sym.Scheme == nil || len(id.Sym.Scheme.Vars) != 1 {
		t.Fatalf("expected the ascribed `id` to generalize over one variable")
	}
}

func TestNumericLiteralDefaulting(t *testing.T) {
	prog := checkSource(t, `
		(define (f x) (add (cons x 1)))
		(define main (f 2))`)

	mainType := typing.Apply(prog.Main.Body.Type())
	if !typing.Equals(mainType, typing.Int64) {
		t.Errorf("expected Int64 after defaulting, got %s", mainType.Repr())
	}
}

func TestIntrinsicComparisonYieldsBool(t *testing.T) {
	prog := checkSource(t, `
		(define (f x) (if (lt (cons x 10)) x (add (cons x 1))))
		(define main (f 1))`)

	mainType := typing.Apply(prog.Main.Body.Type())
	if !typing.Equals(mainType, typing.Int64) {
		t.Errorf("expected Int64, got %s", mainType.Repr())
	}
}

func TestMutualRecursionGroups(t *testing.T) {
	prog := checkSource(t, `
		(define: (even n) (-> Int64 Bool)
			(if (eq (cons n 0)) true (odd (sub (cons n 1)))))
		(define (odd n) (if (eq (cons n 0)) false (even (sub (cons n 1)))))
		(define (id x) x)
		(define main (cons (even 4) (id 1)))`)

	// `even`/`odd` form one group pinned to Int64 by the signature; `id`
	// generalizes on its own.
	if len(prog.DefsByName["even"].Sym.Scheme.Vars) != 0 {
		t.Errorf("expected `even` to be monomorphic")
	}

	if len(prog.DefsByName["odd"].Sym.Scheme.Vars) != 0 {
		t.Errorf("expected `odd` to be pinned through the group")
	}

	if len(prog.DefsByName["id"].Sym.Scheme.Vars) != 1 {
		t.Errorf("expected `id` to be polymorphic")
	}
}

func TestLetGeneralization(t *testing.T) {
	checkSource(t, `
		(define main
			(let (((dup x) (cons x x)))
				(cons (dup 1) (dup true))))`)
}

func TestExternTypes(t *testing.T) {
	prog := checkSource(t, `
		(extern print_int64 (-> Int64 Nil))
		(define main (print_int64 42))`)

	mainType := typing.Apply(prog.Main.Body.Type())
	if !typing.Equals(mainType, typing.Nil) {
		t.Errorf("expected Nil, got %s", mainType.Repr())
	}
}

func TestDataInference(t *testing.T) {
	prog := checkSource(t, `
		(data Opt
		      None
		      (Some Int64))
		(define (get o)
			(case o
				(None 0)
				((Some x) x)))
		(define main (get (Some 3)))`)

	mainType := typing.Apply(prog.Main.Body.Type())
	if !typing.Equals(mainType, typing.Int64) {
		t.Errorf("expected Int64, got %s", mainType.Repr())
	}
}

func TestTypeErrors(t *testing.T) {
	tests := []struct {
		src     string
		message string
	}{
		{"(define main (if true nil false))", "mismatch"},
		{"(define (f x) (x x)) (define main (f (lambda (y) y)))", "infinite"},
		{"(define (f x) (f x)) (define main (f 1))", "ambiguous"},
		{
			`(data Opt None (Some Int64))
			 (define (get o) (case o ((Some x) x)))
			 (define main (get None))`,
			"non-exhaustive",
		},
		{"(define main (car true))", "mismatch"},
	}

	for _, tc := range tests {
		cerr := checkError(t, tc.src)

		if cerr.Kind != report.KindType {
			t.Errorf("%q: expected a type error, got kind %d", tc.src, cerr.Kind)
		}

		if !strings.Contains(cerr.Message, tc.message) {
			t.Errorf("%q: expected message containing %q, got %q", tc.src, tc.message, cerr.Message)
		}
	}
}

func TestNoResidualVariables(t *testing.T) {
	prog := checkSource(t, `
		(define (id x) x)
		(define (f x) (add (cons (id x) 1)))
		(define main (f 5))`)

	// Every node type must resolve to ground constructors or quantified
	// variables after inference.
	quantified := make(map[int]struct{})
	for _, def := range prog.Defs {
		for _, v := range def.Sym.Scheme.Vars {
			quantified[v.ID] = struct{}{}
		}
	}

	var verify func(expr ast.Expr)
	verify = func(expr ast.Expr) {
		for _, tv := range typing.FreeVars(expr.Type(), nil) {
			if _, ok := quantified[tv.ID]; !ok {
				t.Errorf("residual unification variable t%d in %s", tv.ID, expr.Type().Repr())
			}
		}

		switch v := expr.(type) {
		case *ast.App:
			verify(v.Fn)
			verify(v.Arg)
		case *ast.Lambda:
			verify(v.Body)
		case *ast.Pair:
			verify(v.Head)
			verify(v.Tail)
		}
	}

	for _, def := range prog.Defs {
		verify(def.Body)
	}
}

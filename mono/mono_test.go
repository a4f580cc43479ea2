package mono

import (
	"strings"
	"testing"

	"github.com/Happy-Ferret/kvasir/ast"
	"github.com/Happy-Ferret/kvasir/expand"
	"github.com/Happy-Ferret/kvasir/syntax"
	"github.com/Happy-Ferret/kvasir/typing"
	"github.com/Happy-Ferret/kvasir/walk"
)

// specialize runs the frontend through monomorphization on a source string.
func specialize(t *testing.T, src string) *Program {
	t.Helper()

	forms, err := syntax.ReadSource(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected read error: %s", err)
	}

	prog, err := expand.Expand(forms, nil)
	if err != nil {
		t.Fatalf("unexpected expand error: %s", err)
	}

	if err := walk.WalkProgram(prog); err != nil {
		t.Fatalf("unexpected type error: %s", err)
	}

	monoProg, err := Monomorphize(prog)
	if err != nil {
		t.Fatalf("unexpected specialization error: %s", err)
	}

	return monoProg
}

func TestSpecializationPerType(t *testing.T) {
	monoProg := specialize(t, `
		(define: (id x) (-> t t) x)
		(define main (cons (id 1) (id true)))`)

	if _, ok := monoProg.InstancesByName["id$Int64"]; !ok {
		t.Errorf("expected an Int64 specialization of `id`")
	}

	if _, ok := monoProg.InstancesByName["id$Bool"]; !ok {
		t.Errorf("expected a Bool specialization of `id`")
	}

	// The same type vector must map onto one instance.
	if len(monoProg.Instances) != 3 {
		t.Errorf("expected main plus two specializations, got %d instances", len(monoProg.Instances))
	}
}

func TestUnreachedDefinitionsAreDiscarded(t *testing.T) {
	monoProg := specialize(t, `
		(define (id x) x)
		(define (unused x) (cons x x))
		(define main (id 1))`)

	for name := range monoProg.InstancesByName {
		if strings.HasPrefix(name, "unused") {
			t.Errorf("unreached definition `unused` was specialized")
		}
	}
}

func TestSpecializationFixpoint(t *testing.T) {
	// `pairify` reaches `id` at a type only visible through specialization.
	monoProg := specialize(t, `
		(define (id x) x)
		(define (pairify x) (cons (id x) (id x)))
		(define main (pairify true))`)

	if _, ok := monoProg.InstancesByName["pairify$Bool"]; !ok {
		t.Errorf("expected a Bool specialization of `pairify`")
	}

	if _, ok := monoProg.InstancesByName["id$Bool"]; !ok {
		t.Errorf("expected the transitive Bool specialization of `id`")
	}
}

func TestInstanceBodiesAreGround(t *testing.T) {
	monoProg := specialize(t, `
		(define (id x) x)
		(define main (cons (id 1) (id true)))`)

	var verify func(expr ast.Expr)
	verify = func(expr ast.Expr) {
		if !typing.IsGround(expr.Type()) {
			t.Errorf("non-ground type `%s` in specialized body", expr.Type().Repr())
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
		case *ast.Let:
			for _, b := range v.Bindings {
				verify(b.Value)
			}
			verify(v.Body)
		}
	}

	for _, inst := range monoProg.Instances {
		verify(inst.Body)
	}
}

func TestIntrinsicSelection(t *testing.T) {
	monoProg := specialize(t, `
		(define (f x) (add (cons x 1)))
		(define (g x) (add (cons x 1.5)))
		(define main (cons (f 1) (g 2.5)))`)

	if _, ok := monoProg.Externs["add_int64"]; !ok {
		t.Errorf("expected the Int64 intrinsic extern to be selected")
	}

	if _, ok := monoProg.Externs["add_float64"]; !ok {
		t.Errorf("expected the Float64 intrinsic extern to be selected")
	}
}

func TestPolymorphicLocalSpecialization(t *testing.T) {
	monoProg := specialize(t, `
		(define main
			(let (((dup x) (cons x x)))
				(cons (dup 1) (dup true))))`)

	let, ok := monoProg.Main.Body.(*ast.Let)
	if !ok {
		t.Fatalf("expected main to keep its let")
	}

	// One specialized binding per use-site type.
	if len(let.Bindings) != 2 {
		t.Fatalf("expected two specializations of `dup`, got %d bindings", len(let.Bindings))
	}
}

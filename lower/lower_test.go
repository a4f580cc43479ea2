package lower

import (
	"strings"
	"testing"

	"github.com/Happy-Ferret/kvasir/expand"
	"github.com/Happy-Ferret/kvasir/mir"
	"github.com/Happy-Ferret/kvasir/mono"
	"github.com/Happy-Ferret/kvasir/syntax"
	"github.com/Happy-Ferret/kvasir/walk"
)

// lowerSource runs the whole frontend and lowers the result.
func lowerSource(t *testing.T, src string) *mir.Bundle {
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

	monoProg, err := mono.Monomorphize(prog)
	if err != nil {
		t.Fatalf("unexpected specialization error: %s", err)
	}

	bundle, err := Lower(monoProg, "test")
	if err != nil {
		t.Fatalf("unexpected lowering error: %s", err)
	}

	return bundle
}

// findFunc locates a function by exact name.
func findFunc(bundle *mir.Bundle, name string) *mir.FuncImpl {
	for _, fn := range bundle.Functions {
		if fn.Name == name {
			return fn
		}
	}

	return nil
}

func TestClosureConversion(t *testing.T) {
	bundle := lowerSource(t, `
		(define (adder n) (lambda (m) (cons n m)))
		(define main (cons ((adder 1) 2) nil))`)

	// The inner lambda must be lifted to a top-level function capturing `n`.
	var lifted *mir.FuncImpl
	for _, fn := range bundle.Functions {
		if strings.HasPrefix(fn.Name, "lambda.") {
			lifted = fn
		}
	}

	if lifted == nil {
		t.Fatalf("expected a lifted lambda function")
	}

	if len(lifted.EnvCaptures) != 1 || !strings.HasPrefix(lifted.EnvCaptures[0].Name, "n") {
		t.Fatalf("expected the lifted lambda to capture `n`")
	}

	// The allocation site must produce a closure over the same function.
	adder := findFunc(bundle, "adder")
	if adder == nil {
		t.Fatalf("missing `adder`")
	}

	mc, ok := adder.Body.(*mir.MakeClosure)
	if !ok {
		t.Fatalf("expected `adder` to return a closure, got %T", adder.Body)
	}

	if mc.FnName != lifted.Name || len(mc.Captured) != 1 {
		t.Errorf("closure allocation does not match the lifted function")
	}
}

func TestLambdaWithoutCapturesHasNoEnv(t *testing.T) {
	bundle := lowerSource(t, `
		(define (apply1 f) (f 1))
		(define main (apply1 (lambda (x) x)))`)

	for _, fn := range bundle.Functions {
		if strings.HasPrefix(fn.Name, "lambda.") && len(fn.EnvCaptures) != 0 {
			t.Errorf("a lambda with no free variables must not capture")
		}
	}
}

func TestMultiParamFunctionCurries(t *testing.T) {
	bundle := lowerSource(t, `
		(define (pair2 a b) (cons a b))
		(define main (pair2 1 2))`)

	outer := findFunc(bundle, "pair2")
	if outer == nil {
		t.Fatalf("missing `pair2`")
	}

	if len(outer.Params) != 1 {
		t.Fatalf("functions take exactly one parameter after lowering")
	}

	// The outer function returns a closure over the second parameter.
	mc, ok := outer.Body.(*mir.MakeClosure)
	if !ok {
		t.Fatalf("expected the curried inner closure, got %T", outer.Body)
	}

	inner := findFunc(bundle, mc.FnName)
	if inner == nil || len(inner.Params) != 1 || len(inner.EnvCaptures) != 1 {
		t.Fatalf("curried inner function has the wrong shape")
	}
}

func TestMatchLowersToTagTests(t *testing.T) {
	bundle := lowerSource(t, `
		(data Opt
		      None
		      (Some Int64))
		(define (get o)
			(case o
				(None 0)
				((Some x) x)))
		(define main (get (Some 3)))`)

	get := findFunc(bundle, "get")
	if get == nil {
		t.Fatalf("missing `get`")
	}

	// The scrutinee is bound once, then tested by tag.
	let, ok := get.Body.(*mir.Let)
	if !ok {
		t.Fatalf("expected the scrutinee binding, got %T", get.Body)
	}

	ifExpr, ok := let.Body.(*mir.If)
	if !ok {
		t.Fatalf("expected a tag test chain, got %T", let.Body)
	}

	tagIs, ok := ifExpr.Cond.(*mir.TagIs)
	if !ok || tagIs.CtorIndex != 0 {
		t.Fatalf("expected a tag test against `None`")
	}

	// The `Some` arm binds its payload field.
	armLet, ok := ifExpr.Else.(*mir.Let)
	if !ok {
		t.Fatalf("expected the payload binding in the `Some` arm")
	}

	if _, ok := armLet.Value.(*mir.GetPayload); !ok {
		t.Errorf("expected a payload projection, got %T", armLet.Value)
	}
}

func TestConstructorAllocates(t *testing.T) {
	bundle := lowerSource(t, `
		(data Opt
		      None
		      (Some Int64))
		(define main (cons (Some 3) None))`)

	main := bundle.Main
	if main == nil {
		t.Fatalf("missing main")
	}

	// `(Some 3)` lowers to alloc + store + tag.
	repr := main.Repr()
	for _, want := range []string{"alloc", "store", "tag 1", "tag 0"} {
		if !strings.Contains(repr, want) {
			t.Errorf("expected %q in lowered main:\n%s", want, repr)
		}
	}
}

func TestRecursiveLocalFunctions(t *testing.T) {
	bundle := lowerSource(t, `
		(define (count n)
			(let (((iter acc left)
			       (if (eq (cons left 0))
			           acc
			           (iter (add (cons acc 1)) (sub (cons left 1))))))
				(iter 0 n)))
		(define main (count 3))`)

	// `iter` lifts to a pair of functions (curried); its self-reference
	// rebuilds the closure rather than capturing it.
	var iterFns int
	for _, fn := range bundle.Functions {
		if strings.HasPrefix(fn.Name, "iter") {
			iterFns++
		}
	}

	if iterFns < 2 {
		t.Fatalf("expected the curried `iter` chain to be lifted, found %d functions", iterFns)
	}
}

func TestExternsDeclared(t *testing.T) {
	bundle := lowerSource(t, `
		(extern print_int64 (-> Int64 Nil))
		(define main (print_int64 42))`)

	var found bool
	for _, ext := range bundle.Externals {
		if ext.Name == "print_int64" {
			found = true
		}
	}

	if !found {
		t.Errorf("expected `print_int64` in the extern list")
	}
}

package codegen

import (
	"strings"
	"testing"

	"github.com/Happy-Ferret/kvasir/expand"
	"github.com/Happy-Ferret/kvasir/lower"
	"github.com/Happy-Ferret/kvasir/mono"
	"github.com/Happy-Ferret/kvasir/syntax"
	"github.com/Happy-Ferret/kvasir/walk"
)

// generateSource runs the whole pipeline and renders the LLVM module.
func generateSource(t *testing.T, src string) string {
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

	bundle, err := lower.Lower(monoProg, "test")
	if err != nil {
		t.Fatalf("unexpected lowering error: %s", err)
	}

	return Generate(bundle).String()
}

func TestGenerateSimpleProgram(t *testing.T) {
	ir := generateSource(t, `
		(extern print_int64 (-> Int64 Nil))
		(define (double x) (add (cons x x)))
		(define main (print_int64 (double 21)))`)

	for _, want := range []string{
		"@print_int64(",
		"@add_int64(",
		"@malloc(i64",
		"declare void @retain(i8*",
		"kvs.double",
		"define i32 @main()",
	} {
		if !strings.Contains(ir, want) {
			t.Errorf("generated module missing %q:\n%s", want, ir)
		}
	}
}

func TestGenerateDataProgram(t *testing.T) {
	ir := generateSource(t, `
		(data Opt
		      None
		      (Some Int64))
		(define (get o)
			(case o
				(None 0)
				((Some x) x)))
		(define main (get (Some 3)))`)

	for _, want := range []string{
		"%Opt = type",
		"icmp eq i32",
		"@malloc",
	} {
		if !strings.Contains(ir, want) {
			t.Errorf("generated module missing %q:\n%s", want, ir)
		}
	}
}

func TestGenerateClosureProgram(t *testing.T) {
	ir := generateSource(t, `
		(define (adder n) (lambda (m) (add (cons n m))))
		(define main ((adder 1) 2))`)

	if !strings.Contains(ir, "kvs.lambda.") {
		t.Errorf("expected a lifted lambda in the module:\n%s", ir)
	}
}

func TestGenerateGlobalValue(t *testing.T) {
	ir := generateSource(t, `
		(define limit 100)
		(define (f x) (add (cons x limit)))
		(define main (f 1))`)

	for _, want := range []string{
		"kvs.limit",
		"kvs.init",
	} {
		if !strings.Contains(ir, want) {
			t.Errorf("generated module missing %q:\n%s", want, ir)
		}
	}
}

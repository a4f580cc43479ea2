package driver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Happy-Ferret/kvasir/codegen"
	"github.com/Happy-Ferret/kvasir/expand"
	"github.com/Happy-Ferret/kvasir/lower"
	"github.com/Happy-Ferret/kvasir/mono"
	"github.com/Happy-Ferret/kvasir/walk"
)

// compileFrontend drives the shipped standard library through every phase up
// to LLVM IR text, using the real import machinery.
func compileFrontend(t *testing.T, src string) string {
	t.Helper()

	// The repository root doubles as KVASIR_PATH: it contains std/.
	kvasirPath, err := filepath.Abs("..")
	if err != nil {
		t.Fatalf("failed to locate repository root: %s", err)
	}

	rootDir := t.TempDir()
	rootPath := filepath.Join(rootDir, "main.kvs")
	if err := os.WriteFile(rootPath, []byte(src), 0o644); err != nil {
		t.Fatalf("failed to write source: %s", err)
	}

	c := NewCompiler(rootPath, &BuildOptions{KvasirPath: kvasirPath})

	forms, ok := c.readSource(c.rootAbsPath)
	if !ok {
		t.Fatalf("failed to read source")
	}

	prog, err := expand.Expand(forms, c.importLibrary)
	if err != nil {
		t.Fatalf("expand: %s", err)
	}

	if err := walk.WalkProgram(prog); err != nil {
		t.Fatalf("walk: %s", err)
	}

	monoProg, err := mono.Monomorphize(prog)
	if err != nil {
		t.Fatalf("mono: %s", err)
	}

	bundle, err := lower.Lower(monoProg, c.programName())
	if err != nil {
		t.Fatalf("lower: %s", err)
	}

	return codegen.Generate(bundle).String()
}

func TestCompileFib(t *testing.T) {
	ir := compileFrontend(t, `
		(import sicp)
		(define main (print-int64 (fib 10)))`)

	if !strings.Contains(ir, "print_int64") || !strings.Contains(ir, "fib") {
		t.Errorf("expected fib and print_int64 in the module")
	}
}

func TestCompileFactorial(t *testing.T) {
	compileFrontend(t, `
		(import sicp)
		(define main (print-int64 (factorial 5)))`)
}

func TestCompileExpt(t *testing.T) {
	compileFrontend(t, `
		(import sicp)
		(define main (print-int64 (expt 2 10)))`)
}

func TestCompileAckermann(t *testing.T) {
	compileFrontend(t, `
		(import sicp)
		(define main (print-int64 (A 2 3)))`)
}

func TestCompileDisplay(t *testing.T) {
	ir := compileFrontend(t, `
		(import std)
		(define main (display "hi"))`)

	if !strings.Contains(ir, "c_display") {
		t.Errorf("expected c_display in the module")
	}
}

func TestCompileIterativeFib(t *testing.T) {
	compileFrontend(t, `
		(import sicp)
		(define main (print-int64 (fib-iter 20)))`)
}

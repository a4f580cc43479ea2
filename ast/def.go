package ast

import (
	"github.com/Happy-Ferret/kvasir/common"
	"github.com/Happy-Ferret/kvasir/report"
	"github.com/Happy-Ferret/kvasir/typing"
)

// Definition is a single top-level `define` or `define:` binding.  The whole
// program forms one recursive binding group wrapping `main`; the inferencer
// splits that group into strongly connected components for generalization.
type Definition struct {
	Sym  *common.Symbol
	Body Expr

	// Ascription is the type scheme attached by `define:`, with its named
	// type parameters replaced by type variables.  Nil for plain `define`.
	Ascription typing.DataType

	// AscriptionVars are the variables standing in for the written type
	// parameters of the ascription, in order of first appearance.
	AscriptionVars []*typing.TypeVar

	Span *report.TextSpan

	// Refs are the resolved references to other top-level definitions made
	// from this definition's body: the edges of the call graph.
	Refs map[string]struct{}
}

// Program is the expanded and resolved form of a whole compilation: the
// textual concatenation of the root file and everything it imports.
type Program struct {
	// Defs holds the top-level definitions in source order.
	Defs []*Definition

	// DefsByName indexes the definitions by name.
	DefsByName map[string]*Definition

	// Externs holds the declared extern symbols by name.
	Externs map[string]*common.Symbol

	// DataDefs holds the declared algebraic data types by name.
	DataDefs map[string]*common.DataDef

	// Ctors indexes every data constructor by name.
	Ctors map[string]*common.DataCtor

	// Main is the program entry definition.  Expansion fails if it is absent.
	Main *Definition
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{
		DefsByName: make(map[string]*Definition),
		Externs:    make(map[string]*common.Symbol),
		DataDefs:   make(map[string]*common.DataDef),
		Ctors:      make(map[string]*common.DataCtor),
	}
}

package common

import (
	"github.com/Happy-Ferret/kvasir/report"
	"github.com/Happy-Ferret/kvasir/typing"
)

// Symbol represents a named entity in a Kvasir program: a top-level
// definition, a local binding, a lambda parameter, an extern, or a data
// constructor.
type Symbol struct {
	// The name of the symbol.
	Name string

	// The kind of definition this symbol comes from.  This must be one of the
	// enumerated definition kinds.
	DefKind int

	// The span where the symbol is defined.
	DefSpan *report.TextSpan

	// The monomorphic type slot of the symbol.  For generalized bindings this
	// is the scheme body; uses go through Scheme instead.
	Type typing.DataType

	// Scheme is the generalized type of the symbol.  It is nil until the
	// binding group containing the symbol has been typed, and stays nil for
	// parameters and other monomorphic bindings.
	Scheme *typing.Scheme
}

// Enumeration of definition kinds.
const (
	DefTopLevel  = iota // A top-level `define` or `define:`.
	DefLocal            // A `let`-bound local.
	DefParam            // A lambda parameter.
	DefExtern           // An `extern` declaration.
	DefCtor             // A `data` constructor.
	DefIntrinsic        // A built-in arithmetic/comparison operation.
)

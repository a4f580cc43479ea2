// Package mir defines Kvasir's middle intermediate representation: a flat
// list of top-level functions whose bodies are expression trees with explicit
// closures, allocation, and sum-type tagging.  MIR bundles are converted
// directly into backend modules.
package mir

import (
	"github.com/Happy-Ferret/kvasir/common"
	"github.com/Happy-Ferret/kvasir/typing"
)

// Bundle is the lowered contents of a whole program.  It is a single
// translation unit: every symbol not defined in it is external.
type Bundle struct {
	// Name is the name of the program.
	Name string

	// Externals is the list of external function declarations resolved by
	// the linker against the C runtime or user libraries.
	Externals []*ExternDef

	// Functions is the list of function implementations.
	Functions []*FuncImpl

	// Main is the entry function.  It is also present in Functions.
	Main *FuncImpl

	// DataDefs carries the algebraic data types of the program for backend
	// type layout.
	DataDefs map[string]*common.DataDef
}

// ExternDef is an external function declaration.
type ExternDef struct {
	Name string

	// Type is the declared Kvasir type of the symbol: a chain of `->` cons.
	Type typing.DataType
}

// FuncImpl is a single function implementation.
type FuncImpl struct {
	Name       string
	Params     []Param
	ReturnType typing.DataType
	Body       Expr

	// EnvCaptures lists the values the function receives through its closure
	// environment, in environment order.  Empty for functions lifted from
	// lambdas with no free variables and for ordinary top-level functions.
	EnvCaptures []Param

	// Global marks a zero-parameter function that computes the initial value
	// of a top-level (non-function) definition.
	Global bool
}

// Param is a named function parameter.
type Param struct {
	Name string
	Type typing.DataType
}

// FnType returns the Kvasir function type of the implementation: a unary
// arrow from its parameter type to its return type.
func (fn *FuncImpl) FnType() typing.DataType {
	return typing.Func(fn.Params[0].Type, fn.ReturnType)
}

// -----------------------------------------------------------------------------

// Expr represents an expression in MIR.
type Expr interface {
	Type() typing.DataType
}

// Const is a literal constant.
type Const struct {
	// Kind is the literal kind, shared with the AST literal kinds.
	Kind int

	// Value is the source text of the constant.
	Value string

	ConstType typing.DataType
}

func (c *Const) Type() typing.DataType { return c.ConstType }

// LocalRef references a parameter, a let-bound local, or an environment
// capture by name.
type LocalRef struct {
	Name    string
	RefType typing.DataType
}

func (lr *LocalRef) Type() typing.DataType { return lr.RefType }

// GlobalRef references a top-level function or global by symbol name.
type GlobalRef struct {
	Name    string
	RefType typing.DataType

	// Extern marks references to external declarations.
	Extern bool
}

func (gr *GlobalRef) Type() typing.DataType { return gr.RefType }

// Call applies a callee to exactly one argument.  Multi-argument surface
// calls arrive as nested Calls; tupled calls encode their arguments in a
// `Cons` chain.
type Call struct {
	Callee Expr
	Arg    Expr

	ResultType typing.DataType
}

func (c *Call) Type() typing.DataType { return c.ResultType }

// If is a two-armed conditional.
type If struct {
	Cond, Then, Else Expr
}

func (i *If) Type() typing.DataType { return i.Then.Type() }

// Let binds a value to a name within a body.
type Let struct {
	Name  string
	Value Expr
	Body  Expr
}

func (l *Let) Type() typing.DataType { return l.Body.Type() }

// MakeClosure builds a closure value: a function pointer paired with an
// environment holding the captured values.
type MakeClosure struct {
	FnName   string
	Captured []Expr

	ClosureType typing.DataType
}

func (mc *MakeClosure) Type() typing.DataType { return mc.ClosureType }

// MakePair builds the primitive pair value.
type MakePair struct {
	Head, Tail Expr

	PairType typing.DataType
}

func (mp *MakePair) Type() typing.DataType { return mp.PairType }

// PairHead projects the head of a pair.
type PairHead struct {
	Pair Expr

	ElemType typing.DataType
}

func (ph *PairHead) Type() typing.DataType { return ph.ElemType }

// PairTail projects the tail of a pair.
type PairTail struct {
	Pair Expr

	ElemType typing.DataType
}

func (pt *PairTail) Type() typing.DataType { return pt.ElemType }

// Alloc allocates heap storage for a value of the element type and yields a
// pointer to it.  Data constructors allocate their payloads with it.
type Alloc struct {
	ElemType typing.DataType
}

func (a *Alloc) Type() typing.DataType { return typing.Ptr(a.ElemType) }

// Load reads through a pointer.
type Load struct {
	Ptr Expr
}

func (l *Load) Type() typing.DataType {
	return typing.Resolve(l.Ptr.Type()).(*typing.ConType).Args[0]
}

// Store writes a value through a pointer and yields nil.
type Store struct {
	Ptr   Expr
	Value Expr
}

func (s *Store) Type() typing.DataType { return typing.Nil }

// Tag builds a sum-type value from a constructor index and a payload
// pointer.  Nullary constructors have a nil payload.
type Tag struct {
	CtorIndex int
	Payload   Expr

	SumType typing.DataType
}

func (t *Tag) Type() typing.DataType { return t.SumType }

// TagIs tests whether a sum-type value was built by the constructor with the
// given index.
type TagIs struct {
	Value     Expr
	CtorIndex int
}

func (ti *TagIs) Type() typing.DataType { return typing.Bool }

// GetTag reads the constructor index of a sum-type value.
type GetTag struct {
	Value Expr
}

func (gt *GetTag) Type() typing.DataType { return typing.Int32 }

// GetPayload reads a field of a sum-type value assuming it was built by the
// constructor with the given index.
type GetPayload struct {
	Value      Expr
	CtorIndex  int
	FieldIndex int

	FieldType typing.DataType
}

func (gp *GetPayload) Type() typing.DataType { return gp.FieldType }

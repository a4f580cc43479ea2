package typing

import (
	"fmt"
	"strings"
)

// DataType is the parent interface for all types in Kvasir.
type DataType interface {
	// Repr returns a representative string of the type for purposes of error
	// reporting.
	Repr() string
}

// -----------------------------------------------------------------------------

// TypeVar represents a unification type variable.  Each type variable has an
// ID that is unique to its solver and a rank recording the let-nesting depth
// at which it was introduced, which decides whether it may be generalized.
type TypeVar struct {
	ID int

	// Rank is the nesting depth of the let that introduced this variable.  A
	// variable is generalized at the end of a binding group when its rank is
	// strictly greater than the rank of the enclosing group.
	Rank int

	// Value is the substitution of the variable: nil while unbound.
	Value DataType

	// Default is the type the variable falls back to if nothing binds it.  It
	// is set for numeric literals (Int64, UInt64 or Float64) and for the
	// operand variables of the built-in operations (Int64), and binding a
	// variable without a default to one with a default passes it along.
	// Generalization quantifies such a variable rather than defaulting it,
	// and instantiation copies the default onto the fresh variable; the
	// default is applied only where a type must be ground: the type of
	// `main`, the residual-variable check, and specialization.
	Default DataType
}

func (tv *TypeVar) Repr() string {
	if tv.Value != nil {
		return tv.Value.Repr()
	}

	return fmt.Sprintf("t%d", tv.ID)
}

// -----------------------------------------------------------------------------

// ConType represents a nullary or applied type constructor: the primitives,
// `Ptr`, `Cons`, `->`, `RealWorld`, and every user `data` type.
type ConType struct {
	Name string
	Args []DataType
}

func (ct *ConType) Repr() string {
	if len(ct.Args) == 0 {
		return ct.Name
	}

	if ct.Name == ConFunc {
		return fmt.Sprintf("(-> %s %s)", ct.Args[0].Repr(), ct.Args[1].Repr())
	}

	sb := strings.Builder{}
	sb.WriteRune('(')
	sb.WriteString(ct.Name)

	for _, arg := range ct.Args {
		sb.WriteRune(' ')
		sb.WriteString(arg.Repr())
	}

	sb.WriteRune(')')
	return sb.String()
}

// -----------------------------------------------------------------------------

// Scheme is a generalized type: a body quantified over a set of type
// variables.  Schemes only ever appear at binding sites; they are never nested
// inside another type.
type Scheme struct {
	// Vars are the quantified variables.  They remain unbound for the life of
	// the scheme: instantiation substitutes fresh variables for them without
	// mutating the scheme itself.
	Vars []*TypeVar

	Body DataType
}

func (s *Scheme) Repr() string {
	if len(s.Vars) == 0 {
		return s.Body.Repr()
	}

	sb := strings.Builder{}
	sb.WriteString("(forall (")

	for i, v := range s.Vars {
		sb.WriteString(v.Repr())

		if i < len(s.Vars)-1 {
			sb.WriteRune(' ')
		}
	}

	sb.WriteString(") ")
	sb.WriteString(s.Body.Repr())
	sb.WriteRune(')')
	return sb.String()
}

// -----------------------------------------------------------------------------

// Names of the built-in compound type constructors.
const (
	ConFunc = "->"
	ConCons = "Cons"
	ConPtr  = "Ptr"
)

// The built-in nullary type constructors.
var (
	Int8    = &ConType{Name: "Int8"}
	Int16   = &ConType{Name: "Int16"}
	Int32   = &ConType{Name: "Int32"}
	Int64   = &ConType{Name: "Int64"}
	UInt8   = &ConType{Name: "UInt8"}
	UInt16  = &ConType{Name: "UInt16"}
	UInt32  = &ConType{Name: "UInt32"}
	UInt64  = &ConType{Name: "UInt64"}
	Float32 = &ConType{Name: "Float32"}
	Float64 = &ConType{Name: "Float64"}
	Bool    = &ConType{Name: "Bool"}
	Nil     = &ConType{Name: "Nil"}

	// RealWorld is the zero-sized token type threaded through I/O functions
	// to totally order side effects.
	RealWorld = &ConType{Name: "RealWorld"}
)

// primitives maps the names of the built-in nullary constructors to their
// shared instances.
var primitives = map[string]*ConType{
	"Int8": Int8, "Int16": Int16, "Int32": Int32, "Int64": Int64,
	"UInt8": UInt8, "UInt16": UInt16, "UInt32": UInt32, "UInt64": UInt64,
	"Float32": Float32, "Float64": Float64,
	"Bool": Bool, "Nil": Nil, "RealWorld": RealWorld,
}

// GetPrimitive looks up a built-in nullary type constructor by name.
func GetPrimitive(name string) (*ConType, bool) {
	pt, ok := primitives[name]
	return pt, ok
}

// Func returns the type of a unary function from a to b.
func Func(a, b DataType) *ConType {
	return &ConType{Name: ConFunc, Args: []DataType{a, b}}
}

// Pair returns the primitive pair type `Cons a b`.
func Pair(a, b DataType) *ConType {
	return &ConType{Name: ConCons, Args: []DataType{a, b}}
}

// Ptr returns the pointer type `Ptr t`.
func Ptr(t DataType) *ConType {
	return &ConType{Name: ConPtr, Args: []DataType{t}}
}

// -----------------------------------------------------------------------------

// Resolve follows the substitution through any chain of bound type variables
// and returns the representative type.  The result is a type variable only if
// the chain ends in an unbound variable.
func Resolve(t DataType) DataType {
	for {
		tv, ok := t.(*TypeVar)
		if !ok || tv.Value == nil {
			return t
		}

		t = tv.Value
	}
}

// Apply deep-resolves a type: the returned type contains no bound type
// variables anywhere inside it.
func Apply(t DataType) DataType {
	switch v := Resolve(t).(type) {
	case *ConType:
		if len(v.Args) == 0 {
			return v
		}

		args := make([]DataType, len(v.Args))
		for i, arg := range v.Args {
			args[i] = Apply(arg)
		}

		return &ConType{Name: v.Name, Args: args}
	default:
		return v
	}
}

// Equals compares two types structurally after resolving the substitution.
// Unbound type variables compare equal only to themselves.
func Equals(a, b DataType) bool {
	a, b = Resolve(a), Resolve(b)

	switch av := a.(type) {
	case *TypeVar:
		bv, ok := b.(*TypeVar)
		return ok && av.ID == bv.ID
	case *ConType:
		bc, ok := b.(*ConType)
		if !ok || av.Name != bc.Name || len(av.Args) != len(bc.Args) {
			return false
		}

		for i, arg := range av.Args {
			if !Equals(arg, bc.Args[i]) {
				return false
			}
		}

		return true
	}

	return false
}

// IsGround returns whether a type contains no unbound type variables.
func IsGround(t DataType) bool {
	switch v := Resolve(t).(type) {
	case *TypeVar:
		return false
	case *ConType:
		for _, arg := range v.Args {
			if !IsGround(arg) {
				return false
			}
		}

		return true
	}

	return true
}

// FreeVars appends every unbound type variable reachable from t to the given
// slice, deduplicated by ID, and returns the extended slice.
func FreeVars(t DataType, acc []*TypeVar) []*TypeVar {
	switch v := Resolve(t).(type) {
	case *TypeVar:
		for _, seen := range acc {
			if seen.ID == v.ID {
				return acc
			}
		}

		return append(acc, v)
	case *ConType:
		for _, arg := range v.Args {
			acc = FreeVars(arg, acc)
		}
	}

	return acc
}

// Substitute returns a copy of t with every type variable in the mapping
// replaced by its image.  Variables outside the mapping are kept as is.
func Substitute(t DataType, mapping map[int]DataType) DataType {
	switch v := Resolve(t).(type) {
	case *TypeVar:
		if repl, ok := mapping[v.ID]; ok {
			return repl
		}

		return v
	case *ConType:
		if len(v.Args) == 0 {
			return v
		}

		args := make([]DataType, len(v.Args))
		for i, arg := range v.Args {
			args[i] = Substitute(arg, mapping)
		}

		return &ConType{Name: v.Name, Args: args}
	default:
		return v
	}
}

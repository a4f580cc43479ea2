package ast

import (
	"github.com/Happy-Ferret/kvasir/common"
	"github.com/Happy-Ferret/kvasir/report"
	"github.com/Happy-Ferret/kvasir/typing"
)

// Enumeration of literal kinds.
const (
	LitInt = iota
	LitUInt
	LitFloat
	LitBool
	LitString
	LitNil
)

// Literal is a literal value: integer, unsigned, float, bool, string, or nil.
type Literal struct {
	ExprBase

	// The literal kind.  This must be one of the enumerated literal kinds.
	Kind int

	// The source text of the literal.
	Value string
}

// NewLiteral creates a new literal of the given kind.
func NewLiteral(kind int, value string, span *report.TextSpan) *Literal {
	return &Literal{ExprBase: NewExprBase(span), Kind: kind, Value: value}
}

// -----------------------------------------------------------------------------

// Identifier is a resolved variable reference.
type Identifier struct {
	ExprBase

	Name string

	// Sym is the symbol this identifier resolved to.
	Sym *common.Symbol

	// TypeArgs are the fresh variables created when the identifier's scheme
	// was instantiated, in scheme order.  After inference they resolve to the
	// concrete types the monomorphizer keys specializations off of.  Empty
	// for monomorphic references.
	TypeArgs []typing.DataType
}

// -----------------------------------------------------------------------------

// Lambda is a function literal.  Multi-parameter surface lambdas keep their
// written arity through expansion; application curries one argument at a
// time, so a lambda of n parameters behaves as n nested unary lambdas.
type Lambda struct {
	ExprBase

	Params []*common.Symbol
	Body   Expr

	// FreeVars is the lambda's free-variable set, computed during name
	// resolution and consumed by closure conversion.
	FreeVars []*common.Symbol
}

// -----------------------------------------------------------------------------

// App is a unary application.  Multi-argument surface calls expand into App
// chains.
type App struct {
	ExprBase

	Fn  Expr
	Arg Expr
}

// -----------------------------------------------------------------------------

// LetBinding is a single binding of a `let` group.
type LetBinding struct {
	Sym   *common.Symbol
	Value Expr
}

// Let is a recursive binding group: every name in the group is in scope in
// every bound value as well as in the body.
type Let struct {
	ExprBase

	Bindings []*LetBinding
	Body     Expr
}

// -----------------------------------------------------------------------------

// If is a two-armed conditional.  `cond` forms expand into nested Ifs.
type If struct {
	ExprBase

	Cond, Then, Else Expr
}

// -----------------------------------------------------------------------------

// Ascription is a `(: expr T)` form: the inferred type of the inner
// expression is unified with the written type after fresh variables are
// substituted for its free type parameters.
type Ascription struct {
	ExprBase

	Inner Expr

	// Ascribed is the written type with named parameters replaced by shared
	// type variables.
	Ascribed typing.DataType
}

// -----------------------------------------------------------------------------

// Pair is the primitive `cons` form.
type Pair struct {
	ExprBase

	Head, Tail Expr
}

// PairAccess is a `car` or `cdr` form.
type PairAccess struct {
	ExprBase

	Pair Expr

	// TakeHead selects `car` when true, `cdr` when false.
	TakeHead bool
}

// -----------------------------------------------------------------------------

// CtorApp is a fully applied data constructor.  Nullary constructors have no
// arguments.
type CtorApp struct {
	ExprBase

	Ctor *common.DataCtor
	Args []Expr
}

// MatchArm is a single arm of a `case` form matching one constructor.
type MatchArm struct {
	Ctor    *common.DataCtor
	Binders []*common.Symbol
	Body    Expr
	ArmSpan *report.TextSpan
}

// Match destructures a `data` value by constructor.  Default is the `else`
// arm; it is nil when the match is exhaustive over the constructors.
type Match struct {
	ExprBase

	Scrutinee Expr
	Arms      []*MatchArm
	Default   Expr
}

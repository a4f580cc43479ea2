package ast

import (
	"github.com/Happy-Ferret/kvasir/report"
	"github.com/Happy-Ferret/kvasir/typing"
)

// Expr represents an expression in the core AST.  All expression nodes
// implement the `Expr` interface.
type Expr interface {
	// Type is the yielded type of the expression.  It is nil until the
	// inferencer annotates the node.
	Type() typing.DataType

	// SetType sets the type of the expression.
	SetType(typing.DataType)

	// Span returns the text span over which the expression occurs.
	Span() *report.TextSpan
}

// ExprBase is the base struct for all expressions: it carries the span and
// the type slot which the inferencer fills in place.
type ExprBase struct {
	typ  typing.DataType
	span *report.TextSpan
}

// NewExprBase creates a new expression base over the given span.
func NewExprBase(span *report.TextSpan) ExprBase {
	return ExprBase{span: span}
}

func (eb *ExprBase) Type() typing.DataType {
	return eb.typ
}

func (eb *ExprBase) SetType(typ typing.DataType) {
	eb.typ = typ
}

func (eb *ExprBase) Span() *report.TextSpan {
	return eb.span
}

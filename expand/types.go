package expand

import (
	"unicode"

	"github.com/Happy-Ferret/kvasir/report"
	"github.com/Happy-Ferret/kvasir/syntax"
	"github.com/Happy-Ferret/kvasir/typing"
)

// expandTypeExpr converts a surface type expression into a type.  Symbols
// beginning with an uppercase letter name type constructors; any other symbol
// is a type parameter.  Parameters with the same name within one type
// expression share one variable; the variables are returned in order of first
// appearance.
//
// Parameter variables are placeholders carrying negative IDs: they are never
// unified directly, only substituted away when the ascription or signature is
// instantiated.
func (e *Expander) expandTypeExpr(form syntax.Sexpr, params map[string]*typing.TypeVar) (typing.DataType, []*typing.TypeVar) {
	var order []*typing.TypeVar
	typ := e.expandTypeExprAcc(form, params, &order)
	return typ, order
}

func (e *Expander) expandTypeExprAcc(form syntax.Sexpr, params map[string]*typing.TypeVar, order *[]*typing.TypeVar) typing.DataType {
	switch v := form.(type) {
	case *syntax.Atom:
		name, ok := atomSymbol(v)
		if !ok {
			report.Throw(report.KindExpand, v.Span(), "expected a type")
		}

		return e.expandTypeName(name, v.Span(), params, order)
	case *syntax.List:
		if len(v.Items) == 0 {
			report.Throw(report.KindExpand, v.Span(), "empty type expression")
		}

		head, ok := atomSymbol(v.Items[0])
		if !ok {
			report.Throw(report.KindExpand, v.Items[0].Span(), "expected a type constructor")
		}

		switch head {
		case typing.ConFunc:
			// `(-> a b c)` associates to the right: `(-> a (-> b c))`.
			if len(v.Items) < 3 {
				report.Throw(report.KindExpand, v.Span(), "`->` takes at least two operands")
			}

			result := e.expandTypeExprAcc(v.Items[len(v.Items)-1], params, order)
			for i := len(v.Items) - 2; i >= 1; i-- {
				result = typing.Func(e.expandTypeExprAcc(v.Items[i], params, order), result)
			}

			return result
		case typing.ConCons:
			if len(v.Items) != 3 {
				report.Throw(report.KindExpand, v.Span(), "`Cons` takes exactly two operands")
			}

			return typing.Pair(
				e.expandTypeExprAcc(v.Items[1], params, order),
				e.expandTypeExprAcc(v.Items[2], params, order),
			)
		case typing.ConPtr:
			if len(v.Items) != 2 {
				report.Throw(report.KindExpand, v.Span(), "`Ptr` takes exactly one operand")
			}

			return typing.Ptr(e.expandTypeExprAcc(v.Items[1], params, order))
		default:
			report.Throw(report.KindExpand, v.Span(), "type constructor `%s` takes no arguments", head)
			return nil
		}
	}

	// unreachable
	return nil
}

// expandTypeName resolves a bare type name.
func (e *Expander) expandTypeName(name string, span *report.TextSpan, params map[string]*typing.TypeVar, order *[]*typing.TypeVar) typing.DataType {
	first := []rune(name)[0]

	if unicode.IsUpper(first) {
		if pt, ok := typing.GetPrimitive(name); ok {
			return pt
		}

		if dd, ok := e.prog.DataDefs[name]; ok {
			return dd.Type
		}

		report.Throw(report.KindName, span, "undefined type: `%s`", name)
	}

	// Lowercase names are type parameters.
	if tv, ok := params[name]; ok {
		return tv
	}

	e.typeParamCounter--
	tv := &typing.TypeVar{ID: e.typeParamCounter}
	params[name] = tv
	*order = append(*order, tv)

	return tv
}

package walk

import (
	"github.com/Happy-Ferret/kvasir/ast"
	"github.com/Happy-Ferret/kvasir/common"
	"github.com/Happy-Ferret/kvasir/report"
	"github.com/Happy-Ferret/kvasir/typing"
)

// walkExpr infers the type of an expression, annotates the node in place, and
// returns the inferred type.
func (w *Walker) walkExpr(expr ast.Expr) typing.DataType {
	var typ typing.DataType

	switch v := expr.(type) {
	case *ast.Literal:
		typ = w.walkLiteral(v)
	case *ast.Identifier:
		typ = w.walkIdentifier(v)
	case *ast.Lambda:
		typ = w.walkLambda(v)
	case *ast.App:
		fnType := w.walkExpr(v.Fn)
		argType := w.walkExpr(v.Arg)

		resType := w.solver.NewTypeVar(w.rank)
		w.unify(fnType, typing.Func(argType, resType), v.Span())
		typ = resType
	case *ast.Let:
		typ = w.walkLet(v)
	case *ast.If:
		w.unify(w.walkExpr(v.Cond), typing.Bool, v.Cond.Span())

		thenType := w.walkExpr(v.Then)
		w.unify(thenType, w.walkExpr(v.Else), v.Span())
		typ = thenType
	case *ast.Ascription:
		// The written type constrains the inferred type of the inner
		// expression after fresh variables replace its type parameters.
		innerType := w.walkExpr(v.Inner)

		params := typing.FreeVars(v.Ascribed, nil)
		w.unify(innerType, w.instantiatePlaceholders(v.Ascribed, params), v.Span())
		typ = innerType
	case *ast.Pair:
		typ = typing.Pair(w.walkExpr(v.Head), w.walkExpr(v.Tail))
	case *ast.PairAccess:
		headType := w.solver.NewTypeVar(w.rank)
		tailType := w.solver.NewTypeVar(w.rank)
		w.unify(w.walkExpr(v.Pair), typing.Pair(headType, tailType), v.Span())

		if v.TakeHead {
			typ = headType
		} else {
			typ = tailType
		}
	case *ast.CtorApp:
		for i, arg := range v.Args {
			w.unify(w.walkExpr(arg), v.Ctor.FieldTypes[i], arg.Span())
		}

		typ = v.Ctor.Parent.Type
	case *ast.Match:
		typ = w.walkMatch(v)
	default:
		report.ReportICE("type inference encountered an unknown AST node")
	}

	expr.SetType(typ)
	return typ
}

// -----------------------------------------------------------------------------

// walkLiteral types a literal.  Numeric literals receive fresh variables with
// defaults so their surrounding context may pin them to any width; the
// defaults apply only if the context never does.
func (w *Walker) walkLiteral(lit *ast.Literal) typing.DataType {
	switch lit.Kind {
	case ast.LitInt:
		return w.solver.NewLitVar(w.rank, typing.Int64)
	case ast.LitUInt:
		return w.solver.NewLitVar(w.rank, typing.UInt64)
	case ast.LitFloat:
		return w.solver.NewLitVar(w.rank, typing.Float64)
	case ast.LitBool:
		return typing.Bool
	case ast.LitNil:
		return typing.Nil
	case ast.LitString:
		// String literals take the standard library's `String` data type:
		// `data String Empty (Cons UInt8 String)`.
		if dd, ok := w.prog.DataDefs["String"]; ok {
			return dd.Type
		}

		report.Throw(report.KindType, lit.Span(), "string literals require the `String` data type in scope")
	}

	// unreachable
	return nil
}

// walkIdentifier types a variable reference, instantiating the scheme of a
// generalized binding and recording the instantiation for specialization.
func (w *Walker) walkIdentifier(id *ast.Identifier) typing.DataType {
	sym := id.Sym

	if sym.DefKind == common.DefIntrinsic {
		// Built-in operations are polymorphic over their operand type: the
		// operand variable is recorded so specialization can pick the
		// intrinsic for the resolved type.
		operand := w.solver.NewLitVar(w.rank, typing.Int64)
		id.TypeArgs = []typing.DataType{operand}

		var result typing.DataType = operand
		if common.Intrinsics[sym.Name].Compare {
			result = typing.Bool
		}

		return typing.Func(typing.Pair(operand, operand), result)
	}

	if sym.Scheme != nil {
		body, fresh := w.solver.Instantiate(sym.Scheme, w.rank)

		id.TypeArgs = make([]typing.DataType, len(fresh))
		for i, tv := range fresh {
			id.TypeArgs[i] = tv
		}

		return body
	}

	if sym.Type == nil {
		// A reference ahead of the symbol's binding group: possible only for
		// compiler bugs, never for user code.
		report.ReportICE("symbol `%s` referenced before it was typed", sym.Name)
	}

	return sym.Type
}

// walkLambda types a function literal.  The lambda keeps its written arity:
// its type is the right-nested chain of unary arrows over its parameters.
func (w *Walker) walkLambda(lam *ast.Lambda) typing.DataType {
	for _, param := range lam.Params {
		param.Type = w.solver.NewTypeVar(w.rank)
	}

	result := w.walkExpr(lam.Body)
	for i := len(lam.Params) - 1; i >= 0; i-- {
		result = typing.Func(lam.Params[i].Type, result)
	}

	return result
}

// walkLet types a recursive binding group.  All bindings in the group are
// typed together and generalized together when the group closes, exactly
// like a top-level component.
func (w *Walker) walkLet(let *ast.Let) typing.DataType {
	enclosing := w.rank
	w.rank++

	for _, b := range let.Bindings {
		b.Sym.Type = w.solver.NewTypeVar(w.rank)
		b.Sym.Scheme = nil
	}

	for _, b := range let.Bindings {
		w.unify(b.Sym.Type, w.walkExpr(b.Value), b.Sym.DefSpan)
	}

	w.rank = enclosing
	for _, b := range let.Bindings {
		scheme := w.solver.Generalize(enclosing, b.Sym.Type)
		for _, v := range scheme.Vars {
			w.quantified[v.ID] = struct{}{}
		}

		b.Sym.Scheme = scheme
	}

	return w.walkExpr(let.Body)
}

// walkMatch types a `case` expression.
func (w *Walker) walkMatch(match *ast.Match) typing.DataType {
	parent := match.Arms[0].Ctor.Parent

	w.unify(w.walkExpr(match.Scrutinee), parent.Type, match.Scrutinee.Span())

	var resultType typing.DataType
	for _, arm := range match.Arms {
		for i, binder := range arm.Binders {
			binder.Type = arm.Ctor.FieldTypes[i]
		}

		armType := w.walkExpr(arm.Body)
		if resultType == nil {
			resultType = armType
		} else {
			w.unify(resultType, armType, arm.ArmSpan)
		}
	}

	if match.Default != nil {
		w.unify(resultType, w.walkExpr(match.Default), match.Default.Span())
	} else if len(match.Arms) < len(parent.Ctors) {
		report.Throw(report.KindType, match.Span(),
			"non-exhaustive `case` over `%s`: %d of %d constructors matched",
			parent.Name, len(match.Arms), len(parent.Ctors))
	}

	return resultType
}

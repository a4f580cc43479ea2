package expand

import (
	"github.com/Happy-Ferret/kvasir/ast"
	"github.com/Happy-Ferret/kvasir/common"
	"github.com/Happy-Ferret/kvasir/report"
	"github.com/Happy-Ferret/kvasir/syntax"
	"github.com/Happy-Ferret/kvasir/typing"
)

// expandExpr expands a single expression form.
func (e *Expander) expandExpr(form syntax.Sexpr) ast.Expr {
	switch v := form.(type) {
	case *syntax.Atom:
		return e.expandAtom(v)
	case *syntax.List:
		return e.expandList(v)
	}

	// unreachable
	return nil
}

// expandAtom expands a literal or identifier atom.
func (e *Expander) expandAtom(atom *syntax.Atom) ast.Expr {
	switch atom.Tok.Kind {
	case syntax.TOK_INTLIT:
		return ast.NewLiteral(ast.LitInt, atom.Tok.Value, atom.Span())
	case syntax.TOK_UINTLIT:
		return ast.NewLiteral(ast.LitUInt, atom.Tok.Value, atom.Span())
	case syntax.TOK_FLOATLIT:
		return ast.NewLiteral(ast.LitFloat, atom.Tok.Value, atom.Span())
	case syntax.TOK_STRINGLIT:
		return ast.NewLiteral(ast.LitString, atom.Tok.Value, atom.Span())
	case syntax.TOK_BOOLLIT:
		return ast.NewLiteral(ast.LitBool, atom.Tok.Value, atom.Span())
	case syntax.TOK_NIL:
		return ast.NewLiteral(ast.LitNil, atom.Tok.Value, atom.Span())
	case syntax.TOK_SYMBOL:
		return e.expandIdentifier(atom.Tok.Value, atom.Span())
	}

	report.Throw(report.KindExpand, atom.Span(), "unexpected token")
	return nil
}

// expandList expands a special form, a constructor application, or an
// ordinary application.
func (e *Expander) expandList(list *syntax.List) ast.Expr {
	if len(list.Items) == 0 {
		report.Throw(report.KindExpand, list.Span(), "empty application")
	}

	if head, ok := headSymbol(list); ok {
		switch head {
		case "lambda":
			return e.expandLambda(list)
		case "let":
			return e.expandLet(list)
		case "if":
			return e.expandIf(list)
		case "cond":
			return e.expandCond(list)
		case "case":
			return e.expandCase(list)
		case "begin":
			return e.expandBegin(list.Items[1:], list.Span())
		case ":":
			return e.expandAscription(list)
		case "cons":
			return e.expandPair(list)
		case "car", "cdr":
			return e.expandPairAccess(list, head == "car")
		case "define", "define:", "extern", "data", "import":
			report.Throw(report.KindExpand, list.Span(), "`%s` is only allowed at the top level", head)
		}

		// A constructor at the head of a list is a constructor application
		// and must be saturated.
		if ctor, ok := e.prog.Ctors[head]; ok {
			return e.expandCtorApp(ctor, list)
		}
	}

	// Ordinary application: multi-argument calls curry into a chain of unary
	// applications.  The written arity is preserved: no Cons-tupling is
	// introduced that the programmer did not write.
	fn := e.expandExpr(list.Items[0])
	if len(list.Items) == 1 {
		report.Throw(report.KindExpand, list.Span(), "application needs at least one argument")
	}

	for _, argForm := range list.Items[1:] {
		app := &ast.App{
			ExprBase: ast.NewExprBase(report.NewSpanOver(list.Items[0].Span(), argForm.Span())),
			Fn:       fn,
			Arg:      e.expandExpr(argForm),
		}
		fn = app
	}

	return fn
}

// -----------------------------------------------------------------------------

// expandLambda expands a `(lambda (params...) body...)` form.
func (e *Expander) expandLambda(list *syntax.List) ast.Expr {
	if len(list.Items) < 3 {
		report.Throw(report.KindExpand, list.Span(), "malformed `lambda` form")
	}

	params, ok := list.Items[1].(*syntax.List)
	if !ok {
		report.Throw(report.KindExpand, list.Items[1].Span(), "`lambda` parameters must be a list")
	}

	body := e.implicitBegin(list.Items[2:], list.Span())
	return e.expandLambdaOver(params.Items, body, list.Span())
}

// expandLambdaOver builds a lambda over the given parameter forms and body.
// It is shared by `lambda` and the `define` function shorthand.
func (e *Expander) expandLambdaOver(paramForms []syntax.Sexpr, body syntax.Sexpr, span *report.TextSpan) ast.Expr {
	if len(paramForms) == 0 {
		report.Throw(report.KindExpand, span, "a function must take at least one parameter")
	}

	lam := &ast.Lambda{ExprBase: ast.NewExprBase(span)}

	sc := e.pushLambdaScope(lam)
	for _, pform := range paramForms {
		pname, ok := atomSymbol(pform)
		if !ok {
			report.Throw(report.KindExpand, pform.Span(), "`lambda` parameter must be a symbol")
		}

		sym := &common.Symbol{Name: pname, DefKind: common.DefParam, DefSpan: pform.Span()}
		e.declare(sc, sym)
		lam.Params = append(lam.Params, sym)
	}

	lam.Body = e.expandExpr(body)
	e.popLambdaScope()

	return lam
}

// expandLet expands a `(let (binding...) body...)` form.  Every binding is
// either `(name value)` or the function shorthand `((f args...) body...)`.
// All bindings in the group are mutually recursive.
func (e *Expander) expandLet(list *syntax.List) ast.Expr {
	if len(list.Items) < 3 {
		report.Throw(report.KindExpand, list.Span(), "malformed `let` form")
	}

	bindingList, ok := list.Items[1].(*syntax.List)
	if !ok {
		report.Throw(report.KindExpand, list.Items[1].Span(), "`let` bindings must be a list")
	}

	let := &ast.Let{ExprBase: ast.NewExprBase(list.Span())}

	// Declare every binding before expanding any bound value: the group is
	// recursive.
	sc := e.pushScope()
	type pendingBinding struct {
		binding *ast.LetBinding
		params  []syntax.Sexpr
		value   syntax.Sexpr
	}

	var pending []pendingBinding
	for _, bindForm := range bindingList.Items {
		bind, ok := bindForm.(*syntax.List)
		if !ok || len(bind.Items) < 2 {
			report.Throw(report.KindExpand, bindForm.Span(), "malformed `let` binding")
		}

		var name string
		var params []syntax.Sexpr
		switch target := bind.Items[0].(type) {
		case *syntax.Atom:
			if len(bind.Items) != 2 {
				report.Throw(report.KindExpand, bind.Span(), "`let` binding takes exactly one value")
			}

			name, ok = atomSymbol(target)
			if !ok {
				report.Throw(report.KindExpand, target.Span(), "`let` binding name must be a symbol")
			}
		case *syntax.List:
			// Function shorthand: `((f args...) body...)`.
			if len(target.Items) < 2 {
				report.Throw(report.KindExpand, target.Span(), "malformed `let` function shorthand")
			}

			name, ok = atomSymbol(target.Items[0])
			if !ok {
				report.Throw(report.KindExpand, target.Items[0].Span(), "`let` binding name must be a symbol")
			}

			params = target.Items[1:]
		}

		if _, dup := sc.syms[name]; dup {
			report.Throw(report.KindExpand, bind.Span(), "`%s` bound multiple times in one `let`", name)
		}

		sym := &common.Symbol{Name: name, DefKind: common.DefLocal, DefSpan: bind.Span()}
		e.declare(sc, sym)

		binding := &ast.LetBinding{Sym: sym}
		let.Bindings = append(let.Bindings, binding)

		pending = append(pending, pendingBinding{
			binding: binding,
			params:  params,
			value:   e.implicitBegin(bind.Items[1:], bind.Span()),
		})
	}

	for _, p := range pending {
		if p.params != nil {
			p.binding.Value = e.expandLambdaOver(p.params, p.value, p.binding.Sym.DefSpan)
		} else {
			p.binding.Value = e.expandExpr(p.value)
		}
	}

	let.Body = e.expandExpr(e.implicitBegin(list.Items[2:], list.Span()))
	e.popScope()

	return let
}

// expandIf expands an `(if cond then else)` form.
func (e *Expander) expandIf(list *syntax.List) ast.Expr {
	if len(list.Items) != 4 {
		report.Throw(report.KindExpand, list.Span(), "`if` takes a condition and two branches")
	}

	return &ast.If{
		ExprBase: ast.NewExprBase(list.Span()),
		Cond:     e.expandExpr(list.Items[1]),
		Then:     e.expandExpr(list.Items[2]),
		Else:     e.expandExpr(list.Items[3]),
	}
}

// expandCond rewrites a `cond` form into nested ifs.  A missing `else` clause
// makes the final branch nil.
func (e *Expander) expandCond(list *syntax.List) ast.Expr {
	if len(list.Items) < 2 {
		report.Throw(report.KindExpand, list.Span(), "`cond` needs at least one clause")
	}

	var elseExpr ast.Expr = ast.NewLiteral(ast.LitNil, "nil", list.Span())

	clauses := list.Items[1:]
	for i := len(clauses) - 1; i >= 0; i-- {
		clause, ok := clauses[i].(*syntax.List)
		if !ok || len(clause.Items) < 2 {
			report.Throw(report.KindExpand, clauses[i].Span(), "malformed `cond` clause")
		}

		if test, ok := atomSymbol(clause.Items[0]); ok && test == "else" {
			if i != len(clauses)-1 {
				report.Throw(report.KindExpand, clause.Span(), "`else` must be the final `cond` clause")
			}

			elseExpr = e.expandExpr(e.implicitBegin(clause.Items[1:], clause.Span()))
			continue
		}

		elseExpr = &ast.If{
			ExprBase: ast.NewExprBase(clause.Span()),
			Cond:     e.expandExpr(clause.Items[0]),
			Then:     e.expandExpr(e.implicitBegin(clause.Items[1:], clause.Span())),
			Else:     elseExpr,
		}
	}

	return elseExpr
}

// expandCase rewrites a `case` form into a match tree.  Each arm is
// `(pattern body...)` where the pattern is a bare constructor name or
// `(CName binders...)`; `else` introduces the default arm.
func (e *Expander) expandCase(list *syntax.List) ast.Expr {
	if len(list.Items) < 3 {
		report.Throw(report.KindExpand, list.Span(), "`case` needs a scrutinee and at least one arm")
	}

	match := &ast.Match{
		ExprBase:  ast.NewExprBase(list.Span()),
		Scrutinee: e.expandExpr(list.Items[1]),
	}

	var parent *common.DataDef
	for i, armForm := range list.Items[2:] {
		arm, ok := armForm.(*syntax.List)
		if !ok || len(arm.Items) < 2 {
			report.Throw(report.KindExpand, armForm.Span(), "malformed `case` arm")
		}

		if name, ok := atomSymbol(arm.Items[0]); ok && name == "else" {
			if i != len(list.Items)-3 {
				report.Throw(report.KindExpand, arm.Span(), "`else` must be the final `case` arm")
			}

			match.Default = e.expandExpr(e.implicitBegin(arm.Items[1:], arm.Span()))
			continue
		}

		matchArm := e.expandMatchArm(arm)

		if parent == nil {
			parent = matchArm.Ctor.Parent
		} else if matchArm.Ctor.Parent != parent {
			report.Throw(report.KindExpand, arm.Span(), "`case` arms match constructors of different data types")
		}

		match.Arms = append(match.Arms, matchArm)
	}

	if len(match.Arms) == 0 {
		report.Throw(report.KindExpand, list.Span(), "`case` needs at least one constructor arm")
	}

	return match
}

// expandMatchArm expands a single constructor arm of a `case` form.
func (e *Expander) expandMatchArm(arm *syntax.List) *ast.MatchArm {
	var ctorName string
	var binderForms []syntax.Sexpr

	switch pattern := arm.Items[0].(type) {
	case *syntax.Atom:
		name, ok := atomSymbol(pattern)
		if !ok {
			report.Throw(report.KindExpand, pattern.Span(), "`case` pattern must name a constructor")
		}

		ctorName = name
	case *syntax.List:
		if len(pattern.Items) < 2 {
			report.Throw(report.KindExpand, pattern.Span(), "malformed `case` pattern")
		}

		name, ok := atomSymbol(pattern.Items[0])
		if !ok {
			report.Throw(report.KindExpand, pattern.Items[0].Span(), "`case` pattern must name a constructor")
		}

		ctorName = name
		binderForms = pattern.Items[1:]
	}

	ctor, ok := e.prog.Ctors[ctorName]
	if !ok {
		report.Throw(report.KindName, arm.Items[0].Span(), "undefined constructor: `%s`", ctorName)
	}

	if len(binderForms) != len(ctor.FieldTypes) {
		report.Throw(report.KindExpand, arm.Items[0].Span(),
			"constructor `%s` has %d fields but the pattern binds %d", ctorName, len(ctor.FieldTypes), len(binderForms))
	}

	matchArm := &ast.MatchArm{Ctor: ctor, ArmSpan: arm.Span()}

	sc := e.pushScope()
	for _, bform := range binderForms {
		bname, ok := atomSymbol(bform)
		if !ok {
			report.Throw(report.KindExpand, bform.Span(), "`case` binder must be a symbol")
		}

		sym := &common.Symbol{Name: bname, DefKind: common.DefLocal, DefSpan: bform.Span()}
		e.declare(sc, sym)
		matchArm.Binders = append(matchArm.Binders, sym)
	}

	matchArm.Body = e.expandExpr(e.implicitBegin(arm.Items[1:], arm.Span()))
	e.popScope()

	return matchArm
}

// expandAscription expands a `(: expr T)` form.
func (e *Expander) expandAscription(list *syntax.List) ast.Expr {
	if len(list.Items) != 3 {
		report.Throw(report.KindExpand, list.Span(), "`:` takes an expression and a type")
	}

	typ, _ := e.expandTypeExpr(list.Items[2], make(map[string]*typing.TypeVar))

	return &ast.Ascription{
		ExprBase: ast.NewExprBase(list.Span()),
		Inner:    e.expandExpr(list.Items[1]),
		Ascribed: typ,
	}
}

// expandPair expands a `(cons head tail)` form.
func (e *Expander) expandPair(list *syntax.List) ast.Expr {
	if len(list.Items) != 3 {
		report.Throw(report.KindExpand, list.Span(), "`cons` takes exactly two operands")
	}

	return &ast.Pair{
		ExprBase: ast.NewExprBase(list.Span()),
		Head:     e.expandExpr(list.Items[1]),
		Tail:     e.expandExpr(list.Items[2]),
	}
}

// expandPairAccess expands a `(car p)` or `(cdr p)` form.
func (e *Expander) expandPairAccess(list *syntax.List, takeHead bool) ast.Expr {
	if len(list.Items) != 2 {
		report.Throw(report.KindExpand, list.Span(), "pair access takes exactly one operand")
	}

	return &ast.PairAccess{
		ExprBase: ast.NewExprBase(list.Span()),
		Pair:     e.expandExpr(list.Items[1]),
		TakeHead: takeHead,
	}
}

// expandCtorApp expands a saturated constructor application.
func (e *Expander) expandCtorApp(ctor *common.DataCtor, list *syntax.List) ast.Expr {
	if len(list.Items)-1 != len(ctor.FieldTypes) {
		report.Throw(report.KindExpand, list.Span(),
			"constructor `%s` takes %d arguments but is applied to %d", ctor.Name, len(ctor.FieldTypes), len(list.Items)-1)
	}

	capp := &ast.CtorApp{ExprBase: ast.NewExprBase(list.Span()), Ctor: ctor}
	for _, argForm := range list.Items[1:] {
		capp.Args = append(capp.Args, e.expandExpr(argForm))
	}

	return capp
}

// -----------------------------------------------------------------------------

// expandBegin expands a sequencing form: each expression is evaluated in
// order and the value of the last one is yielded.  It desugars to a chain of
// ignored let bindings.
func (e *Expander) expandBegin(forms []syntax.Sexpr, span *report.TextSpan) ast.Expr {
	if len(forms) == 0 {
		report.Throw(report.KindExpand, span, "empty `begin` form")
	}

	if len(forms) == 1 {
		return e.expandExpr(forms[0])
	}

	// The ignored binding is named `_` and is never entered into scope.
	ignored := &common.Symbol{Name: "_", DefKind: common.DefLocal, DefSpan: forms[0].Span()}

	return &ast.Let{
		ExprBase: ast.NewExprBase(span),
		Bindings: []*ast.LetBinding{{Sym: ignored, Value: e.expandExpr(forms[0])}},
		Body:     e.expandBegin(forms[1:], span),
	}
}

// implicitBegin wraps a sequence of body forms in a `begin` when there is
// more than one of them.
func (e *Expander) implicitBegin(forms []syntax.Sexpr, span *report.TextSpan) syntax.Sexpr {
	switch len(forms) {
	case 0:
		report.Throw(report.KindExpand, span, "empty body")
		return nil
	case 1:
		return forms[0]
	default:
		items := make([]syntax.Sexpr, 0, len(forms)+1)
		items = append(items, &syntax.Atom{Tok: &syntax.Token{Kind: syntax.TOK_SYMBOL, Value: "begin", Span: span}})
		items = append(items, forms...)
		return syntax.NewList(items, false, span)
	}
}

package expand

import (
	"github.com/Happy-Ferret/kvasir/ast"
	"github.com/Happy-Ferret/kvasir/common"
	"github.com/Happy-Ferret/kvasir/report"
	"github.com/Happy-Ferret/kvasir/syntax"
)

// pushScope opens a new local scope at the current lambda depth.
func (e *Expander) pushScope() *scope {
	sc := &scope{
		syms:        make(map[string]*common.Symbol),
		lambdaDepth: len(e.lambdas),
	}

	e.scopes = append(e.scopes, sc)
	return sc
}

// pushLambdaScope opens the parameter scope of a lambda and pushes the lambda
// onto the lambda stack.
func (e *Expander) pushLambdaScope(lam *ast.Lambda) *scope {
	e.lambdas = append(e.lambdas, lam)

	sc := &scope{
		syms:        make(map[string]*common.Symbol),
		lambdaDepth: len(e.lambdas),
	}

	e.scopes = append(e.scopes, sc)
	return sc
}

// popScope closes the innermost scope.
func (e *Expander) popScope() {
	e.scopes = e.scopes[:len(e.scopes)-1]
}

// popLambdaScope closes a lambda's parameter scope and pops the lambda.
func (e *Expander) popLambdaScope() {
	e.scopes = e.scopes[:len(e.scopes)-1]
	e.lambdas = e.lambdas[:len(e.lambdas)-1]
}

// declare enters a symbol into the given scope.  The ignored name `_` is
// never entered: it cannot be referenced.
func (e *Expander) declare(sc *scope, sym *common.Symbol) {
	if sym.Name == "_" {
		return
	}

	sc.syms[sym.Name] = sym
}

// -----------------------------------------------------------------------------

// expandIdentifier resolves a variable reference against the local scopes,
// the top-level definitions, the externs, and the data constructors, in that
// order.  Local references crossing a lambda boundary are recorded in the
// free-variable set of every lambda they cross.
func (e *Expander) expandIdentifier(name string, span *report.TextSpan) ast.Expr {
	// Scopes in reverse order to implement shadowing.
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if sym, ok := e.scopes[i].syms[name]; ok {
			e.markFreeVar(sym, e.scopes[i].lambdaDepth)

			return &ast.Identifier{ExprBase: ast.NewExprBase(span), Name: name, Sym: sym}
		}
	}

	if def, ok := e.prog.DefsByName[name]; ok {
		// Record the call-graph edge for SCC decomposition.
		if e.currentDef != nil {
			e.currentDef.Refs[name] = struct{}{}
		}

		return &ast.Identifier{ExprBase: ast.NewExprBase(span), Name: name, Sym: def.Sym}
	}

	if sym, ok := e.prog.Externs[name]; ok {
		return &ast.Identifier{ExprBase: ast.NewExprBase(span), Name: name, Sym: sym}
	}

	if ctor, ok := e.prog.Ctors[name]; ok {
		// A bare constructor reference is only a value when it is nullary.
		if len(ctor.FieldTypes) > 0 {
			report.Throw(report.KindExpand, span, "constructor `%s` must be fully applied", name)
		}

		return &ast.CtorApp{ExprBase: ast.NewExprBase(span), Ctor: ctor}
	}

	if _, ok := common.Intrinsics[name]; ok {
		return &ast.Identifier{ExprBase: ast.NewExprBase(span), Name: name, Sym: e.intrinsicSym(name)}
	}

	report.Throw(report.KindName, span, "undefined symbol: `%s`", name)
	return nil
}

// intrinsicSym returns the shared symbol of a built-in operation.
func (e *Expander) intrinsicSym(name string) *common.Symbol {
	if sym, ok := e.intrinsics[name]; ok {
		return sym
	}

	sym := &common.Symbol{Name: name, DefKind: common.DefIntrinsic}
	e.intrinsics[name] = sym
	return sym
}

// markFreeVar records sym as a free variable of every lambda strictly inside
// the lambda depth at which the symbol was bound.
func (e *Expander) markFreeVar(sym *common.Symbol, boundDepth int) {
	for depth := boundDepth; depth < len(e.lambdas); depth++ {
		lam := e.lambdas[depth]

		already := false
		for _, fv := range lam.FreeVars {
			if fv == sym {
				already = true
				break
			}
		}

		if !already {
			lam.FreeVars = append(lam.FreeVars, sym)
		}
	}
}

// -----------------------------------------------------------------------------

// headSymbol returns the symbol at the head of a list if there is one.
func headSymbol(list *syntax.List) (string, bool) {
	if len(list.Items) == 0 {
		return "", false
	}

	return atomSymbol(list.Items[0])
}

// atomSymbol returns the value of a symbol atom.
func atomSymbol(form syntax.Sexpr) (string, bool) {
	atom, ok := form.(*syntax.Atom)
	if !ok || atom.Tok.Kind != syntax.TOK_SYMBOL {
		return "", false
	}

	return atom.Tok.Value, true
}

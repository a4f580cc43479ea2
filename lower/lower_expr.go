package lower

import (
	"fmt"

	"github.com/Happy-Ferret/kvasir/ast"
	"github.com/Happy-Ferret/kvasir/common"
	"github.com/Happy-Ferret/kvasir/mir"
	"github.com/Happy-Ferret/kvasir/report"
	"github.com/Happy-Ferret/kvasir/typing"
)

// lowerExpr lowers a single expression tree.
func (l *Lowerer) lowerExpr(expr ast.Expr) mir.Expr {
	switch v := expr.(type) {
	case *ast.Literal:
		return &mir.Const{Kind: v.Kind, Value: v.Value, ConstType: typing.Apply(v.Type())}
	case *ast.Identifier:
		return l.lowerIdentifierSym(v.Sym, v.Span())
	case *ast.Lambda:
		return l.lowerAnonLambda(v)
	case *ast.App:
		return &mir.Call{
			Callee:     l.lowerExpr(v.Fn),
			Arg:        l.lowerExpr(v.Arg),
			ResultType: typing.Apply(v.Type()),
		}
	case *ast.Let:
		return l.lowerLet(v)
	case *ast.If:
		return &mir.If{
			Cond: l.lowerExpr(v.Cond),
			Then: l.lowerExpr(v.Then),
			Else: l.lowerExpr(v.Else),
		}
	case *ast.Pair:
		return &mir.MakePair{
			Head:     l.lowerExpr(v.Head),
			Tail:     l.lowerExpr(v.Tail),
			PairType: typing.Apply(v.Type()),
		}
	case *ast.PairAccess:
		pair := l.lowerExpr(v.Pair)
		if v.TakeHead {
			return &mir.PairHead{Pair: pair, ElemType: typing.Apply(v.Type())}
		}

		return &mir.PairTail{Pair: pair, ElemType: typing.Apply(v.Type())}
	case *ast.CtorApp:
		return l.lowerCtorApp(v)
	case *ast.Match:
		return l.lowerMatch(v)
	}

	report.ReportICE("lowering encountered an unknown AST node")
	return nil
}

// -----------------------------------------------------------------------------

// lowerIdentifierSym lowers a reference to a symbol.
func (l *Lowerer) lowerIdentifierSym(sym *common.Symbol, span *report.TextSpan) mir.Expr {
	if b, ok := l.lookup(sym); ok {
		if b.fnName != "" {
			// A recursive group function: rebuild its closure in place.
			var captured []mir.Expr
			for _, cap := range b.caps {
				captured = append(captured, l.lowerIdentifierSym(cap, span))
			}

			return &mir.MakeClosure{FnName: b.fnName, Captured: captured, ClosureType: b.typ}
		}

		return &mir.LocalRef{Name: b.local, RefType: b.typ}
	}

	switch sym.DefKind {
	case common.DefExtern:
		return &mir.GlobalRef{Name: sym.Name, RefType: typing.Apply(sym.Type), Extern: true}
	case common.DefTopLevel:
		inst, ok := l.prog.InstancesByName[sym.Name]
		if !ok {
			report.ReportICE("reference to unspecialized definition `%s`", sym.Name)
		}

		if _, isFn := inst.Body.(*ast.Lambda); isFn {
			// A top-level function used as a value is a closure with an
			// empty environment.
			return &mir.MakeClosure{FnName: inst.Name, ClosureType: typing.Apply(sym.Type)}
		}

		return &mir.GlobalRef{Name: inst.Name, RefType: typing.Apply(sym.Type)}
	}

	report.ReportICE("unresolved symbol `%s` during lowering", sym.Name)
	return nil
}

// -----------------------------------------------------------------------------

// lowerAnonLambda lifts an anonymous lambda to a top-level function and
// yields the closure allocation at its site.
func (l *Lowerer) lowerAnonLambda(lam *ast.Lambda) mir.Expr {
	l.liftCounter++
	name := fmt.Sprintf("lambda.%d", l.liftCounter)

	fn := l.lowerLambdaChain(name, lam.Params, lam.Body, lam.FreeVars)

	var captured []mir.Expr
	for _, fv := range lam.FreeVars {
		captured = append(captured, l.lowerIdentifierSym(fv, lam.Span()))
	}

	return &mir.MakeClosure{FnName: fn.Name, Captured: captured, ClosureType: fn.FnType()}
}

// -----------------------------------------------------------------------------

// lowerLet lowers a recursive binding group.  Lambda bindings are lifted as a
// group: each lifted function captures the union of the outside-the-group
// free variables of every group member it can reach, so that references
// between members can rebuild each other's closures without materializing a
// cyclic environment.  Value bindings are bound in order.
func (l *Lowerer) lowerLet(let *ast.Let) mir.Expr {
	type groupFn struct {
		binding *ast.LetBinding
		lam     *ast.Lambda
		name    string
		caps    []*common.Symbol
	}

	groupSyms := make(map[*common.Symbol]*groupFn)
	var fns []*groupFn
	var values []*ast.LetBinding

	for _, b := range let.Bindings {
		if lam, ok := b.Value.(*ast.Lambda); ok {
			l.liftCounter++
			gf := &groupFn{
				binding: b,
				lam:     lam,
				name:    fmt.Sprintf("%s.%d", b.Sym.Name, l.liftCounter),
			}

			groupSyms[b.Sym] = gf
			fns = append(fns, gf)
		} else {
			values = append(values, b)
		}
	}

	// Effective captures: union, to a fixed point, of the non-group free
	// variables of every group function reachable through group references.
	for _, gf := range fns {
		for _, fv := range gf.lam.FreeVars {
			if _, inGroup := groupSyms[fv]; !inGroup {
				gf.caps = append(gf.caps, fv)
			}
		}
	}

	for changed := true; changed; {
		changed = false

		for _, gf := range fns {
			for _, fv := range gf.lam.FreeVars {
				ref, inGroup := groupSyms[fv]
				if !inGroup {
					continue
				}

				for _, cap := range ref.caps {
					if !containsSym(gf.caps, cap) {
						gf.caps = append(gf.caps, cap)
						changed = true
					}
				}
			}
		}
	}

	l.pushScope()

	// Bind the group functions first so their bodies and the let body can
	// reference every member.
	for _, gf := range fns {
		l.bind(gf.binding.Sym, &loweredBinding{
			fnName: gf.name,
			caps:   gf.caps,
			typ:    typing.Apply(gf.binding.Sym.Type),
		})
	}

	for _, gf := range fns {
		l.lowerLambdaChain(gf.name, gf.lam.Params, gf.lam.Body, gf.caps)
	}

	// Bind the value bindings in order and wrap the body in MIR lets.
	type loweredValue struct {
		name  string
		value mir.Expr
	}

	var lowered []loweredValue
	for _, b := range values {
		value := l.lowerExpr(b.Value)

		name := l.uniqueName(b.Sym.Name)
		l.bind(b.Sym, &loweredBinding{local: name, typ: typing.Apply(b.Sym.Type)})
		lowered = append(lowered, loweredValue{name: name, value: value})
	}

	result := l.lowerExpr(let.Body)
	for i := len(lowered) - 1; i >= 0; i-- {
		result = &mir.Let{Name: lowered[i].name, Value: lowered[i].value, Body: result}
	}

	l.popScope()
	return result
}

// containsSym reports whether the slice contains the symbol.
func containsSym(syms []*common.Symbol, sym *common.Symbol) bool {
	for _, s := range syms {
		if s == sym {
			return true
		}
	}

	return false
}

// -----------------------------------------------------------------------------

// lowerCtorApp lowers a saturated constructor application: the payload is
// allocated, stored, and tagged with the constructor index.
func (l *Lowerer) lowerCtorApp(capp *ast.CtorApp) mir.Expr {
	sumType := typing.Apply(capp.Type())

	if len(capp.Args) == 0 {
		return &mir.Tag{CtorIndex: capp.Ctor.Index, SumType: sumType}
	}

	// The payload is the single field value, or the right-nested pair chain
	// of the fields for constructors with several.
	payload := l.lowerExpr(capp.Args[len(capp.Args)-1])
	for i := len(capp.Args) - 2; i >= 0; i-- {
		head := l.lowerExpr(capp.Args[i])
		payload = &mir.MakePair{
			Head:     head,
			Tail:     payload,
			PairType: typing.Pair(head.Type(), payload.Type()),
		}
	}

	ptrName := l.uniqueName("payload")
	ptr := &mir.LocalRef{Name: ptrName, RefType: typing.Ptr(payload.Type())}

	storeName := l.uniqueName("stored")

	return &mir.Let{
		Name:  ptrName,
		Value: &mir.Alloc{ElemType: payload.Type()},
		Body: &mir.Let{
			Name:  storeName,
			Value: &mir.Store{Ptr: ptr, Value: payload},
			Body:  &mir.Tag{CtorIndex: capp.Ctor.Index, Payload: ptr, SumType: sumType},
		},
	}
}

// lowerMatch lowers a `case` expression to a chain of tag tests.  With no
// default arm the final constructor arm becomes the fallback: inference has
// already checked exhaustiveness.
func (l *Lowerer) lowerMatch(match *ast.Match) mir.Expr {
	scrutName := l.uniqueName("scrut")
	scrutType := typing.Apply(match.Scrutinee.Type())
	scrutRef := &mir.LocalRef{Name: scrutName, RefType: scrutType}

	var result mir.Expr
	lastArm := len(match.Arms) - 1

	if match.Default != nil {
		result = l.lowerExpr(match.Default)
	} else {
		result = l.lowerArm(match.Arms[lastArm], scrutRef)
		lastArm--
	}

	for i := lastArm; i >= 0; i-- {
		arm := match.Arms[i]

		result = &mir.If{
			Cond: &mir.TagIs{Value: scrutRef, CtorIndex: arm.Ctor.Index},
			Then: l.lowerArm(arm, scrutRef),
			Else: result,
		}
	}

	return &mir.Let{
		Name:  scrutName,
		Value: l.lowerExpr(match.Scrutinee),
		Body:  result,
	}
}

// lowerArm lowers one constructor arm, binding its field binders to payload
// projections.
func (l *Lowerer) lowerArm(arm *ast.MatchArm, scrut mir.Expr) mir.Expr {
	l.pushScope()

	type fieldBinding struct {
		name  string
		value mir.Expr
	}

	var bindings []fieldBinding
	for i, binder := range arm.Binders {
		name := l.uniqueName(binder.Name)
		l.bind(binder, &loweredBinding{local: name, typ: typing.Apply(binder.Type)})

		bindings = append(bindings, fieldBinding{
			name: name,
			value: &mir.GetPayload{
				Value:      scrut,
				CtorIndex:  arm.Ctor.Index,
				FieldIndex: i,
				FieldType:  typing.Apply(binder.Type),
			},
		})
	}

	result := l.lowerExpr(arm.Body)
	for i := len(bindings) - 1; i >= 0; i-- {
		result = &mir.Let{Name: bindings[i].name, Value: bindings[i].value, Body: result}
	}

	l.popScope()
	return result
}

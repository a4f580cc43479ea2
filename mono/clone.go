package mono

import (
	"sort"

	"github.com/Happy-Ferret/kvasir/ast"
	"github.com/Happy-Ferret/kvasir/common"
	"github.com/Happy-Ferret/kvasir/report"
	"github.com/Happy-Ferret/kvasir/typing"
)

// cloner produces the specialized copy of one definition body.  The original
// polymorphic AST is retained untouched as a template; every instance is a
// fresh tree with fresh symbols and ground types.
type cloner struct {
	m *Monomorphizer

	// subst maps quantified type variable IDs to the ground types of this
	// specialization.
	subst map[int]typing.DataType

	// symMap maps template symbols to their clones.
	symMap map[*common.Symbol]*common.Symbol

	// localSpecs tracks the specializations of polymorphic let-bound locals,
	// keyed first by the template symbol and then by mangled type vector.
	localSpecs map[*common.Symbol]map[string]*localSpec
}

// localSpec is one specialization of a polymorphic local binding.
type localSpec struct {
	sym      *common.Symbol
	typeArgs []typing.DataType
}

func newCloner(m *Monomorphizer, scheme *typing.Scheme, typeArgs []typing.DataType) *cloner {
	subst := make(map[int]typing.DataType, len(typeArgs))
	for i, v := range scheme.Vars {
		subst[v.ID] = typeArgs[i]
	}

	return &cloner{
		m:          m,
		subst:      subst,
		symMap:     make(map[*common.Symbol]*common.Symbol),
		localSpecs: make(map[*common.Symbol]map[string]*localSpec),
	}
}

// child derives a cloner with the substitution extended for a local
// specialization.  The symbol maps are shared.
func (c *cloner) child(vars []*typing.TypeVar, typeArgs []typing.DataType) *cloner {
	subst := make(map[int]typing.DataType, len(c.subst)+len(vars))
	for id, t := range c.subst {
		subst[id] = t
	}
	for i, v := range vars {
		subst[v.ID] = typeArgs[i]
	}

	return &cloner{m: c.m, subst: subst, symMap: c.symMap, localSpecs: c.localSpecs}
}

// -----------------------------------------------------------------------------

// cloneType resolves a template type to the ground type of this
// specialization.  Variables which are still undetermined after substitution
// are defaulted; a variable with no default is a specialization error.
func (c *cloner) cloneType(t typing.DataType, span *report.TextSpan) typing.DataType {
	ground := typing.Apply(typing.Substitute(t, c.subst))

	if !typing.IsGround(ground) {
		if !typing.DefaultAll(ground) {
			report.Throw(report.KindMono, span, "cannot resolve type `%s` for specialization", ground.Repr())
		}

		ground = typing.Apply(ground)
	}

	return ground
}

// cloneSym clones a local symbol, grounding its type.
func (c *cloner) cloneSym(sym *common.Symbol, typ typing.DataType) *common.Symbol {
	clone := &common.Symbol{
		Name:    sym.Name,
		DefKind: sym.DefKind,
		DefSpan: sym.DefSpan,
		Type:    typ,
	}

	c.symMap[sym] = clone
	return clone
}

// -----------------------------------------------------------------------------

// cloneExpr clones an expression subtree, specializing every polymorphic
// reference inside it.
func (c *cloner) cloneExpr(expr ast.Expr) ast.Expr {
	typ := c.cloneType(expr.Type(), expr.Span())

	var clone ast.Expr
	switch v := expr.(type) {
	case *ast.Literal:
		clone = ast.NewLiteral(v.Kind, v.Value, v.Span())
	case *ast.Identifier:
		clone = c.cloneIdentifier(v)
	case *ast.Lambda:
		clone = c.cloneLambda(v)
	case *ast.App:
		clone = &ast.App{
			ExprBase: ast.NewExprBase(v.Span()),
			Fn:       c.cloneExpr(v.Fn),
			Arg:      c.cloneExpr(v.Arg),
		}
	case *ast.Let:
		clone = c.cloneLet(v)
	case *ast.If:
		clone = &ast.If{
			ExprBase: ast.NewExprBase(v.Span()),
			Cond:     c.cloneExpr(v.Cond),
			Then:     c.cloneExpr(v.Then),
			Else:     c.cloneExpr(v.Else),
		}
	case *ast.Ascription:
		// Ascriptions have served their purpose once inference finishes:
		// the specialized tree keeps only the inner expression.
		return c.cloneExpr(v.Inner)
	case *ast.Pair:
		clone = &ast.Pair{
			ExprBase: ast.NewExprBase(v.Span()),
			Head:     c.cloneExpr(v.Head),
			Tail:     c.cloneExpr(v.Tail),
		}
	case *ast.PairAccess:
		clone = &ast.PairAccess{
			ExprBase: ast.NewExprBase(v.Span()),
			Pair:     c.cloneExpr(v.Pair),
			TakeHead: v.TakeHead,
		}
	case *ast.CtorApp:
		capp := &ast.CtorApp{ExprBase: ast.NewExprBase(v.Span()), Ctor: v.Ctor}
		for _, arg := range v.Args {
			capp.Args = append(capp.Args, c.cloneExpr(arg))
		}
		clone = capp
	case *ast.Match:
		clone = c.cloneMatch(v)
	default:
		report.ReportICE("specialization encountered an unknown AST node")
	}

	clone.SetType(typ)
	return clone
}

// cloneIdentifier clones a variable reference, rewriting it to point at the
// specialized instance of whatever it references.
func (c *cloner) cloneIdentifier(id *ast.Identifier) ast.Expr {
	sym := id.Sym

	if sym.DefKind == common.DefIntrinsic {
		ext := c.resolveIntrinsic(sym, id)
		return &ast.Identifier{ExprBase: ast.NewExprBase(id.Span()), Name: ext.Name, Sym: ext}
	}

	// Local bindings and parameters resolve through the symbol map; a
	// polymorphic local resolves through its per-vector specializations.
	if sym.DefKind != common.DefTopLevel && sym.DefKind != common.DefExtern {
		if specs, ok := c.localSpecs[sym]; ok {
			spec := c.requestLocal(specs, sym, id)
			return &ast.Identifier{ExprBase: ast.NewExprBase(id.Span()), Name: spec.sym.Name, Sym: spec.sym}
		}

		clone, ok := c.symMap[sym]
		if !ok {
			report.ReportICE("unresolved local symbol `%s` during specialization", sym.Name)
		}

		return &ast.Identifier{ExprBase: ast.NewExprBase(id.Span()), Name: clone.Name, Sym: clone}
	}

	// Externs pass through unspecialized.
	if sym.DefKind == common.DefExtern {
		return &ast.Identifier{ExprBase: ast.NewExprBase(id.Span()), Name: sym.Name, Sym: sym}
	}

	// Top-level reference: request the instance at the resolved type vector.
	def := c.m.src.DefsByName[sym.Name]

	var typeArgs []typing.DataType
	if len(id.TypeArgs) > 0 {
		typeArgs = make([]typing.DataType, len(id.TypeArgs))
		for i, ta := range id.TypeArgs {
			typeArgs[i] = c.cloneType(ta, id.Span())
		}
	} else if len(def.Sym.Scheme.Vars) > 0 {
		// A reference within the definition's own binding group carries no
		// instantiation: it is specialized at the types of the enclosing
		// instance.  Its quantified variables must all resolve through the
		// current substitution.
		typeArgs = make([]typing.DataType, len(def.Sym.Scheme.Vars))
		for i, v := range def.Sym.Scheme.Vars {
			arg := typing.Apply(typing.Substitute(v, c.subst))
			if !typing.IsGround(arg) {
				report.Throw(report.KindMono, id.Span(),
					"recursive use of `%s` at an unresolved type `%s`", sym.Name, arg.Repr())
			}

			typeArgs[i] = arg
		}
	}

	inst := c.m.request(def, typeArgs, id.Span())
	return &ast.Identifier{ExprBase: ast.NewExprBase(id.Span()), Name: inst.Name, Sym: inst.Sym}
}

// resolveIntrinsic selects the runtime primitive of a built-in operation from
// its fully resolved operand type.
func (c *cloner) resolveIntrinsic(sym *common.Symbol, id *ast.Identifier) *common.Symbol {
	operand := c.cloneType(id.TypeArgs[0], id.Span())

	var suffix string
	switch {
	case typing.Equals(operand, typing.Int64):
		suffix = "_int64"
	case typing.Equals(operand, typing.Float64):
		suffix = "_float64"
	default:
		report.Throw(report.KindMono, id.Span(),
			"no runtime primitive for `%s` at type `%s`", sym.Name, operand.Repr())
	}

	name := sym.Name + suffix
	if ext, ok := c.m.out.Externs[name]; ok {
		return ext
	}

	var result typing.DataType = operand
	if common.Intrinsics[sym.Name].Compare {
		result = typing.Bool
	}

	ext := &common.Symbol{
		Name:    name,
		DefKind: common.DefExtern,
		DefSpan: id.Span(),
		Type:    typing.Func(typing.Pair(operand, operand), result),
	}

	c.m.out.Externs[name] = ext
	return ext
}

// requestLocal returns the specialization of a polymorphic local at the type
// vector of the given use site, creating it on first use.  A reference from
// within the binding's own group carries no instantiation and resolves
// through the current substitution instead.
func (c *cloner) requestLocal(specs map[string]*localSpec, sym *common.Symbol, id *ast.Identifier) *localSpec {
	var typeArgs []typing.DataType
	if len(id.TypeArgs) > 0 {
		typeArgs = make([]typing.DataType, len(id.TypeArgs))
		for i, ta := range id.TypeArgs {
			typeArgs[i] = c.cloneType(ta, id.Span())
		}
	} else {
		typeArgs = make([]typing.DataType, len(sym.Scheme.Vars))
		for i, v := range sym.Scheme.Vars {
			arg := typing.Apply(typing.Substitute(v, c.subst))
			if !typing.IsGround(arg) {
				report.Throw(report.KindMono, id.Span(),
					"recursive use of `%s` at an unresolved type `%s`", sym.Name, arg.Repr())
			}

			typeArgs[i] = arg
		}
	}

	key := mangleName(sym.Name, typeArgs)
	if spec, ok := specs[key]; ok {
		return spec
	}

	mapping := make(map[int]typing.DataType, len(sym.Scheme.Vars))
	for i, v := range sym.Scheme.Vars {
		mapping[v.ID] = typeArgs[i]
	}

	spec := &localSpec{
		sym: &common.Symbol{
			Name:    key,
			DefKind: sym.DefKind,
			DefSpan: sym.DefSpan,
			Type:    c.cloneType(typing.Substitute(sym.Scheme.Body, mapping), id.Span()),
		},
		typeArgs: typeArgs,
	}

	specs[key] = spec
	return spec
}

// cloneLambda clones a function literal along with its parameter symbols and
// free-variable set.
func (c *cloner) cloneLambda(lam *ast.Lambda) ast.Expr {
	clone := &ast.Lambda{ExprBase: ast.NewExprBase(lam.Span())}

	for _, param := range lam.Params {
		clone.Params = append(clone.Params, c.cloneSym(param, c.cloneType(param.Type, param.DefSpan)))
	}

	clone.Body = c.cloneExpr(lam.Body)

	for _, fv := range lam.FreeVars {
		if mapped, ok := c.symMap[fv]; ok {
			clone.FreeVars = append(clone.FreeVars, mapped)
			continue
		}

		// A free variable that is a specialized local maps onto every spec
		// of that local requested so far: closure conversion captures all
		// of them, including any the body does not use.
		if specs, ok := c.localSpecs[fv]; ok {
			for _, key := range sortedSpecKeys(specs) {
				clone.FreeVars = append(clone.FreeVars, specs[key].sym)
			}
		}
	}

	return clone
}

// sortedSpecKeys returns the spec keys in deterministic order.
func sortedSpecKeys(specs map[string]*localSpec) []string {
	keys := make([]string, 0, len(specs))
	for key := range specs {
		keys = append(keys, key)
	}

	sort.Strings(keys)
	return keys
}

// cloneLet clones a recursive binding group.  Monomorphic bindings clone one
// to one; a binding generalized to a scheme clones once per type vector it is
// used at inside the group, and is dropped entirely when it is never used.
func (c *cloner) cloneLet(let *ast.Let) ast.Expr {
	clone := &ast.Let{ExprBase: ast.NewExprBase(let.Span())}

	type polyBinding struct {
		template *ast.LetBinding
		specs    map[string]*localSpec
		done     map[string]bool
	}

	var polys []*polyBinding
	var monos []*ast.LetBinding

	for _, b := range let.Bindings {
		if b.Sym.Scheme != nil && len(b.Sym.Scheme.Vars) > 0 {
			specs := make(map[string]*localSpec)
			c.localSpecs[b.Sym] = specs
			polys = append(polys, &polyBinding{template: b, specs: specs, done: make(map[string]bool)})
		} else {
			monos = append(monos, b)
		}
	}

	// Clone the monomorphic bindings and the body first: they register the
	// type vectors the polymorphic bindings are needed at.
	for _, b := range monos {
		sym := c.cloneSym(b.Sym, c.cloneType(b.Sym.Type, b.Sym.DefSpan))
		clone.Bindings = append(clone.Bindings, &ast.LetBinding{Sym: sym, Value: c.cloneExpr(b.Value)})
	}

	clone.Body = c.cloneExpr(let.Body)

	// Cloning a specialized value may itself demand further specializations
	// of sibling bindings, so iterate to a fixed point.
	for {
		progress := false

		for _, pb := range polys {
			keys := make([]string, 0, len(pb.specs))
			for key := range pb.specs {
				if !pb.done[key] {
					keys = append(keys, key)
				}
			}
			sort.Strings(keys)

			for _, key := range keys {
				pb.done[key] = true
				progress = true

				spec := pb.specs[key]
				cc := c.child(pb.template.Sym.Scheme.Vars, spec.typeArgs)
				clone.Bindings = append(clone.Bindings, &ast.LetBinding{
					Sym:   spec.sym,
					Value: cc.cloneExpr(pb.template.Value),
				})
			}
		}

		if !progress {
			break
		}
	}

	return clone
}

// cloneMatch clones a `case` expression.
func (c *cloner) cloneMatch(match *ast.Match) ast.Expr {
	clone := &ast.Match{
		ExprBase:  ast.NewExprBase(match.Span()),
		Scrutinee: c.cloneExpr(match.Scrutinee),
	}

	for _, arm := range match.Arms {
		armClone := &ast.MatchArm{Ctor: arm.Ctor, ArmSpan: arm.ArmSpan}
		for i, binder := range arm.Binders {
			armClone.Binders = append(armClone.Binders, c.cloneSym(binder, arm.Ctor.FieldTypes[i]))
		}

		armClone.Body = c.cloneExpr(arm.Body)
		clone.Arms = append(clone.Arms, armClone)
	}

	if match.Default != nil {
		clone.Default = c.cloneExpr(match.Default)
	}

	return clone
}

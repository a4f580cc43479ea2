// Package walk performs whole-program type inference over the expanded AST.
// The algorithm is Hindley-Milner with let-generalization: the top level is a
// single recursive binding group which is split into strongly connected
// components of the call graph, each component generalized on its own.
package walk

import (
	"github.com/Happy-Ferret/kvasir/ast"
	"github.com/Happy-Ferret/kvasir/report"
	"github.com/Happy-Ferret/kvasir/typing"
)

// Walker infers and checks the types of a whole program.
type Walker struct {
	prog *ast.Program

	solver *typing.Solver

	// rank is the current let-nesting depth.  Type variables introduced at a
	// deeper rank than the enclosing group are generalized when the group
	// closes.
	rank int

	// quantified records the IDs of every variable quantified by some scheme:
	// these are the only variables allowed to remain unbound once inference
	// completes.
	quantified map[int]struct{}
}

// WalkProgram type checks an expanded program, annotating every AST node in
// place.
func WalkProgram(prog *ast.Program) (err error) {
	defer func() {
		if x := recover(); x != nil {
			if cerr, ok := x.(*report.CompileError); ok {
				err = cerr
				return
			}

			panic(x)
		}
	}()

	w := &Walker{
		prog:       prog,
		solver:     typing.NewSolver(),
		quantified: make(map[int]struct{}),
	}

	for _, group := range sortDefGroups(prog) {
		w.walkDefGroup(group)
	}

	w.checkResidualVars()
	return nil
}

// -----------------------------------------------------------------------------

// walkDefGroup types one strongly connected component of the top-level call
// graph as a single recursive binding group.
func (w *Walker) walkDefGroup(group []*ast.Definition) {
	// Variables introduced while typing the group live at rank 1; the top
	// level itself is rank 0, so everything still unbound and at rank > 0
	// when the group closes is generalized.
	w.rank = 1

	// Give every definition in the group a monotype placeholder so the
	// definitions can refer to each other (and themselves) monomorphically
	// while the group is being typed.
	for _, def := range group {
		def.Sym.Type = w.solver.NewTypeVar(w.rank)
		def.Sym.Scheme = nil
	}

	// Seed the ascribed signatures from `define:` forms before walking any
	// body: the signature constrains every use inside the group.
	for _, def := range group {
		if def.Ascription != nil {
			w.unify(w.instantiatePlaceholders(def.Ascription, def.AscriptionVars), def.Sym.Type, def.Span)
		}
	}

	for _, def := range group {
		bodyType := w.walkExpr(def.Body)
		w.unify(def.Sym.Type, bodyType, def.Span)
	}

	// Close the group: generalize each definition at the enclosing rank.
	w.rank = 0
	for _, def := range group {
		// The entry point must end up ground: its leftover variables are
		// defaulted rather than generalized, since nothing instantiates it.
		if def == w.prog.Main {
			for _, tv := range typing.FreeVars(def.Sym.Type, nil) {
				if !typing.DefaultVar(tv) {
					report.Throw(report.KindType, def.Span,
						"ambiguous type for `main`: cannot determine `%s`", tv.Repr())
				}
			}
		}

		scheme := w.solver.Generalize(w.rank, def.Sym.Type)
		for _, v := range scheme.Vars {
			w.quantified[v.ID] = struct{}{}
		}

		def.Sym.Scheme = scheme
	}
}

// instantiatePlaceholders replaces the type parameter placeholders of a
// written signature with fresh solver variables.
func (w *Walker) instantiatePlaceholders(t typing.DataType, params []*typing.TypeVar) typing.DataType {
	if len(params) == 0 {
		return t
	}

	mapping := make(map[int]typing.DataType, len(params))
	for _, p := range params {
		mapping[p.ID] = w.solver.NewTypeVar(w.rank)
	}

	return typing.Substitute(t, mapping)
}

// unify wraps the solver's unification, throwing on failure.
func (w *Walker) unify(lhs, rhs typing.DataType, span *report.TextSpan) {
	if err := w.solver.Unify(lhs, rhs, span); err != nil {
		panic(err)
	}
}

// -----------------------------------------------------------------------------

// checkResidualVars verifies that no undetermined type variable survives
// inference: every variable must be bound, quantified by some scheme, or
// defaultable as a numeric literal.
func (w *Walker) checkResidualVars() {
	for _, def := range w.prog.Defs {
		w.checkExprVars(def.Body)
	}
}

func (w *Walker) checkExprVars(expr ast.Expr) {
	w.checkTypeVars(expr.Type(), expr.Span())

	switch v := expr.(type) {
	case *ast.Lambda:
		w.checkExprVars(v.Body)
	case *ast.App:
		w.checkExprVars(v.Fn)
		w.checkExprVars(v.Arg)
	case *ast.Let:
		for _, b := range v.Bindings {
			w.checkExprVars(b.Value)
		}
		w.checkExprVars(v.Body)
	case *ast.If:
		w.checkExprVars(v.Cond)
		w.checkExprVars(v.Then)
		w.checkExprVars(v.Else)
	case *ast.Ascription:
		w.checkExprVars(v.Inner)
	case *ast.Pair:
		w.checkExprVars(v.Head)
		w.checkExprVars(v.Tail)
	case *ast.PairAccess:
		w.checkExprVars(v.Pair)
	case *ast.CtorApp:
		for _, arg := range v.Args {
			w.checkExprVars(arg)
		}
	case *ast.Match:
		w.checkExprVars(v.Scrutinee)
		for _, arm := range v.Arms {
			w.checkExprVars(arm.Body)
		}
		if v.Default != nil {
			w.checkExprVars(v.Default)
		}
	}
}

// checkTypeVars defaults or rejects the undetermined variables of one type.
func (w *Walker) checkTypeVars(t typing.DataType, span *report.TextSpan) {
	if t == nil {
		return
	}

	for _, tv := range typing.FreeVars(t, nil) {
		if _, ok := w.quantified[tv.ID]; ok {
			continue
		}

		if !typing.DefaultVar(tv) {
			report.Throw(report.KindType, span, "ambiguous type: cannot determine `%s`", tv.Repr())
		}
	}
}

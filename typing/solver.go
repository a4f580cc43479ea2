package typing

import (
	"github.com/Happy-Ferret/kvasir/report"
)

// Solver owns the unification state for whole-program inference: it allocates
// type variables and maintains the substitution through their Value fields.
// One solver per compilation.
type Solver struct {
	// vars is the list of every type variable allocated by this solver.  A
	// variable's ID corresponds to its position within this list.
	vars []*TypeVar
}

// NewSolver creates a new type solver.
func NewSolver() *Solver {
	return &Solver{}
}

// NewTypeVar creates a fresh type variable at the given rank.
func (s *Solver) NewTypeVar(rank int) *TypeVar {
	tv := &TypeVar{ID: len(s.vars), Rank: rank}
	s.vars = append(s.vars, tv)
	return tv
}

// NewLitVar creates a fresh type variable for a numeric literal: it carries
// the default type the literal falls back to if its context never pins it
// down.
func (s *Solver) NewLitVar(rank int, def DataType) *TypeVar {
	tv := s.NewTypeVar(rank)
	tv.Default = def
	return tv
}

// -----------------------------------------------------------------------------

// Unify asserts that two types are equivalent, binding type variables as
// necessary.  On failure it returns a type error positioned at the given span.
func (s *Solver) Unify(lhs, rhs DataType, span *report.TextSpan) *report.CompileError {
	lhs, rhs = Resolve(lhs), Resolve(rhs)

	// Double type variable case: a variable always unifies with itself.  This
	// check prevents a spurious occurs failure.
	if ltv, ok := lhs.(*TypeVar); ok {
		if rtv, ok := rhs.(*TypeVar); ok && ltv.ID == rtv.ID {
			return nil
		}

		return s.bind(ltv, rhs, span)
	}

	if rtv, ok := rhs.(*TypeVar); ok {
		return s.bind(rtv, lhs, span)
	}

	lct := lhs.(*ConType)
	rct := rhs.(*ConType)

	if lct.Name != rct.Name {
		return report.Raise(report.KindType, span, "type mismatch: `%s` v `%s`", lct.Repr(), rct.Repr())
	}

	if len(lct.Args) != len(rct.Args) {
		return report.Raise(report.KindType, span, "arity mismatch: `%s` v `%s`", lct.Repr(), rct.Repr())
	}

	for i, larg := range lct.Args {
		if err := s.Unify(larg, rct.Args[i], span); err != nil {
			return err
		}
	}

	return nil
}

// bind binds an unbound type variable to a type after the occurs check,
// lowering the rank of every variable inside the bound type to the rank of
// the variable being bound.
func (s *Solver) bind(tv *TypeVar, t DataType, span *report.TextSpan) *report.CompileError {
	if occurs(tv, t) {
		return report.Raise(report.KindType, span, "infinite type: `t%d` occurs in `%s`", tv.ID, t.Repr())
	}

	lowerRank(t, tv.Rank)

	// A numeric literal variable passes its default along when bound to
	// another undetermined variable, so `(+ 1 x)`-style chains still default.
	if otv, ok := Resolve(t).(*TypeVar); ok && otv.Default == nil {
		otv.Default = tv.Default
	}

	tv.Value = t
	return nil
}

// occurs reports whether tv appears anywhere inside t.
func occurs(tv *TypeVar, t DataType) bool {
	switch v := Resolve(t).(type) {
	case *TypeVar:
		return v.ID == tv.ID
	case *ConType:
		for _, arg := range v.Args {
			if occurs(tv, arg) {
				return true
			}
		}
	}

	return false
}

// lowerRank lowers the rank of every unbound variable in t to at most rank.
func lowerRank(t DataType, rank int) {
	switch v := Resolve(t).(type) {
	case *TypeVar:
		if v.Rank > rank {
			v.Rank = rank
		}
	case *ConType:
		for _, arg := range v.Args {
			lowerRank(arg, rank)
		}
	}
}

// -----------------------------------------------------------------------------

// Generalize produces a scheme from a type at the end of a binding group.
// Every unbound variable whose rank is strictly greater than the enclosing
// rank is quantified.
func (s *Solver) Generalize(enclosingRank int, t DataType) *Scheme {
	var quantified []*TypeVar
	for _, tv := range FreeVars(t, nil) {
		if tv.Rank > enclosingRank {
			quantified = append(quantified, tv)
		}
	}

	return &Scheme{Vars: quantified, Body: t}
}

// Instantiate replaces the quantified variables of a scheme with fresh
// variables at the given rank.  It returns the instantiated body along with
// the fresh variables in scheme order: the monomorphizer keys specializations
// off the final values of exactly these variables.  Fresh variables inherit
// the literal defaults of the variables they replace, so a generalized
// literal still defaults at unpinned use sites.
func (s *Solver) Instantiate(scheme *Scheme, rank int) (DataType, []*TypeVar) {
	if len(scheme.Vars) == 0 {
		return scheme.Body, nil
	}

	fresh := make([]*TypeVar, len(scheme.Vars))
	mapping := make(map[int]DataType, len(scheme.Vars))
	for i, v := range scheme.Vars {
		fresh[i] = s.NewTypeVar(rank)
		fresh[i].Default = v.Default
		mapping[v.ID] = fresh[i]
	}

	return Substitute(scheme.Body, mapping), fresh
}

// -----------------------------------------------------------------------------

// DefaultVar binds an unbound variable to its literal default if it has one.
// It returns whether the variable is bound (either already or by defaulting).
func DefaultVar(t DataType) bool {
	tv, ok := Resolve(t).(*TypeVar)
	if !ok {
		return true
	}

	if tv.Default != nil {
		tv.Value = tv.Default
		return true
	}

	return false
}

// DefaultAll walks a type and defaults every unbound variable inside it.  It
// returns false if any variable has no default.
func DefaultAll(t DataType) bool {
	switch v := Resolve(t).(type) {
	case *TypeVar:
		return DefaultVar(v)
	case *ConType:
		for _, arg := range v.Args {
			if !DefaultAll(arg) {
				return false
			}
		}
	}

	return true
}

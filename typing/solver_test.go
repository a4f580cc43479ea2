package typing

import "testing"

func TestUnifyMakesTypesEqual(t *testing.T) {
	s := NewSolver()

	// (-> t0 (Cons t1 Bool))  v  (-> Int64 (Cons Float64 t2))
	a := Func(s.NewTypeVar(0), Pair(s.NewTypeVar(0), Bool))
	b := Func(Int64, Pair(Float64, s.NewTypeVar(0)))

	if err := s.Unify(a, b, nil); err != nil {
		t.Fatalf("unexpected unification failure: %s", err.Message)
	}

	if !Equals(Apply(a), Apply(b)) {
		t.Errorf("substituted types differ: %s v %s", Apply(a).Repr(), Apply(b).Repr())
	}

	if !IsGround(a) || !IsGround(b) {
		t.Errorf("expected both types to be ground after unification")
	}
}

func TestUnifyMismatch(t *testing.T) {
	s := NewSolver()

	tests := []struct {
		lhs, rhs DataType
	}{
		{Int64, Bool},
		{Func(Int64, Int64), Pair(Int64, Int64)},
		{Pair(Int64, Int64), Pair(Int64, Bool)},
	}

	for _, tc := range tests {
		if err := s.Unify(tc.lhs, tc.rhs, nil); err == nil {
			t.Errorf("expected mismatch: %s v %s", tc.lhs.Repr(), tc.rhs.Repr())
		}
	}
}

func TestUnifyOccursCheck(t *testing.T) {
	s := NewSolver()

	tv := s.NewTypeVar(0)
	if err := s.Unify(tv, Func(tv, Int64), nil); err == nil {
		t.Errorf("expected an occurs failure")
	}
}

func TestUnifySelf(t *testing.T) {
	s := NewSolver()

	tv := s.NewTypeVar(0)
	if err := s.Unify(tv, tv, nil); err != nil {
		t.Errorf("a variable must unify with itself")
	}
}

func TestBindLowersRank(t *testing.T) {
	s := NewSolver()

	outer := s.NewTypeVar(0)
	inner := s.NewTypeVar(2)

	if err := s.Unify(outer, Func(inner, Int64), nil); err != nil {
		t.Fatalf("unexpected unification failure: %s", err.Message)
	}

	if inner.Rank != 0 {
		t.Errorf("expected inner variable rank lowered to 0, got %d", inner.Rank)
	}
}

func TestGeneralizeByRank(t *testing.T) {
	s := NewSolver()

	deep := s.NewTypeVar(1)
	shallow := s.NewTypeVar(0)

	scheme := s.Generalize(0, Func(deep, shallow))

	if len(scheme.Vars) != 1 || scheme.Vars[0] != deep {
		t.Fatalf("expected exactly the deep variable to be quantified")
	}

	// Instantiation must produce a fresh variable, not reuse the original.
	body, fresh := s.Instantiate(scheme, 0)
	if len(fresh) != 1 || fresh[0] == deep {
		t.Fatalf("expected one fresh variable")
	}

	if Equals(body, scheme.Body) {
		t.Errorf("instantiated body must differ from the scheme body")
	}
}

func TestLiteralDefaulting(t *testing.T) {
	s := NewSolver()

	lit := s.NewLitVar(1, Int64)
	if !DefaultVar(lit) {
		t.Fatalf("literal variable must default")
	}

	if !Equals(lit, Int64) {
		t.Errorf("expected Int64 after defaulting, got %s", Resolve(lit).Repr())
	}

	plain := s.NewTypeVar(1)
	if DefaultVar(plain) {
		t.Errorf("a plain variable must not default")
	}
}

// Package mono specializes the polymorphic program into a monomorphic one.
// Starting from `main`, every reference to a generalized top-level binding at
// a concrete type produces one specialized copy keyed by the binding and its
// resolved type vector; copies are produced to a fixed point.  Polymorphic
// definitions never reached at a concrete type are discarded.
package mono

import (
	"strings"

	"github.com/Happy-Ferret/kvasir/ast"
	"github.com/Happy-Ferret/kvasir/common"
	"github.com/Happy-Ferret/kvasir/report"
	"github.com/Happy-Ferret/kvasir/typing"
)

// Instance is one specialized copy of a top-level definition.
type Instance struct {
	// Name is the mangled name of the instance: the definition name alone
	// for monomorphic definitions, otherwise suffixed with the type vector.
	Name string

	// Sym is the fresh, fully ground symbol of the instance.
	Sym *common.Symbol

	// TypeArgs is the resolved type vector of the specialization, in scheme
	// order.  Empty for monomorphic definitions.
	TypeArgs []typing.DataType

	// Body is the specialized copy of the definition body.  Every type
	// annotation inside it is ground.
	Body ast.Expr

	// def is the definition this instance was specialized from.
	def *ast.Definition
}

// Program is the monomorphized program handed to the lowerer.
type Program struct {
	// Instances holds the specialized definitions in the order they were
	// produced; `main` is always first.
	Instances []*Instance

	// InstancesByName indexes the instances by mangled name.
	InstancesByName map[string]*Instance

	// Main is the entry instance.
	Main *Instance

	// Externs holds the declared externs, which are never specialized and
	// must already be ground, plus the intrinsic primitives specialization
	// selected.  DataDefs passes through from expansion unchanged.
	Externs  map[string]*common.Symbol
	DataDefs map[string]*common.DataDef
}

// -----------------------------------------------------------------------------

// Monomorphizer expands the typed program to its specialized instances.
type Monomorphizer struct {
	src *ast.Program
	out *Program

	// worklist holds the instances whose bodies still need to be cloned.
	worklist []*Instance
}

// Monomorphize specializes a typed program starting from its entry point.
func Monomorphize(prog *ast.Program) (out *Program, err error) {
	defer func() {
		if x := recover(); x != nil {
			if cerr, ok := x.(*report.CompileError); ok {
				out, err = nil, cerr
				return
			}

			panic(x)
		}
	}()

	// The extern table is copied: specialization adds the intrinsic externs
	// it selects.
	externs := make(map[string]*common.Symbol, len(prog.Externs))
	for name, sym := range prog.Externs {
		externs[name] = sym
	}

	m := &Monomorphizer{
		src: prog,
		out: &Program{
			InstancesByName: make(map[string]*Instance),
			Externs:         externs,
			DataDefs:        prog.DataDefs,
		},
	}

	m.out.Main = m.request(prog.Main, nil, prog.Main.Span)

	// Produce specialized copies to a fixed point: cloning a body may
	// request further instances.
	for len(m.worklist) > 0 {
		inst := m.worklist[0]
		m.worklist = m.worklist[1:]

		c := newCloner(m, inst.def.Sym.Scheme, inst.TypeArgs)
		inst.Body = c.cloneExpr(inst.def.Body)
	}

	return m.out, nil
}

// request returns the instance of a definition at the given resolved type
// vector, creating and enqueueing it on first request.
func (m *Monomorphizer) request(def *ast.Definition, typeArgs []typing.DataType, span *report.TextSpan) *Instance {
	name := mangleName(def.Sym.Name, typeArgs)

	if inst, ok := m.out.InstancesByName[name]; ok {
		return inst
	}

	// Compute the ground type of the instance from the scheme body.
	instType := def.Sym.Scheme.Body
	if len(typeArgs) > 0 {
		mapping := make(map[int]typing.DataType, len(typeArgs))
		for i, v := range def.Sym.Scheme.Vars {
			mapping[v.ID] = typeArgs[i]
		}

		instType = typing.Substitute(instType, mapping)
	}
	instType = typing.Apply(instType)

	if !typing.IsGround(instType) {
		report.Throw(report.KindMono, span, "cannot specialize `%s` at a non-ground type `%s`", def.Sym.Name, instType.Repr())
	}

	inst := &Instance{
		Name: name,
		Sym: &common.Symbol{
			Name:    name,
			DefKind: common.DefTopLevel,
			DefSpan: def.Span,
			Type:    instType,
		},
		TypeArgs: typeArgs,
		def:      def,
	}

	m.out.Instances = append(m.out.Instances, inst)
	m.out.InstancesByName[name] = inst
	m.worklist = append(m.worklist, inst)

	return inst
}

// -----------------------------------------------------------------------------

// mangleName produces the unique name of a specialization.
func mangleName(base string, typeArgs []typing.DataType) string {
	if len(typeArgs) == 0 {
		return base
	}

	sb := strings.Builder{}
	sb.WriteString(base)
	sb.WriteRune('$')

	for i, arg := range typeArgs {
		if i > 0 {
			sb.WriteRune('_')
		}

		sb.WriteString(mangleType(arg))
	}

	return sb.String()
}

// mangleType renders a ground type as a name fragment.
func mangleType(t typing.DataType) string {
	ct, ok := typing.Resolve(t).(*typing.ConType)
	if !ok {
		return "unknown"
	}

	if len(ct.Args) == 0 {
		return ct.Name
	}

	name := ct.Name
	if name == typing.ConFunc {
		name = "Fn"
	}

	sb := strings.Builder{}
	sb.WriteString(name)
	for _, arg := range ct.Args {
		sb.WriteRune('.')
		sb.WriteString(mangleType(arg))
	}

	return sb.String()
}

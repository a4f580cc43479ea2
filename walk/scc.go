package walk

import "github.com/Happy-Ferret/kvasir/ast"

// sccState carries the bookkeeping of Tarjan's strongly-connected-components
// algorithm over the top-level call graph.  Each component is one
// generalization group: functions not mutually recursive with each other are
// typed in separate groups to maximize generalization.
type sccState struct {
	prog *ast.Program

	index    int
	indices  map[string]int
	lowlinks map[string]int
	onStack  map[string]bool
	stack    []string

	// components are emitted in reverse topological order: every component
	// appears after the components it depends on.
	components [][]*ast.Definition
}

// sortDefGroups splits the top-level definitions into strongly connected
// components of the call graph, dependencies first.
func sortDefGroups(prog *ast.Program) [][]*ast.Definition {
	s := &sccState{
		prog:     prog,
		indices:  make(map[string]int),
		lowlinks: make(map[string]int),
		onStack:  make(map[string]bool),
	}

	for _, def := range prog.Defs {
		if _, visited := s.indices[def.Sym.Name]; !visited {
			s.strongConnect(def)
		}
	}

	return s.components
}

func (s *sccState) strongConnect(def *ast.Definition) {
	name := def.Sym.Name
	s.indices[name] = s.index
	s.lowlinks[name] = s.index
	s.index++
	s.stack = append(s.stack, name)
	s.onStack[name] = true

	for ref := range def.Refs {
		refDef, ok := s.prog.DefsByName[ref]
		if !ok {
			continue
		}

		if _, visited := s.indices[ref]; !visited {
			s.strongConnect(refDef)

			if s.lowlinks[ref] < s.lowlinks[name] {
				s.lowlinks[name] = s.lowlinks[ref]
			}
		} else if s.onStack[ref] && s.indices[ref] < s.lowlinks[name] {
			s.lowlinks[name] = s.indices[ref]
		}
	}

	// A root node closes its component.
	if s.lowlinks[name] == s.indices[name] {
		var component []*ast.Definition
		for {
			top := s.stack[len(s.stack)-1]
			s.stack = s.stack[:len(s.stack)-1]
			s.onStack[top] = false

			component = append(component, s.prog.DefsByName[top])

			if top == name {
				break
			}
		}

		s.components = append(s.components, component)
	}
}

// Package lower converts the specialized AST into MIR.  Closure conversion
// happens here: every lambda with a non-empty free-variable set becomes a
// lifted top-level function plus a MakeClosure at its allocation site.
package lower

import (
	"fmt"
	"sort"

	"github.com/Happy-Ferret/kvasir/ast"
	"github.com/Happy-Ferret/kvasir/common"
	"github.com/Happy-Ferret/kvasir/mir"
	"github.com/Happy-Ferret/kvasir/mono"
	"github.com/Happy-Ferret/kvasir/report"
	"github.com/Happy-Ferret/kvasir/typing"
)

// Lowerer converts a monomorphized program into a MIR bundle.
type Lowerer struct {
	prog   *mono.Program
	bundle *mir.Bundle

	// scopes maps AST symbols to their lowered bindings.
	scopes []map[*common.Symbol]*loweredBinding

	// tempCounter allocates unique local names.
	tempCounter int

	// liftCounter allocates the names of lifted lambdas.
	liftCounter int
}

// loweredBinding describes how an AST symbol is accessed in MIR.
type loweredBinding struct {
	// local is the MIR-level name of the binding when it is an ordinary
	// local, parameter, or environment capture.
	local string

	// fnName and caps describe a recursive group function: references to it
	// rebuild its closure in place from its effective captures.
	fnName string
	caps   []*common.Symbol

	typ typing.DataType
}

// Lower converts the program to a MIR bundle.
func Lower(prog *mono.Program, name string) (bundle *mir.Bundle, err error) {
	defer func() {
		if x := recover(); x != nil {
			if cerr, ok := x.(*report.CompileError); ok {
				bundle, err = nil, cerr
				return
			}

			panic(x)
		}
	}()

	l := &Lowerer{
		prog:   prog,
		bundle: &mir.Bundle{Name: name, DataDefs: prog.DataDefs},
	}

	for _, extName := range sortedExternNames(prog.Externs) {
		l.bundle.Externals = append(l.bundle.Externals, &mir.ExternDef{
			Name: extName,
			Type: prog.Externs[extName].Type,
		})
	}

	for _, inst := range prog.Instances {
		l.lowerInstance(inst)
	}

	return l.bundle, nil
}

// -----------------------------------------------------------------------------

// lowerInstance lowers one specialized definition.  A definition whose body
// is a lambda becomes a function; any other definition becomes a global
// computed by a zero-parameter initializer function.
func (l *Lowerer) lowerInstance(inst *mono.Instance) {
	if lam, ok := inst.Body.(*ast.Lambda); ok {
		fn := l.lowerLambdaChain(inst.Name, lam.Params, lam.Body, nil)

		if inst == l.prog.Main {
			l.bundle.Main = fn
		}

		return
	}

	l.pushScope()
	fn := &mir.FuncImpl{
		Name:       inst.Name,
		ReturnType: typing.Apply(inst.Body.Type()),
		Body:       l.lowerExpr(inst.Body),
		Global:     inst != l.prog.Main,
	}
	l.popScope()

	l.bundle.Functions = append(l.bundle.Functions, fn)

	if inst == l.prog.Main {
		l.bundle.Main = fn
	}
}

// lowerLambdaChain lowers a possibly multi-parameter lambda into a chain of
// unary functions: the outermost function takes the first parameter and
// returns a closure over the rest, matching the unary application model.
// The captures parameter lists the symbols the function receives through its
// environment.
func (l *Lowerer) lowerLambdaChain(name string, params []*common.Symbol, body ast.Expr, captures []*common.Symbol) *mir.FuncImpl {
	fn := &mir.FuncImpl{Name: name}

	l.pushScope()

	for _, cap := range captures {
		capName := l.uniqueName(cap.Name)
		fn.EnvCaptures = append(fn.EnvCaptures, mir.Param{Name: capName, Type: typing.Apply(cap.Type)})
		l.bind(cap, &loweredBinding{local: capName, typ: typing.Apply(cap.Type)})
	}

	param := params[0]
	paramName := l.uniqueName(param.Name)
	fn.Params = []mir.Param{{Name: paramName, Type: typing.Apply(param.Type)}}
	l.bind(param, &loweredBinding{local: paramName, typ: typing.Apply(param.Type)})

	if len(params) > 1 {
		// The remaining parameters become an inner function capturing the
		// environment so far plus this parameter.
		innerCaps := append(append([]*common.Symbol{}, captures...), param)
		innerName := fmt.Sprintf("%s.c%d", name, len(params)-1)

		inner := l.lowerLambdaChain(innerName, params[1:], body, innerCaps)

		var captured []mir.Expr
		for _, cap := range innerCaps {
			captured = append(captured, l.lowerIdentifierSym(cap, nil))
		}

		fn.Body = &mir.MakeClosure{
			FnName:      inner.Name,
			Captured:    captured,
			ClosureType: inner.FnType(),
		}
		fn.ReturnType = fn.Body.Type()
	} else {
		fn.Body = l.lowerExpr(body)
		fn.ReturnType = typing.Apply(body.Type())
	}

	l.popScope()

	l.bundle.Functions = append(l.bundle.Functions, fn)
	return fn
}

// -----------------------------------------------------------------------------

// pushScope opens a new binding scope.
func (l *Lowerer) pushScope() {
	l.scopes = append(l.scopes, make(map[*common.Symbol]*loweredBinding))
}

// popScope closes the innermost binding scope.
func (l *Lowerer) popScope() {
	l.scopes = l.scopes[:len(l.scopes)-1]
}

// bind enters a lowered binding into the innermost scope.
func (l *Lowerer) bind(sym *common.Symbol, b *loweredBinding) {
	l.scopes[len(l.scopes)-1][sym] = b
}

// lookup finds the lowered binding of a symbol.
func (l *Lowerer) lookup(sym *common.Symbol) (*loweredBinding, bool) {
	for i := len(l.scopes) - 1; i >= 0; i-- {
		if b, ok := l.scopes[i][sym]; ok {
			return b, true
		}
	}

	return nil, false
}

// uniqueName produces a unique MIR-level name derived from a source name.
func (l *Lowerer) uniqueName(base string) string {
	l.tempCounter++
	return fmt.Sprintf("%s.%d", base, l.tempCounter)
}

// sortedExternNames returns the extern names in deterministic order.
func sortedExternNames(externs map[string]*common.Symbol) []string {
	names := make([]string, 0, len(externs))
	for name := range externs {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

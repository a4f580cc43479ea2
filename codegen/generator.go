// Package codegen converts MIR bundles into LLVM modules using llir/llvm.
// Functions compile to C-ABI-callable symbols taking an environment pointer
// and a single argument; closures are (function pointer, environment pointer)
// pairs; heap allocations go through the runtime's `malloc` and are handed to
// its `retain` hook.  The `release` hook is declared but never called.
package codegen

import (
	"fmt"
	"sort"

	"github.com/Happy-Ferret/kvasir/mir"
	"github.com/Happy-Ferret/kvasir/report"
	"github.com/Happy-Ferret/kvasir/typing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// globalPrefix is prepended to every Kvasir symbol to keep the program's
// namespace disjoint from the C runtime's.
const globalPrefix = "kvs."

// Generator is responsible for converting a MIR bundle into an LLVM module.
type Generator struct {
	bundle *mir.Bundle

	// mod is the LLVM module being generated.
	mod *ir.Module

	// Runtime hook declarations.
	mallocFn  *ir.Func
	retainFn  *ir.Func
	releaseFn *ir.Func

	// externs maps extern names to their C-ABI declarations.
	externs map[string]*ir.Func

	// funcs maps function names to their LLVM functions.
	funcs map[string]*ir.Func

	// externWrappers caches the closure wrappers of externs used as values.
	externWrappers map[string]*ir.Func

	// globals maps the names of top-level value definitions to their LLVM
	// globals.
	globals map[string]*ir.Global

	// globalImpls maps global names to their initializer implementations.
	globalImpls map[string]*mir.FuncImpl

	// visitedGlobals tracks initializer emission order: the stored value is
	// true while the initializer is being emitted, false once it is done.
	visitedGlobals map[string]bool

	// dataTypes maps data type names to their LLVM struct types.
	dataTypes map[string]types.Type

	// initFunc initializes the top-level value definitions.  Nil when the
	// program has none.
	initFunc *ir.Func

	// enclosingFunc is the function enclosing the block being compiled.
	enclosingFunc *ir.Func

	// block is the current block being generated.
	block *ir.Block

	// locals maps MIR local names to their values in the current function.
	locals map[string]value.Value

	// strCounter numbers anonymous string globals.
	strCounter int
}

// Generate converts a MIR bundle into an LLVM module.
func Generate(bundle *mir.Bundle) *ir.Module {
	g := &Generator{
		bundle:         bundle,
		mod:            ir.NewModule(),
		externs:        make(map[string]*ir.Func),
		funcs:          make(map[string]*ir.Func),
		externWrappers: make(map[string]*ir.Func),
		globals:        make(map[string]*ir.Global),
		globalImpls:    make(map[string]*mir.FuncImpl),
		visitedGlobals: make(map[string]bool),
		dataTypes:      make(map[string]types.Type),
	}

	g.declareDataTypes()
	g.declareRuntime()
	g.declareExterns()
	g.declareFunctions()
	g.defineGlobals()
	g.defineFunctions()
	g.defineInit()
	g.defineEntry()

	return g.mod
}

// -----------------------------------------------------------------------------

// declareDataTypes emits one named struct per algebraic data type.  Every sum
// value is a (tag, payload pointer) pair; payload layout is decided per
// constructor at the use sites.
func (g *Generator) declareDataTypes() {
	for _, name := range sortedKeys(g.bundle.DataDefs) {
		g.dataTypes[name] = g.mod.NewTypeDef(name, types.NewStruct(types.I32, types.I8Ptr))
	}
}

// declareRuntime declares the runtime hooks every generated module relies on.
func (g *Generator) declareRuntime() {
	g.mallocFn = g.mod.NewFunc("malloc", types.I8Ptr, ir.NewParam("size", types.I64))
	g.mallocFn.Linkage = enum.LinkageExternal

	g.retainFn = g.mod.NewFunc("retain", types.Void, ir.NewParam("ptr", types.I8Ptr))
	g.retainFn.Linkage = enum.LinkageExternal

	g.releaseFn = g.mod.NewFunc("release", types.Void, ir.NewParam("ptr", types.I8Ptr))
	g.releaseFn.Linkage = enum.LinkageExternal
}

// declareExterns declares the program's extern functions with their C
// signatures: one argument, encoding any tuple as a `Cons` struct.
func (g *Generator) declareExterns() {
	for _, ext := range g.bundle.Externals {
		ft := typing.Resolve(ext.Type).(*typing.ConType)
		if ft.Name != typing.ConFunc {
			report.ReportICE("extern `%s` does not have a function type", ext.Name)
		}

		llFunc := g.mod.NewFunc(
			ext.Name,
			g.convType(ft.Args[1]),
			ir.NewParam("arg", g.convType(ft.Args[0])),
		)
		llFunc.Linkage = enum.LinkageExternal

		g.externs[ext.Name] = llFunc
	}
}

// declareFunctions declares every Kvasir function ahead of body generation so
// bodies can reference each other freely.  Global initializer thunks are not
// declared: they are inlined into the module init function.
func (g *Generator) declareFunctions() {
	for _, fn := range g.bundle.Functions {
		if fn.Global {
			g.globalImpls[fn.Name] = fn
			continue
		}

		params := []*ir.Param{ir.NewParam("env", types.I8Ptr)}
		for _, p := range fn.Params {
			params = append(params, ir.NewParam(p.Name, g.convType(p.Type)))
		}

		llFunc := g.mod.NewFunc(globalPrefix+fn.Name, g.convType(fn.ReturnType), params...)
		llFunc.Linkage = enum.LinkageInternal

		g.funcs[fn.Name] = llFunc
	}
}

// defineGlobals emits a zero-initialized global per top-level value
// definition.
func (g *Generator) defineGlobals() {
	for _, name := range sortedKeys(g.globalImpls) {
		impl := g.globalImpls[name]

		glob := g.mod.NewGlobalDef(globalPrefix+name, constant.NewZeroInitializer(g.convType(impl.ReturnType)))
		glob.Linkage = enum.LinkageInternal

		g.globals[name] = glob
	}
}

// defineFunctions generates the bodies of every declared function.
func (g *Generator) defineFunctions() {
	for _, fn := range g.bundle.Functions {
		if fn.Global {
			continue
		}

		g.defineFunction(fn)
	}
}

// defineFunction generates one function body.
func (g *Generator) defineFunction(fn *mir.FuncImpl) {
	llFunc := g.funcs[fn.Name]

	g.enclosingFunc = llFunc
	g.block = llFunc.NewBlock("entry")
	g.locals = make(map[string]value.Value)

	// Unpack the environment captures in front of the body.
	if len(fn.EnvCaptures) > 0 {
		var capTypes []types.Type
		for _, cap := range fn.EnvCaptures {
			capTypes = append(capTypes, g.convType(cap.Type))
		}

		envType := types.NewStruct(capTypes...)
		envPtr := g.block.NewBitCast(llFunc.Params[0], types.NewPointer(envType))

		for i, cap := range fn.EnvCaptures {
			fieldPtr := g.block.NewGetElementPtr(
				envType, envPtr,
				constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(i)),
			)
			g.locals[cap.Name] = g.block.NewLoad(capTypes[i], fieldPtr)
		}
	}

	for i, p := range fn.Params {
		g.locals[p.Name] = llFunc.Params[i+1]
	}

	result := g.genExpr(fn.Body)
	g.block.NewRet(result)
}

// -----------------------------------------------------------------------------

// defineInit emits the module init function which computes the top-level
// value definitions in dependency order.
func (g *Generator) defineInit() {
	if len(g.globalImpls) == 0 {
		return
	}

	g.initFunc = g.mod.NewFunc(globalPrefix+"init", types.Void)
	g.initFunc.Linkage = enum.LinkageInternal

	g.enclosingFunc = g.initFunc
	g.block = g.initFunc.NewBlock("entry")
	g.locals = make(map[string]value.Value)

	for _, name := range sortedKeys(g.globalImpls) {
		g.visitGlobal(name)
	}

	g.block.NewRet(nil)
}

// visitGlobal emits the initializer of a global after the initializers of
// every global it references.
func (g *Generator) visitGlobal(name string) {
	if inProgress, ok := g.visitedGlobals[name]; ok {
		if inProgress {
			report.ReportICE("cyclic initialization of top-level value `%s`", name)
		}

		return
	}

	g.visitedGlobals[name] = true

	impl := g.globalImpls[name]
	for _, dep := range globalRefs(impl.Body, nil) {
		if _, isGlobal := g.globalImpls[dep]; isGlobal && dep != name {
			g.visitGlobal(dep)
		}
	}

	g.locals = make(map[string]value.Value)
	g.block.NewStore(g.genExpr(impl.Body), g.globals[name])

	g.visitedGlobals[name] = false
}

// globalRefs accumulates the names of the global references inside a MIR
// expression.
func globalRefs(expr mir.Expr, acc []string) []string {
	switch v := expr.(type) {
	case *mir.GlobalRef:
		if !v.Extern {
			acc = append(acc, v.Name)
		}
	case *mir.Call:
		acc = globalRefs(v.Callee, acc)
		acc = globalRefs(v.Arg, acc)
	case *mir.If:
		acc = globalRefs(v.Cond, acc)
		acc = globalRefs(v.Then, acc)
		acc = globalRefs(v.Else, acc)
	case *mir.Let:
		acc = globalRefs(v.Value, acc)
		acc = globalRefs(v.Body, acc)
	case *mir.MakeClosure:
		for _, cap := range v.Captured {
			acc = globalRefs(cap, acc)
		}
	case *mir.MakePair:
		acc = globalRefs(v.Head, acc)
		acc = globalRefs(v.Tail, acc)
	case *mir.PairHead:
		acc = globalRefs(v.Pair, acc)
	case *mir.PairTail:
		acc = globalRefs(v.Pair, acc)
	case *mir.Load:
		acc = globalRefs(v.Ptr, acc)
	case *mir.Store:
		acc = globalRefs(v.Ptr, acc)
		acc = globalRefs(v.Value, acc)
	case *mir.Tag:
		if v.Payload != nil {
			acc = globalRefs(v.Payload, acc)
		}
	case *mir.TagIs:
		acc = globalRefs(v.Value, acc)
	case *mir.GetTag:
		acc = globalRefs(v.Value, acc)
	case *mir.GetPayload:
		acc = globalRefs(v.Value, acc)
	}

	return acc
}

// -----------------------------------------------------------------------------

// defineEntry emits the C `main` wrapping the program entry.
func (g *Generator) defineEntry() {
	entry := g.mod.NewFunc("main", types.I32)

	g.enclosingFunc = entry
	g.block = entry.NewBlock("entry")
	g.locals = make(map[string]value.Value)

	if g.initFunc != nil {
		g.block.NewCall(g.initFunc)
	}

	mainFn := g.funcs[g.bundle.Main.Name]

	args := []value.Value{constant.NewNull(types.I8Ptr)}
	for _, p := range g.bundle.Main.Params {
		// An entry taking a parameter receives the initial RealWorld token:
		// a zero value of the parameter type.
		args = append(args, constant.NewZeroInitializer(g.convType(p.Type)))
	}

	g.block.NewCall(mainFn, args...)
	g.block.NewRet(constant.NewInt(types.I32, 0))
}

// -----------------------------------------------------------------------------

// sortedKeys returns the keys of a map in sorted order for deterministic
// emission.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)
	return keys
}

// tempName produces a unique name for an anonymous global.
func (g *Generator) tempName(prefix string) string {
	g.strCounter++
	return fmt.Sprintf("%s.%d", prefix, g.strCounter)
}

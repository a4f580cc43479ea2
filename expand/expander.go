// Package expand converts the untyped s-expression tree into the core AST.
// It rewrites the surface special forms, performs name resolution in the same
// pass, and records the free-variable set of every lambda for later use by
// closure conversion.
package expand

import (
	"github.com/Happy-Ferret/kvasir/ast"
	"github.com/Happy-Ferret/kvasir/common"
	"github.com/Happy-Ferret/kvasir/report"
	"github.com/Happy-Ferret/kvasir/syntax"
	"github.com/Happy-Ferret/kvasir/typing"
)

// Importer resolves an `(import <name>)` form to the top-level s-expressions
// of the named library.  The driver supplies an importer that searches the
// directory of the root source file, then the project's configured import
// paths, then the compiler's internal library directory.  A library imported
// from another library is looked up the same way: the importing library's own
// directory is not searched.
type Importer func(name string, span *report.TextSpan) ([]syntax.Sexpr, error)

// Expander converts top-level s-expressions into a resolved program.
type Expander struct {
	prog *ast.Program

	importer Importer

	// imported tracks the libraries already injected so a library shared by
	// several files is only expanded once.
	imported map[string]struct{}

	// topLevel is the flattened list of top-level forms after all imports
	// have been textually injected.
	topLevel []*syntax.List

	// scopes is the stack of local scopes.  Each scope records the lambda
	// nesting depth at which it was opened so identifier resolution can
	// compute free-variable sets.
	scopes []*scope

	// lambdas is the stack of lambdas enclosing the expression currently
	// being expanded.
	lambdas []*ast.Lambda

	// currentDef is the definition whose body is being expanded: resolved
	// references to other top-level definitions are recorded on it.
	currentDef *ast.Definition

	// typeParamCounter allocates the negative IDs of type parameter
	// placeholders, keeping them disjoint from the solver's variables.
	typeParamCounter int

	// intrinsics holds the shared symbols of the built-in operations.
	intrinsics map[string]*common.Symbol
}

// scope is a single local binding frame.
type scope struct {
	syms map[string]*common.Symbol

	// lambdaDepth is the number of lambdas enclosing this scope.
	lambdaDepth int
}

// Expand expands a whole program from the top-level forms of the root file.
func Expand(root []syntax.Sexpr, importer Importer) (prog *ast.Program, err error) {
	defer func() {
		if x := recover(); x != nil {
			if cerr, ok := x.(*report.CompileError); ok {
				prog, err = nil, cerr
				return
			}

			panic(x)
		}
	}()

	e := &Expander{
		prog:       ast.NewProgram(),
		importer:   importer,
		imported:   make(map[string]struct{}),
		intrinsics: make(map[string]*common.Symbol),
	}

	// First pass: inject imports and register every top-level name so that
	// forward references resolve (the top level is a single letrec).
	e.collectTopLevel(root)
	e.registerTopLevel()

	// Second pass: expand the definition bodies.
	e.expandBodies()

	if e.prog.Main == nil {
		report.Throw(report.KindExpand, nil, "program has no `main` definition")
	}

	return e.prog, nil
}

// -----------------------------------------------------------------------------

// collectTopLevel flattens the root file and all its imports into a single
// list of top-level forms.  Imports are fully expanded before their caller
// continues, which keeps the result insensitive to ordering across files.
func (e *Expander) collectTopLevel(forms []syntax.Sexpr) {
	for _, form := range forms {
		list, ok := form.(*syntax.List)
		if !ok || len(list.Items) == 0 {
			report.Throw(report.KindExpand, form.Span(), "expected a top-level form")
		}

		if head, ok := headSymbol(list); ok && head == "import" {
			e.expandImport(list)
			continue
		}

		e.topLevel = append(e.topLevel, list)
	}
}

// expandImport textually injects the named library.
func (e *Expander) expandImport(list *syntax.List) {
	if len(list.Items) != 2 {
		report.Throw(report.KindExpand, list.Span(), "`import` takes exactly one library name")
	}

	name, ok := atomSymbol(list.Items[1])
	if !ok {
		report.Throw(report.KindExpand, list.Items[1].Span(), "`import` expects a library name symbol")
	}

	// A library shared by several files is injected only once.
	if _, done := e.imported[name]; done {
		return
	}
	e.imported[name] = struct{}{}

	if e.importer == nil {
		report.Throw(report.KindExpand, list.Span(), "no import path available for library `%s`", name)
	}

	forms, err := e.importer(name, list.Span())
	if err != nil {
		report.Throw(report.KindExpand, list.Span(), "cannot import library `%s`: %s", name, err)
	}

	e.collectTopLevel(forms)
}

// -----------------------------------------------------------------------------

// registerTopLevel registers the names bound by every top-level form before
// any body is expanded.  Data type names are registered first so constructor
// fields and extern signatures can reference data types declared later in the
// file, including recursively.
func (e *Expander) registerTopLevel() {
	for _, list := range e.topLevel {
		if head, _ := headSymbol(list); head == "data" {
			e.registerDataName(list)
		}
	}

	for _, list := range e.topLevel {
		head, _ := headSymbol(list)

		switch head {
		case "define", "define:":
			e.registerDefine(list, head == "define:")
		case "extern":
			e.registerExtern(list)
		case "data":
			e.registerDataCtors(list)
		default:
			report.Throw(report.KindExpand, list.Span(), "unknown top-level form: `%s`", head)
		}
	}
}

// registerDefine registers a `define` or `define:` without expanding its
// body.
func (e *Expander) registerDefine(list *syntax.List, ascribed bool) {
	minLen := 3
	if ascribed {
		minLen = 4
	}

	if len(list.Items) < minLen {
		report.Throw(report.KindExpand, list.Span(), "malformed `define` form")
	}

	var name string
	switch target := list.Items[1].(type) {
	case *syntax.Atom:
		if target.Tok.Kind != syntax.TOK_SYMBOL {
			report.Throw(report.KindExpand, target.Span(), "`define` target must be a symbol")
		}

		name = target.Tok.Value
	case *syntax.List:
		// Function shorthand: `(define (f a b) body)`.
		if len(target.Items) == 0 {
			report.Throw(report.KindExpand, target.Span(), "malformed `define` function shorthand")
		}

		fnName, ok := atomSymbol(target.Items[0])
		if !ok {
			report.Throw(report.KindExpand, target.Items[0].Span(), "function name must be a symbol")
		}

		name = fnName
	}

	e.checkRedefinition(name, list.Span())

	def := &ast.Definition{
		Sym: &common.Symbol{
			Name:    name,
			DefKind: common.DefTopLevel,
			DefSpan: list.Span(),
		},
		Span: list.Span(),
		Refs: make(map[string]struct{}),
	}

	e.prog.Defs = append(e.prog.Defs, def)
	e.prog.DefsByName[name] = def

	if name == "main" {
		e.prog.Main = def
	}
}

// registerExtern registers an `(extern <name> <type>)` declaration.  The
// declared type must be monomorphic: an extern is resolved by the linker and
// cannot be specialized.
func (e *Expander) registerExtern(list *syntax.List) {
	if len(list.Items) != 3 {
		report.Throw(report.KindExpand, list.Span(), "`extern` takes a name and a type")
	}

	name, ok := atomSymbol(list.Items[1])
	if !ok {
		report.Throw(report.KindExpand, list.Items[1].Span(), "`extern` name must be a symbol")
	}

	e.checkRedefinition(name, list.Span())

	typ, params := e.expandTypeExpr(list.Items[2], make(map[string]*typing.TypeVar))
	if len(params) > 0 {
		report.Throw(report.KindExpand, list.Items[2].Span(), "extern `%s` declares a non-ground type", name)
	}

	e.prog.Externs[name] = &common.Symbol{
		Name:    name,
		DefKind: common.DefExtern,
		DefSpan: list.Span(),
		Type:    typ,
	}
}

// registerDataName registers the bare name of a `(data <Name> <ctor>...)`
// declaration so later type expressions can refer to it.
func (e *Expander) registerDataName(list *syntax.List) {
	if len(list.Items) < 3 {
		report.Throw(report.KindExpand, list.Span(), "`data` needs a name and at least one constructor")
	}

	name, ok := atomSymbol(list.Items[1])
	if !ok {
		report.Throw(report.KindExpand, list.Items[1].Span(), "`data` name must be a symbol")
	}

	if _, exists := e.prog.DataDefs[name]; exists {
		report.Throw(report.KindExpand, list.Span(), "data type `%s` declared multiple times", name)
	}
	if _, isPrim := typing.GetPrimitive(name); isPrim {
		report.Throw(report.KindExpand, list.Span(), "data type `%s` shadows a built-in type", name)
	}

	e.prog.DataDefs[name] = &common.DataDef{
		Name:    name,
		DefSpan: list.Span(),
		Type:    &typing.ConType{Name: name},
	}
}

// registerDataCtors registers the constructors of a `data` declaration.
func (e *Expander) registerDataCtors(list *syntax.List) {
	name, _ := atomSymbol(list.Items[1])
	dd := e.prog.DataDefs[name]

	for _, ctorForm := range list.Items[2:] {
		ctor := e.expandCtorDecl(dd, ctorForm)

		e.checkRedefinition(ctor.Name, ctorForm.Span())
		if _, dup := e.prog.Ctors[ctor.Name]; dup {
			report.Throw(report.KindExpand, ctorForm.Span(), "constructor `%s` declared multiple times", ctor.Name)
		}

		ctor.Index = len(dd.Ctors)
		dd.Ctors = append(dd.Ctors, ctor)
		e.prog.Ctors[ctor.Name] = ctor
	}
}

// expandCtorDecl expands a single constructor declaration: either a bare
// symbol or `(CName <field-type>...)`.
func (e *Expander) expandCtorDecl(dd *common.DataDef, form syntax.Sexpr) *common.DataCtor {
	switch v := form.(type) {
	case *syntax.Atom:
		name, ok := atomSymbol(v)
		if !ok {
			report.Throw(report.KindExpand, v.Span(), "constructor name must be a symbol")
		}

		return &common.DataCtor{Name: name, Parent: dd}
	case *syntax.List:
		if len(v.Items) < 2 {
			report.Throw(report.KindExpand, v.Span(), "constructor with fields needs at least one field type")
		}

		name, ok := atomSymbol(v.Items[0])
		if !ok {
			report.Throw(report.KindExpand, v.Items[0].Span(), "constructor name must be a symbol")
		}

		fields := make([]typing.DataType, len(v.Items)-1)
		for i, fieldForm := range v.Items[1:] {
			typ, params := e.expandTypeExpr(fieldForm, make(map[string]*typing.TypeVar))
			if len(params) > 0 {
				report.Throw(report.KindExpand, fieldForm.Span(), "constructor fields must be ground types")
			}

			fields[i] = typ
		}

		return &common.DataCtor{Name: name, Parent: dd, FieldTypes: fields}
	}

	// unreachable
	return nil
}

// checkRedefinition throws if the name is already bound at the top level.
// Duplicate `define` across files is an error: imports are textual and share
// one namespace.
func (e *Expander) checkRedefinition(name string, span *report.TextSpan) {
	if _, ok := e.prog.DefsByName[name]; ok {
		report.Throw(report.KindExpand, span, "`%s` defined multiple times", name)
	}
	if _, ok := e.prog.Externs[name]; ok {
		report.Throw(report.KindExpand, span, "`%s` conflicts with an extern declaration", name)
	}
	if _, ok := e.prog.Ctors[name]; ok {
		report.Throw(report.KindExpand, span, "`%s` conflicts with a data constructor", name)
	}
}

// -----------------------------------------------------------------------------

// expandBodies expands the bodies of every registered definition.
func (e *Expander) expandBodies() {
	ndx := 0
	for _, list := range e.topLevel {
		head, _ := headSymbol(list)
		if head != "define" && head != "define:" {
			continue
		}

		def := e.prog.Defs[ndx]
		ndx++

		e.currentDef = def
		e.expandDefineBody(def, list, head == "define:")
		e.currentDef = nil
	}
}

// expandDefineBody expands the body of a `define` or `define:` form into the
// definition registered for it.
func (e *Expander) expandDefineBody(def *ast.Definition, list *syntax.List, ascribed bool) {
	bodyStart := 2
	if ascribed {
		// `(define: (f a...) <sig> <body>...)`
		bodyStart = 3

		params := make(map[string]*typing.TypeVar)
		typ, paramVars := e.expandTypeExpr(list.Items[2], params)
		def.Ascription = typ
		def.AscriptionVars = paramVars
	}

	body := e.implicitBegin(list.Items[bodyStart:], list.Span())

	if target, ok := list.Items[1].(*syntax.List); ok {
		// Function shorthand: wrap the body in a lambda over the parameters.
		def.Body = e.expandLambdaOver(target.Items[1:], body, list.Span())
	} else {
		def.Body = e.expandExpr(body)
	}
}

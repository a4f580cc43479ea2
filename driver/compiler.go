package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Happy-Ferret/kvasir/codegen"
	"github.com/Happy-Ferret/kvasir/common"
	"github.com/Happy-Ferret/kvasir/expand"
	"github.com/Happy-Ferret/kvasir/lower"
	"github.com/Happy-Ferret/kvasir/mono"
	"github.com/Happy-Ferret/kvasir/report"
	"github.com/Happy-Ferret/kvasir/syntax"
	"github.com/Happy-Ferret/kvasir/walk"
)

// BuildOptions carries the command-line configuration of a compilation.
type BuildOptions struct {
	// KvasirPath is the compiler's installation directory: it contains the
	// standard library under `std/` and the C runtime under `runtime/`.
	KvasirPath string

	// OutputPath is the requested output path, empty for the default.
	OutputPath string

	// LinkLibs are the libraries forwarded verbatim to the link step.
	LinkLibs []string

	// EmitLLVM stops compilation after writing the LLVM IR text.
	EmitLLVM bool
}

// Compiler represents the overall state of a compilation.
type Compiler struct {
	// rootAbsPath is the absolute path to the root source file.
	rootAbsPath string

	// rootDir is the directory of the root source file.
	rootDir string

	// outputPath is the resolved output path.
	outputPath string

	opts *BuildOptions

	// config is the optional project file configuration.
	config *ProjectConfig

	// importedFiles tracks every source file read during import resolution,
	// keyed by absolute path.
	importedFiles map[string]struct{}
}

// NewCompiler creates a new compiler for the given root file.
func NewCompiler(rootPath string, opts *BuildOptions) *Compiler {
	rootAbsPath, err := filepath.Abs(rootPath)
	if err != nil {
		report.ReportFatal("error calculating absolute path: %s", err.Error())
	}

	c := &Compiler{
		rootAbsPath:   rootAbsPath,
		rootDir:       filepath.Dir(rootAbsPath),
		opts:          opts,
		importedFiles: make(map[string]struct{}),
	}

	c.config = LoadProjectConfig(c.rootDir)
	c.outputPath = c.resolveOutputPath()

	return c
}

// resolveOutputPath picks the output path: the flag wins over the project
// file, which wins over the default derived from the root file name.
func (c *Compiler) resolveOutputPath() string {
	if c.opts.OutputPath != "" {
		return c.opts.OutputPath
	}

	if c.config != nil && c.config.Output != "" {
		return filepath.Join(c.rootDir, c.config.Output)
	}

	base := strings.TrimSuffix(filepath.Base(c.rootAbsPath), common.SrcFileExtension)
	if c.opts.EmitLLVM {
		return base + ".ll"
	}

	return base
}

// -----------------------------------------------------------------------------

// Compile runs the whole pipeline: read, expand, infer, specialize, lower,
// generate, and link.  It returns whether compilation succeeded.  Each phase
// runs to completion before the next begins; the first error aborts.
func (c *Compiler) Compile() bool {
	if filepath.Ext(c.rootAbsPath) != common.SrcFileExtension {
		report.ReportFatal("input file must have the `%s` extension", common.SrcFileExtension)
	}

	// Read the root file into s-expressions.
	forms, ok := c.readSource(c.rootAbsPath)
	if !ok {
		return false
	}

	// Expand, resolving imports through the search path.
	prog, err := expand.Expand(forms, c.importLibrary)
	if err != nil {
		report.ReportCompileError(c.rootAbsPath, c.reprPath(c.rootAbsPath), err.(*report.CompileError))
		return false
	}

	// Infer and check types across the whole program.
	if err := walk.WalkProgram(prog); err != nil {
		report.ReportCompileError(c.rootAbsPath, c.reprPath(c.rootAbsPath), err.(*report.CompileError))
		return false
	}

	// Specialize from `main` to a fixed point.
	monoProg, err := mono.Monomorphize(prog)
	if err != nil {
		report.ReportCompileError(c.rootAbsPath, c.reprPath(c.rootAbsPath), err.(*report.CompileError))
		return false
	}

	// Lower to MIR with closure conversion.
	bundle, err := lower.Lower(monoProg, c.programName())
	if err != nil {
		report.ReportCompileError(c.rootAbsPath, c.reprPath(c.rootAbsPath), err.(*report.CompileError))
		return false
	}

	// Generate LLVM IR.
	mod := codegen.Generate(bundle)

	if c.opts.EmitLLVM {
		if err := os.WriteFile(c.outputPath, []byte(mod.String()), 0o644); err != nil {
			report.ReportFatal("failed to write LLVM IR: %s", err.Error())
		}

		return true
	}

	// Write the IR to a temporary directory and hand it to the toolchain.
	tempDir, err := os.MkdirTemp("", "kvasir")
	if err != nil {
		report.ReportFatal("failed to create temporary directory: %s", err.Error())
	}

	llPath := filepath.Join(tempDir, c.programName()+".ll")
	if err := os.WriteFile(llPath, []byte(mod.String()), 0o644); err != nil {
		report.ReportFatal("failed to write LLVM IR: %s", err.Error())
	}

	c.linkExecutable(llPath)

	// Intermediate artifacts are removed on success.
	if err := os.RemoveAll(tempDir); err != nil {
		report.ReportFatal("failed to remove temporary directory: %s", err.Error())
	}

	return true
}

// programName derives the program name from the project file or the root
// file's base name.
func (c *Compiler) programName() string {
	if c.config != nil && c.config.Name != "" {
		return c.config.Name
	}

	return strings.TrimSuffix(filepath.Base(c.rootAbsPath), common.SrcFileExtension)
}

// reprPath shortens a source path for diagnostics.
func (c *Compiler) reprPath(absPath string) string {
	if rel, err := filepath.Rel(c.rootDir, absPath); err == nil {
		return rel
	}

	return absPath
}

// -----------------------------------------------------------------------------

// readSource reads and parses one source file into top-level s-expressions.
func (c *Compiler) readSource(absPath string) ([]syntax.Sexpr, bool) {
	file, err := os.Open(absPath)
	if err != nil {
		report.ReportFatal("unable to open source file `%s`: %s", absPath, err.Error())
	}
	defer file.Close()

	c.importedFiles[absPath] = struct{}{}

	forms, err := syntax.ReadSource(file)
	if err != nil {
		if cerr, ok := err.(*report.CompileError); ok {
			report.ReportCompileError(absPath, c.reprPath(absPath), cerr)
		} else {
			report.ReportStdError(c.reprPath(absPath), err)
		}

		return nil, false
	}

	return forms, true
}

// importLibrary resolves an `(import <name>)` form.  The lookup path is, in
// order: the directory of the root file, the project's configured import
// paths, and the compiler's internal library directory.
func (c *Compiler) importLibrary(name string, span *report.TextSpan) ([]syntax.Sexpr, error) {
	fileName := name + common.SrcFileExtension

	searchDirs := []string{c.rootDir}
	if c.config != nil {
		searchDirs = append(searchDirs, c.config.ImportPaths...)
	}
	searchDirs = append(searchDirs, filepath.Join(c.opts.KvasirPath, "std"))

	for _, dir := range searchDirs {
		absPath := filepath.Join(dir, fileName)
		if _, err := os.Stat(absPath); err != nil {
			continue
		}

		file, err := os.Open(absPath)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		c.importedFiles[absPath] = struct{}{}
		return syntax.ReadSource(file)
	}

	return nil, fmt.Errorf("library `%s` not found on the import path", name)
}

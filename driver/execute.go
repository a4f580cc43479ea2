// Package driver is the top-level package for the Kvasir compiler: it parses
// command-line arguments, manages compiler state, and runs all the phases of
// compilation in order.
package driver

import (
	"os"
	"strings"

	"github.com/Happy-Ferret/kvasir/common"
	"github.com/Happy-Ferret/kvasir/report"

	"github.com/ComedicChimera/olive"
)

// Execute is the main entry point for the `kvasir` CLI utility.  It returns
// the process exit code.
func Execute() int {
	// Compilation cannot proceed without the KVASIR_PATH: it locates the
	// standard library and the C runtime.
	kvasirPath := initKvasirPath()

	// Set up the argument parser: `kvasir [options] <input.kvs>`.
	cli := olive.NewCLI("kvasir", "kvasir is an ahead-of-time compiler for the Kvasir language", true)
	cli.AddPrimaryArg("input-path", "the path to the root source file", true)

	outArg := cli.AddStringArg("outpath", "o", "the path of the produced executable", false)
	outArg.SetDefaultValue("")

	libsArg := cli.AddStringArg("libs", "l", "comma-separated list of libraries forwarded to the linker", false)
	libsArg.SetDefaultValue("")

	logLvlArg := cli.AddSelectorArg("loglevel", "ll", "the compiler log level", false,
		[]string{"silent", "error", "warn", "verbose"})
	logLvlArg.SetDefaultValue("verbose")

	modeArg := cli.AddSelectorArg("outmode", "m", "the kind of output to produce", false,
		[]string{"exe", "llvm"})
	modeArg.SetDefaultValue("exe")

	// Run the argument parser.
	result, err := olive.ParseArgs(cli, os.Args)
	if err != nil {
		report.ReportFatal("%s", err.Error())
	}

	// Initialize the reporter from the selected log level.
	switch result.Arguments["loglevel"].(string) {
	case "silent":
		report.InitReporter(report.LogLevelSilent)
	case "error":
		report.InitReporter(report.LogLevelError)
	case "warn":
		report.InitReporter(report.LogLevelWarn)
	default:
		report.InitReporter(report.LogLevelVerbose)
	}

	rootPath, _ := result.PrimaryArg()

	var linkLibs []string
	if libs := result.Arguments["libs"].(string); libs != "" {
		linkLibs = strings.Split(libs, ",")
	}

	c := NewCompiler(rootPath, &BuildOptions{
		KvasirPath: kvasirPath,
		OutputPath: result.Arguments["outpath"].(string),
		LinkLibs:   linkLibs,
		EmitLLVM:   result.Arguments["outmode"].(string) == "llvm",
	})

	if !c.Compile() {
		return 1
	}

	report.DisplayCompilationFinished(c.outputPath)
	return 0
}

// initKvasirPath checks for a valid KVASIR_PATH and returns it.
func initKvasirPath() string {
	kvasirPath, ok := os.LookupEnv("KVASIR_PATH")
	if !ok {
		report.ReportFatal("missing KVASIR_PATH environment variable")
	}

	finfo, err := os.Stat(kvasirPath)
	if err != nil {
		report.ReportFatal("error loading KVASIR_PATH: %s", err.Error())
	}

	if !finfo.IsDir() {
		report.ReportFatal("error loading KVASIR_PATH: must point to a directory")
	}

	return kvasirPath
}

// Version returns the full compiler identification string.
func Version() string {
	return common.KvasirCompilerID
}

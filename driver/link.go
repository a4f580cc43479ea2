package driver

import (
	"os/exec"
	"path/filepath"

	"github.com/Happy-Ferret/kvasir/report"
)

// linkExecutable produces the final executable by handing the generated LLVM
// IR and the C runtime to clang.
func (c *Compiler) linkExecutable(llPath string) {
	runtimePath := filepath.Join(c.opts.KvasirPath, "runtime", "core.c")

	args := []string{
		"-O1",
		llPath,
		runtimePath,
		"-o", c.outputPath,
	}

	// Project-file libraries first, then the -l flags, forwarded verbatim.
	if c.config != nil {
		for _, lib := range c.config.LinkLibs {
			args = append(args, "-l"+lib)
		}
	}
	for _, lib := range c.opts.LinkLibs {
		args = append(args, "-l"+lib)
	}

	linkCommand := exec.Command("clang", args...)

	out, err := linkCommand.CombinedOutput()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			// Exit error => we were able to find the toolchain, but it
			// rejected the input.  Show its output to the user.
			report.ReportFatal("link error:\n%s", string(out))
		} else {
			// Some other error: probably couldn't find clang.
			report.ReportFatal("failed to run clang: %s", err)
		}
	}
}

package report

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
)

var (
	SuccessColorFG = pterm.FgLightGreen
	SuccessStyleBG = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	WarnColorFG    = pterm.FgYellow
	WarnStyleBG    = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	ErrorColorFG   = pterm.FgRed
	ErrorStyleBG   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
)

// displayICE displays an internal compiler error message.
func displayICE(message string) {
	ErrorStyleBG.Print("internal compiler error")
	fmt.Printf(" %s\n", message)
	fmt.Print("This error was not supposed to happen: please open an issue on GitHub\n\n")
}

// displayFatal displays a fatal error message.
func displayFatal(message string) {
	ErrorStyleBG.Print("fatal error")
	fmt.Printf(" %s\n\n", message)
}

// displayCompileError displays a compilation error.  The first line printed is
// always the single-line diagnostic of the form:
//
//	<file>:<line>:<col>: <kind>: <message>
//
// so that tooling can locate the error without parsing the source excerpt that
// follows it.  An error without a span prints `<file>: <kind>: <message>`
// with no position and no excerpt.
func displayCompileError(absPath, reprPath string, cerr *CompileError) {
	label := kindStrings[cerr.Kind]

	if cerr.Span == nil {
		fmt.Printf("%s: %s: %s\n\n", reprPath, label, cerr.Message)
		return
	}

	fmt.Printf("%s:%d:%d: ", reprPath, cerr.Span.StartLine+1, cerr.Span.StartCol+1)
	ErrorColorFG.Print(label)
	fmt.Printf(": %s\n\n", cerr.Message)

	if rep.logLevel >= LogLevelVerbose {
		displaySourceText(absPath, cerr.Span)
	}
}

// displayStdError displays a standard Go error.
func displayStdError(reprPath string, err error) {
	fmt.Printf("%s: error: %s\n\n", reprPath, err)
}

// -----------------------------------------------------------------------------

// displaySourceText displays a segment of source text defined by a text span.
func displaySourceText(absPath string, span *TextSpan) {
	// Open the file so we can read the desired source text.
	file, err := os.Open(absPath)
	if err != nil {
		// The file may not exist on disk (eg. test input): skip the excerpt.
		return
	}
	defer file.Close()

	// Collect all the source lines containing the given source text.
	var lines []string
	sc := bufio.NewScanner(file)
	for ln := 0; sc.Scan(); ln++ {
		if span.StartLine <= ln && ln <= span.EndLine {
			lines = append(lines, strings.ReplaceAll(sc.Text(), "\t", "    "))
		}
	}

	if err := sc.Err(); err != nil || len(lines) == 0 {
		return
	}

	// Calculate the minimum line indentation.
	minIndent := math.MaxInt
	for _, line := range lines {
		lineIndent := 0
		for _, c := range line {
			if c == ' ' {
				lineIndent++
			} else {
				break
			}
		}

		if lineIndent < minIndent {
			minIndent = lineIndent
		}
	}

	// Calculate the maximum line number length.
	maxLineNumLen := len(strconv.Itoa(span.EndLine + 1))

	// Generate the format string for line numbers.
	lineNumFmtStr := "%-" + strconv.Itoa(maxLineNumLen) + "v | "

	for i, line := range lines {
		// Print the line number and separator bar.
		fmt.Printf(lineNumFmtStr, i+span.StartLine+1)

		// Print the source text with the leading indent trimmed off.
		fmt.Println(line[minIndent:])

		// Print the line and bar used for carret underlining.
		fmt.Print(strings.Repeat(" ", maxLineNumLen), " | ")

		// The number of spaces before carret underlining begins.  For any line
		// which is not the starting line, this is always zero since the
		// underlining is continuing from the previous line.
		var carretPrefixCount int
		if i == 0 {
			carretPrefixCount = span.StartCol - minIndent
		}

		// The number of characters at the end of the source line that should
		// not be underlined.  Only ever non-zero on the last line.
		var carretSuffixCount int
		if i == len(lines)-1 {
			carretSuffixCount = len(line) - span.EndCol
		}

		fmt.Print(strings.Repeat(" ", carretPrefixCount))

		carretCount := len(line) - carretSuffixCount - carretPrefixCount - minIndent
		if carretCount < 1 {
			carretCount = 1
		}
		ErrorColorFG.Println(strings.Repeat("^", carretCount))
	}

	fmt.Println()
}

// -----------------------------------------------------------------------------

// DisplayInfoMessage prints a tagged informational message to the user.
func DisplayInfoMessage(tag, msg string) {
	if rep.logLevel >= LogLevelVerbose {
		SuccessStyleBG.Print(tag)
		SuccessColorFG.Println(" " + msg)
	}
}

// DisplayCompilationFinished prints the closing message of a successful
// compilation.
func DisplayCompilationFinished(outputPath string) {
	DisplayInfoMessage("Compiled", outputPath)
}

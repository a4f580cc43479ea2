package report

import (
	"fmt"
	"os"
)

// Enumeration of the compilation error kinds.  The taxonomy is flat and
// phase-indexed: each kind corresponds to the compiler phase that raised it.
const (
	KindLex    = iota // Tokenization errors.
	KindRead          // S-expression reading errors.
	KindExpand        // Malformed special forms.
	KindName          // Unresolved or duplicate names.
	KindType          // Unification and inference errors.
	KindMono          // Specialization errors.
	KindLower         // Lowering errors: always indicate a compiler bug.
)

// kindStrings maps error kinds to the labels used in diagnostics.
var kindStrings = map[int]string{
	KindLex:    "lex error",
	KindRead:   "read error",
	KindExpand: "expand error",
	KindName:   "name error",
	KindType:   "type error",
	KindMono:   "mono error",
	KindLower:  "internal error",
}

// CompileError is a compilation error that occurs in a context in which the
// file is known by the error handler and thus doesn't need to be passed along
// with the error.
type CompileError struct {
	// The kind of the error.  This must be one of the enumerated error kinds.
	Kind int

	// The error message.
	Message string

	// The span over which the error occurs.
	Span *TextSpan
}

func (ce *CompileError) Error() string {
	return ce.Message
}

// Raise creates a new compile error of the given kind.
func Raise(kind int, span *TextSpan, msg string, args ...interface{}) *CompileError {
	return &CompileError{Kind: kind, Message: fmt.Sprintf(msg, args...), Span: span}
}

// Throw raises a compile error as a panic.  It must only be called beneath a
// deferred recover that handles it: the phase entry points recover it and
// return it as an error.
func Throw(kind int, span *TextSpan, msg string, args ...interface{}) {
	panic(Raise(kind, span, msg, args...))
}

// -----------------------------------------------------------------------------

// ReportICE reports an internal compiler error.  These are errors that
// specifically result from a bug or unexpected condition occurring within the
// compiler: they are not intended to ever happen.  These errors are always
// displayed regardless of log level.
func ReportICE(message string, args ...interface{}) {
	rep.m.Lock()
	defer rep.m.Unlock()

	displayICE(fmt.Sprintf(message, args...))

	os.Exit(-1)
}

// ReportFatal reports a fatal error.  These are errors that should cause all
// compilation to stop immediately.  However, they are expected errors that
// generally result from invalid configuration of some form: missing
// KVASIR_PATH, can't find requisite tools (eg. `clang`), etc.
func ReportFatal(message string, args ...interface{}) {
	if rep.logLevel > LogLevelSilent {
		rep.m.Lock()
		defer rep.m.Unlock()

		displayFatal(fmt.Sprintf(message, args...))
	}

	os.Exit(1)
}

// ReportCompileError reports a compilation error: ie. erroneous input code.
// The absPath is the absolute path to the erroneous source file.  The reprPath
// is the representative path used in diagnostics.  The span may be nil in
// which case no position information is printed.
func ReportCompileError(absPath, reprPath string, cerr *CompileError) {
	if rep.logLevel > LogLevelSilent {
		rep.m.Lock()
		defer rep.m.Unlock()

		rep.isErr = true

		displayCompileError(absPath, reprPath, cerr)
	}
}

// ReportStdError reports a non-fatal, standard Go error.
func ReportStdError(reprPath string, err error) {
	if rep.logLevel > LogLevelSilent {
		rep.m.Lock()
		defer rep.m.Unlock()

		rep.isErr = true

		displayStdError(reprPath, err)
	}
}

// -----------------------------------------------------------------------------

// AnyErrors returns whether or not any errors were detected.
func AnyErrors() bool {
	return rep.isErr
}

// -----------------------------------------------------------------------------

// CatchErrors catches any errors thrown by a `panic` during a stage of
// compilation.  In effect, this handler determines when any errors
// "unrecoverable" within a given subsection of the compiler should stop
// bubbling.
// NB: This function must ALWAYS be deferred.
func CatchErrors(absPath, reprPath string) {
	if x := recover(); x != nil {
		if cerr, ok := x.(*CompileError); ok {
			ReportCompileError(absPath, reprPath, cerr)
		} else if serr, ok := x.(error); ok {
			ReportStdError(reprPath, serr)
		} else {
			ReportFatal("%s", x)
		}
	}
}

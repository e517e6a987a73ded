package tool

import (
	"fmt"
	"regexp"
)

// LaunchError means the tool process could not be started at all: missing
// interpreter, permission problem, fork/exec failure. Preflight checks catch
// the systemic cases; a per-file LaunchError mid-batch is logged and the
// remaining files still run.
type LaunchError struct {
	Path string // input file whose invocation failed to launch
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("could not launch tool for %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ToolError means the tool ran and exited nonzero.
type ToolError struct {
	Path     string // input file the tool was working on
	ExitCode int
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool failed for %s (exit %d)", e.Path, e.ExitCode)
}

// Pre-compiled regexes matching the known stderr shapes of the analysis
// script. Checked in order by [Diagnose]; the first match wins.
var (
	reMissingModule = regexp.MustCompile(
		`(ModuleNotFoundError|ImportError): No module named`)

	rePySyntax = regexp.MustCompile(
		`(?m)^\s*SyntaxError\b|Missing parentheses in call to 'print'`)

	reBadNumeric = regexp.MustCompile(
		`(?i)could not convert string to float|invalid literal for float`)

	reMissingHeader = regexp.MustCompile(
		`UnboundLocalError|referenced before assignment`)

	reInputGone = regexp.MustCompile(
		`(IOError|FileNotFoundError|OSError).*No such file or directory`)
)

// Diagnose inspects captured stderr and returns a one-line hint for the most
// likely cause, or "" when nothing matches. Hints are advisory; they never
// change control flow.
func Diagnose(stderr string) string {
	switch {
	case rePySyntax.MatchString(stderr):
		return "the script uses python 2 print syntax; point --python at a python 2 interpreter"
	case reMissingModule.MatchString(stderr):
		return "a python dependency is missing (the script imports matplotlib, numpy and scipy)"
	case reBadNumeric.MatchString(stderr):
		return "the data file is not two-column numeric text"
	case reMissingHeader.MatchString(stderr):
		return "the data file lacks the generator parameter header the script reads"
	case reInputGone.MatchString(stderr):
		return "the input file disappeared before the tool could read it"
	}
	return ""
}

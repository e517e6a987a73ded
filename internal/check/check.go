// Package check provides system diagnostics (--check mode) and pre-batch
// dependency validation (CheckDeps) for the python interpreter, the analysis
// script, and its plotting stack.
package check

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/regimelab/regimebatch/internal/config"
)

// Sentinel errors returned by CheckDeps when a required piece is missing.
var (
	ErrPythonNotFound = errors.New("python interpreter not found")
	ErrScriptNotFound = errors.New("analysis script not found")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// rePy2Print matches python 2 print statements ("print 'x'", "print foo"),
// which python 3 rejects at parse time. "print(...)" does not match.
var rePy2Print = regexp.MustCompile(`(?m)^\s*print\s+[^(\s]`)

// RunCheck runs the interactive --check flow: interpreter presence and
// version, script presence, and an import test of the plotting stack.
// It reports whether everything needed for a batch run is in place; the
// caller decides the exit code.
func RunCheck(cfg *config.Config, log Logger) bool {
	log.Info("=== System Check ===")

	pyOK, pyMajor := checkPython(cfg, log)
	scriptOK, py2Syntax := checkScript(cfg, log)
	if pyOK && scriptOK && pyMajor == 3 && py2Syntax {
		log.Warn("Script uses python 2 print syntax but %q is python 3; runs will fail with SyntaxError", cfg.Python)
	}
	stackOK := checkPlotStack(cfg, log)

	return pyOK && scriptOK && stackOK
}

// checkPython verifies the interpreter is runnable and logs its version.
// Returns availability and the major version (0 when unknown).
func checkPython(cfg *config.Config, log Logger) (ok bool, major int) {
	path, err := resolveInterpreter(cfg.Python)
	if err != nil {
		log.Error("Interpreter not found: %s", cfg.Python)
		return false, 0
	}

	// "--version" lands on stderr for python 2 and stdout for python 3,
	// so capture both.
	out, err := exec.Command(path, "--version").CombinedOutput()
	version := strings.TrimSpace(string(out))
	if err != nil || version == "" {
		log.Warn("Interpreter found but --version failed: %v", err)
		return true, 0
	}
	log.Success("Interpreter: %s (%s)", version, path)

	switch {
	case strings.HasPrefix(version, "Python 3"):
		major = 3
	case strings.HasPrefix(version, "Python 2"):
		major = 2
	}
	return true, major
}

// checkScript verifies the analysis script exists and reports whether it
// carries python 2 print statements.
func checkScript(cfg *config.Config, log Logger) (ok, py2 bool) {
	fi, err := os.Stat(cfg.Script)
	if err != nil {
		log.Error("Script not found: %s", cfg.Script)
		return false, false
	}
	if fi.IsDir() {
		log.Error("Script path is a directory: %s", cfg.Script)
		return false, false
	}
	log.Success("Script: %s (%d B)", cfg.Script, fi.Size())

	if body, err := os.ReadFile(cfg.Script); err == nil && rePy2Print.Match(body) {
		log.Info("  python 2 print statements detected")
		py2 = true
	}
	return true, py2
}

// checkPlotStack runs an import test for the libraries the analysis script
// needs. A failed import here means every batch item would fail the same way.
func checkPlotStack(cfg *config.Config, log Logger) bool {
	log.Info("Testing plotting stack (matplotlib, numpy, scipy)...")
	if runSilent(cfg.Python, "-c", "import matplotlib, numpy, scipy") {
		log.Success("Plotting stack importable")
		return true
	}
	log.Error("Plotting stack import failed (matplotlib/numpy/scipy)")
	return false
}

// CheckDeps is the pre-batch validation: the interpreter must resolve and the
// script must exist as a file. Deeper problems (imports, syntax) surface per
// file through the tool's own stderr. Returns a wrapped sentinel on failure.
func CheckDeps(cfg *config.Config) error {
	if _, err := resolveInterpreter(cfg.Python); err != nil {
		return fmt.Errorf("%w: %q", ErrPythonNotFound, cfg.Python)
	}
	fi, err := os.Stat(cfg.Script)
	if err != nil || fi.IsDir() {
		return fmt.Errorf("%w: %q", ErrScriptNotFound, cfg.Script)
	}
	return nil
}

// --- internal helpers ---

// resolveInterpreter locates the interpreter: a bare name goes through PATH,
// anything with a separator is taken as a filesystem path.
func resolveInterpreter(python string) (string, error) {
	if strings.ContainsRune(python, os.PathSeparator) {
		if _, err := os.Stat(python); err != nil {
			return "", err
		}
		return python, nil
	}
	return exec.LookPath(python)
}

// runSilent runs a command and returns true if it exits with status 0.
// Both stdout and stderr are discarded.
func runSilent(name string, args ...string) bool {
	cmd := exec.Command(name, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}

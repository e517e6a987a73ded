package tool

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"

	"github.com/regimelab/regimebatch/internal/config"
	"github.com/regimelab/regimebatch/internal/planner"
)

// Result holds the outcome of a single tool invocation.
type Result struct {
	Stderr string
	Err    error // nil, *LaunchError, or *ToolError
}

// Execute builds and runs the tool command for one work item, synchronously.
// The tool's stdout (its fit results table) passes through to our stdout
// unless suppressed; stderr is captured for failure reporting and
// additionally tee'd to os.Stderr in real time when verbose.
func Execute(ctx context.Context, cfg *config.Config, item *planner.WorkItem) Result {
	args := Build(cfg, item)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)

	if cfg.ShowToolOutput {
		cmd.Stdout = os.Stdout
	}
	var stderrBuf bytes.Buffer
	if cfg.Verbose {
		cmd.Stderr = io.MultiWriter(&stderrBuf, os.Stderr)
	} else {
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()
	res := Result{Stderr: stderrBuf.String()}
	if err == nil {
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.Err = &ToolError{Path: item.InputPath, ExitCode: exitErr.ExitCode()}
	} else {
		res.Err = &LaunchError{Path: item.InputPath, Err: err}
	}
	return res
}

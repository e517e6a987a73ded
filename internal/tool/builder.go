// Package tool builds and executes invocations of the external analysis
// script, and classifies the ways they fail.
package tool

import (
	"github.com/regimelab/regimebatch/internal/config"
	"github.com/regimelab/regimebatch/internal/planner"
)

// Build constructs the complete argument slice for one tool invocation:
// interpreter, script, the input path as the positional argument, then the
// plot destination. The --std passthrough rides along only when configured;
// the script's own default applies otherwise.
func Build(cfg *config.Config, item *planner.WorkItem) []string {
	args := make([]string, 0, 8)
	args = append(args, cfg.Python, cfg.Script, item.InputPath, "--plotname", item.OutputPath)
	if cfg.Std != "" {
		args = append(args, "--std", cfg.Std)
	}
	return args
}

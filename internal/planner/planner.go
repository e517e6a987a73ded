// Package planner turns discovered data files into work items: the derived
// plot path plus any reason the file can be skipped before the tool runs.
package planner

import (
	"os"

	"github.com/regimelab/regimebatch/internal/config"
	"github.com/regimelab/regimebatch/internal/naming"
)

// WorkItem is one planned tool invocation.
type WorkItem struct {
	InputPath  string
	OutputPath string
	SkipReason string // non-empty: do not invoke the tool
}

// Build derives the plot path for inputPath and applies the skip policy.
// With SkipExisting the item is marked skippable when the plot is already a
// regular file; the default is to re-plot everything, matching the original
// loop.
func Build(cfg *config.Config, inputPath string) *WorkItem {
	item := &WorkItem{
		InputPath:  inputPath,
		OutputPath: naming.DeriveOutputPath(inputPath),
	}
	if cfg.SkipExisting {
		if fi, err := os.Stat(item.OutputPath); err == nil && fi.Mode().IsRegular() {
			item.SkipReason = "plot already exists"
		}
	}
	return item
}

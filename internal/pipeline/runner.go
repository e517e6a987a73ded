// Package pipeline orchestrates data file discovery, per-file tool runs, and
// batch summary reporting.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/regimelab/regimebatch/internal/config"
	"github.com/regimelab/regimebatch/internal/datafile"
	"github.com/regimelab/regimebatch/internal/display"
	"github.com/regimelab/regimebatch/internal/logging"
	"github.com/regimelab/regimebatch/internal/naming"
	"github.com/regimelab/regimebatch/internal/planner"
	"github.com/regimelab/regimebatch/internal/tool"
)

// Run is the top-level batch entry point. It discovers data files under
// cfg.Root, runs the analysis tool once per file (serially unless cfg.Jobs
// raises the worker count), and returns aggregate stats. A non-nil error
// means discovery itself failed and no file was processed; per-file failures
// only count in stats and never abort the batch unless cfg.FailFast.
//
// events may be nil. When attached, the caller must drain the channel until
// EventBatchDone, which is emitted on every exit path.
func Run(ctx context.Context, cfg *config.Config, log *logging.Logger, events chan<- Event) (RunStats, error) {
	var stats RunStats
	start := time.Now()

	files, err := Discover(cfg.Root)
	if err != nil {
		log.Error("File discovery failed: %v", err)
		emit(events, Event{Kind: EventBatchDone, Stats: stats})
		return stats, fmt.Errorf("discovering data files under %s: %w", cfg.Root, err)
	}

	stats.Total = len(files)
	claims := naming.NewOutputClaims()

	logBatchHeader(cfg, log, &stats)
	emit(events, Event{Kind: EventStart, Total: stats.Total, Stats: stats})

	if cfg.Jobs > 1 {
		runParallel(ctx, cfg, log, files, claims, &stats, events)
	} else {
		runSerial(ctx, cfg, log, files, claims, &stats, events)
	}

	logSummary(cfg, log, &stats, time.Since(start))
	emit(events, Event{Kind: EventBatchDone, Stats: stats})
	return stats, nil
}

// itemOutcome is the terminal result of one processed file, applied to the
// shared stats by the calling loop so processFile itself stays free of
// shared state.
type itemOutcome struct {
	input     string
	output    string
	status    ItemStatus
	reason    string // short summary for the failure list
	plotBytes int64
	err       error
}

func runSerial(
	ctx context.Context,
	cfg *config.Config,
	log *logging.Logger,
	files []string,
	claims *naming.OutputClaims,
	stats *RunStats,
	events chan<- Event,
) {
	for i, path := range files {
		if ctx.Err() != nil {
			log.Warn("Interrupted")
			break
		}

		emit(events, Event{Kind: EventItemStart, Index: i + 1, Total: stats.Total, Input: path})
		out := processFile(ctx, cfg, log, i+1, stats.Total, path, claims)

		stats.Current = i + 1
		apply(stats, out)
		emit(events, Event{
			Kind: EventItemDone, Index: i + 1, Total: stats.Total,
			Input: path, Output: out.output, Status: out.status, Err: out.err, Stats: *stats,
		})

		if cfg.FailFast && out.status == StatusFailed {
			log.Warn("Stopping after first failure (fail-fast)")
			break
		}
	}
}

// runParallel fans the files out to cfg.Jobs workers. Stats are only touched
// by the collecting loop below, so no locking is needed; item ordering in the
// log follows completion order.
func runParallel(
	ctx context.Context,
	cfg *config.Config,
	log *logging.Logger,
	files []string,
	claims *naming.OutputClaims,
	stats *RunStats,
	events chan<- Event,
) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type indexedOutcome struct {
		index int
		out   itemOutcome
	}

	jobs := make(chan int)
	results := make(chan indexedOutcome)

	workers := cfg.Jobs
	if workers > len(files) {
		workers = len(files)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if runCtx.Err() != nil {
					return
				}
				emit(events, Event{Kind: EventItemStart, Index: i + 1, Total: stats.Total, Input: files[i]})
				out := processFile(runCtx, cfg, log, i+1, stats.Total, files[i], claims)
				results <- indexedOutcome{index: i, out: out}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range files {
			select {
			case jobs <- i:
			case <-runCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		stats.Current++
		apply(stats, r.out)
		emit(events, Event{
			Kind: EventItemDone, Index: r.index + 1, Total: stats.Total,
			Input: r.out.input, Output: r.out.output, Status: r.out.status, Err: r.out.err, Stats: *stats,
		})

		if cfg.FailFast && r.out.status == StatusFailed && runCtx.Err() == nil {
			log.Warn("Stopping after first failure (fail-fast)")
			cancel()
		}
	}

	if ctx.Err() != nil {
		log.Warn("Interrupted")
	}
}

// apply folds one outcome into the aggregate counters.
func apply(stats *RunStats, out itemOutcome) {
	switch out.status {
	case StatusPlotted:
		stats.Plotted++
		stats.PlotBytes += out.plotBytes
	case StatusSkipped:
		stats.Skipped++
	case StatusFailed:
		stats.Failed++
		stats.Failures = append(stats.Failures, ItemFailure{Input: out.input, Reason: out.reason})
	}
}

// processFile handles one data file: derive plot path → claim → stats line →
// skip policy → echo command → run tool → report.
func processFile(
	ctx context.Context,
	cfg *config.Config,
	log *logging.Logger,
	index, total int,
	path string,
	claims *naming.OutputClaims,
) itemOutcome {
	log.Info("[%d/%d] %s", index, total, path)
	defer log.Blank()

	item := planner.Build(cfg, path)
	out := itemOutcome{input: path, output: item.OutputPath}

	// Two inputs can derive the same plot name; the naming contract is fixed
	// so the later run overwrites. Surface it instead of renaming.
	if owner, dup := claims.Claim(path, item.OutputPath); dup {
		log.Warn("  Plot %s already produced from %s; this run overwrites it", item.OutputPath, owner)
	}

	if cfg.ShowFileStats {
		logFileStats(log, path)
	}

	if item.SkipReason != "" {
		log.Warn("Skip (%s): %s", item.SkipReason, item.OutputPath)
		out.status = StatusSkipped
		return out
	}

	args := tool.Build(cfg, item)
	log.Exec("$ %s", strings.Join(args, " "))

	if cfg.DryRun {
		log.Success("[DRY] Would plot %s", item.OutputPath)
		out.status = StatusPlotted
		return out
	}

	if err := os.MkdirAll(filepath.Dir(item.OutputPath), 0o755); err != nil {
		log.Error("Cannot create plot directory: %v", err)
		out.status = StatusFailed
		out.reason = "cannot create plot directory"
		out.err = err
		return out
	}

	start := time.Now()
	res := tool.Execute(ctx, cfg, item)
	if res.Err != nil {
		out.status = StatusFailed
		out.err = res.Err
		if ctx.Err() != nil {
			log.Warn("Interrupted during tool run: %s", path)
			out.reason = "interrupted"
			return out
		}
		out.reason = failureReason(res.Err)
		logFailure(cfg, log, res)
		return out
	}

	elapsed := time.Since(start)
	out.status = StatusPlotted

	sizeLabel := "plot file missing"
	if fi, err := os.Stat(item.OutputPath); err == nil && fi.Mode().IsRegular() {
		out.plotBytes = fi.Size()
		sizeLabel = display.FormatBytes(fi.Size())
	}
	log.Success("Plotted in %s -> %s (%s)", display.FormatDuration(elapsed), item.OutputPath, sizeLabel)
	return out
}

// logFileStats prints the one-line data summary for an input file. Failures
// here never block the tool run; the tool does its own reading.
func logFileStats(log *logging.Logger, path string) {
	info, err := datafile.Inspect(path)
	if err != nil {
		log.Warn("  Cannot read data file: %v", err)
		return
	}
	line := fmt.Sprintf("  Data: %d rows x %d cols", info.Rows, info.Columns)
	if info.Params != nil {
		line += fmt.Sprintf(" | a1=%s b1=%s a2=%s b2=%s",
			info.Params.A1, info.Params.B1, info.Params.A2, info.Params.B2)
	}
	if info.ShiftMinute != "" {
		line += " | shift at minute " + info.ShiftMinute
	}
	log.Info("%s", line)
}

// logFailure reports a classified tool failure plus a stderr-based hint when
// one of the known failure shapes matches.
func logFailure(cfg *config.Config, log *logging.Logger, res tool.Result) {
	var toolErr *tool.ToolError
	var launchErr *tool.LaunchError
	switch {
	case errors.As(res.Err, &toolErr):
		log.Error("Tool failed for %s (exit %d)", toolErr.Path, toolErr.ExitCode)
	case errors.As(res.Err, &launchErr):
		log.Error("Cannot launch tool for %s: %v", launchErr.Path, launchErr.Err)
	default:
		log.Error("%v", res.Err)
	}

	if hint := tool.Diagnose(res.Stderr); hint != "" {
		log.Warn("  Hint: %s", hint)
	}
	// In verbose mode stderr already streamed live; don't replay it.
	if !cfg.Verbose {
		logStderr(log, res.Stderr)
	}
}

// failureReason condenses a classified error for the summary's failure list.
func failureReason(err error) string {
	var toolErr *tool.ToolError
	if errors.As(err, &toolErr) {
		return fmt.Sprintf("tool exit %d", toolErr.ExitCode)
	}
	var launchErr *tool.LaunchError
	if errors.As(err, &launchErr) {
		return fmt.Sprintf("launch failed: %v", launchErr.Err)
	}
	return err.Error()
}

func logStderr(log *logging.Logger, stderr string) {
	if stderr == "" {
		return
	}
	log.Error("Last tool output:")
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	start := 0
	if len(lines) > 20 {
		start = len(lines) - 20
	}
	for _, l := range lines[start:] {
		log.Error("  %s", l)
	}
}

// --- Logging helpers ---

func logBatchHeader(cfg *config.Config, log *logging.Logger, stats *RunStats) {
	log.Info("Found %d data files", stats.Total)
	log.Info("Tool: %s %s", cfg.Python, cfg.Script)
	if cfg.Std != "" {
		log.Info("Noise level: --std %s", cfg.Std)
	}
	if cfg.Jobs > 1 {
		log.Info("Jobs: %d parallel tool runs", cfg.Jobs)
	}
	if cfg.SkipExisting {
		log.Info("Skip policy: keep existing plots")
	} else {
		log.Info("Skip policy: re-plot everything")
	}
	if cfg.FailFast {
		log.Info("Failure policy: stop at first failure")
	}
	log.Blank()
}

func logSummary(cfg *config.Config, log *logging.Logger, stats *RunStats, elapsed time.Duration) {
	log.Info("==============================")
	log.Info("Done: %d plotted, %d skipped, %d failed", stats.Plotted, stats.Skipped, stats.Failed)
	log.Info("Summary report:")
	log.Info("  Data files processed: %d of %d", stats.Current, stats.Total)
	log.Info("  Elapsed: %s", display.FormatDuration(elapsed))

	if cfg.DryRun {
		log.Info("  Plots written: n/a (dry run)")
	} else {
		log.Info("  Plots written: %s", display.FormatBytes(stats.PlotBytes))
	}

	if len(stats.Failures) > 0 {
		log.Warn("Failed inputs:")
		for _, f := range stats.Failures {
			log.Warn("  %s (%s)", f.Input, f.Reason)
		}
	}
}

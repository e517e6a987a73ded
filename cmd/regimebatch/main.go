// Command regimebatch is the CLI entrypoint for the batch plotting runner.
//
// It layers configuration (defaults, environment, optional YAML file, CLI
// flags), validates it, and either runs system diagnostics (--check), a data
// file inventory (--scan), or the batch pipeline that feeds every matching
// data file to the external analysis script.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/regimelab/regimebatch/internal/check"
	"github.com/regimelab/regimebatch/internal/config"
	"github.com/regimelab/regimebatch/internal/display"
	"github.com/regimelab/regimebatch/internal/logging"
	"github.com/regimelab/regimebatch/internal/pipeline"
	"github.com/regimelab/regimebatch/internal/term"
	"github.com/regimelab/regimebatch/internal/tui"
)

// version and commit are injected at build time via -ldflags.
// When built with plain "go build" (no make), these retain their defaults.
var (
	version = "1.0.0"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Phase 1: Bootstrap. The logger doesn't exist yet, so errors go
	// directly to stderr via fmt. Once NewLogger succeeds, all output
	// goes through the logger for consistent formatting and log-file capture.
	cfg := config.DefaultConfig()
	config.ApplyEnv(&cfg)

	if path := config.PeekConfigPath(os.Args[1:]); path != "" {
		if err := config.LoadFile(path, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "regimebatch: %v\n", err)
			return 1
		}
	}

	if err := config.ParseFlags(&cfg, version); err != nil {
		fmt.Fprintf(os.Stderr, "regimebatch: %v\n", err)
		return 1
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "regimebatch: %v\n", err)
		return 1
	}

	log, err := logging.NewLogger(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "regimebatch: %v\n", err)
		return 1
	}
	defer log.Close()

	useTUI := cfg.TUI && !cfg.CheckOnly && !cfg.ScanOnly &&
		os.Getenv("REGIMEBATCH_NO_TUI") == "" && term.IsTerminal(os.Stdout)
	if cfg.TUI && !useTUI && !cfg.CheckOnly && !cfg.ScanOnly {
		log.Debug(cfg.Verbose, "Progress screen disabled (stdout is not a terminal)")
	}

	// Phase 2: Logger available; all output goes through log from here on.
	if !useTUI {
		display.PrintBanner()
	}

	if cfg.CheckOnly {
		if !check.RunCheck(&cfg, log) {
			return 1
		}
		return 0
	}

	// The search root must be a readable directory before anything runs.
	fi, err := os.Stat(cfg.Root)
	if err != nil {
		log.Error("Search root not found: %s", cfg.Root)
		return 1
	}
	if !fi.IsDir() {
		log.Error("Search root is not a directory: %s", cfg.Root)
		return 1
	}

	// Phase 3: Signal handling. Cancel the context on SIGINT/SIGTERM so the
	// pipeline stops between files; the summary still prints.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn("Received interrupt, finishing current file...")
		cancel()
	}()

	if cfg.ScanOnly {
		if err := pipeline.Scan(ctx, &cfg, log); err != nil {
			return 1
		}
		return 0
	}

	log.Info("=== Regimebatch v%s (%s) ===", version, commit)
	log.Info("Root: %s", cfg.Root)
	log.Info("Tool: %s %s", cfg.Python, cfg.Script)
	if cfg.DryRun {
		log.Warn("DRY RUN - the analysis tool will not be invoked")
	}
	log.Blank()

	// Fail fast when the interpreter or the script is missing outright.
	// Mid-batch launch failures still only fail their own file.
	if err := check.CheckDeps(&cfg); err != nil {
		log.Error("%v", err)
		return 1
	}

	// Phase 4: Run the batch, optionally behind the progress screen.
	var stats pipeline.RunStats
	var runErr error

	if useTUI {
		events := make(chan pipeline.Event, 8)
		done := make(chan struct{})

		// Suppress before the runner starts so its header lines can't
		// interleave with the screen; the file sink still gets them.
		log.SuppressConsole()
		go func() {
			stats, runErr = pipeline.Run(ctx, &cfg, log, events)
			close(done)
		}()

		tuiErr := tui.Run(log.FilePath(), events, cancel)

		// Keep draining events until the runner finishes, so it never
		// blocks sending to a screen that already exited.
		drained := false
		for !drained {
			select {
			case <-done:
				drained = true
			case <-events:
			}
		}
		log.RestoreConsole()

		if tuiErr != nil {
			log.Warn("Progress screen failed: %v", tuiErr)
			logSummaryFallback(log, stats)
		}
	} else {
		stats, runErr = pipeline.Run(ctx, &cfg, log, nil)
	}

	if runErr != nil || stats.Failed > 0 {
		return 1
	}
	return 0
}

// logSummaryFallback restates the final counts on the console when the
// progress screen failed; the full summary went to the file sink only.
func logSummaryFallback(log *logging.Logger, stats pipeline.RunStats) {
	log.Info("Done: %d plotted, %d skipped, %d failed", stats.Plotted, stats.Skipped, stats.Failed)
}

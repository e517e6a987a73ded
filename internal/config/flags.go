package config

// This file implements CLI flag parsing and help text.
// Flags are grouped into tool, behavior, display, and utility.
// Negated flags (e.g. --no-stats) are applied after Parse so Config defaults hold unless set.
// Flag defaults come from the current cfg values so the env and file overlays
// survive when a flag is not passed.

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// ParseFlags parses os.Args into cfg. On --help or --version it prints and exits.
// On error it returns non-nil (e.g. unknown flag, too many positional args).
func ParseFlags(cfg *Config, version string) error {
	fs := flag.NewFlagSet("regimebatch", flag.ContinueOnError)
	fs.Usage = func() { printUsage(version) }

	// Negated/override flags: we capture bools then apply to cfg after Parse,
	// so that values from the earlier layers hold unless the user passes the flag.
	var negated negatedFlags

	defineToolFlags(fs, cfg)
	defineBehaviorFlags(fs, cfg)
	defineDisplayFlags(fs, cfg, &negated)
	defineUtilityFlags(fs, cfg, &negated)

	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	applyNegatedFlags(cfg, &negated)

	if negated.showHelp {
		printUsage(version)
		os.Exit(0)
	}
	if negated.showVersion {
		fmt.Fprintln(os.Stdout, "regimebatch v"+version)
		os.Exit(0)
	}

	return parsePositionalArgs(fs, cfg)
}

// negatedFlags holds boolean flags that are applied after Parse.
// These either invert a default (e.g. noStats -> ShowFileStats=false) or trigger exit (showHelp, showVersion).
type negatedFlags struct {
	noStats      bool
	noToolOutput bool
	forceColor   bool
	noColor      bool
	showVersion  bool
	showHelp     bool
}

// defineToolFlags registers --python, --script, --std.
func defineToolFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Python, "python", cfg.Python, "Python interpreter for the analysis script")
	fs.StringVar(&cfg.Python, "p", cfg.Python, "Same as --python")
	fs.StringVar(&cfg.Script, "script", cfg.Script, "Path to the analysis script")
	fs.StringVar(&cfg.Script, "s", cfg.Script, "Same as --script")
	fs.StringVar(&cfg.Std, "std", cfg.Std, "Noise level passed through to the tool")
}

// defineBehaviorFlags registers dry-run, skip-existing, fail-fast, jobs.
func defineBehaviorFlags(fs *flag.FlagSet, cfg *Config) {
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "Preview only; do not run the tool")
	fs.BoolVar(&cfg.DryRun, "d", cfg.DryRun, "Same as --dry-run")
	fs.BoolVar(&cfg.SkipExisting, "skip-existing", cfg.SkipExisting, "Skip files whose plot already exists")
	fs.BoolVar(&cfg.FailFast, "fail-fast", cfg.FailFast, "Abort the batch on the first failure")
	fs.IntVar(&cfg.Jobs, "jobs", cfg.Jobs, "Parallel tool invocations")
	fs.IntVar(&cfg.Jobs, "j", cfg.Jobs, "Same as --jobs")
}

// defineDisplayFlags registers --tui, --no-stats, --no-tool-output, --color, --no-color, verbose.
func defineDisplayFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVar(&cfg.TUI, "tui", cfg.TUI, "Live progress screen (needs a TTY)")
	fs.BoolVar(&n.noStats, "no-stats", false, "Hide per-file data stats")
	fs.BoolVar(&n.noToolOutput, "no-tool-output", false, "Silence the tool's stdout")
	fs.BoolVar(&n.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&n.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Verbose output (tool stderr passthrough)")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Same as --verbose")
}

// defineUtilityFlags registers --config, --log, --check, --scan, --version, --help.
func defineUtilityFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "Load settings from a YAML file")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "Append logs to file")
	fs.StringVar(&cfg.LogFile, "l", cfg.LogFile, "Same as --log")
	fs.BoolVar(&cfg.CheckOnly, "check", cfg.CheckOnly, "Run system diagnostics and exit")
	fs.BoolVar(&cfg.CheckOnly, "c", cfg.CheckOnly, "Same as --check")
	fs.BoolVar(&cfg.ScanOnly, "scan", cfg.ScanOnly, "Print a data file inventory and exit")
	fs.BoolVar(&n.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&n.showVersion, "V", false, "Same as --version")
	fs.BoolVar(&n.showHelp, "help", false, "Show this help and exit")
	fs.BoolVar(&n.showHelp, "h", false, "Same as --help")
}

// applyNegatedFlags copies negated flag values into cfg (e.g. noStats -> ShowFileStats=false).
func applyNegatedFlags(cfg *Config, n *negatedFlags) {
	if n.noStats {
		cfg.ShowFileStats = false
	}
	if n.noToolOutput {
		cfg.ShowToolOutput = false
	}
	if n.noColor {
		cfg.ColorMode = ColorNever
	} else if n.forceColor {
		cfg.ColorMode = ColorAlways
	}
}

// parsePositionalArgs sets Root from the single optional positional arg.
func parsePositionalArgs(fs *flag.FlagSet, cfg *Config) error {
	args := fs.Args()
	switch len(args) {
	case 0:
		return nil
	case 1:
		cfg.Root = NormalizeDirArg(args[0])
		return nil
	default:
		return fmt.Errorf("at most one search root expected, got %d arguments", len(args))
	}
}

// printUsage writes the help text to stderr. Column-aligned for readability.
func printUsage(version string) {
	const col1 = 28 // width of "  -x, --long-name <arg>  "
	lines := []struct {
		flags string
		desc  string
	}{
		{"", "Regimebatch v" + version + " - batch regime-change plotting"},
		{"", ""},
		{"  regimebatch [OPTIONS] [search_root]", ""},
		{"", ""},
		{"  Recursively finds xy_*.dat data files under search_root (default:", ""},
		{"  current directory) and runs the analysis script on each, writing", ""},
		{"  one plot_*.png per file.", ""},
		{"", ""},
		{"Tool", ""},
		{"  -p, --python <path>", "Python interpreter (default: python)"},
		{"  -s, --script <path>", "Analysis script (default: find_regime_change.py)"},
		{"  --std <value>", "Noise level passed through to the tool"},
		{"", ""},
		{"Behavior", ""},
		{"  -d, --dry-run", "Preview only; do not run the tool"},
		{"  --skip-existing", "Skip files whose plot already exists"},
		{"  --fail-fast", "Abort the batch on the first failure"},
		{"  -j, --jobs <n>", "Parallel tool invocations (default: 1)"},
		{"", ""},
		{"Display", ""},
		{"  --tui", "Live progress screen (needs a TTY)"},
		{"  --no-stats", "Hide per-file data stats"},
		{"  --no-tool-output", "Silence the tool's stdout"},
		{"  --color", "Force colored logs"},
		{"  --no-color", "Disable colored logs"},
		{"  -v, --verbose", "Verbose output (tool stderr passthrough)"},
		{"", ""},
		{"Utility", ""},
		{"  --config <path>", "Load settings from a YAML file"},
		{"  -l, --log <path>", "Append logs to file"},
		{"  -c, --check", "System diagnostics (python, script, plot deps)"},
		{"  --scan", "Inventory of data files instead of plotting"},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	}

	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(os.Stderr)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(os.Stderr, l.flags)
			continue
		}
		if l.flags == "" {
			fmt.Fprintln(os.Stderr, l.desc)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(os.Stderr, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}

// colorModeValue parses the tri-state color setting for the YAML overlay.
type colorModeValue struct{ p *ColorMode }

func (c *colorModeValue) String() string { return string(*c.p) }
func (c *colorModeValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "auto":
		*c.p = ColorAuto
	case "always":
		*c.p = ColorAlways
	case "never":
		*c.p = ColorNever
	default:
		return fmt.Errorf("invalid color mode %q (use 'auto', 'always' or 'never')", s)
	}
	return nil
}

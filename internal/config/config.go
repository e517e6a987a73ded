// Package config holds runtime configuration: defaults, CLI flag parsing,
// environment and file overlays, and validation. All defaults match the
// original plotting loop for parity.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Config holds all runtime settings. It is populated by [DefaultConfig],
// layered by [ApplyEnv], [LoadFile] and [ParseFlags] (in that order, so flags
// win), and then passed by pointer to packages that need it.
type Config struct {
	// Search root (single optional positional arg).
	Root string // Default: "." (current directory).

	// External tool invocation.
	Python string // Default: "python". Interpreter used to run the script.
	Script string // Default: "find_regime_change.py".
	Std    string // Optional --std passthrough. Empty: tool default.

	// Behavior flags.
	DryRun       bool
	SkipExisting bool // Default: false. Re-running re-plots every file.
	FailFast     bool // Abort the batch after the first failed file.
	Jobs         int  // Default: 1 (serial, matching the original run order).

	// Display and logging.
	Verbose        bool
	ShowFileStats  bool      // Default: true. Per-file data summary.
	ShowToolOutput bool      // Default: true. Tool stdout passes through.
	ColorMode      ColorMode // Default: "auto".
	LogFile        string    // Optional log file path.
	TUI            bool      // Opt-in live progress screen.
	CheckOnly      bool      // Run --check diagnostics and exit.
	ScanOnly       bool      // Print a data file inventory table and exit.
	ConfigFile     string    // Optional YAML overlay (--config).
}

// DefaultConfig returns a Config with all defaults matching the original
// plotting loop. Used as the base before the overlay layers apply.
func DefaultConfig() Config {
	return Config{
		Root:           ".",
		Python:         "python",
		Script:         "find_regime_change.py",
		Std:            "",
		DryRun:         false,
		SkipExisting:   false,
		FailFast:       false,
		Jobs:           1,
		Verbose:        false,
		ShowFileStats:  true,
		ShowToolOutput: true,
		ColorMode:      ColorAuto,
		CheckOnly:      false,
	}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum and numeric fields. It does not touch the filesystem;
// existence of the root and the script is checked at startup where failures
// can be logged properly.
func (c *Config) Validate() error {
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	if c.Jobs < 1 {
		return errors.New("jobs must be at least 1")
	}
	if c.Std != "" {
		if _, err := strconv.ParseFloat(strings.TrimSpace(c.Std), 64); err != nil {
			return fmt.Errorf("std override must be numeric (got %q)", c.Std)
		}
	}
	if c.Python == "" {
		return errors.New("python interpreter must not be empty")
	}
	if c.Script == "" {
		return errors.New("analysis script path must not be empty")
	}

	if c.CheckOnly {
		return nil
	}
	if c.Root == "" {
		return errors.New("search root must not be empty")
	}
	return nil
}

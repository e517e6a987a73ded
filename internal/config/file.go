package config

// Environment and file overlays. Layer order is defaults, environment,
// YAML file, CLI flags; later layers win. The YAML file is opt-in via
// --config, so the default process interface stays file-free.

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ApplyEnv overlays cfg with REGIMEBATCH_* environment variables. A .env file
// in the working directory is loaded first when present; real environment
// variables take precedence over it.
func ApplyEnv(cfg *Config) {
	_ = godotenv.Load()
	if v := os.Getenv("REGIMEBATCH_PYTHON"); v != "" {
		cfg.Python = v
	}
	if v := os.Getenv("REGIMEBATCH_SCRIPT"); v != "" {
		cfg.Script = v
	}
	if v := os.Getenv("REGIMEBATCH_LOG"); v != "" {
		cfg.LogFile = v
	}
}

// fileConfig mirrors the user-tunable Config fields with pointer types so
// keys absent from the YAML leave the earlier layers untouched.
type fileConfig struct {
	Root           *string `yaml:"root"`
	Python         *string `yaml:"python"`
	Script         *string `yaml:"script"`
	Std            *string `yaml:"std"`
	DryRun         *bool   `yaml:"dry_run"`
	SkipExisting   *bool   `yaml:"skip_existing"`
	FailFast       *bool   `yaml:"fail_fast"`
	Jobs           *int    `yaml:"jobs"`
	Verbose        *bool   `yaml:"verbose"`
	ShowFileStats  *bool   `yaml:"show_file_stats"`
	ShowToolOutput *bool   `yaml:"show_tool_output"`
	Color          *string `yaml:"color"`
	Log            *string `yaml:"log"`
	TUI            *bool   `yaml:"tui"`
}

// LoadFile overlays cfg with settings from a YAML file.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	if fc.Root != nil {
		cfg.Root = NormalizeDirArg(*fc.Root)
	}
	if fc.Python != nil {
		cfg.Python = *fc.Python
	}
	if fc.Script != nil {
		cfg.Script = *fc.Script
	}
	if fc.Std != nil {
		cfg.Std = *fc.Std
	}
	if fc.DryRun != nil {
		cfg.DryRun = *fc.DryRun
	}
	if fc.SkipExisting != nil {
		cfg.SkipExisting = *fc.SkipExisting
	}
	if fc.FailFast != nil {
		cfg.FailFast = *fc.FailFast
	}
	if fc.Jobs != nil {
		cfg.Jobs = *fc.Jobs
	}
	if fc.Verbose != nil {
		cfg.Verbose = *fc.Verbose
	}
	if fc.ShowFileStats != nil {
		cfg.ShowFileStats = *fc.ShowFileStats
	}
	if fc.ShowToolOutput != nil {
		cfg.ShowToolOutput = *fc.ShowToolOutput
	}
	if fc.Color != nil {
		cm := colorModeValue{&cfg.ColorMode}
		if err := cm.Set(*fc.Color); err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
	}
	if fc.Log != nil {
		cfg.LogFile = *fc.Log
	}
	if fc.TUI != nil {
		cfg.TUI = *fc.TUI
	}
	return nil
}

// PeekConfigPath scans raw args for --config ahead of flag parsing, so the
// file can load before the flag layer and explicit flags still win.
func PeekConfigPath(args []string) string {
	for i, a := range args {
		if a == "--config" || a == "-config" {
			if i+1 < len(args) {
				return args[i+1]
			}
			return ""
		}
		if strings.HasPrefix(a, "--config=") {
			return strings.TrimPrefix(a, "--config=")
		}
		if strings.HasPrefix(a, "-config=") {
			return strings.TrimPrefix(a, "-config=")
		}
	}
	return ""
}

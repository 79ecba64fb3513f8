// Package config resolves gwftool's run-time settings from flags, GWFTOOL_*
// environment variables, and an optional config file
// ($HOME/.config/gwftool/config.yaml), in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the settings the engine and its runners need for one
// invocation of gwftool run.
type Config struct {
	// ToolDirs are searched in order for tool descriptors; when two
	// directories hold the same tool_id, the later directory's tool wins.
	ToolDirs []string
	// Workdir holds job directories (scripts, mounts); defaults to
	// "<outdir>/.gwftool".
	Workdir string
	// Outdir holds per-step output directories.
	Outdir string
	// NoNet disables container networking for every job (docker run
	// --net=none).
	NoNet bool
	// FailFast stops scheduling new steps once any job exits non-zero,
	// letting in-flight jobs drain.
	FailFast bool
	// DryRun compiles TES task bodies instead of executing anything.
	DryRun bool
	// Debug enables debug-level logging and source locations.
	Debug bool
	// LogFormat is "text" or "json".
	LogFormat string
	// Backend selects the runner: "docker" or "tes".
	Backend string
	// TESEndpoint is the base URL of the TES server when Backend is "tes".
	TESEndpoint string
	// EventsAddr is a Redis "host:port" to publish step transitions to; empty
	// disables event publishing.
	EventsAddr string
	// EventsChannel is the Redis channel transitions are published on.
	EventsChannel string
	// SlackToken authenticates a run-finished notification; empty disables it.
	SlackToken string
	// SlackChannel is the Slack channel or user ID notified on run completion.
	SlackChannel string
}

// Load builds a Config from viper, applying defaults, the config file (if
// present), and GWFTOOL_*-prefixed environment overrides. Flags are bound
// by the caller with BindPFlag before Load runs (see NewRootCmd in
// internal/cli), so a flag the user set takes precedence over everything
// read here.
func Load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("GWFTOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("outdir", "./gwftool-out")
	v.SetDefault("backend", "docker")
	v.SetDefault("log-format", "text")
	v.SetDefault("events-channel", "gwftool.transitions")

	if path, err := defaultConfigPath(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}

	cfg := &Config{
		ToolDirs:      v.GetStringSlice("tooldir"),
		Workdir:       v.GetString("workdir"),
		Outdir:        v.GetString("outdir"),
		NoNet:         v.GetBool("no-net"),
		FailFast:      v.GetBool("fail-fast"),
		DryRun:        v.GetBool("dryrun"),
		Debug:         v.GetBool("debug"),
		LogFormat:     v.GetString("log-format"),
		Backend:       v.GetString("backend"),
		TESEndpoint:   v.GetString("tes-endpoint"),
		EventsAddr:    v.GetString("events-addr"),
		EventsChannel: v.GetString("events-channel"),
		SlackToken:    v.GetString("slack-token"),
		SlackChannel:  v.GetString("slack-channel"),
	}
	if cfg.Workdir == "" {
		cfg.Workdir = filepath.Join(cfg.Outdir, ".gwftool")
	}
	if len(cfg.ToolDirs) == 0 {
		return nil, fmt.Errorf("config: at least one --tooldir is required")
	}
	return cfg, nil
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "gwftool", "config.yaml"), nil
}

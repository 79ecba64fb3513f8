// Package cli wires gwftool's cobra commands to the engine, runners, and
// ambient stack (config, logging, history, events, notifications).
package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kellrott/gwftool/internal/engine"
)

// Execute builds the root command and runs it, translating the error it
// returns into an exit code per SPEC_FULL.md §7: validation errors (a
// workflow or inputs document the engine refuses to run) exit 2, everything
// else that reaches here exits 1. Called once from main.main.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error returned from the command tree to a process
// exit code. A run that merely finishes with stuck steps is not an error at
// all (run.go logs a warning and returns nil), so it never reaches here.
func exitCodeFor(err error) int {
	var missing *engine.MissingInputsError
	var unknownTool *engine.UnknownToolError
	if errors.As(err, &missing) || errors.As(err, &unknownTool) {
		return 2
	}
	return 1
}

// NewRootCmd assembles the gwftool command tree. The root command itself
// runs a workflow when invoked with two bare positional arguments
// (<workflow.ga> <inputs.json>), mirroring the teacher's pattern of a RunE
// on the root command; `gwftool run <workflow.ga> <inputs.json>` does the
// same thing explicitly.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "gwftool",
		Short: "Run Galaxy-format workflows against a local or remote executor",
		Long:  "gwftool [options] <workflow.ga> <inputs.json>",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return cmd.Help()
			}
			return runWorkflow(cmd, v, args[0], args[1])
		},
	}

	root.PersistentFlags().StringSlice("tooldir", nil, "tool descriptor directory (repeatable)")
	root.PersistentFlags().String("workdir", "", "job scratch directory (default: <outdir>/.gwftool)")
	root.PersistentFlags().String("outdir", "", "per-step output directory")
	root.PersistentFlags().Bool("no-net", false, "disable container networking for every job")
	root.PersistentFlags().Bool("dryrun", false, "compile TES task bodies instead of executing anything")
	root.PersistentFlags().Bool("fail-fast", false, "stop scheduling once any job exits non-zero")
	root.PersistentFlags().Bool("debug", false, "enable debug logging")
	root.PersistentFlags().String("log-format", "", "log encoding: text or json")
	root.PersistentFlags().String("backend", "", "runner backend: docker or tes")
	root.PersistentFlags().String("tes-endpoint", "", "TES server base URL (backend=tes)")
	root.PersistentFlags().String("events-addr", "", "Redis host:port to publish step transitions to (disabled if empty)")
	root.PersistentFlags().String("events-channel", "", "Redis channel for step transitions")
	root.PersistentFlags().String("slack-token", "", "Slack bot token for run-finished notifications (disabled if empty)")
	root.PersistentFlags().String("slack-channel", "", "Slack channel or user ID to notify on run completion")

	for _, name := range []string{"tooldir", "workdir", "outdir", "no-net", "dryrun", "fail-fast", "debug", "log-format", "backend", "tes-endpoint", "events-addr", "events-channel", "slack-token", "slack-channel"} {
		_ = v.BindPFlag(name, root.PersistentFlags().Lookup(name))
	}

	root.AddCommand(NewRunCmd(v))
	root.AddCommand(NewHistoryCmd(v))
	root.AddCommand(NewScheduleCmd(v))
	root.AddCommand(NewVersionCmd())

	return root
}

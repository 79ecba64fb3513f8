package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kellrott/gwftool/internal/config"
	"github.com/kellrott/gwftool/internal/dryrun"
	"github.com/kellrott/gwftool/internal/engine"
	"github.com/kellrott/gwftool/internal/events"
	"github.com/kellrott/gwftool/internal/galaxy"
	"github.com/kellrott/gwftool/internal/logger"
	"github.com/kellrott/gwftool/internal/notify"
	"github.com/kellrott/gwftool/internal/runner/docker"
	"github.com/kellrott/gwftool/internal/runner/tes"
	"github.com/kellrott/gwftool/internal/tool"
)

// NewRunCmd runs a workflow to completion (or, with --dryrun, compiles it).
func NewRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <workflow.ga> <inputs.json>",
		Short: "Execute a Galaxy workflow",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd, v, args[0], args[1])
		},
	}
	return cmd
}

func runWorkflow(cmd *cobra.Command, v *viper.Viper, workflowPath, inputsPath string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	workflowName := filepath.Base(workflowPath)

	logFile, err := logger.OpenLogFile(logger.LogFileConfig{
		LogDir:       filepath.Join(cfg.Outdir, "logs"),
		WorkflowName: workflowName,
		RunID:        runID,
	})
	if err != nil {
		return fmt.Errorf("run: open run log: %w", err)
	}
	defer logFile.Close()

	opts := []logger.Option{logger.WithFormat(cfg.LogFormat), logger.WithRunLog(logFile)}
	if cfg.Debug {
		opts = append(opts, logger.WithDebug())
	}
	log := logger.NewLogger(opts...)
	ctx := logger.WithLogger(cmd.Context(), log)
	logger.Info(ctx, "run starting", "workflow", workflowName, "run_id", runID)

	wf, err := galaxy.Load(workflowPath)
	if err != nil {
		return fmt.Errorf("run: load workflow: %w", err)
	}
	inputs, err := loadInputs(inputsPath)
	if err != nil {
		return fmt.Errorf("run: load inputs: %w", err)
	}
	box, err := tool.NewFileBox(cfg.ToolDirs...)
	if err != nil {
		return fmt.Errorf("run: load tool descriptors: %w", err)
	}

	st, err := engine.BuildState(cfg.Workdir, wf, inputs, box)
	if err != nil {
		return err
	}

	if cfg.DryRun {
		written, err := dryrun.Compile(wf, box, st, cfg.Outdir)
		if err != nil {
			return err
		}
		logger.Info(ctx, "dry run complete", "task_count", len(written))
		for _, p := range written {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	}

	factory, err := newFactory(ctx, cfg)
	if err != nil {
		return err
	}

	slogHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{})
	eng := engine.New(wf, box, st, engine.Config{
		Workdir:  cfg.Workdir,
		Outdir:   cfg.Outdir,
		FailFast: cfg.FailFast,
	}, factory, slog.New(slogHandler))

	if cfg.EventsAddr != "" {
		pub := events.NewPublisher(cfg.EventsAddr, cfg.EventsChannel)
		defer pub.Close()
		eng.Events = pub
	}

	summary, err := eng.Run(ctx)
	if err != nil {
		return err
	}

	if cfg.SlackToken != "" {
		if notifyErr := notify.New(cfg.SlackToken, cfg.SlackChannel).NotifyRunFinished(workflowName, summary); notifyErr != nil {
			logger.Warn(ctx, "slack notification failed", "error", notifyErr.Error())
		}
	}

	logger.Info(ctx, "run finished", "done", len(summary.Done), "stuck", len(summary.Stuck), "wall_seconds", summary.WallSeconds)
	if !summary.OK() {
		logger.Warn(ctx, "run completed with stuck steps", "stuck", len(summary.Stuck))
	}
	return nil
}

func newFactory(ctx context.Context, cfg *config.Config) (engine.Factory, error) {
	switch cfg.Backend {
	case "", "docker":
		if err := docker.Preflight(ctx); err != nil {
			return nil, fmt.Errorf("run: docker preflight: %w", err)
		}
		dockerPath, err := exec.LookPath("docker")
		if err != nil {
			return nil, fmt.Errorf("run: docker not found in PATH: %w", err)
		}
		return docker.New(docker.Config{DockerPath: dockerPath, UID: os.Getuid(), NoNet: cfg.NoNet}), nil
	case "tes":
		if cfg.TESEndpoint == "" {
			return nil, fmt.Errorf("run: --tes-endpoint is required when --backend=tes")
		}
		return tes.New(tes.NewClient(cfg.TESEndpoint)), nil
	default:
		return nil, fmt.Errorf("run: unknown backend %q", cfg.Backend)
	}
}

func loadInputs(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var inputs map[string]any
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return inputs, nil
}

package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kellrott/gwftool/internal/logger"
)

// NewScheduleCmd runs a workflow repeatedly on a cron schedule until
// interrupted, re-running runWorkflow on each tick.
func NewScheduleCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule <cron-spec> <workflow.ga> <inputs.json>",
		Short: "Run a workflow repeatedly on a cron schedule",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(cmd, v, args[0], args[1], args[2])
		},
	}
}

func runSchedule(cmd *cobra.Command, v *viper.Viper, spec, workflowPath, inputsPath string) error {
	c := cron.New(cron.WithSeconds())
	ctx := cmd.Context()

	_, err := c.AddFunc(spec, func() {
		logger.Info(ctx, "scheduled run starting", "workflow", workflowPath)
		if err := runWorkflow(cmd, v, workflowPath, inputsPath); err != nil {
			logger.Error(ctx, "scheduled run failed", "workflow", workflowPath, "error", err.Error())
		}
	})
	if err != nil {
		return fmt.Errorf("schedule: invalid cron spec %q: %w", spec, err)
	}

	c.Start()
	defer c.Stop()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	return nil
}

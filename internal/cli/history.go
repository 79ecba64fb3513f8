package cli

import (
	"fmt"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kellrott/gwftool/internal/config"
	"github.com/kellrott/gwftool/internal/history"
)

// NewHistoryCmd groups the "gwftool history" subcommands for inspecting
// past runs recorded in the local SQLite store.
func NewHistoryCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:   "history",
		Short: "Inspect past workflow runs",
	}
	root.AddCommand(newHistoryListCmd(v))
	root.AddCommand(newHistoryShowCmd(v))
	return root
}

func openStore(v *viper.Viper) (*history.Store, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	return history.Open(filepath.Join(cfg.Outdir, "history.db"))
}

func newHistoryListCmd(v *viper.Viper) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(v)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"ID", "Workflow", "Started", "Finished", "OK"})
			for _, r := range runs {
				t.AppendRow(table.Row{r.ID, r.Workflow, r.StartedAt, r.FinishedAt.String, r.OK.Bool})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	return cmd
}

func newHistoryShowCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show every step's job report for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(v)
			if err != nil {
				return err
			}
			defer store.Close()

			var runID int64
			if _, err := fmt.Sscanf(args[0], "%d", &runID); err != nil {
				return fmt.Errorf("history show: invalid run id %q", args[0])
			}

			reports, err := store.JobReports(runID)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Step", "Tool", "Exit Code", "Wall Seconds"})
			for _, r := range reports {
				t.AppendRow(table.Row{r.StepID, r.ToolID, r.ExitCode, r.WallSeconds})
			}
			t.Render()
			return nil
		},
	}
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kellrott/gwftool/internal/build"
)

// NewVersionCmd prints the running binary's version.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gwftool version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", build.AppName, build.Version)
			return nil
		},
	}
}

package cli

import (
	"fmt"

	"github.com/fmueller/streamplay/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version number",
		Annotations: map[string]string{annotationSkipConfigLoad: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Current()
			fmt.Fprintf(cmd.OutOrStdout(), "streamplay v%s\n", info.Version)
			if info.Commit != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "commit %s\n", info.Commit)
			}
			if info.Date != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "built %s\n", info.Date)
			}
			return nil
		},
	}
}

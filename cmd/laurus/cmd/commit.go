package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCommitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commit",
		Short: "Durably flush buffered writes and make them searchable",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, _, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.Commit(ctx); err != nil {
				return fmt.Errorf("commit: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "committed")
			return nil
		},
	}
}

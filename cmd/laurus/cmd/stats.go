package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show committed lexical and vector index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, _, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			s := e.Stats()
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "lexical: segments=%d live=%d deleted=%d\n",
				s.Lexical.SegmentCount, s.Lexical.LiveDocs, s.Lexical.DeletedDocs)
			for field, v := range s.Vectors {
				fmt.Fprintf(out, "vector[%s]: count=%d dimension=%d\n", field, v.Count, v.Dimension)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print stats as JSON")
	return cmd
}

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/laurus/engine"
	"github.com/Aman-CERP/laurus/lexical/query"
)

func newSearchCmd() *cobra.Command {
	var field string
	var term string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a lexical term search and print the fused, ranked hits",
		Long: `A minimal demonstration query: a single term against one field.
For anything richer (phrase/boolean/numeric-range/vector/hybrid), use
the engine package directly from Go.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, field, term, limit, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&field, "field", "", "field to search (required)")
	cmd.Flags().StringVar(&term, "term", "", "term to match (required)")
	cmd.Flags().IntVar(&limit, "limit", 10, "max hits to return")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print hits as JSON")
	_ = cmd.MarkFlagRequired("field")
	_ = cmd.MarkFlagRequired("term")

	return cmd
}

func runSearch(cmd *cobra.Command, field, term string, limit int, jsonOutput bool) error {
	ctx := cmd.Context()
	e, cfg, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	fusion := engine.FusionRRF
	if cfg.Search.Fusion == "weighted_sum" {
		fusion = engine.FusionWeightedSum
	}

	res, err := e.Search(ctx, engine.Request{
		Lexical:       query.Request{Query: query.Term{Field: field, Term: term}},
		Fusion:        fusion,
		RRFK:          cfg.Search.RRFConstant,
		LexicalWeight: cfg.Search.LexicalWeight,
		VectorWeight:  cfg.Search.VectorWeight,
		Limit:         limit,
		LoadDocuments: true,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res.Hits)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d hits (of %d candidates)\n", len(res.Hits), res.Total)
	for i, h := range res.Hits {
		fmt.Fprintf(out, "%3d. score=%.4f id=%s\n", i+1, h.Score, h.ExternalID)
	}
	return nil
}

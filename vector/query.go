package vector

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ScoreMode selects how multiple vector clauses combine into one score
// per document, per spec.md §4.13's vector sub-request.
type ScoreMode int

const (
	// ScoreWeightedSum min-max normalizes each clause's score list to
	// [0,1], multiplies by the clause's weight, and sums; a document
	// absent from a clause's results counts as 0 for that clause.
	ScoreWeightedSum ScoreMode = iota
	// ScoreMaxSim keeps, per document, the single best-matching clause's
	// raw score — the clauses are read as alternate phrasings of the
	// same intent rather than independent signals to combine.
	ScoreMaxSim
	// ScoreLateInteraction sums each clause's raw top-match score per
	// document. Each clause already returns its single best match
	// against the field's index, so summing approximates ColBERT-style
	// late interaction (sum of per-query-token max similarity) without
	// requiring per-document multi-vector storage; true token-level
	// interaction would need the caller to split a logical document
	// into per-chunk internal IDs (as add_document's chunking already
	// allows) and aggregate across chunks at the engine layer.
	ScoreLateInteraction
)

// Clause is one vector sub-query: a field to search and either a
// precomputed query vector or one produced by embedding text upstream.
type Clause struct {
	Field  string
	Vector []float32
	Weight float64
}

// FieldIndex is the minimal surface Flat, HNSW, and IVF all satisfy.
type FieldIndex interface {
	SearchTopK(query []float32, topK int, allowlist map[uint64]struct{}) []ScoredID
}

// Request bundles a vector sub-request's clauses, per spec.md §4.13.
type Request struct {
	Clauses   []Clause
	Mode      ScoreMode
	Limit     int
	Allowlist map[uint64]struct{}
}

// clauseResult is one clause's raw hits, kept alongside its weight so
// Execute can normalize and combine after all clauses finish.
type clauseResult struct {
	weight float64
	hits   []ScoredID
}

// Execute fans clauses out over indexes (keyed by field name) in
// parallel, then combines per req.Mode and returns the top Limit ids.
func Execute(ctx context.Context, indexes map[string]FieldIndex, req Request) ([]ScoredID, error) {
	results := make([]clauseResult, len(req.Clauses))

	g, _ := errgroup.WithContext(ctx)
	for i, clause := range req.Clauses {
		i, clause := i, clause
		g.Go(func() error {
			idx, ok := indexes[clause.Field]
			if !ok {
				results[i] = clauseResult{weight: clause.Weight}
				return nil
			}
			fetch := req.Limit
			if fetch <= 0 {
				fetch = 10
			}
			hits := idx.SearchTopK(clause.Vector, fetch, req.Allowlist)
			weight := clause.Weight
			if weight == 0 {
				weight = 1
			}
			results[i] = clauseResult{weight: weight, hits: hits}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var combined map[uint64]float64
	switch req.Mode {
	case ScoreMaxSim:
		combined = combineMaxSim(results)
	case ScoreLateInteraction:
		combined = combineSum(results)
	default:
		combined = combineWeightedSum(results)
	}

	out := make([]ScoredID, 0, len(combined))
	for id, score := range combined {
		out = append(out, ScoredID{ID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if req.Limit > 0 && len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

func combineWeightedSum(results []clauseResult) map[uint64]float64 {
	combined := map[uint64]float64{}
	for _, r := range results {
		normalized := minMaxNormalize(r.hits)
		for id, score := range normalized {
			combined[id] += score * r.weight
		}
	}
	return combined
}

func combineMaxSim(results []clauseResult) map[uint64]float64 {
	combined := map[uint64]float64{}
	for _, r := range results {
		for _, h := range r.hits {
			if cur, ok := combined[h.ID]; !ok || h.Score > cur {
				combined[h.ID] = h.Score
			}
		}
	}
	return combined
}

func combineSum(results []clauseResult) map[uint64]float64 {
	combined := map[uint64]float64{}
	for _, r := range results {
		for _, h := range r.hits {
			combined[h.ID] += h.Score
		}
	}
	return combined
}

// minMaxNormalize rescales hits' scores to [0,1] over that clause's own
// result set, per spec.md §4.12's WeightedSum fusion rule extended to
// per-clause vector combination.
func minMaxNormalize(hits []ScoredID) map[uint64]float64 {
	out := map[uint64]float64{}
	if len(hits) == 0 {
		return out
	}
	lo, hi := hits[0].Score, hits[0].Score
	for _, h := range hits {
		if h.Score < lo {
			lo = h.Score
		}
		if h.Score > hi {
			hi = h.Score
		}
	}
	span := hi - lo
	for _, h := range hits {
		if span == 0 {
			out[h.ID] = 1
			continue
		}
		out[h.ID] = (h.Score - lo) / span
	}
	return out
}

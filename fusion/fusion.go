// Package fusion combines ranked result lists from the lexical and
// vector sides of a hybrid search into one ranking (spec.md §4.12).
package fusion

import (
	"sort"

	laurus "github.com/Aman-CERP/laurus"
)

// RankedHit is one list's view of a result: its internal ID, its own
// score on that list (used for WeightedSum and as RRF's tie-break),
// and its 1-based rank within that list.
type RankedHit struct {
	DocID laurus.InternalID
	Score float64
	Rank  int
}

// Fused is one document's place in the combined ranking.
type Fused struct {
	DocID laurus.InternalID
	Score float64
}

// DefaultRRFK is spec.md §4.12's default RRF constant.
const DefaultRRFK = 60

// RRF computes reciprocal rank fusion over any number of ranked lists:
// score(d) = Σ 1/(k + rank_i(d)) across the lists d appears in. Ties
// are broken by greater lexical score (lists[0] is always the lexical
// list by convention), then smaller internal ID.
func RRF(k int, lists ...[]RankedHit) []Fused {
	if k <= 0 {
		k = DefaultRRFK
	}
	scores := map[laurus.InternalID]float64{}
	lexicalScore := map[laurus.InternalID]float64{}
	for i, list := range lists {
		for _, hit := range list {
			scores[hit.DocID] += 1.0 / float64(k+hit.Rank)
			if i == 0 {
				if s, ok := lexicalScore[hit.DocID]; !ok || hit.Score > s {
					lexicalScore[hit.DocID] = hit.Score
				}
			}
		}
	}
	out := make([]Fused, 0, len(scores))
	for id, score := range scores {
		out = append(out, Fused{DocID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if lexicalScore[out[i].DocID] != lexicalScore[out[j].DocID] {
			return lexicalScore[out[i].DocID] > lexicalScore[out[j].DocID]
		}
		return out[i].DocID < out[j].DocID
	})
	return out
}

// WeightedSum min-max normalizes each list's own scores to [0,1] (over
// the documents that list returned), then sums lexicalWeight*lexical +
// vectorWeight*vector; a document missing from one list counts as 0 on
// that side. lexical is lists[0]'s role, vector is lists[1]'s.
func WeightedSum(lexicalWeight, vectorWeight float64, lexical, vector []RankedHit) []Fused {
	lexNorm := minMaxNormalizeHits(lexical)
	vecNorm := minMaxNormalizeHits(vector)

	ids := map[laurus.InternalID]struct{}{}
	for id := range lexNorm {
		ids[id] = struct{}{}
	}
	for id := range vecNorm {
		ids[id] = struct{}{}
	}

	out := make([]Fused, 0, len(ids))
	for id := range ids {
		score := lexicalWeight*lexNorm[id] + vectorWeight*vecNorm[id]
		out = append(out, Fused{DocID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].DocID < out[j].DocID
	})
	return out
}

func minMaxNormalizeHits(hits []RankedHit) map[laurus.InternalID]float64 {
	out := map[laurus.InternalID]float64{}
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
			out[h.DocID] = 1
			continue
		}
		out[h.DocID] = (h.Score - lo) / span
	}
	return out
}

// Paginate applies offset/limit to a fused ranking, per spec.md §4.12.
func Paginate(fused []Fused, offset, limit int) []Fused {
	if offset >= len(fused) {
		return nil
	}
	end := len(fused)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return fused[offset:end]
}

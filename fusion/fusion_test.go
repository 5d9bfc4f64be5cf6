package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	laurus "github.com/Aman-CERP/laurus"
)

func id(n uint64) laurus.InternalID { return laurus.NewInternalID(0, n) }

func TestRRFMatchesWorkedExample(t *testing.T) {
	lexical := []RankedHit{
		{DocID: id(1), Score: 3, Rank: 1},
		{DocID: id(2), Score: 2, Rank: 2},
		{DocID: id(3), Score: 1, Rank: 3},
	}
	vector := []RankedHit{
		{DocID: id(3), Score: 0.9, Rank: 1},
		{DocID: id(2), Score: 0.8, Rank: 2},
		{DocID: id(4), Score: 0.7, Rank: 3},
	}
	fused := RRF(60, lexical, vector)
	got := make([]laurus.InternalID, len(fused))
	for i, f := range fused {
		got[i] = f.DocID
	}
	// d3 (rank 3 lexical, rank 1 vector) edges out d2 (rank 2, rank 2):
	// 1/(60+3)+1/(60+1) > 1/(60+2)+1/(60+2) since 1/(k+r) is convex in r,
	// so concentrating one list's advantage outweighs splitting it evenly.
	assert.Equal(t, []laurus.InternalID{id(3), id(2), id(1), id(4)}, got)
}

func TestRRFDefaultsKWhenNonPositive(t *testing.T) {
	lexical := []RankedHit{{DocID: id(1), Score: 1, Rank: 1}}
	fused := RRF(0, lexical)
	assert.Len(t, fused, 1)
	assert.InDelta(t, 1.0/61.0, fused[0].Score, 1e-9)
}

func TestWeightedSumMissingSideCountsZero(t *testing.T) {
	lexical := []RankedHit{
		{DocID: id(1), Score: 5, Rank: 2},
		{DocID: id(2), Score: 10, Rank: 1},
	}
	vector := []RankedHit{
		{DocID: id(2), Score: 0.9, Rank: 1},
	}
	fused := WeightedSum(0.5, 0.5, lexical, vector)
	scores := map[laurus.InternalID]float64{}
	for _, f := range fused {
		scores[f.DocID] = f.Score
	}
	// doc 1 is lexical's worst entry (normalizes to 0) and absent from
	// the vector list (counts as 0 there too).
	assert.InDelta(t, 0.0, scores[id(1)], 1e-9)
	// doc 2 tops both lists: 0.5*1.0 + 0.5*1.0 = 1.0.
	assert.InDelta(t, 1.0, scores[id(2)], 1e-9)
}

func TestPaginateAppliesOffsetAndLimit(t *testing.T) {
	fused := []Fused{{DocID: id(1)}, {DocID: id(2)}, {DocID: id(3)}}
	page := Paginate(fused, 1, 1)
	assert.Equal(t, []Fused{{DocID: id(2)}}, page)
}

func TestPaginateOffsetPastEndReturnsEmpty(t *testing.T) {
	fused := []Fused{{DocID: id(1)}}
	assert.Empty(t, Paginate(fused, 5, 10))
}

package query

import (
	"context"
	"sort"

	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/lexical"
	"golang.org/x/sync/errgroup"
)

// CrossSegmentHit is a match tagged with the segment it came from, the
// unit the engine package translates into a stable InternalID.
type CrossSegmentHit struct {
	Segment    lexical.SegmentID
	LocalDocID uint32
	Score      float64
}

// SearchResult is SearchSegments' globally merged hits plus whether
// req.Timeout cut the search short before every segment finished
// (spec.md §4.6/§5/§7's timeout-with-truncation-indicator behavior).
type SearchResult struct {
	Hits      []CrossSegmentHit
	Truncated bool
}

// SearchSegments runs req against every segment, by default fanning
// out concurrently (errgroup-based, mirroring the teacher's parallel
// lexical + vector search pattern; req.Sequential forces one-at-a-time
// execution instead), and returns the globally top-k hits. If
// req.Timeout elapses before every segment has been searched, the
// segments reached so far are still merged and returned with
// Truncated set rather than the whole search failing.
func SearchSegments(ctx context.Context, segments []*lexical.Segment, req Request) (SearchResult, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	perSegment := make([][]CrossSegmentHit, len(segments))
	perSegReq := Request{
		Query: req.Query, Size: req.From + req.Size, From: 0,
		Boosts: req.Boosts, MinScore: req.MinScore,
		SortMode: req.SortMode, SortField: req.SortField,
	}

	search := func(i int, seg *lexical.Segment) error {
		if err := ctx.Err(); err != nil {
			return nil // deadline already passed; leave this segment unsearched
		}
		hits, err := SearchSegment(seg, perSegReq)
		if err != nil {
			return err
		}
		out := make([]CrossSegmentHit, len(hits))
		for j, h := range hits {
			out[j] = CrossSegmentHit{Segment: seg.ID(), LocalDocID: h.LocalDocID, Score: h.Score}
		}
		perSegment[i] = out
		return nil
	}

	if req.Sequential {
		for i, seg := range segments {
			if err := search(i, seg); err != nil {
				return SearchResult{}, laurus.Wrap(laurus.KindQuery, err)
			}
		}
	} else {
		g, _ := errgroup.WithContext(ctx)
		for i, seg := range segments {
			i, seg := i, seg
			g.Go(func() error { return search(i, seg) })
		}
		if err := g.Wait(); err != nil {
			return SearchResult{}, laurus.Wrap(laurus.KindQuery, err)
		}
	}

	truncated := ctx.Err() != nil
	var merged []CrossSegmentHit
	for _, hits := range perSegment {
		merged = append(merged, hits...)
	}

	segByID := make(map[lexical.SegmentID]*lexical.Segment, len(segments))
	for _, seg := range segments {
		segByID[seg.ID()] = seg
	}

	switch req.SortMode {
	case SortFieldAsc, SortFieldDesc:
		asc := req.SortMode == SortFieldAsc
		docValue := func(h CrossSegmentHit) float64 {
			seg := segByID[h.Segment]
			if seg == nil {
				return 0
			}
			v, _ := seg.DocValue(req.SortField, h.LocalDocID)
			return v
		}
		sort.Slice(merged, func(i, j int) bool {
			vi, vj := docValue(merged[i]), docValue(merged[j])
			if vi != vj {
				if asc {
					return vi < vj
				}
				return vi > vj
			}
			if merged[i].Segment != merged[j].Segment {
				return merged[i].Segment < merged[j].Segment
			}
			return merged[i].LocalDocID < merged[j].LocalDocID
		})
	default:
		sort.Slice(merged, func(i, j int) bool {
			if merged[i].Score != merged[j].Score {
				return merged[i].Score > merged[j].Score
			}
			if merged[i].Segment != merged[j].Segment {
				return merged[i].Segment < merged[j].Segment
			}
			return merged[i].LocalDocID < merged[j].LocalDocID
		})
	}
	from := req.From
	if from > len(merged) {
		from = len(merged)
	}
	end := from + req.Size
	if req.Size <= 0 || end > len(merged) {
		end = len(merged)
	}
	return SearchResult{Hits: merged[from:end], Truncated: truncated}, nil
}

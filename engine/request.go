package engine

import (
	"context"

	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/fusion"
	"github.com/Aman-CERP/laurus/lexical/query"
	"github.com/Aman-CERP/laurus/vector"
)

// FusionAlgorithm selects how the lexical and vector rankings combine
// (spec.md §4.12).
type FusionAlgorithm int

const (
	FusionRRF FusionAlgorithm = iota
	FusionWeightedSum
)

// VectorClause is one vector sub-query (spec.md §4.13): either a
// precomputed Vector or Text resolved through the engine's configured
// Embedder (the same path document writes use, see Engine.resolveVector).
type VectorClause struct {
	Field  string
	Vector []float32
	Text   string
	Weight float64
}

// Request is a hybrid search request spanning the lexical and vector
// sides of the index, combined by Fusion (spec.md §4.13). Lexical is
// spec.md §4.13's lexical sub-request verbatim (query, limit via the
// engine's own fanout sizing, per-field boosts, min-score, sort mode,
// timeout, parallel flag); a nil Lexical.Query skips the lexical side
// entirely.
type Request struct {
	Lexical query.Request

	Vector      []VectorClause
	VectorMode  vector.ScoreMode
	VectorLimit int // per-clause candidate depth; 0 defaults to Offset+Limit, or 10 when that is also 0

	// Filter restricts both sides to documents matching it. Applied as
	// a Boolean must_not-free filter clause on the lexical side and as
	// a precomputed allowlist on the vector side.
	Filter query.Query

	Fusion         FusionAlgorithm
	RRFK           int // 0 uses fusion.DefaultRRFK
	LexicalWeight  float64
	VectorWeight   float64

	Offset int
	Limit  int

	// LoadDocuments, when true, populates each Hit's Document from
	// stored fields. When false only InternalID/Score are returned,
	// the cheaper path for callers that only need ids.
	LoadDocuments bool
}

// Hit is one ranked result (spec.md §4.13).
type Hit struct {
	InternalID laurus.InternalID
	ExternalID string
	Score      float64
	Document   laurus.Document
}

// Result is a page of ranked, fused hits.
type Result struct {
	Hits  []Hit
	Total int // count of fused candidates before pagination

	// Truncated is set when req.Lexical.Timeout elapsed before every
	// segment could be searched; Hits/Total still reflect whatever was
	// gathered before the deadline (spec.md §4.6/§5/§7).
	Truncated bool
}

// Search runs req across the lexical and/or vector sides, fuses the
// two rankings, paginates, and (optionally) loads stored fields.
func (e *Engine) Search(ctx context.Context, req Request) (Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var allowlist map[uint64]struct{}
	if req.Filter != nil {
		var err error
		allowlist, err = e.filterAllowlistLocked(ctx, req.Filter)
		if err != nil {
			return Result{}, err
		}
	}

	var lexicalRanked []fusion.RankedHit
	var truncated bool
	if req.Lexical.Query != nil {
		lexQuery := req.Lexical.Query
		if req.Filter != nil {
			lexQuery = query.Boolean{Clauses: []query.BooleanClause{
				{Query: req.Lexical.Query, Occur: query.OccurMust},
				{Query: req.Filter, Occur: query.OccurFilter},
			}}
		}
		result, err := query.SearchSegments(ctx, e.lexIndex.Segments(), query.Request{
			Query:      lexQuery,
			Size:       lexicalFanoutSize(req),
			Boosts:     req.Lexical.Boosts,
			MinScore:   req.Lexical.MinScore,
			SortMode:   req.Lexical.SortMode,
			SortField:  req.Lexical.SortField,
			Timeout:    req.Lexical.Timeout,
			Sequential: req.Lexical.Sequential,
		})
		if err != nil {
			return Result{}, err
		}
		lexicalRanked = e.crossSegmentHitsToRankedLocked(result.Hits)
		truncated = result.Truncated
	}

	var vectorRanked []fusion.RankedHit
	if len(req.Vector) > 0 {
		indexes := make(map[string]vector.FieldIndex, len(e.vectors))
		for field, fi := range e.vectors {
			indexes[field] = fi
		}
		clauses := make([]vector.Clause, len(req.Vector))
		for i, c := range req.Vector {
			vec, err := e.resolveVectorClauseLocked(ctx, c)
			if err != nil {
				return Result{}, err
			}
			clauses[i] = vector.Clause{Field: c.Field, Vector: vec, Weight: c.Weight}
		}
		limit := req.VectorLimit
		if limit <= 0 {
			limit = req.Offset + req.Limit
			if limit <= 0 {
				limit = 10
			}
		}
		scored, err := vector.Execute(ctx, indexes, vector.Request{
			Clauses:   clauses,
			Mode:      req.VectorMode,
			Limit:     limit,
			Allowlist: allowlist,
		})
		if err != nil {
			return Result{}, err
		}
		vectorRanked = scoredIDsToRanked(scored)
	}

	fused := e.fuseLocked(req, lexicalRanked, vectorRanked)
	total := len(fused)
	page := fusion.Paginate(fused, req.Offset, req.Limit)

	hits := make([]Hit, len(page))
	for i, f := range page {
		h := Hit{InternalID: f.DocID, Score: f.Score}
		if req.LoadDocuments {
			doc, ext, err := e.loadStoredLocked(f.DocID)
			if err != nil {
				return Result{}, err
			}
			h.Document = doc
			h.ExternalID = ext
		}
		hits[i] = h
	}
	return Result{Hits: hits, Total: total, Truncated: truncated}, nil
}

// resolveVectorClauseLocked returns c's query vector: c.Vector directly
// when set, otherwise c.Text embedded through the engine's configured
// Embedder via the same resolveVector path document writes use.
func (e *Engine) resolveVectorClauseLocked(ctx context.Context, c VectorClause) ([]float32, error) {
	if len(c.Vector) > 0 {
		return c.Vector, nil
	}
	if c.Text == "" {
		return nil, nil
	}
	opt, ok := e.schema[c.Field]
	if !ok || opt.Vector == nil {
		return nil, laurus.Newf(laurus.KindField, "field %q is not a vector field", c.Field)
	}
	return e.resolveVector(ctx, opt.Vector, laurus.TextValue(c.Text))
}

// lexicalFanoutSize decides how many lexical hits to collect before
// fusion: generous enough that RRF/WeightedSum have real candidates to
// rank beyond the final page.
func lexicalFanoutSize(req Request) int {
	n := req.Offset + req.Limit
	if n <= 0 {
		n = 100
	}
	if n < 100 {
		n = 100
	}
	return n
}

func (e *Engine) crossSegmentHitsToRankedLocked(hits []query.CrossSegmentHit) []fusion.RankedHit {
	out := make([]fusion.RankedHit, 0, len(hits))
	for i, h := range hits {
		seg := e.segByID[h.Segment]
		if seg == nil {
			continue
		}
		id, ok := seg.InternalID(h.LocalDocID)
		if !ok {
			continue
		}
		out = append(out, fusion.RankedHit{DocID: id, Score: h.Score, Rank: i + 1})
	}
	return out
}

func scoredIDsToRanked(scored []vector.ScoredID) []fusion.RankedHit {
	out := make([]fusion.RankedHit, len(scored))
	for i, s := range scored {
		out[i] = fusion.RankedHit{DocID: laurus.InternalID(s.ID), Score: s.Score, Rank: i + 1}
	}
	return out
}

func (e *Engine) fuseLocked(req Request, lexical, vec []fusion.RankedHit) []fusion.Fused {
	switch req.Fusion {
	case FusionWeightedSum:
		lw, vw := req.LexicalWeight, req.VectorWeight
		if lw == 0 && vw == 0 {
			lw, vw = 1, 1
		}
		return fusion.WeightedSum(lw, vw, lexical, vec)
	default:
		return fusion.RRF(req.RRFK, lexical, vec)
	}
}

// filterAllowlistLocked runs filter as a standalone lexical query and
// returns the matching documents' internal ids as a vector-side
// allowlist (spec.md §4.13's filtered vector search).
func (e *Engine) filterAllowlistLocked(ctx context.Context, filter query.Query) (map[uint64]struct{}, error) {
	result, err := query.SearchSegments(ctx, e.lexIndex.Segments(), query.Request{
		Query: filter,
		Size:  1 << 20,
	})
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]struct{}, len(result.Hits))
	for _, h := range result.Hits {
		seg := e.segByID[h.Segment]
		if seg == nil {
			continue
		}
		id, ok := seg.InternalID(h.LocalDocID)
		if !ok {
			continue
		}
		out[uint64(id)] = struct{}{}
	}
	return out, nil
}

func (e *Engine) loadStoredLocked(id laurus.InternalID) (laurus.Document, string, error) {
	loc, ok := e.locations[id]
	if !ok {
		return nil, "", nil
	}
	seg := e.segByID[loc.segment]
	if seg == nil {
		return nil, "", nil
	}
	doc, err := seg.StoredFields(loc.local)
	if err != nil {
		return nil, "", err
	}
	ext, _ := doc[laurus.ReservedIDField].Text()
	return doc, ext, nil
}

package query

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/Aman-CERP/laurus/lexical"
)

// BM25 parameters (spec.md §4.6).
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// SegmentHit is one match within a single segment, before translation
// to a stable InternalID (the engine package owns that mapping).
type SegmentHit struct {
	LocalDocID uint32
	Score      float64
}

// Weight is a query compiled against one segment: it knows how to
// produce a Matcher that walks that segment's postings.
type Weight interface {
	Matcher(seg *lexical.Segment) (Matcher, error)
}

// Matcher yields (localDocID -> score) contributions for a single
// query clause within one segment. Implementations here are
// map-based rather than skip-list iterators (see DESIGN.md) since
// segments are bounded in size and simplicity wins over marginal
// latency at this scale.
type Matcher interface {
	Scores() map[uint32]float64
}

type mapMatcher map[uint32]float64

func (m mapMatcher) Scores() map[uint32]float64 { return m }

// CompileWeight turns a Query into a Weight.
func CompileWeight(q Query) Weight {
	switch v := q.(type) {
	case Term:
		return termWeight(v)
	case Phrase:
		return phraseWeight(v)
	case Boolean:
		return booleanWeight(v)
	case Fuzzy:
		return fuzzyWeight(v)
	case Prefix:
		return prefixWeight(v)
	case Wildcard:
		return wildcardWeight(v)
	case Regexp:
		return regexpWeight(v)
	case NumericRange:
		return numericRangeWeight(v)
	case Geo:
		return geoWeight(v)
	case SpanNear:
		return spanNearWeight(v)
	default:
		return weightFunc(func(*lexical.Segment) (Matcher, error) { return mapMatcher{}, nil })
	}
}

type weightFunc func(seg *lexical.Segment) (Matcher, error)

func (f weightFunc) Matcher(seg *lexical.Segment) (Matcher, error) { return f(seg) }

// bm25Score scores one posting's term frequency against the segment's
// corpus statistics for field (spec.md §4.6's exact formula).
func bm25Score(termFreq uint32, docFreq, totalDocs uint64, fieldLen uint32, avgFieldLen float64) float64 {
	if totalDocs == 0 || avgFieldLen == 0 {
		return 0
	}
	idf := math.Log(1 + (float64(totalDocs)-float64(docFreq)+0.5)/(float64(docFreq)+0.5))
	tf := float64(termFreq)
	norm := 1 - bm25B + bm25B*(float64(fieldLen)/avgFieldLen)
	return idf * (tf * (bm25K1 + 1)) / (tf + bm25K1*norm)
}

// fieldWeightOf returns a posting's field_weight (spec.md §4.3),
// defaulting to 1.0 when the field set none.
func fieldWeightOf(w float32) float64 {
	if w == 0 {
		return 1
	}
	return float64(w)
}

func termWeight(t Term) Weight {
	return weightFunc(func(seg *lexical.Segment) (Matcher, error) {
		info, ok := seg.LookupTerm(t.Field, t.Term)
		if !ok {
			return mapMatcher{}, nil
		}
		postings, err := seg.Postings(info)
		if err != nil {
			return nil, err
		}
		totalDocs := uint64(seg.LiveDocCount())
		avgLen := seg.FieldAvgLength(t.Field)
		out := make(mapMatcher, len(postings))
		for _, p := range postings {
			if seg.IsDeleted(p.LocalDocID) {
				continue
			}
			score := bm25Score(p.Freq, info.DocFreq, totalDocs, seg.FieldLength(t.Field, p.LocalDocID), avgLen)
			boost := t.Boost
			if boost == 0 {
				boost = 1
			}
			out[p.LocalDocID] = score * boost * fieldWeightOf(p.Weight)
		}
		return out, nil
	})
}

func phraseWeight(p Phrase) Weight {
	return weightFunc(func(seg *lexical.Segment) (Matcher, error) {
		if len(p.Terms) == 0 {
			return mapMatcher{}, nil
		}
		postingsByTerm := make([]map[uint32][]uint32, len(p.Terms))
		var fieldWeight float32
		for i, term := range p.Terms {
			info, ok := seg.LookupTerm(p.Field, term)
			if !ok {
				return mapMatcher{}, nil
			}
			postings, err := seg.Postings(info)
			if err != nil {
				return nil, err
			}
			m := make(map[uint32][]uint32, len(postings))
			for _, posting := range postings {
				m[posting.LocalDocID] = posting.Positions
				if fieldWeight == 0 {
					fieldWeight = posting.Weight
				}
			}
			postingsByTerm[i] = m
		}
		out := make(mapMatcher)
		for docID, firstPositions := range postingsByTerm[0] {
			if seg.IsDeleted(docID) {
				continue
			}
			if phraseMatchesAt(postingsByTerm, docID, firstPositions, p.Slop) {
				totalDocs := uint64(seg.LiveDocCount())
				avgLen := seg.FieldAvgLength(p.Field)
				info, _ := seg.LookupTerm(p.Field, p.Terms[0])
				score := bm25Score(uint32(len(firstPositions)), info.DocFreq, totalDocs, seg.FieldLength(p.Field, docID), avgLen)
				boost := p.Boost
				if boost == 0 {
					boost = 1
				}
				out[docID] = score * boost * fieldWeightOf(fieldWeight)
			}
		}
		return out, nil
	})
}

func phraseMatchesAt(postingsByTerm []map[uint32][]uint32, docID uint32, firstPositions []uint32, slop int) bool {
	for _, start := range firstPositions {
		ok := true
		for i := 1; i < len(postingsByTerm); i++ {
			positions, present := postingsByTerm[i][docID]
			if !present {
				ok = false
				break
			}
			found := false
			for _, pos := range positions {
				diff := int(pos) - int(start) - i
				if diff < 0 {
					diff = -diff
				}
				if diff <= slop {
					found = true
					break
				}
			}
			if !found {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func booleanWeight(b Boolean) Weight {
	return weightFunc(func(seg *lexical.Segment) (Matcher, error) {
		var musts, shoulds, mustNots, filters []map[uint32]float64
		for _, clause := range b.Clauses {
			m, err := CompileWeight(clause.Query).Matcher(seg)
			if err != nil {
				return nil, err
			}
			scores := m.Scores()
			switch clause.Occur {
			case OccurMust:
				musts = append(musts, scores)
			case OccurShould:
				shoulds = append(shoulds, scores)
			case OccurMustNot:
				mustNots = append(mustNots, scores)
			case OccurFilter:
				filters = append(filters, scores)
			}
		}

		minShould := b.MinimumShouldMatch
		candidates := intersect(musts)
		if candidates == nil && len(shoulds) > 0 {
			candidates = unionKeys(shoulds)
		}
		candidates = intersectKeys(candidates, filters)

		out := make(mapMatcher)
		for docID := range candidates {
			if matchesAny(mustNots, docID) {
				continue
			}
			shouldHits, shouldScore := countShould(shoulds, docID)
			required := minShould
			if required == 0 && len(musts) == 0 && len(shoulds) > 0 {
				required = 1
			}
			if shouldHits < required {
				continue
			}
			var total float64
			for _, m := range musts {
				total += m[docID]
			}
			total += shouldScore
			out[docID] = total
		}
		return out, nil
	})
}

func intersect(maps []map[uint32]float64) map[uint32]struct{} {
	if len(maps) == 0 {
		return nil
	}
	out := make(map[uint32]struct{}, len(maps[0]))
	for id := range maps[0] {
		out[id] = struct{}{}
	}
	for _, m := range maps[1:] {
		for id := range out {
			if _, ok := m[id]; !ok {
				delete(out, id)
			}
		}
	}
	return out
}

func unionKeys(maps []map[uint32]float64) map[uint32]struct{} {
	out := make(map[uint32]struct{})
	for _, m := range maps {
		for id := range m {
			out[id] = struct{}{}
		}
	}
	return out
}

func intersectKeys(candidates map[uint32]struct{}, filters []map[uint32]float64) map[uint32]struct{} {
	if len(filters) == 0 {
		return candidates
	}
	if candidates == nil {
		candidates = unionKeys(filters)
	}
	for id := range candidates {
		for _, f := range filters {
			if _, ok := f[id]; !ok {
				delete(candidates, id)
				break
			}
		}
	}
	return candidates
}

func matchesAny(maps []map[uint32]float64, docID uint32) bool {
	for _, m := range maps {
		if _, ok := m[docID]; ok {
			return true
		}
	}
	return false
}

func countShould(maps []map[uint32]float64, docID uint32) (int, float64) {
	var hits int
	var total float64
	for _, m := range maps {
		if s, ok := m[docID]; ok {
			hits++
			total += s
		}
	}
	return hits, total
}

func fuzzyWeight(f Fuzzy) Weight {
	return weightFunc(func(seg *lexical.Segment) (Matcher, error) {
		distance := f.Distance
		if distance <= 0 || distance > 2 {
			distance = 2
		}
		entries := seg.AllTerms(f.Field)
		out := make(mapMatcher)
		totalDocs := uint64(seg.LiveDocCount())
		avgLen := seg.FieldAvgLength(f.Field)
		for _, e := range entries {
			if levenshtein(f.Term, e.Term) > distance {
				continue
			}
			postings, err := seg.Postings(e.Info)
			if err != nil {
				return nil, err
			}
			accumulateTermPostings(out, postings, seg, f.Field, e.Info.DocFreq, totalDocs, avgLen, f.Boost)
		}
		return out, nil
	})
}

func prefixWeight(p Prefix) Weight {
	return weightFunc(func(seg *lexical.Segment) (Matcher, error) {
		entries := seg.TermsWithPrefix(p.Field, p.Prefix)
		out := make(mapMatcher)
		totalDocs := uint64(seg.LiveDocCount())
		avgLen := seg.FieldAvgLength(p.Field)
		for _, e := range entries {
			postings, err := seg.Postings(e.Info)
			if err != nil {
				return nil, err
			}
			accumulateTermPostings(out, postings, seg, p.Field, e.Info.DocFreq, totalDocs, avgLen, p.Boost)
		}
		return out, nil
	})
}

func wildcardWeight(w Wildcard) Weight {
	return weightFunc(func(seg *lexical.Segment) (Matcher, error) {
		re, err := regexp.Compile("^" + globToRegexp(w.Pattern) + "$")
		if err != nil {
			return nil, err
		}
		entries := seg.AllTerms(w.Field)
		out := make(mapMatcher)
		totalDocs := uint64(seg.LiveDocCount())
		avgLen := seg.FieldAvgLength(w.Field)
		for _, e := range entries {
			if !re.MatchString(e.Term) {
				continue
			}
			postings, err := seg.Postings(e.Info)
			if err != nil {
				return nil, err
			}
			accumulateTermPostings(out, postings, seg, w.Field, e.Info.DocFreq, totalDocs, avgLen, w.Boost)
		}
		return out, nil
	})
}

func regexpWeight(rq Regexp) Weight {
	return weightFunc(func(seg *lexical.Segment) (Matcher, error) {
		re, err := regexp.Compile(rq.Pattern)
		if err != nil {
			return nil, err
		}
		entries := seg.AllTerms(rq.Field)
		out := make(mapMatcher)
		totalDocs := uint64(seg.LiveDocCount())
		avgLen := seg.FieldAvgLength(rq.Field)
		for _, e := range entries {
			if !re.MatchString(e.Term) {
				continue
			}
			postings, err := seg.Postings(e.Info)
			if err != nil {
				return nil, err
			}
			accumulateTermPostings(out, postings, seg, rq.Field, e.Info.DocFreq, totalDocs, avgLen, rq.Boost)
		}
		return out, nil
	})
}

func accumulateTermPostings(out mapMatcher, postings []lexical.Posting, seg *lexical.Segment, field string, docFreq, totalDocs uint64, avgLen float64, boost float64) {
	if boost == 0 {
		boost = 1
	}
	for _, p := range postings {
		if seg.IsDeleted(p.LocalDocID) {
			continue
		}
		score := bm25Score(p.Freq, docFreq, totalDocs, seg.FieldLength(field, p.LocalDocID), avgLen) * boost * fieldWeightOf(p.Weight)
		if existing, ok := out[p.LocalDocID]; !ok || score > existing {
			out[p.LocalDocID] = score
		}
	}
}

func numericRangeWeight(n NumericRange) Weight {
	return weightFunc(func(seg *lexical.Segment) (Matcher, error) {
		lo, hi := n.Min, n.Max
		ids, ok := seg.RangeQuery(n.Field, lo, hi)
		out := make(mapMatcher)
		if !ok {
			return out, nil
		}
		boost := n.Boost
		if boost == 0 {
			boost = 1
		}
		for _, id := range ids {
			if seg.IsDeleted(id) {
				continue
			}
			v, present := seg.DocValue(n.Field, id)
			if !present {
				continue
			}
			if !n.MinInclusive && v == n.Min {
				continue
			}
			if !n.MaxInclusive && v == n.Max {
				continue
			}
			out[id] = boost
		}
		return out, nil
	})
}

const earthRadiusMeters = 6371000.0

func geoWeight(g Geo) Weight {
	return weightFunc(func(seg *lexical.Segment) (Matcher, error) {
		out := make(mapMatcher)
		// A full implementation would bound-box prefilter via the BKD
		// tree's Z-order key before the haversine check; segments here
		// are small enough that checking every document in this field's
		// BKD tree against its stored point is acceptable (see DESIGN.md
		// Open Questions). A document whose geo field is not stored never
		// matches.
		ids, ok := seg.RangeQuery(g.Field, -1, math.MaxFloat64)
		if !ok {
			return out, nil
		}
		boost := g.Boost
		if boost == 0 {
			boost = 1
		}
		for _, id := range ids {
			if seg.IsDeleted(id) {
				continue
			}
			doc, err := seg.StoredFields(id)
			if err != nil {
				continue
			}
			val, present := doc[g.Field]
			if !present {
				continue
			}
			geoPoint, present := val.GeoPoint()
			if !present {
				continue
			}
			if haversine(g.Lat, g.Lon, geoPoint.Lat, geoPoint.Lon) <= g.RadiusMeters {
				out[id] = boost
			}
		}
		return out, nil
	})
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := math.Pi / 180
	dLat := (lat2 - lat1) * toRad
	dLon := (lon2 - lon1) * toRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*toRad)*math.Cos(lat2*toRad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

func spanNearWeight(s SpanNear) Weight {
	return weightFunc(func(seg *lexical.Segment) (Matcher, error) {
		if len(s.Clauses) == 0 {
			return mapMatcher{}, nil
		}
		postingsByTerm := make([]map[uint32][]uint32, len(s.Clauses))
		for i, clause := range s.Clauses {
			info, ok := seg.LookupTerm(clause.Field, clause.Term)
			if !ok {
				return mapMatcher{}, nil
			}
			postings, err := seg.Postings(info)
			if err != nil {
				return nil, err
			}
			m := make(map[uint32][]uint32, len(postings))
			for _, p := range postings {
				m[p.LocalDocID] = p.Positions
			}
			postingsByTerm[i] = m
		}
		out := make(mapMatcher)
		for docID, firstPositions := range postingsByTerm[0] {
			if seg.IsDeleted(docID) {
				continue
			}
			if spanMatchesAt(postingsByTerm, docID, firstPositions, s.Slop, s.InOrder) {
				boost := s.Boost
				if boost == 0 {
					boost = 1
				}
				out[docID] = boost
			}
		}
		return out, nil
	})
}

func spanMatchesAt(postingsByTerm []map[uint32][]uint32, docID uint32, firstPositions []uint32, slop int, inOrder bool) bool {
	for _, start := range firstPositions {
		ok := true
		prev := int(start)
		for i := 1; i < len(postingsByTerm); i++ {
			positions, present := postingsByTerm[i][docID]
			if !present {
				ok = false
				break
			}
			found := false
			for _, pos := range positions {
				p := int(pos)
				if inOrder && p <= prev {
					continue
				}
				diff := p - prev
				if diff < 0 {
					diff = -diff
				}
				if diff <= slop+1 {
					found = true
					prev = p
					break
				}
			}
			if !found {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func levenshtein(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func globToRegexp(pattern string) string {
	var sb strings.Builder
	for _, r := range pattern {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return sb.String()
}

// SearchSegment executes q against seg and returns the top results,
// applying req's per-field boosts, min-score filter, sort mode, and
// From/Size paging (spec.md §4.13).
func SearchSegment(seg *lexical.Segment, req Request) ([]SegmentHit, error) {
	q := req.Query
	if len(req.Boosts) > 0 {
		q = ApplyFieldBoosts(q, req.Boosts)
	}
	weight := CompileWeight(q)
	matcher, err := weight.Matcher(seg)
	if err != nil {
		return nil, err
	}
	scores := matcher.Scores()
	hits := make([]SegmentHit, 0, len(scores))
	for id, score := range scores {
		if score < req.MinScore {
			continue
		}
		hits = append(hits, SegmentHit{LocalDocID: id, Score: score})
	}
	switch req.SortMode {
	case SortFieldAsc, SortFieldDesc:
		asc := req.SortMode == SortFieldAsc
		sort.Slice(hits, func(i, j int) bool {
			vi, _ := seg.DocValue(req.SortField, hits[i].LocalDocID)
			vj, _ := seg.DocValue(req.SortField, hits[j].LocalDocID)
			if vi != vj {
				if asc {
					return vi < vj
				}
				return vi > vj
			}
			return hits[i].LocalDocID < hits[j].LocalDocID
		})
	default:
		sort.Slice(hits, func(i, j int) bool {
			if hits[i].Score != hits[j].Score {
				return hits[i].Score > hits[j].Score
			}
			return hits[i].LocalDocID < hits[j].LocalDocID
		})
	}
	from := req.From
	if from > len(hits) {
		from = len(hits)
	}
	end := from + req.Size
	if req.Size <= 0 || end > len(hits) {
		end = len(hits)
	}
	return hits[from:end], nil
}

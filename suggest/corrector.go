package suggest

import "sort"

// TermEntry is one (term, document frequency) pair a caller extracts
// from its own term dictionary to hand to NewCorrector. Callers adapt
// their term source (e.g. *lexical.Segment.AllTerms) into a []TermEntry
// themselves, since a lexical segment's dictionary entry type belongs
// to the lexical package, not this one.
type TermEntry struct {
	Term    string
	DocFreq uint64
}

// Suggestion is one ranked spelling correction.
type Suggestion struct {
	Term     string
	DocFreq  uint64
	Distance int
}

// Corrector offers fuzzy term lookup over a dictionary of observed
// terms, typically built from one or more lexical segments' term
// dictionaries for a given field.
type Corrector struct {
	tree *bkTree
}

// NewCorrector builds a Corrector from entries, deduplicating terms
// seen more than once (keeping the higher document frequency).
func NewCorrector(entries []TermEntry) *Corrector {
	tree := newBKTree()
	for _, e := range entries {
		tree.insert(e.Term, e.DocFreq)
	}
	return &Corrector{tree: tree}
}

// Suggest returns up to limit corrections for term within maxEdits,
// ranked by (edit distance asc, document frequency desc, term asc).
func (c *Corrector) Suggest(term string, maxEdits, limit int) []Suggestion {
	cands := c.tree.search(term, maxEdits)
	out := make([]Suggestion, len(cands))
	for i, cd := range cands {
		out[i] = Suggestion{Term: cd.term, DocFreq: cd.docFreq, Distance: cd.distance}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		if out[i].DocFreq != out[j].DocFreq {
			return out[i].DocFreq > out[j].DocFreq
		}
		return out[i].Term < out[j].Term
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

package engine

import (
	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/suggest"
)

// Suggest offers spelling corrections for term against the terms
// observed in field across every live segment (spec.md §4.14), ranked
// by (edit distance asc, document frequency desc, term asc). A term
// that appears in more than one segment is folded into a single entry
// keeping its highest document frequency, since Corrector dedupes by
// term itself.
func (e *Engine) Suggest(field, term string, maxEdits, limit int) ([]suggest.Suggestion, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	opt, ok := e.schema[field]
	if !ok || opt.Lexical == nil {
		return nil, laurus.Newf(laurus.KindField, "field %q is not a lexical field", field)
	}

	var entries []suggest.TermEntry
	for _, seg := range e.segByID {
		for _, t := range seg.AllTerms(field) {
			entries = append(entries, suggest.TermEntry{Term: t.Term, DocFreq: t.Info.DocFreq})
		}
	}
	c := suggest.NewCorrector(entries)
	return c.Suggest(term, maxEdits, limit), nil
}

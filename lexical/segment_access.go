package lexical

import (
	"encoding/json"

	laurus "github.com/Aman-CERP/laurus"
)

// TermInfo is the public view of a dictionary entry: enough for a
// query-package Weight to compute IDF and fetch postings.
type TermInfo struct {
	DocFreq    uint64
	TotalFreq  uint64
	postingOff int64
	postingLen int64
}

func termInfoFrom(e termEntry) TermInfo {
	return TermInfo{DocFreq: e.docFreq, TotalFreq: e.totalFreq, postingOff: e.postingOff, postingLen: e.postingLen}
}

// LookupTerm finds the exact (field, term) entry in this segment.
func (s *Segment) LookupTerm(field, term string) (TermInfo, bool) {
	e, ok := s.dict.Lookup(field, term)
	if !ok {
		return TermInfo{}, false
	}
	return termInfoFrom(*e), true
}

// TermsWithPrefix returns every (term, TermInfo) pair in field whose
// term starts with prefix, sorted by term.
func (s *Segment) TermsWithPrefix(field, prefix string) []struct {
	Term string
	Info TermInfo
} {
	entries := s.dict.PrefixScan(field, prefix)
	out := make([]struct {
		Term string
		Info TermInfo
	}, len(entries))
	for i, e := range entries {
		out[i] = struct {
			Term string
			Info TermInfo
		}{e.term, termInfoFrom(e)}
	}
	return out
}

// AllTerms returns every (term, TermInfo) pair indexed for field.
func (s *Segment) AllTerms(field string) []struct {
	Term string
	Info TermInfo
} {
	entries := s.dict.FieldScan(field)
	out := make([]struct {
		Term string
		Info TermInfo
	}, len(entries))
	for i, e := range entries {
		out[i] = struct {
			Term string
			Info TermInfo
		}{e.term, termInfoFrom(e)}
	}
	return out
}

// Postings decodes the posting list described by info.
func (s *Segment) Postings(info TermInfo) ([]Posting, error) {
	return s.postings.Decode(info.postingOff, info.postingLen)
}

// FieldLength returns field's token count for localDocID.
func (s *Segment) FieldLength(field string, localDocID uint32) uint32 {
	return s.lens.Length(field, localDocID)
}

// FieldAvgLength returns the average token length of field across this
// segment's documents.
func (s *Segment) FieldAvgLength(field string) float64 {
	return s.fstats.AvgFieldLength(field)
}

// FieldDocFreq returns how many documents in this segment have field.
func (s *Segment) FieldDocFreq(field string) uint64 {
	return s.fstats.DocFreq(field)
}

// DocValue returns field's sortable doc-value for localDocID.
func (s *Segment) DocValue(field string, localDocID uint32) (float64, bool) {
	return s.dv.Value(field, localDocID)
}

// RangeQuery returns local doc ids in field whose doc-value falls
// within [lo, hi], via the segment's BKD tree for that field. Returns
// (nil, false) if field has no BKD tree in this segment.
func (s *Segment) RangeQuery(field string, lo, hi float64) ([]uint32, bool) {
	h, ok := s.bkdTrees[field]
	if !ok {
		return nil, false
	}
	return h.RangeQuery(lo, hi), true
}

// InternalID returns the stable id localDocID was assigned at build
// time, the key the engine and fusion packages use across segments.
func (s *Segment) InternalID(localDocID uint32) (laurus.InternalID, bool) {
	return s.ids.InternalID(localDocID)
}

// StoredFields unmarshals the stored document for localDocID.
func (s *Segment) StoredFields(localDocID uint32) (laurus.Document, error) {
	blob, err := s.docs.Get(localDocID)
	if err != nil {
		return nil, err
	}
	doc, err := unmarshalStoredDocument(blob)
	if err != nil {
		return nil, laurus.WrapMessage(laurus.KindSerializationError, "decode stored document", err)
	}
	return doc, nil
}

func unmarshalStoredDocument(blob []byte) (laurus.Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(blob, &raw); err != nil {
		return nil, err
	}
	doc := make(laurus.Document, len(raw))
	for field, msg := range raw {
		var v storedValue
		if err := json.Unmarshal(msg, &v); err != nil {
			return nil, err
		}
		doc[field] = v.toValue()
	}
	return doc, nil
}

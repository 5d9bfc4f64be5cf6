package lexical

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/lexical/bkd"
	"github.com/Aman-CERP/laurus/storage"
)

// pendingDoc is one document queued for the next segment flush, keyed
// by the local doc id it will receive (assignment order == flush
// order, ascending).
type pendingDoc struct {
	internal laurus.InternalID
	fields   laurus.Document
}

// Builder accumulates documents for a single not-yet-flushed segment.
// It is owned by one Index at a time; the engine package serializes
// writers so only one Builder is ever active.
type Builder struct {
	schema  laurus.Schema
	analyze func(field, text string) []laurus.Token
	pending []pendingDoc
}

// NewBuilder returns an empty Builder. analyze tokenizes a field's text
// value into positioned tokens (the engine supplies this from the
// configured Analyzer).
func NewBuilder(schema laurus.Schema, analyze func(field, text string) []laurus.Token) *Builder {
	return &Builder{schema: schema, analyze: analyze}
}

// Add queues doc (already assigned its InternalID by the engine) for
// the next Flush.
func (b *Builder) Add(id laurus.InternalID, doc laurus.Document) {
	b.pending = append(b.pending, pendingDoc{internal: id, fields: doc})
}

// Len reports how many documents are queued.
func (b *Builder) Len() int { return len(b.pending) }

// Flush writes a new immutable segment containing every queued
// document and returns its id. The Builder is left empty afterwards.
func (b *Builder) Flush(ctx context.Context, st storage.Storage, id SegmentID) (*Segment, error) {
	dictBuilder := map[string]map[string][]Posting{} // field -> term -> postings
	lensBuilder := newFieldLengthsBuilder()
	statsBuilder := newFieldStatsBuilder()
	docsBuilder := newStoredFieldsBuilder()
	dvBuilder := newDocValuesBuilder()
	bkdPoints := map[string][]bkd.Point{}
	idsBuilder := newIDStoreBuilder()

	for localID, pd := range b.pending {
		idsBuilder.Append(pd.internal)

		storedDoc := make(map[string]storedValue, len(pd.fields))
		for field, val := range pd.fields {
			opt, ok := b.schema[field]
			if !ok {
				continue
			}
			if opt.Lexical != nil {
				if opt.Lexical.Flags.Stored {
					storedDoc[field] = fromValue(val)
				}
				if opt.Lexical.Flags.Indexed {
					b.indexField(dictBuilder, lensBuilder, statsBuilder, opt.Lexical, uint32(localID), field, val)
				}
				if opt.Lexical.Kind == laurus.LexicalInteger || opt.Lexical.Kind == laurus.LexicalFloat || opt.Lexical.Kind == laurus.LexicalDateTime {
					if f, ok := numericValue(val); ok {
						dvBuilder.Set(field, uint32(localID), f)
						bkdPoints[field] = append(bkdPoints[field], bkd.Point{Value: f, LocalDocID: uint32(localID)})
					}
				}
				if opt.Lexical.Kind == laurus.LexicalGeo {
					if g, ok := val.GeoPoint(); ok {
						key := bkd.GeoKey(g.Lat, g.Lon)
						dvBuilder.Set(field, uint32(localID), key)
						bkdPoints[field] = append(bkdPoints[field], bkd.Point{Value: key, LocalDocID: uint32(localID)})
					}
				}
			}
		}
		blob, err := json.Marshal(storedDoc)
		if err != nil {
			return nil, laurus.WrapMessage(laurus.KindJson, "marshal stored fields", err)
		}
		docsBuilder.Append(blob)
	}

	postBuilder := newPostingListBuilder()
	var entries []termEntry
	for field, terms := range dictBuilder {
		withPositions := b.fieldHasTermVectors(field)
		for term, postings := range terms {
			sort.Slice(postings, func(i, j int) bool { return postings[i].LocalDocID < postings[j].LocalDocID })
			var totalFreq uint64
			for _, p := range postings {
				totalFreq += uint64(p.Freq)
			}
			off, ln := postBuilder.Append(term, postings, withPositions)
			entries = append(entries, termEntry{
				field: field, term: term,
				docFreq: uint64(len(postings)), totalFreq: totalFreq,
				postingOff: off, postingLen: ln,
			})
		}
	}

	if err := writeTermDictionary(ctx, st, segmentFileName(id, "dict"), entries); err != nil {
		return nil, err
	}
	if err := postBuilder.Flush(ctx, st, segmentFileName(id, "post")); err != nil {
		return nil, err
	}
	if err := docsBuilder.Flush(ctx, st, segmentFileName(id, "docs")); err != nil {
		return nil, err
	}
	if err := lensBuilder.Flush(ctx, st, segmentFileName(id, "lens")); err != nil {
		return nil, err
	}
	if err := statsBuilder.Flush(ctx, st, segmentFileName(id, "fstats")); err != nil {
		return nil, err
	}
	if err := dvBuilder.Flush(ctx, st, segmentFileName(id, "dv")); err != nil {
		return nil, err
	}
	if err := idsBuilder.Flush(ctx, st, segmentFileName(id, "ids")); err != nil {
		return nil, err
	}
	var bkdFields []string
	for field, points := range bkdPoints {
		if err := writeBKDHandle(ctx, st, bkdFileName(id, field), points); err != nil {
			return nil, err
		}
		bkdFields = append(bkdFields, field)
	}
	sort.Strings(bkdFields)
	if err := writeDeletionMap(ctx, st, segmentFileName(id, "delmap"), NewDeletionMap()); err != nil {
		return nil, err
	}
	meta := segmentMeta{ID: id, DocCount: len(b.pending), CreatedAt: time.Now(), BKDFields: bkdFields}
	if err := writeSegmentMeta(ctx, st, segmentFileName(id, "meta"), meta); err != nil {
		return nil, err
	}

	seg, err := OpenSegment(ctx, st, id)
	if err != nil {
		return nil, err
	}
	b.pending = nil
	return seg, nil
}

func (b *Builder) fieldHasTermVectors(field string) bool {
	opt, ok := b.schema[field]
	return ok && opt.Lexical != nil && opt.Lexical.Flags.TermVectors
}

func (b *Builder) indexField(
	dict map[string]map[string][]Posting,
	lens *fieldLengthsBuilder,
	stats *fieldStatsBuilder,
	opt *laurus.LexicalFieldOption,
	localID uint32,
	field string,
	val laurus.Value,
) {
	var tokens []laurus.Token
	switch opt.Kind {
	case laurus.LexicalText:
		text, ok := val.Text()
		if !ok {
			return
		}
		tokens = b.analyze(field, text)
	default:
		// Non-text lexical fields are indexed as a single exact-match
		// term (their string representation); range queries go through
		// doc values/BKD instead.
		tokens = []laurus.Token{{Text: exactTermFor(val), Position: 0}}
	}
	if len(tokens) == 0 {
		return
	}
	if dict[field] == nil {
		dict[field] = map[string][]Posting{}
	}
	weight := float32(opt.FieldWeight)
	if weight == 0 {
		weight = 1
	}
	freqs := map[string][]uint32{}
	for _, tok := range tokens {
		freqs[tok.Text] = append(freqs[tok.Text], uint32(tok.Position))
	}
	for term, positions := range freqs {
		dict[field][term] = append(dict[field][term], Posting{
			LocalDocID: localID,
			Freq:       uint32(len(positions)),
			Weight:     weight,
			Positions:  positions,
		})
	}
	lens.Set(field, localID, uint32(len(tokens)))
	stats.Observe(field, uint32(len(tokens)))
}

func numericValue(v laurus.Value) (float64, bool) {
	if i, ok := v.Int(); ok {
		return float64(i), true
	}
	if f, ok := v.Float(); ok {
		return f, true
	}
	if t, ok := v.DateTime(); ok {
		return float64(t.UnixNano()), true
	}
	return 0, false
}

func exactTermFor(v laurus.Value) string {
	if s, ok := v.Text(); ok {
		return s
	}
	if i, ok := v.Int(); ok {
		return strconv.FormatInt(i, 10)
	}
	if f, ok := v.Float(); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	if b, ok := v.Bool(); ok {
		return strconv.FormatBool(b)
	}
	return ""
}

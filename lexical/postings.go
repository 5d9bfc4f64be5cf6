package lexical

import (
	"context"
	"io"

	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/encoding"
	"github.com/Aman-CERP/laurus/storage"
)

// Posting is one document's occurrence of a term within a field
// (spec.md §4.3): (internal_id is resolved via Segment.InternalID from
// LocalDocID, term_frequency is Freq, field_weight is Weight, plus
// optional positions).
type Posting struct {
	LocalDocID uint32
	Freq       uint32
	Weight     float32  // per-field scoring weight; 1.0 when the field sets none
	Positions  []uint32 // only populated when the field has TermVectors
}

// postingStore holds the raw bytes (no CRC frame) of a segment's ".post" file;
// individual lists are decoded lazily via Decode at the offset recorded
// in the term dictionary, since most queries touch only a few terms.
type postingStore struct {
	raw []byte
}

func openPostingStore(ctx context.Context, st storage.Storage, path string) (*postingStore, error) {
	r, err := st.OpenRead(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, laurus.Wrap(laurus.KindIo, err)
	}
	return &postingStore{raw: buf}, nil
}

// Decode reads the posting list occupying raw[off:off+ln]: a leading
// term string (validation only), then header {total_freq, doc_freq,
// posting_count}, then delta-encoded doc ids, then per-posting
// {tf, weight, has_positions, [if 1]: positions} (spec.md §4.3).
func (p *postingStore) Decode(off, ln int64) ([]Posting, error) {
	if off < 0 || ln < 0 || off+ln > int64(len(p.raw)) {
		return nil, laurus.New(laurus.KindIndex, "posting list offset out of range")
	}
	slice := p.raw[off : off+ln]
	r := encoding.NewRawReader(slice)
	if _, err := r.String(); err != nil { // term text, for validation only
		return nil, err
	}
	if _, err := r.Varint(); err != nil { // total_freq
		return nil, err
	}
	if _, err := r.Varint(); err != nil { // doc_freq
		return nil, err
	}
	postingCount, err := r.Varint()
	if err != nil {
		return nil, err
	}
	docIDs, err := encoding.DeltaDecode(r)
	if err != nil {
		return nil, err
	}
	out := make([]Posting, 0, postingCount)
	for _, id := range docIDs {
		freq, err := r.Varint()
		if err != nil {
			return nil, err
		}
		weight, err := r.F32()
		if err != nil {
			return nil, err
		}
		hasPositions, err := r.U8()
		if err != nil {
			return nil, err
		}
		posting := Posting{LocalDocID: uint32(id), Freq: uint32(freq), Weight: weight}
		if hasPositions == 1 {
			positions, err := encoding.DeltaDecode(r)
			if err != nil {
				return nil, err
			}
			posting.Positions = make([]uint32, len(positions))
			for j, pos := range positions {
				posting.Positions[j] = uint32(pos)
			}
		}
		out = append(out, posting)
	}
	return out, nil
}

// postingListBuilder accumulates encoded posting lists for a single
// segment flush; Append returns each list's (offset, length) to store
// in the term dictionary, and Flush writes the concatenated body.
type postingListBuilder struct {
	buf []byte
}

func newPostingListBuilder() *postingListBuilder { return &postingListBuilder{} }

// Append encodes postings (already sorted by LocalDocID ascending) for
// term and returns their offset/length within the builder's accumulated
// buffer: leading term text, header {total_freq, doc_freq,
// posting_count}, delta-encoded doc ids, then per-posting
// {tf, weight, has_positions, [if 1]: positions} (spec.md §4.3).
func (b *postingListBuilder) Append(term string, postings []Posting, withPositions bool) (off, ln int64) {
	w := encoding.NewWriter()
	w.String(term)

	var totalFreq uint64
	ids := make([]uint64, len(postings))
	for i, p := range postings {
		ids[i] = uint64(p.LocalDocID)
		totalFreq += uint64(p.Freq)
	}
	w.Varint(totalFreq)
	w.Varint(uint64(len(postings))) // doc_freq
	w.Varint(uint64(len(postings))) // posting_count

	encoding.DeltaEncode(w, ids)
	for _, p := range postings {
		w.Varint(uint64(p.Freq))
		weight := p.Weight
		if weight == 0 {
			weight = 1
		}
		w.F32(weight)
		if withPositions {
			w.U8(1)
			positions := make([]uint64, len(p.Positions))
			for j, pos := range p.Positions {
				positions[j] = uint64(pos)
			}
			encoding.DeltaEncode(w, positions)
		} else {
			w.U8(0)
		}
	}
	body := w.Body()
	off = int64(len(b.buf))
	ln = int64(len(body))
	b.buf = append(b.buf, body...)
	return off, ln
}

func (b *postingListBuilder) Flush(ctx context.Context, st storage.Storage, path string) error {
	w, err := st.CreateWrite(ctx, path)
	if err != nil {
		return err
	}
	defer w.Close()
	if _, err := w.Write(b.buf); err != nil {
		return laurus.Wrap(laurus.KindIo, err)
	}
	return w.Sync()
}

package lexical

import (
	"context"
	"io"

	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/encoding"
	"github.com/Aman-CERP/laurus/storage"
)

// fieldLengthsStore holds, per (field, local doc id), the token count
// of that field in that document -- the "dl" term in BM25 (".lens").
type fieldLengthsStore struct {
	lengths map[string][]uint32 // field -> per-doc length, index = local doc id
}

func openFieldLengthsStore(ctx context.Context, st storage.Storage, path string) (*fieldLengthsStore, error) {
	r, err := st.OpenRead(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, laurus.Wrap(laurus.KindIo, err)
	}
	fr := encoding.NewReader(buf)
	if err := fr.VerifyCRC(); err != nil {
		return nil, laurus.WrapMessage(laurus.KindIndex, "lens "+path+" failed crc check", err)
	}
	numFields, err := fr.Varint()
	if err != nil {
		return nil, err
	}
	lengths := make(map[string][]uint32, numFields)
	for i := uint64(0); i < numFields; i++ {
		field, err := fr.String()
		if err != nil {
			return nil, err
		}
		n, err := fr.Varint()
		if err != nil {
			return nil, err
		}
		arr := make([]uint32, n)
		for j := uint64(0); j < n; j++ {
			v, err := fr.Varint()
			if err != nil {
				return nil, err
			}
			arr[j] = uint32(v)
		}
		lengths[field] = arr
	}
	return &fieldLengthsStore{lengths: lengths}, nil
}

// Length returns the token count of field in localDocID, or 0 if the
// field was absent from that document.
func (s *fieldLengthsStore) Length(field string, localDocID uint32) uint32 {
	arr := s.lengths[field]
	if int(localDocID) >= len(arr) {
		return 0
	}
	return arr[localDocID]
}

type fieldLengthsBuilder struct {
	lengths map[string][]uint32
}

func newFieldLengthsBuilder() *fieldLengthsBuilder {
	return &fieldLengthsBuilder{lengths: make(map[string][]uint32)}
}

// Set records field's token count for localDocID, growing the backing
// slice with zero-fill for any skipped doc ids.
func (b *fieldLengthsBuilder) Set(field string, localDocID uint32, length uint32) {
	arr := b.lengths[field]
	for uint32(len(arr)) <= localDocID {
		arr = append(arr, 0)
	}
	arr[localDocID] = length
	b.lengths[field] = arr
}

func (b *fieldLengthsBuilder) Flush(ctx context.Context, st storage.Storage, path string) error {
	w, err := st.CreateWrite(ctx, path)
	if err != nil {
		return err
	}
	defer w.Close()

	body := encoding.NewWriter()
	body.Varint(uint64(len(b.lengths)))
	for field, arr := range b.lengths {
		body.String(field)
		body.Varint(uint64(len(arr)))
		for _, v := range arr {
			body.Varint(uint64(v))
		}
	}
	if _, err := w.Write(body.Finish()); err != nil {
		return laurus.Wrap(laurus.KindIo, err)
	}
	return w.Sync()
}

// fieldStatsTable holds per-field corpus statistics needed by BM25:
// total token count and document count, used to derive the average
// field length (".fstats").
type fieldStatsTable struct {
	totalTokens map[string]uint64
	docCount    map[string]uint64
}

func openFieldStatsTable(ctx context.Context, st storage.Storage, path string) (*fieldStatsTable, error) {
	r, err := st.OpenRead(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, laurus.Wrap(laurus.KindIo, err)
	}
	fr := encoding.NewReader(buf)
	if err := fr.VerifyCRC(); err != nil {
		return nil, laurus.WrapMessage(laurus.KindIndex, "fstats "+path+" failed crc check", err)
	}
	n, err := fr.Varint()
	if err != nil {
		return nil, err
	}
	totalTokens := make(map[string]uint64, n)
	docCount := make(map[string]uint64, n)
	for i := uint64(0); i < n; i++ {
		field, err := fr.String()
		if err != nil {
			return nil, err
		}
		tt, err := fr.Varint()
		if err != nil {
			return nil, err
		}
		dc, err := fr.Varint()
		if err != nil {
			return nil, err
		}
		totalTokens[field] = tt
		docCount[field] = dc
	}
	return &fieldStatsTable{totalTokens: totalTokens, docCount: docCount}, nil
}

// AvgFieldLength returns the average token length of field across the
// documents in this segment that have it, or 0 if none do.
func (t *fieldStatsTable) AvgFieldLength(field string) float64 {
	dc := t.docCount[field]
	if dc == 0 {
		return 0
	}
	return float64(t.totalTokens[field]) / float64(dc)
}

// DocFreq returns the number of documents in this segment that have
// field at all (used as BM25's field-level document count).
func (t *fieldStatsTable) DocFreq(field string) uint64 { return t.docCount[field] }

type fieldStatsBuilder struct {
	totalTokens map[string]uint64
	docCount    map[string]uint64
}

func newFieldStatsBuilder() *fieldStatsBuilder {
	return &fieldStatsBuilder{totalTokens: map[string]uint64{}, docCount: map[string]uint64{}}
}

func (b *fieldStatsBuilder) Observe(field string, length uint32) {
	if length == 0 {
		return
	}
	b.totalTokens[field] += uint64(length)
	b.docCount[field]++
}

func (b *fieldStatsBuilder) Flush(ctx context.Context, st storage.Storage, path string) error {
	w, err := st.CreateWrite(ctx, path)
	if err != nil {
		return err
	}
	defer w.Close()

	body := encoding.NewWriter()
	body.Varint(uint64(len(b.totalTokens)))
	for field, tt := range b.totalTokens {
		body.String(field)
		body.Varint(tt)
		body.Varint(b.docCount[field])
	}
	if _, err := w.Write(body.Finish()); err != nil {
		return laurus.Wrap(laurus.KindIo, err)
	}
	return w.Sync()
}

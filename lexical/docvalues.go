package lexical

import (
	"context"
	"io"

	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/encoding"
	"github.com/Aman-CERP/laurus/storage"
)

// docValuesStore is a column-major store of a single field's raw
// sortable value per local doc id, used for numeric/date sort keys and
// faceting. ".dv" carries no CRC trailer (spec.md §6's explicit
// exception), so corruption in it is not detected on read, and nothing
// rebuilds it from stored fields.
type docValuesStore struct {
	perField map[string][]float64
}

func openDocValuesStore(ctx context.Context, st storage.Storage, path string) (*docValuesStore, error) {
	exists, err := st.Exists(ctx, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return &docValuesStore{perField: map[string][]float64{}}, nil
	}
	r, err := st.OpenRead(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, laurus.Wrap(laurus.KindIo, err)
	}
	fr := encoding.NewRawReader(buf)
	n, err := fr.Varint()
	if err != nil {
		return nil, err
	}
	perField := make(map[string][]float64, n)
	for i := uint64(0); i < n; i++ {
		field, err := fr.String()
		if err != nil {
			return nil, err
		}
		count, err := fr.Varint()
		if err != nil {
			return nil, err
		}
		vals := make([]float64, count)
		for j := range vals {
			v, err := fr.F64()
			if err != nil {
				return nil, err
			}
			vals[j] = v
		}
		perField[field] = vals
	}
	return &docValuesStore{perField: perField}, nil
}

// Value returns field's doc-value for localDocID, or (0, false).
func (d *docValuesStore) Value(field string, localDocID uint32) (float64, bool) {
	arr := d.perField[field]
	if int(localDocID) >= len(arr) {
		return 0, false
	}
	return arr[localDocID], true
}

type docValuesBuilder struct {
	perField map[string][]float64
}

func newDocValuesBuilder() *docValuesBuilder {
	return &docValuesBuilder{perField: map[string][]float64{}}
}

func (b *docValuesBuilder) Set(field string, localDocID uint32, v float64) {
	arr := b.perField[field]
	for uint32(len(arr)) <= localDocID {
		arr = append(arr, 0)
	}
	arr[localDocID] = v
	b.perField[field] = arr
}

func (b *docValuesBuilder) Flush(ctx context.Context, st storage.Storage, path string) error {
	w, err := st.CreateWrite(ctx, path)
	if err != nil {
		return err
	}
	defer w.Close()

	raw := encoding.NewWriter()
	raw.Varint(uint64(len(b.perField)))
	for field, vals := range b.perField {
		raw.String(field)
		raw.Varint(uint64(len(vals)))
		for _, v := range vals {
			raw.F64(v)
		}
	}
	if _, err := w.Write(raw.Body()); err != nil {
		return laurus.Wrap(laurus.KindIo, err)
	}
	return w.Sync()
}

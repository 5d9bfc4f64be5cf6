package lexical

import (
	"context"
	"io"

	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/encoding"
	"github.com/Aman-CERP/laurus/storage"
)

// idStore is the ".ids" file: the stable InternalID each local doc id
// (0-based position within the segment) was assigned at build time.
// Every query result a segment produces is a local doc id; this is the
// only place that id is translated back to something the engine and
// fusion packages can key on across segments. No CRC trailer, same
// exception as docValuesStore: an id table is cheap to confirm wrong
// against the stored-fields count and isn't worth a checksum.
type idStore struct {
	ids []laurus.InternalID
}

func openIDStore(ctx context.Context, st storage.Storage, path string) (*idStore, error) {
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
	ids := make([]laurus.InternalID, n)
	for i := range ids {
		v, err := fr.U64()
		if err != nil {
			return nil, err
		}
		ids[i] = laurus.InternalID(v)
	}
	return &idStore{ids: ids}, nil
}

// InternalID returns the stable id localDocID was assigned at build time.
func (s *idStore) InternalID(localDocID uint32) (laurus.InternalID, bool) {
	if int(localDocID) >= len(s.ids) {
		return 0, false
	}
	return s.ids[localDocID], true
}

type idStoreBuilder struct {
	ids []laurus.InternalID
}

func newIDStoreBuilder() *idStoreBuilder { return &idStoreBuilder{} }

// Append records id for the next sequential local doc id.
func (b *idStoreBuilder) Append(id laurus.InternalID) {
	b.ids = append(b.ids, id)
}

func (b *idStoreBuilder) Flush(ctx context.Context, st storage.Storage, path string) error {
	w, err := st.CreateWrite(ctx, path)
	if err != nil {
		return err
	}
	defer w.Close()

	raw := encoding.NewWriter()
	raw.Varint(uint64(len(b.ids)))
	for _, id := range b.ids {
		raw.U64(uint64(id))
	}
	if _, err := w.Write(raw.Body()); err != nil {
		return laurus.Wrap(laurus.KindIo, err)
	}
	return w.Sync()
}

package lexical

import (
	"context"
	"io"

	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/encoding"
	"github.com/Aman-CERP/laurus/storage"
)

const storedFieldsMagic = "SDOC"

// storedFieldsStore holds, per local document id, the raw serialized
// Document for every field marked Stored (".docs" file). Documents are
// appended in local-doc-id order at build time, so lookup is a direct
// index into an offset table loaded on open.
type storedFieldsStore struct {
	offsets []int64
	lengths []int64
	raw     []byte
}

func openStoredFieldsStore(ctx context.Context, st storage.Storage, path string) (*storedFieldsStore, error) {
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
		return nil, laurus.WrapMessage(laurus.KindIndex, "docs "+path+" failed crc check", err)
	}
	magic, err := fr.Raw(len(storedFieldsMagic))
	if err != nil || string(magic) != storedFieldsMagic {
		return nil, laurus.New(laurus.KindIndex, "docs "+path+": bad magic")
	}
	n, err := fr.Varint()
	if err != nil {
		return nil, err
	}
	offsets := make([]int64, n)
	lengths := make([]int64, n)
	for i := uint64(0); i < n; i++ {
		off, err := fr.U64()
		if err != nil {
			return nil, err
		}
		ln, err := fr.U64()
		if err != nil {
			return nil, err
		}
		offsets[i] = int64(off)
		lengths[i] = int64(ln)
	}
	bodyStart := fr.Pos()
	return &storedFieldsStore{offsets: offsets, lengths: lengths, raw: buf[bodyStart:]}, nil
}

// Get returns the raw (codec-specific) bytes stored for localDocID.
func (s *storedFieldsStore) Get(localDocID uint32) ([]byte, error) {
	if int(localDocID) >= len(s.offsets) {
		return nil, laurus.New(laurus.KindIndex, "stored fields: doc id out of range")
	}
	off, ln := s.offsets[localDocID], s.lengths[localDocID]
	if off < 0 || ln < 0 || off+ln > int64(len(s.raw)) {
		return nil, laurus.New(laurus.KindIndex, "stored fields: offset out of range")
	}
	return s.raw[off : off+ln], nil
}

type storedFieldsBuilder struct {
	blobs [][]byte
}

func newStoredFieldsBuilder() *storedFieldsBuilder { return &storedFieldsBuilder{} }

// Append stores blob for the next sequential local doc id.
func (b *storedFieldsBuilder) Append(blob []byte) {
	b.blobs = append(b.blobs, blob)
}

func (b *storedFieldsBuilder) Flush(ctx context.Context, st storage.Storage, path string) error {
	w, err := st.CreateWrite(ctx, path)
	if err != nil {
		return err
	}
	defer w.Close()

	body := encoding.NewWriter()
	body.Raw([]byte(storedFieldsMagic))
	body.Varint(uint64(len(b.blobs)))
	var off int64
	for _, blob := range b.blobs {
		body.U64(uint64(off))
		body.U64(uint64(len(blob)))
		off += int64(len(blob))
	}
	for _, blob := range b.blobs {
		body.Raw(blob)
	}
	if _, err := w.Write(body.Finish()); err != nil {
		return laurus.Wrap(laurus.KindIo, err)
	}
	return w.Sync()
}

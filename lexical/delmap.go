package lexical

import (
	"bytes"
	"context"
	"io"

	"github.com/RoaringBitmap/roaring/v2"

	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/encoding"
	"github.com/Aman-CERP/laurus/storage"
)

const (
	delMapMagic   = "DELB"
	delMapVersion = 3
)

// DeletionMap tracks locally-deleted document ids within one segment.
// Deletes never rewrite a segment's other files; they only set a bit
// here, which every matcher consults to skip the doc.
type DeletionMap struct {
	bitmap *roaring.Bitmap
}

// NewDeletionMap returns an empty deletion map.
func NewDeletionMap() *DeletionMap {
	return &DeletionMap{bitmap: roaring.New()}
}

func (d *DeletionMap) Add(localDocID uint32)            { d.bitmap.Add(localDocID) }
func (d *DeletionMap) Contains(localDocID uint32) bool   { return d.bitmap.Contains(localDocID) }
func (d *DeletionMap) Count() int                        { return int(d.bitmap.GetCardinality()) }
func (d *DeletionMap) Clone() *DeletionMap               { return &DeletionMap{bitmap: d.bitmap.Clone()} }
func (d *DeletionMap) Iterator() roaring.IntIterable     { return d.bitmap.Iterator() }

func writeDeletionMap(ctx context.Context, st storage.Storage, path string, d *DeletionMap) error {
	w, err := st.CreateWrite(ctx, path)
	if err != nil {
		return err
	}
	defer w.Close()

	var roaringBytes bytes.Buffer
	if _, err := d.bitmap.WriteTo(&roaringBytes); err != nil {
		return laurus.WrapMessage(laurus.KindSerializationError, "encode deletion bitmap", err)
	}

	body := encoding.NewWriter()
	body.Raw([]byte(delMapMagic))
	body.U32(delMapVersion)
	body.Bytes(roaringBytes.Bytes())
	if _, err := w.Write(body.Finish()); err != nil {
		return laurus.Wrap(laurus.KindIo, err)
	}
	return w.Sync()
}

func readDeletionMap(ctx context.Context, st storage.Storage, path string) (*DeletionMap, error) {
	exists, err := st.Exists(ctx, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return NewDeletionMap(), nil
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
	fr := encoding.NewReader(buf)
	if err := fr.VerifyCRC(); err != nil {
		return nil, laurus.WrapMessage(laurus.KindIndex, "delmap "+path+" failed crc check", err)
	}
	magic, err := fr.Raw(len(delMapMagic))
	if err != nil || string(magic) != delMapMagic {
		return nil, laurus.New(laurus.KindIndex, "delmap "+path+": bad magic")
	}
	version, err := fr.U32()
	if err != nil {
		return nil, err
	}
	if version != delMapVersion {
		return nil, laurus.Newf(laurus.KindIndex, "delmap %s: unsupported version %d", path, version)
	}
	payload, err := fr.Bytes()
	if err != nil {
		return nil, err
	}
	bitmap := roaring.New()
	if _, err := bitmap.FromBuffer(payload); err != nil {
		return nil, laurus.WrapMessage(laurus.KindSerializationError, "decode deletion bitmap", err)
	}
	return &DeletionMap{bitmap: bitmap}, nil
}

package lexical

import (
	"context"
	"io"

	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/lexical/bkd"
	"github.com/Aman-CERP/laurus/storage"
)

// bkdHandle is the lexical package's handle onto one field's BKD tree.
type bkdHandle struct {
	tree *bkd.Tree
}

// RangeQuery returns local doc ids whose value for this field falls
// within [lo, hi].
func (h *bkdHandle) RangeQuery(lo, hi float64) []uint32 {
	return h.tree.RangeQuery(lo, hi)
}

func openBKDHandle(ctx context.Context, st storage.Storage, path string) (*bkdHandle, error) {
	r, err := st.OpenRead(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, laurus.Wrap(laurus.KindIo, err)
	}
	tree, err := bkd.Decode(buf)
	if err != nil {
		return nil, err
	}
	return &bkdHandle{tree: tree}, nil
}

func writeBKDHandle(ctx context.Context, st storage.Storage, path string, points []bkd.Point) error {
	w, err := st.CreateWrite(ctx, path)
	if err != nil {
		return err
	}
	defer w.Close()
	tree := bkd.Build(points)
	if _, err := w.Write(bkd.Encode(tree)); err != nil {
		return laurus.Wrap(laurus.KindIo, err)
	}
	return w.Sync()
}

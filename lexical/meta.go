package lexical

import (
	"context"
	"encoding/json"
	"io"
	"time"

	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/storage"
)

// segmentMeta is the small JSON sidecar describing a segment's shape,
// read before opening its binary component files.
type segmentMeta struct {
	ID        SegmentID `json:"id"`
	DocCount  int       `json:"doc_count"`
	CreatedAt time.Time `json:"created_at"`
	BKDFields []string  `json:"bkd_fields,omitempty"`
}

func writeSegmentMeta(ctx context.Context, st storage.Storage, path string, m segmentMeta) error {
	w, err := st.CreateWrite(ctx, path)
	if err != nil {
		return err
	}
	defer w.Close()
	enc := json.NewEncoder(w)
	if err := enc.Encode(m); err != nil {
		return laurus.WrapMessage(laurus.KindJson, "encode segment meta", err)
	}
	return w.Sync()
}

func readSegmentMeta(ctx context.Context, st storage.Storage, path string) (segmentMeta, error) {
	var m segmentMeta
	r, err := st.OpenRead(ctx, path)
	if err != nil {
		return m, err
	}
	defer r.Close()
	buf, err := io.ReadAll(r)
	if err != nil {
		return m, laurus.Wrap(laurus.KindIo, err)
	}
	if err := json.Unmarshal(buf, &m); err != nil {
		return m, laurus.WrapMessage(laurus.KindJson, "decode segment meta "+path, err)
	}
	return m, nil
}

const indexMetaMagic = "IMET"

// IndexMeta is the global index-level metadata file: the schema, the
// next internal-id counter seed, and the sequence number of the last
// mutation durably committed (spec.md §5/§7 recovery).
type IndexMeta struct {
	Schema           map[string]json.RawMessage `json:"schema"`
	NextLocalCounter uint64                      `json:"next_local_counter"`
	LastCommittedSeq uint64                      `json:"last_committed_seq"`
}

func WriteIndexMeta(ctx context.Context, st storage.Storage, path string, m IndexMeta) error {
	w, err := st.CreateWrite(ctx, path)
	if err != nil {
		return err
	}
	defer w.Close()
	payload, err := json.Marshal(m)
	if err != nil {
		return laurus.WrapMessage(laurus.KindJson, "encode index meta", err)
	}
	if _, err := w.Write([]byte(indexMetaMagic)); err != nil {
		return laurus.Wrap(laurus.KindIo, err)
	}
	if _, err := w.Write(payload); err != nil {
		return laurus.Wrap(laurus.KindIo, err)
	}
	return w.Sync()
}

func ReadIndexMeta(ctx context.Context, st storage.Storage, path string) (IndexMeta, error) {
	var m IndexMeta
	r, err := st.OpenRead(ctx, path)
	if err != nil {
		return m, err
	}
	defer r.Close()
	buf, err := io.ReadAll(r)
	if err != nil {
		return m, laurus.Wrap(laurus.KindIo, err)
	}
	if len(buf) < len(indexMetaMagic) || string(buf[:len(indexMetaMagic)]) != indexMetaMagic {
		return m, laurus.New(laurus.KindIndex, "index.meta: bad magic")
	}
	if err := json.Unmarshal(buf[len(indexMetaMagic):], &m); err != nil {
		return m, laurus.WrapMessage(laurus.KindJson, "decode index meta", err)
	}
	return m, nil
}

// Manifest lists the set of segments that are currently live, swapped
// in as a whole on every commit (spec.md §7's atomic publish step).
type Manifest struct {
	Segments []SegmentID `json:"segments"`
}

func WriteManifest(ctx context.Context, st storage.Storage, path string, m Manifest) error {
	w, tmp, err := st.CreateTempWriter(ctx, "")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	if err := enc.Encode(m); err != nil {
		w.Close()
		return laurus.WrapMessage(laurus.KindJson, "encode manifest", err)
	}
	if err := w.Sync(); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return laurus.Wrap(laurus.KindIo, err)
	}
	return st.Rename(ctx, tmp, path)
}

func ReadManifest(ctx context.Context, st storage.Storage, path string) (Manifest, error) {
	var m Manifest
	exists, err := st.Exists(ctx, path)
	if err != nil {
		return m, err
	}
	if !exists {
		return Manifest{}, nil
	}
	r, err := st.OpenRead(ctx, path)
	if err != nil {
		return m, err
	}
	defer r.Close()
	buf, err := io.ReadAll(r)
	if err != nil {
		return m, laurus.Wrap(laurus.KindIo, err)
	}
	if err := json.Unmarshal(buf, &m); err != nil {
		return m, laurus.WrapMessage(laurus.KindJson, "decode manifest", err)
	}
	return m, nil
}

package wal

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"log/slog"

	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/storage"
)

// WAL is an append-only, length-prefixed JSON record log, synced after
// every append per spec.md §6's "engine.wal" file layout.
type WAL struct {
	st   storage.Storage
	path string
}

// Open returns a handle onto path, creating it if absent.
func Open(ctx context.Context, st storage.Storage, path string) (*WAL, error) {
	exists, err := st.Exists(ctx, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		w, err := st.CreateWrite(ctx, path)
		if err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	}
	return &WAL{st: st, path: path}, nil
}

// Append writes one record as {u32 length}{length bytes of JSON} and
// syncs before returning.
func (w *WAL) Append(ctx context.Context, rec Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return laurus.Wrap(laurus.KindJson, err)
	}
	writer, err := w.st.CreateAppend(ctx, w.path)
	if err != nil {
		return err
	}
	defer writer.Close()

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := writer.Write(lenBuf[:]); err != nil {
		return laurus.Wrap(laurus.KindIo, err)
	}
	if _, err := writer.Write(body); err != nil {
		return laurus.Wrap(laurus.KindIo, err)
	}
	return writer.Sync()
}

// Replay reads every record in order. A truncated or malformed final
// record (a crash mid-append) is not an error: spec.md §6 calls for
// stopping at the last valid record and logging a warning rather than
// failing recovery over partially-written tail bytes.
func Replay(ctx context.Context, st storage.Storage, path string) ([]Record, error) {
	exists, err := st.Exists(ctx, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
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

	var records []Record
	pos := 0
	for pos < len(buf) {
		if pos+4 > len(buf) {
			slog.Warn("wal: truncated length prefix, stopping replay", "path", path, "offset", pos)
			break
		}
		length := int(binary.LittleEndian.Uint32(buf[pos:]))
		pos += 4
		if pos+length > len(buf) {
			slog.Warn("wal: truncated record body, stopping replay", "path", path, "offset", pos)
			break
		}
		var rec Record
		if err := json.Unmarshal(buf[pos:pos+length], &rec); err != nil {
			slog.Warn("wal: malformed record, stopping replay", "path", path, "offset", pos, "error", err)
			break
		}
		records = append(records, rec)
		pos += length
	}
	return records, nil
}

// Truncate zeroes the log, called once a commit has durably flushed
// both stores and rewritten index.meta.
func (w *WAL) Truncate(ctx context.Context) error {
	writer, err := w.st.CreateWrite(ctx, w.path)
	if err != nil {
		return err
	}
	return writer.Close()
}

// LastSeq returns the highest sequence number replay would observe, or
// 0 if the log is empty.
func LastSeq(records []Record) uint64 {
	var max uint64
	for _, r := range records {
		if r.Seq > max {
			max = r.Seq
		}
	}
	return max
}

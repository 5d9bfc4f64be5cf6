package storage

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure-Go driver, no cgo

	laurus "github.com/Aman-CERP/laurus"
)

// SQLiteStorage implements Storage by storing every logical path as a
// blob row in a single SQLite database opened in WAL mode, so the
// entire index (lexical segments, vector indexes, the WAL) lives in one
// file. Grounded on the teacher's SQLiteBM25Index: pure-Go driver and
// WAL journal mode for concurrent readers. No integrity check is run on
// open.
type SQLiteStorage struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS blobs (
	path TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	mtime INTEGER NOT NULL
);
`

// OpenSQLiteStorage opens (creating if absent) a SQLite-backed Storage
// at path. An empty path opens an in-memory database, useful for tests.
func OpenSQLiteStorage(path string) (*SQLiteStorage, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	} else {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, laurus.WrapMessage(laurus.KindStorage, "open sqlite storage", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, laurus.WrapMessage(laurus.KindStorage, "create schema", err)
	}
	return &SQLiteStorage{db: db}, nil
}

type sqliteReader struct {
	*bytes.Reader
	size int64
}

func (sqliteReader) Close() error { return nil }

func (r sqliteReader) Size() (int64, error) { return r.size, nil }

func (s *SQLiteStorage) OpenRead(ctx context.Context, path string) (Reader, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE path = ?`, path).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, laurus.Newf(laurus.KindStorage, "%s: %s", laurus.SubNotFound, path)
	}
	if err != nil {
		return nil, laurus.Wrap(laurus.KindStorage, err)
	}
	return sqliteReader{Reader: bytes.NewReader(data), size: int64(len(data))}, nil
}

type sqliteWriter struct {
	s    *SQLiteStorage
	path string
	buf  bytes.Buffer
	mode string // "write" replaces, "append" concatenates on Sync
}

func (w *sqliteWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *sqliteWriter) Sync() error {
	ctx := context.Background()
	if w.mode == "append" {
		var existing []byte
		err := w.s.db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE path = ?`, w.path).Scan(&existing)
		if err != nil && err != sql.ErrNoRows {
			return laurus.Wrap(laurus.KindStorage, err)
		}
		combined := append(existing, w.buf.Bytes()...)
		_, err = w.s.db.ExecContext(ctx, `INSERT INTO blobs(path, data, mtime) VALUES (?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET data = excluded.data, mtime = excluded.mtime`,
			w.path, combined, time.Now().UnixNano())
		if err != nil {
			return laurus.Wrap(laurus.KindStorage, err)
		}
		w.buf.Reset()
		return nil
	}
	_, err := w.s.db.ExecContext(ctx, `INSERT INTO blobs(path, data, mtime) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET data = excluded.data, mtime = excluded.mtime`,
		w.path, w.buf.Bytes(), time.Now().UnixNano())
	if err != nil {
		return laurus.Wrap(laurus.KindStorage, err)
	}
	return nil
}

func (w *sqliteWriter) Close() error { return w.Sync() }

func (s *SQLiteStorage) CreateWrite(_ context.Context, path string) (Writer, error) {
	return &sqliteWriter{s: s, path: path, mode: "write"}, nil
}

func (s *SQLiteStorage) CreateAppend(_ context.Context, path string) (Writer, error) {
	return &sqliteWriter{s: s, path: path, mode: "append"}, nil
}

func (s *SQLiteStorage) CreateTempWriter(_ context.Context, dir string) (Writer, string, error) {
	tmp := fmt.Sprintf("%s/.tmp-%d", strings.TrimSuffix(dir, "/"), time.Now().UnixNano())
	return &sqliteWriter{s: s, path: tmp, mode: "write"}, tmp, nil
}

func (s *SQLiteStorage) Exists(ctx context.Context, path string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blobs WHERE path = ?`, path).Scan(&n)
	if err != nil {
		return false, laurus.Wrap(laurus.KindStorage, err)
	}
	return n > 0, nil
}

func (s *SQLiteStorage) Delete(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE path = ?`, path)
	if err != nil {
		return laurus.Wrap(laurus.KindStorage, err)
	}
	return nil
}

func (s *SQLiteStorage) Rename(ctx context.Context, oldPath, newPath string) error {
	// Replace: OR REPLACE drops any existing row at newPath (path is the
	// primary key), so the move and the replacement are one statement.
	_, err := s.db.ExecContext(ctx, `UPDATE OR REPLACE blobs SET path = ? WHERE path = ?`, newPath, oldPath)
	if err != nil {
		return laurus.Wrap(laurus.KindStorage, err)
	}
	return nil
}

func (s *SQLiteStorage) Size(ctx context.Context, path string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT LENGTH(data) FROM blobs WHERE path = ?`, path).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, laurus.Newf(laurus.KindStorage, "%s: %s", laurus.SubNotFound, path)
	}
	if err != nil {
		return 0, laurus.Wrap(laurus.KindStorage, err)
	}
	return n, nil
}

func (s *SQLiteStorage) ListByPrefix(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM blobs WHERE path LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%")
	if err != nil {
		return nil, laurus.Wrap(laurus.KindStorage, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, laurus.Wrap(laurus.KindStorage, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *SQLiteStorage) Close() error { return s.db.Close() }

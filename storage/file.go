package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	laurus "github.com/Aman-CERP/laurus"
)

// FileStorage is the default Storage backend: logical paths map
// directly onto files under root, created with MkdirAll as needed.
type FileStorage struct {
	root string
}

// NewFileStorage returns a FileStorage rooted at dir. dir is created if
// it does not already exist.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, laurus.Wrap(laurus.KindIo, err)
	}
	return &FileStorage{root: dir}, nil
}

func (f *FileStorage) resolve(logical string) string {
	return filepath.Join(f.root, filepath.FromSlash(logical))
}

type fileReader struct {
	*os.File
}

func (r fileReader) Size() (int64, error) {
	fi, err := r.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (f *FileStorage) OpenRead(_ context.Context, logical string) (Reader, error) {
	file, err := os.Open(f.resolve(logical))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, laurus.Newf(laurus.KindIo, "%s: %s: %v", laurus.SubNotFound, logical, err)
		}
		return nil, laurus.Wrap(laurus.KindIo, err)
	}
	return fileReader{file}, nil
}

func (f *FileStorage) CreateWrite(_ context.Context, logical string) (Writer, error) {
	full := f.resolve(logical)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, laurus.Wrap(laurus.KindIo, err)
	}
	file, err := os.Create(full)
	if err != nil {
		return nil, laurus.Wrap(laurus.KindIo, err)
	}
	return file, nil
}

func (f *FileStorage) CreateAppend(_ context.Context, logical string) (Writer, error) {
	full := f.resolve(logical)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, laurus.Wrap(laurus.KindIo, err)
	}
	file, err := os.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, laurus.Wrap(laurus.KindIo, err)
	}
	return file, nil
}

// CreateTempWriter creates "<dir>/.tmp-<random>" and returns it along
// with its logical path, mirroring the teacher's temp-file-then-rename
// save pattern (internal/store/hnsw.go's Save/saveMetadata).
func (f *FileStorage) CreateTempWriter(_ context.Context, dir string) (Writer, string, error) {
	full := f.resolve(dir)
	if err := os.MkdirAll(full, 0o755); err != nil {
		return nil, "", laurus.Wrap(laurus.KindIo, err)
	}
	file, err := os.CreateTemp(full, ".tmp-*")
	if err != nil {
		return nil, "", laurus.Wrap(laurus.KindIo, err)
	}
	rel := strings.TrimPrefix(file.Name(), f.root+string(filepath.Separator))
	return file, filepath.ToSlash(rel), nil
}

func (f *FileStorage) Exists(_ context.Context, logical string) (bool, error) {
	_, err := os.Stat(f.resolve(logical))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, laurus.Wrap(laurus.KindIo, err)
}

func (f *FileStorage) Delete(_ context.Context, logical string) error {
	err := os.Remove(f.resolve(logical))
	if err != nil && !os.IsNotExist(err) {
		return laurus.Wrap(laurus.KindIo, err)
	}
	return nil
}

func (f *FileStorage) Rename(_ context.Context, oldLogical, newLogical string) error {
	newFull := f.resolve(newLogical)
	if err := os.MkdirAll(filepath.Dir(newFull), 0o755); err != nil {
		return laurus.Wrap(laurus.KindIo, err)
	}
	if err := os.Rename(f.resolve(oldLogical), newFull); err != nil {
		return laurus.Wrap(laurus.KindIo, err)
	}
	return nil
}

func (f *FileStorage) Size(_ context.Context, logical string) (int64, error) {
	fi, err := os.Stat(f.resolve(logical))
	if err != nil {
		return 0, laurus.Wrap(laurus.KindIo, err)
	}
	return fi.Size(), nil
}

func (f *FileStorage) ListByPrefix(_ context.Context, prefix string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(f.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == f.root {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel := filepath.ToSlash(strings.TrimPrefix(path, f.root+string(filepath.Separator)))
		if strings.HasPrefix(rel, prefix) {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, laurus.Wrap(laurus.KindIo, err)
	}
	return out, nil
}

func (f *FileStorage) Close() error { return nil }

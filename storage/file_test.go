package storage

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorageWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	defer fs.Close()

	w, err := fs.CreateWrite(ctx, "lexical/000001.dict")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello segment"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	ok, err := fs.Exists(ctx, "lexical/000001.dict")
	require.NoError(t, err)
	assert.True(t, ok)

	r, err := fs.OpenRead(ctx, "lexical/000001.dict")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello segment", string(data))

	size, err := fs.Size(ctx, "lexical/000001.dict")
	require.NoError(t, err)
	assert.EqualValues(t, len("hello segment"), size)
}

func TestFileStorageTempWriterThenRename(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	defer fs.Close()

	w, tmp, err := fs.CreateTempWriter(ctx, "lexical")
	require.NoError(t, err)
	_, err = w.Write([]byte("manifest"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, fs.Rename(ctx, tmp, "lexical/segments.json"))

	ok, err := fs.Exists(ctx, "lexical/segments.json")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = fs.Exists(ctx, tmp)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStorageDeleteAbsentIsNotError(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	defer fs.Close()
	assert.NoError(t, fs.Delete(ctx, "does/not/exist"))
}

func TestFileStorageListByPrefix(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	defer fs.Close()

	for _, p := range []string{"vector/a.hnsw", "vector/b.hnsw", "lexical/a.dict"} {
		w, err := fs.CreateWrite(ctx, p)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	got, err := fs.ListByPrefix(ctx, "vector/")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestPrefixedStorageNamespaces(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	defer fs.Close()

	lex := NewPrefixed(fs, "lexical")
	w, err := lex.CreateWrite(ctx, "000001.dict")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	ok, err := fs.Exists(ctx, "lexical/000001.dict")
	require.NoError(t, err)
	assert.True(t, ok)
}

package storage

import (
	"context"
	"path"
)

// Prefixed wraps a Storage and namespaces every logical path under a
// fixed prefix. The engine uses this to give the lexical index,
// vector indexes, and the WAL each their own sub-tree ("lexical/",
// "vector/", "wal/") of a single underlying Storage.
type Prefixed struct {
	inner  Storage
	prefix string
}

// NewPrefixed returns a view of inner rooted at prefix.
func NewPrefixed(inner Storage, prefix string) *Prefixed {
	return &Prefixed{inner: inner, prefix: prefix}
}

func (p *Prefixed) full(rel string) string {
	return path.Join(p.prefix, rel)
}

func (p *Prefixed) OpenRead(ctx context.Context, rel string) (Reader, error) {
	return p.inner.OpenRead(ctx, p.full(rel))
}

func (p *Prefixed) CreateWrite(ctx context.Context, rel string) (Writer, error) {
	return p.inner.CreateWrite(ctx, p.full(rel))
}

func (p *Prefixed) CreateAppend(ctx context.Context, rel string) (Writer, error) {
	return p.inner.CreateAppend(ctx, p.full(rel))
}

func (p *Prefixed) CreateTempWriter(ctx context.Context, dir string) (Writer, string, error) {
	w, tmp, err := p.inner.CreateTempWriter(ctx, p.full(dir))
	if err != nil {
		return nil, "", err
	}
	stripPrefix := p.prefix + "/"
	if len(tmp) >= len(stripPrefix) && tmp[:len(stripPrefix)] == stripPrefix {
		tmp = tmp[len(stripPrefix):]
	}
	return w, tmp, nil
}

func (p *Prefixed) Exists(ctx context.Context, rel string) (bool, error) {
	return p.inner.Exists(ctx, p.full(rel))
}

func (p *Prefixed) Delete(ctx context.Context, rel string) error {
	return p.inner.Delete(ctx, p.full(rel))
}

func (p *Prefixed) Rename(ctx context.Context, oldRel, newRel string) error {
	return p.inner.Rename(ctx, p.full(oldRel), p.full(newRel))
}

func (p *Prefixed) Size(ctx context.Context, rel string) (int64, error) {
	return p.inner.Size(ctx, p.full(rel))
}

func (p *Prefixed) ListByPrefix(ctx context.Context, relPrefix string) ([]string, error) {
	full, err := p.inner.ListByPrefix(ctx, p.full(relPrefix))
	if err != nil {
		return nil, err
	}
	out := make([]string, len(full))
	stripPrefix := p.prefix + "/"
	for i, f := range full {
		if len(f) >= len(stripPrefix) && f[:len(stripPrefix)] == stripPrefix {
			out[i] = f[len(stripPrefix):]
		} else {
			out[i] = f
		}
	}
	return out, nil
}

func (p *Prefixed) Close() error { return nil }

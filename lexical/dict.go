package lexical

import (
	"context"
	"io"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/encoding"
	"github.com/Aman-CERP/laurus/storage"
)

const dictMagic = "STDC"

// termEntry is one (field, term) -> posting-list-offset mapping.
type termEntry struct {
	field      string
	term       string
	docFreq    uint64
	totalFreq  uint64
	postingOff int64
	postingLen int64
}

// termDictionary is a sorted, in-memory term table for a segment,
// loaded wholesale on open (segments are small relative to the whole
// index; a real FST is future work, see DESIGN.md). A small LRU guards
// repeated lookups of the same hot terms across queries.
type termDictionary struct {
	entries []termEntry // sorted by (field, term)
	cache   *lru.Cache[string, *termEntry]
}

func dictKey(field, term string) string { return field + "\x00" + term }

func newTermDictionary(entries []termEntry) *termDictionary {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].field != entries[j].field {
			return entries[i].field < entries[j].field
		}
		return entries[i].term < entries[j].term
	})
	cache, _ := lru.New[string, *termEntry](4096)
	return &termDictionary{entries: entries, cache: cache}
}

// Lookup finds the exact (field, term) entry, or (nil, false).
func (d *termDictionary) Lookup(field, term string) (*termEntry, bool) {
	key := dictKey(field, term)
	if e, ok := d.cache.Get(key); ok {
		return e, true
	}
	i := sort.Search(len(d.entries), func(i int) bool {
		if d.entries[i].field != field {
			return d.entries[i].field >= field
		}
		return d.entries[i].term >= term
	})
	if i < len(d.entries) && d.entries[i].field == field && d.entries[i].term == term {
		e := &d.entries[i]
		d.cache.Add(key, e)
		return e, true
	}
	return nil, false
}

// PrefixScan returns every entry in field whose term starts with prefix,
// in sorted order. Used by Prefix and Wildcard-with-literal-prefix
// queries to avoid a full dictionary scan.
func (d *termDictionary) PrefixScan(field, prefix string) []termEntry {
	start := sort.Search(len(d.entries), func(i int) bool {
		if d.entries[i].field != field {
			return d.entries[i].field >= field
		}
		return d.entries[i].term >= prefix
	})
	var out []termEntry
	for i := start; i < len(d.entries); i++ {
		e := d.entries[i]
		if e.field != field || len(e.term) < len(prefix) || e.term[:len(prefix)] != prefix {
			break
		}
		out = append(out, e)
	}
	return out
}

// FieldScan returns every entry for field, in sorted term order. Used
// by fuzzy/regexp queries that cannot binary-search their way in.
func (d *termDictionary) FieldScan(field string) []termEntry {
	start := sort.Search(len(d.entries), func(i int) bool { return d.entries[i].field >= field })
	var out []termEntry
	for i := start; i < len(d.entries) && d.entries[i].field == field; i++ {
		out = append(out, d.entries[i])
	}
	return out
}

func writeTermDictionary(ctx context.Context, st storage.Storage, path string, entries []termEntry) error {
	w, err := st.CreateWrite(ctx, path)
	if err != nil {
		return err
	}
	defer w.Close()

	body := encoding.NewWriter()
	body.Raw([]byte(dictMagic))
	body.U32(1) // format version
	body.Varint(uint64(len(entries)))
	for _, e := range entries {
		body.String(e.field)
		body.String(e.term)
		body.U64(uint64(e.postingOff))
		body.U64(uint64(e.postingLen))
		body.U64(e.docFreq)
		body.U64(e.totalFreq)
	}
	if _, err := w.Write(body.Finish()); err != nil {
		return laurus.Wrap(laurus.KindIo, err)
	}
	return w.Sync()
}

func openTermDictionary(ctx context.Context, st storage.Storage, path string) (*termDictionary, error) {
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
		return nil, laurus.WrapMessage(laurus.KindIndex, "dict "+path+" failed crc check", err)
	}
	magic, err := fr.Raw(len(dictMagic))
	if err != nil || string(magic) != dictMagic {
		return nil, laurus.New(laurus.KindIndex, "dict "+path+": bad magic")
	}
	if _, err := fr.U32(); err != nil {
		return nil, err
	}
	n, err := fr.Varint()
	if err != nil {
		return nil, err
	}
	entries := make([]termEntry, 0, n)
	for i := uint64(0); i < n; i++ {
		field, err := fr.String()
		if err != nil {
			return nil, err
		}
		term, err := fr.String()
		if err != nil {
			return nil, err
		}
		off, err := fr.U64()
		if err != nil {
			return nil, err
		}
		ln, err := fr.U64()
		if err != nil {
			return nil, err
		}
		docFreq, err := fr.U64()
		if err != nil {
			return nil, err
		}
		totalFreq, err := fr.U64()
		if err != nil {
			return nil, err
		}
		entries = append(entries, termEntry{field: field, term: term, docFreq: docFreq, totalFreq: totalFreq, postingOff: int64(off), postingLen: int64(ln)})
	}
	return newTermDictionary(entries), nil
}

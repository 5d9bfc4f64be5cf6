// Package lexical implements the segmented, immutable, on-disk inverted
// index: term dictionaries, posting lists, stored fields, field length
// and stats tables, doc values, a BKD tree (sub-package lexical/bkd) for
// numeric/geo range queries, a roaring-bitmap deletion map, and the
// segment/index metadata and manifest that tie them together.
package lexical

import (
	"context"
	"fmt"
	"sort"
	"sync"

	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/storage"
)

// SegmentID uniquely names a segment within an index, assigned in
// monotonically increasing order as segments are flushed.
type SegmentID uint64

// segmentFileName returns the logical path for one of a segment's
// component files under the lexical storage prefix.
func segmentFileName(id SegmentID, ext string) string {
	return fmt.Sprintf("%012d.%s", uint64(id), ext)
}

// Segment is one immutable slice of the inverted index: a closed set of
// documents assigned at the time it was flushed, never mutated again
// except through its deletion bitmap.
type Segment struct {
	id       SegmentID
	docCount int
	dict     *termDictionary
	postings *postingStore
	docs     *storedFieldsStore
	lens     *fieldLengthsStore
	fstats   *fieldStatsTable
	dv       *docValuesStore
	ids      *idStore
	bkdTrees map[string]*bkdHandle
	delmap   *DeletionMap

	mu sync.RWMutex
}

// ID returns the segment's identifier.
func (s *Segment) ID() SegmentID { return s.id }

// DocCount returns the number of documents ever assigned to this
// segment, including ones since marked deleted.
func (s *Segment) DocCount() int { return s.docCount }

// LiveDocCount returns the number of documents not marked deleted.
func (s *Segment) LiveDocCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docCount - s.delmap.Count()
}

// IsDeleted reports whether the local document id (0-based within this
// segment) is marked deleted.
func (s *Segment) IsDeleted(localDocID uint32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.delmap.Contains(localDocID)
}

// MarkDeleted records localDocID as deleted in the in-memory bitmap;
// callers must flush it via FlushDeletionMap to persist the change.
func (s *Segment) MarkDeleted(localDocID uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delmap.Add(localDocID)
}

// FlushDeletionMap persists the current deletion bitmap to storage.
func (s *Segment) FlushDeletionMap(ctx context.Context, st storage.Storage) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return writeDeletionMap(ctx, st, segmentFileName(s.id, "delmap"), s.delmap)
}

// OpenSegment loads every component file for segment id from st.
func OpenSegment(ctx context.Context, st storage.Storage, id SegmentID) (*Segment, error) {
	meta, err := readSegmentMeta(ctx, st, segmentFileName(id, "meta"))
	if err != nil {
		return nil, err
	}
	dict, err := openTermDictionary(ctx, st, segmentFileName(id, "dict"))
	if err != nil {
		return nil, err
	}
	postings, err := openPostingStore(ctx, st, segmentFileName(id, "post"))
	if err != nil {
		return nil, err
	}
	docs, err := openStoredFieldsStore(ctx, st, segmentFileName(id, "docs"))
	if err != nil {
		return nil, err
	}
	lens, err := openFieldLengthsStore(ctx, st, segmentFileName(id, "lens"))
	if err != nil {
		return nil, err
	}
	fstats, err := openFieldStatsTable(ctx, st, segmentFileName(id, "fstats"))
	if err != nil {
		return nil, err
	}
	dv, err := openDocValuesStore(ctx, st, segmentFileName(id, "dv"))
	if err != nil {
		return nil, err
	}
	ids, err := openIDStore(ctx, st, segmentFileName(id, "ids"))
	if err != nil {
		return nil, err
	}
	delmap, err := readDeletionMap(ctx, st, segmentFileName(id, "delmap"))
	if err != nil {
		return nil, err
	}
	bkdTrees := make(map[string]*bkdHandle, len(meta.BKDFields))
	for _, field := range meta.BKDFields {
		h, err := openBKDHandle(ctx, st, bkdFileName(id, field))
		if err != nil {
			return nil, err
		}
		bkdTrees[field] = h
	}
	return &Segment{
		id:       id,
		docCount: meta.DocCount,
		dict:     dict,
		postings: postings,
		docs:     docs,
		lens:     lens,
		fstats:   fstats,
		dv:       dv,
		ids:      ids,
		bkdTrees: bkdTrees,
		delmap:   delmap,
	}, nil
}

func bkdFileName(id SegmentID, field string) string {
	return fmt.Sprintf("%012d.%s.bkd", uint64(id), field)
}

// sortedSegmentIDs returns ids sorted ascending, the order segments are
// created in and therefore the order they must be merged/searched in
// when doc recency matters.
func sortedSegmentIDs(ids []SegmentID) []SegmentID {
	out := append([]SegmentID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var errSegmentNotFound = laurus.New(laurus.KindIndex, "segment not found")

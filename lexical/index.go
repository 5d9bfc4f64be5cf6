package lexical

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Aman-CERP/laurus/storage"
)

const manifestPath = "segments.json"

// Index owns the set of live segments for one field family (lexical
// fields only; vector fields are a separate package/Storage prefix).
// Readers may run concurrently with a single writer thanks to the
// immutable-segment design: Commit swaps in a new segment slice behind
// a mutex, and in-flight Search calls keep using the slice they loaded.
type Index struct {
	st storage.Storage

	mu       sync.RWMutex
	segments []*Segment
	nextSeg  atomic.Uint64
}

// OpenIndex loads the manifest and every live segment it names.
func OpenIndex(ctx context.Context, st storage.Storage) (*Index, error) {
	manifest, err := ReadManifest(ctx, st, manifestPath)
	if err != nil {
		return nil, err
	}
	idx := &Index{st: st}
	var maxID SegmentID
	for _, id := range manifest.Segments {
		seg, err := OpenSegment(ctx, st, id)
		if err != nil {
			return nil, err
		}
		idx.segments = append(idx.segments, seg)
		if id > maxID {
			maxID = id
		}
	}
	idx.nextSeg.Store(uint64(maxID) + 1)
	return idx, nil
}

// Segments returns a snapshot of the currently live segments.
func (idx *Index) Segments() []*Segment {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]*Segment(nil), idx.segments...)
}

// Commit flushes builder's pending documents as a new segment and
// atomically publishes it by rewriting the manifest.
func (idx *Index) Commit(ctx context.Context, builder *Builder) (*Segment, error) {
	if builder.Len() == 0 {
		return nil, nil
	}
	id := SegmentID(idx.nextSeg.Add(1) - 1)
	seg, err := builder.Flush(ctx, idx.st, id)
	if err != nil {
		return nil, err
	}

	idx.mu.Lock()
	idx.segments = append(idx.segments, seg)
	ids := make([]SegmentID, len(idx.segments))
	for i, s := range idx.segments {
		ids[i] = s.ID()
	}
	idx.mu.Unlock()

	if err := WriteManifest(ctx, idx.st, manifestPath, Manifest{Segments: sortedSegmentIDs(ids)}); err != nil {
		return nil, err
	}
	return seg, nil
}

// DeleteInSegment marks localDocID deleted within segment id and
// persists the change immediately (deletes are visible to readers as
// soon as FlushDeletionMap returns, independent of the next Commit).
func (idx *Index) DeleteInSegment(ctx context.Context, id SegmentID, localDocID uint32) error {
	idx.mu.RLock()
	var target *Segment
	for _, s := range idx.segments {
		if s.ID() == id {
			target = s
			break
		}
	}
	idx.mu.RUnlock()
	if target == nil {
		return errSegmentNotFound
	}
	target.MarkDeleted(localDocID)
	return target.FlushDeletionMap(ctx, idx.st)
}

// Stats summarizes the index's current state.
type Stats struct {
	SegmentCount int
	LiveDocs     int
	DeletedDocs  int
}

// Stats computes aggregate counts across every live segment.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var s Stats
	s.SegmentCount = len(idx.segments)
	for _, seg := range idx.segments {
		live := seg.LiveDocCount()
		s.LiveDocs += live
		s.DeletedDocs += seg.DocCount() - live
	}
	return s
}

// Package engine implements the coordinator spec.md §4.11 describes:
// it owns internal-ID assignment, routes fields between the lexical
// and vector stores, durably logs every mutation to a WAL before
// touching in-memory state, and commits both stores together.
package engine

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/uuid"

	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/lexical"
	"github.com/Aman-CERP/laurus/lexical/query"
	"github.com/Aman-CERP/laurus/storage"
	"github.com/Aman-CERP/laurus/vector"
	"github.com/Aman-CERP/laurus/wal"
)

// fieldIndex is the full surface a vector field's index must offer the
// engine: query execution (vector.FieldIndex) plus mutation and
// persistence. Flat, HNSW, and IVF all satisfy it.
type fieldIndex interface {
	vector.FieldIndex
	Add(id uint64, v []float32) error
	Delete(id uint64)
	Len() int
	Save(ctx context.Context, st storage.Storage, path string) error
}

// Option configures an Engine at Open time, mirroring the teacher's
// functional-option EngineOption convention.
type Option func(*Engine)

// WithAnalyzer sets the text-analysis collaborator used for indexed
// Text fields. Text written to a vector field is handed to the
// Embedder as is; the analyzer is not applied to it.
func WithAnalyzer(a laurus.Analyzer) Option {
	return func(e *Engine) { e.analyzer = a }
}

// WithEmbedder sets the collaborator used to embed Text/Bytes values
// written to a vector field.
func WithEmbedder(em laurus.Embedder) Option {
	return func(e *Engine) { e.embedder = em }
}

// WithLocker sets the cross-process write lock guarding the single
// logical writer invariant (spec.md §5). If unset, no process-level
// locking is performed (the caller is responsible for single-writer
// discipline, e.g. an in-memory-only Storage).
func WithLocker(l storage.Locker) Option {
	return func(e *Engine) { e.locker = l }
}

// WithIVFTrainSampleCap bounds how many vectors Commit samples when
// (re)training an IVF field's centroids (spec.md §4.9: "a sample if
// the corpus is large"). 0 (the default) trains on every vector.
func WithIVFTrainSampleCap(n int) Option {
	return func(e *Engine) { e.ivfSampleCap = n }
}

// docLocation pins down where a committed document's stored fields and
// postings physically live.
type docLocation struct {
	segment lexical.SegmentID
	local   uint32
}

// pendingDoc is a document queued in memory since the last Commit.
type pendingDoc struct {
	internal laurus.InternalID
	external string
	fields   laurus.Document
	vectors  map[string][]float32 // field -> resolved embedding, computed at write time
}

// Engine is the single coordinator spec.md §4.11 names: one per open
// index, owning the lexical index, the per-field vector indexes, and
// the WAL that makes mutations durable before they are visible.
type Engine struct {
	mu sync.RWMutex

	root       storage.Storage
	lexicalSt  storage.Storage
	vectorSt   storage.Storage
	documentSt storage.Storage

	schema   laurus.Schema
	analyzer laurus.Analyzer
	embedder laurus.Embedder
	locker   storage.Locker

	lexIndex *lexical.Index
	log      *wal.WAL
	vectors  map[string]fieldIndex // vector field -> its index

	pending    []pendingDoc
	tombstones map[laurus.InternalID]struct{}

	locations map[laurus.InternalID]docLocation
	segByID   map[lexical.SegmentID]*lexical.Segment

	shard            uint16
	nextLocal        uint64
	walSeq           uint64
	lastCommittedSeq uint64

	ivfSampleCap int
}

// reservedIDOption is the hidden schema entry every document gets for
// its external id: indexed (so get/delete can look it up by exact
// term) and stored (so a hit can report it back).
func reservedIDOption() laurus.FieldOption {
	return laurus.FieldOption{Lexical: &laurus.LexicalFieldOption{
		Kind:  laurus.LexicalText,
		Flags: laurus.TextFlags{Indexed: true, Stored: true},
	}}
}

func identityAnalyze(_, text string) []laurus.Token {
	return []laurus.Token{{Text: text, Position: 0}}
}

// Open loads (or initializes) an index rooted at st: the lexical
// index, every schema-declared vector field's persisted index, and
// replays the WAL to re-drive any mutation durably logged but never
// committed (spec.md §4.11 "Recovery").
func Open(ctx context.Context, st storage.Storage, schema laurus.Schema, shard uint16, opts ...Option) (*Engine, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	fullSchema := make(laurus.Schema, len(schema)+1)
	for k, v := range schema {
		fullSchema[k] = v
	}
	fullSchema[laurus.ReservedIDField] = reservedIDOption()

	e := &Engine{
		root:       st,
		lexicalSt:  storage.NewPrefixed(st, "lexical"),
		vectorSt:   storage.NewPrefixed(st, "vector"),
		documentSt: storage.NewPrefixed(st, "documents"),
		schema:     fullSchema,
		analyzer:   nil,
		vectors:    map[string]fieldIndex{},
		tombstones: map[laurus.InternalID]struct{}{},
		locations:  map[laurus.InternalID]docLocation{},
		segByID:    map[lexical.SegmentID]*lexical.Segment{},
		shard:      shard,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.locker != nil {
		if err := e.locker.Lock(ctx); err != nil {
			return nil, err
		}
	}

	idx, err := lexical.OpenIndex(ctx, e.lexicalSt)
	if err != nil {
		return nil, err
	}
	e.lexIndex = idx
	e.rebuildLocations()

	meta, err := lexical.ReadIndexMeta(ctx, e.lexicalSt, "index.meta")
	if err == nil {
		e.nextLocal = meta.NextLocalCounter
		e.lastCommittedSeq = meta.LastCommittedSeq
		e.walSeq = meta.LastCommittedSeq
	}

	for _, field := range fullSchema.VectorFields() {
		opt := fullSchema[field].Vector
		path := field + vectorExtension(opt.Kind)
		exists, err := e.vectorSt.Exists(ctx, path)
		if err != nil {
			return nil, err
		}
		var fi fieldIndex
		if exists {
			fi, err = loadFieldIndex(ctx, e.vectorSt, path, *opt)
			if err != nil {
				return nil, err
			}
		} else {
			fi = newFieldIndex(*opt)
		}
		e.vectors[field] = fi
	}

	log, err := wal.Open(ctx, e.documentSt, "engine.wal")
	if err != nil {
		return nil, err
	}
	e.log = log

	if err := e.recover(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Close releases the cross-process write lock, if one was configured.
func (e *Engine) Close() error {
	if e.locker != nil {
		return e.locker.Unlock()
	}
	return nil
}

func (e *Engine) recover(ctx context.Context) error {
	records, err := wal.Replay(ctx, e.documentSt, "engine.wal")
	if err != nil {
		return err
	}
	for _, rec := range records {
		if rec.Seq <= e.lastCommittedSeq {
			continue
		}
		if rec.Seq > e.walSeq {
			e.walSeq = rec.Seq
		}
		if uint64(rec.DocID.Local()) >= e.nextLocal {
			e.nextLocal = uint64(rec.DocID.Local()) + 1
		}
		switch rec.Op {
		case wal.OpUpsert:
			if err := e.routeIntoPending(ctx, rec.DocID, rec.ExternalID, rec.ToDocument()); err != nil {
				return err
			}
		case wal.OpDelete:
			e.applyTombstone(rec.DocID)
		}
	}
	return nil
}

// rebuildLocations recomputes the internal-id -> (segment, local doc
// id) map from every currently live segment. Called once at Open and
// incrementally extended after each Commit.
func (e *Engine) rebuildLocations() {
	e.locations = map[laurus.InternalID]docLocation{}
	e.segByID = map[lexical.SegmentID]*lexical.Segment{}
	for _, seg := range e.lexIndex.Segments() {
		e.indexSegmentLocations(seg)
	}
}

func (e *Engine) indexSegmentLocations(seg *lexical.Segment) {
	e.segByID[seg.ID()] = seg
	for local := uint32(0); local < uint32(seg.DocCount()); local++ {
		id, ok := seg.InternalID(local)
		if !ok {
			continue
		}
		e.locations[id] = docLocation{segment: seg.ID(), local: local}
	}
}

func vectorExtension(kind laurus.VectorIndexKind) string {
	switch kind {
	case laurus.VectorHNSW:
		return ".hnsw"
	case laurus.VectorIVF:
		return ".ivf"
	default:
		return ".flat"
	}
}

func newFieldIndex(opt laurus.VectorFieldOption) fieldIndex {
	switch opt.Kind {
	case laurus.VectorHNSW:
		cfg := vector.HNSWConfig{Metric: opt.Metric, Dimension: opt.Dimension, M: opt.M, EfConstruction: opt.EfConstruction}
		return vector.NewHNSWIndex(cfg)
	case laurus.VectorIVF:
		cfg := vector.DefaultIVFConfig(opt.Metric, opt.Dimension, opt.NClusters)
		if opt.NProbe > 0 {
			cfg.NProbe = opt.NProbe
		}
		return vector.NewIVFIndex(cfg)
	default:
		if opt.Quantizer != laurus.QuantizerNone {
			return vector.NewQuantizedFlatIndex(opt.Metric, opt.Dimension, opt.Quantizer, opt.SubvectorCount)
		}
		return vector.NewFlatIndex(opt.Metric, opt.Dimension)
	}
}

func loadFieldIndex(ctx context.Context, st storage.Storage, path string, opt laurus.VectorFieldOption) (fieldIndex, error) {
	switch opt.Kind {
	case laurus.VectorHNSW:
		return vector.LoadHNSWIndex(ctx, st, path, opt.Metric)
	case laurus.VectorIVF:
		return vector.LoadIVFIndex(ctx, st, path, opt.Metric)
	default:
		if opt.Quantizer != laurus.QuantizerNone {
			return vector.LoadQuantizedFlatIndex(ctx, st, path, opt.Metric)
		}
		return vector.LoadFlatIndex(ctx, st, path, opt.Metric)
	}
}

// PutDocument upserts doc under externalID, replacing any existing
// document(s) sharing that external id (spec.md §4.11).
func (e *Engine) PutDocument(ctx context.Context, externalID string, doc laurus.Document) (laurus.InternalID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if externalID == "" {
		externalID = uuid.NewString()
	}
	if err := e.deleteExternalLocked(ctx, externalID); err != nil {
		return 0, err
	}
	return e.addLocked(ctx, externalID, doc)
}

// AddDocument appends doc as a new chunk under externalID without
// disturbing any existing chunks sharing that external id.
func (e *Engine) AddDocument(ctx context.Context, externalID string, doc laurus.Document) (laurus.InternalID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if externalID == "" {
		externalID = uuid.NewString()
	}
	return e.addLocked(ctx, externalID, doc)
}

func (e *Engine) addLocked(ctx context.Context, externalID string, doc laurus.Document) (laurus.InternalID, error) {
	id := laurus.NewInternalID(e.shard, e.nextLocal)
	e.nextLocal++

	withID := doc.Clone()
	withID[laurus.ReservedIDField] = laurus.TextValue(externalID)

	e.walSeq++
	rec := wal.UpsertRecord(e.walSeq, id, externalID, withID)
	if err := e.log.Append(ctx, rec); err != nil {
		return 0, err
	}
	if err := e.routeIntoPending(ctx, id, externalID, withID); err != nil {
		return 0, err
	}
	return id, nil
}

// routeIntoPending resolves any vector-field embeddings doc needs and
// queues it for the next Commit. It is also the path recovery replays
// WAL-logged upserts through, so embedding derivation (never logged
// itself) is re-run identically from the original stored fields.
func (e *Engine) routeIntoPending(ctx context.Context, id laurus.InternalID, externalID string, doc laurus.Document) error {
	vecs := map[string][]float32{}
	for field, opt := range e.schema {
		if opt.Vector == nil {
			continue
		}
		val, ok := doc[field]
		if !ok {
			continue
		}
		v, err := e.resolveVector(ctx, opt.Vector, val)
		if err != nil {
			return err
		}
		if v != nil {
			vecs[field] = v
		}
	}
	e.pending = append(e.pending, pendingDoc{internal: id, external: externalID, fields: doc, vectors: vecs})
	delete(e.tombstones, id)
	return nil
}

func (e *Engine) resolveVector(ctx context.Context, opt *laurus.VectorFieldOption, val laurus.Value) ([]float32, error) {
	if v, ok := val.Vector(); ok {
		if len(v) != opt.Dimension {
			return nil, laurus.Newf(laurus.KindField, "vector dimension %d does not match schema dimension %d", len(v), opt.Dimension)
		}
		return v, nil
	}
	if e.embedder == nil {
		return nil, laurus.New(laurus.KindField, "vector field given non-vector value but no embedder is configured")
	}
	if text, ok := val.Text(); ok {
		v, err := e.embedder.Embed(ctx, []byte(text), laurus.EmbedderInputText)
		if err != nil {
			return nil, laurus.Wrap(laurus.KindAnalysis, err)
		}
		return v, nil
	}
	if b, _, ok := val.Bytes(); ok {
		v, err := e.embedder.Embed(ctx, b, laurus.EmbedderInputBytes)
		if err != nil {
			return nil, laurus.Wrap(laurus.KindAnalysis, err)
		}
		return v, nil
	}
	return nil, nil
}

// DeleteDocuments logically deletes every chunk sharing externalID. The
// deletion becomes permanent (and invisible to search) at the next
// Commit; until then it is still resolvable per spec.md §3's lifecycle.
func (e *Engine) DeleteDocuments(ctx context.Context, externalID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deleteExternalLocked(ctx, externalID)
}

func (e *Engine) deleteExternalLocked(ctx context.Context, externalID string) error {
	ids, err := e.lookupExternalLocked(ctx, externalID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		e.walSeq++
		rec := wal.DeleteRecord(e.walSeq, id, externalID)
		if err := e.log.Append(ctx, rec); err != nil {
			return err
		}
		e.applyTombstone(id)
	}
	return nil
}

func (e *Engine) applyTombstone(id laurus.InternalID) {
	kept := e.pending[:0]
	found := false
	for _, p := range e.pending {
		if p.internal == id {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	e.pending = kept
	if !found {
		e.tombstones[id] = struct{}{}
	}
}

// lookupExternalLocked finds every live internal id (committed or
// still-pending) tagged with externalID.
func (e *Engine) lookupExternalLocked(ctx context.Context, externalID string) ([]laurus.InternalID, error) {
	var out []laurus.InternalID
	for _, p := range e.pending {
		if p.external == externalID {
			out = append(out, p.internal)
		}
	}
	result, err := query.SearchSegments(ctx, e.lexIndex.Segments(), query.Request{
		Query: query.Term{Field: laurus.ReservedIDField, Term: externalID},
		Size:  1 << 20,
	})
	if err != nil {
		return nil, err
	}
	for _, h := range result.Hits {
		seg := e.segByID[h.Segment]
		if seg == nil || seg.IsDeleted(h.LocalDocID) {
			continue
		}
		id, ok := seg.InternalID(h.LocalDocID)
		if !ok {
			continue
		}
		if _, tombstoned := e.tombstones[id]; tombstoned {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// GetDocuments retrieves the stored fields of every live, committed
// chunk tagged with externalID, ordered by internal id.
func (e *Engine) GetDocuments(ctx context.Context, externalID string) ([]laurus.Document, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result, err := query.SearchSegments(ctx, e.lexIndex.Segments(), query.Request{
		Query: query.Term{Field: laurus.ReservedIDField, Term: externalID},
		Size:  1 << 20,
	})
	if err != nil {
		return nil, err
	}
	type located struct {
		id  laurus.InternalID
		doc laurus.Document
	}
	var docs []located
	for _, h := range result.Hits {
		seg := e.segByID[h.Segment]
		if seg == nil || seg.IsDeleted(h.LocalDocID) {
			continue
		}
		id, ok := seg.InternalID(h.LocalDocID)
		if !ok {
			continue
		}
		doc, err := seg.StoredFields(h.LocalDocID)
		if err != nil {
			return nil, err
		}
		docs = append(docs, located{id: id, doc: doc})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].id < docs[j].id })
	out := make([]laurus.Document, len(docs))
	for i, d := range docs {
		out[i] = d.doc
	}
	return out, nil
}

// Commit durably flushes every buffered mutation: the lexical side
// first, then the vector side, then index.meta, then the WAL is
// truncated (spec.md §4.11 "Commit").
func (e *Engine) Commit(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id := range e.tombstones {
		loc, ok := e.locations[id]
		if !ok {
			continue
		}
		if err := e.lexIndex.DeleteInSegment(ctx, loc.segment, loc.local); err != nil {
			return err
		}
	}
	for _, fi := range e.vectors {
		for id := range e.tombstones {
			fi.Delete(uint64(id))
		}
	}

	builder := lexical.NewBuilder(e.schema, e.analyzeFunc())
	perFieldVectors := map[string]map[uint64][]float32{}
	for _, p := range e.pending {
		builder.Add(p.internal, p.fields)
		for field, v := range p.vectors {
			if perFieldVectors[field] == nil {
				perFieldVectors[field] = map[uint64][]float32{}
			}
			perFieldVectors[field][uint64(p.internal)] = v
		}
	}

	seg, err := e.lexIndex.Commit(ctx, builder)
	if err != nil {
		return err
	}
	if seg != nil {
		e.indexSegmentLocations(seg)
	}

	for field, additions := range perFieldVectors {
		fi := e.vectors[field]
		if fi == nil {
			fi = newFieldIndex(*e.schema[field].Vector)
			e.vectors[field] = fi
		}
		ids := make([]uint64, 0, len(additions))
		for id := range additions {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			if err := fi.Add(id, additions[id]); err != nil {
				return err
			}
		}
		if ivf, ok := fi.(*vector.IVFIndex); ok {
			ivf.Train(e.ivfSampleCap)
		}
	}
	for field, fi := range e.vectors {
		opt := e.schema[field].Vector
		path := field + vectorExtension(opt.Kind)
		if err := fi.Save(ctx, e.vectorSt, path); err != nil {
			return err
		}
	}

	schemaRaw := make(map[string]json.RawMessage, len(e.schema))
	for name, opt := range e.schema {
		b, err := json.Marshal(opt)
		if err != nil {
			return laurus.WrapMessage(laurus.KindJson, "marshal schema field "+name, err)
		}
		schemaRaw[name] = b
	}
	meta := lexical.IndexMeta{Schema: schemaRaw, NextLocalCounter: e.nextLocal, LastCommittedSeq: e.walSeq}
	if err := lexical.WriteIndexMeta(ctx, e.lexicalSt, "index.meta", meta); err != nil {
		return err
	}
	if err := e.log.Truncate(ctx); err != nil {
		return err
	}

	e.lastCommittedSeq = e.walSeq
	e.pending = nil
	e.tombstones = map[laurus.InternalID]struct{}{}
	return nil
}

func (e *Engine) analyzeFunc() func(field, text string) []laurus.Token {
	if e.analyzer != nil {
		return func(_, text string) []laurus.Token { return e.analyzer.Analyze(text) }
	}
	return identityAnalyze
}

// Stats summarizes the engine's current committed state (spec.md §4.11).
type Stats struct {
	Lexical lexical.Stats
	Vectors map[string]VectorFieldStats
}

// VectorFieldStats reports a vector field's current shape.
type VectorFieldStats struct {
	Count     int
	Dimension int
}

// Stats returns aggregate counts across the lexical index and every
// vector field.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := Stats{Lexical: e.lexIndex.Stats(), Vectors: map[string]VectorFieldStats{}}
	for field, fi := range e.vectors {
		dim := 0
		if opt := e.schema[field].Vector; opt != nil {
			dim = opt.Dimension
		}
		out.Vectors[field] = VectorFieldStats{Count: fi.Len(), Dimension: dim}
	}
	return out
}

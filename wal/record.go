// Package wal implements the engine's write-ahead log: one JSON record
// per mutation, length-prefixed and synced on every append, truncated
// to zero bytes on successful commit (spec.md §4.11/§4.13).
package wal

import (
	"encoding/base64"
	"time"

	laurus "github.com/Aman-CERP/laurus"
)

// Op names the two mutation kinds a record can carry.
type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// Record is one WAL entry. Seq is strictly increasing across the
// engine's lifetime; Document is only populated for OpUpsert.
type Record struct {
	Seq        uint64           `json:"seq"`
	Op         Op               `json:"op"`
	DocID      laurus.InternalID `json:"doc_id"`
	ExternalID string           `json:"external_id"`
	Document   map[string]walValue `json:"document,omitempty"`
}

// walValue mirrors laurus.Value for JSON encoding, the same way
// lexical's storedValue does for stored fields -- Value keeps its
// fields unexported by design, so every subsystem that persists a
// Document defines its own small DTO rather than exporting Value's
// internals.
type walValue struct {
	Kind     laurus.ValueKind `json:"kind"`
	Text     string           `json:"text,omitempty"`
	Int      int64            `json:"int,omitempty"`
	Float    float64          `json:"float,omitempty"`
	Bool     bool             `json:"bool,omitempty"`
	Bytes    string           `json:"bytes,omitempty"`
	Mime     string           `json:"mime,omitempty"`
	DateTime time.Time        `json:"datetime,omitempty"`
	Lat      float64          `json:"lat,omitempty"`
	Lon      float64          `json:"lon,omitempty"`
	Vector   []float32        `json:"vector,omitempty"`
}

func fromValue(v laurus.Value) walValue {
	wv := walValue{Kind: v.Kind()}
	switch v.Kind() {
	case laurus.KindText:
		wv.Text, _ = v.Text()
	case laurus.KindInt:
		wv.Int, _ = v.Int()
	case laurus.KindFloat:
		wv.Float, _ = v.Float()
	case laurus.KindBool:
		wv.Bool, _ = v.Bool()
	case laurus.KindBytes:
		b, mime, _ := v.Bytes()
		wv.Bytes = base64.StdEncoding.EncodeToString(b)
		wv.Mime = mime
	case laurus.KindDateTime:
		wv.DateTime, _ = v.DateTime()
	case laurus.KindGeo:
		g, _ := v.GeoPoint()
		wv.Lat, wv.Lon = g.Lat, g.Lon
	case laurus.KindVector:
		wv.Vector, _ = v.Vector()
	}
	return wv
}

func (wv walValue) toValue() laurus.Value {
	switch wv.Kind {
	case laurus.KindText:
		return laurus.TextValue(wv.Text)
	case laurus.KindInt:
		return laurus.IntValue(wv.Int)
	case laurus.KindFloat:
		return laurus.FloatValue(wv.Float)
	case laurus.KindBool:
		return laurus.BoolValue(wv.Bool)
	case laurus.KindBytes:
		b, _ := base64.StdEncoding.DecodeString(wv.Bytes)
		return laurus.BytesValue(b, wv.Mime)
	case laurus.KindDateTime:
		return laurus.DateTimeValue(wv.DateTime)
	case laurus.KindGeo:
		return laurus.GeoValue(wv.Lat, wv.Lon)
	case laurus.KindVector:
		return laurus.VectorValue(wv.Vector)
	default:
		return laurus.NullValue()
	}
}

// UpsertRecord builds an OpUpsert record from a document.
func UpsertRecord(seq uint64, docID laurus.InternalID, externalID string, doc laurus.Document) Record {
	out := make(map[string]walValue, len(doc))
	for field, v := range doc {
		out[field] = fromValue(v)
	}
	return Record{Seq: seq, Op: OpUpsert, DocID: docID, ExternalID: externalID, Document: out}
}

// DeleteRecord builds an OpDelete record.
func DeleteRecord(seq uint64, docID laurus.InternalID, externalID string) Record {
	return Record{Seq: seq, Op: OpDelete, DocID: docID, ExternalID: externalID}
}

// ToDocument converts a record's stored fields back into a Document.
// It is only meaningful for OpUpsert records.
func (r Record) ToDocument() laurus.Document {
	doc := make(laurus.Document, len(r.Document))
	for field, wv := range r.Document {
		doc[field] = wv.toValue()
	}
	return doc
}

package laurus

import "time"

// ValueKind tags the variant held by a Value. Tag numbers are stable
// and match the stored-fields type tags in spec.md §6.
type ValueKind uint8

const (
	KindNull     ValueKind = 0
	KindText     ValueKind = 1
	KindInt      ValueKind = 2
	KindFloat    ValueKind = 3
	KindBool     ValueKind = 4
	KindBytes    ValueKind = 5
	KindDateTime ValueKind = 6
	KindGeo      ValueKind = 7
	KindVector   ValueKind = 9
)

// Geo holds a latitude/longitude pair in decimal degrees.
type Geo struct {
	Lat float64
	Lon float64
}

// Value is a tagged union over the data model's primitive types. Only
// the field matching Kind is meaningful; callers must check Kind before
// reading any accessor.
type Value struct {
	kind     ValueKind
	text     string
	integer  int64
	float    float64
	boolean  bool
	bytes    []byte
	mime     string
	datetime time.Time
	geo      Geo
	vector   []float32
}

// Kind reports which variant this Value holds.
func (v Value) Kind() ValueKind { return v.kind }

func NullValue() Value { return Value{kind: KindNull} }

func TextValue(s string) Value { return Value{kind: KindText, text: s} }

func (v Value) Text() (string, bool) { return v.text, v.kind == KindText }

func IntValue(i int64) Value { return Value{kind: KindInt, integer: i} }

func (v Value) Int() (int64, bool) { return v.integer, v.kind == KindInt }

func FloatValue(f float64) Value { return Value{kind: KindFloat, float: f} }

func (v Value) Float() (float64, bool) { return v.float, v.kind == KindFloat }

func BoolValue(b bool) Value { return Value{kind: KindBool, boolean: b} }

func (v Value) Bool() (bool, bool) { return v.boolean, v.kind == KindBool }

func BytesValue(b []byte, mime string) Value {
	return Value{kind: KindBytes, bytes: b, mime: mime}
}

func (v Value) Bytes() ([]byte, string, bool) { return v.bytes, v.mime, v.kind == KindBytes }

func DateTimeValue(t time.Time) Value { return Value{kind: KindDateTime, datetime: t.UTC()} }

func (v Value) DateTime() (time.Time, bool) { return v.datetime, v.kind == KindDateTime }

func GeoValue(lat, lon float64) Value { return Value{kind: KindGeo, geo: Geo{Lat: lat, Lon: lon}} }

func (v Value) GeoPoint() (Geo, bool) { return v.geo, v.kind == KindGeo }

func VectorValue(vec []float32) Value { return Value{kind: KindVector, vector: vec} }

func (v Value) Vector() ([]float32, bool) { return v.vector, v.kind == KindVector }

// ReservedIDField is the document field injected by the engine to hold
// the caller-supplied external string ID.
const ReservedIDField = "_id"

// Document is a mapping from field name to Value.
type Document map[string]Value

// Clone returns a shallow copy of the document (values are copy-safe
// except for slice-backed Bytes/Vector, which are shared by reference).
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

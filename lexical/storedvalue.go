package lexical

import (
	"encoding/base64"
	"time"

	laurus "github.com/Aman-CERP/laurus"
)

// storedValue is the JSON-serializable mirror of laurus.Value. Value
// itself keeps its fields unexported (it is a tagged union meant to be
// read only through its accessors), so the lexical package's stored
// fields codec goes through this type instead of json.Marshal'ing
// laurus.Value directly.
type storedValue struct {
	Kind     laurus.ValueKind `json:"kind"`
	Text     string           `json:"text,omitempty"`
	Int      int64            `json:"int,omitempty"`
	Float    float64          `json:"float,omitempty"`
	Bool     bool             `json:"bool,omitempty"`
	Bytes    string           `json:"bytes,omitempty"` // base64
	Mime     string           `json:"mime,omitempty"`
	DateTime time.Time        `json:"datetime,omitempty"`
	Lat      float64          `json:"lat,omitempty"`
	Lon      float64          `json:"lon,omitempty"`
	Vector   []float32        `json:"vector,omitempty"`
}

func fromValue(v laurus.Value) storedValue {
	sv := storedValue{Kind: v.Kind()}
	switch v.Kind() {
	case laurus.KindText:
		sv.Text, _ = v.Text()
	case laurus.KindInt:
		sv.Int, _ = v.Int()
	case laurus.KindFloat:
		sv.Float, _ = v.Float()
	case laurus.KindBool:
		sv.Bool, _ = v.Bool()
	case laurus.KindBytes:
		b, mime, _ := v.Bytes()
		sv.Bytes = base64.StdEncoding.EncodeToString(b)
		sv.Mime = mime
	case laurus.KindDateTime:
		sv.DateTime, _ = v.DateTime()
	case laurus.KindGeo:
		g, _ := v.GeoPoint()
		sv.Lat, sv.Lon = g.Lat, g.Lon
	case laurus.KindVector:
		sv.Vector, _ = v.Vector()
	}
	return sv
}

func (sv storedValue) toValue() laurus.Value {
	switch sv.Kind {
	case laurus.KindText:
		return laurus.TextValue(sv.Text)
	case laurus.KindInt:
		return laurus.IntValue(sv.Int)
	case laurus.KindFloat:
		return laurus.FloatValue(sv.Float)
	case laurus.KindBool:
		return laurus.BoolValue(sv.Bool)
	case laurus.KindBytes:
		b, _ := base64.StdEncoding.DecodeString(sv.Bytes)
		return laurus.BytesValue(b, sv.Mime)
	case laurus.KindDateTime:
		return laurus.DateTimeValue(sv.DateTime)
	case laurus.KindGeo:
		return laurus.GeoValue(sv.Lat, sv.Lon)
	case laurus.KindVector:
		return laurus.VectorValue(sv.Vector)
	default:
		return laurus.NullValue()
	}
}

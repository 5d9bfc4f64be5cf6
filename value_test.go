package laurus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueAccessors(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		kind ValueKind
	}{
		{"null", NullValue(), KindNull},
		{"text", TextValue("hello"), KindText},
		{"int", IntValue(42), KindInt},
		{"float", FloatValue(1.5), KindFloat},
		{"bool", BoolValue(true), KindBool},
		{"bytes", BytesValue([]byte("x"), "text/plain"), KindBytes},
		{"datetime", DateTimeValue(time.Now()), KindDateTime},
		{"geo", GeoValue(1, 2), KindGeo},
		{"vector", VectorValue([]float32{1, 2, 3}), KindVector},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.v.Kind())
		})
	}
}

func TestValueWrongAccessorReturnsFalse(t *testing.T) {
	v := TextValue("hi")
	_, ok := v.Int()
	assert.False(t, ok)
	s, ok := v.Text()
	assert.True(t, ok)
	assert.Equal(t, "hi", s)
}

func TestSchemaValidateXOR(t *testing.T) {
	s := Schema{
		"title": FieldOption{Lexical: &LexicalFieldOption{Kind: LexicalText}},
	}
	require.NoError(t, s.Validate())

	bad := Schema{
		"title": FieldOption{
			Lexical: &LexicalFieldOption{Kind: LexicalText},
			Vector:  &VectorFieldOption{Kind: VectorFlat, Dimension: 3},
		},
	}
	err := bad.Validate()
	require.Error(t, err)
	assert.Equal(t, KindSchema, KindOf(err))
}

func TestSchemaValidateVectorRequiresDimension(t *testing.T) {
	s := Schema{"vec": FieldOption{Vector: &VectorFieldOption{Kind: VectorFlat}}}
	require.Error(t, s.Validate())
}

func TestSchemaFieldLists(t *testing.T) {
	s := Schema{
		"body":     FieldOption{Lexical: &LexicalFieldOption{Kind: LexicalText}},
		"title":    FieldOption{Lexical: &LexicalFieldOption{Kind: LexicalText}},
		"body_vec": FieldOption{Vector: &VectorFieldOption{Kind: VectorHNSW, Dimension: 3, M: 16, EfConstruction: 200}},
	}
	require.NoError(t, s.Validate())
	assert.Equal(t, []string{"body", "title"}, s.LexicalFields())
	assert.Equal(t, []string{"body_vec"}, s.VectorFields())
}

func TestInternalIDPacking(t *testing.T) {
	id := NewInternalID(7, 12345)
	assert.Equal(t, uint16(7), id.Shard())
	assert.Equal(t, uint64(12345), id.Local())
}

func TestErrorKindAndUnwrap(t *testing.T) {
	cause := assertError("disk full")
	err := WrapMessage(KindIo, "flush failed", cause)
	assert.Equal(t, KindIo, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "flush failed")
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

func assertError(msg string) error { return simpleErr(msg) }

package laurus

import "sort"

// TextFlags controls how a Text field is handled by the lexical writer.
type TextFlags struct {
	Indexed      bool
	Stored       bool
	TermVectors  bool // positions retained for phrase/span queries
}

// LexicalFieldKind enumerates the lexical field option variants.
type LexicalFieldKind string

const (
	LexicalText     LexicalFieldKind = "text"
	LexicalInteger  LexicalFieldKind = "integer"
	LexicalFloat    LexicalFieldKind = "float"
	LexicalBoolean  LexicalFieldKind = "boolean"
	LexicalDateTime LexicalFieldKind = "datetime"
	LexicalGeo      LexicalFieldKind = "geo"
	LexicalBytes    LexicalFieldKind = "bytes"
)

// Metric is a vector distance metric.
type Metric string

const (
	MetricCosine     Metric = "cosine"
	MetricEuclidean  Metric = "euclidean"
	MetricManhattan  Metric = "manhattan"
	MetricDotProduct Metric = "dot_product"
	MetricAngular    Metric = "angular"
)

// QuantizerKind enumerates vector quantization schemes.
type QuantizerKind string

const (
	QuantizerNone           QuantizerKind = ""
	QuantizerScalar8Bit     QuantizerKind = "scalar8bit"
	QuantizerProductQuant   QuantizerKind = "product_quantization"
)

// VectorIndexKind enumerates the vector field option variants.
type VectorIndexKind string

const (
	VectorFlat VectorIndexKind = "flat"
	VectorHNSW VectorIndexKind = "hnsw"
	VectorIVF  VectorIndexKind = "ivf"
)

// FieldOption describes how a single schema field is indexed. Exactly
// one of Lexical/Vector is set (enforced by Schema.Validate).
type FieldOption struct {
	Lexical *LexicalFieldOption
	Vector  *VectorFieldOption
}

// LexicalFieldOption configures a lexical (non-vector) field.
type LexicalFieldOption struct {
	Kind  LexicalFieldKind
	Flags TextFlags // Indexed/Stored/TermVectors apply to every Kind

	// FieldWeight multiplies this field's BM25 contribution; 0 means
	// "unset", treated as 1.0. Baked into each posting at index time
	// (spec.md §4.3's field_weight) rather than applied only at query
	// time, mirroring VectorFieldOption.BaseWeight.
	FieldWeight float64
}

// VectorFieldOption configures a vector field.
type VectorFieldOption struct {
	Kind           VectorIndexKind
	Dimension      int
	Metric         Metric
	BaseWeight     float64 // 0 means "unset", treated as 1.0
	Quantizer      QuantizerKind
	SubvectorCount int // Product Quantization only

	// HNSW
	M              int
	EfConstruction int

	// IVF
	NClusters int
	NProbe    int
}

// Schema maps field names to field options.
type Schema map[string]FieldOption

// Validate checks the XOR-ness and required parameters of every field.
func (s Schema) Validate() error {
	for name, opt := range s {
		if name == "" {
			return New(KindSchema, "field name must not be empty")
		}
		hasLex := opt.Lexical != nil
		hasVec := opt.Vector != nil
		if hasLex == hasVec {
			return Newf(KindSchema, "field %q must be exactly one of lexical or vector", name)
		}
		if hasVec {
			v := opt.Vector
			if v.Dimension <= 0 {
				return Newf(KindSchema, "field %q: vector dimension must be positive", name)
			}
			switch v.Kind {
			case VectorFlat, VectorHNSW, VectorIVF:
			default:
				return Newf(KindSchema, "field %q: unknown vector index kind %q", name, v.Kind)
			}
			if v.Kind == VectorHNSW {
				if v.M <= 0 {
					return Newf(KindSchema, "field %q: HNSW M must be positive", name)
				}
				if v.EfConstruction <= 0 {
					return Newf(KindSchema, "field %q: HNSW ef_construction must be positive", name)
				}
			}
			if v.Kind == VectorIVF {
				if v.NClusters <= 0 {
					return Newf(KindSchema, "field %q: IVF n_clusters must be positive", name)
				}
			}
			if v.Quantizer == QuantizerProductQuant && v.SubvectorCount <= 0 {
				return Newf(KindSchema, "field %q: product quantization subvector_count must be positive", name)
			}
			if v.Quantizer != QuantizerNone && v.Kind != VectorFlat {
				return Newf(KindSchema, "field %q: quantizer %q is only supported on a flat index", name, v.Quantizer)
			}
			if v.Quantizer == QuantizerProductQuant && v.Dimension%v.SubvectorCount != 0 {
				return Newf(KindSchema, "field %q: vector dimension %d must divide evenly into subvector_count %d", name, v.Dimension, v.SubvectorCount)
			}
		} else {
			switch opt.Lexical.Kind {
			case LexicalText, LexicalInteger, LexicalFloat, LexicalBoolean, LexicalDateTime, LexicalGeo, LexicalBytes:
			default:
				return Newf(KindSchema, "field %q: unknown lexical field kind %q", name, opt.Lexical.Kind)
			}
		}
	}
	return nil
}

// LexicalFields returns the subset of field names backed by the
// lexical store, in deterministic (sorted) order.
func (s Schema) LexicalFields() []string {
	return s.fieldsWhere(func(o FieldOption) bool { return o.Lexical != nil })
}

// VectorFields returns the subset of field names backed by the vector
// store, in deterministic (sorted) order.
func (s Schema) VectorFields() []string {
	return s.fieldsWhere(func(o FieldOption) bool { return o.Vector != nil })
}

func (s Schema) fieldsWhere(pred func(FieldOption) bool) []string {
	out := make([]string, 0, len(s))
	for name, opt := range s {
		if pred(opt) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

package lexical

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/storage"
)

func simpleAnalyze(_, text string) []laurus.Token {
	words := strings.Fields(strings.ToLower(text))
	tokens := make([]laurus.Token, len(words))
	for i, w := range words {
		tokens[i] = laurus.Token{Text: w, Position: i}
	}
	return tokens
}

func testSchema() laurus.Schema {
	return laurus.Schema{
		"body": laurus.FieldOption{Lexical: &laurus.LexicalFieldOption{
			Kind:  laurus.LexicalText,
			Flags: laurus.TextFlags{Indexed: true, Stored: true},
		}},
		"year": laurus.FieldOption{Lexical: &laurus.LexicalFieldOption{
			Kind: laurus.LexicalInteger,
		}},
	}
}

func TestBuilderFlushAndOpenSegmentRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	schema := testSchema()
	b := NewBuilder(schema, simpleAnalyze)
	b.Add(laurus.NewInternalID(0, 1), laurus.Document{
		"body": laurus.TextValue("the quick brown fox"),
		"year": laurus.IntValue(2020),
	})
	b.Add(laurus.NewInternalID(0, 2), laurus.Document{
		"body": laurus.TextValue("the lazy dog"),
		"year": laurus.IntValue(2021),
	})

	seg, err := b.Flush(ctx, st, SegmentID(0))
	require.NoError(t, err)
	assert.Equal(t, 2, seg.DocCount())
	assert.Equal(t, 2, seg.LiveDocCount())

	entry, ok := seg.dict.Lookup("body", "the")
	require.True(t, ok)
	assert.Equal(t, uint64(2), entry.docFreq)

	postings, err := seg.postings.Decode(entry.postingOff, entry.postingLen)
	require.NoError(t, err)
	assert.Len(t, postings, 2)

	_, ok = seg.dict.Lookup("body", "fox")
	require.True(t, ok)

	assert.Equal(t, uint32(4), seg.lens.Length("body", 0))

	val, ok := seg.dv.Value("year", 0)
	require.True(t, ok)
	assert.Equal(t, float64(2020), val)

	internal, ok := seg.InternalID(1)
	require.True(t, ok)
	assert.Equal(t, laurus.NewInternalID(0, 2), internal)
}

func TestSegmentInternalIDSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	b := NewBuilder(testSchema(), simpleAnalyze)
	b.Add(laurus.NewInternalID(3, 7), laurus.Document{"body": laurus.TextValue("hello")})
	seg, err := b.Flush(ctx, st, SegmentID(0))
	require.NoError(t, err)

	reopened, err := OpenSegment(ctx, st, SegmentID(0))
	require.NoError(t, err)
	internal, ok := reopened.InternalID(0)
	require.True(t, ok)
	assert.Equal(t, seg.id, reopened.id)
	assert.Equal(t, laurus.NewInternalID(3, 7), internal)
}

func TestSegmentDeletionMapPersists(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	b := NewBuilder(testSchema(), simpleAnalyze)
	b.Add(laurus.NewInternalID(0, 1), laurus.Document{"body": laurus.TextValue("hello world")})
	seg, err := b.Flush(ctx, st, SegmentID(0))
	require.NoError(t, err)

	seg.MarkDeleted(0)
	require.NoError(t, seg.FlushDeletionMap(ctx, st))
	assert.Equal(t, 0, seg.LiveDocCount())

	reopened, err := OpenSegment(ctx, st, SegmentID(0))
	require.NoError(t, err)
	assert.True(t, reopened.IsDeleted(0))
	assert.Equal(t, 0, reopened.LiveDocCount())
}

func TestIndexCommitPublishesManifest(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	idx, err := OpenIndex(ctx, st)
	require.NoError(t, err)

	b := NewBuilder(testSchema(), simpleAnalyze)
	b.Add(laurus.NewInternalID(0, 1), laurus.Document{"body": laurus.TextValue("hello")})
	seg, err := idx.Commit(ctx, b)
	require.NoError(t, err)
	require.NotNil(t, seg)

	reopened, err := OpenIndex(ctx, st)
	require.NoError(t, err)
	assert.Len(t, reopened.Segments(), 1)
	assert.Equal(t, seg.ID(), reopened.Segments()[0].ID())
}

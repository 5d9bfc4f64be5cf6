package laurus

import "context"

// Token is a single unit produced by an Analyzer, carrying enough
// positional detail for phrase and span matching.
type Token struct {
	Text              string
	Position          int
	StartOffset       int
	EndOffset         int
	PositionIncrement int
	PositionLength    int
	Boost             float64
}

// Analyzer is the external text-analysis collaborator (spec.md §1, §6).
// The core never tokenizes text itself; it calls Analyze and indexes
// whatever tokens come back.
type Analyzer interface {
	Analyze(text string) []Token
}

// EmbedderInputKind enumerates the input modalities an Embedder accepts.
type EmbedderInputKind string

const (
	EmbedderInputText  EmbedderInputKind = "text"
	EmbedderInputBytes EmbedderInputKind = "bytes"
)

// Embedder is the external embedding-model collaborator (spec.md §1, §6).
// Embed calls must be cancellable because they may be remote and
// long-running (spec.md §5).
type Embedder interface {
	Embed(ctx context.Context, input []byte, kind EmbedderInputKind) ([]float32, error)
	SupportedInputTypes() []EmbedderInputKind
	Dimension() int
}

// EmbedBatch embeds each input sequentially using e.Embed, the default
// behavior spec.md §6 describes for embedders that do not implement a
// native batch path.
func EmbedBatch(ctx context.Context, e Embedder, inputs [][]byte, kind EmbedderInputKind) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		select {
		case <-ctx.Done():
			return nil, Wrap(KindOperationCancelled, ctx.Err())
		default:
		}
		v, err := e.Embed(ctx, in, kind)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// BatchEmbedder is implemented by embedders that can embed a batch more
// efficiently than sequential Embed calls (e.g. batched remote calls).
type BatchEmbedder interface {
	Embedder
	EmbedBatch(ctx context.Context, inputs [][]byte, kind EmbedderInputKind) ([][]float32, error)
}

// EmbedAll embeds every input, preferring a BatchEmbedder's native path.
func EmbedAll(ctx context.Context, e Embedder, inputs [][]byte, kind EmbedderInputKind) ([][]float32, error) {
	if be, ok := e.(BatchEmbedder); ok {
		return be.EmbedBatch(ctx, inputs, kind)
	}
	return EmbedBatch(ctx, e, inputs, kind)
}

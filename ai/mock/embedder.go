package mock

import (
	"context"
	"hash/fnv"
)

// DefaultDimension matches the output width of the small embedding models
// the real providers default to.
const DefaultDimension = 384

// MockEmbedder is a test double for ai.Embedder. Left alone it produces
// deterministic hash-derived vectors of Dimension width; tests that need
// specific vectors or failures set EmbedTextFunc / EmbedTextsFunc.
type MockEmbedder struct {
	// Dimension is the width of the default deterministic vectors.
	Dimension int

	// EmbedTextFunc, when set, overrides EmbedText.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc, when set, overrides EmbedTexts.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	callCount int
}

// NewMockEmbedder returns a mock embedder producing deterministic vectors
// of the default dimension.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{Dimension: DefaultDimension}
}

func (m *MockEmbedder) dim() int {
	if m.Dimension > 0 {
		return m.Dimension
	}
	return DefaultDimension
}

// EmbedText returns the deterministic vector for text, or whatever
// EmbedTextFunc decides.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.callCount++

	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	return DeterministicVector(text, m.dim()), nil
}

// EmbedTexts embeds each text independently, so the vectors match what
// EmbedText would produce one at a time.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.callCount++

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = DeterministicVector(text, m.dim())
	}
	return embeddings, nil
}

// CallCount returns how many embed calls were made, across both methods.
func (m *MockEmbedder) CallCount() int {
	return m.callCount
}

// Reset clears the call count and any injected functions. Dimension is kept.
func (m *MockEmbedder) Reset() {
	m.callCount = 0
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

// DeterministicVector derives a dim-wide unit vector from text: an FNV hash
// of the text seeds a small LCG that fills the components. The same text
// always yields the same vector, so tests can pre-seed a vector index with
// exactly what the embedder will later produce for a query.
func DeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := range vector {
		seed = seed*1664525 + 1013904223
		vector[i] = float32(seed%1000) / 1000.0
	}

	var sumSquares float32
	for _, v := range vector {
		sumSquares += v * v
	}
	if sumSquares > 0 {
		norm := float32(1.0) / sumSquares
		for i := range vector {
			vector[i] *= norm
		}
	}
	return vector
}

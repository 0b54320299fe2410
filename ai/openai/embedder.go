package openai

import (
	"context"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/poiesic/normqa/ai"
	"github.com/poiesic/normqa/core"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
// Single-text embeddings are cached by content fingerprint so repeated
// queries within the TTL don't hit the API again.
type Embedder struct {
	embedder   embeddings.Embedder
	cache      *gocache.Cache // nil when caching is disabled
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create OpenAI client configured for embeddings
	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.Token),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	// Wrap in langchaingo embedder
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	var cache *gocache.Cache
	if config.EmbedCacheTTL > 0 {
		cache = gocache.New(config.EmbedCacheTTL, 2*config.EmbedCacheTTL)
	}

	return &Embedder{
		embedder:   embedder,
		cache:      cache,
		maxRetries: config.MaxRetries,
		baseDelay:  config.RetryBaseDelay,
		logger:     slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	var key string
	if e.cache != nil {
		key = core.Fingerprint(text)
		if cached, ok := e.cache.Get(key); ok {
			e.logger.Debug("embedding cache hit", "key", key)
			return cached.([]float32), nil
		}
	}

	e.logger.Debug("generating embedding for single text", "length", len(text))

	vectors, err := e.embedDocuments(ctx, []string{text})
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}

	if len(vectors) == 0 {
		e.logger.Warn("embedder returned empty result")
		return []float32{}, nil
	}

	if e.cache != nil {
		e.cache.Set(key, vectors[0], gocache.DefaultExpiration)
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
// Batch results are not cached; this path is used for corpus ingestion where
// each text is seen once.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors, err := e.embedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}

	return vectors, nil
}

func (e *Embedder) embedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := retryRateLimited(ctx, func() error {
		var err error
		vectors, err = e.embedder.EmbedDocuments(ctx, texts)
		return err
	}, e.maxRetries, e.baseDelay)
	return vectors, err
}

package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatMessage is one turn of a chat completion request.
type ChatMessage struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

// LLM provides text and JSON completion.
// Implementations must be thread-safe for concurrent use, retry rate-limited
// calls a bounded number of times with increasing delay, and repair common
// malformed-JSON patterns before failing a JSON completion.
type LLM interface {
	// Generate produces a text completion for the prompt.
	// system may be empty.
	Generate(ctx context.Context, prompt, system string) (string, error)

	// GenerateJSON produces a completion and parses it into out, applying
	// lenient JSON recovery first. Returns ErrMalformedResponse (wrapped)
	// when the completion cannot be parsed even after repair.
	GenerateJSON(ctx context.Context, prompt, system string, out any) error

	// GenerateChat produces a completion over a full message history.
	// system may be empty.
	GenerateChat(ctx context.Context, messages []ChatMessage, system string) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and
// lifecycle management. A provider creates and manages Embedder and LLM
// instances, ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// LLM returns the completion service.
	// The returned LLM is safe for concurrent use.
	LLM() LLM

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}

package loader

import "errors"

var (
	// ErrStoreRequired indicates a nil store was passed to New.
	ErrStoreRequired = errors.New("store is required")

	// ErrVectorIndexRequired indicates a nil vector index was passed to New.
	ErrVectorIndexRequired = errors.New("vector index is required")

	// ErrEmbedderRequired indicates a nil embedder was passed to New.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrEmbedCountMismatch indicates the embedder returned a different
	// number of vectors than texts submitted.
	ErrEmbedCountMismatch = errors.New("embedding count does not match text count")
)

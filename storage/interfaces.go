package storage

import (
	"context"

	"github.com/poiesic/normqa/core"
)

// Store provides access to the five standards collections plus document
// metadata. The query engine only reads; the write side exists for the
// ingestion collaborator and the dump loader.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	// GetSection retrieves a single section by its canonical id.
	// Returns ErrNotFound if the section doesn't exist.
	GetSection(ctx context.Context, id string) (*core.Section, error)

	// GetObject retrieves a single table/figure object by its canonical id.
	// Returns ErrNotFound if the object doesn't exist.
	GetObject(ctx context.Context, id string) (*core.Object, error)

	// GetReferences retrieves the raw reference strings attached to a
	// section or object id. Returns an empty slice when none are recorded.
	GetReferences(ctx context.Context, id string) ([]string, error)

	// ListSections retrieves every section in the store.
	ListSections(ctx context.Context) ([]*core.Section, error)

	// ListObjects retrieves every table/figure object in the store.
	ListObjects(ctx context.Context) ([]*core.Object, error)

	// ListPrecedence retrieves precedence rules whose key starts with
	// keyPrefix. An empty prefix matches every rule.
	ListPrecedence(ctx context.Context, keyPrefix string) ([]core.PrecedenceRule, error)

	// ListSymbols retrieves every symbol/abbreviation definition.
	ListSymbols(ctx context.Context) ([]core.SymbolEntry, error)

	// ListDocuments retrieves metadata for every loaded document.
	ListDocuments(ctx context.Context) ([]*core.Document, error)

	// PutSections stores one or more sections, replacing existing entries.
	PutSections(ctx context.Context, sections ...*core.Section) error

	// PutObjects stores one or more objects, replacing existing entries.
	PutObjects(ctx context.Context, objects ...*core.Object) error

	// PutReferences stores the raw reference strings for a section or
	// object id, replacing any previous list.
	PutReferences(ctx context.Context, id string, refs []string) error

	// PutPrecedence stores one or more precedence rules keyed by Rule.Key.
	PutPrecedence(ctx context.Context, rules ...core.PrecedenceRule) error

	// PutSymbols stores one or more symbol definitions keyed by Symbol.
	PutSymbols(ctx context.Context, entries ...core.SymbolEntry) error

	// PutDocuments stores one or more document metadata records.
	PutDocuments(ctx context.Context, documents ...*core.Document) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// VectorMatch is one ranked hit from a vector similarity search.
type VectorMatch struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// VectorIndex provides nearest-neighbor search over previously indexed
// section vectors. Results are ordered by score, highest first.
type VectorIndex interface {
	// Search returns up to topK matches for the query vector.
	// Fewer matches than requested signals index exhaustion.
	Search(ctx context.Context, vector []float32, topK int) ([]VectorMatch, error)

	// Upsert indexes a vector under the given canonical id, replacing any
	// existing entry.
	Upsert(ctx context.Context, id string, vector []float32) error

	// Close closes the index and releases resources.
	Close() error
}

// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package normqa

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/normqa/ai"
	"github.com/poiesic/normqa/ai/openai"
	"github.com/poiesic/normqa/loader"
	"github.com/poiesic/normqa/query"
	"github.com/poiesic/normqa/storage"
	"github.com/poiesic/normqa/storage/badger"
)

type Database struct {
	backend  *badger.Backend
	store    storage.Store
	index    storage.VectorIndex
	provider ai.AIProvider
	pool     *ants.Pool
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	poolSize int
	inMemory bool
}

// WithAIConfig sets the AI service configuration.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithPoolSize sets the size of the shared worker pool used for LLM calls
// and embedding batches.
func WithPoolSize(n int) DatabaseOption {
	return func(o *databaseOptions) {
		if n > 0 {
			o.poolSize = n
		}
	}
}

// WithInMemory opens the backend without on-disk persistence.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
		poolSize: query.DefaultPoolSize,
	}
	for _, opt := range opts {
		opt(options)
	}
	// Open backend
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	// Create document store
	store, err := badger.NewStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create vector index
	index, err := badger.NewVectorIndex(backend)
	if err != nil {
		store.Close()
		backend.Close()
		return nil, err
	}

	// Create AI provider with configured settings
	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		index.Close()
		store.Close()
		backend.Close()
		return nil, err
	}

	// Shared worker pool for LLM calls and embedding batches
	pool, err := ants.NewPool(options.poolSize)
	if err != nil {
		provider.Close()
		index.Close()
		store.Close()
		backend.Close()
		return nil, err
	}

	return &Database{
		backend:  backend,
		store:    store,
		index:    index,
		provider: provider,
		pool:     pool,
		logger:   slog.Default(),
	}, nil
}

func (db *Database) Close() error {
	db.pool.Release()

	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	// Close storage layers
	if err := db.index.Close(); err != nil {
		db.logger.Error("error closing vector index", "err", err)
		return err
	}
	if err := db.store.Close(); err != nil {
		db.logger.Error("error closing document store", "err", err)
		return err
	}

	// Close backend
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) Store() storage.Store {
	return db.store
}

func (db *Database) VectorIndex() storage.VectorIndex {
	return db.index
}

func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

func (db *Database) NewLoader(opts ...loader.Option) (*loader.Loader, error) {
	opts = append([]loader.Option{loader.WithPool(db.pool)}, opts...)
	return loader.New(db.store, db.index, db.provider.Embedder(), opts...)
}

func (db *Database) NewEngine(ctx context.Context, opts ...query.Option) (*query.Engine, error) {
	opts = append([]query.Option{query.WithPool(db.pool)}, opts...)
	return query.NewEngine(ctx, db.store, db.index, db.provider, opts...)
}

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


package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/normqa/ai"
	"github.com/poiesic/normqa/core"
	"github.com/poiesic/normqa/storage"
)

// Collection file names inside a datastore dump directory.
const (
	documentsFile  = "documents.json"
	sectionsFile   = "sections.json"
	objectsFile    = "objects.json"
	referencesFile = "references.json"
	precedenceFile = "precedence.json"
	symbolsFile    = "symbols.json"
)

// DefaultEmbedBatchSize is how many section texts go into one embedding call.
const DefaultEmbedBatchSize = 16

// Loader imports a pre-extracted datastore dump (the output of the ingestion
// collaborator) into a Store and embeds section text into a VectorIndex.
type Loader struct {
	store     storage.Store
	index     storage.VectorIndex
	embedder  ai.Embedder
	pool      *ants.Pool
	ownPool   bool
	batchSize int
	logger    *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) error {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
		return nil
	}
}

// WithPool injects a shared worker pool for embedding batches. The caller
// keeps ownership. When absent, the loader creates its own small pool.
func WithPool(pool *ants.Pool) Option {
	return func(l *Loader) error {
		l.pool = pool
		l.ownPool = false
		return nil
	}
}

// WithEmbedBatchSize sets how many section texts go into one embedding call.
func WithEmbedBatchSize(n int) Option {
	return func(l *Loader) error {
		if n > 0 {
			l.batchSize = n
		}
		return nil
	}
}

// New creates a loader over the given store, vector index and embedder.
func New(store storage.Store, index storage.VectorIndex, embedder ai.Embedder, opts ...Option) (*Loader, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if index == nil {
		return nil, ErrVectorIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	l := &Loader{
		store:     store,
		index:     index,
		embedder:  embedder,
		batchSize: DefaultEmbedBatchSize,
		logger:    slog.Default().With("component", "loader"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}

	if l.pool == nil {
		pool, err := ants.NewPool(4)
		if err != nil {
			return nil, err
		}
		l.pool = pool
		l.ownPool = true
	}

	return l, nil
}

// Release releases the loader's own worker pool. Injected pools are left to
// their owner.
func (l *Loader) Release() {
	if l.ownPool {
		l.pool.Release()
	}
}

// Stats counts what one LoadDir call imported.
type Stats struct {
	Documents  int
	Sections   int
	Objects    int
	References int
	Precedence int
	Symbols    int
}

// dump file record shapes, matching the ingestion collaborator's output

type documentRecord struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Pages     int    `json:"pages"`
	Status    string `json:"status"`
	KeyPrefix string `json:"key_prefix"`
}

type sectionRecord struct {
	Code      string `json:"code"`
	Title     string `json:"title"`
	Page      int    `json:"page"`
	Content   string `json:"content"`
	DocPrefix string `json:"doc_prefix"`
}

type objectRecord struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Page        int    `json:"page"`
	DocID       string `json:"doc_id"`
}

type precedenceRecord struct {
	Supersedes   []string `json:"supersedes"`
	SupersededBy []string `json:"superseded_by"`
	Note         string   `json:"note"`
}

type symbolRecord struct {
	Definition string `json:"definition"`
	DocID      string `json:"doc_id"`
}

// LoadDir imports every collection file found in dir into the store and
// embeds the imported sections into the vector index. Missing collection
// files are skipped; a present-but-unreadable file fails the load.
func (l *Loader) LoadDir(ctx context.Context, dir string) (*Stats, error) {
	stats := &Stats{}

	var documents map[string]documentRecord
	if ok, err := readCollection(dir, documentsFile, &documents); err != nil {
		return nil, err
	} else if ok {
		for _, id := range sortedRecordKeys(documents) {
			rec := documents[id]
			err := l.store.PutDocuments(ctx, &core.Document{
				ID:        id,
				Code:      rec.Code,
				Name:      rec.Name,
				Pages:     rec.Pages,
				Status:    rec.Status,
				KeyPrefix: rec.KeyPrefix,
			})
			if err != nil {
				return nil, fmt.Errorf("document %s: %w", id, err)
			}
			stats.Documents++
		}
	}

	var sections map[string]sectionRecord
	var imported []*core.Section
	if ok, err := readCollection(dir, sectionsFile, &sections); err != nil {
		return nil, err
	} else if ok {
		for _, id := range sortedRecordKeys(sections) {
			rec := sections[id]
			section := &core.Section{
				ID:        id,
				Code:      rec.Code,
				Title:     rec.Title,
				Page:      rec.Page,
				Content:   rec.Content,
				DocPrefix: rec.DocPrefix,
			}
			if err := l.store.PutSections(ctx, section); err != nil {
				return nil, fmt.Errorf("section %s: %w", id, err)
			}
			imported = append(imported, section)
			stats.Sections++
		}
	}

	var objects map[string]objectRecord
	if ok, err := readCollection(dir, objectsFile, &objects); err != nil {
		return nil, err
	} else if ok {
		for _, id := range sortedRecordKeys(objects) {
			rec := objects[id]
			err := l.store.PutObjects(ctx, &core.Object{
				ID:          id,
				Type:        rec.Type,
				Code:        rec.Code,
				Title:       rec.Title,
				Description: rec.Description,
				Page:        rec.Page,
				DocID:       rec.DocID,
			})
			if err != nil {
				return nil, fmt.Errorf("object %s: %w", id, err)
			}
			stats.Objects++
		}
	}

	var references map[string][]string
	if ok, err := readCollection(dir, referencesFile, &references); err != nil {
		return nil, err
	} else if ok {
		for _, id := range sortedRecordKeys(references) {
			if err := l.store.PutReferences(ctx, id, references[id]); err != nil {
				return nil, fmt.Errorf("references %s: %w", id, err)
			}
			stats.References++
		}
	}

	var precedence map[string]precedenceRecord
	if ok, err := readCollection(dir, precedenceFile, &precedence); err != nil {
		return nil, err
	} else if ok {
		for _, key := range sortedRecordKeys(precedence) {
			rec := precedence[key]
			err := l.store.PutPrecedence(ctx, core.PrecedenceRule{
				Key:          key,
				Supersedes:   rec.Supersedes,
				SupersededBy: rec.SupersededBy,
				Note:         rec.Note,
			})
			if err != nil {
				return nil, fmt.Errorf("precedence %s: %w", key, err)
			}
			stats.Precedence++
		}
	}

	var symbols map[string]symbolRecord
	if ok, err := readCollection(dir, symbolsFile, &symbols); err != nil {
		return nil, err
	} else if ok {
		for _, symbol := range sortedRecordKeys(symbols) {
			rec := symbols[symbol]
			err := l.store.PutSymbols(ctx, core.SymbolEntry{
				Symbol:     symbol,
				Definition: rec.Definition,
				DocID:      rec.DocID,
			})
			if err != nil {
				return nil, fmt.Errorf("symbol %s: %w", symbol, err)
			}
			stats.Symbols++
		}
	}

	if len(imported) > 0 {
		if err := l.embedSections(ctx, imported); err != nil {
			return nil, err
		}
	}

	l.logger.Info("datastore dump loaded",
		"dir", dir,
		"documents", stats.Documents,
		"sections", stats.Sections,
		"objects", stats.Objects)
	return stats, nil
}

// embedSections embeds section text in batches on the worker pool and
// upserts the vectors. The first batch error fails the whole load.
func (l *Loader) embedSections(ctx context.Context, sections []*core.Section) error {
	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error

	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for start := 0; start < len(sections); start += l.batchSize {
		end := start + l.batchSize
		if end > len(sections) {
			end = len(sections)
		}
		batch := sections[start:end]

		wg.Add(1)
		task := func() {
			defer wg.Done()

			texts := make([]string, len(batch))
			for i, s := range batch {
				texts[i] = s.Title + "\n" + s.Content
			}
			vectors, err := l.embedder.EmbedTexts(ctx, texts)
			if err != nil {
				setErr(err)
				return
			}
			if len(vectors) != len(batch) {
				setErr(ErrEmbedCountMismatch)
				return
			}
			for i, s := range batch {
				if err := l.index.Upsert(ctx, s.ID, vectors[i]); err != nil {
					setErr(fmt.Errorf("vector %s: %w", s.ID, err))
					return
				}
			}
		}
		if err := l.pool.Submit(task); err != nil {
			l.logger.Warn("pool submit failed, embedding batch inline", "err", err)
			task()
		}
	}
	wg.Wait()

	return firstErr
}

// readCollection decodes one dump file into out. Returns false without error
// when the file does not exist.
func readCollection(dir, name string, out any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%s: %w", name, err)
	}
	return true, nil
}

func sortedRecordKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

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


package query

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/normqa/ai"
	"github.com/poiesic/normqa/core"
	"github.com/poiesic/normqa/storage"
)

// Pipeline defaults. All are adjustable through Options.
const (
	DefaultTopK               = 10
	DefaultExpansionStep      = 10
	DefaultMaxExpansionRounds = 5
	DefaultBatchSize          = 4
	DefaultReferenceDepth     = 3
	DefaultHistoryWindow      = 10
	DefaultTruncateLength     = 800
	DefaultAnswerMaxLength    = 8000
	DefaultKeywordHitLimit    = 20
	DefaultPoolSize           = 8

	titleWeight = 3
)

// Engine is the multi-stage query pipeline: classify, gather, filter,
// expand, follow references, look up precedence, detect conflicts,
// synthesize. It only reads from the store; the reference resolver is built
// once at construction and never invalidated.
type Engine struct {
	store    storage.Store
	vectors  storage.VectorIndex
	embedder ai.Embedder
	llm      ai.LLM
	resolver *Resolver
	pool     *ants.Pool
	ownPool  bool
	logger   *slog.Logger

	topK               int
	expansionStep      int
	maxExpansionRounds int
	batchSize          int
	maxRefDepth        int
	historyWindow      int
	truncateLen        int
	answerMaxLen       int
	keywordLimit       int
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithPool injects a shared worker pool used as the global LLM concurrency
// limiter. The caller keeps ownership; the engine will not release it.
// When absent, the engine creates its own pool of DefaultPoolSize.
func WithPool(pool *ants.Pool) Option {
	return func(e *Engine) error {
		e.pool = pool
		e.ownPool = false
		return nil
	}
}

// WithTopK sets the initial vector-search window size.
func WithTopK(k int) Option {
	return func(e *Engine) error {
		if k > 0 {
			e.topK = k
		}
		return nil
	}
}

// WithMaxExpansionRounds caps how many times the vector window may widen.
func WithMaxExpansionRounds(n int) Option {
	return func(e *Engine) error {
		if n >= 0 {
			e.maxExpansionRounds = n
		}
		return nil
	}
}

// WithReferenceDepth caps how many reference hops are followed.
func WithReferenceDepth(n int) Option {
	return func(e *Engine) error {
		if n >= 0 {
			e.maxRefDepth = n
		}
		return nil
	}
}

// WithBatchSize sets the relevance-filter batch size.
func WithBatchSize(n int) Option {
	return func(e *Engine) error {
		if n > 0 {
			e.batchSize = n
		}
		return nil
	}
}

// WithHistoryWindow sets how many trailing messages the classifier and chat
// reply see.
func WithHistoryWindow(n int) Option {
	return func(e *Engine) error {
		if n > 0 {
			e.historyWindow = n
		}
		return nil
	}
}

// NewEngine creates a query engine over the given store, vector index and
// AI provider. The reference resolver index is built here, from the store's
// current contents.
func NewEngine(ctx context.Context, store storage.Store, vectors storage.VectorIndex, provider ai.AIProvider, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if vectors == nil {
		return nil, ErrVectorIndexRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	e := &Engine{
		store:    store,
		vectors:  vectors,
		embedder: provider.Embedder(),
		llm:      provider.LLM(),
		logger:   slog.Default().With("component", "query-engine"),

		topK:               DefaultTopK,
		expansionStep:      DefaultExpansionStep,
		maxExpansionRounds: DefaultMaxExpansionRounds,
		batchSize:          DefaultBatchSize,
		maxRefDepth:        DefaultReferenceDepth,
		historyWindow:      DefaultHistoryWindow,
		truncateLen:        DefaultTruncateLength,
		answerMaxLen:       DefaultAnswerMaxLength,
		keywordLimit:       DefaultKeywordHitLimit,
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	if e.pool == nil {
		pool, err := ants.NewPool(DefaultPoolSize)
		if err != nil {
			return nil, err
		}
		e.pool = pool
		e.ownPool = true
	}

	resolver, err := NewResolver(ctx, store)
	if err != nil {
		if e.ownPool {
			e.pool.Release()
		}
		return nil, err
	}
	e.resolver = resolver

	return e, nil
}

// Close releases the engine's own worker pool. Injected pools are left to
// their owner.
func (e *Engine) Close() error {
	if e.ownPool {
		e.pool.Release()
	}
	return nil
}

// Resolver exposes the engine's reference resolver, mainly for diagnostics.
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

// Query answers a natural-language question against the loaded corpus.
// messages is the conversation so far, latest last; the query text should
// match the latest user message. The returned result is always well-formed;
// only embedding, vector-index and retry-exhaustion failures produce an
// error.
func (e *Engine) Query(ctx context.Context, queryText string, messages []core.Message) (*core.QueryResult, error) {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return nil, ErrEmptyQuery
	}

	start := time.Now()
	result := &core.QueryResult{
		QueryID: core.QueryID(queryText, start),
		Timings: make(map[string]int64),
	}
	step := 0
	addStep := func(description, action string) {
		step++
		result.Steps = append(result.Steps, core.StepLog{
			Step:        step,
			Description: description,
			Action:      action,
		})
	}
	timeStage := func(name string, since time.Time) {
		result.Timings[name] = time.Since(since).Milliseconds()
	}

	// Classify
	stageStart := time.Now()
	intent := e.classify(ctx, messages)
	timeStage("classify", stageStart)
	addStep("classified conversation intent", intent)

	if intent == intentChat {
		reply, err := e.chatReply(ctx, messages)
		if err != nil {
			return nil, err
		}
		result.Answer = reply
		result.References = []core.Reference{}
		timeStage("total", start)
		return result, nil
	}

	// Embed
	stageStart = time.Now()
	vector, err := e.embedder.EmbedText(ctx, queryText)
	if err != nil {
		e.logger.Error("query embedding failed", "err", err)
		return nil, err
	}
	timeStage("embed", stageStart)

	// Gather
	stageStart = time.Now()
	cands := make(map[string]core.Candidate)
	hits, order, err := e.gather(ctx, queryText, vector, cands)
	if err != nil {
		return nil, err
	}
	timeStage("gather", stageStart)
	addStep("gathered candidates from vector and keyword search", formatCount(len(order)))

	if len(cands) == 0 {
		result.Answer = noResultsAnswer(queryText)
		result.References = []core.Reference{}
		timeStage("total", start)
		return result, nil
	}

	// Filter
	stageStart = time.Now()
	extracts := e.filterRelevance(ctx, queryText, cands)
	timeStage("filter", stageStart)
	addStep("filtered candidates for relevance", formatCount(len(extracts)))

	// Expand
	stageStart = time.Now()
	rounds, err := e.expand(ctx, queryText, vector, hits, cands, extracts)
	if err != nil {
		return nil, err
	}
	timeStage("expand", stageStart)
	if rounds > 0 {
		addStep("widened vector search window", formatCount(rounds))
	}

	// Follow references
	stageStart = time.Now()
	missing, unfollowed := e.followReferences(ctx, queryText, cands, extracts)
	timeStage("follow_refs", stageStart)
	addStep("followed cross-references", formatCount(len(extracts)))
	result.MissingDocuments = missing

	// Precedence
	stageStart = time.Now()
	precedence := e.lookupPrecedence(ctx, cands, extracts)
	timeStage("precedence", stageStart)
	result.Precedence = precedence

	// Conflicts
	stageStart = time.Now()
	conflicts := e.detectConflicts(ctx, queryText, extracts, cands)
	timeStage("conflicts", stageStart)
	result.Conflicts = conflicts
	if len(conflicts) > 0 {
		addStep("detected conflicting provisions", formatCount(len(conflicts)))
	}

	// Synthesize
	stageStart = time.Now()
	docNames := e.documentNames(ctx)
	result.Answer = e.synthesize(ctx, queryText, extracts, cands, docNames, precedence, conflicts, unfollowed, missing)
	timeStage("synthesize", stageStart)
	addStep("synthesized cited answer", formatCount(len(result.Answer)))

	result.References = buildReferences(queryText, extracts, cands)
	timeStage("total", start)
	return result, nil
}

// documentNames maps key prefixes to display names for citations.
func (e *Engine) documentNames(ctx context.Context) map[string]string {
	docs, err := e.store.ListDocuments(ctx)
	if err != nil {
		e.logger.Warn("document listing failed", "err", err)
		return map[string]string{}
	}
	names := make(map[string]string, len(docs))
	for _, d := range docs {
		if d.Name != "" {
			names[d.KeyPrefix] = d.Name
		}
	}
	return names
}

// buildReferences materializes the API-facing reference list from the
// relevant extracts, with the query terms found verbatim in each extract as
// highlight hints.
func buildReferences(queryText string, extracts map[string]string, cands map[string]core.Candidate) []core.Reference {
	refs := make([]core.Reference, 0, len(extracts))
	for _, id := range sortedKeys(extracts) {
		c := cands[id]
		refs = append(refs, core.Reference{
			ID:            id,
			SectionCode:   c.Code,
			Title:         c.Title,
			Page:          c.Page,
			Extract:       extracts[id],
			DocID:         c.DocPrefix,
			HighlightText: highlightTerms(extracts[id], queryText),
		})
	}
	return refs
}

// callLLM runs an LLM-bound call through the shared concurrency limiter.
func (e *Engine) callLLM(fn func() error) error {
	done := make(chan error, 1)
	if err := e.pool.Submit(func() { done <- fn() }); err != nil {
		// Pool unavailable: run inline rather than failing the stage.
		return fn()
	}
	return <-done
}

func formatCount(n int) string {
	return strconv.Itoa(n)
}

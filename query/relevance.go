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
	"sort"
	"strings"
	"sync"

	"github.com/poiesic/normqa/core"
)

// filterRelevance asks the LLM, batch by batch, which candidates actually
// bear on the query, and what part of their text does. Batches run
// concurrently on the shared pool. The result is always a subset of the
// input candidates.
//
// A failed batch degrades to including all of its candidates with truncated
// content: recall over precision. This is deliberate but tunable policy.
func (e *Engine) filterRelevance(ctx context.Context, queryText string, cands map[string]core.Candidate) map[string]string {
	extracts := make(map[string]string)
	if len(cands) == 0 {
		return extracts
	}

	ids := make([]string, 0, len(cands))
	for id := range cands {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for start := 0; start < len(ids); start += e.batchSize {
		end := start + e.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := make([]core.Candidate, 0, end-start)
		for _, id := range ids[start:end] {
			batch = append(batch, cands[id])
		}

		wg.Add(1)
		task := func() {
			defer wg.Done()
			result := e.filterBatch(ctx, queryText, batch)
			mu.Lock()
			for id, extract := range result {
				extracts[id] = extract
			}
			mu.Unlock()
		}
		if err := e.pool.Submit(task); err != nil {
			// Pool unavailable (released or overloaded): run inline.
			e.logger.Warn("pool submit failed, running batch inline", "err", err)
			task()
		}
	}
	wg.Wait()

	e.logger.Debug("relevance filter done", "candidates", len(cands), "relevant", len(extracts))
	return extracts
}

// filterBatch issues one extraction call for a batch of candidates and
// returns the non-null extracts, keyed by candidate id.
func (e *Engine) filterBatch(ctx context.Context, queryText string, batch []core.Candidate) map[string]string {
	var out map[string]*string
	err := e.llm.GenerateJSON(ctx, buildRelevancePrompt(queryText, batch), relevanceSystem, &out)
	if err != nil {
		e.logger.Warn("relevance batch failed, including all candidates truncated",
			"batch", len(batch), "err", err)
		fallback := make(map[string]string, len(batch))
		for _, c := range batch {
			fallback[c.ID] = truncate(c.Content, e.truncateLen)
		}
		return fallback
	}

	result := make(map[string]string)
	for _, c := range batch {
		extract, ok := out[c.ID]
		if !ok || extract == nil {
			continue
		}
		text := strings.TrimSpace(*extract)
		if text == "" || strings.EqualFold(text, "null") {
			continue
		}
		result[c.ID] = text
	}
	return result
}

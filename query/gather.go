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
	"errors"
	"sort"
	"strings"

	"github.com/poiesic/normqa/core"
	"github.com/poiesic/normqa/storage"
)

// gather merges vector-search and keyword-search hits into a deduplicated,
// first-seen-order candidate map. The returned hit list is the raw ranked
// vector result, which the expansion controller inspects afterward.
func (e *Engine) gather(ctx context.Context, queryText string, vector []float32, cands map[string]core.Candidate) ([]storage.VectorMatch, []string, error) {
	hits, err := e.vectors.Search(ctx, vector, e.topK)
	if err != nil {
		e.logger.Error("vector search failed", "err", err)
		return nil, nil, err
	}

	keywords := e.extractKeywords(ctx, queryText)
	keywords = e.expandSymbols(ctx, keywords)
	keywordIDs := e.keywordSearch(ctx, keywords)

	var order []string
	add := func(id string) {
		if _, seen := cands[id]; seen {
			return
		}
		c, ok := e.lookupCandidate(ctx, id)
		if !ok {
			return
		}
		cands[id] = c
		order = append(order, id)
	}
	for _, hit := range hits {
		add(hit.ID)
	}
	for _, id := range keywordIDs {
		add(id)
	}

	e.logger.Debug("gathered candidates",
		"vector", len(hits),
		"keyword", len(keywordIDs),
		"total", len(order),
		"keywords", keywords)
	return hits, order, nil
}

// extractKeywords derives 1-5 keyword terms from the query via the LLM,
// falling back to stop-word tokenization on failure.
func (e *Engine) extractKeywords(ctx context.Context, queryText string) []string {
	var terms []string
	err := e.callLLM(func() error {
		return e.llm.GenerateJSON(ctx, buildKeywordPrompt(queryText), keywordSystem, &terms)
	})
	if err != nil || len(terms) == 0 {
		if err != nil {
			e.logger.Warn("keyword extraction failed, using tokenizer fallback", "err", err)
		}
		return fallbackKeywords(queryText, 5)
	}

	cleaned := make([]string, 0, 5)
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		cleaned = append(cleaned, t)
		if len(cleaned) >= 5 {
			break
		}
	}
	if len(cleaned) == 0 {
		return fallbackKeywords(queryText, 5)
	}
	return cleaned
}

// expandSymbols widens the keyword set using the symbol table: a keyword
// that IS a symbol pulls terms from its definition, and a keyword appearing
// INSIDE a definition pulls in that symbol.
func (e *Engine) expandSymbols(ctx context.Context, keywords []string) []string {
	symbols, err := e.store.ListSymbols(ctx)
	if err != nil {
		e.logger.Warn("symbol listing failed, skipping expansion", "err", err)
		return keywords
	}
	if len(symbols) == 0 {
		return keywords
	}

	seen := make(map[string]bool, len(keywords))
	expanded := make([]string, 0, len(keywords))
	add := func(term string) {
		term = strings.TrimSpace(term)
		key := strings.ToLower(term)
		if term == "" || seen[key] {
			return
		}
		seen[key] = true
		expanded = append(expanded, term)
	}
	for _, k := range keywords {
		add(k)
	}

	for _, k := range keywords {
		lower := strings.ToLower(k)
		for _, s := range symbols {
			if strings.EqualFold(s.Symbol, k) {
				for _, term := range tokenizeAndFilter(s.Definition) {
					add(term)
				}
			} else if strings.Contains(strings.ToLower(s.Definition), lower) {
				add(s.Symbol)
			}
		}
	}
	return expanded
}

// keywordSearch scores every section and object by keyword occurrence count,
// weighting title matches over body matches, and returns the top hit ids.
func (e *Engine) keywordSearch(ctx context.Context, keywords []string) []string {
	if len(keywords) == 0 {
		return nil
	}

	type scored struct {
		id    string
		score int
	}
	var results []scored

	sections, err := e.store.ListSections(ctx)
	if err != nil {
		e.logger.Warn("section listing failed, skipping keyword search", "err", err)
		return nil
	}
	for _, s := range sections {
		score := 0
		for _, k := range keywords {
			score += titleWeight*countOccurrences(s.Title, k) + countOccurrences(s.Content, k)
		}
		if score > 0 {
			results = append(results, scored{s.ID, score})
		}
	}

	objects, err := e.store.ListObjects(ctx)
	if err != nil {
		e.logger.Warn("object listing failed", "err", err)
	}
	for _, o := range objects {
		score := 0
		for _, k := range keywords {
			score += titleWeight*countOccurrences(o.Title, k) + countOccurrences(o.Description, k)
		}
		if score > 0 {
			results = append(results, scored{o.ID, score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].id < results[j].id
	})
	if len(results) > e.keywordLimit {
		results = results[:e.keywordLimit]
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.id
	}
	return ids
}

// lookupCandidate materializes a candidate record for an id, preferring the
// section collection and falling back to objects.
func (e *Engine) lookupCandidate(ctx context.Context, id string) (core.Candidate, bool) {
	section, err := e.store.GetSection(ctx, id)
	if err == nil {
		return core.Candidate{
			ID:        section.ID,
			Code:      section.Code,
			Title:     section.Title,
			Page:      section.Page,
			Content:   section.Content,
			DocPrefix: section.DocPrefix,
		}, true
	}
	if !errors.Is(err, storage.ErrNotFound) {
		e.logger.Warn("section lookup failed", "id", id, "err", err)
		return core.Candidate{}, false
	}

	object, err := e.store.GetObject(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			e.logger.Warn("object lookup failed", "id", id, "err", err)
		}
		return core.Candidate{}, false
	}
	content := object.Title
	if object.Description != "" {
		content += "\n" + object.Description
	}
	return core.Candidate{
		ID:        object.ID,
		Code:      object.Code,
		Title:     object.Title,
		Page:      object.Page,
		Content:   content,
		DocPrefix: docPrefixOf(object.DocID, object.ID),
		IsObject:  true,
	}, true
}

// docPrefixOf picks the candidate's document prefix: the object's DocID when
// set, otherwise everything before the trailing code segment of the id.
func docPrefixOf(docID, id string) string {
	if docID != "" {
		return docID
	}
	if i := strings.LastIndex(id, "_"); i > 0 {
		return id[:i]
	}
	return id
}

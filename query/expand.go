package query

import (
	"context"

	"github.com/poiesic/normqa/core"
	"github.com/poiesic/normqa/storage"
)

// expand widens the vector-search window while the tail of the ranked list
// still looks useful: if either of the two lowest-ranked hits survived the
// relevance filter, the initial top-K was probably too narrow. Each round
// re-runs the search with a larger window and filters only the newly
// revealed ids. Expansion stops when the tail goes cold, when the index
// returns fewer hits than requested (exhaustion), or at the round cap.
func (e *Engine) expand(
	ctx context.Context,
	queryText string,
	vector []float32,
	hits []storage.VectorMatch,
	cands map[string]core.Candidate,
	extracts map[string]string,
) (int, error) {
	currentK := e.topK
	rounds := 0

	for rounds < e.maxExpansionRounds {
		if len(hits) < currentK {
			// Index exhausted, nothing further down the list.
			break
		}
		if !tailRelevant(hits, extracts) {
			break
		}

		currentK += e.expansionStep
		rounds++
		e.logger.Debug("expanding vector window", "round", rounds, "topK", currentK)

		wider, err := e.vectors.Search(ctx, vector, currentK)
		if err != nil {
			e.logger.Error("expansion search failed", "round", rounds, "err", err)
			return rounds, err
		}

		fresh := make(map[string]core.Candidate)
		for _, hit := range wider {
			if _, seen := cands[hit.ID]; seen {
				continue
			}
			c, ok := e.lookupCandidate(ctx, hit.ID)
			if !ok {
				continue
			}
			cands[hit.ID] = c
			fresh[hit.ID] = c
		}

		if len(fresh) > 0 {
			for id, extract := range e.filterRelevance(ctx, queryText, fresh) {
				extracts[id] = extract
			}
		}
		hits = wider
	}

	return rounds, nil
}

// tailRelevant reports whether either of the two lowest-ranked hits made it
// into the relevant set.
func tailRelevant(hits []storage.VectorMatch, extracts map[string]string) bool {
	n := len(hits)
	if n == 0 {
		return false
	}
	tail := hits[n-1:]
	if n >= 2 {
		tail = hits[n-2:]
	}
	for _, hit := range tail {
		if _, ok := extracts[hit.ID]; ok {
			return true
		}
	}
	return false
}

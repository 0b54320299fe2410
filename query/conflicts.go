package query

import (
	"context"

	"github.com/poiesic/normqa/core"
)

// detectConflicts makes one LLM call looking for genuine contradictions
// among the relevant extracts. Requires at least two extracts; returns an
// empty list on any provider failure rather than aborting the pipeline.
func (e *Engine) detectConflicts(ctx context.Context, queryText string, extracts map[string]string, cands map[string]core.Candidate) []core.Conflict {
	if len(extracts) < 2 {
		return nil
	}

	var out struct {
		Conflicts []core.Conflict `json:"conflicts"`
	}
	err := e.callLLM(func() error {
		return e.llm.GenerateJSON(ctx, buildConflictPrompt(queryText, extracts, cands), conflictSystem, &out)
	})
	if err != nil {
		e.logger.Warn("conflict detection failed, reporting none", "err", err)
		return nil
	}

	conflicts := make([]core.Conflict, 0, len(out.Conflicts))
	for _, c := range out.Conflicts {
		if len(c.Sections) >= 2 && c.Description != "" {
			conflicts = append(conflicts, c)
		}
	}
	if len(conflicts) == 0 {
		return nil
	}
	return conflicts
}

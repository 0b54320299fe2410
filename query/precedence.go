package query

import (
	"context"
	"sort"

	"github.com/poiesic/normqa/core"
)

// lookupPrecedence collects the supersession rules of every document
// contributing to the relevant set. Pure store lookup, no LLM call.
func (e *Engine) lookupPrecedence(ctx context.Context, cands map[string]core.Candidate, extracts map[string]string) []core.PrecedenceRule {
	prefixes := make(map[string]bool)
	for id := range extracts {
		if c, ok := cands[id]; ok && c.DocPrefix != "" {
			prefixes[c.DocPrefix] = true
		}
	}

	byKey := make(map[string]core.PrecedenceRule)
	for _, prefix := range setToSorted(prefixes) {
		rules, err := e.store.ListPrecedence(ctx, prefix)
		if err != nil {
			e.logger.Warn("precedence lookup failed", "prefix", prefix, "err", err)
			continue
		}
		for _, rule := range rules {
			if _, seen := byKey[rule.Key]; !seen {
				byKey[rule.Key] = rule
			}
		}
	}
	if len(byKey) == 0 {
		return nil
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rules := make([]core.PrecedenceRule, 0, len(keys))
	for _, k := range keys {
		rules = append(rules, byKey[k])
	}
	return rules
}

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

	"github.com/poiesic/normqa/core"
)

// followReferences pulls in material the relevant sections point to,
// hop by hop up to the depth cap. The visited sets only ever grow, so the
// walk terminates even over cyclic reference graphs. Raw references that
// resolve to nothing but look like a document code are reported as missing
// documents; references left unvisited when depth runs out are reported as
// unfollowed.
func (e *Engine) followReferences(
	ctx context.Context,
	queryText string,
	cands map[string]core.Candidate,
	extracts map[string]string,
) (missing []string, unfollowed []string) {
	visited := make(map[string]bool, len(extracts))
	for id := range extracts {
		visited[id] = true
	}
	visitedRaw := make(map[string]bool)
	missingSet := make(map[string]bool)

	frontier := sortedKeys(extracts)
	for depth := 1; depth <= e.maxRefDepth; depth++ {
		var newIDs []string
		for _, id := range frontier {
			refs, err := e.store.GetReferences(ctx, id)
			if err != nil {
				e.logger.Warn("reference lookup failed", "id", id, "err", err)
				continue
			}
			for _, raw := range refs {
				if visitedRaw[raw] {
					continue
				}
				visitedRaw[raw] = true

				resolved, ok := e.resolver.Resolve(raw)
				if !ok {
					if code, isDoc := e.resolver.MissingDocument(raw); isDoc {
						missingSet[code] = true
					}
					continue
				}
				if visited[resolved] {
					continue
				}
				visited[resolved] = true
				newIDs = append(newIDs, resolved)
			}
		}

		if len(newIDs) == 0 {
			break
		}
		sort.Strings(newIDs)

		hop := make(map[string]core.Candidate, len(newIDs))
		for _, id := range newIDs {
			if _, seen := cands[id]; seen {
				hop[id] = cands[id]
				continue
			}
			c, ok := e.lookupCandidate(ctx, id)
			if !ok {
				continue
			}
			cands[id] = c
			hop[id] = c
		}

		relevant := e.filterRelevance(ctx, queryText, hop)
		for id, extract := range relevant {
			extracts[id] = extract
		}

		e.logger.Debug("reference hop complete",
			"depth", depth,
			"resolved", len(newIDs),
			"relevant", len(relevant))

		// Only relevant material feeds the next hop.
		frontier = sortedKeys(relevant)
		if len(frontier) == 0 {
			break
		}
	}

	// References attached to relevant extracts that were never visited.
	unfollowedSet := make(map[string]bool)
	for id := range extracts {
		refs, err := e.store.GetReferences(ctx, id)
		if err != nil {
			continue
		}
		for _, raw := range refs {
			if !visitedRaw[raw] {
				unfollowedSet[raw] = true
			}
		}
	}

	missing = setToSorted(missingSet)
	unfollowed = setToSorted(unfollowedSet)
	return missing, unfollowed
}

func setToSorted(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

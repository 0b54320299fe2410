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
	"fmt"
	"strings"

	"github.com/poiesic/normqa/core"
)

const truncationMarker = " …[truncated]"

// synthesize composes the final cited answer from everything the pipeline
// gathered. On generation failure it falls back to the raw concatenated
// extracts so the caller never receives an empty answer.
func (e *Engine) synthesize(
	ctx context.Context,
	queryText string,
	extracts map[string]string,
	cands map[string]core.Candidate,
	docNames map[string]string,
	precedence []core.PrecedenceRule,
	conflicts []core.Conflict,
	unfollowed []string,
	missing []string,
) string {
	prompt := buildSynthesisPrompt(queryText, extracts, cands, docNames, precedence, conflicts, unfollowed, missing)

	var answer string
	err := e.callLLM(func() error {
		var genErr error
		answer, genErr = e.llm.Generate(ctx, prompt, synthesisSystem)
		return genErr
	})
	if err != nil || strings.TrimSpace(answer) == "" {
		if err != nil {
			e.logger.Error("answer synthesis failed, returning raw extracts", "err", err)
		}
		answer = rawExtractAnswer(extracts, cands)
	}

	return e.capAnswer(answer)
}

// rawExtractAnswer is the degraded answer: the extracts themselves, labeled
// with their section codes.
func rawExtractAnswer(extracts map[string]string, cands map[string]core.Candidate) string {
	var b strings.Builder
	b.WriteString("The relevant material found was:\n")
	for _, id := range sortedKeys(extracts) {
		code := id
		if c, ok := cands[id]; ok && c.Code != "" {
			code = c.Code
		}
		fmt.Fprintf(&b, "\n[%s] %s\n", code, extracts[id])
	}
	return b.String()
}

// capAnswer enforces the hard answer length cap, appending a truncation
// marker when material was cut. The cut lands on a rune boundary.
func (e *Engine) capAnswer(answer string) string {
	if len(answer) <= e.answerMaxLen {
		return answer
	}
	return truncate(answer, e.answerMaxLen) + truncationMarker
}

// noResultsAnswer is returned when no retrieval signal produced a single
// candidate; no further LLM step runs in that case.
func noResultsAnswer(queryText string) string {
	return fmt.Sprintf("No relevant sections were found in the loaded documents for %q. "+
		"The corpus may not cover this topic, or the question may need rephrasing.", queryText)
}

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
	"fmt"
	"strings"

	"github.com/poiesic/normqa/core"
)

const classifierSystem = `You classify the intent of the latest user message in a conversation about construction codes and building standards.
Reply with JSON only: {"intent": "query"} if the message needs information from the standards documents, or {"intent": "chat"} if it is small talk, a greeting, or a question about the conversation itself.`

const chatPersona = `You are a helpful assistant and an expert in construction codes and building standards. Reply conversationally and briefly. Do not invent citations or quote standards from memory.`

const keywordSystem = `You extract search keywords from questions about construction codes and building standards.
Reply with a JSON array of 1 to 5 short keyword terms, most specific first. No explanations.`

const relevanceSystem = `You judge the relevance of standard document excerpts to a question.
For each excerpt, return either null (not relevant) or the subset of its text that answers or supports the question, including any surrounding context needed to interpret it (units, table headers, applicability conditions).
Reply with a JSON object mapping each excerpt id to its extracted text or null. Include every id exactly once.`

const conflictSystem = `You look for genuine contradictions between excerpts from construction standards.
Expected variation across materials, classes or conditions is NOT a conflict. A normative rule and an informative note on the same topic is NOT a conflict.
Reply with JSON: {"conflicts": [{"sections": ["<code>", "<code>"], "description": "<short description>"}]}. Return {"conflicts": []} when there are none.`

const synthesisSystem = `You are an expert in construction codes and building standards.
Answer the question using ONLY the supplied material. Cite every claim in the format [Document Name, Page X, Section Y.Z].
If precedence notes say a document is superseded, say so. If conflicts are listed, flag them. If referenced documents are missing from the corpus, mention that the answer may be incomplete.
Keep the answer focused and under roughly 500 words.`

func buildClassifierPrompt(messages []core.Message) string {
	var b strings.Builder
	b.WriteString("Conversation:\n")
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, truncate(m.Content, 500))
	}
	b.WriteString("\nClassify the intent of the latest user message.")
	return b.String()
}

func buildKeywordPrompt(query string) string {
	return fmt.Sprintf("Question: %s\n\nExtract the keywords.", query)
}

func buildRelevancePrompt(query string, batch []core.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nExcerpts:\n", query)
	for _, c := range batch {
		fmt.Fprintf(&b, "--- id: %s (section %s, %q, page %d)\n%s\n", c.ID, c.Code, c.Title, c.Page, c.Content)
	}
	return b.String()
}

func buildConflictPrompt(query string, extracts map[string]string, cands map[string]core.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nExcerpts:\n", query)
	for _, id := range sortedKeys(extracts) {
		code := id
		if c, ok := cands[id]; ok && c.Code != "" {
			code = c.Code
		}
		fmt.Fprintf(&b, "--- %s\n%s\n", code, extracts[id])
	}
	return b.String()
}

func buildSynthesisPrompt(
	query string,
	extracts map[string]string,
	cands map[string]core.Candidate,
	docNames map[string]string,
	precedence []core.PrecedenceRule,
	conflicts []core.Conflict,
	unfollowed []string,
	missing []string,
) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nMaterial:\n", query)
	for _, id := range sortedKeys(extracts) {
		c := cands[id]
		name := docNames[c.DocPrefix]
		if name == "" {
			name = c.DocPrefix
		}
		fmt.Fprintf(&b, "--- [%s, Page %d, Section %s] %s\n%s\n", name, c.Page, c.Code, c.Title, extracts[id])
	}

	if len(precedence) > 0 {
		b.WriteString("\nPrecedence notes:\n")
		for _, rule := range precedence {
			fmt.Fprintf(&b, "- %s", rule.Key)
			if len(rule.Supersedes) > 0 {
				fmt.Fprintf(&b, " supersedes %s", strings.Join(rule.Supersedes, ", "))
			}
			if len(rule.SupersededBy) > 0 {
				fmt.Fprintf(&b, " superseded by %s", strings.Join(rule.SupersededBy, ", "))
			}
			if rule.Note != "" {
				fmt.Fprintf(&b, " (%s)", rule.Note)
			}
			b.WriteString("\n")
		}
	}

	if len(conflicts) > 0 {
		b.WriteString("\nDetected conflicts:\n")
		for _, c := range conflicts {
			fmt.Fprintf(&b, "- %s: %s\n", strings.Join(c.Sections, " vs "), c.Description)
		}
	}

	if len(unfollowed) > 0 {
		fmt.Fprintf(&b, "\nFurther references available but not followed: %s\n", strings.Join(unfollowed, ", "))
	}

	if len(missing) > 0 {
		fmt.Fprintf(&b, "\nReferenced documents not in the corpus: %s\n", strings.Join(missing, ", "))
	}

	b.WriteString("\nAnswer the question.")
	return b.String()
}

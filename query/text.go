package query

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Stop words to filter out when deriving keyword terms from a query
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "what": true, "which": true, "how": true,
	"when": true, "where": true,
}

// tokenizeAndFilter splits text into words, lowercases, trims punctuation, and removes stop words
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		// Lowercase and trim punctuation
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))

		// Skip stop words and empty strings
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// fallbackKeywords derives up to max keyword terms from the query without
// an LLM: tokenize, drop stop words, dedupe in order.
func fallbackKeywords(query string, max int) []string {
	seen := make(map[string]bool)
	terms := make([]string, 0, max)
	for _, word := range tokenizeAndFilter(query) {
		if seen[word] {
			continue
		}
		seen[word] = true
		terms = append(terms, word)
		if len(terms) >= max {
			break
		}
	}
	return terms
}

// highlightTerms returns the query terms that appear verbatim
// (case-insensitive) in the extract, preserving query order.
func highlightTerms(extract, query string) []string {
	lower := strings.ToLower(extract)
	seen := make(map[string]bool)
	var terms []string
	for _, word := range tokenizeAndFilter(query) {
		if seen[word] {
			continue
		}
		seen[word] = true
		if strings.Contains(lower, word) {
			terms = append(terms, word)
		}
	}
	return terms
}

// countOccurrences counts case-insensitive occurrences of term in text.
func countOccurrences(text, term string) int {
	if term == "" {
		return 0
	}
	return strings.Count(strings.ToLower(text), strings.ToLower(term))
}

// truncate cuts s to at most max bytes without splitting a rune. Used for
// the relevance-filter failure fallback and for log-friendly previews.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// sortedKeys returns the map's keys in ascending order. Extract maps have no
// inherent order, so prompts and results iterate them sorted for determinism.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

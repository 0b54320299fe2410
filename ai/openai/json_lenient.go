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


package openai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/poiesic/normqa/ai"
)

// ParseJSONLenient parses model output into out, tolerating the malformed
// patterns models commonly produce: markdown code fences, leading prose
// before the JSON, unescaped backslashes, literal newlines inside strings,
// trailing commas, and stray control characters.
//
// Fixes are applied in a fixed escalating order, reparsing after each one.
// Returns ai.ErrMalformedResponse (wrapped) when nothing parses.
func ParseJSONLenient(text string, out any) error {
	s := stripFences(strings.TrimSpace(text))
	s = extractBracketed(s)
	if s == "" {
		return fmt.Errorf("%w: no JSON payload found", ai.ErrMalformedResponse)
	}

	if err := json.Unmarshal([]byte(s), out); err == nil {
		return nil
	}

	fixes := []func(string) string{
		fixUnescapedBackslashes,
		fixLiteralNewlines,
		fixTrailingCommas,
		stripControlChars,
	}
	for _, fix := range fixes {
		s = fix(s)
		if err := json.Unmarshal([]byte(s), out); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: unparseable after repair", ai.ErrMalformedResponse)
}

// stripFences removes surrounding markdown code fences.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractBracketed cuts leading prose before the JSON payload and trailing
// prose after it. Returns the input unchanged when it already starts with a
// bracket, and "" when no bracket exists at all.
func extractBracketed(s string) string {
	if s == "" {
		return s
	}
	if s[0] == '{' || s[0] == '[' {
		return s
	}
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return ""
	}
	close := byte('}')
	if s[start] == '[' {
		close = ']'
	}
	end := strings.LastIndexByte(s, close)
	if end <= start {
		return ""
	}
	return s[start : end+1]
}

// fixUnescapedBackslashes doubles backslashes that do not start a valid
// JSON escape sequence.
func fixUnescapedBackslashes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '\\' {
			b.WriteByte(ch)
			continue
		}
		if i+1 < len(s) && strings.IndexByte(`"\/bfnrtu`, s[i+1]) >= 0 {
			b.WriteByte(ch)
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteString(`\\`)
	}
	return b.String()
}

// fixLiteralNewlines escapes raw newlines and tabs that appear inside JSON
// string literals. Raw carriage returns inside strings are dropped.
func fixLiteralNewlines(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
				b.WriteByte(ch)
			case ch == '\\':
				escaped = true
				b.WriteByte(ch)
			case ch == '"':
				inString = false
				b.WriteByte(ch)
			case ch == '\n':
				b.WriteString(`\n`)
			case ch == '\r':
				// dropped
			case ch == '\t':
				b.WriteString(`\t`)
			default:
				b.WriteByte(ch)
			}
			continue
		}
		if ch == '"' {
			inString = true
		}
		b.WriteByte(ch)
	}
	return b.String()
}

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// fixTrailingCommas removes commas directly before a closing bracket.
func fixTrailingCommas(s string) string {
	return trailingCommaRe.ReplaceAllString(s, "$1")
}

// stripControlChars replaces remaining control characters with spaces.
func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 {
			return ' '
		}
		return r
	}, s)
}

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
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/normqa/storage"
)

// Resolver maps raw, inconsistently formatted reference strings to canonical
// store ids. It is built once per engine instance from a snapshot of the
// store and is read-only afterward, so it is safe for concurrent use. Store
// mutations after construction are not reflected.
type Resolver struct {
	// canonical section/object ids
	ids map[string]struct{}

	// normalized and parenthetical-stripped variants -> canonical id
	variants map[string]string

	// canonical document-code token (case-folded, separator-free,
	// year/amendment suffix stripped) -> key prefix
	docCodes map[string]string

	// known key prefixes
	prefixes []string

	// key prefix -> lowest section id of that document, the "any section"
	// fallback target for cross-document references
	anySection map[string]string

	maxCodeLen int
	logger     *slog.Logger
}

// trailing parenthetical qualifier, e.g. "5.2.3(1)" -> "5.2.3"
var parenQualifierRe = regexp.MustCompile(`\([^)]*\)$`)

// leading standard document code, e.g. "EN_1992-1-1_6.1" -> "EN_1992-1-1"
var docCodeRe = regexp.MustCompile(`(?i)^((?:BS[ _-])?(?:EN|ISO|IEC|DIN|CEN)[ _-]?\d+(?:-\d+)*)`)

// NewResolver builds a resolver from the store's current contents.
func NewResolver(ctx context.Context, store storage.Store) (*Resolver, error) {
	r := &Resolver{
		ids:        make(map[string]struct{}),
		variants:   make(map[string]string),
		docCodes:   make(map[string]string),
		anySection: make(map[string]string),
		logger:     slog.Default().With("component", "resolver"),
	}

	sections, err := store.ListSections(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range sections {
		r.addID(s.ID)
		if cur, ok := r.anySection[s.DocPrefix]; !ok || s.ID < cur {
			r.anySection[s.DocPrefix] = s.ID
		}
	}

	objects, err := store.ListObjects(ctx)
	if err != nil {
		return nil, err
	}
	for _, o := range objects {
		r.addID(o.ID)
	}

	documents, err := store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range documents {
		if d.KeyPrefix == "" {
			continue
		}
		r.prefixes = append(r.prefixes, d.KeyPrefix)
		for _, code := range []string{d.Code, d.ID, d.KeyPrefix} {
			token := canonicalDocCode(code)
			if token == "" {
				continue
			}
			if _, exists := r.docCodes[token]; !exists {
				r.docCodes[token] = d.KeyPrefix
			}
			if len(token) > r.maxCodeLen {
				r.maxCodeLen = len(token)
			}
		}
	}

	r.logger.Debug("resolver index built",
		"ids", len(r.ids),
		"variants", len(r.variants),
		"documents", len(documents))
	return r, nil
}

// addID registers a canonical id along with its normalized and
// parenthetical-stripped variants. First registration wins on collisions.
func (r *Resolver) addID(id string) {
	if id == "" {
		return
	}
	r.ids[id] = struct{}{}
	r.addVariant(normalizeID(id), id)

	stripped := stripParenQualifier(id)
	if stripped != id {
		r.addVariant(stripped, id)
		r.addVariant(normalizeID(stripped), id)
	}
}

func (r *Resolver) addVariant(variant, id string) {
	if variant == "" || variant == id {
		return
	}
	if _, exists := r.variants[variant]; !exists {
		r.variants[variant] = id
	}
}

// Resolve maps a raw reference string to a canonical store id.
// Resolution order: exact, normalized, parenthetical-stripped, double-prefix
// correction, cross-document match with any-section fallback.
func (r *Resolver) Resolve(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	if id, ok := r.resolveDirect(raw); ok {
		return id, true
	}

	// Double-prefix correction: refs that accidentally repeat the
	// document prefix, e.g. "BSI_EN_1991_BSI_EN_1991_4.2".
	for _, p := range r.prefixes {
		doubled := p + "_" + p
		if strings.HasPrefix(raw, doubled) {
			if id, ok := r.resolveDirect(raw[len(p)+1:]); ok {
				return id, true
			}
		}
	}

	return r.resolveCrossDocument(raw)
}

// resolveDirect applies the in-document resolution steps.
func (r *Resolver) resolveDirect(ref string) (string, bool) {
	if _, ok := r.ids[ref]; ok {
		return ref, true
	}
	if id, ok := r.variants[normalizeID(ref)]; ok {
		return id, true
	}
	stripped := stripParenQualifier(ref)
	if stripped != ref {
		if _, ok := r.ids[stripped]; ok {
			return stripped, true
		}
		if id, ok := r.variants[normalizeID(stripped)]; ok {
			return id, true
		}
	}
	return "", false
}

// resolveCrossDocument matches the reference's leading document code against
// the loaded documents and resolves the remainder inside that document's
// namespace. Matching probes the precomputed code-token map from the longest
// folded prefix down, so cost is independent of the number of documents.
func (r *Resolver) resolveCrossDocument(raw string) (string, bool) {
	folded, ends := foldAlnum(raw)
	if folded == "" {
		return "", false
	}

	limit := len(folded)
	if limit > r.maxCodeLen {
		limit = r.maxCodeLen
	}
	for l := limit; l >= 3; l-- {
		prefix, ok := r.docCodes[folded[:l]]
		if !ok {
			continue
		}

		rest := raw[ends[l-1]:]
		rest = strings.Trim(rest, " ,_-:./")
		if rest != "" {
			if id, ok := r.resolveDirect(prefix + "_" + rest); ok {
				return id, true
			}
		}
		if id, ok := r.anySection[prefix]; ok {
			return id, true
		}
		return "", false
	}
	return "", false
}

// MissingDocument reports whether an unresolved reference names a standard
// document that is not in the loaded corpus. Returns the document code in
// display form ("EN_1992-1-1") when it does.
func (r *Resolver) MissingDocument(raw string) (string, bool) {
	m := docCodeRe.FindString(strings.TrimSpace(raw))
	if m == "" {
		return "", false
	}
	if _, loaded := r.docCodes[canonicalDocCode(m)]; loaded {
		return "", false
	}
	display := strings.ReplaceAll(m, " ", "_")
	return display, true
}

// normalizeID converts a reference to its underscore-separated form.
func normalizeID(ref string) string {
	ref = strings.ReplaceAll(ref, ".", "_")
	ref = strings.ReplaceAll(ref, " ", "_")
	return ref
}

// stripParenQualifier removes a trailing parenthetical qualifier.
func stripParenQualifier(ref string) string {
	return strings.TrimSpace(parenQualifierRe.ReplaceAllString(ref, ""))
}

// canonicalDocCode folds a document code to its canonical token: the part
// before any year/amendment suffix, lowercased, separators removed.
// "EN_1991-1-4:2005+A1" -> "en199114".
func canonicalDocCode(code string) string {
	if i := strings.IndexAny(code, ":+"); i >= 0 {
		code = code[:i]
	}
	var b strings.Builder
	for _, r := range strings.ToLower(code) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// foldAlnum lowercases and strips non-alphanumeric characters, returning the
// folded string and, per folded byte, the byte offset in the original string
// just past its source rune. Folding walks the original string rune by rune:
// case mapping can change byte lengths, so offsets into a wholesale-lowered
// copy would not be valid positions in the input.
func foldAlnum(s string) (string, []int) {
	var b strings.Builder
	ends := make([]int, 0, len(s))
	for i, r := range s {
		lower := unicode.ToLower(r)
		if (lower >= 'a' && lower <= 'z') || (lower >= '0' && lower <= '9') {
			b.WriteRune(lower)
			ends = append(ends, i+utf8.RuneLen(r))
		}
	}
	return b.String(), ends
}

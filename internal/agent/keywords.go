package agent

import (
	"sort"
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {}, "will": {},
	"would": {}, "could": {}, "should": {}, "may": {}, "might": {}, "can": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "i": {}, "you": {},
	"he": {}, "she": {}, "it": {}, "we": {}, "they": {}, "me": {}, "him": {},
	"her": {}, "us": {}, "them": {}, "my": {}, "your": {}, "his": {}, "its": {},
	"our": {}, "their": {}, "about": {}, "please": {}, "find": {}, "show": {},
	"tell": {}, "give": {}, "get": {},
}

// extractKeywords lowercases the text, splits on non-alphanumeric runes and
// keeps the first limit distinct non-stopword tokens longer than two runes.
func extractKeywords(text string, limit int) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(words))
	var out []string
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if len(out) == limit {
			break
		}
	}
	return out
}

// keywordCount pairs a keyword with its document frequency.
type keywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// countKeywords tallies keyword frequencies across texts and returns them in
// descending count order, ties broken alphabetically for determinism.
func countKeywords(texts []string, perText int) []keywordCount {
	freq := map[string]int{}
	for _, text := range texts {
		for _, kw := range extractKeywords(text, perText) {
			freq[kw]++
		}
	}
	out := make([]keywordCount, 0, len(freq))
	for kw, n := range freq {
		out = append(out, keywordCount{Keyword: kw, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Keyword < out[j].Keyword
	})
	return out
}

// relevance is the Jaccard similarity of the keyword sets of both texts.
func relevance(content, request string) float64 {
	a := extractKeywords(content, 20)
	b := extractKeywords(request, 20)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, kw := range a {
		set[kw] = struct{}{}
	}
	inter := 0
	for _, kw := range b {
		if _, ok := set[kw]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// asMapSlice normalizes a decoded envelope value into a slice of maps. Both
// []map[string]any (direct tool results) and []any (JSON round-tripped stage
// data) occur in practice.
func asMapSlice(v any) []map[string]any {
	switch items := v.(type) {
	case []map[string]any:
		return items
	case []any:
		out := make([]map[string]any, 0, len(items))
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

// asStringSlice normalizes a decoded envelope value into strings.
func asStringSlice(v any) []string {
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

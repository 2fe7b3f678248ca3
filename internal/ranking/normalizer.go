package ranking

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// queryPunctuation is dropped from queries; it never appears inside service names.
const queryPunctuation = "?？!！。，,、"

// QueryNormalizer turns raw query text into its comparison form.
type QueryNormalizer struct {
	particles []string
}

// NewQueryNormalizer creates a normalizer that strips the given particles.
// Longer particles are removed first so "我要" is not split by "要"-like entries.
func NewQueryNormalizer(particles []string) *QueryNormalizer {
	if particles == nil {
		particles = DefaultStopParticles
	}
	sorted := make([]string, 0, len(particles))
	for _, p := range particles {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			sorted = append(sorted, p)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return utf8.RuneCountInString(sorted[i]) > utf8.RuneCountInString(sorted[j])
	})
	return &QueryNormalizer{particles: sorted}
}

// Normalize lower-cases raw, folds full-width characters, drops whitespace and
// sentence punctuation, and strips stop particles. Remaining characters keep their order.
// An empty result means the query carries no relevance constraint.
func (n *QueryNormalizer) Normalize(raw string) string {
	s := strings.ToLower(width.Fold.String(raw))
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || strings.ContainsRune(queryPunctuation, r) {
			return -1
		}
		return r
	}, s)
	for _, p := range n.particles {
		s = strings.ReplaceAll(s, p, "")
	}
	return s
}

// ExpansionTerms merges intent keywords and synonyms into normalized, de-duplicated
// match terms. Terms equal to the query itself or empty after normalization are dropped.
func (n *QueryNormalizer) ExpansionTerms(query string, keywords, synonyms []string) []string {
	seen := map[string]bool{query: true, "": true}
	terms := make([]string, 0, len(keywords)+len(synonyms))
	for _, list := range [][]string{keywords, synonyms} {
		for _, t := range list {
			t = n.Normalize(t)
			if seen[t] {
				continue
			}
			seen[t] = true
			terms = append(terms, t)
		}
	}
	return terms
}

// DistinctRunes returns the distinct characters of s in first-seen order.
func DistinctRunes(s string) []rune {
	seen := make(map[rune]bool, len(s))
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

// CharacterCoverage returns the fraction of distinct characters of query that appear in text.
func CharacterCoverage(query, text string) float64 {
	chars := DistinctRunes(query)
	if len(chars) == 0 {
		return 0
	}
	found := 0
	for _, r := range chars {
		if strings.ContainsRune(text, r) {
			found++
		}
	}
	return float64(found) / float64(len(chars))
}

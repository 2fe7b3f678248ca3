package ranking

import (
	"strings"
)

// RelevanceScorer scores a record digest against a normalized query and its semantic expansion.
type RelevanceScorer struct {
	config *RankingConfig
}

// NewRelevanceScorer creates a new RelevanceScorer with the given config.
func NewRelevanceScorer(config *RankingConfig) *RelevanceScorer {
	return &RelevanceScorer{config: config}
}

// Name returns the scorer name.
func (s *RelevanceScorer) Name() string {
	return "relevance"
}

// Score sums the containment, synonym, and character coverage signals.
// digest must already be lower-cased; query and expansions must be normalized.
// An empty query selects browse mode: every record is relevant with the baseline score.
func (s *RelevanceScorer) Score(digest, name, query string, expansions []string) Relevance {
	var rel Relevance
	if query == "" {
		rel.Score = s.config.BrowseBaselineScore
		rel.Relevant = true
		rel.Breakdown.Browse = rel.Score
		return rel
	}

	// Exact containment
	if strings.Contains(digest, query) {
		rel.Breakdown.Containment = s.config.ContainmentScore
		rel.Relevant = true

		lowerName := strings.ToLower(strings.TrimSpace(name))
		if strings.HasPrefix(lowerName, query) {
			rel.Breakdown.Prefix = s.config.PrefixBonus
		}
		if lowerName == query {
			rel.Breakdown.ExactName = s.config.ExactNameBonus
		}
	}

	// Synonym containment
	for _, term := range expansions {
		if term == "" || !strings.Contains(digest, term) {
			continue
		}
		rel.Breakdown.Synonym += s.config.SynonymScore
		rel.Breakdown.MatchedTerms = append(rel.Breakdown.MatchedTerms, term)
		rel.Relevant = true
	}

	// Character coverage
	rel.Coverage = CharacterCoverage(query, digest)
	if rel.Coverage > s.config.CoverageThreshold {
		rel.Breakdown.Coverage = rel.Coverage * s.config.CoverageWeight
		rel.Relevant = true
	}

	rel.Score = rel.Breakdown.Containment + rel.Breakdown.Prefix + rel.Breakdown.ExactName +
		rel.Breakdown.Synonym + rel.Breakdown.Coverage
	return rel
}

package ranking

import (
	"sort"

	"github.com/hyperjump/banshi/internal/models"
)

// Ranker combines the normalizer, relevance scorer, and context adjuster to rank catalog records.
type Ranker struct {
	config     *RankingConfig
	normalizer *QueryNormalizer
	relevance  *RelevanceScorer
	adjuster   *ContextAdjuster
}

// NewRanker creates a new Ranker with the given configuration.
func NewRanker(config *RankingConfig) *Ranker {
	if config == nil {
		config = DefaultRankingConfig()
	}
	config.ApplyDefaults()

	return &Ranker{
		config:     config,
		normalizer: NewQueryNormalizer(config.StopParticles),
		relevance:  NewRelevanceScorer(config),
		adjuster:   NewContextAdjuster(config),
	}
}

// Normalize returns the comparison form of a raw query.
func (r *Ranker) Normalize(raw string) string {
	return r.normalizer.Normalize(raw)
}

// ExpansionTerms returns the normalized semantic expansion for query.
func (r *Ranker) ExpansionTerms(query string, intent models.AnalyzedIntent) []string {
	return r.normalizer.ExpansionTerms(query, intent.Keywords, intent.Synonyms)
}

// Score computes the final score of one record. The record is marked Filtered when it
// fails the relevance gate or the channel filter. The breakdown is kept only when explain is set.
// An empty query scores in browse mode, where the high-frequency bonus is not applied.
func (r *Ranker) Score(index int, rec *models.ServiceRecord, digest, query string, expansions []string, qctx models.QueryContext, explain bool) ScoredRecord {
	scored := ScoredRecord{Record: rec, Index: index}

	rel := r.relevance.Score(digest, rec.Name, query, expansions)
	if !rel.Relevant {
		scored.Filtered = true
		return scored
	}

	bd := rel.Breakdown
	score, ok := r.adjuster.Adjust(rel.Score, rec, qctx, &bd)
	if !ok {
		scored.Filtered = true
		return scored
	}
	if query == "" {
		// The browse view is ordered by visits; the high-frequency flag must not reorder it.
		score -= bd.HighFreq
		bd.HighFreq = 0
	}
	scored.Score = score
	if explain {
		scored.Breakdown = &bd
	}
	return scored
}

// Rank drops filtered and non-positive records, stable-sorts the rest by score
// descending with catalog order as tie-breaker, and truncates to limit.
// A non-positive limit, or one above the configured result cap, uses the cap.
func (r *Ranker) Rank(scored []ScoredRecord, limit int) []ScoredRecord {
	if limit <= 0 || limit > r.config.ResultCap {
		limit = r.config.ResultCap
	}
	return TopN(r.Order(scored), limit)
}

// Order returns every eligible record in rank order without truncation.
func (r *Ranker) Order(scored []ScoredRecord) []ScoredRecord {
	results := make([]ScoredRecord, 0, len(scored))
	for _, s := range scored {
		if s.Filtered || s.Score <= 0 {
			continue
		}
		results = append(results, s)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Index < results[j].Index
	})
	return results
}

// RankRecords ranks scored records and returns only the records.
func (r *Ranker) RankRecords(scored []ScoredRecord, limit int) []models.ServiceRecord {
	ranked := r.Rank(scored, limit)
	out := make([]models.ServiceRecord, len(ranked))
	for i, s := range ranked {
		out[i] = *s.Record
	}
	return out
}

// GetConfig returns the ranking configuration.
func (r *Ranker) GetConfig() *RankingConfig {
	return r.config
}

// TopN returns the top N results.
func TopN(results []ScoredRecord, n int) []ScoredRecord {
	if n >= len(results) {
		return results
	}
	return results[:n]
}

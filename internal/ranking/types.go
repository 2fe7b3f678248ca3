// Package ranking provides relevance scoring, context adjustment, and ranking of catalog services.
package ranking

import "github.com/hyperjump/banshi/internal/models"

// Relevance is the outcome of scoring one record against a normalized query.
type Relevance struct {
	// Score is the accumulated relevance score.
	Score float64
	// Relevant is false when no signal qualified the record; such records are excluded.
	Relevant bool
	// Coverage is the fraction of distinct query characters found in the digest.
	Coverage float64
	// Breakdown holds the individual signal contributions.
	Breakdown models.ScoreBreakdown
}

// ScoredRecord pairs a record with its score for one ranking pass.
type ScoredRecord struct {
	Record *models.ServiceRecord
	Score  float64
	// Filtered marks records removed by a hard filter or the relevance gate.
	Filtered bool
	// Index is the record's position in the catalog, used as the tie-breaker.
	Index     int
	Breakdown *models.ScoreBreakdown
}

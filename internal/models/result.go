package models

// ScoreBreakdown explains how a hit's final score was assembled.
type ScoreBreakdown struct {
	Containment  float64 `json:"containment"`
	Prefix       float64 `json:"prefix"`
	ExactName    float64 `json:"exact_name"`
	Synonym      float64 `json:"synonym"`
	Coverage     float64 `json:"coverage"`
	Browse       float64 `json:"browse,omitempty"`
	Applicant    float64 `json:"applicant"`
	Region       float64 `json:"region"`
	Popularity   float64 `json:"popularity"`
	HighFreq     float64 `json:"high_frequency"`
	Satisfaction float64 `json:"satisfaction"`
	// MatchedTerms are the expansion terms found in the record digest.
	MatchedTerms []string `json:"matched_terms,omitempty"`
}

// SearchHit is a single ranked service with its score.
type SearchHit struct {
	Record    *ServiceRecord  `json:"record"`
	Score     float64         `json:"score"`
	Rank      int             `json:"rank"`
	Breakdown *ScoreBreakdown `json:"breakdown,omitempty"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Query           string          `json:"query"`
	NormalizedQuery string          `json:"normalized_query"`
	Results         []*SearchHit    `json:"results"`
	Total           int             `json:"total"`
	QueryTime       int64           `json:"query_time_ms"`
	CatalogVersion  uint64          `json:"catalog_version"`
	Intent          *AnalyzedIntent `json:"intent,omitempty"`
	// Degraded names why semantic expansion was unavailable, empty when it was applied.
	Degraded string `json:"degraded,omitempty"`
	// Context is the effective context after adopting intent guesses.
	Context QueryContext `json:"context"`
}

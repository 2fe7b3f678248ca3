package models

// AnalyzedIntent is the structured result of classifying one query with the
// external intent service. It lives for a single search turn.
type AnalyzedIntent struct {
	Keywords   []string      `json:"keywords"`
	Synonyms   []string      `json:"synonyms"`
	TargetUser ApplicantType `json:"target_user"`
	// Location is empty when the service did not name a place.
	Location string `json:"location,omitempty"`
	// Category is the free-form intent category (查询, 办理, 投诉...). Informational only.
	Category string `json:"intent_category,omitempty"`
}

// EmptyIntent returns the intent used when classification is unavailable.
func EmptyIntent() AnalyzedIntent {
	return AnalyzedIntent{
		Keywords:   []string{},
		Synonyms:   []string{},
		TargetUser: ApplicantUnknown,
	}
}

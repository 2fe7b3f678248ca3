package search

import (
	"context"

	"github.com/hyperjump/banshi/internal/catalog"
	"github.com/hyperjump/banshi/internal/intent"
	"github.com/hyperjump/banshi/internal/models"
	"github.com/hyperjump/banshi/internal/ranking"
)

type searchOptions struct {
	ranker *ranking.Ranker
	limit  int
	adopt  bool
}

// SearchOption configures Search.
type SearchOption func(*searchOptions)

// UsingRanker scores with r instead of a default ranker.
func UsingRanker(r *ranking.Ranker) SearchOption {
	return func(o *searchOptions) { o.ranker = r }
}

// Limit truncates the result to n records (at most the ranker's result cap).
func Limit(n int) SearchOption {
	return func(o *searchOptions) { o.limit = n }
}

// AdoptingIntent lets the classifier's applicant and location guesses fill unset context fields.
func AdoptingIntent() SearchOption {
	return func(o *searchOptions) { o.adopt = true }
}

// Search ranks records for query in one sequential pass and returns them in
// rank order. A nil classifier behaves like intent.Disabled. Digests are
// computed from records on every call; long-lived callers should use Engine.
// Cancellation of ctx yields no results.
func Search(ctx context.Context, query string, records []models.ServiceRecord, qctx models.QueryContext, classifier intent.Classifier, opts ...SearchOption) []models.ServiceRecord {
	o := searchOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.ranker == nil {
		o.ranker = ranking.NewRanker(nil)
	}
	if classifier == nil {
		classifier = intent.Disabled{}
	}

	snap := catalog.NewSnapshot(records, 0, "")
	s := &scorer{ranker: o.ranker}
	t := turn{rawQuery: query, query: o.ranker.Normalize(query), qctx: qctx}

	out, err := s.run(ctx, snap.Entries, t, classifier, o.adopt)
	if err != nil {
		return nil
	}

	limit := o.limit
	if limit <= 0 || limit > o.ranker.GetConfig().ResultCap {
		limit = o.ranker.GetConfig().ResultCap
	}
	ranked := ranking.TopN(out.ordered, limit)
	result := make([]models.ServiceRecord, len(ranked))
	for i, sr := range ranked {
		result[i] = *sr.Record
	}
	return result
}

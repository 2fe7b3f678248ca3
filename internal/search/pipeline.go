package search

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/hyperjump/banshi/internal/catalog"
	"github.com/hyperjump/banshi/internal/intent"
	"github.com/hyperjump/banshi/internal/models"
	"github.com/hyperjump/banshi/internal/ranking"
)

// turn is the by-value input of one scoring pass.
type turn struct {
	rawQuery string
	query    string
	qctx     models.QueryContext
	explain  bool
}

// outcome is what a scoring pass produced.
type outcome struct {
	ordered    []ranking.ScoredRecord
	expansions []string
	result     intent.Result
	classified bool
	qctx       models.QueryContext
}

// scorer scores catalog entries, optionally fanning out over a worker pool.
type scorer struct {
	ranker    *ranking.Ranker
	pool      *ants.Pool
	workers   int
	threshold int
}

// run classifies the query (at most once, and never for browse queries),
// adopts intent guesses when requested, and scores every entry.
func (s *scorer) run(ctx context.Context, entries []catalog.Entry, t turn, classifier intent.Classifier, adopt bool) (outcome, error) {
	out := outcome{result: intent.Succeeded(models.EmptyIntent()), qctx: t.qctx}

	if t.query != "" {
		out.result = classifier.Classify(ctx, t.rawQuery)
		out.classified = true
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if out.result.OK() && adopt {
			out.qctx = AdoptIntentContext(out.qctx, out.result.Intent)
		}
		out.expansions = s.ranker.ExpansionTerms(t.query, out.result.Intent)
	}

	scored := s.scoreAll(ctx, entries, t.query, out.expansions, out.qctx, t.explain)
	if err := ctx.Err(); err != nil {
		return out, err
	}
	out.ordered = s.ranker.Order(scored)
	return out, nil
}

// scoreAll writes each entry's score at its catalog index, so the result is
// identical whether or not the pool is used.
func (s *scorer) scoreAll(ctx context.Context, entries []catalog.Entry, query string, expansions []string, qctx models.QueryContext, explain bool) []ranking.ScoredRecord {
	scored := make([]ranking.ScoredRecord, len(entries))
	scoreRange := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			e := &entries[i]
			scored[i] = s.ranker.Score(i, &e.Record, e.Digest, query, expansions, qctx, explain)
		}
	}

	if s.pool == nil || s.workers < 2 || len(entries) <= s.threshold {
		scoreRange(0, len(entries))
		return scored
	}

	chunk := (len(entries) + s.workers - 1) / s.workers
	var wg sync.WaitGroup
	for lo := 0; lo < len(entries); lo += chunk {
		if ctx.Err() != nil {
			break
		}
		lo := lo
		hi := min(lo+chunk, len(entries))
		wg.Add(1)
		task := func() {
			defer wg.Done()
			scoreRange(lo, hi)
		}
		if err := s.pool.Submit(task); err != nil {
			// Pool closed or saturated: score inline.
			task()
		}
	}
	wg.Wait()
	return scored
}

// AdoptIntentContext fills context fields the caller left at "all" with the
// classifier's applicant and location guesses. Explicit choices are never replaced.
func AdoptIntentContext(qctx models.QueryContext, in models.AnalyzedIntent) models.QueryContext {
	if qctx.ApplicantFilter() == models.ApplicantAll {
		switch in.TargetUser {
		case models.ApplicantCitizen, models.ApplicantLegalEntity:
			qctx.Applicant = in.TargetUser
		}
	}
	if qctx.RegionFilter() == "" && in.Location != "" {
		qctx.Region = in.Location
	}
	return qctx
}

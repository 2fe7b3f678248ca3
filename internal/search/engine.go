// Package search runs search turns over the service catalog: classification,
// scoring, context adjustment, and ranking.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/banshi/internal/catalog"
	"github.com/hyperjump/banshi/internal/config"
	"github.com/hyperjump/banshi/internal/intent"
	"github.com/hyperjump/banshi/internal/metrics"
	"github.com/hyperjump/banshi/internal/models"
	"github.com/hyperjump/banshi/internal/ranking"
)

// Engine serves search turns against the current catalog snapshot.
type Engine struct {
	store      *catalog.Store
	classifier intent.Classifier
	scorer     *scorer
	config     *config.SearchConfig
	adopt      bool
	logger     *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClassifier sets the intent classifier. The default is intent.Disabled.
func WithClassifier(c intent.Classifier) Option {
	return func(e *Engine) {
		if c != nil {
			e.classifier = c
		}
	}
}

// WithIntentAdoption controls whether detected applicant and location fill
// context fields the caller left unset.
func WithIntentAdoption(adopt bool) Option {
	return func(e *Engine) { e.adopt = adopt }
}

// NewEngine creates a search engine over store. The worker pool is sized from
// cfg.Workers; call Close to release it.
func NewEngine(store *catalog.Store, ranker *ranking.Ranker, cfg *config.SearchConfig, opts ...Option) (*Engine, error) {
	if ranker == nil {
		ranker = ranking.NewRanker(nil)
	}
	if cfg == nil {
		cfg = &config.Default().Search
	}
	e := &Engine{
		store:      store,
		classifier: intent.Disabled{},
		config:     cfg,
		adopt:      true,
		logger:     zap.NewNop(),
		scorer: &scorer{
			ranker:    ranker,
			workers:   cfg.Workers,
			threshold: cfg.ParallelThreshold,
		},
	}
	for _, opt := range opts {
		opt(e)
	}

	if cfg.Workers > 1 {
		pool, err := ants.NewPool(cfg.Workers, ants.WithPreAlloc(false))
		if err != nil {
			return nil, fmt.Errorf("failed to create scoring pool: %w", err)
		}
		e.scorer.pool = pool
	}
	return e, nil
}

// Close releases the scoring pool.
func (e *Engine) Close() {
	if e.scorer.pool != nil {
		e.scorer.pool.Release()
	}
}

// Store returns the engine's catalog store.
func (e *Engine) Store() *catalog.Store {
	return e.store
}

// Search runs one search turn. The catalog snapshot and the request context are
// captured when the turn starts; a catalog swap during the turn does not affect it.
// The only error besides validation is ctx cancellation.
func (e *Engine) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	start := time.Now()
	if err := req.Validate(e.config.DefaultLimit, e.config.MaxLimit); err != nil {
		return nil, err
	}

	snap := e.store.Snapshot()
	t := turn{
		rawQuery: req.Query,
		query:    e.scorer.ranker.Normalize(req.Query),
		qctx:     req.Context(),
		explain:  req.Explain,
	}
	mode := "query"
	if t.query == "" {
		mode = "browse"
	}

	out, err := e.scorer.run(ctx, snap.Entries, t, e.classifier, e.adopt)
	if err != nil {
		outcome := "error"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome = "canceled"
		}
		metrics.SearchRequestsTotal.WithLabelValues(mode, outcome).Inc()
		return nil, fmt.Errorf("search turn aborted: %w", err)
	}

	hits := ranking.TopN(out.ordered, req.Limit)
	resp := &models.SearchResponse{
		Query:           req.Query,
		NormalizedQuery: t.query,
		Results:         make([]*models.SearchHit, 0, len(hits)),
		Total:           len(out.ordered),
		CatalogVersion:  snap.Version,
		Context:         out.qctx,
	}
	for i, s := range hits {
		rec := *s.Record
		resp.Results = append(resp.Results, &models.SearchHit{
			Record:    &rec,
			Score:     s.Score,
			Rank:      i + 1,
			Breakdown: s.Breakdown,
		})
	}
	if out.classified {
		in := out.result.Intent
		resp.Intent = &in
		resp.Degraded = string(out.result.Degraded)
	}
	resp.QueryTime = time.Since(start).Milliseconds()

	metrics.SearchRequestsTotal.WithLabelValues(mode, "ok").Inc()
	metrics.SearchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	metrics.SearchResults.Observe(float64(len(resp.Results)))

	e.logger.Debug("search turn",
		zap.String("query", req.Query),
		zap.String("normalized", t.query),
		zap.Int("total", resp.Total),
		zap.Int("returned", len(resp.Results)),
		zap.Uint64("catalog_version", snap.Version),
		zap.String("degraded", resp.Degraded),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}

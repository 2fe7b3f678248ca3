// Package catalog holds the service catalog and its precomputed search digests.
package catalog

import (
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/width"

	"github.com/hyperjump/banshi/internal/models"
)

// Entry is a catalog record with its cached search digest.
type Entry struct {
	Record models.ServiceRecord
	Digest string
}

// Snapshot is one immutable catalog version. It is never modified after creation.
type Snapshot struct {
	Version  uint64
	Entries  []Entry
	LoadedAt time.Time
	Source   string
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

// Records returns copies of the snapshot's records in catalog order.
func (s *Snapshot) Records() []models.ServiceRecord {
	if s == nil {
		return nil
	}
	out := make([]models.ServiceRecord, len(s.Entries))
	for i := range s.Entries {
		out[i] = cloneRecord(s.Entries[i].Record)
	}
	return out
}

// BuildDigest returns the lower-cased, width-folded concatenation of the record's
// name, short name, tags, and category. Empty fields contribute nothing.
func BuildDigest(rec *models.ServiceRecord) string {
	parts := make([]string, 0, 4)
	for _, f := range []string{rec.Name, rec.ShortName, rec.Tags, rec.Category} {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.ToLower(width.Fold.String(strings.Join(parts, " ")))
}

// NewSnapshot copies records, sanitizes numeric fields, and computes every digest.
func NewSnapshot(records []models.ServiceRecord, version uint64, source string) *Snapshot {
	entries := make([]Entry, len(records))
	for i := range records {
		rec := cloneRecord(records[i])
		sanitize(&rec)
		entries[i] = Entry{Record: rec, Digest: BuildDigest(&rec)}
	}
	return &Snapshot{
		Version:  version,
		Entries:  entries,
		LoadedAt: time.Now(),
		Source:   source,
	}
}

func cloneRecord(rec models.ServiceRecord) models.ServiceRecord {
	if rec.Channels != nil {
		rec.Channels = append([]string(nil), rec.Channels...)
	}
	if rec.Satisfaction != nil {
		v := *rec.Satisfaction
		rec.Satisfaction = &v
	}
	return rec
}

func sanitize(rec *models.ServiceRecord) {
	if rec.Visits < 0 {
		rec.Visits = 0
	}
	if rec.Satisfaction != nil {
		if !finite(*rec.Satisfaction) {
			rec.Satisfaction = nil
			return
		}
		v := clamp(*rec.Satisfaction, 0, 10)
		rec.Satisfaction = &v
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Store owns the current catalog snapshot. Replacing the catalog swaps the whole
// snapshot atomically; readers holding an older snapshot are unaffected.
type Store struct {
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex // serializes Replace so versions stay monotonic
	logger  *zap.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a logger for catalog swaps.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a store holding an empty version-0 snapshot.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(NewSnapshot(nil, 0, ""))
	return s
}

// Snapshot returns the current catalog snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Replace builds a new snapshot from records and makes it current.
func (s *Store) Replace(records []models.ServiceRecord, source string) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := NewSnapshot(records, s.current.Load().Version+1, source)
	s.current.Store(next)
	s.logger.Info("catalog replaced",
		zap.Uint64("version", next.Version),
		zap.Int("records", next.Len()),
		zap.String("source", source),
	)
	return next
}

// Package indexer installs service catalogs: it reads catalog tables, builds
// the in-memory snapshot, and persists the records.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/banshi/internal/catalog"
	"github.com/hyperjump/banshi/internal/extract"
	"github.com/hyperjump/banshi/internal/metrics"
	"github.com/hyperjump/banshi/internal/models"
	"github.com/hyperjump/banshi/internal/storage"
)

// Origin labels where an installed catalog came from.
type Origin string

const (
	OriginUpload  Origin = "upload"
	OriginFile    Origin = "file"
	OriginStorage Origin = "storage"
	OriginDefault Origin = "default"
)

// DefaultSource is the source label of the built-in demonstration catalog.
const DefaultSource = "builtin:demo"

// ErrNoCatalogSource is returned by Bootstrap when no file, stored catalog, or
// default catalog could be installed.
var ErrNoCatalogSource = errors.New("no catalog source available")

// ErrUnreadableCatalog wraps failures to parse an uploaded or watched catalog table.
var ErrUnreadableCatalog = errors.New("unreadable catalog")

// Result describes one catalog installation.
type Result struct {
	Snapshot *catalog.Snapshot   `json:"-"`
	Origin   Origin              `json:"origin"`
	Stats    catalog.ImportStats `json:"stats"`
	Import   *storage.ImportInfo `json:"import,omitempty"`
	// Skipped is set when IndexFile found the file unchanged since the last install.
	Skipped bool `json:"skipped,omitempty"`
}

type fileStamp struct {
	path  string
	mtime time.Time
	size  int64
}

func (s fileStamp) same(o fileStamp) bool {
	return s.path != "" && s.path == o.path && s.size == o.size && s.mtime.Equal(o.mtime)
}

// Indexer installs catalogs into a store and, when storage is set, persists them.
type Indexer struct {
	store     *catalog.Store
	storage   storage.Storage
	extractor *extract.Extractor
	logger    *zap.Logger

	mu       sync.Mutex // serializes installs so persisted and served catalogs agree
	lastFile fileStamp
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for install events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer. storage may be nil, in which case catalogs are
// served but not persisted. extractor may be nil to use the default extractor.
func NewIndexer(store *catalog.Store, st storage.Storage, extractor *extract.Extractor, opts ...IndexerOption) *Indexer {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	idx := &Indexer{
		store:     store,
		storage:   st,
		extractor: extractor,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexBytes parses an uploaded catalog table and installs it.
func (idx *Indexer) IndexBytes(ctx context.Context, content []byte, format, source string) (*Result, error) {
	rows, err := idx.extractor.ReadBytes(content, format)
	if err != nil {
		metrics.CatalogImportsTotal.WithLabelValues(string(OriginUpload), "error").Inc()
		return nil, fmt.Errorf("%w %s: %w", ErrUnreadableCatalog, source, err)
	}
	return idx.IndexRows(ctx, rows, source, OriginUpload)
}

// IndexFile reads the catalog file at path and installs it. A file whose size and
// modification time match the last installed file is skipped.
func (idx *Indexer) IndexFile(ctx context.Context, path string) (*Result, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		metrics.CatalogImportsTotal.WithLabelValues(string(OriginFile), "error").Inc()
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	stamp := fileStamp{path: absPath, mtime: info.ModTime(), size: info.Size()}

	idx.mu.Lock()
	unchanged := idx.lastFile.same(stamp)
	idx.mu.Unlock()
	if unchanged {
		idx.logger.Debug("catalog file unchanged, skipping", zap.String("path", absPath))
		return &Result{Snapshot: idx.store.Snapshot(), Origin: OriginFile, Skipped: true}, nil
	}

	rows, err := idx.extractor.Read(absPath)
	if err != nil {
		metrics.CatalogImportsTotal.WithLabelValues(string(OriginFile), "error").Inc()
		return nil, fmt.Errorf("%w %s: %w", ErrUnreadableCatalog, absPath, err)
	}
	res, err := idx.IndexRows(ctx, rows, absPath, OriginFile)
	if err != nil {
		return nil, err
	}
	idx.mu.Lock()
	idx.lastFile = stamp
	idx.mu.Unlock()
	return res, nil
}

// IndexRows maps header-keyed rows to records and installs them.
func (idx *Indexer) IndexRows(ctx context.Context, rows []map[string]string, source string, origin Origin) (*Result, error) {
	for _, row := range rows {
		for k, v := range row {
			row[k] = Preprocess(v)
		}
	}
	records, stats := catalog.FromRows(rows, idx.logger)
	if len(records) == 0 {
		metrics.CatalogImportsTotal.WithLabelValues(string(origin), "error").Inc()
		return nil, fmt.Errorf("catalog %s: %w", source, extract.ErrEmptyCatalogFile)
	}
	res, err := idx.Install(ctx, records, source, origin)
	if err != nil {
		return nil, err
	}
	res.Stats = stats
	return res, nil
}

// Install persists records (for uploads and files) and swaps them in as the
// current catalog. The swap happens only after persistence succeeds.
func (idx *Indexer) Install(ctx context.Context, records []models.ServiceRecord, source string, origin Origin) (*Result, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	res := &Result{Origin: origin, Stats: catalog.ImportStats{Rows: len(records)}}
	if idx.storage != nil && persists(origin) {
		info, err := idx.storage.SaveCatalog(ctx, records, source)
		if err != nil {
			metrics.CatalogImportsTotal.WithLabelValues(string(origin), "error").Inc()
			return nil, fmt.Errorf("failed to persist catalog: %w", err)
		}
		res.Import = info
	}
	res.Snapshot = idx.store.Replace(records, source)
	metrics.ObserveCatalog(string(origin), res.Snapshot.Version, res.Snapshot.Len())
	idx.logger.Info("catalog installed",
		zap.String("origin", string(origin)),
		zap.String("source", source),
		zap.Int("records", res.Snapshot.Len()),
		zap.Uint64("version", res.Snapshot.Version),
	)
	return res, nil
}

func persists(origin Origin) bool {
	return origin == OriginUpload || origin == OriginFile
}

// Restore installs the catalog saved in storage.
func (idx *Indexer) Restore(ctx context.Context) (*Result, error) {
	if idx.storage == nil {
		return nil, storage.ErrNoCatalog
	}
	records, info, err := idx.storage.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	res, err := idx.Install(ctx, records, info.Source, OriginStorage)
	if err != nil {
		return nil, err
	}
	res.Import = info
	return res, nil
}

// SeedDefault installs the built-in demonstration catalog.
func (idx *Indexer) SeedDefault(ctx context.Context) (*Result, error) {
	return idx.Install(ctx, catalog.DefaultRecords(), DefaultSource, OriginDefault)
}

// Bootstrap installs the startup catalog: the file at path when set and readable,
// otherwise the stored catalog, otherwise the demonstration catalog when seed is true.
func (idx *Indexer) Bootstrap(ctx context.Context, path string, seed bool) (*Result, error) {
	if path != "" {
		res, err := idx.IndexFile(ctx, path)
		if err == nil {
			return res, nil
		}
		idx.logger.Warn("catalog file not loaded, falling back", zap.String("path", path), zap.Error(err))
	}
	res, err := idx.Restore(ctx)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, storage.ErrNoCatalog) {
		idx.logger.Warn("stored catalog not loaded", zap.Error(err))
	}
	if seed {
		return idx.SeedDefault(ctx)
	}
	return nil, ErrNoCatalogSource
}

// Store returns the catalog store the indexer installs into.
func (idx *Indexer) Store() *catalog.Store {
	return idx.store
}

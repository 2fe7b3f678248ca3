// Package storage defines the persistence interface for the service catalog.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hyperjump/banshi/internal/models"
)

// ErrNoCatalog is returned by LoadCatalog when no catalog has been saved yet.
var ErrNoCatalog = errors.New("no catalog stored")

// ImportInfo describes one saved catalog version.
type ImportInfo struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	RecordCount int       `json:"record_count"`
	ImportedAt  time.Time `json:"imported_at"`
}

// Storage defines catalog persistence operations.
type Storage interface {
	// SaveCatalog replaces the stored catalog with records, preserving their order.
	SaveCatalog(ctx context.Context, records []models.ServiceRecord, source string) (*ImportInfo, error)
	// LoadCatalog returns the stored records in catalog order and the import that produced them.
	LoadCatalog(ctx context.Context) ([]models.ServiceRecord, *ImportInfo, error)
	// ListImports returns the most recent imports, newest first.
	ListImports(ctx context.Context, limit int) ([]ImportInfo, error)

	CountRecords(ctx context.Context) (int64, error)
	Close() error
}

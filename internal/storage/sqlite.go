// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/banshi/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS catalog_imports (
		id TEXT PRIMARY KEY,
		source TEXT,
		record_count INTEGER NOT NULL,
		imported_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_imports_imported_at ON catalog_imports(imported_at);

	CREATE TABLE IF NOT EXISTS service_records (
		position INTEGER PRIMARY KEY,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		short_name TEXT,
		status TEXT,
		applicant TEXT,
		category TEXT,
		tags TEXT,
		region TEXT,
		channels TEXT,
		high_frequency INTEGER NOT NULL DEFAULT 0,
		satisfaction REAL,
		visits INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_records_code ON service_records(code);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveCatalog replaces all stored records in a single transaction.
func (s *SQLiteStorage) SaveCatalog(ctx context.Context, records []models.ServiceRecord, source string) (*ImportInfo, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM service_records`); err != nil {
		return nil, fmt.Errorf("failed to clear records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO service_records (position, code, name, short_name, status, applicant, category,
			tags, region, channels, high_frequency, satisfaction, visits)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	for i := range records {
		rec := &records[i]
		channels, err := json.Marshal(rec.Channels)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal channels: %w", err)
		}
		var satisfaction sql.NullFloat64
		if rec.Satisfaction != nil {
			satisfaction = sql.NullFloat64{Float64: *rec.Satisfaction, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, i, rec.Code, rec.Name, rec.ShortName, rec.Status,
			rec.Applicant.String(), rec.Category, rec.Tags, rec.Region, string(channels),
			rec.HighFrequency, satisfaction, rec.Visits,
		); err != nil {
			return nil, fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}

	info := &ImportInfo{
		ID:          uuid.NewString(),
		Source:      source,
		RecordCount: len(records),
		ImportedAt:  time.Now().UTC(),
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO catalog_imports (id, source, record_count, imported_at) VALUES (?, ?, ?, ?)`,
		info.ID, info.Source, info.RecordCount, info.ImportedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to record import: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return info, nil
}

// LoadCatalog returns the stored catalog. It returns ErrNoCatalog if nothing was ever saved.
func (s *SQLiteStorage) LoadCatalog(ctx context.Context) ([]models.ServiceRecord, *ImportInfo, error) {
	imports, err := s.ListImports(ctx, 1)
	if err != nil {
		return nil, nil, err
	}
	if len(imports) == 0 {
		return nil, nil, ErrNoCatalog
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT code, name, short_name, status, applicant, category, tags, region, channels,
			high_frequency, satisfaction, visits
		 FROM service_records ORDER BY position`,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	records := make([]models.ServiceRecord, 0, imports[0].RecordCount)
	for rows.Next() {
		var (
			rec          models.ServiceRecord
			applicant    string
			channelsJSON sql.NullString
			satisfaction sql.NullFloat64
		)
		if err := rows.Scan(&rec.Code, &rec.Name, &rec.ShortName, &rec.Status, &applicant,
			&rec.Category, &rec.Tags, &rec.Region, &channelsJSON, &rec.HighFrequency,
			&satisfaction, &rec.Visits,
		); err != nil {
			return nil, nil, err
		}
		rec.Applicant = models.ParseApplicantType(applicant)
		if channelsJSON.Valid && channelsJSON.String != "" {
			if err := json.Unmarshal([]byte(channelsJSON.String), &rec.Channels); err != nil {
				return nil, nil, fmt.Errorf("failed to unmarshal channels for %s: %w", rec.Code, err)
			}
		}
		if satisfaction.Valid {
			v := satisfaction.Float64
			rec.Satisfaction = &v
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return records, &imports[0], nil
}

// ListImports returns up to limit imports ordered newest first.
func (s *SQLiteStorage) ListImports(ctx context.Context, limit int) ([]ImportInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, record_count, imported_at
		 FROM catalog_imports ORDER BY imported_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var imports []ImportInfo
	for rows.Next() {
		var info ImportInfo
		var source sql.NullString
		if err := rows.Scan(&info.ID, &source, &info.RecordCount, &info.ImportedAt); err != nil {
			return nil, err
		}
		info.Source = source.String
		imports = append(imports, info)
	}
	return imports, rows.Err()
}

// CountRecords returns the number of stored records.
func (s *SQLiteStorage) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM service_records`).Scan(&count)
	return count, err
}

// SizeBytes returns the on-disk size of the database including its WAL files.
func (s *SQLiteStorage) SizeBytes() (int64, error) {
	return DiskUsageBytes(s.path, s.path+"-wal", s.path+"-shm")
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// IsNoCatalog reports whether err means no catalog has been stored.
func IsNoCatalog(err error) bool {
	return errors.Is(err, ErrNoCatalog)
}

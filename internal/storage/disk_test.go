package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()

	f1 := filepath.Join(dir, "catalog.db")
	if err := os.WriteFile(f1, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	f2 := filepath.Join(dir, "catalog.db-wal")
	if err := os.WriteFile(f2, []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := DiskUsageBytes(f1, f2, filepath.Join(dir, "catalog.db-shm"), "")
	if err != nil {
		t.Fatal(err)
	}
	if got != 8 {
		t.Errorf("got %d bytes, want 8", got)
	}

	// Directories are not summed.
	got, err = DiskUsageBytes(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("dir: got %d bytes, want 0", got)
	}
}

package sync

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vmunix/ytarr/internal/migrations"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestHistoryStore_AddAndList(t *testing.T) {
	store := NewHistoryStore(setupTestDB(t))
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	first := &Record{
		SourceID:   "src-1",
		SourceName: "Tech Talks",
		StartedAt:  base,
		FinishedAt: base.Add(time.Minute),
		NewVideos:  3,
	}
	if err := store.Add(first); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if first.ID == 0 {
		t.Errorf("Add() did not set the record id")
	}

	second := &Record{
		SourceID:   "src-2",
		SourceName: "Cooking",
		StartedAt:  base.Add(time.Hour),
		FinishedAt: base.Add(time.Hour + time.Minute),
		Error:      "listing failed",
	}
	if err := store.Add(second); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	records, err := store.List("", 50)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("List() = %d records, want 2", len(records))
	}
	// Newest first.
	if records[0].SourceID != "src-2" {
		t.Errorf("List() order wrong, got %s first", records[0].SourceID)
	}
	if records[0].Error != "listing failed" {
		t.Errorf("Error = %q, want listing failed", records[0].Error)
	}
	if records[1].NewVideos != 3 {
		t.Errorf("NewVideos = %d, want 3", records[1].NewVideos)
	}
}

func TestHistoryStore_ListFiltersBySource(t *testing.T) {
	store := NewHistoryStore(setupTestDB(t))
	base := time.Now().UTC()

	for i, src := range []string{"src-1", "src-2", "src-1"} {
		r := &Record{
			SourceID:   src,
			SourceName: src,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
		}
		if err := store.Add(r); err != nil {
			t.Fatalf("Add() error: %v", err)
		}
	}

	records, err := store.List("src-1", 50)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("List(src-1) = %d records, want 2", len(records))
	}
	for _, r := range records {
		if r.SourceID != "src-1" {
			t.Errorf("List(src-1) returned record for %s", r.SourceID)
		}
	}
}

func TestHistoryStore_ListLimit(t *testing.T) {
	store := NewHistoryStore(setupTestDB(t))
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		r := &Record{
			SourceID:   "src-1",
			SourceName: "Tech Talks",
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Add(r); err != nil {
			t.Fatalf("Add() error: %v", err)
		}
	}

	records, err := store.List("", 2)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("List(limit=2) = %d records, want 2", len(records))
	}
}

func TestHistoryStore_Prune(t *testing.T) {
	store := NewHistoryStore(setupTestDB(t))
	cutoff := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	old := &Record{SourceID: "s", SourceName: "s", StartedAt: cutoff.Add(-time.Hour), FinishedAt: cutoff.Add(-time.Hour)}
	fresh := &Record{SourceID: "s", SourceName: "s", StartedAt: cutoff.Add(time.Hour), FinishedAt: cutoff.Add(time.Hour)}
	if err := store.Add(old); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if err := store.Add(fresh); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	removed, err := store.Prune(cutoff)
	if err != nil {
		t.Fatalf("Prune() error: %v", err)
	}
	if removed != 1 {
		t.Errorf("Prune() removed %d, want 1", removed)
	}

	records, err := store.List("", 50)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(records) != 1 || records[0].ID != fresh.ID {
		t.Errorf("Prune() removed the wrong record")
	}
}

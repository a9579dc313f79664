package sync

import (
	"database/sql"
	"fmt"
	"time"
)

// Record is one completed sync cycle.
type Record struct {
	ID         int64     `json:"id"`
	SourceID   string    `json:"source_id"`
	SourceName string    `json:"source_name"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	NewVideos  int       `json:"new_videos"`
	Error      string    `json:"error,omitempty"`
}

// HistoryStore persists sync cycle outcomes.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore creates a history store.
func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Add appends a cycle record and sets its ID.
func (s *HistoryStore) Add(r *Record) error {
	res, err := s.db.Exec(
		`INSERT INTO sync_history (source_id, source_name, started_at, finished_at, new_videos, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.SourceID, r.SourceName, r.StartedAt, r.FinishedAt, r.NewVideos, r.Error,
	)
	if err != nil {
		return fmt.Errorf("add history: %w", err)
	}
	r.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("add history: %w", err)
	}
	return nil
}

// List returns the most recent cycles, newest first. sourceID filters to one
// source when non-empty.
func (s *HistoryStore) List(sourceID string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, source_id, source_name, started_at, finished_at, new_videos, error
		FROM sync_history`
	args := []any{}
	if sourceID != "" {
		query += " WHERE source_id = ?"
		args = append(args, sourceID)
	}
	query += " ORDER BY started_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*Record
	for rows.Next() {
		r := &Record{}
		if err := rows.Scan(&r.ID, &r.SourceID, &r.SourceName, &r.StartedAt, &r.FinishedAt, &r.NewVideos, &r.Error); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Prune removes records older than the cutoff. Returns how many were removed.
func (s *HistoryStore) Prune(before time.Time) (int64, error) {
	res, err := s.db.Exec("DELETE FROM sync_history WHERE started_at < ?", before)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

package store

import (
	"context"
	"fmt"
)

// Journal entry kinds.
const (
	KindIntent     = "intent"
	KindCompletion = "completion"
	KindTimer      = "timer"
)

// JournalEntry records one event processed by the engine.
type JournalEntry struct {
	ID     int64  `json:"id"`
	RunID  string `json:"run_id"`
	Seq    int64  `json:"seq"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}

// AppendJournal appends an entry. Entries are keyed by (run_id, seq);
// a duplicate is silently ignored so a replayed write is idempotent.
func (s *Store) AppendJournal(ctx context.Context, e JournalEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journal (run_id, seq, name, kind, detail, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, e.RunID, e.Seq, e.Name, e.Kind, e.Detail, e.Error)
	if err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}

// ReadJournal returns the most recent limit entries in append order.
// A limit <= 0 returns every entry.
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ReadJournal(ctx context.Context, limit int) ([]JournalEntry, error) {
	query := `
		SELECT id, run_id, seq, name, kind, detail, error FROM (
			SELECT * FROM journal ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC
	`
	if limit <= 0 {
		limit = -1
	}
	return s.queryJournal(ctx, query, limit)
}

// ReadRun returns every entry of one process run in seq order.
func (s *Store) ReadRun(ctx context.Context, runID string) ([]JournalEntry, error) {
	return s.queryJournal(ctx, `
		SELECT id, run_id, seq, name, kind, detail, error
		FROM journal
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
}

func (s *Store) queryJournal(ctx context.Context, query string, args ...any) ([]JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := []JournalEntry{}
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.RunID, &e.Seq, &e.Name, &e.Kind, &e.Detail, &e.Error); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}

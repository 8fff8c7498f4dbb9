// Package history persists completed submissions and their transcripts in
// SQLite. Partial stream output is never stored; a transcript row is written
// only when a session reaches a terminal state.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Submission is one submitted request.
type Submission struct {
	ID          string
	AgentID     string
	Text        string
	Attachments int
	StreamID    string
	Status      string // pending | done | error
	CreatedAt   time.Time
}

// Transcript is the final assembled output of one submission.
type Transcript struct {
	SubmissionID string
	Content      string
	CompletedAt  time.Time
}

// Store is a SQLite-backed history store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// SQLite: single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS submissions (
		id          TEXT PRIMARY KEY,
		agent_id    TEXT NOT NULL,
		text        TEXT,
		attachments INTEGER DEFAULT 0,
		stream_id   TEXT,
		status      TEXT NOT NULL DEFAULT 'pending',
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_submissions_time ON submissions(created_at);

	CREATE TABLE IF NOT EXISTS transcripts (
		submission_id TEXT PRIMARY KEY REFERENCES submissions(id) ON DELETE CASCADE,
		content       TEXT,
		completed_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS counters (
		name  TEXT PRIMARY KEY,
		value INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordSubmission inserts a pending submission row.
func (s *Store) RecordSubmission(ctx context.Context, sub Submission) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	if sub.Status == "" {
		sub.Status = "pending"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, agent_id, text, attachments, stream_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.AgentID, sub.Text, sub.Attachments, sub.StreamID, sub.Status, sub.CreatedAt,
	)
	return err
}

// Complete marks a submission terminal and stores its transcript.
func (s *Store) Complete(ctx context.Context, submissionID, status, content string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE submissions SET status = ? WHERE id = ?`, status, submissionID,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO transcripts (submission_id, content, completed_at)
		 VALUES (?, ?, ?)`,
		submissionID, content, time.Now(),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// AddCounters folds counter deltas into the counters table. Zero deltas
// are skipped so an idle run leaves no rows behind.
func (s *Store) AddCounters(ctx context.Context, deltas map[string]int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for name, delta := range deltas {
		if delta == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO counters (name, value) VALUES (?, ?)
			 ON CONFLICT(name) DO UPDATE SET value = value + excluded.value`,
			name, delta,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Counters returns the accumulated counter values keyed by name.
func (s *Store) Counters(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM counters`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var name string
		var value int64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		counts[name] = value
	}
	return counts, rows.Err()
}

// List returns the most recent submissions, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent_id, text, attachments, stream_id, status, created_at
		 FROM submissions ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		var sub Submission
		if err := rows.Scan(&sub.ID, &sub.AgentID, &sub.Text, &sub.Attachments,
			&sub.StreamID, &sub.Status, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Get returns one submission and its transcript if one was recorded.
func (s *Store) Get(ctx context.Context, id string) (*Submission, *Transcript, error) {
	var sub Submission
	err := s.db.QueryRowContext(ctx,
		`SELECT id, agent_id, text, attachments, stream_id, status, created_at
		 FROM submissions WHERE id = ?`, id,
	).Scan(&sub.ID, &sub.AgentID, &sub.Text, &sub.Attachments,
		&sub.StreamID, &sub.Status, &sub.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("submission %s not found", id)
	}
	if err != nil {
		return nil, nil, err
	}

	var tr Transcript
	err = s.db.QueryRowContext(ctx,
		`SELECT submission_id, content, completed_at FROM transcripts WHERE submission_id = ?`, id,
	).Scan(&tr.SubmissionID, &tr.Content, &tr.CompletedAt)
	if err == sql.ErrNoRows {
		return &sub, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return &sub, &tr, nil
}

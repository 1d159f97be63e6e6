// Package journal records every line a session interprets in an SQLite
// database, so a WebSocket session can be audited after it is gone.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/antibyte/linebasic/pkg/logger"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Outcomes stored with each entry.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Entry is one interpreted line.
type Entry struct {
	ID        string
	SessionID string
	Line      string
	Outcome   string
	ErrorText string
	CreatedAt time.Time
}

// Journal is a handle on the statements database. It is safe for concurrent
// use by several sessions.
type Journal struct {
	conn *sql.DB
}

// Open opens or creates the database at path and makes sure the schema exists.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// SQLite serialisiert Schreibzugriffe ohnehin
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	j := &Journal{conn: db}
	if err := j.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info(logger.AreaJournal, "journal opened at %s", path)
	return j, nil
}

func (j *Journal) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS statements (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			line TEXT NOT NULL,
			outcome TEXT NOT NULL,
			error_text TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_statements_session ON statements(session_id, created_at)`,
	}
	for _, query := range queries {
		if _, err := j.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to create journal schema: %w", err)
		}
	}
	return nil
}

// Record stores e. ID and CreatedAt are filled in when empty; the stored ID
// is returned.
func (j *Journal) Record(ctx context.Context, e Entry) (string, error) {
	if e.SessionID == "" {
		return "", errors.New("journal entry without session ID")
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeOK
	}

	_, err := j.conn.ExecContext(ctx, `
		INSERT INTO statements (id, session_id, line, outcome, error_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.SessionID, e.Line, e.Outcome, e.ErrorText, e.CreatedAt.UnixNano())
	if err != nil {
		return "", fmt.Errorf("error saving journal entry: %w", err)
	}
	logger.Debug(logger.AreaJournal, "[%s] recorded %q (%s)", e.SessionID, e.Line, e.Outcome)
	return e.ID, nil
}

// Recent returns up to limit entries of sessionID, newest first.
func (j *Journal) Recent(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.conn.QueryContext(ctx, `
		SELECT id, session_id, line, outcome, error_text, created_at
		FROM statements
		WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("error reading journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Line, &e.Outcome, &e.ErrorText, &created); err != nil {
			return nil, fmt.Errorf("error scanning journal entry: %w", err)
		}
		e.CreatedAt = time.Unix(0, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of entries recorded for sessionID.
func (j *Journal) Count(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := j.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM statements WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error counting journal entries: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.conn.Close()
}

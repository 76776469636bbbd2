// Package store persists reference tables and session results in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/plonkgame/plonk/internal/game"
	"github.com/plonkgame/plonk/internal/reference"
)

var ErrNotFound = errors.New("not found")

const timeFormat = "2006-01-02T15:04:05.000Z"

// SessionInfo is one row of the session listing.
type SessionInfo struct {
	ID          string      `json:"id"`
	Fingerprint string      `json:"fingerprint"`
	Status      game.Status `json:"status"`
	StartedAt   string      `json:"startedAt"`
	FinishedAt  *string     `json:"finishedAt,omitempty"`
}

// SessionRecord is a stored session with its rounds and final summary.
type SessionRecord struct {
	SessionInfo
	Rounds  []game.Round  `json:"rounds"`
	Summary *game.Summary `json:"summary,omitempty"`
}

// SQLiteStore expects a database migrated with internal/migrations.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) stamp() string {
	return s.now().UTC().Format(timeFormat)
}

// ReferenceEntries implements reference.Repository. ok is false when nothing
// is stored under fingerprint.
func (s *SQLiteStore) ReferenceEntries(ctx context.Context, fingerprint string) ([]reference.Entry, bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT json(data) FROM reference_entries
		WHERE fingerprint = ?
		ORDER BY idx
	`, fingerprint)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var entries []reference.Entry
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, false, err
		}
		var e reference.Entry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, false, fmt.Errorf("decoding reference entry %d: %w", len(entries), err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return entries, len(entries) > 0, nil
}

// SaveReferenceEntries replaces whatever is stored under fingerprint.
func (s *SQLiteStore) SaveReferenceEntries(ctx context.Context, fingerprint string, entries []reference.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reference_entries WHERE fingerprint = ?`, fingerprint); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reference_entries (fingerprint, idx, item_id, data)
		VALUES (?, ?, ?, jsonb(?))
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, fingerprint, i, e.ID, string(data)); err != nil {
			return fmt.Errorf("inserting reference entry %d: %w", i, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reference_tables (fingerprint, items, created_at) VALUES (?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET items = excluded.items, created_at = excluded.created_at
	`, fingerprint, len(entries), s.stamp())
	if err != nil {
		return err
	}
	return tx.Commit()
}

// LatestFingerprint returns the most recently stored reference table.
func (s *SQLiteStore) LatestFingerprint(ctx context.Context) (string, error) {
	var fp string
	err := s.db.QueryRowContext(ctx, `
		SELECT fingerprint FROM reference_tables
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return fp, err
}

// CreateSession registers a new in-progress session.
func (s *SQLiteStore) CreateSession(ctx context.Context, id, fingerprint string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, fingerprint, status, started_at)
		VALUES (?, ?, ?, ?)
	`, id, fingerprint, string(game.StatusInProgress), s.stamp())
	return err
}

// RecordRound stores one round of sessionID. Recording the same index twice
// is an error.
func (s *SQLiteStore) RecordRound(ctx context.Context, sessionID, itemID string, r game.Round) error {
	hit := 0
	if r.CountryHit {
		hit = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rounds (session_id, idx, item_id, lat, lon, score, distance, elapsed_ms, country_hit, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sessionID, r.Index, itemID, r.Click.Lat, r.Click.Lon, r.Score, r.Distance,
		int64(math.Round(r.ElapsedSeconds*1000)), hit, s.stamp())
	return err
}

// RecordSummary stores the final summary and marks the session finished.
func (s *SQLiteStore) RecordSummary(ctx context.Context, sessionID string, sum game.Summary) error {
	data, err := json.Marshal(sum)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE sessions SET status = ?, finished_at = ?
		WHERE id = ?
	`, string(game.StatusFinished), s.stamp(), sessionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO summaries (session_id, rounds, data) VALUES (?, ?, jsonb(?))
		ON CONFLICT(session_id) DO UPDATE SET rounds = excluded.rounds, data = excluded.data
	`, sessionID, sum.Rounds, string(data))
	if err != nil {
		return err
	}
	return tx.Commit()
}

// ListSessions returns the most recent sessions first.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fingerprint, status, started_at, finished_at
		FROM sessions
		ORDER BY started_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SessionInfo{}
	for rows.Next() {
		info, err := scanSessionInfo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSessionInfo(row scanner) (SessionInfo, error) {
	var info SessionInfo
	var status string
	var finishedAt sql.NullString
	if err := row.Scan(&info.ID, &info.Fingerprint, &status, &info.StartedAt, &finishedAt); err != nil {
		return info, err
	}
	info.Status = game.Status(status)
	if finishedAt.Valid {
		info.FinishedAt = &finishedAt.String
	}
	return info, nil
}

// Session loads one session with its rounds and summary.
func (s *SQLiteStore) Session(ctx context.Context, id string) (SessionRecord, error) {
	var rec SessionRecord
	info, err := scanSessionInfo(s.db.QueryRowContext(ctx, `
		SELECT id, fingerprint, status, started_at, finished_at
		FROM sessions WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	rec.SessionInfo = info

	if rec.Rounds, err = s.rounds(ctx, id); err != nil {
		return rec, err
	}

	var data string
	err = s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM summaries WHERE session_id = ?`, id,
	).Scan(&data)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return rec, err
	default:
		var sum game.Summary
		if err := json.Unmarshal([]byte(data), &sum); err != nil {
			return rec, fmt.Errorf("decoding summary: %w", err)
		}
		rec.Summary = &sum
	}
	return rec, nil
}

func (s *SQLiteStore) rounds(ctx context.Context, sessionID string) ([]game.Round, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, lat, lon, score, distance, elapsed_ms, country_hit
		FROM rounds WHERE session_id = ?
		ORDER BY idx
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []game.Round{}
	for rows.Next() {
		var r game.Round
		var elapsedMS int64
		var hit int
		if err := rows.Scan(&r.Index, &r.Click.Lat, &r.Click.Lon, &r.Score, &r.Distance, &elapsedMS, &hit); err != nil {
			return nil, err
		}
		r.ElapsedSeconds = float64(elapsedMS) / 1000
		r.CountryHit = hit == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

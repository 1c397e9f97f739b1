package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/triage/internal/model"
)

// SQLiteStore persists incidents in a SQLite database.
type SQLiteStore struct {
	conn *sql.DB
	now  func() time.Time
}

// Open creates or opens the incident database at path and runs
// migrations. WAL mode and a busy timeout are set through DSN pragmas,
// and the pool is capped at one connection: the id allocation in
// CreateIncident is a read-then-write transaction, so concurrent writers
// must serialize here rather than collide with SQLITE_BUSY.
func Open(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	s := &SQLiteStore{conn: conn, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS incidents (
    seq           INTEGER PRIMARY KEY AUTOINCREMENT,
    id            TEXT NOT NULL UNIQUE,
    user_id       TEXT NOT NULL,
    user_name     TEXT,
    user_email    TEXT,
    category      TEXT NOT NULL,
    description   TEXT NOT NULL,
    date_observed TEXT NOT NULL,
    status        TEXT NOT NULL DEFAULT 'Open',
    level         INTEGER NOT NULL DEFAULT 2,
    date_created  DATETIME NOT NULL,
    last_updated  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_incidents_user ON incidents(user_id);
CREATE INDEX IF NOT EXISTS idx_incidents_user_status ON incidents(user_id, status);
`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// CreateIncident inserts a new incident. The display id (BUG-00042) is
// derived from a global counter inside the insert transaction, so ids
// are unique across users.
func (s *SQLiteStore) CreateIncident(ctx context.Context, inc model.Incident) (model.Incident, error) {
	if !model.ValidCategory(inc.Category) {
		return model.Incident{}, fmt.Errorf("invalid category: %s", inc.Category)
	}

	now := s.now().UTC()
	inc.Status = model.StatusOpen
	inc.DateCreated = now
	inc.LastUpdated = now
	if inc.Level == 0 {
		inc.Level = 2
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return model.Incident{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM incidents`).Scan(&next); err != nil {
		return model.Incident{}, fmt.Errorf("next incident number: %w", err)
	}
	inc.ID = model.FormatIncidentID(next)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO incidents
		(id, user_id, user_name, user_email, category, description,
		 date_observed, status, level, date_created, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inc.ID, inc.UserID, inc.UserName, inc.UserEmail, inc.Category,
		inc.Description, inc.DateObserved, inc.Status, inc.Level,
		inc.DateCreated, inc.LastUpdated)
	if err != nil {
		return model.Incident{}, fmt.Errorf("insert incident: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Incident{}, fmt.Errorf("commit: %w", err)
	}

	return inc, nil
}

// IncidentsForUser returns all incidents for userID, newest first.
func (s *SQLiteStore) IncidentsForUser(ctx context.Context, userID string) ([]model.Incident, error) {
	return s.query(ctx, `
		SELECT id, user_id, user_name, user_email, category, description,
		       date_observed, status, level, date_created, last_updated
		FROM incidents
		WHERE user_id = ?
		ORDER BY seq DESC`, userID)
}

// IncidentsForUserByStatus returns a user's incidents in any of the
// given statuses, newest first.
func (s *SQLiteStore) IncidentsForUserByStatus(ctx context.Context, userID string, statuses ...string) ([]model.Incident, error) {
	if len(statuses) == 0 {
		return s.IncidentsForUser(ctx, userID)
	}

	placeholders := strings.Repeat("?,", len(statuses))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]interface{}, 0, len(statuses)+1)
	args = append(args, userID)
	for _, st := range statuses {
		args = append(args, st)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, user_name, user_email, category, description,
		       date_observed, status, level, date_created, last_updated
		FROM incidents
		WHERE user_id = ? AND status IN (%s)
		ORDER BY seq DESC`, placeholders)

	return s.query(ctx, query, args...)
}

// UpdateStatus moves the incident to newStatus. Returns nil when no
// incident matches the id and user.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, incidentID, userID, newStatus string) (*model.Incident, error) {
	if !model.ValidStatus(newStatus) {
		return nil, fmt.Errorf("invalid status: %s", newStatus)
	}

	res, err := s.conn.ExecContext(ctx, `
		UPDATE incidents SET status = ?, last_updated = ?
		WHERE id = ? AND user_id = ?`,
		newStatus, s.now().UTC(), incidentID, userID)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	incidents, err := s.query(ctx, `
		SELECT id, user_id, user_name, user_email, category, description,
		       date_observed, status, level, date_created, last_updated
		FROM incidents WHERE id = ?`, incidentID)
	if err != nil {
		return nil, err
	}
	if len(incidents) == 0 {
		return nil, nil
	}
	return &incidents[0], nil
}

// UpdateLevel sets the classified level on an incident.
func (s *SQLiteStore) UpdateLevel(ctx context.Context, incidentID string, level int) error {
	if level < model.MinLevel || level > model.MaxLevel {
		return fmt.Errorf("level %d out of range", level)
	}

	res, err := s.conn.ExecContext(ctx, `
		UPDATE incidents SET level = ?, last_updated = ?
		WHERE id = ?`,
		level, s.now().UTC(), incidentID)
	if err != nil {
		return fmt.Errorf("update level: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("incident %s not found", incidentID)
	}
	return nil
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...interface{}) ([]model.Incident, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var incidents []model.Incident
	for rows.Next() {
		var inc model.Incident
		if err := rows.Scan(&inc.ID, &inc.UserID, &inc.UserName, &inc.UserEmail,
			&inc.Category, &inc.Description, &inc.DateObserved, &inc.Status,
			&inc.Level, &inc.DateCreated, &inc.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}

	return incidents, nil
}

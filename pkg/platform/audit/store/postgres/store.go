package postgres

import (
	"context"
	"database/sql"
	"fmt"

	audit "creditrisk/pkg/platform/audit"
	txcontext "creditrisk/pkg/platform/tx"

	"github.com/google/uuid"
)

// Store implements audit.Store on a single audit_events table.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id            UUID PRIMARY KEY,
	category      TEXT NOT NULL,
	timestamp     TIMESTAMPTZ NOT NULL,
	action        TEXT NOT NULL,
	request_id    TEXT NOT NULL DEFAULT '',
	channel       TEXT NOT NULL DEFAULT '',
	subject       TEXT NOT NULL DEFAULT '',
	decision      TEXT NOT NULL DEFAULT '',
	risk_grade    TEXT NOT NULL DEFAULT '',
	probability   DOUBLE PRECISION NOT NULL DEFAULT 0,
	model_version TEXT NOT NULL DEFAULT '',
	method        TEXT NOT NULL DEFAULT '',
	reason        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS audit_events_request_id_idx ON audit_events (request_id);
CREATE INDEX IF NOT EXISTS audit_events_timestamp_idx ON audit_events (timestamp DESC);
`

// EnsureSchema creates the audit table and its indexes when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.execer(ctx).ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// Append inserts an event. Replays of the same event id are ignored.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	// Category is always derived from the action.
	category := audit.AuditEvent(event.Action).Category()

	query := `
		INSERT INTO audit_events (
			id, category, timestamp, action, request_id, channel, subject,
			decision, risk_grade, probability, model_version, method, reason
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		event.ID,
		string(category),
		event.Timestamp,
		event.Action,
		event.RequestID,
		event.Channel,
		event.Subject,
		event.Decision,
		event.RiskGrade,
		event.Probability,
		event.ModelVersion,
		event.Method,
		event.Reason,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, category, timestamp, action, request_id, channel, subject,
		   decision, risk_grade, probability, model_version, method, reason
	FROM audit_events
`

// ListByRequest returns the events of one request, oldest first.
func (s *Store) ListByRequest(ctx context.Context, requestID string) ([]audit.Event, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, selectColumns+`
		WHERE request_id = $1
		ORDER BY timestamp ASC
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// ListRecent returns the N most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, selectColumns+`
		ORDER BY timestamp DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

func (s *Store) scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	events := make([]audit.Event, 0)

	for rows.Next() {
		var (
			category string
			event    audit.Event
		)
		err := rows.Scan(
			&event.ID,
			&category,
			&event.Timestamp,
			&event.Action,
			&event.RequestID,
			&event.Channel,
			&event.Subject,
			&event.Decision,
			&event.RiskGrade,
			&event.Probability,
			&event.ModelVersion,
			&event.Method,
			&event.Reason,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

// Package eventstore persists ingested engagement events to Postgres.
// The table is append-only: rows are inserted in arrival order and never
// updated or deleted, matching the data-layer contract.
package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/google/uuid"

	"github.com/leadlab/engage/internal/engagement"
	"github.com/leadlab/engage/internal/pkg/logger"
)

// Store inserts rows into the engagement_events table.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append inserts one stamped engagement entry for a visitor.
func (s *Store) Append(ctx context.Context, visitorID string, e engagement.Entry) error {
	attrs, err := json.Marshal(e.Attrs)
	if err != nil {
		attrs = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO engagement_events (id, visitor_id, event_type, event_category, event_action, event_label, page_path, page_title, attributes, event_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.NewString(), visitorID, string(e.Event), e.Category, e.Action, e.Label, e.PagePath, e.PageTitle, attrs, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// AsSink adapts the store to an engagement.Sink scoped to one visitor.
// Insert failures are logged and absorbed: producers never observe
// persistence errors.
func (s *Store) AsSink(ctx context.Context, visitorID string) engagement.Sink {
	return engagement.SinkFunc(func(e engagement.Entry) {
		if err := s.Append(ctx, visitorID, e); err != nil {
			logger.Error("event persist failed", "event", string(e.Event), "error", err.Error())
		}
	})
}

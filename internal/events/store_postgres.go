package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	// Registers the postgres driver for database/sql.
	_ "github.com/lib/pq"

	id "badgemint/pkg/domain"
)

// PostgresStore persists the event stream in an append-only table. The table
// is insert-only; events are never updated or deleted.
//
// Schema:
//
//	CREATE TABLE identity_events (
//	    id          UUID PRIMARY KEY,
//	    action      TEXT NOT NULL,
//	    occurred_at TIMESTAMPTZ NOT NULL,
//	    token_id    BIGINT NOT NULL,
//	    caller      TEXT NOT NULL,
//	    payload     JSONB NOT NULL
//	);
//	CREATE INDEX identity_events_token_idx ON identity_events (token_id, occurred_at);
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle. Lifecycle is managed by
// the caller.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens a database/sql handle using the pq driver.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	const query = `
		INSERT INTO identity_events (id, action, occurred_at, token_id, caller, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.db.ExecContext(ctx, query,
		event.ID, string(event.Action), event.Timestamp, int64(event.TokenID), event.Caller.String(), payload,
	); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByToken(ctx context.Context, tokenID id.TokenID) ([]Event, error) {
	const query = `
		SELECT payload FROM identity_events
		WHERE token_id = $1
		ORDER BY occurred_at
	`
	rows, err := s.db.QueryContext(ctx, query, int64(tokenID))
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

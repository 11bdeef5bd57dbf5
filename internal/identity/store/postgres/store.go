// Package postgres provides the durable registry and config backends.
//
// Schema:
//
//	CREATE TABLE registry_config (
//	    singleton      BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
//	    admin          TEXT NOT NULL,
//	    access_control TEXT NOT NULL,
//	    treasury       TEXT NOT NULL,
//	    mint_fee       NUMERIC(39, 0) NOT NULL
//	);
//
//	CREATE TABLE registry_counter (
//	    singleton BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
//	    next_id   BIGINT NOT NULL
//	);
//	INSERT INTO registry_counter (singleton, next_id) VALUES (TRUE, 1);
//
//	CREATE TABLE identity_tokens (
//	    token_id      BIGINT PRIMARY KEY,
//	    username      TEXT NOT NULL,
//	    contributions BIGINT NOT NULL,
//	    tier          TEXT NOT NULL,
//	    minted_at     TIMESTAMPTZ NOT NULL,
//	    updated_at    TIMESTAMPTZ NOT NULL,
//	    proof_data    BYTEA
//	);
//
//	CREATE TABLE identity_holders (
//	    holder   TEXT PRIMARY KEY,
//	    token_id BIGINT NOT NULL UNIQUE REFERENCES identity_tokens (token_id)
//	);
//
// Token IDs come from the counter row, not a sequence: sequences advance even
// when a transaction rolls back, and token IDs must stay gapless with the
// counter moving only on committed mints. The row update serializes
// concurrent mints and rolls back with the rest of the transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"badgemint/internal/identity/models"
	id "badgemint/pkg/domain"
	"badgemint/pkg/platform/sentinel"
)

// Registry is the pgx-backed identity registry.
type Registry struct {
	pool *pgxpool.Pool
}

// NewRegistry wraps a pgx pool. Lifecycle is managed by the caller.
func NewRegistry(pool *pgxpool.Pool) *Registry {
	return &Registry{pool: pool}
}

func (s *Registry) HasIdentity(ctx context.Context, holder id.HolderID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM identity_holders WHERE holder = $1)`,
		holder.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has identity: %w", err)
	}
	return exists, nil
}

func (s *Registry) HolderToken(ctx context.Context, holder id.HolderID) (id.TokenID, error) {
	var tokenID int64
	err := s.pool.QueryRow(ctx,
		`SELECT token_id FROM identity_holders WHERE holder = $1`,
		holder.String(),
	).Scan(&tokenID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, sentinel.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("holder token: %w", err)
	}
	return id.TokenID(tokenID), nil
}

func (s *Registry) TokenData(ctx context.Context, tokenID id.TokenID) (models.IdentityRecord, error) {
	return scanRecord(s.pool.QueryRow(ctx,
		`SELECT username, contributions, tier, minted_at, updated_at, proof_data
		 FROM identity_tokens WHERE token_id = $1`,
		int64(tokenID),
	))
}

func (s *Registry) CreateIdentity(ctx context.Context, holder id.HolderID, rec models.IdentityRecord) (id.TokenID, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin mint tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Locking the counter row serializes mints; the holder uniqueness check
	// below therefore sees every committed mint.
	var tokenID int64
	err = tx.QueryRow(ctx,
		`UPDATE registry_counter SET next_id = next_id + 1 RETURNING next_id - 1`,
	).Scan(&tokenID)
	if err != nil {
		return 0, fmt.Errorf("allocate token id: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO identity_tokens (token_id, username, contributions, tier, minted_at, updated_at, proof_data)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tokenID, rec.Username, int64(rec.Contributions), rec.Tier.String(), rec.MintedAt, rec.UpdatedAt, rec.ProofData,
	); err != nil {
		return 0, fmt.Errorf("insert token: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO identity_holders (holder, token_id) VALUES ($1, $2)`,
		holder.String(), tokenID,
	); err != nil {
		if isUniqueViolation(err) {
			return 0, sentinel.ErrConflict
		}
		return 0, fmt.Errorf("bind holder: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit mint tx: %w", err)
	}
	return id.TokenID(tokenID), nil
}

func (s *Registry) UpdateIdentity(ctx context.Context, tokenID id.TokenID, mutate func(*models.IdentityRecord) error) (models.IdentityRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.IdentityRecord{}, fmt.Errorf("begin update tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec, err := scanRecord(tx.QueryRow(ctx,
		`SELECT username, contributions, tier, minted_at, updated_at, proof_data
		 FROM identity_tokens WHERE token_id = $1 FOR UPDATE`,
		int64(tokenID),
	))
	if err != nil {
		return models.IdentityRecord{}, err
	}

	if err := mutate(&rec); err != nil {
		return models.IdentityRecord{}, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE identity_tokens
		 SET username = $2, contributions = $3, tier = $4, updated_at = $5, proof_data = $6
		 WHERE token_id = $1`,
		int64(tokenID), rec.Username, int64(rec.Contributions), rec.Tier.String(), rec.UpdatedAt, rec.ProofData,
	); err != nil {
		return models.IdentityRecord{}, fmt.Errorf("update token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.IdentityRecord{}, fmt.Errorf("commit update tx: %w", err)
	}
	return rec, nil
}

func scanRecord(row pgx.Row) (models.IdentityRecord, error) {
	var (
		rec           models.IdentityRecord
		contributions int64
		tier          string
	)
	err := row.Scan(&rec.Username, &contributions, &tier, &rec.MintedAt, &rec.UpdatedAt, &rec.ProofData)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.IdentityRecord{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.IdentityRecord{}, fmt.Errorf("scan token: %w", err)
	}
	rec.Contributions = uint32(contributions)
	parsed, err := models.ParseTier(tier)
	if err != nil {
		return models.IdentityRecord{}, fmt.Errorf("stored tier %q: %w", tier, err)
	}
	rec.Tier = parsed
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"badgemint/internal/identity/models"
	id "badgemint/pkg/domain"
	"badgemint/pkg/platform/sentinel"
)

// ConfigStore persists the singleton configuration row. The CHECK-constrained
// boolean primary key guarantees at most one row exists.
type ConfigStore struct {
	pool *pgxpool.Pool
}

func NewConfigStore(pool *pgxpool.Pool) *ConfigStore {
	return &ConfigStore{pool: pool}
}

func (s *ConfigStore) Create(ctx context.Context, cfg models.Config) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO registry_config (singleton, admin, access_control, treasury, mint_fee)
		 VALUES (TRUE, $1, $2, $3, $4::numeric)`,
		cfg.Admin.String(), cfg.AccessControl.String(), cfg.Treasury.String(), cfg.MintFee.String(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create config: %w", err)
	}
	return nil
}

func (s *ConfigStore) Get(ctx context.Context) (models.Config, error) {
	return scanConfig(s.pool.QueryRow(ctx,
		`SELECT admin, access_control, treasury, mint_fee::text FROM registry_config`,
	))
}

func (s *ConfigStore) Update(ctx context.Context, mutate func(*models.Config) error) (models.Config, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Config{}, fmt.Errorf("begin config tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cfg, err := scanConfig(tx.QueryRow(ctx,
		`SELECT admin, access_control, treasury, mint_fee::text FROM registry_config FOR UPDATE`,
	))
	if err != nil {
		return models.Config{}, err
	}

	if err := mutate(&cfg); err != nil {
		return models.Config{}, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE registry_config SET admin = $1, access_control = $2, treasury = $3, mint_fee = $4::numeric`,
		cfg.Admin.String(), cfg.AccessControl.String(), cfg.Treasury.String(), cfg.MintFee.String(),
	); err != nil {
		return models.Config{}, fmt.Errorf("update config: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Config{}, fmt.Errorf("commit config tx: %w", err)
	}
	return cfg, nil
}

func scanConfig(row pgx.Row) (models.Config, error) {
	var (
		cfg models.Config
		admin, accessControl, treasury, fee string
	)
	err := row.Scan(&admin, &accessControl, &treasury, &fee)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Config{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Config{}, fmt.Errorf("scan config: %w", err)
	}
	cfg.Admin = id.HolderID(admin)
	cfg.AccessControl = id.HolderID(accessControl)
	cfg.Treasury = id.HolderID(treasury)
	cfg.MintFee, err = models.ParseFee(fee)
	if err != nil {
		return models.Config{}, fmt.Errorf("stored mint fee %q: %w", fee, err)
	}
	return cfg, nil
}

//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"badgemint/internal/identity/models"
	"badgemint/internal/identity/store/postgres"
	id "badgemint/pkg/domain"
	"badgemint/pkg/platform/sentinel"
	"badgemint/pkg/testutil/containers"
)

type PostgresRegistrySuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Registry
	config   *postgres.ConfigStore
}

func TestPostgresRegistrySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresRegistrySuite))
}

func (s *PostgresRegistrySuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = postgres.NewRegistry(s.postgres.Pool)
	s.config = postgres.NewConfigStore(s.postgres.Pool)
}

func (s *PostgresRegistrySuite) TearDownSuite() {
	s.postgres.Pool.Close()
	_ = s.postgres.Container.Terminate(context.Background())
}

func (s *PostgresRegistrySuite) SetupTest() {
	s.Require().NoError(s.postgres.Reset(context.Background()))
}

func (s *PostgresRegistrySuite) record(username string, contributions uint32) models.IdentityRecord {
	rec, err := models.NewIdentityRecord(username, contributions, []byte("proof"), time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	return rec
}

func (s *PostgresRegistrySuite) TestCreateIdentity() {
	ctx := context.Background()

	s.Run("token ids are sequential starting at 1", func() {
		id1, err := s.store.CreateIdentity(ctx, "alice", s.record("alice", 0))
		s.NoError(err)
		id2, err := s.store.CreateIdentity(ctx, "bob", s.record("bob", 0))
		s.NoError(err)

		s.Equal(id.TokenID(1), id1)
		s.Equal(id.TokenID(2), id2)
	})

	s.Run("conflicting mint rolls back the counter", func() {
		_, err := s.store.CreateIdentity(ctx, "alice", s.record("alice-again", 0))
		s.ErrorIs(err, sentinel.ErrConflict)

		next, err := s.store.CreateIdentity(ctx, "carol", s.record("carol", 0))
		s.NoError(err)
		s.Equal(id.TokenID(3), next, "failed mint must not burn a token id")
	})
}

func (s *PostgresRegistrySuite) TestLookups() {
	ctx := context.Background()

	tokenID, err := s.store.CreateIdentity(ctx, "alice", s.record("alice", 250))
	s.Require().NoError(err)

	s.Run("has identity", func() {
		has, err := s.store.HasIdentity(ctx, "alice")
		s.NoError(err)
		s.True(has)

		has, err = s.store.HasIdentity(ctx, "ghost")
		s.NoError(err)
		s.False(has)
	})

	s.Run("holder token", func() {
		resolved, err := s.store.HolderToken(ctx, "alice")
		s.NoError(err)
		s.Equal(tokenID, resolved)

		_, err = s.store.HolderToken(ctx, "ghost")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("token data round-trips", func() {
		rec, err := s.store.TokenData(ctx, tokenID)
		s.NoError(err)
		s.Equal("alice", rec.Username)
		s.Equal(uint32(250), rec.Contributions)
		s.Equal(models.TierPro, rec.Tier)
		s.Equal([]byte("proof"), rec.ProofData)

		_, err = s.store.TokenData(ctx, 999)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresRegistrySuite) TestUpdateIdentity() {
	ctx := context.Background()

	tokenID, err := s.store.CreateIdentity(ctx, "alice", s.record("alice", 100))
	s.Require().NoError(err)

	updated, err := s.store.UpdateIdentity(ctx, tokenID, func(r *models.IdentityRecord) error {
		r.Apply("alice", 3500, nil, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
		return nil
	})
	s.NoError(err)
	s.Equal(models.TierLegend, updated.Tier)

	rec, err := s.store.TokenData(ctx, tokenID)
	s.NoError(err)
	s.Equal(uint32(3500), rec.Contributions)
	s.Equal(models.TierLegend, rec.Tier)
	s.True(rec.MintedAt.Equal(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)), "minted timestamp never changes")

	_, err = s.store.UpdateIdentity(ctx, 999, func(*models.IdentityRecord) error { return nil })
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresRegistrySuite) TestConfigStore() {
	ctx := context.Background()
	cfg := models.Config{Admin: "admin", AccessControl: "ac", Treasury: "treasury", MintFee: models.FeeFromInt64(0)}

	s.Run("get before create", func() {
		_, err := s.config.Get(ctx)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("create then get", func() {
		s.NoError(s.config.Create(ctx, cfg))
		got, err := s.config.Get(ctx)
		s.NoError(err)
		s.Equal(cfg.Admin, got.Admin)
		s.True(got.MintFee.IsZero())
	})

	s.Run("second create conflicts", func() {
		s.ErrorIs(s.config.Create(ctx, cfg), sentinel.ErrConflict)
	})

	s.Run("update a single field", func() {
		updated, err := s.config.Update(ctx, func(c *models.Config) error {
			c.MintFee = models.FeeFromInt64(1000000)
			return nil
		})
		s.NoError(err)
		s.Equal("1000000", updated.MintFee.String())

		got, err := s.config.Get(ctx)
		s.NoError(err)
		s.Equal("1000000", got.MintFee.String())
	})

	s.Run("large fee survives the round-trip", func() {
		wide := "170141183460469231731687303715884105727"
		fee, err := models.ParseFee(wide)
		s.Require().NoError(err)

		_, err = s.config.Update(ctx, func(c *models.Config) error {
			c.MintFee = fee
			return nil
		})
		s.NoError(err)

		got, err := s.config.Get(ctx)
		s.NoError(err)
		s.Equal(wide, got.MintFee.String())
	})
}

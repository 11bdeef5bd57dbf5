package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"badgemint/internal/events"
	"badgemint/internal/identity/models"
	"badgemint/internal/identity/store"
	"badgemint/internal/identity/store/nonce"
	id "badgemint/pkg/domain"
	dErrors "badgemint/pkg/domain-errors"
	"badgemint/pkg/requestcontext"
)

// allowAll proves any claimed caller. Service tests exercise the protocol
// rules, not the transport authentication; ContextAuthenticator has its own
// tests below.
type allowAll struct{}

func (allowAll) RequireAuth(context.Context, id.HolderID) error { return nil }

type denyAll struct{}

func (denyAll) RequireAuth(context.Context, id.HolderID) error {
	return dErrors.New(dErrors.CodeUnauthorized, "caller not authenticated")
}

type ServiceSuite struct {
	suite.Suite
	now      time.Time
	registry *store.InMemoryRegistry
	config   *store.InMemoryConfigStore
	nonces   *nonce.InMemoryStore
	sink     *events.InMemoryStore
	svc      *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.registry = store.NewInMemoryRegistry()
	s.config = store.NewInMemoryConfigStore()
	s.nonces = nonce.NewInMemoryStore(nonce.WithClock(func() time.Time { return s.now }))
	s.sink = events.NewInMemoryStore()

	svc, err := New(s.registry, s.config, s.nonces, events.NewStorePublisher(s.sink),
		WithAuthenticator(allowAll{}),
	)
	s.Require().NoError(err)
	s.svc = svc
}

func (s *ServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) initialize() models.Config {
	cfg := models.Config{Admin: "admin", AccessControl: "ac", Treasury: "treasury"}
	s.Require().NoError(s.svc.Initialize(s.ctx(), cfg))
	return cfg
}

func (s *ServiceSuite) mintRequest(caller id.HolderID, username string, contributions uint32) models.MintRequest {
	return models.MintRequest{
		Caller:        caller,
		Username:      username,
		Contributions: contributions,
		Nonce:         0,
	}
}

func (s *ServiceSuite) TestInitialize() {
	s.Run("valid config succeeds", func() {
		s.initialize()

		admin, err := s.svc.Admin(s.ctx())
		s.NoError(err)
		s.Equal(id.HolderID("admin"), admin)
	})

	s.Run("second initialize always fails", func() {
		err := s.svc.Initialize(s.ctx(), models.Config{Admin: "other", AccessControl: "ac", Treasury: "treasury"})
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyInitialized))

		admin, err := s.svc.Admin(s.ctx())
		s.NoError(err)
		s.Equal(id.HolderID("admin"), admin, "config is unchanged")
	})
}

func (s *ServiceSuite) TestInitializeValidation() {
	err := s.svc.Initialize(s.ctx(), models.Config{AccessControl: "ac", Treasury: "treasury"})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestUninitializedReads() {
	s.Run("mint fee defaults to zero", func() {
		fee, err := s.svc.MintFee(s.ctx())
		s.NoError(err)
		s.True(fee.IsZero())
	})

	s.Run("strict accessors fail", func() {
		_, err := s.svc.Admin(s.ctx())
		s.True(dErrors.HasCode(err, dErrors.CodeNotInitialized))

		_, err = s.svc.AccessControl(s.ctx())
		s.True(dErrors.HasCode(err, dErrors.CodeNotInitialized))

		_, err = s.svc.Treasury(s.ctx())
		s.True(dErrors.HasCode(err, dErrors.CodeNotInitialized))
	})
}

func (s *ServiceSuite) TestMint() {
	s.initialize()

	s.Run("first mint returns token 1", func() {
		tokenID, err := s.svc.Mint(s.ctx(), s.mintRequest("alice", "alice", 250))
		s.NoError(err)
		s.Equal(id.TokenID(1), tokenID)

		rec, err := s.svc.TokenData(s.ctx(), tokenID)
		s.NoError(err)
		s.Equal("alice", rec.Username)
		s.Equal(models.TierPro, rec.Tier)
		s.Equal(s.now, rec.MintedAt)
	})

	s.Run("token ids are sequential", func() {
		id2, err := s.svc.Mint(s.ctx(), s.mintRequest("bob", "bob", 0))
		s.NoError(err)
		id3, err := s.svc.Mint(s.ctx(), s.mintRequest("carol", "carol", 5000))
		s.NoError(err)
		s.Equal(id.TokenID(2), id2)
		s.Equal(id.TokenID(3), id3)
	})

	s.Run("second mint for the same holder fails", func() {
		_, err := s.svc.Mint(s.ctx(), s.mintRequest("alice", "alice-two", 0))
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyHasIdentity))
	})

	s.Run("a rejected mint does not burn a token id", func() {
		tokenID, err := s.svc.Mint(s.ctx(), s.mintRequest("dave", "dave", 0))
		s.NoError(err)
		s.Equal(id.TokenID(4), tokenID)
	})

	s.Run("mint emits its event", func() {
		got, err := s.sink.ListByToken(s.ctx(), 1)
		s.NoError(err)
		s.Require().Len(got, 1)
		s.Equal(events.ActionIdentityMinted, got[0].Action)
		s.Equal(id.HolderID("alice"), got[0].Caller)
		s.Equal(models.TierPro, got[0].Tier)
	})
}

func (s *ServiceSuite) TestMintPreconditions() {
	s.initialize()

	s.Run("empty username", func() {
		_, err := s.svc.Mint(s.ctx(), s.mintRequest("alice", "", 0))
		s.True(dErrors.HasCode(err, dErrors.CodeEmptyUsername))
	})

	s.Run("wrong nonce is rejected without advancing the counter", func() {
		req := s.mintRequest("alice", "alice", 0)
		req.Nonce = 7
		_, err := s.svc.Mint(s.ctx(), req)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidNonce))

		current, err := s.svc.Nonce(s.ctx(), "alice")
		s.NoError(err)
		s.Zero(current)
	})

	s.Run("a replayed nonce is rejected after a successful mint", func() {
		_, err := s.svc.Mint(s.ctx(), s.mintRequest("alice", "alice", 0))
		s.Require().NoError(err)

		current, err := s.svc.Nonce(s.ctx(), "alice")
		s.NoError(err)
		s.Equal(uint64(1), current, "successful mint consumes the nonce")

		_, err = s.svc.Mint(s.ctx(), s.mintRequest("bob", "bob", 0))
		s.Require().NoError(err)
		req := s.mintRequest("bob", "bob", 0)
		_, err = s.svc.Mint(s.ctx(), req)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyHasIdentity),
			"uniqueness is checked before the nonce for a bound holder")
	})

	s.Run("unauthenticated callers are rejected first", func() {
		svc, err := New(s.registry, s.config, s.nonces, events.NewStorePublisher(s.sink),
			WithAuthenticator(denyAll{}),
		)
		s.Require().NoError(err)

		_, err = svc.Mint(s.ctx(), s.mintRequest("eve", "", 0))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized),
			"authentication precedes even the username check")
	})
}

func (s *ServiceSuite) TestMintFeeGate() {
	cfg := models.Config{Admin: "admin", AccessControl: "ac", Treasury: "treasury", MintFee: models.FeeFromInt64(1000)}
	s.Require().NoError(s.svc.Initialize(s.ctx(), cfg))

	s.Run("positive fee blocks minting", func() {
		_, err := s.svc.Mint(s.ctx(), s.mintRequest("alice", "alice", 0))
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientPayment))

		current, err := s.svc.Nonce(s.ctx(), "alice")
		s.NoError(err)
		s.Zero(current, "a fee-blocked mint does not consume the nonce")
	})

	s.Run("zeroing the fee unblocks minting", func() {
		s.Require().NoError(s.svc.SetMintFee(s.ctx(), "admin", models.FeeFromInt64(0)))

		tokenID, err := s.svc.Mint(s.ctx(), s.mintRequest("alice", "alice", 0))
		s.NoError(err)
		s.Equal(id.TokenID(1), tokenID)
	})

	s.Run("negative fee does not block", func() {
		s.Require().NoError(s.svc.SetMintFee(s.ctx(), "admin", models.FeeFromInt64(-5)))

		_, err := s.svc.Mint(s.ctx(), s.mintRequest("bob", "bob", 0))
		s.NoError(err)
	})
}

func (s *ServiceSuite) TestUpdate() {
	s.initialize()

	tokenID, err := s.svc.Mint(s.ctx(), s.mintRequest("alice", "alice", 1500))
	s.Require().NoError(err)

	s.Run("update re-derives the tier", func() {
		rec, err := s.svc.TokenData(s.ctx(), tokenID)
		s.Require().NoError(err)
		s.Equal(models.TierArchitect, rec.Tier)

		s.now = s.now.Add(24 * time.Hour)
		err = s.svc.Update(s.ctx(), models.UpdateRequest{
			Caller:        "alice",
			TokenID:       tokenID,
			Username:      "alice",
			Contributions: 3500,
		})
		s.NoError(err)

		rec, err = s.svc.TokenData(s.ctx(), tokenID)
		s.NoError(err)
		s.Equal(models.TierLegend, rec.Tier)
		s.Equal(uint32(3500), rec.Contributions)
		s.Equal(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), rec.MintedAt, "minted timestamp is preserved")
		s.Equal(s.now, rec.UpdatedAt)
	})

	s.Run("update emits its event", func() {
		got, err := s.sink.ListByToken(s.ctx(), tokenID)
		s.NoError(err)
		s.Require().Len(got, 2)
		s.Equal(events.ActionIdentityUpdated, got[1].Action)
		s.Equal(models.TierLegend, got[1].Tier)
	})

	s.Run("caller without an identity", func() {
		err := s.svc.Update(s.ctx(), models.UpdateRequest{
			Caller:        "ghost",
			TokenID:       tokenID,
			Username:      "ghost",
			Contributions: 1,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNoIdentityFound))
	})

	s.Run("caller cannot update someone else's token", func() {
		_, err := s.svc.Mint(s.ctx(), s.mintRequest("bob", "bob", 0))
		s.Require().NoError(err)

		err = s.svc.Update(s.ctx(), models.UpdateRequest{
			Caller:        "bob",
			TokenID:       tokenID,
			Username:      "bob",
			Contributions: 9999,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		rec, err := s.svc.TokenData(s.ctx(), tokenID)
		s.NoError(err)
		s.Equal("alice", rec.Username, "record is untouched")
	})
}

func (s *ServiceSuite) TestReads() {
	s.initialize()

	s.Run("holder without an identity", func() {
		has, err := s.svc.HasIdentity(s.ctx(), "alice")
		s.NoError(err)
		s.False(has)

		_, err = s.svc.UserToken(s.ctx(), "alice")
		s.True(dErrors.HasCode(err, dErrors.CodeNoIdentityFound))

		tokens, err := s.svc.ListTokens(s.ctx(), "alice")
		s.NoError(err)
		s.Empty(tokens)
	})

	s.Run("holder with an identity", func() {
		tokenID, err := s.svc.Mint(s.ctx(), s.mintRequest("alice", "alice", 250))
		s.Require().NoError(err)

		has, err := s.svc.HasIdentity(s.ctx(), "alice")
		s.NoError(err)
		s.True(has)

		resolved, err := s.svc.UserToken(s.ctx(), "alice")
		s.NoError(err)
		s.Equal(tokenID, resolved)

		tokens, err := s.svc.ListTokens(s.ctx(), "alice")
		s.NoError(err)
		s.Equal([]id.TokenID{tokenID}, tokens)
	})

	s.Run("unknown token", func() {
		_, err := s.svc.TokenData(s.ctx(), 999)
		s.True(dErrors.HasCode(err, dErrors.CodeTokenNotFound))

		_, err = s.svc.RenderBadge(s.ctx(), 999)
		s.True(dErrors.HasCode(err, dErrors.CodeTokenNotFound))
	})

	s.Run("badge follows the current tier", func() {
		tokenID, err := s.svc.Mint(s.ctx(), s.mintRequest("bob", "bob", 5000))
		s.Require().NoError(err)

		svg, err := s.svc.RenderBadge(s.ctx(), tokenID)
		s.NoError(err)
		s.Contains(svg, ">Singularity<")
	})
}

func (s *ServiceSuite) TestNonceExpiry() {
	s.initialize()

	_, err := s.svc.Mint(s.ctx(), s.mintRequest("alice", "alice", 0))
	s.Require().NoError(err)

	current, err := s.svc.Nonce(s.ctx(), "alice")
	s.NoError(err)
	s.Equal(uint64(1), current)

	s.now = s.now.Add(nonce.DefaultTTL)

	current, err = s.svc.Nonce(s.ctx(), "alice")
	s.NoError(err)
	s.Zero(current, "an expired nonce reads as zero again")
}

func (s *ServiceSuite) TestAdminOps() {
	s.Run("admin ops on an uninitialized registry", func() {
		err := s.svc.SetMintFee(s.ctx(), "admin", models.FeeFromInt64(1))
		s.True(dErrors.HasCode(err, dErrors.CodeNotInitialized),
			"missing config wins over the admin check")
	})

	s.initialize()

	s.Run("non-admin callers are rejected", func() {
		err := s.svc.SetMintFee(s.ctx(), "mallory", models.FeeFromInt64(1))
		s.True(dErrors.HasCode(err, dErrors.CodeNotAdmin))

		err = s.svc.SetAccessControl(s.ctx(), "mallory", "mallory")
		s.True(dErrors.HasCode(err, dErrors.CodeNotAdmin))

		err = s.svc.SetTreasury(s.ctx(), "mallory", "mallory")
		s.True(dErrors.HasCode(err, dErrors.CodeNotAdmin))
	})

	s.Run("admin updates each field independently", func() {
		s.NoError(s.svc.SetMintFee(s.ctx(), "admin", models.FeeFromInt64(25)))
		s.NoError(s.svc.SetAccessControl(s.ctx(), "admin", "ac-two"))
		s.NoError(s.svc.SetTreasury(s.ctx(), "admin", "vault"))

		fee, err := s.svc.MintFee(s.ctx())
		s.NoError(err)
		s.Equal("25", fee.String())

		ac, err := s.svc.AccessControl(s.ctx())
		s.NoError(err)
		s.Equal(id.HolderID("ac-two"), ac)

		treasury, err := s.svc.Treasury(s.ctx())
		s.NoError(err)
		s.Equal(id.HolderID("vault"), treasury)

		admin, err := s.svc.Admin(s.ctx())
		s.NoError(err)
		s.Equal(id.HolderID("admin"), admin, "admin itself is unchanged")
	})
}

func TestContextAuthenticator(t *testing.T) {
	auth := ContextAuthenticator{}

	t.Run("no caller in context", func(t *testing.T) {
		err := auth.RequireAuth(context.Background(), "alice")
		if !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})

	t.Run("claimed caller mismatch", func(t *testing.T) {
		ctx := requestcontext.WithCaller(context.Background(), "bob")
		err := auth.RequireAuth(ctx, "alice")
		if !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})

	t.Run("matching caller passes", func(t *testing.T) {
		ctx := requestcontext.WithCaller(context.Background(), "alice")
		if err := auth.RequireAuth(ctx, "alice"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

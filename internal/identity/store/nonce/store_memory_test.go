package nonce

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"badgemint/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	now   time.Time
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.store = NewInMemoryStore(WithClock(func() time.Time { return s.now }))
}

func (s *InMemoryStoreSuite) TestCurrent() {
	ctx := context.Background()

	s.Run("absent holder reads as zero", func() {
		nonce, err := s.store.Current(ctx, "alice")
		s.NoError(err)
		s.Zero(nonce)
	})

	s.Run("consumption increments", func() {
		s.NoError(s.store.Consume(ctx, "alice", 0))
		nonce, err := s.store.Current(ctx, "alice")
		s.NoError(err)
		s.Equal(uint64(1), nonce)
	})
}

func (s *InMemoryStoreSuite) TestConsume() {
	ctx := context.Background()

	s.Run("wrong nonce is rejected without advancing", func() {
		s.ErrorIs(s.store.Consume(ctx, "bob", 5), sentinel.ErrInvalidState)

		nonce, err := s.store.Current(ctx, "bob")
		s.NoError(err)
		s.Zero(nonce)
	})

	s.Run("replay of a consumed nonce is rejected", func() {
		s.NoError(s.store.Consume(ctx, "bob", 0))
		s.ErrorIs(s.store.Consume(ctx, "bob", 0), sentinel.ErrInvalidState)
	})

	s.Run("sequential consumption", func() {
		s.NoError(s.store.Consume(ctx, "bob", 1))
		s.NoError(s.store.Consume(ctx, "bob", 2))

		nonce, err := s.store.Current(ctx, "bob")
		s.NoError(err)
		s.Equal(uint64(3), nonce)
	})
}

func (s *InMemoryStoreSuite) TestExpiry() {
	ctx := context.Background()

	s.Require().NoError(s.store.Consume(ctx, "carol", 0))

	s.Run("just before the ttl the nonce survives", func() {
		s.now = s.now.Add(DefaultTTL - time.Second)
		nonce, err := s.store.Current(ctx, "carol")
		s.NoError(err)
		s.Equal(uint64(1), nonce)
	})

	s.Run("consumption resets the ttl", func() {
		s.NoError(s.store.Consume(ctx, "carol", 1))
		s.now = s.now.Add(DefaultTTL - time.Second)
		nonce, err := s.store.Current(ctx, "carol")
		s.NoError(err)
		s.Equal(uint64(2), nonce)
	})

	s.Run("at the ttl boundary the nonce reads as zero", func() {
		s.now = s.now.Add(time.Second)
		nonce, err := s.store.Current(ctx, "carol")
		s.NoError(err)
		s.Zero(nonce)
	})

	s.Run("after expiry the counter restarts from zero", func() {
		s.NoError(s.store.Consume(ctx, "carol", 0))
		nonce, err := s.store.Current(ctx, "carol")
		s.NoError(err)
		s.Equal(uint64(1), nonce)
	})
}

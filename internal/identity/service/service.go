// Package service orchestrates the identity registry: minting, updates,
// admin configuration and read accessors.
//
// Mutating operations are serialized by a single mutex, mirroring the
// whole-operation atomicity of the execution host the protocol was designed
// for: every precondition is checked before the first write, and the commit
// point (the registry store's atomic create/update) either applies all record
// effects or none.
package service

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/blake2b"

	"badgemint/internal/events"
	"badgemint/internal/identity/models"
	"badgemint/internal/identity/store"
	"badgemint/internal/platform/metrics"
	id "badgemint/pkg/domain"
	dErrors "badgemint/pkg/domain-errors"
	"badgemint/pkg/platform/sentinel"
	"badgemint/pkg/requestcontext"
)

// Authenticator is the caller-authentication capability: RequireAuth returns
// nil only once the claimed caller has been cryptographically proven for this
// request. It is injected so tests can substitute a fake.
type Authenticator interface {
	RequireAuth(ctx context.Context, caller id.HolderID) error
}

// ContextAuthenticator proves callers against the identity the transport
// middleware validated and stashed in the request context.
type ContextAuthenticator struct{}

func (ContextAuthenticator) RequireAuth(ctx context.Context, caller id.HolderID) error {
	proven := requestcontext.Caller(ctx)
	if proven.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller not authenticated")
	}
	if proven != caller {
		return dErrors.New(dErrors.CodeUnauthorized, "caller does not match authenticated identity")
	}
	return nil
}

// Service is the identity registry orchestrator.
type Service struct {
	mu sync.Mutex // serializes mutating operations

	registry store.Registry
	config   store.ConfigStore
	nonces   store.NonceStore
	auth     Authenticator
	events   events.Publisher

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAuthenticator overrides the caller-authentication capability.
func WithAuthenticator(auth Authenticator) Option {
	return func(s *Service) {
		if auth != nil {
			s.auth = auth
		}
	}
}

// New constructs a Service. Registry, config, nonce stores and the event
// publisher are required.
func New(registry store.Registry, config store.ConfigStore, nonces store.NonceStore, publisher events.Publisher, opts ...Option) (*Service, error) {
	if registry == nil {
		return nil, errors.New("registry store is required")
	}
	if config == nil {
		return nil, errors.New("config store is required")
	}
	if nonces == nil {
		return nil, errors.New("nonce store is required")
	}
	if publisher == nil {
		return nil, errors.New("event publisher is required")
	}
	s := &Service{
		registry: registry,
		config:   config,
		nonces:   nonces,
		auth:     ContextAuthenticator{},
		events:   publisher,
		logger:   slog.Default(),
		tracer:   otel.Tracer("badgemint/identity"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Mint creates the caller's identity record and returns its token ID.
//
// Precondition order is part of the contract: authentication, username,
// uniqueness, nonce, fee. No state is written until every check has passed;
// the nonce advances and the record commits only together (the registry
// create cannot fail for a domain reason once the uniqueness check has run
// under the service mutex).
func (s *Service) Mint(ctx context.Context, req models.MintRequest) (id.TokenID, error) {
	ctx, span := s.tracer.Start(ctx, "identity.mint")
	defer span.End()
	defer s.metrics.ObserveDuration("mint", time.Now())

	tokenID, err := s.mint(ctx, req)
	if err != nil {
		s.metrics.ObserveMintRejection(string(dErrors.CodeOf(err)))
		return 0, err
	}
	return tokenID, nil
}

func (s *Service) mint(ctx context.Context, req models.MintRequest) (id.TokenID, error) {
	if err := s.auth.RequireAuth(ctx, req.Caller); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Username == "" {
		return 0, dErrors.New(dErrors.CodeEmptyUsername, "username cannot be empty")
	}

	bound, err := s.registry.HasIdentity(ctx, req.Caller)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check holder state")
	}
	if bound {
		return 0, dErrors.New(dErrors.CodeAlreadyHasIdentity, "holder already has an identity")
	}

	current, err := s.nonces.Current(ctx, req.Caller)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read nonce")
	}
	if req.Nonce != current {
		return 0, dErrors.New(dErrors.CodeInvalidNonce, "supplied nonce does not match current nonce")
	}

	// req.Signature is deliberately not verified; see MintRequest.

	fee, err := s.mintFee(ctx)
	if err != nil {
		return 0, err
	}
	if fee.Sign() > 0 {
		// No payment path exists yet: a positive fee blocks minting
		// outright rather than pretending a transfer happened.
		return 0, dErrors.New(dErrors.CodeInsufficientPayment, "mint fee is set and payment is not supported")
	}

	if err := s.nonces.Consume(ctx, req.Caller, req.Nonce); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return 0, dErrors.New(dErrors.CodeInvalidNonce, "supplied nonce does not match current nonce")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume nonce")
	}

	now := requestcontext.Now(ctx)
	rec, err := models.NewIdentityRecord(req.Username, req.Contributions, req.ProofData, now)
	if err != nil {
		return 0, err
	}

	tokenID, err := s.registry.CreateIdentity(ctx, req.Caller, rec)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return 0, dErrors.New(dErrors.CodeAlreadyHasIdentity, "holder already has an identity")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint identity")
	}

	s.emit(ctx, events.ActionIdentityMinted, req.Caller, tokenID, rec)
	s.metrics.ObserveMint(rec.Tier.String())
	s.logger.InfoContext(ctx, "identity minted",
		"token_id", tokenID,
		"tier", rec.Tier,
		"request_id", requestcontext.RequestID(ctx),
	)
	return tokenID, nil
}

// Update overwrites the mutable fields of the caller's identity record,
// re-deriving the tier from the new contribution count. MintedAt is
// preserved; no partial field update is ever observable.
func (s *Service) Update(ctx context.Context, req models.UpdateRequest) error {
	ctx, span := s.tracer.Start(ctx, "identity.update")
	defer span.End()
	defer s.metrics.ObserveDuration("update", time.Now())

	if err := s.auth.RequireAuth(ctx, req.Caller); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	holderToken, err := s.registry.HolderToken(ctx, req.Caller)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNoIdentityFound, "caller has no identity")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve holder token")
	}
	if holderToken != req.TokenID {
		return dErrors.New(dErrors.CodeUnauthorized, "token does not belong to caller")
	}

	now := requestcontext.Now(ctx)
	rec, err := s.registry.UpdateIdentity(ctx, req.TokenID, func(r *models.IdentityRecord) error {
		r.Apply(req.Username, req.Contributions, req.ProofData, now)
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Unreachable while holder bindings stay consistent with
			// token records, but surfaced as its own kind.
			return dErrors.New(dErrors.CodeTokenNotFound, "token does not exist")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update identity")
	}

	s.emit(ctx, events.ActionIdentityUpdated, req.Caller, req.TokenID, rec)
	s.metrics.ObserveUpdate()
	s.logger.InfoContext(ctx, "identity updated",
		"token_id", req.TokenID,
		"tier", rec.Tier,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// emit publishes the registry event for a committed mutation. The stream is
// best-effort: a sink failure is logged, never rolled into the caller's
// result, because the registry state has already committed.
func (s *Service) emit(ctx context.Context, action events.Action, caller id.HolderID, tokenID id.TokenID, rec models.IdentityRecord) {
	event := events.Event{
		Action:        action,
		Timestamp:     requestcontext.Now(ctx),
		Caller:        caller,
		TokenID:       tokenID,
		Username:      rec.Username,
		Contributions: rec.Contributions,
		Tier:          rec.Tier,
		RequestID:     requestcontext.RequestID(ctx),
		ClientIP:      requestcontext.ClientIP(ctx),
		UserAgent:     requestcontext.UserAgent(ctx),
	}
	if len(rec.ProofData) > 0 {
		digest := blake2b.Sum256(rec.ProofData)
		event.ProofDigest = hex.EncodeToString(digest[:])
	}
	if err := s.events.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish event",
			"action", action,
			"token_id", tokenID,
			"error", err,
		)
	}
}

package service

import (
	"context"
	"errors"

	"badgemint/internal/identity/badge"
	"badgemint/internal/identity/models"
	id "badgemint/pkg/domain"
	dErrors "badgemint/pkg/domain-errors"
	"badgemint/pkg/platform/sentinel"
)

// TokenData returns the identity record for a token.
func (s *Service) TokenData(ctx context.Context, tokenID id.TokenID) (models.IdentityRecord, error) {
	rec, err := s.registry.TokenData(ctx, tokenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.IdentityRecord{}, dErrors.New(dErrors.CodeTokenNotFound, "token does not exist")
		}
		return models.IdentityRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load token")
	}
	return rec, nil
}

// UserToken returns the holder's token ID.
func (s *Service) UserToken(ctx context.Context, holder id.HolderID) (id.TokenID, error) {
	tokenID, err := s.registry.HolderToken(ctx, holder)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.New(dErrors.CodeNoIdentityFound, "holder has no identity")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve holder token")
	}
	return tokenID, nil
}

// HasIdentity reports whether the holder has minted. Never fails
// domain-wise; store errors still surface.
func (s *Service) HasIdentity(ctx context.Context, holder id.HolderID) (bool, error) {
	bound, err := s.registry.HasIdentity(ctx, holder)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check holder state")
	}
	return bound, nil
}

// Nonce returns the holder's current replay counter, 0 when absent or
// expired.
func (s *Service) Nonce(ctx context.Context, holder id.HolderID) (uint64, error) {
	nonce, err := s.nonces.Current(ctx, holder)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read nonce")
	}
	return nonce, nil
}

// MintFee returns the configured fee, zero when uninitialized. The lenient
// default is deliberate and asymmetric with the strict accessors below.
func (s *Service) MintFee(ctx context.Context) (models.FeeAmount, error) {
	return s.mintFee(ctx)
}

func (s *Service) mintFee(ctx context.Context) (models.FeeAmount, error) {
	cfg, err := s.config.Get(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.FeeAmount{}, nil
		}
		return models.FeeAmount{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load config")
	}
	return cfg.MintFee, nil
}

// Admin returns the stored administrator identity.
func (s *Service) Admin(ctx context.Context) (id.HolderID, error) {
	cfg, err := s.getConfig(ctx)
	if err != nil {
		return "", err
	}
	return cfg.Admin, nil
}

// AccessControl returns the stored access-control delegate.
func (s *Service) AccessControl(ctx context.Context) (id.HolderID, error) {
	cfg, err := s.getConfig(ctx)
	if err != nil {
		return "", err
	}
	return cfg.AccessControl, nil
}

// Treasury returns the stored treasury identity.
func (s *Service) Treasury(ctx context.Context) (id.HolderID, error) {
	cfg, err := s.getConfig(ctx)
	if err != nil {
		return "", err
	}
	return cfg.Treasury, nil
}

func (s *Service) getConfig(ctx context.Context) (models.Config, error) {
	cfg, err := s.config.Get(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Config{}, dErrors.New(dErrors.CodeNotInitialized, "registry is not initialized")
		}
		return models.Config{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load config")
	}
	return cfg, nil
}

// RenderBadge returns the SVG badge for a token's current tier.
func (s *Service) RenderBadge(ctx context.Context, tokenID id.TokenID) (string, error) {
	rec, err := s.TokenData(ctx, tokenID)
	if err != nil {
		return "", err
	}
	return badge.Render(rec.Tier), nil
}

// ListTokens returns the holder's token IDs: today at most one element, but
// the sequence shape is the forward-compatible contract for multi-token
// support.
func (s *Service) ListTokens(ctx context.Context, holder id.HolderID) ([]id.TokenID, error) {
	tokenID, err := s.registry.HolderToken(ctx, holder)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return []id.TokenID{}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve holder token")
	}
	return []id.TokenID{tokenID}, nil
}

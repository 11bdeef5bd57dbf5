package service

import (
	"context"
	"errors"

	"badgemint/internal/identity/models"
	id "badgemint/pkg/domain"
	dErrors "badgemint/pkg/domain-errors"
	"badgemint/pkg/platform/sentinel"
	"badgemint/pkg/requestcontext"
)

// Initialize creates the global configuration record. It is strictly
// once-only: a second call always fails, never silently succeeds.
func (s *Service) Initialize(ctx context.Context, cfg models.Config) error {
	ctx, span := s.tracer.Start(ctx, "identity.initialize")
	defer span.End()

	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.config.Create(ctx, cfg); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeAlreadyInitialized, "registry is already initialized")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to initialize registry")
	}

	s.logger.InfoContext(ctx, "registry initialized",
		"admin", cfg.Admin,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// SetMintFee replaces the configured mint fee. Admin only.
func (s *Service) SetMintFee(ctx context.Context, caller id.HolderID, fee models.FeeAmount) error {
	return s.updateConfig(ctx, "identity.set_mint_fee", caller, func(cfg *models.Config) {
		cfg.MintFee = fee
	})
}

// SetAccessControl replaces the access-control delegate. Admin only.
func (s *Service) SetAccessControl(ctx context.Context, caller, accessControl id.HolderID) error {
	return s.updateConfig(ctx, "identity.set_access_control", caller, func(cfg *models.Config) {
		cfg.AccessControl = accessControl
	})
}

// SetTreasury replaces the treasury identity. Admin only.
func (s *Service) SetTreasury(ctx context.Context, caller, treasury id.HolderID) error {
	return s.updateConfig(ctx, "identity.set_treasury", caller, func(cfg *models.Config) {
		cfg.Treasury = treasury
	})
}

// updateConfig runs an admin-gated single-field mutation. The admin check
// reads the stored config inside the same store callback that applies the
// change, so the gate and the mutation see one consistent record.
func (s *Service) updateConfig(ctx context.Context, spanName string, caller id.HolderID, apply func(*models.Config)) error {
	ctx, span := s.tracer.Start(ctx, spanName)
	defer span.End()

	if err := s.auth.RequireAuth(ctx, caller); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.config.Update(ctx, func(cfg *models.Config) error {
		if cfg.Admin != caller {
			return dErrors.New(dErrors.CodeNotAdmin, "caller is not the admin")
		}
		apply(cfg)
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotInitialized, "registry is not initialized")
		}
		if dErrors.HasCode(err, dErrors.CodeNotAdmin) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update config")
	}

	s.logger.InfoContext(ctx, "config updated",
		"operation", spanName,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

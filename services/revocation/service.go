package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tech-arch1tect/edusms/services/logging"
	"go.uber.org/zap"
)

var ErrStoreNotConfigured = errors.New("revocation store not configured")

type Service struct {
	store  Store
	logger *logging.Service
}

func NewService(store Store, logger *logging.Service) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

func (s *Service) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.store == nil {
		return ErrStoreNotConfigured
	}

	if err := s.store.RevokeToken(ctx, jti, expiresAt); err != nil {
		return fmt.Errorf("failed to revoke token by JTI: %w", err)
	}

	s.logger.Info("token revoked",
		zap.String("jti_hash", hashJTI(jti)),
		zap.String("expires_at", expiresAt.Format(time.RFC3339)))
	return nil
}

func (s *Service) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if s.store == nil {
		return false, ErrStoreNotConfigured
	}

	revoked, err := s.store.IsRevoked(ctx, jti)
	if err != nil {
		return false, fmt.Errorf("failed to check JTI revocation status: %w", err)
	}
	return revoked, nil
}

func (s *Service) CleanupExpiredTokens(ctx context.Context) error {
	if s.store == nil {
		return ErrStoreNotConfigured
	}
	if err := s.store.CleanupExpiredTokens(ctx); err != nil {
		return fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}
	return nil
}

// RunCleanup sweeps expired entries every interval until ctx is done.
func (s *Service) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.CleanupExpiredTokens(ctx); err != nil {
				s.logger.Error("cleanup worker failed", zap.Error(err))
			}
		}
	}
}

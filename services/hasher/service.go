package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/tech-arch1tect/edusms/config"
	"go.uber.org/fx"
	"golang.org/x/crypto/bcrypt"
)

var ErrEmptySecret = errors.New("secret must not be empty")

var Module = fx.Options(
	fx.Provide(NewHasher),
)

type Service struct {
	cost int
}

func NewService(cost int) *Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{cost: cost}
}

func NewHasher(cfg *config.Config) *Service {
	return NewService(cfg.Auth.BcryptCost)
}

// Hash returns a salted bcrypt digest. Input is reduced to a SHA-256 hex
// string first so values longer than 72 bytes, like refresh tokens, are
// hashed in full.
func (s *Service) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}

	digest, err := bcrypt.GenerateFromPassword(prehash(secret), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}

	return string(digest), nil
}

// Verify reports whether secret matches digest. Malformed or empty digests
// never match.
func (s *Service) Verify(secret, digest string) bool {
	if secret == "" || digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), prehash(secret)) == nil
}

func prehash(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return []byte(hex.EncodeToString(sum[:]))
}

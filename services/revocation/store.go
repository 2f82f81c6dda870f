package revocation

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/tech-arch1tect/edusms/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func hashJTI(jti string) string {
	hash := sha256.Sum256([]byte(jti))
	return fmt.Sprintf("%x", hash[:8])
}

// RevokedToken persists memory-store entries across restarts.
type RevokedToken struct {
	JTI       string    `gorm:"primaryKey;size:64"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

type Store interface {
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	CleanupExpiredTokens(ctx context.Context) error
}

// MemoryStore keeps revoked JTIs in a map. With a database attached every
// revocation is written through and reloaded on startup.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
	db     *gorm.DB
	logger *logging.Service
}

func NewMemoryStore(logger *logging.Service) *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]time.Time),
		logger: logger,
	}
}

func NewMemoryStoreWithDB(db *gorm.DB, logger *logging.Service) *MemoryStore {
	store := NewMemoryStore(logger)
	store.db = db
	return store
}

func (m *MemoryStore) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	m.mu.Lock()
	m.tokens[jti] = expiresAt
	total := len(m.tokens)
	m.mu.Unlock()

	m.logger.Debug("token revoked in memory",
		zap.String("jti_hash", hashJTI(jti)),
		zap.Time("expires_at", expiresAt),
		zap.Int("total_memory_tokens", total))

	if m.db == nil {
		return nil
	}

	err := m.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&RevokedToken{JTI: jti, ExpiresAt: expiresAt}).Error
	if err != nil {
		m.logger.Error("failed to persist revoked token", zap.String("jti_hash", hashJTI(jti)), zap.Error(err))
		return err
	}
	return nil
}

func (m *MemoryStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	m.mu.RLock()
	expiresAt, exists := m.tokens[jti]
	m.mu.RUnlock()

	if !exists {
		return false, nil
	}

	if time.Now().After(expiresAt) {
		m.mu.Lock()
		delete(m.tokens, jti)
		m.mu.Unlock()
		return false, nil
	}

	return true, nil
}

func (m *MemoryStore) CleanupExpiredTokens(ctx context.Context) error {
	now := time.Now()
	expiredCount := 0

	m.mu.Lock()
	for jti, expiresAt := range m.tokens {
		if now.After(expiresAt) {
			delete(m.tokens, jti)
			expiredCount++
		}
	}
	remaining := len(m.tokens)
	m.mu.Unlock()

	if expiredCount > 0 {
		m.logger.Info("cleaned up expired tokens from memory",
			zap.Int("expired_count", expiredCount),
			zap.Int("remaining_tokens", remaining))
	}

	if m.db == nil {
		return nil
	}
	return m.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&RevokedToken{}).Error
}

// LoadFromDatabase fills the map with persisted, still valid revocations.
func (m *MemoryStore) LoadFromDatabase(ctx context.Context) error {
	if m.db == nil {
		return nil
	}

	var rows []RevokedToken
	if err := m.db.WithContext(ctx).Where("expires_at > ?", time.Now()).Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to load revoked tokens: %w", err)
	}

	m.mu.Lock()
	for _, row := range rows {
		m.tokens[row.JTI] = row.ExpiresAt
	}
	m.mu.Unlock()

	m.logger.Info("revoked tokens loaded from database", zap.Int("loaded_count", len(rows)))
	return nil
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}

package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tech-arch1tect/edusms/services/logging"
	"github.com/tech-arch1tect/edusms/services/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrTokenNotFound = errors.New("verification token not found")

// consumedPrefix marks rewritten tokens. Signed tokens never start with it.
const consumedPrefix = "consumed:"

type VerificationToken struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Token     string    `gorm:"uniqueIndex;size:512;not null" json:"-"`
	Expires   time.Time `gorm:"index;not null" json:"expires"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (v *VerificationToken) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

func (v *VerificationToken) Expired(now time.Time) bool {
	return !v.Expires.After(now)
}

type Service struct {
	db     *gorm.DB
	logger *logging.Service
}

func NewService(db *gorm.DB, logger *logging.Service) *Service {
	return &Service{
		db:     db,
		logger: logger.Named("verification"),
	}
}

// Upsert stores token as the single outstanding token for email, replacing
// whatever was there before.
func (s *Service) Upsert(ctx context.Context, email, token string, expiresAt time.Time) (*VerificationToken, error) {
	row := &VerificationToken{
		Email:   users.NormalizeEmail(email),
		Token:   token,
		Expires: expiresAt,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "expires", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to store verification token: %w", err)
	}

	// on conflict the generated id is not the stored one
	var stored VerificationToken
	if err := s.db.WithContext(ctx).Where("email = ?", row.Email).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("failed to reload verification token: %w", err)
	}

	s.logger.Debug("verification token stored", zap.String("email", stored.Email), zap.Time("expires", expiresAt))
	return &stored, nil
}

// FindByToken returns the row for token. It does not check expiry.
func (s *Service) FindByToken(ctx context.Context, token string) (*VerificationToken, error) {
	var row VerificationToken
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to load verification token: %w", err)
	}
	return &row, nil
}

// Consume rewrites the row so the token can never match again.
func (s *Service) Consume(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&VerificationToken{}).Where("id = ?", id).Updates(map[string]any{
		"token":   consumedPrefix + uuid.NewString(),
		"expires": time.Now(),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to consume verification token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// DeleteExpired removes rows whose expiry has passed.
func (s *Service) DeleteExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires < ?", time.Now()).Delete(&VerificationToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired verification tokens: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.logger.Info("expired verification tokens removed", zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}

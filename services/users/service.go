package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mileusna/useragent"
	"github.com/tech-arch1tect/edusms/apperror"
	"github.com/tech-arch1tect/edusms/services/hasher"
	"github.com/tech-arch1tect/edusms/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

const AccountTypeOAuth = "read:user"

type SaveInput struct {
	Name      string
	Email     string
	Password  string
	Image     string
	Phone     string
	Address   string
	BloodType string
	Verified  bool
}

type CreateInput struct {
	Name      string
	Email     string
	Password  string
	Role      Role
	Status    Status
	Phone     string
	Address   string
	BloodType string
}

// UpdateInput holds optional changes; nil fields are left untouched.
type UpdateInput struct {
	Name      *string
	Email     *string
	Image     *string
	Role      *Role
	Status    *Status
	Phone     *string
	Address   *string
	BloodType *string
}

type Service struct {
	db     *gorm.DB
	hasher *hasher.Service
	logger *logging.Service
}

func NewService(db *gorm.DB, hasher *hasher.Service, logger *logging.Service) *Service {
	return &Service{
		db:     db,
		hasher: hasher,
		logger: logger.Named("users"),
	}
}

func notFound() error {
	return apperror.NotFound("error.user_not_found").WithCause(ErrUserNotFound)
}

func emailTaken() error {
	return apperror.Conflict("error.user_already_existed").WithCause(ErrEmailTaken)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Save inserts the user and the profile for its role in one transaction. It
// does not check for an existing email; a racing duplicate fails on the
// unique index with gorm.ErrDuplicatedKey.
func (s *Service) Save(ctx context.Context, in SaveInput, status Status, role Role) (*User, error) {
	user := &User{
		Name:   in.Name,
		Email:  NormalizeEmail(in.Email),
		Image:  in.Image,
		Role:   role,
		Status: status,
	}

	if in.Password != "" {
		digest, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, err
		}
		user.Password = digest
	}

	if in.Verified {
		now := time.Now()
		user.EmailVerified = &now
	}

	profile := profileFields{name: in.Name, phone: in.Phone, address: in.Address, bloodType: in.BloodType}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			return err
		}
		return createProfile(tx, user, role, profile)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info("user saved", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

// Create is the administrative create: it refuses duplicate emails.
func (s *Service) Create(ctx context.Context, in CreateInput) (*User, error) {
	exists, err := s.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, emailTaken()
	}

	role := in.Role
	if role == "" {
		role = RoleStudent
	}
	status := in.Status
	if status == "" {
		status = StatusInactive
	}

	return s.Save(ctx, SaveInput{
		Name:      in.Name,
		Email:     in.Email,
		Password:  in.Password,
		Phone:     in.Phone,
		Address:   in.Address,
		BloodType: in.BloodType,
	}, status, role)
}

func (s *Service) FindByID(ctx context.Context, id string) (*User, error) {
	return s.findOne(ctx, "id = ?", id)
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, "email = ?", NormalizeEmail(email))
}

func (s *Service) findOne(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).
		Preload("Teacher").
		Preload("Student").
		Preload("Parent").
		Where(query, arg).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound()
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func (s *Service) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&User{}).Where("email = ?", NormalizeEmail(email)).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return count > 0, nil
}

func (s *Service) UpdatePassword(ctx context.Context, userID, plaintext string) error {
	digest, err := s.hasher.Hash(plaintext)
	if err != nil {
		return err
	}
	return s.updateColumns(ctx, userID, map[string]any{"password": digest})
}

// SetRefreshTokenHash stores the digest of token, replacing any previous one.
func (s *Service) SetRefreshTokenHash(ctx context.Context, userID, token string) error {
	digest, err := s.hasher.Hash(token)
	if err != nil {
		return err
	}
	return s.updateColumns(ctx, userID, map[string]any{"refresh_token": digest})
}

// ClearCredentials drops the password and refresh token so only a linked
// provider can sign the user in.
func (s *Service) ClearCredentials(ctx context.Context, userID string) error {
	return s.updateColumns(ctx, userID, map[string]any{"password": "", "refresh_token": nil})
}

func (s *Service) ClearRefreshToken(ctx context.Context, userID string) error {
	return s.updateColumns(ctx, userID, map[string]any{"refresh_token": nil})
}

// MatchesRefreshToken reports whether token is the user's current refresh token.
func (s *Service) MatchesRefreshToken(user *User, token string) bool {
	if user == nil || user.RefreshToken == nil {
		return false
	}
	return s.hasher.Verify(token, *user.RefreshToken)
}

func (s *Service) MatchesPassword(user *User, password string) bool {
	if user == nil || user.Password == "" {
		return false
	}
	return s.hasher.Verify(password, user.Password)
}

// MarkEmailVerified activates the user and stamps the verification time.
// It reports false when the email was already verified.
func (s *Service) MarkEmailVerified(ctx context.Context, userID string) (bool, error) {
	result := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ? AND email_verified IS NULL", userID).
		Updates(map[string]any{"email_verified": time.Now(), "status": StatusActive})
	if result.Error != nil {
		return false, fmt.Errorf("failed to verify email: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// RecordLogin stores when and from which device the user last signed in.
func (s *Service) RecordLogin(ctx context.Context, userID, userAgent string) error {
	return s.updateColumns(ctx, userID, map[string]any{
		"last_login_at":     time.Now(),
		"last_login_device": DeviceFromUserAgent(userAgent),
	})
}

func DeviceFromUserAgent(raw string) string {
	if raw == "" {
		return "Unknown"
	}

	ua := useragent.Parse(raw)
	name := ua.Name
	if name == "" {
		name = "Unknown browser"
	}

	device := "Desktop"
	switch {
	case ua.Bot:
		device = "Bot"
	case ua.Tablet:
		device = "Tablet"
	case ua.Mobile:
		device = "Mobile"
	}

	if ua.OS == "" {
		return fmt.Sprintf("%s (%s)", name, device)
	}
	return fmt.Sprintf("%s on %s (%s)", name, ua.OS, device)
}

func (s *Service) updateColumns(ctx context.Context, userID string, values map[string]any) error {
	result := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Updates(values)
	if result.Error != nil {
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound()
	}
	return nil
}

// Update applies the set fields of in. A role change creates the profile for
// the new role and hard-deletes the profiles of every other role.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*User, error) {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		email := NormalizeEmail(*in.Email)
		if email != user.Email {
			var count int64
			if err := s.db.WithContext(ctx).Model(&User{}).Where("email = ? AND id <> ?", email, id).Count(&count).Error; err != nil {
				return nil, fmt.Errorf("failed to check email: %w", err)
			}
			if count > 0 {
				return nil, emailTaken()
			}
		}
		in.Email = &email
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		values := map[string]any{}
		if in.Name != nil {
			values["name"] = *in.Name
		}
		if in.Email != nil {
			values["email"] = *in.Email
		}
		if in.Image != nil {
			values["image"] = *in.Image
		}
		if in.Status != nil {
			values["status"] = *in.Status
		}

		role := user.Role
		roleChanged := in.Role != nil && *in.Role != user.Role
		if roleChanged {
			role = *in.Role
			values["role"] = role
		}

		if len(values) > 0 {
			if err := tx.Model(&User{}).Where("id = ?", id).Updates(values).Error; err != nil {
				return err
			}
		}

		current := currentProfile(user)
		current.apply(in)
		if in.Name != nil {
			current.name = *in.Name
		}

		if roleChanged {
			if err := deleteProfiles(tx, id, role); err != nil {
				return err
			}
			return createProfile(tx, &User{ID: id}, role, current)
		}

		return updateProfile(tx, id, role, current)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("user updated", zap.String("user_id", id))
	return s.FindByID(ctx, id)
}

// SoftDelete marks every profile of the user as deleted. The user row itself
// stays, so the account can still be found by id and email.
func (s *Service) SoftDelete(ctx context.Context, id string) (*User, error) {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&Teacher{}, &Student{}, &Parent{}} {
			if err := tx.Where("user_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete user profiles: %w", err)
	}

	s.logger.Info("user profiles soft deleted", zap.String("user_id", id))
	user.Teacher, user.Student, user.Parent = nil, nil, nil
	return user, nil
}

// LinkSocialAccount records the provider identity for the user. It reports
// whether a new link was created; an existing link is left as is.
func (s *Service) LinkSocialAccount(ctx context.Context, userID string, provider Provider, providerAccountID, byUser string) (bool, error) {
	account := &Account{
		UserID:            userID,
		Provider:          provider,
		ProviderAccountID: providerAccountID,
		ByUser:            byUser,
		Type:              AccountTypeOAuth,
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider"}},
			DoNothing: true,
		}).
		Create(account)
	if result.Error != nil {
		return false, fmt.Errorf("failed to link %s account: %w", provider, result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (s *Service) ListSocialLinks(ctx context.Context, userID string) ([]SocialLink, error) {
	links := []SocialLink{}
	err := s.db.WithContext(ctx).Model(&Account{}).
		Select("provider", "provider_account_id", "by_user").
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list social links: %w", err)
	}
	return links, nil
}

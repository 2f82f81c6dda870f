package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tech-arch1tect/edusms/apperror"
	"github.com/tech-arch1tect/edusms/config"
	"github.com/tech-arch1tect/edusms/services/hasher"
	"github.com/tech-arch1tect/edusms/services/jwt"
	"github.com/tech-arch1tect/edusms/services/logging"
	"github.com/tech-arch1tect/edusms/services/social"
	"github.com/tech-arch1tect/edusms/services/users"
	"github.com/tech-arch1tect/edusms/services/verification"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MsgRegisterSuccess         = "event.register_success"
	MsgLoginSuccess            = "event.login_success"
	MsgLogoutSuccess           = "event.logout_success"
	MsgRefreshSuccess          = "event.refresh_success"
	MsgPasswordResetRequested  = "event.password_reset_requested"
	MsgPasswordResetSuccessful = "event.password_reset_successful"
	MsgEmailConfirmed          = "event.email_confirmed"
	MsgEmailAlreadyConfirmed   = "event.email_already_confirmed"
	MsgTokenValid              = "event.token_valid"
)

// Notifier delivers account emails. Delivery failures are its own concern.
type Notifier interface {
	SendVerification(ctx context.Context, email, token string)
	SendPasswordReset(ctx context.Context, email, token string, expiresIn time.Duration)
}

// Result is returned by every flow. Message is a translation key.
type Result struct {
	Message      string `json:"message"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
}

type ResetPasswordInput struct {
	Email    string
	Token    string
	Password string
}

type Service struct {
	config   *config.Config
	users    *users.Service
	tokens   *verification.Service
	jwt      *jwt.Service
	hasher   *hasher.Service
	notifier Notifier
	logger   *logging.Service

	dummyOnce   sync.Once
	dummyDigest string
}

func NewService(
	cfg *config.Config,
	userService *users.Service,
	tokenStore *verification.Service,
	jwtService *jwt.Service,
	hasherService *hasher.Service,
	notifier Notifier,
	logger *logging.Service,
) *Service {
	return &Service{
		config:   cfg,
		users:    userService,
		tokens:   tokenStore,
		jwt:      jwtService,
		hasher:   hasherService,
		notifier: notifier,
		logger:   logger.Named("auth"),
	}
}

func invalidCredential() error {
	return apperror.BadRequest("error.invalid_credential")
}

func accessDenied() error {
	return apperror.Forbidden("error.access_denied")
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	email := users.NormalizeEmail(in.Email)

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		s.logger.Warn("registration failed: email already exists", zap.String("email", email))
		return nil, apperror.Conflict("error.user_already_existed").WithCause(users.ErrEmailTaken)
	}

	user, err := s.users.Save(ctx, users.SaveInput{
		Name:     in.Name,
		Email:    email,
		Password: in.Password,
	}, users.StatusInactive, users.RoleStudent)
	if err != nil {
		return nil, err
	}

	pair, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.sendEmailVerification(ctx, user.Email); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return &Result{Message: MsgRegisterSuccess, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// Login answers unknown emails and wrong passwords identically.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Result, error) {
	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if !errors.Is(err, users.ErrUserNotFound) {
			return nil, err
		}
		s.hasher.Verify(in.Password, s.dummyHash())
		s.logger.Warn("login failed: unknown email", zap.String("email", users.NormalizeEmail(in.Email)))
		return nil, invalidCredential()
	}

	if !s.users.MatchesPassword(user, in.Password) {
		s.logger.Warn("login failed: invalid password", zap.String("user_id", user.ID))
		return nil, invalidCredential()
	}

	pair, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.users.RecordLogin(ctx, user.ID, in.UserAgent); err != nil {
		s.logger.Warn("failed to record login", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return &Result{Message: MsgLoginSuccess, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// Logout drops the stored refresh token and revokes the presented access
// token. Calling it twice is harmless.
func (s *Service) Logout(ctx context.Context, userID string, access *jwt.Claims) (*Result, error) {
	if err := s.users.ClearRefreshToken(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.jwt.RevokeToken(ctx, access); err != nil {
		s.logger.Warn("failed to revoke access token on logout", zap.String("user_id", userID), zap.Error(err))
	}

	s.logger.Info("user logged out", zap.String("user_id", userID))
	return &Result{Message: MsgLogoutSuccess}, nil
}

// Refresh rotates the token pair. The presented refresh token must be the
// one currently stored for the user.
func (s *Service) Refresh(ctx context.Context, userID, refreshToken string) (*Result, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, accessDenied()
		}
		return nil, err
	}

	if !s.users.MatchesRefreshToken(user, refreshToken) {
		s.logger.Warn("refresh denied: token does not match", zap.String("user_id", userID))
		return nil, accessDenied()
	}

	pair, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &Result{Message: MsgRefreshSuccess, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// ForgotPassword always reports success so callers cannot probe for
// registered emails.
func (s *Service) ForgotPassword(ctx context.Context, email string) (*Result, error) {
	result := &Result{Message: MsgPasswordResetRequested}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			s.logger.Info("password reset requested for unknown email", zap.String("email", users.NormalizeEmail(email)))
			return result, nil
		}
		return nil, err
	}

	ttl := s.config.Verification.ResetExpiry
	token, err := s.issueVerificationToken(ctx, user.Email, ttl)
	if err != nil {
		return nil, err
	}

	s.notifier.SendPasswordReset(ctx, user.Email, token, ttl)
	s.logger.Info("password reset requested", zap.String("user_id", user.ID))
	return result, nil
}

// ResetPassword checks the token before touching the user so an unknown
// email fails exactly like a bad token.
func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) (*Result, error) {
	row, email, err := s.checkVerificationToken(ctx, in.Token)
	if err != nil {
		return nil, err
	}
	if email != users.NormalizeEmail(in.Email) {
		return nil, apperror.BadRequest("error.mismatched_email")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, apperror.BadRequest("error.token_not_exist").WithCause(err)
		}
		return nil, err
	}

	if err := s.users.UpdatePassword(ctx, user.ID, in.Password); err != nil {
		return nil, err
	}
	if err := s.tokens.Consume(ctx, row.ID); err != nil {
		return nil, err
	}
	if err := s.users.ClearRefreshToken(ctx, user.ID); err != nil {
		return nil, err
	}

	s.logger.Info("password reset", zap.String("user_id", user.ID))
	return &Result{Message: MsgPasswordResetSuccessful}, nil
}

// VerifyResetToken runs the reset token checks without consuming it.
func (s *Service) VerifyResetToken(ctx context.Context, token string) (*Result, error) {
	if _, _, err := s.checkVerificationToken(ctx, token); err != nil {
		return nil, err
	}
	return &Result{Message: MsgTokenValid}, nil
}

func (s *Service) ConfirmEmail(ctx context.Context, token string) (*Result, error) {
	row, email, err := s.checkVerificationToken(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	first, err := s.users.MarkEmailVerified(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Consume(ctx, row.ID); err != nil {
		return nil, err
	}

	if !first {
		return &Result{Message: MsgEmailAlreadyConfirmed}, nil
	}

	s.logger.Info("email confirmed", zap.String("user_id", user.ID))
	return &Result{Message: MsgEmailConfirmed}, nil
}

// HandleAuth signs in a provider identity, creating the user on first sight.
// Only the identity's own fields are used to build the account.
func (s *Service) HandleAuth(ctx context.Context, identity *social.Identity) (*Result, error) {
	if identity == nil || !identity.Provider.Valid() {
		return nil, apperror.BadRequest("error.provider_unsupported").WithArgs(map[string]any{"provider": providerName(identity)})
	}

	user, err := s.users.FindByEmail(ctx, identity.Email)
	if err != nil {
		if !errors.Is(err, users.ErrUserNotFound) {
			return nil, err
		}
		user, err = s.createSocialUser(ctx, identity)
		if err != nil {
			return nil, err
		}
	} else if !user.IsVerified() {
		// the provider proved ownership of an address nobody confirmed here
		if err := s.users.ClearCredentials(ctx, user.ID); err != nil {
			return nil, err
		}
		if _, err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
			return nil, err
		}
		s.logger.Info("unverified account claimed by provider sign-in", zap.String("user_id", user.ID))
	}

	created, err := s.users.LinkSocialAccount(ctx, user.ID, identity.Provider, identity.AccountID, user.ID)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info("social account linked", zap.String("user_id", user.ID), zap.String("provider", string(identity.Provider)))
	}

	pair, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &Result{Message: MsgLoginSuccess, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (s *Service) createSocialUser(ctx context.Context, identity *social.Identity) (*users.User, error) {
	name := identity.Name
	if name == "" {
		name = identity.Email
	}

	user, err := s.users.Save(ctx, users.SaveInput{
		Name:     name,
		Email:    identity.Email,
		Image:    identity.Image,
		Verified: true,
	}, users.StatusActive, users.RoleStudent)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost a race with a concurrent sign-in for the same email
		return s.users.FindByEmail(ctx, identity.Email)
	}
	return user, err
}

func (s *Service) Me(ctx context.Context, userID string) (*users.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *Service) startSession(ctx context.Context, userID string) (*jwt.TokenPair, error) {
	pair, err := s.jwt.IssuePair(userID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if err := s.users.SetRefreshTokenHash(ctx, userID, pair.RefreshToken); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *Service) sendEmailVerification(ctx context.Context, email string) error {
	token, err := s.issueVerificationToken(ctx, email, s.config.Verification.EmailExpiry)
	if err != nil {
		return err
	}
	s.notifier.SendVerification(ctx, email, token)
	return nil
}

func (s *Service) issueVerificationToken(ctx context.Context, email string, ttl time.Duration) (string, error) {
	token, expiresAt, err := s.jwt.IssueVerificationToken(email, ttl)
	if err != nil {
		return "", apperror.Internal(err)
	}
	if _, err := s.tokens.Upsert(ctx, email, token, expiresAt); err != nil {
		return "", err
	}
	return token, nil
}

// checkVerificationToken requires the token to be stored, unexpired and
// correctly signed, and returns the email it was issued for.
func (s *Service) checkVerificationToken(ctx context.Context, token string) (*verification.VerificationToken, string, error) {
	row, err := s.tokens.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, verification.ErrTokenNotFound) {
			return nil, "", apperror.BadRequest("error.token_not_exist").WithCause(err)
		}
		return nil, "", err
	}

	if row.Expired(time.Now()) {
		return nil, "", apperror.BadRequest("error.token_already_used")
	}

	claims, err := s.jwt.ValidateVerificationToken(token)
	if err != nil {
		if jwt.IsExpired(err) {
			return nil, "", apperror.BadRequest("error.token_expired").WithCause(err)
		}
		return nil, "", apperror.BadRequest("error.invalid_token").WithCause(err)
	}

	if claims.Email != row.Email {
		return nil, "", apperror.BadRequest("error.invalid_token")
	}

	return row, claims.Email, nil
}

func (s *Service) dummyHash() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("timing-equalizer")
		if err == nil {
			s.dummyDigest = digest
		}
	})
	return s.dummyDigest
}

func providerName(identity *social.Identity) string {
	if identity == nil {
		return ""
	}
	return string(identity.Provider)
}

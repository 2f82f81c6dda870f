package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tech-arch1tect/edusms/config"
	"github.com/tech-arch1tect/edusms/services/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidToken     = errors.New("invalid JWT token")
	ErrExpiredToken     = errors.New("JWT token has expired")
	ErrMalformedToken   = errors.New("malformed JWT token")
	ErrInvalidSignature = errors.New("invalid JWT token signature")
	ErrWrongTokenType   = errors.New("unexpected JWT token type")
	ErrTokenRevoked     = errors.New("JWT token has been revoked")
)

const (
	TokenTypeAccess       = "access"
	TokenTypeRefresh      = "refresh"
	TokenTypeVerification = "verification"
)

type Claims struct {
	UserID    string `json:"id,omitempty"`
	Email     string `json:"email,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

type RevocationService interface {
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

type Service struct {
	config            *config.Config
	logger            *logging.Service
	revocationService RevocationService
}

func NewService(cfg *config.Config, logger *logging.Service) *Service {
	return &Service{
		config: cfg,
		logger: logger.Named("jwt"),
	}
}

func (s *Service) SetRevocationService(revocationService RevocationService) {
	s.revocationService = revocationService
}

func (s *Service) IssueAccessToken(userID string) (string, time.Time, error) {
	return s.sign(Claims{UserID: userID, TokenType: TokenTypeAccess}, userID, s.config.JWT.AccessExpiry, s.config.JWT.SecretKey)
}

func (s *Service) IssueRefreshToken(userID string) (string, time.Time, error) {
	return s.sign(Claims{UserID: userID, TokenType: TokenTypeRefresh}, userID, s.config.JWT.RefreshExpiry, s.config.JWT.RefreshSecret)
}

// IssueVerificationToken signs an email-bound token used for email
// confirmation and password reset links.
func (s *Service) IssueVerificationToken(email string, ttl time.Duration) (string, time.Time, error) {
	return s.sign(Claims{Email: email, TokenType: TokenTypeVerification}, email, ttl, s.config.JWT.VerificationTokenSecret)
}

// IssuePair signs an access and a refresh token for userID concurrently.
func (s *Service) IssuePair(userID string) (*TokenPair, error) {
	var pair TokenPair
	var g errgroup.Group

	g.Go(func() error {
		token, exp, err := s.IssueAccessToken(userID)
		pair.AccessToken, pair.AccessExpiresAt = token, exp
		return err
	})
	g.Go(func() error {
		token, exp, err := s.IssueRefreshToken(userID)
		pair.RefreshToken, pair.RefreshExpiresAt = token, exp
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &pair, nil
}

func (s *Service) sign(claims Claims, subject string, ttl time.Duration, secret string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    s.config.JWT.Issuer,
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		NotBefore: jwt.NewNumericDate(now),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		s.logger.Error("failed to sign JWT token", zap.String("token_type", claims.TokenType), zap.Error(err))
		return "", time.Time{}, fmt.Errorf("failed to generate %s token: %w", claims.TokenType, err)
	}

	return tokenString, expiresAt, nil
}

// ValidateAccessToken verifies an access token and rejects revoked ones.
func (s *Service) ValidateAccessToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := s.Verify(tokenString, s.config.JWT.SecretKey, TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	if s.revocationService != nil {
		revoked, err := s.revocationService.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			// fail open: the store being down must not lock every user out
			s.logger.Error("failed to check token revocation status", zap.Error(err))
		} else if revoked {
			s.logger.Warn("token validation failed - token has been revoked", zap.String("jti", claims.ID))
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

func (s *Service) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.Verify(tokenString, s.config.JWT.RefreshSecret, TokenTypeRefresh)
}

func (s *Service) ValidateVerificationToken(tokenString string) (*Claims, error) {
	return s.Verify(tokenString, s.config.JWT.VerificationTokenSecret, TokenTypeVerification)
}

// Verify checks signature, expiry and token type. Expired tokens fail with
// ErrExpiredToken so callers can tell them apart from forged ones.
func (s *Service) Verify(tokenString, secret, tokenType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() == "none" {
			return nil, errors.New("'none' algorithm is not allowed")
		}

		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected algorithm: expected HS256, got %s", token.Method.Alg())
		}

		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid algorithm family: %v", token.Header["alg"])
		}

		return []byte(secret), nil
	}, jwt.WithIssuer(s.config.JWT.Issuer), jwt.WithExpirationRequired())

	if err != nil {
		s.logger.Debug("JWT token validation failed", zap.String("token_type", tokenType), zap.Error(err))

		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != tokenType {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}

// RevokeToken blacklists the token's JTI until it would have expired anyway.
func (s *Service) RevokeToken(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return nil
	}

	if s.revocationService == nil {
		s.logger.Debug("token revocation requested but revocation service not available")
		return nil
	}

	expiresAt := time.Now().Add(s.config.JWT.AccessExpiry)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := s.revocationService.RevokeToken(ctx, claims.ID, expiresAt); err != nil {
		s.logger.Error("failed to revoke token", zap.Error(err))
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	return nil
}

func IsExpired(err error) bool {
	return errors.Is(err, ErrExpiredToken)
}

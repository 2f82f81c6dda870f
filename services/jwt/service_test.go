package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/edusms/testutils"
)

func signRaw(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestNewService(t *testing.T) {
	cfg := testutils.GetTestConfig()
	service := NewService(cfg, nil)

	assert.Equal(t, cfg, service.config)
	assert.Nil(t, service.logger)
	assert.Nil(t, service.revocationService)

	mockRevocation := &testutils.MockRevocationService{}
	service.SetRevocationService(mockRevocation)
	assert.Equal(t, mockRevocation, service.revocationService)
}

func TestService_IssuePair(t *testing.T) {
	cfg := testutils.GetTestConfig()
	service := NewService(cfg, nil)

	pair, err := service.IssuePair("user-1")
	require.NoError(t, err)

	access, err := service.ValidateAccessToken(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", access.UserID)
	assert.Equal(t, "user-1", access.Subject)
	assert.Equal(t, TokenTypeAccess, access.TokenType)
	assert.NotEmpty(t, access.ID)
	assert.WithinDuration(t, time.Now().Add(cfg.JWT.AccessExpiry), pair.AccessExpiresAt, 5*time.Second)

	refresh, err := service.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", refresh.UserID)
	assert.WithinDuration(t, time.Now().Add(cfg.JWT.RefreshExpiry), pair.RefreshExpiresAt, 5*time.Second)

	t.Run("tokens are not interchangeable", func(t *testing.T) {
		_, err := service.ValidateRefreshToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidSignature)

		_, err = service.ValidateAccessToken(context.Background(), pair.RefreshToken)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("every pair is unique", func(t *testing.T) {
		next, err := service.IssuePair("user-1")
		require.NoError(t, err)
		assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)
		assert.NotEqual(t, pair.AccessToken, next.AccessToken)
	})
}

func TestService_VerificationToken(t *testing.T) {
	cfg := testutils.GetTestConfig()
	service := NewService(cfg, nil)

	token, expiresAt, err := service.IssueVerificationToken("a@school.test", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := service.ValidateVerificationToken(token)
	require.NoError(t, err)
	assert.Equal(t, "a@school.test", claims.Email)
	assert.Empty(t, claims.UserID)
}

func TestService_Verify(t *testing.T) {
	cfg := testutils.GetTestConfig()
	service := NewService(cfg, nil)
	now := time.Now()

	t.Run("malformed token", func(t *testing.T) {
		claims, err := service.ValidateRefreshToken("invalid.token.string")

		assert.Nil(t, claims)
		testutils.AssertErrorType(t, ErrMalformedToken, err)
	})

	t.Run("expired token is distinguishable", func(t *testing.T) {
		tokenString := signRaw(t, Claims{
			Email:     "a@school.test",
			TokenType: TokenTypeVerification,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    cfg.JWT.Issuer,
				ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
				IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			},
		}, cfg.JWT.VerificationTokenSecret)

		claims, err := service.ValidateVerificationToken(tokenString)

		assert.Nil(t, claims)
		testutils.AssertErrorType(t, ErrExpiredToken, err)
		assert.True(t, IsExpired(err))
	})

	t.Run("wrong secret", func(t *testing.T) {
		tokenString, _, err := service.IssueVerificationToken("a@school.test", time.Hour)
		require.NoError(t, err)

		_, err = service.Verify(tokenString, "another-key-with-enough-length-0123456789", TokenTypeVerification)
		testutils.AssertErrorType(t, ErrInvalidSignature, err)
		assert.False(t, IsExpired(err))
	})

	t.Run("wrong token type", func(t *testing.T) {
		tokenString := signRaw(t, Claims{
			UserID:    "user-1",
			TokenType: TokenTypeRefresh,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    cfg.JWT.Issuer,
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}, cfg.JWT.SecretKey)

		_, err := service.ValidateAccessToken(context.Background(), tokenString)
		assert.ErrorIs(t, err, ErrWrongTokenType)
	})

	t.Run("foreign issuer rejected", func(t *testing.T) {
		tokenString := signRaw(t, Claims{
			UserID:    "user-1",
			TokenType: TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "someone-else",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}, cfg.JWT.SecretKey)

		_, err := service.ValidateAccessToken(context.Background(), tokenString)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing expiry rejected", func(t *testing.T) {
		tokenString := signRaw(t, Claims{
			UserID:           "user-1",
			TokenType:        TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{Issuer: cfg.JWT.Issuer},
		}, cfg.JWT.SecretKey)

		_, err := service.ValidateAccessToken(context.Background(), tokenString)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm rejected", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			UserID:    "user-1",
			TokenType: TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    cfg.JWT.Issuer,
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		})
		tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		result, err := service.ValidateAccessToken(context.Background(), tokenString)

		assert.Nil(t, result)
		testutils.AssertErrorType(t, ErrInvalidToken, err)
	})
}

func TestService_Revocation(t *testing.T) {
	cfg := testutils.GetTestConfig()
	service := NewService(cfg, nil)
	mockRevocation := &testutils.MockRevocationService{}
	service.SetRevocationService(mockRevocation)
	ctx := context.Background()

	tokenString, _, err := service.IssueAccessToken("user-1")
	require.NoError(t, err)
	claims, err := service.Verify(tokenString, cfg.JWT.SecretKey, TokenTypeAccess)
	require.NoError(t, err)

	t.Run("token not revoked", func(t *testing.T) {
		mockRevocation.On("IsTokenRevoked", ctx, claims.ID).Return(false, nil).Once()

		result, err := service.ValidateAccessToken(ctx, tokenString)

		require.NoError(t, err)
		assert.Equal(t, "user-1", result.UserID)
		mockRevocation.AssertExpectations(t)
	})

	t.Run("token revoked", func(t *testing.T) {
		mockRevocation.On("IsTokenRevoked", ctx, claims.ID).Return(true, nil).Once()

		result, err := service.ValidateAccessToken(ctx, tokenString)

		assert.Nil(t, result)
		testutils.AssertErrorType(t, ErrTokenRevoked, err)
		mockRevocation.AssertExpectations(t)
	})

	t.Run("revocation store failure fails open", func(t *testing.T) {
		mockRevocation.On("IsTokenRevoked", ctx, claims.ID).Return(false, assert.AnError).Once()

		result, err := service.ValidateAccessToken(ctx, tokenString)

		require.NoError(t, err)
		assert.NotNil(t, result)
		mockRevocation.AssertExpectations(t)
	})

	t.Run("revoke uses token expiry", func(t *testing.T) {
		mockRevocation.On("RevokeToken", ctx, claims.ID, claims.ExpiresAt.Time).Return(nil).Once()

		require.NoError(t, service.RevokeToken(ctx, claims))
		mockRevocation.AssertExpectations(t)
	})

	t.Run("revoke error is wrapped", func(t *testing.T) {
		mockRevocation.On("RevokeToken", ctx, claims.ID, mock.Anything).Return(assert.AnError).Once()

		err := service.RevokeToken(ctx, claims)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("nil claims is a no-op", func(t *testing.T) {
		assert.NoError(t, service.RevokeToken(ctx, nil))
	})
}

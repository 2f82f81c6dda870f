package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/edusms/apperror"
	"github.com/tech-arch1tect/edusms/services/hasher"
	"github.com/tech-arch1tect/edusms/services/jwt"
	"github.com/tech-arch1tect/edusms/services/revocation"
	"github.com/tech-arch1tect/edusms/services/social"
	"github.com/tech-arch1tect/edusms/services/users"
	"github.com/tech-arch1tect/edusms/services/verification"
	"github.com/tech-arch1tect/edusms/testutils"
	"gorm.io/gorm"
)

type fixture struct {
	svc      *Service
	users    *users.Service
	tokens   *verification.Service
	jwt      *jwt.Service
	notifier *testutils.RecordingNotifier
	db       *gorm.DB
}

func setup(t *testing.T) *fixture {
	t.Helper()

	cfg := testutils.GetTestConfig()
	db := testutils.SetupTestDB(t, append(users.Models(), &verification.VerificationToken{})...)

	h := hasher.NewService(cfg.Auth.BcryptCost)
	userService := users.NewService(db, h, nil)
	tokenStore := verification.NewService(db, nil)
	jwtService := jwt.NewService(cfg, nil)
	jwtService.SetRevocationService(revocation.NewService(revocation.NewMemoryStore(nil), nil))
	notifier := &testutils.RecordingNotifier{}

	return &fixture{
		svc:      NewService(cfg, userService, tokenStore, jwtService, h, notifier, nil),
		users:    userService,
		tokens:   tokenStore,
		jwt:      jwtService,
		notifier: notifier,
		db:       db,
	}
}

func (f *fixture) register(t *testing.T, email string) *Result {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterInput{
		Name:     "Sok Dara",
		Email:    email,
		Password: testutils.TestPasswords.Valid,
	})
	require.NoError(t, err)
	return res
}

func TestService_Register(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res := f.register(t, "Dara@School.test")
	assert.Equal(t, MsgRegisterSuccess, res.Message)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)

	user, err := f.users.FindByEmail(ctx, "dara@school.test")
	require.NoError(t, err)
	assert.Equal(t, users.RoleStudent, user.Role)
	assert.Equal(t, users.StatusInactive, user.Status)
	assert.Nil(t, user.EmailVerified)
	assert.True(t, f.users.MatchesRefreshToken(user, res.RefreshToken))

	sent, ok := f.notifier.Last("verification")
	require.True(t, ok)
	assert.Equal(t, "dara@school.test", sent.Email)

	row, err := f.tokens.FindByToken(ctx, sent.Token)
	require.NoError(t, err)
	assert.Equal(t, "dara@school.test", row.Email)

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		_, err := f.svc.Register(ctx, RegisterInput{Name: "Other", Email: "dara@school.test", Password: testutils.TestPasswords.Other})
		assert.True(t, apperror.Is(err, apperror.KindConflict, "error.user_already_existed"))
		assert.ErrorIs(t, err, users.ErrEmailTaken)
	})
}

func TestService_Login(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.register(t, "dara@school.test")

	t.Run("valid credentials", func(t *testing.T) {
		res, err := f.svc.Login(ctx, LoginInput{
			Email:     "DARA@school.test",
			Password:  testutils.TestPasswords.Valid,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		})
		require.NoError(t, err)
		assert.Equal(t, MsgLoginSuccess, res.Message)

		claims, err := f.jwt.ValidateAccessToken(ctx, res.AccessToken)
		require.NoError(t, err)

		user, err := f.users.FindByID(ctx, claims.UserID)
		require.NoError(t, err)
		assert.True(t, f.users.MatchesRefreshToken(user, res.RefreshToken))
		require.NotNil(t, user.LastLoginAt)
		assert.Contains(t, user.LastLoginDevice, "Chrome")
	})

	t.Run("wrong password and unknown email fail identically", func(t *testing.T) {
		_, wrongPassword := f.svc.Login(ctx, LoginInput{Email: "dara@school.test", Password: testutils.TestPasswords.Other})
		_, unknownEmail := f.svc.Login(ctx, LoginInput{Email: "nobody@school.test", Password: testutils.TestPasswords.Valid})

		require.Error(t, wrongPassword)
		require.Error(t, unknownEmail)
		assert.True(t, apperror.Is(wrongPassword, apperror.KindBadRequest, "error.invalid_credential"))
		assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	})
}

func TestService_Refresh(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	first := f.register(t, "dara@school.test")

	claims, err := f.jwt.ValidateRefreshToken(first.RefreshToken)
	require.NoError(t, err)

	second, err := f.svc.Refresh(ctx, claims.UserID, first.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, MsgRefreshSuccess, second.Message)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	t.Run("previous refresh token stops working", func(t *testing.T) {
		_, err := f.svc.Refresh(ctx, claims.UserID, first.RefreshToken)
		assert.True(t, apperror.Is(err, apperror.KindForbidden, "error.access_denied"))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.svc.Refresh(ctx, "00000000-0000-0000-0000-000000000000", second.RefreshToken)
		assert.True(t, apperror.Is(err, apperror.KindForbidden, "error.access_denied"))
	})
}

func TestService_Logout(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	res := f.register(t, "dara@school.test")

	access, err := f.jwt.ValidateAccessToken(ctx, res.AccessToken)
	require.NoError(t, err)

	out, err := f.svc.Logout(ctx, access.UserID, access)
	require.NoError(t, err)
	assert.Equal(t, MsgLogoutSuccess, out.Message)

	user, err := f.users.FindByID(ctx, access.UserID)
	require.NoError(t, err)
	assert.Nil(t, user.RefreshToken)

	_, err = f.jwt.ValidateAccessToken(ctx, res.AccessToken)
	assert.ErrorIs(t, err, jwt.ErrTokenRevoked)

	_, err = f.svc.Refresh(ctx, access.UserID, res.RefreshToken)
	assert.True(t, apperror.Is(err, apperror.KindForbidden, "error.access_denied"))

	t.Run("idempotent", func(t *testing.T) {
		_, err := f.svc.Logout(ctx, access.UserID, access)
		assert.NoError(t, err)
	})
}

func TestService_ConfirmEmail(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.register(t, "dara@school.test")

	sent, ok := f.notifier.Last("verification")
	require.True(t, ok)

	res, err := f.svc.ConfirmEmail(ctx, sent.Token)
	require.NoError(t, err)
	assert.Equal(t, MsgEmailConfirmed, res.Message)

	user, err := f.users.FindByEmail(ctx, "dara@school.test")
	require.NoError(t, err)
	assert.True(t, user.IsVerified())
	assert.Equal(t, users.StatusActive, user.Status)

	t.Run("consumed token cannot be reused", func(t *testing.T) {
		_, err := f.svc.ConfirmEmail(ctx, sent.Token)
		assert.True(t, apperror.Is(err, apperror.KindBadRequest, "error.token_not_exist"))
	})

	t.Run("already confirmed user", func(t *testing.T) {
		token, exp, err := f.jwt.IssueVerificationToken("dara@school.test", time.Hour)
		require.NoError(t, err)
		_, err = f.tokens.Upsert(ctx, "dara@school.test", token, exp)
		require.NoError(t, err)

		res, err := f.svc.ConfirmEmail(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, MsgEmailAlreadyConfirmed, res.Message)
	})

	t.Run("expired row is rejected even with a valid signature", func(t *testing.T) {
		token, _, err := f.jwt.IssueVerificationToken("dara@school.test", time.Hour)
		require.NoError(t, err)
		_, err = f.tokens.Upsert(ctx, "dara@school.test", token, time.Now().Add(-time.Minute))
		require.NoError(t, err)

		_, err = f.svc.ConfirmEmail(ctx, token)
		assert.True(t, apperror.Is(err, apperror.KindBadRequest, "error.token_already_used"))
	})

	t.Run("expired signature", func(t *testing.T) {
		token, _, err := f.jwt.IssueVerificationToken("dara@school.test", -time.Minute)
		require.NoError(t, err)
		_, err = f.tokens.Upsert(ctx, "dara@school.test", token, time.Now().Add(time.Hour))
		require.NoError(t, err)

		_, err = f.svc.ConfirmEmail(ctx, token)
		assert.True(t, apperror.Is(err, apperror.KindBadRequest, "error.token_expired"))
		assert.ErrorIs(t, err, jwt.ErrExpiredToken)
	})

	t.Run("token signed with the wrong secret", func(t *testing.T) {
		forged, _, err := f.jwt.IssueAccessToken("someone")
		require.NoError(t, err)
		_, err = f.tokens.Upsert(ctx, "dara@school.test", forged, time.Now().Add(time.Hour))
		require.NoError(t, err)

		_, err = f.svc.ConfirmEmail(ctx, forged)
		assert.True(t, apperror.Is(err, apperror.KindBadRequest, "error.invalid_token"))
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := f.svc.ConfirmEmail(ctx, "not-a-token")
		assert.True(t, apperror.Is(err, apperror.KindBadRequest, "error.token_not_exist"))
	})
}

func TestService_ForgotAndResetPassword(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	registered := f.register(t, "dara@school.test")

	res, err := f.svc.ForgotPassword(ctx, "dara@school.test")
	require.NoError(t, err)
	assert.Equal(t, MsgPasswordResetRequested, res.Message)

	sent, ok := f.notifier.Last("password_reset")
	require.True(t, ok)
	assert.Equal(t, time.Hour, sent.ExpiresIn)

	valid, err := f.svc.VerifyResetToken(ctx, sent.Token)
	require.NoError(t, err)
	assert.Equal(t, MsgTokenValid, valid.Message)

	t.Run("token for another email", func(t *testing.T) {
		f.register(t, "other@school.test")
		_, err := f.svc.ResetPassword(ctx, ResetPasswordInput{Email: "other@school.test", Token: sent.Token, Password: testutils.TestPasswords.Other})
		assert.True(t, apperror.Is(err, apperror.KindBadRequest, "error.mismatched_email"))
	})

	done, err := f.svc.ResetPassword(ctx, ResetPasswordInput{Email: "dara@school.test", Token: sent.Token, Password: testutils.TestPasswords.Other})
	require.NoError(t, err)
	assert.Equal(t, MsgPasswordResetSuccessful, done.Message)

	_, err = f.svc.Login(ctx, LoginInput{Email: "dara@school.test", Password: testutils.TestPasswords.Valid})
	assert.True(t, apperror.Is(err, apperror.KindBadRequest, "error.invalid_credential"))

	_, err = f.svc.Login(ctx, LoginInput{Email: "dara@school.test", Password: testutils.TestPasswords.Other})
	assert.NoError(t, err)

	t.Run("reset ends existing sessions", func(t *testing.T) {
		claims, err := f.jwt.ValidateRefreshToken(registered.RefreshToken)
		require.NoError(t, err)
		_, err = f.svc.Refresh(ctx, claims.UserID, registered.RefreshToken)
		assert.True(t, apperror.Is(err, apperror.KindForbidden, "error.access_denied"))
	})

	t.Run("token is single use", func(t *testing.T) {
		_, err := f.svc.ResetPassword(ctx, ResetPasswordInput{Email: "dara@school.test", Token: sent.Token, Password: testutils.TestPasswords.Valid})
		assert.True(t, apperror.Is(err, apperror.KindBadRequest, "error.token_not_exist"))
	})

	t.Run("unknown email gets the same answer and no mail", func(t *testing.T) {
		before := len(f.notifier.Sent())
		res, err := f.svc.ForgotPassword(ctx, "nobody@school.test")
		require.NoError(t, err)
		assert.Equal(t, MsgPasswordResetRequested, res.Message)
		assert.Len(t, f.notifier.Sent(), before)
	})

	t.Run("valid token for an email with no account", func(t *testing.T) {
		token, err := f.svc.issueVerificationToken(ctx, "ghost@school.test", time.Hour)
		require.NoError(t, err)

		_, err = f.svc.ResetPassword(ctx, ResetPasswordInput{Email: "Ghost@School.test", Token: token, Password: testutils.TestPasswords.Other})
		assert.True(t, apperror.Is(err, apperror.KindBadRequest, "error.token_not_exist"))
	})

	t.Run("bad token reads the same for any email", func(t *testing.T) {
		_, known := f.svc.ResetPassword(ctx, ResetPasswordInput{Email: "dara@school.test", Token: "bogus", Password: testutils.TestPasswords.Other})
		_, unknown := f.svc.ResetPassword(ctx, ResetPasswordInput{Email: "nobody@school.test", Token: "bogus", Password: testutils.TestPasswords.Other})
		assert.True(t, apperror.Is(known, apperror.KindBadRequest, "error.token_not_exist"))
		assert.True(t, apperror.Is(unknown, apperror.KindBadRequest, "error.token_not_exist"))
	})
}

func TestService_HandleAuth(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	identity := &social.Identity{
		Provider:  users.ProviderGoogle,
		AccountID: "google-123",
		Email:     "kanha@gmail.test",
		Name:      "Kanha",
	}

	first, err := f.svc.HandleAuth(ctx, identity)
	require.NoError(t, err)
	second, err := f.svc.HandleAuth(ctx, identity)
	require.NoError(t, err)

	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	user, err := f.users.FindByEmail(ctx, "kanha@gmail.test")
	require.NoError(t, err)
	assert.Equal(t, users.RoleStudent, user.Role)
	assert.Equal(t, users.StatusActive, user.Status)
	assert.True(t, user.IsVerified())
	assert.Empty(t, user.Password)
	assert.True(t, f.users.MatchesRefreshToken(user, second.RefreshToken))

	links, err := f.users.ListSocialLinks(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, users.ProviderGoogle, links[0].Provider)
	assert.Equal(t, "google-123", links[0].ProviderAccountID)

	t.Run("social user cannot sign in with an empty password", func(t *testing.T) {
		_, err := f.svc.Login(ctx, LoginInput{Email: "kanha@gmail.test", Password: ""})
		assert.True(t, apperror.Is(err, apperror.KindBadRequest, "error.invalid_credential"))
	})

	t.Run("verified password user gets a provider linked", func(t *testing.T) {
		f.register(t, "dara@school.test")
		dara, err := f.users.FindByEmail(ctx, "dara@school.test")
		require.NoError(t, err)
		_, err = f.users.MarkEmailVerified(ctx, dara.ID)
		require.NoError(t, err)

		_, err = f.svc.HandleAuth(ctx, &social.Identity{Provider: users.ProviderFacebook, AccountID: "fb-9", Email: "dara@school.test"})
		require.NoError(t, err)

		links, err := f.users.ListSocialLinks(ctx, dara.ID)
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, users.ProviderFacebook, links[0].Provider)

		_, err = f.svc.Login(ctx, LoginInput{Email: "dara@school.test", Password: testutils.TestPasswords.Valid})
		assert.NoError(t, err)
	})

	t.Run("unverified account loses its password to the provider", func(t *testing.T) {
		squatter := f.register(t, "victim@school.test")

		res, err := f.svc.HandleAuth(ctx, &social.Identity{Provider: users.ProviderGoogle, AccountID: "g-victim", Email: "victim@school.test"})
		require.NoError(t, err)

		victim, err := f.users.FindByEmail(ctx, "victim@school.test")
		require.NoError(t, err)
		assert.True(t, victim.IsVerified())
		assert.Equal(t, users.StatusActive, victim.Status)
		assert.Empty(t, victim.Password)
		assert.True(t, f.users.MatchesRefreshToken(victim, res.RefreshToken))

		_, err = f.svc.Login(ctx, LoginInput{Email: "victim@school.test", Password: testutils.TestPasswords.Valid})
		assert.True(t, apperror.Is(err, apperror.KindBadRequest, "error.invalid_credential"))

		_, err = f.svc.Refresh(ctx, victim.ID, squatter.RefreshToken)
		assert.True(t, apperror.Is(err, apperror.KindForbidden, "error.access_denied"))
	})

	t.Run("unsupported provider", func(t *testing.T) {
		_, err := f.svc.HandleAuth(ctx, &social.Identity{Provider: "GITHUB", AccountID: "1", Email: "x@y.test"})
		assert.True(t, apperror.Is(err, apperror.KindBadRequest, "error.provider_unsupported"))
	})
}

func TestService_HandleAuthConcurrentFirstSignIn(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	identity := &social.Identity{Provider: users.ProviderGoogle, AccountID: "g-1", Email: "race@gmail.test", Name: "Race"}

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.HandleAuth(ctx, identity)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}

	var count int64
	require.NoError(t, f.db.Model(&users.User{}).Where("email = ?", "race@gmail.test").Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.NoError(t, f.db.Model(&users.Account{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestService_Me(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	res := f.register(t, "dara@school.test")

	claims, err := f.jwt.ValidateAccessToken(ctx, res.AccessToken)
	require.NoError(t, err)

	user, err := f.svc.Me(ctx, claims.UserID)
	require.NoError(t, err)
	assert.Equal(t, "dara@school.test", user.Email)
	require.NotNil(t, user.Student)

	_, err = f.svc.Me(ctx, "00000000-0000-0000-0000-000000000000")
	assert.True(t, apperror.Is(err, apperror.KindNotFound, "error.user_not_found"))
}

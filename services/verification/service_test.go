package verification

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/edusms/testutils"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	return NewService(testutils.SetupTestDB(t, &VerificationToken{}), nil)
}

func TestService_Upsert(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	first, err := s.Upsert(ctx, "Dara@School.test", "token-1", expires)
	require.NoError(t, err)
	assert.Equal(t, "dara@school.test", first.Email)

	second, err := s.Upsert(ctx, "dara@school.test", "token-2", expires.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "one row per email")
	assert.Equal(t, "token-2", second.Token)

	_, err = s.FindByToken(ctx, "token-1")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	found, err := s.FindByToken(ctx, "token-2")
	require.NoError(t, err)
	assert.WithinDuration(t, expires.Add(time.Hour), found.Expires, time.Second)
}

func TestService_FindByTokenIgnoresExpiry(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, "old@school.test", "stale", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	row, err := s.FindByToken(ctx, "stale")
	require.NoError(t, err)
	assert.True(t, row.Expired(time.Now()))
}

func TestService_Consume(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	row, err := s.Upsert(ctx, "dara@school.test", "token-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, s.Consume(ctx, row.ID))

	_, err = s.FindByToken(ctx, "token-1")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	var stored VerificationToken
	require.NoError(t, s.db.First(&stored, "id = ?", row.ID).Error)
	assert.True(t, strings.HasPrefix(stored.Token, consumedPrefix))
	assert.True(t, stored.Expired(time.Now()))

	assert.ErrorIs(t, s.Consume(ctx, "missing"), ErrTokenNotFound)
}

func TestService_DeleteExpired(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, "old@school.test", "old", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = s.Upsert(ctx, "new@school.test", "new", time.Now().Add(time.Hour))
	require.NoError(t, err)

	removed, err := s.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = s.FindByToken(ctx, "new")
	assert.NoError(t, err)
}

func TestService_RunCleanupStopsOnCancel(t *testing.T) {
	s := setupService(t)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := s.Upsert(context.Background(), "old@school.test", "old", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.runCleanup(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		var count int64
		s.db.Model(&VerificationToken{}).Count(&count)
		return count == 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup worker did not stop")
	}
}

package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockMailService struct {
	mock.Mock
}

func (m *MockMailService) SendTemplate(ctx context.Context, templateName string, to []string, subject string, data map[string]any) error {
	args := m.Called(ctx, templateName, to, subject, data)
	return args.Error(0)
}

type MockRevocationService struct {
	mock.Mock
}

func (m *MockRevocationService) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	args := m.Called(ctx, jti)
	return args.Bool(0), args.Error(1)
}

func (m *MockRevocationService) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	args := m.Called(ctx, jti, expiresAt)
	return args.Error(0)
}

// SentNotification is one email captured by RecordingNotifier.
type SentNotification struct {
	Kind      string
	Email     string
	Token     string
	ExpiresIn time.Duration
}

// RecordingNotifier captures account emails instead of sending them.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []SentNotification
}

func (n *RecordingNotifier) SendVerification(ctx context.Context, email, token string) {
	n.record(SentNotification{Kind: "verification", Email: email, Token: token})
}

func (n *RecordingNotifier) SendPasswordReset(ctx context.Context, email, token string, expiresIn time.Duration) {
	n.record(SentNotification{Kind: "password_reset", Email: email, Token: token, ExpiresIn: expiresIn})
}

func (n *RecordingNotifier) record(s SentNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, s)
}

func (n *RecordingNotifier) Sent() []SentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]SentNotification(nil), n.sent...)
}

// Last returns the most recent email of the given kind.
func (n *RecordingNotifier) Last(kind string) (SentNotification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].Kind == kind {
			return n.sent[i], true
		}
	}
	return SentNotification{}, false
}

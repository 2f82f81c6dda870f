package testutils

import (
	"time"

	"github.com/tech-arch1tect/edusms/config"
	"golang.org/x/crypto/bcrypt"
)

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "Test School",
			URL:  "http://localhost:3000",
			Env:  "test",
		},
		Auth: config.AuthConfig{
			BcryptCost: bcrypt.MinCost,
		},
		JWT: config.JWTConfig{
			SecretKey:               "a1b2c3d4e5f6g7h8i9j0k1l2m3n4o5p6q7r8s9t0u1v2w3x4y5z6",
			RefreshSecret:           "z6y5x4w3v2u1t0s9r8q7p6o5n4m3l2k1j0i9h8g7f6e5d4c3b2a1",
			VerificationTokenSecret: "q1w2e3r4t5y6u7i8o9p0a1s2d3f4g5h6j7k8l9z0x1c2v3b4n5m6",
			AccessExpiry:            15 * time.Minute,
			RefreshExpiry:           7 * 24 * time.Hour,
			Issuer:                  "edusms-test",
		},
		Verification: config.VerificationConfig{
			EmailExpiry:   24 * time.Hour,
			ResetExpiry:   time.Hour,
			CleanupPeriod: time.Hour,
		},
		Mail: config.MailConfig{
			Enabled:     false,
			FromAddress: "noreply@school.test",
			FromName:    "edu",
			Async:       false,
			SendTimeout: time.Second,
		},
		Revocation: config.RevocationConfig{
			Enabled:       true,
			Store:         "memory",
			CleanupPeriod: time.Minute,
		},
		RateLimit: config.RateLimitConfig{
			Enabled: false,
			Rate:    10,
			Period:  time.Minute,
		},
		I18n: config.I18nConfig{
			Fallback:  "en",
			Languages: []string{"en", "kh"},
		},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			DSN:    ":memory:",
		},
	}
}

var TestPasswords = struct {
	Valid     string
	Other     string
	TooShort  string
	NoUpper   string
	NoLower   string
	NoNumber  string
	NoSpecial string
}{
	Valid:     "Password123!",
	Other:     "Another456@",
	TooShort:  "Pa1!",
	NoUpper:   "password123!",
	NoLower:   "PASSWORD123!",
	NoNumber:  "Password!!",
	NoSpecial: "Password123",
}

package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig          `envPrefix:"APP_"`
	Server       ServerConfig       `envPrefix:"SERVER_"`
	Log          LogConfig          `envPrefix:"LOG_"`
	Database     DatabaseConfig     `envPrefix:"DATABASE_"`
	Auth         AuthConfig         `envPrefix:"AUTH_"`
	JWT          JWTConfig          `envPrefix:"JWT_"`
	Verification VerificationConfig `envPrefix:"VERIFICATION_"`
	Mail         MailConfig         `envPrefix:"MAIL_"`
	Google       OAuthConfig        `envPrefix:"OAUTH_GOOGLE_"`
	Facebook     OAuthConfig        `envPrefix:"OAUTH_FACEBOOK_"`
	Revocation   RevocationConfig   `envPrefix:"REVOCATION_"`
	Redis        RedisConfig        `envPrefix:"REDIS_"`
	RateLimit    RateLimitConfig    `envPrefix:"RATE_LIMIT_"`
	I18n         I18nConfig         `envPrefix:"I18N_"`
}

type AppConfig struct {
	Name string `env:"NAME" envDefault:"SMS"`
	URL  string `env:"URL" envDefault:"http://localhost:3000"`
	Env  string `env:"ENV" envDefault:"dev"`
}

type ServerConfig struct {
	Port           string        `env:"PORT" envDefault:"3001"`
	Host           string        `env:"HOST" envDefault:"0.0.0.0"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	AllowOrigins   []string      `env:"ALLOW_ORIGINS" envDefault:"*" envSeparator:","`
	TrustedProxies []string      `env:"TRUSTED_PROXIES" envSeparator:","`
	MetricsEnabled bool          `env:"METRICS_ENABLED" envDefault:"true"`
}

type LogConfig struct {
	Level      string `env:"LEVEL" envDefault:"info"`
	Format     string `env:"FORMAT" envDefault:"json"`
	Output     string `env:"OUTPUT" envDefault:"stdout"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"MAX_AGE_DAYS" envDefault:"30"`
}

type DatabaseConfig struct {
	Driver          string        `env:"DRIVER" envDefault:"sqlite"`
	DSN             string        `env:"DSN" envDefault:"app.db"`
	AutoMigrate     bool          `env:"AUTO_MIGRATE" envDefault:"true"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"warn"`
	SlowThreshold   time.Duration `env:"SLOW_THRESHOLD" envDefault:"200ms"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
}

type AuthConfig struct {
	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`
}

type JWTConfig struct {
	SecretKey               string        `env:"SECRET_KEY"`
	RefreshSecret           string        `env:"REFRESH_SECRET"`
	VerificationTokenSecret string        `env:"VERIFICATION_TOKEN_SECRET"`
	AccessExpiry            time.Duration `env:"EXPIRATION_TIME" envDefault:"15m"`
	RefreshExpiry           time.Duration `env:"REFRESH_EXPIRATION_TIME" envDefault:"168h"`
	Issuer                  string        `env:"ISSUER" envDefault:"edusms"`
}

type VerificationConfig struct {
	EmailExpiry   time.Duration `env:"EMAIL_EXPIRY" envDefault:"24h"`
	ResetExpiry   time.Duration `env:"RESET_EXPIRY" envDefault:"1h"`
	CleanupPeriod time.Duration `env:"CLEANUP_PERIOD" envDefault:"1h"`
}

type MailConfig struct {
	Enabled      bool          `env:"ENABLED" envDefault:"false"`
	Host         string        `env:"HOST" envDefault:"smtp.resend.com"`
	Port         int           `env:"PORT" envDefault:"587"`
	Username     string        `env:"USERNAME" envDefault:"resend"`
	Password     string        `env:"API_KEY"`
	Encryption   string        `env:"ENCRYPTION" envDefault:"starttls"`
	FromAddress  string        `env:"FROM_ADDRESS" envDefault:"noreply@schoolse4group14.space"`
	FromName     string        `env:"FROM_NAME" envDefault:"edu"`
	TemplatesDir string        `env:"TEMPLATES_DIR"`
	Async        bool          `env:"ASYNC" envDefault:"true"`
	SendTimeout  time.Duration `env:"SEND_TIMEOUT" envDefault:"10s"`
}

type OAuthConfig struct {
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	RedirectURL  string   `env:"REDIRECT_URL"`
	Scopes       []string `env:"SCOPES" envSeparator:","`
}

func (c OAuthConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type RevocationConfig struct {
	Enabled       bool          `env:"ENABLED" envDefault:"true"`
	Store         string        `env:"STORE" envDefault:"memory"`
	CleanupPeriod time.Duration `env:"CLEANUP_PERIOD" envDefault:"10m"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
	Prefix   string `env:"PREFIX" envDefault:"edusms:"`
}

type RateLimitConfig struct {
	Enabled bool          `env:"ENABLED" envDefault:"true"`
	Rate    int           `env:"RATE" envDefault:"10"`
	Period  time.Duration `env:"PERIOD" envDefault:"1m"`
}

type I18nConfig struct {
	Fallback  string   `env:"FALLBACK" envDefault:"kh"`
	Languages []string `env:"LANGUAGES" envDefault:"en,kh" envSeparator:","`
}

var weakSecretPatterns = []string{"password", "secret", "test", "example", "default", "change"}

func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	if c, ok := cfg.(*Config); ok {
		return c.Validate()
	}

	return nil
}

func (c *Config) Validate() error {
	if err := validateJWTConfig(&c.JWT); err != nil {
		return err
	}
	if err := validateDatabaseConfig(&c.Database); err != nil {
		return err
	}
	return validateRevocationConfig(&c.Revocation)
}

func validateJWTConfig(cfg *JWTConfig) error {
	secrets := []struct {
		name  string
		value string
	}{
		{"JWT secret key", cfg.SecretKey},
		{"JWT refresh secret", cfg.RefreshSecret},
		{"JWT verification token secret", cfg.VerificationTokenSecret},
	}

	for _, s := range secrets {
		name, secret := s.name, s.value
		if len(secret) < 32 {
			return fmt.Errorf("%s must be at least 32 characters long", name)
		}
		lower := strings.ToLower(secret)
		for _, pattern := range weakSecretPatterns {
			if strings.Contains(lower, pattern) {
				return fmt.Errorf("%s contains weak patterns", name)
			}
		}
	}

	if cfg.SecretKey == cfg.RefreshSecret || cfg.SecretKey == cfg.VerificationTokenSecret || cfg.RefreshSecret == cfg.VerificationTokenSecret {
		return errors.New("JWT secrets must be distinct")
	}

	if cfg.AccessExpiry <= 0 || cfg.RefreshExpiry <= 0 {
		return errors.New("JWT expiration times must be positive")
	}

	if cfg.RefreshExpiry < cfg.AccessExpiry {
		return errors.New("JWT refresh expiration time must not be shorter than the access expiration time")
	}

	return nil
}

func validateDatabaseConfig(cfg *DatabaseConfig) error {
	switch cfg.Driver {
	case "sqlite", "postgres", "postgresql", "mysql":
		return nil
	default:
		return fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres, mysql)", cfg.Driver)
	}
}

func validateRevocationConfig(cfg *RevocationConfig) error {
	if !cfg.Enabled {
		return nil
	}
	switch cfg.Store {
	case "memory", "redis":
		return nil
	default:
		return fmt.Errorf("revocation store must be: memory or redis")
	}
}

package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// BaseURL is the public origin used in invitation links. When empty the
	// origin of the inviting request is used.
	BaseURL            string `env:"APP_BASE_URL"`
	TOTPIssuer         string `env:"TOTP_ISSUER,           default=ADISA"`
	BcryptCost         int    `env:"BCRYPT_COST,           default=10"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE, default=20"`

	Session SessionConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	Mail    MailConfig
}

type SessionConfig struct {
	Secret       string        `env:"SESSION_SECRET, required"`
	TTL          time.Duration `env:"SESSION_TTL,    default=168h"`
	CookieName   string        `env:"SESSION_COOKIE, default=adisa.sid"`
	CookieSecure bool          `env:"COOKIE_SECURE,  default=true"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=adisa"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	DB       int    `env:"REDIS_DB,       default=0"`
	Password string `env:"REDIS_PASSWORD"`
}

type MailConfig struct {
	// PostmarkToken selects Postmark delivery. Without it emails are only logged.
	PostmarkToken string `env:"MAIL_POSTMARK_TOKEN"`
	From          string `env:"MAIL_FROM,    default=ADISA <no-reply@africtivistes.org>"`
	Workers       int    `env:"MAIL_WORKERS, default=2"`
}

// IsDevelopment reports whether the service runs in a local environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads a .env file from the working directory when present, then the
// configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Session.Secret) < 32 {
		return errors.New("SESSION_SECRET must be at least 32 characters")
	}
	if c.Session.TTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.Mail.Workers <= 0 {
		return errors.New("MAIL_WORKERS must be positive")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/edupay/internal/pkg/env"
)

const (
	defaultTokenURL = "https://oauth2.bog.ge/auth/realms/bog/protocol/openid-connect/token"
	defaultAPIBase  = "https://api.bog.ge/payments/v1"
)

// Config is the complete runtime configuration. It is built once in main and
// handed to constructors; packages never read the environment themselves.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Payments PaymentsConfig
	Auth     AuthConfig
	Renewal  RenewalConfig
	AMQP     AMQPConfig
	Metrics  MetricsConfig
}

type AppConfig struct {
	Host string
	Port string
	Env  string
}

func (a AppConfig) IsDev() bool {
	return a.Env == "dev"
}

type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SQLitePath string
	MaxRetries int
	RetryDelay time.Duration
}

type CacheConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether a Redis host was configured explicitly.
func (c CacheConfig) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

func (c CacheConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// PaymentsConfig holds everything the gateway client, order service,
// webhook reconciler and renewal pass need.
type PaymentsConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	APIBase      string
	UseMock      bool
	SiteURL      string

	SuccessURL    string
	FailURL       string
	CallbackURL   string
	WebhookSecret string

	Currency           string
	RequestTimeout     time.Duration
	SubscriptionPeriod time.Duration
	DefaultTTL         int
	MinTTL             int
}

// Validate checks that live mode has what it needs to reach the gateway.
func (p PaymentsConfig) Validate() error {
	if p.UseMock {
		return nil
	}
	var missing []string
	if strings.TrimSpace(p.ClientID) == "" {
		missing = append(missing, "BOG_CLIENT_ID")
	}
	if strings.TrimSpace(p.ClientSecret) == "" {
		missing = append(missing, "BOG_CLIENT_SECRET")
	}
	if strings.TrimSpace(p.TokenURL) == "" {
		missing = append(missing, "BOG_OAUTH_TOKEN_URL")
	}
	if strings.TrimSpace(p.APIBase) == "" {
		missing = append(missing, "BOG_API_BASE")
	}
	if len(missing) > 0 {
		return errors.New("payments live mode requires " + strings.Join(missing, ", "))
	}
	return nil
}

type AuthConfig struct {
	JWTSecret      string
	AccessTokenTTL time.Duration
}

// Validate rejects a missing signing secret. Without it no token can be
// issued or checked.
func (a AuthConfig) Validate() error {
	if strings.TrimSpace(a.JWTSecret) == "" {
		return errors.New("JWT_SECRET_KEY is required")
	}
	return nil
}

type RenewalConfig struct {
	Schedule    string
	LockKey     string
	LockExpiry  time.Duration
	PassTimeout time.Duration
}

// Validate checks that the renewal lock outlives a pass. A lock that expires
// first would let a second pass charge the same subscriptions again.
func (r RenewalConfig) Validate() error {
	if strings.TrimSpace(r.Schedule) == "" {
		return errors.New("RENEWAL_SCHEDULE is required")
	}
	if r.LockExpiry < r.PassTimeout {
		return fmt.Errorf("RENEWAL_LOCK_EXPIRY (%s) must not be shorter than RENEWAL_PASS_TIMEOUT (%s)", r.LockExpiry, r.PassTimeout)
	}
	return nil
}

type AMQPConfig struct {
	URL      string
	Exchange string
}

type MetricsConfig struct {
	User     string
	Password string
}

// Load builds the configuration from the environment. env.SetupEnvFile must
// have run before if a .env file should be honoured.
func Load() *Config {
	siteURL := strings.TrimRight(env.GetEnv("SITE_URL", "http://localhost:4000"), "/")

	return &Config{
		App: AppConfig{
			Host: env.GetEnv("APP_HOST", "localhost"),
			Port: env.GetEnv("APP_PORT", "4000"),
			Env:  env.GetEnv("APP_ENV", "prod"),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(env.GetEnv("DB_DRIVER", "mysql")),
			Host:       env.GetEnv("DB_HOST", "127.0.0.1"),
			Port:       env.GetEnv("DB_PORT", ""),
			User:       env.GetEnv("DB_USER", ""),
			Password:   env.GetEnv("DB_PASSWORD", ""),
			Name:       env.GetEnv("DB_NAME", ""),
			SQLitePath: env.GetEnv("DB_SQLITE_PATH", "edupay.db"),
			MaxRetries: env.GetInt("DB_MAX_RETRIES", 5),
			RetryDelay: env.GetDuration("DB_RETRY_DELAY", 5*time.Second),
		},
		Cache: CacheConfig{
			Host:     env.GetEnv("CACHE_HOST", ""),
			Port:     env.GetEnv("CACHE_PORT", "6379"),
			Password: env.GetEnv("CACHE_PASSWORD", ""),
			DB:       env.GetInt("CACHE_DB", 0),
		},
		Payments: PaymentsConfig{
			ClientID:           strings.TrimSpace(env.GetEnv("BOG_CLIENT_ID", "")),
			ClientSecret:       strings.TrimSpace(env.GetEnv("BOG_CLIENT_SECRET", "")),
			TokenURL:           strings.TrimSpace(env.GetEnv("BOG_OAUTH_TOKEN_URL", defaultTokenURL)),
			APIBase:            strings.TrimRight(strings.TrimSpace(env.GetEnv("BOG_API_BASE", defaultAPIBase)), "/"),
			UseMock:            env.GetBool("USE_BOG_MOCK", true),
			SiteURL:            siteURL,
			SuccessURL:         env.GetEnv("PAYMENTS_SUCCESS_URL", siteURL+"/success"),
			FailURL:            env.GetEnv("PAYMENTS_FAIL_URL", siteURL+"/fail"),
			CallbackURL:        env.GetEnv("PAYMENTS_CALLBACK_URL", siteURL+"/api/payments/callback/"),
			WebhookSecret:      env.GetEnv("PAYMENTS_WEBHOOK_SECRET", ""),
			Currency:           env.GetEnv("PAYMENTS_CURRENCY", "GEL"),
			RequestTimeout:     env.GetDuration("BOG_REQUEST_TIMEOUT", 10*time.Second),
			SubscriptionPeriod: env.GetDuration("SUBSCRIPTION_PERIOD", 30*24*time.Hour),
			DefaultTTL:         env.GetInt("PAYMENTS_DEFAULT_TTL", 15),
			MinTTL:             env.GetInt("PAYMENTS_MIN_TTL", 2),
		},
		Auth: AuthConfig{
			JWTSecret:      env.GetEnv("JWT_SECRET_KEY", ""),
			AccessTokenTTL: env.GetDuration("JWT_ACCESS_TTL", 30*time.Minute),
		},
		Renewal: RenewalConfig{
			Schedule:    env.GetEnv("RENEWAL_SCHEDULE", "0 0 3 * * *"),
			LockKey:     env.GetEnv("RENEWAL_LOCK_KEY", "edupay:renewal-pass"),
			LockExpiry:  env.GetDuration("RENEWAL_LOCK_EXPIRY", 10*time.Minute),
			PassTimeout: env.GetDuration("RENEWAL_PASS_TIMEOUT", 10*time.Minute),
		},
		AMQP: AMQPConfig{
			URL:      env.GetEnv("AMQP_URL", ""),
			Exchange: env.GetEnv("AMQP_EXCHANGE", "edupay.events"),
		},
		Metrics: MetricsConfig{
			User:     env.GetEnv("METRICS_USER", "admin"),
			Password: env.GetEnv("METRICS_PASSWORD", ""),
		},
	}
}

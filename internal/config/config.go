package config

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Shortener ShortenerConfig
	Security  SecurityConfig
	Outbox    OutboxConfig
	OTel      OTelConfig
}

type AppConfig struct {
	Name     string
	Version  string
	Env      string
	LogLevel string
}

type ServerConfig struct {
	Port string
	Host string
}

// PostgresConfig bounds every connection the store hands out. The timeouts
// are applied as session parameters so they hold for the whole transaction.
type PostgresConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	ConnectTimeout   time.Duration
	AcquireTimeout   time.Duration
	StatementTimeout time.Duration
	LockTimeout      time.Duration
	IdleInTxTimeout  time.Duration
	AutoMigrate      bool
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	API      WindowLimit
	Create   WindowLimit
	Redirect WindowLimit
}

type WindowLimit struct {
	Limit  int
	Window time.Duration
}

type ShortenerConfig struct {
	BaseURL        string
	CodeLength     int
	RedirectStatus int // 301 or 302
}

type SecurityConfig struct {
	APIKeys            []string
	CORSAllowedOrigins []string
	// TrustedProxies are CIDRs or addresses whose X-Forwarded-For is honored.
	TrustedProxies []string
}

type OutboxConfig struct {
	Enabled bool
}

type OTelConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	cfg := &Config{
		App: AppConfig{
			Name:     GetEnv("APP_NAME", "tinylink"),
			Version:  GetEnv("APP_VERSION", "1.0"),
			Env:      GetEnv("APP_ENV", "development"),
			LogLevel: GetEnv("LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port: GetEnv("APP_PORT", "8080"),
			Host: GetEnv("APP_HOST", "localhost"),
		},
		Postgres: PostgresConfig{
			DSN:              GetEnv("DB_DSN", DefaultPostgresDSN()),
			MaxConns:         int32(GetEnvInt("DB_MAX_CONNS", 20)),
			MinConns:         int32(GetEnvInt("DB_MIN_CONNS", 2)),
			ConnectTimeout:   GetEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
			AcquireTimeout:   GetEnvDuration("DB_ACQUIRE_TIMEOUT", 3*time.Second),
			StatementTimeout: GetEnvDuration("DB_STATEMENT_TIMEOUT", 5*time.Second),
			LockTimeout:      GetEnvDuration("DB_LOCK_TIMEOUT", 2*time.Second),
			IdleInTxTimeout:  GetEnvDuration("DB_IDLE_IN_TX_TIMEOUT", 10*time.Second),
			AutoMigrate:      GetEnvBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Enabled:  GetEnvBool("REDIS_ENABLED", true),
			Addr:     GetEnv("REDIS_ADDR", "localhost:6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			API: WindowLimit{
				Limit:  GetEnvInt("RATE_LIMIT_API_PER_WINDOW", 100),
				Window: GetEnvDuration("RATE_LIMIT_API_WINDOW", 15*time.Minute),
			},
			Create: WindowLimit{
				Limit:  GetEnvInt("RATE_LIMIT_CREATE_PER_WINDOW", 50),
				Window: GetEnvDuration("RATE_LIMIT_CREATE_WINDOW", time.Hour),
			},
			Redirect: WindowLimit{
				Limit:  GetEnvInt("RATE_LIMIT_REDIRECT_PER_WINDOW", 1000),
				Window: GetEnvDuration("RATE_LIMIT_REDIRECT_WINDOW", time.Minute),
			},
		},
		Shortener: ShortenerConfig{
			BaseURL:        GetEnv("SHORTENER_BASE_URL", "http://localhost:8080"),
			CodeLength:     GetEnvInt("CODE_LENGTH", 6),
			RedirectStatus: GetEnvInt("REDIRECT_STATUS", 302),
		},
		Security: SecurityConfig{
			APIKeys:            SplitCSV(GetEnv("API_KEYS", "")),
			CORSAllowedOrigins: SplitCSV(GetEnv("CORS_ALLOWED_ORIGINS", "*")),
			TrustedProxies:     SplitCSV(GetEnv("TRUSTED_PROXIES", "")),
		},
		Outbox: OutboxConfig{
			Enabled: GetEnvBool("OUTBOX_ENABLED", false),
		},
		OTel: OTelConfig{
			Enabled:  GetEnvBool("OTEL_ENABLED", false),
			Endpoint: GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var p Problems
	p.Check(c.Shortener.RedirectStatus == 301 || c.Shortener.RedirectStatus == 302,
		"REDIRECT_STATUS must be 301 or 302 (got %d)", c.Shortener.RedirectStatus)
	p.Check(c.Shortener.CodeLength >= 6 && c.Shortener.CodeLength <= 8,
		"CODE_LENGTH must be between 6 and 8 (got %d)", c.Shortener.CodeLength)
	p.Check(c.Postgres.MaxConns >= 1, "DB_MAX_CONNS must be positive (got %d)", c.Postgres.MaxConns)
	p.Check(c.Postgres.MinConns >= 0 && c.Postgres.MinConns <= c.Postgres.MaxConns,
		"DB_MIN_CONNS must be between 0 and DB_MAX_CONNS (got %d)", c.Postgres.MinConns)
	p.Check(c.Postgres.StatementTimeout > 0, "DB_STATEMENT_TIMEOUT must be positive (got %s)", c.Postgres.StatementTimeout)
	p.Check(c.Postgres.LockTimeout > 0, "DB_LOCK_TIMEOUT must be positive (got %s)", c.Postgres.LockTimeout)
	for _, l := range []struct {
		prefix string
		limit  WindowLimit
	}{
		{"RATE_LIMIT_API", c.RateLimit.API},
		{"RATE_LIMIT_CREATE", c.RateLimit.Create},
		{"RATE_LIMIT_REDIRECT", c.RateLimit.Redirect},
	} {
		p.Check(l.limit.Limit >= 1 && l.limit.Window > 0,
			"%s_PER_WINDOW and %s_WINDOW must be positive", l.prefix, l.prefix)
	}
	for _, proxy := range c.Security.TrustedProxies {
		p.Check(validProxy(proxy), "TRUSTED_PROXIES entry %q is not an IP or CIDR", proxy)
	}
	return p.Err()
}

func validProxy(raw string) bool {
	if _, err := netip.ParsePrefix(raw); err == nil {
		return true
	}
	_, err := netip.ParseAddr(raw)
	return err == nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

// RateLimitConfig holds settings for per-user update throttling.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": inline button presses
// - "message": text messages and commands
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	Burst          int      `yaml:"burst" envconfig:"RATE_LIMIT_BURST"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

const (
	// SessionBackendFile keeps one JSON document per user on disk.
	SessionBackendFile = "file"
	// SessionBackendPostgres stores sessions in the sessions table.
	SessionBackendPostgres = "postgres"
	// SessionBackendRedis stores sessions as redis string values.
	SessionBackendRedis = "redis"
	// SessionBackendMemory disables durable storage.
	SessionBackendMemory = "memory"
)

// SessionConfig controls the session store lifecycle.
type SessionConfig struct {
	Backend        string        `yaml:"backend" envconfig:"SESSION_BACKEND"`
	Dir            string        `yaml:"dir" envconfig:"SESSION_DIR"`
	Expiry         time.Duration `yaml:"expiry" envconfig:"SESSION_EXPIRY"`
	SweepInterval  time.Duration `yaml:"sweep_interval" envconfig:"SESSION_SWEEP_INTERVAL"`
	MaxOTPAttempts int           `yaml:"max_otp_attempts" envconfig:"SESSION_MAX_OTP_ATTEMPTS"`
}

// APIConfig points the bot at the remote wallet API.
type APIConfig struct {
	BaseURL           string        `yaml:"base_url" envconfig:"API_BASE_URL"`
	Timeout           time.Duration `yaml:"timeout" envconfig:"API_TIMEOUT"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"API_REQUESTS_PER_SECOND"`
	Burst             int           `yaml:"burst" envconfig:"API_BURST"`
}

// DatabaseConfig holds postgres connection settings.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr      string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password  string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB        int    `yaml:"db" envconfig:"REDIS_DB"`
	KeyPrefix string `yaml:"key_prefix" envconfig:"REDIS_KEY_PREFIX"`
}

// Config aggregates the bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Session   SessionConfig   `yaml:"session"`
	API       APIConfig       `yaml:"api"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
}

const (
	defaultSessionDir     = "data/sessions"
	defaultSessionExpiry  = 24 * time.Hour
	defaultSweepInterval  = time.Hour
	defaultMaxOTPAttempts = 5
	defaultAPIBaseURL     = "https://income-api.copperx.io"
	defaultAPITimeout     = 10 * time.Second
	defaultAPIRate        = 10
	defaultAPIBurst       = 20
	defaultRedisPrefix    = "walletbot:session:"
)

// Load reads configuration from a YAML file, an optional .env file next to the
// working directory, and environment variables, in that order of precedence.
func Load(path string) (*Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs validation of required configuration fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" {
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if key != UpdateCallback && key != UpdateMessage {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 1
	}

	if err := normalizeSession(&cfg.Session); err != nil {
		return err
	}
	if err := normalizeAPI(&cfg.API); err != nil {
		return err
	}

	switch cfg.Session.Backend {
	case SessionBackendPostgres:
		if strings.TrimSpace(cfg.Database.Host) == "" || strings.TrimSpace(cfg.Database.Name) == "" {
			return fmt.Errorf("database.host and database.name are required for the postgres session backend")
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 5
		}
	case SessionBackendRedis:
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			return fmt.Errorf("redis.addr is required for the redis session backend")
		}
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = defaultRedisPrefix
	}
	return nil
}

func normalizeSession(s *SessionConfig) error {
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	if s.Backend == "" {
		s.Backend = SessionBackendFile
	}
	switch s.Backend {
	case SessionBackendFile, SessionBackendPostgres, SessionBackendRedis, SessionBackendMemory:
	default:
		return fmt.Errorf("invalid session.backend %q; allowed: file, postgres, redis, memory", s.Backend)
	}
	if strings.TrimSpace(s.Dir) == "" {
		s.Dir = defaultSessionDir
	}
	if s.Expiry < 0 || s.SweepInterval < 0 {
		return fmt.Errorf("session.expiry and session.sweep_interval must be >= 0")
	}
	if s.Expiry == 0 {
		s.Expiry = defaultSessionExpiry
	}
	if s.SweepInterval == 0 {
		s.SweepInterval = defaultSweepInterval
	}
	if s.MaxOTPAttempts < 0 {
		return fmt.Errorf("session.max_otp_attempts must be >= 0")
	}
	if s.MaxOTPAttempts == 0 {
		s.MaxOTPAttempts = defaultMaxOTPAttempts
	}
	return nil
}

func normalizeAPI(a *APIConfig) error {
	a.BaseURL = strings.TrimRight(strings.TrimSpace(a.BaseURL), "/")
	if a.BaseURL == "" {
		a.BaseURL = defaultAPIBaseURL
	}
	u, err := url.Parse(a.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api.base_url %q", a.BaseURL)
	}
	if a.Timeout <= 0 {
		a.Timeout = defaultAPITimeout
	}
	if a.RequestsPerSecond <= 0 {
		a.RequestsPerSecond = defaultAPIRate
	}
	if a.Burst <= 0 {
		a.Burst = defaultAPIBurst
	}
	return nil
}

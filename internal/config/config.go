package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PostgresConfig locates the document database.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// Configured reports whether a database was set up at all.
func (p PostgresConfig) Configured() bool {
	return strings.TrimSpace(p.Host) != ""
}

// Config is the service configuration.
type Config struct {
	Server struct {
		Host            string        `yaml:"host"`
		Port            string        `yaml:"port"`
		Prefork         bool          `yaml:"prefork"`
		PublicBaseURL   string        `yaml:"public_base_url"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	Cache struct {
		RedisHost      string        `yaml:"redis_host"`
		RateLimitDB    int           `yaml:"redis_rate_db"`
		IdempotencyDB  int           `yaml:"redis_idempotency_db"`
		IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
	} `yaml:"cache"`

	Postgres PostgresConfig `yaml:"postgres"`

	Auth struct {
		ReloadInterval time.Duration `yaml:"reload_interval"`
	} `yaml:"auth"`

	Storage struct {
		Root          string `yaml:"root"`
		PublicBaseURL string `yaml:"public_base_url"`
	} `yaml:"storage"`

	Render struct {
		FontPath         string `yaml:"font_path"`
		FontFamily       string `yaml:"font_family"`
		FetchTimeoutSecs int    `yaml:"fetch_timeout_secs"`
		TimeoutSecs      int    `yaml:"timeout_secs"`
		MaxImageBytes    int    `yaml:"max_image_bytes"`
		MaxNameLength    int    `yaml:"max_name_length"`
		MaxNumberLength  int    `yaml:"max_number_length"`
	} `yaml:"render"`

	Notify struct {
		WebhookURL  string   `yaml:"webhook_url"`
		Emails      []string `yaml:"emails"`
		TimeoutSecs int      `yaml:"timeout_secs"`
	} `yaml:"notify"`

	RateLimiter struct {
		Interval          time.Duration `yaml:"interval"`
		UserLimit         int           `yaml:"user_limit"`
		EnableUserLimiter bool          `yaml:"enable_user_limiter"`
	} `yaml:"rate_limiter"`

	Limits struct {
		MaxUploadBytes int `yaml:"max_upload_bytes"`
	} `yaml:"limits"`
}

const webhookPlaceholder = "your-webhook-url"

// Load reads the file at CONFIG_PATH (default config.yaml).
func Load() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFrom(path)
}

// LoadFrom reads, defaults and validates a YAML config. It panics on unreadable
// files and invalid values; the service must not start half-configured.
func LoadFrom(path string) Config {
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("config: read %s: %v", path, err))
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		panic(fmt.Sprintf("config: parse %s: %v", path, err))
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		panic(fmt.Sprintf("config: %s: %v", path, err))
	}
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("NOTIFY_WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := os.Getenv("NOTIFY_EMAILS"); v != "" {
		cfg.Notify.Emails = SplitEmails(v)
	}
	if v := os.Getenv("FONT_PATH"); v != "" {
		cfg.Render.FontPath = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 5 * time.Second
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Cache.IdempotencyTTL == 0 {
		cfg.Cache.IdempotencyTTL = 10 * time.Minute
	}
	if cfg.Auth.ReloadInterval == 0 {
		cfg.Auth.ReloadInterval = time.Minute
	}
	if cfg.Render.FontFamily == "" {
		cfg.Render.FontFamily = "KidsTee"
	}
	if cfg.Render.FetchTimeoutSecs == 0 {
		cfg.Render.FetchTimeoutSecs = 10
	}
	if cfg.Render.TimeoutSecs == 0 {
		cfg.Render.TimeoutSecs = 30
	}
	if cfg.Render.MaxImageBytes == 0 {
		cfg.Render.MaxImageBytes = 20 << 20
	}
	if cfg.Render.MaxNameLength == 0 {
		cfg.Render.MaxNameLength = 20
	}
	if cfg.Render.MaxNumberLength == 0 {
		cfg.Render.MaxNumberLength = 3
	}
	if cfg.Notify.TimeoutSecs == 0 {
		cfg.Notify.TimeoutSecs = 15
	}
	if cfg.RateLimiter.Interval == 0 {
		cfg.RateLimiter.Interval = time.Minute
	}
	if cfg.Limits.MaxUploadBytes == 0 {
		cfg.Limits.MaxUploadBytes = 10 << 20
	}
	if strings.TrimSpace(cfg.Notify.WebhookURL) == webhookPlaceholder {
		cfg.Notify.WebhookURL = ""
	}
	cfg.Notify.Emails = SplitEmails(strings.Join(cfg.Notify.Emails, ","))
}

func validate(cfg Config) error {
	switch {
	case cfg.Server.ShutdownTimeout < 0:
		return fmt.Errorf("server.shutdown_timeout must be positive")
	case cfg.Cache.IdempotencyTTL < 0:
		return fmt.Errorf("cache.idempotency_ttl must be positive")
	case cfg.Auth.ReloadInterval < 0:
		return fmt.Errorf("auth.reload_interval must be positive")
	case cfg.Render.FetchTimeoutSecs < 0, cfg.Render.TimeoutSecs < 0, cfg.Notify.TimeoutSecs < 0:
		return fmt.Errorf("timeouts must be positive")
	case cfg.Render.MaxImageBytes < 0, cfg.Limits.MaxUploadBytes < 0:
		return fmt.Errorf("byte limits must be positive")
	case cfg.Render.MaxNameLength < 0, cfg.Render.MaxNumberLength < 0:
		return fmt.Errorf("render length limits must be positive")
	case cfg.RateLimiter.Interval < 0:
		return fmt.Errorf("rate_limiter.interval must be positive")
	case cfg.RateLimiter.UserLimit < 0:
		return fmt.Errorf("rate_limiter.user_limit must not be negative")
	case cfg.Postgres.Port < 0 || cfg.Postgres.Port > 65535:
		return fmt.Errorf("postgres.port out of range")
	}
	return nil
}

// SplitEmails splits a comma separated list and drops blanks.
func SplitEmails(s string) []string {
	var out []string
	for _, e := range strings.Split(s, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

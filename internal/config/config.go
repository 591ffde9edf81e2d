// Package config loads application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Admin      AdminConfig      `yaml:"admin" mapstructure:"admin"`
	Ingest     IngestConfig     `yaml:"ingest" mapstructure:"ingest"`
	Facebook   FacebookConfig   `yaml:"facebook" mapstructure:"facebook"`
	Newsletter NewsletterConfig `yaml:"newsletter" mapstructure:"newsletter"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port            int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins  []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec" mapstructure:"rate_limit_per_sec"`
	RateLimitBurst  int64    `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
}

// AdminConfig configures the admin surface.
type AdminConfig struct {
	Password        string `yaml:"password" mapstructure:"password"`
	SessionSecret   string `yaml:"session_secret" mapstructure:"session_secret"`
	SessionTTLHours int    `yaml:"session_ttl_hours" mapstructure:"session_ttl_hours"`
}

// IngestConfig configures the Excel ingestion pipeline.
type IngestConfig struct {
	BatchSize     int   `yaml:"batch_size" mapstructure:"batch_size"`
	TimeoutSecs   int   `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxUploadMiB  int64 `yaml:"max_upload_mib" mapstructure:"max_upload_mib"`
	AnnounceOnNew bool  `yaml:"announce_on_new" mapstructure:"announce_on_new"`
}

// FacebookConfig holds Graph API page credentials. Empty page id disables
// the platform.
type FacebookConfig struct {
	PageID      string `yaml:"page_id" mapstructure:"page_id"`
	AccessToken string `yaml:"access_token" mapstructure:"access_token"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
}

// NewsletterConfig holds Brevo credentials and sender identity. Empty key
// disables the platform.
type NewsletterConfig struct {
	BrevoKey     string `yaml:"brevo_key" mapstructure:"brevo_key"`
	BrevoBaseURL string `yaml:"brevo_base_url" mapstructure:"brevo_base_url"`
	SenderEmail  string `yaml:"sender_email" mapstructure:"sender_email"`
	SenderName   string `yaml:"sender_name" mapstructure:"sender_name"`
	RecapCron    string `yaml:"recap_cron" mapstructure:"recap_cron"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PHARMADZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Credential keys default to empty so env-only deployments
	// reach Unmarshal without a config file.
	v.SetDefault("store.database_url", "")
	v.SetDefault("admin.password", "")
	v.SetDefault("admin.session_secret", "")
	v.SetDefault("facebook.page_id", "")
	v.SetDefault("facebook.access_token", "")
	v.SetDefault("facebook.base_url", "")
	v.SetDefault("newsletter.brevo_key", "")
	v.SetDefault("newsletter.brevo_base_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit_per_sec", 10.0)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("admin.session_ttl_hours", 8)
	v.SetDefault("ingest.batch_size", 200)
	v.SetDefault("ingest.timeout_secs", 60)
	v.SetDefault("ingest.max_upload_mib", 25)
	v.SetDefault("ingest.announce_on_new", true)
	v.SetDefault("newsletter.sender_email", "no-reply@pharmadz.dz")
	v.SetDefault("newsletter.sender_name", "PharmaDZ")
	// Monday morning, Algiers time is UTC+1 year-round.
	v.SetDefault("newsletter.recap_cron", "0 7 * * 1")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration required by the given command mode.
// Collected into one error so the operator sees every problem at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	requireDB := func() {
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	}

	switch mode {
	case "serve":
		requireDB()
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
		if c.Server.RateLimitPerSec <= 0 {
			problems = append(problems, "server.rate_limit_per_sec must be > 0")
		}
		if c.Admin.Password == "" {
			problems = append(problems, "admin.password is required")
		}
		if len(c.Admin.SessionSecret) < 16 {
			problems = append(problems, "admin.session_secret must be at least 16 bytes")
		}
	case "ingest", "migrate", "versions":
		requireDB()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode == "serve" || mode == "ingest" {
		if c.Ingest.BatchSize < 1 || c.Ingest.BatchSize > 3000 {
			problems = append(problems, "ingest.batch_size must be between 1 and 3000")
		}
		if c.Ingest.TimeoutSecs <= 0 {
			problems = append(problems, "ingest.timeout_secs must be > 0")
		}
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

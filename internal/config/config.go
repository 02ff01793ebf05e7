package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the notification engine.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	SES      SESConfig      `yaml:"ses"`
	WebPush  WebPushConfig  `yaml:"web_push"`
	Webhooks WebhookConfig  `yaml:"webhooks"`
	Queue    QueueConfig    `yaml:"queue"`
	Timing   TimingConfig   `yaml:"timing"`
	Crisis   CrisisConfig   `yaml:"crisis"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the optional Redis connection used for distributed
// locking. When Addr is empty the engine falls back to Postgres advisory
// locks.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SESConfig holds AWS SES credentials for the email channel.
type SESConfig struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	FromName  string `yaml:"from_name"`
	FromEmail string `yaml:"from_email"`
}

// WebPushConfig holds VAPID keys for the web_push channel.
type WebPushConfig struct {
	VAPIDPublicKey  string `yaml:"vapid_public_key"`
	VAPIDPrivateKey string `yaml:"vapid_private_key"`
	Subscriber      string `yaml:"subscriber"` // mailto: contact for push services
}

// WebhookConfig holds chat-ops webhook URLs for the discord and slack
// channels plus the on-call crisis alert hooks.
type WebhookConfig struct {
	DiscordURL     string `yaml:"discord_url"`
	SlackURL       string `yaml:"slack_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// QueueConfig holds queue processing settings.
type QueueConfig struct {
	ScanIntervalSeconds int `yaml:"scan_interval_seconds"`
	BatchSize           int `yaml:"batch_size"`
	BatchDelayMillis    int `yaml:"batch_delay_millis"`
	ChannelTimeoutSecs  int `yaml:"channel_timeout_seconds"`
	StaleAgeMinutes     int `yaml:"stale_age_minutes"`
}

// ScanInterval returns the queue scan interval as a duration.
func (c QueueConfig) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalSeconds) * time.Second
}

// BatchDelay returns the inter-batch delay as a duration.
func (c QueueConfig) BatchDelay() time.Duration {
	return time.Duration(c.BatchDelayMillis) * time.Millisecond
}

// ChannelTimeout returns the per-channel adapter timeout as a duration.
func (c QueueConfig) ChannelTimeout() time.Duration {
	return time.Duration(c.ChannelTimeoutSecs) * time.Second
}

// StaleAge returns how long a job may sit in processing before the recovery
// sweep reclaims it.
func (c QueueConfig) StaleAge() time.Duration {
	return time.Duration(c.StaleAgeMinutes) * time.Minute
}

// TimingConfig holds timing-intelligence settings.
type TimingConfig struct {
	RecalcIntervalHours int `yaml:"recalc_interval_hours"`
	LookbackDays        int `yaml:"lookback_days"`
}

// CrisisConfig holds crisis escalation fan-out settings.
type CrisisConfig struct {
	OnCallUserID string `yaml:"on_call_user_id"`
}

// Load reads and parses the configuration file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-east-1"
	}
	if cfg.Webhooks.TimeoutSeconds == 0 {
		cfg.Webhooks.TimeoutSeconds = 10
	}
	if cfg.Queue.ScanIntervalSeconds == 0 {
		cfg.Queue.ScanIntervalSeconds = 30
	}
	if cfg.Queue.BatchSize == 0 {
		cfg.Queue.BatchSize = 10
	}
	if cfg.Queue.BatchDelayMillis == 0 {
		cfg.Queue.BatchDelayMillis = 250
	}
	if cfg.Queue.ChannelTimeoutSecs == 0 {
		cfg.Queue.ChannelTimeoutSecs = 15
	}
	if cfg.Queue.StaleAgeMinutes == 0 {
		cfg.Queue.StaleAgeMinutes = 5
	}
	if cfg.Timing.RecalcIntervalHours == 0 {
		cfg.Timing.RecalcIntervalHours = 24
	}
	if cfg.Timing.LookbackDays == 0 {
		cfg.Timing.LookbackDays = 30
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("VAPID_PUBLIC_KEY"); v != "" {
		cfg.WebPush.VAPIDPublicKey = v
	}
	if v := os.Getenv("VAPID_PRIVATE_KEY"); v != "" {
		cfg.WebPush.VAPIDPrivateKey = v
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Webhooks.DiscordURL = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Webhooks.SlackURL = v
	}
	if v := os.Getenv("CRISIS_ONCALL_USER_ID"); v != "" {
		cfg.Crisis.OnCallUserID = v
	}

	return cfg, nil
}

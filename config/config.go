package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Storage      StorageConfig      `yaml:"storage"`
	Auth         AuthConfig         `yaml:"auth"`
	Notification NotificationConfig `yaml:"notification"`
	Digest       DigestConfig       `yaml:"digest"`
	Log          LogConfig          `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	RequestIPHeader string   `yaml:"request_ip_header"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogSQL                 bool   `yaml:"log_sql"`
}

// StorageConfig selects where service records live. Everything else is
// always kept in the SQL database.
type StorageConfig struct {
	Records  string         `yaml:"records"` // gorm or dynamodb
	DynamoDB DynamoDBConfig `yaml:"dynamodb"`
}

// DynamoDBConfig configures the DynamoDB record backend.
type DynamoDBConfig struct {
	Table           string `yaml:"table"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// AuthConfig holds the token settings for owner accounts.
type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	ExpiryHours int           `yaml:"expiry_hours"`
	Expiry      time.Duration `yaml:"-"`
}

// NotificationConfig configures customer and staff notifications.
type NotificationConfig struct {
	WorkerPoolSize     int            `yaml:"worker_pool_size"`
	DefaultCountryCode string         `yaml:"default_country_code"`
	WhatsApp           WhatsAppConfig `yaml:"whatsapp"`
	Push               PushConfig     `yaml:"push"`
}

// WhatsAppConfig holds the Twilio credentials. Messages are only sent
// when AccountSID, AuthToken and From are all set.
type WhatsAppConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	From       string `yaml:"from"`
}

// Enabled reports whether messages can be sent.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != ""
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// DigestConfig schedules the daily summary of open jobs.
type DigestConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
	Timezone string `yaml:"timezone"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the configuration from the given path, applies defaults and
// then the environment overrides for secrets.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"DB_URL":                &c.Database.DSN,
		"JWT_SECRET":            &c.Auth.JWTSecret,
		"TWILIO_ACCOUNT_SID":    &c.Notification.WhatsApp.AccountSID,
		"TWILIO_AUTH_TOKEN":     &c.Notification.WhatsApp.AuthToken,
		"VAPID_PRIVATE_KEY":     &c.Notification.Push.PrivateKey,
		"AWS_ACCESS_KEY_ID":     &c.Storage.DynamoDB.AccessKeyID,
		"AWS_SECRET_ACCESS_KEY": &c.Storage.DynamoDB.SecretAccessKey,
		"DYNAMODB_ENDPOINT":     &c.Storage.DynamoDB.Endpoint,
	}
	for key, dst := range overrides {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimitPerSec <= 0 {
		c.Server.RateLimitPerSec = 10
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = int(c.Server.RateLimitPerSec) * 2
	}
	if c.Server.CacheTTLSeconds <= 0 {
		c.Server.CacheTTLSeconds = 30
	}

	c.Database.Driver = strings.ToLower(c.Database.Driver)
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 5
	}

	c.Storage.Records = strings.ToLower(c.Storage.Records)
	if c.Storage.Records == "" {
		c.Storage.Records = "gorm"
	}
	if c.Storage.DynamoDB.Table == "" {
		c.Storage.DynamoDB.Table = "service_records"
	}
	if c.Storage.DynamoDB.Region == "" {
		c.Storage.DynamoDB.Region = "us-east-1"
	}

	if c.Auth.ExpiryHours <= 0 {
		c.Auth.ExpiryHours = 72
	}
	c.Auth.Expiry = time.Duration(c.Auth.ExpiryHours) * time.Hour

	if c.Notification.WorkerPoolSize <= 0 {
		c.Notification.WorkerPoolSize = 1
	}
	if c.Notification.DefaultCountryCode == "" {
		c.Notification.DefaultCountryCode = "351"
	}
	if c.Notification.Push.TTL <= 0 {
		c.Notification.Push.TTL = 3600
	}

	if c.Digest.Schedule == "" {
		c.Digest.Schedule = "0 9 * * *"
	}
	if c.Digest.Timezone == "" {
		c.Digest.Timezone = "Europe/Lisbon"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

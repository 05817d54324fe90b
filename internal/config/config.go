package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Collage   CollageConfig   `yaml:"collage"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	Cache     CacheConfig     `yaml:"cache"`
	APNs      APNsConfig      `yaml:"apns"`
}

// ServerConfig holds server configuration. An empty AdminToken disables the
// maintenance routes.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AdminToken     string   `yaml:"admin_token"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	Migrate  bool   `yaml:"migrate"`
	MaxConns int32  `yaml:"max_conns"`
}

// StorageConfig holds S3-compatible object storage configuration
type StorageConfig struct {
	Region        string `yaml:"region"`
	Bucket        string `yaml:"bucket"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Endpoint      string `yaml:"endpoint"`
	PublicBaseURL string `yaml:"public_base_url"`
	MaxDimension  int    `yaml:"max_dimension"`
	JPEGQuality   int    `yaml:"jpeg_quality"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// CollageConfig holds collage creation defaults
type CollageConfig struct {
	DefaultDuration    time.Duration `yaml:"default_duration"`
	MaxDuration        time.Duration `yaml:"max_duration"`
	InviteCodeAttempts int           `yaml:"invite_code_attempts"`
}

// LifecycleConfig holds expired-collage cleanup configuration
type LifecycleConfig struct {
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	CleanupTimeout time.Duration `yaml:"cleanup_timeout"`
}

// RealtimeConfig holds push subscription configuration
type RealtimeConfig struct {
	ResubscribeDelay time.Duration `yaml:"resubscribe_delay"`
}

// CacheConfig holds per-identity client configuration
type CacheConfig struct {
	ClientIdleTTL time.Duration `yaml:"client_idle_ttl"`
}

// APNsConfig holds Apple push notification configuration
type APNsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	KeyFile    string `yaml:"key_file"`
	KeyID      string `yaml:"key_id"`
	TeamID     string `yaml:"team_id"`
	Topic      string `yaml:"topic"`
	Production bool   `yaml:"production"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and validates the result
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 10
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = "photos"
	}
	if c.Storage.MaxDimension == 0 {
		c.Storage.MaxDimension = 2048
	}
	if c.Storage.JPEGQuality == 0 {
		c.Storage.JPEGQuality = 80
	}
	if c.JWT.TTL == 0 {
		c.JWT.TTL = 30 * 24 * time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Collage.DefaultDuration == 0 {
		c.Collage.DefaultDuration = 24 * time.Hour
	}
	if c.Collage.MaxDuration == 0 {
		c.Collage.MaxDuration = 7 * 24 * time.Hour
	}
	if c.Collage.InviteCodeAttempts == 0 {
		c.Collage.InviteCodeAttempts = 5
	}
	if c.Lifecycle.SweepInterval == 0 {
		c.Lifecycle.SweepInterval = time.Hour
	}
	if c.Lifecycle.CleanupTimeout == 0 {
		c.Lifecycle.CleanupTimeout = 2 * time.Minute
	}
	if c.Realtime.ResubscribeDelay == 0 {
		c.Realtime.ResubscribeDelay = 2 * time.Second
	}
	if c.Cache.ClientIdleTTL == 0 {
		c.Cache.ClientIdleTTL = 30 * time.Minute
	}
}

// Validate checks that required settings are present
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.Database.Host == "" || c.Database.DBName == "" {
		return fmt.Errorf("database.host and database.dbname are required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database.max_conns must be positive")
	}
	if c.Storage.PublicBaseURL == "" {
		return fmt.Errorf("storage.public_base_url is required")
	}
	if c.Storage.JPEGQuality < 1 || c.Storage.JPEGQuality > 100 {
		return fmt.Errorf("storage.jpeg_quality must be between 1 and 100")
	}
	if c.Collage.DefaultDuration > c.Collage.MaxDuration {
		return fmt.Errorf("collage.default_duration exceeds collage.max_duration")
	}
	if c.APNs.Enabled && (c.APNs.KeyFile == "" || c.APNs.KeyID == "" || c.APNs.TeamID == "" || c.APNs.Topic == "") {
		return fmt.Errorf("apns requires key_file, key_id, team_id and topic when enabled")
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

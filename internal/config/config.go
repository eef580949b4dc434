package config

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config holds server configuration values.
type Config struct {
	Addr               string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout  time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel           string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat          string        `mapstructure:"log_format" yaml:"log_format"`
	DatabasePath       string        `mapstructure:"database_path" yaml:"database_path"`
	MaxBodyBytes       int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	SendRatePerMinute  int           `mapstructure:"send_rate_per_minute" yaml:"send_rate_per_minute"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins" yaml:"cors_allowed_origins"`

	Auth   AuthConfig   `mapstructure:"auth" yaml:"auth"`
	Kafka  KafkaConfig  `mapstructure:"kafka" yaml:"kafka"`
	Notify NotifyConfig `mapstructure:"notify" yaml:"notify"`
}

// AuthConfig configures the user directory tokens.
type AuthConfig struct {
	// Required enforces bearer tokens on the messaging and websocket routes.
	Required    bool          `mapstructure:"required" yaml:"required"`
	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	TokenTTL    time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
	// PasswordCost is the bcrypt cost for newly registered users.
	PasswordCost int `mapstructure:"password_cost" yaml:"password_cost"`
}

// KafkaConfig configures the conversation event producer. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers" yaml:"brokers"`
	Topic    string   `mapstructure:"topic" yaml:"topic"`
	ClientID string   `mapstructure:"client_id" yaml:"client_id"`
}

// NotifyConfig configures realtime websocket notifications.
type NotifyConfig struct {
	ClientBuffer int `mapstructure:"client_buffer" yaml:"client_buffer"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":8080",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		LogFormat:          "console",
		DatabasePath:       "marketplace.db",
		MaxBodyBytes:       1 << 20,
		SendRatePerMinute:  60,
		CORSAllowedOrigins: []string{"*"},
		Auth: AuthConfig{
			Required:    false,
			JWTSecret:   "change-me-in-production",
			JWTIssuer:   "balloonhub",
			JWTAudience: "balloonhub-clients",
			TokenTTL:    24 * time.Hour,

			PasswordCost: bcrypt.DefaultCost,
		},
		Kafka: KafkaConfig{
			Topic:    "conversation-events",
			ClientID: "marketplace-server",
		},
		Notify: NotifyConfig{
			ClientBuffer: 16,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// Booleans cannot be told apart from their zero value and are left alone.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.MaxBodyBytes != 0 {
		c.MaxBodyBytes = other.MaxBodyBytes
	}
	if other.SendRatePerMinute != 0 {
		c.SendRatePerMinute = other.SendRatePerMinute
	}
	if len(other.CORSAllowedOrigins) > 0 {
		c.CORSAllowedOrigins = other.CORSAllowedOrigins
	}
	if other.Auth.JWTSecret != "" {
		c.Auth.JWTSecret = other.Auth.JWTSecret
	}
	if other.Auth.JWTIssuer != "" {
		c.Auth.JWTIssuer = other.Auth.JWTIssuer
	}
	if other.Auth.JWTAudience != "" {
		c.Auth.JWTAudience = other.Auth.JWTAudience
	}
	if other.Auth.TokenTTL != 0 {
		c.Auth.TokenTTL = other.Auth.TokenTTL
	}
	if other.Auth.PasswordCost != 0 {
		c.Auth.PasswordCost = other.Auth.PasswordCost
	}
	if len(other.Kafka.Brokers) > 0 {
		c.Kafka.Brokers = other.Kafka.Brokers
	}
	if other.Kafka.Topic != "" {
		c.Kafka.Topic = other.Kafka.Topic
	}
	if other.Kafka.ClientID != "" {
		c.Kafka.ClientID = other.Kafka.ClientID
	}
	if other.Notify.ClientBuffer != 0 {
		c.Notify.ClientBuffer = other.Notify.ClientBuffer
	}
}

// Validate reports configuration that the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path must not be empty"))
	}
	if c.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("max_body_bytes must not be negative"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret must not be empty"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Auth.PasswordCost < bcrypt.MinCost || c.Auth.PasswordCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("auth.password_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when kafka.brokers is set"))
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		errs = append(errs, errors.New("log_format must be console or json"))
	}
	return errors.Join(errs...)
}

// Package config provides environment-based application configuration
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the complete application configuration
type Config struct {
	Environment string           `json:"environment" validate:"oneof=development staging production test"`
	Debug       bool             `json:"debug"`
	LogLevel    string           `json:"log_level" validate:"oneof=debug info warn error"`
	LogFormat   string           `json:"log_format" validate:"oneof=json text"`
	Webhook     *WebhookConfig   `json:"webhook" validate:"required"`
	Database    *DatabaseConfig  `json:"database" validate:"required"`
	ClickUp     *ClickUpConfig   `json:"clickup" validate:"required"`
	Scheduler   *SchedulerConfig `json:"scheduler" validate:"required"`
	Kafka       *KafkaConfig     `json:"kafka" validate:"required"`
	Metrics     *MetricsConfig   `json:"metrics" validate:"required"`
}

// WebhookConfig holds the inbound webhook server configuration
type WebhookConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port" validate:"min=1,max=65535"`
	Path           string        `json:"path" validate:"required,startswith=/"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
	IdleTimeout    time.Duration `json:"idle_timeout"`
	RequestTimeout time.Duration `json:"request_timeout"`
	MaxBodyBytes   int64         `json:"max_body_bytes" validate:"min=1"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver             string        `json:"driver" validate:"oneof=postgres sqlite"`
	Host               string        `json:"host"`
	Port               int           `json:"port"`
	Database           string        `json:"database"`
	Username           string        `json:"username"`
	Password           string        `json:"-"`
	SSLMode            string        `json:"ssl_mode"`
	MaxOpenConnections int           `json:"max_open_connections"`
	MaxIdleConnections int           `json:"max_idle_connections"`
	ConnectionLifetime time.Duration `json:"connection_lifetime"`
	EnableQueryLogging bool          `json:"enable_query_logging"`
	SlowQueryThreshold time.Duration `json:"slow_query_threshold"`
	AutoMigrate        bool          `json:"auto_migrate"`
}

// DSN builds the driver-specific connection string
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "sqlite" {
		return c.Database
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode)
}

// ClickUpConfig holds the remote API client configuration
type ClickUpConfig struct {
	APIKey            string        `json:"-"`
	BaseURL           string        `json:"base_url" validate:"required,url"`
	WorkspaceID       string        `json:"workspace_id"`
	AppURL            string        `json:"app_url"`
	RequestTimeout    time.Duration `json:"request_timeout"`
	RequestsPerMinute int           `json:"requests_per_minute" validate:"min=1"`
}

// SchedulerConfig holds the reconciliation scheduler configuration
type SchedulerConfig struct {
	Enabled             bool   `json:"enabled"`
	HealthCheckSchedule string `json:"health_check_schedule" validate:"required"`
}

// KafkaConfig holds the optional event bridge configuration
type KafkaConfig struct {
	Enabled  bool     `json:"enabled"`
	Brokers  []string `json:"brokers"`
	Topic    string   `json:"topic"`
	ClientID string   `json:"client_id"`
}

// MetricsConfig holds metrics exposure configuration
type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Path      string `json:"path"`
	Namespace string `json:"namespace"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{
		Environment: getEnvString("ENVIRONMENT", "development"),
		Debug:       getEnvBool("DEBUG", false),
		LogLevel:    getEnvString("LOG_LEVEL", "info"),
		LogFormat:   getEnvString("LOG_FORMAT", "json"),
		Webhook:     loadWebhookConfig(),
		Database:    loadDatabaseConfig(),
		ClickUp:     loadClickUpConfig(),
		Scheduler:   loadSchedulerConfig(),
		Kafka:       loadKafkaConfig(),
		Metrics:     loadMetricsConfig(),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func loadWebhookConfig() *WebhookConfig {
	return &WebhookConfig{
		Host:           getEnvString("WEBHOOK_HOST", "0.0.0.0"),
		Port:           getEnvInt("WEBHOOK_PORT", 8081),
		Path:           getEnvString("WEBHOOK_PATH", "/webhooks/clickup"),
		ReadTimeout:    getEnvDuration("WEBHOOK_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getEnvDuration("WEBHOOK_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:    getEnvDuration("WEBHOOK_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout: getEnvDuration("WEBHOOK_REQUEST_TIMEOUT", 60*time.Second),
		MaxBodyBytes:   int64(getEnvInt("WEBHOOK_MAX_BODY_BYTES", 1<<20)),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Driver:             getEnvString("DB_DRIVER", "postgres"),
		Host:               getEnvString("DB_HOST", "localhost"),
		Port:               getEnvInt("DB_PORT", 5432),
		Database:           getEnvString("DB_NAME", "clickup_bridge"),
		Username:           getEnvString("DB_USER", "postgres"),
		Password:           getEnvString("DB_PASSWORD", ""),
		SSLMode:            getEnvString("DB_SSL_MODE", "disable"),
		MaxOpenConnections: getEnvInt("DB_MAX_OPEN_CONNECTIONS", 25),
		MaxIdleConnections: getEnvInt("DB_MAX_IDLE_CONNECTIONS", 5),
		ConnectionLifetime: getEnvDuration("DB_CONNECTION_LIFETIME", 5*time.Minute),
		EnableQueryLogging: getEnvBool("DB_ENABLE_QUERY_LOGGING", false),
		SlowQueryThreshold: getEnvDuration("DB_SLOW_QUERY_THRESHOLD", 2*time.Second),
		AutoMigrate:        getEnvBool("DB_AUTO_MIGRATE", true),
	}
}

func loadClickUpConfig() *ClickUpConfig {
	return &ClickUpConfig{
		APIKey:            getEnvString("CLICKUP_API_KEY", ""),
		BaseURL:           getEnvString("CLICKUP_BASE_URL", "https://api.clickup.com/api/v2"),
		WorkspaceID:       getEnvString("CLICKUP_WORKSPACE_ID", ""),
		AppURL:            getEnvString("APP_URL", "http://localhost:8081"),
		RequestTimeout:    getEnvDuration("CLICKUP_REQUEST_TIMEOUT", 30*time.Second),
		RequestsPerMinute: getEnvInt("CLICKUP_REQUESTS_PER_MINUTE", 100),
	}
}

func loadSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Enabled:             getEnvBool("SCHEDULER_ENABLED", true),
		HealthCheckSchedule: getEnvString("HEALTH_CHECK_SCHEDULE", "*/15 * * * *"),
	}
}

func loadKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Enabled:  getEnvBool("KAFKA_ENABLED", false),
		Brokers:  getEnvStringSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
		Topic:    getEnvString("KAFKA_TOPIC", "clickup.events"),
		ClientID: getEnvString("KAFKA_CLIENT_ID", "clickup-bridge"),
	}
}

func loadMetricsConfig() *MetricsConfig {
	return &MetricsConfig{
		Enabled:   getEnvBool("METRICS_ENABLED", true),
		Path:      getEnvString("METRICS_PATH", "/metrics"),
		Namespace: getEnvString("METRICS_NAMESPACE", "clickup_bridge"),
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Database.Driver == "postgres" && c.Database.Host == "" {
		return fmt.Errorf("invalid configuration: DB_HOST is required for the postgres driver")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("invalid configuration: KAFKA_BROKERS is required when Kafka is enabled")
	}
	return nil
}

// Environment variable helpers

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

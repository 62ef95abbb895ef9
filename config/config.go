package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Application
	App AppConfig `mapstructure:"app"`

	// PostgreSQL
	Postgres PostgresConfig `mapstructure:"postgres"`

	// Redis
	Redis RedisConfig `mapstructure:"redis"`

	// NATS
	NATS NATSConfig `mapstructure:"nats"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`

	// Object storage
	Storage StorageConfig `mapstructure:"storage"`

	// Outbound email
	Email EmailConfig `mapstructure:"email"`

	// Owner sessions and preview tokens
	Auth AuthConfig `mapstructure:"auth"`

	Security SecurityConfig `mapstructure:"security"`

	Log LogConfig `mapstructure:"log"`
}

type AppConfig struct {
	Env               string   `mapstructure:"env"`
	Addr              string   `mapstructure:"addr"`
	BaseURL           string   `mapstructure:"base_url"`
	InternalAPIKey    string   `mapstructure:"internal_api_key"`
	AdvancedSheetHost string   `mapstructure:"advanced_sheet_host"`
	LocalhostIP       string   `mapstructure:"localhost_ip"`
	TrustProxy        bool     `mapstructure:"trust_proxy"`
	AllowedOrigins    []string `mapstructure:"allowed_origins"`
}

// IsProduction reports whether the service runs with production defaults.
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

type PostgresConfig struct {
	Host              string        `mapstructure:"host"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	Port              int           `mapstructure:"port"`
	SSLMode           string        `mapstructure:"sslmode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	SlowQuery         time.Duration `mapstructure:"slow_query"`
}

type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	OpTimeout   time.Duration `mapstructure:"op_timeout"`
}

type NATSConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	MonitorPort int    `mapstructure:"monitor_port"`
}

type PrometheusConfig struct {
	Port int `mapstructure:"port"`
}

type StorageConfig struct {
	Endpoint         string        `mapstructure:"endpoint"`
	Region           string        `mapstructure:"region"`
	Bucket           string        `mapstructure:"bucket"`
	AccessKey        string        `mapstructure:"access_key"`
	SecretKey        string        `mapstructure:"secret_key"`
	PathStyle        bool          `mapstructure:"path_style"`
	PresignTTL       time.Duration `mapstructure:"presign_ttl"`
	DistributionHost string        `mapstructure:"distribution_host"`
}

type EmailConfig struct {
	ResendAPIKey string `mapstructure:"resend_api_key"`
	From         string `mapstructure:"from"`
	SystemFrom   string `mapstructure:"system_from"`
}

type AuthConfig struct {
	SessionSecret string        `mapstructure:"session_secret"`
	PreviewSecret string        `mapstructure:"preview_secret"`
	PreviewTTL    time.Duration `mapstructure:"preview_ttl"`
}

type SecurityConfig struct {
	DocumentPasswordKey string `mapstructure:"document_password_key"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Encoding   string `mapstructure:"encoding"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	// Search for config/config.yaml (plus root for overrides).
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Allow environment variables to override YAML entries.
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Preserve legacy env variable names.
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.addr", ":8080")
	v.SetDefault("app.localhost_ip", "127.0.0.1")
	v.SetDefault("postgres.max_conn_lifetime", 5*time.Minute)
	v.SetDefault("postgres.slow_query", 200*time.Millisecond)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.op_timeout", time.Second)
	v.SetDefault("prometheus.port", 9090)
	v.SetDefault("storage.presign_ttl", 5*time.Minute)
	v.SetDefault("auth.preview_ttl", 20*time.Minute)
	v.SetDefault("email.from", "DocLink <notifications@doclink.io>")
	v.SetDefault("email.system_from", "DocLink <system@doclink.io>")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)
}

func bindEnvVars(v *viper.Viper) {
	// Application
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("app.addr", "APP_ADDR")
	v.BindEnv("app.base_url", "APP_BASE_URL")
	v.BindEnv("app.internal_api_key", "INTERNAL_API_KEY")
	v.BindEnv("app.advanced_sheet_host", "ADVANCED_UPLOAD_DISTRIBUTION_HOST")
	v.BindEnv("app.allowed_origins", "CORS_ALLOWED_ORIGINS")

	// PostgreSQL
	v.BindEnv("postgres.host", "PG_HOST")
	v.BindEnv("postgres.user", "PG_USER")
	v.BindEnv("postgres.password", "PG_PASSWORD")
	v.BindEnv("postgres.database", "PG_DB")
	v.BindEnv("postgres.port", "PG_PORT")
	v.BindEnv("postgres.sslmode", "PG_SSLMODE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")
	v.BindEnv("nats.monitor_port", "NATS_MONITOR_PORT")

	// Prometheus
	v.BindEnv("prometheus.port", "PROM_PORT")

	// Storage
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.region", "S3_REGION")
	v.BindEnv("storage.bucket", "UPLOAD_BUCKET")
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY_ID")
	v.BindEnv("storage.secret_key", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("storage.distribution_host", "UPLOAD_DISTRIBUTION_HOST")

	// Email
	v.BindEnv("email.resend_api_key", "RESEND_API_KEY")

	// Auth
	v.BindEnv("auth.session_secret", "SESSION_SECRET")
	v.BindEnv("auth.preview_secret", "PREVIEW_SECRET")

	// Security
	v.BindEnv("security.document_password_key", "DOCUMENT_PASSWORD_KEY")

	// Logging
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.file", "LOG_FILE")
}

// Package config loads the back office settings from defaults, config.toml,
// a .env file and BACKOFFICE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override config keys
const EnvPrefix = "BACKOFFICE"

// Config holds all application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Event     EventConfig     `mapstructure:"event"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, or file path
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
	// WriteTimeout bounds one reconciliation transaction
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret                string        `mapstructure:"secret"`
	AccessTokenExpiration time.Duration `mapstructure:"access_token_expiration"`
	Issuer                string        `mapstructure:"issuer"`
	AdminRole             string        `mapstructure:"admin_role"`
}

// EventConfig drives the outbox relay
type EventConfig struct {
	ProcessorEnabled bool          `mapstructure:"processor_enabled"`
	BatchSize        int           `mapstructure:"batch_size"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	MaxRetries       int           `mapstructure:"max_retries"`
	CleanupEnabled   bool          `mapstructure:"cleanup_enabled"`
	CleanupRetention time.Duration `mapstructure:"cleanup_retention"`
	// ProcessingLease is how long a claimed entry may stay PROCESSING before
	// the relay hands it out again
	ProcessingLease  time.Duration `mapstructure:"processing_lease"`
}

type HTTPConfig struct {
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// RequestTimeout is the deadline put on each request context
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	MaxBodySize      int64         `mapstructure:"max_body_size"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`
}

// StorageConfig points at the S3-compatible bucket holding product media
type StorageConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	// PublicURL is the base objects are served from; empty means endpoint/bucket
	PublicURL         string        `mapstructure:"public_url"`
	Region            string        `mapstructure:"region"`
	Bucket            string        `mapstructure:"bucket"`
	AccessKey         string        `mapstructure:"access_key"`
	SecretKey         string        `mapstructure:"secret_key"`
	UseSSL            bool          `mapstructure:"use_ssl"`
	UsePathStyle      bool          `mapstructure:"use_path_style"`
	PresignExpiration time.Duration `mapstructure:"presign_expiration"`
	MaxFileSize       int64         `mapstructure:"max_file_size"`
}

type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"` // OTLP gRPC, host:port
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"`
	MetricsEnabled    bool          `mapstructure:"metrics_enabled"`
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
	LogsEnabled       bool          `mapstructure:"logs_enabled"` // zap records also go to the collector
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	// DBLogFullSQL puts statements with their values on spans; never in production
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
}

// defaults lists every known key. Keys absent here are invisible to
// AutomaticEnv during Unmarshal, so secrets are listed with empty values.
var defaults = map[string]any{
	"app.name": "backoffice",
	"app.env":  "development",
	"app.port": "8080",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "backoffice",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,
	"database.write_timeout":      10 * time.Second,

	"redis.enabled":  false,
	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"jwt.secret":                  "",
	"jwt.access_token_expiration": 15 * time.Minute,
	"jwt.issuer":                  "backoffice",
	"jwt.admin_role":              "admin",

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"event.processor_enabled": true,
	"event.batch_size":        100,
	"event.poll_interval":     5 * time.Second,
	"event.max_retries":       5,
	"event.cleanup_enabled":   false,
	"event.cleanup_retention": 168 * time.Hour,
	"event.processing_lease":  5 * time.Minute,

	"http.read_timeout":     15 * time.Second,
	"http.write_timeout":    15 * time.Second,
	"http.idle_timeout":     60 * time.Second,
	"http.shutdown_timeout": 20 * time.Second,
	"http.request_timeout":  10 * time.Second,
	"http.max_header_bytes": 1 << 20,
	"http.max_body_size":    2 << 20,
	// no origin is allowed until one is configured
	"http.cors_allow_origins": []string{},
	"http.cors_allow_methods": []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID"},
	"http.trusted_proxies":    []string{},

	"storage.enabled":            false,
	"storage.endpoint":           "",
	"storage.public_url":         "",
	"storage.region":             "us-east-1",
	"storage.bucket":             "",
	"storage.access_key":         "",
	"storage.secret_key":         "",
	"storage.use_ssl":            true,
	"storage.use_path_style":     false,
	"storage.presign_expiration": 15 * time.Minute,
	"storage.max_file_size":      50 << 20,

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "backoffice",
	"telemetry.insecure":                false,
	"telemetry.metrics_enabled":         false,
	"telemetry.metrics_interval":        30 * time.Second,
	"telemetry.logs_enabled":            false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
}

// Load builds the configuration. Later sources win:
// built-in defaults, config.toml in . or /app, .env, then BACKOFFICE_* variables
// (e.g. BACKOFFICE_DATABASE_PASSWORD). A .env never overrides the real environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	db := c.Database
	switch {
	case db.MaxOpenConns <= 0:
		return errors.New("database.max_open_conns must be positive")
	case db.MaxIdleConns < 0:
		return errors.New("database.max_idle_conns cannot be negative")
	case db.MaxIdleConns > db.MaxOpenConns:
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			db.MaxIdleConns, db.MaxOpenConns)
	case db.WriteTimeout <= 0:
		return errors.New("database.write_timeout must be positive")
	}

	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return errors.New("storage.bucket is required when storage is enabled")
	}
	if r := c.Telemetry.SamplingRatio; r < 0 || r > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %g", r)
	}

	if c.App.Env == "production" {
		return c.validateProduction()
	}
	return nil
}

func (c *Config) validateProduction() error {
	switch {
	case c.JWT.Secret == "":
		return errors.New("jwt.secret is required in production")
	case len(c.JWT.Secret) < 32:
		return errors.New("jwt.secret must be at least 32 characters in production")
	case c.Database.Password == "":
		return errors.New("database.password is required in production")
	case c.Database.SSLMode == "disable":
		return errors.New("database.sslmode cannot be 'disable' in production")
	case slices.Contains(c.HTTP.CORSAllowOrigins, "*"):
		return errors.New("http.cors_allow_origins cannot contain '*' in production")
	case c.Telemetry.DBLogFullSQL:
		return errors.New("telemetry.db_log_full_sql must be false in production")
	}
	return nil
}

// DSN renders the settings as a postgres:// URL with escaped credentials
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + strconv.Itoa(d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

func (r *RedisConfig) Addr() string {
	return r.Host + ":" + strconv.Itoa(r.Port)
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// Config holds process-wide settings sourced from the environment.
type Config struct {
	AppEnv           string `mapstructure:"app_env"`
	LogLevel         string `mapstructure:"log_level"`
	LogFormat        string `mapstructure:"log_format"`
	HTTPListenAddr   string `mapstructure:"http_listen_addr"`
	PublicBasePath   string `mapstructure:"public_base_path"`
	MetricsNamespace string `mapstructure:"metrics_namespace"`
	Location         string `mapstructure:"location"`

	StoreDriver    string `mapstructure:"store_driver"`
	DatabaseURL    string `mapstructure:"database_url"`
	DatabaseSchema string `mapstructure:"database_schema"`
	SQLitePath     string `mapstructure:"sqlite_path"`
	MongoURI       string `mapstructure:"mongo_uri"`
	MongoDatabase  string `mapstructure:"mongo_database"`

	RedisAddr      string        `mapstructure:"redis_addr"`
	RedisPassword  string        `mapstructure:"redis_password"`
	RedisDB        int           `mapstructure:"redis_db"`
	RedisTLS       bool          `mapstructure:"redis_tls"`
	CallerCacheTTL time.Duration `mapstructure:"caller_cache_ttl"`

	GeminiAPIKey    string        `mapstructure:"gemini_api_key"`
	GeminiBaseURL   string        `mapstructure:"gemini_base_url"`
	GeminiModel     string        `mapstructure:"gemini_model"`
	GeminiTimeout   time.Duration `mapstructure:"gemini_timeout"`
	GeminiRateLimit float64       `mapstructure:"gemini_rate_limit"`

	CRMBaseURL  string        `mapstructure:"crm_base_url"`
	CRMAuthCode string        `mapstructure:"crm_auth_code"`
	CRMEncoding string        `mapstructure:"crm_encoding"`
	CRMTimeout  time.Duration `mapstructure:"crm_timeout"`

	ToolCallEnabled bool `mapstructure:"tool_call_enabled"`
}

var defaults = map[string]any{
	"app_env":           "development",
	"log_level":         "info",
	"log_format":        "text",
	"http_listen_addr":  ":8080",
	"public_base_path":  "",
	"metrics_namespace": "callintake",
	"location":          "Asia/Kolkata",
	"store_driver":      DriverPostgres,
	"database_url":      "",
	"database_schema":   "",
	"sqlite_path":       "data/callers.db",
	"mongo_uri":         "",
	"mongo_database":    "callintake",
	"redis_addr":        "",
	"redis_password":    "",
	"redis_db":          0,
	"redis_tls":         false,
	"caller_cache_ttl":  5 * time.Minute,
	"gemini_api_key":    "",
	"gemini_base_url":   "https://generativelanguage.googleapis.com",
	"gemini_model":      "gemini-1.5-flash",
	"gemini_timeout":    20 * time.Second,
	"gemini_rate_limit": 0.0,
	"crm_base_url":      "",
	"crm_auth_code":     "",
	"crm_encoding":      "form",
	"crm_timeout":       15 * time.Second,
	"tool_call_enabled": true,
}

// Load reads configuration from environment variables. Every key is also
// registered as a default so viper binds the matching upper-case variable.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.CRMEncoding = strings.ToLower(strings.TrimSpace(cfg.CRMEncoding))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings whose absence is a startup fault. A missing CRM
// auth code is not one of them: it only disables forwarding. Once the auth
// code is set the CRM base URL must be an absolute http(s) URL.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres store"))
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for sqlite store"))
		}
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for mongo store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver))
	}
	if c.GeminiAPIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY is required"))
	}
	if c.CRMEnabled() {
		if u, err := url.Parse(strings.TrimSpace(c.CRMBaseURL)); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("CRM_BASE_URL must be an absolute http(s) URL when CRM_AUTH_CODE is set, got %q", c.CRMBaseURL))
		}
	}
	switch c.CRMEncoding {
	case "form", "json":
	default:
		errs = append(errs, fmt.Errorf("unsupported CRM_ENCODING %q", c.CRMEncoding))
	}
	if _, err := time.LoadLocation(c.Location); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOCATION %q: %w", c.Location, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// CRMEnabled reports whether CRM forwarding is configured.
func (c *Config) CRMEnabled() bool {
	return strings.TrimSpace(c.CRMAuthCode) != ""
}

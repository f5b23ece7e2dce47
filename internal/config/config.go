// Package config handles application configuration from environment variables
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// Cache backends
const (
	BackendS3      = "s3"
	BackendLevelDB = "leveldb"
)

// Refresh backends
const (
	RefreshSNS   = "sns"
	RefreshAsynq = "asynq"
)

// ConfigError reports a missing or invalid environment value. It is raised
// before any request is handled.
type ConfigError struct {
	Var string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Var == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Var, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Config holds all application configuration
type Config struct {
	Region         string `env:"AWS_REGION,required,notEmpty"`
	CacheTimeoutMS int64  `env:"CACHE_TIMEOUT,required"`
	TopicARN       string `env:"SNS_TOPIC_ARN"`
	Bucket         string `env:"CACHE_BUCKET"`
	FetcherFunc    string `env:"FETCHER_FUNCTION,required,notEmpty"`
	APIURL         string `env:"WORDPRESS_API_URL,required,notEmpty"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	CacheVersion   string `env:"CACHE_VERSION,required,notEmpty"`

	BasicAuth BasicAuth

	CacheBackend   string `env:"CACHE_BACKEND" envDefault:"s3"`
	LevelDBPath    string `env:"LEVELDB_PATH" envDefault:"./data/cache"`
	RefreshBackend string `env:"REFRESH_BACKEND" envDefault:"sns"`
	RedisAddr      string `env:"REDIS_ADDR"`
	StrictImages   bool   `env:"STRICT_IMAGE_MIRROR"`

	// Port is only read by the HTTP front end
	Port string `env:"PORT" envDefault:"8080"`
}

// BasicAuth holds optional credentials for a WordPress host behind HTTP basic auth
type BasicAuth struct {
	User     string `env:"WORDPRESS_BASIC_AUTH_USER"`
	Password string `env:"WORDPRESS_BASIC_AUTH_PASSWORD"`
}

// Enabled reports whether credentials are configured
func (b BasicAuth) Enabled() bool { return b.User != "" }

// Load reads configuration from the process environment
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads configuration from the given variables instead of the process environment
func LoadFrom(vars map[string]string) (*Config, error) {
	if vars == nil {
		vars = map[string]string{}
	}
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, &ConfigError{Err: err}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.CacheTimeoutMS < 0 {
		return &ConfigError{Var: "CACHE_TIMEOUT", Err: errors.New("must not be negative")}
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return &ConfigError{Var: "LOG_LEVEL", Err: err}
	}
	if (c.BasicAuth.User == "") != (c.BasicAuth.Password == "") {
		return &ConfigError{
			Var: "WORDPRESS_BASIC_AUTH_USER",
			Err: errors.New("user and password must be set together"),
		}
	}

	switch c.CacheBackend {
	case BackendS3:
		if c.Bucket == "" {
			return &ConfigError{Var: "CACHE_BUCKET", Err: errors.New("required for the s3 backend")}
		}
	case BackendLevelDB:
		if c.LevelDBPath == "" {
			return &ConfigError{Var: "LEVELDB_PATH", Err: errors.New("required for the leveldb backend")}
		}
	default:
		return &ConfigError{Var: "CACHE_BACKEND", Err: fmt.Errorf("unknown backend %q", c.CacheBackend)}
	}

	switch c.RefreshBackend {
	case RefreshSNS, RefreshAsynq:
	default:
		return &ConfigError{Var: "REFRESH_BACKEND", Err: fmt.Errorf("unknown backend %q", c.RefreshBackend)}
	}
	return nil
}

// Resolve checks the settings a request needs. includeRefresh is false for
// notification-sourced requests, which never publish refreshes themselves.
func (c *Config) Resolve(includeRefresh bool) error {
	if !includeRefresh {
		return nil
	}
	switch c.RefreshBackend {
	case RefreshAsynq:
		if c.RedisAddr == "" {
			return &ConfigError{Var: "REDIS_ADDR", Err: errors.New("required for the asynq refresh backend")}
		}
	default:
		if c.TopicARN == "" {
			return &ConfigError{Var: "SNS_TOPIC_ARN", Err: errors.New("required for direct requests")}
		}
	}
	return nil
}

// CacheTimeout returns CACHE_TIMEOUT as a duration
func (c *Config) CacheTimeout() time.Duration {
	return time.Duration(c.CacheTimeoutMS) * time.Millisecond
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads and validates the authd configuration.
//
// Values are layered: built-in defaults, then the YAML config file, then
// AUTHD_ environment variables, then command-line flags.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// EnvProduction is the app.env value that enables production checks.
const EnvProduction = "production"

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// MinProductionSecretLen is the minimum signing secret length in production.
const MinProductionSecretLen = 32

// defaultSecret mirrors the development default of the original deployment.
// Validate rejects it in production.
//
//nolint:gosec // G101: development default, refused in production.
const defaultSecret = "your-super-secret-key-change-in-production-2024"

// Config is the complete authd configuration.
type Config struct {
	App      AppConfig      `koanf:"app" json:"app,omitempty"`
	HTTP     HTTPConfig     `koanf:"http" json:"http,omitempty"`
	Database DatabaseConfig `koanf:"database" json:"database,omitempty"`
	Auth     AuthConfig     `koanf:"auth" json:"auth,omitempty"`
	Log      LogConfig      `koanf:"log" json:"log,omitempty"`
	Metrics  MetricsConfig  `koanf:"metrics" json:"metrics,omitempty"`
}

// AppConfig identifies the deployment.
type AppConfig struct {
	Name    string `koanf:"name" json:"name,omitempty" jsonschema:"description=Service name reported in logs"`
	Version string `koanf:"version" json:"version,omitempty" jsonschema:"description=Semantic version reported by the root endpoint"`
	Env     string `koanf:"env" json:"env,omitempty" jsonschema:"description=Deployment environment; production enables secure cookies and secret checks"`
	Debug   bool   `koanf:"debug" json:"debug,omitempty" jsonschema:"description=Forces debug logging"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr            string        `koanf:"addr" json:"addr,omitempty" jsonschema:"description=API listen address"`
	RequestTimeout  time.Duration `koanf:"request_timeout" json:"request_timeout,omitempty"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout,omitempty"`
	CORSOrigins     []string      `koanf:"cors_origins" json:"cors_origins,omitempty" jsonschema:"description=Allowed origins; glob patterns"`
	RateLimit       int           `koanf:"rate_limit" json:"rate_limit,omitempty" jsonschema:"minimum=1,description=Requests per window and client IP on /api/auth"`
	RateWindow      time.Duration `koanf:"rate_window" json:"rate_window,omitempty"`
	SecureCookies   bool          `koanf:"secure_cookies" json:"secure_cookies,omitempty" jsonschema:"description=Marks the session cookie Secure outside production"`
	TrustProxy      bool          `koanf:"trust_proxy" json:"trust_proxy,omitempty" jsonschema:"description=Take the client IP from proxy headers; enable only behind a trusted proxy"`
}

// DatabaseConfig configures the user store.
type DatabaseConfig struct {
	Driver         string        `koanf:"driver" json:"driver,omitempty" jsonschema:"enum=postgres,enum=memory"`
	URL            string        `koanf:"url" json:"url,omitempty" jsonschema:"description=PostgreSQL connection URL"`
	MaxConns       int32         `koanf:"max_conns" json:"max_conns,omitempty" jsonschema:"minimum=0"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" json:"connect_timeout,omitempty"`
	ConnectRetries uint64        `koanf:"connect_retries" json:"connect_retries,omitempty"`
	AutoMigrate    bool          `koanf:"auto_migrate" json:"auto_migrate,omitempty"`
}

// AuthConfig configures credentials and tokens.
type AuthConfig struct {
	Secret        string        `koanf:"secret" json:"secret,omitempty" jsonschema:"description=HS256 signing secret"`
	TokenLifetime time.Duration `koanf:"token_lifetime" json:"token_lifetime,omitempty"`
	Issuer        string        `koanf:"issuer" json:"issuer,omitempty"`
	Hasher        string        `koanf:"hasher" json:"hasher,omitempty" jsonschema:"enum=argon2id,enum=bcrypt"`
	BcryptCost    int           `koanf:"bcrypt_cost" json:"bcrypt_cost,omitempty" jsonschema:"minimum=4,maximum=31"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// MetricsConfig configures the observability server.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" jsonschema:"description=Metrics and health address; empty disables"`
}

// defaults is the lowest configuration layer.
var defaults = map[string]any{
	"app.name":                 "authd",
	"app.version":              "1.0.0",
	"app.env":                  "development",
	"app.debug":                false,
	"http.addr":                ":8000",
	"http.request_timeout":     30 * time.Second,
	"http.shutdown_timeout":    5 * time.Second,
	"http.cors_origins":        []string{"http://localhost:3000", "http://127.0.0.1:3000"},
	"http.rate_limit":          60,
	"http.rate_window":         time.Minute,
	"http.secure_cookies":      false,
	"http.trust_proxy":         false,
	"database.driver":          DriverPostgres,
	"database.url":             "",
	"database.max_conns":       int32(10),
	"database.connect_timeout": 5 * time.Second,
	"database.connect_retries": uint64(5),
	"database.auto_migrate":    false,
	"auth.secret":              defaultSecret,
	"auth.token_lifetime":      24 * time.Hour,
	"auth.issuer":              "",
	"auth.hasher":              "argon2id",
	"auth.bcrypt_cost":         12,
	"log.format":               "json",
	"log.level":                "info",
	"metrics.addr":             "127.0.0.1:9100",
}

// IsProduction reports whether app.env is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, EnvProduction)
}

// LogLevel returns the effective log level. app.debug forces debug.
func (c *Config) LogLevel() string {
	if c.App.Debug {
		return "debug"
	}
	return c.Log.Level
}

// SecureCookies reports whether the session cookie must be Secure.
func (c *Config) SecureCookies() bool {
	return c.IsProduction() || c.HTTP.SecureCookies
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, oops.With("field", field).Errorf(format, args...))
	}

	if c.App.Name == "" {
		add("app.name", "app.name is required")
	}
	if _, err := semver.StrictNewVersion(c.App.Version); err != nil {
		add("app.version", "app.version %q is not a semantic version", c.App.Version)
	}

	if c.HTTP.Addr == "" {
		add("http.addr", "http.addr is required")
	}
	if c.HTTP.RequestTimeout <= 0 {
		add("http.request_timeout", "http.request_timeout must be positive")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		add("http.shutdown_timeout", "http.shutdown_timeout must be positive")
	}
	if c.HTTP.RateLimit <= 0 {
		add("http.rate_limit", "http.rate_limit must be positive")
	}
	if c.HTTP.RateWindow <= 0 {
		add("http.rate_window", "http.rate_window must be positive")
	}
	if _, err := CompileOrigins(c.HTTP.CORSOrigins); err != nil {
		add("http.cors_origins", "http.cors_origins: %v", err)
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			add("database.url", "database.url is required for the postgres driver")
		}
	case DriverMemory:
		if c.IsProduction() {
			add("database.driver", "the memory driver cannot be used in production")
		}
	default:
		add("database.driver", "database.driver must be %q or %q, got %q", DriverPostgres, DriverMemory, c.Database.Driver)
	}
	if c.Database.ConnectTimeout <= 0 {
		add("database.connect_timeout", "database.connect_timeout must be positive")
	}
	if c.Database.MaxConns < 0 {
		add("database.max_conns", "database.max_conns must not be negative")
	}

	if c.Auth.Secret == "" {
		add("auth.secret", "auth.secret is required")
	}
	if c.IsProduction() {
		if len(c.Auth.Secret) < MinProductionSecretLen {
			add("auth.secret", "auth.secret must be at least %d bytes in production", MinProductionSecretLen)
		}
		if c.Auth.Secret == defaultSecret {
			add("auth.secret", "auth.secret must be changed from the default in production")
		}
	}
	if c.Auth.TokenLifetime <= 0 {
		add("auth.token_lifetime", "auth.token_lifetime must be positive")
	}
	if c.Auth.Hasher != "argon2id" && c.Auth.Hasher != "bcrypt" {
		add("auth.hasher", "auth.hasher must be 'argon2id' or 'bcrypt', got %q", c.Auth.Hasher)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		add("log.format", "log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		add("log.level", "log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	if len(errs) == 0 {
		return nil
	}
	return oops.Code("CONFIG_INVALID").With("problems", len(errs)).Wrap(errors.Join(errs...))
}

// CompileOrigins compiles CORS origin patterns. A pattern without glob
// metacharacters matches only itself.
func CompileOrigins(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, oops.Code("CONFIG_INVALID_ORIGIN").With("pattern", p).Wrap(err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

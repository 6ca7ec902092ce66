// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore: AUTHD_HTTP__ADDR sets http.addr.
const EnvPrefix = "AUTHD_"

// DatabaseURLEnv is read as an alias for database.url.
const DatabaseURLEnv = "DATABASE_URL"

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"http-addr":       "http.addr",
	"database-url":    "database.url",
	"database-driver": "database.driver",
	"auto-migrate":    "database.auto_migrate",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"metrics-addr":    "metrics.addr",
}

// Options selects the sources Load reads beyond the defaults.
type Options struct {
	// File is a YAML config file. Empty skips the file layer.
	File string
	// Flags are command-line flags registered with RegisterFlags. Only
	// flags set by the user override other layers.
	Flags *pflag.FlagSet
}

// RegisterFlags adds the config override flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("http-addr", ":8000", "API listen address")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.String("database-driver", DriverPostgres, "user store driver (postgres or memory)")
	fs.Bool("auto-migrate", false, "apply pending migrations on startup")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("log-format", "json", "log format (json or text)")
	fs.String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
}

// Load builds and validates the configuration.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}

	if opts.File != "" {
		fp := file.Provider(opts.File)
		data, err := fp.ReadBytes()
		if err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", opts.File).Wrap(err)
		}
		if err := ValidateFile(data); err != nil {
			return nil, oops.With("path", opts.File).Wrap(err)
		}
		if err := k.Load(fp, yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", opts.File).Wrap(err)
		}
	}

	aliasProvider := env.ProviderWithValue(DatabaseURLEnv, ".", func(key, value string) (string, any) {
		if key != DatabaseURLEnv {
			return "", nil
		}
		return "database.url", value
	})
	if err := k.Load(aliasProvider, nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if opts.Flags != nil {
		fs := opts.Flags
		flagProvider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(flagProvider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps AUTHD_HTTP__RATE_LIMIT to http.rate_limit.
func envKey(key, value string) (string, any) {
	key = strings.TrimPrefix(key, EnvPrefix)
	if key == "" {
		return "", nil
	}
	return strings.ToLower(strings.ReplaceAll(key, "__", ".")), value
}

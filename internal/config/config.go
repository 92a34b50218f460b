package config

import (
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// Config covers the ambient knobs of the capture layer. The persisted
// schema itself (table layout, schema version) is fixed constants in the
// store package, not configuration.
type Config struct {
	Primary Primary       `koanf:"primary" validate:"required"`
	Store   StoreConfig   `koanf:"store" validate:"required"`
	Logging LoggingConfig `koanf:"logging"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type StoreConfig struct {
	// Path is the filesystem location of the embedded database file.
	Path string `koanf:"path" validate:"required"`
}

type LoggingConfig struct {
	// Level is the minimum level for operational (diagnostic) output.
	Level string `koanf:"level"`
}

// Load reads configuration from LOGTRAP_-prefixed environment variables
// using koanf, fills defaults, and validates the result. Configuration
// problems are fatal: there is no sensible degraded mode before startup.
func Load() *Config {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	k := koanf.New(".")
	err := k.Load(env.Provider("LOGTRAP_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "LOGTRAP_")), "_", ".")
	}), nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not load environment variables")
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		logger.Fatal().Err(err).Msg("could not unmarshal config")
	}

	// Defaults keep a bare environment working.
	if cfg.Primary.Env == "" {
		cfg.Primary.Env = "development"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "logtrap.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if err := validator.New().Struct(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	return cfg
}

// Package config reads clicker settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/govm-net/clicker/clicker"
	"github.com/govm-net/clicker/context"
	"github.com/govm-net/clicker/vm"
	"github.com/joho/godotenv"
)

type Config struct {
	Context      string `env:"CLICKER_CONTEXT" envDefault:"db"`
	DBPath       string `env:"CLICKER_DB_PATH" envDefault:"./clicker.db"`
	Variant      string `env:"CLICKER_VARIANT" envDefault:"guarded"`
	ComputeLimit int64  `env:"CLICKER_COMPUTE_LIMIT" envDefault:"200000"`
	Keypair      string `env:"CLICKER_KEYPAIR"`
	LogLevel     string `env:"CLICKER_LOG_LEVEL" envDefault:"info"`
}

// Load reads dotenv files (".env" when none are named) and then the
// environment. Variables already set win over file values; missing files
// are ignored.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch context.ContextType(c.Context) {
	case context.MemoryContextType, context.DBContextType:
	default:
		return fmt.Errorf("unknown context %q", c.Context)
	}
	if _, err := clicker.ParseVariant(c.Variant); err != nil {
		return err
	}
	if c.ComputeLimit <= 0 {
		return fmt.Errorf("invalid compute limit: %d", c.ComputeLimit)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// GameVariant is the validated Variant.
func (c *Config) GameVariant() clicker.Variant {
	return clicker.Variant(c.Variant)
}

func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// EngineConfig builds the engine settings.
func (c *Config) EngineConfig() *vm.Config {
	return &vm.Config{
		ContextType:   c.Context,
		ContextParams: map[string]any{"db_path": c.DBPath},
		ComputeLimit:  c.ComputeLimit,
	}
}

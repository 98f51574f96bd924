// Package clienv wires the shared dependencies of the cli commands from the environment.
package clienv

import (
	"context"
	"log/slog"
	"os"

	"github.com/myrjola/tripguide/internal/ai"
	"github.com/myrjola/tripguide/internal/envstruct"
	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/logging"
	"github.com/myrjola/tripguide/internal/sqlite"
)

type Config struct {
	SqliteURL     string `env:"TRIPGUIDE_SQLITE_URL" envDefault:"./tripguide.sqlite"`
	OpenAIKey     string `env:"OPENAI_API_KEY" envDefault:""`
	OpenAIBaseURL string `env:"TRIPGUIDE_OPENAI_BASE_URL" envDefault:""`
	OpenAIModel   string `env:"TRIPGUIDE_OPENAI_MODEL" envDefault:""`
	LogLevel      string `env:"TRIPGUIDE_LOG_LEVEL" envDefault:"warn"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envstruct.Populate(&cfg, os.LookupEnv); err != nil {
		return Config{}, errors.Wrap(err, "populate config") //nolint:exhaustruct // error path
	}
	return cfg, nil
}

// Logger writes text logs to stderr so that command output on stdout stays clean.
func (c Config) Logger() *slog.Logger {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelWarn
	}
	return slog.New(logging.NewContextHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource:   false,
		Level:       level,
		ReplaceAttr: nil,
	})))
}

// OpenDatabase opens and migrates the configured database. Close it when done.
func (c Config) OpenDatabase(ctx context.Context, logger *slog.Logger) (*sqlite.Database, error) {
	db, err := sqlite.NewDatabase(ctx, c.SqliteURL, logger)
	if err != nil {
		return nil, errors.Wrap(err, "open database", slog.String("url", c.SqliteURL))
	}
	return db, nil
}

func (c Config) AIClient(logger *slog.Logger) *ai.Client {
	return ai.NewClient(ai.Config{
		APIKey:    c.OpenAIKey,
		BaseURL:   c.OpenAIBaseURL,
		Model:     c.OpenAIModel,
		MaxTokens: 0,
	}, logger)
}

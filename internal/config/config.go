// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting
type Config struct {
	DBType      string `env:"DB_TYPE" envDefault:"sqlite"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"data/flashstack.db"`

	HTTPAddr     string `env:"HTTP_ADDR" envDefault:":8080"`
	CronSecret   string `env:"CRON_SECRET"`
	SweepEnabled bool   `env:"SWEEP_ENABLED" envDefault:"true"`
	SweepOnStart bool   `env:"SWEEP_ON_START" envDefault:"true"`

	DailyGoal        int     `env:"DAILY_GOAL" envDefault:"10"`
	MasteryThreshold int     `env:"MASTERY_THRESHOLD" envDefault:"3"`
	TestPassRatio    float64 `env:"TEST_PASS_RATIO" envDefault:"0.8"`
	DefaultTimezone  string  `env:"DEFAULT_TIMEZONE" envDefault:"UTC"`

	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	OpenAIModel      string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`

	LogMode string `env:"LOG_MODE" envDefault:"dev"`
}

// Load reads .env files (missing files are ignored) and parses the environment.
// Variables already set in the environment win over .env values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges that env tags cannot express
func (c *Config) Validate() error {
	switch c.DBType {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DB_TYPE must be sqlite or postgres, got %q", c.DBType)
	}
	if c.DBType == "postgres" && c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for postgres")
	}
	if c.DailyGoal < 1 {
		return fmt.Errorf("DAILY_GOAL must be at least 1, got %d", c.DailyGoal)
	}
	if c.MasteryThreshold < 1 || c.MasteryThreshold > 5 {
		return fmt.Errorf("MASTERY_THRESHOLD must be in 1..5, got %d", c.MasteryThreshold)
	}
	if c.TestPassRatio <= 0 || c.TestPassRatio > 1 {
		return fmt.Errorf("TEST_PASS_RATIO must be in (0, 1], got %v", c.TestPassRatio)
	}
	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		return fmt.Errorf("DEFAULT_TIMEZONE: %w", err)
	}
	return nil
}

// DSN returns the data source for the configured database type
func (c *Config) DSN() string {
	if c.DBType == "postgres" {
		return c.DatabaseURL
	}
	return c.SQLitePath
}

// Location returns the default time zone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

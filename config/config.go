package config

import (
	"fmt"

	"github.com/namsral/flag"
)

type Config struct {
	DBURI            string
	DBMigrationsPath string
	VaultPath        string

	DeckID           int64
	DayStartHour     int
	MaxNewPerDay     int
	MaxReviewsPerDay int

	LogLevel string
}

// Load loads the configs from the given arguments
func (c *Config) Load(args []string) error {
	fs := flag.NewFlagSet("srs_engine", flag.ContinueOnError)

	fs.StringVar(&c.DBURI, "db-uri", "", "postgres connection URI for the shared vault")
	fs.StringVar(&c.DBMigrationsPath, "db-migrations-path", "file://db/migrations", "go-migrate source URL for schema migrations")
	fs.StringVar(&c.VaultPath, "vault-path", "vault.db", "path to the local sqlite vault file")

	fs.Int64Var(&c.DeckID, "deck", 1, "deck to study")
	fs.IntVar(&c.DayStartHour, "day-start-hour", 4, "hour [0-23] at which a new study day begins")
	fs.IntVar(&c.MaxNewPerDay, "max-new-per-day", 20, "maximum new cards introduced per study day")
	fs.IntVar(&c.MaxReviewsPerDay, "max-reviews-per-day", 200, "maximum reviews per study day")

	fs.StringVar(&c.LogLevel, "log-level", "debug", "log level")
	err := fs.Parse(args)
	if err != nil {
		return err
	}
	if c.DayStartHour < 0 || c.DayStartHour > 23 {
		return fmt.Errorf("day-start-hour must be in [0, 23], got %d", c.DayStartHour)
	}
	if c.MaxNewPerDay < 0 || c.MaxReviewsPerDay < 0 {
		return fmt.Errorf("daily limits must not be negative")
	}
	return nil
}

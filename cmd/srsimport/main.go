// srsimport copies a local sqlite vault into the shared PostgreSQL vault.
// Each imported card gets its memory-model fields seeded from its current
// scheduling state, so a future switch of scheduling models has a starting
// point for every card.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fluentdeck/srs_engine/config"
	"github.com/fluentdeck/srs_engine/internal/scheduler"
	"github.com/fluentdeck/srs_engine/internal/stores"
	"github.com/fluentdeck/srs_engine/internal/stores/postgres"
	"github.com/fluentdeck/srs_engine/internal/stores/sqlitestore"
)

func main() {
	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "bad config: %v\n", err)
		os.Exit(1)
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if strings.ToLower(cfg.LogLevel) == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if cfg.DBURI == "" {
		log.Fatal().Msg("db-uri is required")
	}

	ctx := log.Logger.WithContext(context.Background())

	if err := postgres.MigrateToLatest(cfg.DBMigrationsPath, cfg.DBURI); err != nil {
		log.Fatal().Err(err).Msg("migrating shared vault")
	}

	pool, err := pgxpool.New(ctx, cfg.DBURI)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to shared vault")
	}
	defer pool.Close()
	pgStore := postgres.New(pool)

	vault, err := sqlitestore.Open(cfg.VaultPath)
	if err != nil {
		log.Fatal().Err(err).Str("vault", cfg.VaultPath).Msg("opening local vault")
	}
	defer vault.Close()

	cards, err := vault.Search(ctx, stores.CardQuery{
		DeckID:  cfg.DeckID,
		OrderBy: stores.OrderByCreated,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("reading local vault")
	}

	for i := range cards {
		cards[i] = scheduler.SeedMemory(cards[i])
	}

	inserted, err := pgStore.BulkImport(ctx, cards)
	if err != nil {
		log.Fatal().Err(err).Msg("importing cards")
	}

	log.Info().Int64("deck", cfg.DeckID).
		Int("read", len(cards)).
		Int("inserted", inserted).
		Int("skipped", len(cards)-inserted).
		Msg("import-complete")
}

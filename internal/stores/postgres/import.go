package postgres

import (
	"context"
	"fmt"

	"github.com/fluentdeck/srs_engine/internal/scheduler"
)

// BulkImport inserts cards into the shared vault in one transaction. Cards
// whose pair and direction already exist are skipped, so re-running an import
// cannot clobber scheduling state already accumulated here. Returns the
// number of cards actually inserted.
func (s *Store) BulkImport(ctx context.Context, cards []scheduler.Card) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for _, card := range cards {
		tag, err := tx.Exec(ctx, `
			INSERT INTO cards (deck_id, pair_id, direction, state, due, interval_days,
				ease, reps, lapses, step_index, last_review, suspended, stability,
				difficulty, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
			ON CONFLICT (pair_id, direction) DO NOTHING`,
			card.DeckID, card.PairID, int16(card.Direction), int16(card.State),
			card.Due, card.IntervalDays, card.Ease, card.Reps, card.Lapses,
			card.StepIndex, card.LastReview, card.Suspended, card.Stability,
			card.Difficulty, card.CreatedAt)
		if err != nil {
			return 0, fmt.Errorf("failed to insert card for pair %d: %w", card.PairID, err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return inserted, nil
}

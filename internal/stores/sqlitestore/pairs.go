package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fluentdeck/srs_engine/internal/scheduler"
	"github.com/fluentdeck/srs_engine/internal/session"
)

// ErrPairNotFound means a card references content that no longer exists.
// The session controller treats this as a hydration failure and drops the
// card rather than aborting.
var ErrPairNotFound = errors.New("content pair not found")

// AddPair stores a content pair and creates both of its cards in the New
// state. Returns the pair id.
func (s *Store) AddPair(ctx context.Context, deckID int64, front, back string, now time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO pairs (deck_id, front, back) VALUES (?, ?, ?)`,
		deckID, front, back)
	if err != nil {
		return 0, fmt.Errorf("inserting pair: %w", err)
	}
	pairID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	fwd, rev := scheduler.NewCardPair(deckID, pairID, now)
	for _, card := range []scheduler.Card{fwd, rev} {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cards (deck_id, pair_id, direction, state, due,
				interval_days, ease, reps, lapses, step_index, last_review,
				suspended, stability, difficulty, created_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			card.DeckID, card.PairID, int(card.Direction), int(card.State),
			toMillis(card.Due), card.IntervalDays, card.Ease, card.Reps,
			card.Lapses, card.StepIndex, lastReviewArg(card), card.Suspended,
			card.Stability, card.Difficulty, toMillis(card.CreatedAt))
		if err != nil {
			return 0, fmt.Errorf("inserting %s card: %w", card.Direction, err)
		}
	}
	return pairID, tx.Commit()
}

// Hydrate resolves a card's content, implementing session.Hydrator. The
// reverse direction swaps prompt and answer.
func (s *Store) Hydrate(ctx context.Context, card scheduler.Card) (session.CardView, error) {
	var front, back string
	err := s.db.QueryRowContext(ctx,
		`SELECT front, back FROM pairs WHERE id = ?`, card.PairID).Scan(&front, &back)
	if errors.Is(err, sql.ErrNoRows) {
		return session.CardView{}, fmt.Errorf("%w: pair %d", ErrPairNotFound, card.PairID)
	}
	if err != nil {
		return session.CardView{}, fmt.Errorf("hydrating card %d: %w", card.ID, err)
	}

	view := session.CardView{Card: card, Prompt: front, Answer: back}
	if card.Direction == scheduler.Reverse {
		view.Prompt, view.Answer = back, front
	}
	return view, nil
}

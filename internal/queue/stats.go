package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/fluentdeck/srs_engine/internal/scheduler"
	"github.com/fluentdeck/srs_engine/internal/stores"
)

// DeckStats is a snapshot of a deck's workload, for UIs that want to show
// counts without starting a session.
type DeckStats struct {
	// DueNow is the number of started cards whose due instant has passed.
	DueNow int
	// DueToday additionally includes started cards due later in the current
	// study day.
	DueToday int
	// NewWaiting is the number of new cards that would be introduced today,
	// capped at the remaining new-card quota.
	NewWaiting int
}

// DeckStatsNow computes the snapshot at the given instant.
func DeckStatsNow(ctx context.Context, store stores.Store, deckID int64,
	now time.Time, settings stores.Settings) (DeckStats, error) {

	limits, err := DailyLimitsRemaining(ctx, store, deckID, now, settings)
	if err != nil {
		return DeckStats{}, err
	}

	notSuspended := false
	started := []scheduler.State{scheduler.Learning, scheduler.Review, scheduler.Relearning}
	tomorrowStart := scheduler.NextStudyDayStart(now, settings.DayStartHour)

	dueNow, err := store.Search(ctx, stores.CardQuery{
		DeckID:    deckID,
		States:    started,
		DueBy:     &now,
		Suspended: &notSuspended,
	})
	if err != nil {
		return DeckStats{}, fmt.Errorf("counting due cards: %w", err)
	}
	dueToday, err := store.Search(ctx, stores.CardQuery{
		DeckID:    deckID,
		States:    started,
		DueBy:     &tomorrowStart,
		Suspended: &notSuspended,
	})
	if err != nil {
		return DeckStats{}, fmt.Errorf("counting cards due today: %w", err)
	}
	var fresh []scheduler.Card
	if limits.NewRemaining > 0 {
		fresh, err = store.Search(ctx, stores.CardQuery{
			DeckID:    deckID,
			States:    []scheduler.State{scheduler.New},
			DueBy:     &now,
			Suspended: &notSuspended,
			Limit:     limits.NewRemaining,
		})
		if err != nil {
			return DeckStats{}, fmt.Errorf("counting new cards: %w", err)
		}
	}

	return DeckStats{
		DueNow:     min(len(dueNow), limits.ReviewsRemaining),
		DueToday:   min(len(dueToday), limits.ReviewsRemaining),
		NewWaiting: len(fresh),
	}, nil
}

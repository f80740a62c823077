// Package queue builds and maintains the ordered card queue for a review
// session: daily-quota accounting, the separation sort that keeps both
// directions of a pair apart, and the reinsertion helpers that keep a live
// queue valid without re-querying the store.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/fluentdeck/srs_engine/internal/scheduler"
	"github.com/fluentdeck/srs_engine/internal/stores"
)

// DailyLimits is how much quota remains in the current study day.
type DailyLimits struct {
	NewRemaining     int
	ReviewsRemaining int
}

// DailyLimitsRemaining computes remaining quota by counting review-log
// entries since the study-day start. The log, not the card table, is the
// source of truth: a card reviewed twice today consumed quota twice.
func DailyLimitsRemaining(ctx context.Context, logs stores.ReviewLogStore, deckID int64,
	now time.Time, settings stores.Settings) (DailyLimits, error) {

	dayStart := scheduler.StudyDayStart(now, settings.DayStartHour)

	newDone, err := logs.Count(ctx, stores.LogQuery{
		DeckID:        deckID,
		ReviewedSince: dayStart,
		StateBefore:   stores.FromNew,
	})
	if err != nil {
		return DailyLimits{}, fmt.Errorf("counting new reviews: %w", err)
	}
	reviewsDone, err := logs.Count(ctx, stores.LogQuery{
		DeckID:        deckID,
		ReviewedSince: dayStart,
		StateBefore:   stores.FromStarted,
	})
	if err != nil {
		return DailyLimits{}, fmt.Errorf("counting reviews: %w", err)
	}

	return DailyLimits{
		NewRemaining:     max(0, settings.MaxNewPerDay-newDone),
		ReviewsRemaining: max(0, settings.MaxReviewsPerDay-reviewsDone),
	}, nil
}

// Build assembles the session queue: started (Learning/Review/Relearning)
// cards due within the session horizon ordered by due date (capped at the
// review quota), then due New cards in creation order (capped at the new
// quota), the whole thing passed through the separation sort. An exhausted
// quota contributes nothing.
//
// horizon is the next study-day start. Started cards due later today are
// included even though they are not wall-clock due yet: a card mid step
// ladder stays in the session, and a session torn down and restarted can
// resume instead of finding an empty queue.
func Build(ctx context.Context, cards stores.CardStore, deckID int64, now, horizon time.Time,
	limits DailyLimits) ([]scheduler.Card, error) {

	notSuspended := false

	var started []scheduler.Card
	var err error
	if limits.ReviewsRemaining > 0 {
		started, err = cards.Search(ctx, stores.CardQuery{
			DeckID:    deckID,
			States:    []scheduler.State{scheduler.Learning, scheduler.Review, scheduler.Relearning},
			DueBy:     &horizon,
			Suspended: &notSuspended,
			OrderBy:   stores.OrderByDue,
			Limit:     limits.ReviewsRemaining,
		})
		if err != nil {
			return nil, fmt.Errorf("querying due cards: %w", err)
		}
	}

	var fresh []scheduler.Card
	if limits.NewRemaining > 0 {
		due := now
		fresh, err = cards.Search(ctx, stores.CardQuery{
			DeckID:    deckID,
			States:    []scheduler.State{scheduler.New},
			DueBy:     &due,
			Suspended: &notSuspended,
			OrderBy:   stores.OrderByCreated,
			Limit:     limits.NewRemaining,
		})
		if err != nil {
			return nil, fmt.Errorf("querying new cards: %w", err)
		}
	}

	q := make([]scheduler.Card, 0, len(started)+len(fresh))
	q = append(q, started...)
	q = append(q, fresh...)
	return SortBySeparation(q), nil
}

// NextDueIndex scans the queue from startIndex for the first card whose due
// instant has passed. Returns -1 when nothing is due yet.
func NextDueIndex(q []scheduler.Card, now time.Time, startIndex int) int {
	for i := max(0, startIndex); i < len(q); i++ {
		if !q[i].Due.After(now) {
			return i
		}
	}
	return -1
}

// CountStillDueToday counts cards due before the next study-day start. This
// is the session-completion signal: a card rescheduled to later today still
// counts, one pushed past tomorrow's start does not.
func CountStillDueToday(q []scheduler.Card, tomorrowStart time.Time) int {
	n := 0
	for i := range q {
		if q[i].Due.Before(tomorrowStart) {
			n++
		}
	}
	return n
}

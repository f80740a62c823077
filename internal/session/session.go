// Package session runs a live review session: it builds the queue, walks the
// user through due cards, applies scheduler output, and keeps the in-memory
// queue consistent with the persisted state. Exactly one rating can be
// undone.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fluentdeck/srs_engine/internal/queue"
	"github.com/fluentdeck/srs_engine/internal/scheduler"
	"github.com/fluentdeck/srs_engine/internal/stores"
)

var (
	// ErrNoCurrentCard is returned when Rate is called with nothing presented.
	ErrNoCurrentCard = errors.New("no current card to rate")
	// ErrNoUndo is returned when Undo is called with no rating to revert.
	ErrNoUndo = errors.New("nothing to undo")
	// ErrNotStarted is returned when the session was never initialized or has
	// been torn down.
	ErrNotStarted = errors.New("session not started")
)

type nower interface {
	Now() time.Time
}

// RealNower is the wall clock.
type RealNower struct{}

func (r RealNower) Now() time.Time {
	return time.Now()
}

// CardView is a hydrated card: the schedulable snapshot plus the content the
// UI shows for it.
type CardView struct {
	Card   scheduler.Card
	Prompt string
	Answer string
}

// Hydrator resolves the content pair a card references. Hydration can fail if
// the pair was deleted out from under the session; the controller treats that
// as non-fatal and drops the card.
type Hydrator interface {
	Hydrate(ctx context.Context, card scheduler.Card) (CardView, error)
}

// Stats is what the UI shows as session progress.
type Stats struct {
	TotalInSession int
	RemainingToday int
	CompletedCount int
}

type phase int

const (
	uninitialized phase = iota
	loading
	active
	empty
)

// undoState captures everything needed to revert exactly one rating.
type undoState struct {
	view        CardView
	queue       []scheduler.Card
	index       int
	logID       int64
	snapshot    scheduler.Card
	wasComplete bool
}

// Controller drives one review session for one deck. It is not safe for
// concurrent use; only one session is ever active per device.
type Controller struct {
	store    stores.Store
	hydrator Hydrator
	settings stores.Settings

	// Nower is swappable for tests.
	Nower nower

	phase          phase
	deckID         int64
	queue          []scheduler.Card
	index          int
	current        *CardView
	revealed       bool
	tomorrowStart  time.Time
	total          int
	completed      map[int64]bool
	remainingToday int
	undo           *undoState
}

func NewController(store stores.Store, hydrator Hydrator, settings stores.Settings) *Controller {
	return &Controller{
		store:    store,
		hydrator: hydrator,
		settings: settings,
		Nower:    RealNower{},
	}
}

// Start initializes the session for a deck: computes daily limits, builds the
// queue, and presents the first due card. It may be called again after
// Teardown to begin a fresh session.
func (c *Controller) Start(ctx context.Context, deckID int64) error {
	c.reset()
	c.phase = loading
	c.deckID = deckID

	now := c.Nower.Now()
	c.tomorrowStart = scheduler.NextStudyDayStart(now, c.settings.DayStartHour)

	limits, err := queue.DailyLimitsRemaining(ctx, c.store, deckID, now, c.settings)
	if err != nil {
		return fmt.Errorf("computing daily limits: %w", err)
	}
	q, err := queue.Build(ctx, c.store, deckID, now, c.tomorrowStart, limits)
	if err != nil {
		return fmt.Errorf("building queue: %w", err)
	}

	c.queue = q
	c.total = len(q)
	c.completed = map[int64]bool{}
	c.remainingToday = queue.CountStillDueToday(q, c.tomorrowStart)

	log.Ctx(ctx).Info().Int64("deck", deckID).
		Int("queue-len", len(q)).
		Int("new-remaining", limits.NewRemaining).
		Int("reviews-remaining", limits.ReviewsRemaining).
		Msg("session-started")

	return c.loadNext(ctx, 0)
}

// CurrentCard returns the presented card, or nil when the session is empty
// or not started.
func (c *Controller) CurrentCard() *CardView {
	if c.phase != active {
		return nil
	}
	return c.current
}

// Reveal marks the current card's answer as shown. Purely presentational;
// tracked here so undo can restore it.
func (c *Controller) Reveal() {
	if c.phase == active {
		c.revealed = true
	}
}

// Revealed reports whether the current card's answer is shown.
func (c *Controller) Revealed() bool {
	return c.phase == active && c.revealed
}

// Stats returns the session progress counters.
func (c *Controller) Stats() Stats {
	return Stats{
		TotalInSession: c.total,
		RemainingToday: c.remainingToday,
		CompletedCount: len(c.completed),
	}
}

// Rate applies the user's rating to the current card: runs the scheduler,
// persists card update and log entry atomically, records the undo state, and
// advances the queue. A persistence failure applies nothing and leaves the
// current card presented.
func (c *Controller) Rate(ctx context.Context, rating scheduler.Rating) error {
	if c.phase == uninitialized || c.phase == loading {
		return ErrNotStarted
	}
	if c.phase != active || c.current == nil {
		return ErrNoCurrentCard
	}
	if !rating.IsValid() {
		return scheduler.ErrInvalidRating
	}

	now := c.Nower.Now()
	snapshot := c.current.Card

	updated, entry, err := scheduler.Schedule(snapshot, rating, now)
	if err != nil {
		return err
	}

	logID, err := c.store.ApplyRating(ctx, updated, entry)
	if err != nil {
		return fmt.Errorf("persisting rating: %w", err)
	}

	// Complete means the card will not come back within this study day.
	completedNow := !updated.Due.Before(c.tomorrowStart)

	c.undo = &undoState{
		view:        *c.current,
		queue:       slices.Clone(c.queue),
		index:       c.index,
		logID:       logID,
		snapshot:    snapshot,
		wasComplete: completedNow,
	}
	if completedNow {
		c.completed[snapshot.ID] = true
	}

	nextQueue, nextStart := queue.ApplyReschedule(c.queue, snapshot.ID, &updated, c.tomorrowStart, c.index)
	c.queue = nextQueue
	c.remainingToday = queue.CountStillDueToday(c.queue, c.tomorrowStart)

	log.Ctx(ctx).Info().
		Int64("card", snapshot.ID).
		Int64("pair", snapshot.PairID).
		Stringer("rating", rating).
		Stringer("state", updated.State).
		Int("interval-days", updated.IntervalDays).
		Time("due", updated.Due).
		Msg("card-rated")

	c.revealed = false
	if c.remainingToday == 0 {
		c.phase = empty
		c.current = nil
		return nil
	}
	return c.loadNext(ctx, nextStart)
}

// Undo reverts the most recent rating: the persisted card snapshot is
// restored, the log entry deleted, and the pre-rating queue and card
// re-presented with the answer shown. Only one level exists; rating a card
// replaces it and undoing consumes it.
func (c *Controller) Undo(ctx context.Context) error {
	if c.phase == uninitialized || c.phase == loading {
		return ErrNotStarted
	}
	if c.undo == nil {
		return ErrNoUndo
	}
	u := c.undo

	if err := c.store.RevertRating(ctx, u.snapshot, u.logID); err != nil {
		return fmt.Errorf("reverting rating: %w", err)
	}

	c.queue = u.queue
	c.index = u.index
	if u.wasComplete {
		delete(c.completed, u.snapshot.ID)
	}
	c.remainingToday = queue.CountStillDueToday(c.queue, c.tomorrowStart)

	view, err := c.hydrator.Hydrate(ctx, u.snapshot)
	if err != nil {
		// The content was there moments ago; fall back to the captured view
		// rather than dropping the card we just restored.
		log.Ctx(ctx).Warn().Err(err).Int64("card", u.snapshot.ID).
			Msg("undo-rehydration-failed-using-captured-view")
		view = u.view
		view.Card = u.snapshot
	}
	c.current = &view
	c.revealed = true
	c.phase = active
	c.undo = nil

	log.Ctx(ctx).Info().Int64("card", u.snapshot.ID).Msg("rating-undone")
	return nil
}

// Teardown discards all in-memory session state. Nothing persisted is
// touched; a fresh Start is required to resume.
func (c *Controller) Teardown() {
	c.reset()
}

func (c *Controller) reset() {
	c.phase = uninitialized
	c.deckID = 0
	c.queue = nil
	c.index = 0
	c.current = nil
	c.revealed = false
	c.total = 0
	c.completed = nil
	c.remainingToday = 0
	c.undo = nil
	c.tomorrowStart = time.Time{}
}

// loadNext finds and presents the next card. It prefers the first wall-clock
// due card at or after startIndex, then retries from the top (a reschedule
// can make an earlier card due), then accelerates: with quota left but
// nothing due yet, the earliest card still inside today's horizon is
// presented early so the user can finish the day in one sitting instead of
// waiting out intra-day step timers.
func (c *Controller) loadNext(ctx context.Context, startIndex int) error {
	for {
		now := c.Nower.Now()

		idx := queue.NextDueIndex(c.queue, now, startIndex)
		if idx < 0 && startIndex > 0 {
			idx = queue.NextDueIndex(c.queue, now, 0)
		}
		if idx < 0 {
			idx = c.accelerateIndex()
		}
		if idx < 0 {
			c.phase = empty
			c.current = nil
			return nil
		}

		view, err := c.hydrator.Hydrate(ctx, c.queue[idx])
		if err != nil {
			// Content gone; drop the card and keep going.
			log.Ctx(ctx).Warn().Err(err).Int64("card", c.queue[idx].ID).
				Msg("hydration-failed-dropping-card")
			c.queue = slices.Delete(slices.Clone(c.queue), idx, idx+1)
			c.total--
			c.remainingToday = queue.CountStillDueToday(c.queue, c.tomorrowStart)
			if startIndex > len(c.queue) {
				startIndex = len(c.queue)
			}
			continue
		}

		c.index = idx
		c.current = &view
		c.revealed = false
		c.phase = active
		return nil
	}
}

// accelerateIndex picks the single card with the earliest due time still
// inside today's horizon, or -1 if there is none.
func (c *Controller) accelerateIndex() int {
	best := -1
	for i := range c.queue {
		if !c.queue[i].Due.Before(c.tomorrowStart) {
			continue
		}
		if best < 0 || c.queue[i].Due.Before(c.queue[best].Due) {
			best = i
		}
	}
	return best
}

package sqlitestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/fluentdeck/srs_engine/internal/scheduler"
	"github.com/fluentdeck/srs_engine/internal/stores"
)

// Instants are persisted at millisecond precision, so test times are built
// from a millisecond epoch to round-trip exactly.
var testNow = time.UnixMilli(1718445600000).UTC() // 2024-06-15 10:00:00 UTC

func openTestVault(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "vault.db"))
	if err != nil {
		t.Fatalf("opening vault: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddPairCreatesBothCards(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := openTestVault(t)

	pairID, err := s.AddPair(ctx, 1, "der Hund", "the dog", testNow)
	is.NoErr(err)

	cards, err := s.Search(ctx, stores.CardQuery{DeckID: 1})
	is.NoErr(err)
	is.Equal(len(cards), 2)

	is.Equal(cards[0].Direction, scheduler.Forward)
	is.Equal(cards[1].Direction, scheduler.Reverse)
	for _, c := range cards {
		is.Equal(c.PairID, pairID)
		is.Equal(c.State, scheduler.New)
		is.Equal(c.Due, testNow)
		is.Equal(c.Ease, scheduler.DefaultEase)
	}

	fwd, err := s.Hydrate(ctx, cards[0])
	is.NoErr(err)
	is.Equal(fwd.Prompt, "der Hund")
	is.Equal(fwd.Answer, "the dog")

	rev, err := s.Hydrate(ctx, cards[1])
	is.NoErr(err)
	is.Equal(rev.Prompt, "the dog")
	is.Equal(rev.Answer, "der Hund")
}

func TestHydrateMissingPair(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := openTestVault(t)

	card := scheduler.NewCard(1, 999, scheduler.Forward, testNow)
	_, err := s.Hydrate(ctx, card)
	is.True(errors.Is(err, ErrPairNotFound))
}

func TestCardRoundTrip(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := openTestVault(t)

	lastReview := testNow.Add(-72 * time.Hour)
	stability := 18.5
	difficulty := 6.2
	want := scheduler.Card{
		DeckID:       1,
		PairID:       7,
		Direction:    scheduler.Reverse,
		State:        scheduler.Review,
		Due:          testNow.Add(48 * time.Hour),
		IntervalDays: 5,
		Ease:         2.35,
		Reps:         9,
		Lapses:       2,
		StepIndex:    0,
		LastReview:   &lastReview,
		Suspended:    true,
		Stability:    &stability,
		Difficulty:   &difficulty,
		CreatedAt:    testNow.Add(-300 * time.Hour),
	}

	id, err := s.Create(ctx, want)
	is.NoErr(err)
	want.ID = id

	got, err := s.Find(ctx, id)
	is.NoErr(err)
	is.Equal(got, want)
}

func TestFindMissing(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := openTestVault(t)

	_, err := s.Find(ctx, 42)
	is.True(errors.Is(err, stores.ErrCardNotFound))

	err = s.Update(ctx, scheduler.NewCard(1, 1, scheduler.Forward, testNow))
	is.True(errors.Is(err, stores.ErrCardNotFound))

	is.True(errors.Is(s.SetSuspended(ctx, 42, true), stores.ErrCardNotFound))
	is.True(errors.Is(s.Delete(ctx, 42), stores.ErrLogNotFound))
}

func TestSearchFilters(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := openTestVault(t)

	mk := func(pairID int64, state scheduler.State, due time.Time, suspended bool) int64 {
		c := scheduler.NewCard(1, pairID, scheduler.Forward, testNow.Add(-time.Duration(pairID)*time.Hour))
		c.State = state
		c.Due = due
		c.Suspended = suspended
		id, err := s.Create(ctx, c)
		is.NoErr(err)
		return id
	}

	newID := mk(1, scheduler.New, testNow, false)
	dueID := mk(2, scheduler.Review, testNow.Add(-time.Hour), false)
	mk(3, scheduler.Review, testNow.Add(100*time.Hour), false)
	mk(4, scheduler.Learning, testNow.Add(-time.Hour), true)

	notSuspended := false
	due, err := s.Search(ctx, stores.CardQuery{
		DeckID:    1,
		States:    []scheduler.State{scheduler.Learning, scheduler.Review, scheduler.Relearning},
		DueBy:     &testNow,
		Suspended: &notSuspended,
	})
	is.NoErr(err)
	is.Equal(len(due), 1)
	is.Equal(due[0].ID, dueID)

	// Other deck: nothing.
	none, err := s.Search(ctx, stores.CardQuery{DeckID: 2})
	is.NoErr(err)
	is.Equal(len(none), 0)

	// Creation order differs from due order.
	created, err := s.Search(ctx, stores.CardQuery{DeckID: 1, OrderBy: stores.OrderByCreated, Limit: 1})
	is.NoErr(err)
	is.Equal(len(created), 1)
	is.True(created[0].ID != newID) // pair 4 was created earliest
}

func TestApplyAndRevertRating(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := openTestVault(t)

	card := scheduler.NewCard(1, 1, scheduler.Forward, testNow.Add(-200*time.Hour))
	card.State = scheduler.Review
	card.IntervalDays = 10
	card.Due = testNow.Add(-time.Hour)
	id, err := s.Create(ctx, card)
	is.NoErr(err)
	card.ID = id

	before, err := s.Find(ctx, id)
	is.NoErr(err)

	updated, entry, err := scheduler.Schedule(before, scheduler.Good, testNow)
	is.NoErr(err)

	logID, err := s.ApplyRating(ctx, updated, entry)
	is.NoErr(err)

	got, err := s.Find(ctx, id)
	is.NoErr(err)
	is.Equal(got.State, scheduler.Review)
	is.Equal(got.IntervalDays, updated.IntervalDays)
	is.True(got.LastReview != nil)
	is.Equal(*got.LastReview, testNow)

	n, err := s.Count(ctx, stores.LogQuery{DeckID: 1, ReviewedSince: testNow.Add(-time.Minute)})
	is.NoErr(err)
	is.Equal(n, 1)

	is.NoErr(s.RevertRating(ctx, before, logID))

	restored, err := s.Find(ctx, id)
	is.NoErr(err)
	is.Equal(restored, before) // revert restores every persisted field

	n, err = s.Count(ctx, stores.LogQuery{DeckID: 1, ReviewedSince: testNow.Add(-time.Minute)})
	is.NoErr(err)
	is.Equal(n, 0)

	// Reverting again fails loudly: the log entry is gone.
	is.True(errors.Is(s.RevertRating(ctx, before, logID), stores.ErrLogNotFound))
}

func TestCountStatePredicates(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := openTestVault(t)

	card := scheduler.NewCard(1, 1, scheduler.Forward, testNow.Add(-48*time.Hour))
	id, err := s.Create(ctx, card)
	is.NoErr(err)

	appendLog := func(reviewedAt time.Time, stateBefore scheduler.State) {
		_, err := s.Append(ctx, scheduler.ReviewLogEntry{
			CardID:      id,
			PairID:      1,
			Direction:   scheduler.Forward,
			ReviewedAt:  reviewedAt,
			Rating:      scheduler.Good,
			StateBefore: stateBefore,
			StateAfter:  scheduler.Learning,
			EaseBefore:  scheduler.DefaultEase,
			EaseAfter:   scheduler.DefaultEase,
			DueBefore:   reviewedAt,
			DueAfter:    reviewedAt.Add(24 * time.Hour),
		})
		is.NoErr(err)
	}

	appendLog(testNow.Add(-30*time.Hour), scheduler.New)     // previous study day
	appendLog(testNow.Add(-2*time.Hour), scheduler.New)      // today, from New
	appendLog(testNow.Add(-time.Hour), scheduler.Learning)   // today, started
	appendLog(testNow.Add(-30*time.Minute), scheduler.Review) // today, started

	since := testNow.Add(-6 * time.Hour)

	n, err := s.Count(ctx, stores.LogQuery{DeckID: 1, ReviewedSince: since, StateBefore: stores.FromNew})
	is.NoErr(err)
	is.Equal(n, 1)

	n, err = s.Count(ctx, stores.LogQuery{DeckID: 1, ReviewedSince: since, StateBefore: stores.FromStarted})
	is.NoErr(err)
	is.Equal(n, 2)

	n, err = s.Count(ctx, stores.LogQuery{DeckID: 1, ReviewedSince: testNow.Add(-48 * time.Hour)})
	is.NoErr(err)
	is.Equal(n, 4)
}

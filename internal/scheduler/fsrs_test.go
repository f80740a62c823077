package scheduler

import (
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/open-spaced-repetition/go-fsrs/v3"
)

func TestToFSRSCard(t *testing.T) {
	is := is.New(t)

	now := time.Date(2024, 11, 14, 3, 4, 5, 0, time.UTC)
	lastReview := now.Add(-2 * 24 * time.Hour)

	card := NewCard(1, 50, Forward, now.Add(-30*24*time.Hour))
	card.ID = 9
	card.State = Review
	card.IntervalDays = 20
	card.Ease = 2.5
	card.Reps = 12
	card.Lapses = 2
	card.LastReview = &lastReview
	card.Due = lastReview.Add(20 * 24 * time.Hour)

	fc := ToFSRSCard(card)
	is.Equal(fc.State, fsrs.Review)
	is.Equal(fc.Reps, uint64(12))
	is.Equal(fc.Lapses, uint64(2))
	is.True(fc.Stability > 19.9 && fc.Stability < 20.1)
	is.True(fc.Difficulty >= 1 && fc.Difficulty <= 10)

	// The seeded card must be schedulable by the fsrs library.
	p := fsrs.DefaultParam()
	p.EnableShortTerm = false
	f := fsrs.NewFSRS(p)
	next := f.Repeat(fc, now)[fsrs.Good].Card
	is.True(next.Due.After(now))
}

func TestToFSRSCardNeverReviewed(t *testing.T) {
	is := is.New(t)

	now := time.Date(2024, 11, 14, 0, 0, 0, 0, time.UTC)
	card := NewCard(1, 50, Reverse, now)

	fc := ToFSRSCard(card)
	is.Equal(fc.State, fsrs.New)
	is.Equal(fc.Due, card.Due)
}

func TestToFSRSCardClampsNegativeGap(t *testing.T) {
	is := is.New(t)

	now := time.Date(2024, 11, 14, 0, 0, 0, 0, time.UTC)
	lastReview := now
	card := NewCard(1, 50, Forward, now.Add(-time.Hour))
	card.State = Relearning
	card.LastReview = &lastReview
	// Rated outside its schedule; due is in the past relative to last review.
	card.Due = lastReview.Add(-time.Hour)

	fc := ToFSRSCard(card)
	is.Equal(fc.Stability, 1.0)
}

func TestSeedMemory(t *testing.T) {
	is := is.New(t)

	now := time.Date(2024, 11, 14, 0, 0, 0, 0, time.UTC)
	lastReview := now.Add(-24 * time.Hour)

	card := NewCard(1, 50, Forward, now.Add(-10*24*time.Hour))
	card.State = Review
	card.IntervalDays = 6
	card.LastReview = &lastReview
	card.Due = lastReview.Add(6 * 24 * time.Hour)

	seeded := SeedMemory(card)
	is.True(seeded.Stability != nil)
	is.True(seeded.Difficulty != nil)
	// SM-2 fields untouched.
	is.Equal(seeded.IntervalDays, card.IntervalDays)
	is.Equal(seeded.Ease, card.Ease)
	is.Equal(seeded.State, card.State)

	// New cards have no memory state to seed.
	fresh := NewCard(1, 51, Forward, now)
	is.Equal(SeedMemory(fresh).Stability, (*float64)(nil))
}

func TestEaseToDifficulty(t *testing.T) {
	is := is.New(t)

	// Default ease lands mid-scale, the floor lands near the hard end, and
	// unbounded ease clamps at the easy end.
	is.True(easeToDifficulty(DefaultEase) > 4 && easeToDifficulty(DefaultEase) < 7)
	is.True(easeToDifficulty(MinEase) > 8)
	is.Equal(easeToDifficulty(50.0), 1.0)
}

package scheduler

import (
	"math"
	"time"
)

// SM-2 variant constants. Intervals inside the step ladders are sub-day;
// everything in Review is whole days.
var (
	// NewSteps is the ladder for New/Learning cards.
	NewSteps = []time.Duration{10 * time.Minute, 24 * time.Hour}
	// RelearnSteps is the ladder a lapsed Review card walks before
	// graduating back.
	RelearnSteps = []time.Duration{10 * time.Minute}
)

const (
	// EasyIntervalDays is the graduating interval for an Easy rating on a
	// New or Learning card.
	EasyIntervalDays = 4
	// MinEase is the floor for the ease factor. There is deliberately no
	// ceiling: sustained Easy ratings let ease grow without bound.
	MinEase = 1.3

	hardEaseDelta      = -0.15
	easyEaseDelta      = 0.15
	hardIntervalFactor = 1.2
	easyBonus          = 1.3
	lapseFactor        = 0.5
)

// Schedule applies a rating to a card at the given instant and returns the
// updated card plus the review-log entry describing the transition. The input
// card is not mutated. Every (state, rating) combination is defined; the only
// error is an out-of-enum rating, which is a caller bug.
//
// The returned log entry has no ID; the store assigns one on insert.
func Schedule(card Card, rating Rating, now time.Time) (Card, ReviewLogEntry, error) {
	if !rating.IsValid() {
		return Card{}, ReviewLogEntry{}, ErrInvalidRating
	}

	c := card

	switch card.State {
	case New, Learning:
		scheduleLearning(&c, rating, now)
	case Relearning:
		scheduleRelearning(&c, rating, now)
	case Review:
		scheduleReview(&c, rating, now)
	}

	c.LastReview = &now

	entry := ReviewLogEntry{
		CardID:         card.ID,
		PairID:         card.PairID,
		Direction:      card.Direction,
		ReviewedAt:     now,
		Rating:         rating,
		StateBefore:    card.State,
		StateAfter:     c.State,
		IntervalBefore: card.IntervalDays,
		IntervalAfter:  c.IntervalDays,
		EaseBefore:     card.Ease,
		EaseAfter:      c.Ease,
		DueBefore:      card.Due,
		DueAfter:       c.Due,
	}
	return c, entry, nil
}

func scheduleLearning(c *Card, rating Rating, now time.Time) {
	switch rating {
	case Failed:
		c.State = Learning
		c.StepIndex = 0
		c.Due = now.Add(NewSteps[0])
	case Hard:
		// Stay on the current step.
		c.State = Learning
		c.Due = now.Add(stepAt(NewSteps, c.StepIndex))
	case Good:
		c.StepIndex++
		if c.StepIndex >= len(NewSteps) {
			graduate(c, 1, now)
		} else {
			c.State = Learning
			c.Due = now.Add(NewSteps[c.StepIndex])
		}
	case Easy:
		graduate(c, EasyIntervalDays, now)
	}
}

func scheduleRelearning(c *Card, rating Rating, now time.Time) {
	switch rating {
	case Failed:
		c.StepIndex = 0
		c.Due = now.Add(RelearnSteps[0])
	case Hard:
		c.Due = now.Add(stepAt(RelearnSteps, c.StepIndex))
	case Good:
		c.StepIndex++
		if c.StepIndex >= len(RelearnSteps) {
			graduate(c, max(1, c.IntervalDays), now)
		} else {
			c.Due = now.Add(RelearnSteps[c.StepIndex])
		}
	case Easy:
		graduate(c, max(1, c.IntervalDays), now)
	}
}

func scheduleReview(c *Card, rating Rating, now time.Time) {
	c.Reps++
	switch rating {
	case Failed:
		c.Lapses++
		c.State = Relearning
		c.StepIndex = 0
		c.IntervalDays = scaleInterval(c.IntervalDays, lapseFactor)
		c.Due = now.Add(RelearnSteps[0])
	case Hard:
		c.Ease = math.Max(MinEase, c.Ease+hardEaseDelta)
		c.IntervalDays = scaleInterval(c.IntervalDays, hardIntervalFactor)
		c.Due = now.Add(days(c.IntervalDays))
	case Good:
		c.IntervalDays = scaleInterval(c.IntervalDays, c.Ease)
		c.Due = now.Add(days(c.IntervalDays))
	case Easy:
		c.Ease = math.Max(MinEase, c.Ease+easyEaseDelta)
		c.IntervalDays = scaleInterval(c.IntervalDays, c.Ease*easyBonus)
		c.Due = now.Add(days(c.IntervalDays))
	}
}

// graduate moves a card into Review with the given interval.
func graduate(c *Card, intervalDays int, now time.Time) {
	c.State = Review
	c.IntervalDays = intervalDays
	c.StepIndex = 0
	c.Due = now.Add(days(intervalDays))
}

// stepAt indexes into a step ladder, falling back to the first step when the
// stored index is out of range (e.g. after the ladder was shortened).
func stepAt(steps []time.Duration, idx int) time.Duration {
	if idx < 0 || idx >= len(steps) {
		return steps[0]
	}
	return steps[idx]
}

func scaleInterval(ivl int, factor float64) int {
	return max(1, int(math.Round(float64(ivl)*factor)))
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

package scheduler

import (
	"github.com/open-spaced-repetition/go-fsrs/v3"
)

// Conversion from the SM-2 state to FSRS memory state, for vaults being
// migrated to the FSRS scheduling model. The seeded stability and difficulty
// land in the card's reserved Stability/Difficulty fields; the SM-2 engine
// ignores them.

// ToFSRSCard maps an SM-2 card onto an fsrs.Card with approximated memory
// state. Stability is proxied by the distance between the last review and the
// next due date; difficulty is derived from the ease factor.
func ToFSRSCard(c Card) fsrs.Card {
	out := fsrs.NewCard()
	out.Due = c.Due
	out.Reps = uint64(c.Reps)
	out.Lapses = uint64(c.Lapses)
	out.ScheduledDays = uint64(max(0, c.IntervalDays))
	out.State = fsrsState(c.State)

	if c.LastReview == nil {
		// Never reviewed; a new FSRS card with our due date is all we can say.
		return out
	}
	out.LastReview = *c.LastReview

	// The scheduled gap is the best stability proxy we have. A card that was
	// rated after its due date (or whose ladder puts due before last review)
	// would produce a negative gap; clamp to a small stability instead.
	stability := c.Due.Sub(*c.LastReview).Hours() / 24.0
	if stability <= 0 {
		stability = 1.0
	}
	if c.State == New || c.State == Learning {
		stability = min(stability, 1.0)
	}
	out.Stability = stability
	out.Difficulty = easeToDifficulty(c.Ease)
	return out
}

// SeedMemory fills the card's reserved FSRS fields from the approximation in
// ToFSRSCard, leaving every SM-2 field untouched.
func SeedMemory(c Card) Card {
	fc := ToFSRSCard(c)
	if fc.State == fsrs.New {
		return c
	}
	c.Stability = &fc.Stability
	c.Difficulty = &fc.Difficulty
	return c
}

func fsrsState(s State) fsrs.State {
	switch s {
	case Learning:
		return fsrs.Learning
	case Review:
		return fsrs.Review
	case Relearning:
		return fsrs.Relearning
	default:
		return fsrs.New
	}
}

// easeToDifficulty maps the SM-2 ease factor onto the FSRS 1..10 difficulty
// scale. Ease 2.5 (our default) lands mid-scale; the 1.3 floor maps near the
// hard end. Ease is unbounded above, so clamp at the easy end.
func easeToDifficulty(ease float64) float64 {
	return max(min(13.5-3.2*ease, 10), 1)
}

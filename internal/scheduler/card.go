package scheduler

import "time"

// Card is one direction of a content pair, scheduled independently of its
// sibling. It is a plain value; the scheduler never mutates its input and
// the stores persist whole snapshots.
type Card struct {
	ID        int64     `json:"id"`
	DeckID    int64     `json:"deck_id"`
	PairID    int64     `json:"pair_id"`
	Direction Direction `json:"direction"`

	State        State      `json:"state"`
	Due          time.Time  `json:"due"`
	IntervalDays int        `json:"interval_days"`
	Ease         float64    `json:"ease"`
	Reps         int        `json:"reps"`
	Lapses       int        `json:"lapses"`
	StepIndex    int        `json:"step_index"` // only meaningful in Learning/Relearning
	LastReview   *time.Time `json:"last_review"`
	Suspended    bool       `json:"suspended"`

	// Reserved for the FSRS scheduling model; the SM-2 engine never reads
	// or writes these. See fsrs.go.
	Stability  *float64 `json:"stability,omitempty"`
	Difficulty *float64 `json:"difficulty,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// DefaultEase is the starting ease factor for a brand new card.
const DefaultEase = 2.5

// NewCard creates a card in the New state, due immediately.
func NewCard(deckID, pairID int64, dir Direction, now time.Time) Card {
	return Card{
		DeckID:    deckID,
		PairID:    pairID,
		Direction: dir,
		State:     New,
		Due:       now,
		Ease:      DefaultEase,
		CreatedAt: now,
	}
}

// NewCardPair creates both directions of a content pair at once. Cards for a
// pair are always created together so that neither side can get ahead of the
// other's existence.
func NewCardPair(deckID, pairID int64, now time.Time) (Card, Card) {
	return NewCard(deckID, pairID, Forward, now), NewCard(deckID, pairID, Reverse, now)
}

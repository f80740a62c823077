package scheduler

import "time"

// ReviewLogEntry records a single rating, with before/after snapshots of the
// scheduling fields. The log is append-only and doubles as the source of
// truth for daily quota accounting: "how many new/review ratings happened
// since day-start" is answered by querying it, never by counting cards.
type ReviewLogEntry struct {
	ID        int64     `json:"id"`
	CardID    int64     `json:"card_id"`
	PairID    int64     `json:"pair_id"`
	Direction Direction `json:"direction"`

	ReviewedAt time.Time `json:"reviewed_at"`
	Rating     Rating    `json:"rating"`

	StateBefore    State     `json:"state_before"`
	StateAfter     State     `json:"state_after"`
	IntervalBefore int       `json:"interval_before"`
	IntervalAfter  int       `json:"interval_after"`
	EaseBefore     float64   `json:"ease_before"`
	EaseAfter      float64   `json:"ease_after"`
	DueBefore      time.Time `json:"due_before"`
	DueAfter       time.Time `json:"due_after"`
}

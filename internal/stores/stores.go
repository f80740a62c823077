// Package stores defines the persistence contracts the review engine needs
// from its collaborators: a card store, an append-only review-log store, and
// an atomic rating transaction combining the two. The postgres and
// sqlitestore subpackages implement them.
package stores

import (
	"context"
	"errors"
	"time"

	"github.com/fluentdeck/srs_engine/internal/scheduler"
)

var (
	ErrCardNotFound = errors.New("card not found")
	ErrLogNotFound  = errors.New("review log entry not found")
)

// CardOrder selects the sort key for card queries.
type CardOrder int

const (
	OrderByDue CardOrder = iota
	OrderByCreated
)

// CardQuery filters cards. Nil/empty fields are not applied; any combination
// of the rest is valid.
type CardQuery struct {
	DeckID    int64
	States    []scheduler.State
	DueBy     *time.Time
	Suspended *bool
	OrderBy   CardOrder
	Limit     int // 0 means no limit
}

// StatePredicate filters review-log entries by their before-rating state.
type StatePredicate int

const (
	AnyState    StatePredicate = iota
	FromNew                    // stateBefore == New: the rating consumed new-card quota
	FromStarted                // stateBefore != New: the rating consumed review quota
)

// LogQuery filters review-log entries.
type LogQuery struct {
	DeckID        int64
	ReviewedSince time.Time
	StateBefore   StatePredicate
}

// CardStore is the card persistence contract.
type CardStore interface {
	Find(ctx context.Context, id int64) (scheduler.Card, error)
	Search(ctx context.Context, q CardQuery) ([]scheduler.Card, error)
	Create(ctx context.Context, card scheduler.Card) (int64, error)
	Update(ctx context.Context, card scheduler.Card) error
	SetSuspended(ctx context.Context, id int64, suspended bool) error
}

// ReviewLogStore is the append-only review-log contract. Count answers the
// daily-quota question directly so implementations can push it into SQL.
type ReviewLogStore interface {
	Append(ctx context.Context, entry scheduler.ReviewLogEntry) (int64, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context, q LogQuery) (int, error)
}

// RatingTx applies a rating's card update together with its log entry as a
// single transaction. A partial failure must apply neither: the daily quota
// computation depends on card/log consistency.
type RatingTx interface {
	// ApplyRating persists the updated card and appends its log entry,
	// returning the new entry's id.
	ApplyRating(ctx context.Context, card scheduler.Card, entry scheduler.ReviewLogEntry) (int64, error)
	// RevertRating restores a card snapshot and deletes the named log entry,
	// again atomically. Used by single-level undo.
	RevertRating(ctx context.Context, card scheduler.Card, logID int64) error
}

// Store bundles the contracts a session needs. Both concrete stores satisfy it.
type Store interface {
	CardStore
	ReviewLogStore
	RatingTx
}

// Settings is the read-only configuration the engine consumes.
type Settings struct {
	DayStartHour     int // [0,23]
	MaxNewPerDay     int
	MaxReviewsPerDay int
}

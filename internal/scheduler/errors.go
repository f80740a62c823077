package scheduler

import "errors"

// ErrInvalidRating is returned when a rating outside the defined enum is
// passed to Schedule. This is a contract violation by the caller, not a
// recoverable scheduling condition.
var ErrInvalidRating = errors.New("invalid rating")

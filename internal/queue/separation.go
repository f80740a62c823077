package queue

import (
	"slices"
	"sort"
	"time"

	"github.com/fluentdeck/srs_engine/internal/scheduler"
)

// MinSpacing is the minimum positional distance between two cards of the
// same pair. At 4, a user never sees the reverse of a card they just
// answered until at least three other cards have gone by.
const MinSpacing = 4

// searchWindow bounds how far a conflict-resolution swap may move a card.
const searchWindow = 2 * MinSpacing

// urgencyWindow is the due-time difference under which two cards are
// considered interchangeable for spacing purposes.
const urgencyWindow = time.Hour

// SortBySeparation orders cards by due date and then repairs spacing
// violations by swapping offenders with nearby non-conflicting cards,
// preferring swaps between cards of similar urgency. The repair loop is
// bounded at 3x the queue length; a deck with fewer than MinSpacing distinct
// pairs can retain residual violations, which is accepted.
func SortBySeparation(cards []scheduler.Card) []scheduler.Card {
	q := slices.Clone(cards)
	sort.SliceStable(q, func(i, j int) bool { return q[i].Due.Before(q[j].Due) })

	// A cursor past violations we failed to repair keeps the scan making
	// progress instead of rediscovering the same hopeless pair.
	from := 0
	for iter := 0; iter < 3*len(q); iter++ {
		i, j := firstViolation(q, from)
		if i < 0 {
			break
		}
		if swapAway(q, j) {
			from = 0
		} else {
			from = i + 1
		}
	}
	return q
}

// firstViolation returns the indexes of the first pair of cards sharing a
// PairID within MinSpacing positions, scanning from the given index.
func firstViolation(q []scheduler.Card, from int) (int, int) {
	for i := max(0, from); i < len(q); i++ {
		for off := 1; off < MinSpacing; off++ {
			j := i + off
			if j < len(q) && q[i].PairID == q[j].PairID {
				return i, j
			}
		}
	}
	return -1, -1
}

// swapAway moves the card at index j someplace it no longer conflicts,
// swapping it with a candidate inside the search window. Candidates of
// similar urgency are tried first (forward, then backward); failing that,
// the nearest candidate that does not itself end up in conflict.
func swapAway(q []scheduler.Card, j int) bool {
	// Pass 1: urgency-bounded, forward then backward.
	for k := j + 1; k <= j+searchWindow && k < len(q); k++ {
		if similarUrgency(q[j], q[k]) && swapOK(q, j, k) {
			q[j], q[k] = q[k], q[j]
			return true
		}
	}
	for k := j - 1; k >= j-searchWindow && k >= 0; k-- {
		if similarUrgency(q[j], q[k]) && swapOK(q, j, k) {
			q[j], q[k] = q[k], q[j]
			return true
		}
	}
	// Pass 2: nearest non-conflicting candidate, urgency ignored.
	for d := 1; d <= searchWindow; d++ {
		if k := j + d; k < len(q) && swapOK(q, j, k) {
			q[j], q[k] = q[k], q[j]
			return true
		}
		if k := j - d; k >= 0 && swapOK(q, j, k) {
			q[j], q[k] = q[k], q[j]
			return true
		}
	}
	return false
}

func similarUrgency(a, b scheduler.Card) bool {
	d := a.Due.Sub(b.Due)
	if d < 0 {
		d = -d
	}
	return d < urgencyWindow
}

// swapOK reports whether swapping positions a and b leaves both cards free
// of spacing violations at their new homes.
func swapOK(q []scheduler.Card, a, b int) bool {
	q[a], q[b] = q[b], q[a]
	ok := !conflictAt(q, a) && !conflictAt(q, b)
	q[a], q[b] = q[b], q[a]
	return ok
}

// conflictAt reports whether the card at pos shares a pair with any card
// within MinSpacing-1 positions on either side.
func conflictAt(q []scheduler.Card, pos int) bool {
	for off := 1; off < MinSpacing; off++ {
		if k := pos - off; k >= 0 && q[k].PairID == q[pos].PairID {
			return true
		}
		if k := pos + off; k < len(q) && q[k].PairID == q[pos].PairID {
			return true
		}
	}
	return false
}

// InsertMaintainingSeparation inserts a rescheduled card back into a live
// queue at its due-order position, nudged to the nearest index that does not
// break the spacing invariant. Returns the new queue and the index the card
// landed at. In the pathological case where no index is valid, the card is
// appended at the end.
func InsertMaintainingSeparation(q []scheduler.Card, card scheduler.Card) ([]scheduler.Card, int) {
	pos := len(q)
	for i := range q {
		if !card.Due.After(q[i].Due) {
			pos = i
			break
		}
	}

	if insertOK(q, card, pos) {
		return slices.Insert(slices.Clone(q), pos, card), pos
	}
	for p := pos + 1; p <= len(q); p++ {
		if insertOK(q, card, p) {
			return slices.Insert(slices.Clone(q), p, card), p
		}
	}
	for p := pos - 1; p >= 0; p-- {
		if insertOK(q, card, p) {
			return slices.Insert(slices.Clone(q), p, card), p
		}
	}
	return append(slices.Clone(q), card), len(q)
}

// insertOK reports whether inserting card at pos keeps it MinSpacing away
// from every same-pair card.
func insertOK(q []scheduler.Card, card scheduler.Card, pos int) bool {
	for off := 1; off < MinSpacing; off++ {
		// Cards at pos..pos+off-1 shift right on insert, so the right-hand
		// neighbor at distance off is currently at pos+off-1.
		if k := pos - off; k >= 0 && q[k].PairID == card.PairID {
			return false
		}
		if k := pos + off - 1; k >= 0 && k < len(q) && q[k].PairID == card.PairID {
			return false
		}
	}
	return true
}

// ApplyReschedule removes the just-rated card from the queue and, when its
// refreshed snapshot is still due within today's session horizon, reinserts
// it with spacing maintained. The returned start index points at the next
// card to consider; it advances past the reinsertion when the card landed at
// or before the current position, so the same card is not shown twice in a
// row.
func ApplyReschedule(q []scheduler.Card, cardID int64, refreshed *scheduler.Card,
	tomorrowStart time.Time, currentIndex int) ([]scheduler.Card, int) {

	out := slices.Clone(q)
	for i := range out {
		if out[i].ID == cardID {
			out = slices.Delete(out, i, i+1)
			break
		}
	}

	next := currentIndex
	if refreshed != nil && refreshed.Due.Before(tomorrowStart) {
		var pos int
		out, pos = InsertMaintainingSeparation(out, *refreshed)
		if pos <= next {
			next++
		}
	}

	if next > len(out) {
		next = len(out)
	}
	if next < 0 {
		next = 0
	}
	return out, next
}

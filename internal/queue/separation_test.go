package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluentdeck/srs_engine/internal/scheduler"
)

var base = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func card(id, pairID int64, due time.Time) scheduler.Card {
	return scheduler.Card{ID: id, DeckID: 1, PairID: pairID, Due: due}
}

// violations counts card pairs sharing a PairID within MinSpacing positions.
func violations(q []scheduler.Card) int {
	n := 0
	for i := range q {
		for off := 1; off < MinSpacing; off++ {
			if j := i + off; j < len(q) && q[i].PairID == q[j].PairID {
				n++
			}
		}
	}
	return n
}

func TestSortBySeparationKeepsPairsApart(t *testing.T) {
	// Both directions of each pair due at nearly the same instant: the due
	// sort alone would put every sibling adjacent.
	var q []scheduler.Card
	for p := int64(1); p <= 8; p++ {
		due := base.Add(time.Duration(p) * time.Minute)
		q = append(q, card(p*2-1, p, due), card(p*2, p, due.Add(time.Second)))
	}

	sorted := SortBySeparation(q)
	require.Len(t, sorted, len(q))
	assert.Zero(t, violations(sorted))
}

func TestSortBySeparationOrdersByDue(t *testing.T) {
	q := []scheduler.Card{
		card(1, 1, base.Add(3*time.Hour)),
		card(2, 2, base),
		card(3, 3, base.Add(time.Hour)),
		card(4, 4, base.Add(2*time.Hour)),
	}
	sorted := SortBySeparation(q)
	for i := 1; i < len(sorted); i++ {
		assert.False(t, sorted[i].Due.Before(sorted[i-1].Due))
	}
}

// A deck with fewer than MinSpacing distinct pairs cannot satisfy the
// invariant; the sort must still terminate and return every card.
func TestSortBySeparationResidualViolations(t *testing.T) {
	q := []scheduler.Card{
		card(1, 1, base),
		card(2, 1, base.Add(time.Second)),
		card(3, 2, base.Add(2*time.Second)),
		card(4, 2, base.Add(3*time.Second)),
	}
	sorted := SortBySeparation(q)
	require.Len(t, sorted, 4)
	// Best effort: some violations remain, but the input is intact.
	ids := map[int64]bool{}
	for _, c := range sorted {
		ids[c.ID] = true
	}
	assert.Len(t, ids, 4)
}

func TestSortBySeparationEmptyAndSingle(t *testing.T) {
	assert.Empty(t, SortBySeparation(nil))
	single := []scheduler.Card{card(1, 1, base)}
	assert.Equal(t, single, SortBySeparation(single))
}

func TestInsertMaintainingSeparationDueOrder(t *testing.T) {
	q := []scheduler.Card{
		card(1, 1, base),
		card(2, 2, base.Add(time.Hour)),
		card(3, 3, base.Add(2*time.Hour)),
	}
	out, pos := InsertMaintainingSeparation(q, card(9, 9, base.Add(90*time.Minute)))
	assert.Equal(t, 2, pos)
	require.Len(t, out, 4)
	assert.Equal(t, int64(9), out[2].ID)
}

func TestInsertMaintainingSeparationNudgesConflicts(t *testing.T) {
	q := []scheduler.Card{
		card(1, 1, base),
		card(2, 2, base.Add(time.Minute)),
		card(3, 3, base.Add(2*time.Minute)),
		card(4, 4, base.Add(3*time.Minute)),
		card(5, 5, base.Add(4*time.Minute)),
		card(6, 6, base.Add(5*time.Minute)),
	}
	// Pair 1's sibling wants to land at the front, right next to card 1.
	out, pos := InsertMaintainingSeparation(q, card(7, 1, base.Add(time.Second)))
	require.Len(t, out, 7)
	assert.GreaterOrEqual(t, pos, MinSpacing)
	assert.Zero(t, violations(out))
}

func TestInsertMaintainingSeparationPathologicalAppends(t *testing.T) {
	// Every position conflicts; the card still has to land somewhere.
	q := []scheduler.Card{
		card(1, 1, base),
		card(2, 1, base.Add(time.Minute)),
	}
	out, pos := InsertMaintainingSeparation(q, card(9, 1, base.Add(time.Second)))
	require.Len(t, out, 3)
	assert.Equal(t, 2, pos)
	assert.Equal(t, int64(9), out[2].ID)
}

func TestApplyRescheduleReinsertsWithinHorizon(t *testing.T) {
	tomorrow := base.Add(18 * time.Hour)
	q := []scheduler.Card{
		card(1, 1, base),
		card(2, 2, base.Add(time.Minute)),
		card(3, 3, base.Add(2*time.Minute)),
		card(4, 4, base.Add(3*time.Minute)),
		card(5, 5, base.Add(4*time.Minute)),
	}

	// Card 1 was rated at index 0 and comes back in ten minutes.
	refreshed := card(1, 1, base.Add(10*time.Minute))
	out, next := ApplyReschedule(q, 1, &refreshed, tomorrow, 0)

	require.Len(t, out, 5)
	found := false
	for _, c := range out {
		if c.ID == 1 {
			found = true
			assert.Equal(t, refreshed.Due, c.Due)
		}
	}
	assert.True(t, found)
	// Reinserted after the current position, so the start index stays put.
	assert.Equal(t, 0, next)
}

func TestApplyRescheduleDropsCompletedCard(t *testing.T) {
	tomorrow := base.Add(18 * time.Hour)
	q := []scheduler.Card{
		card(1, 1, base),
		card(2, 2, base.Add(time.Minute)),
	}

	// Graduated past today's horizon: it leaves the session.
	refreshed := card(1, 1, base.Add(24*time.Hour))
	out, next := ApplyReschedule(q, 1, &refreshed, tomorrow, 0)

	require.Len(t, out, 1)
	assert.Equal(t, int64(2), out[0].ID)
	assert.Equal(t, 0, next)
}

func TestApplyRescheduleAdvancesPastReinsertion(t *testing.T) {
	tomorrow := base.Add(18 * time.Hour)
	q := []scheduler.Card{
		card(1, 1, base),
		card(2, 2, base.Add(time.Minute)),
		card(3, 3, base.Add(2*time.Minute)),
		card(4, 4, base.Add(3*time.Minute)),
		card(5, 5, base.Add(4*time.Minute)),
		card(6, 6, base.Add(5*time.Minute)),
	}

	// Rated at index 4; the refreshed card is due again immediately and
	// lands near the front, at or before the current position.
	refreshed := card(5, 5, base.Add(time.Second))
	out, next := ApplyReschedule(q, 5, &refreshed, tomorrow, 4)

	require.Len(t, out, 6)
	assert.Equal(t, 5, next)
}

func TestApplyRescheduleClampsIndex(t *testing.T) {
	q := []scheduler.Card{card(1, 1, base)}
	out, next := ApplyReschedule(q, 1, nil, base.Add(time.Hour), 3)
	assert.Empty(t, out)
	assert.Equal(t, 0, next)
}

func TestNextDueIndex(t *testing.T) {
	q := []scheduler.Card{
		card(1, 1, base.Add(time.Hour)),
		card(2, 2, base.Add(-time.Minute)),
		card(3, 3, base.Add(-time.Hour)),
	}
	assert.Equal(t, 1, NextDueIndex(q, base, 0))
	assert.Equal(t, 2, NextDueIndex(q, base, 2))
	assert.Equal(t, -1, NextDueIndex(q, base, 3))
	assert.Equal(t, -1, NextDueIndex(q[:1], base, 0))
}

func TestCountStillDueToday(t *testing.T) {
	tomorrow := base.Add(18 * time.Hour)
	q := []scheduler.Card{
		card(1, 1, base),
		card(2, 2, base.Add(17*time.Hour)),
		card(3, 3, base.Add(20*time.Hour)),
	}
	assert.Equal(t, 2, CountStillDueToday(q, tomorrow))
	assert.Zero(t, CountStillDueToday(nil, tomorrow))
}

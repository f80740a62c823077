// Package storetest provides an in-memory Store and Hydrator for tests.
package storetest

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/fluentdeck/srs_engine/internal/scheduler"
	"github.com/fluentdeck/srs_engine/internal/session"
	"github.com/fluentdeck/srs_engine/internal/stores"
)

// Memory implements stores.Store and session.Hydrator entirely in memory.
// Error injection fields let tests exercise failure paths.
type Memory struct {
	mu     sync.Mutex
	cards  map[int64]scheduler.Card
	logs   map[int64]scheduler.ReviewLogEntry
	pairs  map[int64][2]string
	nextID int64
	nextLg int64

	// ApplyErr, when set, makes ApplyRating fail without applying anything.
	ApplyErr error
	// HydrateErr, when set, makes Hydrate fail for the card IDs listed.
	HydrateErr map[int64]error
}

var (
	_ stores.Store     = (*Memory)(nil)
	_ session.Hydrator = (*Memory)(nil)
)

func New() *Memory {
	return &Memory{
		cards: map[int64]scheduler.Card{},
		logs:  map[int64]scheduler.ReviewLogEntry{},
		pairs: map[int64][2]string{},
	}
}

// SetPair registers content for a pair id so Hydrate can resolve it.
func (m *Memory) SetPair(pairID int64, front, back string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pairs[pairID] = [2]string{front, back}
}

// DropPair removes content, simulating a pair deleted out from under a
// session.
func (m *Memory) DropPair(pairID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pairs, pairID)
}

// Logs returns a snapshot of all log entries, for assertions.
func (m *Memory) Logs() []scheduler.ReviewLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]scheduler.ReviewLogEntry, 0, len(m.logs))
	for _, e := range m.logs {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) Find(ctx context.Context, id int64) (scheduler.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return scheduler.Card{}, stores.ErrCardNotFound
	}
	return c, nil
}

func (m *Memory) Search(ctx context.Context, q stores.CardQuery) ([]scheduler.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []scheduler.Card
	for _, c := range m.cards {
		if c.DeckID != q.DeckID {
			continue
		}
		if len(q.States) > 0 && !slices.Contains(q.States, c.State) {
			continue
		}
		if q.DueBy != nil && c.Due.After(*q.DueBy) {
			continue
		}
		if q.Suspended != nil && c.Suspended != *q.Suspended {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch q.OrderBy {
		case stores.OrderByCreated:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		default:
			if !a.Due.Equal(b.Due) {
				return a.Due.Before(b.Due)
			}
		}
		return a.ID < b.ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *Memory) Create(ctx context.Context, card scheduler.Card) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	card.ID = m.nextID
	m.cards[card.ID] = card
	return card.ID, nil
}

func (m *Memory) Update(ctx context.Context, card scheduler.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[card.ID]; !ok {
		return stores.ErrCardNotFound
	}
	m.cards[card.ID] = card
	return nil
}

func (m *Memory) SetSuspended(ctx context.Context, id int64, suspended bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return stores.ErrCardNotFound
	}
	c.Suspended = suspended
	m.cards[id] = c
	return nil
}

func (m *Memory) Append(ctx context.Context, entry scheduler.ReviewLogEntry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(entry), nil
}

func (m *Memory) appendLocked(entry scheduler.ReviewLogEntry) int64 {
	m.nextLg++
	entry.ID = m.nextLg
	m.logs[entry.ID] = entry
	return entry.ID
}

func (m *Memory) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.logs[id]; !ok {
		return stores.ErrLogNotFound
	}
	delete(m.logs, id)
	return nil
}

func (m *Memory) Count(ctx context.Context, q stores.LogQuery) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.logs {
		card, ok := m.cards[e.CardID]
		if !ok || card.DeckID != q.DeckID {
			continue
		}
		if e.ReviewedAt.Before(q.ReviewedSince) {
			continue
		}
		switch q.StateBefore {
		case stores.FromNew:
			if e.StateBefore != scheduler.New {
				continue
			}
		case stores.FromStarted:
			if e.StateBefore == scheduler.New {
				continue
			}
		}
		n++
	}
	return n, nil
}

func (m *Memory) ApplyRating(ctx context.Context, card scheduler.Card, entry scheduler.ReviewLogEntry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ApplyErr != nil {
		return 0, m.ApplyErr
	}
	if _, ok := m.cards[card.ID]; !ok {
		return 0, stores.ErrCardNotFound
	}
	m.cards[card.ID] = card
	return m.appendLocked(entry), nil
}

func (m *Memory) RevertRating(ctx context.Context, card scheduler.Card, logID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[card.ID]; !ok {
		return stores.ErrCardNotFound
	}
	if _, ok := m.logs[logID]; !ok {
		return stores.ErrLogNotFound
	}
	m.cards[card.ID] = card
	delete(m.logs, logID)
	return nil
}

func (m *Memory) Hydrate(ctx context.Context, card scheduler.Card) (session.CardView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.HydrateErr[card.ID]; ok {
		return session.CardView{}, err
	}
	content, ok := m.pairs[card.PairID]
	if !ok {
		return session.CardView{}, fmt.Errorf("pair %d has no content", card.PairID)
	}
	view := session.CardView{Card: card, Prompt: content[0], Answer: content[1]}
	if card.Direction == scheduler.Reverse {
		view.Prompt, view.Answer = view.Answer, view.Prompt
	}
	return view, nil
}

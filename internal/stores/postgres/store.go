// Package postgres implements the store contracts on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fluentdeck/srs_engine/internal/scheduler"
	"github.com/fluentdeck/srs_engine/internal/stores"
)

type Store struct {
	pool *pgxpool.Pool
}

var _ stores.Store = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// MigrateToLatest brings the schema up to date. sourceURL is a go-migrate
// source like "file://db/migrations".
func MigrateToLatest(sourceURL, dbURI string) error {
	m, err := migrate.New(sourceURL, dbURI)
	if err != nil {
		return fmt.Errorf("opening migrations: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

const cardColumns = `id, deck_id, pair_id, direction, state, due, interval_days,
	ease, reps, lapses, step_index, last_review, suspended, stability, difficulty, created_at`

func scanCard(row pgx.Row) (scheduler.Card, error) {
	var (
		c         scheduler.Card
		direction int16
		state     int16
	)
	err := row.Scan(&c.ID, &c.DeckID, &c.PairID, &direction, &state, &c.Due,
		&c.IntervalDays, &c.Ease, &c.Reps, &c.Lapses, &c.StepIndex, &c.LastReview,
		&c.Suspended, &c.Stability, &c.Difficulty, &c.CreatedAt)
	if err != nil {
		return scheduler.Card{}, err
	}
	c.Direction = scheduler.Direction(direction)
	c.State = scheduler.State(state)
	return c, nil
}

func (s *Store) Find(ctx context.Context, id int64) (scheduler.Card, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = $1`, id)
	c, err := scanCard(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return scheduler.Card{}, stores.ErrCardNotFound
	}
	if err != nil {
		return scheduler.Card{}, fmt.Errorf("finding card %d: %w", id, err)
	}
	return c, nil
}

func (s *Store) Search(ctx context.Context, q stores.CardQuery) ([]scheduler.Card, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + cardColumns + ` FROM cards WHERE deck_id = $1`)
	args := []any{q.DeckID}

	if len(q.States) > 0 {
		states := make([]int16, len(q.States))
		for i, st := range q.States {
			states[i] = int16(st)
		}
		args = append(args, states)
		fmt.Fprintf(&sb, " AND state = ANY($%d)", len(args))
	}
	if q.DueBy != nil {
		args = append(args, *q.DueBy)
		fmt.Fprintf(&sb, " AND due <= $%d", len(args))
	}
	if q.Suspended != nil {
		args = append(args, *q.Suspended)
		fmt.Fprintf(&sb, " AND suspended = $%d", len(args))
	}
	switch q.OrderBy {
	case stores.OrderByCreated:
		sb.WriteString(" ORDER BY created_at ASC, id ASC")
	default:
		sb.WriteString(" ORDER BY due ASC, id ASC")
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("searching cards: %w", err)
	}
	defer rows.Close()

	var out []scheduler.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning card: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) Create(ctx context.Context, card scheduler.Card) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO cards (deck_id, pair_id, direction, state, due, interval_days,
			ease, reps, lapses, step_index, last_review, suspended, stability,
			difficulty, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING id`,
		card.DeckID, card.PairID, int16(card.Direction), int16(card.State),
		card.Due, card.IntervalDays, card.Ease, card.Reps, card.Lapses,
		card.StepIndex, card.LastReview, card.Suspended, card.Stability,
		card.Difficulty, card.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating card: %w", err)
	}
	return id, nil
}

func updateCard(ctx context.Context, db querier, card scheduler.Card) error {
	tag, err := db.Exec(ctx, `
		UPDATE cards SET state = $2, due = $3, interval_days = $4, ease = $5,
			reps = $6, lapses = $7, step_index = $8, last_review = $9,
			suspended = $10, stability = $11, difficulty = $12
		WHERE id = $1`,
		card.ID, int16(card.State), card.Due, card.IntervalDays, card.Ease,
		card.Reps, card.Lapses, card.StepIndex, card.LastReview, card.Suspended,
		card.Stability, card.Difficulty)
	if err != nil {
		return fmt.Errorf("updating card %d: %w", card.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return stores.ErrCardNotFound
	}
	return nil
}

func (s *Store) Update(ctx context.Context, card scheduler.Card) error {
	return updateCard(ctx, s.pool, card)
}

func (s *Store) SetSuspended(ctx context.Context, id int64, suspended bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE cards SET suspended = $2 WHERE id = $1`, id, suspended)
	if err != nil {
		return fmt.Errorf("suspending card %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return stores.ErrCardNotFound
	}
	return nil
}

const insertLogSQL = `
	INSERT INTO review_logs (card_id, pair_id, direction, reviewed_at, rating,
		state_before, state_after, interval_before, interval_after,
		ease_before, ease_after, due_before, due_after)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	RETURNING id`

func insertLog(ctx context.Context, db querier, e scheduler.ReviewLogEntry) (int64, error) {
	var id int64
	err := db.QueryRow(ctx, insertLogSQL,
		e.CardID, e.PairID, int16(e.Direction), e.ReviewedAt, int16(e.Rating),
		int16(e.StateBefore), int16(e.StateAfter), e.IntervalBefore,
		e.IntervalAfter, e.EaseBefore, e.EaseAfter, e.DueBefore,
		e.DueAfter).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("appending review log: %w", err)
	}
	return id, nil
}

func (s *Store) Append(ctx context.Context, entry scheduler.ReviewLogEntry) (int64, error) {
	return insertLog(ctx, s.pool, entry)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM review_logs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting review log %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return stores.ErrLogNotFound
	}
	return nil
}

func (s *Store) Count(ctx context.Context, q stores.LogQuery) (int, error) {
	sql := `
		SELECT COUNT(*) FROM review_logs rl
		JOIN cards c ON c.id = rl.card_id
		WHERE c.deck_id = $1 AND rl.reviewed_at >= $2`
	switch q.StateBefore {
	case stores.FromNew:
		sql += fmt.Sprintf(" AND rl.state_before = %d", int(scheduler.New))
	case stores.FromStarted:
		sql += fmt.Sprintf(" AND rl.state_before != %d", int(scheduler.New))
	}
	var n int
	if err := s.pool.QueryRow(ctx, sql, q.DeckID, q.ReviewedSince).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting review logs: %w", err)
	}
	return n, nil
}

// ApplyRating writes the updated card and its log entry in one transaction.
// A failure of either statement applies neither.
func (s *Store) ApplyRating(ctx context.Context, card scheduler.Card, entry scheduler.ReviewLogEntry) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if err := updateCard(ctx, tx, card); err != nil {
		return 0, err
	}
	logID, err := insertLog(ctx, tx, entry)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return logID, nil
}

// RevertRating restores a card snapshot and removes its log entry in one
// transaction.
func (s *Store) RevertRating(ctx context.Context, card scheduler.Card, logID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := updateCard(ctx, tx, card); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM review_logs WHERE id = $1`, logID)
	if err != nil {
		return fmt.Errorf("deleting review log %d: %w", logID, err)
	}
	if tag.RowsAffected() == 0 {
		return stores.ErrLogNotFound
	}
	return tx.Commit(ctx)
}

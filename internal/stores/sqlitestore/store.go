// Package sqlitestore implements the store contracts on a local SQLite file,
// the on-device vault format. Unlike the postgres store it also owns the
// content pairs, so it can hydrate cards for a session.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fluentdeck/srs_engine/internal/scheduler"
	"github.com/fluentdeck/srs_engine/internal/session"
	"github.com/fluentdeck/srs_engine/internal/stores"
)

const schema = `
CREATE TABLE IF NOT EXISTS pairs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    deck_id INTEGER NOT NULL,
    front TEXT NOT NULL,
    back TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cards (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    deck_id INTEGER NOT NULL,
    pair_id INTEGER NOT NULL,
    direction INTEGER NOT NULL,
    state INTEGER NOT NULL,
    due INTEGER NOT NULL,
    interval_days INTEGER NOT NULL DEFAULT 0,
    ease REAL NOT NULL DEFAULT 2.5,
    reps INTEGER NOT NULL DEFAULT 0,
    lapses INTEGER NOT NULL DEFAULT 0,
    step_index INTEGER NOT NULL DEFAULT 0,
    last_review INTEGER,
    suspended INTEGER NOT NULL DEFAULT 0,
    stability REAL,
    difficulty REAL,
    created_at INTEGER NOT NULL,
    UNIQUE (pair_id, direction)
);

CREATE TABLE IF NOT EXISTS review_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_id INTEGER NOT NULL,
    pair_id INTEGER NOT NULL,
    direction INTEGER NOT NULL,
    reviewed_at INTEGER NOT NULL,
    rating INTEGER NOT NULL,
    state_before INTEGER NOT NULL,
    state_after INTEGER NOT NULL,
    interval_before INTEGER NOT NULL,
    interval_after INTEGER NOT NULL,
    ease_before REAL NOT NULL,
    ease_after REAL NOT NULL,
    due_before INTEGER NOT NULL,
    due_after INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS cards_deck_due_idx ON cards (deck_id, due);
CREATE INDEX IF NOT EXISTS review_logs_reviewed_at_idx ON review_logs (reviewed_at);
`

type Store struct {
	db *sql.DB
}

var (
	_ stores.Store     = (*Store)(nil)
	_ session.Hydrator = (*Store)(nil)
)

// Open opens (creating if needed) a vault file and bootstraps the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_fk=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening vault %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrapping vault schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Instants are stored as millisecond epoch integers.
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

const cardColumns = `id, deck_id, pair_id, direction, state, due, interval_days,
	ease, reps, lapses, step_index, last_review, suspended, stability, difficulty, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (scheduler.Card, error) {
	var (
		c          scheduler.Card
		due        int64
		lastReview sql.NullInt64
		created    int64
		stability  sql.NullFloat64
		difficulty sql.NullFloat64
	)
	err := row.Scan(&c.ID, &c.DeckID, &c.PairID, &c.Direction, &c.State, &due,
		&c.IntervalDays, &c.Ease, &c.Reps, &c.Lapses, &c.StepIndex, &lastReview,
		&c.Suspended, &stability, &difficulty, &created)
	if err != nil {
		return scheduler.Card{}, err
	}
	c.Due = fromMillis(due)
	c.CreatedAt = fromMillis(created)
	if lastReview.Valid {
		t := fromMillis(lastReview.Int64)
		c.LastReview = &t
	}
	if stability.Valid {
		c.Stability = &stability.Float64
	}
	if difficulty.Valid {
		c.Difficulty = &difficulty.Float64
	}
	return c, nil
}

func lastReviewArg(c scheduler.Card) any {
	if c.LastReview == nil {
		return nil
	}
	return toMillis(*c.LastReview)
}

func (s *Store) Find(ctx context.Context, id int64) (scheduler.Card, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return scheduler.Card{}, stores.ErrCardNotFound
	}
	if err != nil {
		return scheduler.Card{}, fmt.Errorf("finding card %d: %w", id, err)
	}
	return c, nil
}

func (s *Store) Search(ctx context.Context, q stores.CardQuery) ([]scheduler.Card, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + cardColumns + ` FROM cards WHERE deck_id = ?`)
	args := []any{q.DeckID}

	if len(q.States) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(q.States)), ",")
		fmt.Fprintf(&sb, " AND state IN (%s)", placeholders)
		for _, st := range q.States {
			args = append(args, int(st))
		}
	}
	if q.DueBy != nil {
		sb.WriteString(" AND due <= ?")
		args = append(args, toMillis(*q.DueBy))
	}
	if q.Suspended != nil {
		sb.WriteString(" AND suspended = ?")
		args = append(args, *q.Suspended)
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

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
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
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO cards (deck_id, pair_id, direction, state, due, interval_days,
			ease, reps, lapses, step_index, last_review, suspended, stability,
			difficulty, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		card.DeckID, card.PairID, int(card.Direction), int(card.State),
		toMillis(card.Due), card.IntervalDays, card.Ease, card.Reps, card.Lapses,
		card.StepIndex, lastReviewArg(card), card.Suspended, card.Stability,
		card.Difficulty, toMillis(card.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("creating card: %w", err)
	}
	return res.LastInsertId()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func updateCard(ctx context.Context, db execer, card scheduler.Card) error {
	res, err := db.ExecContext(ctx, `
		UPDATE cards SET state = ?, due = ?, interval_days = ?, ease = ?,
			reps = ?, lapses = ?, step_index = ?, last_review = ?,
			suspended = ?, stability = ?, difficulty = ?
		WHERE id = ?`,
		int(card.State), toMillis(card.Due), card.IntervalDays, card.Ease,
		card.Reps, card.Lapses, card.StepIndex, lastReviewArg(card),
		card.Suspended, card.Stability, card.Difficulty, card.ID)
	if err != nil {
		return fmt.Errorf("updating card %d: %w", card.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return stores.ErrCardNotFound
	}
	return nil
}

func (s *Store) Update(ctx context.Context, card scheduler.Card) error {
	return updateCard(ctx, s.db, card)
}

func (s *Store) SetSuspended(ctx context.Context, id int64, suspended bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE cards SET suspended = ? WHERE id = ?`, suspended, id)
	if err != nil {
		return fmt.Errorf("suspending card %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return stores.ErrCardNotFound
	}
	return nil
}

const insertLogSQL = `
	INSERT INTO review_logs (card_id, pair_id, direction, reviewed_at, rating,
		state_before, state_after, interval_before, interval_after,
		ease_before, ease_after, due_before, due_after)
	VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`

func insertLog(ctx context.Context, db execer, e scheduler.ReviewLogEntry) (int64, error) {
	res, err := db.ExecContext(ctx, insertLogSQL,
		e.CardID, e.PairID, int(e.Direction), toMillis(e.ReviewedAt),
		int(e.Rating), int(e.StateBefore), int(e.StateAfter),
		e.IntervalBefore, e.IntervalAfter, e.EaseBefore, e.EaseAfter,
		toMillis(e.DueBefore), toMillis(e.DueAfter))
	if err != nil {
		return 0, fmt.Errorf("appending review log: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) Append(ctx context.Context, entry scheduler.ReviewLogEntry) (int64, error) {
	return insertLog(ctx, s.db, entry)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM review_logs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting review log %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return stores.ErrLogNotFound
	}
	return nil
}

func (s *Store) Count(ctx context.Context, q stores.LogQuery) (int, error) {
	query := `
		SELECT COUNT(*) FROM review_logs rl
		JOIN cards c ON c.id = rl.card_id
		WHERE c.deck_id = ? AND rl.reviewed_at >= ?`
	switch q.StateBefore {
	case stores.FromNew:
		query += fmt.Sprintf(" AND rl.state_before = %d", int(scheduler.New))
	case stores.FromStarted:
		query += fmt.Sprintf(" AND rl.state_before != %d", int(scheduler.New))
	}
	var n int
	err := s.db.QueryRowContext(ctx, query, q.DeckID, toMillis(q.ReviewedSince)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting review logs: %w", err)
	}
	return n, nil
}

// ApplyRating writes the updated card and its log entry in one transaction.
func (s *Store) ApplyRating(ctx context.Context, card scheduler.Card, entry scheduler.ReviewLogEntry) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if err := updateCard(ctx, tx, card); err != nil {
		return 0, err
	}
	logID, err := insertLog(ctx, tx, entry)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return logID, nil
}

// RevertRating restores a card snapshot and removes its log entry in one
// transaction.
func (s *Store) RevertRating(ctx context.Context, card scheduler.Card, logID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := updateCard(ctx, tx, card); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM review_logs WHERE id = ?`, logID)
	if err != nil {
		return fmt.Errorf("deleting review log %d: %w", logID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return stores.ErrLogNotFound
	}
	return tx.Commit()
}

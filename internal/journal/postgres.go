package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect journal db: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the journal table if needed.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS journal_entries (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	document_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	bytes BIGINT NOT NULL DEFAULT 0,
	location TEXT,
	detail TEXT,
	at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_journal_entries_user_at ON journal_entries(user_id, at DESC);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PostgresJournal stores entries in Postgres.
type PostgresJournal struct {
	pool *pgxpool.Pool
}

// NewPostgresJournal wraps an open pool.
func NewPostgresJournal(pool *pgxpool.Pool) *PostgresJournal {
	return &PostgresJournal{pool: pool}
}

// Record inserts e.
func (p *PostgresJournal) Record(ctx context.Context, e Entry) (Entry, error) {
	e = stamp(e)
	_, err := p.pool.Exec(ctx, `
		INSERT INTO journal_entries (id, user_id, action, document_id, name, bytes, location, detail, at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, e.ID, e.UserID, string(e.Action), e.DocumentID, e.Name, e.Bytes, nullable(e.Location), nullable(e.Detail), e.At)
	if err != nil {
		return Entry{}, fmt.Errorf("insert journal entry: %w", err)
	}
	return e, nil
}

// Get returns one entry by id.
func (p *PostgresJournal) Get(ctx context.Context, id string) (Entry, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, user_id, action, document_id, name, bytes, location, detail, at
		FROM journal_entries WHERE id=$1
	`, id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("select journal entry: %w", err)
	}
	return e, nil
}

// List returns the newest matching entries first.
func (p *PostgresJournal) List(ctx context.Context, f Filter) ([]Entry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, user_id, action, document_id, name, bytes, location, detail, at
		FROM journal_entries
		WHERE ($1 = '' OR user_id = $1) AND ($2 = '' OR action = $2)
		ORDER BY at DESC, id DESC
		LIMIT $3
	`, f.UserID, string(f.Action), f.limit())
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	return out, nil
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		e                Entry
		action           string
		location, detail *string
	)
	if err := row.Scan(&e.ID, &e.UserID, &action, &e.DocumentID, &e.Name, &e.Bytes, &location, &detail, &e.At); err != nil {
		return Entry{}, err
	}
	e.Action = Action(action)
	if location != nil {
		e.Location = *location
	}
	if detail != nil {
		e.Detail = *detail
	}
	e.At = e.At.UTC()
	return e, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Open returns the Postgres journal when dsn is set, otherwise an in-memory
// one. The returned func releases the pool.
func Open(ctx context.Context, dsn string) (Journal, func(), error) {
	if dsn == "" {
		return NewMemoryJournal(), func() {}, nil
	}
	pool, err := Connect(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return NewPostgresJournal(pool), pool.Close, nil
}

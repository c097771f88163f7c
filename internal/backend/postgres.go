package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema creates the single table every kind is stored in.
const Schema = `
CREATE TABLE IF NOT EXISTS records (
	kind       text        NOT NULL,
	id         uuid        NOT NULL,
	data       jsonb       NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (kind, id)
);
CREATE INDEX IF NOT EXISTS records_kind_created_idx ON records (kind, created_at DESC);
`

// pgQuerier is the subset of *pgxpool.Pool the repository uses.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores records as JSONB rows.
type PostgresRepository struct {
	db pgQuerier
}

// NewPostgresRepository wraps a pool (or any pgx connection).
func NewPostgresRepository(db pgQuerier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate creates the records table if it does not exist.
func (p *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *PostgresRepository) List(ctx context.Context, kind string) ([]Record, error) {
	rows, err := p.db.Query(ctx,
		`SELECT data FROM records WHERE kind = $1 ORDER BY created_at DESC, id`, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("list %s: scan: %w", kind, err)
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", kind, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return out, nil
}

func (p *PostgresRepository) Get(ctx context.Context, kind, id string) (Record, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}

	var data []byte
	err = p.db.QueryRow(ctx,
		`SELECT data FROM records WHERE kind = $1 AND id = $2`, kind, uid).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	return decodeRecord(data)
}

func (p *PostgresRepository) Insert(ctx context.Context, kind string, rec Record) error {
	uid, data, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("insert %s: %w", kind, err)
	}
	if _, err := p.db.Exec(ctx,
		`INSERT INTO records (kind, id, data) VALUES ($1, $2, $3)`, kind, uid, data); err != nil {
		return fmt.Errorf("insert %s: %w", kind, err)
	}
	return nil
}

func (p *PostgresRepository) Update(ctx context.Context, kind string, rec Record) error {
	uid, data, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("update %s: %w", kind, err)
	}
	tag, err := p.db.Exec(ctx,
		`UPDATE records SET data = $3, updated_at = now() WHERE kind = $1 AND id = $2`, kind, uid, data)
	if err != nil {
		return fmt.Errorf("update %s: %w", kind, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, rec.ID())
	}
	return nil
}

func (p *PostgresRepository) Delete(ctx context.Context, kind, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	tag, err := p.db.Exec(ctx, `DELETE FROM records WHERE kind = $1 AND id = $2`, kind, uid)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	return nil
}

func (p *PostgresRepository) Count(ctx context.Context, kind string) (int, error) {
	var n int
	if err := p.db.QueryRow(ctx, `SELECT count(*) FROM records WHERE kind = $1`, kind).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}
	return n, nil
}

func (p *PostgresRepository) Truncate(ctx context.Context, kind string) error {
	if _, err := p.db.Exec(ctx, `DELETE FROM records WHERE kind = $1`, kind); err != nil {
		return fmt.Errorf("truncate %s: %w", kind, err)
	}
	return nil
}

func encodeRecord(rec Record) (uuid.UUID, []byte, error) {
	uid, err := uuid.Parse(rec.ID())
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("invalid id %q: %w", rec.ID(), err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("encode: %w", err)
	}
	return uid, data, nil
}

func decodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return rec, nil
}

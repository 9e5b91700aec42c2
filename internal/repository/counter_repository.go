package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CounterRepository allocates named sequence values. It satisfies
// ticketid.CounterStore.
type CounterRepository interface {
	Next(ctx context.Context, name string) (int64, error)
	SeedCounter(ctx context.Context, name string, floor int64) error
}

type counterRepository struct {
	pool *pgxpool.Pool
}

// NewCounterRepository returns a Postgres-backed counter.
func NewCounterRepository(pool *pgxpool.Pool) CounterRepository {
	return &counterRepository{pool: pool}
}

// Next increments in a single UPSERT so concurrent callers never share a value.
func (r *counterRepository) Next(ctx context.Context, name string) (int64, error) {
	const query = `
        INSERT INTO counters (name, value) VALUES ($1, 1)
        ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
        RETURNING value`
	var value int64
	err := r.pool.QueryRow(ctx, query, name).Scan(&value)
	return value, translate(err)
}

// SeedCounter raises the named counter to at least floor.
func (r *counterRepository) SeedCounter(ctx context.Context, name string, floor int64) error {
	const query = `
        INSERT INTO counters (name, value) VALUES ($1, $2)
        ON CONFLICT (name) DO UPDATE SET value = GREATEST(counters.value, EXCLUDED.value)`
	_, err := r.pool.Exec(ctx, query, name, floor)
	return translate(err)
}

package valuation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/aristath/coinwatch/internal/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS last_valuations (
	symbol     TEXT PRIMARY KEY,
	value      DOUBLE PRECISION NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// PostgresRepository is the Postgres value store over the last_valuations table
type PostgresRepository struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewPostgresRepository connects to dbURL, verifies connectivity and creates the table
func NewPostgresRepository(ctx context.Context, dbURL string, log zerolog.Logger) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &PostgresRepository{
		pool: pool,
		log:  log.With().Str("repo", "valuations_pg").Logger(),
	}, nil
}

// Get returns the last stored value of symbol, 0 when none was stored
func (r *PostgresRepository) Get(ctx context.Context, symbol string) (float64, error) {
	var value float64
	err := r.pool.QueryRow(ctx,
		"SELECT value FROM last_valuations WHERE symbol = $1", symbol,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: get %s: %w", domain.ErrStore, symbol, err)
	}
	return value, nil
}

// Set overwrites the stored value of symbol
func (r *PostgresRepository) Set(ctx context.Context, symbol string, value float64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO last_valuations (symbol, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, symbol, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: set %s: %w", domain.ErrStore, symbol, err)
	}

	r.log.Debug().Str("symbol", symbol).Float64("value", value).Msg("Stored valuation")
	return nil
}

// List returns every stored valuation ordered by symbol
func (r *PostgresRepository) List(ctx context.Context) ([]StoredValuation, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT symbol, value, updated_at FROM last_valuations ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("%w: list: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	valuations := make([]StoredValuation, 0)
	for rows.Next() {
		var v StoredValuation
		if err := rows.Scan(&v.Symbol, &v.Value, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", domain.ErrStore, err)
		}
		v.UpdatedAt = v.UpdatedAt.UTC()
		valuations = append(valuations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list: %w", domain.ErrStore, err)
	}
	return valuations, nil
}

// Close releases the connection pool
func (r *PostgresRepository) Close() {
	r.pool.Close()
}

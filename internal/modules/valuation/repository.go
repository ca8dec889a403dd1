package valuation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/coinwatch/internal/domain"
)

// StoredValuation is a persisted last-alert valuation
type StoredValuation struct {
	Symbol    string    `json:"symbol"`
	Value     float64   `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository is the SQLite value store over the last_valuations table
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a SQLite-backed value store
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "valuations").Logger(),
	}
}

// Get returns the last stored value of symbol, 0 when none was stored
func (r *Repository) Get(ctx context.Context, symbol string) (float64, error) {
	var value float64
	err := r.db.QueryRowContext(ctx,
		"SELECT value FROM last_valuations WHERE symbol = ?", symbol,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: get %s: %w", domain.ErrStore, symbol, err)
	}
	return value, nil
}

// Set overwrites the stored value of symbol
func (r *Repository) Set(ctx context.Context, symbol string, value float64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO last_valuations (symbol, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, symbol, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%w: set %s: %w", domain.ErrStore, symbol, err)
	}

	r.log.Debug().Str("symbol", symbol).Float64("value", value).Msg("Stored valuation")
	return nil
}

// List returns every stored valuation ordered by symbol
func (r *Repository) List(ctx context.Context) ([]StoredValuation, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT symbol, value, updated_at FROM last_valuations ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("%w: list: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	valuations := make([]StoredValuation, 0)
	for rows.Next() {
		var v StoredValuation
		var updatedAt int64
		if err := rows.Scan(&v.Symbol, &v.Value, &updatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", domain.ErrStore, err)
		}
		v.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		valuations = append(valuations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list: %w", domain.ErrStore, err)
	}
	return valuations, nil
}

// Store is a value store that can also enumerate what it holds
type Store interface {
	domain.ValueStore
	List(ctx context.Context) ([]StoredValuation, error)
}

var (
	_ Store = (*Repository)(nil)
	_ Store = (*PostgresRepository)(nil)
)

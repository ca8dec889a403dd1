// Package domain holds the contracts shared by the valuation engine and its adapters.
// Adapters (rate clients, stores, notifiers) implement these interfaces so the
// engine can be exercised with in-memory fakes.
package domain

import "context"

// RateSource defines the market data operation the valuation engine depends on
type RateSource interface {
	// GetRate returns the unit price of symbol in the reference currency.
	// Failures must wrap ErrFetch.
	GetRate(ctx context.Context, symbol string) (float64, error)
}

// ValueStore persists the valuation recorded at the last alert, per asset symbol
type ValueStore interface {
	// Get returns the stored value for key.
	// Returns 0 if no value exists (not an error)
	Get(ctx context.Context, key string) (float64, error)

	// Set overwrites the stored value for key
	Set(ctx context.Context, key string, value float64) error
}

// Notifier delivers a formatted message to a fixed channel.
// Messages may contain the HTML subset understood by the channel (b, pre, a).
type Notifier interface {
	Send(ctx context.Context, message string) error
}

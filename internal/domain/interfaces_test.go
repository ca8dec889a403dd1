package domain_test

import (
	"testing"

	"github.com/aristath/coinwatch/internal/clients/coinbase"
	"github.com/aristath/coinwatch/internal/clients/telegram"
	"github.com/aristath/coinwatch/internal/domain"
	"github.com/aristath/coinwatch/internal/modules/valuation"
)

// TestRateSourceImplementations verifies the rate adapters satisfy RateSource
func TestRateSourceImplementations(t *testing.T) {
	var _ domain.RateSource = (*coinbase.Client)(nil)
	var _ domain.RateSource = (*valuation.OverrideRateSource)(nil)
}

// TestValueStoreImplementations verifies both stores satisfy ValueStore
func TestValueStoreImplementations(t *testing.T) {
	var _ domain.ValueStore = (*valuation.Repository)(nil)
	var _ domain.ValueStore = (*valuation.PostgresRepository)(nil)
}

// TestNotifierImplementations verifies the Telegram client satisfies Notifier
func TestNotifierImplementations(t *testing.T) {
	var _ domain.Notifier = (*telegram.Client)(nil)
}

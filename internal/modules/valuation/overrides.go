package valuation

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/coinwatch/internal/domain"
)

// OverrideRateSource answers from a static price table before asking the live source.
// Assets the live source cannot quote get their price here.
type OverrideRateSource struct {
	next      domain.RateSource
	overrides map[string]float64
	log       zerolog.Logger
}

// NewOverrideRateSource wraps next with a symbol → price table
func NewOverrideRateSource(next domain.RateSource, overrides map[string]float64, log zerolog.Logger) *OverrideRateSource {
	table := make(map[string]float64, len(overrides))
	for symbol, price := range overrides {
		table[strings.ToUpper(symbol)] = price
	}
	return &OverrideRateSource{
		next:      next,
		overrides: table,
		log:       log.With().Str("component", "rate_overrides").Logger(),
	}
}

// GetRate returns the override for symbol when one is configured, otherwise the live rate
func (s *OverrideRateSource) GetRate(ctx context.Context, symbol string) (float64, error) {
	if rate, ok := s.overrides[strings.ToUpper(symbol)]; ok {
		s.log.Debug().Str("symbol", symbol).Float64("rate", rate).Msg("Using rate override")
		return rate, nil
	}
	if s.next == nil {
		return 0, fmt.Errorf("%w: no rate source for %s", domain.ErrFetch, symbol)
	}
	return s.next.GetRate(ctx, symbol)
}

// Overrides returns a copy of the override table
func (s *OverrideRateSource) Overrides() map[string]float64 {
	table := make(map[string]float64, len(s.overrides))
	for symbol, price := range s.overrides {
		table[symbol] = price
	}
	return table
}

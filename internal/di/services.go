package di

import (
	"bytes"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/coinwatch/internal/clients/coinbase"
	"github.com/aristath/coinwatch/internal/clients/telegram"
	"github.com/aristath/coinwatch/internal/config"
	"github.com/aristath/coinwatch/internal/modules/ledger"
	"github.com/aristath/coinwatch/internal/modules/valuation"
	"github.com/aristath/coinwatch/pkg/embedded"
)

// InitializeServices loads the ledger and builds the clients and the valuation engine
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	transactions, err := LoadLedger(cfg.LedgerPath)
	if err != nil {
		return err
	}
	container.Transactions = transactions

	live := coinbase.NewClient(cfg.CoinbaseBaseURL, cfg.ReferenceCurrency, cfg.RateTimeout, log)
	container.Rates = valuation.NewOverrideRateSource(live, cfg.RateOverrides, log)

	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		container.Notifier = telegram.NewClient("", cfg.TelegramToken, cfg.TelegramChatID, log)
	}

	container.Engine = valuation.NewEngine(valuation.Config{
		Transactions: transactions,
		Rates:        container.Rates,
		Store:        container.Store,
		Notifier:     container.Notifier,
		AlertDelta:   cfg.AlertDelta,
		LiveMode:     cfg.LiveMode,
		RateTimeout:  cfg.RateTimeout,
		Currency:     cfg.ReferenceCurrency,
		Log:          log,
	})

	log.Info().
		Int("transactions", len(transactions)).
		Bool("live_mode", cfg.LiveMode).
		Bool("notifier", container.Notifier != nil).
		Str("overrides", config.FormatRateOverrides(cfg.RateOverrides)).
		Msg("Services initialized")

	return nil
}

// LoadLedger reads the ledger at path, or the embedded default ledger when path is empty
func LoadLedger(path string) ([]ledger.Transaction, error) {
	if path == "" {
		transactions, err := ledger.Load(bytes.NewReader(embedded.DefaultLedger))
		if err != nil {
			return nil, fmt.Errorf("failed to load embedded ledger: %w", err)
		}
		return transactions, nil
	}

	transactions, err := ledger.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger %s: %w", path, err)
	}
	return transactions, nil
}

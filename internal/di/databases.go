// Package di provides dependency injection for the value store.
package di

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/coinwatch/internal/config"
	"github.com/aristath/coinwatch/internal/database"
	"github.com/aristath/coinwatch/internal/modules/valuation"
)

// IsPostgresURL reports whether storeURL selects the Postgres value store
func IsPostgresURL(storeURL string) bool {
	return strings.HasPrefix(storeURL, "postgres://") || strings.HasPrefix(storeURL, "postgresql://")
}

// InitializeStore opens the value store named by STORE_URL and applies its schema
func InitializeStore(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	if IsPostgresURL(cfg.StoreURL) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		repo, err := valuation.NewPostgresRepository(ctx, cfg.StoreURL, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		container.Postgres = repo
		container.Store = repo

		log.Info().Str("store", "postgres").Msg("Value store ready")
		return container, nil
	}

	db, err := database.New(database.Config{
		Path: cfg.StoreURL,
		Name: "valuations",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize valuations database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate valuations database: %w", err)
	}
	container.DB = db
	container.Store = valuation.NewRepository(db.Conn(), log)

	log.Info().Str("store", "sqlite").Str("path", db.Path()).Msg("Value store ready")
	return container, nil
}

// Package di provides dependency injection type definitions.
package di

import (
	"github.com/aristath/coinwatch/internal/database"
	"github.com/aristath/coinwatch/internal/domain"
	"github.com/aristath/coinwatch/internal/modules/ledger"
	"github.com/aristath/coinwatch/internal/modules/valuation"
	"github.com/aristath/coinwatch/internal/scheduler"
)

// Container holds all dependencies for the application.
// It is created by Wire() and passed to the server and the CLI.
type Container struct {
	DB       *database.DB                  // SQLite value store; nil when Postgres is used
	Postgres *valuation.PostgresRepository // Postgres value store; nil when SQLite is used
	Store    valuation.Store               // Whichever of the two is active

	Transactions []ledger.Transaction // Static ledger
	Rates        domain.RateSource    // Live source behind the override table
	Notifier     domain.Notifier      // Nil when no bot credentials are configured
	Engine       *valuation.Engine
}

// JobInstances holds the background jobs registered by RegisterJobs
type JobInstances struct {
	Valuation        *scheduler.ValuationJob
	StoreMaintenance *scheduler.StoreMaintenanceJob // Nil when the store is not SQLite
}

// Close waits for pending notifications and releases the store
func (c *Container) Close() error {
	if c.Engine != nil {
		c.Engine.Wait()
	}
	if c.Postgres != nil {
		c.Postgres.Close()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

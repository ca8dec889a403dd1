package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/coinwatch/internal/database"
)

// StoreMaintenanceJob verifies the SQLite value store and checkpoints its WAL
type StoreMaintenanceJob struct {
	log zerolog.Logger
	db  *database.DB
}

// NewStoreMaintenanceJob creates a new StoreMaintenanceJob
func NewStoreMaintenanceJob(db *database.DB) *StoreMaintenanceJob {
	return &StoreMaintenanceJob{
		log: zerolog.Nop(),
		db:  db,
	}
}

// SetLogger sets the logger for the job
func (j *StoreMaintenanceJob) SetLogger(log zerolog.Logger) {
	j.log = log.With().Str("job", j.Name()).Logger()
}

// Name returns the job name
func (j *StoreMaintenanceJob) Name() string {
	return "store_maintenance"
}

// Run executes the store maintenance job
func (j *StoreMaintenanceJob) Run() error {
	if j.db == nil {
		j.log.Warn().Msg("Database not initialized, skipping")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := j.db.IntegrityCheck(ctx); err != nil {
		// Corruption cannot be repaired automatically
		j.log.Error().Err(err).Str("database", j.db.Name()).Msg("Integrity check failed")
		return fmt.Errorf("database %s is corrupted: %w", j.db.Name(), err)
	}

	stats, err := j.db.Checkpoint(ctx)
	if err != nil {
		j.log.Warn().Err(err).Str("database", j.db.Name()).Msg("Failed to checkpoint WAL")
		return nil
	}

	j.log.Info().
		Str("database", j.db.Name()).
		Int("wal_frames", stats.LogFrames).
		Int("checkpointed", stats.Checkpointed).
		Bool("busy", stats.Busy != 0).
		Msg("Store maintenance completed")

	return nil
}

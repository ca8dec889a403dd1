package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/coinwatch/internal/config"
	"github.com/aristath/coinwatch/internal/scheduler"
)

// RegisterJobs creates the background jobs. Scheduling them is left to the caller.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}
	if container.Engine == nil {
		return nil, fmt.Errorf("valuation engine not initialized")
	}

	instances := &JobInstances{}

	valuationJob := scheduler.NewValuationJob(container.Engine)
	valuationJob.SetLogger(log)
	if cfg.RateTimeout > 0 && 2*cfg.RateTimeout > scheduler.DefaultValuationTimeout {
		valuationJob.SetTimeout(2 * cfg.RateTimeout)
	}
	instances.Valuation = valuationJob

	if container.DB != nil {
		maintenance := scheduler.NewStoreMaintenanceJob(container.DB)
		maintenance.SetLogger(log)
		instances.StoreMaintenance = maintenance
	}

	return instances, nil
}

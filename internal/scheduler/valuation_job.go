package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/coinwatch/internal/modules/valuation"
)

// DefaultValuationTimeout bounds a whole scheduled valuation run
const DefaultValuationTimeout = 2 * time.Minute

// ValuationRunner is the part of the valuation engine the job needs
type ValuationRunner interface {
	Run(ctx context.Context, mode valuation.Mode) (*valuation.Result, error)
}

// ValuationJob performs one background valuation: persist and notify when the
// portfolio moved beyond the alert delta
type ValuationJob struct {
	log     zerolog.Logger
	engine  ValuationRunner
	timeout time.Duration
}

// NewValuationJob creates a new ValuationJob
func NewValuationJob(engine ValuationRunner) *ValuationJob {
	return &ValuationJob{
		log:     zerolog.Nop(),
		engine:  engine,
		timeout: DefaultValuationTimeout,
	}
}

// SetLogger sets the logger for the job
func (j *ValuationJob) SetLogger(log zerolog.Logger) {
	j.log = log.With().Str("job", j.Name()).Logger()
}

// SetTimeout overrides the run timeout
func (j *ValuationJob) SetTimeout(timeout time.Duration) {
	j.timeout = timeout
}

// Name returns the job name
func (j *ValuationJob) Name() string {
	return "valuation"
}

// Run executes the valuation job
func (j *ValuationJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	res, err := j.engine.Run(ctx, valuation.ModeBackground)
	if err != nil {
		return fmt.Errorf("valuation run failed: %w", err)
	}

	j.log.Info().
		Str("run_id", res.RunID).
		Float64("current", res.CurrentTotal).
		Float64("last", res.LastTotal).
		Str("label", res.Label).
		Int64("amount", res.Amount).
		Bool("notify", res.Notify).
		Msg("Valuation run finished")

	return nil
}

// Package valuation values the ledger's holdings against live rates, decides
// whether the move since the last alert is large enough to report, and
// persists and delivers the report when it is.
package valuation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/aristath/coinwatch/internal/domain"
	"github.com/aristath/coinwatch/internal/modules/ledger"
	"github.com/aristath/coinwatch/internal/modules/report"
)

// DefaultNotifyTimeout bounds a single notification delivery
const DefaultNotifyTimeout = 30 * time.Second

// Mode selects what a run does with its result
type Mode int

const (
	// ModeBackground persists and notifies when the alert rule fires
	ModeBackground Mode = iota
	// ModeReport only returns the report; it never touches the store or the notifier
	ModeReport
)

func (m Mode) String() string {
	switch m {
	case ModeBackground:
		return "background"
	case ModeReport:
		return "report"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Config holds engine dependencies and settings
type Config struct {
	Transactions  []ledger.Transaction
	Rates         domain.RateSource
	Store         domain.ValueStore
	Notifier      domain.Notifier // may be nil when LiveMode is off
	AlertDelta    float64
	LiveMode      bool
	RateTimeout   time.Duration // 0 = no per-call bound
	NotifyTimeout time.Duration
	Currency      string
	Log           zerolog.Logger
}

// Snapshot is the valuation of one held asset
type Snapshot struct {
	Symbol    string  `json:"symbol"`
	Amount    float64 `json:"amount"`
	Rate      float64 `json:"rate"`
	Value     float64 `json:"value"`
	LastValue float64 `json:"last_value"`
}

// Result describes a completed run
type Result struct {
	RunID        string     `json:"run_id"`
	Mode         string     `json:"mode"`
	Snapshots    []Snapshot `json:"snapshots"`
	CurrentTotal float64    `json:"current_total"`
	LastTotal    float64    `json:"last_total"`
	Invested     float64    `json:"invested"`
	Label        string     `json:"label"`
	Amount       int64      `json:"amount"`
	Notify       bool       `json:"notify"`
	Persisted    int        `json:"persisted"`
	Report       string     `json:"report"`

	// Delivery yields the notifier's outcome once and is then closed.
	// Nil unless a notification was dispatched.
	Delivery <-chan error `json:"-"`
}

// Engine runs valuations
type Engine struct {
	cfg   Config
	log   zerolog.Logger
	runMu sync.Mutex
	sends sync.WaitGroup
}

// NewEngine creates a valuation engine
func NewEngine(cfg Config) *Engine {
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}
	if cfg.Currency == "" {
		cfg.Currency = "EUR"
	}
	return &Engine{
		cfg: cfg,
		log: cfg.Log.With().Str("component", "valuation").Logger(),
	}
}

// Currency returns the reference currency code
func (e *Engine) Currency() string {
	return e.cfg.Currency
}

// Run performs one valuation. Background runs are serialized; report runs
// are read-only and may overlap with anything.
// A rate failure for any asset fails the whole run with domain.ErrFetch.
func (e *Engine) Run(ctx context.Context, mode Mode) (*Result, error) {
	if mode == ModeBackground {
		e.runMu.Lock()
		defer e.runMu.Unlock()
	}

	runID := uuid.New().String()
	log := e.log.With().Str("run_id", runID).Str("mode", mode.String()).Logger()
	start := time.Now()

	holdings, invested := ledger.ComputeHoldings(e.cfg.Transactions)

	snapshots, err := e.valuate(ctx, holdings, log)
	if err != nil {
		log.Error().Err(err).Msg("Valuation failed")
		return nil, err
	}

	values := make([]float64, len(snapshots))
	lasts := make([]float64, len(snapshots))
	rates := make(map[string]float64, len(snapshots))
	for i, s := range snapshots {
		values[i] = s.Value
		lasts[i] = s.LastValue
		rates[s.Symbol] = s.Rate
	}

	res := &Result{
		RunID:        runID,
		Mode:         mode.String(),
		Snapshots:    snapshots,
		CurrentTotal: floats.Sum(values),
		LastTotal:    floats.Sum(lasts),
		Invested:     invested.InexactFloat64(),
	}
	res.Label, res.Amount = ProfitLoss(res.CurrentTotal, res.Invested)
	res.Notify = ShouldNotify(res.CurrentTotal, res.LastTotal, e.cfg.AlertDelta)
	res.Report = report.Format(report.Input{
		Currency:     e.cfg.Currency,
		Holdings:     holdings,
		Transactions: e.cfg.Transactions,
		Rates:        rates,
		CurrentTotal: res.CurrentTotal,
		LastTotal:    res.LastTotal,
		Invested:     res.Invested,
		Label:        res.Label,
		Amount:       res.Amount,
	})

	log.Debug().
		Int("assets", len(snapshots)).
		Float64("current", res.CurrentTotal).
		Float64("last", res.LastTotal).
		Float64("invested", res.Invested).
		Bool("notify", res.Notify).
		Dur("duration", time.Since(start)).
		Msg("Valuation completed")

	if mode == ModeReport {
		return res, nil
	}

	if !res.Notify {
		log.Debug().
			Float64("delta", e.cfg.AlertDelta).
			Msg("Change within alert delta, nothing to report")
		return res, nil
	}

	res.Persisted = e.persist(ctx, snapshots, log)

	if e.cfg.LiveMode && e.cfg.Notifier != nil {
		res.Delivery = e.dispatch(res.Report, log)
	} else {
		log.Info().Str("report", res.Report).Msg("Dry run, notification not sent")
	}

	return res, nil
}

// Wait blocks until the background run in flight, if any, has finished and
// every dispatched notification has been delivered
func (e *Engine) Wait() {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	e.sends.Wait()
}

// ShouldNotify reports whether current moved strictly more than delta away from last
func ShouldNotify(current, last, delta float64) bool {
	return current < last-delta || current > last+delta
}

// ProfitLoss labels the difference between current value and invested capital
func ProfitLoss(current, invested float64) (string, int64) {
	diff := current - invested
	label := "profit"
	if diff < 0 {
		label = "loss"
	}
	return label, int64(math.Round(math.Abs(diff)))
}

type rateResult struct {
	symbol string
	rate   float64
	err    error
}

type lastResult struct {
	symbol string
	value  float64
}

// valuate fetches every held asset's rate and last value concurrently.
// The first rate failure cancels the remaining fetches.
func (e *Engine) valuate(ctx context.Context, holdings *ledger.Holdings, log zerolog.Logger) ([]Snapshot, error) {
	symbols := holdings.Symbols()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rates := make(chan rateResult, len(symbols))
	lasts := make(chan lastResult, len(symbols))

	var wg sync.WaitGroup
	for _, symbol := range symbols {
		symbol := symbol
		wg.Add(2)

		go func() {
			defer wg.Done()
			rate, err := e.fetchRate(ctx, symbol)
			if err != nil {
				cancel()
			}
			rates <- rateResult{symbol: symbol, rate: rate, err: err}
		}()

		go func() {
			defer wg.Done()
			value, err := e.cfg.Store.Get(ctx, symbol)
			if err != nil {
				log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to read last valuation, using 0")
				value = 0
			}
			lasts <- lastResult{symbol: symbol, value: value}
		}()
	}
	wg.Wait()
	close(rates)
	close(lasts)

	rateBySymbol := make(map[string]float64, len(symbols))
	var errs []error
	for r := range rates {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		rateBySymbol[r.symbol] = r.rate
	}
	if err := firstFetchError(errs); err != nil {
		return nil, err
	}

	lastBySymbol := make(map[string]float64, len(symbols))
	for l := range lasts {
		lastBySymbol[l.symbol] = l.value
	}

	snapshots := make([]Snapshot, 0, len(symbols))
	for _, symbol := range symbols {
		amount, _ := holdings.Amount(symbol)
		qty := amount.InexactFloat64()
		rate := rateBySymbol[symbol]
		snapshots = append(snapshots, Snapshot{
			Symbol:    symbol,
			Amount:    qty,
			Rate:      rate,
			Value:     rate * qty,
			LastValue: lastBySymbol[symbol],
		})
	}
	return snapshots, nil
}

func (e *Engine) fetchRate(ctx context.Context, symbol string) (float64, error) {
	if e.cfg.RateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RateTimeout)
		defer cancel()
	}

	rate, err := e.cfg.Rates.GetRate(ctx, symbol)
	if err != nil {
		if errors.Is(err, domain.ErrFetch) {
			return 0, fmt.Errorf("%s: %w", symbol, err)
		}
		return 0, fmt.Errorf("%w: %s: %w", domain.ErrFetch, symbol, err)
	}
	return rate, nil
}

// firstFetchError prefers the root failure over fetches it cancelled
func firstFetchError(errs []error) error {
	for _, err := range errs {
		if !errors.Is(err, context.Canceled) {
			return err
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// persist writes every asset's current value; a failed write does not stop the others
func (e *Engine) persist(ctx context.Context, snapshots []Snapshot, log zerolog.Logger) int {
	written := 0
	for _, s := range snapshots {
		if err := e.cfg.Store.Set(ctx, s.Symbol, s.Value); err != nil {
			log.Error().Err(err).Str("symbol", s.Symbol).Msg("Failed to persist valuation")
			continue
		}
		written++
	}
	log.Info().Int("written", written).Int("assets", len(snapshots)).Msg("Valuations persisted")
	return written
}

// dispatch sends the report without blocking the run
func (e *Engine) dispatch(message string, log zerolog.Logger) <-chan error {
	delivery := make(chan error, 1)

	e.sends.Add(1)
	go func() {
		defer e.sends.Done()
		defer close(delivery)

		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.NotifyTimeout)
		defer cancel()

		err := e.cfg.Notifier.Send(ctx, message)
		if err != nil {
			log.Error().Err(err).Msg("Failed to deliver notification")
		} else {
			log.Info().Msg("Notification delivered")
		}
		delivery <- err
	}()

	return delivery
}

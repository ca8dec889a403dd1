package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/aristath/coinwatch/internal/config"
	"github.com/aristath/coinwatch/internal/di"
	"github.com/aristath/coinwatch/internal/modules/ledger"
	"github.com/aristath/coinwatch/internal/modules/report"
	"github.com/aristath/coinwatch/internal/modules/valuation"
	"github.com/aristath/coinwatch/pkg/logger"
)

// holdingsCmd prints net holdings derived from the ledger.
type holdingsCmd struct {
	ledgerPath string
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "display net holdings and invested capital" }
func (*holdingsCmd) Usage() string {
	return `coinwatch holdings [-ledger <file>]

  Displays the assets currently held according to the ledger, the total
  invested capital including fees, and the fees paid.
`
}

func (c *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ledgerPath, "ledger", os.Getenv("LEDGER_PATH"), "ledger JSON file; the embedded ledger when empty")
}

func (c *holdingsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	transactions, err := di.LoadLedger(c.ledgerPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ledger: %v\n", err)
		return subcommands.ExitFailure
	}

	writeHoldings(os.Stdout, transactions)
	return subcommands.ExitSuccess
}

// writeHoldings prints one row per held asset, then the totals
func writeHoldings(w io.Writer, transactions []ledger.Transaction) {
	holdings, invested := ledger.ComputeHoldings(transactions)

	fmt.Fprintf(w, "%8s %-4s\n", "amount", "coin")
	for _, symbol := range holdings.Symbols() {
		amount, _ := holdings.Amount(symbol)
		fmt.Fprintf(w, "%s %-4s\n", report.FormatNumber(amount.InexactFloat64(), 8), symbol)
	}
	fmt.Fprintf(w, "invested: %s\n", invested.StringFixed(2))
	fmt.Fprintf(w, "fees:     %s\n", ledger.Fees(transactions).StringFixed(2))
}

// reportCmd values the portfolio without touching the store or the notifier.
type reportCmd struct {
	asJSON bool
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "value the portfolio and print the report" }
func (*reportCmd) Usage() string {
	return `coinwatch report [-json]

  Fetches current rates and prints the report. Nothing is persisted and no
  notification is sent.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.asJSON, "json", false, "print the full valuation result as JSON")
}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, log, status := setup(false)
	if container == nil {
		return status
	}
	defer container.Close()

	res, err := container.Engine.Run(ctx, valuation.ModeReport)
	if err != nil {
		log.Error().Err(err).Msg("Valuation failed")
		return subcommands.ExitFailure
	}

	if c.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding result: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	fmt.Println(res.Report)
	return subcommands.ExitSuccess
}

// runCmd performs one background valuation.
type runCmd struct {
	live bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "perform one valuation run, persisting and alerting on large moves" }
func (*runCmd) Usage() string {
	return `coinwatch run [-live]

  Values the portfolio like a scheduled run: when the move since the last
  alert exceeds ALERT_DELTA, the new values are stored and the report is sent
  (with -live or LIVE_MODE) or logged.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.live, "live", false, "deliver the notification even if LIVE_MODE is off")
}

func (c *runCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, log, status := setup(c.live)
	if container == nil {
		return status
	}
	// Close waits for the notification to be delivered
	defer container.Close()

	res, err := container.Engine.Run(ctx, valuation.ModeBackground)
	if err != nil {
		log.Error().Err(err).Msg("Valuation failed")
		return subcommands.ExitFailure
	}

	if res.Delivery != nil {
		if err := <-res.Delivery; err != nil {
			return subcommands.ExitFailure
		}
	}

	fmt.Printf("%s: %d %s, notify=%t, persisted=%d\n",
		res.Label, res.Amount, container.Engine.Currency(), res.Notify, res.Persisted)
	return subcommands.ExitSuccess
}

// setup loads configuration and wires dependencies. A nil container means
// the command must exit with the returned status.
func setup(live bool) (*di.Container, zerolog.Logger, subcommands.ExitStatus) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return nil, zerolog.Nop(), subcommands.ExitUsageError
	}

	if live {
		cfg.LiveMode = true
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return nil, zerolog.Nop(), subcommands.ExitUsageError
		}
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	container, _, err := di.Wire(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to wire dependencies")
		return nil, log, subcommands.ExitFailure
	}
	return container, log, subcommands.ExitSuccess
}

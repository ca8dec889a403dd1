// Package report renders valuation results as the fixed-width message sent to
// the notification channel and shown on the status page.
package report

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/aristath/coinwatch/internal/modules/ledger"
)

// Column widths of the holdings table
const (
	amountWidth  = 8
	symbolWidth  = 4
	valueWidth   = 7
	revenueWidth = 8
	deltaWidth   = 8
)

// Links printed under every report
var footerLinks = []struct{ title, href string }{
	{"Coinbase", "https://www.coinbase.com/dashboard"},
	{"CoinMarketCap", "https://coinmarketcap.com/"},
}

// Input is everything a report shows
type Input struct {
	Currency     string // ISO code of the reference currency
	Holdings     *ledger.Holdings
	Transactions []ledger.Transaction
	Rates        map[string]float64 // current unit price per held asset
	CurrentTotal float64
	LastTotal    float64 // portfolio value at the last alert
	Invested     float64
	Label        string // "profit" or "loss"
	Amount       int64  // rounded absolute profit or loss
}

// Format renders the report. Output is deterministic for a given input.
func Format(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>%s: %s</b>\n", capitalize(in.Label), formatWhole(in.Amount, in.Currency))
	fmt.Fprintf(&b, "Value %s (last alert %s), invested %s\n",
		formatWhole(int64(math.Round(in.CurrentTotal)), in.Currency),
		formatWhole(int64(math.Round(in.LastTotal)), in.Currency),
		formatWhole(int64(math.Round(in.Invested)), in.Currency))

	b.WriteString("<pre>\n")
	fmt.Fprintf(&b, "%*s %-*s %*s %*s %*s\n",
		amountWidth, "amount", symbolWidth, "coin", valueWidth, "value",
		revenueWidth, "revenue", deltaWidth, "delta")

	if in.Holdings != nil {
		for _, symbol := range in.Holdings.Symbols() {
			amount, _ := in.Holdings.Amount(symbol)
			value := in.Rates[symbol] * amount.InexactFloat64()
			revenue := ledger.Revenue(symbol, in.Transactions).InexactFloat64()

			// Currency columns show whole units; delta is rounded from the exact sum
			fmt.Fprintf(&b, "%s %-*s %s %s %s\n",
				FormatNumber(amount.InexactFloat64(), amountWidth),
				symbolWidth, html.EscapeString(symbol),
				FormatNumber(math.Round(value), valueWidth),
				FormatNumber(math.Round(revenue), revenueWidth),
				FormatNumber(math.Round(value+revenue), deltaWidth))
		}
	}
	b.WriteString("</pre>\n")

	fmt.Fprintf(&b, "Fees paid: %s\n", formatCents(ledger.Fees(in.Transactions), in.Currency))

	links := make([]string, 0, len(footerLinks))
	for _, l := range footerLinks {
		links = append(links, fmt.Sprintf(`<a href="%s">%s</a>`, l.href, l.title))
	}
	b.WriteString(strings.Join(links, " | "))

	return b.String()
}

// FormatNumber right-justifies x in width characters.
// Whole numbers are printed as integers. Fractions strictly between 0 and 1
// drop the leading zero and use width-1 decimals; other fractions use width-2
// decimals. Output wider than width is never cut.
func FormatNumber(x float64, width int) string {
	if math.Round(x) == x {
		return fmt.Sprintf("%*d", width, int64(x))
	}

	var s string
	if x > 0 && x < 1 {
		s = strings.TrimPrefix(strconv.FormatFloat(x, 'f', max(width-1, 0), 64), "0")
	} else {
		s = strconv.FormatFloat(x, 'f', max(width-2, 0), 64)
	}
	return fmt.Sprintf("%*s", width, s)
}

// Page wraps a report in the minimal HTML document served by the status endpoint
func Page(title, body string) string {
	return fmt.Sprintf(
		`<!doctype html><meta charset="utf-8"><title>%s</title>`+
			`<div style="font-family: monospace; white-space: pre-wrap;">%s</div>`,
		html.EscapeString(title), body)
}

// formatWhole formats whole currency units, e.g. €1,234
func formatWhole(amount int64, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		return fmt.Sprintf("%d %s", amount, code)
	}
	return money.NewFormatter(0, cur.Decimal, cur.Thousand, cur.Grapheme, cur.Template).Format(amount)
}

// formatCents formats an amount with the currency's minor units, e.g. €63.23
func formatCents(amount decimal.Decimal, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		return fmt.Sprintf("%s %s", amount.StringFixed(2), code)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, code).Display()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

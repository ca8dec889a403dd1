// Package ledger derives holdings and cost basis from the static transaction list.
package ledger

import (
	"github.com/shopspring/decimal"
)

// Transaction is one historical buy or sell.
// A positive Amount is an acquisition, a negative Amount a disposal.
// Cost is the reference-currency value exchanged (proceeds for disposals);
// Fee always increases the cost basis.
type Transaction struct {
	Asset  string          `json:"asset"`
	Amount decimal.Decimal `json:"amount"`
	Cost   decimal.Decimal `json:"cost"`
	Fee    decimal.Decimal `json:"fee"`
}

// IsAcquisition reports whether the transaction adds to the position
func (t Transaction) IsAcquisition() bool {
	return t.Amount.IsPositive()
}

// Holdings maps asset → net amount, iterated in insertion order.
// Assets whose running amount returned exactly to zero are absent.
type Holdings struct {
	order   []string
	amounts map[string]decimal.Decimal
}

// NewHoldings returns an empty holdings set
func NewHoldings() *Holdings {
	return &Holdings{amounts: make(map[string]decimal.Decimal)}
}

// Symbols returns held assets in insertion order
func (h *Holdings) Symbols() []string {
	symbols := make([]string, len(h.order))
	copy(symbols, h.order)
	return symbols
}

// Amount returns the net amount held of symbol
func (h *Holdings) Amount(symbol string) (decimal.Decimal, bool) {
	amount, ok := h.amounts[symbol]
	return amount, ok
}

// Len returns the number of held assets
func (h *Holdings) Len() int {
	return len(h.order)
}

// add applies delta to symbol's running amount, dropping the entry when it reaches zero.
// A dropped asset that re-opens is appended at the end of the order.
func (h *Holdings) add(symbol string, delta decimal.Decimal) {
	current, held := h.amounts[symbol]
	next := current.Add(delta)

	if next.IsZero() {
		if held {
			delete(h.amounts, symbol)
			h.remove(symbol)
		}
		return
	}

	if !held {
		h.order = append(h.order, symbol)
	}
	h.amounts[symbol] = next
}

func (h *Holdings) remove(symbol string) {
	for i, s := range h.order {
		if s == symbol {
			h.order = append(h.order[:i], h.order[i+1:]...)
			return
		}
	}
}

// ComputeHoldings sums transaction amounts per asset in ledger order and
// returns the total invested capital: acquisitions add their cost, disposals
// subtract it, and all fees are added on top.
func ComputeHoldings(txs []Transaction) (*Holdings, decimal.Decimal) {
	holdings := NewHoldings()
	invested := decimal.Zero
	fees := decimal.Zero

	for _, tx := range txs {
		holdings.add(tx.Asset, tx.Amount)

		if tx.IsAcquisition() {
			invested = invested.Add(tx.Cost)
		} else {
			invested = invested.Sub(tx.Cost)
		}
		fees = fees.Add(tx.Fee)
	}

	return holdings, invested.Add(fees)
}

// Revenue returns the cash already returned by asset: acquisitions count as
// -cost, disposals as +cost. A position still fully invested is negative.
func Revenue(asset string, txs []Transaction) decimal.Decimal {
	revenue := decimal.Zero
	for _, tx := range txs {
		if tx.Asset != asset {
			continue
		}
		if tx.IsAcquisition() {
			revenue = revenue.Sub(tx.Cost)
		} else {
			revenue = revenue.Add(tx.Cost)
		}
	}
	return revenue
}

// Fees returns the total of all transaction fees
func Fees(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Fee)
	}
	return total
}

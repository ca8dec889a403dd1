package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrInvalidTransaction is returned for ledger entries that break the data model
var ErrInvalidTransaction = errors.New("invalid transaction")

// Load decodes a JSON array of transactions and validates every entry.
// Amounts may be given as JSON numbers or strings.
func Load(r io.Reader) ([]Transaction, error) {
	var txs []Transaction

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&txs); err != nil {
		return nil, fmt.Errorf("failed to decode ledger: %w", err)
	}

	for i := range txs {
		txs[i].Asset = strings.ToUpper(strings.TrimSpace(txs[i].Asset))
		if err := Validate(txs[i]); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
	}

	return txs, nil
}

// LoadFile reads a ledger from path
func LoadFile(path string) ([]Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Validate checks a single transaction
func Validate(tx Transaction) error {
	if tx.Asset == "" {
		return fmt.Errorf("%w: missing asset", ErrInvalidTransaction)
	}
	if tx.Cost.IsNegative() {
		return fmt.Errorf("%w: %s cost is negative", ErrInvalidTransaction, tx.Asset)
	}
	if tx.Fee.IsNegative() {
		return fmt.Errorf("%w: %s fee is negative", ErrInvalidTransaction, tx.Asset)
	}
	return nil
}

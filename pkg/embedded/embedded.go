// Package embedded provides static assets compiled into the binaries.
package embedded

import (
	_ "embed"
)

// DefaultLedger is the transaction list used when LEDGER_PATH is not set.
// The BCH entry is the fork airdrop received for the BTC held at the time.
//
//go:embed ledger.json
var DefaultLedger []byte

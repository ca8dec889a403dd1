package main

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/aristath/coinwatch/internal/modules/ledger"
)

func TestWriteHoldings(t *testing.T) {
	transactions := []ledger.Transaction{
		{Asset: "BTC", Amount: decimal.RequireFromString("0.25"), Cost: decimal.RequireFromString("1000"), Fee: decimal.RequireFromString("5")},
		{Asset: "ETH", Amount: decimal.RequireFromString("3"), Cost: decimal.RequireFromString("600"), Fee: decimal.RequireFromString("2.5")},
		{Asset: "ETH", Amount: decimal.RequireFromString("-3"), Cost: decimal.RequireFromString("900"), Fee: decimal.RequireFromString("2.5")},
	}

	var buf bytes.Buffer
	writeHoldings(&buf, transactions)

	want := "  amount coin\n" +
		".2500000 BTC \n" +
		"invested: 710.00\n" +
		"fees:     10.00\n"
	assert.Equal(t, want, buf.String())
}

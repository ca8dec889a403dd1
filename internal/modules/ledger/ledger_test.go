package ledger

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tx(asset, amount, cost, fee string) Transaction {
	return Transaction{Asset: asset, Amount: d(amount), Cost: d(cost), Fee: d(fee)}
}

func TestComputeHoldings_NetAmountsAndInvested(t *testing.T) {
	txs := []Transaction{
		tx("BTC", "0.5", "2000", "10"),
		tx("ETH", "3", "900", "5"),
		tx("BTC", "-0.2", "1000", "4"),
		tx("ETH", "1.5", "600", "2.5"),
	}

	holdings, invested := ComputeHoldings(txs)

	assert.Equal(t, []string{"BTC", "ETH"}, holdings.Symbols())
	btc, ok := holdings.Amount("BTC")
	require.True(t, ok)
	assert.True(t, btc.Equal(d("0.3")))
	eth, ok := holdings.Amount("ETH")
	require.True(t, ok)
	assert.True(t, eth.Equal(d("4.5")))

	// 2000 + 900 - 1000 + 600 + fees(21.5)
	assert.True(t, invested.Equal(d("2521.5")), invested.String())
}

func TestComputeHoldings_ClosedPositionIsAbsent(t *testing.T) {
	txs := []Transaction{
		tx("LTC", "1", "50", "1"),
		tx("BTC", "0.1", "300", "0"),
		tx("LTC", "-1", "80", "1"),
	}

	holdings, invested := ComputeHoldings(txs)

	assert.Equal(t, []string{"BTC"}, holdings.Symbols())
	_, ok := holdings.Amount("LTC")
	assert.False(t, ok)
	// Capital of the closed position is still counted
	assert.True(t, invested.Equal(d("272")), invested.String())
}

func TestComputeHoldings_ReopenedPositionStartsFresh(t *testing.T) {
	txs := []Transaction{
		tx("LTC", "2", "100", "0"),
		tx("ETH", "1", "300", "0"),
		tx("LTC", "-2", "120", "0"),
		tx("LTC", "0.7", "40", "0"),
	}

	holdings, _ := ComputeHoldings(txs)

	// Re-opened asset goes to the end of the order
	assert.Equal(t, []string{"ETH", "LTC"}, holdings.Symbols())
	ltc, ok := holdings.Amount("LTC")
	require.True(t, ok)
	assert.True(t, ltc.Equal(d("0.7")))
}

func TestComputeHoldings_ExactZeroWithDecimals(t *testing.T) {
	// 0.1 + 0.2 - 0.3 is not zero in float64; the ledger must still close it
	txs := []Transaction{
		tx("BTC", "0.1", "10", "0"),
		tx("BTC", "0.2", "20", "0"),
		tx("BTC", "-0.3", "35", "0"),
	}

	holdings, invested := ComputeHoldings(txs)

	assert.Equal(t, 0, holdings.Len())
	assert.True(t, invested.Equal(d("-5")))
}

func TestComputeHoldings_Empty(t *testing.T) {
	holdings, invested := ComputeHoldings(nil)

	assert.Equal(t, 0, holdings.Len())
	assert.Empty(t, holdings.Symbols())
	assert.True(t, invested.IsZero())
}

func TestComputeHoldings_SumMatchesSignedTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	assets := []string{"BTC", "ETH", "LTC"}

	for run := 0; run < 50; run++ {
		var txs []Transaction
		sums := map[string]decimal.Decimal{}
		for i := 0; i < 20; i++ {
			asset := assets[rng.Intn(len(assets))]
			amount := decimal.New(int64(rng.Intn(11)-3), -1)
			if amount.IsZero() {
				continue
			}
			txs = append(txs, Transaction{Asset: asset, Amount: amount, Cost: decimal.NewFromInt(int64(rng.Intn(100)))})
			sums[asset] = sums[asset].Add(amount)
		}

		holdings, _ := ComputeHoldings(txs)

		// A closed position sums to zero up to the close, so a held asset's
		// amount always equals its signed total
		for _, asset := range holdings.Symbols() {
			amount, _ := holdings.Amount(asset)
			assert.True(t, amount.Equal(sums[asset]), "%s: %s != %s", asset, amount, sums[asset])
		}
		for asset, sum := range sums {
			if sum.IsZero() {
				_, ok := holdings.Amount(asset)
				assert.False(t, ok, "%s sums to zero but is held", asset)
			}
		}
	}
}

func TestComputeHoldings_InvestedIgnoresCrossAssetOrder(t *testing.T) {
	txs := []Transaction{
		tx("BTC", "1", "1000", "5"),
		tx("ETH", "2", "400", "2"),
		tx("BTC", "-0.5", "700", "3"),
		tx("ETH", "-1", "250", "1"),
	}
	reordered := []Transaction{txs[1], txs[0], txs[3], txs[2]}

	_, a := ComputeHoldings(txs)
	_, b := ComputeHoldings(reordered)

	assert.True(t, a.Equal(b))
}

func TestComputeHoldings_ReversedSignsKeepFees(t *testing.T) {
	txs := []Transaction{
		tx("BTC", "1", "1000", "5"),
		tx("ETH", "-2", "400", "2"),
	}
	reversed := make([]Transaction, len(txs))
	for i, x := range txs {
		x.Amount = x.Amount.Neg()
		reversed[i] = x
	}

	_, invested := ComputeHoldings(txs)
	_, reversedInvested := ComputeHoldings(reversed)

	fees := Fees(txs)
	// (invested - fees) flips sign, the fee contribution does not
	assert.True(t, invested.Sub(fees).Neg().Equal(reversedInvested.Sub(fees)))
	assert.True(t, fees.Equal(d("7")))
}

func TestRevenue(t *testing.T) {
	txs := []Transaction{
		tx("BTC", "1", "1000", "5"),
		tx("ETH", "2", "400", "2"),
		tx("BTC", "-0.5", "700", "3"),
	}

	assert.True(t, Revenue("BTC", txs).Equal(d("-300")))
	assert.True(t, Revenue("ETH", txs).Equal(d("-400")))
	assert.True(t, Revenue("LTC", txs).IsZero())
}

func TestFees(t *testing.T) {
	txs := []Transaction{
		tx("BTC", "1", "1000", "5.25"),
		tx("BTC", "-1", "1100", "4.75"),
	}
	assert.True(t, Fees(txs).Equal(d("10")))
	assert.True(t, Fees(nil).IsZero())
}

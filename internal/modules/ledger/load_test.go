package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_NumbersAndStrings(t *testing.T) {
	raw := `[
		{"asset": "btc", "amount": "0.5", "cost": 2300, "fee": "12.5"},
		{"asset": " ETH ", "amount": -1, "cost": "450.10", "fee": 0}
	]`

	txs, err := Load(strings.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, "BTC", txs[0].Asset)
	assert.True(t, txs[0].Amount.Equal(d("0.5")))
	assert.True(t, txs[0].Cost.Equal(d("2300")))
	assert.True(t, txs[0].Fee.Equal(d("12.5")))
	assert.True(t, txs[0].IsAcquisition())

	assert.Equal(t, "ETH", txs[1].Asset)
	assert.True(t, txs[1].Amount.Equal(d("-1")))
	assert.False(t, txs[1].IsAcquisition())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		invalid bool
	}{
		{"not json", `{`, false},
		{"unknown field", `[{"asset":"BTC","amount":1,"cost":1,"fee":0,"price":3}]`, false},
		{"missing asset", `[{"amount":1,"cost":1,"fee":0}]`, true},
		{"negative cost", `[{"asset":"BTC","amount":1,"cost":-1,"fee":0}]`, true},
		{"negative fee", `[{"asset":"BTC","amount":1,"cost":1,"fee":-0.5}]`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, err := Load(strings.NewReader(tt.raw))
			require.Error(t, err)
			assert.Nil(t, txs)
			assert.Equal(t, tt.invalid, errors.Is(err, ErrInvalidTransaction))
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"asset":"LTC","amount":"2","cost":"90","fee":"1"}]`), 0644))

	txs, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "LTC", txs[0].Asset)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/coinwatch/internal/config"
	"github.com/aristath/coinwatch/internal/database"
	"github.com/aristath/coinwatch/internal/di"
	"github.com/aristath/coinwatch/internal/modules/ledger"
	"github.com/aristath/coinwatch/internal/modules/valuation"
	"github.com/aristath/coinwatch/internal/scheduler"
)

type staticRates struct {
	rates map[string]float64
	err   error
}

func (s staticRates) GetRate(_ context.Context, symbol string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.rates[symbol], nil
}

type memStore struct {
	mu     sync.Mutex
	values map[string]float64
}

func (m *memStore) Get(_ context.Context, symbol string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[symbol], nil
}

func (m *memStore) Set(_ context.Context, symbol string, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[symbol] = value
	return nil
}

func (m *memStore) List(_ context.Context) ([]valuation.StoredValuation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]valuation.StoredValuation, 0, len(m.values))
	for symbol, value := range m.values {
		out = append(out, valuation.StoredValuation{Symbol: symbol, Value: value})
	}
	return out, nil
}

type fixedNext time.Time

func (f fixedNext) Next() time.Time { return time.Time(f) }

func testTransactions() []ledger.Transaction {
	return []ledger.Transaction{{
		Asset:  "BTC",
		Amount: decimal.RequireFromString("0.5"),
		Cost:   decimal.RequireFromString("1000"),
		Fee:    decimal.RequireFromString("10"),
	}}
}

func newTestServer(t *testing.T, rates staticRates, store *memStore, next NextRunner) *Server {
	txs := testTransactions()
	engine := valuation.NewEngine(valuation.Config{
		Transactions: txs,
		Rates:        rates,
		Store:        store,
		AlertDelta:   100,
		RateTimeout:  time.Second,
		Currency:     "EUR",
		Log:          zerolog.Nop(),
	})

	return New(Config{
		Log: zerolog.Nop(),
		Config: &config.Config{
			Port:        3000,
			Description: "Coinwatch",
		},
		Container: &di.Container{
			Store:        store,
			Transactions: txs,
			Rates:        rates,
			Engine:       engine,
		},
		Jobs:      &di.JobInstances{},
		Scheduler: next,
		DevMode:   true,
	})
}

func do(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Contains(t, response, "data")
	return response["data"].(map[string]interface{})
}

func TestHandleReport(t *testing.T) {
	s := newTestServer(t, staticRates{rates: map[string]float64{"BTC": 3000}}, &memStore{values: map[string]float64{}}, nil)

	w := do(s, "GET", "/")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))
	body := w.Body.String()
	assert.Contains(t, body, "<title>Coinwatch</title>")
	assert.Contains(t, body, "<b>Profit: €490</b>")
	assert.Contains(t, body, "BTC")
}

func TestHandleReport_RateFailureStillAnswers(t *testing.T) {
	s := newTestServer(t, staticRates{err: errors.New("down")}, &memStore{values: map[string]float64{}}, nil)

	w := do(s, "GET", "/")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, w.Body.String(), "Valuation unavailable")
}

func TestHandleReport_DoesNotPersist(t *testing.T) {
	store := &memStore{values: map[string]float64{}}
	s := newTestServer(t, staticRates{rates: map[string]float64{"BTC": 3000}}, store, nil)

	do(s, "GET", "/")

	assert.Empty(t, store.values)
}

func TestHandleHealth(t *testing.T) {
	next := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	s := newTestServer(t, staticRates{}, &memStore{values: map[string]float64{}}, fixedNext(next))

	w := do(s, "GET", "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "coinwatch", response["service"])
	assert.Equal(t, "2030-01-02T03:04:05Z", response["next_run"])
}

func TestHandleHealth_StoreDown(t *testing.T) {
	s := newTestServer(t, staticRates{}, &memStore{values: map[string]float64{}}, nil)

	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "coinwatch.db"), Name: "valuations"})
	require.NoError(t, err)
	require.NoError(t, db.Close())
	s.container.DB = db

	w := do(s, "GET", "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}

func TestHandleCurrentValuation(t *testing.T) {
	s := newTestServer(t, staticRates{rates: map[string]float64{"BTC": 3000}}, &memStore{values: map[string]float64{}}, nil)

	w := do(s, "GET", "/api/valuations/current")
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, "report", data["mode"])
	assert.Equal(t, 1500.0, data["current_total"])
	assert.Equal(t, "profit", data["label"])
	assert.NotEmpty(t, data["report"])
}

func TestHandleCurrentValuation_Failure(t *testing.T) {
	s := newTestServer(t, staticRates{err: errors.New("down")}, &memStore{values: map[string]float64{}}, nil)

	w := do(s, "GET", "/api/valuations/current")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHandleTriggerValuation_Persists(t *testing.T) {
	store := &memStore{values: map[string]float64{}}
	s := newTestServer(t, staticRates{rates: map[string]float64{"BTC": 3000}}, store, nil)

	w := do(s, "POST", "/api/jobs/valuation")
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, true, data["notify"])
	assert.Equal(t, 1500.0, store.values["BTC"])

	w = do(s, "GET", "/api/valuations/last")
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeData(t, w)
	assert.Equal(t, float64(1), data["count"])
}

func TestHandleTriggerStoreMaintenance(t *testing.T) {
	s := newTestServer(t, staticRates{}, &memStore{values: map[string]float64{}}, nil)

	w := do(s, "POST", "/api/jobs/store-maintenance")
	assert.Equal(t, http.StatusNotFound, w.Code)

	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "coinwatch.db"), Name: "valuations"})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate())
	s.jobs.StoreMaintenance = scheduler.NewStoreMaintenanceJob(db)

	w = do(s, "POST", "/api/jobs/store-maintenance")
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "completed", data["status"])
}

func TestLedgerRoutesAreMounted(t *testing.T) {
	s := newTestServer(t, staticRates{}, &memStore{values: map[string]float64{}}, nil)

	w := do(s, "GET", "/api/ledger/holdings")
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(1), data["count"])
}

// Package handlers provides HTTP handlers for ledger queries.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/coinwatch/internal/modules/ledger"
)

// Handler handles ledger HTTP requests
type Handler struct {
	transactions []ledger.Transaction
	log          zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(
	transactions []ledger.Transaction,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		transactions: transactions,
		log:          log.With().Str("handler", "ledger").Logger(),
	}
}

// holdingJSON is one held asset
type holdingJSON struct {
	Asset  string          `json:"asset"`
	Amount decimal.Decimal `json:"amount"`
}

// assetSummary aggregates one asset's transactions
type assetSummary struct {
	Asset        string          `json:"asset"`
	Acquisitions int             `json:"acquisitions"`
	Disposals    int             `json:"disposals"`
	NetAmount    decimal.Decimal `json:"net_amount"`
	Revenue      decimal.Decimal `json:"revenue"`
	Fees         decimal.Decimal `json:"fees"`
}

// HandleGetHoldings handles GET /api/ledger/holdings
func (h *Handler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, invested := ledger.ComputeHoldings(h.transactions)

	items := make([]holdingJSON, 0, holdings.Len())
	for _, symbol := range holdings.Symbols() {
		amount, _ := holdings.Amount(symbol)
		items = append(items, holdingJSON{Asset: symbol, Amount: amount})
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"holdings": items,
			"count":    len(items),
			"invested": invested,
			"fees":     ledger.Fees(h.transactions),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetTransactions handles GET /api/ledger/transactions
func (h *Handler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	// Parse query parameters
	limit := 0 // unlimited
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil || parsedLimit < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsedLimit
	}

	asset := strings.ToUpper(r.URL.Query().Get("asset"))
	side := r.URL.Query().Get("side")
	if side != "" && side != "buy" && side != "sell" {
		http.Error(w, "side must be buy or sell", http.StatusBadRequest)
		return
	}

	transactions := make([]ledger.Transaction, 0)
	for _, tx := range h.transactions {
		if asset != "" && tx.Asset != asset {
			continue
		}
		if side == "buy" && !tx.IsAcquisition() || side == "sell" && tx.IsAcquisition() {
			continue
		}
		transactions = append(transactions, tx)
		if limit > 0 && len(transactions) == limit {
			break
		}
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"transactions": transactions,
			"count":        len(transactions),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetSummary handles GET /api/ledger/summary
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	order := make([]string, 0)
	byAsset := make(map[string]*assetSummary)

	for _, tx := range h.transactions {
		s, ok := byAsset[tx.Asset]
		if !ok {
			s = &assetSummary{Asset: tx.Asset}
			byAsset[tx.Asset] = s
			order = append(order, tx.Asset)
		}
		if tx.IsAcquisition() {
			s.Acquisitions++
		} else {
			s.Disposals++
		}
		s.NetAmount = s.NetAmount.Add(tx.Amount)
		s.Fees = s.Fees.Add(tx.Fee)
	}

	assets := make([]assetSummary, 0, len(order))
	for _, asset := range order {
		s := byAsset[asset]
		s.Revenue = ledger.Revenue(asset, h.transactions)
		assets = append(assets, *s)
	}

	_, invested := ledger.ComputeHoldings(h.transactions)

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"assets":       assets,
			"transactions": len(h.transactions),
			"invested":     invested,
			"fees":         ledger.Fees(h.transactions),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Get("/holdings", h.HandleGetHoldings)
		r.Get("/transactions", h.HandleGetTransactions)
		r.Get("/summary", h.HandleGetSummary)
	})
}

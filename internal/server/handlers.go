package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/aristath/coinwatch/internal/modules/report"
	"github.com/aristath/coinwatch/internal/modules/valuation"
)

// manualRunTimeout bounds a valuation triggered through the API
const manualRunTimeout = 2 * time.Minute

// unavailableMessage replaces the report when rates cannot be fetched
const unavailableMessage = "<b>Valuation unavailable</b>\nRates could not be fetched. Try again in a moment."

// handleReport renders the current report as an HTML page.
// A failed valuation still answers 200 with a placeholder page.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	body := unavailableMessage

	res, err := s.container.Engine.Run(r.Context(), valuation.ModeReport)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to build report")
	} else {
		body = res.Report
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, report.Page(s.cfg.Description, body)); err != nil {
		s.log.Debug().Err(err).Msg("Failed to write report page")
	}
}

// handleHealth reports liveness, store reachability and the next scheduled run
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	response := map[string]interface{}{
		"status":    "healthy",
		"service":   "coinwatch",
		"live_mode": s.cfg.LiveMode,
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	}

	switch {
	case s.container.DB != nil:
		response["store"] = "sqlite"
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.container.DB.QuickCheck(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Store health check failed")
			response["status"] = "degraded"
			response["error"] = "store unreachable"
			status = http.StatusServiceUnavailable
		}
	case s.container.Postgres != nil:
		response["store"] = "postgres"
	}

	if s.scheduler != nil {
		if next := s.scheduler.Next(); !next.IsZero() {
			response["next_run"] = next.Format(time.RFC3339)
		}
	}

	s.writeJSON(w, status, response)
}

// handleCurrentValuation handles GET /api/valuations/current
func (s *Server) handleCurrentValuation(w http.ResponseWriter, r *http.Request) {
	res, err := s.container.Engine.Run(r.Context(), valuation.ModeReport)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to value portfolio")
		s.writeError(w, http.StatusBadGateway, "valuation failed")
		return
	}

	s.writeData(w, res)
}

// handleLastValuations handles GET /api/valuations/last
func (s *Server) handleLastValuations(w http.ResponseWriter, r *http.Request) {
	stored, err := s.container.Store.List(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list stored valuations")
		s.writeError(w, http.StatusInternalServerError, "failed to list stored valuations")
		return
	}

	s.writeData(w, map[string]interface{}{
		"valuations": stored,
		"count":      len(stored),
	})
}

// handleTriggerValuation handles POST /api/jobs/valuation.
// The run persists and notifies exactly like a scheduled one.
func (s *Server) handleTriggerValuation(w http.ResponseWriter, r *http.Request) {
	s.log.Info().Msg("Manual valuation triggered")

	// A client disconnect must not abort persistence halfway
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), manualRunTimeout)
	defer cancel()

	res, err := s.container.Engine.Run(ctx, valuation.ModeBackground)
	if err != nil {
		s.log.Error().Err(err).Msg("Manual valuation failed")
		s.writeError(w, http.StatusBadGateway, "valuation failed")
		return
	}

	s.writeData(w, res)
}

// handleTriggerStoreMaintenance handles POST /api/jobs/store-maintenance
func (s *Server) handleTriggerStoreMaintenance(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil || s.jobs.StoreMaintenance == nil {
		s.writeError(w, http.StatusNotFound, "store maintenance is only available for SQLite stores")
		return
	}

	s.log.Info().Msg("Manual store maintenance triggered")

	if err := s.jobs.StoreMaintenance.Run(); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeData(w, map[string]string{
		"job":    s.jobs.StoreMaintenance.Name(),
		"status": "completed",
	})
}

// writeData wraps data in the standard response envelope
func (s *Server) writeData(w http.ResponseWriter, data interface{}) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

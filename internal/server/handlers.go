package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.Conn().Ping(); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	s.respond(w, code, map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"market": s.marketHours.Status(),
		"jobs":   s.scheduler.Statuses(),
	})
}

func (s *Server) handleLatestAnalysis(w http.ResponseWriter, r *http.Request) {
	latest, err := s.analyses.GetLatestAnalysis()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if latest == nil {
		s.respondError(w, http.StatusNotFound, errNoAnalysis)
		return
	}
	s.respond(w, http.StatusOK, latest)
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	latest, err := s.analyses.GetLatestAnalysis()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if latest == nil {
		s.respondError(w, http.StatusNotFound, errNoAnalysis)
		return
	}
	s.respond(w, http.StatusOK, map[string]interface{}{
		"regime":     latest.Regime,
		"candidates": latest.Candidates,
	})
}

func (s *Server) handleExclusions(w http.ResponseWriter, r *http.Request) {
	latest, err := s.analyses.GetLatestAnalysis()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if latest == nil {
		s.respondError(w, http.StatusNotFound, errNoAnalysis)
		return
	}
	s.respond(w, http.StatusOK, map[string]interface{}{
		"constraints": latest.Constraints,
		"exclusions":  latest.Exclusions,
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	open, err := s.trades.GetOpen()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	closed, err := s.trades.GetClosed(queryLimit(r, 50))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]interface{}{
		"open":   open,
		"closed": closed,
	})
}

func (s *Server) handleWeights(w http.ResponseWriter, r *http.Request) {
	history, err := s.weights.GetHistory(queryLimit(r, 20))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]interface{}{"history": history})
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	recent, err := s.errors.GetRecent(queryLimit(r, 50))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]interface{}{"errors": recent})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.analyses.GetRecentRuns(queryLimit(r, 20))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// handleRunCycle triggers a research cycle inline, bypassing the market
// hours gate. A cycle already in progress yields 409.
func (s *Server) handleRunCycle(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.RunCycle()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if result == nil {
		s.respond(w, http.StatusConflict, map[string]interface{}{
			"error": "research cycle already running",
		})
		return
	}
	s.respond(w, http.StatusOK, result)
}

type apiError string

func (e apiError) Error() string { return string(e) }

const errNoAnalysis = apiError("no analysis available yet")

func (s *Server) respond(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, code int, err error) {
	s.respond(w, code, map[string]interface{}{"error": err.Error()})
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > 500 {
		return fallback
	}
	return limit
}

package web

import (
	"net/http"
	"strconv"

	"github.com/goodtune/worktime/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// handleMain serves the tracking page. Query parameters select the
// rendering: format=html|plain|json, numbers=text|values, and timespan
// overrides the history-bar window in seconds. Unknown values fall
// back to the defaults.
func (s *Server) handleMain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.redirectHome(w, r, "main")
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "plain", "json":
	default:
		format = "html"
	}

	numbers := r.URL.Query().Get("numbers")
	if numbers != "values" {
		numbers = "text"
	}

	barTimespan := s.config.Tracking.BarTimespan
	if raw := r.URL.Query().Get("timespan"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
			barTimespan = parsed
		}
	}

	timer := prometheus.NewTimer(metrics.SummaryDuration)
	summary, err := s.buildSummary(r.Context(), VisitorID(r.Context()), numbers, barTimespan)
	timer.ObserveDuration()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build summary")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	metrics.SummaryRequestsTotal.WithLabelValues(format).Inc()

	switch format {
	case "json":
		err = writeJSON(w, http.StatusOK, summary)
	case "plain":
		err = writePlain(w, summary)
	default:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err = s.templates.ExecuteTemplate(w, "main", summary)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("format", format).Msg("Failed to render summary")
	}
}

// handleSwitch changes the active mode. An empty mode stops tracking.
func (s *Server) handleSwitch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.redirectHome(w, r, "switch")
		return
	}

	newMode := r.FormValue("mode")
	if newMode != "" && !s.registry.Valid(newMode) {
		s.logger.Warn().Str("mode", newMode).Msg("Rejected switch to unknown mode")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	era, err := s.ledger.CurrentEra(r.Context(), VisitorID(r.Context()), s.config.Tracking.DefaultEraDescription)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to resolve era")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if _, err := s.ledger.SwitchMode(r.Context(), era.ID, newMode); err != nil {
		s.logger.Error().Err(err).Str("mode", newMode).Msg("Failed to switch mode")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleAdjust posts a manual correction in whole minutes. Both
// fields are non-negative and the applied delta is add minus subtract.
func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.redirectHome(w, r, "adjust")
		return
	}

	adjMode := r.FormValue("mode")
	if !s.registry.Valid(adjMode) {
		s.logger.Warn().Str("mode", adjMode).Msg("Rejected adjustment for unknown mode")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	add, okAdd := parseMinutes(r.FormValue("add"))
	subtract, okSub := parseMinutes(r.FormValue("subtract"))
	if !okAdd || !okSub {
		s.logger.Warn().
			Str("add", r.FormValue("add")).
			Str("subtract", r.FormValue("subtract")).
			Msg("Rejected adjustment with malformed minutes")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	delta := (add - subtract) * 60
	if delta == 0 {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	era, err := s.ledger.CurrentEra(r.Context(), VisitorID(r.Context()), s.config.Tracking.DefaultEraDescription)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to resolve era")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := s.ledger.AddElapsed(r.Context(), era.ID, adjMode, delta); err != nil {
		s.logger.Error().Err(err).Str("mode", adjMode).Int64("delta", delta).Msg("Failed to apply adjustment")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleClear closes out the current era and starts a fresh one.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.redirectHome(w, r, "clear")
		return
	}

	description := r.FormValue("description")
	if description == "" {
		description = s.config.Tracking.DefaultEraDescription
	}

	if _, err := s.ledger.Clear(r.Context(), VisitorID(r.Context()), description); err != nil {
		s.logger.Error().Err(err).Msg("Failed to clear era")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleSwitchEra repoints the visitor at one of their past eras, or
// starts a new one when newEra carries a description.
func (s *Server) handleSwitchEra(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.redirectHome(w, r, "switchera")
		return
	}

	visitor := VisitorID(r.Context())

	if description := r.FormValue("newEra"); description != "" {
		if _, err := s.ledger.Clear(r.Context(), visitor, description); err != nil {
			s.logger.Error().Err(err).Msg("Failed to start new era")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	eraID := r.FormValue("era")
	if eraID == "" {
		s.logger.Warn().Msg("Rejected era switch without a target")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	switched, err := s.ledger.SwitchEra(r.Context(), visitor, eraID)
	if err != nil {
		s.logger.Error().Err(err).Str("era", eraID).Msg("Failed to switch era")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !switched {
		s.logger.Warn().Str("era", eraID).Msg("Rejected era switch to unknown era")
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// redirectHome handles a request with the wrong method: log it and
// send the browser back to the page.
func (s *Server) redirectHome(w http.ResponseWriter, r *http.Request, handler string) {
	s.logger.Warn().
		Str("method", r.Method).
		Str("handler", handler).
		Msg("Redirecting request with unexpected method")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// parseMinutes parses an optional non-negative whole-minute field.
// Empty means zero.
func parseMinutes(raw string) (int64, bool) {
	if raw == "" {
		return 0, true
	}
	minutes, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || minutes < 0 {
		return 0, false
	}
	return minutes, true
}

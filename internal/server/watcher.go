package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"halo-watcher/internal/api"
	"halo-watcher/internal/presence"
	"halo-watcher/internal/repository"
	"halo-watcher/internal/service"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// WatcherServer exposes the manual commands and the presence-event
// intake over HTTP.
type WatcherServer struct {
	watcher *service.Watcher
	report  *service.ReportService
	monitor *presence.Monitor
	matches *repository.MatchRepository
	logger  zerolog.Logger
}

func NewWatcherServer(watcher *service.Watcher, report *service.ReportService, monitor *presence.Monitor, matches *repository.MatchRepository, logger zerolog.Logger) *WatcherServer {
	return &WatcherServer{
		watcher: watcher,
		report:  report,
		monitor: monitor,
		matches: matches,
		logger:  logger,
	}
}

func (s *WatcherServer) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /refresh", s.handleRefresh)
	mux.HandleFunc("POST /report", s.handleReport)
	mux.HandleFunc("POST /presence", s.handlePresence)
	mux.HandleFunc("GET /status", s.handleStatus)
}

// handleRefresh forces one synchronize pass. It serializes behind any
// in-flight scheduled run.
func (s *WatcherServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	err := s.watcher.Refresh(ctx)
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"status": "halted",
			"error":  "spartan token rejected; replace SPARTAN_TOKEN and restart",
		})
	case err != nil:
		s.logger.Error().Err(err).Msg("manual refresh failed")
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"status": "error",
			"error":  err.Error(),
		})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
	}
}

func (s *WatcherServer) handleReport(w http.ResponseWriter, r *http.Request) {
	if err := s.report.Send(r.Context(), true); err != nil {
		s.logger.Error().Err(err).Msg("manual report failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "report sent"})
}

type presenceEvent struct {
	Activities []string `json:"activities"`
}

// handlePresence receives forwarded presence events for the watched
// identity and runs them through the edge detector.
func (s *WatcherServer) handlePresence(w http.ResponseWriter, r *http.Request) {
	var event presenceEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status": "error",
			"error":  "invalid presence payload",
		})
		return
	}

	s.monitor.Observe(event.Activities)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"playing": s.monitor.Playing(),
	})
}

func (s *WatcherServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"watching": s.watcher.Watching(),
		"halted":   s.watcher.Halted(),
		"playing":  s.monitor.Playing(),
	}

	if latest, err := s.matches.Latest(r.Context()); err == nil && latest != nil {
		resp["latest_match_id"] = latest.MatchID
		resp["latest_match_start"] = latest.StartTime
	}
	if count, err := s.matches.CountMatches(r.Context()); err == nil {
		resp["match_count"] = count
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

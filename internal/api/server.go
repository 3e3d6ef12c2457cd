// Package api provides the HTTP monitoring and control API of the collector.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shibida/go-dtu/internal/config"
	"github.com/shibida/go-dtu/internal/domain"
	"github.com/shibida/go-dtu/internal/parser"
	"github.com/shibida/go-dtu/internal/session"
)

// Server represents the HTTP API server that exposes fleet state, live
// telemetry and on-demand polling.
type Server struct {
	config    *config.Config
	server    *http.Server
	router    *mux.Router
	fleet     *domain.Fleet
	sessions  *session.SessionManager
	poller    domain.PollRequester
	tracker   *PollTracker
	logger    zerolog.Logger
	startTime time.Time
}

// NewServer creates a new HTTP API server.
func NewServer(cfg *config.Config, fleet *domain.Fleet, sessions *session.SessionManager, poller domain.PollRequester, tracker *PollTracker) *Server {
	router := mux.NewRouter()

	// Create logger with API component context
	logger := log.With().Str("component", "api").Logger()

	// Create API server instance
	apiServer := &Server{
		config:    cfg,
		router:    router,
		fleet:     fleet,
		sessions:  sessions,
		poller:    poller,
		tracker:   tracker,
		logger:    logger,
		startTime: time.Now(),
	}

	// Set up API routes
	apiServer.setupRoutes()

	return apiServer
}

// GetRouter returns the request router, primarily for tests.
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// setupRoutes configures all API endpoint handlers.
func (s *Server) setupRoutes() {
	// API versioning
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Server status endpoint
	api.HandleFunc("/status", s.handleStatus).Methods("GET")

	// Inverter endpoints
	api.HandleFunc("/inverters", s.handleListInverters).Methods("GET")
	api.HandleFunc("/inverters/{serial}/live", s.handleLiveData).Methods("GET")
	api.HandleFunc("/inverters/{serial}/poll", s.handlePoll).Methods("POST")

	// Bridge session endpoint
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.API.Host, s.config.API.Port)

	// Create HTTP server
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		s.logger.Info().
			Str("host", s.config.API.Host).
			Int("port", s.config.API.Port).
			Msg("Starting HTTP API server")

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping HTTP API server")

	// Create a timeout context for shutdown
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if s.server != nil {
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}
	}

	return nil
}

// offlineThreshold returns the age after which an inverter counts as
// unreachable.
func (s *Server) offlineThreshold() time.Duration {
	return time.Duration(s.config.Polling.OfflineAfterSeconds) * time.Second
}

// handleStatus returns server status information.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	now := time.Now()
	status := map[string]interface{}{
		"status":         "ok",
		"version":        "dev",
		"uptime":         time.Since(s.startTime).String(),
		"inverterCount":  s.fleet.Count(),
		"reachableCount": s.fleet.ReachableCount(now, s.offlineThreshold()),
		"sessionCount":   s.sessions.GetSessionCount(),
	}

	s.writeJSON(w, status, http.StatusOK)
}

// handleListInverters returns a list of all configured inverters.
func (s *Server) handleListInverters(w http.ResponseWriter, _ *http.Request) {
	now := time.Now()
	inverters := s.fleet.GetAllInverters()

	result := make([]map[string]interface{}, 0, len(inverters))
	for _, inv := range inverters {
		entry := map[string]interface{}{
			"serial":         inv.SerialString(),
			"name":           inv.Name,
			"model":          inv.Profile.Name,
			"reachable":      inv.IsReachable(now, s.offlineThreshold()),
			"rxFailureCount": inv.Statistics.GetRxFailureCount(),
		}
		if lastUpdate := inv.Statistics.GetLastUpdate(); !lastUpdate.IsZero() {
			entry["lastUpdate"] = lastUpdate.Unix()
		}
		result = append(result, entry)
	}

	s.writeJSON(w, map[string]interface{}{
		"inverters": result,
		"count":     len(result),
	}, http.StatusOK)
}

// liveValue is one decoded reading in the live document: value, unit and
// the number of fraction digits a UI should render.
type liveValue struct {
	Value  float64 `json:"v"`
	Unit   string  `json:"u"`
	Digits int     `json:"d"`
}

// handleLiveData returns the full decoded value document for one inverter,
// grouped by channel type and channel number.
func (s *Server) handleLiveData(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	serial := vars["serial"]

	inv, found := s.fleet.GetInverterBySerialString(serial)
	if !found {
		s.writeError(w, "Inverter not found", http.StatusNotFound)
		return
	}

	now := time.Now()
	stats := inv.Statistics

	doc := map[string]interface{}{
		"serial":    inv.SerialString(),
		"name":      inv.Name,
		"model":     inv.Profile.Name,
		"reachable": inv.IsReachable(now, s.offlineThreshold()),
	}
	if lastUpdate := stats.GetLastUpdate(); !lastUpdate.IsZero() {
		doc["last_update"] = lastUpdate.Unix()
		doc["data_age"] = int(now.Sub(lastUpdate).Seconds())
	}

	for _, channelType := range stats.GetChannelTypes() {
		channels := make(map[string]map[string]liveValue)
		for _, channel := range stats.GetChannelsByType(channelType) {
			fields := make(map[string]liveValue)
			for _, field := range parser.AllFields() {
				if !stats.HasChannelFieldValue(channelType, channel, field) {
					continue
				}
				fields[field.TopicName()] = liveValue{
					Value:  stats.GetChannelFieldValue(channelType, channel, field),
					Unit:   stats.GetChannelFieldUnit(channelType, channel, field),
					Digits: stats.GetChannelFieldDigits(channelType, channel, field),
				}
			}
			channels[strconv.Itoa(int(channel))] = fields
		}
		doc[strings.ToLower(channelType.String())] = channels
	}

	s.writeJSON(w, doc, http.StatusOK)
}

// handlePoll requests an immediate statistics poll for one inverter and
// waits for the answering frame up to a timeout.
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	serial := vars["serial"]

	inv, found := s.fleet.GetInverterBySerialString(serial)
	if !found {
		s.writeError(w, "Inverter not found", http.StatusNotFound)
		return
	}

	if s.poller == nil {
		s.writeError(w, "Polling is not available", http.StatusServiceUnavailable)
		return
	}

	// Register the waiter before the request goes out so the answering
	// frame cannot slip past between send and wait.
	waiter := s.tracker.Track(inv.Serial)

	if err := s.poller.RequestPoll(inv.Serial); err != nil {
		s.tracker.Cancel(inv.Serial, waiter)
		s.writeError(w, fmt.Sprintf("Poll request failed: %v", err), http.StatusBadGateway)
		return
	}

	select {
	case completedAt := <-waiter:
		s.writeJSON(w, map[string]interface{}{
			"serial":      inv.SerialString(),
			"status":      "completed",
			"completedAt": completedAt.Unix(),
		}, http.StatusOK)
	case <-time.After(s.pollTimeout(r)):
		s.tracker.Cancel(inv.Serial, waiter)
		s.writeJSON(w, map[string]interface{}{
			"serial": inv.SerialString(),
			"status": "pending",
		}, http.StatusAccepted)
	case <-r.Context().Done():
		s.tracker.Cancel(inv.Serial, waiter)
	}
}

// pollTimeout returns how long a poll request should wait for the
// answering frame. Callers may override the default with a timeout query
// parameter in seconds, capped at one minute.
func (s *Server) pollTimeout(r *http.Request) time.Duration {
	const defaultWait = 10 * time.Second

	raw := r.URL.Query().Get("timeout")
	if raw == "" {
		return defaultWait
	}

	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 1 {
		return defaultWait
	}
	if seconds > 60 {
		seconds = 60
	}
	return time.Duration(seconds) * time.Second
}

// handleListSessions returns statistics for all active bridge sessions.
func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	stats := s.sessions.GetAllSessions()

	s.writeJSON(w, map[string]interface{}{
		"sessions": stats,
		"count":    len(stats),
	}, http.StatusOK)
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := map[string]string{"error": message}
	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode error response")
	}
}

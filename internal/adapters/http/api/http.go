// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/kryds/internal/app"
	"github.com/okian/kryds/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	AnalyticsDependencies
	ObserverDependencies
	ObservationDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	analyticsHandler    *AnalyticsHandler
	observersHandler    *ObserversHandler
	observationsHandler *ObservationsHandler
	logger              logger.Logger
}

// NewServer creates a new API server with all handlers. maxBodyBytes caps
// upload bodies.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxBodyBytes int64, log logger.Logger) *Server {
	if log == nil {
		log = logger.New()
	}
	return &Server{
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(statsProvider),
		analyticsHandler:    NewAnalyticsHandler(deps, maxBodyBytes, log),
		observersHandler:    NewObserversHandler(deps, log),
		observationsHandler: NewObservationsHandler(deps, maxBodyBytes, log),
		logger:              log,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, RequestIDMiddleware(MetricsMiddleware(h, endpoint)))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	route("GET /stats", "stats", s.statsHandler.HandleStats)

	route("GET /observers", "observers", s.observersHandler.HandleList)
	route("POST /observers", "observers", s.observersHandler.HandleCreate)
	route("DELETE /observers/{code}", "observers_code", s.observersHandler.HandleDelete)
	route("PUT /observations/{code}", "observations_code", s.observationsHandler.HandleReplace)

	route("GET /matrix", "matrix", s.analyticsHandler.HandleMatrix)
	route("GET /matrix/{code}", "matrix_code", s.analyticsHandler.HandleObserverMatrix)
	route("GET /scoreboard", "scoreboard", s.analyticsHandler.HandleScoreboard)
	route("GET /timeline", "timeline", s.analyticsHandler.HandleTimeline)
	route("GET /trend", "trend", s.analyticsHandler.HandleTrend)
	route("GET /dashboard", "dashboard", s.analyticsHandler.HandleDashboard)
	route("POST /analyze", "analyze", s.analyticsHandler.HandleAnalyze)
	route("GET /observer/{code}", "observer_code", s.analyticsHandler.HandleObserver)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail maps err onto a status and error code. Server errors are logged.
func fail(ctx context.Context, log logger.Logger, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", err)
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err)
	default:
		log.Error(ctx, "request failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

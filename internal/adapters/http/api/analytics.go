package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/kryds/internal/app"
	"github.com/okian/kryds/internal/domain/matrix"
	"github.com/okian/kryds/internal/domain/projection"
	"github.com/okian/kryds/internal/domain/types"
	"github.com/okian/kryds/pkg/logger"
)

// AnalyticsDependencies defines the read side of the engine.
type AnalyticsDependencies interface {
	Matrix(ctx context.Context, year int) (types.Matrix, error)
	Scoreboard(ctx context.Context, q service.Query) (types.Scoreboard, error)
	Timeline(ctx context.Context, q service.Query) (types.Timeline, error)
	Trend(ctx context.Context, q service.Query) (types.Trend, error)
	Dashboard(ctx context.Context, q service.Query) (types.Dashboard, error)
	Analyze(ctx context.Context, raw types.Matrix, q service.Query) (types.Dashboard, error)
	ObserverList(ctx context.Context, code string, year int, mode projection.ListMode) (types.ObserverList, error)
	ObserverMatrix(ctx context.Context, code string, year int) (types.Matrix, error)
}

// AnalyticsHandler serves computed views.
type AnalyticsHandler struct {
	deps         AnalyticsDependencies
	maxBodyBytes int64
	logger       logger.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(deps AnalyticsDependencies, maxBodyBytes int64, log logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{deps: deps, maxBodyBytes: maxBodyBytes, logger: log}
}

// HandleMatrix handles GET /matrix?year=.
func (h *AnalyticsHandler) HandleMatrix(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_matrix"
	year, err := parseYear(r.URL.Query())
	if err != nil {
		fail(r.Context(), h.logger, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	m, err := h.deps.Matrix(r.Context(), year)
	respond(r.Context(), h.logger, w, op, m, err)
}

// HandleObserverMatrix handles GET /matrix/{code}?year=.
func (h *AnalyticsHandler) HandleObserverMatrix(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_observer_matrix"
	year, err := parseYear(r.URL.Query())
	if err != nil {
		fail(r.Context(), h.logger, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	m, err := h.deps.ObserverMatrix(r.Context(), r.PathValue("code"), year)
	respond(r.Context(), h.logger, w, op, m, err)
}

// HandleScoreboard handles GET /scoreboard.
func (h *AnalyticsHandler) HandleScoreboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_scoreboard"
	q, err := parseQuery(op, r)
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	sb, err := h.deps.Scoreboard(r.Context(), q)
	respond(r.Context(), h.logger, w, op, sb, err)
}

// HandleTimeline handles GET /timeline.
func (h *AnalyticsHandler) HandleTimeline(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_timeline"
	q, err := parseQuery(op, r)
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	tl, err := h.deps.Timeline(r.Context(), q)
	respond(r.Context(), h.logger, w, op, tl, err)
}

// HandleTrend handles GET /trend.
func (h *AnalyticsHandler) HandleTrend(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_trend"
	q, err := parseQuery(op, r)
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	tr, err := h.deps.Trend(r.Context(), q)
	respond(r.Context(), h.logger, w, op, tr, err)
}

// HandleDashboard handles GET /dashboard.
func (h *AnalyticsHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_dashboard"
	q, err := parseQuery(op, r)
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	d, err := h.deps.Dashboard(r.Context(), q)
	respond(r.Context(), h.logger, w, op, d, err)
}

// analyzeRequest is a posted matrix. Observers are plain codes or objects in
// the GET /matrix shape; the grid comes under "matrix" with null for an empty
// cell, or under "cells" with "". Supplied totals are recomputed.
type analyzeRequest struct {
	Year      int               `json:"year"`
	Species   []string          `json:"species"`
	Observers []analyzeObserver `json:"observers"`
	Matrix    [][]*string       `json:"matrix"`
	Cells     [][]string        `json:"cells"`
	Totals    []int             `json:"totals"`
}

type analyzeObserver matrix.Observer

func (o *analyzeObserver) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err == nil {
		*o = analyzeObserver{Code: code}
		return nil
	}
	var full matrix.Observer
	if err := json.Unmarshal(data, &full); err != nil {
		return err
	}
	*o = analyzeObserver(full)
	return nil
}

func (req analyzeRequest) raw() types.Matrix {
	observers := make([]matrix.Observer, len(req.Observers))
	for j, o := range req.Observers {
		observers[j] = matrix.Observer(o)
	}
	cells := req.Cells
	if req.Matrix != nil {
		cells = make([][]string, len(req.Matrix))
		for i, row := range req.Matrix {
			cells[i] = make([]string, len(row))
			for j, c := range row {
				if c != nil {
					cells[i][j] = *c
				}
			}
		}
	}
	return types.Matrix{Year: req.Year, Species: req.Species, Observers: observers, Cells: cells}
}

// HandleAnalyze handles POST /analyze: the posted matrix is analysed without
// touching stored records.
func (h *AnalyticsHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyze"
	q, err := parseQuery(op, r)
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	var req analyzeRequest
	if err := decodeBody(op, w, r, h.maxBodyBytes, &req); err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	d, err := h.deps.Analyze(r.Context(), req.raw(), q)
	respond(r.Context(), h.logger, w, op, d, err)
}

// HandleObserver handles GET /observer/{code}?mode=&year=.
func (h *AnalyticsHandler) HandleObserver(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_observer"
	values := r.URL.Query()
	year, err := parseYear(values)
	if err != nil {
		fail(r.Context(), h.logger, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	mode, err := projection.ParseListMode(values.Get("mode"))
	if err != nil {
		fail(r.Context(), h.logger, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	list, err := h.deps.ObserverList(r.Context(), r.PathValue("code"), year, mode)
	respond(r.Context(), h.logger, w, op, list, err)
}

func respond(ctx context.Context, log logger.Logger, w http.ResponseWriter, op string, v any, err error) {
	if err != nil {
		fail(ctx, log, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

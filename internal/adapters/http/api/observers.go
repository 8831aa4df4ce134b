package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/kryds/internal/domain/types"
	"github.com/okian/kryds/pkg/logger"
)

// ObserverDependencies defines the registry operations.
type ObserverDependencies interface {
	AddObserver(ctx context.Context, code, name string) error
	DeleteObserver(ctx context.Context, code string) error
	Observers(ctx context.Context) ([]types.Observer, error)
}

// observerRequest is the body of POST /observers.
type observerRequest struct {
	Code string `json:"code" validate:"required,alphanumunicode,max=16"`
	Name string `json:"name" validate:"max=100"`
}

// ObserversHandler handles the observer registry.
type ObserversHandler struct {
	deps      ObserverDependencies
	validator *requestValidator
	logger    logger.Logger
}

// NewObserversHandler creates a new observers handler.
func NewObserversHandler(deps ObserverDependencies, log logger.Logger) *ObserversHandler {
	return &ObserversHandler{deps: deps, validator: newRequestValidator(), logger: log}
}

// HandleList handles GET /observers.
func (h *ObserversHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_observers"
	list, err := h.deps.Observers(r.Context())
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleCreate handles POST /observers.
func (h *ObserversHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_observer"
	var req observerRequest
	if err := decodeBody(op, w, r, 1<<16, &req); err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	if err := h.validator.validate(op, req); err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	if err := h.deps.AddObserver(r.Context(), req.Code, req.Name); err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	name := req.Name
	if name == "" {
		name = req.Code
	}
	writeJSON(w, http.StatusCreated, types.Observer{Code: req.Code, Name: name})
}

// HandleDelete handles DELETE /observers/{code}.
func (h *ObserversHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_observer"
	if err := h.deps.DeleteObserver(r.Context(), r.PathValue("code")); err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/kryds/internal/domain/datenorm"
	"github.com/okian/kryds/internal/domain/model"
	"github.com/okian/kryds/pkg/logger"
)

// ObservationDependencies defines the upload operation.
type ObservationDependencies interface {
	ReplaceObservations(ctx context.Context, code string, records []model.Observation) (int, error)
}

// observationRecord is one exported sighting.
type observationRecord struct {
	Species   string `json:"species" validate:"required,max=200"`
	Date      string `json:"date" validate:"required"`
	TripID    string `json:"trip_id" validate:"max=64"`
	TripStart string `json:"trip_start" validate:"omitempty,datetime=15:04"`
	TripEnd   string `json:"trip_end" validate:"omitempty,datetime=15:04"`
	TripNotes string `json:"trip_notes" validate:"max=2000"`
}

// observationsRequest is the body of PUT /observations/{code}.
type observationsRequest struct {
	Observations []observationRecord `json:"observations" validate:"dive"`
}

type replaceResponse struct {
	Observer string `json:"observer"`
	Stored   int    `json:"stored"`
}

// ObservationsHandler handles observation uploads.
type ObservationsHandler struct {
	deps         ObservationDependencies
	validator    *requestValidator
	maxBodyBytes int64
	logger       logger.Logger
}

// NewObservationsHandler creates a new observations handler.
func NewObservationsHandler(deps ObservationDependencies, maxBodyBytes int64, log logger.Logger) *ObservationsHandler {
	return &ObservationsHandler{deps: deps, validator: newRequestValidator(), maxBodyBytes: maxBodyBytes, logger: log}
}

// HandleReplace handles PUT /observations/{code}: the body replaces every
// record previously uploaded for the observer.
func (h *ObservationsHandler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	const op = "api.replace_observations"
	code := r.PathValue("code")

	var req observationsRequest
	if err := decodeBody(op, w, r, h.maxBodyBytes, &req); err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	if err := h.validator.validate(op, req); err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}

	records := make([]model.Observation, len(req.Observations))
	for k, rec := range req.Observations {
		d, ok := datenorm.Parse(rec.Date).Date()
		if !ok {
			fail(r.Context(), h.logger, w, WrapKind(op, ErrBadRequest, fmt.Errorf("observations[%d].date %q is not a date", k, rec.Date)))
			return
		}
		records[k] = model.Observation{
			Observer:  code,
			Species:   rec.Species,
			Date:      d,
			TripID:    rec.TripID,
			TripStart: rec.TripStart,
			TripEnd:   rec.TripEnd,
			TripNotes: rec.TripNotes,
		}
	}

	n, err := h.deps.ReplaceObservations(r.Context(), code, records)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, replaceResponse{Observer: code, Stored: n})
}

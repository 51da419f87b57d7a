package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	dErrors "rescar/pkg/domain-errors"
	"rescar/pkg/platform/httputil"
)

type makeReservationRequest struct {
	ToRentAt        time.Time `json:"to_rent_at"`
	DurationMinutes int       `json:"duration_minutes"`
	ClientName      string    `json:"client_name"`
	DryRun          bool      `json:"dry_run"`
}

func (h *Handler) handleMakeReservation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req makeReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if req.ToRentAt.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "to_rent_at is required"))
		return
	}
	if req.DurationMinutes <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "duration_minutes must be positive"))
		return
	}

	requestID := uuid.New()
	duration := time.Duration(req.DurationMinutes) * time.Minute
	reservation, err := h.reservations.MakeReservation(ctx, requestID, req.ToRentAt, duration, req.ClientName, req.DryRun)
	if err != nil {
		h.logError(ctx, "failed to make reservation", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, reservation)
}

func (h *Handler) handleListReservations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reservations, err := h.reservations.ListReservations(ctx)
	if err != nil {
		h.logError(ctx, "failed to list reservations", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reservations)
}

func (h *Handler) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidFormat, "request id must be a UUID"))
		return
	}

	reservation, err := h.reservations.ReservationByRequestID(ctx, requestID)
	if err != nil {
		h.logError(ctx, "failed to fetch reservation", err)
		httputil.WriteError(w, err)
		return
	}
	if reservation == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no reservation for request id"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reservation)
}

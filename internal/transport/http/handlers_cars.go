package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"unicode"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"rescar/internal/platform/middleware"
	dErrors "rescar/pkg/domain-errors"
	"rescar/pkg/platform/httputil"
)

type addCarRequest struct {
	Make               string `json:"make"`
	Model              string `json:"model"`
	CarID              string `json:"car_id"`
	RegistrationNumber string `json:"registration_number"`
	RaiseOnExisting    bool   `json:"raise_on_existing"`
}

type updateCarRequest struct {
	RegistrationNumber *string `json:"registration_number"`
	Model              *string `json:"model"`
	Make               *string `json:"make"`
}

// validRegistrationNumber checks the boundary shape of a registration
// number: exactly 8 characters with at least one digit. The core treats the
// value as free text, so this is the only place the shape is enforced.
func validRegistrationNumber(reg string) bool {
	if utf8.RuneCountInString(reg) != 8 {
		return false
	}
	for _, r := range reg {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func (h *Handler) handleAddCar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addCarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if !validRegistrationNumber(req.RegistrationNumber) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput,
			"registration number must be 8 characters long and contain a digit"))
		return
	}

	car, err := h.cars.GetOrCreateCar(ctx, req.Make, req.Model, req.CarID, req.RegistrationNumber, req.RaiseOnExisting)
	if err != nil {
		h.logError(ctx, "failed to add car", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, car)
}

func (h *Handler) handleListCars(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	order := r.URL.Query().Get("order")
	if order != "" && order != "asc" && order != "desc" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "order must be asc or desc"))
		return
	}

	cars, err := h.cars.ListCars(ctx, order != "desc")
	if err != nil {
		h.logError(ctx, "failed to list cars", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cars)
}

func (h *Handler) handleUpdateCar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	carID := chi.URLParam(r, "carID")

	var req updateCarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if req.RegistrationNumber != nil && !validRegistrationNumber(*req.RegistrationNumber) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput,
			"registration number must be 8 characters long and contain a digit"))
		return
	}

	car, err := h.cars.UpdateCar(ctx, carID, req.RegistrationNumber, req.Model, req.Make)
	if err != nil {
		h.logError(ctx, "failed to update car", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, car)
}

func (h *Handler) handleDeleteCar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	carID := chi.URLParam(r, "carID")

	snapshot, err := h.cars.DeleteCar(ctx, carID)
	if err != nil {
		h.logError(ctx, "failed to delete car", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snapshot)
}

// logError logs failed operations; expected domain errors log as warnings,
// anything internal as an error.
func (h *Handler) logError(ctx context.Context, msg string, err error) {
	attrs := []any{
		"error", err.Error(),
		"request_id", middleware.GetRequestID(ctx),
	}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	h.logger.WarnContext(ctx, msg, attrs...)
}

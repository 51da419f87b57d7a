// Package httptransport is the thin HTTP layer. Handlers decode requests,
// delegate to domain services, and translate domain errors; business logic
// stays in the service packages.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	carmodels "rescar/internal/carpool/models"
	"rescar/internal/platform/middleware"
	resmodels "rescar/internal/reservation/models"
)

// CarService defines the catalog operations the transport needs.
type CarService interface {
	GetOrCreateCar(ctx context.Context, makeName, modelName, carID, registrationNumber string, raiseOnExisting bool) (*carmodels.Car, error)
	UpdateCar(ctx context.Context, carID string, registrationNumber, modelName, makeName *string) (*carmodels.Car, error)
	DeleteCar(ctx context.Context, carID string) (carmodels.Car, error)
	ListCars(ctx context.Context, ascending bool) ([]*carmodels.Car, error)
}

// ReservationService defines the allocation operations the transport needs.
type ReservationService interface {
	MakeReservation(ctx context.Context, requestID uuid.UUID, rentAt time.Time, duration time.Duration, clientName string, dryRun bool) (*resmodels.Reservation, error)
	ReservationByRequestID(ctx context.Context, requestID uuid.UUID) (*resmodels.Reservation, error)
	ListReservations(ctx context.Context) ([]*resmodels.Reservation, error)
}

// Handler handles all public endpoints.
type Handler struct {
	logger       *slog.Logger
	cars         CarService
	reservations ReservationService
}

func NewHandler(cars CarService, reservations ReservationService, logger *slog.Logger) *Handler {
	return &Handler{
		logger:       logger,
		cars:         cars,
		reservations: reservations,
	}
}

// NewRouter wires all public endpoints behind the shared middleware chain.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/cars", func(r chi.Router) {
		r.Post("/", h.handleAddCar)
		r.Get("/", h.handleListCars)
		r.Patch("/{carID}", h.handleUpdateCar)
		r.Delete("/{carID}", h.handleDeleteCar)
	})

	r.Route("/reservations", func(r chi.Router) {
		r.Post("/", h.handleMakeReservation)
		r.Get("/", h.handleListReservations)
		r.Get("/{requestID}", h.handleGetReservation)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Package service implements the reservation allocator. A reservation is
// claimed by inserting a tentative row and verifying the claim with a
// recount, so contention is detected after the fact instead of prevented
// with locks.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"rescar/internal/audit"
	carmodels "rescar/internal/carpool/models"
	"rescar/internal/reservation/metrics"
	"rescar/internal/reservation/models"
	dErrors "rescar/pkg/domain-errors"
	"rescar/pkg/platform/sentinel"
)

// trialLimit bounds how many candidate cars one allocation attempt may claim
// before giving up.
const trialLimit = 10

// ReservationStore is the persistence boundary for the allocator. Inserts
// must be atomic and immediately visible to concurrent readers, and
// CountOverlapping must observe the caller's own prior insert.
type ReservationStore interface {
	AvailableCars(ctx context.Context, rentAt, returnAt time.Time, limit int) ([]*carmodels.Car, error)
	CreateReservation(ctx context.Context, r *models.Reservation) error
	CountOverlapping(ctx context.Context, carID uuid.UUID, rentAt, returnAt time.Time) (int, error)
	CommitReservation(ctx context.Context, id, requestID uuid.UUID, now time.Time) error
	DeleteReservation(ctx context.Context, id uuid.UUID) error
	FindByRequestID(ctx context.Context, requestID uuid.UUID) (*models.Reservation, error)
	ListReservations(ctx context.Context) ([]*models.Reservation, error)
}

// IdempotencyCache is an optional fast path for committed-reservation lookups
// by request ID. Misses return sentinel.ErrNotFound.
type IdempotencyCache interface {
	Get(ctx context.Context, requestID uuid.UUID) (*models.Reservation, error)
	Set(ctx context.Context, r *models.Reservation) error
}

// AuditPublisher receives structured audit events from the allocator.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service runs the allocation protocol against a shared store.
type Service struct {
	store          ReservationStore
	cache          IdempotencyCache
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithIdempotencyCache(cache IdempotencyCache) Option {
	return func(s *Service) { s.cache = cache }
}

func New(store ReservationStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		tracer: otel.Tracer("rescar.reservation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MakeReservation allocates a car for [rentAt, rentAt+duration) and commits a
// reservation carrying requestID as its idempotency token. In dry-run mode
// the first candidate is returned as an unsaved reservation and nothing is
// written. With no in-process locking, a lost race shows up as a recount
// above one and moves the attempt to the next candidate.
func (s *Service) MakeReservation(ctx context.Context, requestID uuid.UUID, rentAt time.Time, duration time.Duration, clientName string, dryRun bool) (*models.Reservation, error) {
	returnAt := rentAt.Add(duration)

	ctx, span := s.tracer.Start(ctx, "reservation.MakeReservation",
		trace.WithAttributes(
			attribute.String("reservation.request_id", requestID.String()),
			attribute.Bool("reservation.dry_run", dryRun),
		))
	defer span.End()

	s.logger.InfoContext(ctx, "requested car reservation",
		"request_id", requestID,
		"rent_at", rentAt,
		"return_at", returnAt,
		"duration", duration,
	)
	s.emitAudit(ctx, audit.Event{
		Action:    audit.ActionReservationRequested,
		RequestID: requestID.String(),
		RentAt:    rentAt,
		ReturnAt:  returnAt,
	})

	candidates, err := s.store.AvailableCars(ctx, rentAt, returnAt, trialLimit+1)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch available cars")
	}
	if len(candidates) == 0 {
		s.logger.WarnContext(ctx, "no car available", "request_id", requestID)
		s.emitAudit(ctx, audit.Event{
			Action:    audit.ActionNoCarAvailable,
			RequestID: requestID.String(),
			RentAt:    rentAt,
			ReturnAt:  returnAt,
		})
		if s.metrics != nil {
			s.metrics.NoCarAvailable.Inc()
		}
		return nil, dErrors.New(dErrors.CodeNoCarAvailable, "no car available")
	}

	for trial, car := range candidates {
		if trial == trialLimit {
			break
		}

		now := time.Now()
		reservation := &models.Reservation{
			ID:         uuid.New(),
			CarID:      car.ID,
			RentAt:     rentAt,
			ReturnAt:   returnAt,
			ClientName: clientName,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		// In dry-run mode the unsaved tentative reservation is returned
		// as-is; the token is only ever attached at commit.
		if dryRun {
			return reservation, nil
		}

		if err := s.store.CreateReservation(ctx, reservation); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to insert tentative reservation")
		}

		count, err := s.store.CountOverlapping(ctx, car.ID, rentAt, returnAt)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to recount reservations")
		}

		switch {
		case count == 0:
			// Our own insert is not visible. The store broke
			// read-your-writes, nothing sane can happen after this.
			s.logger.ErrorContext(ctx, "own tentative reservation missing on recount",
				"request_id", requestID,
				"car_id", car.CarID,
				"trial", trial+1,
				"candidates", len(candidates),
			)
			s.emitAudit(ctx, audit.Event{
				Action:     audit.ActionOwnReservationMissing,
				RequestID:  requestID.String(),
				CarID:      car.CarID,
				Trial:      trial + 1,
				Candidates: strconv.Itoa(len(candidates)),
			})
			return nil, dErrors.New(dErrors.CodeInternal, "own reservation not visible on recount").
				With("car_id", car.CarID)
		case count == 1:
			if err := s.store.CommitReservation(ctx, reservation.ID, requestID, time.Now()); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit reservation")
			}
			reservation.RequestID = &requestID
			s.logger.InfoContext(ctx, "committed reservation",
				"request_id", requestID,
				"car_id", car.CarID,
				"trial", trial+1,
			)
			if s.metrics != nil {
				s.metrics.ReservationsCommitted.Inc()
			}
			s.cacheCommitted(ctx, reservation)
			return reservation, nil
		default:
			// Lost the race for this car, release our claim and move on.
			if err := s.store.DeleteReservation(ctx, reservation.ID); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to roll back tentative reservation")
			}
			if s.metrics != nil {
				s.metrics.ReservationRollbacks.Inc()
			}
		}
	}

	rendered := renderCandidateCount(len(candidates))
	s.logger.WarnContext(ctx, "failed to reserve a car",
		"request_id", requestID,
		"candidates", rendered,
	)
	s.emitAudit(ctx, audit.Event{
		Action:     audit.ActionReservationFailed,
		RequestID:  requestID.String(),
		RentAt:     rentAt,
		ReturnAt:   returnAt,
		Candidates: rendered,
	})
	if s.metrics != nil {
		s.metrics.TrialsExhausted.Inc()
	}
	return nil, dErrors.New(dErrors.CodeFailedAttempt, "failed to reserve a car").
		With("candidates", rendered)
}

// ReservationByRequestID returns the committed reservation carrying the given
// idempotency token, or (nil, nil) when none exists. The Redis cache, when
// wired, is consulted first.
func (s *Service) ReservationByRequestID(ctx context.Context, requestID uuid.UUID) (*models.Reservation, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, requestID)
		if err == nil {
			if s.metrics != nil {
				s.metrics.IdempotencyCacheHits.Inc()
			}
			return cached, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "idempotency cache lookup failed", "error", err)
		}
	}

	r, err := s.store.FindByRequestID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up reservation")
	}
	s.cacheCommitted(ctx, r)
	return r, nil
}

// ListReservations returns every reservation, tentative rows included.
// Ordering and filtering are left to the caller.
func (s *Service) ListReservations(ctx context.Context) ([]*models.Reservation, error) {
	reservations, err := s.store.ListReservations(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list reservations")
	}
	return reservations, nil
}

func (s *Service) cacheCommitted(ctx context.Context, r *models.Reservation) {
	if s.cache == nil || r == nil || !r.Committed() {
		return
	}
	if err := s.cache.Set(ctx, r); err != nil {
		s.logger.WarnContext(ctx, "failed to cache committed reservation", "error", err)
	}
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, event)
}

// renderCandidateCount reports how many candidates were in play. When the
// fetch hit its cap the true number is unknown, only a lower bound.
func renderCandidateCount(count int) string {
	if count == trialLimit+1 {
		return ">" + strconv.Itoa(count)
	}
	return strconv.Itoa(count)
}

// Package store provides reservation persistence with the same two backends
// as the catalog: in-memory for tests and standalone runs, PostgreSQL for
// production. Overlap counting always includes tentative rows.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	carmodels "rescar/internal/carpool/models"
	carstore "rescar/internal/carpool/store"
	"rescar/internal/reservation/models"
	"rescar/pkg/platform/sentinel"
)

// Memory keeps reservations in process memory. It shares the catalog's
// in-memory store so candidate selection sees the same cars.
type Memory struct {
	mu           sync.RWMutex
	catalog      *carstore.Memory
	reservations map[uuid.UUID]models.Reservation
}

func NewMemory(catalog *carstore.Memory) *Memory {
	return &Memory{
		catalog:      catalog,
		reservations: make(map[uuid.UUID]models.Reservation),
	}
}

// AvailableCars returns up to limit cars with no reservation, tentative or
// committed, overlapping [rentAt, returnAt), ordered by car identifier.
func (s *Memory) AvailableCars(ctx context.Context, rentAt, returnAt time.Time, limit int) ([]*carmodels.Car, error) {
	cars, err := s.catalog.ListCars(ctx, true)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	available := make([]*carmodels.Car, 0, limit)
	for _, car := range cars {
		if s.countOverlappingLocked(car.ID, rentAt, returnAt) == 0 {
			available = append(available, car)
			if len(available) == limit {
				break
			}
		}
	}
	return available, nil
}

func (s *Memory) CreateReservation(_ context.Context, r *models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations[r.ID] = *r
	return nil
}

// CountOverlapping counts every reservation of the car, tentative included,
// that overlaps [rentAt, returnAt).
func (s *Memory) CountOverlapping(_ context.Context, carID uuid.UUID, rentAt, returnAt time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countOverlappingLocked(carID, rentAt, returnAt), nil
}

func (s *Memory) countOverlappingLocked(carID uuid.UUID, rentAt, returnAt time.Time) int {
	count := 0
	for _, r := range s.reservations {
		if r.CarID == carID && r.Overlaps(rentAt, returnAt) {
			count++
		}
	}
	return count
}

// CommitReservation attaches the idempotency token to a tentative row.
func (s *Memory) CommitReservation(_ context.Context, id, requestID uuid.UUID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	r.RequestID = &requestID
	r.UpdatedAt = now
	s.reservations[id] = r
	return nil
}

func (s *Memory) DeleteReservation(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.reservations, id)
	return nil
}

func (s *Memory) FindByRequestID(_ context.Context, requestID uuid.UUID) (*models.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reservations {
		if r.RequestID != nil && *r.RequestID == requestID {
			found := r
			return &found, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ListReservations returns every reservation, tentative rows included,
// ordered by rental start.
func (s *Memory) ListReservations(_ context.Context) ([]*models.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Reservation, 0, len(s.reservations))
	for _, r := range s.reservations {
		found := r
		out = append(out, &found)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RentAt.Before(out[j].RentAt)
	})
	return out, nil
}

// Package models holds the reservation entity.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Reservation is a time-bounded claim on a car. A reservation is tentative
// while RequestID is nil and committed once the caller's idempotency token is
// attached. Tentative rows participate in overlap counting so concurrent
// allocators see each other's claims.
type Reservation struct {
	ID         uuid.UUID  `json:"id"`
	CarID      uuid.UUID  `json:"car_id"`
	RentAt     time.Time  `json:"to_rent_at"`
	ReturnAt   time.Time  `json:"to_return_at"`
	RequestID  *uuid.UUID `json:"request_id,omitempty"`
	ClientName string     `json:"client_name,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Committed reports whether the idempotency token has been attached.
func (r *Reservation) Committed() bool {
	return r.RequestID != nil
}

// Duration is the length of the reserved interval.
func (r *Reservation) Duration() time.Duration {
	return r.ReturnAt.Sub(r.RentAt)
}

// Overlaps applies the interval overlap predicate between this reservation
// and the requested interval [rentAt, returnAt): true when this reservation
// is fully contained in the request, or either of its boundaries falls
// strictly inside it.
func (r *Reservation) Overlaps(rentAt, returnAt time.Time) bool {
	es, ee := r.RentAt, r.ReturnAt
	return (!es.Before(rentAt) && !ee.After(returnAt)) ||
		(es.Before(rentAt) && ee.After(rentAt)) ||
		(es.Before(returnAt) && ee.After(returnAt))
}

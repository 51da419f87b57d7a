// Package audit captures structured events emitted from domain logic. Events
// are transport-agnostic so stores and sinks can fan out.
package audit

import "time"

// Actions emitted by the reservation allocator and the catalog registry.
// Consumed by observability; field sets are contract-tested.
const (
	ActionReservationRequested  = "reservation_requested"
	ActionNoCarAvailable        = "no_car_available"
	ActionOwnReservationMissing = "own_reservation_missing"
	ActionReservationFailed     = "reservation_failed"
	ActionCarDeleteRequested    = "car_delete_requested"
	ActionCarDeleteNotFound     = "car_delete_not_found"
	ActionCarDeleted            = "car_deleted"
)

// Event is emitted from domain logic to capture key actions. Only the fields
// relevant to the action are set.
type Event struct {
	Timestamp  time.Time
	Action     string
	RequestID  string
	CarID      string
	RentAt     time.Time
	ReturnAt   time.Time
	Trial      int
	Candidates string
}

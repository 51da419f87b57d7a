// Package models holds the catalog entities: makes, models under a make, and
// cars under a model. Deduplication identity is the normalized form of the
// display names; normalized keys live in the store layer, never on these types.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Make is a car manufacturer. OfficialName carries the legal form (including
// Ltd. or GmbH) and defaults to Name when not supplied.
type Make struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	OfficialName string    `json:"official_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Model is a car model owned by exactly one make.
type Model struct {
	ID        uuid.UUID `json:"id"`
	MakeID    uuid.UUID `json:"make_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Car is a physical resource owned by exactly one model.
//
// Invariants:
//   - CarID is immutable and globally unique
//   - reassigning the model happens together with the model's make, never
//     independently
type Car struct {
	ID                 uuid.UUID `json:"id"`
	ModelID            uuid.UUID `json:"model_id"`
	CarID              string    `json:"car_id"`
	RegistrationNumber string    `json:"registration_number"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Detached returns a snapshot of the car with its persistent identity cleared.
// DeleteCar hands this back so callers can observe what was removed without
// mistaking the value for a live record.
func (c Car) Detached() Car {
	c.ID = uuid.Nil
	return c
}

// Package service implements the catalog registry: find-or-create and
// update/delete semantics over makes, models, and cars, deduplicated on
// case/diacritic-insensitive names.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"rescar/internal/audit"
	"rescar/internal/carpool/metrics"
	"rescar/internal/carpool/models"
	dErrors "rescar/pkg/domain-errors"
	"rescar/pkg/platform/sentinel"
	"rescar/pkg/textnorm"
)

// CatalogStore is the persistence boundary for catalog entities. Find methods
// match on normalized name keys; Create methods return sentinel.ErrConflict
// when a uniqueness constraint rejects the write.
type CatalogStore interface {
	CreateMake(ctx context.Context, m *models.Make) error
	FindMake(ctx context.Context, name, officialName string) (*models.Make, error)
	FindMakeByID(ctx context.Context, id uuid.UUID) (*models.Make, error)
	CreateModel(ctx context.Context, model *models.Model) error
	FindModel(ctx context.Context, makeID uuid.UUID, name string) (*models.Model, error)
	FindModelByID(ctx context.Context, id uuid.UUID) (*models.Model, error)
	UpdateModelMake(ctx context.Context, modelID, makeID uuid.UUID, now time.Time) error
	CreateCar(ctx context.Context, car *models.Car) error
	FindCarByCarID(ctx context.Context, carID string) (*models.Car, error)
	UpdateCar(ctx context.Context, car *models.Car) error
	DeleteCar(ctx context.Context, id uuid.UUID) error
	ListCars(ctx context.Context, ascending bool) ([]*models.Car, error)
	CountCars(ctx context.Context) (int, error)
}

// StoreTx runs a function within a single store transaction.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuditPublisher receives structured audit events from the registry.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates catalog operations.
type Service struct {
	store          CatalogStore
	tx             StoreTx
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

func WithTx(tx StoreTx) Option {
	return func(s *Service) { s.tx = tx }
}

// New constructs a Service. Without WithTx the service falls back to a
// pass-through runner, which is what the in-memory store needs.
func New(store CatalogStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tx:     passthroughTx{},
		logger: slog.Default(),
		tracer: otel.Tracer("rescar.carpool"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreateMake retrieves the make matching name (or officialName when
// given) under normalized comparison, or creates a new one. An omitted
// officialName defaults to name at creation time.
func (s *Service) GetOrCreateMake(ctx context.Context, name, officialName string, raiseOnExisting bool) (*models.Make, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "empty name")
	}

	ctx, span := s.tracer.Start(ctx, "carpool.GetOrCreateMake",
		trace.WithAttributes(attribute.String("make.name", name)))
	defer span.End()

	existing, err := s.store.FindMake(ctx, name, officialName)
	switch {
	case err == nil:
		if raiseOnExisting {
			return nil, alreadyExists("make", name)
		}
		return existing, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up make")
	}

	if officialName == "" {
		officialName = name
	}
	now := time.Now()
	m := &models.Make{
		ID:           uuid.New(),
		Name:         name,
		OfficialName: officialName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateMake(ctx, m); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost a creation race; the winner is our match.
			if raiseOnExisting {
				return nil, alreadyExists("make", name)
			}
			winner, ferr := s.store.FindMake(ctx, name, officialName)
			if ferr != nil {
				return nil, dErrors.Wrap(ferr, dErrors.CodeInternal, "failed to resolve make after conflict")
			}
			return winner, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create make")
	}
	if s.metrics != nil {
		s.metrics.MakesCreated.Inc()
	}
	return m, nil
}

// GetOrCreateModel resolves the make by name (never raising on existing) and
// retrieves or creates the model under it.
func (s *Service) GetOrCreateModel(ctx context.Context, makeName, modelName string, raiseOnExisting bool) (*models.Model, error) {
	m, err := s.GetOrCreateMake(ctx, makeName, "", false)
	if err != nil {
		return nil, err
	}
	return s.GetOrCreateModelForMake(ctx, m, modelName, raiseOnExisting)
}

// GetOrCreateModelForMake retrieves or creates a model under an already
// resolved make. Dedup identity is (normalized name, make).
func (s *Service) GetOrCreateModelForMake(ctx context.Context, m *models.Make, modelName string, raiseOnExisting bool) (*models.Model, error) {
	ctx, span := s.tracer.Start(ctx, "carpool.GetOrCreateModel",
		trace.WithAttributes(attribute.String("model.name", modelName)))
	defer span.End()

	existing, err := s.store.FindModel(ctx, m.ID, modelName)
	switch {
	case err == nil:
		if raiseOnExisting {
			return nil, alreadyExists("model", modelName)
		}
		return existing, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up model")
	}

	now := time.Now()
	model := &models.Model{
		ID:        uuid.New(),
		MakeID:    m.ID,
		Name:      modelName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateModel(ctx, model); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			if raiseOnExisting {
				return nil, alreadyExists("model", modelName)
			}
			winner, ferr := s.store.FindModel(ctx, m.ID, modelName)
			if ferr != nil {
				return nil, dErrors.Wrap(ferr, dErrors.CodeInternal, "failed to resolve model after conflict")
			}
			return winner, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create model")
	}
	if s.metrics != nil {
		s.metrics.ModelsCreated.Inc()
	}
	return model, nil
}

// GetOrCreateCar retrieves the car with the given identifier or creates it,
// resolving make and model on demand. An existing car must carry consistent
// attributes: registration number, model, and make are compared in that order
// and the first mismatch fails with expected/found context.
func (s *Service) GetOrCreateCar(ctx context.Context, makeName, modelName, carID, registrationNumber string, raiseOnExisting bool) (*models.Car, error) {
	if err := models.ValidateCarID(carID); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "carpool.GetOrCreateCar",
		trace.WithAttributes(attribute.String("car.car_id", carID)))
	defer span.End()

	m, err := s.GetOrCreateMake(ctx, makeName, "", false)
	if err != nil {
		return nil, err
	}
	model, err := s.GetOrCreateModelForMake(ctx, m, modelName, false)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.FindCarByCarID(ctx, carID)
	switch {
	case err == nil:
		return s.matchExistingCar(ctx, existing, m, model, carID, registrationNumber, raiseOnExisting)
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up car")
	}

	now := time.Now()
	car := &models.Car{
		ID:                 uuid.New(),
		ModelID:            model.ID,
		CarID:              carID,
		RegistrationNumber: registrationNumber,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.CreateCar(ctx, car); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			winner, ferr := s.store.FindCarByCarID(ctx, carID)
			if ferr != nil {
				return nil, dErrors.Wrap(ferr, dErrors.CodeInternal, "failed to resolve car after conflict")
			}
			return s.matchExistingCar(ctx, winner, m, model, carID, registrationNumber, raiseOnExisting)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create car")
	}
	if s.metrics != nil {
		s.metrics.CarsCreated.Inc()
	}
	return car, nil
}

func (s *Service) matchExistingCar(ctx context.Context, existing *models.Car, m *models.Make, model *models.Model, carID, registrationNumber string, raiseOnExisting bool) (*models.Car, error) {
	if raiseOnExisting {
		return nil, alreadyExists("car", carID)
	}

	if registrationNumber != existing.RegistrationNumber {
		return nil, dErrors.New(dErrors.CodeInconsistent, "wrong registration number").
			With("expected", registrationNumber).
			With("found", existing.RegistrationNumber)
	}

	existingModel, err := s.store.FindModelByID(ctx, existing.ModelID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load model of existing car")
	}
	if textnorm.Normalize(model.Name) != textnorm.Normalize(existingModel.Name) {
		return nil, dErrors.New(dErrors.CodeInconsistent, "wrong model").
			With("expected", model.Name).
			With("found", existingModel.Name)
	}
	if m.ID != existingModel.MakeID {
		existingMake, err := s.store.FindMakeByID(ctx, existingModel.MakeID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load make of existing car")
		}
		return nil, dErrors.New(dErrors.CodeInconsistent, "wrong make").
			With("expected", m.Name).
			With("found", existingMake.Name)
	}
	return existing, nil
}

// UpdateCar updates the registration number and/or the model+make pair of the
// car selected by carID. Model and make travel together so the car is never
// reassigned to a model under a stale make. The whole path runs in a single
// store transaction and returns the car re-read after the update.
func (s *Service) UpdateCar(ctx context.Context, carID string, registrationNumber, modelName, makeName *string) (*models.Car, error) {
	if registrationNumber == nil && modelName == nil && makeName == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "missing at least one attribute to be updated")
	}
	if (modelName == nil) != (makeName == nil) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "make and model have to be updated together or none of them")
	}
	if err := models.ValidateCarID(carID); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "carpool.UpdateCar",
		trace.WithAttributes(attribute.String("car.car_id", carID)))
	defer span.End()

	var updated *models.Car
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		car, err := s.findCar(ctx, carID)
		if err != nil {
			return err
		}

		now := time.Now()
		if modelName != nil {
			m, err := s.GetOrCreateMake(ctx, *makeName, "", false)
			if err != nil {
				return err
			}
			model, err := s.GetOrCreateModelForMake(ctx, m, *modelName, false)
			if err != nil {
				return err
			}
			car.ModelID = model.ID
			// The make reassignment is applied to the model, never
			// transitively through the car.
			if err := s.store.UpdateModelMake(ctx, model.ID, m.ID, now); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reassign model make")
			}
		}
		if registrationNumber != nil {
			car.RegistrationNumber = *registrationNumber
		}
		car.UpdatedAt = now
		if err := s.store.UpdateCar(ctx, car); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update car")
		}

		updated, err = s.findCar(ctx, carID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteCar removes the car selected by carID and returns a detached snapshot
// of its prior state.
func (s *Service) DeleteCar(ctx context.Context, carID string) (models.Car, error) {
	if err := models.ValidateCarID(carID); err != nil {
		return models.Car{}, err
	}

	ctx, span := s.tracer.Start(ctx, "carpool.DeleteCar",
		trace.WithAttributes(attribute.String("car.car_id", carID)))
	defer span.End()

	s.logger.InfoContext(ctx, "requested car delete", "car_id", carID)
	s.emitAudit(ctx, audit.Event{Action: audit.ActionCarDeleteRequested, CarID: carID})

	car, err := s.findCar(ctx, carID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.logger.ErrorContext(ctx, "not found car for deletion", "car_id", carID)
			s.emitAudit(ctx, audit.Event{Action: audit.ActionCarDeleteNotFound, CarID: carID})
		}
		return models.Car{}, err
	}

	if err := s.store.DeleteCar(ctx, car.ID); err != nil {
		return models.Car{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete car")
	}
	s.logger.InfoContext(ctx, "successfully deleted car", "car_id", carID)
	s.emitAudit(ctx, audit.Event{Action: audit.ActionCarDeleted, CarID: carID})
	if s.metrics != nil {
		s.metrics.CarsDeleted.Inc()
	}
	return car.Detached(), nil
}

// ListCars returns all cars ordered by their internal car ID.
func (s *Service) ListCars(ctx context.Context, ascending bool) ([]*models.Car, error) {
	cars, err := s.store.ListCars(ctx, ascending)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list cars")
	}
	return cars, nil
}

func (s *Service) findCar(ctx context.Context, carID string) (*models.Car, error) {
	car, err := s.store.FindCarByCarID(ctx, carID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "not found car with car_id="+carID).
				With("car_id", carID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up car")
	}
	return car, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, event)
}

func alreadyExists(kind, value string) error {
	return dErrors.New(dErrors.CodeAlreadyExists, kind+" already exists").
		With("kind", kind).
		With("value", value)
}

// passthroughTx is the default transaction runner for stores without
// transactional semantics.
type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

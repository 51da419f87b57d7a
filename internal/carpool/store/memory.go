// Package store provides catalog persistence. The in-memory implementation
// backs tests and standalone runs; PostgreSQL backs production. Both enforce
// uniqueness on normalized name keys so concurrent get-or-create calls cannot
// produce duplicates.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"rescar/internal/carpool/models"
	"rescar/pkg/platform/sentinel"
	"rescar/pkg/textnorm"
)

type modelKey struct {
	makeID  uuid.UUID
	nameKey string
}

// Memory keeps the catalog in process memory guarded by a single lock, which
// gives the same atomic-insert visibility the SQL store gets from unique
// indexes.
type Memory struct {
	mu              sync.RWMutex
	makes           map[uuid.UUID]models.Make
	makesByName     map[string]uuid.UUID
	makesByOfficial map[string]uuid.UUID
	carModels       map[uuid.UUID]models.Model
	carModelsByKey  map[modelKey]uuid.UUID
	cars            map[uuid.UUID]models.Car
	carsByCarID     map[string]uuid.UUID
}

func NewMemory() *Memory {
	return &Memory{
		makes:           make(map[uuid.UUID]models.Make),
		makesByName:     make(map[string]uuid.UUID),
		makesByOfficial: make(map[string]uuid.UUID),
		carModels:       make(map[uuid.UUID]models.Model),
		carModelsByKey:  make(map[modelKey]uuid.UUID),
		cars:            make(map[uuid.UUID]models.Car),
		carsByCarID:     make(map[string]uuid.UUID),
	}
}

func (s *Memory) CreateMake(_ context.Context, m *models.Make) error {
	nameKey := textnorm.Normalize(m.Name)
	officialKey := textnorm.Normalize(m.OfficialName)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.makesByName[nameKey]; taken {
		return sentinel.ErrConflict
	}
	if _, taken := s.makesByOfficial[officialKey]; taken {
		return sentinel.ErrConflict
	}
	s.makes[m.ID] = *m
	s.makesByName[nameKey] = m.ID
	s.makesByOfficial[officialKey] = m.ID
	return nil
}

// FindMake matches by normalized name, or by normalized official name when
// officialName is non-empty.
func (s *Memory) FindMake(_ context.Context, name, officialName string) (*models.Make, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.makesByName[textnorm.Normalize(name)]; ok {
		found := s.makes[id]
		return &found, nil
	}
	if officialName != "" {
		if id, ok := s.makesByOfficial[textnorm.Normalize(officialName)]; ok {
			found := s.makes[id]
			return &found, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *Memory) FindMakeByID(_ context.Context, id uuid.UUID) (*models.Make, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if found, ok := s.makes[id]; ok {
		return &found, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *Memory) CreateModel(_ context.Context, model *models.Model) error {
	key := modelKey{makeID: model.MakeID, nameKey: textnorm.Normalize(model.Name)}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.carModelsByKey[key]; taken {
		return sentinel.ErrConflict
	}
	s.carModels[model.ID] = *model
	s.carModelsByKey[key] = model.ID
	return nil
}

func (s *Memory) FindModel(_ context.Context, makeID uuid.UUID, name string) (*models.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.carModelsByKey[modelKey{makeID: makeID, nameKey: textnorm.Normalize(name)}]; ok {
		found := s.carModels[id]
		return &found, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *Memory) FindModelByID(_ context.Context, id uuid.UUID) (*models.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if found, ok := s.carModels[id]; ok {
		return &found, nil
	}
	return nil, sentinel.ErrNotFound
}

// UpdateModelMake reassigns a model to another make and reindexes its
// dedup key, which includes the owning make.
func (s *Memory) UpdateModelMake(_ context.Context, modelID, makeID uuid.UUID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	model, ok := s.carModels[modelID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if model.MakeID == makeID {
		return nil
	}
	nameKey := textnorm.Normalize(model.Name)
	newKey := modelKey{makeID: makeID, nameKey: nameKey}
	if _, taken := s.carModelsByKey[newKey]; taken {
		return sentinel.ErrConflict
	}
	delete(s.carModelsByKey, modelKey{makeID: model.MakeID, nameKey: nameKey})
	model.MakeID = makeID
	model.UpdatedAt = now
	s.carModels[modelID] = model
	s.carModelsByKey[newKey] = modelID
	return nil
}

func (s *Memory) CreateCar(_ context.Context, car *models.Car) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.carsByCarID[car.CarID]; taken {
		return sentinel.ErrConflict
	}
	s.cars[car.ID] = *car
	s.carsByCarID[car.CarID] = car.ID
	return nil
}

func (s *Memory) FindCarByCarID(_ context.Context, carID string) (*models.Car, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.carsByCarID[carID]; ok {
		found := s.cars[id]
		return &found, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *Memory) UpdateCar(_ context.Context, car *models.Car) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cars[car.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.cars[car.ID] = *car
	return nil
}

func (s *Memory) DeleteCar(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	car, ok := s.cars[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.cars, id)
	delete(s.carsByCarID, car.CarID)
	return nil
}

func (s *Memory) ListCars(_ context.Context, ascending bool) ([]*models.Car, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cars := make([]*models.Car, 0, len(s.cars))
	for _, car := range s.cars {
		c := car
		cars = append(cars, &c)
	}
	sort.Slice(cars, func(i, j int) bool {
		if ascending {
			return cars[i].CarID < cars[j].CarID
		}
		return cars[i].CarID > cars[j].CarID
	})
	return cars, nil
}

func (s *Memory) CountCars(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cars), nil
}

//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"rescar/internal/carpool/models"
	"rescar/internal/carpool/store"
	"rescar/pkg/platform/sentinel"
	"rescar/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"reservations", "cars", "car_models", "car_makes")
	s.Require().NoError(err)
}

func newMake(name, officialName string) *models.Make {
	now := time.Now()
	return &models.Make{
		ID:           uuid.New(),
		Name:         name,
		OfficialName: officialName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// TestConcurrentMakeCreation verifies that concurrent creation attempts with
// the same normalized name result in exactly one success.
func (s *PostgresStoreSuite) TestConcurrentMakeCreation() {
	ctx := context.Background()
	const goroutines = 50

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.CreateMake(ctx, newMake("Škoda", "Škoda Auto"))
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should get conflict")
}

// TestMakeLookupNormalization verifies diacritic and case-insensitive
// matching against the persisted name keys.
func (s *PostgresStoreSuite) TestMakeLookupNormalization() {
	ctx := context.Background()

	created := newMake("Škoda", "Škoda Auto a.s.")
	s.Require().NoError(s.store.CreateMake(ctx, created))

	found, err := s.store.FindMake(ctx, "SKODA", "")
	s.Require().NoError(err)
	s.Equal(created.ID, found.ID)
	s.Equal("Škoda", found.Name)

	byOfficial, err := s.store.FindMake(ctx, "nope", "skoda auto A.S.")
	s.Require().NoError(err)
	s.Equal(created.ID, byOfficial.ID)

	_, err = s.store.FindMake(ctx, "nope", "")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) createCar(carID string) (*models.Make, *models.Model, *models.Car) {
	ctx := context.Background()
	now := time.Now()

	m := newMake("VW "+uuid.NewString(), "VW GmbH "+uuid.NewString())
	s.Require().NoError(s.store.CreateMake(ctx, m))

	model := &models.Model{
		ID: uuid.New(), MakeID: m.ID, Name: "Golf " + uuid.NewString(),
		CreatedAt: now, UpdatedAt: now,
	}
	s.Require().NoError(s.store.CreateModel(ctx, model))

	car := &models.Car{
		ID: uuid.New(), ModelID: model.ID, CarID: carID,
		RegistrationNumber: "AB-123-C", CreatedAt: now, UpdatedAt: now,
	}
	s.Require().NoError(s.store.CreateCar(ctx, car))
	return m, model, car
}

// TestCarIdentifierUniqueness verifies the unique constraint on car_id.
func (s *PostgresStoreSuite) TestCarIdentifierUniqueness() {
	ctx := context.Background()

	_, model, _ := s.createCar("C25")

	now := time.Now()
	dupe := &models.Car{
		ID: uuid.New(), ModelID: model.ID, CarID: "C25",
		RegistrationNumber: "ZZ-999-Z", CreatedAt: now, UpdatedAt: now,
	}
	s.ErrorIs(s.store.CreateCar(ctx, dupe), sentinel.ErrConflict)
}

// TestModelMakeReassignment verifies UpdateModelMake moves the model and
// keeps the (make, name) uniqueness intact.
func (s *PostgresStoreSuite) TestModelMakeReassignment() {
	ctx := context.Background()

	_, model, _ := s.createCar("C1")
	target := newMake("Audi "+uuid.NewString(), "Audi AG "+uuid.NewString())
	s.Require().NoError(s.store.CreateMake(ctx, target))

	s.Require().NoError(s.store.UpdateModelMake(ctx, model.ID, target.ID, time.Now()))

	moved, err := s.store.FindModelByID(ctx, model.ID)
	s.Require().NoError(err)
	s.Equal(target.ID, moved.MakeID)

	s.ErrorIs(s.store.UpdateModelMake(ctx, uuid.New(), target.ID, time.Now()), sentinel.ErrNotFound)
}

// TestListAndDelete verifies ordering, deletion, and counting.
func (s *PostgresStoreSuite) TestListAndDelete() {
	ctx := context.Background()

	s.createCar("C2")
	s.createCar("C1")
	_, _, c3 := s.createCar("C3")

	cars, err := s.store.ListCars(ctx, true)
	s.Require().NoError(err)
	s.Require().Len(cars, 3)
	s.Equal("C1", cars[0].CarID)
	s.Equal("C3", cars[2].CarID)

	s.Require().NoError(s.store.DeleteCar(ctx, c3.ID))
	s.ErrorIs(s.store.DeleteCar(ctx, c3.ID), sentinel.ErrNotFound)

	count, err := s.store.CountCars(ctx)
	s.Require().NoError(err)
	s.Equal(2, count)
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"rescar/internal/carpool/models"
	"rescar/pkg/platform/sentinel"
	txcontext "rescar/pkg/platform/tx"
	"rescar/pkg/textnorm"
)

// Postgres persists the catalog in PostgreSQL. Normalized name keys are
// stored alongside display names and guarded by unique indexes, so creation
// races surface as unique violations instead of duplicates.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (s *Postgres) CreateMake(ctx context.Context, m *models.Make) error {
	query := `
		INSERT INTO car_makes (id, name, official_name, name_key, official_name_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		m.ID, m.Name, m.OfficialName,
		textnorm.Normalize(m.Name), textnorm.Normalize(m.OfficialName),
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert make: %w", err)
	}
	return nil
}

func (s *Postgres) FindMake(ctx context.Context, name, officialName string) (*models.Make, error) {
	query := `
		SELECT id, name, official_name, created_at, updated_at
		FROM car_makes
		WHERE name_key = $1 OR ($2 <> '' AND official_name_key = $2)
		LIMIT 1
	`
	row := s.execer(ctx).QueryRowContext(ctx, query,
		textnorm.Normalize(name), textnorm.Normalize(officialName))
	return scanMake(row)
}

func (s *Postgres) FindMakeByID(ctx context.Context, id uuid.UUID) (*models.Make, error) {
	query := `
		SELECT id, name, official_name, created_at, updated_at
		FROM car_makes
		WHERE id = $1
	`
	return scanMake(s.execer(ctx).QueryRowContext(ctx, query, id))
}

func scanMake(row *sql.Row) (*models.Make, error) {
	var m models.Make
	err := row.Scan(&m.ID, &m.Name, &m.OfficialName, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan make: %w", err)
	}
	return &m, nil
}

func (s *Postgres) CreateModel(ctx context.Context, model *models.Model) error {
	query := `
		INSERT INTO car_models (id, make_id, name, name_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		model.ID, model.MakeID, model.Name, textnorm.Normalize(model.Name),
		model.CreatedAt, model.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert model: %w", err)
	}
	return nil
}

func (s *Postgres) FindModel(ctx context.Context, makeID uuid.UUID, name string) (*models.Model, error) {
	query := `
		SELECT id, make_id, name, created_at, updated_at
		FROM car_models
		WHERE make_id = $1 AND name_key = $2
	`
	return scanModel(s.execer(ctx).QueryRowContext(ctx, query, makeID, textnorm.Normalize(name)))
}

func (s *Postgres) FindModelByID(ctx context.Context, id uuid.UUID) (*models.Model, error) {
	query := `
		SELECT id, make_id, name, created_at, updated_at
		FROM car_models
		WHERE id = $1
	`
	return scanModel(s.execer(ctx).QueryRowContext(ctx, query, id))
}

func scanModel(row *sql.Row) (*models.Model, error) {
	var m models.Model
	err := row.Scan(&m.ID, &m.MakeID, &m.Name, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan model: %w", err)
	}
	return &m, nil
}

func (s *Postgres) UpdateModelMake(ctx context.Context, modelID, makeID uuid.UUID, now time.Time) error {
	query := `
		UPDATE car_models SET make_id = $2, updated_at = $3 WHERE id = $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query, modelID, makeID, now)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update model make: %w", err)
	}
	return requireRow(result)
}

func (s *Postgres) CreateCar(ctx context.Context, car *models.Car) error {
	query := `
		INSERT INTO cars (id, model_id, car_id, registration_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		car.ID, car.ModelID, car.CarID, car.RegistrationNumber,
		car.CreatedAt, car.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert car: %w", err)
	}
	return nil
}

func (s *Postgres) FindCarByCarID(ctx context.Context, carID string) (*models.Car, error) {
	query := `
		SELECT id, model_id, car_id, registration_number, created_at, updated_at
		FROM cars
		WHERE car_id = $1
	`
	var c models.Car
	err := s.execer(ctx).QueryRowContext(ctx, query, carID).
		Scan(&c.ID, &c.ModelID, &c.CarID, &c.RegistrationNumber, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find car: %w", err)
	}
	return &c, nil
}

func (s *Postgres) UpdateCar(ctx context.Context, car *models.Car) error {
	query := `
		UPDATE cars SET model_id = $2, registration_number = $3, updated_at = $4 WHERE id = $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		car.ID, car.ModelID, car.RegistrationNumber, car.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update car: %w", err)
	}
	return requireRow(result)
}

func (s *Postgres) DeleteCar(ctx context.Context, id uuid.UUID) error {
	result, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM cars WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete car: %w", err)
	}
	return requireRow(result)
}

func (s *Postgres) ListCars(ctx context.Context, ascending bool) ([]*models.Car, error) {
	query := `
		SELECT id, model_id, car_id, registration_number, created_at, updated_at
		FROM cars
		ORDER BY car_id
	`
	if !ascending {
		query += " DESC"
	}
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}
	defer rows.Close()

	var cars []*models.Car
	for rows.Next() {
		var c models.Car
		if err := rows.Scan(&c.ID, &c.ModelID, &c.CarID, &c.RegistrationNumber, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan car: %w", err)
		}
		cars = append(cars, &c)
	}
	return cars, rows.Err()
}

func (s *Postgres) CountCars(ctx context.Context) (int, error) {
	var count int
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM cars`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count cars: %w", err)
	}
	return count, nil
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

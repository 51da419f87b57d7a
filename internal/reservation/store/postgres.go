package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	carmodels "rescar/internal/carpool/models"
	"rescar/internal/reservation/models"
	"rescar/pkg/platform/sentinel"
	txcontext "rescar/pkg/platform/tx"
)

// overlapCondition matches reservations whose interval conflicts with the
// requested [$1=rent_at, $2=return_at): fully contained, or a boundary falls
// strictly inside the request. Touching intervals do not conflict.
const overlapCondition = `(
	(r.rent_at >= $1 AND r.return_at <= $2)
	OR (r.rent_at < $1 AND r.return_at > $1)
	OR (r.rent_at < $2 AND r.return_at > $2)
)`

// Postgres persists reservations in PostgreSQL, sharing the catalog schema.
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

// AvailableCars returns up to limit cars with no conflicting reservation,
// tentative or committed, ordered by car identifier.
func (s *Postgres) AvailableCars(ctx context.Context, rentAt, returnAt time.Time, limit int) ([]*carmodels.Car, error) {
	query := `
		SELECT c.id, c.model_id, c.car_id, c.registration_number, c.created_at, c.updated_at
		FROM cars c
		WHERE NOT EXISTS (
			SELECT 1 FROM reservations r
			WHERE r.car_id = c.id AND ` + overlapCondition + `
		)
		ORDER BY c.car_id
		LIMIT $3
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, rentAt, returnAt, limit)
	if err != nil {
		return nil, fmt.Errorf("select available cars: %w", err)
	}
	defer rows.Close()

	var cars []*carmodels.Car
	for rows.Next() {
		var c carmodels.Car
		if err := rows.Scan(&c.ID, &c.ModelID, &c.CarID, &c.RegistrationNumber, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan available car: %w", err)
		}
		cars = append(cars, &c)
	}
	return cars, rows.Err()
}

func (s *Postgres) CreateReservation(ctx context.Context, r *models.Reservation) error {
	query := `
		INSERT INTO reservations (id, car_id, rent_at, return_at, request_id, client_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		r.ID, r.CarID, r.RentAt, r.ReturnAt, r.RequestID, r.ClientName,
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// CountOverlapping counts every reservation of the car that conflicts with
// [rentAt, returnAt), tentative rows included.
func (s *Postgres) CountOverlapping(ctx context.Context, carID uuid.UUID, rentAt, returnAt time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM reservations r
		WHERE r.car_id = $3 AND ` + overlapCondition
	var count int
	err := s.execer(ctx).QueryRowContext(ctx, query, rentAt, returnAt, carID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count overlapping reservations: %w", err)
	}
	return count, nil
}

func (s *Postgres) CommitReservation(ctx context.Context, id, requestID uuid.UUID, now time.Time) error {
	query := `
		UPDATE reservations SET request_id = $2, updated_at = $3 WHERE id = $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query, id, requestID, now)
	if err != nil {
		return fmt.Errorf("commit reservation: %w", err)
	}
	return requireReservationRow(result)
}

func (s *Postgres) DeleteReservation(ctx context.Context, id uuid.UUID) error {
	result, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	return requireReservationRow(result)
}

func (s *Postgres) FindByRequestID(ctx context.Context, requestID uuid.UUID) (*models.Reservation, error) {
	query := `
		SELECT id, car_id, rent_at, return_at, request_id, client_name, created_at, updated_at
		FROM reservations
		WHERE request_id = $1
	`
	var r models.Reservation
	err := s.execer(ctx).QueryRowContext(ctx, query, requestID).
		Scan(&r.ID, &r.CarID, &r.RentAt, &r.ReturnAt, &r.RequestID, &r.ClientName, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find reservation by request id: %w", err)
	}
	return &r, nil
}

// ListReservations returns every reservation, tentative rows included,
// ordered by rental start.
func (s *Postgres) ListReservations(ctx context.Context) ([]*models.Reservation, error) {
	query := `
		SELECT id, car_id, rent_at, return_at, request_id, client_name, created_at, updated_at
		FROM reservations
		ORDER BY rent_at
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var out []*models.Reservation
	for rows.Next() {
		var r models.Reservation
		if err := rows.Scan(&r.ID, &r.CarID, &r.RentAt, &r.ReturnAt, &r.RequestID, &r.ClientName, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func requireReservationRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

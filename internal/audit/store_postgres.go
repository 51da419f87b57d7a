package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	txcontext "rescar/pkg/platform/tx"
)

// PostgresStore persists audit events in PostgreSQL. Writes join an ambient
// transaction when one is present in the context.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO audit_events (id, action, request_id, car_id, rent_at, return_at, trial, candidates, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.New(),
		event.Action,
		nullString(event.RequestID),
		nullString(event.CarID),
		nullTime(event.RentAt),
		nullTime(event.ReturnAt),
		event.Trial,
		nullString(event.Candidates),
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Event, error) {
	query := `
		SELECT action, COALESCE(request_id, ''), COALESCE(car_id, ''), rent_at, return_at, trial, COALESCE(candidates, ''), created_at
		FROM audit_events
		ORDER BY created_at
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var rentAt, returnAt sql.NullTime
		if err := rows.Scan(&e.Action, &e.RequestID, &e.CarID, &rentAt, &returnAt, &e.Trial, &e.Candidates, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if rentAt.Valid {
			e.RentAt = rentAt.Time
		}
		if returnAt.Valid {
			e.ReturnAt = returnAt.Time
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullTime(value time.Time) sql.NullTime {
	return sql.NullTime{Time: value, Valid: !value.IsZero()}
}

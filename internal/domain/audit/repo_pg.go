package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careflow/careflow/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const entryCols = `id, appointment_id, action, previous_status, new_status,
	previous_date, new_date, previous_time, new_time, reason, notes,
	performed_by_id, performed_by, performed_at`

func (r *repoPG) Insert(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment_audit (id, appointment_id, action, previous_status, new_status,
			previous_date, new_date, previous_time, new_time, reason, notes,
			performed_by_id, performed_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		e.ID, e.AppointmentID, e.Action, e.PreviousStatus, e.NewStatus,
		e.PreviousDate, e.NewDate, e.PreviousTime, e.NewTime, e.Reason, e.Notes,
		e.PerformedByID, e.PerformedBy)
	return err
}

func (r *repoPG) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*Entry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+entryCols+` FROM appointment_audit
		WHERE appointment_id = $1
		ORDER BY performed_at DESC`,
		appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.AppointmentID, &e.Action, &e.PreviousStatus, &e.NewStatus,
			&e.PreviousDate, &e.NewDate, &e.PreviousTime, &e.NewTime, &e.Reason, &e.Notes,
			&e.PerformedByID, &e.PerformedBy, &e.PerformedAt); err != nil {
			return nil, err
		}
		items = append(items, &e)
	}
	return items, rows.Err()
}

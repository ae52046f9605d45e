package schedule

import (
	"context"
	"errors"
	"time"

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

const scheduleCols = `id, doctor_id, day_of_week, start_time, end_time,
	slot_duration_minutes, buffer_minutes, max_appointments_per_slot, is_available,
	location, room, effective_from, effective_to, created_at, updated_at`

func scanSchedule(row pgx.Row) (*DoctorSchedule, error) {
	var s DoctorSchedule
	err := row.Scan(&s.ID, &s.DoctorID, &s.DayOfWeek, &s.StartTime, &s.EndTime,
		&s.SlotDurationMinutes, &s.BufferMinutes, &s.MaxAppointmentsPerSlot, &s.IsAvailable,
		&s.Location, &s.Room, &s.EffectiveFrom, &s.EffectiveTo,
		&s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &s, err
}

func (r *repoPG) Create(ctx context.Context, s *DoctorSchedule) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor_schedule (id, doctor_id, day_of_week, start_time, end_time,
			slot_duration_minutes, buffer_minutes, max_appointments_per_slot, is_available,
			location, room, effective_from, effective_to)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		s.ID, s.DoctorID, s.DayOfWeek, s.StartTime, s.EndTime,
		s.SlotDurationMinutes, s.BufferMinutes, s.MaxAppointmentsPerSlot, s.IsAvailable,
		s.Location, s.Room, s.EffectiveFrom, s.EffectiveTo)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*DoctorSchedule, error) {
	return scanSchedule(r.conn(ctx).QueryRow(ctx,
		`SELECT `+scheduleCols+` FROM doctor_schedule WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, s *DoctorSchedule) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctor_schedule SET day_of_week=$2, start_time=$3, end_time=$4,
			slot_duration_minutes=$5, buffer_minutes=$6, max_appointments_per_slot=$7,
			is_available=$8, location=$9, room=$10,
			effective_from=$11, effective_to=$12, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.DayOfWeek, s.StartTime, s.EndTime,
		s.SlotDurationMinutes, s.BufferMinutes, s.MaxAppointmentsPerSlot,
		s.IsAvailable, s.Location, s.Room,
		s.EffectiveFrom, s.EffectiveTo)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctor_schedule WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*DoctorSchedule, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+scheduleCols+` FROM doctor_schedule WHERE doctor_id = $1 ORDER BY day_of_week, start_time`,
		doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DoctorSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

type overrideRepoPG struct{ pool *pgxpool.Pool }

func NewOverrideRepoPG(pool *pgxpool.Pool) OverrideRepository { return &overrideRepoPG{pool: pool} }

func (r *overrideRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const overrideCols = `id, doctor_id, override_date, type, start_time, end_time, reason, created_at`

func scanOverride(row pgx.Row) (*ScheduleOverride, error) {
	var o ScheduleOverride
	err := row.Scan(&o.ID, &o.DoctorID, &o.OverrideDate, &o.Type, &o.StartTime, &o.EndTime,
		&o.Reason, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOverrideNotFound
	}
	return &o, err
}

func (r *overrideRepoPG) Create(ctx context.Context, o *ScheduleOverride) error {
	o.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO schedule_override (id, doctor_id, override_date, type, start_time, end_time, reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		o.ID, o.DoctorID, o.OverrideDate, o.Type, o.StartTime, o.EndTime, o.Reason)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrOverrideExists
	}
	return err
}

func (r *overrideRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ScheduleOverride, error) {
	return scanOverride(r.conn(ctx).QueryRow(ctx,
		`SELECT `+overrideCols+` FROM schedule_override WHERE id = $1`, id))
}

func (r *overrideRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM schedule_override WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOverrideNotFound
	}
	return nil
}

func (r *overrideRepoPG) FindByDate(ctx context.Context, doctorID uuid.UUID, date time.Time) (*ScheduleOverride, error) {
	return scanOverride(r.conn(ctx).QueryRow(ctx,
		`SELECT `+overrideCols+` FROM schedule_override WHERE doctor_id = $1 AND override_date = $2`,
		doctorID, date))
}

func (r *overrideRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*ScheduleOverride, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+overrideCols+` FROM schedule_override
		WHERE doctor_id = $1 AND override_date >= $2 AND override_date <= $3
		ORDER BY override_date`,
		doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ScheduleOverride
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

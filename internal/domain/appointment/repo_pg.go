package appointment

import (
	"context"
	"errors"
	"fmt"
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

const appointmentCols = `id, appointment_number, patient_id, doctor_id, physician_name,
	appointment_date, start_time, end_time, duration_minutes, type, urgency_level,
	status, reason, notes, cancelled_at, cancelled_by, cancellation_reason,
	rescheduled_to_id, rescheduled_from_id, created_by, updated_by, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.AppointmentNumber, &a.PatientID, &a.DoctorID, &a.PhysicianName,
		&a.Date, &a.StartTime, &a.EndTime, &a.DurationMinutes, &a.Type, &a.UrgencyLevel,
		&a.Status, &a.Reason, &a.Notes, &a.CancelledAt, &a.CancelledBy, &a.CancellationReason,
		&a.RescheduledToID, &a.RescheduledFromID, &a.CreatedBy, &a.UpdatedBy, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (id, appointment_number, patient_id, doctor_id, physician_name,
			appointment_date, start_time, end_time, duration_minutes, type, urgency_level,
			status, reason, notes, rescheduled_from_id, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		a.ID, a.AppointmentNumber, a.PatientID, a.DoctorID, a.PhysicianName,
		a.Date, a.StartTime, a.EndTime, a.DurationMinutes, a.Type, a.UrgencyLevel,
		a.Status, a.Reason, a.Notes, a.RescheduledFromID, a.CreatedBy)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointment WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET doctor_id=$2, physician_name=$3, appointment_date=$4,
			start_time=$5, end_time=$6, duration_minutes=$7, type=$8, urgency_level=$9,
			status=$10, reason=$11, notes=$12, cancelled_at=$13, cancelled_by=$14,
			cancellation_reason=$15, rescheduled_to_id=$16, updated_by=$17, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.DoctorID, a.PhysicianName, a.Date,
		a.StartTime, a.EndTime, a.DurationMinutes, a.Type, a.UrgencyLevel,
		a.Status, a.Reason, a.Notes, a.CancelledAt, a.CancelledBy,
		a.CancellationReason, a.RescheduledToID, a.UpdatedBy)
	return err
}

func (r *repoPG) Search(ctx context.Context, f SearchFilter, limit, offset int) ([]*Appointment, int, error) {
	where := `WHERE 1=1`
	var args []interface{}
	idx := 1

	addArg := func(clause string, v interface{}) {
		where += fmt.Sprintf(clause, idx)
		args = append(args, v)
		idx++
	}
	if f.DoctorID != nil {
		addArg(` AND doctor_id = $%d`, *f.DoctorID)
	}
	if f.PatientID != nil {
		addArg(` AND patient_id = $%d`, *f.PatientID)
	}
	if f.DateFrom != nil {
		addArg(` AND appointment_date >= $%d`, *f.DateFrom)
	}
	if f.DateTo != nil {
		addArg(` AND appointment_date <= $%d`, *f.DateTo)
	}
	if f.Status != "" {
		addArg(` AND status = $%d`, f.Status)
	}
	if f.Type != "" {
		addArg(` AND type = $%d`, f.Type)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sql := fmt.Sprintf(`SELECT %s FROM appointment %s ORDER BY appointment_date DESC, start_time LIMIT $%d OFFSET $%d`,
		appointmentCols, where, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) HasActiveOnDate(ctx context.Context, patientID uuid.UUID, date time.Time) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointment
			WHERE patient_id = $1 AND appointment_date = $2
			  AND status NOT IN ('DRAFT','COMPLETED','CANCELLED','NO_SHOW')
		)`,
		patientID, date).Scan(&exists)
	return exists, err
}

func (r *repoPG) ListForDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+appointmentCols+` FROM appointment
		WHERE doctor_id = $1 AND appointment_date = $2
		  AND status NOT IN ('CANCELLED','NO_SHOW')
		ORDER BY start_time`,
		doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) InsertVitals(ctx context.Context, v *Vitals) error {
	v.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment_vitals (id, appointment_id, weight_kg, height_cm,
			temperature, temperature_unit, heart_rate, respiratory_rate, systolic,
			diastolic, spo2, blood_sugar, pain_score, bmi, recorded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		v.ID, v.AppointmentID, v.WeightKg, v.HeightCm,
		v.Temperature, v.TemperatureUnit, v.HeartRate, v.RespiratoryRate, v.Systolic,
		v.Diastolic, v.SpO2, v.BloodSugar, v.PainScore, v.BMI, v.RecordedBy)
	return err
}

func (r *repoPG) ListVitals(ctx context.Context, appointmentID uuid.UUID) ([]*Vitals, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, appointment_id, weight_kg, height_cm, temperature, temperature_unit,
			heart_rate, respiratory_rate, systolic, diastolic, spo2, blood_sugar,
			pain_score, bmi, recorded_by, recorded_at
		FROM appointment_vitals
		WHERE appointment_id = $1
		ORDER BY recorded_at DESC`,
		appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Vitals
	for rows.Next() {
		var v Vitals
		if err := rows.Scan(&v.ID, &v.AppointmentID, &v.WeightKg, &v.HeightCm,
			&v.Temperature, &v.TemperatureUnit, &v.HeartRate, &v.RespiratoryRate,
			&v.Systolic, &v.Diastolic, &v.SpO2, &v.BloodSugar,
			&v.PainScore, &v.BMI, &v.RecordedBy, &v.RecordedAt); err != nil {
			return nil, err
		}
		items = append(items, &v)
	}
	return items, rows.Err()
}

func (r *repoPG) UpsertExamination(ctx context.Context, e *Examination) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment_examination (id, appointment_id, symptoms, diagnosis,
			treatment, follow_up_date, recorded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (appointment_id) DO UPDATE SET
			symptoms = EXCLUDED.symptoms,
			diagnosis = EXCLUDED.diagnosis,
			treatment = EXCLUDED.treatment,
			follow_up_date = EXCLUDED.follow_up_date,
			recorded_by = EXCLUDED.recorded_by,
			updated_at = NOW()`,
		e.ID, e.AppointmentID, e.Symptoms, e.Diagnosis,
		e.Treatment, e.FollowUpDate, e.RecordedBy)
	return err
}

func (r *repoPG) GetExamination(ctx context.Context, appointmentID uuid.UUID) (*Examination, error) {
	var e Examination
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, appointment_id, symptoms, diagnosis, treatment, follow_up_date,
			recorded_by, updated_at
		FROM appointment_examination WHERE appointment_id = $1`,
		appointmentID).Scan(&e.ID, &e.AppointmentID, &e.Symptoms, &e.Diagnosis,
		&e.Treatment, &e.FollowUpDate, &e.RecordedBy, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrExaminationNotFound
	}
	return &e, err
}

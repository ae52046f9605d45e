package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Search(ctx context.Context, f SearchFilter, limit, offset int) ([]*Appointment, int, error)
	// HasActiveOnDate reports whether the patient already holds an
	// appointment on the date that still occupies the day
	// (everything outside DRAFT, COMPLETED, CANCELLED, NO_SHOW).
	HasActiveOnDate(ctx context.Context, patientID uuid.UUID, date time.Time) (bool, error)
	// ListForDoctorDate returns the doctor's bookings on the date
	// that still hold their slot, i.e. excluding CANCELLED and
	// NO_SHOW.
	ListForDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error)

	InsertVitals(ctx context.Context, v *Vitals) error
	ListVitals(ctx context.Context, appointmentID uuid.UUID) ([]*Vitals, error)
	UpsertExamination(ctx context.Context, e *Examination) error
	GetExamination(ctx context.Context, appointmentID uuid.UUID) (*Examination, error)
}

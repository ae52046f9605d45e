package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, s *DoctorSchedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*DoctorSchedule, error)
	Update(ctx context.Context, s *DoctorSchedule) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*DoctorSchedule, error)
}

type OverrideRepository interface {
	Create(ctx context.Context, o *ScheduleOverride) error
	GetByID(ctx context.Context, id uuid.UUID) (*ScheduleOverride, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// FindByDate returns the override for (doctor, date), or
	// ErrOverrideNotFound when none exists.
	FindByDate(ctx context.Context, doctorID uuid.UUID, date time.Time) (*ScheduleOverride, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*ScheduleOverride, error)
}

package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("schedule not found")
	ErrOverrideNotFound = errors.New("schedule override not found")
	ErrOverrideExists   = errors.New("an override already exists for this doctor and date")
)

const (
	defaultSlotDuration = 30
	defaultBuffer       = 5
)

type Service struct {
	schedules Repository
	overrides OverrideRepository
}

func NewService(schedules Repository, overrides OverrideRepository) *Service {
	return &Service{schedules: schedules, overrides: overrides}
}

func (s *Service) Create(ctx context.Context, sc *DoctorSchedule) error {
	if err := validateSchedule(sc); err != nil {
		return err
	}
	if sc.SlotDurationMinutes == 0 {
		sc.SlotDurationMinutes = defaultSlotDuration
	}
	if sc.MaxAppointmentsPerSlot == 0 {
		sc.MaxAppointmentsPerSlot = 1
	}
	return s.schedules.Create(ctx, sc)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*DoctorSchedule, error) {
	return s.schedules.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, sc *DoctorSchedule) error {
	if err := validateSchedule(sc); err != nil {
		return err
	}
	if _, err := s.schedules.GetByID(ctx, sc.ID); err != nil {
		return err
	}
	return s.schedules.Update(ctx, sc)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.schedules.Delete(ctx, id)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*DoctorSchedule, error) {
	return s.schedules.ListByDoctor(ctx, doctorID)
}

// ActiveOn returns the recurring windows that apply to the doctor on
// the given date, in weekday/start order.
func (s *Service) ActiveOn(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*DoctorSchedule, error) {
	all, err := s.schedules.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	var active []*DoctorSchedule
	for _, sc := range all {
		if sc.ActiveOn(date) {
			active = append(active, sc)
		}
	}
	return active, nil
}

func (s *Service) CreateOverride(ctx context.Context, o *ScheduleOverride) error {
	if !ValidOverrideType(o.Type) {
		return fmt.Errorf("invalid override type %q", o.Type)
	}
	if o.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if o.OverrideDate.IsZero() {
		return fmt.Errorf("override_date is required")
	}
	o.OverrideDate = o.OverrideDate.Truncate(24 * time.Hour)
	return s.overrides.Create(ctx, o)
}

func (s *Service) GetOverride(ctx context.Context, id uuid.UUID) (*ScheduleOverride, error) {
	return s.overrides.GetByID(ctx, id)
}

func (s *Service) DeleteOverride(ctx context.Context, id uuid.UUID) error {
	return s.overrides.Delete(ctx, id)
}

// OverrideOn returns the override for the doctor on the given date, or
// nil when the date has none.
func (s *Service) OverrideOn(ctx context.Context, doctorID uuid.UUID, date time.Time) (*ScheduleOverride, error) {
	o, err := s.overrides.FindByDate(ctx, doctorID, date.Truncate(24*time.Hour))
	if errors.Is(err, ErrOverrideNotFound) {
		return nil, nil
	}
	return o, err
}

func (s *Service) ListOverrides(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*ScheduleOverride, error) {
	return s.overrides.ListByDoctor(ctx, doctorID, from, to)
}

func validateSchedule(sc *DoctorSchedule) error {
	if sc.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if sc.DayOfWeek < 1 || sc.DayOfWeek > 7 {
		return fmt.Errorf("day_of_week must be between 1 (Monday) and 7 (Sunday)")
	}
	if !sc.StartTime.Valid() || !sc.EndTime.Valid() {
		return fmt.Errorf("start_time and end_time must be valid times of day")
	}
	if sc.EndTime <= sc.StartTime {
		return fmt.Errorf("end_time must be after start_time")
	}
	if sc.SlotDurationMinutes < 0 || sc.BufferMinutes < 0 {
		return fmt.Errorf("slot duration and buffer must be non-negative")
	}
	if sc.MaxAppointmentsPerSlot < 0 {
		return fmt.Errorf("max appointments per slot must be non-negative")
	}
	if sc.EffectiveFrom != nil && sc.EffectiveTo != nil && sc.EffectiveTo.Before(*sc.EffectiveFrom) {
		return fmt.Errorf("effective_to must not be before effective_from")
	}
	return nil
}

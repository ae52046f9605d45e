package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/careflow/careflow/pkg/timeofday"
)

// Override types. An override replaces or punches holes in a doctor's
// recurring weekly hours for a single calendar date.
const (
	OverrideUnavailable = "UNAVAILABLE"
	OverrideCustomHours = "CUSTOM_HOURS"
	OverrideBreak       = "BREAK"
)

// DoctorSchedule is one recurring weekly availability window.
// DayOfWeek follows ISO 8601: 1 is Monday, 7 is Sunday. A doctor may
// have several windows on the same weekday.
type DoctorSchedule struct {
	ID                     uuid.UUID           `db:"id" json:"id"`
	DoctorID               uuid.UUID           `db:"doctor_id" json:"doctor_id"`
	DayOfWeek              int                 `db:"day_of_week" json:"day_of_week"`
	StartTime              timeofday.TimeOfDay `db:"start_time" json:"start_time"`
	EndTime                timeofday.TimeOfDay `db:"end_time" json:"end_time"`
	SlotDurationMinutes    int                 `db:"slot_duration_minutes" json:"slot_duration_minutes"`
	BufferMinutes          int                 `db:"buffer_minutes" json:"buffer_minutes"`
	MaxAppointmentsPerSlot int                 `db:"max_appointments_per_slot" json:"max_appointments_per_slot"`
	IsAvailable            bool                `db:"is_available" json:"is_available"`
	Location               *string             `db:"location" json:"location,omitempty"`
	Room                   *string             `db:"room" json:"room,omitempty"`
	EffectiveFrom          *time.Time          `db:"effective_from" json:"effective_from,omitempty"`
	EffectiveTo            *time.Time          `db:"effective_to" json:"effective_to,omitempty"`
	CreatedAt              time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time           `db:"updated_at" json:"updated_at"`
}

// ActiveOn reports whether this recurring window applies on the given
// date: the weekday matches, the window is marked available, and the
// date falls inside the effective range when one is set.
func (s *DoctorSchedule) ActiveOn(date time.Time) bool {
	if !s.IsAvailable {
		return false
	}
	if isoWeekday(date) != s.DayOfWeek {
		return false
	}
	day := date.Truncate(24 * time.Hour)
	if s.EffectiveFrom != nil && day.Before(s.EffectiveFrom.Truncate(24*time.Hour)) {
		return false
	}
	if s.EffectiveTo != nil && day.After(s.EffectiveTo.Truncate(24*time.Hour)) {
		return false
	}
	return true
}

// ScheduleOverride adjusts a single date. At most one override exists
// per (doctor, date). StartTime and EndTime are only meaningful for
// CUSTOM_HOURS and BREAK; an override of those types missing either
// bound is ignored by the availability engine.
type ScheduleOverride struct {
	ID           uuid.UUID            `db:"id" json:"id"`
	DoctorID     uuid.UUID            `db:"doctor_id" json:"doctor_id"`
	OverrideDate time.Time            `db:"override_date" json:"override_date"`
	Type         string               `db:"type" json:"type"`
	StartTime    *timeofday.TimeOfDay `db:"start_time" json:"start_time,omitempty"`
	EndTime      *timeofday.TimeOfDay `db:"end_time" json:"end_time,omitempty"`
	Reason       *string              `db:"reason" json:"reason,omitempty"`
	CreatedAt    time.Time            `db:"created_at" json:"created_at"`
}

// HasWindow reports whether both time bounds are present.
func (o *ScheduleOverride) HasWindow() bool {
	return o.StartTime != nil && o.EndTime != nil
}

func ValidOverrideType(t string) bool {
	switch t {
	case OverrideUnavailable, OverrideCustomHours, OverrideBreak:
		return true
	}
	return false
}

// isoWeekday maps time.Weekday (Sunday=0) onto ISO 8601 (Monday=1,
// Sunday=7).
func isoWeekday(date time.Time) int {
	wd := int(date.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

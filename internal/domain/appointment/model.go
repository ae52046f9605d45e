package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/careflow/careflow/pkg/timeofday"
)

// Appointment types and urgency levels.
const (
	TypeOPD       = "OPD"
	TypeFollowUp  = "FOLLOW_UP"
	TypeProcedure = "PROCEDURE"

	UrgencyNormal = "NORMAL"
	UrgencyUrgent = "URGENT"

	defaultDurationMinutes = 30
)

// Appointment maps to the appointment table. PhysicianName is a
// snapshot taken at booking time so the record stays readable even if
// the staff row later changes.
type Appointment struct {
	ID                 uuid.UUID            `db:"id" json:"id"`
	AppointmentNumber  string               `db:"appointment_number" json:"appointment_number"`
	PatientID          uuid.UUID            `db:"patient_id" json:"patient_id"`
	DoctorID           *uuid.UUID           `db:"doctor_id" json:"doctor_id,omitempty"`
	PhysicianName      *string              `db:"physician_name" json:"physician_name,omitempty"`
	Date               time.Time            `db:"appointment_date" json:"date"`
	StartTime          timeofday.TimeOfDay  `db:"start_time" json:"start_time"`
	EndTime            *timeofday.TimeOfDay `db:"end_time" json:"end_time,omitempty"`
	DurationMinutes    int                  `db:"duration_minutes" json:"duration_minutes"`
	Type               string               `db:"type" json:"type"`
	UrgencyLevel       string               `db:"urgency_level" json:"urgency_level"`
	Status             string               `db:"status" json:"status"`
	Reason             *string              `db:"reason" json:"reason,omitempty"`
	Notes              *string              `db:"notes" json:"notes,omitempty"`
	CancelledAt        *time.Time           `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy        *string              `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancellationReason *string              `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	RescheduledToID    *uuid.UUID           `db:"rescheduled_to_id" json:"rescheduled_to_id,omitempty"`
	RescheduledFromID  *uuid.UUID           `db:"rescheduled_from_id" json:"rescheduled_from_id,omitempty"`
	CreatedBy          string               `db:"created_by" json:"created_by"`
	UpdatedBy          *string              `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt          time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time            `db:"updated_at" json:"updated_at"`
}

// Duration returns the booked duration, falling back to the default
// when the record predates duration tracking.
func (a *Appointment) Duration() int {
	if a.DurationMinutes <= 0 {
		return defaultDurationMinutes
	}
	return a.DurationMinutes
}

// Interval returns the half-open [start, end) span the appointment
// occupies on its date.
func (a *Appointment) Interval() (timeofday.TimeOfDay, timeofday.TimeOfDay) {
	return a.StartTime, a.StartTime.Add(a.Duration())
}

// Examination is the consultation note attached to an appointment.
// One row per appointment, updated in place.
type Examination struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	AppointmentID uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	Symptoms      *string    `db:"symptoms" json:"symptoms,omitempty"`
	Diagnosis     *string    `db:"diagnosis" json:"diagnosis,omitempty"`
	Treatment     *string    `db:"treatment" json:"treatment,omitempty"`
	FollowUpDate  *time.Time `db:"follow_up_date" json:"follow_up_date,omitempty"`
	RecordedBy    string     `db:"recorded_by" json:"recorded_by"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// SearchFilter narrows an appointment search. Zero values mean
// "no constraint".
type SearchFilter struct {
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
	DateFrom  *time.Time
	DateTo    *time.Time
	Status    string
	Type      string
}

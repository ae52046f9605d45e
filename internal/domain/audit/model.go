package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/careflow/careflow/pkg/timeofday"
)

// Audit actions recorded against an appointment. The trail is
// append-only: entries are never updated or deleted.
const (
	ActionCreated       = "CREATED"
	ActionStatusChanged = "STATUS_CHANGED"
	ActionRescheduled   = "RESCHEDULED"
	ActionCancelled     = "CANCELLED"
	ActionCompleted     = "COMPLETED"
)

// Entry is one line of an appointment's audit trail.
type Entry struct {
	ID             uuid.UUID            `db:"id" json:"id"`
	AppointmentID  uuid.UUID            `db:"appointment_id" json:"appointment_id"`
	Action         string               `db:"action" json:"action"`
	PreviousStatus *string              `db:"previous_status" json:"previous_status,omitempty"`
	NewStatus      *string              `db:"new_status" json:"new_status,omitempty"`
	PreviousDate   *time.Time           `db:"previous_date" json:"previous_date,omitempty"`
	NewDate        *time.Time           `db:"new_date" json:"new_date,omitempty"`
	PreviousTime   *timeofday.TimeOfDay `db:"previous_time" json:"previous_time,omitempty"`
	NewTime        *timeofday.TimeOfDay `db:"new_time" json:"new_time,omitempty"`
	Reason         *string              `db:"reason" json:"reason,omitempty"`
	Notes          *string              `db:"notes" json:"notes,omitempty"`
	PerformedByID  *uuid.UUID           `db:"performed_by_id" json:"performed_by_id,omitempty"`
	PerformedBy    string               `db:"performed_by" json:"performed_by"`
	PerformedAt    time.Time            `db:"performed_at" json:"performed_at"`
}

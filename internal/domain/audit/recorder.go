package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/platform/auth"
	"github.com/careflow/careflow/pkg/timeofday"
)

// Recorder writes audit entries. When called inside db.RunInTx it
// shares the mutation's transaction, so the entry commits or rolls
// back together with the change it describes. A recorder failure
// therefore aborts the mutation.
type Recorder struct {
	entries Repository
	log     zerolog.Logger
}

func NewRecorder(entries Repository, log zerolog.Logger) *Recorder {
	return &Recorder{entries: entries, log: log}
}

// RecordCreated notes a new appointment entering the system.
func (r *Recorder) RecordCreated(ctx context.Context, appointmentID uuid.UUID, status string, actor auth.Actor) error {
	e := r.newEntry(appointmentID, ActionCreated, actor)
	e.NewStatus = &status
	return r.insert(ctx, e)
}

// RecordStatusChange notes a lifecycle transition. The action is
// COMPLETED when the appointment reached its final completed state,
// STATUS_CHANGED otherwise.
func (r *Recorder) RecordStatusChange(ctx context.Context, appointmentID uuid.UUID, from, to string, reason, notes *string, actor auth.Actor) error {
	action := ActionStatusChanged
	if to == "COMPLETED" {
		action = ActionCompleted
	}
	e := r.newEntry(appointmentID, action, actor)
	e.PreviousStatus = &from
	e.NewStatus = &to
	e.Reason = reason
	e.Notes = notes
	return r.insert(ctx, e)
}

// RecordCancelled notes a cancellation with its reason.
func (r *Recorder) RecordCancelled(ctx context.Context, appointmentID uuid.UUID, from string, reason *string, actor auth.Actor) error {
	to := "CANCELLED"
	e := r.newEntry(appointmentID, ActionCancelled, actor)
	e.PreviousStatus = &from
	e.NewStatus = &to
	e.Reason = reason
	return r.insert(ctx, e)
}

// RecordRescheduled notes the original appointment moving to a new
// date and time.
func (r *Recorder) RecordRescheduled(ctx context.Context, appointmentID uuid.UUID, oldDate, newDate time.Time, oldTime, newTime timeofday.TimeOfDay, reason *string, actor auth.Actor) error {
	e := r.newEntry(appointmentID, ActionRescheduled, actor)
	e.PreviousDate = &oldDate
	e.NewDate = &newDate
	e.PreviousTime = &oldTime
	e.NewTime = &newTime
	e.Reason = reason
	return r.insert(ctx, e)
}

// History returns the appointment's trail, newest entry first.
func (r *Recorder) History(ctx context.Context, appointmentID uuid.UUID) ([]*Entry, error) {
	return r.entries.ListByAppointment(ctx, appointmentID)
}

func (r *Recorder) newEntry(appointmentID uuid.UUID, action string, actor auth.Actor) *Entry {
	e := &Entry{
		AppointmentID: appointmentID,
		Action:        action,
		PerformedBy:   actor.DisplayName(),
	}
	if actor.ID != "" {
		if id, err := uuid.Parse(actor.ID); err == nil {
			e.PerformedByID = &id
		}
	}
	return e
}

func (r *Recorder) insert(ctx context.Context, e *Entry) error {
	if err := r.entries.Insert(ctx, e); err != nil {
		return err
	}
	r.log.Debug().
		Str("appointment_id", e.AppointmentID.String()).
		Str("action", e.Action).
		Str("actor", e.PerformedBy).
		Msg("audit entry recorded")
	return nil
}

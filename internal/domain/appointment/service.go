package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/domain/audit"
	"github.com/careflow/careflow/internal/platform/auth"
	"github.com/careflow/careflow/pkg/timeofday"
)

var (
	ErrNotFound            = errors.New("appointment not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrPatientDoubleBooked = errors.New("patient already has an appointment on this date")
	ErrExaminationNotFound = errors.New("no examination recorded for this appointment")
	// ErrVisitClosed guards clinical writes against appointments
	// that can no longer be acted on.
	ErrVisitClosed = errors.New("appointment is cancelled, completed, or marked no-show")
	// ErrInvalidInput marks rejected caller input so the handler can
	// answer 400 rather than treating it as a server fault.
	ErrInvalidInput = errors.New("invalid input")
)

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// clinicalWriteForbidden lists the statuses that reject vitals and
// examination writes.
var clinicalWriteForbidden = map[string]bool{
	StatusCancelled: true,
	StatusNoShow:    true,
	StatusCompleted: true,
}

// PatientDirectory is the slice of the patient service the appointment
// service needs.
type PatientDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// DoctorDirectory resolves a doctor's display name for the booking
// snapshot.
type DoctorDirectory interface {
	DoctorName(ctx context.Context, id uuid.UUID) (string, error)
}

// NumberAllocator hands out the per-date sequence behind appointment
// numbers. Implementations must be atomic under concurrent bookings.
type NumberAllocator interface {
	Next(ctx context.Context, date time.Time) (int64, error)
}

// Notifier receives lifecycle events. Implementations must not block
// the caller; failures are the notifier's problem, never the
// booking's.
type Notifier interface {
	AppointmentConfirmed(ctx context.Context, a *Appointment)
	AppointmentCancelled(ctx context.Context, a *Appointment)
	AppointmentRescheduled(ctx context.Context, original, replacement *Appointment)
	CriticalVitals(ctx context.Context, a *Appointment, findings []string)
}

// TxRunner executes fn atomically. Production wires db.RunInTx; tests
// pass the call straight through.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	appts    Repository
	patients PatientDirectory
	doctors  DoctorDirectory
	numbers  NumberAllocator
	recorder *audit.Recorder
	notify   Notifier
	inTx     TxRunner
	log      zerolog.Logger
}

func NewService(appts Repository, patients PatientDirectory, doctors DoctorDirectory,
	numbers NumberAllocator, recorder *audit.Recorder, notify Notifier,
	inTx TxRunner, log zerolog.Logger) *Service {
	return &Service{
		appts:    appts,
		patients: patients,
		doctors:  doctors,
		numbers:  numbers,
		recorder: recorder,
		notify:   notify,
		inTx:     inTx,
		log:      log,
	}
}

// FormatNumber renders the human-facing appointment number for a date
// and per-date sequence value.
func FormatNumber(date time.Time, seq int64) string {
	return fmt.Sprintf("APT-%s-%05d", date.Format("20060102"), seq)
}

// Create books a new appointment. The insert and its audit entry
// commit atomically; the confirmation notification is sent after the
// commit and is best-effort.
func (s *Service) Create(ctx context.Context, actor auth.Actor, a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return invalidInput("patient_id is required")
	}
	if a.Date.IsZero() {
		return invalidInput("date is required")
	}
	if !a.StartTime.Valid() {
		return invalidInput("start_time must be a valid time of day")
	}
	if a.DurationMinutes <= 0 {
		a.DurationMinutes = defaultDurationMinutes
	}
	if a.Type == "" {
		a.Type = TypeOPD
	}
	if a.UrgencyLevel == "" {
		a.UrgencyLevel = UrgencyNormal
	}
	a.Date = a.Date.Truncate(24 * time.Hour)

	ok, err := s.patients.Exists(ctx, a.PatientID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPatientNotFound
	}

	taken, err := s.appts.HasActiveOnDate(ctx, a.PatientID, a.Date)
	if err != nil {
		return err
	}
	if taken {
		return ErrPatientDoubleBooked
	}

	if a.DoctorID != nil {
		name, err := s.doctors.DoctorName(ctx, *a.DoctorID)
		if err != nil {
			return err
		}
		a.PhysicianName = &name
	}

	seq, err := s.numbers.Next(ctx, a.Date)
	if err != nil {
		return fmt.Errorf("allocate appointment number: %w", err)
	}
	a.AppointmentNumber = FormatNumber(a.Date, seq)
	a.Status = StatusConfirmed
	end := a.StartTime.Add(a.DurationMinutes)
	a.EndTime = &end
	a.CreatedBy = actor.DisplayName()

	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.appts.Create(ctx, a); err != nil {
			return err
		}
		return s.recorder.RecordCreated(ctx, a.ID, a.Status, actor)
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("appointment", a.AppointmentNumber).
		Str("patient_id", a.PatientID.String()).
		Msg("appointment booked")
	s.notify.AppointmentConfirmed(ctx, a)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appts.GetByID(ctx, id)
}

func (s *Service) Search(ctx context.Context, f SearchFilter, limit, offset int) ([]*Appointment, int, error) {
	return s.appts.Search(ctx, f, limit, offset)
}

// Update changes non-lifecycle fields. Status, cancellation stamps,
// and reschedule links are only touched by their dedicated operations.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, reason, notes *string, urgency string) (*Appointment, error) {
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reason != nil {
		a.Reason = reason
	}
	if notes != nil {
		a.Notes = notes
	}
	if urgency != "" {
		a.UrgencyLevel = urgency
	}
	by := actor.DisplayName()
	a.UpdatedBy = &by
	if err := s.appts.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateStatus moves the appointment through the lifecycle graph. A
// transition to the current status is a no-op: nothing is written and
// nothing is audited.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Actor, id uuid.UUID, newStatus string, reason, notes *string) (*Appointment, error) {
	if !ValidStatus(newStatus) {
		return nil, invalidInput("unknown status %q", newStatus)
	}
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == newStatus {
		return a, nil
	}
	if err := CanTransition(a.Status, newStatus); err != nil {
		return nil, err
	}

	from := a.Status
	a.Status = newStatus
	by := actor.DisplayName()
	a.UpdatedBy = &by
	if newStatus == StatusCancelled {
		now := time.Now()
		a.CancelledAt = &now
		a.CancelledBy = &by
		a.CancellationReason = reason
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.appts.Update(ctx, a); err != nil {
			return err
		}
		return s.recorder.RecordStatusChange(ctx, a.ID, from, newStatus, reason, notes, actor)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("appointment", a.AppointmentNumber).
		Str("from", from).
		Str("to", newStatus).
		Msg("appointment status changed")
	return a, nil
}

// Cancel force-cancels from any state, bypassing the transition table.
// The trail gets both a CANCELLED entry and the status change.
func (s *Service) Cancel(ctx context.Context, actor auth.Actor, id uuid.UUID, reason string) (*Appointment, error) {
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := a.Status
	now := time.Now()
	by := actor.DisplayName()
	a.Status = StatusCancelled
	a.CancelledAt = &now
	a.CancelledBy = &by
	a.UpdatedBy = &by
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	a.CancellationReason = reasonPtr

	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.appts.Update(ctx, a); err != nil {
			return err
		}
		if err := s.recorder.RecordCancelled(ctx, a.ID, from, reasonPtr, actor); err != nil {
			return err
		}
		return s.recorder.RecordStatusChange(ctx, a.ID, from, StatusCancelled, reasonPtr, nil, actor)
	})
	if err != nil {
		return nil, err
	}
	s.notify.AppointmentCancelled(ctx, a)
	return a, nil
}

// Reschedule books a replacement appointment and cancels the original,
// linking the two. The original's date and time are never rewritten;
// the link plus the audit trail carry the history.
func (s *Service) Reschedule(ctx context.Context, actor auth.Actor, id uuid.UUID, newDate time.Time, newStart timeofday.TimeOfDay, reason string) (*Appointment, error) {
	original, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if Terminal(original.Status) {
		return nil, &TransitionError{From: original.Status, To: StatusConfirmed}
	}
	if !newStart.Valid() {
		return nil, invalidInput("new start time must be a valid time of day")
	}
	newDate = newDate.Truncate(24 * time.Hour)

	seq, err := s.numbers.Next(ctx, newDate)
	if err != nil {
		return nil, fmt.Errorf("allocate appointment number: %w", err)
	}

	end := newStart.Add(original.Duration())
	notes := "Rescheduled: " + reason
	if original.Notes != nil && *original.Notes != "" {
		notes = *original.Notes + "\n" + notes
	}
	replacement := &Appointment{
		ID:                uuid.New(),
		AppointmentNumber: FormatNumber(newDate, seq),
		PatientID:         original.PatientID,
		DoctorID:          original.DoctorID,
		PhysicianName:     original.PhysicianName,
		Date:              newDate,
		StartTime:         newStart,
		EndTime:           &end,
		DurationMinutes:   original.Duration(),
		Type:              original.Type,
		UrgencyLevel:      original.UrgencyLevel,
		Status:            StatusConfirmed,
		Reason:            original.Reason,
		Notes:             &notes,
		RescheduledFromID: &original.ID,
		CreatedBy:         actor.DisplayName(),
	}

	now := time.Now()
	by := actor.DisplayName()
	cancellation := fmt.Sprintf("Rescheduled to %s %s", newDate.Format("2006-01-02"), newStart)
	original.Status = StatusCancelled
	original.CancelledAt = &now
	original.CancelledBy = &by
	original.UpdatedBy = &by
	original.CancellationReason = &cancellation
	original.RescheduledToID = &replacement.ID

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.appts.Create(ctx, replacement); err != nil {
			return err
		}
		if err := s.appts.Update(ctx, original); err != nil {
			return err
		}
		if err := s.recorder.RecordRescheduled(ctx, original.ID,
			original.Date, newDate, original.StartTime, newStart, reasonPtr, actor); err != nil {
			return err
		}
		return s.recorder.RecordCreated(ctx, replacement.ID, replacement.Status, actor)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("from", original.AppointmentNumber).
		Str("to", replacement.AppointmentNumber).
		Msg("appointment rescheduled")
	s.notify.AppointmentRescheduled(ctx, original, replacement)
	return replacement, nil
}

// RecordVitals validates and stores a vitals reading. Critical
// measurements raise an alert through the notifier; alerting problems
// never fail the recording.
func (s *Service) RecordVitals(ctx context.Context, actor auth.Actor, appointmentID uuid.UUID, v *Vitals) error {
	a, err := s.appts.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	if clinicalWriteForbidden[a.Status] {
		return ErrVisitClosed
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	v.AppointmentID = a.ID
	v.ComputeBMI()
	v.RecordedBy = actor.DisplayName()
	if err := s.appts.InsertVitals(ctx, v); err != nil {
		return err
	}

	if findings := v.CriticalFindings(); len(findings) > 0 {
		s.log.Warn().
			Str("appointment", a.AppointmentNumber).
			Strs("findings", findings).
			Msg("critical vitals recorded")
		s.notify.CriticalVitals(ctx, a, findings)
	}
	return nil
}

func (s *Service) Vitals(ctx context.Context, appointmentID uuid.UUID) ([]*Vitals, error) {
	if _, err := s.appts.GetByID(ctx, appointmentID); err != nil {
		return nil, err
	}
	return s.appts.ListVitals(ctx, appointmentID)
}

// RecordExamination upserts the consultation note.
func (s *Service) RecordExamination(ctx context.Context, actor auth.Actor, appointmentID uuid.UUID, e *Examination) error {
	a, err := s.appts.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	if clinicalWriteForbidden[a.Status] {
		return ErrVisitClosed
	}
	e.AppointmentID = a.ID
	e.RecordedBy = actor.DisplayName()
	return s.appts.UpsertExamination(ctx, e)
}

func (s *Service) Examination(ctx context.Context, appointmentID uuid.UUID) (*Examination, error) {
	if _, err := s.appts.GetByID(ctx, appointmentID); err != nil {
		return nil, err
	}
	return s.appts.GetExamination(ctx, appointmentID)
}

// History returns the appointment's audit trail, newest first.
func (s *Service) History(ctx context.Context, appointmentID uuid.UUID) ([]*audit.Entry, error) {
	if _, err := s.appts.GetByID(ctx, appointmentID); err != nil {
		return nil, err
	}
	return s.recorder.History(ctx, appointmentID)
}

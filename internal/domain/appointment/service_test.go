package appointment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/domain/audit"
	"github.com/careflow/careflow/internal/platform/auth"
	"github.com/careflow/careflow/pkg/timeofday"
)

type mockRepo struct {
	appts  map[uuid.UUID]*Appointment
	vitals []*Vitals
	exams  map[uuid.UUID]*Examination
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		appts: make(map[uuid.UUID]*Appointment),
		exams: make(map[uuid.UUID]*Examination),
	}
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	copied := *a
	m.appts[a.ID] = &copied
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *mockRepo) Update(_ context.Context, a *Appointment) error {
	copied := *a
	m.appts[a.ID] = &copied
	return nil
}

func (m *mockRepo) Search(_ context.Context, f SearchFilter, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appts {
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		result = append(result, a)
	}
	return result, len(result), nil
}

func (m *mockRepo) HasActiveOnDate(_ context.Context, patientID uuid.UUID, date time.Time) (bool, error) {
	for _, a := range m.appts {
		if a.PatientID != patientID || !a.Date.Equal(date) {
			continue
		}
		switch a.Status {
		case StatusDraft, StatusCompleted, StatusCancelled, StatusNoShow:
		default:
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) ListForDoctorDate(_ context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error) {
	var result []*Appointment
	for _, a := range m.appts {
		if a.DoctorID == nil || *a.DoctorID != doctorID || !a.Date.Equal(date) {
			continue
		}
		if a.Status == StatusCancelled || a.Status == StatusNoShow {
			continue
		}
		result = append(result, a)
	}
	return result, nil
}

func (m *mockRepo) InsertVitals(_ context.Context, v *Vitals) error {
	v.ID = uuid.New()
	v.RecordedAt = time.Now()
	m.vitals = append(m.vitals, v)
	return nil
}

func (m *mockRepo) ListVitals(_ context.Context, appointmentID uuid.UUID) ([]*Vitals, error) {
	var result []*Vitals
	for _, v := range m.vitals {
		if v.AppointmentID == appointmentID {
			result = append(result, v)
		}
	}
	return result, nil
}

func (m *mockRepo) UpsertExamination(_ context.Context, e *Examination) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.UpdatedAt = time.Now()
	m.exams[e.AppointmentID] = e
	return nil
}

func (m *mockRepo) GetExamination(_ context.Context, appointmentID uuid.UUID) (*Examination, error) {
	e, ok := m.exams[appointmentID]
	if !ok {
		return nil, ErrExaminationNotFound
	}
	return e, nil
}

type mockAuditRepo struct {
	entries []*audit.Entry
}

func (m *mockAuditRepo) Insert(_ context.Context, e *audit.Entry) error {
	e.ID = uuid.New()
	e.PerformedAt = time.Now()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockAuditRepo) ListByAppointment(_ context.Context, appointmentID uuid.UUID) ([]*audit.Entry, error) {
	var result []*audit.Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].AppointmentID == appointmentID {
			result = append(result, m.entries[i])
		}
	}
	return result, nil
}

func (m *mockAuditRepo) forAppointment(id uuid.UUID) []*audit.Entry {
	var result []*audit.Entry
	for _, e := range m.entries {
		if e.AppointmentID == id {
			result = append(result, e)
		}
	}
	return result
}

type stubPatients struct {
	known map[uuid.UUID]bool
}

func (s *stubPatients) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return s.known[id], nil
}

type stubDoctors struct {
	names map[uuid.UUID]string
}

func (s *stubDoctors) DoctorName(_ context.Context, id uuid.UUID) (string, error) {
	name, ok := s.names[id]
	if !ok {
		return "", ErrNotFound
	}
	return name, nil
}

type fakeAllocator struct {
	seqs map[string]int64
}

func (f *fakeAllocator) Next(_ context.Context, date time.Time) (int64, error) {
	if f.seqs == nil {
		f.seqs = make(map[string]int64)
	}
	key := date.Format("20060102")
	f.seqs[key]++
	return f.seqs[key], nil
}

type spyNotifier struct {
	confirmed   int
	cancelled   int
	rescheduled int
	critical    [][]string
}

func (s *spyNotifier) AppointmentConfirmed(context.Context, *Appointment)   { s.confirmed++ }
func (s *spyNotifier) AppointmentCancelled(context.Context, *Appointment)   { s.cancelled++ }
func (s *spyNotifier) AppointmentRescheduled(context.Context, *Appointment, *Appointment) {
	s.rescheduled++
}
func (s *spyNotifier) CriticalVitals(_ context.Context, _ *Appointment, findings []string) {
	s.critical = append(s.critical, findings)
}

type fixture struct {
	svc      *Service
	repo     *mockRepo
	audits   *mockAuditRepo
	notifier *spyNotifier
	patients *stubPatients
	doctors  *stubDoctors
}

func newFixture() *fixture {
	repo := newMockRepo()
	audits := &mockAuditRepo{}
	notifier := &spyNotifier{}
	patients := &stubPatients{known: make(map[uuid.UUID]bool)}
	doctors := &stubDoctors{names: make(map[uuid.UUID]string)}
	passthrough := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return fn(ctx)
	}
	svc := NewService(repo, patients, doctors, &fakeAllocator{},
		audit.NewRecorder(audits, zerolog.Nop()), notifier, passthrough, zerolog.Nop())
	return &fixture{svc: svc, repo: repo, audits: audits, notifier: notifier, patients: patients, doctors: doctors}
}

func (f *fixture) knownPatient() uuid.UUID {
	id := uuid.New()
	f.patients.known[id] = true
	return id
}

func (f *fixture) knownDoctor(name string) uuid.UUID {
	id := uuid.New()
	f.doctors.names[id] = name
	return id
}

var (
	testActor = auth.Actor{ID: uuid.NewString(), Name: "Front Desk"}
	testDate  = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
)

func (f *fixture) book(t *testing.T) *Appointment {
	t.Helper()
	doctorID := f.knownDoctor("Anita Desai")
	a := &Appointment{
		PatientID: f.knownPatient(),
		DoctorID:  &doctorID,
		Date:      testDate,
		StartTime: 540, // 09:00
	}
	if err := f.svc.Create(context.Background(), testActor, a); err != nil {
		t.Fatalf("book: %v", err)
	}
	return a
}

func TestCreate(t *testing.T) {
	f := newFixture()
	a := f.book(t)

	if a.AppointmentNumber != "APT-20260907-00001" {
		t.Errorf("unexpected appointment number %s", a.AppointmentNumber)
	}
	if a.Status != StatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", a.Status)
	}
	if a.PhysicianName == nil || *a.PhysicianName != "Anita Desai" {
		t.Error("expected physician name snapshot")
	}
	if a.EndTime == nil || a.EndTime.String() != "09:30" {
		t.Error("expected end time 09:30 from the default duration")
	}
	if a.CreatedBy != "Front Desk" {
		t.Errorf("expected created_by Front Desk, got %s", a.CreatedBy)
	}

	trail := f.audits.forAppointment(a.ID)
	if len(trail) != 1 || trail[0].Action != audit.ActionCreated {
		t.Errorf("expected a single CREATED audit entry, got %v", trail)
	}
	if f.notifier.confirmed != 1 {
		t.Error("expected a confirmation notification")
	}
}

func TestCreate_SequencePerDate(t *testing.T) {
	f := newFixture()
	first := f.book(t)
	second := &Appointment{PatientID: f.knownPatient(), Date: testDate, StartTime: 600}
	if err := f.svc.Create(context.Background(), testActor, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.AppointmentNumber == second.AppointmentNumber {
		t.Error("expected distinct numbers on the same date")
	}
	if second.AppointmentNumber != "APT-20260907-00002" {
		t.Errorf("expected sequence to advance, got %s", second.AppointmentNumber)
	}

	otherDay := &Appointment{PatientID: f.knownPatient(), Date: testDate.AddDate(0, 0, 1), StartTime: 540}
	if err := f.svc.Create(context.Background(), testActor, otherDay); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if otherDay.AppointmentNumber != "APT-20260908-00001" {
		t.Errorf("expected sequence to reset per date, got %s", otherDay.AppointmentNumber)
	}
}

func TestCreate_UnknownPatient(t *testing.T) {
	f := newFixture()
	a := &Appointment{PatientID: uuid.New(), Date: testDate, StartTime: 540}
	if err := f.svc.Create(context.Background(), testActor, a); err != ErrPatientNotFound {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestCreate_DoubleBooked(t *testing.T) {
	f := newFixture()
	a := f.book(t)

	second := &Appointment{PatientID: a.PatientID, Date: testDate, StartTime: 600}
	if err := f.svc.Create(context.Background(), testActor, second); err != ErrPatientDoubleBooked {
		t.Errorf("expected ErrPatientDoubleBooked, got %v", err)
	}

	// A cancelled appointment releases the date.
	if _, err := f.svc.Cancel(context.Background(), testActor, a.ID, "conflict"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := f.svc.Create(context.Background(), testActor, second); err != nil {
		t.Errorf("expected rebooking after cancellation, got %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture()
	a := f.book(t)

	updated, err := f.svc.UpdateStatus(context.Background(), testActor, a.ID, StatusWaiting, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != StatusWaiting {
		t.Errorf("expected WAITING, got %s", updated.Status)
	}
	if updated.UpdatedBy == nil || *updated.UpdatedBy != testActor.DisplayName() {
		t.Error("expected updated_by to record the acting user")
	}

	trail := f.audits.forAppointment(a.ID)
	last := trail[len(trail)-1]
	if last.Action != audit.ActionStatusChanged {
		t.Errorf("expected STATUS_CHANGED entry, got %s", last.Action)
	}
	if *last.PreviousStatus != StatusConfirmed || *last.NewStatus != StatusWaiting {
		t.Error("expected entry to carry the old and new statuses")
	}
}

func TestUpdateStatus_SelfNoOp(t *testing.T) {
	f := newFixture()
	a := f.book(t)
	before := len(f.audits.entries)

	updated, err := f.svc.UpdateStatus(context.Background(), testActor, a.ID, StatusConfirmed, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != StatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", updated.Status)
	}
	if len(f.audits.entries) != before {
		t.Error("expected no audit entry for a self-transition")
	}
}

func TestUpdateStatus_Invalid(t *testing.T) {
	f := newFixture()
	a := f.book(t)

	_, err := f.svc.UpdateStatus(context.Background(), testActor, a.ID, StatusCompleted, nil, nil)
	var te *TransitionError
	if err == nil || !strings.Contains(err.Error(), StatusConfirmed) {
		t.Fatalf("expected transition error naming both states, got %v", err)
	}
	if !errors.As(err, &te) {
		t.Fatalf("expected TransitionError, got %T", err)
	}
}

func TestUpdateStatus_CompletedAction(t *testing.T) {
	f := newFixture()
	a := f.book(t)

	for _, status := range []string{StatusWaiting, StatusInConsultation, StatusToInvoice, StatusCompleted} {
		if _, err := f.svc.UpdateStatus(context.Background(), testActor, a.ID, status, nil, nil); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}
	trail := f.audits.forAppointment(a.ID)
	last := trail[len(trail)-1]
	if last.Action != audit.ActionCompleted {
		t.Errorf("expected COMPLETED action for the final transition, got %s", last.Action)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture()
	a := f.book(t)

	cancelled, err := f.svc.Cancel(context.Background(), testActor, a.ID, "patient request")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", cancelled.Status)
	}
	if cancelled.CancelledAt == nil || cancelled.CancelledBy == nil {
		t.Error("expected cancellation stamps")
	}
	if cancelled.CancellationReason == nil || *cancelled.CancellationReason != "patient request" {
		t.Error("expected cancellation reason")
	}

	trail := f.audits.forAppointment(a.ID)
	// CREATED, CANCELLED, STATUS_CHANGED.
	if len(trail) != 3 {
		t.Fatalf("expected 3 audit entries, got %d", len(trail))
	}
	if trail[1].Action != audit.ActionCancelled || trail[2].Action != audit.ActionStatusChanged {
		t.Error("expected CANCELLED followed by STATUS_CHANGED")
	}
	if f.notifier.cancelled != 1 {
		t.Error("expected a cancellation notification")
	}
}

func TestCancel_FromTerminalState(t *testing.T) {
	f := newFixture()
	a := f.book(t)

	for _, status := range []string{StatusWaiting, StatusInConsultation, StatusCompleted} {
		if _, err := f.svc.UpdateStatus(context.Background(), testActor, a.ID, status, nil, nil); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}
	// Force-cancel bypasses the table even from COMPLETED.
	cancelled, err := f.svc.Cancel(context.Background(), testActor, a.ID, "billing error")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", cancelled.Status)
	}
}

func TestReschedule(t *testing.T) {
	f := newFixture()
	a := f.book(t)
	newDate := testDate.AddDate(0, 0, 2)
	newStart := timeofday.TimeOfDay(660) // 11:00

	replacement, err := f.svc.Reschedule(context.Background(), testActor, a.ID, newDate, newStart, "doctor unavailable")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if replacement.Status != StatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", replacement.Status)
	}
	if replacement.AppointmentNumber != "APT-20260909-00001" {
		t.Errorf("expected fresh number for the new date, got %s", replacement.AppointmentNumber)
	}
	if replacement.PatientID != a.PatientID {
		t.Error("expected patient to carry over")
	}
	if replacement.PhysicianName == nil || *replacement.PhysicianName != "Anita Desai" {
		t.Error("expected physician snapshot to carry over")
	}
	if replacement.RescheduledFromID == nil || *replacement.RescheduledFromID != a.ID {
		t.Error("expected link back to the original")
	}
	if replacement.Notes == nil || !strings.Contains(*replacement.Notes, "Rescheduled: doctor unavailable") {
		t.Error("expected reschedule note")
	}

	original, err := f.svc.Get(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if original.Status != StatusCancelled {
		t.Errorf("expected original to be CANCELLED, got %s", original.Status)
	}
	if original.CancellationReason == nil || *original.CancellationReason != "Rescheduled to 2026-09-09 11:00" {
		t.Errorf("unexpected cancellation reason: %v", original.CancellationReason)
	}
	if original.RescheduledToID == nil || *original.RescheduledToID != replacement.ID {
		t.Error("expected link forward to the replacement")
	}
	if !original.Date.Equal(testDate) || original.StartTime != 540 {
		t.Error("expected original date and time to be untouched")
	}

	origTrail := f.audits.forAppointment(a.ID)
	if origTrail[len(origTrail)-1].Action != audit.ActionRescheduled {
		t.Error("expected RESCHEDULED entry on the original")
	}
	newTrail := f.audits.forAppointment(replacement.ID)
	if len(newTrail) != 1 || newTrail[0].Action != audit.ActionCreated {
		t.Error("expected CREATED entry on the replacement")
	}
	if f.notifier.rescheduled != 1 {
		t.Error("expected a reschedule notification")
	}
}

func TestReschedule_TerminalRejected(t *testing.T) {
	f := newFixture()
	a := f.book(t)
	if _, err := f.svc.Cancel(context.Background(), testActor, a.ID, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err := f.svc.Reschedule(context.Background(), testActor, a.ID, testDate.AddDate(0, 0, 1), 540, "again")
	if err == nil {
		t.Error("expected rescheduling a cancelled appointment to fail")
	}
}

func TestRecordVitals(t *testing.T) {
	f := newFixture()
	a := f.book(t)

	v := &Vitals{WeightKg: fptr(70), HeightCm: fptr(175), HeartRate: iptr(72)}
	if err := f.svc.RecordVitals(context.Background(), testActor, a.ID, v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.BMI == nil {
		t.Error("expected BMI to be computed")
	}
	if v.RecordedBy != "Front Desk" {
		t.Errorf("expected recorded_by stamp, got %s", v.RecordedBy)
	}
	if len(f.notifier.critical) != 0 {
		t.Error("expected no critical alert for normal vitals")
	}
}

func TestRecordVitals_Critical(t *testing.T) {
	f := newFixture()
	a := f.book(t)

	v := &Vitals{HeartRate: iptr(170), SpO2: iptr(85)}
	if err := f.svc.RecordVitals(context.Background(), testActor, a.ID, v); err != nil {
		t.Fatalf("expected recording to succeed despite critical values: %v", err)
	}
	if len(f.notifier.critical) != 1 {
		t.Fatal("expected a critical vitals alert")
	}
	if len(f.notifier.critical[0]) != 2 {
		t.Errorf("expected 2 findings, got %v", f.notifier.critical[0])
	}
}

func TestRecordVitals_ClosedVisit(t *testing.T) {
	f := newFixture()
	a := f.book(t)
	if _, err := f.svc.Cancel(context.Background(), testActor, a.ID, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	v := &Vitals{HeartRate: iptr(72)}
	if err := f.svc.RecordVitals(context.Background(), testActor, a.ID, v); err != ErrVisitClosed {
		t.Errorf("expected ErrVisitClosed, got %v", err)
	}
}

func TestRecordExamination_Upsert(t *testing.T) {
	f := newFixture()
	a := f.book(t)

	symptoms := "headache"
	if err := f.svc.RecordExamination(context.Background(), testActor, a.ID, &Examination{Symptoms: &symptoms}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	diagnosis := "migraine"
	if err := f.svc.RecordExamination(context.Background(), testActor, a.ID, &Examination{Symptoms: &symptoms, Diagnosis: &diagnosis}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e, err := f.svc.Examination(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Diagnosis == nil || *e.Diagnosis != "migraine" {
		t.Error("expected the second write to replace the note")
	}
}

func TestLedger(t *testing.T) {
	f := newFixture()
	a := f.book(t)

	ledger := NewLedger(f.repo)
	intervals, err := ledger.BookedIntervals(context.Background(), *a.DoctorID, testDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(intervals))
	}
	if intervals[0].Start != 540 || intervals[0].End != 570 {
		t.Errorf("expected 09:00-09:30, got %v-%v", intervals[0].Start, intervals[0].End)
	}

	// Cancelled bookings release their interval.
	if _, err := f.svc.Cancel(context.Background(), testActor, a.ID, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	intervals, _ = ledger.BookedIntervals(context.Background(), *a.DoctorID, testDate)
	if len(intervals) != 0 {
		t.Errorf("expected no intervals after cancellation, got %d", len(intervals))
	}
}

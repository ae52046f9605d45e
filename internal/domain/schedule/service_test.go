package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/careflow/careflow/pkg/timeofday"
)

type mockRepo struct {
	schedules map[uuid.UUID]*DoctorSchedule
}

func newMockRepo() *mockRepo {
	return &mockRepo{schedules: make(map[uuid.UUID]*DoctorSchedule)}
}

func (m *mockRepo) Create(_ context.Context, s *DoctorSchedule) error {
	s.ID = uuid.New()
	m.schedules[s.ID] = s
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*DoctorSchedule, error) {
	s, ok := m.schedules[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *mockRepo) Update(_ context.Context, s *DoctorSchedule) error {
	m.schedules[s.ID] = s
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.schedules[id]; !ok {
		return ErrNotFound
	}
	delete(m.schedules, id)
	return nil
}

func (m *mockRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*DoctorSchedule, error) {
	var result []*DoctorSchedule
	for _, s := range m.schedules {
		if s.DoctorID == doctorID {
			result = append(result, s)
		}
	}
	return result, nil
}

type mockOverrideRepo struct {
	overrides map[uuid.UUID]*ScheduleOverride
}

func newMockOverrideRepo() *mockOverrideRepo {
	return &mockOverrideRepo{overrides: make(map[uuid.UUID]*ScheduleOverride)}
}

func (m *mockOverrideRepo) Create(_ context.Context, o *ScheduleOverride) error {
	for _, existing := range m.overrides {
		if existing.DoctorID == o.DoctorID && existing.OverrideDate.Equal(o.OverrideDate) {
			return ErrOverrideExists
		}
	}
	o.ID = uuid.New()
	m.overrides[o.ID] = o
	return nil
}

func (m *mockOverrideRepo) GetByID(_ context.Context, id uuid.UUID) (*ScheduleOverride, error) {
	o, ok := m.overrides[id]
	if !ok {
		return nil, ErrOverrideNotFound
	}
	return o, nil
}

func (m *mockOverrideRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.overrides[id]; !ok {
		return ErrOverrideNotFound
	}
	delete(m.overrides, id)
	return nil
}

func (m *mockOverrideRepo) FindByDate(_ context.Context, doctorID uuid.UUID, date time.Time) (*ScheduleOverride, error) {
	for _, o := range m.overrides {
		if o.DoctorID == doctorID && o.OverrideDate.Equal(date) {
			return o, nil
		}
	}
	return nil, ErrOverrideNotFound
}

func (m *mockOverrideRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]*ScheduleOverride, error) {
	var result []*ScheduleOverride
	for _, o := range m.overrides {
		if o.DoctorID == doctorID && !o.OverrideDate.Before(from) && !o.OverrideDate.After(to) {
			result = append(result, o)
		}
	}
	return result, nil
}

func newTestService() *Service {
	return NewService(newMockRepo(), newMockOverrideRepo())
}

func mustParse(t *testing.T, s string) timeofday.TimeOfDay {
	t.Helper()
	tod, err := timeofday.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return tod
}

func TestCreate_Defaults(t *testing.T) {
	svc := newTestService()
	sc := &DoctorSchedule{
		DoctorID:    uuid.New(),
		DayOfWeek:   1,
		StartTime:   mustParse(t, "09:00"),
		EndTime:     mustParse(t, "17:00"),
		IsAvailable: true,
	}
	if err := svc.Create(context.Background(), sc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.SlotDurationMinutes != 30 {
		t.Errorf("expected default slot duration 30, got %d", sc.SlotDurationMinutes)
	}
	// The service stores the buffer as given; absence is resolved to
	// the clinic default at the HTTP boundary.
	if sc.BufferMinutes != 0 {
		t.Errorf("expected buffer to be stored as given, got %d", sc.BufferMinutes)
	}
	if sc.MaxAppointmentsPerSlot != 1 {
		t.Errorf("expected default of 1 appointment per slot, got %d", sc.MaxAppointmentsPerSlot)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService()
	cases := []struct {
		name string
		sc   DoctorSchedule
	}{
		{"missing doctor", DoctorSchedule{DayOfWeek: 1, StartTime: 540, EndTime: 1020}},
		{"day too low", DoctorSchedule{DoctorID: uuid.New(), DayOfWeek: 0, StartTime: 540, EndTime: 1020}},
		{"day too high", DoctorSchedule{DoctorID: uuid.New(), DayOfWeek: 8, StartTime: 540, EndTime: 1020}},
		{"end before start", DoctorSchedule{DoctorID: uuid.New(), DayOfWeek: 1, StartTime: 1020, EndTime: 540}},
		{"end equals start", DoctorSchedule{DoctorID: uuid.New(), DayOfWeek: 1, StartTime: 540, EndTime: 540}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sc := tc.sc
			if err := svc.Create(context.Background(), &sc); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestActiveOn(t *testing.T) {
	svc := newTestService()
	doctorID := uuid.New()

	// 2026-09-07 is a Monday.
	monday := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)

	sc := &DoctorSchedule{
		DoctorID:    doctorID,
		DayOfWeek:   1,
		StartTime:   mustParse(t, "09:00"),
		EndTime:     mustParse(t, "12:00"),
		IsAvailable: true,
	}
	if err := svc.Create(context.Background(), sc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	active, err := svc.ActiveOn(context.Background(), doctorID, monday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active window on Monday, got %d", len(active))
	}

	active, err = svc.ActiveOn(context.Background(), doctorID, tuesday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected no active windows on Tuesday, got %d", len(active))
	}
}

func TestActiveOn_EffectiveRange(t *testing.T) {
	svc := newTestService()
	doctorID := uuid.New()

	monday := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	nextMonday := monday.AddDate(0, 0, 7)
	from := monday.AddDate(0, 0, 3)

	sc := &DoctorSchedule{
		DoctorID:      doctorID,
		DayOfWeek:     1,
		StartTime:     mustParse(t, "09:00"),
		EndTime:       mustParse(t, "12:00"),
		IsAvailable:   true,
		EffectiveFrom: &from,
	}
	if err := svc.Create(context.Background(), sc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	active, _ := svc.ActiveOn(context.Background(), doctorID, monday)
	if len(active) != 0 {
		t.Error("expected window to be inactive before effective_from")
	}
	active, _ = svc.ActiveOn(context.Background(), doctorID, nextMonday)
	if len(active) != 1 {
		t.Error("expected window to be active after effective_from")
	}
}

func TestCreateOverride_Duplicate(t *testing.T) {
	svc := newTestService()
	doctorID := uuid.New()
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	first := &ScheduleOverride{DoctorID: doctorID, OverrideDate: date, Type: OverrideUnavailable}
	if err := svc.CreateOverride(context.Background(), first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := &ScheduleOverride{DoctorID: doctorID, OverrideDate: date, Type: OverrideBreak}
	if err := svc.CreateOverride(context.Background(), second); err != ErrOverrideExists {
		t.Errorf("expected ErrOverrideExists, got %v", err)
	}
}

func TestCreateOverride_InvalidType(t *testing.T) {
	svc := newTestService()
	o := &ScheduleOverride{DoctorID: uuid.New(), OverrideDate: time.Now(), Type: "HOLIDAY"}
	if err := svc.CreateOverride(context.Background(), o); err == nil {
		t.Error("expected error for unknown override type")
	}
}

func TestOverrideOn_None(t *testing.T) {
	svc := newTestService()
	o, err := svc.OverrideOn(context.Background(), uuid.New(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o != nil {
		t.Error("expected nil override when none exists")
	}
}

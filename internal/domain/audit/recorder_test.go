package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/platform/auth"
)

type mockRepo struct {
	entries []*Entry
}

func (m *mockRepo) Insert(_ context.Context, e *Entry) error {
	e.ID = uuid.New()
	e.PerformedAt = time.Now()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockRepo) ListByAppointment(_ context.Context, appointmentID uuid.UUID) ([]*Entry, error) {
	var result []*Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].AppointmentID == appointmentID {
			result = append(result, m.entries[i])
		}
	}
	return result, nil
}

func strptr(s string) *string { return &s }

func TestRecordStatusChange(t *testing.T) {
	repo := &mockRepo{}
	rec := NewRecorder(repo, zerolog.Nop())
	apptID := uuid.New()
	actorID := uuid.New()
	actor := auth.Actor{ID: actorID.String(), Name: "Dr. Desai"}

	err := rec.RecordStatusChange(context.Background(), apptID, "CONFIRMED", "WAITING",
		strptr("patient checked in"), nil, actor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	e := repo.entries[0]
	if e.Action != ActionStatusChanged {
		t.Errorf("expected STATUS_CHANGED, got %s", e.Action)
	}
	if e.PreviousStatus == nil || *e.PreviousStatus != "CONFIRMED" {
		t.Error("expected previous_status CONFIRMED")
	}
	if e.NewStatus == nil || *e.NewStatus != "WAITING" {
		t.Error("expected new_status WAITING")
	}
	if e.PerformedBy != "Dr. Desai" {
		t.Errorf("expected performed_by Dr. Desai, got %s", e.PerformedBy)
	}
	if e.PerformedByID == nil || *e.PerformedByID != actorID {
		t.Error("expected actor id to be recorded")
	}
}

func TestRecordStatusChange_CompletedAction(t *testing.T) {
	repo := &mockRepo{}
	rec := NewRecorder(repo, zerolog.Nop())

	err := rec.RecordStatusChange(context.Background(), uuid.New(), "TO_INVOICE", "COMPLETED",
		nil, nil, auth.Actor{Name: "Reception"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.entries[0].Action != ActionCompleted {
		t.Errorf("expected COMPLETED action, got %s", repo.entries[0].Action)
	}
}

func TestRecordCancelled(t *testing.T) {
	repo := &mockRepo{}
	rec := NewRecorder(repo, zerolog.Nop())
	apptID := uuid.New()

	err := rec.RecordCancelled(context.Background(), apptID, "CONFIRMED",
		strptr("patient request"), auth.Actor{Name: "Reception"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := repo.entries[0]
	if e.Action != ActionCancelled {
		t.Errorf("expected CANCELLED, got %s", e.Action)
	}
	if e.NewStatus == nil || *e.NewStatus != "CANCELLED" {
		t.Error("expected new_status CANCELLED")
	}
	if e.Reason == nil || *e.Reason != "patient request" {
		t.Error("expected reason to be recorded")
	}
}

func TestRecordCreated_NonUUIDActor(t *testing.T) {
	repo := &mockRepo{}
	rec := NewRecorder(repo, zerolog.Nop())

	actor := auth.Actor{ID: "dev-user", Name: "Dev User"}
	if err := rec.RecordCreated(context.Background(), uuid.New(), "CONFIRMED", actor); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.entries[0].PerformedByID != nil {
		t.Error("expected nil actor id for a non-uuid subject")
	}
	if repo.entries[0].PerformedBy != "Dev User" {
		t.Errorf("expected performed_by Dev User, got %s", repo.entries[0].PerformedBy)
	}
}

func TestHistory_NewestFirst(t *testing.T) {
	repo := &mockRepo{}
	rec := NewRecorder(repo, zerolog.Nop())
	apptID := uuid.New()
	actor := auth.Actor{Name: "Reception"}

	rec.RecordCreated(context.Background(), apptID, "CONFIRMED", actor)
	rec.RecordStatusChange(context.Background(), apptID, "CONFIRMED", "WAITING", nil, nil, actor)
	rec.RecordCreated(context.Background(), uuid.New(), "CONFIRMED", actor)

	trail, err := rec.History(context.Background(), apptID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(trail))
	}
	if trail[0].Action != ActionStatusChanged || trail[1].Action != ActionCreated {
		t.Error("expected trail to be newest-first")
	}
}

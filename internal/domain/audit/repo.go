package audit

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Insert(ctx context.Context, e *Entry) error
	// ListByAppointment returns the trail newest-first.
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*Entry, error)
}

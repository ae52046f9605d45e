package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/domain/availability"
)

// Ledger adapts the appointment repository to the availability
// engine's view of a doctor's day.
type Ledger struct {
	appts Repository
}

func NewLedger(appts Repository) *Ledger {
	return &Ledger{appts: appts}
}

func (l *Ledger) BookedIntervals(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]availability.Interval, error) {
	appts, err := l.appts.ListForDoctorDate(ctx, doctorID, date.Truncate(24*time.Hour))
	if err != nil {
		return nil, err
	}
	intervals := make([]availability.Interval, 0, len(appts))
	for _, a := range appts {
		start, end := a.Interval()
		intervals = append(intervals, availability.Interval{Start: start, End: end})
	}
	return intervals, nil
}

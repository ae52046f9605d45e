// Package availability computes bookable time slots for a doctor by
// combining recurring weekly schedules, per-date overrides, and the
// day's existing appointments.
package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/domain/schedule"
	"github.com/careflow/careflow/pkg/timeofday"
)

// ErrNoSlot is returned by NextAvailableSlot when the search horizon
// is exhausted without finding an open slot.
var ErrNoSlot = errors.New("no available slot within the search horizon")

// CUSTOM_HOURS overrides ignore the recurring schedule's slot sizing
// and carve the window with fixed parameters.
const (
	customSlotMinutes   = 30
	customBufferMinutes = 5

	// nextSlotHorizonDays bounds NextAvailableSlot's forward scan.
	nextSlotHorizonDays = 30
)

// Slot is a single candidate appointment window on a specific date.
// Times are half-open: a slot ending at 10:00 does not conflict with
// an appointment starting at 10:00.
type Slot struct {
	StartTime timeofday.TimeOfDay `json:"start_time"`
	EndTime   timeofday.TimeOfDay `json:"end_time"`
	Available bool                `json:"available"`
	Reason    string              `json:"reason,omitempty"`
}

// Interval is a booked span of a doctor's day.
type Interval struct {
	Start timeofday.TimeOfDay
	End   timeofday.TimeOfDay
}

// ScheduleSource yields the recurring windows active for a doctor on a
// date. *schedule.Service satisfies it.
type ScheduleSource interface {
	ActiveOn(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*schedule.DoctorSchedule, error)
}

// OverrideSource yields the date's override, or nil when there is
// none. *schedule.Service satisfies it.
type OverrideSource interface {
	OverrideOn(ctx context.Context, doctorID uuid.UUID, date time.Time) (*schedule.ScheduleOverride, error)
}

// BookingLedger yields the intervals already taken by appointments
// that still hold their slot (cancelled and no-show bookings release
// theirs).
type BookingLedger interface {
	BookedIntervals(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Interval, error)
}

type Engine struct {
	schedules ScheduleSource
	overrides OverrideSource
	bookings  BookingLedger
	log       zerolog.Logger
}

func NewEngine(schedules ScheduleSource, overrides OverrideSource, bookings BookingLedger, log zerolog.Logger) *Engine {
	return &Engine{schedules: schedules, overrides: overrides, bookings: bookings, log: log}
}

// SlotsForDate computes the doctor's slots for one date.
//
// Override precedence: UNAVAILABLE yields no slots at all;
// CUSTOM_HOURS with both bounds replaces the recurring schedule with a
// single fixed-parameter window; BREAK with both bounds removes the
// recurring slots it touches. An override missing a bound it needs is
// ignored. Without an effective override, each recurring window is
// carved independently and the results concatenated in window order.
func (e *Engine) SlotsForDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	ov, err := e.overrides.OverrideOn(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}

	var slots []Slot
	switch {
	case ov != nil && ov.Type == schedule.OverrideUnavailable:
		return []Slot{}, nil
	case ov != nil && ov.Type == schedule.OverrideCustomHours && ov.HasWindow():
		slots = carve(*ov.StartTime, *ov.EndTime, customSlotMinutes, customBufferMinutes)
	default:
		windows, err := e.schedules.ActiveOn(ctx, doctorID, date)
		if err != nil {
			return nil, err
		}
		for _, w := range windows {
			slots = append(slots, carve(w.StartTime, w.EndTime, w.SlotDurationMinutes, w.BufferMinutes)...)
		}
		if ov != nil && ov.Type == schedule.OverrideBreak && ov.HasWindow() {
			slots = removeOverlapping(slots, *ov.StartTime, *ov.EndTime)
		}
	}

	if len(slots) == 0 {
		return []Slot{}, nil
	}

	booked, err := e.bookings.BookedIntervals(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	for i := range slots {
		for _, b := range booked {
			if overlaps(slots[i].StartTime, slots[i].EndTime, b.Start, b.End) {
				slots[i].Available = false
				slots[i].Reason = "Already booked"
				break
			}
		}
	}
	return slots, nil
}

// IsSlotAvailable reports whether a slot starting at start is offered
// on the date and still open. Only the start time is matched; the
// slot's own duration decides how long it runs.
func (e *Engine) IsSlotAvailable(ctx context.Context, doctorID uuid.UUID, date time.Time, start timeofday.TimeOfDay) (bool, error) {
	slots, err := e.SlotsForDate(ctx, doctorID, date)
	if err != nil {
		return false, err
	}
	for _, s := range slots {
		if s.StartTime == start {
			return s.Available, nil
		}
	}
	return false, nil
}

// DaySlots pairs a date with its computed slots.
type DaySlots struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

// SlotsForRange computes slots for each date in [from, to] inclusive.
func (e *Engine) SlotsForRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]DaySlots, error) {
	var days []DaySlots
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		slots, err := e.SlotsForDate(ctx, doctorID, d)
		if err != nil {
			return nil, err
		}
		days = append(days, DaySlots{Date: d.Format("2006-01-02"), Slots: slots})
	}
	return days, nil
}

// NextAvailableSlot scans forward from the given date and returns the
// first open slot, looking at most nextSlotHorizonDays ahead.
func (e *Engine) NextAvailableSlot(ctx context.Context, doctorID uuid.UUID, from time.Time) (string, *Slot, error) {
	for i := 0; i <= nextSlotHorizonDays; i++ {
		d := from.AddDate(0, 0, i)
		slots, err := e.SlotsForDate(ctx, doctorID, d)
		if err != nil {
			return "", nil, err
		}
		for _, s := range slots {
			if s.Available {
				found := s
				return d.Format("2006-01-02"), &found, nil
			}
		}
	}
	e.log.Debug().Str("doctor_id", doctorID.String()).Msg("no open slot within horizon")
	return "", nil, ErrNoSlot
}

// carve walks the window emitting fixed-size slots: each slot occupies
// durationMinutes, and the cursor then skips the slot plus the buffer.
// A partial slot that would run past the window end is not emitted.
func carve(start, end timeofday.TimeOfDay, durationMinutes, bufferMinutes int) []Slot {
	if durationMinutes <= 0 {
		return nil
	}
	var slots []Slot
	for cursor := start; cursor.Add(durationMinutes) <= end; cursor = cursor.Add(durationMinutes + bufferMinutes) {
		slots = append(slots, Slot{
			StartTime: cursor,
			EndTime:   cursor.Add(durationMinutes),
			Available: true,
		})
	}
	return slots
}

func removeOverlapping(slots []Slot, start, end timeofday.TimeOfDay) []Slot {
	kept := slots[:0]
	for _, s := range slots {
		if !overlaps(s.StartTime, s.EndTime, start, end) {
			kept = append(kept, s)
		}
	}
	return kept
}

// overlaps tests two half-open intervals.
func overlaps(aStart, aEnd, bStart, bEnd timeofday.TimeOfDay) bool {
	return !(aEnd <= bStart || aStart >= bEnd)
}

package appointment

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/platform/notification"
)

// ContactLookup resolves a patient's display name and notification
// address.
type ContactLookup func(ctx context.Context, patientID uuid.UUID) (name, address string, err error)

// ManagerNotifier sends lifecycle notifications through the template
// engine. Every path is best-effort: failures are logged and
// swallowed, since a missed email must never unwind a booking.
type ManagerNotifier struct {
	mgr     *notification.NotificationManager
	contact ContactLookup
	log     zerolog.Logger
}

func NewManagerNotifier(mgr *notification.NotificationManager, contact ContactLookup, log zerolog.Logger) *ManagerNotifier {
	return &ManagerNotifier{mgr: mgr, contact: contact, log: log}
}

func (n *ManagerNotifier) AppointmentConfirmed(ctx context.Context, a *Appointment) {
	n.send(ctx, "appointment-confirmed", a, nil)
}

func (n *ManagerNotifier) AppointmentCancelled(ctx context.Context, a *Appointment) {
	data := map[string]string{"reason": "not specified"}
	if a.CancellationReason != nil {
		data["reason"] = *a.CancellationReason
	}
	n.send(ctx, "appointment-cancelled", a, data)
}

func (n *ManagerNotifier) AppointmentRescheduled(ctx context.Context, _, replacement *Appointment) {
	n.send(ctx, "appointment-rescheduled", replacement, nil)
}

func (n *ManagerNotifier) CriticalVitals(ctx context.Context, a *Appointment, findings []string) {
	n.send(ctx, "critical-vitals-alert", a, map[string]string{
		"findings": strings.Join(findings, ", "),
	})
}

func (n *ManagerNotifier) send(ctx context.Context, templateID string, a *Appointment, extra map[string]string) {
	name, address, err := n.contact(ctx, a.PatientID)
	if err != nil {
		n.log.Warn().Err(err).Str("template", templateID).Msg("notification skipped: no patient contact")
		return
	}
	data := map[string]string{
		"appointment_number": a.AppointmentNumber,
		"patient_name":       name,
		"date":               a.Date.Format("2006-01-02"),
		"time":               a.StartTime.String(),
	}
	if a.PhysicianName != nil {
		data["physician"] = *a.PhysicianName
	} else {
		data["physician"] = "the clinic"
	}
	for k, v := range extra {
		data[k] = v
	}
	if _, err := n.mgr.SendFromTemplate(ctx, templateID, data, address); err != nil {
		n.log.Warn().Err(err).Str("template", templateID).Msg("notification send failed")
	}
}

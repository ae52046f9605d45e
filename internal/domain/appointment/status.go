package appointment

import "fmt"

// Appointment lifecycle statuses.
const (
	StatusDraft          = "DRAFT"
	StatusConfirmed      = "CONFIRMED"
	StatusWaiting        = "WAITING"
	StatusInConsultation = "IN_CONSULTATION"
	StatusToInvoice      = "TO_INVOICE"
	StatusCompleted      = "COMPLETED"
	StatusCancelled      = "CANCELLED"
	StatusNoShow         = "NO_SHOW"
)

// transitions is the complete lifecycle graph. Statuses absent from a
// target set are unreachable from that state; terminal statuses map to
// an empty set.
var transitions = map[string][]string{
	StatusDraft:          {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusWaiting, StatusCancelled, StatusNoShow},
	StatusWaiting:        {StatusInConsultation, StatusCancelled, StatusNoShow},
	StatusInConsultation: {StatusToInvoice, StatusCompleted, StatusCancelled},
	StatusToInvoice:      {StatusCompleted, StatusCancelled},
	StatusCompleted:      {},
	StatusCancelled:      {},
	StatusNoShow:         {},
}

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether s admits no further transitions.
func Terminal(s string) bool {
	targets, ok := transitions[s]
	return ok && len(targets) == 0
}

// TransitionError reports a lifecycle move the state machine forbids.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition appointment from %s to %s", e.From, e.To)
}

// CanTransition checks from→to against the lifecycle graph. Equal
// states are allowed here; callers treat them as a no-op.
func CanTransition(from, to string) error {
	if from == to {
		return nil
	}
	for _, t := range transitions[from] {
		if t == to {
			return nil
		}
	}
	return &TransitionError{From: from, To: to}
}

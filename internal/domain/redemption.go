package domain

import "time"

type OutcomeKind string

const (
	OutcomeAdmitted       OutcomeKind = "admitted"
	OutcomeAlreadyScanned OutcomeKind = "already_scanned"
	OutcomeNotFound       OutcomeKind = "not_found"
	OutcomeWrongEvent     OutcomeKind = "wrong_event"
	OutcomeCancelled      OutcomeKind = "cancelled"
)

// Outcome is the result of presenting a ticket code at a gate.
// ScannedAt/ScannedBy are set for OutcomeAdmitted (this scan) and for
// OutcomeAlreadyScanned (the original scan, never overwritten).
type Outcome struct {
	Kind      OutcomeKind
	ScannedAt *time.Time
	ScannedBy *int64
}

// EvaluateRedemption classifies a redemption attempt against the ticket's
// current state without mutating anything. The store performs the actual
// active → scanned transition as a single conditional update; this function
// is used to classify attempts that lost that update and to keep the
// decision order of the state machine in one place:
//
//	nil ticket           → NotFound
//	wrong event          → WrongEvent
//	cancelled            → Cancelled
//	scanned or used      → AlreadyScanned (original scanner and time)
//	active               → Admitted
func EvaluateRedemption(t *Ticket, eventID int64) Outcome {
	if t == nil {
		return Outcome{Kind: OutcomeNotFound}
	}

	if t.EventID != eventID {
		return Outcome{Kind: OutcomeWrongEvent}
	}

	switch {
	case t.Status == TicketCancelled:
		return Outcome{Kind: OutcomeCancelled}
	case t.Status.CanTransitionTo(TicketScanned):
		return Outcome{Kind: OutcomeAdmitted}
	default:
		// scanned or used
		return Outcome{
			Kind:      OutcomeAlreadyScanned,
			ScannedAt: t.ScannedAt,
			ScannedBy: t.ScannedBy,
		}
	}
}

// ScanRecord is one row of the append-only scan history.
type ScanRecord struct {
	ID        int64
	Code      string
	EventID   int64
	ScannerID int64
	Outcome   OutcomeKind
	At        time.Time
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

type TicketStatus string

const (
	TicketActive    TicketStatus = "active"
	TicketScanned   TicketStatus = "scanned"
	TicketUsed      TicketStatus = "used"
	TicketCancelled TicketStatus = "cancelled"
)

// CanTransitionTo reports whether the status may move to next. The ticket
// state machine only moves forward: active → scanned → used, with
// active → cancelled as the only administrative exit. Terminal states
// have no outgoing transitions.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	switch s {
	case TicketActive:
		return next == TicketScanned || next == TicketCancelled
	case TicketScanned:
		return next == TicketUsed
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible from s.
func (s TicketStatus) Terminal() bool {
	return s == TicketUsed || s == TicketCancelled
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentFailed    PaymentStatus = "failed"
)

type Ticket struct {
	ID            uuid.UUID
	Code          string
	TransactionID uuid.UUID
	EventID       int64
	OwnerID       int64
	Status        TicketStatus
	ScannedAt     *time.Time
	ScannedBy     *int64
	CreatedAt     time.Time
}

type Transaction struct {
	ID            uuid.UUID
	OrderID       string
	UserID        int64
	EventID       int64
	Quantity      int
	AmountCents   int64
	PaymentStatus PaymentStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type TransactionWithTickets struct {
	Transaction Transaction
	Tickets     []Ticket
}

// GateStats are per-event ticket counters shown on gate dashboards.
type GateStats struct {
	Active    int64
	Scanned   int64
	Used      int64
	Cancelled int64
	Total     int64
}

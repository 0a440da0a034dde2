package httpgin

import (
	"time"

	"github.com/tiketbaris/gate-go/internal/domain"
)

type CheckoutRequest struct {
	OrderID     string `json:"order_id" binding:"required"`
	UserID      int64  `json:"user_id" binding:"required"`
	EventID     int64  `json:"event_id" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
}

type CheckoutResponse struct {
	TransactionID string `json:"transaction_id"`
	OrderID       string `json:"order_id"`
	PaymentStatus string `json:"payment_status"`
}

type NotificationResponse struct {
	OrderID       string   `json:"order_id"`
	PaymentStatus string   `json:"payment_status"`
	TicketCodes   []string `json:"ticket_codes,omitempty"`
}

type ScanRequest struct {
	Code      string `json:"code" binding:"required"`
	ScannerID int64  `json:"scanner_id" binding:"required"`
	EventID   int64  `json:"event_id" binding:"required"`
}

type ScanResponse struct {
	Outcome   string     `json:"outcome"`
	ScannedAt *time.Time `json:"scanned_at,omitempty"`
	ScannedBy *int64     `json:"scanned_by,omitempty"`
}

type TicketResponse struct {
	ID            string     `json:"id"`
	Code          string     `json:"code"`
	TransactionID string     `json:"transaction_id"`
	EventID       int64      `json:"event_id"`
	OwnerID       int64      `json:"owner_id"`
	Status        string     `json:"status"`
	ScannedAt     *time.Time `json:"scanned_at,omitempty"`
	ScannedBy     *int64     `json:"scanned_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type TransactionResponse struct {
	ID            string           `json:"id"`
	OrderID       string           `json:"order_id"`
	UserID        int64            `json:"user_id"`
	EventID       int64            `json:"event_id"`
	Quantity      int              `json:"quantity"`
	AmountCents   int64            `json:"amount_cents"`
	PaymentStatus string           `json:"payment_status"`
	CreatedAt     time.Time        `json:"created_at"`
	Tickets       []TicketResponse `json:"tickets"`
}

type GateStatsResponse struct {
	Active    int64 `json:"active"`
	Scanned   int64 `json:"scanned"`
	Used      int64 `json:"used"`
	Cancelled int64 `json:"cancelled"`
	Total     int64 `json:"total"`
}

type ScanRecordResponse struct {
	Code      string    `json:"code"`
	EventID   int64     `json:"event_id"`
	ScannerID int64     `json:"scanner_id"`
	Outcome   string    `json:"outcome"`
	At        time.Time `json:"at"`
}

type CloseEventResponse struct {
	EventID int64 `json:"event_id"`
	Used    int64 `json:"used"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func toTicketResponse(t domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:            t.ID.String(),
		Code:          t.Code,
		TransactionID: t.TransactionID.String(),
		EventID:       t.EventID,
		OwnerID:       t.OwnerID,
		Status:        string(t.Status),
		ScannedAt:     t.ScannedAt,
		ScannedBy:     t.ScannedBy,
		CreatedAt:     t.CreatedAt,
	}
}

func toTransactionResponse(tw *domain.TransactionWithTickets) TransactionResponse {
	tickets := make([]TicketResponse, 0, len(tw.Tickets))
	for _, t := range tw.Tickets {
		tickets = append(tickets, toTicketResponse(t))
	}

	return TransactionResponse{
		ID:            tw.Transaction.ID.String(),
		OrderID:       tw.Transaction.OrderID,
		UserID:        tw.Transaction.UserID,
		EventID:       tw.Transaction.EventID,
		Quantity:      tw.Transaction.Quantity,
		AmountCents:   tw.Transaction.AmountCents,
		PaymentStatus: string(tw.Transaction.PaymentStatus),
		CreatedAt:     tw.Transaction.CreatedAt,
		Tickets:       tickets,
	}
}

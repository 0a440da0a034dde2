// Package gateway models the payment gateway's asynchronous settlement
// notification. Delivery is at-least-once: the same notification may arrive
// any number of times, so everything downstream is keyed by OrderID.
package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

type Settlement string

const (
	SettlementConfirmed Settlement = "confirmed"
	SettlementCancelled Settlement = "cancelled"
	SettlementFailed    Settlement = "failed"
	SettlementPending   Settlement = "pending"
)

var (
	ErrBadSignature  = errors.New("notification signature mismatch")
	ErrUnknownStatus = errors.New("unknown transaction status")
)

// Notification is the webhook payload as the gateway sends it.
type Notification struct {
	OrderID           string `json:"order_id" binding:"required"`
	TransactionStatus string `json:"transaction_status" binding:"required"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	FraudStatus       string `json:"fraud_status"`
	SignatureKey      string `json:"signature_key"`
}

// VerifySignature checks the payload against the merchant server key. The
// gateway signs sha512(order_id + status_code + gross_amount + server_key)
// and sends the hex digest in signature_key.
func (n Notification) VerifySignature(serverKey string) error {
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + serverKey))
	want := hex.EncodeToString(sum[:])

	if subtle.ConstantTimeCompare([]byte(want), []byte(n.SignatureKey)) != 1 {
		return ErrBadSignature
	}

	return nil
}

// Outcome maps the gateway's transaction status vocabulary onto the
// settlement outcomes the issuer reacts to. "capture" admits only when fraud
// screening accepted the charge.
func (n Notification) Outcome() (Settlement, error) {
	switch n.TransactionStatus {
	case "settlement":
		return SettlementConfirmed, nil
	case "capture":
		if n.FraudStatus == "" || n.FraudStatus == "accept" {
			return SettlementConfirmed, nil
		}
		return SettlementFailed, nil
	case "cancel", "expire":
		return SettlementCancelled, nil
	case "deny", "failure":
		return SettlementFailed, nil
	case "pending", "authorize":
		return SettlementPending, nil
	default:
		return "", ErrUnknownStatus
	}
}

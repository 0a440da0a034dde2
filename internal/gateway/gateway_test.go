package gateway

import (
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func TestVerifySignature(t *testing.T) {
	n := Notification{
		OrderID:      "ORDER-1",
		StatusCode:   "200",
		GrossAmount:  "150000.00",
		SignatureKey: signed("ORDER-1", "200", "150000.00", "sk-test"),
	}

	assert.NoError(t, n.VerifySignature("sk-test"))
	assert.ErrorIs(t, n.VerifySignature("sk-other"), ErrBadSignature)

	n.SignatureKey = "junk"
	assert.ErrorIs(t, n.VerifySignature("sk-test"), ErrBadSignature)
}

func TestOutcomeMapping(t *testing.T) {
	cases := []struct {
		status string
		fraud  string
		want   Settlement
	}{
		{"settlement", "", SettlementConfirmed},
		{"capture", "accept", SettlementConfirmed},
		{"capture", "", SettlementConfirmed},
		{"capture", "challenge", SettlementFailed},
		{"cancel", "", SettlementCancelled},
		{"expire", "", SettlementCancelled},
		{"deny", "", SettlementFailed},
		{"failure", "", SettlementFailed},
		{"pending", "", SettlementPending},
		{"authorize", "", SettlementPending},
	}

	for _, tc := range cases {
		n := Notification{TransactionStatus: tc.status, FraudStatus: tc.fraud}
		got, err := n.Outcome()
		require.NoError(t, err, tc.status)
		assert.Equal(t, tc.want, got, "%s/%s", tc.status, tc.fraud)
	}
}

func TestOutcomeUnknownStatus(t *testing.T) {
	n := Notification{TransactionStatus: "refund"}
	_, err := n.Outcome()
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

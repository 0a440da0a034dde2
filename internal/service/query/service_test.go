package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tiketbaris/gate-go/internal/domain"
	"github.com/tiketbaris/gate-go/internal/repository"
)

type memStore struct {
	tickets map[string]domain.Ticket
	txs     map[string]domain.TransactionWithTickets
	scans   map[string][]domain.ScanRecord
	stats   domain.GateStats
}

func (m *memStore) TransactionWithTickets(ctx context.Context, orderID string) (*domain.TransactionWithTickets, error) {
	tw, ok := m.txs[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &tw, nil
}

func (m *memStore) TicketByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	t, ok := m.tickets[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (m *memStore) CountsByEvent(ctx context.Context, eventID int64) (*domain.GateStats, error) {
	s := m.stats
	return &s, nil
}

func (m *memStore) ScanHistory(ctx context.Context, code string) ([]domain.ScanRecord, error) {
	return m.scans[code], nil
}

func newTestService(store Store) *Service {
	return New(store, nil, Config{})
}

func TestGetTransaction(t *testing.T) {
	store := &memStore{txs: map[string]domain.TransactionWithTickets{
		"ORDER-1": {
			Transaction: domain.Transaction{OrderID: "ORDER-1", Quantity: 2},
			Tickets: []domain.Ticket{
				{Code: "TKTAAAA2345K"},
				{Code: "TKTBBBB2345K"},
			},
		},
	}}
	svc := newTestService(store)

	tw, err := svc.GetTransaction(context.Background(), "ORDER-1")
	require.NoError(t, err)
	assert.Len(t, tw.Tickets, 2)

	_, err = svc.GetTransaction(context.Background(), "NO-SUCH-ORDER")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestGetTicket(t *testing.T) {
	store := &memStore{tickets: map[string]domain.Ticket{
		"TKTAAAA2345K": {Code: "TKTAAAA2345K", Status: domain.TicketActive},
	}}
	svc := newTestService(store)

	tk, err := svc.GetTicket(context.Background(), "TKTAAAA2345K")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketActive, tk.Status)

	_, err = svc.GetTicket(context.Background(), "NOPE9999XYZW")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestTicketQR(t *testing.T) {
	store := &memStore{tickets: map[string]domain.Ticket{
		"TKTAAAA2345K": {Code: "TKTAAAA2345K", Status: domain.TicketActive},
	}}
	svc := newTestService(store)

	png, err := svc.TicketQR(context.Background(), "TKTAAAA2345K")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])

	_, err = svc.TicketQR(context.Background(), "NOPE9999XYZW")
	assert.ErrorIs(t, err, ErrTicketNotFound, "no symbol for an unknown code")
}

func TestScanHistory(t *testing.T) {
	store := &memStore{
		tickets: map[string]domain.Ticket{
			"TKTAAAA2345K": {Code: "TKTAAAA2345K", Status: domain.TicketScanned},
		},
		scans: map[string][]domain.ScanRecord{
			"TKTAAAA2345K": {
				{Code: "TKTAAAA2345K", Outcome: domain.OutcomeAdmitted},
				{Code: "TKTAAAA2345K", Outcome: domain.OutcomeAlreadyScanned},
			},
		},
	}
	svc := newTestService(store)

	recs, err := svc.ScanHistory(context.Background(), "TKTAAAA2345K")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, domain.OutcomeAdmitted, recs[0].Outcome)

	_, err = svc.ScanHistory(context.Background(), "NOPE9999XYZW")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestGateStatsWithoutCache(t *testing.T) {
	store := &memStore{stats: domain.GateStats{Active: 3, Scanned: 2, Total: 5}}
	svc := newTestService(store)

	stats, err := svc.GateStats(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Active)
	assert.Equal(t, int64(5), stats.Total)
}

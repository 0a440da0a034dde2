package redemption

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tiketbaris/gate-go/internal/domain"
	"github.com/tiketbaris/gate-go/internal/repository"
)

// memStore implements Store with the same conditional-update semantics the
// postgres repo provides, guarded by a mutex so concurrency tests exercise
// real races.
type memStore struct {
	mu     sync.Mutex
	byCode map[string]*domain.Ticket
	scans  []domain.ScanRecord
}

func newMemStore(tickets ...domain.Ticket) *memStore {
	m := &memStore{byCode: make(map[string]*domain.Ticket)}
	for i := range tickets {
		tk := tickets[i]
		m.byCode[tk.Code] = &tk
	}

	return m
}

func (m *memStore) RedeemTicket(ctx context.Context, code string, scannerID, eventID int64) (domain.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.byCode[code]
	out := domain.EvaluateRedemption(t, eventID)
	if out.Kind == domain.OutcomeAdmitted {
		now := time.Now()
		t.Status = domain.TicketScanned
		t.ScannedAt = &now
		t.ScannedBy = &scannerID
		out.ScannedAt = &now
		out.ScannedBy = &scannerID
	}

	return out, nil
}

func (m *memStore) TicketByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.byCode[code]
	if !ok {
		return nil, repository.ErrNotFound
	}

	cp := *t
	return &cp, nil
}

func (m *memStore) CancelTicket(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.byCode[code]
	if !ok {
		return repository.ErrNotFound
	}

	if t.Status != domain.TicketActive {
		return repository.ErrNotActive
	}

	t.Status = domain.TicketCancelled
	return nil
}

func (m *memStore) MarkEventUsed(ctx context.Context, eventID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var moved int64
	for _, t := range m.byCode {
		if t.EventID == eventID && t.Status == domain.TicketScanned {
			t.Status = domain.TicketUsed
			moved++
		}
	}

	return moved, nil
}

func (m *memStore) AppendScan(ctx context.Context, rec domain.ScanRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scans = append(m.scans, rec)
	return nil
}

func activeTicket(code string, eventID int64) domain.Ticket {
	return domain.Ticket{Code: code, EventID: eventID, Status: domain.TicketActive}
}

func TestRedeemAdmitThenReject(t *testing.T) {
	store := newMemStore(activeTicket("TKT2345HJKM", 7))
	svc := New(store, nil, nil, nil)

	first, err := svc.Redeem(context.Background(), "TKT2345HJKM", 101, 7, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAdmitted, first.Kind)

	second, err := svc.Redeem(context.Background(), "TKT2345HJKM", 202, 7, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAlreadyScanned, second.Kind)
	require.NotNil(t, second.ScannedBy)
	assert.Equal(t, int64(101), *second.ScannedBy, "original scanner is preserved")
	require.NotNil(t, second.ScannedAt)
	assert.Equal(t, *first.ScannedAt, *second.ScannedAt, "original scan time is preserved")
}

func TestRedeemWrongEventLeavesTicketActive(t *testing.T) {
	store := newMemStore(activeTicket("TKT2345HJKM", 7))
	svc := New(store, nil, nil, nil)

	out, err := svc.Redeem(context.Background(), "TKT2345HJKM", 101, 8, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeWrongEvent, out.Kind)

	tk, err := store.TicketByCode(context.Background(), "TKT2345HJKM")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketActive, tk.Status)

	// The ticket still admits at its own event.
	out, err = svc.Redeem(context.Background(), "TKT2345HJKM", 101, 7, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAdmitted, out.Kind)
}

func TestRedeemUnknownCode(t *testing.T) {
	svc := New(newMemStore(), nil, nil, nil)

	out, err := svc.Redeem(context.Background(), "NOPE9999XYZW", 101, 7, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotFound, out.Kind)
}

func TestRedeemEmptyCode(t *testing.T) {
	svc := New(newMemStore(), nil, nil, nil)

	out, err := svc.Redeem(context.Background(), "", 101, 7, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotFound, out.Kind)
}

func TestRedeemCancelledTicket(t *testing.T) {
	tk := activeTicket("TKT2345HJKM", 7)
	tk.Status = domain.TicketCancelled
	svc := New(newMemStore(tk), nil, nil, nil)

	out, err := svc.Redeem(context.Background(), "TKT2345HJKM", 101, 7, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCancelled, out.Kind)
}

func TestRedeemConcurrentAdmitsOnce(t *testing.T) {
	store := newMemStore(activeTicket("TKT2345HJKM", 7))
	svc := New(store, nil, nil, nil)

	const scanners = 50

	var wg sync.WaitGroup
	outcomes := make([]domain.Outcome, scanners)
	errs := make([]error, scanners)

	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = svc.Redeem(context.Background(), "TKT2345HJKM", int64(i+1), 7, "")
		}(i)
	}
	wg.Wait()

	var admitted int
	for i := 0; i < scanners; i++ {
		require.NoError(t, errs[i])
		if outcomes[i].Kind == domain.OutcomeAdmitted {
			admitted++
		} else {
			assert.Equal(t, domain.OutcomeAlreadyScanned, outcomes[i].Kind)
		}
	}

	assert.Equal(t, 1, admitted, "exactly one scanner admits")
}

func TestRedeemAppendsScanLog(t *testing.T) {
	store := newMemStore(activeTicket("TKT2345HJKM", 7))
	svc := New(store, nil, nil, nil)

	_, err := svc.Redeem(context.Background(), "TKT2345HJKM", 101, 7, "")
	require.NoError(t, err)
	_, err = svc.Redeem(context.Background(), "TKT2345HJKM", 202, 7, "")
	require.NoError(t, err)

	require.Len(t, store.scans, 2, "rejected attempts are logged too")
	assert.Equal(t, domain.OutcomeAdmitted, store.scans[0].Outcome)
	assert.Equal(t, domain.OutcomeAlreadyScanned, store.scans[1].Outcome)
	assert.Equal(t, int64(202), store.scans[1].ScannerID)
}

func TestCancel(t *testing.T) {
	store := newMemStore(activeTicket("TKT2345HJKM", 7))
	svc := New(store, nil, nil, nil)

	require.NoError(t, svc.Cancel(context.Background(), "TKT2345HJKM"))

	tk, err := store.TicketByCode(context.Background(), "TKT2345HJKM")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketCancelled, tk.Status)

	// Second cancel: the ticket already left active.
	err = svc.Cancel(context.Background(), "TKT2345HJKM")
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestCancelUnknownCode(t *testing.T) {
	svc := New(newMemStore(), nil, nil, nil)

	err := svc.Cancel(context.Background(), "NOPE9999XYZW")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestCancelScannedTicket(t *testing.T) {
	store := newMemStore(activeTicket("TKT2345HJKM", 7))
	svc := New(store, nil, nil, nil)

	_, err := svc.Redeem(context.Background(), "TKT2345HJKM", 101, 7, "")
	require.NoError(t, err)

	err = svc.Cancel(context.Background(), "TKT2345HJKM")
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestCloseEvent(t *testing.T) {
	store := newMemStore(
		activeTicket("TKTAAAA2345K", 7),
		activeTicket("TKTBBBB2345K", 7),
		activeTicket("TKTCCCC2345K", 9),
	)
	svc := New(store, nil, nil, nil)

	_, err := svc.Redeem(context.Background(), "TKTAAAA2345K", 101, 7, "")
	require.NoError(t, err)

	moved, err := svc.CloseEvent(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), moved, "only scanned tickets move to used")

	tk, err := store.TicketByCode(context.Background(), "TKTAAAA2345K")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketUsed, tk.Status)

	tk, err = store.TicketByCode(context.Background(), "TKTBBBB2345K")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketActive, tk.Status, "never-scanned tickets stay active")

	// Re-running is a no-op.
	moved, err = svc.CloseEvent(context.Background(), 7)
	require.NoError(t, err)
	assert.Zero(t, moved)
}

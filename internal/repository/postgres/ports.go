package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tiketbaris/gate-go/internal/domain"
	"github.com/tiketbaris/gate-go/internal/repository"
)

// Service port implementations. The services declare the narrow interfaces
// they need; Store satisfies all of them by delegating to the repos.

func (s *Store) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	return s.Transactions().Create(ctx, t)
}

func (s *Store) TransactionByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error) {
	return s.Transactions().GetByOrderID(ctx, orderID)
}

// CompleteAndMint performs the pending → completed transition and mints the
// order's tickets in one serializable transaction. If minting fails the
// whole transaction rolls back, leaving the order pending and the operation
// safe to retry.
//
// Returns:
//   - bool: true when this caller won the transition and minted the batch;
//     false when another caller already took it (nothing was written).
//   - error: repository.ErrConflict on a ticket code collision (regenerate
//     and retry the call).
func (s *Store) CompleteAndMint(ctx context.Context, orderID string, tickets []domain.Ticket) (bool, error) {
	const op = "postgres.Store.CompleteAndMint"

	err := s.RunTx(ctx, nil, func(ctx context.Context, tx DB) error {
		if err := s.Transactions().With(tx).CompletePending(ctx, orderID); err != nil {
			return err
		}

		return s.Tickets().With(tx).InsertBatch(ctx, tickets)
	})
	switch {
	case errors.Is(err, repository.ErrNoPendingTransaction):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

func (s *Store) FinishTransaction(ctx context.Context, orderID string, status domain.PaymentStatus) (bool, error) {
	return s.Transactions().Finish(ctx, orderID, status)
}

func (s *Store) TicketsByTransaction(ctx context.Context, txID uuid.UUID) ([]domain.Ticket, error) {
	return s.Tickets().ListByTransaction(ctx, txID)
}

func (s *Store) TicketCodeExists(ctx context.Context, code string) (bool, error) {
	return s.Tickets().CodeExists(ctx, code)
}

func (s *Store) TicketByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	return s.Tickets().GetByCode(ctx, code)
}

func (s *Store) RedeemTicket(ctx context.Context, code string, scannerID, eventID int64) (domain.Outcome, error) {
	return s.Tickets().Redeem(ctx, code, scannerID, eventID)
}

func (s *Store) CancelTicket(ctx context.Context, code string) error {
	return s.Tickets().Cancel(ctx, code)
}

func (s *Store) MarkEventUsed(ctx context.Context, eventID int64) (int64, error) {
	return s.Tickets().MarkUsedByEvent(ctx, eventID)
}

func (s *Store) CountsByEvent(ctx context.Context, eventID int64) (*domain.GateStats, error) {
	return s.Tickets().CountsByEvent(ctx, eventID)
}

func (s *Store) AppendScan(ctx context.Context, rec domain.ScanRecord) error {
	return s.ScanLog().Append(ctx, rec)
}

func (s *Store) ScanHistory(ctx context.Context, code string) ([]domain.ScanRecord, error) {
	return s.ScanLog().ListByCode(ctx, code)
}

// TransactionWithTickets loads a transaction and its tickets. Tickets only
// exist once the transaction completed, so the list is empty for pending
// and closed orders.
func (s *Store) TransactionWithTickets(ctx context.Context, orderID string) (*domain.TransactionWithTickets, error) {
	const op = "postgres.Store.TransactionWithTickets"

	t, err := s.Transactions().GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	tickets, err := s.Tickets().ListByTransaction(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &domain.TransactionWithTickets{
		Transaction: *t,
		Tickets:     tickets,
	}, nil
}

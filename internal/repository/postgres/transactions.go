package postgres

import (
	"context"
	"fmt"

	"github.com/tiketbaris/gate-go/internal/domain"
	"github.com/tiketbaris/gate-go/internal/repository"
)

type TransactionRepo struct {
	pool Pool
	db   DB
}

func (r *TransactionRepo) With(db DB) *TransactionRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TransactionRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create inserts a pending transaction for a checkout.
//
// Returns:
//   - error: repository.ErrConflict if the order_id is already taken.
func (r *TransactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	const op = "postgres.TransactionRepo.Create"

	db := r.handle()

	_, err := db.Exec(ctx,
		`INSERT INTO transactions(id, order_id, user_id, event_id, quantity,
		                          amount_cents, payment_status)
       	 VALUES ($1, $2, $3, $4, $5, $6, 'pending')`,
		t.ID, t.OrderID, t.UserID, t.EventID, t.Quantity, t.AmountCents,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// GetByOrderID retrieves a transaction by its gateway correlation key.
//
// Returns:
//   - error: repository.ErrNotFound if the order is unknown.
func (r *TransactionRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error) {
	const op = "postgres.TransactionRepo.GetByOrderID"

	db := r.handle()

	var t domain.Transaction
	err := db.QueryRow(ctx,
		`SELECT id, order_id, user_id, event_id, quantity, amount_cents,
		        payment_status, created_at, updated_at
       	 FROM transactions WHERE order_id = $1`,
		orderID,
	).Scan(
		&t.ID, &t.OrderID, &t.UserID, &t.EventID, &t.Quantity, &t.AmountCents,
		&t.PaymentStatus, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &t, nil
}

// CompletePending performs the pending → completed transition. The
// conditional single-row update is the writer gate for ticket minting:
// a retried webhook finds no pending row and must not mint.
//
// Returns:
//   - error: repository.ErrNoPendingTransaction when no pending row matched,
//     because the order is unknown or another caller already moved it.
func (r *TransactionRepo) CompletePending(ctx context.Context, orderID string) error {
	const op = "postgres.TransactionRepo.CompletePending"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE transactions
		 SET payment_status = 'completed', updated_at = now()
		 WHERE order_id = $1 AND payment_status = 'pending'`,
		orderID,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNoPendingTransaction)
	}

	return nil
}

// Finish moves a pending transaction to cancelled or failed when the gateway
// reports a terminal non-settlement outcome. Conditional on pending, so a
// late cancellation can never claw back a completed order.
//
// Returns:
//   - bool: true when the row actually moved this call.
func (r *TransactionRepo) Finish(
	ctx context.Context,
	orderID string,
	status domain.PaymentStatus,
) (bool, error) {
	const op = "postgres.TransactionRepo.Finish"

	if status != domain.PaymentCancelled && status != domain.PaymentFailed {
		return false, fmt.Errorf("%s: %q is not a terminal failure status", op, status)
	}

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE transactions
		 SET payment_status = $2, updated_at = now()
		 WHERE order_id = $1 AND payment_status = 'pending'`,
		orderID, status,
	)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return tag.RowsAffected() == 1, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tiketbaris/gate-go/internal/domain"
	"github.com/tiketbaris/gate-go/internal/repository"
)

type TicketRepo struct {
	pool Pool
	db   DB
}

func (r *TicketRepo) With(db DB) *TicketRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TicketRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// CodeExists reports whether a code was ever issued. Cancelled tickets count:
// codes are never recycled.
func (r *TicketRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	const op = "postgres.TicketRepo.CodeExists"

	db := r.handle()

	var exists bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM tickets WHERE code = $1)`,
		code,
	).Scan(&exists)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return exists, nil
}

// InsertBatch mints tickets in one round-trip. A unique violation on code
// surfaces as repository.ErrConflict so the caller can regenerate.
func (r *TicketRepo) InsertBatch(ctx context.Context, tickets []domain.Ticket) error {
	const op = "postgres.TicketRepo.InsertBatch"

	db := r.handle()

	batch := &pgx.Batch{}
	for _, t := range tickets {
		batch.Queue(
			`INSERT INTO tickets(id, code, transaction_id, event_id, owner_id, status)
         	 VALUES ($1, $2, $3, $4, $5, $6)`,
			t.ID, t.Code, t.TransactionID, t.EventID, t.OwnerID, t.Status,
		)
	}

	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// GetByCode retrieves a ticket by its code.
//
// Returns:
//   - *domain.Ticket: the ticket when found.
//   - error: repository.ErrNotFound if no ticket carries the code.
func (r *TicketRepo) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	const op = "postgres.TicketRepo.GetByCode"

	db := r.handle()

	var t domain.Ticket
	err := db.QueryRow(ctx,
		`SELECT id, code, transaction_id, event_id, owner_id, status,
		        scanned_at, scanned_by, created_at
       	 FROM tickets WHERE code = $1`,
		code,
	).Scan(
		&t.ID, &t.Code, &t.TransactionID, &t.EventID, &t.OwnerID, &t.Status,
		&t.ScannedAt, &t.ScannedBy, &t.CreatedAt,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &t, nil
}

// ListByTransaction returns all tickets minted for a transaction, in the
// order they were created.
func (r *TicketRepo) ListByTransaction(ctx context.Context, txID uuid.UUID) ([]domain.Ticket, error) {
	const op = "postgres.TicketRepo.ListByTransaction"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, code, transaction_id, event_id, owner_id, status,
		        scanned_at, scanned_by, created_at
		 FROM tickets
		 WHERE transaction_id = $1
		 ORDER BY created_at, code`,
		txID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(
			&t.ID, &t.Code, &t.TransactionID, &t.EventID, &t.OwnerID, &t.Status,
			&t.ScannedAt, &t.ScannedBy, &t.CreatedAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Redeem attempts the active → scanned transition for a code presented at a
// gate. The transition is a single conditional update, so under concurrent
// attempts for the same code exactly one observes OutcomeAdmitted; every
// other attempt is classified against the row that won.
//
// Returns:
//   - domain.Outcome: Admitted, AlreadyScanned (original scanner and time),
//     NotFound, WrongEvent or Cancelled.
func (r *TicketRepo) Redeem(
	ctx context.Context,
	code string,
	scannerID int64,
	eventID int64,
) (domain.Outcome, error) {
	const op = "postgres.TicketRepo.Redeem"

	db := r.handle()

	var out domain.Outcome
	err := db.QueryRow(ctx,
		`UPDATE tickets
		 SET status = 'scanned', scanned_at = now(), scanned_by = $2
		 WHERE code = $1 AND event_id = $3 AND status = 'active'
		 RETURNING scanned_at, scanned_by`,
		code, scannerID, eventID,
	).Scan(&out.ScannedAt, &out.ScannedBy)
	if err == nil {
		out.Kind = domain.OutcomeAdmitted
		return out, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Outcome{}, wrapDBErr(op, err)
	}

	// Lost the conditional update. Read the row to tell the operator why.
	t, err := r.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Outcome{Kind: domain.OutcomeNotFound}, nil
		}
		return domain.Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	return domain.EvaluateRedemption(t, eventID), nil
}

// Cancel moves an active ticket to cancelled. Scanned and used tickets are
// not cancellable.
//
// Returns:
//   - error: repository.ErrNotFound if the code is unknown.
//   - error: repository.ErrNotActive if the ticket already left active.
func (r *TicketRepo) Cancel(ctx context.Context, code string) error {
	const op = "postgres.TicketRepo.Cancel"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE tickets SET status = 'cancelled'
		 WHERE code = $1 AND status = 'active'`,
		code,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	exists, err := r.CodeExists(ctx, code)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return fmt.Errorf("%s: %w", op, repository.ErrNotActive)
}

// MarkUsedByEvent moves every scanned ticket of a finished event to used.
// Idempotent to re-running: already-used tickets no longer match.
//
// Returns:
//   - int64: the number of tickets marked this run.
func (r *TicketRepo) MarkUsedByEvent(ctx context.Context, eventID int64) (int64, error) {
	const op = "postgres.TicketRepo.MarkUsedByEvent"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE tickets SET status = 'used'
		 WHERE event_id = $1 AND status = 'scanned'`,
		eventID,
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}

// CountsByEvent returns per-status ticket counters for an event.
func (r *TicketRepo) CountsByEvent(ctx context.Context, eventID int64) (*domain.GateStats, error) {
	const op = "postgres.TicketRepo.CountsByEvent"

	db := r.handle()

	var s domain.GateStats
	err := db.QueryRow(ctx,
		`SELECT
		   count(*) FILTER (WHERE status = 'active'),
		   count(*) FILTER (WHERE status = 'scanned'),
		   count(*) FILTER (WHERE status = 'used'),
		   count(*) FILTER (WHERE status = 'cancelled'),
		   count(*)
		 FROM tickets WHERE event_id = $1`,
		eventID,
	).Scan(&s.Active, &s.Scanned, &s.Used, &s.Cancelled, &s.Total)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &s, nil
}

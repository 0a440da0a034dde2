package redemption

import (
	"context"
	"errors"
	"fmt"

	"github.com/tiketbaris/gate-go/internal/domain"
	"github.com/tiketbaris/gate-go/internal/repository"
	redisrepo "github.com/tiketbaris/gate-go/internal/repository/redis"
)

// Store is the persistence the validator needs. RedeemTicket must perform
// the active → scanned transition as a single conditional update: under
// concurrent attempts for one code exactly one caller observes
// OutcomeAdmitted.
type Store interface {
	RedeemTicket(ctx context.Context, code string, scannerID, eventID int64) (domain.Outcome, error)
	TicketByCode(ctx context.Context, code string) (*domain.Ticket, error)
	CancelTicket(ctx context.Context, code string) error
	MarkEventUsed(ctx context.Context, eventID int64) (int64, error)
	AppendScan(ctx context.Context, rec domain.ScanRecord) error
}

// Service is the redemption validator. It holds no in-process state; any
// number of instances may run against the shared store.
type Service struct {
	store   Store
	cache   *redisrepo.Cache
	pubsub  *redisrepo.AdmissionsPubSub
	limiter *redisrepo.SlidingWindowLimiter
}

func New(
	store Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.AdmissionsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
) *Service {
	return &Service{
		store:   store,
		cache:   cache,
		pubsub:  pubsub,
		limiter: limiter,
	}
}

// Redeem decides whether a presented code admits into the event and records
// the attempt. rlKey identifies the scanning device for rate limiting; empty
// disables the limiter for this call.
//
// Returns:
//   - domain.Outcome: Admitted, AlreadyScanned (with the original scanner
//     and time, never overwritten), NotFound, WrongEvent or Cancelled.
//   - error: redemption.RateLimitedError, or a store failure. Store
//     failures are retryable: the conditional update never double-admits.
func (s *Service) Redeem(
	ctx context.Context,
	code string,
	scannerID, eventID int64,
	rlKey string,
) (domain.Outcome, error) {
	const op = "service.redemption.Redeem"

	if code == "" {
		return domain.Outcome{Kind: domain.OutcomeNotFound}, nil
	}

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return domain.Outcome{}, fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			return domain.Outcome{}, fmt.Errorf("%s: %w", op, RateLimitedError{RetryAfter: retry})
		}
	}

	out, err := s.store.RedeemTicket(ctx, code, scannerID, eventID)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	// The ticket row is the durable admission record; the scan log and the
	// dashboard feed are supplementary.
	_ = s.store.AppendScan(ctx, domain.ScanRecord{
		Code:      code,
		EventID:   eventID,
		ScannerID: scannerID,
		Outcome:   out.Kind,
	})

	if out.Kind == domain.OutcomeAdmitted && s.cache != nil {
		_ = s.cache.InvalidateGateStats(ctx, eventID)
	}

	if s.pubsub != nil {
		_ = s.pubsub.PublishScan(ctx, eventID, code, scannerID, out.Kind)
	}

	return out, nil
}

// Cancel administratively voids an active ticket. Its code is never reused.
//
// Returns:
//   - error: redemption.ErrTicketNotFound for an unknown code.
//   - error: redemption.ErrNotCancellable once the ticket left active.
func (s *Service) Cancel(ctx context.Context, code string) error {
	const op = "service.redemption.Cancel"

	t, err := s.store.TicketByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrTicketNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.CancelTicket(ctx, code); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("%s: %w", op, ErrTicketNotFound)
		case errors.Is(err, repository.ErrNotActive):
			return fmt.Errorf("%s: %w", op, ErrNotCancellable)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if s.cache != nil {
		_ = s.cache.InvalidateGateStats(ctx, t.EventID)
	}

	return nil
}

// CloseEvent marks every scanned ticket of a finished event as used.
// Idempotent to re-running; already-used tickets are skipped.
//
// Returns:
//   - int64: the number of tickets moved this run.
func (s *Service) CloseEvent(ctx context.Context, eventID int64) (int64, error) {
	const op = "service.redemption.CloseEvent"

	moved, err := s.store.MarkEventUsed(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if moved > 0 && s.cache != nil {
		_ = s.cache.InvalidateGateStats(ctx, eventID)
	}

	return moved, nil
}

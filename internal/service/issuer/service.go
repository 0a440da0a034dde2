package issuer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tiketbaris/gate-go/internal/domain"
	"github.com/tiketbaris/gate-go/internal/repository"
	redisrepo "github.com/tiketbaris/gate-go/internal/repository/redis"
	"github.com/tiketbaris/gate-go/internal/ticketcode"
)

// Store is the persistence the issuer needs. CompleteAndMint must perform
// the pending → completed transition and the ticket inserts as one atomic
// unit, reporting won = false when another caller already took the
// transition.
type Store interface {
	CreateTransaction(ctx context.Context, t *domain.Transaction) error
	TransactionByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error)
	CompleteAndMint(ctx context.Context, orderID string, tickets []domain.Ticket) (bool, error)
	TicketsByTransaction(ctx context.Context, txID uuid.UUID) ([]domain.Ticket, error)
	TicketCodeExists(ctx context.Context, code string) (bool, error)
	FinishTransaction(ctx context.Context, orderID string, status domain.PaymentStatus) (bool, error)
}

type Config struct {
	CodeLength   int
	CodeAttempts int
	MintRetries  int
}

type Service struct {
	store Store
	cache *redisrepo.Cache
	gen   *ticketcode.Generator
	cfg   Config
}

func New(store Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.MintRetries <= 0 {
		cfg.MintRetries = 3
	}

	return &Service{
		store: store,
		cache: cache,
		gen:   ticketcode.NewGenerator(store.TicketCodeExists, cfg.CodeLength, cfg.CodeAttempts),
		cfg:   cfg,
	}
}

// Checkout records a pending transaction for an order before the buyer is
// handed off to the payment gateway. No tickets exist until the gateway
// confirms settlement.
//
// Returns:
//   - error: issuer.ErrOrderExists if the order id was already used.
func (s *Service) Checkout(
	ctx context.Context,
	orderID string,
	userID, eventID int64,
	quantity int,
	amountCents int64,
) (*domain.Transaction, error) {
	const op = "service.issuer.Checkout"

	if orderID == "" {
		return nil, fmt.Errorf("%s: empty order id", op)
	}

	if quantity <= 0 {
		return nil, fmt.Errorf("%s: quantity must be positive", op)
	}

	if amountCents <= 0 {
		return nil, fmt.Errorf("%s: amount must be positive", op)
	}

	t := &domain.Transaction{
		ID:            uuid.New(),
		OrderID:       orderID,
		UserID:        userID,
		EventID:       eventID,
		Quantity:      quantity,
		AmountCents:   amountCents,
		PaymentStatus: domain.PaymentPending,
	}

	if err := s.store.CreateTransaction(ctx, t); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s: %w", op, ErrOrderExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// OnPaymentConfirmed reacts to a settlement notification by minting exactly
// the purchased quantity of tickets, exactly once per order. Safe to call
// any number of times, concurrently or not: only the caller that wins the
// pending → completed transition mints; everyone else returns the
// already-issued set.
//
// Returns:
//   - []domain.Ticket: the order's tickets, freshly minted or replayed.
//   - error: issuer.ErrOrderNotFound, issuer.ErrTransactionClosed, or
//     ticketcode.ErrExhausted when code generation keeps colliding.
func (s *Service) OnPaymentConfirmed(ctx context.Context, orderID string) ([]domain.Ticket, error) {
	const op = "service.issuer.OnPaymentConfirmed"

	t, err := s.store.TransactionByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrOrderNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch t.PaymentStatus {
	case domain.PaymentCompleted:
		return s.replay(ctx, op, t)
	case domain.PaymentCancelled, domain.PaymentFailed:
		return nil, fmt.Errorf("%s: %w", op, ErrTransactionClosed)
	}

	// A code collision at insert time loses the whole transaction, so the
	// order is still pending and the mint can be retried with fresh codes.
	for attempt := 0; attempt < s.cfg.MintRetries; attempt++ {
		tickets, err := s.mint(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		won, err := s.store.CompleteAndMint(ctx, orderID, tickets)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				continue
			}

			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if !won {
			return s.replay(ctx, op, t)
		}

		if s.cache != nil {
			_ = s.cache.InvalidateGateStats(ctx, t.EventID)
		}

		return tickets, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ticketcode.ErrExhausted)
}

// OnPaymentCancelled reacts to an expire/cancel notification.
// Idempotent: a repeat delivery after the transition is a no-op.
func (s *Service) OnPaymentCancelled(ctx context.Context, orderID string) error {
	return s.finish(ctx, "service.issuer.OnPaymentCancelled", orderID, domain.PaymentCancelled)
}

// OnPaymentFailed reacts to a deny/failure notification.
func (s *Service) OnPaymentFailed(ctx context.Context, orderID string) error {
	return s.finish(ctx, "service.issuer.OnPaymentFailed", orderID, domain.PaymentFailed)
}

func (s *Service) finish(ctx context.Context, op, orderID string, status domain.PaymentStatus) error {
	changed, err := s.store.FinishTransaction(ctx, orderID, status)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if changed {
		return nil
	}

	t, err := s.store.TransactionByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrOrderNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	// Already in a terminal failure state: repeat delivery, nothing to do.
	// A completed order can never be clawed back by a late cancellation.
	if t.PaymentStatus == domain.PaymentCompleted {
		return fmt.Errorf("%s: %w", op, ErrAlreadySettled)
	}

	return nil
}

func (s *Service) mint(ctx context.Context, t *domain.Transaction) ([]domain.Ticket, error) {
	tickets := make([]domain.Ticket, 0, t.Quantity)
	for i := 0; i < t.Quantity; i++ {
		code, err := s.gen.Generate(ctx)
		if err != nil {
			return nil, err
		}

		tickets = append(tickets, domain.Ticket{
			ID:            uuid.New(),
			Code:          code,
			TransactionID: t.ID,
			EventID:       t.EventID,
			OwnerID:       t.UserID,
			Status:        domain.TicketActive,
		})
	}

	return tickets, nil
}

func (s *Service) replay(ctx context.Context, op string, t *domain.Transaction) ([]domain.Ticket, error) {
	tickets, err := s.store.TicketsByTransaction(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(tickets) == 0 {
		// The losing caller raced a cancellation, not a completion.
		fresh, err := s.store.TransactionByOrderID(ctx, t.OrderID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if fresh.PaymentStatus != domain.PaymentCompleted {
			return nil, fmt.Errorf("%s: %w", op, ErrTransactionClosed)
		}

		return s.store.TicketsByTransaction(ctx, t.ID)
	}

	return tickets, nil
}

package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tiketbaris/gate-go/internal/domain"
	"github.com/tiketbaris/gate-go/internal/repository"
	redisrepo "github.com/tiketbaris/gate-go/internal/repository/redis"
	"github.com/tiketbaris/gate-go/internal/ticketcode"
)

type Store interface {
	TransactionWithTickets(ctx context.Context, orderID string) (*domain.TransactionWithTickets, error)
	TicketByCode(ctx context.Context, code string) (*domain.Ticket, error)
	CountsByEvent(ctx context.Context, eventID int64) (*domain.GateStats, error)
	ScanHistory(ctx context.Context, code string) ([]domain.ScanRecord, error)
}

type Config struct {
	StatsTTL time.Duration
}

type Service struct {
	store Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.StatsTTL <= 0 {
		cfg.StatsTTL = 5 * time.Second
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

// GetTransaction retrieves a transaction with its tickets.
//
// Returns:
//   - error: query.ErrOrderNotFound if the order is unknown.
func (s *Service) GetTransaction(ctx context.Context, orderID string) (*domain.TransactionWithTickets, error) {
	const op = "service.query.GetTransaction"

	t, err := s.store.TransactionWithTickets(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrOrderNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// GetTicket retrieves a ticket by code.
//
// Returns:
//   - error: query.ErrTicketNotFound for an unknown code.
func (s *Service) GetTicket(ctx context.Context, code string) (*domain.Ticket, error) {
	const op = "service.query.GetTicket"

	t, err := s.store.TicketByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTicketNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// TicketQR renders the e-ticket symbol for a code. The PNG encodes exactly
// the code string and nothing else.
func (s *Service) TicketQR(ctx context.Context, code string) ([]byte, error) {
	const op = "service.query.TicketQR"

	if _, err := s.GetTicket(ctx, code); err != nil {
		return nil, err
	}

	png, err := ticketcode.EncodeQR(code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return png, nil
}

// ScanHistory returns the attempt log for a code, oldest first.
func (s *Service) ScanHistory(ctx context.Context, code string) ([]domain.ScanRecord, error) {
	const op = "service.query.ScanHistory"

	if _, err := s.GetTicket(ctx, code); err != nil {
		return nil, err
	}

	recs, err := s.store.ScanHistory(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return recs, nil
}

// GateStats returns per-event ticket counters, served from the cache with a
// short TTL; redemptions and issuance invalidate it.
func (s *Service) GateStats(ctx context.Context, eventID int64) (*domain.GateStats, error) {
	const op = "service.query.GateStats"

	load := func(ctx context.Context) (*domain.GateStats, error) {
		return s.store.CountsByEvent(ctx, eventID)
	}

	if s.cache == nil {
		stats, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return stats, nil
	}

	stats, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyGateStats(eventID),
		s.cfg.StatsTTL,
		load,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return stats, nil
}

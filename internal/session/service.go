package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("session not found")
	ErrInvalidSession = errors.New("invalid session")
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=session
type Repository interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	ListByPeriod(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]*Session, error)
	UpdateAmountPaid(ctx context.Context, id uuid.UUID, amount int64) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	OwnerID     uuid.UUID
	ClientID    uuid.UUID
	Title       string
	ScheduledAt time.Time
	TotalAmount int64
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Session, error) {
	if params.TotalAmount < 0 {
		return nil, fmt.Errorf("%w: total amount must not be negative", ErrInvalidSession)
	}

	sess := &Session{
		OwnerID:     params.OwnerID,
		ClientID:    params.ClientID,
		Title:       params.Title,
		ScheduledAt: params.ScheduledAt,
		TotalAmount: params.TotalAmount,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}

	return sess, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.repo.Get(ctx, id)
}

// ListMonth returns the owner's sessions scheduled in the given calendar month.
func (s *Service) ListMonth(ctx context.Context, ownerID uuid.UUID, year int, month time.Month) ([]*Session, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)

	sessions, err := s.repo.ListByPeriod(ctx, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing sessions for %04d-%02d: %w", year, int(month), err)
	}

	return sessions, nil
}

package receivable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	"github.com/MrJamesThe3rd/studiobooks/internal/money"
)

var (
	ErrInvalidPlan = errors.New("invalid payment plan")

	// ErrDuplicatePayment is returned when a payment line tagged with the same
	// provider payment id already exists.
	ErrDuplicatePayment = errors.New("payment already recorded")

	// ErrOverpayment is returned when a manual payment would take the session's
	// paid total past its price.
	ErrOverpayment = errors.New("payment exceeds session balance")
)

const maxInstallments = 360

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=receivable
type Repository interface {
	ListPlans(ctx context.Context, sessionID uuid.UUID) ([]*Plan, error)

	// BeginPlan opens a transaction holding the session's row lock.
	BeginPlan(ctx context.Context, sessionID uuid.UUID) (PlanTx, error)
}

type PlanTx interface {
	LockSession(ctx context.Context, sessionID uuid.UUID) error

	// ClearScheduled removes non-paid installments of scheduled plans and any
	// scheduled plan left empty.
	ClearScheduled(ctx context.Context, sessionID uuid.UUID) error
	CreatePlan(ctx context.Context, plan *Plan) error

	// AppendQuickPayment adds inst to the session's quick plan, creating the plan
	// on first use. A zero sessionTotal takes the session's own total.
	AppendQuickPayment(ctx context.Context, inst *Installment, clientID uuid.UUID, sessionTotal int64) error
	PaymentLineExists(ctx context.Context, providerPaymentID string) (bool, error)

	// RecomputeAmountPaid stores the sum of paid installments on the session and returns it.
	RecomputeAmountPaid(ctx context.Context, sessionID uuid.UUID) (int64, error)
	DeleteSessionData(ctx context.Context, sessionID uuid.UUID, preservePaid bool) error

	Commit() error
	Rollback() error
}

type Service struct {
	repo   Repository
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		now:    time.Now,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type ScheduleParams struct {
	SessionID    uuid.UUID
	ClientID     uuid.UUID
	Amount       int64
	Mode         Mode
	Count        int
	FirstDueDate time.Time
}

func (p ScheduleParams) validate() error {
	if p.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidPlan)
	}

	if p.FirstDueDate.IsZero() {
		return fmt.Errorf("%w: first due date is required", ErrInvalidPlan)
	}

	switch p.Mode {
	case ModeFull:
	case ModeInstallments:
		if p.Count < 1 {
			return fmt.Errorf("%w: installment count must be at least 1", ErrInvalidPlan)
		}

		if p.Count > maxInstallments {
			return fmt.Errorf("%w: installment count must be at most %d", ErrInvalidPlan, maxInstallments)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidPlan, p.Mode)
	}

	return nil
}

// Schedule replaces the session's open scheduled installments with a new plan.
// Paid installments and the quick-payment plan are left as they are.
func (s *Service) Schedule(ctx context.Context, params ScheduleParams) (*Plan, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	ptx, err := s.repo.BeginPlan(ctx, params.SessionID)
	if err != nil {
		return nil, fmt.Errorf("begin plan: %w", err)
	}
	defer ptx.Rollback()

	if err := ptx.ClearScheduled(ctx, params.SessionID); err != nil {
		return nil, fmt.Errorf("clearing scheduled installments: %w", err)
	}

	plan := s.buildPlan(params)
	if err := ptx.CreatePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("creating plan: %w", err)
	}

	if err := ptx.Commit(); err != nil {
		return nil, fmt.Errorf("commit plan: %w", err)
	}

	s.logger.Info("payment plan scheduled",
		"session_id", params.SessionID,
		"mode", params.Mode,
		"installments", len(plan.Installments),
		"total", params.Amount,
	)

	return plan, nil
}

func (s *Service) buildPlan(params ScheduleParams) *Plan {
	count := 1
	if params.Mode == ModeInstallments {
		count = params.Count
	}

	today := ledger.DateOf(s.now())
	first := ledger.DateOf(params.FirstDueDate)

	plan := &Plan{
		SessionID:        params.SessionID,
		ClientID:         params.ClientID,
		TotalAmount:      params.Amount,
		Mode:             params.Mode,
		Kind:             KindScheduled,
		InstallmentCount: count,
	}

	for i, amount := range money.Split(params.Amount, count) {
		due := ledger.AddMonths(first, i)

		status := ledger.StatusScheduled
		if !due.After(today) {
			status = ledger.StatusBilled
		}

		plan.Installments = append(plan.Installments, &Installment{
			SessionID:         params.SessionID,
			InstallmentNumber: i + 1,
			Amount:            amount,
			DueDate:           due,
			Status:            status,
		})
	}

	return plan
}

type QuickPaymentParams struct {
	SessionID    uuid.UUID
	ClientID     uuid.UUID
	Amount       int64
	SessionTotal int64 // when positive, the paid total may not exceed it

	// ProviderPaymentID tags lines coming from a payment provider; a second
	// line with the same tag is rejected with ErrDuplicatePayment.
	ProviderPaymentID *string
}

// RecordQuickPayment registers money received outside the numbered plan and
// returns the new payment line.
func (s *Service) RecordQuickPayment(ctx context.Context, params QuickPaymentParams) (*Installment, error) {
	if params.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidPlan)
	}

	ptx, err := s.repo.BeginPlan(ctx, params.SessionID)
	if err != nil {
		return nil, fmt.Errorf("begin quick payment: %w", err)
	}
	defer ptx.Rollback()

	if params.ProviderPaymentID != nil {
		exists, err := ptx.PaymentLineExists(ctx, *params.ProviderPaymentID)
		if err != nil {
			return nil, fmt.Errorf("checking payment line: %w", err)
		}

		if exists {
			return nil, ErrDuplicatePayment
		}
	}

	now := s.now()
	inst := NewPaymentLine(params.SessionID, params.Amount, now, params.ProviderPaymentID)

	if err := ptx.AppendQuickPayment(ctx, inst, params.ClientID, params.SessionTotal); err != nil {
		return nil, fmt.Errorf("appending quick payment: %w", err)
	}

	paid, err := ptx.RecomputeAmountPaid(ctx, params.SessionID)
	if err != nil {
		return nil, fmt.Errorf("recomputing amount paid: %w", err)
	}

	if params.SessionTotal > 0 && paid > params.SessionTotal {
		return nil, fmt.Errorf("%w: paid total would be %d of %d", ErrOverpayment, paid, params.SessionTotal)
	}

	if err := ptx.Commit(); err != nil {
		return nil, fmt.Errorf("commit quick payment: %w", err)
	}

	s.logger.Info("quick payment recorded",
		"session_id", params.SessionID,
		"amount", params.Amount,
		"amount_paid", paid,
	)

	return inst, nil
}

// NewPaymentLine builds a paid installment outside the numbered series, due and
// paid at the given instant.
func NewPaymentLine(sessionID uuid.UUID, amount int64, paidAt time.Time, providerPaymentID *string) *Installment {
	return &Installment{
		SessionID:         sessionID,
		InstallmentNumber: QuickNumber,
		Amount:            amount,
		DueDate:           ledger.DateOf(paidAt),
		Status:            ledger.StatusPaid,
		PaidAt:            &paidAt,
		ProviderPaymentID: providerPaymentID,
	}
}

// RemoveSessionData deletes the session's financial data. With preservePayments
// only open installments go, along with plans they leave empty.
func (s *Service) RemoveSessionData(ctx context.Context, sessionID uuid.UUID, preservePayments bool) error {
	ptx, err := s.repo.BeginPlan(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("begin remove: %w", err)
	}
	defer ptx.Rollback()

	if err := ptx.DeleteSessionData(ctx, sessionID, preservePayments); err != nil {
		return fmt.Errorf("deleting session data: %w", err)
	}

	if _, err := ptx.RecomputeAmountPaid(ctx, sessionID); err != nil {
		return fmt.Errorf("recomputing amount paid: %w", err)
	}

	if err := ptx.Commit(); err != nil {
		return fmt.Errorf("commit remove: %w", err)
	}

	s.logger.Info("session financial data removed", "session_id", sessionID, "preserve_payments", preservePayments)

	return nil
}

func (s *Service) Plans(ctx context.Context, sessionID uuid.UUID) ([]*Plan, error) {
	return s.repo.ListPlans(ctx, sessionID)
}

// AmountPaid recomputes the session's paid total from its installments.
func (s *Service) AmountPaid(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	plans, err := s.repo.ListPlans(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("listing plans: %w", err)
	}

	return PaidTotal(plans), nil
}

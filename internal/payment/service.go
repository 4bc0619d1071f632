package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	"github.com/MrJamesThe3rd/studiobooks/internal/receivable"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=payment
type Repository interface {
	CreateCharge(ctx context.Context, c *Charge) error
	GetCharge(ctx context.Context, id uuid.UUID) (*Charge, error)
	FindByProviderPaymentID(ctx context.Context, providerPaymentID string) (*Charge, error)
	FindByPreferenceID(ctx context.Context, preferenceID string) (*Charge, error)

	// FindLatestPending returns the most recent pending charge for the reference.
	// A reference without session matches charges of any session.
	FindLatestPending(ctx context.Context, ref Reference) (*Charge, error)
	ListCharges(ctx context.Context, ownerID uuid.UUID, status *Status) ([]*Charge, error)

	BeginReconcile(ctx context.Context) (ReconcileTx, error)
}

// ReconcileTx applies one provider outcome atomically: the charge status, its
// payment line with the session's paid total, and the ledger entry it bills.
type ReconcileTx interface {
	receivable.PlanTx

	// LockCharge reads the charge holding its row lock until the transaction ends.
	LockCharge(ctx context.Context, id uuid.UUID) (*Charge, error)
	SetChargeStatus(ctx context.Context, id uuid.UUID, status Status, providerPaymentID string) error

	LockEntry(ctx context.Context, id uuid.UUID) (*ledger.Entry, error)
	UpdateEntry(ctx context.Context, id uuid.UUID, patch ledger.Patch) error
}

// PaymentDetails is what the provider reports about a payment. Amount is in cents.
type PaymentDetails struct {
	ID                string
	Status            string
	StatusDetail      string
	Amount            int64
	ExternalReference string
	PreferenceID      string
	DateApproved      *time.Time
}

type CheckoutRequest struct {
	Title             string
	Amount            int64
	ExternalReference string
}

type Checkout struct {
	PreferenceID string
	URL          string
}

type Provider interface {
	Name() string
	GetPayment(ctx context.Context, providerPaymentID string) (*PaymentDetails, error)
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
}

// Notifier hears about charges a reconciliation marked paid, once the change
// is committed.
type Notifier interface {
	ChargePaid(ctx context.Context, c *Charge, res Result)
}

type Service struct {
	repo     Repository
	provider Provider
	notifier Notifier
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func NewService(repo Repository, provider Provider, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		provider: provider,
		now:      time.Now,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Outcome says what a reconciliation did.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomePending   Outcome = "pending"
	OutcomeUnmatched Outcome = "unmatched"

	// OutcomeRejected is a failed attempt. The charge stays pending.
	OutcomeRejected Outcome = "rejected"

	// OutcomeReversed is a refund or chargeback. The charge is left as it was.
	OutcomeReversed Outcome = "reversed"
)

// Strategy is the matching rule that found the charge.
type Strategy string

const (
	StrategyNone              Strategy = "none"
	StrategyPaymentID         Strategy = "payment_id"
	StrategyPreferenceID      Strategy = "preference_id"
	StrategyExternalReference Strategy = "external_reference"
)

type Result struct {
	Outcome        Outcome
	Strategy       Strategy
	ChargeID       uuid.UUID
	ProviderStatus string
	AmountPaid     int64 // session paid total after the payment line, when one was written
	EntryPaid      bool  // the linked ledger entry moved to paid
}

// Reconcile applies a provider payment notification to the matching charge.
// Redelivering the same notification any number of times has the effect of
// delivering it once.
func (s *Service) Reconcile(ctx context.Context, ev Event) (Result, error) {
	if ev.ProviderPaymentID == "" {
		return Result{}, fmt.Errorf("%w: missing payment id", ErrMalformedEvent)
	}

	charge, err := s.lookup(ctx, s.repo.FindByProviderPaymentID, ev.ProviderPaymentID)
	if err != nil {
		return Result{}, fmt.Errorf("finding charge by payment id: %w", err)
	}

	if charge != nil && charge.Status.IsTerminal() {
		s.logger.Debug("payment notification already applied",
			"provider_payment_id", ev.ProviderPaymentID,
			"charge_id", charge.ID,
		)

		return Result{Outcome: OutcomeDuplicate, Strategy: StrategyPaymentID, ChargeID: charge.ID}, nil
	}

	strategy := StrategyPaymentID

	details, err := s.provider.GetPayment(ctx, ev.ProviderPaymentID)
	if err != nil {
		return Result{}, fmt.Errorf("fetching payment %s: %w", ev.ProviderPaymentID, err)
	}

	if charge == nil && details.PreferenceID != "" {
		strategy = StrategyPreferenceID

		charge, err = s.lookup(ctx, s.repo.FindByPreferenceID, details.PreferenceID)
		if err != nil {
			return Result{}, fmt.Errorf("finding charge by preference: %w", err)
		}
	}

	if charge == nil {
		strategy = StrategyExternalReference

		charge, err = s.recoverByReference(ctx, details)
		if err != nil {
			return Result{}, err
		}
	}

	if charge == nil {
		s.logger.Info("payment notification matches no charge, dropping",
			"provider_payment_id", ev.ProviderPaymentID,
			"preference_id", details.PreferenceID,
			"external_reference", details.ExternalReference,
		)

		return Result{Outcome: OutcomeUnmatched, Strategy: StrategyNone, ProviderStatus: details.Status}, nil
	}

	var res Result

	switch mapProviderStatus(details.Status) {
	case verdictApproved:
		res, err = s.applyApproved(ctx, charge.ID, details)
	case verdictFailed:
		s.logger.Info("payment attempt failed, charge stays pending",
			"charge_id", charge.ID,
			"provider_payment_id", details.ID,
			"provider_status", details.Status,
			"status_detail", details.StatusDetail,
		)

		res = Result{Outcome: OutcomeRejected, ChargeID: charge.ID}
	case verdictReversed:
		s.logger.Warn("provider reversed a payment, charge left unchanged",
			"charge_id", charge.ID,
			"charge_status", charge.Status,
			"provider_payment_id", details.ID,
			"provider_status", details.Status,
		)

		res = Result{Outcome: OutcomeReversed, ChargeID: charge.ID}
	default:
		res = Result{Outcome: OutcomePending, ChargeID: charge.ID}
	}

	if err != nil {
		return Result{}, err
	}

	res.Strategy = strategy
	res.ProviderStatus = details.Status

	s.logger.Info("payment notification reconciled",
		"provider_payment_id", ev.ProviderPaymentID,
		"charge_id", res.ChargeID,
		"outcome", res.Outcome,
		"strategy", res.Strategy,
		"provider_status", details.Status,
	)

	if res.Outcome == OutcomeApplied && s.notifier != nil {
		s.notifier.ChargePaid(ctx, charge, res)
	}

	return res, nil
}

// lookup turns ErrNotFound into a nil charge.
func (s *Service) lookup(ctx context.Context, find func(context.Context, string) (*Charge, error), key string) (*Charge, error) {
	c, err := find(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}

	return c, err
}

// recoverByReference is the last resort for charges whose preference id was
// never stored. It picks the newest pending charge of the referenced client.
func (s *Service) recoverByReference(ctx context.Context, details *PaymentDetails) (*Charge, error) {
	if details.ExternalReference == "" {
		return nil, nil
	}

	ref, err := ParseReference(details.ExternalReference)
	if err != nil {
		s.logger.Warn("payment carries unreadable external reference",
			"provider_payment_id", details.ID,
			"external_reference", details.ExternalReference,
			"error", err,
		)

		return nil, nil
	}

	c, err := s.repo.FindLatestPending(ctx, ref)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("finding pending charge by reference: %w", err)
	}

	s.logger.Warn("charge recovered from external reference",
		"provider_payment_id", details.ID,
		"charge_id", c.ID,
		"external_reference", details.ExternalReference,
	)

	return c, nil
}

func (s *Service) applyApproved(ctx context.Context, chargeID uuid.UUID, details *PaymentDetails) (Result, error) {
	rtx, err := s.repo.BeginReconcile(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("begin reconcile: %w", err)
	}
	defer rtx.Rollback()

	c, err := rtx.LockCharge(ctx, chargeID)
	if err != nil {
		return Result{}, fmt.Errorf("locking charge: %w", err)
	}

	if c.Status != StatusPending {
		if c.Status == StatusCancelled {
			s.logger.Warn("approved payment for cancelled charge", "charge_id", c.ID, "provider_payment_id", details.ID)
		}

		return Result{Outcome: OutcomeDuplicate, ChargeID: c.ID}, nil
	}

	if err := rtx.SetChargeStatus(ctx, c.ID, StatusPaid, details.ID); err != nil {
		return Result{}, fmt.Errorf("marking charge paid: %w", err)
	}

	res := Result{Outcome: OutcomeApplied, ChargeID: c.ID}

	if c.SessionID != nil {
		paid, err := s.writePaymentLine(ctx, rtx, c, details)
		if err != nil {
			return Result{}, err
		}

		res.AmountPaid = paid
	} else {
		s.logger.Info("paid charge has no session, no payment line written", "charge_id", c.ID)
	}

	if c.LedgerEntryID != nil {
		res.EntryPaid, err = s.settleEntry(ctx, rtx, c)
		if err != nil {
			return Result{}, err
		}
	}

	if err := rtx.Commit(); err != nil {
		return Result{}, fmt.Errorf("commit reconcile: %w", err)
	}

	return res, nil
}

// writePaymentLine appends the payment line unless one tagged with the same
// provider payment id exists, then recomputes the session's paid total.
func (s *Service) writePaymentLine(ctx context.Context, rtx ReconcileTx, c *Charge, details *PaymentDetails) (int64, error) {
	sessionID := *c.SessionID

	if err := rtx.LockSession(ctx, sessionID); err != nil {
		return 0, fmt.Errorf("locking session: %w", err)
	}

	exists, err := rtx.PaymentLineExists(ctx, details.ID)
	if err != nil {
		return 0, fmt.Errorf("checking payment line: %w", err)
	}

	if !exists {
		amount := details.Amount
		if amount <= 0 {
			s.logger.Warn("provider reported no amount, using charge amount",
				"charge_id", c.ID,
				"provider_payment_id", details.ID,
				"amount", c.Amount,
			)

			amount = c.Amount
		}

		paidAt := s.now()
		if details.DateApproved != nil {
			paidAt = *details.DateApproved
		}

		line := receivable.NewPaymentLine(sessionID, amount, paidAt, &details.ID)
		if err := rtx.AppendQuickPayment(ctx, line, c.ClientID, 0); err != nil {
			return 0, fmt.Errorf("appending payment line: %w", err)
		}
	}

	paid, err := rtx.RecomputeAmountPaid(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("recomputing amount paid: %w", err)
	}

	return paid, nil
}

// settleEntry moves the ledger entry the charge bills to paid. Entries already
// paid or cancelled are left alone.
func (s *Service) settleEntry(ctx context.Context, rtx ReconcileTx, c *Charge) (bool, error) {
	e, err := rtx.LockEntry(ctx, *c.LedgerEntryID)
	if errors.Is(err, ledger.ErrNotFound) {
		s.logger.Warn("charge bills a missing ledger entry", "charge_id", c.ID, "entry_id", *c.LedgerEntryID)
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("locking ledger entry: %w", err)
	}

	if !e.Status.CanTransition(ledger.StatusPaid) {
		s.logger.Warn("ledger entry is not open, leaving it",
			"charge_id", c.ID,
			"entry_id", e.ID,
			"status", e.Status,
		)

		return false, nil
	}

	paid, from := ledger.StatusPaid, e.Status
	if err := rtx.UpdateEntry(ctx, e.ID, ledger.Patch{Status: &paid, FromStatus: &from}); err != nil {
		return false, fmt.Errorf("marking ledger entry paid: %w", err)
	}

	return true, nil
}

type CheckoutParams struct {
	OwnerID       uuid.UUID
	ClientID      uuid.UUID
	SessionID     *uuid.UUID
	LedgerEntryID *uuid.UUID
	Title         string
	Amount        int64
}

// CreateCheckout opens a provider checkout and records the pending charge.
func (s *Service) CreateCheckout(ctx context.Context, params CheckoutParams) (*Charge, error) {
	if params.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidCharge)
	}

	ref := Reference{OwnerID: params.OwnerID, ClientID: params.ClientID, SessionID: params.SessionID}

	checkout, err := s.provider.CreateCheckout(ctx, CheckoutRequest{
		Title:             params.Title,
		Amount:            params.Amount,
		ExternalReference: ref.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating checkout: %w", err)
	}

	c := &Charge{
		OwnerID:           params.OwnerID,
		ClientID:          params.ClientID,
		SessionID:         params.SessionID,
		LedgerEntryID:     params.LedgerEntryID,
		Provider:          s.provider.Name(),
		ExternalReference: ref.String(),
		Amount:            params.Amount,
		Status:            StatusPending,
		CheckoutURL:       checkout.URL,
	}

	if checkout.PreferenceID != "" {
		c.ProviderPreferenceID = &checkout.PreferenceID
	}

	if err := s.repo.CreateCharge(ctx, c); err != nil {
		return nil, fmt.Errorf("storing charge: %w", err)
	}

	s.logger.Info("checkout created", "charge_id", c.ID, "amount", c.Amount, "preference_id", checkout.PreferenceID)

	return c, nil
}

// CancelCharge withdraws a pending charge.
func (s *Service) CancelCharge(ctx context.Context, id uuid.UUID) error {
	rtx, err := s.repo.BeginReconcile(ctx)
	if err != nil {
		return fmt.Errorf("begin cancel: %w", err)
	}
	defer rtx.Rollback()

	c, err := rtx.LockCharge(ctx, id)
	if err != nil {
		return err
	}

	if c.Status != StatusPending {
		return fmt.Errorf("%w: status %s", ErrNotPending, c.Status)
	}

	if err := rtx.SetChargeStatus(ctx, id, StatusCancelled, ""); err != nil {
		return fmt.Errorf("cancelling charge: %w", err)
	}

	return rtx.Commit()
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Charge, error) {
	return s.repo.GetCharge(ctx, id)
}

func (s *Service) List(ctx context.Context, ownerID uuid.UUID, status *Status) ([]*Charge, error) {
	return s.repo.ListCharges(ctx, ownerID, status)
}

package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/money"
)

// maxInstallments bounds parceled and card series.
const maxInstallments = 360

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=ledger
type Repository interface {
	// Insert writes all entries in one atomic batch.
	Insert(ctx context.Context, entries []*Entry) error
	Get(ctx context.Context, id uuid.UUID) (*Entry, error)
	Update(ctx context.Context, id uuid.UUID, patch Patch) error
	Delete(ctx context.Context, id uuid.UUID) error

	QueryByDateRange(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]*Entry, error)
	QueryBySeries(ctx context.Context, seriesID uuid.UUID) ([]*Entry, error)
	ListDue(ctx context.Context, status Status, onOrBefore time.Time) ([]*Entry, error)
}

type CardRepository interface {
	GetCard(ctx context.Context, id uuid.UUID) (*Card, error)
	CreateCard(ctx context.Context, c *Card) error
}

type Service struct {
	repo   Repository
	cards  CardRepository
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Service)

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(repo Repository, cards CardRepository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		cards:  cards,
		now:    time.Now,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) today() time.Time {
	return DateOf(s.now())
}

// Expand turns a charge intent into ledger entries and writes them in one batch.
// Nothing is written when the intent is rejected.
func (s *Service) Expand(ctx context.Context, intent Intent) ([]*Entry, error) {
	if err := validateIntent(intent); err != nil {
		return nil, err
	}

	var (
		entries []*Entry
		err     error
	)

	switch {
	case intent.CardID != nil:
		entries, err = s.expandCard(ctx, intent)
	case intent.Mode == ModeSingle:
		entries = s.expandSingle(intent)
	case intent.Mode == ModeInstallments:
		entries = s.expandInstallments(intent)
	case intent.Mode == ModeRecurring:
		entries = s.expandRecurring(intent)
	}

	if err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, entries); err != nil {
		return nil, fmt.Errorf("inserting entries: %w", err)
	}

	s.logger.Info("charge expanded",
		"owner_id", intent.OwnerID,
		"mode", intent.Mode,
		"entries", len(entries),
		"total", intent.TotalAmount,
	)

	return entries, nil
}

func validateIntent(intent Intent) error {
	if intent.TotalAmount <= 0 {
		return &ValidationError{Field: "total_amount", Reason: "must be positive"}
	}

	if intent.FirstDueDate.IsZero() {
		return &ValidationError{Field: "first_due_date", Reason: "is required"}
	}

	switch intent.Mode {
	case ModeSingle:
	case ModeInstallments:
		if intent.Count < 1 {
			return &ValidationError{Field: "count", Reason: "must be at least 1"}
		}

		if intent.Count > maxInstallments {
			return &ValidationError{Field: "count", Reason: fmt.Sprintf("must be at most %d", maxInstallments)}
		}
	case ModeRecurring:
		if intent.CardID != nil {
			return &ValidationError{Field: "mode", Reason: "recurring charges cannot use a credit card"}
		}
	default:
		return &ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", intent.Mode)}
	}

	return nil
}

// newEntry bills entries already due. A zero amount stays scheduled until an
// edit gives it one, as SweepDue does.
func (s *Service) newEntry(intent Intent, amount int64, due time.Time) *Entry {
	status := StatusScheduled
	if amount != 0 && !due.After(s.today()) {
		status = StatusBilled
	}

	return &Entry{
		ID:          uuid.New(),
		OwnerID:     intent.OwnerID,
		OwnerItemID: intent.OwnerItemID,
		Description: intent.Description,
		Amount:      amount,
		DueDate:     due,
		Status:      status,
		CreatedAt:   s.now(),
	}
}

func (s *Service) expandSingle(intent Intent) []*Entry {
	return []*Entry{s.newEntry(intent, intent.TotalAmount, DateOf(intent.FirstDueDate))}
}

func (s *Service) expandInstallments(intent Intent) []*Entry {
	first := DateOf(intent.FirstDueDate)
	amounts := money.Split(intent.TotalAmount, intent.Count)
	seriesID := uuid.New()

	entries := make([]*Entry, len(amounts))
	for i, amount := range amounts {
		e := s.newEntry(intent, amount, AddMonths(first, i))
		e.SeriesID = &seriesID
		e.InstallmentIndex = new(i + 1)
		e.InstallmentCount = new(len(amounts))
		entries[i] = e
	}

	return entries
}

// expandRecurring emits one entry per remaining month of the first due date's
// year. Variable charges only carry the amount on the first month; the others
// start at zero and wait for an explicit edit.
func (s *Service) expandRecurring(intent Intent) []*Entry {
	first := DateOf(intent.FirstDueDate)
	months := int(time.December-first.Month()) + 1
	seriesID := uuid.New()

	entries := make([]*Entry, months)
	for i := range months {
		amount := intent.TotalAmount
		if i > 0 && !intent.IsFixedAmount {
			amount = 0
		}

		e := s.newEntry(intent, amount, AddMonths(first, i))
		e.SeriesID = &seriesID
		entries[i] = e
	}

	return entries
}

func (s *Service) expandCard(ctx context.Context, intent Intent) ([]*Entry, error) {
	card, err := s.cards.GetCard(ctx, *intent.CardID)
	if err != nil {
		if errors.Is(err, ErrCardNotFound) {
			s.logger.Warn("charge references unknown card", "card_id", *intent.CardID)
		}

		return nil, fmt.Errorf("resolving card: %w", err)
	}

	count := 1
	if intent.Mode == ModeInstallments {
		count = intent.Count
	}

	firstInvoice := FirstInvoice(card, DateOf(intent.FirstDueDate))
	amounts := money.Split(intent.TotalAmount, count)
	seriesID := uuid.New()

	entries := make([]*Entry, len(amounts))
	for i, amount := range amounts {
		due := dayInMonth(firstInvoice.Year(), firstInvoice.Month()+time.Month(i), card.DueDay)

		e := s.newEntry(intent, amount, due)
		e.CardID = &card.ID
		e.SourceCycle = new(StatementID(card.ID, due))

		if count > 1 {
			e.SeriesID = &seriesID
			e.InstallmentIndex = new(i + 1)
			e.InstallmentCount = new(count)
		}

		entries[i] = e
	}

	return entries, nil
}

// SweepDue bills every scheduled entry due on or before today. Zero-amount
// entries (variable recurring months nobody filled in) stay scheduled.
func (s *Service) SweepDue(ctx context.Context) (int, error) {
	today := s.today()

	due, err := s.repo.ListDue(ctx, StatusScheduled, today)
	if err != nil {
		return 0, fmt.Errorf("listing due entries: %w", err)
	}

	billed := 0

	for _, e := range due {
		if e.Amount == 0 {
			continue
		}

		err := s.repo.Update(ctx, e.ID, Patch{
			Status:     new(StatusBilled),
			FromStatus: new(StatusScheduled),
		})
		if errors.Is(err, ErrStaleStatus) || errors.Is(err, ErrNotFound) {
			continue
		}

		if err != nil {
			return billed, fmt.Errorf("billing entry %s: %w", e.ID, err)
		}

		billed++
	}

	s.logger.Info("ledger sweep finished", "today", today.Format(time.DateOnly), "billed", billed)

	return billed, nil
}

// AddCard registers a credit card whose closing and due days drive card series.
func (s *Service) AddCard(ctx context.Context, c *Card) error {
	switch {
	case c.Name == "":
		return &ValidationError{Field: "name", Reason: "is required"}
	case c.ClosingDay < 1 || c.ClosingDay > 31:
		return &ValidationError{Field: "closing_day", Reason: "must be between 1 and 31"}
	case c.DueDay < 1 || c.DueDay > 31:
		return &ValidationError{Field: "due_day", Reason: "must be between 1 and 31"}
	}

	if err := s.cards.CreateCard(ctx, c); err != nil {
		return fmt.Errorf("creating card: %w", err)
	}

	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.repo.Get(ctx, id)
}

// List returns the owner's entries due in [from, to].
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]*Entry, error) {
	return s.repo.QueryByDateRange(ctx, ownerID, DateOf(from), DateOf(to))
}

func (s *Service) Series(ctx context.Context, seriesID uuid.UUID) ([]*Entry, error) {
	return s.repo.QueryBySeries(ctx, seriesID)
}

// Cancel moves a non-terminal entry to Cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if !e.Status.CanTransition(StatusCancelled) {
		return &TransitionError{From: e.Status, To: StatusCancelled}
	}

	if err := s.repo.Update(ctx, id, Patch{Status: new(StatusCancelled), FromStatus: &e.Status}); err != nil {
		return fmt.Errorf("cancelling entry: %w", err)
	}

	return nil
}

// EditAmount sets the amount of an open entry, typically a variable recurring month.
func (s *Service) EditAmount(ctx context.Context, id uuid.UUID, amount int64) error {
	if amount <= 0 {
		return &ValidationError{Field: "amount", Reason: "must be positive"}
	}

	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if e.Status.IsTerminal() {
		return &TransitionError{From: e.Status, To: e.Status}
	}

	if err := s.repo.Update(ctx, id, Patch{Amount: &amount, FromStatus: &e.Status}); err != nil {
		return fmt.Errorf("editing amount: %w", err)
	}

	return nil
}

// Delete removes an entry that has not been paid.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if e.Status == StatusPaid {
		return &TransitionError{From: e.Status, To: e.Status}
	}

	return s.repo.Delete(ctx, id)
}

// VerifySeries checks that a parceled series adds up to total exactly.
func VerifySeries(entries []*Entry, total int64) error {
	var sum int64
	for _, e := range entries {
		sum += e.Amount
	}

	if sum != total {
		return fmt.Errorf("%w: got %d, want %d", ErrSeriesSumMismatch, sum, total)
	}

	return nil
}

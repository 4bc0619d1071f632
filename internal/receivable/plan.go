package receivable

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
)

// Mode is how a plan splits the session amount.
type Mode string

const (
	ModeFull         Mode = "full"
	ModeInstallments Mode = "installments"
)

// Kind tells scheduled plans, which re-planning replaces, from the quick-payment
// plan, which only ever grows.
type Kind string

const (
	KindScheduled Kind = "scheduled"
	KindQuick     Kind = "quick"
)

// QuickNumber is the installment number of payment lines recorded outside the
// numbered series.
const QuickNumber = 0

type Plan struct {
	ID               uuid.UUID
	SessionID        uuid.UUID
	ClientID         uuid.UUID
	TotalAmount      int64 // Amount in cents
	Mode             Mode
	Kind             Kind
	InstallmentCount int
	CreatedAt        time.Time
	Installments     []*Installment
}

type Installment struct {
	ID                uuid.UUID
	PlanID            uuid.UUID
	SessionID         uuid.UUID
	InstallmentNumber int
	Amount            int64 // Amount in cents
	DueDate           time.Time
	Status            ledger.Status
	PaidAt            *time.Time
	ProviderPaymentID *string // set on lines created by payment reconciliation
}

func (i *Installment) IsPaid() bool {
	return i.Status == ledger.StatusPaid
}

// PaidTotal sums every paid installment across plans.
func PaidTotal(plans []*Plan) int64 {
	return lo.SumBy(plans, func(p *Plan) int64 {
		paid := lo.Filter(p.Installments, func(i *Installment, _ int) bool { return i.IsPaid() })

		return lo.SumBy(paid, func(i *Installment) int64 { return i.Amount })
	})
}

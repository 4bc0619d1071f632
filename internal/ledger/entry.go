package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a ledger entry. Installments of payment
// plans share the same enumeration.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusBilled    Status = "billed"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// CanTransition reports whether moving from s to next is a legal transition.
// Paid and Cancelled are terminal; Billed never goes back to Scheduled.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusScheduled:
		return next == StatusBilled || next == StatusPaid || next == StatusCancelled
	case StatusBilled:
		return next == StatusPaid || next == StatusCancelled
	}

	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusBilled, StatusPaid, StatusCancelled:
		return true
	}

	return false
}

// Label is the Portuguese display label.
func (s Status) Label() string {
	switch s {
	case StatusScheduled:
		return "Agendado"
	case StatusBilled:
		return "Faturado"
	case StatusPaid:
		return "Pago"
	case StatusCancelled:
		return "Cancelado"
	}

	return string(s)
}

// legacyStatuses maps the labels stored by older versions of the app, in any casing.
var legacyStatuses = map[string]Status{
	"agendado":  StatusScheduled,
	"agendada":  StatusScheduled,
	"pendente":  StatusScheduled,
	"scheduled": StatusScheduled,
	"faturado":  StatusBilled,
	"faturada":  StatusBilled,
	"billed":    StatusBilled,
	"pago":      StatusPaid,
	"paga":      StatusPaid,
	"paid":      StatusPaid,
	"cancelado": StatusCancelled,
	"cancelada": StatusCancelled,
	"cancelled": StatusCancelled,
}

// ParseLegacyStatus maps a free-form stored label ("Pago", "FATURADO", ...) to a Status.
func ParseLegacyStatus(label string) (Status, error) {
	s, ok := legacyStatuses[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return "", fmt.Errorf("unknown status label %q", label)
	}

	return s, nil
}

// Mode selects how a charge intent is expanded.
type Mode string

const (
	ModeSingle       Mode = "single"
	ModeInstallments Mode = "installments"
	ModeRecurring    Mode = "recurring"
)

// Entry is one billable or payable ledger line. Amount is in cents.
type Entry struct {
	ID               uuid.UUID
	OwnerID          uuid.UUID
	OwnerItemID      uuid.UUID
	Description      string
	Amount           int64
	DueDate          time.Time
	Status           Status
	SeriesID         *uuid.UUID
	InstallmentIndex *int
	InstallmentCount *int
	SourceCycle      *string // credit-card statement id
	CardID           *uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        *time.Time
}

// Card is a configured credit card whose statement cycle drives due dates.
type Card struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Name       string
	ClosingDay int
	DueDay     int
}

// Intent is a single user request ("charge R$X") to be expanded into entries.
type Intent struct {
	OwnerID       uuid.UUID
	OwnerItemID   uuid.UUID
	Description   string
	TotalAmount   int64
	FirstDueDate  time.Time
	Mode          Mode
	Count         int
	IsFixedAmount bool
	CardID        *uuid.UUID
}

// Patch carries the fields to change on an entry. FromStatus, when set, makes
// the update conditional on the stored status still being that value.
type Patch struct {
	Amount     *int64
	DueDate    *time.Time
	Status     *Status
	FromStatus *Status
}

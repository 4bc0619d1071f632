package payment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a charge. Pending moves to Paid on an
// approved payment or to Cancelled when withdrawn; both are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// Charge is a payment request sent to a provider.
type Charge struct {
	ID                   uuid.UUID
	OwnerID              uuid.UUID
	ClientID             uuid.UUID
	SessionID            *uuid.UUID
	LedgerEntryID        *uuid.UUID // ledger entry settled when the charge is paid
	Provider             string
	ProviderPaymentID    *string
	ProviderPreferenceID *string
	ExternalReference    string
	Amount               int64 // Amount in cents
	Status               Status
	CheckoutURL          string
	CreatedAt            time.Time
	UpdatedAt            *time.Time
}

// Reference identifies who a charge belongs to. It travels to the provider as
// the external reference "owner|client|session", session empty when absent.
type Reference struct {
	OwnerID   uuid.UUID
	ClientID  uuid.UUID
	SessionID *uuid.UUID
}

func (r Reference) String() string {
	session := ""
	if r.SessionID != nil {
		session = r.SessionID.String()
	}

	return r.OwnerID.String() + "|" + r.ClientID.String() + "|" + session
}

func ParseReference(s string) (Reference, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 3 {
		return Reference{}, fmt.Errorf("%w: %q", ErrMalformedReference, s)
	}

	owner, err := uuid.Parse(parts[0])
	if err != nil {
		return Reference{}, fmt.Errorf("%w: owner: %v", ErrMalformedReference, err)
	}

	client, err := uuid.Parse(parts[1])
	if err != nil {
		return Reference{}, fmt.Errorf("%w: client: %v", ErrMalformedReference, err)
	}

	ref := Reference{OwnerID: owner, ClientID: client}

	if parts[2] != "" {
		session, err := uuid.Parse(parts[2])
		if err != nil {
			return Reference{}, fmt.Errorf("%w: session: %v", ErrMalformedReference, err)
		}

		ref.SessionID = &session
	}

	return ref, nil
}

// verdict is what a provider payment status means for the charge it pays.
type verdict int

const (
	// verdictInFlight leaves the charge pending.
	verdictInFlight verdict = iota
	verdictApproved

	// verdictFailed is one failed attempt. The client may retry on the same
	// checkout, so the charge stays pending.
	verdictFailed

	// verdictReversed is money returned after approval. It is logged and never
	// changes the charge.
	verdictReversed
)

var providerStatuses = map[string]verdict{
	"approved":     verdictApproved,
	"rejected":     verdictFailed,
	"cancelled":    verdictFailed,
	"refunded":     verdictReversed,
	"charged_back": verdictReversed,
}

func mapProviderStatus(status string) verdict {
	return providerStatuses[strings.ToLower(status)]
}

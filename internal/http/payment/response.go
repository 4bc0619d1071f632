package payment

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/money"
	"github.com/MrJamesThe3rd/studiobooks/internal/payment"
)

type chargeResponse struct {
	ID                uuid.UUID      `json:"id"`
	OwnerID           uuid.UUID      `json:"owner_id"`
	ClientID          uuid.UUID      `json:"client_id"`
	SessionID         *uuid.UUID     `json:"session_id,omitempty"`
	LedgerEntryID     *uuid.UUID     `json:"ledger_entry_id,omitempty"`
	Provider          string         `json:"provider"`
	ProviderPaymentID *string        `json:"provider_payment_id,omitempty"`
	PreferenceID      *string        `json:"preference_id,omitempty"`
	ExternalReference string         `json:"external_reference"`
	Amount            int64          `json:"amount"`
	AmountDisplay     string         `json:"amount_display"`
	Status            payment.Status `json:"status"`
	CheckoutURL       string         `json:"checkout_url,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         *time.Time     `json:"updated_at,omitempty"`
}

func toResponse(c *payment.Charge) chargeResponse {
	return chargeResponse{
		ID:                c.ID,
		OwnerID:           c.OwnerID,
		ClientID:          c.ClientID,
		SessionID:         c.SessionID,
		LedgerEntryID:     c.LedgerEntryID,
		Provider:          c.Provider,
		ProviderPaymentID: c.ProviderPaymentID,
		PreferenceID:      c.ProviderPreferenceID,
		ExternalReference: c.ExternalReference,
		Amount:            c.Amount,
		AmountDisplay:     money.Format(c.Amount),
		Status:            c.Status,
		CheckoutURL:       c.CheckoutURL,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func toResponseList(charges []*payment.Charge) []chargeResponse {
	resp := make([]chargeResponse, len(charges))
	for i, c := range charges {
		resp[i] = toResponse(c)
	}

	return resp
}

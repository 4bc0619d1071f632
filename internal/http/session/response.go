package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	"github.com/MrJamesThe3rd/studiobooks/internal/receivable"
	"github.com/MrJamesThe3rd/studiobooks/internal/session"
)

type sessionResponse struct {
	ID           uuid.UUID            `json:"id"`
	OwnerID      uuid.UUID            `json:"owner_id"`
	ClientID     uuid.UUID            `json:"client_id"`
	Title        string               `json:"title"`
	ScheduledAt  time.Time            `json:"scheduled_at"`
	TotalAmount  int64                `json:"total_amount"`
	AmountPaid   int64                `json:"amount_paid"`
	Balance      int64                `json:"balance"`
	PaymentState session.PaymentState `json:"payment_state"`
	Plans        []planResponse       `json:"plans,omitempty"`
}

type planResponse struct {
	ID               uuid.UUID             `json:"id"`
	Kind             receivable.Kind       `json:"kind"`
	Mode             receivable.Mode       `json:"mode"`
	TotalAmount      int64                 `json:"total_amount"`
	InstallmentCount int                   `json:"installment_count"`
	Installments     []installmentResponse `json:"installments"`
}

type installmentResponse struct {
	ID                uuid.UUID     `json:"id"`
	Number            int           `json:"number"`
	Amount            int64         `json:"amount"`
	DueDate           string        `json:"due_date"`
	Status            ledger.Status `json:"status"`
	PaidAt            *time.Time    `json:"paid_at,omitempty"`
	ProviderPaymentID *string       `json:"provider_payment_id,omitempty"`
}

func toResponse(s *session.Session) sessionResponse {
	return sessionResponse{
		ID:           s.ID,
		OwnerID:      s.OwnerID,
		ClientID:     s.ClientID,
		Title:        s.Title,
		ScheduledAt:  s.ScheduledAt,
		TotalAmount:  s.TotalAmount,
		AmountPaid:   s.AmountPaid,
		Balance:      s.Balance(),
		PaymentState: s.PaymentState(),
	}
}

func toPlanResponse(p *receivable.Plan) planResponse {
	resp := planResponse{
		ID:               p.ID,
		Kind:             p.Kind,
		Mode:             p.Mode,
		TotalAmount:      p.TotalAmount,
		InstallmentCount: p.InstallmentCount,
		Installments:     make([]installmentResponse, len(p.Installments)),
	}

	for i, inst := range p.Installments {
		resp.Installments[i] = toInstallmentResponse(inst)
	}

	return resp
}

func toInstallmentResponse(inst *receivable.Installment) installmentResponse {
	return installmentResponse{
		ID:                inst.ID,
		Number:            inst.InstallmentNumber,
		Amount:            inst.Amount,
		DueDate:           inst.DueDate.Format(time.DateOnly),
		Status:            inst.Status,
		PaidAt:            inst.PaidAt,
		ProviderPaymentID: inst.ProviderPaymentID,
	}
}

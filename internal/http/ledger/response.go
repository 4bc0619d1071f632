package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	"github.com/MrJamesThe3rd/studiobooks/internal/money"
)

type entryResponse struct {
	ID               uuid.UUID     `json:"id"`
	OwnerID          uuid.UUID     `json:"owner_id"`
	OwnerItemID      uuid.UUID     `json:"owner_item_id"`
	Description      string        `json:"description"`
	Amount           int64         `json:"amount"`
	AmountDisplay    string        `json:"amount_display"`
	DueDate          string        `json:"due_date"`
	Status           ledger.Status `json:"status"`
	StatusLabel      string        `json:"status_label"`
	SeriesID         *uuid.UUID    `json:"series_id,omitempty"`
	InstallmentIndex *int          `json:"installment_index,omitempty"`
	InstallmentCount *int          `json:"installment_count,omitempty"`
	SourceCycle      *string       `json:"source_cycle,omitempty"`
	CardID           *uuid.UUID    `json:"card_id,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        *time.Time    `json:"updated_at,omitempty"`
}

func toResponse(e *ledger.Entry) entryResponse {
	return entryResponse{
		ID:               e.ID,
		OwnerID:          e.OwnerID,
		OwnerItemID:      e.OwnerItemID,
		Description:      e.Description,
		Amount:           e.Amount,
		AmountDisplay:    money.Format(e.Amount),
		DueDate:          e.DueDate.Format(time.DateOnly),
		Status:           e.Status,
		StatusLabel:      e.Status.Label(),
		SeriesID:         e.SeriesID,
		InstallmentIndex: e.InstallmentIndex,
		InstallmentCount: e.InstallmentCount,
		SourceCycle:      e.SourceCycle,
		CardID:           e.CardID,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func toResponseList(entries []*ledger.Entry) []entryResponse {
	resp := make([]entryResponse, len(entries))
	for i, e := range entries {
		resp[i] = toResponse(e)
	}

	return resp
}

type cardResponse struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Name       string    `json:"name"`
	ClosingDay int       `json:"closing_day"`
	DueDay     int       `json:"due_day"`
}

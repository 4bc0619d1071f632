package ledger

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
)

type Handler struct {
	svc *ledger.Service
}

func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/entries", h.expand)
	r.Get("/entries", h.list)
	r.Get("/entries/{id}", h.get)
	r.Post("/entries/{id}/cancel", h.cancel)
	r.Patch("/entries/{id}/amount", h.editAmount)
	r.Delete("/entries/{id}", h.delete)
	r.Get("/series/{id}", h.series)
	r.Post("/cards", h.createCard)
	r.Post("/sweep", h.sweep)
}

type expandRequest struct {
	OwnerID       uuid.UUID   `json:"owner_id"`
	OwnerItemID   uuid.UUID   `json:"owner_item_id"`
	Description   string      `json:"description"`
	TotalAmount   int64       `json:"total_amount"`
	FirstDueDate  string      `json:"first_due_date"`
	Mode          ledger.Mode `json:"mode"`
	Count         int         `json:"count"`
	IsFixedAmount bool        `json:"is_fixed_amount"`
	CardID        *uuid.UUID  `json:"card_id,omitempty"`
}

func (h *Handler) expand(w http.ResponseWriter, r *http.Request) {
	var req expandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	first, err := time.Parse(time.DateOnly, req.FirstDueDate)
	if err != nil {
		http.Error(w, "invalid first_due_date", http.StatusBadRequest)
		return
	}

	entries, err := h.svc.Expand(r.Context(), ledger.Intent{
		OwnerID:       req.OwnerID,
		OwnerItemID:   req.OwnerItemID,
		Description:   req.Description,
		TotalAmount:   req.TotalAmount,
		FirstDueDate:  first,
		Mode:          req.Mode,
		Count:         req.Count,
		IsFixedAmount: req.IsFixedAmount,
		CardID:        req.CardID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponseList(entries))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	ownerID, err := uuid.Parse(q.Get("owner_id"))
	if err != nil {
		http.Error(w, "invalid owner_id", http.StatusBadRequest)
		return
	}

	from, err := time.Parse(time.DateOnly, q.Get("from"))
	if err != nil {
		http.Error(w, "invalid from", http.StatusBadRequest)
		return
	}

	to, err := time.Parse(time.DateOnly, q.Get("to"))
	if err != nil {
		http.Error(w, "invalid to", http.StatusBadRequest)
		return
	}

	entries, err := h.svc.List(r.Context(), ownerID, from, to)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponseList(entries))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	e, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(e))
}

type seriesResponse struct {
	Entries []entryResponse `json:"entries"`
	Total   int64           `json:"total"`
}

func (h *Handler) series(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	entries, err := h.svc.Series(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if len(entries) == 0 {
		http.Error(w, "series not found", http.StatusNotFound)
		return
	}

	var total int64
	for _, e := range entries {
		total += e.Amount
	}

	writeJSON(w, http.StatusOK, seriesResponse{Entries: toResponseList(entries), Total: total})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Cancel(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type editAmountRequest struct {
	Amount int64 `json:"amount"`
}

func (h *Handler) editAmount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req editAmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.EditAmount(r.Context(), id, req.Amount); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type createCardRequest struct {
	OwnerID    uuid.UUID `json:"owner_id"`
	Name       string    `json:"name"`
	ClosingDay int       `json:"closing_day"`
	DueDay     int       `json:"due_day"`
}

func (h *Handler) createCard(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	card := &ledger.Card{
		OwnerID:    req.OwnerID,
		Name:       req.Name,
		ClosingDay: req.ClosingDay,
		DueDay:     req.DueDay,
	}
	if err := h.svc.AddCard(r.Context(), card); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, cardResponse{
		ID:         card.ID,
		OwnerID:    card.OwnerID,
		Name:       card.Name,
		ClosingDay: card.ClosingDay,
		DueDay:     card.DueDay,
	})
}

type sweepResponse struct {
	Billed int `json:"billed"`
}

func (h *Handler) sweep(w http.ResponseWriter, r *http.Request) {
	billed, err := h.svc.SweepDue(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sweepResponse{Billed: billed})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidIntent):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, ledger.ErrCardNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ledger.ErrInvalidTransition), errors.Is(err, ledger.ErrStaleStatus):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		slog.Error("ledger request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

package payment

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/payment"
)

type Handler struct {
	svc *payment.Service
}

func NewHandler(svc *payment.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/cancel", h.cancel)
}

type createCheckoutRequest struct {
	OwnerID       uuid.UUID  `json:"owner_id"`
	ClientID      uuid.UUID  `json:"client_id"`
	SessionID     *uuid.UUID `json:"session_id,omitempty"`
	LedgerEntryID *uuid.UUID `json:"ledger_entry_id,omitempty"`
	Title         string     `json:"title"`
	Amount        int64      `json:"amount"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	charge, err := h.svc.CreateCheckout(r.Context(), payment.CheckoutParams{
		OwnerID:       req.OwnerID,
		ClientID:      req.ClientID,
		SessionID:     req.SessionID,
		LedgerEntryID: req.LedgerEntryID,
		Title:         req.Title,
		Amount:        req.Amount,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(charge))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	ownerID, err := uuid.Parse(q.Get("owner_id"))
	if err != nil {
		http.Error(w, "invalid owner_id", http.StatusBadRequest)
		return
	}

	var status *payment.Status

	if v := q.Get("status"); v != "" {
		s := payment.Status(v)
		switch s {
		case payment.StatusPending, payment.StatusPaid, payment.StatusCancelled:
			status = &s
		default:
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
	}

	charges, err := h.svc.List(r.Context(), ownerID, status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponseList(charges))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	charge, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(charge))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.CancelCharge(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payment.ErrInvalidCharge):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, payment.ErrNotFound):
		http.Error(w, "charge not found", http.StatusNotFound)
	case errors.Is(err, payment.ErrNotPending):
		http.Error(w, err.Error(), http.StatusConflict)
	case payment.IsTransient(err):
		slog.Warn("payment provider unavailable", "error", err)
		http.Error(w, "payment provider unavailable", http.StatusServiceUnavailable)
	default:
		slog.Error("checkout request failed", "error", err)
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

package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/receivable"
	"github.com/MrJamesThe3rd/studiobooks/internal/session"
)

type Handler struct {
	sessionSvc *session.Service
	planSvc    *receivable.Service
}

func NewHandler(sessionSvc *session.Service, planSvc *receivable.Service) *Handler {
	return &Handler{
		sessionSvc: sessionSvc,
		planSvc:    planSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}/plan", h.schedule)
	r.Post("/{id}/payments", h.recordPayment)
	r.Delete("/{id}/receivables", h.removeReceivables)
}

type createSessionRequest struct {
	OwnerID     uuid.UUID `json:"owner_id"`
	ClientID    uuid.UUID `json:"client_id"`
	Title       string    `json:"title"`
	ScheduledAt time.Time `json:"scheduled_at"`
	TotalAmount int64     `json:"total_amount"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := h.sessionSvc.Create(r.Context(), session.CreateParams{
		OwnerID:     req.OwnerID,
		ClientID:    req.ClientID,
		Title:       req.Title,
		ScheduledAt: req.ScheduledAt,
		TotalAmount: req.TotalAmount,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(sess))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	ownerID, err := uuid.Parse(q.Get("owner_id"))
	if err != nil {
		http.Error(w, "invalid owner_id", http.StatusBadRequest)
		return
	}

	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		http.Error(w, "invalid year", http.StatusBadRequest)
		return
	}

	month, err := strconv.Atoi(q.Get("month"))
	if err != nil || month < 1 || month > 12 {
		http.Error(w, "invalid month", http.StatusBadRequest)
		return
	}

	sessions, err := h.sessionSvc.ListMonth(r.Context(), ownerID, year, time.Month(month))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]sessionResponse, len(sessions))
	for i, s := range sessions {
		resp[i] = toResponse(s)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	sess, err := h.sessionSvc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	plans, err := h.planSvc.Plans(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := toResponse(sess)
	for _, p := range plans {
		resp.Plans = append(resp.Plans, toPlanResponse(p))
	}

	writeJSON(w, http.StatusOK, resp)
}

type scheduleRequest struct {
	Mode         receivable.Mode `json:"mode"`
	Count        int             `json:"count"`
	Amount       int64           `json:"amount"`
	FirstDueDate string          `json:"first_due_date"`
}

// schedule plans the session's open balance unless an explicit amount is given.
func (h *Handler) schedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	first, err := time.Parse(time.DateOnly, req.FirstDueDate)
	if err != nil {
		http.Error(w, "invalid first_due_date", http.StatusBadRequest)
		return
	}

	sess, err := h.sessionSvc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	amount := req.Amount
	if amount == 0 {
		amount = sess.Balance()
	}

	plan, err := h.planSvc.Schedule(r.Context(), receivable.ScheduleParams{
		SessionID:    sess.ID,
		ClientID:     sess.ClientID,
		Amount:       amount,
		Mode:         req.Mode,
		Count:        req.Count,
		FirstDueDate: first,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPlanResponse(plan))
}

type paymentRequest struct {
	Amount int64 `json:"amount"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := h.sessionSvc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	line, err := h.planSvc.RecordQuickPayment(r.Context(), receivable.QuickPaymentParams{
		SessionID:    sess.ID,
		ClientID:     sess.ClientID,
		Amount:       req.Amount,
		SessionTotal: sess.TotalAmount,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toInstallmentResponse(line))
}

func (h *Handler) removeReceivables(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	preserve := true
	if v := r.URL.Query().Get("preserve_payments"); v != "" {
		preserve, err = strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "invalid preserve_payments", http.StatusBadRequest)
			return
		}
	}

	if err := h.planSvc.RemoveSessionData(r.Context(), id, preserve); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidSession), errors.Is(err, receivable.ErrInvalidPlan):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, session.ErrNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
	case errors.Is(err, receivable.ErrDuplicatePayment), errors.Is(err, receivable.ErrOverpayment):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		slog.Error("session request failed", "error", err)
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

package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/export"
	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	"github.com/MrJamesThe3rd/studiobooks/internal/money"
)

type Handler struct {
	svc *export.Service
}

func NewHandler(svc *export.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.metadata)
	r.Post("/download", h.download)
}

type exportRequest struct {
	OwnerID uuid.UUID `json:"owner_id"`
	Year    int       `json:"year"`
	Month   int       `json:"month"`
}

type entryResponse struct {
	ID            uuid.UUID     `json:"id"`
	Description   string        `json:"description"`
	Amount        int64         `json:"amount"`
	AmountDisplay string        `json:"amount_display"`
	DueDate       string        `json:"due_date"`
	Status        ledger.Status `json:"status"`
}

type totalsResponse struct {
	Paid      int64 `json:"paid"`
	Open      int64 `json:"open"`
	Cancelled int64 `json:"cancelled"`
}

type exportMetadataResponse struct {
	Entries   []entryResponse `json:"entries"`
	Totals    totalsResponse  `json:"totals"`
	EmailBody string          `json:"email_body"`
}

func (h *Handler) metadata(w http.ResponseWriter, r *http.Request) {
	st, ok := h.statement(w, r)
	if !ok {
		return
	}

	entries := make([]entryResponse, 0, len(st.Entries))
	for _, e := range st.Entries {
		entries = append(entries, entryResponse{
			ID:            e.ID,
			Description:   e.Description,
			Amount:        e.Amount,
			AmountDisplay: money.Format(e.Amount),
			DueDate:       e.DueDate.Format(time.DateOnly),
			Status:        e.Status,
		})
	}

	totals := st.Totals()

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(exportMetadataResponse{
		Entries:   entries,
		Totals:    totalsResponse(totals),
		EmailBody: st.Summary(),
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	st, ok := h.statement(w, r)
	if !ok {
		return
	}

	// Built in memory so a failure can still become a 500.
	var buf bytes.Buffer
	if err := st.WriteArchive(&buf); err != nil {
		slog.Error("failed to create zip", "owner_id", st.OwnerID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", st.Filename()))

	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("failed to write zip", "error", err)
	}
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) (*export.Statement, bool) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	if req.OwnerID == uuid.Nil {
		http.Error(w, "owner_id is required", http.StatusBadRequest)
		return nil, false
	}

	if req.Month < 1 || req.Month > 12 || req.Year < 1 {
		http.Error(w, "invalid period", http.StatusBadRequest)
		return nil, false
	}

	st, err := h.svc.Export(r.Context(), req.OwnerID, req.Year, time.Month(req.Month))
	if err != nil {
		slog.Error("export failed", "owner_id", req.OwnerID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return nil, false
	}

	return st, true
}

package importcsv

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/importer"
	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	"github.com/MrJamesThe3rd/studiobooks/internal/matching"
	"github.com/MrJamesThe3rd/studiobooks/internal/money"
)

const maxUploadSize = 10 << 20

type Handler struct {
	parser    *importer.Parser
	ledgerSvc *ledger.Service
	matchSvc  *matching.Service
}

func NewHandler(parser *importer.Parser, ledgerSvc *ledger.Service, matchSvc *matching.Service) *Handler {
	return &Handler{
		parser:    parser,
		ledgerSvc: ledgerSvc,
		matchSvc:  matchSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.With(middleware.AllowContentType("multipart/form-data")).Post("/", h.importCSV)
	r.With(middleware.AllowContentType("application/json")).Post("/confirm", h.confirmImport)
}

type entryResponse struct {
	ID            uuid.UUID     `json:"id"`
	Description   string        `json:"description"`
	Amount        int64         `json:"amount"`
	AmountDisplay string        `json:"amount_display"`
	DueDate       string        `json:"due_date"`
	Status        ledger.Status `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}

type importSuccessResponse struct {
	Imported int             `json:"imported"`
	Entries  []entryResponse `json:"entries"`
}

type rowDTO struct {
	Description string        `json:"description"`
	Amount      int64         `json:"amount"`
	DueDate     string        `json:"due_date"`
	Status      ledger.Status `json:"status,omitempty"`
}

type conflictDTO struct {
	Incoming rowDTO        `json:"incoming"`
	Existing entryResponse `json:"existing"`
}

type importConflictResponse struct {
	Profile   string        `json:"profile"`
	Charset   string        `json:"charset"`
	New       []rowDTO      `json:"new"`
	Conflicts []conflictDTO `json:"conflicts"`
}

type confirmRequest struct {
	OwnerID uuid.UUID `json:"owner_id"`
	Rows    []rowDTO  `json:"rows"`
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	ownerID, err := uuid.Parse(r.FormValue("owner_id"))
	if err != nil {
		http.Error(w, "owner_id field is required", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	parsed, err := h.parser.Parse(file)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, importer.ErrUnknownFormat) {
			status = http.StatusUnprocessableEntity
		}

		http.Error(w, err.Error(), status)

		return
	}

	// Aliases are a convenience; an import never fails because of them.
	if _, err := h.matchSvc.Rename(r.Context(), ownerID, parsed.Rows); err != nil {
		slog.Warn("applying description aliases", "owner_id", ownerID, "error", err)
	}

	result, err := h.ledgerSvc.Import(r.Context(), ownerID, parsed.Rows, false)
	if err != nil {
		writeError(w, err)
		return
	}

	if len(result.Conflicts) > 0 {
		resp := importConflictResponse{
			Profile:   parsed.Profile,
			Charset:   string(parsed.Charset),
			New:       make([]rowDTO, 0, len(result.New)),
			Conflicts: make([]conflictDTO, 0, len(result.Conflicts)),
		}

		for _, row := range result.New {
			resp.New = append(resp.New, toRowDTO(row))
		}

		for _, c := range result.Conflicts {
			resp.Conflicts = append(resp.Conflicts, conflictDTO{
				Incoming: toRowDTO(c.Incoming),
				Existing: toEntryResponse(c.Existing),
			})
		}

		writeJSON(w, http.StatusConflict, resp)

		return
	}

	slog.Info("spreadsheet imported", "owner_id", ownerID, "profile", parsed.Profile, "charset", parsed.Charset, "rows", len(result.Imported))

	writeJSON(w, http.StatusCreated, toSuccessResponse(result.Imported))
}

// confirmImport writes rows the user reviewed after a conflict, duplicates included.
func (h *Handler) confirmImport(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.OwnerID == uuid.Nil {
		http.Error(w, "owner_id is required", http.StatusBadRequest)
		return
	}

	rows := make([]ledger.ImportRow, 0, len(req.Rows))

	for _, dto := range req.Rows {
		due, err := time.Parse(time.DateOnly, dto.DueDate)
		if err != nil {
			http.Error(w, "invalid due_date "+dto.DueDate, http.StatusBadRequest)
			return
		}

		rows = append(rows, ledger.ImportRow{
			Description: dto.Description,
			Amount:      dto.Amount,
			DueDate:     due,
			Status:      dto.Status,
		})
	}

	result, err := h.ledgerSvc.Import(r.Context(), req.OwnerID, rows, true)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSuccessResponse(result.Imported))
}

func toSuccessResponse(entries []*ledger.Entry) importSuccessResponse {
	resp := importSuccessResponse{
		Imported: len(entries),
		Entries:  make([]entryResponse, 0, len(entries)),
	}

	for _, e := range entries {
		resp.Entries = append(resp.Entries, toEntryResponse(e))
	}

	return resp
}

func toEntryResponse(e *ledger.Entry) entryResponse {
	return entryResponse{
		ID:            e.ID,
		Description:   e.Description,
		Amount:        e.Amount,
		AmountDisplay: money.Format(e.Amount),
		DueDate:       e.DueDate.Format(time.DateOnly),
		Status:        e.Status,
		CreatedAt:     e.CreatedAt,
	}
}

func toRowDTO(r ledger.ImportRow) rowDTO {
	return rowDTO{
		Description: r.Description,
		Amount:      r.Amount,
		DueDate:     r.DueDate.Format(time.DateOnly),
		Status:      r.Status,
	}
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ledger.ErrInvalidIntent) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	slog.Error("import request failed", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

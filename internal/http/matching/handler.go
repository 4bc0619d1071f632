package matching

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/matching"
)

type Handler struct {
	svc *matching.Service
}

func NewHandler(svc *matching.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/suggest", h.suggest)
	r.Post("/", h.learn)
}

type suggestResponse struct {
	RawDescription       string `json:"raw_description"`
	PreferredDescription string `json:"preferred_description"`
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	ownerID, err := uuid.Parse(q.Get("owner_id"))
	if err != nil {
		http.Error(w, "invalid owner_id", http.StatusBadRequest)
		return
	}

	rawDesc := q.Get("raw_description")
	if rawDesc == "" {
		http.Error(w, "raw_description query parameter is required", http.StatusBadRequest)
		return
	}

	preferred, err := h.svc.Suggest(r.Context(), ownerID, rawDesc)
	if err != nil {
		slog.Error("alias lookup failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(suggestResponse{
		RawDescription:       rawDesc,
		PreferredDescription: preferred,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type learnRequest struct {
	OwnerID              uuid.UUID `json:"owner_id"`
	RawPattern           string    `json:"raw_pattern"`
	PreferredDescription string    `json:"preferred_description"`
}

func (h *Handler) learn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.svc.Learn(r.Context(), matching.Alias{
		OwnerID:              req.OwnerID,
		RawPattern:           req.RawPattern,
		PreferredDescription: req.PreferredDescription,
	})
	if err != nil {
		if errors.Is(err, matching.ErrInvalidAlias) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		slog.Error("saving alias failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusCreated)
}

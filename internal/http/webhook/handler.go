// Package webhook receives payment provider notifications. Every request is
// answered 200 so the provider stops redelivering; failures that may succeed
// later are handed to a retry queue instead.
package webhook

//go:generate mockgen -source=handler.go -destination=handler_mock.go -package=webhook

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/studiobooks/internal/payment"
)

const maxBodyBytes = 1 << 20

type Reconciler interface {
	Reconcile(ctx context.Context, ev payment.Event) (payment.Result, error)
}

type RetryQueue interface {
	Enqueue(ctx context.Context, ev payment.Event) error
}

type Handler struct {
	reconciler Reconciler
	retries    RetryQueue
}

func NewHandler(reconciler Reconciler, retries RetryQueue) *Handler {
	return &Handler{
		reconciler: reconciler,
		retries:    retries,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/mercadopago", h.mercadoPago)
}

func (h *Handler) mercadoPago(w http.ResponseWriter, r *http.Request) {
	defer w.WriteHeader(http.StatusOK)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		slog.Warn("dropping unreadable webhook", "error", err)
		return
	}

	ev, err := parseEvent(body, r.URL.Query())
	if err != nil {
		if errors.Is(err, payment.ErrIgnoredEvent) {
			slog.Debug("ignoring webhook", "reason", err)
			return
		}

		slog.Warn("dropping malformed webhook", "error", err, "body", string(body))

		return
	}

	res, err := h.reconciler.Reconcile(r.Context(), ev)
	if err == nil {
		slog.Info("webhook processed",
			"provider_payment_id", ev.ProviderPaymentID,
			"outcome", res.Outcome,
			"strategy", res.Strategy,
		)

		return
	}

	if errors.Is(err, payment.ErrMalformedEvent) {
		slog.Warn("dropping malformed webhook", "provider_payment_id", ev.ProviderPaymentID, "error", err)
		return
	}

	slog.Warn("webhook reconciliation failed, scheduling retry",
		"provider_payment_id", ev.ProviderPaymentID,
		"transient", payment.IsTransient(err),
		"error", err,
	)

	if err := h.retries.Enqueue(context.WithoutCancel(r.Context()), ev); err != nil {
		slog.Error("failed to schedule webhook retry", "provider_payment_id", ev.ProviderPaymentID, "error", err)
	}
}

// parseEvent reads the JSON body and falls back to the query string form of
// the notification when the body is empty or unusable.
func parseEvent(body []byte, query url.Values) (payment.Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return payment.ParseQuery(query.Get)
	}

	ev, err := payment.ParseWebhook(body)
	if err != nil && errors.Is(err, payment.ErrMalformedEvent) && (query.Has("type") || query.Has("topic")) {
		return payment.ParseQuery(query.Get)
	}

	return ev, err
}

package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/studiobooks/internal/http/export"
	"github.com/MrJamesThe3rd/studiobooks/internal/http/importcsv"
	"github.com/MrJamesThe3rd/studiobooks/internal/http/ledger"
	"github.com/MrJamesThe3rd/studiobooks/internal/http/matching"
	"github.com/MrJamesThe3rd/studiobooks/internal/http/payment"
	"github.com/MrJamesThe3rd/studiobooks/internal/http/session"
	"github.com/MrJamesThe3rd/studiobooks/internal/http/webhook"
)

type Options struct {
	AllowedOrigins []string
	Timeout        time.Duration
}

func New(
	opts Options,
	ledgerV1 *ledger.Handler,
	sessionsV1 *session.Handler,
	checkoutsV1 *payment.Handler,
	webhooksV1 *webhook.Handler,
	importV1 *importcsv.Handler,
	aliasesV1 *matching.Handler,
	exportV1 *export.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	if opts.Timeout > 0 {
		router.Use(middleware.Timeout(opts.Timeout))
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/ledger", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			ledgerV1.Routes(r)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			sessionsV1.Routes(r)
		})

		r.Route("/checkouts", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			checkoutsV1.Routes(r)
		})

		// Providers post JSON or form-encoded notifications; the handler sorts it out.
		r.Route("/webhooks", webhooksV1.Routes)

		r.Route("/import", importV1.Routes)

		r.Route("/aliases", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			aliasesV1.Routes(r)
		})

		r.Route("/export", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			exportV1.Routes(r)
		})
	})

	return router
}

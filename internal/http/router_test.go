package http_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/studiobooks/internal/export"
	booksHttp "github.com/MrJamesThe3rd/studiobooks/internal/http"
	exportHandler "github.com/MrJamesThe3rd/studiobooks/internal/http/export"
	"github.com/MrJamesThe3rd/studiobooks/internal/http/importcsv"
	ledgerHandler "github.com/MrJamesThe3rd/studiobooks/internal/http/ledger"
	matchingHandler "github.com/MrJamesThe3rd/studiobooks/internal/http/matching"
	paymentHandler "github.com/MrJamesThe3rd/studiobooks/internal/http/payment"
	sessionHandler "github.com/MrJamesThe3rd/studiobooks/internal/http/session"
	"github.com/MrJamesThe3rd/studiobooks/internal/http/webhook"
	"github.com/MrJamesThe3rd/studiobooks/internal/importer"
	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	ledgerStore "github.com/MrJamesThe3rd/studiobooks/internal/ledger/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/matching"
	matchingStore "github.com/MrJamesThe3rd/studiobooks/internal/matching/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/payment"
	"github.com/MrJamesThe3rd/studiobooks/internal/payment/mercadopago"
	paymentStore "github.com/MrJamesThe3rd/studiobooks/internal/payment/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/receivable"
	receivableStore "github.com/MrJamesThe3rd/studiobooks/internal/receivable/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/session"
	sessionStore "github.com/MrJamesThe3rd/studiobooks/internal/session/store"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()

	ctrl := gomock.NewController(t)

	ledgerRepo := ledgerStore.NewMemory()
	sessions := sessionStore.NewMemory()
	plans := receivableStore.NewMemory(sessions)

	ledgerSvc := ledger.NewService(ledgerRepo, ledgerRepo)
	matchSvc := matching.NewService(matchingStore.NewMemory())
	paymentSvc := payment.NewService(paymentStore.NewMemory(plans, ledgerRepo), mercadopago.New(mercadopago.Config{}))

	return booksHttp.New(
		booksHttp.Options{
			AllowedOrigins: []string{"https://painel.studio.example"},
			Timeout:        5 * time.Second,
		},
		ledgerHandler.NewHandler(ledgerSvc),
		sessionHandler.NewHandler(session.NewService(sessions), receivable.NewService(plans)),
		paymentHandler.NewHandler(paymentSvc),
		webhook.NewHandler(webhook.NewMockReconciler(ctrl), webhook.NewMockRetryQueue(ctrl)),
		importcsv.NewHandler(importer.NewParser(), ledgerSvc, matchSvc),
		matchingHandler.NewHandler(matchSvc),
		exportHandler.NewHandler(export.NewService(ledgerSvc)),
	)
}

func TestRouter(t *testing.T) {
	type testCase struct {
		name        string
		method      string
		path        string
		contentType string
		body        string
		headers     map[string]string
		wantStatus  int
		wantHeader  map[string]string
	}

	tests := []testCase{
		{
			name:       "Healthz",
			method:     http.MethodGet,
			path:       "/healthz",
			wantStatus: http.StatusNoContent,
		},
		{
			name:        "LedgerRejectsForm",
			method:      http.MethodPost,
			path:        "/api/v1/ledger/sweep",
			contentType: "application/x-www-form-urlencoded",
			body:        "a=b",
			wantStatus:  http.StatusUnsupportedMediaType,
		},
		{
			name:        "ImportRejectsJSON",
			method:      http.MethodPost,
			path:        "/api/v1/import",
			contentType: "application/json",
			body:        "{}",
			wantStatus:  http.StatusUnsupportedMediaType,
		},
		{
			name:       "UnknownRoute",
			method:     http.MethodGet,
			path:       "/api/v1/transactions",
			wantStatus: http.StatusNotFound,
		},
		{
			name:   "CORSPreflight",
			method: http.MethodOptions,
			path:   "/api/v1/sessions",
			headers: map[string]string{
				"Origin":                        "https://painel.studio.example",
				"Access-Control-Request-Method": http.MethodPost,
			},
			wantStatus: http.StatusOK,
			wantHeader: map[string]string{
				"Access-Control-Allow-Origin": "https://painel.studio.example",
			},
		},
		{
			name:   "CORSUnknownOrigin",
			method: http.MethodOptions,
			path:   "/api/v1/sessions",
			headers: map[string]string{
				"Origin":                        "https://evil.example",
				"Access-Control-Request-Method": http.MethodPost,
			},
			wantStatus: http.StatusOK,
			wantHeader: map[string]string{
				"Access-Control-Allow-Origin": "",
			},
		},
	}

	router := newRouter(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)

			for k, v := range tt.wantHeader {
				assert.Equal(t, v, rec.Header().Get(k))
			}
		})
	}
}

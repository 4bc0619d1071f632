package payment_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paymenthttp "github.com/MrJamesThe3rd/studiobooks/internal/http/payment"
	ledgerStore "github.com/MrJamesThe3rd/studiobooks/internal/ledger/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/payment"
	"github.com/MrJamesThe3rd/studiobooks/internal/payment/store"
	receivableStore "github.com/MrJamesThe3rd/studiobooks/internal/receivable/store"
	sessionStore "github.com/MrJamesThe3rd/studiobooks/internal/session/store"
)

type fakeProvider struct {
	down bool
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) GetPayment(context.Context, string) (*payment.PaymentDetails, error) {
	return nil, payment.ErrPaymentNotFound
}

func (f *fakeProvider) CreateCheckout(_ context.Context, req payment.CheckoutRequest) (*payment.Checkout, error) {
	if f.down {
		return nil, &payment.TransientError{Op: "create checkout", Err: errors.New("unexpected status code 503")}
	}

	return &payment.Checkout{PreferenceID: "pref-1", URL: "https://checkout.example/pref-1"}, nil
}

type chargeJSON struct {
	ID                uuid.UUID  `json:"id"`
	Amount            int64      `json:"amount"`
	AmountDisplay     string     `json:"amount_display"`
	Status            string     `json:"status"`
	PreferenceID      *string    `json:"preference_id"`
	ExternalReference string     `json:"external_reference"`
	CheckoutURL       string     `json:"checkout_url"`
	LedgerEntryID     *uuid.UUID `json:"ledger_entry_id"`
}

func newServer(t *testing.T, provider *fakeProvider) *httptest.Server {
	t.Helper()

	charges := store.NewMemory(receivableStore.NewMemory(sessionStore.NewMemory()), ledgerStore.NewMemory())

	router := chi.NewRouter()
	router.Route("/checkouts", paymenthttp.NewHandler(payment.NewService(charges, provider)).Routes)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func checkoutBody(owner uuid.UUID, amount string) string {
	return `{"owner_id":"` + owner.String() + `","client_id":"` + uuid.NewString() + `","title":"Sinal ensaio","amount":` + amount + `}`
}

func TestHandler_CheckoutLifecycle(t *testing.T) {
	srv := newServer(t, &fakeProvider{})
	owner := uuid.New()

	resp := do(t, http.MethodPost, srv.URL+"/checkouts", checkoutBody(owner, "15000"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created chargeJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "R$ 150,00", created.AmountDisplay)
	assert.Equal(t, "https://checkout.example/pref-1", created.CheckoutURL)
	require.NotNil(t, created.PreferenceID)
	assert.Equal(t, "pref-1", *created.PreferenceID)
	assert.True(t, strings.HasPrefix(created.ExternalReference, owner.String()+"|"))

	chargeURL := srv.URL + "/checkouts/" + created.ID.String()

	got := do(t, http.MethodGet, chargeURL, "")
	require.Equal(t, http.StatusOK, got.StatusCode)

	assert.Equal(t, http.StatusNoContent, do(t, http.MethodPost, chargeURL+"/cancel", "").StatusCode)
	assert.Equal(t, http.StatusConflict, do(t, http.MethodPost, chargeURL+"/cancel", "").StatusCode)

	list := do(t, http.MethodGet, srv.URL+"/checkouts?owner_id="+owner.String()+"&status=cancelled", "")
	require.Equal(t, http.StatusOK, list.StatusCode)

	var cancelled []chargeJSON
	require.NoError(t, json.NewDecoder(list.Body).Decode(&cancelled))
	require.Len(t, cancelled, 1)
	assert.Equal(t, created.ID, cancelled[0].ID)

	pending := do(t, http.MethodGet, srv.URL+"/checkouts?owner_id="+owner.String()+"&status=pending", "")
	require.Equal(t, http.StatusOK, pending.StatusCode)

	var none []chargeJSON
	require.NoError(t, json.NewDecoder(pending.Body).Decode(&none))
	assert.Empty(t, none)
}

func TestHandler_CheckoutForLedgerEntry(t *testing.T) {
	srv := newServer(t, &fakeProvider{})
	entryID := uuid.New()

	body := `{"owner_id":"` + uuid.NewString() + `","client_id":"` + uuid.NewString() +
		`","ledger_entry_id":"` + entryID.String() + `","title":"Mensalidade","amount":9900}`

	resp := do(t, http.MethodPost, srv.URL+"/checkouts", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created chargeJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotNil(t, created.LedgerEntryID)
	assert.Equal(t, entryID, *created.LedgerEntryID)
}

func TestHandler_Errors(t *testing.T) {
	type testCase struct {
		name       string
		provider   *fakeProvider
		method     string
		path       string
		body       string
		wantStatus int
	}

	tests := []testCase{
		{
			name:       "ZeroAmount",
			provider:   &fakeProvider{},
			method:     http.MethodPost,
			path:       "/checkouts",
			body:       checkoutBody(uuid.New(), "0"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "ProviderDown",
			provider:   &fakeProvider{down: true},
			method:     http.MethodPost,
			path:       "/checkouts",
			body:       checkoutBody(uuid.New(), "1000"),
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "UnknownCharge",
			provider:   &fakeProvider{},
			method:     http.MethodGet,
			path:       "/checkouts/" + uuid.NewString(),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "CancelUnknownCharge",
			provider:   &fakeProvider{},
			method:     http.MethodPost,
			path:       "/checkouts/" + uuid.NewString() + "/cancel",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "BadStatusFilter",
			provider:   &fakeProvider{},
			method:     http.MethodGet,
			path:       "/checkouts?owner_id=" + uuid.NewString() + "&status=refunded",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.provider)

			resp := do(t, tt.method, srv.URL+tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

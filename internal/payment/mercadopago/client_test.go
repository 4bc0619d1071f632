package mercadopago_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/studiobooks/internal/payment"
	"github.com/MrJamesThe3rd/studiobooks/internal/payment/mercadopago"
)

func newClient(t *testing.T, h http.HandlerFunc) *mercadopago.Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return mercadopago.New(mercadopago.Config{
		BaseURL:     srv.URL,
		AccessToken: "TEST-token",
		NotifyURL:   "https://studio.example/webhooks/mercadopago",
		Timeout:     2 * time.Second,
	})
}

func TestClient_GetPayment(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/payments/1319283745", r.URL.Path)
		assert.Equal(t, "Bearer TEST-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 1319283745,
			"status": "approved",
			"status_detail": "accredited",
			"transaction_amount": 250.5,
			"external_reference": "a|b|c",
			"date_approved": "2024-05-10T14:22:31.000-04:00",
			"metadata": {"preference_id": "pref-77"}
		}`))
	})

	got, err := c.GetPayment(context.Background(), "1319283745")
	require.NoError(t, err)

	assert.Equal(t, "1319283745", got.ID)
	assert.Equal(t, "approved", got.Status)
	assert.Equal(t, "accredited", got.StatusDetail)
	assert.Equal(t, int64(25050), got.Amount)
	assert.Equal(t, "a|b|c", got.ExternalReference)
	assert.Equal(t, "pref-77", got.PreferenceID)
	require.NotNil(t, got.DateApproved)
	assert.Equal(t, time.Date(2024, 5, 10, 18, 22, 31, 0, time.UTC), got.DateApproved.UTC())
}

func TestClient_Errors(t *testing.T) {
	type testCase struct {
		name          string
		status        int
		wantTransient bool
		wantNotFound  bool
	}

	tests := []testCase{
		{name: "BadGateway", status: http.StatusBadGateway, wantTransient: true},
		{name: "TooManyRequests", status: http.StatusTooManyRequests, wantTransient: true},
		{name: "NotFound", status: http.StatusNotFound, wantNotFound: true},
		{name: "Unauthorized", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, `{"message":"nope"}`, tt.status)
			})

			_, err := c.GetPayment(context.Background(), "1")
			require.Error(t, err)

			assert.Equal(t, tt.wantTransient, payment.IsTransient(err))
			assert.Equal(t, tt.wantNotFound, errors.Is(err, payment.ErrPaymentNotFound))
			assert.False(t, errors.Is(err, payment.ErrNotFound))
		})
	}
}

func TestClient_GetPayment_EscapesID(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/..%2F..%2Fcheckout%2Fpreferences%3Fx=1", r.URL.EscapedPath())
		assert.Empty(t, r.URL.RawQuery)

		http.Error(w, `{"message":"resource not found"}`, http.StatusNotFound)
	})

	_, err := c.GetPayment(context.Background(), "../../checkout/preferences?x=1")
	assert.ErrorIs(t, err, payment.ErrPaymentNotFound)
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	c := mercadopago.New(mercadopago.Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})

	_, err := c.GetPayment(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, payment.IsTransient(err))
}

func TestClient_CreateCheckout(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		assert.Equal(t, "owner|client|", body["external_reference"])
		assert.Equal(t, "https://studio.example/webhooks/mercadopago", body["notification_url"])

		items, ok := body["items"].([]any)
		require.True(t, ok)
		require.Len(t, items, 1)

		item := items[0].(map[string]any)
		assert.Equal(t, "Ensaio", item["title"])
		assert.Equal(t, 1234.5, item["unit_price"])
		assert.Equal(t, "BRL", item["currency_id"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pref-1","init_point":"https://mp.example/checkout?pref_id=pref-1"}`))
	})

	got, err := c.CreateCheckout(context.Background(), payment.CheckoutRequest{
		Title:             "Ensaio",
		Amount:            123450,
		ExternalReference: "owner|client|",
	})
	require.NoError(t, err)
	assert.Equal(t, "pref-1", got.PreferenceID)
	assert.Equal(t, "https://mp.example/checkout?pref_id=pref-1", got.URL)
	assert.Equal(t, "mercadopago", c.Name())
}

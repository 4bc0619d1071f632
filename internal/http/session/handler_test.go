package session_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sessionhttp "github.com/MrJamesThe3rd/studiobooks/internal/http/session"
	"github.com/MrJamesThe3rd/studiobooks/internal/receivable"
	receivableStore "github.com/MrJamesThe3rd/studiobooks/internal/receivable/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/session"
	sessionStore "github.com/MrJamesThe3rd/studiobooks/internal/session/store"
)

type sessionJSON struct {
	ID           uuid.UUID `json:"id"`
	TotalAmount  int64     `json:"total_amount"`
	AmountPaid   int64     `json:"amount_paid"`
	Balance      int64     `json:"balance"`
	PaymentState string    `json:"payment_state"`
	Plans        []struct {
		Kind         string `json:"kind"`
		Installments []struct {
			Number int    `json:"number"`
			Amount int64  `json:"amount"`
			Status string `json:"status"`
		} `json:"installments"`
	} `json:"plans"`
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	sessions := sessionStore.NewMemory()
	plans := receivableStore.NewMemory(sessions)

	h := sessionhttp.NewHandler(session.NewService(sessions), receivable.NewService(plans))

	router := chi.NewRouter()
	router.Route("/sessions", h.Routes)

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

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))

	return v
}

func createSession(t *testing.T, srv *httptest.Server, owner uuid.UUID) sessionJSON {
	t.Helper()

	resp := do(t, http.MethodPost, srv.URL+"/sessions", `{
		"owner_id":"`+owner.String()+`",
		"client_id":"`+uuid.NewString()+`",
		"title":"Ensaio gestante",
		"scheduled_at":"2024-05-18T15:00:00Z",
		"total_amount":100000
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	return decode[sessionJSON](t, resp)
}

func TestHandler_PaymentsAndPlan(t *testing.T) {
	srv := newServer(t)
	sess := createSession(t, srv, uuid.New())
	base := srv.URL + "/sessions/" + sess.ID.String()

	assert.Equal(t, "open", sess.PaymentState)

	resp := do(t, http.MethodPost, base+"/payments", `{"amount":20000}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, http.MethodPut, base+"/plan", `{"mode":"installments","count":2,"first_due_date":"2099-01-10"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[sessionJSON](t, resp)
	assert.Equal(t, int64(20000), got.AmountPaid)
	assert.Equal(t, int64(80000), got.Balance)
	assert.Equal(t, "partial", got.PaymentState)
	require.Len(t, got.Plans, 2)

	var scheduled []int64

	for _, p := range got.Plans {
		if p.Kind != string(receivable.KindScheduled) {
			continue
		}

		for _, inst := range p.Installments {
			scheduled = append(scheduled, inst.Amount)
			assert.Equal(t, "scheduled", inst.Status)
		}
	}

	assert.Equal(t, []int64{40000, 40000}, scheduled)

	assert.Equal(t, http.StatusNoContent, do(t, http.MethodDelete, base+"/receivables", "").StatusCode)

	got = decode[sessionJSON](t, do(t, http.MethodGet, base, ""))
	assert.Equal(t, int64(20000), got.AmountPaid)
	assert.Len(t, got.Plans, 1)

	assert.Equal(t, http.StatusNoContent, do(t, http.MethodDelete, base+"/receivables?preserve_payments=false", "").StatusCode)

	got = decode[sessionJSON](t, do(t, http.MethodGet, base, ""))
	assert.Zero(t, got.AmountPaid)
	assert.Empty(t, got.Plans)
}

func TestHandler_Errors(t *testing.T) {
	type testCase struct {
		name       string
		method     string
		path       func(id uuid.UUID) string
		body       string
		wantStatus int
	}

	srv := newServer(t)
	sess := createSession(t, srv, uuid.New())

	tests := []testCase{
		{
			name:       "UnknownSession",
			method:     http.MethodPost,
			path:       func(uuid.UUID) string { return "/sessions/" + uuid.NewString() + "/payments" },
			body:       `{"amount":100}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "NegativePayment",
			method:     http.MethodPost,
			path:       func(id uuid.UUID) string { return "/sessions/" + id.String() + "/payments" },
			body:       `{"amount":-100}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "UnknownPlanMode",
			method:     http.MethodPut,
			path:       func(id uuid.UUID) string { return "/sessions/" + id.String() + "/plan" },
			body:       `{"mode":"weekly","first_due_date":"2024-06-01"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "BadPreserveFlag",
			method:     http.MethodDelete,
			path:       func(id uuid.UUID) string { return "/sessions/" + id.String() + "/receivables?preserve_payments=maybe" },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "NegativeTotal",
			method:     http.MethodPost,
			path:       func(uuid.UUID) string { return "/sessions" },
			body:       `{"owner_id":"` + uuid.NewString() + `","total_amount":-1}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "BadMonth",
			method:     http.MethodGet,
			path:       func(uuid.UUID) string { return "/sessions?owner_id=" + uuid.NewString() + "&year=2024&month=13" },
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, srv.URL+tt.path(sess.ID), tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestHandler_ListMonth(t *testing.T) {
	srv := newServer(t)
	owner := uuid.New()

	createSession(t, srv, owner)
	createSession(t, srv, owner)
	createSession(t, srv, uuid.New())

	resp := do(t, http.MethodGet, srv.URL+"/sessions?owner_id="+owner.String()+"&year=2024&month=5", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]sessionJSON](t, resp), 2)

	resp = do(t, http.MethodGet, srv.URL+"/sessions?owner_id="+owner.String()+"&year=2024&month=6", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]sessionJSON](t, resp))
}

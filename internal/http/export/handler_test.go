package export_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/studiobooks/internal/export"
	exporthttp "github.com/MrJamesThe3rd/studiobooks/internal/http/export"
	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	"github.com/MrJamesThe3rd/studiobooks/internal/ledger/store"
)

func newServer(t *testing.T) (*httptest.Server, uuid.UUID) {
	t.Helper()

	mem := store.NewMemory()
	ledgerSvc := ledger.NewService(mem, mem, ledger.WithClock(func() time.Time {
		return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	}))

	owner := uuid.New()

	_, err := ledgerSvc.Import(context.Background(), owner, []ledger.ImportRow{
		{Description: "Aluguel estúdio", Amount: 180000, DueDate: ledger.Date(2024, 5, 5), Status: ledger.StatusPaid},
		{Description: "Contador", Amount: 45000, DueDate: ledger.Date(2024, 5, 15)},
		{Description: "Junho", Amount: 100, DueDate: ledger.Date(2024, 6, 1)},
	}, false)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Route("/export", exporthttp.NewHandler(export.NewService(ledgerSvc)).Routes)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv, owner
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func TestHandler_Metadata(t *testing.T) {
	srv, owner := newServer(t)

	resp := post(t, srv.URL+"/export", `{"owner_id":"`+owner.String()+`","year":2024,"month":5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Entries []struct {
			Description string `json:"description"`
			Status      string `json:"status"`
		} `json:"entries"`
		Totals struct {
			Paid int64 `json:"paid"`
			Open int64 `json:"open"`
		} `json:"totals"`
		EmailBody string `json:"email_body"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	require.Len(t, body.Entries, 2)
	assert.Equal(t, "scheduled", body.Entries[1].Status)
	assert.Equal(t, int64(180000), body.Totals.Paid)
	assert.Equal(t, int64(45000), body.Totals.Open)
	assert.Contains(t, body.EmailBody, "Aluguel estúdio | R$ 1.800,00 | Pago")
}

func TestHandler_Download(t *testing.T) {
	srv, owner := newServer(t)

	resp := post(t, srv.URL+"/export/download", `{"owner_id":"`+owner.String()+`","year":2024,"month":5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "extrato_2024-05.zip")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 2)
}

func TestHandler_BadRequests(t *testing.T) {
	type testCase struct {
		name string
		body string
	}

	srv, owner := newServer(t)

	tests := []testCase{
		{name: "NotJSON", body: `month=5`},
		{name: "MissingOwner", body: `{"year":2024,"month":5}`},
		{name: "BadMonth", body: `{"owner_id":"` + owner.String() + `","year":2024,"month":0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, post(t, srv.URL+"/export", tt.body).StatusCode)
			assert.Equal(t, http.StatusBadRequest, post(t, srv.URL+"/export/download", tt.body).StatusCode)
		})
	}
}

package matching_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	matchinghttp "github.com/MrJamesThe3rd/studiobooks/internal/http/matching"
	"github.com/MrJamesThe3rd/studiobooks/internal/matching"
	"github.com/MrJamesThe3rd/studiobooks/internal/matching/store"
)

func TestHandler_LearnThenSuggest(t *testing.T) {
	router := chi.NewRouter()
	router.Route("/aliases", matchinghttp.NewHandler(matching.NewService(store.NewMemory())).Routes)

	srv := httptest.NewServer(router)
	defer srv.Close()

	owner := uuid.NewString()

	resp, err := http.Post(srv.URL+"/aliases", "application/json", strings.NewReader(
		`{"owner_id":"`+owner+`","raw_pattern":"ALUG EST","preferred_description":"Aluguel estúdio"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/aliases", "application/json", strings.NewReader(`{"owner_id":"`+owner+`","raw_pattern":""}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	q := url.Values{"owner_id": {owner}, "raw_description": {"alug est 03/24"}}

	resp, err = http.Get(srv.URL + "/aliases/suggest?" + q.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		PreferredDescription string `json:"preferred_description"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Aluguel estúdio", body.PreferredDescription)

	resp, err = http.Get(srv.URL + "/aliases/suggest?owner_id=nope&raw_description=x")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

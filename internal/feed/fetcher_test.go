package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_FetchJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"price":100}`))
	}))
	defer server.Close()

	fetcher := NewFetcher()
	body, err := fetcher.FetchJSON(context.Background(), server.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":100}`, string(body))
}

func TestFetcher_FetchJSON_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fetcher := NewFetcher()
	_, err := fetcher.FetchJSON(context.Background(), server.URL)
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, FetchErrorHTTP, fetchErr.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, fetchErr.StatusCode)
}

func TestFetcher_FetchJSON_NetworkError(t *testing.T) {
	fetcher := NewFetcher()
	_, err := fetcher.FetchJSON(context.Background(), "http://127.0.0.1:1")

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, FetchErrorNetwork, fetchErr.Kind)
}

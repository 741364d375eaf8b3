package gasoracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoinGeckoProvider_FetchPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "ids=ethereum")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ethereum":{"usd":3123.45}}`))
	}))
	defer srv.Close()

	p := NewCoinGeckoProvider(srv.URL, "")
	prices, err := p.FetchPrices(context.Background(), []string{"ethereum"})
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, "ethereum", prices[0].TokenID)
	assert.Equal(t, "ETH", prices[0].Symbol)
	assert.Equal(t, 3123.45, prices[0].PriceUSD)
}

func TestCoinGeckoProvider_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewCoinGeckoProvider(srv.URL, "")
	_, err := p.FetchPrices(context.Background(), []string{"ethereum"})
	require.Error(t, err)
}

func TestCoinGeckoProvider_EmptyTokenIDs(t *testing.T) {
	p := NewCoinGeckoProvider("", "")
	prices, err := p.FetchPrices(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, prices)
}

package gasoracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// defaultSymbols maps well-known CoinGecko token IDs to ticker symbols, for
// networks that don't set gas_token_symbol explicitly.
var defaultSymbols = map[string]string{
	"ethereum":       "ETH",
	"binancecoin":    "BNB",
	"matic-network":  "MATIC",
	"avalanche-2":    "AVAX",
	"fantom":         "FTM",
}

func symbolFor(tokenID string) string {
	if s, ok := defaultSymbols[tokenID]; ok {
		return s
	}
	return strings.ToUpper(tokenID)
}

// Provider fetches current USD prices for a set of provider-specific token
// IDs. Additional providers implement the same interface, per spec.md §4.3's
// "provider chain" language.
type Provider interface {
	Name() string
	FetchPrices(ctx context.Context, tokenIDs []string) ([]TokenPrice, error)
}

// CoinGeckoProvider is the default Provider, grounded on
// original_source/src/gas_price/providers/coingecko.rs. The teacher has no
// ready-made CoinGecko client, so this is built on the standard library's
// net/http and encoding/json (see DESIGN.md).
type CoinGeckoProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewCoinGeckoProvider(baseURL, apiKey string) *CoinGeckoProvider {
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	return &CoinGeckoProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *CoinGeckoProvider) Name() string { return "coingecko" }

type coinGeckoPriceEntry struct {
	USD float64 `json:"usd"`
}

func (p *CoinGeckoProvider) FetchPrices(ctx context.Context, tokenIDs []string) ([]TokenPrice, error) {
	if len(tokenIDs) == 0 {
		return nil, nil
	}

	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", p.baseURL, strings.Join(tokenIDs, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building coingecko request")
	}
	if p.apiKey != "" {
		req.Header.Set("x-cg-pro-api-key", p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "coingecko request failed")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return nil, errors.New("coingecko rate limit exceeded")
	case http.StatusUnauthorized:
		return nil, errors.New("coingecko API key is invalid")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("coingecko request failed with status %d", resp.StatusCode)
	}

	var parsed map[string]coinGeckoPriceEntry
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrap(err, "decoding coingecko response")
	}

	now := time.Now()
	prices := make([]TokenPrice, 0, len(parsed))
	for tokenID, entry := range parsed {
		prices = append(prices, TokenPrice{
			TokenID:   tokenID,
			Symbol:    symbolFor(tokenID),
			PriceUSD:  entry.USD,
			FetchedAt: now,
		})
	}
	return prices, nil
}

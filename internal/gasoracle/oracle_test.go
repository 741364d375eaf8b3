package gasoracle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ijonas/omikuji/internal/config"
)

type fakeProvider struct {
	name   string
	prices []TokenPrice
	err    error
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) FetchPrices(_ context.Context, _ []string) ([]TokenPrice, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.prices, nil
}

func TestOracle_CalculateUSDCost(t *testing.T) {
	o := &Oracle{
		cfg:            config.GasPriceFeedConfig{CacheTTLSecs: 60},
		cache:          NewPriceCache(time.Minute, false),
		tokenByNetwork: map[string]string{"ethereum-mainnet": "ethereum"},
	}
	o.cache.Insert(TokenPrice{TokenID: "ethereum", PriceUSD: 3000, FetchedAt: time.Now()})

	cost, ok := o.CalculateUSDCost("ethereum-mainnet", 21000, 30e9)
	require.True(t, ok)
	assert.InDelta(t, 21000*30e9/1e18*3000, cost.TotalUSD, 0.0001)
}

func TestOracle_CalculateUSDCost_NoPrice(t *testing.T) {
	o := &Oracle{
		cfg:            config.GasPriceFeedConfig{},
		cache:          NewPriceCache(time.Minute, false),
		tokenByNetwork: map[string]string{},
	}
	_, ok := o.CalculateUSDCost("unknown", 21000, 1e9)
	assert.False(t, ok)
}

func TestOracle_UpdatePrices_AllProvidersFailWithFallbackReturnsNil(t *testing.T) {
	o := &Oracle{
		cfg: config.GasPriceFeedConfig{FallbackToCache: true},
		providers: []Provider{
			&fakeProvider{name: "broken", err: assert.AnError},
		},
		cache:          NewPriceCache(time.Minute, false),
		tokenByNetwork: map[string]string{"net": "ethereum"},
	}

	err := o.updatePrices(context.Background())
	assert.NoError(t, err)
}

func TestOracle_UpdatePrices_NoFallbackPropagatesError(t *testing.T) {
	o := &Oracle{
		cfg: config.GasPriceFeedConfig{FallbackToCache: false},
		providers: []Provider{
			&fakeProvider{name: "broken", err: assert.AnError},
		},
		cache:          NewPriceCache(time.Minute, false),
		tokenByNetwork: map[string]string{"net": "ethereum"},
	}

	err := o.updatePrices(context.Background())
	assert.Error(t, err)
}

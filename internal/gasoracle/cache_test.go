package gasoracle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPriceCache_GetMiss(t *testing.T) {
	c := NewPriceCache(time.Minute, false)
	_, ok := c.Get("ethereum")
	assert.False(t, ok)
}

func TestPriceCache_InsertAndGet(t *testing.T) {
	c := NewPriceCache(time.Minute, false)
	c.Insert(TokenPrice{TokenID: "ethereum", Symbol: "ETH", PriceUSD: 3000, FetchedAt: time.Now()})

	price, ok := c.Get("ethereum")
	assert.True(t, ok)
	assert.Equal(t, 3000.0, price.PriceUSD)
}

func TestPriceCache_ExpiredWithoutFallback(t *testing.T) {
	c := NewPriceCache(time.Millisecond, false)
	c.Insert(TokenPrice{TokenID: "ethereum", PriceUSD: 3000, FetchedAt: time.Now().Add(-time.Hour)})

	_, ok := c.Get("ethereum")
	assert.False(t, ok)
}

func TestPriceCache_ExpiredWithFallback(t *testing.T) {
	c := NewPriceCache(time.Millisecond, true)
	c.Insert(TokenPrice{TokenID: "ethereum", PriceUSD: 3000, FetchedAt: time.Now().Add(-time.Hour)})

	price, ok := c.Get("ethereum")
	assert.True(t, ok)
	assert.Equal(t, 3000.0, price.PriceUSD)
}

func TestPriceCache_ClearExpired(t *testing.T) {
	c := NewPriceCache(time.Minute, false)
	c.Insert(TokenPrice{TokenID: "ethereum", PriceUSD: 3000, FetchedAt: time.Now().Add(-time.Hour)})
	c.Insert(TokenPrice{TokenID: "binancecoin", PriceUSD: 500, FetchedAt: time.Now()})

	c.ClearExpired()
	assert.Equal(t, 1, c.Size())
}

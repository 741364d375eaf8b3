// Package gasoracle keeps a fresh USD price for each network's native token
// and derives transaction cost estimates from it. Grounded on
// original_source/src/gas_price/{cache,manager,models}.rs.
package gasoracle

import "time"

// TokenPrice is the USD price of one native gas token, as last fetched from
// a provider.
type TokenPrice struct {
	TokenID   string
	Symbol    string
	PriceUSD  float64
	FetchedAt time.Time
}

// Cost is the result of CalculateUSDCost.
type Cost struct {
	Network         string
	GasUsed         uint64
	GasPriceWei     float64
	GasTokenPriceUSD float64
	TotalUSD        float64
	Timestamp       time.Time
}

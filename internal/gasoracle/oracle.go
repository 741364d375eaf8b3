package gasoracle

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tevino/abool"

	"github.com/ijonas/omikuji/internal/config"
	"github.com/ijonas/omikuji/internal/logger"
	"github.com/ijonas/omikuji/internal/metrics"
)

// Oracle periodically refreshes USD prices for every network's configured
// gas token and serves them from an in-memory cache. Grounded on
// original_source/src/gas_price/manager.rs's GasPriceManager.
type Oracle struct {
	cfg       config.GasPriceFeedConfig
	providers []Provider
	cache     *PriceCache

	mu            sync.RWMutex
	tokenByNetwork map[string]string

	// ready flips true after the first successful price fetch. Consumers
	// (feed monitors computing USD cost) can check it without taking the
	// cache's lock, matching spec.md §5's single-writer/many-reader model.
	ready *abool.AtomicBool
}

// NewOracle builds an Oracle from config and the network→token-id mapping
// derived from each configured Network's gas_token field.
func NewOracle(cfg config.GasPriceFeedConfig, tokenByNetwork map[string]string) *Oracle {
	cache := NewPriceCache(time.Duration(cfg.CacheTTLSecs)*time.Second, cfg.FallbackToCache)

	var providers []Provider
	switch cfg.Provider {
	case "", "coingecko":
		providers = append(providers, NewCoinGeckoProvider(cfg.CoinGecko.BaseURL, cfg.CoinGecko.APIKey))
	default:
		logger.Warnf("unknown gas price provider %q, falling back to coingecko", cfg.Provider)
		providers = append(providers, NewCoinGeckoProvider(cfg.CoinGecko.BaseURL, cfg.CoinGecko.APIKey))
	}

	return &Oracle{
		cfg:            cfg,
		providers:      providers,
		cache:          cache,
		tokenByNetwork: tokenByNetwork,
		ready:          abool.New(),
	}
}

// Ready reports whether at least one price fetch has ever succeeded.
func (o *Oracle) Ready() bool {
	return o.ready.IsSet()
}

// Run performs an initial fetch, then refreshes on cfg.UpdateFrequencySecs
// until ctx is cancelled. A no-op if gas price feeds are disabled.
func (o *Oracle) Run(ctx context.Context) error {
	if !o.cfg.Enabled {
		logger.Info("gas price feeds are disabled")
		return nil
	}

	logger.Infof("starting gas price oracle with %ds update frequency", o.cfg.UpdateFrequencySecs)
	if err := o.updatePrices(ctx); err != nil {
		logger.Warnw("initial gas price fetch failed", "error", err)
	}

	ticker := time.NewTicker(time.Duration(o.cfg.UpdateFrequencySecs) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := o.updatePrices(ctx); err != nil {
				logger.Warnw("gas price update failed", "error", err)
			}
		}
	}
}

// cacheCleanInterval is independent of cfg.UpdateFrequencySecs: the cleaner
// only needs to run often enough to keep the cache's memory bounded, not in
// lockstep with price refreshes.
const cacheCleanInterval = 5 * time.Minute

// RunCacheCleaner periodically evicts expired cache entries, as its own
// task per spec.md §5's "cache cleaner" component. A no-op if gas price
// feeds are disabled, since nothing ever populates the cache in that case.
func (o *Oracle) RunCacheCleaner(ctx context.Context) error {
	if !o.cfg.Enabled {
		return nil
	}

	ticker := time.NewTicker(cacheCleanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			o.cache.ClearExpired()
		}
	}
}

func (o *Oracle) tokenIDs() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	seen := make(map[string]struct{})
	var ids []string
	for _, id := range o.tokenByNetwork {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func (o *Oracle) updatePrices(ctx context.Context) error {
	ids := o.tokenIDs()
	if len(ids) == 0 {
		logger.Debug("no tokens configured for price fetching")
		return nil
	}

	var lastErr error
	for _, p := range o.providers {
		prices, err := p.FetchPrices(ctx, ids)
		if err != nil {
			logger.Warnw("gas price provider failed", "provider", p.Name(), "error", err)
			lastErr = err
			continue
		}

		o.cache.InsertMany(prices)
		o.recordMetrics(prices)
		o.ready.Set()
		logger.Infof("fetched %d gas token prices from %s", len(prices), p.Name())
		return nil
	}

	if o.cfg.FallbackToCache {
		logger.Warnw("all gas price providers failed, serving cached prices", "error", lastErr)
		return nil
	}
	if lastErr != nil {
		return lastErr
	}
	return errors.New("no gas price providers configured")
}

func (o *Oracle) recordMetrics(prices []TokenPrice) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, price := range prices {
		for network, tokenID := range o.tokenByNetwork {
			if tokenID == price.TokenID {
				metrics.SetGasTokenPrice(network, tokenID, price.PriceUSD)
			}
		}
	}
}

// Price returns the cached price for network's gas token, if present.
func (o *Oracle) Price(network string) (TokenPrice, bool) {
	o.mu.RLock()
	tokenID, ok := o.tokenByNetwork[network]
	o.mu.RUnlock()
	if !ok || tokenID == "" {
		return TokenPrice{}, false
	}
	return o.cache.Get(tokenID)
}

// CalculateUSDCost derives the USD cost of a transaction from gasUsed and
// gasPriceWei, using network's cached gas token price. Per spec.md §4.3:
// cost_usd = gas_used × gas_price_wei / 10^18 × price_usd.
func (o *Oracle) CalculateUSDCost(network string, gasUsed uint64, gasPriceWei float64) (Cost, bool) {
	price, ok := o.Price(network)
	if !ok {
		return Cost{}, false
	}
	gasCostNative := float64(gasUsed) * gasPriceWei / 1e18
	return Cost{
		Network:          network,
		GasUsed:          gasUsed,
		GasPriceWei:      gasPriceWei,
		GasTokenPriceUSD: price.PriceUSD,
		TotalUSD:         gasCostNative * price.PriceUSD,
		Timestamp:        time.Now(),
	}, true
}

package feed

import (
	"context"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	null "gopkg.in/guregu/null.v4"
	"gorm.io/datatypes"

	"github.com/ijonas/omikuji/internal/config"
	"github.com/ijonas/omikuji/internal/contracts"
	"github.com/ijonas/omikuji/internal/gasoracle"
	"github.com/ijonas/omikuji/internal/logger"
	"github.com/ijonas/omikuji/internal/logsink"
	"github.com/ijonas/omikuji/internal/metrics"
	"github.com/ijonas/omikuji/internal/network"
)

// Monitor runs the poll-decide-submit loop for one configured feed
// (spec.md §4.5), as an independent concurrent task.
type Monitor struct {
	cfg      config.Feed
	fetcher  *Fetcher
	registry *network.Registry
	oracle   *gasoracle.Oracle
	sink     logsink.Sink

	resolved contracts.ResolvedFeedConfig

	lastValue     *float64
	lastCheckAt   time.Time
	lastSubmitted *int64 // last_submitted_round, nil until a submission succeeds
}

// NewMonitor builds a Monitor. resolved carries the feed's decimals/min/max,
// either taken directly from config or from PrefetchContractConfig.
func NewMonitor(cfg config.Feed, registry *network.Registry, oracle *gasoracle.Oracle, sink logsink.Sink, resolved contracts.ResolvedFeedConfig) *Monitor {
	return &Monitor{cfg: cfg, fetcher: NewFetcher(), registry: registry, oracle: oracle, sink: sink, resolved: resolved}
}

// Run polls at cfg.CheckFrequency until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.CheckFrequency())
	defer ticker.Stop()

	logger.Infof("starting feed monitor for %q with %s interval", m.cfg.Name, m.cfg.CheckFrequency())

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	start := time.Now()
	defer func() { m.lastCheckAt = start }()

	value, timestamp, err := m.fetchAndExtract(ctx)
	if err != nil {
		m.logError(ctx, err)
		logger.Errorf("datafeed %s: %v", m.cfg.Name, err)
		return
	}

	logger.Infof("datafeed %s: value=%v timestamp=%d", m.cfg.Name, value, timestamp)
	metrics.SetFeedValue(m.cfg.Name, m.cfg.NetworkName, value, time.Unix(int64(timestamp), 0))

	if m.lastValue != nil && IsOutlier(value, *m.lastValue) {
		logger.Warnw("feed value outlier", "feed", m.cfg.Name, "value", value, "last_value", *m.lastValue)
	}
	drift := math.Abs(float64(time.Now().Unix()) - float64(timestamp))
	metrics.UpdateStaleness(m.cfg.Name, m.cfg.NetworkName, "timestamp_drift", drift)

	v := value
	m.lastValue = &v

	if m.sink != nil {
		if err := m.sink.SaveFeedLog(ctx, logsink.FeedLog{
			FeedName:      m.cfg.Name,
			NetworkName:   m.cfg.NetworkName,
			FeedValue:     value,
			FeedTimestamp: int64(timestamp),
		}); err != nil {
			logger.Warnw("failed to save feed log", "feed", m.cfg.Name, "error", err)
		}
	}

	if err := m.checkAndUpdateContract(ctx, value); err != nil {
		logger.Errorf("failed to update contract for datafeed %s: %v", m.cfg.Name, err)
	}
}

func (m *Monitor) fetchAndExtract(ctx context.Context) (float64, uint64, error) {
	body, err := m.fetcher.FetchJSON(ctx, m.cfg.FeedURL)
	if err != nil {
		return 0, 0, err
	}
	return ExtractFeedData(body, m.cfg.FeedJSONPath, m.cfg.FeedJSONPathTimestamp)
}

func (m *Monitor) logError(ctx context.Context, err error) {
	if m.sink == nil {
		return
	}

	row := logsink.FeedLog{FeedName: m.cfg.Name, NetworkName: m.cfg.NetworkName, NetworkError: true}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) && fetchErr.Kind == FetchErrorHTTP {
		row.ErrorStatusCode = null.IntFrom(int64(fetchErr.StatusCode))
		row.NetworkError = false
	}
	if err := m.sink.SaveFeedLog(ctx, row); err != nil {
		logger.Warnw("failed to save feed error log", "feed", m.cfg.Name, "error", err)
	}
}

func (m *Monitor) checkAndUpdateContract(ctx context.Context, value float64) error {
	client, err := m.registry.Provider(m.cfg.NetworkName)
	if err != nil {
		return err
	}
	address := common.HexToAddress(m.cfg.ContractAddress)
	codec := contracts.NewCodec(client, address, m.cfg.NetworkName, m.cfg.Name)
	agg := contracts.NewFluxAggregator(codec)

	onChainTimestamp, err := agg.LatestTimestamp(ctx)
	if err != nil {
		return errors.Wrap(err, "reading latestTimestamp")
	}
	onChainAnswer, err := agg.LatestAnswer(ctx)
	if err != nil {
		return errors.Wrap(err, "reading latestAnswer")
	}
	onChainRound, err := agg.LatestRound(ctx)
	if err != nil {
		return errors.Wrap(err, "reading latestRound")
	}

	scale := decimal.New(1, int32(m.resolved.Decimals))
	onChainValue, _ := decimal.NewFromBigInt(onChainAnswer, 0).Div(scale).Float64()
	metrics.SetContractValue(m.cfg.Name, m.cfg.NetworkName, onChainValue, onChainRound.Uint64())
	metrics.UpdateDeviation(m.cfg.Name, m.cfg.NetworkName, value, onChainValue)

	secondsSince := uint64(0)
	if now := time.Now().Unix(); now > onChainTimestamp.Int64() {
		secondsSince = uint64(now - onChainTimestamp.Int64())
	}

	shouldUpdate, reason := DecideUpdate(secondsSince, m.cfg.MinUpdateFrequencySecs, value, onChainValue, m.cfg.DeviationThresholdPct)
	if !shouldUpdate {
		logger.Debugf("no update needed for datafeed %s - neither time nor deviation thresholds met", m.cfg.Name)
		return nil
	}
	logger.Infof("update triggered for datafeed %s due to %s", m.cfg.Name, reason)

	signer, err := m.registry.Signer(m.cfg.NetworkName)
	if err != nil {
		return errors.Wrap(err, "no signer available")
	}
	networkCfg, err := m.registry.NetworkConfig(m.cfg.NetworkName)
	if err != nil {
		return err
	}

	adapter := contracts.NewAdapter(client, signer, networkCfg, m.oracle)
	observed := decimal.NewFromFloat(value)
	submission, round, err := contracts.SubmitFeedValue(ctx, adapter, agg, m.cfg.Name, observed, m.resolved.MinValue, m.resolved.MaxValue)
	if err != nil {
		m.logSubmissionFailure(ctx, networkCfg.TransactionType, err)
		return errors.Wrap(err, "submitting feed value")
	}

	roundValue := round.Int64()
	m.lastSubmitted = &roundValue
	if m.sink != nil {
		receipt := submission.Receipt
		totalCostWei := "0"
		if receipt.EffectiveGasPrice != nil {
			totalCostWei = new(big.Int).Mul(receipt.EffectiveGasPrice, new(big.Int).SetUint64(receipt.GasUsed)).String()
		}
		gasPriceGwei := submission.GasPriceGwei
		if gasPriceGwei == 0 {
			gasPriceGwei = submission.MaxFeeGwei
		}

		row := logsink.TransactionLog{
			TxHash:            receipt.TxHash.Hex(),
			FeedName:          m.cfg.Name,
			NetworkName:       m.cfg.NetworkName,
			GasLimit:          int64(submission.GasLimit),
			GasUsed:           int64(receipt.GasUsed),
			GasPriceGwei:      gasPriceGwei,
			TotalCostWei:      totalCostWei,
			EfficiencyPercent: submission.EfficiencyPercent,
			TxType:            networkCfg.TransactionType,
			Status:            "success",
			BlockNumber:       receipt.BlockNumber.Int64(),
			RetryMetadata: datatypes.JSONMap{
				"attempts":          submission.Attempts,
				"gas_price_gwei":    submission.GasPriceGwei,
				"max_fee_gwei":      submission.MaxFeeGwei,
				"priority_fee_gwei": submission.PriorityFeeGwei,
			},
		}
		if submission.MaxFeeGwei > 0 {
			row.MaxFeePerGasGwei = null.FloatFrom(submission.MaxFeeGwei)
		}
		if submission.PriorityFeeGwei > 0 {
			row.MaxPriorityFeePerGasGwei = null.FloatFrom(submission.PriorityFeeGwei)
		}
		if err := m.sink.SaveTransactionLog(ctx, row); err != nil {
			logger.Warnw("failed to save transaction log", "feed", m.cfg.Name, "error", err)
		}
	}
	return nil
}

// logSubmissionFailure records a transaction attempt that never produced a
// confirmed receipt (reverted, or every fee-bump retry exhausted), so the
// audit trail isn't silent about attempts that cost gas but never landed.
func (m *Monitor) logSubmissionFailure(ctx context.Context, txType string, submitErr error) {
	if m.sink == nil {
		return
	}
	row := logsink.TransactionLog{
		FeedName:      m.cfg.Name,
		NetworkName:   m.cfg.NetworkName,
		TxType:        txType,
		Status:        "failed",
		ErrorMessage:  null.StringFrom(submitErr.Error()),
		RetryMetadata: datatypes.JSONMap{},
	}
	var reverted *contracts.Reverted
	if errors.As(submitErr, &reverted) {
		row.TxHash = reverted.TxHash.Hex()
	}
	if err := m.sink.SaveTransactionLog(ctx, row); err != nil {
		logger.Warnw("failed to save transaction failure log", "feed", m.cfg.Name, "error", err)
	}
}

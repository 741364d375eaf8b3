// Package metrics exposes Prometheus collectors for every component named in
// spec.md §8: network/RPC, feed values, contract writes, gas token price, and
// scheduled-task outcomes. Collectors are package-level so every caller shares
// one registry, mirroring original_source/src/metrics's lazy_static globals.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ijonas/omikuji/internal/logger"
)

const namespace = "omikuji"

var (
	rpcRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_requests_total",
		Help:      "Total RPC calls by network, method and outcome",
	}, []string{"network", "method", "success"})

	rpcErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_errors_total",
		Help:      "RPC call failures classified by error type",
	}, []string{"network", "method", "error_type"})

	rpcDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rpc_duration_seconds",
		Help:      "RPC call duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"network", "method"})

	chainHead = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "chain_head_block",
		Help:      "Latest observed block number per network",
	}, []string{"network"})

	endpointHealthy = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rpc_endpoint_healthy",
		Help:      "1 if the last RPC probe for a network succeeded, else 0",
	}, []string{"network"})

	walletBalanceWei = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "wallet_balance_wei",
		Help:      "Wallet balance in wei",
	}, []string{"network", "address"})

	feedValue = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "feed_value",
		Help:      "Latest value from external feed source",
	}, []string{"feed", "network"})

	feedLastUpdateTimestamp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "feed_last_update_timestamp",
		Help:      "Unix timestamp of last feed update",
	}, []string{"feed", "network"})

	contractValue = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "contract_value",
		Help:      "Latest value from the on-chain contract",
	}, []string{"feed", "network"})

	contractRound = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "contract_round",
		Help:      "Latest round number submitted to the contract",
	}, []string{"feed", "network"})

	feedDeviationPercent = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "feed_deviation_percent",
		Help:      "Absolute deviation percentage between feed and contract values",
	}, []string{"feed", "network"})

	dataStalenessSeconds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "data_staleness_seconds",
		Help:      "Seconds since last successful data update",
	}, []string{"feed", "network", "data_type"})

	gasTokenPriceUSD = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "gas_token_price_usd",
		Help:      "Latest USD price of a network's native gas token",
	}, []string{"network", "token_id"})

	transactionCostUSD = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "transaction_cost_usd",
		Help:      "Computed USD cost of a submitted transaction",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"feed", "network"})

	transactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transactions_total",
		Help:      "Contract submissions by feed, network and outcome",
	}, []string{"feed", "network", "success"})

	datasourceRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "datasource_requests_total",
		Help:      "HTTP requests to feed data sources by outcome",
	}, []string{"feed", "success"})

	datasourceErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "datasource_errors_total",
		Help:      "Feed fetch failures classified by error kind",
	}, []string{"feed", "error_kind"})

	scheduledTaskOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scheduled_task_runs_total",
		Help:      "Scheduled task executions by outcome",
	}, []string{"task", "network", "outcome"})
)

// RPCErrorType classifies an RPC failure per spec.md §4.2.
type RPCErrorType string

const (
	RPCErrorTimeout    RPCErrorType = "timeout"
	RPCErrorConnection RPCErrorType = "connection"
	RPCErrorDNS        RPCErrorType = "dns"
	RPCErrorOther      RPCErrorType = "other"
)

// RecordRPCCall times an RPC invocation and records its outcome. Callers pass
// a zero errType on success.
func RecordRPCCall(network, method string, success bool, duration time.Duration, errType RPCErrorType) {
	rpcRequestsTotal.WithLabelValues(network, method, boolLabel(success)).Inc()
	rpcDurationSeconds.WithLabelValues(network, method).Observe(duration.Seconds())
	if !success {
		rpcErrorsTotal.WithLabelValues(network, method, string(errType)).Inc()
	}
}

// UpdateChainHead records the latest observed block number for a network.
func UpdateChainHead(network string, blockNumber uint64) {
	chainHead.WithLabelValues(network).Set(float64(blockNumber))
}

// SetEndpointHealthy records whether the last RPC probe for a network succeeded.
func SetEndpointHealthy(network string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	endpointHealthy.WithLabelValues(network).Set(v)
}

// SetWalletBalance records a wallet's native-token balance in wei.
func SetWalletBalance(network, address string, balanceWei float64) {
	walletBalanceWei.WithLabelValues(network, address).Set(balanceWei)
}

// SetFeedValue records the latest value read from an external data source.
func SetFeedValue(feed, network string, value float64, timestamp time.Time) {
	feedValue.WithLabelValues(feed, network).Set(value)
	feedLastUpdateTimestamp.WithLabelValues(feed, network).Set(float64(timestamp.Unix()))
	dataStalenessSeconds.WithLabelValues(feed, network, "feed").Set(0)
}

// SetContractValue records the latest on-chain answer and round.
func SetContractValue(feed, network string, value float64, round uint64) {
	contractValue.WithLabelValues(feed, network).Set(value)
	contractRound.WithLabelValues(feed, network).Set(float64(round))
	dataStalenessSeconds.WithLabelValues(feed, network, "contract").Set(0)
}

// UpdateDeviation computes and records the feed/contract deviation percentage.
func UpdateDeviation(feed, network string, feedVal, contractVal float64) {
	if contractVal == 0 {
		logger.Warnw("cannot compute deviation: contract value is zero", "feed", feed, "network", network)
		return
	}
	deviation := absFloat(feedVal-contractVal) / absFloat(contractVal) * 100
	feedDeviationPercent.WithLabelValues(feed, network).Set(deviation)
}

// UpdateStaleness records seconds elapsed since the last update of a given
// data_type ("feed" or "contract").
func UpdateStaleness(feed, network, dataType string, seconds float64) {
	dataStalenessSeconds.WithLabelValues(feed, network, dataType).Set(seconds)
}

// SetGasTokenPrice records the latest USD price of a network's native token.
func SetGasTokenPrice(network, tokenID string, priceUSD float64) {
	gasTokenPriceUSD.WithLabelValues(network, tokenID).Set(priceUSD)
}

// RecordTransaction records a contract submission outcome and its USD cost.
func RecordTransaction(feed, network string, success bool, costUSD float64) {
	transactionsTotal.WithLabelValues(feed, network, boolLabel(success)).Inc()
	if success {
		transactionCostUSD.WithLabelValues(feed, network).Observe(costUSD)
	}
}

// RecordDatasourceRequest records a feed HTTP fetch outcome.
func RecordDatasourceRequest(feed string, success bool, errKind string) {
	datasourceRequestsTotal.WithLabelValues(feed, boolLabel(success)).Inc()
	if !success {
		datasourceErrorsTotal.WithLabelValues(feed, errKind).Inc()
	}
}

// RecordScheduledTaskOutcome records a cron task execution.
func RecordScheduledTaskOutcome(task, network, outcome string) {
	scheduledTaskOutcomes.WithLabelValues(task, network, outcome).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// Server serves the /metrics endpoint over plain net/http, per spec.md §6 —
// the teacher's gin-based API stack is out of scope (see DESIGN.md).
type Server struct {
	httpServer *http.Server
}

func NewServer(port uint16) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{httpServer: &http.Server{
		Addr:    addrForPort(port),
		Handler: mux,
	}}
}

func addrForPort(port uint16) string {
	if port == 0 {
		port = 9090
	}
	return ":" + strconv.Itoa(int(port))
}

// Run starts the metrics HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("metrics server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

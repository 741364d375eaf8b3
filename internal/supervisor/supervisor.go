// Package supervisor wires every other package into the startup/shutdown
// sequence of spec.md §4.7: load config, bring up the network registry and
// secret store, optionally open a LogSink, then spawn one concurrent task
// per feed monitor, the scheduled task runner, the gas oracle and its cache
// cleaner, the wallet balance monitor and the metrics server, and wait for a
// termination signal. Grounded on the teacher's core/services lifecycle
// style (Start/Close, aggregated non-fatal errors via multierr) generalized
// from a DB-backed service registry to Omikuji's static task set.
package supervisor

import (
	"context"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/ijonas/omikuji/internal/config"
	"github.com/ijonas/omikuji/internal/contracts"
	"github.com/ijonas/omikuji/internal/feed"
	"github.com/ijonas/omikuji/internal/gasoracle"
	"github.com/ijonas/omikuji/internal/logger"
	"github.com/ijonas/omikuji/internal/logsink"
	"github.com/ijonas/omikuji/internal/metrics"
	"github.com/ijonas/omikuji/internal/network"
	"github.com/ijonas/omikuji/internal/scheduler"
	"github.com/ijonas/omikuji/internal/secrets"
)

// Run loads configPath, brings up every component in the order spec.md
// §4.7 specifies, and blocks until ctx is cancelled or a termination signal
// arrives. It returns only once every background task has stopped.
func Run(ctx context.Context, configPath, privateKeyEnvVar string) error {
	// Step 1: load/validate config. This and the scheduled-task validation
	// and start (step 7) are the fatal steps — every other step degrades
	// gracefully instead of aborting the process.
	cfg, err := config.Load(configPath)
	if err != nil {
		return errors.Wrap(err, "loading configuration")
	}
	logger.Infof("loaded configuration: %d network(s), %d datafeed(s), %d scheduled task(s)",
		len(cfg.Networks), len(cfg.Datafeeds), len(cfg.ScheduledTasks))

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := BuildSecretStore(cfg.KeyStorage, privateKeyEnvVar)
	if err != nil {
		// A misconfigured backend leaves every network read-only; this is
		// reported but not fatal, matching spec.md §4.7 step 3's framing of
		// key loading as per-network non-fatal.
		logger.Warnw("failed to construct secret store, networks will be read-only", "error", err)
		store = secrets.NewEnvStore(privateKeyEnvVar)
	}

	// Step 2+3: registry dials every network and loads signers non-fatally.
	registry, err := network.Build(ctx, cfg.Networks, store, privateKeyEnvVar)
	if err != nil {
		logger.Warnw("one or more networks failed to connect or load a signer", "error", err)
	}
	defer registry.Close()

	// Step 4: LogSink is opaque persistence, gated on DATABASE_URL per
	// spec.md §6's environment variable table. Any failure here disables
	// persistence rather than aborting startup.
	sink := openLogSink()
	defer sink.Close()

	tokenByNetwork := make(map[string]string, len(cfg.Networks))
	for _, n := range cfg.Networks {
		tokenByNetwork[n.Name] = n.GasToken
	}
	oracle := gasoracle.NewOracle(cfg.GasPriceFeeds, tokenByNetwork)

	knownNetworks := make(map[string]bool, len(cfg.Networks))
	for _, n := range cfg.Networks {
		knownNetworks[n.Name] = true
	}

	// Step 7: a single invalid scheduled task aborts startup.
	if err := scheduler.Validate(cfg.ScheduledTasks, knownNetworks); err != nil {
		return errors.Wrap(err, "validating scheduled tasks")
	}

	group, gctx := errgroup.WithContext(ctx)

	// Step 5: gas oracle updater + its cache cleaner.
	group.Go(func() error { return oracle.Run(gctx) })
	group.Go(func() error { return oracle.RunCacheCleaner(gctx) })

	// Wallet balance monitor: spec.md §5 lists it alongside the other
	// background tasks though §4.7's numbered steps don't call it out
	// separately; it shares the registry like every other reader.
	balanceMonitor := network.NewBalanceMonitor(registry)
	group.Go(func() error { return balanceMonitor.Run(gctx) })

	// Step 6: one FeedMonitor per feed, with contract-config prefetch where
	// requested. A feed whose prefetch fails is skipped and reported; the
	// rest continue (spec.md §4.4.4).
	for _, feedCfg := range cfg.Datafeeds {
		feedCfg := feedCfg
		monitor, err := buildMonitor(gctx, feedCfg, registry, oracle, sink)
		if err != nil {
			logger.Errorw("skipping datafeed, could not resolve contract configuration", "feed", feedCfg.Name, "error", err)
			continue
		}
		group.Go(func() error { return monitor.Run(gctx) })
	}

	// Step 7 (continued): start the scheduler now that every task validated.
	taskRunner := scheduler.NewRunner(registry, oracle)
	if err := taskRunner.Start(gctx, cfg.ScheduledTasks); err != nil {
		return errors.Wrap(err, "starting scheduled task runner")
	}

	// LogSink row-reaping cron job, gated by database_cleanup.enabled.
	cleanupJob := logsink.NewCleanupJob(sink, cfg.Datafeeds)
	if err := cleanupJob.Start(gctx, cfg.DatabaseCleanup); err != nil {
		logger.Warnw("failed to start log cleanup job", "error", err)
	}

	// Step 8: metrics server.
	if cfg.Metrics.Enabled {
		server := metrics.NewServer(cfg.Metrics.Port)
		group.Go(func() error { return server.Run(gctx) })
	}

	// Step 9: wait for termination signal, then unwind in reverse order.
	<-gctx.Done()
	logger.Info("shutdown signal received, stopping background tasks")
	taskRunner.Stop()
	cleanupJob.Stop()

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// SecretConfigFromKeyStorage translates config.KeyStorageConfig into the
// backend-agnostic secrets.Config, so the supervisor and the `key` CLI
// subcommands (which may need to open two backends at once, for migration)
// never duplicate the field-by-field mapping.
func SecretConfigFromKeyStorage(cfg config.KeyStorageConfig, privateKeyEnvVar string) secrets.Config {
	return secrets.Config{
		KeyringService:   cfg.Keyring.Service,
		PrivateKeyEnvVar: privateKeyEnvVar,
		Vault: secrets.VaultConfig{
			URL:        cfg.Vault.URL,
			MountPath:  cfg.Vault.MountPath,
			PathPrefix: cfg.Vault.PathPrefix,
			AuthMethod: cfg.Vault.AuthMethod,
			Token:      cfg.Vault.Token,
			RoleID:     cfg.Vault.RoleID,
			SecretID:   cfg.Vault.SecretID,
			CacheTTL:   time.Duration(cfg.Vault.CacheTTLSecs) * time.Second,
		},
		AWS: secrets.AWSConfig{
			Region:   cfg.AWSSecrets.Region,
			Prefix:   cfg.AWSSecrets.Prefix,
			CacheTTL: time.Duration(cfg.AWSSecrets.CacheTTLSecs) * time.Second,
		},
	}
}

// BuildSecretStore constructs the Store named by cfg.StorageType.
func BuildSecretStore(cfg config.KeyStorageConfig, privateKeyEnvVar string) (secrets.Store, error) {
	return secrets.New(cfg.StorageType, SecretConfigFromKeyStorage(cfg, privateKeyEnvVar))
}

// openLogSink opens the LogSink backend named by DATABASE_URL, per spec.md
// §6: persistence is opt-in and its absence is not an error. A connection or
// migration failure degrades to logsink.Noop rather than aborting startup.
func openLogSink() logsink.Sink {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Info("DATABASE_URL not set, log persistence disabled")
		return logsink.Noop{}
	}

	sink, err := logsink.Open(dsn)
	if err != nil {
		logger.Warnw("failed to open log sink, persistence disabled", "error", err)
		return logsink.Noop{}
	}
	logger.Info("log sink opened, persistence enabled")
	return sink
}

// buildMonitor resolves a feed's contract-derived parameters — either taken
// directly from YAML or prefetched from the contract — and constructs its
// Monitor. Per spec.md §4.4.4, a prefetch failure must not take down the
// other feeds, so the caller is expected to skip this feed on error.
func buildMonitor(ctx context.Context, feedCfg config.Feed, registry *network.Registry, oracle *gasoracle.Oracle, sink logsink.Sink) (*feed.Monitor, error) {
	resolved, err := resolveFeedConfig(ctx, feedCfg, registry)
	if err != nil {
		return nil, err
	}
	return feed.NewMonitor(feedCfg, registry, oracle, sink, resolved), nil
}

func resolveFeedConfig(ctx context.Context, feedCfg config.Feed, registry *network.Registry) (contracts.ResolvedFeedConfig, error) {
	if !feedCfg.ReadContractConfig {
		return staticFeedConfig(feedCfg)
	}

	client, err := registry.Provider(feedCfg.NetworkName)
	if err != nil {
		return contracts.ResolvedFeedConfig{}, err
	}
	address := common.HexToAddress(feedCfg.ContractAddress)
	codec := contracts.NewCodec(client, address, feedCfg.NetworkName, feedCfg.Name)
	agg := contracts.NewFluxAggregator(codec)
	return contracts.PrefetchContractConfig(ctx, agg)
}

func staticFeedConfig(feedCfg config.Feed) (contracts.ResolvedFeedConfig, error) {
	if feedCfg.Decimals == nil || feedCfg.MinValue == nil || feedCfg.MaxValue == nil {
		return contracts.ResolvedFeedConfig{}, errors.Errorf("datafeed %q is missing decimals/min_value/max_value", feedCfg.Name)
	}
	min, ok := new(big.Int).SetString(*feedCfg.MinValue, 10)
	if !ok {
		return contracts.ResolvedFeedConfig{}, errors.Errorf("datafeed %q has invalid min_value %q", feedCfg.Name, *feedCfg.MinValue)
	}
	max, ok := new(big.Int).SetString(*feedCfg.MaxValue, 10)
	if !ok {
		return contracts.ResolvedFeedConfig{}, errors.Errorf("datafeed %q has invalid max_value %q", feedCfg.Name, *feedCfg.MaxValue)
	}
	return contracts.ResolvedFeedConfig{Decimals: *feedCfg.Decimals, MinValue: min, MaxValue: max}, nil
}

// Package config decodes and validates the Omikuji YAML configuration file into
// the static, immutable-after-load structures consumed by every other package.
package config

import "time"

// OmikujiConfig is the top-level decoded configuration document.
type OmikujiConfig struct {
	Networks         []Network       `yaml:"networks" validate:"required,min=1,dive"`
	Datafeeds        []Feed          `yaml:"datafeeds" validate:"dive"`
	DatabaseCleanup  DatabaseCleanup `yaml:"database_cleanup"`
	KeyStorage       KeyStorageConfig `yaml:"key_storage"`
	Metrics          MetricsConfig   `yaml:"metrics"`
	GasPriceFeeds    GasPriceFeedConfig `yaml:"gas_price_feeds"`
	ScheduledTasks   []ScheduledTask `yaml:"scheduled_tasks" validate:"dive"`
}

// Network is one configured blockchain endpoint. Immutable after startup.
type Network struct {
	Name            string   `yaml:"name" validate:"required"`
	RPCURL          string   `yaml:"rpc_url" validate:"required,url"`
	TransactionType string   `yaml:"transaction_type" validate:"required,oneof=legacy eip1559"`
	GasConfig       GasPolicy `yaml:"gas_config"`
	GasToken        string   `yaml:"gas_token"`
	GasTokenSymbol  string   `yaml:"gas_token_symbol"`
}

// FeeBumping controls fee-bump retry behavior for unconfirmed transactions.
type FeeBumping struct {
	Enabled            bool    `yaml:"enabled"`
	MaxRetries         int     `yaml:"max_retries"`
	InitialWaitSeconds int     `yaml:"initial_wait_seconds"`
	FeeIncreasePercent float64 `yaml:"fee_increase_percent"`
}

// GasPolicy is the optional manual gas override block shared by networks,
// feeds (via their network) and per-task overrides.
type GasPolicy struct {
	GasLimit          *uint64    `yaml:"gas_limit"`
	GasPriceGwei      *float64   `yaml:"gas_price_gwei"`
	MaxFeeGwei        *float64   `yaml:"max_fee_gwei"`
	PriorityFeeGwei   *float64   `yaml:"priority_fee_gwei"`
	Multiplier        float64    `yaml:"multiplier"`
	FeeBumping        FeeBumping `yaml:"fee_bumping"`
}

// Feed is one configured datafeed/contract pairing.
type Feed struct {
	Name                   string   `yaml:"name" validate:"required"`
	NetworkName            string   `yaml:"networks" validate:"required"`
	CheckFrequencySeconds  uint64   `yaml:"check_frequency" validate:"min=1"`
	ContractAddress        string   `yaml:"contract_address" validate:"required,len=42"`
	ContractType           string   `yaml:"contract_type" validate:"required,oneof=fluxmon"`
	ReadContractConfig     bool     `yaml:"read_contract_config"`
	MinUpdateFrequencySecs uint64   `yaml:"minimum_update_frequency" validate:"min=1"`
	DeviationThresholdPct  float64  `yaml:"deviation_threshold_pct" validate:"min=0,max=100"`
	FeedURL                string   `yaml:"feed_url" validate:"required,url"`
	FeedJSONPath           string   `yaml:"feed_json_path" validate:"required"`
	FeedJSONPathTimestamp  string   `yaml:"feed_json_path_timestamp"`
	Decimals               *uint8   `yaml:"decimals"`
	MinValue               *string  `yaml:"min_value"`
	MaxValue               *string  `yaml:"max_value"`
	DataRetentionDays      uint32   `yaml:"data_retention_days"`
}

// DatabaseCleanup gates and schedules the LogSink row-reaping cron job.
type DatabaseCleanup struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// KeyStorageConfig selects and configures one SecretStore backend.
type KeyStorageConfig struct {
	StorageType string            `yaml:"storage_type" validate:"omitempty,oneof=env keyring vault aws_secrets"`
	Keyring     KeyringConfig     `yaml:"keyring"`
	Vault       VaultConfig       `yaml:"vault"`
	AWSSecrets  AWSSecretsConfig  `yaml:"aws_secrets"`
}

type KeyringConfig struct {
	Service string `yaml:"service"`
}

type VaultConfig struct {
	URL            string `yaml:"url"`
	MountPath      string `yaml:"mount_path"`
	PathPrefix     string `yaml:"path_prefix"`
	AuthMethod     string `yaml:"auth_method" validate:"omitempty,oneof=token approle"`
	Token          string `yaml:"token"`
	RoleID         string `yaml:"role_id"`
	SecretID       string `yaml:"secret_id"`
	CacheTTLSecs   uint64 `yaml:"cache_ttl_seconds"`
}

type AWSSecretsConfig struct {
	Region       string `yaml:"region"`
	Prefix       string `yaml:"prefix"`
	CacheTTLSecs uint64 `yaml:"cache_ttl_seconds"`
}

// MetricsConfig gates the Prometheus exporter.
type MetricsConfig struct {
	Enabled         bool             `yaml:"enabled"`
	Port            uint16           `yaml:"port"`
	DetailedMetrics bool             `yaml:"detailed_metrics"`
	Categories      MetricCategories `yaml:"categories"`
}

type MetricCategories struct {
	Datasource      bool `yaml:"datasource"`
	UpdateDecisions bool `yaml:"update_decisions"`
	Network         bool `yaml:"network"`
	Contract        bool `yaml:"contract"`
	Quality         bool `yaml:"quality"`
	Economic        bool `yaml:"economic"`
	Performance     bool `yaml:"performance"`
	Config          bool `yaml:"config"`
	Alerts          bool `yaml:"alerts"`
}

// GasPriceFeedConfig configures the GasOracle.
type GasPriceFeedConfig struct {
	Enabled            bool             `yaml:"enabled"`
	UpdateFrequencySecs uint64          `yaml:"update_frequency"`
	Provider           string           `yaml:"provider"`
	CoinGecko          CoinGeckoConfig  `yaml:"coingecko"`
	FallbackToCache    bool             `yaml:"fallback_to_cache"`
	PersistToDatabase  bool             `yaml:"persist_to_database"`
	CacheTTLSecs       uint64           `yaml:"cache_ttl"`
}

type CoinGeckoConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// ScheduledTask is one cron-driven on-chain call.
type ScheduledTask struct {
	Name           string          `yaml:"name" validate:"required"`
	Network        string          `yaml:"network" validate:"required"`
	Schedule       string          `yaml:"schedule" validate:"required"`
	CheckCondition *CheckCondition `yaml:"check_condition"`
	TargetFunction TargetFunction  `yaml:"target_function" validate:"required"`
	GasConfig      *GasPolicy      `yaml:"gas_config"`
}

// CheckCondition is the sum type {Property, Function}. Exactly one of
// Property/Function-specific fields is populated; IsFunction reports which.
type CheckCondition struct {
	ContractAddress string      `yaml:"contract_address" validate:"required,len=42"`
	Property        string      `yaml:"property"`
	Function        string      `yaml:"function"`
	ExpectedValue   interface{} `yaml:"expected_value"`
}

// IsFunction reports whether this condition calls a named function rather
// than reading a bare property getter.
func (c CheckCondition) IsFunction() bool { return c.Function != "" }

// TargetFunction is the on-chain call a scheduled task performs.
type TargetFunction struct {
	ContractAddress string      `yaml:"contract_address" validate:"required,len=42"`
	Function        string      `yaml:"function" validate:"required"`
	Parameters      []Parameter `yaml:"parameters"`
}

// Parameter is one ordered, EVM-type-tagged argument to a TargetFunction.
type Parameter struct {
	Value interface{} `yaml:"value"`
	Type  string      `yaml:"type" validate:"required"`
}

// defaultMultiplier and friends mirror original_source/src/config/builders.rs's
// DatafeedBuilder defaults, applied post-decode so a minimal YAML document still
// produces a runnable configuration.
const (
	defaultMultiplier         = 1.0
	defaultMetricsPort        = 9090
	defaultGasPriceTTLSecs    = 300
	defaultGasUpdateFreqSecs  = 300
	defaultVaultCacheTTLSecs  = 60
	defaultAWSCacheTTLSecs    = 60
)

// ApplyDefaults fills in zero-valued optional fields the way the Rust
// builders' `::new()` constructors seeded sensible defaults.
func (c *OmikujiConfig) ApplyDefaults() {
	for i := range c.Networks {
		c.Networks[i].GasConfig.applyDefaults()
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = defaultMetricsPort
	}
	if c.GasPriceFeeds.Provider == "" {
		c.GasPriceFeeds.Provider = "coingecko"
	}
	if c.GasPriceFeeds.CacheTTLSecs == 0 {
		c.GasPriceFeeds.CacheTTLSecs = defaultGasPriceTTLSecs
	}
	if c.GasPriceFeeds.UpdateFrequencySecs == 0 {
		c.GasPriceFeeds.UpdateFrequencySecs = defaultGasUpdateFreqSecs
	}
	if c.KeyStorage.StorageType == "" {
		c.KeyStorage.StorageType = "env"
	}
	if c.KeyStorage.Keyring.Service == "" {
		c.KeyStorage.Keyring.Service = "omikuji"
	}
	if c.KeyStorage.Vault.CacheTTLSecs == 0 {
		c.KeyStorage.Vault.CacheTTLSecs = defaultVaultCacheTTLSecs
	}
	if c.KeyStorage.AWSSecrets.CacheTTLSecs == 0 {
		c.KeyStorage.AWSSecrets.CacheTTLSecs = defaultAWSCacheTTLSecs
	}
	for i := range c.Datafeeds {
		if c.Datafeeds[i].DataRetentionDays == 0 {
			c.Datafeeds[i].DataRetentionDays = 7
		}
	}
}

func (g *GasPolicy) applyDefaults() {
	if g.Multiplier == 0 {
		g.Multiplier = defaultMultiplier
	}
	if g.FeeBumping.MaxRetries == 0 {
		g.FeeBumping.MaxRetries = 3
	}
	if g.FeeBumping.InitialWaitSeconds == 0 {
		g.FeeBumping.InitialWaitSeconds = 30
	}
	if g.FeeBumping.FeeIncreasePercent == 0 {
		g.FeeBumping.FeeIncreasePercent = 10
	}
}

// CheckFrequency returns the feed's poll interval as a time.Duration.
func (f Feed) CheckFrequency() time.Duration {
	return time.Duration(f.CheckFrequencySeconds) * time.Second
}

// MinUpdateFrequency returns the feed's heartbeat interval as a time.Duration.
func (f Feed) MinUpdateFrequency() time.Duration {
	return time.Duration(f.MinUpdateFrequencySecs) * time.Second
}

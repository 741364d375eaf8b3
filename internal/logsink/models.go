// Package logsink persists feed observations and submitted transactions to
// Postgres for audit/history, per spec.md's LogSink backend. Persistence is
// optional: every write path degrades to a no-op when no backend is
// configured or migrations fail at startup (spec.md §4.7 step 4).
package logsink

import (
	"time"

	null "gopkg.in/guregu/null.v4"
	"gorm.io/datatypes"
)

// FeedLog is one row of the feed_logs table: a single poll of a datafeed,
// success or failure.
type FeedLog struct {
	ID              int32     `gorm:"primaryKey"`
	FeedName        string    `gorm:"column:feed_name;index:idx_feed_logs_feed_network"`
	NetworkName     string    `gorm:"column:network_name;index:idx_feed_logs_feed_network"`
	FeedValue       float64   `gorm:"column:feed_value"`
	FeedTimestamp   int64     `gorm:"column:feed_timestamp"`
	ErrorStatusCode null.Int  `gorm:"column:error_status_code"`
	NetworkError    bool      `gorm:"column:network_error"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (FeedLog) TableName() string { return "feed_logs" }

// TransactionLog is one row of the transaction_logs table: a contract write
// the submission state machine attempted, successful or not. RetryMetadata
// holds the fee-bump bookkeeping (attempt count, gas/priority fees actually
// used) that doesn't warrant its own columns, per spec.md §4.4.2's fee-bump
// retry loop.
type TransactionLog struct {
	ID                       int32          `gorm:"primaryKey"`
	TxHash                   string         `gorm:"column:tx_hash"`
	FeedName                 string         `gorm:"column:feed_name;index:idx_tx_logs_feed_network"`
	NetworkName              string         `gorm:"column:network_name;index:idx_tx_logs_feed_network"`
	GasLimit                 int64          `gorm:"column:gas_limit"`
	GasUsed                  int64          `gorm:"column:gas_used"`
	GasPriceGwei             float64        `gorm:"column:gas_price_gwei"`
	TotalCostWei             string         `gorm:"column:total_cost_wei"`
	EfficiencyPercent        float64        `gorm:"column:efficiency_percent"`
	TxType                   string         `gorm:"column:tx_type"`
	Status                   string         `gorm:"column:status"`
	BlockNumber              int64          `gorm:"column:block_number"`
	ErrorMessage             null.String    `gorm:"column:error_message"`
	MaxFeePerGasGwei         null.Float     `gorm:"column:max_fee_per_gas_gwei"`
	MaxPriorityFeePerGasGwei null.Float     `gorm:"column:max_priority_fee_per_gas_gwei"`
	RetryMetadata            datatypes.JSONMap `gorm:"column:retry_metadata"`
	CreatedAt                time.Time      `gorm:"column:created_at"`
}

func (TransactionLog) TableName() string { return "transaction_logs" }

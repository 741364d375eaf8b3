package logsink

import "gorm.io/gorm"

// Migration follows the teacher's core/store/migrations shape: an ordered,
// named, forward/rollback pair registered at package-init time.
type Migration struct {
	ID       string
	Migrate  func(db *gorm.DB) error
	Rollback func(db *gorm.DB) error
}

// Migrations holds every registered migration in registration order. Order
// matters: Migrator applies them sequentially and records each ID as done.
var Migrations []*Migration

const createFeedLogsUp = `
CREATE TABLE IF NOT EXISTS feed_logs (
	id serial PRIMARY KEY,
	feed_name text NOT NULL,
	network_name text NOT NULL,
	feed_value double precision NOT NULL,
	feed_timestamp bigint NOT NULL,
	error_status_code integer,
	network_error boolean NOT NULL DEFAULT false,
	created_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_feed_logs_feed_network ON feed_logs (feed_name, network_name);
CREATE INDEX IF NOT EXISTS idx_feed_logs_created_at ON feed_logs (created_at);
`

const createFeedLogsDown = `DROP TABLE IF EXISTS feed_logs;`

const createTransactionLogsUp = `
CREATE TABLE IF NOT EXISTS transaction_logs (
	id serial PRIMARY KEY,
	tx_hash text NOT NULL,
	feed_name text NOT NULL,
	network_name text NOT NULL,
	gas_limit bigint NOT NULL,
	gas_used bigint NOT NULL,
	gas_price_gwei double precision NOT NULL,
	total_cost_wei text NOT NULL,
	efficiency_percent double precision NOT NULL,
	tx_type text NOT NULL,
	status text NOT NULL,
	block_number bigint NOT NULL,
	error_message text,
	max_fee_per_gas_gwei double precision,
	max_priority_fee_per_gas_gwei double precision,
	retry_metadata jsonb NOT NULL DEFAULT '{}',
	created_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_tx_logs_feed_network ON transaction_logs (feed_name, network_name);
`

const createTransactionLogsDown = `DROP TABLE IF EXISTS transaction_logs;`

func init() {
	Migrations = append(Migrations,
		&Migration{
			ID:       "0001_create_feed_logs",
			Migrate:  func(db *gorm.DB) error { return db.Exec(createFeedLogsUp).Error },
			Rollback: func(db *gorm.DB) error { return db.Exec(createFeedLogsDown).Error },
		},
		&Migration{
			ID:       "0002_create_transaction_logs",
			Migrate:  func(db *gorm.DB) error { return db.Exec(createTransactionLogsUp).Error },
			Rollback: func(db *gorm.DB) error { return db.Exec(createTransactionLogsDown).Error },
		},
	)
}

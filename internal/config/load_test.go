package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
networks:
  - name: ethereum
    rpc_url: https://eth.llamarpc.com
    transaction_type: eip1559
datafeeds:
  - name: eth_usd
    networks: ethereum
    check_frequency: 60
    contract_address: "0x1234567890123456789012345678901234567890"
    contract_type: fluxmon
    read_contract_config: true
    minimum_update_frequency: 3600
    deviation_threshold_pct: 0.5
    feed_url: https://min-api.cryptocompare.com/data/price
    feed_json_path: RAW.ETH.USD.PRICE
    feed_json_path_timestamp: RAW.ETH.USD.LASTUPDATE
scheduled_tasks:
  - name: heartbeat
    network: ethereum
    schedule: "0 */15 * * * *"
    target_function:
      contract_address: "0x1234567890123456789012345678901234567890"
      function: "poke()"
      parameters: []
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeTemp(t, validYAML)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Networks, 1)
	assert.Equal(t, "ethereum", cfg.Networks[0].Name)
	assert.Equal(t, 1.0, cfg.Networks[0].GasConfig.Multiplier)
	assert.Len(t, cfg.Datafeeds, 1)
	assert.Equal(t, uint32(7), cfg.Datafeeds[0].DataRetentionDays)
}

func TestLoad_UnknownNetworkReference(t *testing.T) {
	bad := `
networks:
  - name: ethereum
    rpc_url: https://eth.llamarpc.com
    transaction_type: eip1559
datafeeds:
  - name: eth_usd
    networks: base
    check_frequency: 60
    contract_address: "0x1234567890123456789012345678901234567890"
    contract_type: fluxmon
    read_contract_config: true
    minimum_update_frequency: 3600
    deviation_threshold_pct: 0.5
    feed_url: https://example.com/price
    feed_json_path: price
`
	path := writeTemp(t, bad)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not defined")
}

func TestLoad_InvalidCronRejected(t *testing.T) {
	bad := `
networks:
  - name: ethereum
    rpc_url: https://eth.llamarpc.com
    transaction_type: eip1559
scheduled_tasks:
  - name: heartbeat
    network: ethereum
    schedule: "not a cron"
    target_function:
      contract_address: "0x1234567890123456789012345678901234567890"
      function: "poke()"
`
	path := writeTemp(t, bad)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
}

func TestLoad_DeviationThresholdOutOfRange(t *testing.T) {
	bad := `
networks:
  - name: ethereum
    rpc_url: https://eth.llamarpc.com
    transaction_type: eip1559
datafeeds:
  - name: eth_usd
    networks: ethereum
    check_frequency: 60
    contract_address: "0x1234567890123456789012345678901234567890"
    contract_type: fluxmon
    read_contract_config: true
    minimum_update_frequency: 3600
    deviation_threshold_pct: 150
    feed_url: https://example.com/price
    feed_json_path: price
`
	path := writeTemp(t, bad)
	_, err := Load(path)
	require.Error(t, err)
}

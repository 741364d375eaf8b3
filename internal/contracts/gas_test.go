package contracts

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ijonas/omikuji/internal/config"
)

func gwei(v float64) *float64 { return &v }
func limit(v uint64) *uint64  { return &v }

func TestCalculateFeeBump(t *testing.T) {
	base := big.NewInt(1_000_000_000) // 1 gwei

	attempt1 := calculateFeeBump(base, 1, 10)
	assert.Equal(t, base, attempt1)

	attempt2 := calculateFeeBump(base, 2, 10)
	assert.Equal(t, big.NewInt(1_100_000_000).String(), attempt2.String())

	attempt3 := calculateFeeBump(base, 3, 10)
	assert.Equal(t, big.NewInt(1_210_000_000).String(), attempt3.String())
}

func TestResolveFees_Legacy_Manual(t *testing.T) {
	policy := config.GasPolicy{GasPriceGwei: gwei(25), Multiplier: 1.5}
	fees := resolveFees("legacy", policy, big.NewInt(10_000_000_000))

	require.True(t, fees.legacy)
	assert.Equal(t, gweiToWei(25).String(), fees.gasPrice.String())
}

func TestResolveFees_Legacy_NetworkWithMultiplier(t *testing.T) {
	policy := config.GasPolicy{Multiplier: 2.0}
	fees := resolveFees("legacy", policy, big.NewInt(10_000_000_000))

	require.True(t, fees.legacy)
	assert.Equal(t, big.NewInt(20_000_000_000).String(), fees.gasPrice.String())
}

func TestResolveFees_Legacy_NoNetworkPriceFallsBackToDefault(t *testing.T) {
	policy := config.GasPolicy{Multiplier: 1.0}
	fees := resolveFees("legacy", policy, nil)

	require.True(t, fees.legacy)
	assert.Equal(t, gweiToWei(defaultLegacyGasPriceGwei).String(), fees.gasPrice.String())
}

func TestResolveFees_EIP1559_BothManual(t *testing.T) {
	policy := config.GasPolicy{MaxFeeGwei: gwei(50), PriorityFeeGwei: gwei(3), Multiplier: 2.0}
	fees := resolveFees("eip1559", policy, big.NewInt(10_000_000_000))

	require.False(t, fees.legacy)
	assert.Equal(t, gweiToWei(50).String(), fees.maxFee.String())
	assert.Equal(t, gweiToWei(3).String(), fees.priorityFee.String())
}

func TestResolveFees_EIP1559_Defaults(t *testing.T) {
	policy := config.GasPolicy{Multiplier: 1.0}
	networkPrice := gweiToWei(15)
	fees := resolveFees("eip1559", policy, networkPrice)

	require.False(t, fees.legacy)
	assert.Equal(t, gweiToWei(defaultPriorityFeeGwei).String(), fees.priorityFee.String())
	assert.Equal(t, gweiToWei(17).String(), fees.maxFee.String())
}

func TestFeeFields_Bump_KeepsKind(t *testing.T) {
	legacy := feeFields{legacy: true, gasPrice: gweiToWei(10)}
	bumped := legacy.bump(2, 10)
	assert.True(t, bumped.legacy)
	assert.Equal(t, gweiToWei(11).String(), bumped.gasPrice.String())

	dynamic := feeFields{legacy: false, maxFee: gweiToWei(20), priorityFee: gweiToWei(2)}
	bumpedDynamic := dynamic.bump(2, 10)
	assert.False(t, bumpedDynamic.legacy)
	assert.Equal(t, gweiToWei(22).String(), bumpedDynamic.maxFee.String())
}

func TestResolveGasLimit_ManualOverride(t *testing.T) {
	policy := config.GasPolicy{GasLimit: limit(500_000)}
	assert.Equal(t, uint64(500_000), resolveGasLimit(policy, 100_000, nil))
}

func TestResolveGasLimit_EstimateWithMultiplier(t *testing.T) {
	policy := config.GasPolicy{Multiplier: 1.2}
	assert.Equal(t, uint64(120_000), resolveGasLimit(policy, 100_000, nil))
}

func TestResolveGasLimit_FallsBackOnEstimatorError(t *testing.T) {
	policy := config.GasPolicy{Multiplier: 1.2}
	assert.Equal(t, defaultGasLimit, resolveGasLimit(policy, 0, assert.AnError))
}

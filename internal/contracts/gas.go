package contracts

import (
	"math"
	"math/big"

	"github.com/ijonas/omikuji/internal/config"
)

var weiPerGwei = big.NewInt(1_000_000_000)

const defaultGasLimit = uint64(200_000)
const defaultLegacyGasPriceGwei = 20.0
const defaultPriorityFeeGwei = 2.0

func gweiToWei(gwei float64) *big.Int {
	scaled := new(big.Float).Mul(big.NewFloat(gwei), new(big.Float).SetInt(weiPerGwei))
	wei, _ := scaled.Int(nil)
	return wei
}

// weiToGwei is gweiToWei's inverse, used to report the fee fields a
// submission actually used back in gwei for logging/audit. Returns 0 for a
// nil value, which feeFields leaves unset for the fee type it didn't use
// (e.g. gasPrice on an EIP-1559 submission).
func weiToGwei(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	gwei := new(big.Float).Quo(new(big.Float).SetInt(wei), new(big.Float).SetInt(weiPerGwei))
	f, _ := gwei.Float64()
	return f
}

// calculateFeeBump compounds a base fee by (1+pct/100)^(attempt-1), per
// spec.md §4.4.2 and original_source/src/gas/utils.rs's calculate_fee_bump.
func calculateFeeBump(base *big.Int, attempt int, increasePercent float64) *big.Int {
	if attempt <= 1 {
		return base
	}
	multiplier := math.Pow(1+increasePercent/100, float64(attempt-1))
	baseF := new(big.Float).SetInt(base)
	bumped := new(big.Float).Mul(baseF, big.NewFloat(multiplier))
	result, _ := bumped.Int(nil)
	return result
}

// feeFields holds the resolved gas price (legacy) or max-fee/priority-fee
// pair (EIP-1559) for one submission attempt.
type feeFields struct {
	legacy      bool
	gasPrice    *big.Int
	maxFee      *big.Int
	priorityFee *big.Int
}

// resolveFees computes fee fields for attempt 1, per spec.md §4.4.2 step 3:
//
//	Legacy: gas_price = manual ?? network_gas_price × multiplier, fallback 20 gwei.
//	EIP-1559: if both manual max_fee and priority_fee are set, use them; else
//	priority_fee = manual ?? 2 gwei; max_fee = manual ?? (network_gas_price + priority_fee);
//	apply multiplier to both.
func resolveFees(txType string, policy config.GasPolicy, networkGasPrice *big.Int) feeFields {
	multiplier := policy.Multiplier
	if multiplier == 0 {
		multiplier = 1.0
	}

	if txType == "legacy" {
		price := networkGasPrice
		if policy.GasPriceGwei != nil {
			price = gweiToWei(*policy.GasPriceGwei)
			return feeFields{legacy: true, gasPrice: price}
		}
		if price == nil {
			return feeFields{legacy: true, gasPrice: gweiToWei(defaultLegacyGasPriceGwei)}
		}
		return feeFields{legacy: true, gasPrice: applyMultiplier(price, multiplier)}
	}

	if policy.MaxFeeGwei != nil && policy.PriorityFeeGwei != nil {
		return feeFields{
			legacy:      false,
			maxFee:      gweiToWei(*policy.MaxFeeGwei),
			priorityFee: gweiToWei(*policy.PriorityFeeGwei),
		}
	}

	priorityFee := gweiToWei(defaultPriorityFeeGwei)
	if policy.PriorityFeeGwei != nil {
		priorityFee = gweiToWei(*policy.PriorityFeeGwei)
	}

	maxFee := new(big.Int).Add(networkGasPriceOrZero(networkGasPrice), priorityFee)
	if policy.MaxFeeGwei != nil {
		maxFee = gweiToWei(*policy.MaxFeeGwei)
	}

	return feeFields{
		legacy:      false,
		maxFee:      applyMultiplier(maxFee, multiplier),
		priorityFee: applyMultiplier(priorityFee, multiplier),
	}
}

// bump applies the fee-bump compounding formula to every fee field for the
// given retry attempt, keeping the same gas limit (spec.md §4.4.2 step 7).
func (f feeFields) bump(attempt int, increasePercent float64) feeFields {
	if f.legacy {
		return feeFields{legacy: true, gasPrice: calculateFeeBump(f.gasPrice, attempt, increasePercent)}
	}
	return feeFields{
		legacy:      false,
		maxFee:      calculateFeeBump(f.maxFee, attempt, increasePercent),
		priorityFee: calculateFeeBump(f.priorityFee, attempt, increasePercent),
	}
}

func applyMultiplier(wei *big.Int, multiplier float64) *big.Int {
	if multiplier == 1.0 {
		return wei
	}
	scaled := new(big.Float).Mul(new(big.Float).SetInt(wei), big.NewFloat(multiplier))
	result, _ := scaled.Int(nil)
	return result
}

func networkGasPriceOrZero(p *big.Int) *big.Int {
	if p == nil {
		return big.NewInt(0)
	}
	return p
}

// resolveGasLimit applies spec.md §4.4.2 step 2: manual override, else
// estimate × multiplier, else the conservative default on estimator error.
func resolveGasLimit(policy config.GasPolicy, estimate uint64, estimateErr error) uint64 {
	if policy.GasLimit != nil {
		return *policy.GasLimit
	}
	if estimateErr != nil {
		return defaultGasLimit
	}
	multiplier := policy.Multiplier
	if multiplier == 0 {
		multiplier = 1.0
	}
	return uint64(float64(estimate) * multiplier)
}

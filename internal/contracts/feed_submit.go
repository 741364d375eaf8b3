package contracts

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/pkg/errors"
)

// OutOfBounds is returned when a scaled observed value falls outside the
// feed's [min_value, max_value] bound and is never submitted on-chain
// (spec.md §4.4.3).
type OutOfBounds struct {
	Scaled *big.Int
	Min    *big.Int
	Max    *big.Int
}

func (e *OutOfBounds) Error() string {
	return errors.Errorf("scaled value %s outside bounds [%s, %s]", e.Scaled, e.Min, e.Max).Error()
}

// SubmitFeedValue scales observedValue by 10^decimals, bounds-checks it
// against [minValue, maxValue], and — if in bounds — submits it for the next
// round (latestRound+1) via submit(uint256,int256), per spec.md §4.4.3.
func SubmitFeedValue(ctx context.Context, adapter *Adapter, agg *FluxAggregator, feed string, observedValue decimal.Decimal, minValue, maxValue *big.Int) (*Submission, *big.Int, error) {
	decimals, err := agg.Decimals(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading decimals")
	}

	scale := decimal.New(1, int32(decimals))
	scaled := observedValue.Mul(scale).Round(0).BigInt()

	if minValue != nil && scaled.Cmp(minValue) < 0 {
		return nil, nil, &OutOfBounds{Scaled: scaled, Min: minValue, Max: maxValue}
	}
	if maxValue != nil && scaled.Cmp(maxValue) > 0 {
		return nil, nil, &OutOfBounds{Scaled: scaled, Min: minValue, Max: maxValue}
	}

	latestRound, err := agg.LatestRound(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading latestRound")
	}
	nextRound := new(big.Int).Add(latestRound, big.NewInt(1))

	submission, err := adapter.Submit(ctx, feed, agg.Address(), fluxAggregatorParsedABI, "submit", nextRound, scaled)
	if err != nil {
		return nil, nil, errors.Wrap(err, "submitting feed value")
	}
	return submission, nextRound, nil
}

package contracts

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
)

// ResolvedFeedConfig is a feed's contract-derived parameters, either read
// from YAML directly or prefetched from the contract (spec.md §4.4.4).
type ResolvedFeedConfig struct {
	Decimals uint8
	MinValue *big.Int
	MaxValue *big.Int
}

// PrefetchContractConfig reads decimals/minSubmissionValue/maxSubmissionValue
// from the contract. On any read failure the caller must skip the feed and
// continue with the rest (spec.md §4.4.4: "On failure the feed is skipped
// and reported; other feeds continue").
func PrefetchContractConfig(ctx context.Context, agg *FluxAggregator) (ResolvedFeedConfig, error) {
	decimals, err := agg.Decimals(ctx)
	if err != nil {
		return ResolvedFeedConfig{}, errors.Wrap(err, "prefetching decimals")
	}
	min, err := agg.MinSubmissionValue(ctx)
	if err != nil {
		return ResolvedFeedConfig{}, errors.Wrap(err, "prefetching minSubmissionValue")
	}
	max, err := agg.MaxSubmissionValue(ctx)
	if err != nil {
		return ResolvedFeedConfig{}, errors.Wrap(err, "prefetching maxSubmissionValue")
	}

	return ResolvedFeedConfig{Decimals: decimals, MinValue: min, MaxValue: max}, nil
}

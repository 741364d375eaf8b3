package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// FluxAggregator wraps the read path for the FluxAggregator contract family
// (spec.md §4.4.1's enumerated read set). Writes go through Adapter.Submit.
type FluxAggregator struct {
	codec *Codec
}

func NewFluxAggregator(codec *Codec) *FluxAggregator {
	return &FluxAggregator{codec: codec}
}

func (f *FluxAggregator) LatestAnswer(ctx context.Context) (*big.Int, error) {
	var out *big.Int
	err := f.codec.CallFluxAggregator(ctx, "latestAnswer", &out)
	return out, err
}

func (f *FluxAggregator) LatestTimestamp(ctx context.Context) (*big.Int, error) {
	var out *big.Int
	err := f.codec.CallFluxAggregator(ctx, "latestTimestamp", &out)
	return out, err
}

func (f *FluxAggregator) LatestRound(ctx context.Context) (*big.Int, error) {
	var out *big.Int
	err := f.codec.CallFluxAggregator(ctx, "latestRound", &out)
	return out, err
}

func (f *FluxAggregator) Decimals(ctx context.Context) (uint8, error) {
	var out uint8
	err := f.codec.CallFluxAggregator(ctx, "decimals", &out)
	return out, err
}

func (f *FluxAggregator) MinSubmissionValue(ctx context.Context) (*big.Int, error) {
	var out *big.Int
	err := f.codec.CallFluxAggregator(ctx, "minSubmissionValue", &out)
	return out, err
}

func (f *FluxAggregator) MaxSubmissionValue(ctx context.Context) (*big.Int, error) {
	var out *big.Int
	err := f.codec.CallFluxAggregator(ctx, "maxSubmissionValue", &out)
	return out, err
}

// Address returns the contract address this aggregator reads from.
func (f *FluxAggregator) Address() common.Address { return f.codec.address }

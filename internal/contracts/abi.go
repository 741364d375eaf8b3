// Package contracts implements every on-chain interaction the daemon
// performs: ABI encoding, FluxAggregator reads, the gas-aware submission
// state machine, and generic scheduled-task calls. Grounded on
// original_source/src/contracts/{flux_aggregator,generic_caller,caller}.rs
// and src/gas/{transaction_builder,utils}.rs.
package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"
)

// fluxAggregatorABI covers the subset of the FluxAggregator interface the
// core reads and writes (spec.md §4.4.1, §4.4.3).
const fluxAggregatorABI = `[
	{"name":"latestAnswer","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"int256"}]},
	{"name":"latestTimestamp","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
	{"name":"latestRound","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
	{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint8"}]},
	{"name":"minSubmissionValue","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"int256"}]},
	{"name":"maxSubmissionValue","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"int256"}]},
	{"name":"submit","type":"function","stateMutability":"nonpayable","inputs":[{"name":"_roundId","type":"uint256"},{"name":"_submission","type":"int256"}],"outputs":[]}
]`

// fluxAggregatorParsedABI is parsed once at package init, the same way the
// teacher's go-ethereum-derived bindings parse a constant ABI JSON string.
var fluxAggregatorParsedABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(fluxAggregatorABI))
	if err != nil {
		panic(errors.Wrap(err, "parsing embedded FluxAggregator ABI"))
	}
	fluxAggregatorParsedABI = parsed
}

// abiTypeFor resolves a spec-level EVM type tag (spec.md's "TargetFunction =
// {address, signature, ordered parameters each tagged with an EVM type}") to
// a go-ethereum abi.Type, for the generic scheduled-task caller.
func abiTypeFor(typeTag string) (abi.Type, error) {
	t, err := abi.NewType(typeTag, "", nil)
	if err != nil {
		return abi.Type{}, errors.Wrapf(err, "unsupported EVM type %q", typeTag)
	}
	return t, nil
}

package contracts

import (
	"context"
	"math/big"
	"testing"

	ethereumlib "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCaller implements EthCallContract with a canned response/error,
// keyed by the 4-byte selector of the call data.
type fakeCaller struct {
	responses map[string][]byte
	errs      map[string]error
}

func (f *fakeCaller) CallContract(ctx context.Context, call ethereumlib.CallMsg, blockNumber *big.Int) ([]byte, error) {
	key := common.Bytes2Hex(call.Data[:4])
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	return f.responses[key], nil
}

func TestCodec_CallFluxAggregator_Decimals(t *testing.T) {
	selector := common.Bytes2Hex(methodSelector("decimals()"))
	packed, err := fluxAggregatorParsedABI.Pack("decimals")
	require.NoError(t, err)
	assert.Equal(t, selector, common.Bytes2Hex(packed[:4]))

	out, err := fluxAggregatorParsedABI.Methods["decimals"].Outputs.Pack(uint8(8))
	require.NoError(t, err)

	caller := &fakeCaller{responses: map[string][]byte{selector: out}}
	codec := NewCodec(caller, common.HexToAddress("0x1"), "testnet", "price-feed")

	var decimals uint8
	err = codec.CallFluxAggregator(context.Background(), "decimals", &decimals)
	require.NoError(t, err)
	assert.Equal(t, uint8(8), decimals)
}

func TestCodec_CallFluxAggregator_PropagatesError(t *testing.T) {
	selector := common.Bytes2Hex(methodSelector("latestAnswer()"))
	caller := &fakeCaller{errs: map[string]error{selector: assert.AnError}}
	codec := NewCodec(caller, common.HexToAddress("0x1"), "testnet", "price-feed")

	var answer *big.Int
	err := codec.CallFluxAggregator(context.Background(), "latestAnswer", &answer)
	assert.Error(t, err)
}

func TestCodec_CallRaw_NoArgs(t *testing.T) {
	selector := common.Bytes2Hex(methodSelector("isPaused()"))
	boolType, err := abiTypeFor("bool")
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: boolType}}.Pack(true)
	require.NoError(t, err)

	caller := &fakeCaller{responses: map[string][]byte{selector: packed}}
	codec := NewCodec(caller, common.HexToAddress("0x1"), "testnet", "")

	v, err := codec.CallRaw(context.Background(), "isPaused()", "bool")
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

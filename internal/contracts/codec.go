package contracts

import (
	"context"
	"math/big"
	"time"

	ethereumlib "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/ijonas/omikuji/internal/logger"
	"github.com/ijonas/omikuji/internal/metrics"
)

// EthCallContract is the minimal go-ethereum client surface a Codec needs to
// perform eth_call reads; satisfied by *ethclient.Client.
type EthCallContract interface {
	CallContract(ctx context.Context, call ethereumlib.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Codec performs ABI-encoded eth_call reads against one contract address on
// one network, with the uniform metrics/error-context wrapping spec.md
// §4.4.1 requires: "Time the RPC; on success record success=true, on failure
// success=false with error string, then propagate."
type Codec struct {
	client  EthCallContract
	address common.Address
	network string
	feed    string
}

func NewCodec(client EthCallContract, address common.Address, network, feed string) *Codec {
	return &Codec{client: client, address: address, network: network, feed: feed}
}

// call performs a raw eth_call with input data, recording metrics under label.
func (c *Codec) call(ctx context.Context, input []byte, label string) ([]byte, error) {
	start := time.Now()
	out, err := c.client.CallContract(ctx, ethereumlib.CallMsg{To: &c.address, Data: input}, nil)
	duration := time.Since(start)

	if err != nil {
		metrics.RecordRPCCall(c.network, label, false, duration, "")
		logger.Warnw("contract call failed", "feed", c.feed, "network", c.network, "method", label, "error", err)
		return nil, errors.Wrapf(err, "contract call %q failed", label)
	}
	metrics.RecordRPCCall(c.network, label, true, duration, "")
	return out, nil
}

// CallFluxAggregator invokes a no-argument FluxAggregator view method and
// unpacks its single return value into out (a pointer).
func (c *Codec) CallFluxAggregator(ctx context.Context, method string, out interface{}) error {
	input, err := fluxAggregatorParsedABI.Pack(method)
	if err != nil {
		return errors.Wrapf(err, "encoding call to %s", method)
	}

	raw, err := c.call(ctx, input, method)
	if err != nil {
		return err
	}

	values, err := fluxAggregatorParsedABI.Unpack(method, raw)
	if err != nil {
		return errors.Wrapf(err, "decoding response from %s", method)
	}
	if len(values) != 1 {
		return errors.Errorf("unexpected return arity from %s: %d", method, len(values))
	}
	return assign(out, values[0])
}

// CallRaw performs a generic ABI-encoded read using a dynamically
// constructed signature and argument types, used by the ScheduledTaskRunner
// to evaluate a CheckCondition's Function variant.
func (c *Codec) CallRaw(ctx context.Context, signature string, outputType string, args ...interface{}) (interface{}, error) {
	selector := methodSelector(signature)

	input := selector
	if len(args) > 0 {
		argTypes, err := typesFromSignature(signature)
		if err != nil {
			return nil, err
		}
		encoded, err := encodeArgs(argTypes, args)
		if err != nil {
			return nil, errors.Wrapf(err, "encoding arguments for %s", signature)
		}
		input = append(input, encoded...)
	}

	raw, err := c.call(ctx, input, signature)
	if err != nil {
		return nil, err
	}

	outType, err := abiTypeFor(outputType)
	if err != nil {
		return nil, err
	}
	return decodeSingle(outType, raw)
}

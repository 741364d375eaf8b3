package contracts

import (
	"context"
	"math/big"
	"time"

	ethereumlib "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/jpillora/backoff"
	"github.com/pkg/errors"

	"github.com/ijonas/omikuji/internal/config"
	"github.com/ijonas/omikuji/internal/gasoracle"
	"github.com/ijonas/omikuji/internal/logger"
	"github.com/ijonas/omikuji/internal/metrics"
)

// newReceiptBackoff builds the poll backoff used while waiting for a
// transaction receipt: start fast, back off toward a 5s ceiling so a slow
// chain doesn't get hammered with eth_getTransactionReceipt calls.
func newReceiptBackoff() *backoff.Backoff {
	return &backoff.Backoff{Min: 500 * time.Millisecond, Max: 5 * time.Second, Factor: 1.6, Jitter: true}
}

// feeBumpCooldown is how long the state machine waits after sending a
// fee-bumped replacement, to avoid "replacement transaction underpriced"
// rejections (spec.md §4.4.2 step 7).
const feeBumpCooldown = 5 * time.Second

// TxClient is the go-ethereum client surface the submission state machine
// needs: gas/nonce estimation, sending, and receipt polling.
type TxClient interface {
	EthCallContract
	ChainID(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereumlib.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// MaxRetriesExceeded is returned when every submission attempt (including
// fee-bump retries) is exhausted without a confirmed receipt.
type MaxRetriesExceeded struct {
	Attempts int
	LastErr  error
}

func (e *MaxRetriesExceeded) Error() string {
	return errors.Wrapf(e.LastErr, "max retries (%d attempts) exceeded", e.Attempts).Error()
}

// Reverted is returned when a transaction is included but its receipt
// reports failure; spec.md §4.4.2 step 6 says this is never retried.
type Reverted struct {
	TxHash common.Hash
}

func (e *Reverted) Error() string {
	return "transaction " + e.TxHash.Hex() + " reverted"
}

// Submission is the outcome of a confirmed contract write: the receipt plus
// the fee-bump bookkeeping the LogSink audit trail records alongside it.
type Submission struct {
	Receipt           *types.Receipt
	Attempts          int
	GasLimit          uint64
	EfficiencyPercent float64
	GasPriceGwei      float64
	MaxFeeGwei        float64
	PriorityFeeGwei   float64
}

// Adapter performs gas-aware contract writes for one network, implementing
// the submission state machine of spec.md §4.4.2.
type Adapter struct {
	client    TxClient
	signer    *bind.TransactOpts
	network   string
	networkCfg config.Network
	oracle    *gasoracle.Oracle
}

func NewAdapter(client TxClient, signer *bind.TransactOpts, networkCfg config.Network, oracle *gasoracle.Oracle) *Adapter {
	return &Adapter{client: client, signer: signer, network: networkCfg.Name, networkCfg: networkCfg, oracle: oracle}
}

// Submit ABI-encodes and sends a contract call to address, retrying with
// compounded fee bumps on timeout per spec.md §4.4.2. feed is used for
// metrics/logging only and may be empty for scheduled-task calls.
func (a *Adapter) Submit(ctx context.Context, feed string, address common.Address, contractABI abiPacker, method string, args ...interface{}) (*Submission, error) {
	input, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding call to %s", method)
	}
	return a.submitEncoded(ctx, feed, address, input)
}

// SubmitRaw encodes a dynamically-typed function call from its Solidity
// signature (e.g. "execute()" or "setValue(uint256)") without requiring a
// generated/static ABI, for the ScheduledTaskRunner's TargetFunction calls.
func (a *Adapter) SubmitRaw(ctx context.Context, feed string, address common.Address, signature string, args ...interface{}) (*Submission, error) {
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
	return a.submitEncoded(ctx, feed, address, input)
}

func (a *Adapter) submitEncoded(ctx context.Context, feed string, address common.Address, input []byte) (*Submission, error) {
	policy := a.networkCfg.GasConfig
	maxAttempts := policy.FeeBumping.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	initialWait := time.Duration(policy.FeeBumping.InitialWaitSeconds) * time.Second
	if initialWait <= 0 {
		initialWait = 30 * time.Second
	}

	gasLimit := a.estimateGasLimit(ctx, address, input, policy)
	networkGasPrice, _ := a.client.SuggestGasPrice(ctx)
	baseFees := resolveFees(a.networkCfg.TransactionType, policy, networkGasPrice)
	fees := baseFees

	nonce, err := a.client.PendingNonceAt(ctx, a.signer.From)
	if err != nil {
		return nil, errors.Wrap(err, "fetching nonce")
	}

	chainID, err := a.client.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetching chain ID")
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attempts = attempt
		tx, err := a.buildAndSignTx(chainID, nonce, gasLimit, fees, address, input)
		if err != nil {
			return nil, errors.Wrap(err, "signing transaction")
		}

		if err := a.client.SendTransaction(ctx, tx); err != nil {
			lastErr = errors.Wrap(err, "sending transaction")
			logger.Warnw("transaction send failed", "feed", feed, "network", a.network, "attempt", attempt, "error", err)
		} else {
			wait := initialWait
			if attempt >= 2 {
				wait = 2 * initialWait
			}
			receipt, waitErr := a.waitForReceipt(ctx, tx.Hash(), wait)
			if waitErr == nil {
				return a.finishReceipt(feed, tx.Hash(), gasLimit, attempt, fees, receipt)
			}
			lastErr = waitErr
			logger.Warnw("transaction not confirmed within attempt window", "feed", feed, "network", a.network, "tx_hash", tx.Hash().Hex(), "attempt", attempt)
		}

		var reverted *Reverted
		if errors.As(lastErr, &reverted) {
			metrics.RecordTransaction(feed, a.network, false, 0)
			return nil, lastErr
		}

		if !policy.FeeBumping.Enabled || attempt >= maxAttempts {
			break
		}

		fees = baseFees.bump(attempt+1, policy.FeeBumping.FeeIncreasePercent)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(feeBumpCooldown):
		}
	}

	metrics.RecordTransaction(feed, a.network, false, 0)
	return nil, &MaxRetriesExceeded{Attempts: attempts, LastErr: lastErr}
}

// abiPacker is the subset of abi.ABI Submit needs, so the FluxAggregator
// submit path and the generic scheduled-task path share one implementation.
type abiPacker interface {
	Pack(name string, args ...interface{}) ([]byte, error)
}

func (a *Adapter) estimateGasLimit(ctx context.Context, address common.Address, input []byte, policy config.GasPolicy) uint64 {
	if policy.GasLimit != nil {
		return *policy.GasLimit
	}
	estimate, err := a.client.EstimateGas(ctx, ethereumlib.CallMsg{From: a.signer.From, To: &address, Data: input})
	return resolveGasLimit(policy, estimate, err)
}

func (a *Adapter) buildAndSignTx(chainID *big.Int, nonce, gasLimit uint64, fees feeFields, to common.Address, input []byte) (*types.Transaction, error) {
	var txData types.TxData
	if fees.legacy {
		txData = &types.LegacyTx{
			Nonce:    nonce,
			To:       &to,
			Value:    big.NewInt(0),
			Gas:      gasLimit,
			GasPrice: fees.gasPrice,
			Data:     input,
		}
	} else {
		txData = &types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			To:        &to,
			Value:     big.NewInt(0),
			Gas:       gasLimit,
			GasFeeCap: fees.maxFee,
			GasTipCap: fees.priorityFee,
			Data:      input,
		}
	}

	tx := types.NewTx(txData)
	return a.signer.Signer(a.signer.From, tx)
}

func (a *Adapter) waitForReceipt(ctx context.Context, txHash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	deadline := time.Now().Add(timeout)
	b := newReceiptBackoff()

	for {
		receipt, err := a.client.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if time.Now().After(deadline) {
			return nil, errors.Errorf("timed out waiting for receipt of %s", txHash.Hex())
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(b.Duration()):
		}
	}
}

func (a *Adapter) finishReceipt(feed string, txHash common.Hash, gasLimit uint64, attempt int, fees feeFields, receipt *types.Receipt) (*Submission, error) {
	if receipt.Status != types.ReceiptStatusSuccessful {
		metrics.RecordTransaction(feed, a.network, false, 0)
		return nil, &Reverted{TxHash: txHash}
	}

	efficiency := 0.0
	if gasLimit > 0 {
		efficiency = float64(receipt.GasUsed) / float64(gasLimit)
	}
	logger.Infof("transaction %s confirmed: gas_used=%d efficiency=%.2f%%", txHash.Hex(), receipt.GasUsed, efficiency*100)

	costUSD := 0.0
	if a.oracle != nil {
		effectivePrice := 0.0
		if receipt.EffectiveGasPrice != nil {
			effectivePrice, _ = new(big.Float).SetInt(receipt.EffectiveGasPrice).Float64()
		}
		if cost, ok := a.oracle.CalculateUSDCost(a.network, receipt.GasUsed, effectivePrice); ok {
			costUSD = cost.TotalUSD
		}
	}
	metrics.RecordTransaction(feed, a.network, true, costUSD)

	return &Submission{
		Receipt:           receipt,
		Attempts:          attempt,
		GasLimit:          gasLimit,
		EfficiencyPercent: efficiency * 100,
		GasPriceGwei:      weiToGwei(fees.gasPrice),
		MaxFeeGwei:        weiToGwei(fees.maxFee),
		PriorityFeeGwei:   weiToGwei(fees.priorityFee),
	}, nil
}

// Package network owns the per-network RPC client, signer and wallet address,
// and exposes the read/write primitives every other component builds on. It
// generalizes the teacher's chainCollection (core/chains/evm/chain_collection.go)
// from a DB-backed multichain registry to Omikuji's static, YAML-configured
// set of networks.
package network

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/ijonas/omikuji/internal/config"
	"github.com/ijonas/omikuji/internal/logger"
	"github.com/ijonas/omikuji/internal/metrics"
	"github.com/ijonas/omikuji/internal/secrets"
)

// chain is one configured network's live state: RPC client, optional signer
// and the resolved wallet address. A network without a loaded key is
// read-only: reads still work, submissions fail explicitly (spec.md §3's
// "every network has at most one signer; signing operations fail explicitly
// if missing").
type chain struct {
	cfg     config.Network
	client  *ethclient.Client
	signer  *bind.TransactOpts
	address common.Address
	hasKey  bool
}

// Registry holds one RPC client/signer/wallet-address tuple per configured
// network. Read-only after Build, so it is safe to share by reference across
// every FeedMonitor and the ScheduledTaskRunner (spec.md §5).
type Registry struct {
	mu     sync.RWMutex
	chains map[string]*chain
}

// Build dials every configured network, probing the RPC (non-fatal on
// failure per spec.md §4.2) and loading a signer from store when available.
// Per-network probe/load failures are aggregated and returned for logging,
// but never abort Build: a network that fails to load becomes read-only.
func Build(ctx context.Context, networks []config.Network, store secrets.Store, privateKeyEnvVar string) (*Registry, error) {
	r := &Registry{chains: make(map[string]*chain, len(networks))}

	var errs error
	for _, n := range networks {
		c, err := dial(ctx, n)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "network %q", n.Name))
			logger.Warnw("failed to connect network RPC, continuing without it", "network", n.Name, "error", err)
			continue
		}

		if store != nil {
			if err := r.loadSigner(ctx, c, store, privateKeyEnvVar); err != nil {
				errs = multierr.Append(errs, errors.Wrapf(err, "network %q signer", n.Name))
				logger.Warnw("failed to load signer for network, leaving it read-only", "network", n.Name, "error", err)
			}
		}

		r.mu.Lock()
		r.chains[n.Name] = c
		r.mu.Unlock()
	}

	return r, errs
}

func dial(ctx context.Context, n config.Network) (*chain, error) {
	client, err := ethclient.DialContext(ctx, n.RPCURL)
	if err != nil {
		metrics.SetEndpointHealthy(n.Name, false)
		return nil, errors.Wrap(err, "dialing RPC")
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	start := time.Now()
	blockNumber, err := client.BlockNumber(probeCtx)
	if err != nil {
		metrics.RecordRPCCall(n.Name, "eth_blockNumber", false, time.Since(start), classifyRPCError(err))
		metrics.SetEndpointHealthy(n.Name, false)
		logger.Warnw("RPC probe failed at startup", "network", n.Name, "rpc_url", n.RPCURL, "error", err)
	} else {
		metrics.RecordRPCCall(n.Name, "eth_blockNumber", true, time.Since(start), "")
		metrics.UpdateChainHead(n.Name, blockNumber)
		metrics.SetEndpointHealthy(n.Name, true)
		logger.Infof("connected to %s RPC at %s, current block %d", n.Name, n.RPCURL, blockNumber)
	}

	return &chain{cfg: n, client: client}, nil
}

// loadSigner attempts to load network's private key from store. On failure
// with the keyring backend it falls back to env-var loading, per spec.md
// §4.2's "on failure with the keyring backend the registry falls back to
// env-var loading for backward compatibility".
func (r *Registry) loadSigner(ctx context.Context, c *chain, store secrets.Store, privateKeyEnvVar string) error {
	keyBytes, err := store.Get(ctx, c.cfg.Name)
	if err != nil && store.Backend() == "keyring" {
		logger.Warnw("keyring load failed, falling back to env var", "network", c.cfg.Name, "error", err)
		keyBytes, err = secrets.NewEnvStore(privateKeyEnvVar).Get(ctx, c.cfg.Name)
	}
	if err != nil {
		return err
	}

	privateKey, err := crypto.HexToECDSA(trimHexPrefix(string(keyBytes)))
	if err != nil {
		return errors.Wrap(err, "parsing private key")
	}

	chainID, err := c.client.ChainID(ctx)
	if err != nil {
		return errors.Wrap(err, "fetching chain ID for signer")
	}

	opts, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
	if err != nil {
		return errors.Wrap(err, "constructing transactor")
	}

	c.signer = opts
	c.address = crypto.PubkeyToAddress(*privateKey.Public().(*ecdsa.PublicKey))
	c.hasKey = true
	return nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func (r *Registry) get(network string) (*chain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chains[network]
	if !ok {
		return nil, errors.Errorf("network %q not found", network)
	}
	return c, nil
}

// Provider returns the RPC client for network.
func (r *Registry) Provider(network string) (*ethclient.Client, error) {
	c, err := r.get(network)
	if err != nil {
		return nil, err
	}
	return c.client, nil
}

// Signer returns the transaction signer for network, or an error if no key
// was loaded.
func (r *Registry) Signer(network string) (*bind.TransactOpts, error) {
	c, err := r.get(network)
	if err != nil {
		return nil, err
	}
	if !c.hasKey {
		return nil, errors.Errorf("no signer loaded for network %q", network)
	}
	return c.signer, nil
}

// WalletAddress returns the signing wallet address for network.
func (r *Registry) WalletAddress(network string) (common.Address, error) {
	c, err := r.get(network)
	if err != nil {
		return common.Address{}, err
	}
	if !c.hasKey {
		return common.Address{}, errors.Errorf("no wallet loaded for network %q", network)
	}
	return c.address, nil
}

// NetworkConfig returns the static configuration for network.
func (r *Registry) NetworkConfig(network string) (config.Network, error) {
	c, err := r.get(network)
	if err != nil {
		return config.Network{}, err
	}
	return c.cfg, nil
}

// Networks returns every configured network name.
func (r *Registry) Networks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.chains))
	for name := range r.chains {
		names = append(names, name)
	}
	return names
}

// ChainID fetches and records the chain ID for network.
func (r *Registry) ChainID(ctx context.Context, network string) (*big.Int, error) {
	c, err := r.get(network)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	id, err := c.client.ChainID(ctx)
	r.recordCall(network, "eth_chainId", start, err)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching chain ID for network %q", network)
	}
	return id, nil
}

// BlockNumber fetches and records the latest block number for network.
func (r *Registry) BlockNumber(ctx context.Context, network string) (uint64, error) {
	c, err := r.get(network)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	n, err := c.client.BlockNumber(ctx)
	r.recordCall(network, "eth_blockNumber", start, err)
	if err != nil {
		return 0, errors.Wrapf(err, "fetching block number for network %q", network)
	}
	metrics.UpdateChainHead(network, n)
	return n, nil
}

// Balance fetches the wallet's native-token balance for network.
func (r *Registry) Balance(ctx context.Context, network string) (*big.Int, error) {
	c, err := r.get(network)
	if err != nil {
		return nil, err
	}
	if !c.hasKey {
		return nil, errors.Errorf("no wallet loaded for network %q", network)
	}
	start := time.Now()
	balance, err := c.client.BalanceAt(ctx, c.address, nil)
	r.recordCall(network, "eth_getBalance", start, err)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching balance for network %q", network)
	}
	return balance, nil
}

func (r *Registry) recordCall(network, method string, start time.Time, err error) {
	if err != nil {
		metrics.RecordRPCCall(network, method, false, time.Since(start), classifyRPCError(err))
		return
	}
	metrics.RecordRPCCall(network, method, true, time.Since(start), "")
}

// Close shuts down every network's RPC connection.
func (r *Registry) Close() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.chains {
		c.client.Close()
	}
}

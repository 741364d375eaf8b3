package secrets

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	vaultapi "github.com/hashicorp/vault/api"
	"github.com/pkg/errors"

	"github.com/ijonas/omikuji/internal/logger"
)

// VaultStore stores keys at <mount>/<prefix>/<network> in a KV-v2 secrets
// engine, with a TTL'd read cache so a transient Vault outage doesn't take
// down networks that already have a loaded signer.
type VaultStore struct {
	client     *vaultapi.Client
	mountPath  string
	pathPrefix string
	cacheTTL   time.Duration

	mu    sync.RWMutex
	cache map[string]cachedSecret

	stopEvict chan struct{}
}

type cachedSecret struct {
	value     []byte
	fetchedAt time.Time
}

func NewVaultStore(cfg VaultConfig) (*VaultStore, error) {
	vcfg := vaultapi.DefaultConfig()
	vcfg.Address = cfg.URL
	client, err := vaultapi.NewClient(vcfg)
	if err != nil {
		return nil, errors.Wrap(err, "constructing vault client")
	}

	switch cfg.AuthMethod {
	case "", "token":
		client.SetToken(expandEnvRefs(cfg.Token))
	case "approle":
		if err := approleLogin(client, cfg); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unknown vault auth_method %q", cfg.AuthMethod)
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 60 * time.Second
	}

	s := &VaultStore{
		client:     client,
		mountPath:  cfg.MountPath,
		pathPrefix: cfg.PathPrefix,
		cacheTTL:   ttl,
		cache:      make(map[string]cachedSecret),
		stopEvict:  make(chan struct{}),
	}
	go s.evictLoop()
	return s, nil
}

func approleLogin(client *vaultapi.Client, cfg VaultConfig) error {
	secret, err := client.Logical().Write("auth/approle/login", map[string]interface{}{
		"role_id":   cfg.RoleID,
		"secret_id": expandEnvRefs(cfg.SecretID),
	})
	if err != nil {
		return errors.Wrap(err, "vault approle login")
	}
	if secret == nil || secret.Auth == nil {
		return errors.New("vault approle login returned no auth info")
	}
	client.SetToken(secret.Auth.ClientToken)
	return nil
}

// expandEnvRefs substitutes ${VAR}-style references against the process
// environment, per spec.md §6 (VAULT_TOKEN etc. for `${VAR}` substitution).
func expandEnvRefs(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return osExpand(s)
}

func (s *VaultStore) Backend() string { return "vault" }

func (s *VaultStore) secretPath(network string) string {
	return fmt.Sprintf("%s/data/%s/%s", s.mountPath, s.pathPrefix, network)
}

func (s *VaultStore) Get(ctx context.Context, network string) ([]byte, error) {
	secret, err := s.client.Logical().ReadWithContext(ctx, s.secretPath(network))
	if err != nil || secret == nil {
		if cached, ok := s.cachedValue(network); ok {
			logger.Warnw("vault unreachable, serving cached key", "network", network)
			audit(s.Backend(), "get", network, true)
			return cached, nil
		}
		audit(s.Backend(), "get", network, false)
		if err != nil {
			return nil, errors.Wrapf(err, "vault read for network %q", network)
		}
		return nil, ErrNotFound
	}

	data, _ := secret.Data["data"].(map[string]interface{})
	raw, ok := data["private_key"]
	if !ok {
		audit(s.Backend(), "get", network, false)
		return nil, errors.Errorf("vault secret for network %q missing private_key field", network)
	}
	key := []byte(fmt.Sprintf("%v", raw))

	s.mu.Lock()
	s.cache[network] = cachedSecret{value: key, fetchedAt: time.Now()}
	s.mu.Unlock()

	audit(s.Backend(), "get", network, true)
	return key, nil
}

func (s *VaultStore) cachedValue(network string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cache[network]
	if !ok || time.Since(c.fetchedAt) > s.cacheTTL {
		return nil, false
	}
	return c.value, true
}

func (s *VaultStore) Put(ctx context.Context, network string, key []byte) error {
	_, err := s.client.Logical().WriteWithContext(ctx, s.secretPath(network), map[string]interface{}{
		"data": map[string]interface{}{"private_key": string(key)},
	})
	if err != nil {
		audit(s.Backend(), "put", network, false)
		return errors.Wrapf(err, "vault write for network %q", network)
	}
	s.mu.Lock()
	s.cache[network] = cachedSecret{value: key, fetchedAt: time.Now()}
	s.mu.Unlock()
	audit(s.Backend(), "put", network, true)
	return nil
}

func (s *VaultStore) Delete(ctx context.Context, network string) error {
	metaPath := fmt.Sprintf("%s/metadata/%s/%s", s.mountPath, s.pathPrefix, network)
	_, err := s.client.Logical().DeleteWithContext(ctx, metaPath)
	if err != nil {
		audit(s.Backend(), "delete", network, false)
		return errors.Wrapf(err, "vault delete for network %q", network)
	}
	s.mu.Lock()
	delete(s.cache, network)
	s.mu.Unlock()
	audit(s.Backend(), "delete", network, true)
	return nil
}

func (s *VaultStore) List(ctx context.Context) ([]string, error) {
	listPath := fmt.Sprintf("%s/metadata/%s", s.mountPath, s.pathPrefix)
	secret, err := s.client.Logical().ListWithContext(ctx, listPath)
	if err != nil {
		audit(s.Backend(), "list", "", false)
		return nil, errors.Wrap(err, "vault list")
	}
	if secret == nil {
		audit(s.Backend(), "list", "", true)
		return nil, nil
	}
	keysRaw, _ := secret.Data["keys"].([]interface{})
	names := make([]string, 0, len(keysRaw))
	for _, k := range keysRaw {
		names = append(names, strings.TrimSuffix(fmt.Sprintf("%v", k), "/"))
	}
	audit(s.Backend(), "list", "", true)
	return names, nil
}

func (s *VaultStore) evictLoop() {
	ticker := time.NewTicker(s.cacheTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			for k, v := range s.cache {
				if time.Since(v.fetchedAt) > s.cacheTTL {
					delete(s.cache, k)
				}
			}
			s.mu.Unlock()
		case <-s.stopEvict:
			return
		}
	}
}

// Close stops the cache eviction loop.
func (s *VaultStore) Close() { close(s.stopEvict) }

// Package secrets implements the SecretStore capability interface (spec.md
// §4.1) and its four interchangeable backends: env, OS keyring, Vault and AWS
// Secrets Manager.
package secrets

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ijonas/omikuji/internal/logger"
)

// ErrNotFound is returned when no key is stored for a network.
var ErrNotFound = errors.New("secret not found")

// ErrUnsupported is returned by backends that cannot perform an operation
// (env's put/delete, keyring's list).
var ErrUnsupported = errors.New("operation not supported by this backend")

// Store is the capability interface every backend implements. Network names
// are opaque identifiers matching config.Network.Name.
type Store interface {
	// Get returns the private key bytes for network, or ErrNotFound.
	Get(ctx context.Context, network string) ([]byte, error)
	// Put stores (overwriting) the private key for network.
	Put(ctx context.Context, network string, key []byte) error
	// Delete removes the stored key for network.
	Delete(ctx context.Context, network string) error
	// List enumerates networks with stored keys, or ErrUnsupported.
	List(ctx context.Context) ([]string, error)
	// Backend names the concrete backend for audit records.
	Backend() string
}

// AuditRecord is emitted for every Get/Put/Delete/List call, per spec.md §4.1.
type AuditRecord struct {
	ID        string
	Operation string
	Network   string
	Success   bool
	Backend   string
	Timestamp time.Time
}

func audit(backend, operation, network string, success bool) {
	rec := AuditRecord{
		ID:        uuid.NewString(),
		Operation: operation,
		Network:   network,
		Success:   success,
		Backend:   backend,
		Timestamp: time.Now(),
	}
	logger.Infow("secret store audit",
		"audit_id", rec.ID,
		"operation", rec.Operation,
		"network", rec.Network,
		"success", rec.Success,
		"backend", rec.Backend,
	)
}

// New constructs the backend named by storageType, per spec.md §6's
// key_storage.storage_type config key. No runtime reflection: the backend is
// chosen by inspecting the string once at startup.
func New(storageType string, cfg Config) (Store, error) {
	switch storageType {
	case "", "env":
		return NewEnvStore(cfg.PrivateKeyEnvVar), nil
	case "keyring":
		return NewKeyringStore(cfg.KeyringService), nil
	case "vault":
		return NewVaultStore(cfg.Vault)
	case "aws_secrets", "aws":
		return NewAWSStore(cfg.AWS)
	default:
		return nil, errors.Errorf("unknown key storage backend %q", storageType)
	}
}

// Config bundles the backend-specific settings from config.KeyStorageConfig
// without internal/secrets importing internal/config (kept decoupled so
// secrets stays testable without the config package).
type Config struct {
	KeyringService string
	// PrivateKeyEnvVar overrides the legacy single env var EnvStore falls
	// back to when OMIKUJI_PRIVATE_KEY_<NETWORK> isn't set, per spec.md §6's
	// -p/--private-key-env flag (default OMIKUJI_PRIVATE_KEY).
	PrivateKeyEnvVar string
	Vault            VaultConfig
	AWS              AWSConfig
}

type VaultConfig struct {
	URL          string
	MountPath    string
	PathPrefix   string
	AuthMethod   string
	Token        string
	RoleID       string
	SecretID     string
	CacheTTL     time.Duration
}

type AWSConfig struct {
	Region   string
	Prefix   string
	CacheTTL time.Duration
}

package secrets

import (
	"context"

	"github.com/pkg/errors"
	"github.com/zalando/go-keyring"
)

const defaultService = "omikuji"

// KeyringStore stores one entry per (service, network) in the OS credential
// store (macOS Keychain, Secret Service, Windows Credential Manager).
type KeyringStore struct {
	service string
}

func NewKeyringStore(service string) *KeyringStore {
	if service == "" {
		service = defaultService
	}
	return &KeyringStore{service: service}
}

func (s *KeyringStore) Backend() string { return "keyring" }

func (s *KeyringStore) Get(_ context.Context, network string) ([]byte, error) {
	v, err := keyring.Get(s.service, network)
	if err != nil {
		audit(s.Backend(), "get", network, false)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "keyring get for network %q", network)
	}
	audit(s.Backend(), "get", network, true)
	return []byte(v), nil
}

func (s *KeyringStore) Put(_ context.Context, network string, key []byte) error {
	if err := keyring.Set(s.service, network, string(key)); err != nil {
		audit(s.Backend(), "put", network, false)
		return errors.Wrapf(err, "keyring set for network %q", network)
	}
	audit(s.Backend(), "put", network, true)
	return nil
}

func (s *KeyringStore) Delete(_ context.Context, network string) error {
	if err := keyring.Delete(s.service, network); err != nil {
		audit(s.Backend(), "delete", network, false)
		return errors.Wrapf(err, "keyring delete for network %q", network)
	}
	audit(s.Backend(), "delete", network, true)
	return nil
}

// List is not supported: the keyring crate (and its Go equivalent) has no
// cross-platform enumeration API.
func (s *KeyringStore) List(_ context.Context) ([]string, error) {
	audit(s.Backend(), "list", "", false)
	return nil, ErrUnsupported
}

package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "xscraper"
	keyringPrefix  = "session_"
)

// KeyringStore keeps artifacts in the system keychain
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a keyring-backed store under service
func NewKeyringStore(service string) *KeyringStore {
	return &KeyringStore{service: service}
}

// KeyringAvailable probes the keychain with a throwaway entry
func KeyringAvailable() error {
	const probe = "test_availability"
	if err := keyring.Set(keyringService, probe, "test"); err != nil {
		return fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, probe)
	return nil
}

func (k *KeyringStore) Save(a *Artifact) error {
	if a == nil || a.Name == "" {
		return ErrInvalid
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}
	if err := keyring.Set(k.service, keyringPrefix+a.Name, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Load(name string) (*Artifact, error) {
	if name == "" {
		return nil, ErrInvalid
	}
	data, err := keyring.Get(k.service, keyringPrefix+name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact: %w", err)
	}
	return &a, nil
}

func (k *KeyringStore) Delete(name string) error {
	if name == "" {
		return ErrInvalid
	}
	if err := keyring.Delete(k.service, keyringPrefix+name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Exists(name string) bool {
	if name == "" {
		return false
	}
	_, err := keyring.Get(k.service, keyringPrefix+name)
	return err == nil
}

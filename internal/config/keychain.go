package config

import (
	"fmt"

	keyring "github.com/zalando/go-keyring"
)

// ServiceName is the OS keychain service namespace nsyte stores secrets under.
const ServiceName = "nsyte"

// keychainSecretStore persists secrets in the OS-native credential store (macOS
// Keychain, Secret Service on Linux, Windows Credential Manager) via go-keyring.
type keychainSecretStore struct{}

// NewKeychainSecretStore returns the production SecretStore. Selected whenever
// DisableKeychain() is false.
func NewKeychainSecretStore() SecretStore {
	return keychainSecretStore{}
}

func (keychainSecretStore) Get(key string) (string, bool, error) {
	v, err := keyring.Get(ServiceName, key)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading %q from keychain: %w", key, err)
	}
	return v, true, nil
}

func (keychainSecretStore) Set(key, value string) error {
	if err := keyring.Set(ServiceName, key, value); err != nil {
		return fmt.Errorf("writing %q to keychain: %w", key, err)
	}
	return nil
}

func (keychainSecretStore) Delete(key string) error {
	if err := keyring.Delete(ServiceName, key); err != nil {
		if err == keyring.ErrNotFound {
			return nil
		}
		return fmt.Errorf("deleting %q from keychain: %w", key, err)
	}
	return nil
}

// NewSecretStore picks the keychain store unless the environment requests the
// in-memory stub (spec.md test-mode carve-out).
func NewSecretStore() SecretStore {
	if DisableKeychain() {
		return NewEnvSecretStore("NSYTE_SECRET_")
	}
	return NewKeychainSecretStore()
}

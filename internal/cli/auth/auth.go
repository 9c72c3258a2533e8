package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const service = "vsa-cli"

// getKeyringKey returns a unique key for storing tokens per environment
func getKeyringKey(env string) string {
	return fmt.Sprintf("token-%s", env)
}

// SaveToken persists the bearer token securely in the OS keychain/credential manager
func SaveToken(env, token string) error {
	if err := keyring.Set(service, getKeyringKey(env), token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// LoadToken retrieves the bearer token from the OS keychain/credential
// manager. A missing token is not an error; it returns empty, meaning
// anonymous.
func LoadToken(env string) (string, error) {
	token, err := keyring.Get(service, getKeyringKey(env))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return token, nil
}

// DeleteToken removes the bearer token from the OS keychain/credential manager
func DeleteToken(env string) error {
	if err := keyring.Delete(service, getKeyringKey(env)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

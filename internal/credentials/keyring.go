package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name the credential array is stored under.
const KeyringService = "tokenrefresh-credentials"

// KeyringSource reads the credential array from OS-native secure storage.
// Uses macOS Keychain, Windows Credential Manager, or Linux Secret Service.
type KeyringSource struct {
	service string
	user    string
}

// Compile-time check to ensure KeyringSource implements Source
var _ Source = (*KeyringSource)(nil)

// NewKeyringSource creates a KeyringSource for the given service and user identifiers.
func NewKeyringSource(service, user string) (*KeyringSource, error) {
	if service == "" {
		return nil, fmt.Errorf("service cannot be empty")
	}
	if user == "" {
		return nil, fmt.Errorf("user cannot be empty")
	}

	return &KeyringSource{
		service: service,
		user:    user,
	}, nil
}

// Load parses the keyring entry. Returns a *ConfigError if the entry is
// missing, empty or not a JSON array.
func (k *KeyringSource) Load(ctx context.Context) ([]Pair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source := fmt.Sprintf("keyring service %s, user %s", k.service, k.user)
	value, err := keyring.Get(k.service, k.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, &ConfigError{Source: source, Err: errors.New("no keyring entry")}
		}
		return nil, &ConfigError{Source: source, Err: err}
	}

	return parseAndLog(ctx, source, []byte(value))
}

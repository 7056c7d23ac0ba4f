package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// DefaultEnvKey is the environment variable read when no other key is configured.
const DefaultEnvKey = "GIFTED_CREDENTIALS"

// EnvSource reads the credential array from an environment variable.
type EnvSource struct {
	envKey string
}

// Compile-time check to ensure EnvSource implements Source
var _ Source = (*EnvSource)(nil)

// NewEnvSource creates an EnvSource for the given environment variable.
// The variable is looked up on Load, not here.
func NewEnvSource(envKey string) (*EnvSource, error) {
	if envKey == "" {
		return nil, fmt.Errorf("environment key cannot be empty")
	}

	return &EnvSource{
		envKey: envKey,
	}, nil
}

// Load parses the variable's value. Returns a *ConfigError if it is unset or empty.
func (e *EnvSource) Load(ctx context.Context) ([]Pair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source := "env " + e.envKey
	value, exists := os.LookupEnv(e.envKey)
	if !exists {
		return nil, &ConfigError{Source: source, Err: errors.New("environment variable is not set")}
	}

	return parseAndLog(ctx, source, []byte(value))
}

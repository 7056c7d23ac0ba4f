package credentials

import "context"

// Source loads an ordered list of credential pairs from external configuration.
type Source interface {
	// Load returns the pairs in their configured order. Returns a *ConfigError
	// if the value is absent, not valid JSON or not a JSON array.
	Load(ctx context.Context) ([]Pair, error)
}

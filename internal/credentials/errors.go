package credentials

import "fmt"

// ConfigError reports credential configuration that is missing or malformed.
// It is fatal for a run: nothing is exchanged once it occurs.
type ConfigError struct {
	// Source names where the value was read from, e.g. "env GIFTED_CREDENTIALS".
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("credentials from %s: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Package credentials loads the batch of OAuth client credentials to refresh.
//
// Supports four backends, all yielding the same JSON array of
// {"client_id", "client_secret"} objects:
//   - Env: JSON held in an environment variable (GIFTED_CREDENTIALS by default)
//   - File: JSON file with owner-only permissions
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential Manager, etc.)
//   - AWS Secrets Manager: secret string holding the JSON array
//
// Every backend funnels the raw value through Parse, so a missing value,
// invalid JSON or a non-array document always surfaces as a *ConfigError.
// Elements are not validated here; that happens per entry in the batch runner.
package credentials

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/user"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"

	"github.com/florianilch/tokenrefresh/internal/credentials"
	"github.com/florianilch/tokenrefresh/internal/exchange"
	"github.com/florianilch/tokenrefresh/internal/observability"
	"github.com/florianilch/tokenrefresh/internal/snapshot"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = observability.FormatText
	LogFormatJSON LogFormat = observability.FormatJSON
	LogFormatAuto LogFormat = observability.FormatAuto
)

// CredentialSourceType represents the backends supported for the credential list.
type CredentialSourceType string

const (
	CredentialSourceEnv            CredentialSourceType = "env"
	CredentialSourceFile           CredentialSourceType = "file"
	CredentialSourceKeyring        CredentialSourceType = "keyring"
	CredentialSourceSecretsManager CredentialSourceType = "aws_secretsmanager"
)

// Default configuration values
const (
	DefaultConfigLogFormat         = LogFormatText
	DefaultConfigTimeout           = exchange.DefaultTimeout
	DefaultConfigCredentialsSource = CredentialSourceEnv
	DefaultConfigCredentialsEnvKey = credentials.DefaultEnvKey
	DefaultConfigOutputFile        = snapshot.DefaultPath
	DefaultConfigTelemetryExporter = observability.ExporterNone
)

// CredentialsConfig describes where the credential list is read from.
type CredentialsConfig struct {
	Source CredentialSourceType `json:"source" validate:"required,oneof=env file keyring aws_secretsmanager"`

	// Source-specific settings (mutually exclusive based on Source)
	EnvKey      string `json:"env_key,omitempty"`      // For env: environment variable name
	File        string `json:"file,omitempty"`         // For file: path to the JSON file
	KeyringUser string `json:"keyring_user,omitempty"` // For keyring: user identifier
	SecretID    string `json:"secret_id,omitempty"`    // For aws_secretsmanager: secret name or ARN
	Region      string `json:"region,omitempty"`       // For aws_secretsmanager: AWS region, empty uses the SDK default chain
}

// NewSource creates a credentials.Source from the configuration.
// Only the Secrets Manager backend performs I/O here (loading AWS config).
func (c *CredentialsConfig) NewSource(ctx context.Context, fs afero.Fs) (credentials.Source, error) {
	switch c.Source {
	case CredentialSourceEnv:
		return credentials.NewEnvSource(c.EnvKey)
	case CredentialSourceFile:
		return credentials.NewFileSource(fs, c.File)
	case CredentialSourceKeyring:
		return credentials.NewKeyringSource(credentials.KeyringService, c.KeyringUser)
	case CredentialSourceSecretsManager:
		return credentials.NewSecretsManagerSource(ctx, c.Region, c.SecretID)
	default:
		return nil, fmt.Errorf("unsupported credentials source: %s", c.Source)
	}
}

// OutputConfig holds snapshot output configuration.
type OutputConfig struct {
	File string `json:"file" validate:"required"`
}

// MetricsConfig holds metrics output configuration.
type MetricsConfig struct {
	// Textfile is a node_exporter textfile path; empty disables metrics output.
	Textfile string `json:"textfile,omitempty"`
}

// TelemetryConfig holds OpenTelemetry export configuration.
type TelemetryConfig struct {
	Exporter string `json:"exporter" validate:"oneof=none stdout otlp_http otlp_grpc"`
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level `json:"log_level"`
	LogFormat LogFormat  `json:"log_format" validate:"oneof=text json auto"`

	// Endpoint is the OAuth2 token endpoint URL.
	Endpoint string `json:"endpoint" validate:"required,url"`
	// Timeout bounds each token request.
	Timeout time.Duration `json:"timeout" validate:"gte=0"`

	Credentials CredentialsConfig `json:"credentials"`
	Output      OutputConfig      `json:"output"`
	Metrics     MetricsConfig     `json:"metrics"`
	Telemetry   TelemetryConfig   `json:"telemetry"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultConfigTimeout
	}
	if c.Credentials.Source == "" {
		c.Credentials.Source = DefaultConfigCredentialsSource
	}
	if c.Output.File == "" {
		c.Output.File = DefaultConfigOutputFile
	}
	if c.Telemetry.Exporter == "" {
		c.Telemetry.Exporter = DefaultConfigTelemetryExporter
	}

	// Dynamic defaults based on source type
	switch c.Credentials.Source {
	case CredentialSourceEnv:
		if c.Credentials.EnvKey == "" {
			c.Credentials.EnvKey = DefaultConfigCredentialsEnvKey
		}
	case CredentialSourceKeyring:
		if c.Credentials.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("credentials.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Credentials.KeyringUser = currentUser.Username
		}
	case CredentialSourceFile, CredentialSourceSecretsManager:
		// file and secret_id must be explicitly configured (no sensible default)
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Credentials.Source {
	case CredentialSourceEnv:
		if c.Credentials.EnvKey == "" {
			return errors.New("env_key required for env credentials")
		}
	case CredentialSourceFile:
		if c.Credentials.File == "" {
			return errors.New("file path required for file credentials")
		}
	case CredentialSourceKeyring:
		if c.Credentials.KeyringUser == "" {
			return errors.New("keyring_user required for keyring credentials")
		}
	case CredentialSourceSecretsManager:
		if c.Credentials.SecretID == "" {
			return errors.New("secret_id required for aws_secretsmanager credentials")
		}
	}

	return nil
}

package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretValueGetter is the subset of the Secrets Manager client used by SecretsManagerSource.
type SecretValueGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerSource reads the credential array from an AWS Secrets Manager secret.
// The secret string must be the JSON array itself.
type SecretsManagerSource struct {
	client   SecretValueGetter
	secretID string
}

// Compile-time check to ensure SecretsManagerSource implements Source
var _ Source = (*SecretsManagerSource)(nil)

// NewSecretsManagerSource creates a SecretsManagerSource backed by the default
// AWS credential chain for the given region. No request is made until Load.
func NewSecretsManagerSource(ctx context.Context, region, secretID string) (*SecretsManagerSource, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSecretsManagerSourceWithClient(secretsmanager.NewFromConfig(cfg), secretID)
}

// NewSecretsManagerSourceWithClient creates a SecretsManagerSource using client.
func NewSecretsManagerSourceWithClient(client SecretValueGetter, secretID string) (*SecretsManagerSource, error) {
	if client == nil {
		return nil, fmt.Errorf("missing secrets manager client")
	}
	if secretID == "" {
		return nil, fmt.Errorf("secret id cannot be empty")
	}

	return &SecretsManagerSource{
		client:   client,
		secretID: secretID,
	}, nil
}

// Load fetches and parses the secret. Returns a *ConfigError if the secret
// cannot be fetched, has no string value or does not hold a JSON array.
func (s *SecretsManagerSource) Load(ctx context.Context) ([]Pair, error) {
	source := "secretsmanager " + s.secretID

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretID),
	})
	if err != nil {
		return nil, &ConfigError{Source: source, Err: fmt.Errorf("failed to fetch secret: %w", err)}
	}
	if out.SecretString == nil {
		return nil, &ConfigError{Source: source, Err: errors.New("secret has no string value")}
	}

	return parseAndLog(ctx, source, []byte(aws.ToString(out.SecretString)))
}

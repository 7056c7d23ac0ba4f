package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

const sampleJSON = `[{"client_id":"client-one","client_secret":"secret-one"}]`

func requireConfigError(t *testing.T, err error) {
	t.Helper()
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr), "expected *ConfigError, got %v", err)
}

func TestEnvSource(t *testing.T) {
	const key = "TOKENREFRESH_TEST_CREDENTIALS"

	t.Run("reads variable", func(t *testing.T) {
		t.Setenv(key, sampleJSON)
		src, err := NewEnvSource(key)
		require.NoError(t, err)

		pairs, err := src.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []Pair{{ClientID: "client-one", ClientSecret: "secret-one"}}, pairs)
	})

	t.Run("empty variable", func(t *testing.T) {
		t.Setenv(key, "")
		src, err := NewEnvSource(key)
		require.NoError(t, err)

		_, err = src.Load(context.Background())
		requireConfigError(t, err)
	})

	t.Run("unset variable", func(t *testing.T) {
		src, err := NewEnvSource("TOKENREFRESH_TEST_UNSET_VARIABLE")
		require.NoError(t, err)

		_, err = src.Load(context.Background())
		requireConfigError(t, err)
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := NewEnvSource("")
		require.Error(t, err)
	})
}

func TestFileSource(t *testing.T) {
	t.Run("reads file", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/etc/creds.json", []byte(sampleJSON), 0600))

		src, err := NewFileSource(fs, "/etc/creds.json")
		require.NoError(t, err)

		pairs, err := src.Load(context.Background())
		require.NoError(t, err)
		assert.Len(t, pairs, 1)
	})

	t.Run("insecure permissions", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/etc/creds.json", []byte(sampleJSON), 0644))

		src, err := NewFileSource(fs, "/etc/creds.json")
		require.NoError(t, err)

		_, err = src.Load(context.Background())
		requireConfigError(t, err)
		assert.Contains(t, err.Error(), "insecure permissions")
	})

	t.Run("missing file", func(t *testing.T) {
		src, err := NewFileSource(afero.NewMemMapFs(), "/nope.json")
		require.NoError(t, err)

		_, err = src.Load(context.Background())
		requireConfigError(t, err)
	})

	t.Run("not an array", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/creds.json", []byte(`{}`), 0600))

		src, err := NewFileSource(fs, "/creds.json")
		require.NoError(t, err)

		_, err = src.Load(context.Background())
		requireConfigError(t, err)
	})
}

func TestKeyringSource(t *testing.T) {
	keyring.MockInit()

	t.Run("reads entry", func(t *testing.T) {
		require.NoError(t, keyring.Set(KeyringService, "alice", sampleJSON))

		src, err := NewKeyringSource(KeyringService, "alice")
		require.NoError(t, err)

		pairs, err := src.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "client-one", pairs[0].ClientID)
	})

	t.Run("missing entry", func(t *testing.T) {
		src, err := NewKeyringSource(KeyringService, "nobody")
		require.NoError(t, err)

		_, err = src.Load(context.Background())
		requireConfigError(t, err)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := NewKeyringSource(KeyringService, "")
		require.Error(t, err)
	})
}

type fakeSecrets struct {
	value *string
	err   error
	asked string
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.asked = aws.ToString(in.SecretId)
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: f.value}, nil
}

func TestSecretsManagerSource(t *testing.T) {
	t.Run("reads secret", func(t *testing.T) {
		fake := &fakeSecrets{value: aws.String(sampleJSON)}
		src, err := NewSecretsManagerSourceWithClient(fake, "prod/clients")
		require.NoError(t, err)

		pairs, err := src.Load(context.Background())
		require.NoError(t, err)
		assert.Len(t, pairs, 1)
		assert.Equal(t, "prod/clients", fake.asked)
	})

	t.Run("fetch failure", func(t *testing.T) {
		src, err := NewSecretsManagerSourceWithClient(&fakeSecrets{err: errors.New("access denied")}, "prod/clients")
		require.NoError(t, err)

		_, err = src.Load(context.Background())
		requireConfigError(t, err)
		assert.Contains(t, err.Error(), "access denied")
	})

	t.Run("binary secret", func(t *testing.T) {
		src, err := NewSecretsManagerSourceWithClient(&fakeSecrets{}, "prod/clients")
		require.NoError(t, err)

		_, err = src.Load(context.Background())
		requireConfigError(t, err)
	})

	t.Run("missing secret id", func(t *testing.T) {
		_, err := NewSecretsManagerSourceWithClient(&fakeSecrets{}, "")
		require.Error(t, err)
	})
}

package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/florianilch/tokenrefresh/internal/app"
)

func environ(vars ...string) func() []string {
	return func() []string { return vars }
}

// runWithFlags parses args through the root command and loads config from within its action.
func runWithFlags(t *testing.T, configPath string, environFunc func() []string, args ...string) (*app.Config, error) {
	t.Helper()
	var cfg *app.Config
	var loadErr error

	cmd := newRootCommand(func(_ context.Context, cmd *cli.Command) error {
		cfg, loadErr = loadConfig(configPath, cmd, environFunc)
		return nil
	})
	require.NoError(t, cmd.Run(context.Background(), append([]string{"tokenrefresh"}, args...)))
	return cfg, loadErr
}

func TestLoadConfig_EnvOnly(t *testing.T) {
	cfg, err := loadConfig("", nil, environ(
		"GIFTED_ENDPOINT=https://accounts.example.com/api/token",
		`GIFTED_CREDENTIALS=[{"client_id":"a","client_secret":"b"}]`,
		"GIFTED_TIMEOUT=3s",
		"GIFTED_LOG_LEVEL=debug",
		"GIFTED_OUTPUT__FILE=/var/lib/tokenrefresh/tokens.json",
		"UNRELATED=1",
	))
	require.NoError(t, err)

	assert.Equal(t, "https://accounts.example.com/api/token", cfg.Endpoint)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "/var/lib/tokenrefresh/tokens.json", cfg.Output.File)
	assert.Equal(t, app.CredentialSourceEnv, cfg.Credentials.Source)
	assert.Equal(t, "GIFTED_CREDENTIALS", cfg.Credentials.EnvKey)
}

func TestLoadConfig_MissingEndpoint(t *testing.T) {
	_, err := loadConfig("", nil, environ())
	require.Error(t, err)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
endpoint = "https://file.example.com/token"
log_format = "json"

[credentials]
source = "file"
file = "/etc/tokenrefresh/credentials.json"

[output]
file = "from-file.json"
`), 0600))

	t.Run("file only", func(t *testing.T) {
		cfg, err := loadConfig(path, nil, environ())
		require.NoError(t, err)
		assert.Equal(t, "https://file.example.com/token", cfg.Endpoint)
		assert.Equal(t, app.LogFormatJSON, cfg.LogFormat)
		assert.Equal(t, app.CredentialSourceFile, cfg.Credentials.Source)
		assert.Equal(t, "from-file.json", cfg.Output.File)
	})

	t.Run("env overrides file", func(t *testing.T) {
		cfg, err := loadConfig(path, nil, environ("GIFTED_ENDPOINT=https://env.example.com/token"))
		require.NoError(t, err)
		assert.Equal(t, "https://env.example.com/token", cfg.Endpoint)
		assert.Equal(t, "from-file.json", cfg.Output.File)
	})

	t.Run("flags override env", func(t *testing.T) {
		cfg, err := runWithFlags(t, path, environ("GIFTED_ENDPOINT=https://env.example.com/token"),
			"--endpoint", "https://flag.example.com/token",
			"--output--file", "from-flag.json",
			"--timeout", "2s",
		)
		require.NoError(t, err)
		assert.Equal(t, "https://flag.example.com/token", cfg.Endpoint)
		assert.Equal(t, "from-flag.json", cfg.Output.File)
		assert.Equal(t, 2*time.Second, cfg.Timeout)
		// Unset flags keep values from earlier sources
		assert.Equal(t, app.LogFormatJSON, cfg.LogFormat)
		assert.Equal(t, app.CredentialSourceFile, cfg.Credentials.Source)
	})
}

func TestFlagValues(t *testing.T) {
	var values map[string]any
	cmd := newRootCommand(func(_ context.Context, cmd *cli.Command) error {
		values = flagValues(cmd)
		return nil
	})
	err := cmd.Run(context.Background(), []string{"tokenrefresh",
		"--env-file", "ignored.env",
		"--credentials--env-key", "MY_CREDS",
		"--log-level", "warn",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"credentials.env_key": "MY_CREDS",
		"log_level":           "warn",
	}, values)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("TOKENREFRESH_DOTENV_TEST=loaded\n"), 0600))
	t.Setenv("TOKENREFRESH_DOTENV_TEST", "")
	require.NoError(t, os.Unsetenv("TOKENREFRESH_DOTENV_TEST"))

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv("TOKENREFRESH_DOTENV_TEST"))

	require.Error(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

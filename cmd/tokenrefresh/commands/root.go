package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/florianilch/tokenrefresh/internal/app"
	"github.com/florianilch/tokenrefresh/internal/observability"
)

// telemetryShutdownTimeout bounds flushing exported logs on exit.
const telemetryShutdownTimeout = 5 * time.Second

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	return newRootCommand(refreshAction).Run(ctx, args)
}

func newRootCommand(action cli.ActionFunc) *cli.Command {
	return &cli.Command{
		Name:  "tokenrefresh",
		Usage: "Refresh OAuth client-credentials tokens into a snapshot file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "dotenv file loaded into the environment (default: .env if present)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json|auto)",
				Value: string(app.DefaultConfigLogFormat),
			},
			&cli.StringFlag{
				Name:  "endpoint",
				Usage: "OAuth2 token endpoint URL",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "timeout for each token request",
				Value: app.DefaultConfigTimeout,
			},
			&cli.StringFlag{
				Name:  "credentials--source",
				Usage: "credentials source (env|file|keyring|aws_secretsmanager)",
				Value: string(app.DefaultConfigCredentialsSource),
			},
			&cli.StringFlag{
				Name:  "credentials--env-key",
				Usage: "environment variable holding the credentials JSON",
				Value: app.DefaultConfigCredentialsEnvKey,
			},
			&cli.StringFlag{
				Name:  "credentials--file",
				Usage: "credentials JSON file (0600 permissions)",
			},
			&cli.StringFlag{
				Name:  "credentials--keyring-user",
				Usage: "keyring user holding the credentials JSON",
			},
			&cli.StringFlag{
				Name:  "credentials--secret-id",
				Usage: "AWS Secrets Manager secret holding the credentials JSON",
			},
			&cli.StringFlag{
				Name:  "credentials--region",
				Usage: "AWS region of the secret",
			},
			&cli.StringFlag{
				Name:  "output--file",
				Usage: "snapshot output path",
				Value: app.DefaultConfigOutputFile,
			},
			&cli.StringFlag{
				Name:  "metrics--textfile",
				Usage: "write Prometheus metrics to this node_exporter textfile",
			},
			&cli.StringFlag{
				Name:  "telemetry--exporter",
				Usage: "OpenTelemetry log exporter (none|stdout|otlp_http|otlp_grpc)",
				Value: app.DefaultConfigTelemetryExporter,
			},
		},
		Action: action,
	}
}

func refreshAction(ctx context.Context, cmd *cli.Command) error {
	if err := loadEnvFile(cmd.String("env-file")); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set up observability before creating app
	shutdown, err := observability.Instrument(ctx, observability.Options{
		Level:    cfg.LogLevel,
		Format:   string(cfg.LogFormat),
		Exporter: cfg.Telemetry.Exporter,
	})
	if err != nil {
		return fmt.Errorf("failed to set up observability layer: %w", err)
	}
	defer func() {
		// Parent context may already be cancelled by a signal
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			fmt.Fprintln(os.Stderr, "failed to flush telemetry:", err)
		}
	}()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	if _, err := application.Run(ctx); err != nil {
		return err
	}

	return nil
}

// loadEnvFile loads path into the process environment without overriding
// variables that are already set. Without a path, .env is loaded if present.
func loadEnvFile(path string) error {
	if path == "" {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"task-tracker/backend/internal/app"
	"task-tracker/backend/internal/config"
	"task-tracker/backend/internal/logging"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tasktracker",
		Short:         "Personal task tracker API server and maintenance tools",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(seedCmd())
	return rootCmd
}

// withApp loads configuration, builds the application and closes it once
// fn returns.
func withApp(fn func(a *app.App, logger zerolog.Logger) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(cfg.Server.Environment, cfg.Log.Level)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialise application")
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to release resources")
		}
	}()

	return fn(a, logger)
}

func serveCmd() *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App, logger zerolog.Logger) error {
				if !skipMigrate {
					if err := a.Migrate(); err != nil {
						return err
					}
				}
				return a.Serve(cmd.Context())
			})
		},
	}

	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not migrate the schema on startup")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App, logger zerolog.Logger) error {
				if err := a.Migrate(); err != nil {
					return err
				}
				logger.Info().Msg("schema migrated")
				return nil
			})
		},
	}
}

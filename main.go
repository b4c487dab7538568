package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coincraze/authd/internal/app"
	"github.com/spf13/cobra"
)

// @title           authd API
// @version         1.0
// @description     CoinCraze account registration, login, OTP password recovery and notification inbox.
// @server          http://localhost:8080
// @securityDefinitions.apikey  BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	serve := func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		a, err := app.New(configPath)
		if err != nil {
			slog.ErrorContext(ctx, "failed to start", "error", err)
			return err
		}
		return a.Run(ctx)
	}

	root := &cobra.Command{
		Use:           "authd",
		Short:         "Credential issuance and account recovery service",
		RunE:          serve,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and event consumers",
		Args:  cobra.NoArgs,
		RunE:  serve,
	})

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	for _, action := range []string{app.MigrateUp, app.MigrateDown, app.MigrateStatus} {
		migrate.AddCommand(&cobra.Command{
			Use:   action,
			Short: "Run migrate " + action,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
				defer cancel()
				if err := app.RunMigration(ctx, configPath, action, cmd.OutOrStdout()); err != nil {
					slog.ErrorContext(ctx, "migration failed", "action", action, "error", err)
					return err
				}
				return nil
			},
		})
	}
	root.AddCommand(migrate)

	return root
}

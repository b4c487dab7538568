package app

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/coincraze/authd/internal/pkg/config"
	"github.com/coincraze/authd/internal/pkg/migration"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate actions accepted by RunMigration.
const (
	MigrateUp     = "up"
	MigrateDown   = "down"
	MigrateStatus = "status"
)

// RunMigration applies action against the database named by the config
// file. Status rows are written to out.
func RunMigration(ctx context.Context, configPath, action string, out io.Writer) error {
	cfg, err := config.NewViper(ConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer cfg.Close()

	if missing := cfg.Missing("database.url"); len(missing) > 0 {
		return fmt.Errorf("config: missing %v", missing)
	}

	pool, err := pgxpool.New(ctx, cfg.GetString("database.url"))
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	runner, err := migration.NewRunner(pool)
	if err != nil {
		return err
	}
	defer runner.Close()

	switch action {
	case MigrateUp:
		return runner.Up(ctx)
	case MigrateDown:
		return runner.Down(ctx)
	case MigrateStatus:
		rows, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tAPPLIED\tAPPLIED AT\tFILE")
		for _, row := range rows {
			at := "-"
			if row.Applied {
				at = row.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(tw, "%d\t%t\t%s\t%s\n", row.Version, row.Applied, at, row.Path)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown migrate action %q", action)
	}
}

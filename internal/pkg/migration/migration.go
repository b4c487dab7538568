// Package migration applies the SQL schema embedded in the binary with goose.
package migration

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var embedded embed.FS

// Files returns the embedded migration files rooted at their directory.
func Files() fs.FS {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

// Status is one row of the migration status report.
type Status struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

// Runner applies, rolls back and reports migrations.
type Runner struct {
	db       *sql.DB
	provider *goose.Provider
}

// NewRunner opens a database/sql handle over pool for goose.
func NewRunner(pool *pgxpool.Pool) (*Runner, error) {
	return NewRunnerDB(stdlib.OpenDBFromPool(pool))
}

// NewRunnerDB builds a runner over an existing handle. The runner owns db.
func NewRunnerDB(db *sql.DB) (*Runner, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, Files())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration: provider: %w", err)
	}
	return &Runner{db: db, provider: provider}, nil
}

// Up applies every pending migration.
func (r *Runner) Up(ctx context.Context) error {
	results, err := r.provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migration: up: %w", err)
	}
	for _, res := range results {
		slog.InfoContext(ctx, "migration applied", "version", res.Source.Version, "duration_ms", res.Duration.Milliseconds())
	}
	if len(results) == 0 {
		slog.InfoContext(ctx, "schema is up to date")
	}
	return nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down(ctx context.Context) error {
	res, err := r.provider.Down(ctx)
	if err != nil {
		return fmt.Errorf("migration: down: %w", err)
	}
	slog.InfoContext(ctx, "migration rolled back", "version", res.Source.Version)
	return nil
}

// Status reports every known migration in version order.
func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	rows, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration: status: %w", err)
	}

	out := make([]Status, 0, len(rows))
	for _, row := range rows {
		out = append(out, Status{
			Version:   row.Source.Version,
			Path:      row.Source.Path,
			Applied:   row.State == goose.StateApplied,
			AppliedAt: row.AppliedAt,
		})
	}
	return out, nil
}

// Close releases the database/sql handle; the pool stays open.
func (r *Runner) Close() error {
	return r.db.Close()
}

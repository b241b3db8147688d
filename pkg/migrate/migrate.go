// Package migrate owns the SQL schema. Migrations are goose files embedded
// into every binary, applied through a goose Provider so no global goose
// state is shared between callers.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where `migrate create` writes new files. They are embedded
// from the same place.
const DefaultDir = "pkg/migrate/migrations"

const embeddedDir = "migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Result describes one applied or rolled back migration.
type Result struct {
	Version   int64
	File      string
	Direction string
	Duration  time.Duration
}

func (r Result) String() string {
	return fmt.Sprintf("%s %s (%s)", r.Direction, r.File, r.Duration.Round(time.Millisecond))
}

// Status is one row of `migrate status`.
type Status struct {
	Version   int64
	File      string
	Applied   bool
	AppliedAt time.Time
}

// Migrator runs the embedded migrations against a Postgres database.
type Migrator struct {
	provider *goose.Provider
}

func New(db *sql.DB) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	fsys, err := fs.Sub(embedded, embeddedDir)
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Migrator{provider: provider}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) ([]Result, error) {
	results, err := m.provider.Up(ctx)
	return collect(results), wrap("up", err)
}

// Down rolls back the newest applied migration.
func (m *Migrator) Down(ctx context.Context) ([]Result, error) {
	result, err := m.provider.Down(ctx)
	return collect([]*goose.MigrationResult{result}), wrap("down", err)
}

// Redo rolls back the newest migration and applies it again.
func (m *Migrator) Redo(ctx context.Context) ([]Result, error) {
	down, err := m.Down(ctx)
	if err != nil {
		return down, err
	}
	up, err := m.provider.UpByOne(ctx)
	return append(down, collect([]*goose.MigrationResult{up})...), wrap("redo", err)
}

// To moves the schema up or down until target is the newest applied
// version. target is a YYYYMMDDHHMMSS string.
func (m *Migrator) To(ctx context.Context, target string) ([]Result, error) {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil || version <= 0 {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", target)
	}
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, wrap("version", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current < version:
		results, err = m.provider.UpTo(ctx, version)
	case current > version:
		results, err = m.provider.DownTo(ctx, version)
	}
	return collect(results), wrap("migrate to "+target, err)
}

func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	rows, err := m.provider.Status(ctx)
	if err != nil {
		return nil, wrap("status", err)
	}
	out := make([]Status, 0, len(rows))
	for _, row := range rows {
		out = append(out, Status{
			Version:   row.Source.Version,
			File:      path.Base(row.Source.Path),
			Applied:   row.State == goose.StateApplied,
			AppliedAt: row.AppliedAt,
		})
	}
	return out, nil
}

func collect(results []*goose.MigrationResult) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		out = append(out, Result{
			Version:   r.Source.Version,
			File:      path.Base(r.Source.Path),
			Direction: r.Direction,
			Duration:  r.Duration,
		})
	}
	return out
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", op, err)
}

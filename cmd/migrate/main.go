package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

// command is one subcommand. Offline commands only touch migration files;
// the rest run against the configured database.
type command struct {
	help    string
	offline func(dir, arg string) error
	online  func(ctx context.Context, m *migrate.Migrator, arg string) error
}

// applying adapts a Migrator method that moves the schema and prints each
// step it took.
func applying(step func(*migrate.Migrator, context.Context) ([]migrate.Result, error)) func(context.Context, *migrate.Migrator, string) error {
	return func(ctx context.Context, m *migrate.Migrator, _ string) error {
		results, err := step(m, ctx)
		report(results)
		return err
	}
}

func report(results []migrate.Result) {
	if len(results) == 0 {
		fmt.Println("no migrations to run")
	}
	for _, r := range results {
		fmt.Println(r)
	}
}

var commands = map[string]command{
	"up":   {help: "apply all pending migrations", online: applying((*migrate.Migrator).Up)},
	"down": {help: "roll back the latest migration", online: applying((*migrate.Migrator).Down)},
	"redo": {help: "roll back and re-apply the latest migration", online: applying((*migrate.Migrator).Redo)},
	"status": {
		help: "print applied and pending migrations",
		online: func(ctx context.Context, m *migrate.Migrator, _ string) error {
			rows, err := m.Status(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tAPPLIED AT\tFILE")
			for _, row := range rows {
				applied := "pending"
				if row.Applied {
					applied = row.AppliedAt.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", row.Version, applied, row.File)
			}
			return w.Flush()
		},
	},
	"version": {
		help: "migrate up or down to <YYYYMMDDHHMMSS>",
		online: func(ctx context.Context, m *migrate.Migrator, target string) error {
			if target == "" {
				return fmt.Errorf("version requires a target")
			}
			results, err := m.To(ctx, target)
			report(results)
			return err
		},
	},
	"create": {
		help: "write an empty <name> migration into -dir",
		offline: func(dir, name string) error {
			if name == "" {
				return fmt.Errorf("create requires a name")
			}
			path, err := migrate.CreateSQLMigration(dir, name)
			if err == nil {
				fmt.Println("created migration:", path)
			}
			return err
		},
	},
	"validate": {
		help: "check every file in -dir for goose annotations",
		offline: func(dir, _ string) error {
			if err := migrate.ValidateDir(dir); err != nil {
				return err
			}
			fmt.Println("migrations valid")
			return nil
		},
	},
}

func main() {
	dir := flag.String("dir", migrate.DefaultDir, "migration directory for create and validate")
	flag.Usage = usage
	flag.Parse()

	name := strings.ToLower(flag.Arg(0))
	if name == "" {
		name = "up"
	}
	cmd, ok := commands[name]
	if !ok {
		usage()
		os.Exit(2)
	}
	arg := flag.Arg(1)

	if cmd.offline != nil {
		if err := cmd.offline(*dir, arg); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			os.Exit(1)
		}
		return
	}

	_ = godotenv.Load()
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": name})

	if err := runOnline(ctx, logg, cfg, cmd, arg); err != nil {
		logg.Error(ctx, "migration command failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration command complete")
}

func runOnline(ctx context.Context, logg *logger.Logger, cfg *config.Config, cmd command, arg string) error {
	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("unwrap sql.DB: %w", err)
	}
	migrator, err := migrate.New(sqlDB)
	if err != nil {
		return err
	}
	return cmd.online(ctx, migrator, arg)
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: migrate [-dir path] <command> [arg]\n\ncommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(flag.CommandLine.Output(), "  %-9s %s\n", name, commands[name].help)
	}
	fmt.Fprintln(flag.CommandLine.Output(), "\nflags:")
	flag.PrintDefaults()
}

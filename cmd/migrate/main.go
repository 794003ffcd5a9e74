// Command migrate manages the catalog database schema.
package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/shopdesk/backoffice/internal/infrastructure/config"
	"github.com/shopdesk/backoffice/internal/infrastructure/logger"
	"github.com/shopdesk/backoffice/internal/infrastructure/migration"
	"github.com/shopdesk/backoffice/migrations"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

// options are the global flags
type options struct {
	dir      string
	logLevel string
	confirm  bool
}

// command is one subcommand. Commands with a migrate func need a database.
type command struct {
	usage   string
	summary string
	minArgs int
	local   func(opts options, log *zap.Logger, args []string) error
	migrate func(m *migration.Migrator, log *zap.Logger, args []string) error
}

var commands = map[string]command{
	"up": {usage: "up", summary: "Apply all pending migrations",
		migrate: func(m *migration.Migrator, _ *zap.Logger, _ []string) error { return m.Up() }},
	"down": {usage: "down", summary: "Roll back all migrations",
		migrate: func(m *migration.Migrator, _ *zap.Logger, _ []string) error { return m.Down() }},
	"steps": {usage: "steps <n>", summary: "Apply n migrations (negative rolls back)", minArgs: 1,
		migrate: func(m *migration.Migrator, _ *zap.Logger, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			return m.Steps(n)
		}},
	"goto": {usage: "goto <version>", summary: "Migrate up or down to a version", minArgs: 1,
		migrate: func(m *migration.Migrator, _ *zap.Logger, args []string) error {
			v, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return m.GoTo(uint(v))
		}},
	"force": {usage: "force <version>", summary: "Mark a version as applied and clean", minArgs: 1,
		migrate: func(m *migration.Migrator, _ *zap.Logger, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return m.Force(v)
		}},
	"version": {usage: "version", summary: "Show the applied version",
		migrate: func(m *migration.Migrator, log *zap.Logger, _ []string) error {
			st, err := m.Status()
			if err != nil {
				return err
			}
			log.Info("schema version", zap.Uint("version", st.Version), zap.Bool("dirty", st.Dirty))
			return nil
		}},
	"drop": {usage: "drop --confirm", summary: "Drop every database object",
		migrate: func(m *migration.Migrator, _ *zap.Logger, _ []string) error { return m.Drop() }},
	"create": {usage: "create <name> [description]", summary: "Write a new empty migration pair", minArgs: 1,
		local: func(opts options, log *zap.Logger, args []string) error {
			dir := opts.dir
			if dir == "" {
				dir = defaultMigrationsDir
			}
			var description string
			if len(args) > 1 {
				description = args[1]
			}
			mf, err := migration.CreateMigration(dir, args[0], description)
			if err != nil {
				return err
			}
			log.Info("migration created", zap.String("up", mf.UpPath), zap.String("down", mf.DownPath))
			return nil
		}},
	"list": {usage: "list", summary: "List available migrations",
		local: func(opts options, _ *zap.Logger, _ []string) error {
			names, err := migration.ListMigrations(source(opts))
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		}},
}

func main() {
	flags := pflag.NewFlagSet("migrate", pflag.ExitOnError)
	var opts options
	flags.StringVar(&opts.dir, "path", "", "read migrations from this directory instead of the embedded set")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.BoolVar(&opts.confirm, "confirm", false, "required by drop")
	flags.Usage = func() { usage(flags) }
	_ = flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) == 0 {
		usage(flags)
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok || len(args)-1 < cmd.minArgs {
		usage(flags)
		os.Exit(2)
	}

	log, err := logger.New(config.LogConfig{Level: opts.logLevel, Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(args[0], cmd, opts, log, args[1:]); err != nil {
		log.Fatal("migrate failed", zap.String("command", args[0]), zap.Error(err))
	}
}

func run(name string, cmd command, opts options, log *zap.Logger, args []string) error {
	if cmd.local != nil {
		return cmd.local(opts, log, args)
	}
	if name == "drop" && !opts.confirm {
		return errors.New("drop needs --confirm")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.NewMigrator(db, source(opts), log)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer func() { _ = m.Close() }()
	return cmd.migrate(m, log, args)
}

func source(opts options) fs.FS {
	if opts.dir != "" {
		return os.DirFS(opts.dir)
	}
	return migrations.FS
}

func usage(flags *pflag.FlagSet) {
	fmt.Fprintln(os.Stderr, "Usage: migrate [flags] <command> [arguments]\n\nCommands:")
	for _, name := range []string{"up", "down", "steps", "goto", "version", "force", "drop", "create", "list"} {
		c := commands[name]
		fmt.Fprintf(os.Stderr, "  %-28s %s\n", c.usage, c.summary)
	}
	fmt.Fprintln(os.Stderr, "\nFlags:")
	flags.PrintDefaults()
	fmt.Fprintln(os.Stderr, "\nDatabase settings come from config.toml, .env and BACKOFFICE_DATABASE_* variables.")
}

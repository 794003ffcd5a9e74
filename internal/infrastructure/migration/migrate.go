// Package migration applies and authors the SQL schema migrations of the
// catalog database.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Migrator runs golang-migrate against one PostgreSQL database. Closing it
// also closes the *sql.DB it was built on.
type Migrator struct {
	m      *migrate.Migrate
	logger *zap.Logger
}

// Status is the schema version recorded in schema_migrations
type Status struct {
	Version uint
	Dirty   bool
}

// NewMigrator reads numbered migration pairs from the root of fsys, usually
// migrations.FS or an os.DirFS during development.
func NewMigrator(db *sql.DB, fsys fs.FS, logger *zap.Logger) (*Migrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	source, err := iofs.New(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	m.Log = zapMigrateLogger{logger.Sugar()}
	return &Migrator{m: m, logger: logger}, nil
}

// Up applies every pending migration
func (m *Migrator) Up() error { return m.apply("up", m.m.Up) }

// Down rolls back every applied migration
func (m *Migrator) Down() error { return m.apply("down", m.m.Down) }

// Steps applies n migrations, rolling back when n is negative
func (m *Migrator) Steps(n int) error {
	return m.apply(fmt.Sprintf("steps %d", n), func() error { return m.m.Steps(n) })
}

// GoTo migrates up or down to version
func (m *Migrator) GoTo(version uint) error {
	return m.apply(fmt.Sprintf("goto %d", version), func() error { return m.m.Migrate(version) })
}

// Drop removes every object in the database, migration history included
func (m *Migrator) Drop() error {
	m.logger.Warn("dropping all database objects")
	if err := m.m.Drop(); err != nil {
		return fmt.Errorf("drop database: %w", err)
	}
	return nil
}

// Force records version as applied and clean without running anything. It
// is the repair path for a dirty database.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("forcing migration version", zap.Int("version", version))
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Status reports the applied version; Version is 0 on a fresh database
func (m *Migrator) Status() (Status, error) {
	version, dirty, err := m.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return Status{}, nil
	case err != nil:
		return Status{}, fmt.Errorf("read migration version: %w", err)
	}
	return Status{Version: version, Dirty: dirty}, nil
}

// Close releases the migration source and the database handle
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}

func (m *Migrator) apply(op string, fn func() error) error {
	before, err := m.Status()
	if err != nil {
		return err
	}
	if before.Dirty {
		return fmt.Errorf("database is dirty at version %d, repair it with force", before.Version)
	}

	if err := fn(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s: %w", op, err)
	}

	after, err := m.Status()
	if err != nil {
		return err
	}
	m.logger.Info("migrations applied",
		zap.String("op", op),
		zap.Uint("from", before.Version),
		zap.Uint("to", after.Version),
	)
	return nil
}

// zapMigrateLogger routes golang-migrate's progress lines to zap at debug level
type zapMigrateLogger struct {
	s *zap.SugaredLogger
}

func (l zapMigrateLogger) Printf(format string, v ...any) {
	l.s.Debugf(strings.TrimSuffix(format, "\n"), v...)
}

func (l zapMigrateLogger) Verbose() bool {
	return l.s.Desugar().Core().Enabled(zap.DebugLevel)
}

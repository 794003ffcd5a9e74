// Package integration runs the catalog against a real PostgreSQL started with
// testcontainers. The tests are skipped with -short.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopdesk/backoffice/internal/infrastructure/config"
	"github.com/shopdesk/backoffice/internal/infrastructure/logger"
	"github.com/shopdesk/backoffice/internal/infrastructure/persistence"
	"github.com/shopdesk/backoffice/migrations"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// postgres is started on first use and shared by every test in the package.
// Tests do not run in parallel; each one starts from truncated tables.
var postgres struct {
	once      sync.Once
	container *tcpostgres.PostgresContainer
	database  *persistence.Database
	err       error
}

// TestDB is a migrated database emptied for the calling test
type TestDB struct {
	DB    *gorm.DB
	SqlDB *sql.DB
	t     *testing.T
}

// NewTestDB returns the shared database with every table truncated
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	postgres.once.Do(startPostgres)
	require.NoError(t, postgres.err, "PostgreSQL test container")

	sqlDB, err := postgres.database.DB.DB()
	require.NoError(t, err)
	tdb := &TestDB{DB: postgres.database.DB, SqlDB: sqlDB, t: t}
	tdb.truncate()
	return tdb
}

func startPostgres() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("backoffice_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	if err != nil {
		postgres.err = err
		return
	}
	postgres.container = container

	host, err := container.Host(ctx)
	if err != nil {
		postgres.err = err
		return
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		postgres.err = err
		return
	}

	level := gormlogger.Silent
	zl := zap.NewNop()
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = gormlogger.Info
		zl, _ = zap.NewDevelopment()
	}
	db, err := persistence.NewDatabase(&config.DatabaseConfig{
		Host:         host,
		Port:         port.Int(),
		User:         "postgres",
		Password:     "postgres",
		DBName:       "backoffice_test",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}, logger.NewGormLogger(zl, level))
	if err != nil {
		postgres.err = err
		return
	}
	postgres.database = db

	status, err := db.Migrate(migrations.FS, zl)
	if err == nil && (status.Dirty || status.Version == 0) {
		err = fmt.Errorf("unexpected schema state after migrating: %+v", status)
	}
	postgres.err = err
}

// stopPostgres terminates the shared container, if one was started
func stopPostgres() {
	if postgres.database != nil {
		_ = postgres.database.Close()
	}
	if postgres.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = postgres.container.Terminate(ctx)
}

// truncate empties every table but the migration history
func (tdb *TestDB) truncate() {
	tdb.t.Helper()

	var tables []string
	require.NoError(tdb.t, tdb.DB.Raw(`SELECT tablename FROM pg_tables
		WHERE schemaname = 'public' AND tablename <> 'schema_migrations'`).Scan(&tables).Error)
	if len(tables) == 0 {
		return
	}
	require.NoError(tdb.t, tdb.DB.Exec("TRUNCATE TABLE "+strings.Join(tables, ", ")+" CASCADE").Error)
}

// Count returns the number of rows in table matching the optional condition
func (tdb *TestDB) Count(table string, where string, args ...any) int64 {
	tdb.t.Helper()

	var n int64
	q := tdb.DB.Table(table)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(tdb.t, q.Count(&n).Error)
	return n
}

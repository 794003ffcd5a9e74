package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopdesk/backoffice/internal/infrastructure/config"
	"github.com/shopdesk/backoffice/internal/infrastructure/migration"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const pingTimeout = 5 * time.Second

// Database is the catalog's PostgreSQL pool
type Database struct {
	DB  *gorm.DB
	dsn string
}

// NewDatabase opens the pool described by cfg and pings it once.
// A nil gormLogger discards GORM's own logging.
func NewDatabase(cfg *config.DatabaseConfig, gormLogger logger.Interface) (*Database, error) {
	if gormLogger == nil {
		gormLogger = logger.Discard
	}
	dsn := cfg.DSN()
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Database{DB: db, dsn: dsn}, nil
}

func (d *Database) pool() (*sql.DB, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("database pool: %w", err)
	}
	return sqlDB, nil
}

// Ping backs the readiness check
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.pool()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	sqlDB, err := d.pool()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate applies the pending migrations of fsys. golang-migrate holds one
// connection until it is closed, so it gets a short-lived pool of its own
// instead of a connection from DB.
func (d *Database) Migrate(fsys fs.FS, log *zap.Logger) (migration.Status, error) {
	conn, err := sql.Open("pgx", d.dsn)
	if err != nil {
		return migration.Status{}, fmt.Errorf("open migration connection: %w", err)
	}
	migrator, err := migration.NewMigrator(conn, fsys, log)
	if err != nil {
		_ = conn.Close()
		return migration.Status{}, err
	}
	defer migrator.Close()

	if err := migrator.Up(); err != nil {
		return migration.Status{}, err
	}
	return migrator.Status()
}

package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq" // driver
	"github.com/pressly/goose/v3"

	"github.com/avstrong/hotel/internal/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Config struct {
	L               *logger.Logger
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB implements the same storage contract as the in-memory driver on top of
// PostgreSQL. Row locks stand in for the in-memory semaphores.
type DB struct {
	db *sql.DB
	l  *logger.Logger
}

func Open(ctx context.Context, conf Config) (*DB, error) {
	if conf.L == nil {
		conf.L = logger.Discard()
	}

	db, err := sql.Open("postgres", conf.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(conf.MaxOpenConns)
	db.SetMaxIdleConns(conf.MaxIdleConns)
	db.SetConnMaxLifetime(conf.ConnMaxLifetime)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return New(db, conf.L), nil
}

func New(db *sql.DB, l *logger.Logger) *DB {
	return &DB{db: db, l: l}
}

// Migrate brings the schema up to date with the embedded goose migrations.
func (db *DB) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db.db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	db.l.LogInfo("Database migrations have been applied")

	return nil
}

func (db *DB) Close() error {
	if err := db.db.Close(); err != nil {
		return fmt.Errorf("close postgres: %w", err)
	}

	return nil
}

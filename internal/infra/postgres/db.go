// Package postgres keeps the task ledger in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"errors"
	"nexus/internal/config"
	"nexus/internal/infra/postgres/migrations"

	"github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	zerologadapter "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

// DB wraps the pgx pool together with a squirrel builder that emits
// $n placeholders.
type DB struct {
	*pgxpool.Pool
	QueryBuilder squirrel.StatementBuilderType
	url          string
}

func poolConfig(cfg config.Postgres, logger zerolog.Logger) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   zerologadapter.NewLogger(logger),
		LogLevel: tracelog.LogLevelDebug,
	}
	return pc, nil
}

func New(ctx context.Context, cfg config.Postgres, logger zerolog.Logger) (*DB, error) {
	pc, err := poolConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &DB{
		Pool:         pool,
		QueryBuilder: builder(),
		url:          cfg.URL(),
	}, nil
}

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Migrate applies every pending up migration.
func Migrate(url string) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (db *DB) Migrate() error {
	return Migrate(db.url)
}

func (db *DB) Close() {
	db.Pool.Close()
}

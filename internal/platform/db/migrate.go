package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"workpulse/internal/platform/db/migrations"
)

// Migrate applies the embedded goose migrations using the pool's connections.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	// The pool owns the connections; the *sql.DB wrapper keeps no idle ones.
	sqlDB := stdlib.OpenDBFromPool(pool)

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

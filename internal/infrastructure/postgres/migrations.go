package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/akriventsev/ordering/framework/migrations"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations возвращает SQL миграции схемы сервиса
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migrate применяет все ожидающие миграции
func Migrate(ctx context.Context, dsn string, logger *slog.Logger) error {
	db, err := migrations.OpenDB(dsn)
	if err != nil {
		return err
	}

	m, err := migrations.NewMigrator(db, Migrations())
	if err != nil {
		db.Close()
		return err
	}
	defer m.Close()

	applied, err := m.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, err := m.Version(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logger.InfoContext(ctx, "database migrated", slog.Int("applied", applied), slog.Int64("version", version))
	return nil
}

// Package migrations предоставляет обертку над goose для управления миграциями схемы базы данных.
package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // регистрирует драйвер "pgx" для database/sql
	"github.com/pressly/goose/v3"
)

// MigrationStatus представляет статус миграции
type MigrationStatus struct {
	Version   int64
	Name      string
	AppliedAt *time.Time
	Status    string // "pending", "applied"
}

// Migrator применяет миграции из fs.FS через goose Provider
type Migrator struct {
	provider *goose.Provider
}

// OpenDB открывает database/sql соединение через pgx stdlib
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// NewMigrator создает мигратор PostgreSQL для миграций в fsys
func NewMigrator(db *sql.DB, fsys fs.FS) (*Migrator, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return &Migrator{provider: provider}, nil
}

// Up применяет все pending миграции и возвращает количество примененных
func (m *Migrator) Up(ctx context.Context) (int, error) {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return len(results), fmt.Errorf("failed to run migrations: %w", err)
	}
	return len(results), nil
}

// UpSteps применяет не более steps pending миграций
func (m *Migrator) UpSteps(ctx context.Context, steps int) (int, error) {
	if steps <= 0 {
		return m.Up(ctx)
	}

	applied := 0
	for ; applied < steps; applied++ {
		if _, err := m.provider.UpByOne(ctx); err != nil {
			if errors.Is(err, goose.ErrNoNextVersion) {
				break
			}
			return applied, fmt.Errorf("failed to run migrations: %w", err)
		}
	}
	return applied, nil
}

// Down откатывает steps последних миграций
func (m *Migrator) Down(ctx context.Context, steps int) (int, error) {
	if steps <= 0 {
		steps = 1
	}

	rolledBack := 0
	for ; rolledBack < steps; rolledBack++ {
		version, err := m.provider.GetDBVersion(ctx)
		if err != nil {
			return rolledBack, fmt.Errorf("failed to get current version: %w", err)
		}
		if version == 0 {
			break
		}
		if _, err := m.provider.Down(ctx); err != nil {
			return rolledBack, fmt.Errorf("failed to rollback migration: %w", err)
		}
	}
	return rolledBack, nil
}

// Status возвращает статус всех миграций
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	results, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get migration status: %w", err)
	}

	statuses := make([]MigrationStatus, 0, len(results))
	for _, r := range results {
		status := MigrationStatus{
			Version: r.Source.Version,
			Name:    filepath.Base(r.Source.Path),
			Status:  "pending",
		}
		if r.State == goose.StateApplied {
			appliedAt := r.AppliedAt
			status.AppliedAt = &appliedAt
			status.Status = "applied"
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Version возвращает текущую версию БД
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	version, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, nil
}

// HasPending проверяет наличие непримененных миграций
func (m *Migrator) HasPending(ctx context.Context) (bool, error) {
	return m.provider.HasPending(ctx)
}

// Close освобождает ресурсы провайдера
func (m *Migrator) Close() error {
	return m.provider.Close()
}

// CreateMigration создает новый файл миграции и возвращает его путь
func CreateMigration(dir, name string, now time.Time) (string, error) {
	if name == "" {
		return "", fmt.Errorf("migration name is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create migrations directory: %w", err)
	}

	// формат goose: YYYYMMDDHHMMSS_name.sql
	filename := fmt.Sprintf("%s_%s.sql", now.UTC().Format("20060102150405"), name)
	path := filepath.Join(dir, filename)

	content := fmt.Sprintf(`-- +goose Up
-- Migration: %s

-- +goose Down
-- Rollback migration: %s
`, name, name)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to create migration file: %w", err)
	}
	return path, nil
}

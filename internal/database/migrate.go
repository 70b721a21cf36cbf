// Package database はPostgreSQL接続と埋め込みマイグレーションの管理を提供する。
package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// migrations/ にはusers, sessions, notesの3テーブルを作るSQLが入っている。
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationStatus はマイグレーション適用後のスキーマ状態。
type MigrationStatus struct {
	Before  uint // 適用前のバージョン。未適用なら0
	Version uint
	Dirty   bool
}

// Applied は今回の実行で1つ以上のマイグレーションが適用されたかを返す。
func (s MigrationStatus) Applied() bool {
	return s.Version != s.Before
}

// NewMigrator は埋め込みSQLを読み込むmigrateインスタンスを生成する。
func NewMigrator(databaseURL string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

// Migrate は未適用のマイグレーションをすべて適用し、前後のバージョンを返す。
func Migrate(databaseURL string) (MigrationStatus, error) {
	var status MigrationStatus

	m, err := NewMigrator(databaseURL)
	if err != nil {
		return status, err
	}
	defer m.Close()

	if status.Before, _, err = currentVersion(m); err != nil {
		return status, err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return status, fmt.Errorf("failed to run migrations: %w", err)
	}

	if status.Version, status.Dirty, err = currentVersion(m); err != nil {
		return status, err
	}
	return status, nil
}

// RunMigrations はすべてのマイグレーションを適用する。最新の場合は何もしない。
func RunMigrations(databaseURL string) error {
	_, err := Migrate(databaseURL)
	return err
}

func currentVersion(m *migrate.Migrate) (uint, bool, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read migration version: %w", err)
	}
	return v, dirty, nil
}

package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrator 版本化 SQL 迁移，仅 PostgreSQL（部分唯一索引依赖它）
type Migrator struct{ m *migrate.Migrate }

func NewMigrator(db *gorm.DB, dbName string) (*Migrator, error) {
	if db.Dialector.Name() != "postgres" {
		return nil, fmt.Errorf("migrate: driver %q not supported, use db.autoMigrate", db.Dialector.Name())
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	drv, err := pgmigrate.WithInstance(sqlDB, &pgmigrate.Config{DatabaseName: dbName})
	if err != nil {
		return nil, fmt.Errorf("migrate driver: %w", err)
	}
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, dbName, drv)
	if err != nil {
		return nil, err
	}
	return &Migrator{m: m}, nil
}

// Up 已是最新版本时返回 nil
func (mg *Migrator) Up() error { return ignoreNoChange(mg.m.Up()) }

// Down 回滚 n 步
func (mg *Migrator) Down(n int) error {
	if n <= 0 {
		n = 1
	}
	return ignoreNoChange(mg.m.Steps(-n))
}

func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

// AutoMigrate 开发/测试环境（sqlite、mysql）用 gorm 建表
func AutoMigrate(db *gorm.DB, models ...any) error {
	return db.AutoMigrate(models...)
}

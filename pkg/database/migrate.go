package database

import (
	"embed"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Migrator 版本化 schema 管理
// 同一进程内复用一个实例：postgres 驱动会独占一条连接直到进程退出
type Migrator struct {
	mu     sync.Mutex
	m      *migrate.Migrate
	logger *zap.Logger
}

// NewMigrator 按 gorm 方言选择迁移文件目录与驱动
func NewMigrator(db *gorm.DB, logger *zap.Logger) (*Migrator, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	var (
		dir    string
		driver migratedb.Driver
	)
	switch name := db.Dialector.Name(); name {
	case "postgres":
		dir = "migrations/postgres"
		driver, err = postgres.WithInstance(sqlDB, &postgres.Config{})
	case "sqlite":
		dir = "migrations/sqlite"
		driver, err = sqlite3.WithInstance(sqlDB, &sqlite3.Config{})
	default:
		return nil, fmt.Errorf("不支持的数据库方言: %s", name)
	}
	if err != nil {
		return nil, fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	source, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("加载迁移文件失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, db.Dialector.Name(), driver)
	if err != nil {
		return nil, fmt.Errorf("初始化迁移实例失败: %w", err)
	}

	return &Migrator{m: m, logger: logger}, nil
}

// Up 应用所有未执行的迁移（幂等）
func (g *Migrator) Up() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.up()
}

// Reset 回滚全部版本后重新应用，等价于删表重建
func (g *Migrator) Reset() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("回滚迁移失败: %w", err)
	}
	g.logger.Warn("数据库 schema 已全部回滚")
	return g.up()
}

func (g *Migrator) up() error {
	if err := g.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	version, dirty, _ := g.m.Version()
	if dirty {
		g.logger.Warn("数据库迁移处于 dirty 状态", zap.Uint("version", version))
	} else {
		g.logger.Info("数据库迁移完成", zap.Uint("version", version))
	}
	return nil
}

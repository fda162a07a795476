package repository

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"supporting-smart-system/internal/model"
	"supporting-smart-system/pkg/database"
	apperrors "supporting-smart-system/pkg/errors"
)

// SchemaManager schema 生命周期：建表、首次运行填充、全局重置
type SchemaManager interface {
	// Init 应用未执行的迁移；Users 为空时写入默认数据。返回本次是否填充
	Init(ctx context.Context) (bool, error)
	// Reset 删除并重建全部表后写入默认数据，不可逆
	Reset(ctx context.Context) error
}

type gormSchema struct {
	mu       sync.Mutex
	db       *gorm.DB
	migrator *database.Migrator
	hashCost int
	logger   *zap.Logger
}

// NewSchemaManager 创建 gorm 后端的 SchemaManager
func NewSchemaManager(db *gorm.DB, migrator *database.Migrator, hashCost int, logger *zap.Logger) SchemaManager {
	return &gormSchema{db: db, migrator: migrator, hashCost: hashCost, logger: logger}
}

func (s *gormSchema) Init(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.migrator.Up(); err != nil {
		return false, apperrors.Storage("init", "schema", err)
	}

	var users int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Count(&users).Error; err != nil {
		return false, apperrors.Storage("init", model.TableUsers, err)
	}
	if users > 0 {
		return false, nil
	}

	if err := s.seed(ctx); err != nil {
		return false, err
	}
	s.logger.Info("空库已写入默认数据")
	return true, nil
}

func (s *gormSchema) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.migrator.Reset(); err != nil {
		return apperrors.Storage("reset", "schema", err)
	}
	if err := s.seed(ctx); err != nil {
		return err
	}
	s.logger.Warn("数据库已重置为默认数据")
	return nil
}

// seed 在单个事务中写入默认数据
func (s *gormSchema) seed(ctx context.Context) error {
	data, err := LoadSeed()
	if err != nil {
		return apperrors.Storage("seed", "schema", err)
	}
	recs, err := data.Records(s.hashCost)
	if err != nil {
		return apperrors.Storage("seed", model.TableUsers, err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps := []struct {
			table string
			value any
		}{
			{model.TableUsers, &recs.Users},
			{model.TableEquipment, &recs.Equipment},
			{model.TableSettings, &recs.Categories},
			{model.TableJobRequests, &recs.JobRequests},
			{model.TableAuditLogs, &recs.Audit},
		}
		for _, step := range steps {
			if err := tx.Create(step.value).Error; err != nil {
				return apperrors.Storage("seed", step.table, fmt.Errorf("写入默认数据失败: %w", err))
			}
		}
		return nil
	})
	return err
}

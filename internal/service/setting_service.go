package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"supporting-smart-system/internal/dataaccess"
	"supporting-smart-system/internal/lifecycle"
	apperrors "supporting-smart-system/pkg/errors"
)

var ErrCategoryExists = errors.New("分类已存在")

// SettingService 设备分类词表
type SettingService interface {
	Categories(ctx context.Context) ([]string, error)
	AddCategory(ctx context.Context, actor Actor, name string) ([]string, error)
}

type settingService struct {
	data   *dataaccess.Client
	cache  *snapshotCache
	logger *zap.Logger
}

// NewSettingService 创建 SettingService 实例
func NewSettingService(data *dataaccess.Client, cache *snapshotCache, logger *zap.Logger) SettingService {
	return &settingService{data: data, cache: cache, logger: logger}
}

// Categories 词表未保存过时返回默认分类
func (s *settingService) Categories(ctx context.Context) ([]string, error) {
	return loadCategories(ctx, s.data)
}

func (s *settingService) AddCategory(ctx context.Context, actor Actor, name string) ([]string, error) {
	if !lifecycle.CanManageUsers(actor.Role) {
		return nil, ErrNoPermission
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidation("name", "分类名称不能为空")
	}
	ctx = context.WithoutCancel(ctx)

	added, err := extendCategories(ctx, s.data, name)
	if err != nil {
		s.logger.Error("保存设备分类失败", zap.String("category", name), zap.Error(err))
		return nil, err
	}
	if len(added) == 0 {
		return nil, ErrCategoryExists
	}
	s.cache.refreshAfterMutation(ctx)
	return loadCategories(ctx, s.data)
}

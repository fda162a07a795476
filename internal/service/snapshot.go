package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"supporting-smart-system/internal/dataaccess"
	"supporting-smart-system/internal/dto"
	"supporting-smart-system/internal/model"
	"supporting-smart-system/internal/repository"
)

// snapshotCache 最近一次完整拉取的设备、用户与分类
// 每次变更成功后刷新；只用于展示，不参与校验（校验总是实时读取）
type snapshotCache struct {
	data   *dataaccess.Client
	logger *zap.Logger

	mu   sync.RWMutex
	snap *dto.Snapshot
}

func newSnapshotCache(data *dataaccess.Client, logger *zap.Logger) *snapshotCache {
	return &snapshotCache{data: data, logger: logger}
}

// Get 返回缓存，未加载时拉取
func (c *snapshotCache) Get(ctx context.Context) (*dto.Snapshot, error) {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	return c.Refresh(ctx)
}

// Refresh 重新拉取三个集合
func (c *snapshotCache) Refresh(ctx context.Context) (*dto.Snapshot, error) {
	equipment, err := c.data.Equipment.List(ctx)
	if err != nil {
		return nil, err
	}
	users, err := c.data.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := loadCategories(ctx, c.data)
	if err != nil {
		return nil, err
	}

	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, dto.NewUserResponse(&users[i]))
	}
	snap := &dto.Snapshot{
		Equipment:  equipment,
		Users:      out,
		Categories: categories,
		FetchedAt:  time.Now().UTC(),
	}

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
	return snap, nil
}

// refreshAfterMutation 变更后刷新，失败时丢弃旧缓存以便下次读取重新拉取
func (c *snapshotCache) refreshAfterMutation(ctx context.Context) {
	if _, err := c.Refresh(ctx); err != nil {
		c.logger.Warn("刷新数据快照失败", zap.Error(err))
		c.mu.Lock()
		c.snap = nil
		c.mu.Unlock()
	}
}

// ────────────────────── 设备分类词表 ──────────────────────

// loadCategories 读取分类词表；键不存在时返回默认分类
func loadCategories(ctx context.Context, data *dataaccess.Client) ([]string, error) {
	values, found, err := data.Settings.Get(ctx, model.SettingCategories)
	if err != nil {
		return nil, err
	}
	if !found {
		return repository.DefaultCategories(), nil
	}
	return values, nil
}

// extendCategories 把词表中没有的分类按顺序追加一次，返回实际追加的分类
func extendCategories(ctx context.Context, data *dataaccess.Client, candidates ...string) ([]string, error) {
	current, err := loadCategories(ctx, data)
	if err != nil {
		return nil, err
	}

	list := model.StringList(current)
	var added []string
	for _, c := range candidates {
		if c == "" || list.Contains(c) {
			continue
		}
		list = append(list, c)
		added = append(added, c)
	}
	if len(added) == 0 {
		return nil, nil
	}
	if err := data.Settings.Put(ctx, model.SettingCategories, list); err != nil {
		return nil, err
	}
	return added, nil
}

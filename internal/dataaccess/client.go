// Package dataaccess 是业务层访问存储后端的唯一入口：按实体分组的方法、默认分页上限，
// 以及把存储层错误统一转换为 *ApiError。它不包含任何业务规则。
package dataaccess

import (
	"context"
	"errors"
	"net/http"

	"supporting-smart-system/internal/model"
	"supporting-smart-system/internal/repository"
	apperrors "supporting-smart-system/pkg/errors"
)

// 默认列表上限，0 表示不限制
const (
	DefaultAuditLogLimit     = 100
	DefaultNotificationLimit = 20
)

// ApiError 存储访问失败，Status 为 HTTP 语义的状态码
type ApiError struct {
	Status  int
	Message string
	Err     error
}

func (e *ApiError) Error() string { return e.Message }

func (e *ApiError) Unwrap() error { return e.Err }

// AsApiError 提取错误链中的 *ApiError
func AsApiError(err error) (*ApiError, bool) {
	var ae *ApiError
	ok := errors.As(err, &ae)
	return ae, ok
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	var ae *ApiError
	if errors.As(err, &ae) {
		return err
	}

	status := http.StatusInternalServerError
	switch {
	case apperrors.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrDuplicate):
		status = http.StatusConflict
	default:
		if se, ok := apperrors.AsStorage(err); ok && se.Status != 0 {
			status = se.Status
		}
	}
	return &ApiError{Status: status, Message: err.Error(), Err: err}
}

// IsNotFound 判断是否为记录不存在
func IsNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}

// ────────────────────── Group ──────────────────────

// Group 单个实体的访问方法
type Group[T any, K comparable] struct {
	coll  repository.Collection[T, K]
	limit int
}

// List 按默认上限与存储默认排序列出全部记录
func (g *Group[T, K]) List(ctx context.Context) ([]T, error) {
	return g.Find(ctx, nil, g.limit)
}

// Find 等值筛选；limit<=0 不限制
func (g *Group[T, K]) Find(ctx context.Context, where map[string]any, limit int) ([]T, error) {
	rows, err := g.coll.List(ctx, repository.ListOptions{Limit: limit, Where: where})
	return rows, wrap(err)
}

func (g *Group[T, K]) Get(ctx context.Context, key K) (*T, error) {
	rec, err := g.coll.Get(ctx, key)
	return rec, wrap(err)
}

// Create 插入并返回主键（自增表为存储生成的 id）
func (g *Group[T, K]) Create(ctx context.Context, rec *T) (K, error) {
	key, err := g.coll.Insert(ctx, rec)
	return key, wrap(err)
}

// Update 整行覆盖
func (g *Group[T, K]) Update(ctx context.Context, rec *T) error {
	return wrap(g.coll.Replace(ctx, rec))
}

// Patch 局部更新，fields 使用 camelCase 字段名
func (g *Group[T, K]) Patch(ctx context.Context, key K, fields map[string]any) error {
	return wrap(g.coll.Patch(ctx, key, fields))
}

func (g *Group[T, K]) Delete(ctx context.Context, key K) error {
	return wrap(g.coll.Delete(ctx, key))
}

// EquipmentGroup 设备访问方法
type EquipmentGroup struct {
	Group[model.Equipment, string]
	repo repository.EquipmentRepository
}

// BulkUpsert 批量插入或覆盖，返回失败前已写入的行数
func (g *EquipmentGroup) BulkUpsert(ctx context.Context, items []model.Equipment) (int, error) {
	n, err := g.repo.BulkUpsert(ctx, items)
	return n, wrap(err)
}

// NotificationGroup 通知访问方法
type NotificationGroup struct {
	Group[model.Notification, int64]
	repo repository.NotificationRepository
}

func (g *NotificationGroup) BulkUpsert(ctx context.Context, items []model.Notification) (int, error) {
	n, err := g.repo.BulkUpsert(ctx, items)
	return n, wrap(err)
}

// SettingGroup 键值配置访问方法
type SettingGroup struct {
	repo repository.SettingRepository
}

// Get 读取某个键的列表；键不存在时 found=false 且不返回错误
func (g *SettingGroup) Get(ctx context.Context, id string) ([]string, bool, error) {
	s, err := g.repo.Get(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, wrap(err)
	}
	return []string(s.Values), true, nil
}

// Put 整份覆盖某个键
func (g *SettingGroup) Put(ctx context.Context, id string, values []string) error {
	return wrap(g.repo.Put(ctx, &model.Setting{ID: id, Values: model.StringList(values)}))
}

// SchemaGroup 建表与重置
type SchemaGroup struct {
	schema repository.SchemaManager
}

// Init 建表并在空库时写入默认数据，返回是否写入
func (g *SchemaGroup) Init(ctx context.Context) (bool, error) {
	seeded, err := g.schema.Init(ctx)
	return seeded, wrap(err)
}

// Reset 清空全部数据并重新写入默认数据
func (g *SchemaGroup) Reset(ctx context.Context) error {
	return wrap(g.schema.Reset(ctx))
}

// ────────────────────── Client ──────────────────────

// Client 存储访问客户端，gorm 与远程后端共用
type Client struct {
	Equipment     *EquipmentGroup
	Users         *Group[model.User, string]
	AuditLogs     *Group[model.AuditLog, int64]
	Notifications *NotificationGroup
	Events        *Group[model.CalendarEvent, int64]
	JobRequests   *Group[model.JobRequest, int64]
	Settings      *SettingGroup
	Schema        *SchemaGroup
}

// New 基于 Repository 聚合创建客户端
func New(repo *repository.Repository) *Client {
	return &Client{
		Equipment:     &EquipmentGroup{Group: Group[model.Equipment, string]{coll: repo.Equipment}, repo: repo.Equipment},
		Users:         &Group[model.User, string]{coll: repo.User},
		AuditLogs:     &Group[model.AuditLog, int64]{coll: repo.AuditLog, limit: DefaultAuditLogLimit},
		Notifications: &NotificationGroup{Group: Group[model.Notification, int64]{coll: repo.Notification, limit: DefaultNotificationLimit}, repo: repo.Notification},
		Events:        &Group[model.CalendarEvent, int64]{coll: repo.Event},
		JobRequests:   &Group[model.JobRequest, int64]{coll: repo.JobRequest},
		Settings:      &SettingGroup{repo: repo.Setting},
		Schema:        &SchemaGroup{schema: repo.Schema},
	}
}

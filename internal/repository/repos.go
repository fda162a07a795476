package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"supporting-smart-system/internal/model"
)

// UserRepository 用户数据访问接口
type UserRepository = Collection[model.User, string]

// AuditLogRepository 审计日志数据访问接口（业务流程只追加）
type AuditLogRepository = Collection[model.AuditLog, int64]

// EventRepository 维护日程数据访问接口
type EventRepository = Collection[model.CalendarEvent, int64]

// JobRequestRepository 工单数据访问接口
type JobRequestRepository = Collection[model.JobRequest, int64]

// EquipmentRepository 设备数据访问接口
type EquipmentRepository interface {
	Collection[model.Equipment, string]
	// BulkUpsert 批量插入或覆盖，按顺序逐行写入，失败时已写入的行保留
	BulkUpsert(ctx context.Context, items []model.Equipment) (int, error)
}

// NotificationRepository 通知数据访问接口
type NotificationRepository interface {
	Collection[model.Notification, int64]
	BulkUpsert(ctx context.Context, items []model.Notification) (int, error)
}

// SettingRepository 键值配置数据访问接口
type SettingRepository interface {
	Collection[model.Setting, string]
	// Put 以整份列表覆盖某个键（不合并），键不存在时创建
	Put(ctx context.Context, s *model.Setting) error
}

type equipmentRepo struct {
	*gormCollection[model.Equipment, string]
}

// NewEquipmentRepo 创建 EquipmentRepository 实例
func NewEquipmentRepo(db *gorm.DB) EquipmentRepository {
	return &equipmentRepo{newCollection(db, model.EquipmentTable, func(e *model.Equipment) string { return e.ID })}
}

func (r *equipmentRepo) BulkUpsert(ctx context.Context, items []model.Equipment) (int, error) {
	return r.bulkUpsert(ctx, items)
}

type notificationRepo struct {
	*gormCollection[model.Notification, int64]
}

// NewNotificationRepo 创建 NotificationRepository 实例
func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{newCollection(db, model.NotificationTable, func(n *model.Notification) int64 { return n.ID })}
}

func (r *notificationRepo) BulkUpsert(ctx context.Context, items []model.Notification) (int, error) {
	return r.bulkUpsert(ctx, items)
}

type settingRepo struct {
	*gormCollection[model.Setting, string]
}

// NewSettingRepo 创建 SettingRepository 实例
func NewSettingRepo(db *gorm.DB) SettingRepository {
	return &settingRepo{newCollection(db, model.SettingTable, func(s *model.Setting) string { return s.ID })}
}

func (r *settingRepo) Put(ctx context.Context, s *model.Setting) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value_list"}),
		}).
		Create(s).Error
	if err != nil {
		return r.fail("put", err)
	}
	return nil
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return newCollection(db, model.UserTable, func(u *model.User) string { return u.ID })
}

// NewAuditLogRepo 创建 AuditLogRepository 实例
func NewAuditLogRepo(db *gorm.DB) AuditLogRepository {
	return newCollection(db, model.AuditLogTable, func(a *model.AuditLog) int64 { return a.ID })
}

// NewEventRepo 创建 EventRepository 实例
func NewEventRepo(db *gorm.DB) EventRepository {
	return newCollection(db, model.EventTable, func(e *model.CalendarEvent) int64 { return e.ID })
}

// NewJobRequestRepo 创建 JobRequestRepository 实例
func NewJobRequestRepo(db *gorm.DB) JobRequestRepository {
	return newCollection(db, model.JobRequestTable, func(j *model.JobRequest) int64 { return j.ID })
}

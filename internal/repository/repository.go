package repository

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"supporting-smart-system/pkg/database"
)

// Repository 所有 Repository 的聚合入口
// gorm 与远程 HTTP 两种后端都以该结构交付给上层，启动时按配置选择
type Repository struct {
	Equipment    EquipmentRepository
	User         UserRepository
	AuditLog     AuditLogRepository
	Notification NotificationRepository
	Event        EventRepository
	JobRequest   JobRequestRepository
	Setting      SettingRepository
	Schema       SchemaManager
}

// NewRepository 创建 gorm 后端的 Repository 聚合（sqlite 或 postgres）
func NewRepository(db *gorm.DB, migrator *database.Migrator, hashCost int, logger *zap.Logger) *Repository {
	return &Repository{
		Equipment:    NewEquipmentRepo(db),
		User:         NewUserRepo(db),
		AuditLog:     NewAuditLogRepo(db),
		Notification: NewNotificationRepo(db),
		Event:        NewEventRepo(db),
		JobRequest:   NewJobRequestRepo(db),
		Setting:      NewSettingRepo(db),
		Schema:       NewSchemaManager(db, migrator, hashCost, logger),
	}
}

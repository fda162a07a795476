package handler

import "supporting-smart-system/internal/service"

// Handler 应用 API（/api/v1）所有 Handler 的聚合入口
// 存储接口（/data, /init）的 DataHandler 直接基于 Repository，单独创建
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Equipment    *EquipmentHandler
	Export       *ExportHandler
	Event        *EventHandler
	JobRequest   *JobRequestHandler
	Notification *NotificationHandler
	System       *SystemHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.User),
		Equipment:    NewEquipmentHandler(svc.Equipment),
		Export:       NewExportHandler(svc.Export, svc.Equipment),
		Event:        NewEventHandler(svc.Event),
		JobRequest:   NewJobRequestHandler(svc.JobRequest),
		Notification: NewNotificationHandler(svc.Notification, svc.AuditLog),
		System:       NewSystemHandler(svc),
	}
}

package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"supporting-smart-system/internal/dataaccess"
	"supporting-smart-system/internal/lifecycle"
	"supporting-smart-system/internal/model"
)

// ── 通知与审计模块业务错误 ──

var ErrNotificationNotFound = errors.New("通知不存在")

// NotificationService 通知业务接口
type NotificationService interface {
	List(ctx context.Context, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) (int, error)
	Delete(ctx context.Context, id int64) error
}

type notificationService struct {
	data   *dataaccess.Client
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(data *dataaccess.Client, logger *zap.Logger) NotificationService {
	return &notificationService{data: data, logger: logger}
}

// List limit<=0 时使用默认上限 20
func (s *notificationService) List(ctx context.Context, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		return s.data.Notifications.List(ctx)
	}
	return s.data.Notifications.Find(ctx, nil, limit)
}

func (s *notificationService) MarkRead(ctx context.Context, id int64) error {
	err := s.data.Notifications.Patch(ctx, id, map[string]any{"isRead": true})
	if dataaccess.IsNotFound(err) {
		return ErrNotificationNotFound
	}
	return err
}

// MarkAllRead 把全部未读通知整批写回为已读，返回写入条数
func (s *notificationService) MarkAllRead(ctx context.Context) (int, error) {
	unread, err := s.data.Notifications.Find(ctx, map[string]any{"isRead": false}, 0)
	if err != nil {
		s.logger.Error("读取未读通知失败", zap.Error(err))
		return 0, err
	}
	if len(unread) == 0 {
		return 0, nil
	}
	for i := range unread {
		unread[i].IsRead = true
	}

	n, err := s.data.Notifications.BulkUpsert(context.WithoutCancel(ctx), unread)
	if err != nil {
		s.logger.Error("标记全部已读失败", zap.Int("written", n), zap.Error(err))
	}
	return n, err
}

func (s *notificationService) Delete(ctx context.Context, id int64) error {
	err := s.data.Notifications.Delete(ctx, id)
	if dataaccess.IsNotFound(err) {
		return ErrNotificationNotFound
	}
	return err
}

// ────────────────────── 审计日志 ──────────────────────

// AuditLogService 审计日志只读接口
type AuditLogService interface {
	List(ctx context.Context, actor Actor, targetID string, limit int) ([]model.AuditLog, error)
}

type auditLogService struct {
	data   *dataaccess.Client
	logger *zap.Logger
}

// NewAuditLogService 创建 AuditLogService 实例
func NewAuditLogService(data *dataaccess.Client, logger *zap.Logger) AuditLogService {
	return &auditLogService{data: data, logger: logger}
}

// List 按时间倒序列出审计日志；limit<=0 时使用默认上限 100
func (s *auditLogService) List(ctx context.Context, actor Actor, targetID string, limit int) ([]model.AuditLog, error) {
	if !lifecycle.CanViewAudit(actor.Role) {
		return nil, ErrNoPermission
	}
	if limit <= 0 {
		limit = dataaccess.DefaultAuditLogLimit
	}
	var where map[string]any
	if targetID != "" {
		where = map[string]any{"targetId": targetID}
	}
	logs, err := s.data.AuditLogs.Find(ctx, where, limit)
	if err != nil {
		s.logger.Error("列出审计日志失败", zap.Error(err))
		return nil, err
	}
	return logs, nil
}

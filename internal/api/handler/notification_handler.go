package handler

import (
	"github.com/gin-gonic/gin"

	"supporting-smart-system/internal/service"
	"supporting-smart-system/pkg/response"
)

// NotificationHandler 通知与审计日志 HTTP 处理器
type NotificationHandler struct {
	notificationSvc service.NotificationService
	auditSvc        service.AuditLogService
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(notificationSvc service.NotificationService, auditSvc service.AuditLogService) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc, auditSvc: auditSvc}
}

// ListNotifications 最新通知（默认 20 条）
// GET /api/v1/notifications?limit=
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	list, err := h.notificationSvc.List(c.Request.Context(), limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKList(c, list, len(list))
}

// MarkRead 标记单条已读
// PATCH /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}

	if err := h.notificationSvc.MarkRead(c.Request.Context(), id); err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, nil)
}

// MarkAllRead 全部标记已读
// POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.notificationSvc.MarkAllRead(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"updated": n})
}

// DeleteNotification 删除通知
// DELETE /api/v1/notifications/:id
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}

	if err := h.notificationSvc.Delete(c.Request.Context(), id); err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListAuditLogs 审计日志（默认 100 条，可按 targetId 筛选）
// GET /api/v1/audit-logs?targetId=&limit=
func (h *NotificationHandler) ListAuditLogs(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	logs, err := h.auditSvc.List(c.Request.Context(), actor, c.Query("targetId"), limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKList(c, logs, len(logs))
}

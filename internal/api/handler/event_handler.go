package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"supporting-smart-system/internal/dto"
	"supporting-smart-system/internal/service"
	"supporting-smart-system/pkg/response"
)

// EventHandler 维护日程 HTTP 处理器
type EventHandler struct {
	eventSvc service.EventService
}

// NewEventHandler 创建 EventHandler
func NewEventHandler(eventSvc service.EventService) *EventHandler {
	return &EventHandler{eventSvc: eventSvc}
}

// ListEvents 日程列表
// GET /api/v1/events
func (h *EventHandler) ListEvents(c *gin.Context) {
	events, err := h.eventSvc.List(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKList(c, events, len(events))
}

// CreateEvent 新增日程
// POST /api/v1/events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	ev, err := h.eventSvc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, ev)
}

// UpdateEvent 修改日程
// PUT /api/v1/events/:id
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}

	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	ev, err := h.eventSvc.Update(c.Request.Context(), actor, id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, ev)
}

// DeleteEvent 删除日程
// DELETE /api/v1/events/:id
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}

	if err := h.eventSvc.Delete(c.Request.Context(), actor, id); err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, nil)
}

// ExportICS 导出 iCalendar 订阅文件
// GET /api/v1/events/export.ics
func (h *EventHandler) ExportICS(c *gin.Context) {
	body, err := h.eventSvc.ExportICS(c.Request.Context(), c.Request.Host)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=maintenance.ics")
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

// ImportICS 从 .ics 文件导入日程
// POST /api/v1/events/import?type=Maintenance&equipmentId=...（multipart 字段 file）
func (h *EventHandler) ImportICS(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "缺少 .ics 文件")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, 10001, "无法读取 .ics 文件")
		return
	}
	defer f.Close()

	var equipmentID *string
	if v := c.Query("equipmentId"); v != "" {
		equipmentID = &v
	}

	n, err := h.eventSvc.ImportICS(c.Request.Context(), actor, f, c.DefaultQuery("type", "Maintenance"), equipmentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"imported": n})
}

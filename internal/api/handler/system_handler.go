package handler

import (
	"github.com/gin-gonic/gin"

	"supporting-smart-system/internal/dto"
	"supporting-smart-system/internal/service"
	"supporting-smart-system/pkg/response"
)

// SystemHandler 系统设置、看板、助手与全局重置
type SystemHandler struct {
	settingSvc   service.SettingService
	dashboardSvc service.DashboardService
	assistantSvc service.AssistantService
	systemSvc    service.SystemService
}

// NewSystemHandler 创建 SystemHandler
func NewSystemHandler(svc *service.Service) *SystemHandler {
	return &SystemHandler{
		settingSvc:   svc.Setting,
		dashboardSvc: svc.Dashboard,
		assistantSvc: svc.Assistant,
		systemSvc:    svc.System,
	}
}

// ── 设备分类 ──

// ListCategories 设备分类词表
// GET /api/v1/settings/categories
func (h *SystemHandler) ListCategories(c *gin.Context) {
	list, err := h.settingSvc.Categories(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, list)
}

// AddCategory 追加设备分类
// POST /api/v1/settings/categories
func (h *SystemHandler) AddCategory(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.settingSvc.AddCategory(c.Request.Context(), actor, req.Name)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, list)
}

// ── 看板 ──

// DashboardStats 设备统计
// GET /api/v1/dashboard/stats
func (h *SystemHandler) DashboardStats(c *gin.Context) {
	stats, err := h.dashboardSvc.Stats(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, stats)
}

// ── 助手 ──

// Ask 实验室助手问答
// POST /api/v1/assistant/ask
func (h *SystemHandler) Ask(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	answer, err := h.assistantSvc.Ask(c.Request.Context(), actor, req.Query)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, answer)
}

// AssistantContext 助手使用的设备摘要
// GET /api/v1/assistant/snapshot
func (h *SystemHandler) AssistantContext(c *gin.Context) {
	items, err := h.assistantSvc.Context(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKList(c, items, len(items))
}

// ── 系统 ──

// Init 建表并在空库时写入默认数据
// POST /api/v1/system/init
func (h *SystemHandler) Init(c *gin.Context) {
	result, err := h.systemSvc.Init(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// ResetChallenge 申请全局重置确认令牌
// POST /api/v1/system/reset/challenge
func (h *SystemHandler) ResetChallenge(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.systemSvc.ResetChallenge(c.Request.Context(), actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// Reset 确认全局重置
// POST /api/v1/system/reset
func (h *SystemHandler) Reset(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.systemSvc.Reset(c.Request.Context(), actor, req.ConfirmToken); err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, nil)
}

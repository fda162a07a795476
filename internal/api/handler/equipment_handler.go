package handler

import (
	"github.com/gin-gonic/gin"

	"supporting-smart-system/internal/dto"
	"supporting-smart-system/internal/service"
	"supporting-smart-system/pkg/response"
)

// EquipmentHandler 设备模块 HTTP 处理器
//
// 设备编号可能包含 "/"（如 SIG/FNA/ALB/AP-1096），路由使用 *id 通配参数
type EquipmentHandler struct {
	equipmentSvc service.EquipmentService
}

// NewEquipmentHandler 创建 EquipmentHandler
func NewEquipmentHandler(equipmentSvc service.EquipmentService) *EquipmentHandler {
	return &EquipmentHandler{equipmentSvc: equipmentSvc}
}

// equipmentID 去掉通配参数的前导 "/"
func equipmentID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	for len(id) > 0 && id[0] == '/' {
		id = id[1:]
	}
	if id == "" {
		response.BadRequest(c, 10001, "设备编号不能为空")
		return "", false
	}
	return id, true
}

// ListEquipment 设备列表
// GET /api/v1/equipment
func (h *EquipmentHandler) ListEquipment(c *gin.Context) {
	items, err := h.equipmentSvc.List(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKList(c, items, len(items))
}

// Snapshot 设备、用户、分类的一次性快照
// GET /api/v1/equipment/snapshot
func (h *EquipmentHandler) Snapshot(c *gin.Context) {
	snap, err := h.equipmentSvc.Snapshot(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, snap)
}

// GetEquipment 设备详情
// GET /api/v1/equipment/item/*id
func (h *EquipmentHandler) GetEquipment(c *gin.Context) {
	id, ok := equipmentID(c)
	if !ok {
		return
	}

	item, err := h.equipmentSvc.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, item)
}

// History 设备履历（审计 + 关联日程）
// GET /api/v1/equipment/history/*id
func (h *EquipmentHandler) History(c *gin.Context) {
	id, ok := equipmentID(c)
	if !ok {
		return
	}

	entries, err := h.equipmentSvc.History(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKList(c, entries, len(entries))
}

// CreateEquipment 新增设备
// POST /api/v1/equipment
func (h *EquipmentHandler) CreateEquipment(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.EquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	item, err := h.equipmentSvc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, item)
}

// UpdateEquipment 整体更新设备
// PUT /api/v1/equipment/item/*id
func (h *EquipmentHandler) UpdateEquipment(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := equipmentID(c)
	if !ok {
		return
	}

	var req dto.EquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	item, err := h.equipmentSvc.Update(c.Request.Context(), actor, id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, item)
}

// DeleteEquipment 删除设备
// DELETE /api/v1/equipment/item/*id
func (h *EquipmentHandler) DeleteEquipment(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := equipmentID(c)
	if !ok {
		return
	}

	if err := h.equipmentSvc.Delete(c.Request.Context(), actor, id); err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, nil)
}

package handler

import (
	"github.com/gin-gonic/gin"

	"supporting-smart-system/internal/dto"
	"supporting-smart-system/internal/service"
	"supporting-smart-system/pkg/response"
)

// JobRequestHandler 工单模块 HTTP 处理器
type JobRequestHandler struct {
	jobSvc service.JobRequestService
}

// NewJobRequestHandler 创建 JobRequestHandler
func NewJobRequestHandler(jobSvc service.JobRequestService) *JobRequestHandler {
	return &JobRequestHandler{jobSvc: jobSvc}
}

// ListJobRequests 工单列表
// GET /api/v1/job-requests
func (h *JobRequestHandler) ListJobRequests(c *gin.Context) {
	jobs, err := h.jobSvc.List(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKList(c, jobs, len(jobs))
}

// CreateJobRequest 提交工单
// POST /api/v1/job-requests
func (h *JobRequestHandler) CreateJobRequest(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.JobRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	job, err := h.jobSvc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, job)
}

// UpdateJobRequest 修改工单内容
// PUT /api/v1/job-requests/:id
func (h *JobRequestHandler) UpdateJobRequest(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}

	var req dto.JobRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	job, err := h.jobSvc.UpdateContent(c.Request.Context(), actor, id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, job)
}

// ChangeStatus 推进工单状态
// PATCH /api/v1/job-requests/:id/status
func (h *JobRequestHandler) ChangeStatus(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}

	var req dto.JobStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	job, err := h.jobSvc.ChangeStatus(c.Request.Context(), actor, id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, job)
}

// DeleteJobRequest 删除工单
// DELETE /api/v1/job-requests/:id
func (h *JobRequestHandler) DeleteJobRequest(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}

	if err := h.jobSvc.Delete(c.Request.Context(), actor, id); err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, nil)
}

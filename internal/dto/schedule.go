package dto

import "time"

// ── 维护日程 DTO ──

// EventRequest 新增 / 编辑维护日程请求
type EventRequest struct {
	Title       string    `json:"title"       binding:"required,max=200"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"startDate"   binding:"required"`
	EndDate     time.Time `json:"endDate"     binding:"required"`
	Type        string    `json:"type"        binding:"required"`
	EquipmentID *string   `json:"equipmentId"`
}

// ── 工单 DTO ──

// JobRequestRequest 提交 / 编辑工单内容
// 状态不在此处修改，见 JobStatusRequest
type JobRequestRequest struct {
	Title        string  `json:"title"        binding:"required,max=200"`
	Division     string  `json:"division"     binding:"required"`
	Description  string  `json:"description"`
	Category     *string `json:"category"`
	StartDate    string  `json:"startDate"`
	DueDate      string  `json:"dueDate"`
	AssignedToID string  `json:"assignedToId" binding:"required"`
}

// JobStatusRequest 推进工单状态
type JobStatusRequest struct {
	Status            string `json:"status"            binding:"required"`
	CompletionComment string `json:"completionComment"`
}

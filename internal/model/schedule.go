package model

import (
	"time"

	"gorm.io/gorm"
)

// CalendarEvent 维护日程表 — 对应 events
// EquipmentID 与 CreatedBy 为弱引用，不做外键约束
type CalendarEvent struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"column:title;not null"              json:"title"`
	Description string    `gorm:"column:description"                 json:"description"`
	StartDate   time.Time `gorm:"column:start_date;not null"         json:"startDate"`
	EndDate     time.Time `gorm:"column:end_date;not null"           json:"endDate"`
	Type        string    `gorm:"column:type;not null"               json:"type"`
	EquipmentID *string   `gorm:"column:equipment_id"                json:"equipmentId,omitempty"`
	CreatedBy   string    `gorm:"column:created_by"                  json:"createdBy"`
}

// TableName 指定表名
func (CalendarEvent) TableName() string { return "events" }

// JobRequest 工单表 — 对应 job_requests
type JobRequest struct {
	ID                int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title             string    `gorm:"column:title;not null"              json:"title"`
	RequestorID       string    `gorm:"column:requestor_id;not null"       json:"requestorId"`
	RequestorName     string    `gorm:"column:requestor_name"              json:"requestorName"`
	Division          string    `gorm:"column:division"                    json:"division"`
	Description       string    `gorm:"column:description"                 json:"description"`
	Category          *string   `gorm:"column:category"                    json:"category,omitempty"`
	RequestedAt       time.Time `gorm:"column:requested_at"                json:"requestedAt"`
	StartDate         string    `gorm:"column:start_date"                  json:"startDate"`
	DueDate           string    `gorm:"column:due_date"                    json:"dueDate"`
	AssignedToID      string    `gorm:"column:assigned_to_id"              json:"assignedToId"`
	Status            string    `gorm:"column:status;not null"             json:"status"`
	CompletionComment string    `gorm:"column:completion_comment"          json:"completionComment"`
}

// TableName 指定表名
func (JobRequest) TableName() string { return "job_requests" }

// BeforeCreate 补齐提交时间
func (j *JobRequest) BeforeCreate(*gorm.DB) error {
	if j.RequestedAt.IsZero() {
		j.RequestedAt = time.Now().UTC()
	}
	return nil
}

// Setting 键值配置表 — 对应 settings，每个键一份完整列表
type Setting struct {
	ID     string     `gorm:"column:id;primaryKey"  json:"id"`
	Values StringList `gorm:"column:value_list"     json:"values"`
}

// TableName 指定表名
func (Setting) TableName() string { return "settings" }

package model

import (
	"time"

	"gorm.io/gorm"
)

// AuditLog 审计日志表 — 对应 audit_logs，只追加
type AuditLog struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Action     string    `gorm:"column:action;not null"             json:"action"`
	TargetID   string    `gorm:"column:target_id"                   json:"targetId"`
	TargetName string    `gorm:"column:target_name"                 json:"targetName"`
	UserID     string    `gorm:"column:user_id"                     json:"userId"`
	UserName   string    `gorm:"column:user_name"                   json:"userName"`
	Timestamp  time.Time `gorm:"column:timestamp"                   json:"timestamp"`
	Details    string    `gorm:"column:details"                     json:"details"`
}

// TableName 指定表名
func (AuditLog) TableName() string { return "audit_logs" }

// BeforeCreate 补齐时间戳
func (a *AuditLog) BeforeCreate(*gorm.DB) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	return nil
}

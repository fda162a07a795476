package model

import (
	"time"

	"gorm.io/gorm"
)

// Notification 通知表 — 对应 notifications，由审计日志派生
type Notification struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title     string    `gorm:"column:title;not null"              json:"title"`
	Message   string    `gorm:"column:message"                     json:"message"`
	Timestamp time.Time `gorm:"column:timestamp"                   json:"timestamp"`
	IsRead    bool      `gorm:"column:is_read"                     json:"isRead"`
	Type      string    `gorm:"column:type"                        json:"type"`
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }

// BeforeCreate 补齐时间戳
func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	if n.Type == "" {
		n.Type = NotificationSystem
	}
	return nil
}

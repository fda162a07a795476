package model

import "time"

// User 用户表 — 对应 users
// PasswordHash 只在存储接口上以 password 字段传输，应用 API 通过 dto 过滤
type User struct {
	ID           string     `gorm:"column:id;primaryKey"          json:"id"`
	Name         string     `gorm:"column:name;not null"          json:"name"`
	Email        string     `gorm:"column:email;not null;unique"  json:"email"`
	Role         string     `gorm:"column:role;not null"          json:"role"`
	Avatar       string     `gorm:"column:avatar"                 json:"avatar"`
	PasswordHash string     `gorm:"column:password_hash"          json:"password,omitempty"`
	Status       string     `gorm:"column:status;not null"        json:"status"`
	CreatedAt    time.Time  `gorm:"column:created_at"             json:"createdAt"`
	LastLogin    *time.Time `gorm:"column:last_login"             json:"lastLogin,omitempty"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsActive 空状态视为 active（本地存储历史数据没有 status 列）
func (u *User) IsActive() bool {
	return u.Status == "" || u.Status == UserStatusActive
}

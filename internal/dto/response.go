package dto

import (
	"time"

	"supporting-smart-system/internal/model"
)

// ── 认证模块响应 ──

// TokenResponse Token 对响应
type TokenResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int          `json:"expiresIn"` // Access Token 有效期（秒）
	User         UserResponse `json:"user"`
}

// ── 用户模块响应 ──

// UserResponse 用户信息响应（不含密码）
type UserResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Avatar    string     `json:"avatar"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

// NewUserResponse 由用户模型构造脱敏响应
func NewUserResponse(u *model.User) UserResponse {
	status := u.Status
	if status == "" {
		status = model.UserStatusActive
	}
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Avatar:    u.Avatar,
		Status:    status,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}

// ── 设备模块响应 ──

// ImportResult 批量导入结果
type ImportResult struct {
	Total         int      `json:"total"`
	Written       int      `json:"written"`
	NewCategories []string `json:"newCategories,omitempty"`
}

// HistoryEntry 设备履历：审计记录与关联日程合并，按时间倒序
type HistoryEntry struct {
	Kind      string    `json:"kind"` // audit | event
	Timestamp time.Time `json:"timestamp"`
	Title     string    `json:"title"`
	Action    string    `json:"action,omitempty"`
	EventType string    `json:"eventType,omitempty"`
	UserName  string    `json:"userName,omitempty"`
	Details   string    `json:"details,omitempty"`
}

// Snapshot 一次完整拉取的设备、用户与分类
type Snapshot struct {
	Equipment  []model.Equipment `json:"equipment"`
	Users      []UserResponse    `json:"users"`
	Categories []string          `json:"categories"`
	FetchedAt  time.Time         `json:"fetchedAt"`
}

// DashboardStats 看板统计
type DashboardStats struct {
	Total            int            `json:"total"`
	InService        int            `json:"inService"`
	NeedsCalibration int            `json:"needsCalibration"`
	Unused           int            `json:"unused"`
	ByStatus         map[string]int `json:"byStatus"`
	ByDivision       map[string]int `json:"byDivision"`
	ByCategory       map[string]int `json:"byCategory"`
}

// ── 日程与工单响应 ──

// EventResponse 日程及创建人显示名
type EventResponse struct {
	model.CalendarEvent
	CreatedByName string `json:"createdByName"`
}

// JobRequestResponse 工单及指派人显示名
type JobRequestResponse struct {
	model.JobRequest
	AssignedToName string `json:"assignedToName"`
}

// ── 系统模块响应 ──

// InitResponse 初始化结果
type InitResponse struct {
	Seeded bool `json:"seeded"`
}

// ResetChallengeResponse 全局重置二次确认令牌
type ResetChallengeResponse struct {
	ConfirmToken string    `json:"confirmToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// AssistantAnswer 助手回答；Fallback 为 true 表示外部服务不可用时的固定回复
type AssistantAnswer struct {
	Answer   string `json:"answer"`
	Fallback bool   `json:"fallback"`
}

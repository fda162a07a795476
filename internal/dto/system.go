package dto

// ── 系统模块 DTO ──

// ResetRequest 全局重置确认
type ResetRequest struct {
	ConfirmToken string `json:"confirmToken" binding:"required"`
}

// AskRequest 助手提问
type AskRequest struct {
	Query string `json:"query" binding:"required,max=2000"`
}

package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Email      string `json:"email"      binding:"required,email"`
	Password   string `json:"password"   binding:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// RegisterRequest 自助注册请求（注册用户固定为 Analyst）
type RegisterRequest struct {
	Name     string `json:"name"     binding:"required,min=2,max=60"`
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Avatar   string `json:"avatar"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// LogoutRequest 登出请求，refreshToken 可选，提供时一并作废
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

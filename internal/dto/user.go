package dto

// ── 用户模块 DTO ──

// CreateUserRequest 管理员创建用户请求
type CreateUserRequest struct {
	Name     string `json:"name"     binding:"required,min=2,max=60"`
	Email    string `json:"email"    binding:"required,email"`
	Role     string `json:"role"     binding:"required"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Avatar   string `json:"avatar"`
}

// UpdateUserRequest 更新用户信息请求（仅更新非 nil 字段）
type UpdateUserRequest struct {
	Name     *string `json:"name"     binding:"omitempty,min=2,max=60"`
	Email    *string `json:"email"    binding:"omitempty,email"`
	Role     *string `json:"role"`
	Avatar   *string `json:"avatar"`
	Status   *string `json:"status"   binding:"omitempty,oneof=active inactive"`
	Password *string `json:"password" binding:"omitempty,min=6,max=72"`
}

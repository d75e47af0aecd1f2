package dto

// ── 用户模块 DTO ──

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	OrganizationID *uint  `form:"organization_id" binding:"omitempty,min=1"`
	Role           string `form:"role"            binding:"omitempty,oneof=super_user admin teacher"`
	Keyword        string `form:"keyword"         binding:"omitempty,max=50"`
}

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	FullName       string `json:"full_name"       binding:"required,min=2,max=100"`
	Email          string `json:"email"           binding:"required,email,max=120"`
	Password       string `json:"password"        binding:"required,min=8,max=72"`
	Role           string `json:"role"            binding:"required,oneof=super_user admin teacher"`
	OrganizationID *uint  `json:"organization_id" binding:"omitempty,min=1"`
}

// UpdateUserRequest 更新用户请求（字段为空表示不修改）
type UpdateUserRequest struct {
	FullName       *string `json:"full_name"       binding:"omitempty,min=2,max=100"`
	Email          *string `json:"email"           binding:"omitempty,email,max=120"`
	Password       *string `json:"password"        binding:"omitempty,min=8,max=72"`
	Role           *string `json:"role"            binding:"omitempty,oneof=super_user admin teacher"`
	OrganizationID *uint   `json:"organization_id" binding:"omitempty,min=1"`
}

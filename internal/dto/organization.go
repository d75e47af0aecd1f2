package dto

// ── 学校模块 DTO ──

// CreateOrganizationRequest 创建学校请求
type CreateOrganizationRequest struct {
	Name    string `json:"name"    binding:"required,max=255"`
	Address string `json:"address" binding:"omitempty,max=1000"`
}

// UpdateOrganizationRequest 更新学校请求
type UpdateOrganizationRequest struct {
	Name    *string `json:"name"    binding:"omitempty,min=1,max=255"`
	Address *string `json:"address" binding:"omitempty,max=1000"`
}

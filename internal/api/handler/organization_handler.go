package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mijwadul/Belajar/internal/dto"
	"github.com/mijwadul/Belajar/internal/service"
	"github.com/mijwadul/Belajar/pkg/response"
)

// OrganizationHandler 学校模块 HTTP 处理器
type OrganizationHandler struct {
	orgSvc service.OrganizationService
}

// NewOrganizationHandler 创建 OrganizationHandler
func NewOrganizationHandler(orgSvc service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgSvc: orgSvc}
}

// ListOrganizations 学校列表
// GET /api/v1/organizations
func (h *OrganizationHandler) ListOrganizations(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	orgs, err := h.orgSvc.List(c.Request.Context(), p)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, gin.H{"list": orgs})
}

// GetOrganization 学校详情
// GET /api/v1/organizations/:id
func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	org, err := h.orgSvc.GetByID(c.Request.Context(), p, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, org)
}

// CreateOrganization 创建学校（超级管理员）
// POST /api/v1/organizations
func (h *OrganizationHandler) CreateOrganization(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var req dto.CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
		return
	}

	org, err := h.orgSvc.Create(c.Request.Context(), p, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, org)
}

// UpdateOrganization 更新学校（超级管理员）
// PUT /api/v1/organizations/:id
func (h *OrganizationHandler) UpdateOrganization(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
		return
	}

	org, err := h.orgSvc.Update(c.Request.Context(), p, id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, org)
}

// DeleteOrganization 删除学校（超级管理员）
// DELETE /api/v1/organizations/:id
func (h *OrganizationHandler) DeleteOrganization(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.orgSvc.Delete(c.Request.Context(), p, id); err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, nil)
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mijwadul/Belajar/internal/dto"
	"github.com/mijwadul/Belajar/internal/service"
	"github.com/mijwadul/Belajar/pkg/response"
)

// ClassHandler 班级与花名册 HTTP 处理器
type ClassHandler struct {
	classSvc service.ClassService
}

// NewClassHandler 创建 ClassHandler
func NewClassHandler(classSvc service.ClassService) *ClassHandler {
	return &ClassHandler{classSvc: classSvc}
}

// ListClasses 班级列表（按调用方可见范围）
// GET /api/v1/classes
func (h *ClassHandler) ListClasses(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var req dto.ClassListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
		return
	}

	classes, err := h.classSvc.List(c.Request.Context(), p, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, gin.H{"list": classes})
}

// GetClass 班级详情
// GET /api/v1/classes/:id
func (h *ClassHandler) GetClass(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	class, err := h.classSvc.GetByID(c.Request.Context(), p, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, class)
}

// CreateClass 创建班级
// POST /api/v1/classes
func (h *ClassHandler) CreateClass(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var req dto.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
		return
	}

	class, err := h.classSvc.Create(c.Request.Context(), p, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, class)
}

// UpdateClass 更新班级
// PUT /api/v1/classes/:id
func (h *ClassHandler) UpdateClass(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
		return
	}

	class, err := h.classSvc.Update(c.Request.Context(), p, id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, class)
}

// DeleteClass 删除班级（成员关系与考勤级联删除，学生保留）
// DELETE /api/v1/classes/:id
func (h *ClassHandler) DeleteClass(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.classSvc.Delete(c.Request.Context(), p, id); err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, nil)
}

// ListStudents 班级花名册
// GET /api/v1/classes/:id/students
func (h *ClassHandler) ListStudents(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.RosterListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
		return
	}

	students, err := h.classSvc.ListStudents(c.Request.Context(), p, id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, gin.H{"list": students})
}

// EnrollStudent 将已有学生加入班级；已在班级中时幂等返回
// POST /api/v1/classes/:id/students
func (h *ClassHandler) EnrollStudent(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.EnrollStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
		return
	}

	result, err := h.classSvc.EnrollStudent(c.Request.Context(), p, id, req.StudentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// RemoveStudent 将学生移出班级（学生记录保留）
// DELETE /api/v1/classes/:id/students/:student_id
func (h *ClassHandler) RemoveStudent(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	studentID, ok := parseIDParam(c, "student_id")
	if !ok {
		return
	}

	if err := h.classSvc.RemoveStudent(c.Request.Context(), p, id, studentID); err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, nil)
}

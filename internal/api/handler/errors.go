package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/mijwadul/Belajar/internal/service"
	"github.com/mijwadul/Belajar/pkg/response"
)

// handleServiceError 将 Service 层哨兵错误映射为 HTTP 状态码与业务码
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, response.CodeForbidden, err.Error())

	// ── 404 ──
	case errors.Is(err, service.ErrOrgNotFound):
		response.NotFound(c, response.CodeOrgNotFound, "学校不存在")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, response.CodeUserNotFound, "用户不存在")
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, response.CodeClassNotFound, "班级不存在")
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, response.CodeStudentAbsent, "学生不存在")
	case errors.Is(err, service.ErrNotClassMember):
		response.NotFound(c, response.CodeStudentAbsent, err.Error())

	// ── 409 ──
	case errors.Is(err, service.ErrOrgNameExists), errors.Is(err, service.ErrOrgInUse):
		response.Conflict(c, response.CodeOrgConflict, err.Error())
	case errors.Is(err, service.ErrEmailExists),
		errors.Is(err, service.ErrUserHasClasses),
		errors.Is(err, service.ErrUserSelfRoleChange):
		response.Conflict(c, response.CodeUserConflict, err.Error())
	case errors.Is(err, service.ErrStudentConflict):
		response.Conflict(c, response.CodeStudentDup, err.Error())

	// ── 400 ──
	case errors.Is(err, service.ErrUserOrgRequired):
		response.BadRequest(c, response.CodeUserInvalid, err.Error())
	case errors.Is(err, service.ErrClassOwnerInvalid):
		response.BadRequest(c, response.CodeClassInvalid, err.Error())
	case errors.Is(err, service.ErrInvalidStudent):
		response.BadRequest(c, response.CodeStudentBad, err.Error())
	case errors.Is(err, service.ErrImportNoData),
		errors.Is(err, service.ErrImportTooManyRows),
		errors.Is(err, service.ErrImportBadHeader),
		errors.Is(err, service.ErrImportBadFile):
		response.BadRequest(c, response.CodeImportInvalid, err.Error())
	case errors.Is(err, service.ErrAttendanceInvalid):
		response.BadRequest(c, response.CodeAttendInvalid, err.Error())

	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}

package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ── 业务错误码 ──
// 1xxxx 通用 / 2xxxx 组织与用户 / 3xxxx 班级与花名册 / 4xxxx 学生 / 5xxxx 服务端
const (
	CodeOK            = 0
	CodeBadRequest    = 10001
	CodeUnauthorized  = 10002
	CodeForbidden     = 10003
	CodeTooManyReqs   = 10004
	CodeBodyTooLarge  = 10005
	CodeOrgNotFound   = 20001
	CodeOrgConflict   = 20002
	CodeUserNotFound  = 20101
	CodeUserConflict  = 20102
	CodeUserInvalid   = 20103
	CodeClassNotFound = 30001
	CodeClassInvalid  = 30002
	CodeImportInvalid = 30101
	CodeAttendInvalid = 30201
	CodeStudentAbsent = 40001
	CodeStudentDup    = 40002
	CodeStudentBad    = 40003
	CodeInternal      = 50000
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Details string      `json:"details,omitempty"`
}

// ── 成功响应 ──

// OK 200 成功响应
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeOK,
		Message: "success",
		Data:    data,
	})
}

// Created 201 创建成功
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    CodeOK,
		Message: "success",
		Data:    data,
	})
}

// ── 错误响应 ──

// Error 通用错误响应
func Error(c *gin.Context, httpStatus int, code int, message string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
	})
}

// ErrorWithDetails 带详情的错误响应
func ErrorWithDetails(c *gin.Context, httpStatus int, code int, message, details string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// BadRequest 400
func BadRequest(c *gin.Context, code int, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

// Unauthorized 401
func Unauthorized(c *gin.Context, code int, message string) {
	Error(c, http.StatusUnauthorized, code, message)
}

// Forbidden 403
func Forbidden(c *gin.Context, code int, message string) {
	Error(c, http.StatusForbidden, code, message)
}

// NotFound 404
func NotFound(c *gin.Context, code int, message string) {
	Error(c, http.StatusNotFound, code, message)
}

// Conflict 409
func Conflict(c *gin.Context, code int, message string) {
	Error(c, http.StatusConflict, code, message)
}

// InternalError 500
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, CodeInternal, "服务器内部错误")
}

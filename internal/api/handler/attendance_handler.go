package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mijwadul/Belajar/internal/dto"
	"github.com/mijwadul/Belajar/internal/service"
	"github.com/mijwadul/Belajar/pkg/response"
)

// AttendanceHandler 考勤 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// RecordAttendance 记录某日考勤
// POST /api/v1/classes/:id/attendance
func (h *AttendanceHandler) RecordAttendance(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	classID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeAttendInvalid, "参数校验失败")
		return
	}

	if err := h.attendanceSvc.Record(c.Request.Context(), p, classID, &req); err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, nil)
}

// ListAttendance 查询某日考勤
// GET /api/v1/classes/:id/attendance?date=YYYY-MM-DD
func (h *AttendanceHandler) ListAttendance(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	classID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var q dto.AttendanceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, response.CodeAttendInvalid, "date 不能为空")
		return
	}

	records, err := h.attendanceSvc.ListByDate(c.Request.Context(), p, classID, q.Date)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, gin.H{"list": records})
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mijwadul/Belajar/internal/dto"
	"github.com/mijwadul/Belajar/internal/service"
	"github.com/mijwadul/Belajar/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Organization *OrganizationHandler
	User         *UserHandler
	Class        *ClassHandler
	Student      *StudentHandler
	Import       *ImportHandler
	Export       *ExportHandler
	Attendance   *AttendanceHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Organization: NewOrganizationHandler(svc.Organization),
		User:         NewUserHandler(svc.User),
		Class:        NewClassHandler(svc.Class),
		Student:      NewStudentHandler(svc.Student),
		Import:       NewImportHandler(svc.Import),
		Export:       NewExportHandler(svc.Export),
		Attendance:   NewAttendanceHandler(svc.Attendance),
	}
}

// Me 返回当前调用方身份
// GET /api/v1/me
func (h *Handler) Me(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	response.OK(c, dto.PrincipalResponse{
		ID:             p.ID,
		Role:           string(p.Role),
		OrganizationID: p.OrganizationID,
	})
}

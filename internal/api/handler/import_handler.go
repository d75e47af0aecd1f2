package handler

import (
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mijwadul/Belajar/internal/dto"
	"github.com/mijwadul/Belajar/internal/service"
	"github.com/mijwadul/Belajar/pkg/response"
)

// ImportHandler 花名册导入 HTTP 处理器
type ImportHandler struct {
	importSvc service.ImportService
}

// NewImportHandler 创建 ImportHandler
func NewImportHandler(importSvc service.ImportService) *ImportHandler {
	return &ImportHandler{importSvc: importSvc}
}

// ImportStudents JSON 批量导入
// POST /api/v1/classes/:id/students/import
func (h *ImportHandler) ImportStudents(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	classID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.ImportStudentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
		return
	}

	report, err := h.importSvc.ImportBatch(c.Request.Context(), p, classID, req.Students)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, report)
}

// ImportStudentsFile Excel 文件导入（字段名 file）
// POST /api/v1/classes/:id/students/import/file
func (h *ImportHandler) ImportStudentsFile(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	classID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, response.CodeImportInvalid, "请上传 Excel 文件（字段名 file）")
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".xlsx") {
		response.BadRequest(c, response.CodeImportInvalid, "仅支持 .xlsx 格式")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, response.CodeImportInvalid, "无法读取上传的文件")
		return
	}
	defer file.Close()

	report, err := h.importSvc.ImportFile(c.Request.Context(), p, classID, file)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, report)
}

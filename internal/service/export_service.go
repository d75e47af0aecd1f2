package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mijwadul/Belajar/internal/authz"
	"github.com/mijwadul/Belajar/internal/repository"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成 Excel 文件失败")

// rosterHeaders 导出表头，与导入识别的表头一致，导出文件可直接再导入
var rosterHeaders = []string{
	"No", "Nama", "NISN", "NIS", "Tempat Lahir", "Tanggal Lahir",
	"Jenis Kelamin", "Agama", "Alamat", "Nomor HP", "Nama Orang Tua",
}

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportRoster 导出班级花名册为 Excel
	ExportRoster(ctx context.Context, p authz.Principal, classID uint) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportRoster — 导出班级花名册
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 第 1 行：班级标题（合并单元格）
//   - 第 2 行：表头
//   - 第 3 行起：学生，按姓名排序

func (s *exportService) ExportRoster(ctx context.Context, p authz.Principal, classID uint) (*bytes.Buffer, string, error) {
	class, err := loadClass(ctx, s.repo, s.logger, p, classID, authz.ActionRead)
	if err != nil {
		return nil, "", err
	}

	students, err := s.repo.Student.ListByClass(ctx, classID, nil)
	if err != nil {
		s.logger.Error("查询花名册失败", zap.Uint("class_id", classID), zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Siswa"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 6)
	f.SetColWidth(sheetName, "B", "B", 28)
	f.SetColWidth(sheetName, "C", colName(len(rosterHeaders)-1), 16)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	title := fmt.Sprintf("%s - %s (%s)", class.Name, class.Subject, class.AcademicYear)
	f.SetCellValue(sheetName, "A1", title)
	f.MergeCell(sheetName, "A1", cell(colName(len(rosterHeaders)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	for i, h := range rosterHeaders {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(rosterHeaders)-1), 2), headerStyle)

	// 数据行
	for i, st := range students {
		row := 3 + i
		birthDate := ""
		if st.BirthDate != nil {
			birthDate = st.BirthDate.Format("02-01-2006")
		}
		values := []any{
			i + 1, st.FullName, st.NISNValue(), st.NIS, st.BirthPlace, birthDate,
			st.Gender, st.Religion, st.Address, st.Phone, st.GuardianName,
		}
		for col, v := range values {
			f.SetCellValue(sheetName, cell(colName(col), row), v)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("siswa_%s_%s.xlsx", class.Name, class.Subject)
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

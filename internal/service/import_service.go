package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mijwadul/Belajar/internal/authz"
	"github.com/mijwadul/Belajar/internal/dto"
	"github.com/mijwadul/Belajar/internal/metrics"
	"github.com/mijwadul/Belajar/internal/model"
	"github.com/mijwadul/Belajar/internal/repository"
)

// ── 花名册导入业务错误 ──

var (
	ErrImportNoData      = errors.New("Excel 文件无数据行（第一行为表头）")
	ErrImportTooManyRows = errors.New("导入行数超过上限")
	ErrImportBadHeader   = errors.New("Excel 表头缺少必要列（nama / nisn）")
	ErrImportBadFile     = errors.New("无法解析 Excel 文件")
)

// ImportOutcome 单行导入的终态
type ImportOutcome string

const (
	OutcomeCreated                  ImportOutcome = "created"
	OutcomeLinkedExisting           ImportOutcome = "linked_existing"
	OutcomeRejectedDuplicateInBatch ImportOutcome = "rejected_duplicate_in_batch"
	OutcomeRejectedAlreadyEnrolled  ImportOutcome = "rejected_already_enrolled"
	OutcomeRejectedInvalid          ImportOutcome = "rejected_invalid"
	OutcomeRejectedConflict         ImportOutcome = "rejected_conflict"
	// OutcomeFailed 存储故障或请求已取消
	OutcomeFailed ImportOutcome = "failed"
)

// Succeeded 是否计入成功数
func (o ImportOutcome) Succeeded() bool {
	return o == OutcomeCreated || o == OutcomeLinkedExisting
}

// errAlreadyEnrolled 用于在单行工作单元内触发回滚
var errAlreadyEnrolled = errors.New("学生已在该班级中")

// ImportService 花名册导入业务接口
type ImportService interface {
	// ImportBatch 逐行导入；只有班级不存在与无权操作会使整批失败
	ImportBatch(ctx context.Context, p authz.Principal, classID uint, rows []dto.StudentRow) (*dto.ImportReport, error)
	// ImportFile 解析 .xlsx 后按 ImportBatch 的规则导入
	ImportFile(ctx context.Context, p authz.Principal, classID uint, reader io.Reader) (*dto.ImportReport, error)
	ParseImportFile(reader io.Reader) ([]dto.StudentRow, error)
}

type importService struct {
	repo    *repository.Repository
	metrics *metrics.Metrics
	maxRows int
	logger  *zap.Logger
}

// NewImportService 创建 ImportService 实例
func NewImportService(repo *repository.Repository, m *metrics.Metrics, maxRows int, logger *zap.Logger) ImportService {
	return &importService{repo: repo, metrics: m, maxRows: maxRows, logger: logger}
}

// ────────────────────── ImportBatch ──────────────────────

func (s *importService) ImportBatch(ctx context.Context, p authz.Principal, classID uint, rows []dto.StudentRow) (*dto.ImportReport, error) {
	class, err := s.loadAuthorizedClass(ctx, p, classID)
	if err != nil {
		return nil, err
	}
	return s.importRows(ctx, p, class, rows, "json")
}

func (s *importService) ImportFile(ctx context.Context, p authz.Principal, classID uint, reader io.Reader) (*dto.ImportReport, error) {
	// 先确认班级与权限，未授权时不解析上传内容
	class, err := s.loadAuthorizedClass(ctx, p, classID)
	if err != nil {
		return nil, err
	}
	rows, err := s.ParseImportFile(reader)
	if err != nil {
		return nil, err
	}
	return s.importRows(ctx, p, class, rows, "xlsx")
}

func (s *importService) loadAuthorizedClass(ctx context.Context, p authz.Principal, classID uint) (*model.Class, error) {
	class, err := loadClass(ctx, s.repo, s.logger, p, classID, authz.ActionImport)
	if errors.Is(err, ErrForbidden) {
		s.logger.Warn("导入被拒绝",
			zap.Uint("class_id", classID),
			zap.Uint("principal_id", p.ID),
			zap.Error(err),
		)
	}
	return class, err
}

// importRows 调用方负责加载班级并完成授权
func (s *importService) importRows(ctx context.Context, p authz.Principal, class *model.Class, rows []dto.StudentRow, source string) (*dto.ImportReport, error) {
	start := time.Now()

	if len(rows) > s.maxRows {
		return nil, fmt.Errorf("%w: %d 行（上限 %d）", ErrImportTooManyRows, len(rows), s.maxRows)
	}

	report := &dto.ImportReport{
		Total:  len(rows),
		Errors: []string{},
		Rows:   make([]dto.ImportRowResult, 0, len(rows)),
	}

	// 本批次已成功处理的 NISN，先出现者胜出
	seen := make(map[string]struct{}, len(rows))

	for i, row := range rows {
		result := s.processRow(ctx, class, i+1, row, seen)
		outcome := ImportOutcome(result.Outcome)
		if outcome.Succeeded() {
			seen[result.NISN] = struct{}{}
			report.SuccessCount++
		} else {
			report.FailCount++
			report.Errors = append(report.Errors, result.Message)
		}
		report.Rows = append(report.Rows, result)
		s.metrics.IncImportRow(result.Outcome)
	}

	s.metrics.ObserveImportDuration(source, time.Since(start))
	s.logger.Info("花名册导入完成",
		zap.Uint("class_id", class.ID),
		zap.Uint("principal_id", p.ID),
		zap.String("source", source),
		zap.Int("total", report.Total),
		zap.Int("success", report.SuccessCount),
		zap.Int("failed", report.FailCount),
	)
	return report, nil
}

// processRow 处理单行，返回该行的终态
// 每行的持久化在独立的工作单元中执行，失败只回滚本行
func (s *importService) processRow(ctx context.Context, class *model.Class, rowNum int, row dto.StudentRow, seen map[string]struct{}) dto.ImportRowResult {
	result := dto.ImportRowResult{
		Row:      rowNum,
		FullName: strings.TrimSpace(row.FullName),
		NISN:     strings.TrimSpace(row.NISN),
	}
	reject := func(outcome ImportOutcome, reason string) dto.ImportRowResult {
		result.Outcome = string(outcome)
		result.Message = rowMessage(rowNum, result.FullName, result.NISN, reason)
		return result
	}

	candidate, err := ParseStudentRow(row)
	if err != nil {
		return reject(OutcomeRejectedInvalid, err.Error())
	}
	if _, dup := seen[candidate.NISN]; dup {
		return reject(OutcomeRejectedDuplicateInBatch, "NISN 在本批次中重复")
	}
	if err := ctx.Err(); err != nil {
		return reject(OutcomeFailed, err.Error())
	}

	var (
		studentID uint
		kind      ResolutionKind
	)
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		student, k, err := newIdentityRegistry(txRepo).ResolveOrCreate(ctx, candidate)
		if err != nil {
			return err
		}
		if k == ResolutionLinkedExisting {
			member, err := txRepo.ClassStudent.Exists(ctx, class.ID, student.ID)
			if err != nil {
				return err
			}
			if member {
				return errAlreadyEnrolled
			}
		}
		res, err := newClassRoster(txRepo).Enroll(ctx, class.ID, student.ID)
		if err != nil {
			return err
		}
		if res == EnrollAlreadyMember {
			return errAlreadyEnrolled
		}
		studentID, kind = student.ID, k
		return nil
	})

	switch {
	case err == nil:
		result.Outcome = string(kind)
		result.StudentID = studentID
		return result
	case errors.Is(err, ErrInvalidStudent):
		return reject(OutcomeRejectedInvalid, err.Error())
	case errors.Is(err, errAlreadyEnrolled):
		return reject(OutcomeRejectedAlreadyEnrolled, err.Error())
	case errors.Is(err, ErrRegistryConflict):
		return reject(OutcomeRejectedConflict, err.Error())
	default:
		s.logger.Error("导入行持久化失败",
			zap.Uint("class_id", class.ID),
			zap.Int("row", rowNum),
			zap.String("nisn", candidate.NISN),
			zap.Error(err),
		)
		return reject(OutcomeFailed, "保存失败: "+err.Error())
	}
}

// rowMessage 生成包含行号、姓名与 NISN 的错误描述
func rowMessage(rowNum int, name, nisn, reason string) string {
	var who []string
	if name != "" {
		who = append(who, name)
	}
	if nisn != "" {
		who = append(who, "NISN "+nisn)
	}
	if len(who) == 0 {
		return fmt.Sprintf("第 %d 行: %s", rowNum, reason)
	}
	return fmt.Sprintf("第 %d 行（%s）: %s", rowNum, strings.Join(who, ", "), reason)
}

// ────────────────────── ParseImportFile ──────────────────────

// importColumns 字段 -> 可识别的表头写法（不区分大小写）
var importColumns = []struct {
	field   string
	aliases []string
}{
	{"full_name", []string{"nama", "nama lengkap", "nama siswa", "full_name", "name"}},
	{"nisn", []string{"nisn"}},
	{"nis", []string{"nis"}},
	{"birth_place", []string{"tempat lahir", "tempat_lahir", "birth_place"}},
	{"birth_date", []string{"tanggal lahir", "tanggal_lahir", "birth_date"}},
	{"gender", []string{"jenis kelamin", "jenis_kelamin", "l/p", "gender"}},
	{"religion", []string{"agama", "religion"}},
	{"address", []string{"alamat", "address"}},
	{"phone", []string{"nomor hp", "nomor_hp", "no hp", "phone"}},
	{"guardian_name", []string{"nama orang tua", "nama_orang_tua", "guardian_name"}},
}

// parseHeaderIndex 解析表头，返回字段 -> 列索引映射（支持灵活列序）
func parseHeaderIndex(header []string) map[string]int {
	idx := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		for _, col := range importColumns {
			if _, done := idx[col.field]; done {
				continue
			}
			for _, alias := range col.aliases {
				if key == alias {
					idx[col.field] = i
				}
			}
		}
	}
	return idx
}

// ParseImportFile 解析导入 Excel 文件（第一个工作表，第一行为表头）
func (s *importService) ParseImportFile(reader io.Reader) ([]dto.StudentRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportBadFile, err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	// 读取原始值，日期单元格返回 Excel 序列号而不是本地化格式；
	// 只有使用日期数字格式的单元格才按序列号转换
	excelRows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: 读取工作表失败: %v", ErrImportBadFile, err)
	}
	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	colIndex := parseHeaderIndex(excelRows[0])
	if _, ok := colIndex["full_name"]; !ok {
		return nil, ErrImportBadHeader
	}
	if _, ok := colIndex["nisn"]; !ok {
		return nil, ErrImportBadHeader
	}

	cell := func(row []string, field string) string {
		i, ok := colIndex[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	// 空行保留为空记录，使行号与提交顺序一致；全空的尾部行丢弃
	var rows []dto.StudentRow
	lastNonEmpty := -1
	for i := 1; i < len(excelRows); i++ {
		r := excelRows[i]
		birthDate := cell(r, "birth_date")
		if birthDate != "" && isDateCell(f, sheetName, colIndex["birth_date"], i) {
			birthDate = excelDate(birthDate)
		}
		item := dto.StudentRow{
			FullName:     cell(r, "full_name"),
			NISN:         cell(r, "nisn"),
			NIS:          cell(r, "nis"),
			BirthPlace:   cell(r, "birth_place"),
			BirthDate:    birthDate,
			Gender:       cell(r, "gender"),
			Religion:     cell(r, "religion"),
			Address:      cell(r, "address"),
			Phone:        cell(r, "phone"),
			GuardianName: cell(r, "guardian_name"),
		}
		rows = append(rows, item)
		if item != (dto.StudentRow{}) {
			lastNonEmpty = len(rows) - 1
		}
	}
	rows = rows[:lastNonEmpty+1]

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > s.maxRows {
		return nil, fmt.Errorf("%w: %d 行（上限 %d）", ErrImportTooManyRows, len(rows), s.maxRows)
	}
	return rows, nil
}

// excelDate Excel 日期序列号转为 YYYY-MM-DD，其他文本原样返回
// isDateCell 判断单元格是否使用日期数字格式（col、row 从 0 开始）
func isDateCell(f *excelize.File, sheet string, col, row int) bool {
	cellName, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return false
	}
	styleID, err := f.GetCellStyle(sheet, cellName)
	if err != nil || styleID == 0 {
		return false
	}
	style, err := f.GetStyle(styleID)
	if err != nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDateNumFmt(*style.CustomNumFmt)
	}
	switch {
	case style.NumFmt >= 14 && style.NumFmt <= 22,
		style.NumFmt >= 27 && style.NumFmt <= 36,
		style.NumFmt >= 45 && style.NumFmt <= 47,
		style.NumFmt >= 50 && style.NumFmt <= 58:
		return true
	}
	return false
}

// isDateNumFmt 自定义格式去掉引号文本与方括号区段后含 y 或 d 即视为日期
func isDateNumFmt(format string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, c := range strings.ToLower(format) {
		switch {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '[':
			inBracket = true
		case c == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(c)
		}
	}
	return strings.ContainsAny(b.String(), "yd")
}

func excelDate(v string) string {
	serial, err := strconv.ParseFloat(v, 64)
	if err != nil || serial <= 0 {
		return v
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return v
	}
	return t.Format("2006-01-02")
}

package service

import (
	"go.uber.org/zap"

	"github.com/mijwadul/Belajar/config"
	"github.com/mijwadul/Belajar/internal/metrics"
	"github.com/mijwadul/Belajar/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Organization OrganizationService
	User         UserService
	Class        ClassService
	Student      StudentService
	Import       ImportService
	Export       ExportService
	Attendance   AttendanceService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		Organization: NewOrganizationService(repo, logger),
		User:         NewUserService(repo, logger),
		Class:        NewClassService(repo, logger),
		Student:      NewStudentService(repo, m, logger),
		Import:       NewImportService(repo, m, cfg.Import.MaxRows, logger),
		Export:       NewExportService(repo, logger),
		Attendance:   NewAttendanceService(repo, logger),
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mijwadul/Belajar/internal/authz"
	"github.com/mijwadul/Belajar/internal/dto"
	"github.com/mijwadul/Belajar/internal/model"
	"github.com/mijwadul/Belajar/internal/repository"
)

// ── 考勤模块业务错误 ──

var ErrAttendanceInvalid = errors.New("考勤数据不合法")

const attendanceDateLayout = "2006-01-02"

// AttendanceService 考勤业务接口
type AttendanceService interface {
	// Record 记录某日考勤，同一学生同一天的已有记录被覆盖
	Record(ctx context.Context, p authz.Principal, classID uint, req *dto.RecordAttendanceRequest) error
	ListByDate(ctx context.Context, p authz.Principal, classID uint, date string) ([]dto.AttendanceResponse, error)
}

type attendanceService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(repo *repository.Repository, logger *zap.Logger) AttendanceService {
	return &attendanceService{repo: repo, logger: logger}
}

func parseAttendanceDate(s string) (time.Time, error) {
	t, err := time.Parse(attendanceDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: 日期格式应为 YYYY-MM-DD: %s", ErrAttendanceInvalid, s)
	}
	return t, nil
}

func validAttendanceStatus(status string) bool {
	switch status {
	case model.AttendancePresent, model.AttendanceSick, model.AttendanceExcused, model.AttendanceAbsent:
		return true
	}
	return false
}

func (s *attendanceService) Record(ctx context.Context, p authz.Principal, classID uint, req *dto.RecordAttendanceRequest) error {
	class, err := loadClass(ctx, s.repo, s.logger, p, classID, authz.ActionUpdate)
	if err != nil {
		return err
	}
	date, err := parseAttendanceDate(req.Date)
	if err != nil {
		return err
	}

	records := make([]model.Attendance, 0, len(req.Records))
	for _, entry := range req.Records {
		if !validAttendanceStatus(entry.Status) {
			return fmt.Errorf("%w: 未知状态 %s", ErrAttendanceInvalid, entry.Status)
		}
		member, err := s.repo.ClassStudent.Exists(ctx, class.ID, entry.StudentID)
		if err != nil {
			s.logger.Error("查询班级成员失败", zap.Error(err))
			return err
		}
		if !member {
			return fmt.Errorf("%w: 学生 %d", ErrNotClassMember, entry.StudentID)
		}
		records = append(records, model.Attendance{
			ClassID:   class.ID,
			StudentID: entry.StudentID,
			Date:      date,
			Status:    entry.Status,
		})
	}

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		return txRepo.Attendance.Upsert(ctx, records)
	})
	if err != nil {
		s.logger.Error("记录考勤失败", zap.Uint("class_id", classID), zap.String("date", req.Date), zap.Error(err))
		return err
	}

	s.logger.Info("考勤已记录",
		zap.Uint("class_id", classID),
		zap.String("date", req.Date),
		zap.Int("count", len(records)),
	)
	return nil
}

func (s *attendanceService) ListByDate(ctx context.Context, p authz.Principal, classID uint, date string) ([]dto.AttendanceResponse, error) {
	if _, err := loadClass(ctx, s.repo, s.logger, p, classID, authz.ActionRead); err != nil {
		return nil, err
	}
	day, err := parseAttendanceDate(date)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.Attendance.ListByClassAndDate(ctx, classID, day)
	if err != nil {
		s.logger.Error("查询考勤失败", zap.Uint("class_id", classID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.AttendanceResponse, 0, len(records))
	for _, r := range records {
		item := dto.AttendanceResponse{
			StudentID: r.StudentID,
			Date:      r.Date.Format(attendanceDateLayout),
			Status:    r.Status,
		}
		if r.Student != nil {
			item.FullName = r.Student.FullName
			item.NISN = r.Student.NISNValue()
		}
		result = append(result, item)
	}
	return result, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mijwadul/Belajar/internal/authz"
	"github.com/mijwadul/Belajar/internal/dto"
	"github.com/mijwadul/Belajar/internal/metrics"
	"github.com/mijwadul/Belajar/internal/model"
	"github.com/mijwadul/Belajar/internal/repository"
	pkgerrors "github.com/mijwadul/Belajar/pkg/errors"
)

// ── 学生模块业务错误 ──

var (
	ErrStudentNotFound = errors.New("学生不存在")
	ErrStudentConflict = errors.New("NISN 已被其他学生使用")
)

// StudentService 学生业务接口
type StudentService interface {
	Create(ctx context.Context, p authz.Principal, req *dto.CreateStudentRequest) (*model.Student, error)
	GetByID(ctx context.Context, p authz.Principal, id uint) (*model.Student, error)
	Update(ctx context.Context, p authz.Principal, id uint, req *dto.UpdateStudentRequest) (*model.Student, error)
	// BulkDelete 逐个删除，单个失败不影响其他学生
	BulkDelete(ctx context.Context, p authz.Principal, ids []uint) (*dto.BulkDeleteResponse, error)
}

type studentService struct {
	repo    *repository.Repository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewStudentService 创建 StudentService 实例
func NewStudentService(repo *repository.Repository, m *metrics.Metrics, logger *zap.Logger) StudentService {
	return &studentService{repo: repo, metrics: m, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *studentService) Create(ctx context.Context, p authz.Principal, req *dto.CreateStudentRequest) (*model.Student, error) {
	candidate, err := ParseStudentRow(req.StudentRow)
	if err != nil {
		return nil, err
	}

	var class *model.Class
	if req.ClassID != nil {
		class, err = s.repo.Class.GetByID(ctx, *req.ClassID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrClassNotFound
			}
			s.logger.Error("查询班级失败", zap.Uint("class_id", *req.ClassID), zap.Error(err))
			return nil, err
		}
		if err := authorizeClass(p, authz.ActionUpdate, class); err != nil {
			return nil, err
		}
	} else if err := authz.Authorize(p, authz.ActionCreate, authz.Scope{}).Err(); err != nil {
		// 不属于任何班级的学生只有超级管理员可以管理
		return nil, err
	}

	var student *model.Student
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		st, kind, err := newIdentityRegistry(txRepo).ResolveOrCreate(ctx, candidate)
		if err != nil {
			return err
		}
		if kind == ResolutionLinkedExisting {
			return ErrStudentConflict
		}
		if class != nil {
			if _, err := newClassRoster(txRepo).Enroll(ctx, class.ID, st.ID); err != nil {
				return err
			}
		}
		student = st
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRegistryConflict) {
			return nil, ErrStudentConflict
		}
		if !errors.Is(err, ErrStudentConflict) {
			s.logger.Error("创建学生失败", zap.String("nisn", candidate.NISN), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("学生已创建", zap.Uint("student_id", student.ID), zap.Uint("principal_id", p.ID))
	return student, nil
}

// ────────────────────── GetByID / Update ──────────────────────

func (s *studentService) load(ctx context.Context, p authz.Principal, id uint, action authz.Action) (*model.Student, error) {
	student, err := s.repo.Student.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	if err := authorizeStudent(ctx, s.repo, p, action, id); err != nil {
		return nil, err
	}
	return student, nil
}

func (s *studentService) GetByID(ctx context.Context, p authz.Principal, id uint) (*model.Student, error) {
	return s.load(ctx, p, id, authz.ActionRead)
}

func (s *studentService) Update(ctx context.Context, p authz.Principal, id uint, req *dto.UpdateStudentRequest) (*model.Student, error) {
	student, err := s.load(ctx, p, id, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, fmt.Errorf("%w: 姓名为空", ErrInvalidStudent)
		}
		student.FullName = name
	}
	if req.NISN != nil {
		nisn := strings.TrimSpace(*req.NISN)
		if nisn == "" {
			return nil, fmt.Errorf("%w: NISN 为空", ErrInvalidStudent)
		}
		if nisn != student.NISNValue() {
			other, err := s.repo.Student.GetByNISN(ctx, nisn)
			if err == nil && other.ID != student.ID {
				return nil, ErrStudentConflict
			} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			student.NISN = &nisn
		}
	}
	if req.NIS != nil {
		student.NIS = strings.TrimSpace(*req.NIS)
	}
	if req.BirthPlace != nil {
		student.BirthPlace = strings.TrimSpace(*req.BirthPlace)
	}
	if req.BirthDate != nil {
		bd := strings.TrimSpace(*req.BirthDate)
		if bd == "" {
			student.BirthDate = nil
		} else {
			t, err := parseBirthDate(bd)
			if err != nil {
				return nil, err
			}
			student.BirthDate = &t
		}
	}
	if req.Gender != nil {
		student.Gender = normalizeGender(*req.Gender)
	}
	if req.Religion != nil {
		student.Religion = strings.TrimSpace(*req.Religion)
	}
	if req.Address != nil {
		student.Address = strings.TrimSpace(*req.Address)
	}
	if req.Phone != nil {
		student.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.GuardianName != nil {
		student.GuardianName = strings.TrimSpace(*req.GuardianName)
	}

	if err := s.repo.Student.Update(ctx, student); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrStudentConflict
		}
		s.logger.Error("更新学生失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return student, nil
}

// ────────────────────── BulkDelete ──────────────────────

func (s *studentService) BulkDelete(ctx context.Context, p authz.Principal, ids []uint) (*dto.BulkDeleteResponse, error) {
	report := &dto.BulkDeleteResponse{
		Total:  len(ids),
		Errors: []string{},
		Items:  make([]dto.BulkDeleteItem, 0, len(ids)),
	}

	for _, id := range ids {
		item := dto.BulkDeleteItem{StudentID: id}

		err := s.deleteOne(ctx, p, id)
		if err == nil {
			item.Deleted = true
			report.SuccessCount++
			s.metrics.IncBulkDelete("deleted")
		} else {
			item.Reason = bulkDeleteReason(err)
			report.FailCount++
			report.Errors = append(report.Errors, fmt.Sprintf("学生 %d: %s", id, item.Reason))
			s.metrics.IncBulkDelete("failed")
		}
		report.Items = append(report.Items, item)
	}

	s.logger.Info("批量删除学生完成",
		zap.Uint("principal_id", p.ID),
		zap.Int("total", report.Total),
		zap.Int("success", report.SuccessCount),
		zap.Int("failed", report.FailCount),
	)
	return report, nil
}

// deleteOne 在独立工作单元中删除一个学生及其成员关系、考勤与答卷
func (s *studentService) deleteOne(ctx context.Context, p authz.Principal, id uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if _, err := txRepo.Student.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStudentNotFound
			}
			return err
		}
		if err := authorizeStudent(ctx, txRepo, p, authz.ActionDelete, id); err != nil {
			return err
		}
		if err := txRepo.Student.Delete(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStudentNotFound
			}
			s.logger.Error("删除学生失败", zap.Uint("id", id), zap.Error(err))
			return err
		}
		return nil
	})
}

func bulkDeleteReason(err error) string {
	switch {
	case errors.Is(err, ErrStudentNotFound):
		return "not found"
	case errors.Is(err, ErrForbidden):
		return err.Error()
	default:
		return "删除失败: " + err.Error()
	}
}

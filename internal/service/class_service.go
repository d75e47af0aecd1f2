package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mijwadul/Belajar/internal/authz"
	"github.com/mijwadul/Belajar/internal/dto"
	"github.com/mijwadul/Belajar/internal/model"
	"github.com/mijwadul/Belajar/internal/repository"
)

// ── 班级模块业务错误 ──

var (
	ErrClassNotFound     = errors.New("班级不存在")
	ErrClassOwnerInvalid = errors.New("班主任必须是已绑定学校的教师或管理员")
	ErrNotClassMember    = errors.New("学生不在该班级中")
)

// ClassService 班级业务接口
type ClassService interface {
	Create(ctx context.Context, p authz.Principal, req *dto.CreateClassRequest) (*model.Class, error)
	GetByID(ctx context.Context, p authz.Principal, id uint) (*model.Class, error)
	List(ctx context.Context, p authz.Principal, req *dto.ClassListRequest) ([]model.Class, error)
	Update(ctx context.Context, p authz.Principal, id uint, req *dto.UpdateClassRequest) (*model.Class, error)
	Delete(ctx context.Context, p authz.Principal, id uint) error

	// 花名册
	ListStudents(ctx context.Context, p authz.Principal, classID uint, req *dto.RosterListRequest) ([]model.Student, error)
	EnrollStudent(ctx context.Context, p authz.Principal, classID, studentID uint) (*dto.EnrollResponse, error)
	RemoveStudent(ctx context.Context, p authz.Principal, classID, studentID uint) error
}

type classService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewClassService 创建 ClassService 实例
func NewClassService(repo *repository.Repository, logger *zap.Logger) ClassService {
	return &classService{repo: repo, logger: logger}
}

func (s *classService) loadClass(ctx context.Context, p authz.Principal, id uint, action authz.Action) (*model.Class, error) {
	return loadClass(ctx, s.repo, s.logger, p, id, action)
}

// ────────────────────── CRUD ──────────────────────

func (s *classService) Create(ctx context.Context, p authz.Principal, req *dto.CreateClassRequest) (*model.Class, error) {
	ownerID := p.ID
	if req.OwnerID != nil {
		ownerID = *req.OwnerID
	}

	owner, err := s.repo.User.GetByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassOwnerInvalid
		}
		s.logger.Error("查询班主任失败", zap.Uint("owner_id", ownerID), zap.Error(err))
		return nil, err
	}
	if owner.OrganizationID == nil || owner.Role == model.RoleSuperUser {
		return nil, ErrClassOwnerInvalid
	}

	// 班级所属学校取自班主任
	class := &model.Class{
		Name:           strings.TrimSpace(req.Name),
		Level:          strings.TrimSpace(req.Level),
		Subject:        strings.TrimSpace(req.Subject),
		AcademicYear:   strings.TrimSpace(req.AcademicYear),
		OrganizationID: *owner.OrganizationID,
		OwnerID:        owner.ID,
	}
	if err := authorizeClass(p, authz.ActionCreate, class); err != nil {
		return nil, err
	}

	if err := s.repo.Class.Create(ctx, class); err != nil {
		s.logger.Error("创建班级失败", zap.Error(err))
		return nil, err
	}
	class.Owner = owner

	s.logger.Info("班级已创建",
		zap.Uint("class_id", class.ID),
		zap.Uint("owner_id", owner.ID),
		zap.Uint("principal_id", p.ID),
	)
	return class, nil
}

func (s *classService) GetByID(ctx context.Context, p authz.Principal, id uint) (*model.Class, error) {
	return s.loadClass(ctx, p, id, authz.ActionRead)
}

func (s *classService) List(ctx context.Context, p authz.Principal, req *dto.ClassListRequest) ([]model.Class, error) {
	filters, ok := classFiltersFor(p)
	if !ok {
		return []model.Class{}, nil
	}
	if req != nil {
		filters.Keyword = strings.TrimSpace(req.Keyword)
		filters.Level = strings.TrimSpace(req.Level)
		filters.Subject = strings.TrimSpace(req.Subject)
	}

	classes, err := s.repo.Class.ListWithFilters(ctx, filters)
	if err != nil {
		s.logger.Error("列出班级失败", zap.Error(err))
		return nil, err
	}
	return classes, nil
}

func (s *classService) Update(ctx context.Context, p authz.Principal, id uint, req *dto.UpdateClassRequest) (*model.Class, error) {
	class, err := s.loadClass(ctx, p, id, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		class.Name = strings.TrimSpace(*req.Name)
	}
	if req.Level != nil {
		class.Level = strings.TrimSpace(*req.Level)
	}
	if req.Subject != nil {
		class.Subject = strings.TrimSpace(*req.Subject)
	}
	if req.AcademicYear != nil {
		class.AcademicYear = strings.TrimSpace(*req.AcademicYear)
	}

	if err := s.repo.Class.Update(ctx, class); err != nil {
		s.logger.Error("更新班级失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return class, nil
}

func (s *classService) Delete(ctx context.Context, p authz.Principal, id uint) error {
	if _, err := s.loadClass(ctx, p, id, authz.ActionDelete); err != nil {
		return err
	}
	// 成员关系与考勤由外键级联删除，学生本身保留
	if err := s.repo.Class.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClassNotFound
		}
		s.logger.Error("删除班级失败", zap.Uint("id", id), zap.Error(err))
		return err
	}
	s.logger.Info("班级已删除", zap.Uint("class_id", id), zap.Uint("principal_id", p.ID))
	return nil
}

// ────────────────────── 花名册 ──────────────────────

func (s *classService) ListStudents(ctx context.Context, p authz.Principal, classID uint, req *dto.RosterListRequest) ([]model.Student, error) {
	if _, err := s.loadClass(ctx, p, classID, authz.ActionRead); err != nil {
		return nil, err
	}

	filters := &repository.StudentListFilters{}
	if req != nil {
		filters.Keyword = strings.TrimSpace(req.Keyword)
		filters.Gender = normalizeGender(req.Gender)
		filters.Religion = strings.TrimSpace(req.Religion)
	}

	students, err := s.repo.Student.ListByClass(ctx, classID, filters)
	if err != nil {
		s.logger.Error("查询花名册失败", zap.Uint("class_id", classID), zap.Error(err))
		return nil, err
	}
	return students, nil
}

func (s *classService) EnrollStudent(ctx context.Context, p authz.Principal, classID, studentID uint) (*dto.EnrollResponse, error) {
	if _, err := s.loadClass(ctx, p, classID, authz.ActionUpdate); err != nil {
		return nil, err
	}
	if _, err := s.repo.Student.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.Uint("student_id", studentID), zap.Error(err))
		return nil, err
	}

	res, err := newClassRoster(s.repo).Enroll(ctx, classID, studentID)
	if err != nil {
		s.logger.Error("加入班级失败",
			zap.Uint("class_id", classID),
			zap.Uint("student_id", studentID),
			zap.Error(err),
		)
		return nil, err
	}
	return &dto.EnrollResponse{
		StudentID:     studentID,
		AlreadyMember: res == EnrollAlreadyMember,
	}, nil
}

func (s *classService) RemoveStudent(ctx context.Context, p authz.Principal, classID, studentID uint) error {
	if _, err := s.loadClass(ctx, p, classID, authz.ActionUpdate); err != nil {
		return err
	}
	if err := s.repo.ClassStudent.Delete(ctx, classID, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotClassMember
		}
		s.logger.Error("移出班级失败",
			zap.Uint("class_id", classID),
			zap.Uint("student_id", studentID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

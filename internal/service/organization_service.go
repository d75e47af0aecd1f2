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
	"github.com/mijwadul/Belajar/internal/model"
	"github.com/mijwadul/Belajar/internal/repository"
	pkgerrors "github.com/mijwadul/Belajar/pkg/errors"
)

// ── 学校模块业务错误 ──

var (
	ErrOrgNotFound   = errors.New("学校不存在")
	ErrOrgNameExists = errors.New("学校名称已存在")
	ErrOrgInUse      = errors.New("学校下仍有用户或班级，无法删除")
)

// OrganizationService 学校业务接口
type OrganizationService interface {
	Create(ctx context.Context, p authz.Principal, req *dto.CreateOrganizationRequest) (*model.Organization, error)
	GetByID(ctx context.Context, p authz.Principal, id uint) (*model.Organization, error)
	List(ctx context.Context, p authz.Principal) ([]model.Organization, error)
	Update(ctx context.Context, p authz.Principal, id uint, req *dto.UpdateOrganizationRequest) (*model.Organization, error)
	Delete(ctx context.Context, p authz.Principal, id uint) error
}

type organizationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewOrganizationService 创建 OrganizationService 实例
func NewOrganizationService(repo *repository.Repository, logger *zap.Logger) OrganizationService {
	return &organizationService{repo: repo, logger: logger}
}

func authorizeManageOrganization(p authz.Principal) error {
	return authz.Authorize(p, authz.ActionManageOrganization, authz.Scope{}).Err()
}

func (s *organizationService) Create(ctx context.Context, p authz.Principal, req *dto.CreateOrganizationRequest) (*model.Organization, error) {
	if err := authorizeManageOrganization(p); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if _, err := s.repo.Organization.GetByName(ctx, name); err == nil {
		return nil, ErrOrgNameExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询学校失败", zap.Error(err))
		return nil, err
	}

	org := &model.Organization{Name: name, Address: strings.TrimSpace(req.Address)}
	if err := s.repo.Organization.Create(ctx, org); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrOrgNameExists
		}
		s.logger.Error("创建学校失败", zap.Error(err))
		return nil, err
	}
	return org, nil
}

func (s *organizationService) GetByID(ctx context.Context, p authz.Principal, id uint) (*model.Organization, error) {
	// 非超级管理员只能查看自己所属学校
	if p.Role != authz.RoleSuperUser && (p.OrganizationID == nil || *p.OrganizationID != id) {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, authz.ReasonScopeOrganization)
	}

	org, err := s.repo.Organization.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrgNotFound
		}
		s.logger.Error("查询学校失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return org, nil
}

func (s *organizationService) List(ctx context.Context, p authz.Principal) ([]model.Organization, error) {
	var onlyID *uint
	if p.Role != authz.RoleSuperUser {
		if p.OrganizationID == nil {
			return []model.Organization{}, nil
		}
		onlyID = p.OrganizationID
	}

	orgs, err := s.repo.Organization.List(ctx, onlyID)
	if err != nil {
		s.logger.Error("列出学校失败", zap.Error(err))
		return nil, err
	}
	return orgs, nil
}

func (s *organizationService) Update(ctx context.Context, p authz.Principal, id uint, req *dto.UpdateOrganizationRequest) (*model.Organization, error) {
	if err := authorizeManageOrganization(p); err != nil {
		return nil, err
	}

	org, err := s.repo.Organization.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrgNotFound
		}
		s.logger.Error("查询学校失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name != org.Name {
			if existing, err := s.repo.Organization.GetByName(ctx, name); err == nil && existing.ID != org.ID {
				return nil, ErrOrgNameExists
			} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
		org.Name = name
	}
	if req.Address != nil {
		org.Address = strings.TrimSpace(*req.Address)
	}

	if err := s.repo.Organization.Update(ctx, org); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrOrgNameExists
		}
		s.logger.Error("更新学校失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return org, nil
}

func (s *organizationService) Delete(ctx context.Context, p authz.Principal, id uint) error {
	if err := authorizeManageOrganization(p); err != nil {
		return err
	}
	if _, err := s.repo.Organization.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrgNotFound
		}
		return err
	}

	users, err := s.repo.Organization.CountUsers(ctx, id)
	if err != nil {
		return err
	}
	classes, err := s.repo.Organization.CountClasses(ctx, id)
	if err != nil {
		return err
	}
	if users > 0 || classes > 0 {
		return ErrOrgInUse
	}

	if err := s.repo.Organization.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrgNotFound
		}
		s.logger.Error("删除学校失败", zap.Uint("id", id), zap.Error(err))
		return err
	}
	s.logger.Info("学校已删除", zap.Uint("organization_id", id), zap.Uint("principal_id", p.ID))
	return nil
}

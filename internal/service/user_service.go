package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mijwadul/Belajar/internal/authz"
	"github.com/mijwadul/Belajar/internal/dto"
	"github.com/mijwadul/Belajar/internal/model"
	"github.com/mijwadul/Belajar/internal/repository"
	pkgerrors "github.com/mijwadul/Belajar/pkg/errors"
)

// ── 用户模块业务错误 ──

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailExists        = errors.New("邮箱已被使用")
	ErrUserOrgRequired    = errors.New("管理员和教师必须绑定学校")
	ErrUserSelfRoleChange = errors.New("不能修改自己的角色")
	ErrUserHasClasses     = errors.New("该用户仍担任班主任，无法删除")
)

// UserService 用户（Principal）管理业务接口
type UserService interface {
	Create(ctx context.Context, p authz.Principal, req *dto.CreateUserRequest) (*model.User, error)
	GetByID(ctx context.Context, p authz.Principal, id uint) (*model.User, error)
	List(ctx context.Context, p authz.Principal, req *dto.UserListRequest) (*dto.PageResponse[model.User], error)
	Update(ctx context.Context, p authz.Principal, id uint, req *dto.UpdateUserRequest) (*model.User, error)
	Delete(ctx context.Context, p authz.Principal, id uint) error
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// userScope 目标用户的授权范围；OwnerID 为用户自己，教师只能读取自己
func userScope(u *model.User) authz.Scope {
	id := u.ID
	return authz.Scope{
		OrganizationID: u.OrganizationID,
		OwnerID:        &id,
		SubjectID:      u.ID,
		SubjectRole:    authz.Role(u.Role),
	}
}

// resolveOrganization 校验角色与学校的组合：超级管理员不绑定学校，其他角色必须绑定
func (s *userService) resolveOrganization(ctx context.Context, role string, orgID *uint) (*uint, error) {
	if role == model.RoleSuperUser {
		return nil, nil
	}
	if orgID == nil {
		return nil, ErrUserOrgRequired
	}
	if _, err := s.repo.Organization.GetByID(ctx, *orgID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrgNotFound
		}
		return nil, err
	}
	id := *orgID
	return &id, nil
}

// ────────────────────── Create ──────────────────────

func (s *userService) Create(ctx context.Context, p authz.Principal, req *dto.CreateUserRequest) (*model.User, error) {
	orgID := req.OrganizationID
	// 学校管理员未指定学校时默认本校
	if orgID == nil && p.Role == authz.RoleOrgAdmin {
		orgID = p.OrganizationID
	}

	decision := authz.Authorize(p, authz.ActionCreatePrincipal, authz.Scope{
		OrganizationID: orgID,
		TargetRole:     authz.Role(req.Role),
	})
	if err := decision.Err(); err != nil {
		return nil, err
	}

	orgID, err := s.resolveOrganization(ctx, req.Role, orgID)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		FullName:       strings.TrimSpace(req.FullName),
		Email:          email,
		PasswordHash:   string(hash),
		Role:           req.Role,
		OrganizationID: orgID,
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("用户已创建",
		zap.Uint("user_id", user.ID),
		zap.String("role", user.Role),
		zap.Uint("principal_id", p.ID),
	)
	return user, nil
}

// ────────────────────── GetByID / List ──────────────────────

func (s *userService) load(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, p authz.Principal, id uint) (*model.User, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(p, authz.ActionRead, userScope(user)).Err(); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) List(ctx context.Context, p authz.Principal, req *dto.UserListRequest) (*dto.PageResponse[model.User], error) {
	page := &dto.PageResponse[model.User]{
		Items:    []model.User{},
		Page:     req.GetPage(),
		PageSize: req.GetPageSize(),
	}

	filters := &repository.UserListFilters{
		Role:    req.Role,
		Keyword: strings.TrimSpace(req.Keyword),
	}
	scope := authz.PrincipalListScopeFor(p)
	switch scope.Kind {
	case authz.ListAll:
		filters.OrganizationID = req.OrganizationID
	case authz.ListOrganization:
		// 学校管理员只能看到本校用户，忽略请求中的学校参数
		filters.OrganizationID = &scope.OrganizationID
	default:
		return page, nil
	}

	users, total, err := s.repo.User.ListWithFilters(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return nil, err
	}
	page.Items = users
	page.Total = total
	return page, nil
}

// ────────────────────── Update ──────────────────────

func (s *userService) Update(ctx context.Context, p authz.Principal, id uint, req *dto.UpdateUserRequest) (*model.User, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	scope := userScope(user)
	newRole := user.Role
	if req.Role != nil && *req.Role != user.Role {
		if id == p.ID {
			return nil, ErrUserSelfRoleChange
		}
		newRole = *req.Role
		scope.TargetRole = authz.Role(newRole)
	}
	if err := authz.Authorize(p, authz.ActionUpdatePrincipal, scope).Err(); err != nil {
		return nil, err
	}

	orgID := user.OrganizationID
	if req.OrganizationID != nil {
		orgID = req.OrganizationID
		// 迁移到其他学校时，对目标学校再做一次判定
		target := scope
		target.OrganizationID = orgID
		if err := authz.Authorize(p, authz.ActionUpdatePrincipal, target).Err(); err != nil {
			return nil, err
		}
	}
	orgID, err = s.resolveOrganization(ctx, newRole, orgID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			if existing, err := s.repo.User.GetByEmail(ctx, email); err == nil && existing.ID != user.ID {
				return nil, ErrEmailExists
			} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			user.Email = email
		}
	}
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			s.logger.Error("密码哈希失败", zap.Error(err))
			return nil, err
		}
		user.PasswordHash = string(hash)
	}
	user.Role = newRole
	user.OrganizationID = orgID
	user.Organization = nil

	if err := s.repo.User.Update(ctx, user); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		s.logger.Error("更新用户失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// ────────────────────── Delete ──────────────────────

func (s *userService) Delete(ctx context.Context, p authz.Principal, id uint) error {
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.Authorize(p, authz.ActionDeletePrincipal, userScope(user)).Err(); err != nil {
		return err
	}

	owned, err := s.repo.User.CountOwnedClasses(ctx, id)
	if err != nil {
		return err
	}
	if owned > 0 {
		return ErrUserHasClasses
	}

	if err := s.repo.User.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("删除用户失败", zap.Uint("id", id), zap.Error(err))
		return err
	}
	s.logger.Info("用户已删除", zap.Uint("user_id", id), zap.Uint("principal_id", p.ID))
	return nil
}

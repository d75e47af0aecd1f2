package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mijwadul/Belajar/internal/authz"
	"github.com/mijwadul/Belajar/internal/model"
	"github.com/mijwadul/Belajar/internal/repository"
)

// ErrForbidden 授权拒绝；与 authz.ErrDenied 为同一哨兵，errors.Is 两者皆可
var ErrForbidden = authz.ErrDenied

// classScope 班级的授权范围
func classScope(c *model.Class) authz.Scope {
	return authz.ResourceScope(c.OrganizationID, c.OwnerID)
}

// authorizeClass 判定 principal 能否对班级执行 action
func authorizeClass(p authz.Principal, action authz.Action, c *model.Class) error {
	return authz.Authorize(p, action, classScope(c)).Err()
}

// loadClass 读取班级并判定 principal 能否执行 action
func loadClass(ctx context.Context, repo *repository.Repository, logger *zap.Logger, p authz.Principal, id uint, action authz.Action) (*model.Class, error) {
	class, err := repo.Class.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		logger.Error("查询班级失败", zap.Uint("class_id", id), zap.Error(err))
		return nil, err
	}
	if err := authorizeClass(p, action, class); err != nil {
		return nil, err
	}
	return class, nil
}

// classFiltersFor 将读取范围转为班级列表过滤条件；ok=false 表示结果必为空
func classFiltersFor(p authz.Principal) (filters *repository.ClassListFilters, ok bool) {
	scope := authz.ListScopeFor(p)
	filters = &repository.ClassListFilters{}
	switch scope.Kind {
	case authz.ListAll:
	case authz.ListOrganization:
		filters.OrganizationID = &scope.OrganizationID
	case authz.ListOwner:
		filters.OwnerID = &scope.OwnerID
	default:
		return nil, false
	}
	return filters, true
}

// authorizeStudent 学生通过所属班级授权。
// 读取：对任一所属班级有权限即可；修改与删除：必须对全部所属班级有权限，
// 跨学校共享的学生只有超级管理员可以修改或删除。
// 不属于任何班级的学生只有超级管理员可以操作
func authorizeStudent(ctx context.Context, repo *repository.Repository, p authz.Principal, action authz.Action, studentID uint) error {
	classes, err := repo.Class.ListByStudent(ctx, studentID)
	if err != nil {
		return err
	}
	if len(classes) == 0 {
		return authz.Authorize(p, action, authz.Scope{}).Err()
	}

	requireAll := action != authz.ActionRead
	var denied error
	for i := range classes {
		decision := authz.Authorize(p, action, classScope(&classes[i]))
		if decision.Allowed {
			if !requireAll {
				return nil
			}
			continue
		}
		if requireAll {
			return decision.Err()
		}
		if denied == nil {
			denied = decision.Err()
		}
	}
	return denied
}

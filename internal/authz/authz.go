// Package authz 实现角色/租户授权判定。
//
// Authorize 是纯函数：输入 (Principal, Action, Scope)，输出 Decision，不做任何 I/O。
// 调用方负责在变更前读取资源归属并执行判定结果。
package authz

import (
	"errors"
	"fmt"
)

// Role 用户角色
type Role string

const (
	RoleSuperUser Role = "super_user"
	RoleOrgAdmin  Role = "admin"
	RoleTeacher   Role = "teacher"
)

// Valid 判断角色取值是否合法
func (r Role) Valid() bool {
	switch r {
	case RoleSuperUser, RoleOrgAdmin, RoleTeacher:
		return true
	}
	return false
}

// Action 被判定的操作
type Action string

const (
	// 班级 / 学生记录
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionImport Action = "import"

	// 用户管理
	ActionCreatePrincipal Action = "principal.create"
	ActionUpdatePrincipal Action = "principal.update"
	ActionDeletePrincipal Action = "principal.delete"

	// 学校增删改
	ActionManageOrganization Action = "organization.manage"
)

func (a Action) isPrincipalAction() bool {
	return a == ActionCreatePrincipal || a == ActionUpdatePrincipal || a == ActionDeletePrincipal
}

// Principal 已认证的调用方
type Principal struct {
	ID             uint
	Role           Role
	OrganizationID *uint
}

// HasOrganization 是否归属某个学校
func (p Principal) HasOrganization() bool {
	return p.OrganizationID != nil
}

// Scope 目标资源的归属信息
type Scope struct {
	OrganizationID *uint // 资源所属学校
	OwnerID        *uint // 资源所有者（班级创建者）

	// 仅用户管理操作使用
	SubjectID   uint // 被操作的用户
	SubjectRole Role // 被操作用户的当前角色
	TargetRole  Role // 新建或变更后的角色（未变更时为空）
}

// OrgScope 构造学校级别的 Scope
func OrgScope(orgID uint) Scope {
	return Scope{OrganizationID: &orgID}
}

// ResourceScope 构造同时带学校与所有者的 Scope
func ResourceScope(orgID, ownerID uint) Scope {
	return Scope{OrganizationID: &orgID, OwnerID: &ownerID}
}

// ── 判定结果 ──

// ErrDenied 授权拒绝哨兵错误，可用 errors.Is 判断
var ErrDenied = errors.New("无权操作")

// 拒绝原因
const (
	ReasonSelfDelete          = "不能删除自己"
	ReasonMissingOrganization = "账号未绑定学校"
	ReasonScopeOrganization   = "资源不属于本校"
	ReasonNotOwner            = "只能操作自己创建的数据"
	ReasonProtectedPrincipal  = "不能修改或删除超级管理员或其他学校管理员"
	ReasonAdminElevation      = "学校管理员不能创建或授予管理员角色"
	ReasonSuperUserOnly       = "仅超级管理员可执行该操作"
	ReasonTeacherNoManage     = "教师不能管理用户"
	ReasonUnknownRole         = "未知角色"
)

// Decision 授权判定结果
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow 允许
func Allow() Decision { return Decision{Allowed: true} }

// Deny 拒绝并给出原因
func Deny(reason string) Decision { return Decision{Reason: reason} }

// Err 将拒绝结果转为错误；允许时返回 nil
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrDenied, d.Reason)
}

// Authorize 判定 principal 能否对 scope 执行 action
func Authorize(p Principal, action Action, scope Scope) Decision {
	switch p.Role {
	case RoleSuperUser:
		return authorizeSuperUser(p, action, scope)
	case RoleOrgAdmin:
		return authorizeOrgAdmin(p, action, scope)
	case RoleTeacher:
		return authorizeTeacher(p, action, scope)
	default:
		return Deny(ReasonUnknownRole)
	}
}

func authorizeSuperUser(p Principal, action Action, scope Scope) Decision {
	if action == ActionDeletePrincipal && scope.SubjectID == p.ID {
		return Deny(ReasonSelfDelete)
	}
	return Allow()
}

func authorizeOrgAdmin(p Principal, action Action, scope Scope) Decision {
	if !p.HasOrganization() {
		return Deny(ReasonMissingOrganization)
	}
	if action == ActionManageOrganization {
		return Deny(ReasonSuperUserOnly)
	}

	if action.isPrincipalAction() {
		if action == ActionDeletePrincipal && scope.SubjectID == p.ID {
			return Deny(ReasonSelfDelete)
		}
		if scope.TargetRole == RoleOrgAdmin || scope.TargetRole == RoleSuperUser {
			return Deny(ReasonAdminElevation)
		}
		// 修改自己的资料不属于跨管理员操作
		isSelf := action == ActionUpdatePrincipal && scope.SubjectID == p.ID
		if action != ActionCreatePrincipal && !isSelf &&
			(scope.SubjectRole == RoleSuperUser || scope.SubjectRole == RoleOrgAdmin) {
			return Deny(ReasonProtectedPrincipal)
		}
	}

	if !sameOrganization(p.OrganizationID, scope.OrganizationID) {
		return Deny(ReasonScopeOrganization)
	}
	return Allow()
}

func authorizeTeacher(p Principal, action Action, scope Scope) Decision {
	if !p.HasOrganization() {
		return Deny(ReasonMissingOrganization)
	}
	if action.isPrincipalAction() {
		return Deny(ReasonTeacherNoManage)
	}
	if action == ActionManageOrganization {
		return Deny(ReasonSuperUserOnly)
	}
	if scope.OwnerID == nil || *scope.OwnerID != p.ID {
		return Deny(ReasonNotOwner)
	}
	// 新建时资源必须落在教师自己的学校
	if action == ActionCreate && !sameOrganization(p.OrganizationID, scope.OrganizationID) {
		return Deny(ReasonScopeOrganization)
	}
	return Allow()
}

func sameOrganization(a, b *uint) bool {
	return a != nil && b != nil && *a == *b
}

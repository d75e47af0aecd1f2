package authz

// ListScopeKind 列表查询的过滤方式
type ListScopeKind int

const (
	// ListEmpty 结果集为空（账号缺少学校时 fail-closed）
	ListEmpty ListScopeKind = iota
	// ListAll 不过滤
	ListAll
	// ListOrganization 按学校过滤
	ListOrganization
	// ListOwner 按所有者过滤
	ListOwner
)

// ListScope 列表查询过滤条件
type ListScope struct {
	Kind           ListScopeKind
	OrganizationID uint
	OwnerID        uint
}

// ListScopeFor 计算 principal 读取班级列表时的过滤条件
func ListScopeFor(p Principal) ListScope {
	switch p.Role {
	case RoleSuperUser:
		return ListScope{Kind: ListAll}
	case RoleOrgAdmin:
		if !p.HasOrganization() {
			return ListScope{Kind: ListEmpty}
		}
		return ListScope{Kind: ListOrganization, OrganizationID: *p.OrganizationID}
	case RoleTeacher:
		if !p.HasOrganization() {
			return ListScope{Kind: ListEmpty}
		}
		return ListScope{Kind: ListOwner, OwnerID: p.ID}
	default:
		return ListScope{Kind: ListEmpty}
	}
}

// PrincipalListScopeFor 计算 principal 读取用户列表时的过滤条件
// 教师无权列出用户
func PrincipalListScopeFor(p Principal) ListScope {
	switch p.Role {
	case RoleSuperUser:
		return ListScope{Kind: ListAll}
	case RoleOrgAdmin:
		if !p.HasOrganization() {
			return ListScope{Kind: ListEmpty}
		}
		return ListScope{Kind: ListOrganization, OrganizationID: *p.OrganizationID}
	default:
		return ListScope{Kind: ListEmpty}
	}
}

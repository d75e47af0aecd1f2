package model

// 角色取值
const (
	RoleSuperUser = "super_user"
	RoleAdmin     = "admin"
	RoleTeacher   = "teacher"
)

// User 系统用户（Principal）— 对应 users
// admin/teacher 必须归属学校；super_user 不归属任何学校
type User struct {
	ID             uint   `gorm:"primaryKey"                               json:"id"`
	FullName       string `gorm:"type:varchar(100);not null"               json:"full_name"`
	Email          string `gorm:"type:varchar(120);not null;unique"        json:"email"`
	PasswordHash   string `gorm:"type:varchar(256);not null"               json:"-"`
	Role           string `gorm:"type:varchar(20);not null;default:'teacher'" json:"role"`
	OrganizationID *uint  `json:"organization_id,omitempty"`
	Timestamps

	// 关联
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

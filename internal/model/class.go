package model

// Class 班级 — 对应 classes
type Class struct {
	ID             uint   `gorm:"primaryKey"                 json:"id"`
	Name           string `gorm:"type:varchar(100);not null" json:"name"`
	Level          string `gorm:"type:varchar(50);not null"  json:"level"`
	Subject        string `gorm:"type:varchar(100);not null" json:"subject"`
	AcademicYear   string `gorm:"type:varchar(20);not null"  json:"academic_year"`
	OrganizationID uint   `gorm:"not null"                   json:"organization_id"`
	OwnerID        uint   `gorm:"not null"                   json:"owner_id"`
	Timestamps

	// 关联
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Owner        *User         `gorm:"foreignKey:OwnerID"        json:"owner,omitempty"`
}

// TableName 指定表名
func (Class) TableName() string { return "classes" }

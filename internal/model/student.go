package model

import "time"

// Student 学生（全局实体，通过 ClassStudent 关联多个班级）— 对应 students
// NISN 非空时全局唯一
type Student struct {
	ID           uint       `gorm:"primaryKey"                 json:"id"`
	FullName     string     `gorm:"type:varchar(150);not null" json:"full_name"`
	NISN         *string    `gorm:"column:nisn;type:varchar(20)" json:"nisn,omitempty"`
	NIS          string     `gorm:"column:nis;type:varchar(20)"  json:"nis,omitempty"`
	BirthPlace   string     `gorm:"type:varchar(100)"          json:"birth_place,omitempty"`
	BirthDate    *time.Time `gorm:"type:date"                  json:"birth_date,omitempty"`
	Gender       string     `gorm:"type:varchar(20)"           json:"gender,omitempty"`
	Religion     string     `gorm:"type:varchar(50)"           json:"religion,omitempty"`
	Address      string     `gorm:"type:text"                  json:"address,omitempty"`
	Phone        string     `gorm:"type:varchar(20)"           json:"phone,omitempty"`
	GuardianName string     `gorm:"type:varchar(150)"          json:"guardian_name,omitempty"`
	Timestamps
}

// TableName 指定表名
func (Student) TableName() string { return "students" }

// NISNValue 返回 NISN 字符串（为空时返回 ""）
func (s *Student) NISNValue() string {
	if s.NISN == nil {
		return ""
	}
	return *s.NISN
}

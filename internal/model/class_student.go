package model

import "time"

// ClassStudent 班级成员关系（联合主键）— 对应 class_students
type ClassStudent struct {
	ClassID   uint      `gorm:"primaryKey;autoIncrement:false" json:"class_id"`
	StudentID uint      `gorm:"primaryKey;autoIncrement:false" json:"student_id"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (ClassStudent) TableName() string { return "class_students" }

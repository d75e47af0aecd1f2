package model

import "time"

// 考勤状态取值
const (
	AttendancePresent = "hadir"
	AttendanceSick    = "sakit"
	AttendanceExcused = "izin"
	AttendanceAbsent  = "alpa"
)

// Attendance 考勤记录 — 对应 attendances
// 同一学生同一班级同一天仅一条
type Attendance struct {
	ID        uint      `gorm:"primaryKey"                json:"id"`
	ClassID   uint      `gorm:"not null"                  json:"class_id"`
	StudentID uint      `gorm:"not null"                  json:"student_id"`
	Date      time.Time `gorm:"type:date;not null"        json:"date"`
	Status    string    `gorm:"type:varchar(20);not null" json:"status"`
	Timestamps

	// 关联
	Student *Student `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

// TableName 指定表名
func (Attendance) TableName() string { return "attendances" }

// ExamAnswer 学生答卷（仅用于级联删除约束，内容生成不在本服务内）— 对应 exam_answers
type ExamAnswer struct {
	ID         uint      `gorm:"primaryKey"                         json:"id"`
	ExamID     uint      `gorm:"not null"                           json:"exam_id"`
	StudentID  uint      `gorm:"not null"                           json:"student_id"`
	AnswerText string    `gorm:"type:text"                          json:"answer_text,omitempty"`
	Score      *float64  `json:"score,omitempty"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (ExamAnswer) TableName() string { return "exam_answers" }

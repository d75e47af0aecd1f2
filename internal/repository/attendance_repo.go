package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mijwadul/Belajar/internal/model"
)

// AttendanceRepository 考勤数据访问接口
type AttendanceRepository interface {
	// Upsert 按 (class_id, student_id, date) 写入考勤，已存在时覆盖状态
	Upsert(ctx context.Context, records []model.Attendance) error
	ListByClassAndDate(ctx context.Context, classID uint, date time.Time) ([]model.Attendance, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) Upsert(ctx context.Context, records []model.Attendance) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Omit("Student").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "class_id"}, {Name: "student_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).
		Create(&records).Error
}

func (r *attendanceRepo) ListByClassAndDate(ctx context.Context, classID uint, date time.Time) ([]model.Attendance, error) {
	var records []model.Attendance
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("class_id = ? AND date = ?", classID, date.Format("2006-01-02")).
		Order("student_id ASC").
		Find(&records).Error
	return records, err
}

package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mijwadul/Belajar/internal/model"
)

// ClassStudentRepository 班级成员关系数据访问接口
type ClassStudentRepository interface {
	Exists(ctx context.Context, classID, studentID uint) (bool, error)
	// Create 新增成员关系；重复时返回唯一约束错误
	Create(ctx context.Context, classID, studentID uint) error
	Delete(ctx context.Context, classID, studentID uint) error
	CountByClass(ctx context.Context, classID uint) (int64, error)
}

type classStudentRepo struct {
	db *gorm.DB
}

// NewClassStudentRepo 创建 ClassStudentRepository 实例
func NewClassStudentRepo(db *gorm.DB) ClassStudentRepository {
	return &classStudentRepo{db: db}
}

func (r *classStudentRepo) Exists(ctx context.Context, classID, studentID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ClassStudent{}).
		Where("class_id = ? AND student_id = ?", classID, studentID).
		Count(&count).Error
	return count > 0, err
}

func (r *classStudentRepo) Create(ctx context.Context, classID, studentID uint) error {
	return r.db.WithContext(ctx).Create(&model.ClassStudent{
		ClassID:   classID,
		StudentID: studentID,
	}).Error
}

func (r *classStudentRepo) Delete(ctx context.Context, classID, studentID uint) error {
	res := r.db.WithContext(ctx).
		Where("class_id = ? AND student_id = ?", classID, studentID).
		Delete(&model.ClassStudent{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *classStudentRepo) CountByClass(ctx context.Context, classID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ClassStudent{}).
		Where("class_id = ?", classID).
		Count(&count).Error
	return count, err
}

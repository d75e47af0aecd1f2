package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mijwadul/Belajar/internal/model"
)

// StudentListFilters 班级花名册过滤条件
type StudentListFilters struct {
	Keyword  string // 匹配姓名 / NISN / NIS
	Gender   string
	Religion string
}

// StudentRepository 学生数据访问接口
type StudentRepository interface {
	Create(ctx context.Context, student *model.Student) error
	GetByID(ctx context.Context, id uint) (*model.Student, error)
	GetByNISN(ctx context.Context, nisn string) (*model.Student, error)
	ListByClass(ctx context.Context, classID uint, filters *StudentListFilters) ([]model.Student, error)
	Update(ctx context.Context, student *model.Student) error
	// Delete 删除学生及其成员关系、考勤与答卷；学生不存在时返回 gorm.ErrRecordNotFound
	Delete(ctx context.Context, id uint) error
}

type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) Create(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepo) GetByID(ctx context.Context, id uint) (*model.Student, error) {
	var student model.Student
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&student).Error; err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) GetByNISN(ctx context.Context, nisn string) (*model.Student, error) {
	var student model.Student
	if err := r.db.WithContext(ctx).Where("nisn = ?", nisn).First(&student).Error; err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) ListByClass(ctx context.Context, classID uint, filters *StudentListFilters) ([]model.Student, error) {
	var students []model.Student

	db := r.db.WithContext(ctx).
		Joins("JOIN class_students cs ON cs.student_id = students.id").
		Where("cs.class_id = ?", classID)
	if filters != nil {
		if filters.Keyword != "" {
			like := "%" + filters.Keyword + "%"
			db = db.Where("students.full_name ILIKE ? OR students.nisn ILIKE ? OR students.nis ILIKE ?", like, like, like)
		}
		if filters.Gender != "" {
			db = db.Where("students.gender = ?", filters.Gender)
		}
		if filters.Religion != "" {
			db = db.Where("students.religion = ?", filters.Religion)
		}
	}

	err := db.Order("students.full_name ASC").Find(&students).Error
	return students, err
}

func (r *studentRepo) Update(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Save(student).Error
}

func (r *studentRepo) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)

	// 外键已配置 ON DELETE CASCADE，这里显式删除子记录，保证在任何存储上都不留孤儿数据
	if err := db.Where("student_id = ?", id).Delete(&model.ClassStudent{}).Error; err != nil {
		return err
	}
	if err := db.Where("student_id = ?", id).Delete(&model.Attendance{}).Error; err != nil {
		return err
	}
	if err := db.Where("student_id = ?", id).Delete(&model.ExamAnswer{}).Error; err != nil {
		return err
	}

	res := db.Where("id = ?", id).Delete(&model.Student{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

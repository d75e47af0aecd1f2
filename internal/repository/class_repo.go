package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mijwadul/Belajar/internal/model"
)

// ClassListFilters 班级列表过滤条件
// OrganizationID / OwnerID 由调用方根据读取范围填写
type ClassListFilters struct {
	OrganizationID *uint
	OwnerID        *uint
	Keyword        string // 匹配班级名称或科目
	Level          string
	Subject        string
}

// ClassRepository 班级数据访问接口
type ClassRepository interface {
	Create(ctx context.Context, class *model.Class) error
	GetByID(ctx context.Context, id uint) (*model.Class, error)
	ListWithFilters(ctx context.Context, filters *ClassListFilters) ([]model.Class, error)
	// ListByStudent 返回学生所属的全部班级
	ListByStudent(ctx context.Context, studentID uint) ([]model.Class, error)
	Update(ctx context.Context, class *model.Class) error
	Delete(ctx context.Context, id uint) error
}

type classRepo struct {
	db *gorm.DB
}

// NewClassRepo 创建 ClassRepository 实例
func NewClassRepo(db *gorm.DB) ClassRepository {
	return &classRepo{db: db}
}

func (r *classRepo) Create(ctx context.Context, class *model.Class) error {
	return r.db.WithContext(ctx).Omit("Organization", "Owner").Create(class).Error
}

func (r *classRepo) GetByID(ctx context.Context, id uint) (*model.Class, error) {
	var class model.Class
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("id = ?", id).
		First(&class).Error
	if err != nil {
		return nil, err
	}
	return &class, nil
}

func (r *classRepo) ListWithFilters(ctx context.Context, filters *ClassListFilters) ([]model.Class, error) {
	var classes []model.Class

	db := r.db.WithContext(ctx).Model(&model.Class{})
	if filters != nil {
		if filters.OrganizationID != nil {
			db = db.Where("organization_id = ?", *filters.OrganizationID)
		}
		if filters.OwnerID != nil {
			db = db.Where("owner_id = ?", *filters.OwnerID)
		}
		if filters.Keyword != "" {
			like := "%" + filters.Keyword + "%"
			db = db.Where("name ILIKE ? OR subject ILIKE ?", like, like)
		}
		if filters.Level != "" {
			db = db.Where("level = ?", filters.Level)
		}
		if filters.Subject != "" {
			db = db.Where("subject = ?", filters.Subject)
		}
	}

	err := db.Preload("Owner").
		Order("academic_year DESC, name ASC").
		Find(&classes).Error
	return classes, err
}

func (r *classRepo) ListByStudent(ctx context.Context, studentID uint) ([]model.Class, error) {
	var classes []model.Class
	err := r.db.WithContext(ctx).
		Joins("JOIN class_students cs ON cs.class_id = classes.id").
		Where("cs.student_id = ?", studentID).
		Order("classes.id ASC").
		Find(&classes).Error
	return classes, err
}

func (r *classRepo) Update(ctx context.Context, class *model.Class) error {
	return r.db.WithContext(ctx).Omit("Organization", "Owner").Save(class).Error
}

func (r *classRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Class{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

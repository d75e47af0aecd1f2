package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Organization OrganizationRepository
	User         UserRepository
	Class        ClassRepository
	Student      StudentRepository
	ClassStudent ClassStudentRepository
	Attendance   AttendanceRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		Organization: NewOrganizationRepo(db),
		User:         NewUserRepo(db),
		Class:        NewClassRepo(db),
		Student:      NewStudentRepo(db),
		ClassStudent: NewClassStudentRepo(db),
		Attendance:   NewAttendanceRepo(db),
	}
}

// BeginTx 开启事务；db 为空（单元测试中的 mock 聚合）时返回 nil
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// WithTx 返回绑定到事务连接的 Repository 聚合
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// Transaction 在独立的工作单元中执行 fn
//
// 若当前聚合未绑定事务，则开启一个顶层事务并在 fn 成功时提交；
// 若已绑定外层事务（WithTx），GORM 会改用 SAVEPOINT，fn 失败时只回滚到该保存点，
// 外层事务仍可继续执行并提交。
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

package service

import (
	"context"

	"github.com/mijwadul/Belajar/internal/repository"
	pkgerrors "github.com/mijwadul/Belajar/pkg/errors"
)

// EnrollResult 入班结果
type EnrollResult string

const (
	EnrollEnrolled      EnrollResult = "enrolled"
	EnrollAlreadyMember EnrollResult = "already_member"
)

// classRoster 维护班级成员关系，重复入班是结果而不是错误
type classRoster struct {
	repo *repository.Repository
}

func newClassRoster(repo *repository.Repository) *classRoster {
	return &classRoster{repo: repo}
}

// Enroll 将学生加入班级
func (r *classRoster) Enroll(ctx context.Context, classID, studentID uint) (EnrollResult, error) {
	exists, err := r.repo.ClassStudent.Exists(ctx, classID, studentID)
	if err != nil {
		return "", err
	}
	if exists {
		return EnrollAlreadyMember, nil
	}

	if err := r.repo.ClassStudent.Create(ctx, classID, studentID); err != nil {
		// 检查与插入之间被并发请求抢先
		if pkgerrors.IsUniqueViolation(err) {
			return EnrollAlreadyMember, nil
		}
		return "", err
	}
	return EnrollEnrolled, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mijwadul/Belajar/internal/dto"
	"github.com/mijwadul/Belajar/internal/model"
	"github.com/mijwadul/Belajar/internal/repository"
	pkgerrors "github.com/mijwadul/Belajar/pkg/errors"
)

// ── 学生身份登记业务错误 ──

var (
	ErrInvalidStudent   = errors.New("学生数据不合法")
	ErrRegistryConflict = errors.New("NISN 已被其他请求同时登记")
)

// ResolutionKind 按 NISN 解析学生身份的结果
type ResolutionKind string

const (
	ResolutionCreated        ResolutionKind = "created"
	ResolutionLinkedExisting ResolutionKind = "linked_existing"
)

// StudentCandidate 经过清洗的学生候选数据
type StudentCandidate struct {
	FullName     string
	NISN         string
	NIS          string
	BirthPlace   string
	BirthDate    *time.Time
	Gender       string
	Religion     string
	Address      string
	Phone        string
	GuardianName string
}

// birthDateLayouts 支持 D-M-YYYY 与 YYYY-M-D，分隔符为 - / .
var birthDateLayouts = []string{
	"2-1-2006", "2/1/2006", "2.1.2006",
	"2006-1-2", "2006/1/2", "2006.1.2",
}

// parseBirthDate 解析出生日期
func parseBirthDate(s string) (time.Time, error) {
	for _, layout := range birthDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: 出生日期格式无法识别: %s", ErrInvalidStudent, s)
}

// normalizeGender L/P 转为完整写法，其他取值原样保留
func normalizeGender(s string) string {
	g := strings.TrimSpace(s)
	switch strings.ToUpper(g) {
	case "L":
		return "Laki-laki"
	case "P":
		return "Perempuan"
	}
	return g
}

// ParseStudentRow 清洗并校验一行学生数据
func ParseStudentRow(row dto.StudentRow) (StudentCandidate, error) {
	c := StudentCandidate{
		FullName:     strings.TrimSpace(row.FullName),
		NISN:         strings.TrimSpace(row.NISN),
		NIS:          strings.TrimSpace(row.NIS),
		BirthPlace:   strings.TrimSpace(row.BirthPlace),
		Gender:       normalizeGender(row.Gender),
		Religion:     strings.TrimSpace(row.Religion),
		Address:      strings.TrimSpace(row.Address),
		Phone:        strings.TrimSpace(row.Phone),
		GuardianName: strings.TrimSpace(row.GuardianName),
	}
	if c.FullName == "" {
		return c, fmt.Errorf("%w: 姓名为空", ErrInvalidStudent)
	}
	if c.NISN == "" {
		return c, fmt.Errorf("%w: NISN 为空", ErrInvalidStudent)
	}
	if bd := strings.TrimSpace(row.BirthDate); bd != "" {
		t, err := parseBirthDate(bd)
		if err != nil {
			return c, err
		}
		c.BirthDate = &t
	}
	return c, nil
}

func (c StudentCandidate) toModel() *model.Student {
	nisn := c.NISN
	return &model.Student{
		FullName:     c.FullName,
		NISN:         &nisn,
		NIS:          c.NIS,
		BirthPlace:   c.BirthPlace,
		BirthDate:    c.BirthDate,
		Gender:       c.Gender,
		Religion:     c.Religion,
		Address:      c.Address,
		Phone:        c.Phone,
		GuardianName: c.GuardianName,
	}
}

// identityRegistry 按 NISN 查找或登记学生
// repo 可以是绑定到事务的聚合，登记与后续入班在同一工作单元内
type identityRegistry struct {
	repo *repository.Repository
}

func newIdentityRegistry(repo *repository.Repository) *identityRegistry {
	return &identityRegistry{repo: repo}
}

// ResolveOrCreate 已存在则关联（不覆盖已有字段），否则新建
func (r *identityRegistry) ResolveOrCreate(ctx context.Context, c StudentCandidate) (*model.Student, ResolutionKind, error) {
	if c.FullName == "" || c.NISN == "" {
		return nil, "", fmt.Errorf("%w: 姓名或 NISN 为空", ErrInvalidStudent)
	}

	existing, err := r.repo.Student.GetByNISN(ctx, c.NISN)
	if err == nil {
		return existing, ResolutionLinkedExisting, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	student := c.toModel()
	if err := r.repo.Student.Create(ctx, student); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, "", ErrRegistryConflict
		}
		return nil, "", err
	}
	return student, ResolutionCreated, nil
}

package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mijwadul/Belajar/internal/authz"
	"github.com/mijwadul/Belajar/internal/dto"
)

func setupClassService() (*fixture, ClassService) {
	f := newFixture()
	return f, NewClassService(f.repo, zap.NewNop())
}

func TestClassCreate_OrganizationFollowsOwner(t *testing.T) {
	f, svc := setupClassService()
	req := &dto.CreateClassRequest{Name: "VII-A", Level: "SMP", Subject: "IPA", AcademicYear: "2024/2025"}

	class, err := svc.Create(context.Background(), principalOf(f.teacherA), req)
	if err != nil {
		t.Fatalf("教师创建班级失败: %v", err)
	}
	if class.OwnerID != f.teacherA.ID || class.OrganizationID != f.orgA.ID {
		t.Errorf("班级归属不符: owner=%d org=%d", class.OwnerID, class.OrganizationID)
	}

	// 超级管理员为外校教师创建
	req.OwnerID = uintPtr(f.teacherB.ID)
	class, err = svc.Create(context.Background(), principalOf(f.super), req)
	if err != nil {
		t.Fatalf("超级管理员创建班级失败: %v", err)
	}
	if class.OrganizationID != f.orgB.ID {
		t.Errorf("班级学校应取自班主任，实际 %d", class.OrganizationID)
	}
}

func TestClassCreate_Denied(t *testing.T) {
	f, svc := setupClassService()
	base := dto.CreateClassRequest{Name: "VII-A", Level: "SMP", Subject: "IPA", AcademicYear: "2024/2025"}

	tests := []struct {
		name    string
		caller  authz.Principal
		ownerID *uint
		wantErr error
	}{
		{"教师不能替他人建班", principalOf(f.teacherA), uintPtr(f.teacherA2.ID), ErrForbidden},
		{"管理员不能为外校教师建班", principalOf(f.adminA), uintPtr(f.teacherB.ID), ErrForbidden},
		{"超级管理员本人不能担任班主任", principalOf(f.super), nil, ErrClassOwnerInvalid},
		{"班主任不存在", principalOf(f.super), uintPtr(4242), ErrClassOwnerInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			req.OwnerID = tt.ownerID
			if _, err := svc.Create(context.Background(), tt.caller, &req); !errors.Is(err, tt.wantErr) {
				t.Errorf("期望 %v，实际 %v", tt.wantErr, err)
			}
		})
	}
}

func TestClassList_Scoped(t *testing.T) {
	f, svc := setupClassService()
	f.addClass("A1", f.teacherA)
	f.addClass("A2", f.teacherA2)
	f.addClass("B1", f.teacherB)
	orphanAdmin := f.addUser("Admin Tanpa Sekolah", "admin", nil)

	tests := []struct {
		name   string
		caller authz.Principal
		want   int
	}{
		{"超级管理员看到全部", principalOf(f.super), 3},
		{"管理员看到本校", principalOf(f.adminA), 2},
		{"教师只看到自己的", principalOf(f.teacherA), 1},
		{"未绑定学校的管理员为空", principalOf(orphanAdmin), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classes, err := svc.List(context.Background(), tt.caller, &dto.ClassListRequest{})
			if err != nil {
				t.Fatalf("List 失败: %v", err)
			}
			if len(classes) != tt.want {
				t.Errorf("期望 %d 个班级，实际 %d", tt.want, len(classes))
			}
		})
	}
}

func TestClassList_Filters(t *testing.T) {
	f, svc := setupClassService()
	c := f.addClass("VII-A", f.teacherA)
	c.Subject = "Bahasa Indonesia"
	f.addClass("VIII-B", f.teacherA)

	classes, _ := svc.List(context.Background(), principalOf(f.super), &dto.ClassListRequest{Keyword: "bahasa"})
	if len(classes) != 1 || classes[0].ID != c.ID {
		t.Errorf("关键字过滤不符: %+v", classes)
	}
	classes, _ = svc.List(context.Background(), principalOf(f.super), &dto.ClassListRequest{Subject: "Matematika"})
	if len(classes) != 1 {
		t.Errorf("科目过滤期望 1，实际 %d", len(classes))
	}
}

func TestClassUpdateDelete_Ownership(t *testing.T) {
	f, svc := setupClassService()
	class := f.addClass("VII-A", f.teacherA)
	ctx := context.Background()

	if _, err := svc.Update(ctx, principalOf(f.teacherA2), class.ID, &dto.UpdateClassRequest{Name: strPtr("X")}); !errors.Is(err, ErrForbidden) {
		t.Errorf("其他教师修改应被拒绝，实际 %v", err)
	}
	updated, err := svc.Update(ctx, principalOf(f.teacherA), class.ID, &dto.UpdateClassRequest{Name: strPtr("VII-Z")})
	if err != nil || updated.Name != "VII-Z" {
		t.Errorf("班主任修改失败: %v", err)
	}
	if err := svc.Delete(ctx, principalOf(f.teacherB), class.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("外校教师删除应被拒绝，实际 %v", err)
	}
	if err := svc.Delete(ctx, principalOf(f.adminA), class.ID); err != nil {
		t.Errorf("本校管理员删除失败: %v", err)
	}
	if _, err := svc.GetByID(ctx, principalOf(f.super), class.ID); !errors.Is(err, ErrClassNotFound) {
		t.Errorf("删除后期望 ErrClassNotFound，实际 %v", err)
	}
}

func TestClassRoster_ListEnrollRemove(t *testing.T) {
	f, svc := setupClassService()
	class := f.addClass("VII-A", f.teacherA)
	ana := f.addStudent("Ana", "111")
	budi := f.addStudent("Budi", "222")
	ana.Gender = "Perempuan"
	budi.Gender = "Laki-laki"
	f.enroll(class, ana)
	ctx := context.Background()
	p := principalOf(f.teacherA)

	resp, err := svc.EnrollStudent(ctx, p, class.ID, budi.ID)
	if err != nil || resp.AlreadyMember {
		t.Fatalf("加入班级失败: %+v err=%v", resp, err)
	}
	resp, _ = svc.EnrollStudent(ctx, p, class.ID, budi.ID)
	if !resp.AlreadyMember {
		t.Error("重复加入应报告 already_member")
	}
	if _, err := svc.EnrollStudent(ctx, p, class.ID, 4242); !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("期望 ErrStudentNotFound，实际 %v", err)
	}

	students, _ := svc.ListStudents(ctx, p, class.ID, &dto.RosterListRequest{Gender: "L"})
	if len(students) != 1 || students[0].ID != budi.ID {
		t.Errorf("按性别过滤（代码 L）不符: %+v", students)
	}

	if err := svc.RemoveStudent(ctx, p, class.ID, ana.ID); err != nil {
		t.Errorf("移出班级失败: %v", err)
	}
	if err := svc.RemoveStudent(ctx, p, class.ID, ana.ID); !errors.Is(err, ErrNotClassMember) {
		t.Errorf("重复移出期望 ErrNotClassMember，实际 %v", err)
	}
	if _, ok := f.store.students[ana.ID]; !ok {
		t.Error("移出班级不应删除学生")
	}
}

func TestExportRoster(t *testing.T) {
	f := newFixture()
	svc := NewExportService(f.repo, zap.NewNop())
	class := f.addClass("VII-A", f.teacherA)
	f.enroll(class, f.addStudent("Budi", "222"))
	f.enroll(class, f.addStudent("Ana", "111"))

	buf, filename, err := svc.ExportRoster(context.Background(), principalOf(f.teacherA), class.ID)
	if err != nil {
		t.Fatalf("导出失败: %v", err)
	}
	if filename == "" {
		t.Error("文件名不应为空")
	}

	xf, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("导出内容不是合法 Excel: %v", err)
	}
	defer xf.Close()
	rows, _ := xf.GetRows("Siswa")
	if len(rows) != 4 {
		t.Fatalf("期望 标题+表头+2 行，实际 %d", len(rows))
	}
	if rows[2][1] != "Ana" || rows[3][1] != "Budi" {
		t.Errorf("学生应按姓名排序: %v / %v", rows[2], rows[3])
	}

	// 导出的表头可被导入识别
	idx := parseHeaderIndex(rows[1])
	if _, ok := idx["full_name"]; !ok {
		t.Error("导出表头应包含 Nama")
	}
	if _, ok := idx["nisn"]; !ok {
		t.Error("导出表头应包含 NISN")
	}

	if _, _, err := svc.ExportRoster(context.Background(), principalOf(f.teacherB), class.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("外校教师导出应被拒绝，实际 %v", err)
	}
}

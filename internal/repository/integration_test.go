//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mijwadul/Belajar/internal/model"
	"github.com/mijwadul/Belajar/internal/repository"
	"github.com/mijwadul/Belajar/pkg/database"
	pkgerrors "github.com/mijwadul/Belajar/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=postgres password=postgres dbname=sekolah_test sslmode=disable TimeZone=Asia/Jakarta"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取底层连接失败: %v\n", err)
		os.Exit(1)
	}
	// 使用与生产一致的迁移，保证唯一索引与级联约束存在
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

// uniqueSuffix 12 位以内，拼接前缀后仍符合 nisn VARCHAR(20)
func uniqueSuffix() string {
	return fmt.Sprintf("%d", time.Now().UnixNano()%1e12)
}

func strPtr(s string) *string { return &s }

// setupClass 创建学校、教师与班级并返回清理函数
func setupClass(t *testing.T) (class *model.Class, cleanup func()) {
	t.Helper()
	ctx := context.Background()
	suffix := uniqueSuffix()

	org := &model.Organization{Name: "SMP Uji " + suffix}
	if err := testDB.WithContext(ctx).Create(org).Error; err != nil {
		t.Fatalf("创建学校失败: %v", err)
	}
	teacher := &model.User{
		FullName:       "Guru Uji",
		Email:          "guru" + suffix + "@sekolah.id",
		PasswordHash:   "$2a$10$placeholder",
		Role:           model.RoleTeacher,
		OrganizationID: &org.ID,
	}
	if err := testDB.WithContext(ctx).Create(teacher).Error; err != nil {
		t.Fatalf("创建教师失败: %v", err)
	}
	class = &model.Class{
		Name:           "VII-A",
		Level:          "SMP",
		Subject:        "Matematika",
		AcademicYear:   "2024/2025",
		OrganizationID: org.ID,
		OwnerID:        teacher.ID,
	}
	if err := testDB.WithContext(ctx).Create(class).Error; err != nil {
		t.Fatalf("创建班级失败: %v", err)
	}

	cleanup = func() {
		testDB.Where("id = ?", class.ID).Delete(&model.Class{})
		testDB.Where("id = ?", teacher.ID).Delete(&model.User{})
		testDB.Where("id = ?", org.ID).Delete(&model.Organization{})
	}
	return class, cleanup
}

// ═══════════════════════════════════════════════════════════
// Test: Transaction
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}
	txRepo := repo.WithTx(tx)

	student := &model.Student{FullName: "Rollback", NISN: strPtr("RB" + uniqueSuffix())}
	if err := txRepo.Student.Create(ctx, student); err != nil {
		tx.Rollback()
		t.Fatalf("事务内创建学生失败: %v", err)
	}
	tx.Rollback()

	if _, err := repo.Student.GetByID(ctx, student.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		testDB.Where("id = ?", student.ID).Delete(&model.Student{})
		t.Fatalf("期望回滚后查不到学生，实际 err=%v", err)
	}
}

// 外层事务中，失败的子工作单元只回滚到自己的保存点
func TestTransaction_SavepointIsolatesFailedUnit(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	nisn := "SP" + uniqueSuffix()

	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}
	outer := repo.WithTx(tx)

	first := &model.Student{FullName: "Ana", NISN: strPtr(nisn)}
	if err := outer.Transaction(ctx, func(r *repository.Repository) error {
		return r.Student.Create(ctx, first)
	}); err != nil {
		tx.Rollback()
		t.Fatalf("第一个工作单元应成功: %v", err)
	}

	err = outer.Transaction(ctx, func(r *repository.Repository) error {
		return r.Student.Create(ctx, &model.Student{FullName: "Ana Duplicate", NISN: strPtr(nisn)})
	})
	if !pkgerrors.IsUniqueViolation(err) {
		tx.Rollback()
		t.Fatalf("期望唯一约束冲突，实际 %v", err)
	}

	third := &model.Student{FullName: "Budi", NISN: strPtr(nisn + "B")}
	if err := outer.Transaction(ctx, func(r *repository.Repository) error {
		return r.Student.Create(ctx, third)
	}); err != nil {
		tx.Rollback()
		t.Fatalf("冲突之后连接应仍可用: %v", err)
	}

	if err := tx.Commit().Error; err != nil {
		t.Fatalf("Commit 失败: %v", err)
	}
	defer testDB.Where("id IN ?", []uint{first.ID, third.ID}).Delete(&model.Student{})

	for _, id := range []uint{first.ID, third.ID} {
		if _, err := repo.Student.GetByID(ctx, id); err != nil {
			t.Errorf("学生 %d 应已提交: %v", id, err)
		}
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Student / Membership
// ═══════════════════════════════════════════════════════════

func TestClassStudent_DuplicateIsUniqueViolation(t *testing.T) {
	class, cleanup := setupClass(t)
	defer cleanup()
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	student := &model.Student{FullName: "Citra", NISN: strPtr("CS" + uniqueSuffix())}
	if err := repo.Student.Create(ctx, student); err != nil {
		t.Fatalf("创建学生失败: %v", err)
	}
	defer repo.Student.Delete(ctx, student.ID)

	if err := repo.ClassStudent.Create(ctx, class.ID, student.ID); err != nil {
		t.Fatalf("首次加入班级失败: %v", err)
	}
	err := repo.ClassStudent.Create(ctx, class.ID, student.ID)
	if !pkgerrors.IsUniqueViolation(err) {
		t.Fatalf("重复加入应为唯一约束冲突，实际 %v", err)
	}
}

func TestStudentDelete_RemovesDependents(t *testing.T) {
	class, cleanup := setupClass(t)
	defer cleanup()
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	student := &model.Student{FullName: "Dewi", NISN: strPtr("DL" + uniqueSuffix())}
	if err := repo.Student.Create(ctx, student); err != nil {
		t.Fatalf("创建学生失败: %v", err)
	}
	if err := repo.ClassStudent.Create(ctx, class.ID, student.ID); err != nil {
		t.Fatalf("加入班级失败: %v", err)
	}
	day := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.Attendance.Upsert(ctx, []model.Attendance{
		{ClassID: class.ID, StudentID: student.ID, Date: day, Status: model.AttendancePresent},
	}); err != nil {
		t.Fatalf("写入考勤失败: %v", err)
	}
	if err := testDB.Create(&model.ExamAnswer{ExamID: 1, StudentID: student.ID, AnswerText: "x"}).Error; err != nil {
		t.Fatalf("写入答卷失败: %v", err)
	}

	if err := repo.Student.Delete(ctx, student.ID); err != nil {
		t.Fatalf("删除学生失败: %v", err)
	}

	var count int64
	testDB.Model(&model.ClassStudent{}).Where("student_id = ?", student.ID).Count(&count)
	if count != 0 {
		t.Errorf("期望成员关系被删除，剩余 %d", count)
	}
	testDB.Model(&model.Attendance{}).Where("student_id = ?", student.ID).Count(&count)
	if count != 0 {
		t.Errorf("期望考勤被删除，剩余 %d", count)
	}
	testDB.Model(&model.ExamAnswer{}).Where("student_id = ?", student.ID).Count(&count)
	if count != 0 {
		t.Errorf("期望答卷被删除，剩余 %d", count)
	}

	if err := repo.Student.Delete(ctx, student.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("再次删除应返回 ErrRecordNotFound，实际 %v", err)
	}
}

func TestAttendance_UpsertReplacesStatus(t *testing.T) {
	class, cleanup := setupClass(t)
	defer cleanup()
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	student := &model.Student{FullName: "Eka", NISN: strPtr("AT" + uniqueSuffix())}
	if err := repo.Student.Create(ctx, student); err != nil {
		t.Fatalf("创建学生失败: %v", err)
	}
	defer repo.Student.Delete(ctx, student.ID)

	day := time.Date(2024, 8, 2, 0, 0, 0, 0, time.UTC)
	for _, status := range []string{model.AttendancePresent, model.AttendanceSick} {
		if err := repo.Attendance.Upsert(ctx, []model.Attendance{
			{ClassID: class.ID, StudentID: student.ID, Date: day, Status: status},
		}); err != nil {
			t.Fatalf("写入考勤失败: %v", err)
		}
	}

	records, err := repo.Attendance.ListByClassAndDate(ctx, class.ID, day)
	if err != nil {
		t.Fatalf("查询考勤失败: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("期望 1 条考勤，实际 %d", len(records))
	}
	if records[0].Status != model.AttendanceSick {
		t.Errorf("期望状态被覆盖为 sakit，实际 %s", records[0].Status)
	}
}

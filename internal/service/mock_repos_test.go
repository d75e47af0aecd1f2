package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mijwadul/Belajar/internal/authz"
	"github.com/mijwadul/Belajar/internal/model"
	"github.com/mijwadul/Belajar/internal/repository"
)

// ── 内存存储：所有 mock repo 共享，模拟外键与唯一约束 ──

type memberKey struct{ classID, studentID uint }

type attendanceKey struct {
	classID, studentID uint
	date               string
}

type memStore struct {
	nextID     uint
	orgs       map[uint]*model.Organization
	users      map[uint]*model.User
	classes    map[uint]*model.Class
	students   map[uint]*model.Student
	members    map[memberKey]bool
	attendance map[attendanceKey]*model.Attendance
	answers    map[uint]int // student_id -> 答卷数量

	// 故障注入：模拟检查与写入之间被并发请求抢先
	hiddenNISN    map[string]bool // GetByNISN 查不到，但写入时仍冲突
	hiddenMembers map[memberKey]bool
	failDelete    map[uint]error

	classReads int // Class.GetByID 调用次数
}

func newMemStore() *memStore {
	return &memStore{
		orgs:          make(map[uint]*model.Organization),
		users:         make(map[uint]*model.User),
		classes:       make(map[uint]*model.Class),
		students:      make(map[uint]*model.Student),
		members:       make(map[memberKey]bool),
		attendance:    make(map[attendanceKey]*model.Attendance),
		answers:       make(map[uint]int),
		hiddenNISN:    make(map[string]bool),
		hiddenMembers: make(map[memberKey]bool),
		failDelete:    make(map[uint]error),
	}
}

func (s *memStore) id() uint {
	s.nextID++
	return s.nextID
}

// newMockRepository 组装使用内存存储的 Repository（db 为空，Transaction 直接执行）
func newMockRepository(store *memStore) *repository.Repository {
	return &repository.Repository{
		Organization: &mockOrgRepo{s: store},
		User:         &mockUserRepo{s: store},
		Class:        &mockClassRepo{s: store},
		Student:      &mockStudentRepo{s: store},
		ClassStudent: &mockClassStudentRepo{s: store},
		Attendance:   &mockAttendanceRepo{s: store},
	}
}

// ── Mock OrganizationRepository ──

type mockOrgRepo struct{ s *memStore }

func (m *mockOrgRepo) Create(_ context.Context, org *model.Organization) error {
	for _, o := range m.s.orgs {
		if o.Name == org.Name {
			return gorm.ErrDuplicatedKey
		}
	}
	if org.ID == 0 {
		org.ID = m.s.id()
	}
	m.s.orgs[org.ID] = org
	return nil
}

func (m *mockOrgRepo) GetByID(_ context.Context, id uint) (*model.Organization, error) {
	if o, ok := m.s.orgs[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockOrgRepo) GetByName(_ context.Context, name string) (*model.Organization, error) {
	for _, o := range m.s.orgs {
		if o.Name == name {
			cp := *o
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockOrgRepo) List(_ context.Context, onlyID *uint) ([]model.Organization, error) {
	var result []model.Organization
	for _, o := range m.s.orgs {
		if onlyID != nil && o.ID != *onlyID {
			continue
		}
		result = append(result, *o)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockOrgRepo) Update(_ context.Context, org *model.Organization) error {
	cp := *org
	m.s.orgs[org.ID] = &cp
	return nil
}

func (m *mockOrgRepo) Delete(_ context.Context, id uint) error {
	if _, ok := m.s.orgs[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.s.orgs, id)
	return nil
}

func (m *mockOrgRepo) CountUsers(_ context.Context, id uint) (int64, error) {
	var n int64
	for _, u := range m.s.users {
		if u.OrganizationID != nil && *u.OrganizationID == id {
			n++
		}
	}
	return n, nil
}

func (m *mockOrgRepo) CountClasses(_ context.Context, id uint) (int64, error) {
	var n int64
	for _, c := range m.s.classes {
		if c.OrganizationID == id {
			n++
		}
	}
	return n, nil
}

// ── Mock UserRepository ──

type mockUserRepo struct{ s *memStore }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.s.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == 0 {
		user.ID = m.s.id()
	}
	cp := *user
	m.s.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uint) (*model.User, error) {
	if u, ok := m.s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListWithFilters(_ context.Context, filters *repository.UserListFilters, offset, limit int) ([]model.User, int64, error) {
	var all []model.User
	for _, u := range m.s.users {
		if filters != nil {
			if filters.OrganizationID != nil && (u.OrganizationID == nil || *u.OrganizationID != *filters.OrganizationID) {
				continue
			}
			if filters.Role != "" && u.Role != filters.Role {
				continue
			}
			if filters.Keyword != "" && !strings.Contains(strings.ToLower(u.FullName), strings.ToLower(filters.Keyword)) {
				continue
			}
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := int64(len(all))
	if offset >= len(all) {
		return []model.User{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	cp := *user
	m.s.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id uint) error {
	if _, ok := m.s.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.s.users, id)
	return nil
}

func (m *mockUserRepo) CountOwnedClasses(_ context.Context, id uint) (int64, error) {
	var n int64
	for _, c := range m.s.classes {
		if c.OwnerID == id {
			n++
		}
	}
	return n, nil
}

// ── Mock ClassRepository ──

type mockClassRepo struct{ s *memStore }

func (m *mockClassRepo) Create(_ context.Context, class *model.Class) error {
	if class.ID == 0 {
		class.ID = m.s.id()
	}
	cp := *class
	m.s.classes[class.ID] = &cp
	return nil
}

func (m *mockClassRepo) GetByID(_ context.Context, id uint) (*model.Class, error) {
	m.s.classReads++
	if c, ok := m.s.classes[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClassRepo) ListWithFilters(_ context.Context, filters *repository.ClassListFilters) ([]model.Class, error) {
	var result []model.Class
	for _, c := range m.s.classes {
		if filters != nil {
			if filters.OrganizationID != nil && c.OrganizationID != *filters.OrganizationID {
				continue
			}
			if filters.OwnerID != nil && c.OwnerID != *filters.OwnerID {
				continue
			}
			if filters.Keyword != "" {
				kw := strings.ToLower(filters.Keyword)
				if !strings.Contains(strings.ToLower(c.Name), kw) && !strings.Contains(strings.ToLower(c.Subject), kw) {
					continue
				}
			}
			if filters.Level != "" && c.Level != filters.Level {
				continue
			}
			if filters.Subject != "" && c.Subject != filters.Subject {
				continue
			}
		}
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockClassRepo) ListByStudent(_ context.Context, studentID uint) ([]model.Class, error) {
	var result []model.Class
	for k := range m.s.members {
		if k.studentID != studentID {
			continue
		}
		if c, ok := m.s.classes[k.classID]; ok {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockClassRepo) Update(_ context.Context, class *model.Class) error {
	cp := *class
	m.s.classes[class.ID] = &cp
	return nil
}

func (m *mockClassRepo) Delete(_ context.Context, id uint) error {
	if _, ok := m.s.classes[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.s.classes, id)
	for k := range m.s.members {
		if k.classID == id {
			delete(m.s.members, k)
		}
	}
	return nil
}

// ── Mock StudentRepository ──

type mockStudentRepo struct{ s *memStore }

func (m *mockStudentRepo) Create(_ context.Context, student *model.Student) error {
	if nisn := student.NISNValue(); nisn != "" {
		if m.s.hiddenNISN[nisn] {
			return gorm.ErrDuplicatedKey
		}
		for _, st := range m.s.students {
			if st.NISNValue() == nisn {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	if student.ID == 0 {
		student.ID = m.s.id()
	}
	cp := *student
	m.s.students[student.ID] = &cp
	return nil
}

func (m *mockStudentRepo) GetByID(_ context.Context, id uint) (*model.Student, error) {
	if st, ok := m.s.students[id]; ok {
		cp := *st
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) GetByNISN(_ context.Context, nisn string) (*model.Student, error) {
	for _, st := range m.s.students {
		if st.NISNValue() == nisn {
			cp := *st
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) ListByClass(_ context.Context, classID uint, filters *repository.StudentListFilters) ([]model.Student, error) {
	var result []model.Student
	for k := range m.s.members {
		if k.classID != classID {
			continue
		}
		st, ok := m.s.students[k.studentID]
		if !ok {
			continue
		}
		if filters != nil {
			if filters.Keyword != "" && !strings.Contains(strings.ToLower(st.FullName), strings.ToLower(filters.Keyword)) {
				continue
			}
			if filters.Gender != "" && st.Gender != filters.Gender {
				continue
			}
			if filters.Religion != "" && st.Religion != filters.Religion {
				continue
			}
		}
		result = append(result, *st)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FullName < result[j].FullName })
	return result, nil
}

func (m *mockStudentRepo) Update(_ context.Context, student *model.Student) error {
	cp := *student
	m.s.students[student.ID] = &cp
	return nil
}

func (m *mockStudentRepo) Delete(_ context.Context, id uint) error {
	if err, ok := m.s.failDelete[id]; ok {
		return err
	}
	if _, ok := m.s.students[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	for k := range m.s.members {
		if k.studentID == id {
			delete(m.s.members, k)
		}
	}
	for k := range m.s.attendance {
		if k.studentID == id {
			delete(m.s.attendance, k)
		}
	}
	delete(m.s.answers, id)
	delete(m.s.students, id)
	return nil
}

// ── Mock ClassStudentRepository ──

type mockClassStudentRepo struct{ s *memStore }

func (m *mockClassStudentRepo) Exists(_ context.Context, classID, studentID uint) (bool, error) {
	k := memberKey{classID, studentID}
	if m.s.hiddenMembers[k] {
		return false, nil
	}
	return m.s.members[k], nil
}

func (m *mockClassStudentRepo) Create(_ context.Context, classID, studentID uint) error {
	k := memberKey{classID, studentID}
	if m.s.members[k] || m.s.hiddenMembers[k] {
		return gorm.ErrDuplicatedKey
	}
	m.s.members[k] = true
	return nil
}

func (m *mockClassStudentRepo) Delete(_ context.Context, classID, studentID uint) error {
	k := memberKey{classID, studentID}
	if !m.s.members[k] {
		return gorm.ErrRecordNotFound
	}
	delete(m.s.members, k)
	return nil
}

func (m *mockClassStudentRepo) CountByClass(_ context.Context, classID uint) (int64, error) {
	var n int64
	for k := range m.s.members {
		if k.classID == classID {
			n++
		}
	}
	return n, nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct{ s *memStore }

func (m *mockAttendanceRepo) Upsert(_ context.Context, records []model.Attendance) error {
	for _, r := range records {
		k := attendanceKey{r.ClassID, r.StudentID, r.Date.Format("2006-01-02")}
		if existing, ok := m.s.attendance[k]; ok {
			existing.Status = r.Status
			continue
		}
		cp := r
		cp.ID = m.s.id()
		m.s.attendance[k] = &cp
	}
	return nil
}

func (m *mockAttendanceRepo) ListByClassAndDate(_ context.Context, classID uint, date time.Time) ([]model.Attendance, error) {
	day := date.Format("2006-01-02")
	var result []model.Attendance
	for k, a := range m.s.attendance {
		if k.classID != classID || k.date != day {
			continue
		}
		cp := *a
		if st, ok := m.s.students[a.StudentID]; ok {
			stCp := *st
			cp.Student = &stCp
		}
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StudentID < result[j].StudentID })
	return result, nil
}

// ── 测试数据辅助 ──

// fixture 两所学校、各自的管理员与教师、一个超级管理员
type fixture struct {
	store *memStore
	repo  *repository.Repository

	orgA, orgB *model.Organization
	super      *model.User
	adminA     *model.User
	teacherA   *model.User
	teacherA2  *model.User
	teacherB   *model.User
}

func newFixture() *fixture {
	store := newMemStore()
	f := &fixture{store: store, repo: newMockRepository(store)}

	f.orgA = f.addOrg("SMP Negeri 1")
	f.orgB = f.addOrg("SMA Harapan")
	f.super = f.addUser("Super", model.RoleSuperUser, nil)
	f.adminA = f.addUser("Admin A", model.RoleAdmin, &f.orgA.ID)
	f.teacherA = f.addUser("Guru A", model.RoleTeacher, &f.orgA.ID)
	f.teacherA2 = f.addUser("Guru A2", model.RoleTeacher, &f.orgA.ID)
	f.teacherB = f.addUser("Guru B", model.RoleTeacher, &f.orgB.ID)
	return f
}

func (f *fixture) addOrg(name string) *model.Organization {
	org := &model.Organization{ID: f.store.id(), Name: name}
	f.store.orgs[org.ID] = org
	return org
}

func (f *fixture) addUser(name, role string, orgID *uint) *model.User {
	u := &model.User{
		ID:             f.store.id(),
		FullName:       name,
		Email:          strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@sekolah.id",
		PasswordHash:   "$2a$10$placeholder",
		Role:           role,
		OrganizationID: orgID,
	}
	f.store.users[u.ID] = u
	return u
}

func (f *fixture) addClass(name string, owner *model.User) *model.Class {
	c := &model.Class{
		ID:             f.store.id(),
		Name:           name,
		Level:          "SMP",
		Subject:        "Matematika",
		AcademicYear:   "2024/2025",
		OrganizationID: *owner.OrganizationID,
		OwnerID:        owner.ID,
	}
	f.store.classes[c.ID] = c
	return c
}

func (f *fixture) addStudent(name, nisn string) *model.Student {
	st := &model.Student{ID: f.store.id(), FullName: name, NISN: &nisn}
	f.store.students[st.ID] = st
	return st
}

func (f *fixture) enroll(class *model.Class, st *model.Student) {
	f.store.members[memberKey{class.ID, st.ID}] = true
}

func (f *fixture) studentCount() int {
	return len(f.store.students)
}

func principalOf(u *model.User) authz.Principal {
	return authz.Principal{ID: u.ID, Role: authz.Role(u.Role), OrganizationID: u.OrganizationID}
}

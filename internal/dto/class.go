package dto

// ── 班级模块 DTO ──

// ClassListRequest 班级列表查询参数
type ClassListRequest struct {
	Keyword string `form:"search"  binding:"omitempty,max=100"`
	Level   string `form:"level"   binding:"omitempty,max=50"`
	Subject string `form:"subject" binding:"omitempty,max=100"`
}

// CreateClassRequest 创建班级请求
// OwnerID 为空时由当前用户担任班主任
type CreateClassRequest struct {
	Name         string `json:"name"          binding:"required,max=100"`
	Level        string `json:"level"         binding:"required,max=50"`
	Subject      string `json:"subject"       binding:"required,max=100"`
	AcademicYear string `json:"academic_year" binding:"required,max=20"`
	OwnerID      *uint  `json:"owner_id"      binding:"omitempty,min=1"`
}

// UpdateClassRequest 更新班级请求
type UpdateClassRequest struct {
	Name         *string `json:"name"          binding:"omitempty,min=1,max=100"`
	Level        *string `json:"level"         binding:"omitempty,min=1,max=50"`
	Subject      *string `json:"subject"       binding:"omitempty,min=1,max=100"`
	AcademicYear *string `json:"academic_year" binding:"omitempty,min=1,max=20"`
}

// RosterListRequest 班级花名册查询参数
type RosterListRequest struct {
	Keyword  string `form:"search"   binding:"omitempty,max=100"`
	Gender   string `form:"gender"   binding:"omitempty,max=20"`
	Religion string `form:"religion" binding:"omitempty,max=50"`
}

// EnrollStudentRequest 将已有学生加入班级
type EnrollStudentRequest struct {
	StudentID uint `json:"student_id" binding:"required,min=1"`
}

// EnrollResponse 加入班级结果
type EnrollResponse struct {
	StudentID     uint `json:"student_id"`
	AlreadyMember bool `json:"already_member"`
}

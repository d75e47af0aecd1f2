package dto

// ── 学生模块 DTO ──

// StudentRow 一行学生数据（导入批次中的单行或单个创建请求）
// 导入时逐行校验，因此这里不加 binding 约束
type StudentRow struct {
	FullName     string `json:"full_name"`
	NISN         string `json:"nisn"`
	NIS          string `json:"nis"`
	BirthPlace   string `json:"birth_place"`
	BirthDate    string `json:"birth_date"` // D-M-YYYY 或 YYYY-M-D，分隔符 - / .
	Gender       string `json:"gender"`     // L / P 或完整写法
	Religion     string `json:"religion"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	GuardianName string `json:"guardian_name"`
}

// CreateStudentRequest 创建单个学生请求；ClassID 非空时同时加入该班级
type CreateStudentRequest struct {
	StudentRow
	ClassID *uint `json:"class_id" binding:"omitempty,min=1"`
}

// UpdateStudentRequest 更新学生请求（字段为空表示不修改）
type UpdateStudentRequest struct {
	FullName     *string `json:"full_name"     binding:"omitempty,min=1,max=150"`
	NISN         *string `json:"nisn"          binding:"omitempty,min=1,max=20"`
	NIS          *string `json:"nis"           binding:"omitempty,max=20"`
	BirthPlace   *string `json:"birth_place"   binding:"omitempty,max=100"`
	BirthDate    *string `json:"birth_date"`
	Gender       *string `json:"gender"        binding:"omitempty,max=20"`
	Religion     *string `json:"religion"      binding:"omitempty,max=50"`
	Address      *string `json:"address"`
	Phone        *string `json:"phone"         binding:"omitempty,max=20"`
	GuardianName *string `json:"guardian_name" binding:"omitempty,max=150"`
}

// BulkDeleteRequest 批量删除学生请求
type BulkDeleteRequest struct {
	StudentIDs []uint `json:"student_ids" binding:"required,min=1,max=500"`
}

// BulkDeleteItem 单个学生的删除结果
type BulkDeleteItem struct {
	StudentID uint   `json:"student_id"`
	Deleted   bool   `json:"deleted"`
	Reason    string `json:"reason,omitempty"`
}

// BulkDeleteResponse 批量删除报告
type BulkDeleteResponse struct {
	Total        int              `json:"total"`
	SuccessCount int              `json:"success_count"`
	FailCount    int              `json:"fail_count"`
	Errors       []string         `json:"errors"`
	Items        []BulkDeleteItem `json:"items"`
}

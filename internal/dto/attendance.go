package dto

// ── 考勤模块 DTO ──

// AttendanceEntry 单个学生的考勤状态
type AttendanceEntry struct {
	StudentID uint   `json:"student_id" binding:"required,min=1"`
	Status    string `json:"status"     binding:"required,oneof=hadir sakit izin alpa"`
}

// RecordAttendanceRequest 记录某日考勤（覆盖当日已有记录）
type RecordAttendanceRequest struct {
	Date    string            `json:"date"    binding:"required"` // YYYY-MM-DD
	Records []AttendanceEntry `json:"records" binding:"required,min=1,dive"`
}

// AttendanceQuery 考勤查询参数
type AttendanceQuery struct {
	Date string `form:"date" binding:"required"`
}

// AttendanceResponse 考勤记录
type AttendanceResponse struct {
	StudentID uint   `json:"student_id"`
	FullName  string `json:"full_name"`
	NISN      string `json:"nisn,omitempty"`
	Date      string `json:"date"`
	Status    string `json:"status"`
}

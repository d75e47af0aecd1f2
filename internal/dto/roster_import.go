package dto

// ── 花名册导入 DTO ──

// ImportStudentsRequest JSON 批量导入请求
type ImportStudentsRequest struct {
	Students []StudentRow `json:"students"`
}

// ImportRowResult 单行导入结果
type ImportRowResult struct {
	Row       int    `json:"row"` // 从 1 开始，与提交顺序一致
	FullName  string `json:"full_name"`
	NISN      string `json:"nisn"`
	Outcome   string `json:"outcome"`
	StudentID uint   `json:"student_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ImportReport 批量导入报告；SuccessCount + FailCount == Total
type ImportReport struct {
	Total        int               `json:"total"`
	SuccessCount int               `json:"success_count"`
	FailCount    int               `json:"fail_count"`
	Errors       []string          `json:"errors"`
	Rows         []ImportRowResult `json:"rows"`
}

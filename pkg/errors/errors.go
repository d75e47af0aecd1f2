package errors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// uniqueViolationCode PostgreSQL 唯一约束冲突 SQLSTATE
const uniqueViolationCode = "23505"

// ErrUniqueViolation 存储层唯一约束冲突（并发写入时由数据库最终裁决）
var ErrUniqueViolation = errors.New("违反唯一约束")

// IsUniqueViolation 判断错误是否为唯一约束冲突
// 兼容 GORM TranslateError 转换后的 ErrDuplicatedKey 与未转换的 pgconn.PgError
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUniqueViolation) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	return false
}

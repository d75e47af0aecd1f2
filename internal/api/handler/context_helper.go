package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mijwadul/Belajar/internal/api/middleware"
	"github.com/mijwadul/Belajar/internal/authz"
	"github.com/mijwadul/Belajar/pkg/response"
)

// MustGetPrincipal 从 Gin 上下文中安全提取调用方。
// 如果 JWT 中间件未正确注入，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetPrincipal(c *gin.Context) (authz.Principal, bool) {
	v, exists := c.Get(middleware.ContextKeyPrincipal)
	if !exists {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return authz.Principal{}, false
	}
	p, ok := v.(authz.Principal)
	if !ok || p.ID == 0 {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return authz.Principal{}, false
	}
	return p, true
}

// parseIDParam 解析路径中的数字 ID，非法时写入 400 响应
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, response.CodeBadRequest, name+" 参数无效")
		return 0, false
	}
	return uint(id), true
}

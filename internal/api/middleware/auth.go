package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mijwadul/Belajar/internal/authz"
	"github.com/mijwadul/Belajar/pkg/jwt"
	"github.com/mijwadul/Belajar/pkg/response"
)

// ContextKeyPrincipal 认证通过后注入 gin.Context 的调用方
const ContextKeyPrincipal = "principal"

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token，还原为 authz.Principal
func JWTAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, response.CodeUnauthorized, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, response.CodeUnauthorized, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, response.CodeUnauthorized, "Token 无效或已过期")
			c.Abort()
			return
		}

		if claims.TokenType != "access" {
			response.Unauthorized(c, response.CodeUnauthorized, "Token 类型无效")
			c.Abort()
			return
		}

		role := authz.Role(claims.Role)
		if !role.Valid() || claims.UserID == 0 {
			response.Unauthorized(c, response.CodeUnauthorized, "Token 身份信息无效")
			c.Abort()
			return
		}

		p := authz.Principal{ID: claims.UserID, Role: role}
		// 超级管理员不绑定学校，即使令牌携带也忽略
		if role != authz.RoleSuperUser {
			p.OrganizationID = claims.OrganizationID
		}

		c.Set(ContextKeyPrincipal, p)
		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 检查当前调用方是否具有指定角色之一；资源级判定仍由 Service 层完成
func RoleAuth(allowedRoles ...authz.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(ContextKeyPrincipal)
		p, ok := v.(authz.Principal)
		if !exists || !ok {
			response.Unauthorized(c, response.CodeUnauthorized, "未认证")
			c.Abort()
			return
		}

		for _, r := range allowedRoles {
			if p.Role == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, response.CodeForbidden, "无权限访问")
		c.Abort()
	}
}

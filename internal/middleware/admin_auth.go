package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sqlchat-go/internal/model"
)

// AdminAuthMiddleware 检查用户是否具有管理员权限。
// 此中间件必须在 AuthMiddleware 之后使用。
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			// AuthMiddleware 未能写入 claims，属于路由配置错误
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		if claims.Role != model.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}

		c.Next()
	}
}

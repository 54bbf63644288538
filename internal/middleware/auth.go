// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sqlchat-go/internal/model"
	"sqlchat-go/pkg/token"
)

const claimsKey = "claims"

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// 校验完全无状态：只验证签名与过期时间，不访问任何存储。
// Authorization 头可以是 "Bearer <token>"，也可以直接是 token。
func AuthMiddleware(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			abortUnauthorized(c, model.ErrTokenMissing)
			return
		}

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}

		// 将 claims 存储在 context 中，供后续处理函数使用
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom 取出 AuthMiddleware 写入的 claims。
func ClaimsFrom(c *gin.Context) (*token.CustomClaims, bool) {
	v, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*token.CustomClaims)
	return claims, ok
}

func extractToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > len("Bearer ") && strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	if strings.EqualFold(header, "Bearer") {
		return ""
	}
	return header
}

func abortUnauthorized(c *gin.Context, err error) {
	msg := "token is invalid"
	switch {
	case errors.Is(err, model.ErrTokenMissing):
		msg = "token is missing"
	case errors.Is(err, model.ErrTokenExpired):
		msg = "token has expired"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

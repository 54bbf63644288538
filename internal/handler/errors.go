// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sqlchat-go/internal/model"
)

// errorResponse 把错误分类映射为状态码与对外提示，内部细节只写日志。
func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrTokenMissing),
		errors.Is(err, model.ErrTokenExpired),
		errors.Is(err, model.ErrTokenInvalid):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, model.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, model.ErrInvalidQuestion):
		return http.StatusBadRequest, "The question is empty or too long."
	case errors.Is(err, model.ErrConversationNotFound):
		return http.StatusNotFound, "Conversation not found."
	case errors.Is(err, model.ErrQueryExecution):
		return http.StatusUnprocessableEntity, "The generated query could not be executed. Please rephrase your question."
	case errors.Is(err, model.ErrTranslationUnavailable),
		errors.Is(err, model.ErrSynthesisUnavailable):
		return http.StatusServiceUnavailable, "The language service is temporarily unavailable."
	case errors.Is(err, model.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "The database is temporarily unavailable."
	case errors.Is(err, model.ErrInvalidAccount):
		return http.StatusBadRequest, "Invalid account details."
	case errors.Is(err, model.ErrUserExists):
		return http.StatusConflict, "User already exists."
	default:
		return http.StatusInternalServerError, "An internal error occurred"
	}
}

func writeError(c *gin.Context, err error) {
	status, msg := errorResponse(err)
	c.JSON(status, gin.H{"error": msg})
}

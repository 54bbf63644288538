package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sqlchat-go/internal/middleware"
	"sqlchat-go/internal/service"
	"sqlchat-go/pkg/log"
)

// ConversationHandler 处理与对话相关的 API 请求。
type ConversationHandler struct {
	service service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(service service.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// GetConversations 返回当前用户的会话列表。
func (h *ConversationHandler) GetConversations(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	list, err := h.service.ListConversations(c.Request.Context(), claims.UserID)
	if err != nil {
		log.Errorf("GetConversations: user %d, error: %v", claims.UserID, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetConversationHistory 返回单个会话的消息列表。
func (h *ConversationHandler) GetConversationHistory(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	messages, err := h.service.GetHistory(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		log.Errorf("GetConversationHistory: user %d, error: %v", claims.UserID, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

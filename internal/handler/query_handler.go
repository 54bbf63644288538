package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"sqlchat-go/internal/middleware"
	"sqlchat-go/internal/pipeline"
	"sqlchat-go/pkg/log"
)

// QueryProcessor 是 pipeline.Processor 暴露给 HTTP 层的能力。
type QueryProcessor interface {
	Process(ctx context.Context, userID uint, question, conversationID string) (*pipeline.Answer, error)
}

// QueryHandler 处理自然语言查询请求。
type QueryHandler struct {
	processor QueryProcessor
}

// NewQueryHandler 创建一个新的 QueryHandler。
func NewQueryHandler(processor QueryProcessor) *QueryHandler {
	return &QueryHandler{processor: processor}
}

// QueryRequest 定义了查询 API 的请求体结构。ConversationID 为空表示新建会话。
type QueryRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversationId"`
}

// NewConversation 只在新建会话时返回，否则序列化为空对象。
type NewConversation struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
}

// QueryResponse 定义了查询 API 的响应体结构。
type QueryResponse struct {
	NaturalLanguageResponse string          `json:"natural_language_response"`
	NewConversation         NewConversation `json:"newConversation"`
}

// Query 处理 POST /query。
func (h *QueryHandler) Query(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Query: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	answer, err := h.processor.Process(c.Request.Context(), claims.UserID, req.Query, req.ConversationID)
	if err != nil {
		log.Errorf("[QueryHandler] 处理查询失败, user: %d, error: %v", claims.UserID, err)
		writeError(c, err)
		return
	}

	resp := QueryResponse{NaturalLanguageResponse: answer.Text}
	if answer.Created {
		resp.NewConversation = NewConversation{ID: answer.ConversationID, Title: answer.Title}
	}
	c.JSON(http.StatusOK, resp)
}

package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"sqlchat-go/internal/middleware"
	"sqlchat-go/internal/model"
	"sqlchat-go/internal/service"
	"sqlchat-go/pkg/log"
)

// UserHandler 负责处理登录与个人信息请求。
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// LoginRequest 定义了用户登录 API 的请求体结构。
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 处理用户登录请求。
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Login: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	// 调用 service 层执行登录逻辑
	accessToken, user, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		log.Warnf("Login: authentication failed, error: %v", err)
		writeError(c, err)
		return
	}

	log.Infof("User %d logged in successfully", user.ID)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   accessToken,
	})
}

// GetProfile 返回当前登录用户的基本信息。
func (h *UserHandler) GetProfile(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	user, err := h.userService.GetProfile(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found."})
			return
		}
		log.Error("GetProfile: failed to load user", err)
		writeError(c, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "success", "data": user})
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sqlchat-go/internal/model"
	"sqlchat-go/internal/service"
	"sqlchat-go/pkg/log"
)

// AdminHandler 负责处理所有与管理员相关的 API 请求。
type AdminHandler struct {
	adminService service.AdminService
	userService  service.UserService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(adminService service.AdminService, userService service.UserService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		userService:  userService,
	}
}

// ProvisionUserRequest 定义了创建账号 API 的请求体结构。
type ProvisionUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

// ProvisionUser 由管理员创建新账号，系统不提供自助注册。
func (h *AdminHandler) ProvisionUser(c *gin.Context) {
	var req ProvisionUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("ProvisionUser: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, a valid email and a password of at least 8 characters are required"})
		return
	}
	if req.Role == "" {
		req.Role = model.RoleTeacher
	}

	user, err := h.userService.Provision(c.Request.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		log.Warnf("ProvisionUser: failed, error: %v", err)
		writeError(c, err)
		return
	}

	log.Infof("ProvisionUser: user %d created with role %s", user.ID, user.Role)
	c.JSON(http.StatusCreated, gin.H{
		"message": "User created",
		"data": service.UserDetailResponse{
			UserID:    user.ID,
			Name:      user.Name,
			Email:     user.Email,
			Role:      user.Role,
			CreatedAt: model.LocalTime(user.CreatedAt),
		},
	})
}

// ListUsers 处理分页获取用户列表的请求。
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))

	userList, err := h.adminService.ListUsers(c.Request.Context(), page, size)
	if err != nil {
		log.Error("ListUsers: Failed to list users", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "success", "data": userList})
}

// ListAudits 返回最近的查询审计记录。
func (h *AdminHandler) ListAudits(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultAuditLimit)))

	audits, err := h.adminService.ListAudits(c.Request.Context(), limit)
	if err != nil {
		log.Error("ListAudits: Failed to list audits", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "success", "data": audits})
}

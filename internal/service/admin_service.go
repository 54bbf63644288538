package service

import (
	"context"
	"fmt"

	"sqlchat-go/internal/model"
	"sqlchat-go/internal/repository"
)

const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 500
)

// UserListResponse 定义了用户列表 API 的响应结构。
type UserListResponse struct {
	Content       []UserDetailResponse `json:"content"`
	TotalElements int64                `json:"totalElements"`
	TotalPages    int                  `json:"totalPages"`
	Size          int                  `json:"size"`
	Number        int                  `json:"number"`
}

// UserDetailResponse 定义了用户列表项的详细结构。
type UserDetailResponse struct {
	UserID    uint            `json:"userId"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      string          `json:"role"`
	CreatedAt model.LocalTime `json:"createdAt"`
}

// AdminService 接口定义了所有管理员相关的业务操作。
type AdminService interface {
	ListUsers(ctx context.Context, page, size int) (*UserListResponse, error)
	ListAudits(ctx context.Context, limit int) ([]model.QueryAuditDTO, error)
}

// adminService 是 AdminService 接口的实现。
type adminService struct {
	userRepo  repository.UserRepository
	auditRepo repository.AuditRepository
}

// NewAdminService 创建一个新的 AdminService 实例。
func NewAdminService(userRepo repository.UserRepository, auditRepo repository.AuditRepository) AdminService {
	return &adminService{userRepo: userRepo, auditRepo: auditRepo}
}

// ListUsers 分页列出用户，page 从 1 开始。
func (s *adminService) ListUsers(ctx context.Context, page, size int) (*UserListResponse, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	offset := (page - 1) * size
	users, total, err := s.userRepo.FindWithPagination(ctx, offset, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}

	userResponses := make([]UserDetailResponse, 0, len(users))
	for _, u := range users {
		userResponses = append(userResponses, UserDetailResponse{
			UserID:    u.ID,
			Name:      u.Name,
			Email:     u.Email,
			Role:      u.Role,
			CreatedAt: model.LocalTime(u.CreatedAt),
		})
	}

	totalPages := 0
	if total > 0 {
		totalPages = (int(total) + size - 1) / size
	}

	return &UserListResponse{
		Content:       userResponses,
		TotalElements: total,
		TotalPages:    totalPages,
		Size:          size,
		Number:        page,
	}, nil
}

// ListAudits 返回最近的查询审计，limit 超出范围时按默认值或上限处理。
func (s *adminService) ListAudits(ctx context.Context, limit int) ([]model.QueryAuditDTO, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	if limit > MaxAuditLimit {
		limit = MaxAuditLimit
	}
	audits, err := s.auditRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}
	out := make([]model.QueryAuditDTO, 0, len(audits))
	for _, a := range audits {
		out = append(out, a.ToDTO())
	}
	return out, nil
}

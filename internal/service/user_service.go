// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"sqlchat-go/internal/model"
	"sqlchat-go/internal/repository"
	"sqlchat-go/pkg/hash"
	"sqlchat-go/pkg/log"
	"sqlchat-go/pkg/token"
)

// UserService 接口定义了所有与用户相关的业务操作。
type UserService interface {
	Login(ctx context.Context, email, password string) (string, *model.User, error)
	Provision(ctx context.Context, name, email, password, role string) (*model.User, error)
	GetProfile(ctx context.Context, userID uint) (*model.User, error)
}

// userService 是 UserService 接口的实现。
type userService struct {
	userRepo   repository.UserRepository
	jwtManager *token.JWTManager
	// dummyHash 用于邮箱不存在时仍执行一次 bcrypt 比较
	dummyHash string
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository, jwtManager *token.JWTManager) UserService {
	dummy, err := hash.HashPassword("sqlchat-dummy-password")
	if err != nil {
		log.Warnf("[UserService] 生成占位哈希失败: %v", err)
	}
	return &userService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		dummyHash:  dummy,
	}
}

// Login 校验凭证并签发会话 token。
// 邮箱不存在与密码错误返回同一个 ErrInvalidCredentials，不泄露账号是否存在。
func (s *userService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	// 1. 查找用户
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			hash.CheckPasswordHash(password, s.dummyHash)
			return "", nil, model.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}

	// 2. 验证密码
	if !hash.CheckPasswordHash(password, user.Password) {
		return "", nil, model.ErrInvalidCredentials
	}

	// 3. 签发 token
	accessToken, err := s.jwtManager.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return "", nil, err
	}
	return accessToken, user, nil
}

// Provision 创建一个新用户，密码以 bcrypt 哈希存储。role 为空时默认为 teacher。
func (s *userService) Provision(ctx context.Context, name, email, password, role string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", model.ErrInvalidAccount)
	}
	if role == "" {
		role = model.RoleTeacher
	}
	if role != model.RoleTeacher && role != model.RoleAdmin {
		return nil, fmt.Errorf("%w: unknown role %q", model.ErrInvalidAccount, role)
	}

	// 1. 检查邮箱是否已存在
	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, model.ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}

	// 2. 对密码进行哈希处理
	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:     strings.TrimSpace(name),
		Email:    email,
		Password: hashedPassword,
		Role:     role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		log.Errorf("[UserService] 创建用户失败, email: %s, error: %v", email, err)
		return nil, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}
	log.Infof("[UserService] 已创建用户 %s (role=%s)", email, role)
	return user, nil
}

// GetProfile 根据用户 ID 获取用户详细信息。
func (s *userService) GetProfile(ctx context.Context, userID uint) (*model.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

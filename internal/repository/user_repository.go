// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"

	"gorm.io/gorm"

	"sqlchat-go/internal/model"
)

// UserRepository 接口定义了凭证存储的持久化操作。
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, userID uint) (*model.User, error)
	FindWithPagination(ctx context.Context, offset, limit int) ([]model.User, int64, error)
}

// userRepository 是 UserRepository 接口的 GORM 实现。
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建一个新的 UserRepository 实例。
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create 在数据库中创建一个新的用户记录。
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByEmail 根据邮箱查找用户，找不到时返回 gorm.ErrRecordNotFound。
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID 根据用户 ID 从数据库中查找一个用户。
func (r *userRepository) FindByID(ctx context.Context, userID uint) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, userID).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindWithPagination 分页检索用户记录，返回当前页与总数。
func (r *userRepository) FindWithPagination(ctx context.Context, offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := r.db.WithContext(ctx).Model(&model.User{})

	// 首先计算总记录数
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

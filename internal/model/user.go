// Package model 包含了应用的数据模型定义。
package model

import "time"

const (
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// User 是凭证存储中的一条记录，Password 字段保存 bcrypt 哈希。
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"`
	Role      string    `gorm:"type:varchar(32);not null;default:teacher" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

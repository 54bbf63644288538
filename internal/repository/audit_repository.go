package repository

import (
	"context"

	"gorm.io/gorm"

	"sqlchat-go/internal/model"
)

// AuditRepository 持久化查询审计记录。
type AuditRepository interface {
	Create(ctx context.Context, audit *model.QueryAudit) error
	ListRecent(ctx context.Context, limit int) ([]model.QueryAudit, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository 创建一个新的 AuditRepository 实例。
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, audit *model.QueryAudit) error {
	return r.db.WithContext(ctx).Create(audit).Error
}

// ListRecent 返回最新的 limit 条审计记录，新的在前。
func (r *auditRepository) ListRecent(ctx context.Context, limit int) ([]model.QueryAudit, error) {
	audits := make([]model.QueryAudit, 0, limit)
	err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&audits).Error
	if err != nil {
		return nil, err
	}
	return audits, nil
}

package service

import (
	"context"
	"time"

	"sqlchat-go/internal/model"
	"sqlchat-go/internal/repository"
	"sqlchat-go/pkg/tasks"
)

// AuditRecorder 把审计任务写入 query_audits 表。
// 它既是 Kafka 消费端的 sink，也在未配置 Kafka 时直接充当发布者。
type AuditRecorder struct {
	repo repository.AuditRepository
}

// NewAuditRecorder 创建一个新的 AuditRecorder。
func NewAuditRecorder(repo repository.AuditRepository) *AuditRecorder {
	return &AuditRecorder{repo: repo}
}

// Handle 持久化一条审计。
func (r *AuditRecorder) Handle(ctx context.Context, task tasks.QueryAuditTask) error {
	createdAt := task.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return r.repo.Create(ctx, &model.QueryAudit{
		UserID:         task.UserID,
		ConversationID: task.ConversationID,
		Question:       task.Question,
		SQL:            task.SQL,
		Kind:           task.Kind,
		RowCount:       task.RowCount,
		Status:         task.Status,
		ErrorDetail:    task.ErrorDetail,
		CreatedAt:      createdAt,
	})
}

// Publish 与 Handle 相同，使 AuditRecorder 可替代 Kafka 生产者。
func (r *AuditRecorder) Publish(ctx context.Context, task tasks.QueryAuditTask) error {
	return r.Handle(ctx, task)
}

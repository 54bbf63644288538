package model

import "time"

// 审计状态
const (
	AuditStatusOK                     = "ok"
	AuditStatusExecutionError         = "execution_error"
	AuditStatusTranslationUnavailable = "translation_unavailable"
	AuditStatusSynthesisUnavailable   = "synthesis_unavailable"
	AuditStatusStoreUnavailable       = "store_unavailable"
)

// QueryAudit 记录一次问题对应的翻译 SQL 及执行结果，供管理员排查。
type QueryAudit struct {
	ID             uint      `gorm:"primaryKey"`
	UserID         uint      `gorm:"index;not null"`
	ConversationID string    `gorm:"type:varchar(64)"`
	Question       string    `gorm:"type:text"`
	SQL            string    `gorm:"column:sql_text;type:text"`
	Kind           string    `gorm:"type:varchar(16)"`
	RowCount       int64     `gorm:"not null;default:0"`
	Status         string    `gorm:"type:varchar(32);index"`
	ErrorDetail    string    `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"index"`
}

func (QueryAudit) TableName() string {
	return "query_audits"
}

// QueryAuditDTO 是管理员接口返回的审计视图。
type QueryAuditDTO struct {
	ID             uint      `json:"id"`
	UserID         uint      `json:"userId"`
	ConversationID string    `json:"conversationId"`
	Question       string    `json:"question"`
	SQL            string    `json:"sql"`
	Kind           string    `json:"kind"`
	RowCount       int64     `json:"rowCount"`
	Status         string    `json:"status"`
	ErrorDetail    string    `json:"errorDetail,omitempty"`
	CreatedAt      LocalTime `json:"createdAt"`
}

// ToDTO 转换为对外视图。
func (a QueryAudit) ToDTO() QueryAuditDTO {
	return QueryAuditDTO{
		ID:             a.ID,
		UserID:         a.UserID,
		ConversationID: a.ConversationID,
		Question:       a.Question,
		SQL:            a.SQL,
		Kind:           a.Kind,
		RowCount:       a.RowCount,
		Status:         a.Status,
		ErrorDetail:    a.ErrorDetail,
		CreatedAt:      LocalTime(a.CreatedAt),
	}
}

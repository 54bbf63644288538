// Package tasks defines the messages exchanged over Kafka.
package tasks

import "time"

// QueryAuditTask records what one query request translated to and how it ended.
type QueryAuditTask struct {
	UserID         uint      `json:"user_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Question       string    `json:"question"`
	SQL            string    `json:"sql,omitempty"`
	Kind           string    `json:"kind,omitempty"`
	RowCount       int64     `json:"row_count"`
	Status         string    `json:"status"`
	ErrorDetail    string    `json:"error_detail,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

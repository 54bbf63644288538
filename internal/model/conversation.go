package model

import "time"

// DefaultTitle 是找不到已有会话标题时使用的降级标题。
const DefaultTitle = "Untitled"

const (
	MessageTypeUser = "user"
	MessageTypeBot  = "bot"
)

// ChatHistory 代表会话中的一轮问答，只追加，不修改也不删除。
type ChatHistory struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"index:idx_owner_conversation,priority:1;not null" json:"userId"`
	ConversationID string    `gorm:"type:varchar(64);index:idx_owner_conversation,priority:2;not null" json:"conversationId"`
	Title          string    `gorm:"type:varchar(128);not null" json:"title"`
	UserQuery      string    `gorm:"type:text" json:"userQuery"`
	NLResponse     string    `gorm:"type:text" json:"nlResponse"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (ChatHistory) TableName() string {
	return "chatbot_history"
}

// Conversation 记录会话 ID 的唯一拥有者。主键保证同一 ID 只能被一个用户占有。
type Conversation struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"userId"`
	Title     string    `gorm:"type:varchar(128);not null" json:"title"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// ChatMessage 是会话历史展开后的单条消息。
type ChatMessage struct {
	Type    string `json:"type"` // "user" 或 "bot"
	Content string `json:"content"`
}

// ConversationSummary 是会话列表中的一项。
type ConversationSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sqlchat-go/internal/model"
)

// ConversationRepository 定义了会话轮次的持久化操作。所有读取都按拥有者过滤。
type ConversationRepository interface {
	CreateTurn(ctx context.Context, turn *model.ChatHistory) error
	FindTitle(ctx context.Context, userID uint, conversationID string) (string, error)
	OwnedByOther(ctx context.Context, userID uint, conversationID string) (bool, error)
	ClaimOwner(ctx context.Context, conv *model.Conversation) (uint, error)
	ListByUser(ctx context.Context, userID uint) ([]model.ConversationSummary, error)
	FindHistory(ctx context.Context, userID uint, conversationID string) ([]model.ChatHistory, error)
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// CreateTurn 追加一轮问答。
func (r *conversationRepository) CreateTurn(ctx context.Context, turn *model.ChatHistory) error {
	return r.db.WithContext(ctx).Create(turn).Error
}

// FindTitle 返回会话最早一轮的标题，找不到时返回 model.ErrConversationNotFound。
func (r *conversationRepository) FindTitle(ctx context.Context, userID uint, conversationID string) (string, error) {
	var turn model.ChatHistory
	err := r.db.WithContext(ctx).
		Select("title").
		Where("user_id = ? AND conversation_id = ?", userID, conversationID).
		Order("id ASC").
		First(&turn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", model.ErrConversationNotFound
	}
	if err != nil {
		return "", err
	}
	return turn.Title, nil
}

// OwnedByOther 判断该会话 ID 是否属于其他用户。
// 先查 conversations 登记表；没有登记时再看 chatbot_history 中是否有其他用户的轮次。
func (r *conversationRepository) OwnedByOther(ctx context.Context, userID uint, conversationID string) (bool, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).Select("user_id").Where("id = ?", conversationID).Take(&conv).Error
	if err == nil {
		return conv.UserID != userID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	var count int64
	err = r.db.WithContext(ctx).Model(&model.ChatHistory{}).
		Where("conversation_id = ? AND user_id <> ?", conversationID, userID).
		Count(&count).Error
	return count > 0, err
}

// ClaimOwner 以 insert-or-ignore 登记会话拥有者，并返回最终的拥有者 ID。
// 并发登记同一 ID 时由主键决定唯一的胜者。
func (r *conversationRepository) ClaimOwner(ctx context.Context, conv *model.Conversation) (uint, error) {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(conv).Error; err != nil {
		return 0, err
	}
	var owner model.Conversation
	if err := db.Select("user_id").Where("id = ?", conv.ID).Take(&owner).Error; err != nil {
		return 0, err
	}
	return owner.UserID, nil
}

// ListByUser 每个会话返回一项，标题取最近一轮，最近活跃的排在前面。
func (r *conversationRepository) ListByUser(ctx context.Context, userID uint) ([]model.ConversationSummary, error) {
	summaries := make([]model.ConversationSummary, 0)
	err := r.db.WithContext(ctx).Raw(`
		SELECT h.conversation_id AS id, h.title AS title
		FROM chatbot_history h
		JOIN (
			SELECT conversation_id, MAX(id) AS last_id
			FROM chatbot_history
			WHERE user_id = ?
			GROUP BY conversation_id
		) latest ON h.id = latest.last_id
		ORDER BY h.created_at DESC, h.id DESC`, userID).
		Scan(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// FindHistory 按创建时间升序返回会话的全部轮次，时间相同时按 ID 排序。
func (r *conversationRepository) FindHistory(ctx context.Context, userID uint, conversationID string) ([]model.ChatHistory, error) {
	turns := make([]model.ChatHistory, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND conversation_id = ?", userID, conversationID).
		Order("created_at ASC").Order("id ASC").
		Find(&turns).Error
	if err != nil {
		return nil, err
	}
	return turns, nil
}

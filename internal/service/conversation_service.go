package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"sqlchat-go/internal/model"
	"sqlchat-go/internal/repository"
	"sqlchat-go/pkg/log"
)

// MaxTitleRunes 是会话标题的最大字符数，超出部分以 "..." 截断。
const MaxTitleRunes = 75

// AppendResult 是追加一轮问答的结果。Created 为 true 时表示新建了会话。
type AppendResult struct {
	ConversationID string
	Title          string
	Created        bool
}

// ConversationService 定义了会话存储的业务逻辑接口。
type ConversationService interface {
	Authorize(ctx context.Context, userID uint, conversationID string) error
	AppendTurn(ctx context.Context, userID uint, conversationID, question, answer string) (AppendResult, error)
	ListConversations(ctx context.Context, userID uint) ([]model.ConversationSummary, error)
	GetHistory(ctx context.Context, userID uint, conversationID string) ([]model.ChatMessage, error)
}

type conversationService struct {
	repo  repository.ConversationRepository
	cache repository.TitleCache
	newID func() string
}

// NewConversationService 创建一个新的 ConversationService。
func NewConversationService(repo repository.ConversationRepository, cache repository.TitleCache) ConversationService {
	return &conversationService{repo: repo, cache: cache, newID: uuid.NewString}
}

// Authorize 在执行任何语句之前确认该会话 ID 不属于其他用户。空 ID 总是允许。
func (s *conversationService) Authorize(ctx context.Context, userID uint, conversationID string) error {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil
	}
	other, err := s.repo.OwnedByOther(ctx, userID, conversationID)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}
	if other {
		log.Warnf("[ConversationService] user %d tried to use conversation %s owned by another user", userID, conversationID)
		return model.ErrConversationNotFound
	}
	return nil
}

// AppendTurn 追加一轮问答。
// conversationID 为空时新建会话并由问题生成标题；否则沿用已有标题，找不到时降级为 "Untitled"。
// 会话 ID 属于其他用户时返回 ErrConversationNotFound。
func (s *conversationService) AppendTurn(ctx context.Context, userID uint, conversationID, question, answer string) (AppendResult, error) {
	res := AppendResult{ConversationID: strings.TrimSpace(conversationID)}

	if res.ConversationID == "" {
		res.ConversationID = s.newID()
		res.Title = DeriveTitle(question)
		res.Created = true
	} else {
		if err := s.Authorize(ctx, userID, res.ConversationID); err != nil {
			return AppendResult{}, err
		}
		res.Title = s.lookupTitle(ctx, userID, res.ConversationID)
	}

	// 登记拥有者。与其他用户并发使用同一个新 ID 时只有一方能占有
	owner, err := s.repo.ClaimOwner(ctx, &model.Conversation{ID: res.ConversationID, UserID: userID, Title: res.Title})
	if err != nil {
		return AppendResult{}, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}
	if owner != userID {
		log.Warnf("[ConversationService] conversation %s already claimed by user %d, rejecting user %d", res.ConversationID, owner, userID)
		return AppendResult{}, model.ErrConversationNotFound
	}

	turn := &model.ChatHistory{
		UserID:         userID,
		ConversationID: res.ConversationID,
		Title:          res.Title,
		UserQuery:      question,
		NLResponse:     answer,
	}
	if err := s.repo.CreateTurn(ctx, turn); err != nil {
		return AppendResult{}, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}
	s.cache.Set(ctx, userID, res.ConversationID, res.Title)
	return res, nil
}

func (s *conversationService) lookupTitle(ctx context.Context, userID uint, conversationID string) string {
	if title, ok := s.cache.Get(ctx, userID, conversationID); ok && title != "" {
		return title
	}
	title, err := s.repo.FindTitle(ctx, userID, conversationID)
	if err != nil {
		if !errors.Is(err, model.ErrConversationNotFound) {
			log.Warnf("[ConversationService] title lookup failed for conversation %s: %v", conversationID, err)
		} else {
			log.Infof("[ConversationService] no title for conversation %s, using default", conversationID)
		}
		return model.DefaultTitle
	}
	if title == "" {
		return model.DefaultTitle
	}
	return title
}

// ListConversations 返回用户的全部会话，最近活跃的在前。
func (s *conversationService) ListConversations(ctx context.Context, userID uint) ([]model.ConversationSummary, error) {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}
	return list, nil
}

// GetHistory 把会话展开为消息列表：每轮依次是问题和回答，空的一侧省略。
// 会话不存在或不属于该用户时返回空列表。
func (s *conversationService) GetHistory(ctx context.Context, userID uint, conversationID string) ([]model.ChatMessage, error) {
	turns, err := s.repo.FindHistory(ctx, userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}
	messages := make([]model.ChatMessage, 0, len(turns)*2)
	for _, t := range turns {
		if t.UserQuery != "" {
			messages = append(messages, model.ChatMessage{Type: model.MessageTypeUser, Content: t.UserQuery})
		}
		if t.NLResponse != "" {
			messages = append(messages, model.ChatMessage{Type: model.MessageTypeBot, Content: t.NLResponse})
		}
	}
	return messages, nil
}

// DeriveTitle 由问题生成会话标题，去掉首尾空白后按字符截断。
func DeriveTitle(question string) string {
	q := strings.Join(strings.Fields(question), " ")
	if q == "" {
		return model.DefaultTitle
	}
	if utf8.RuneCountInString(q) <= MaxTitleRunes {
		return q
	}
	runes := []rune(q)
	return string(runes[:MaxTitleRunes]) + "..."
}

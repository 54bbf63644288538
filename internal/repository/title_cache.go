package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"sqlchat-go/pkg/log"
)

// TitleCache 缓存会话标题，减少追加轮次时的标题查询。缓存失败只记录日志。
type TitleCache interface {
	Get(ctx context.Context, userID uint, conversationID string) (string, bool)
	Set(ctx context.Context, userID uint, conversationID, title string)
}

type redisTitleCache struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewTitleCache 创建基于 Redis 的标题缓存。redisClient 为 nil 时返回不做任何事的实现。
func NewTitleCache(redisClient *redis.Client, ttl time.Duration) TitleCache {
	if redisClient == nil {
		return noopTitleCache{}
	}
	return &redisTitleCache{redisClient: redisClient, ttl: ttl}
}

func titleKey(userID uint, conversationID string) string {
	return fmt.Sprintf("conversation:%d:%s:title", userID, conversationID)
}

func (c *redisTitleCache) Get(ctx context.Context, userID uint, conversationID string) (string, bool) {
	title, err := c.redisClient.Get(ctx, titleKey(userID, conversationID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		log.Warnf("failed to read title cache for conversation %s: %v", conversationID, err)
		return "", false
	}
	return title, true
}

func (c *redisTitleCache) Set(ctx context.Context, userID uint, conversationID, title string) {
	if err := c.redisClient.Set(ctx, titleKey(userID, conversationID), title, c.ttl).Err(); err != nil {
		log.Warnf("failed to write title cache for conversation %s: %v", conversationID, err)
	}
}

type noopTitleCache struct{}

func (noopTitleCache) Get(context.Context, uint, string) (string, bool) { return "", false }
func (noopTitleCache) Set(context.Context, uint, string, string)        {}

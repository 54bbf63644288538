package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"sqlchat-go/internal/config"
	"sqlchat-go/pkg/log"
)

// InitRedis 初始化 Redis 客户端连接。Addr 为空时返回 nil，调用方应关闭缓存功能。
func InitRedis(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		log.Info("Redis 未配置，标题缓存已禁用")
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Redis client connected successfully")
	return rdb, nil
}

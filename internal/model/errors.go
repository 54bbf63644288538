package model

import (
	"errors"

	"sqlchat-go/pkg/token"
)

// 错误分类。调用方通过 errors.Is 判断，底层细节用 %w 包装后只写日志。
var (
	// 认证
	ErrTokenMissing = errors.New("token missing")
	ErrTokenExpired = token.ErrTokenExpired
	ErrTokenInvalid = token.ErrTokenInvalid

	// 登录
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidAccount     = errors.New("invalid account")

	// 外部依赖
	ErrTranslationUnavailable = errors.New("translation unavailable")
	ErrSynthesisUnavailable   = errors.New("synthesis unavailable")
	ErrStoreUnavailable       = errors.New("store unavailable")

	// 请求
	ErrInvalidQuestion = errors.New("invalid question")

	// 执行
	ErrQueryExecution = errors.New("query execution error")

	// 会话
	ErrConversationNotFound = errors.New("conversation not found")
)

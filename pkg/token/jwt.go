// Package token 提供了用于生成和验证会话 JSON Web Tokens (JWT) 的功能。
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired 表示 token 的 exp 已经过去，过期后永久无效。
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid 表示签名、结构或签名算法不正确。
	ErrTokenInvalid = errors.New("token invalid")
)

// DefaultTTL 是会话 token 的默认有效期。
const DefaultTTL = 24 * time.Hour

// JWTManager 负责会话 token 的签发与校验，校验完全无状态。
type JWTManager struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// CustomClaims 定义了会话 token 中携带的声明。
// Subject 存放登录身份（邮箱），UserID 是用户的持久 ID。
type CustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// NewJWTManager 创建一个新的 JWTManager 实例，ttl <= 0 时使用 DefaultTTL。
func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &JWTManager{
		secretKey: []byte(secret),
		ttl:       ttl,
		now:       time.Now,
	}
}

// WithClock 替换时间来源，用于测试过期边界。
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	m.now = now
	return m
}

// TTL 返回签发 token 的有效期。
func (m *JWTManager) TTL() time.Duration {
	return m.ttl
}

// GenerateToken 根据用户信息签发一个 HS256 会话 token。
func (m *JWTManager) GenerateToken(userID uint, email, role string) (string, error) {
	now := m.now()
	claims := CustomClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ID:        strconv.FormatUint(uint64(userID), 10) + "-" + strconv.FormatInt(now.UnixNano(), 36),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// VerifyToken 校验 token 字符串并返回其中的声明。
// 过期返回 ErrTokenExpired，其余任何失败都归为 ErrTokenInvalid。
func (m *JWTManager) VerifyToken(tokenString string) (*CustomClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*CustomClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Email == "" {
		claims.Email = claims.Subject
	}
	return claims, nil
}

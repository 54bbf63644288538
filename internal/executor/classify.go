package executor

import (
	"fmt"
	"strings"

	"sqlchat-go/internal/model"
)

// Kind 是语句的分类。
type Kind string

const (
	KindRead     Kind = "read"
	KindMutation Kind = "mutation"
)

// Classify 按前缀判断语句类型：去掉首尾空白后以 SELECT 开头（大小写不敏感）为读，
// 其余非空语句一律视为变更。规则刻意保持简单，更严格的解析器可直接替换此函数。
func Classify(stmt string) (Kind, error) {
	trimmed := strings.TrimSpace(stmt)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty statement", model.ErrQueryExecution)
	}
	if len(trimmed) >= len("SELECT") && strings.EqualFold(trimmed[:len("SELECT")], "SELECT") {
		return KindRead, nil
	}
	return KindMutation, nil
}

// NormalizeQuotes 把双引号替换为单引号。
// 这是兼容模型输出的收窄变换，不是 SQL 注入防护；双引号标识符会因此失效。
func NormalizeQuotes(stmt string) string {
	return strings.ReplaceAll(stmt, `"`, `'`)
}

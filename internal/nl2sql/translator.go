// Package nl2sql 把自然语言问题翻译为单条 SQL 语句。
package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"sqlchat-go/internal/model"
	"sqlchat-go/pkg/llm"
)

// Result 是一次翻译的产物。SQL 只去除了包裹，不保证语法正确。
type Result struct {
	SQL                string
	NormalizedQuestion string
	Hints              []Hint
}

// Translator 定义了 QueryTranslator 的契约。
type Translator interface {
	Translate(ctx context.Context, question string) (Result, error)
}

const systemPreamble = "You are an SQL generator connected to a student database management system. " +
	"Convert the user's natural language request into exactly one SQL statement for the schema below. " +
	"Return ONLY the SQL statement. No markdown, no explanation."

type llmTranslator struct {
	client  llm.Client
	vocab   *Vocabulary
	timeout time.Duration
	system  string
}

// NewTranslator 创建基于 LLM 的翻译器。system 提示在构造时生成，之后只读。
func NewTranslator(client llm.Client, vocab *Vocabulary, timeout time.Duration) Translator {
	return &llmTranslator{
		client:  client,
		vocab:   vocab,
		timeout: timeout,
		system:  systemPreamble + "\n\n" + vocab.Render(),
	}
}

// Translate 每次调用都使用全新的消息列表，不携带任何会话记忆。
func (t *llmTranslator) Translate(ctx context.Context, question string) (Result, error) {
	normalized, hints := t.vocab.Normalize(question)

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	zero := 0.0
	raw, err := t.client.Complete(ctx, []llm.Message{
		{Role: "system", Content: t.system},
		{Role: "user", Content: BuildUserPrompt(question, normalized, hints)},
	}, &llm.GenerationParams{Temperature: &zero})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", model.ErrTranslationUnavailable, err)
	}

	sql := StripSQL(raw)
	if sql == "" {
		return Result{}, fmt.Errorf("%w: %v", model.ErrTranslationUnavailable, errors.New("model returned empty SQL"))
	}
	return Result{SQL: sql, NormalizedQuestion: normalized, Hints: hints}, nil
}

// BuildUserPrompt 组装用户消息：原问题、归一化后的问题及命中的映射。
func BuildUserPrompt(original, normalized string, hints []Hint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User: %s\n", strings.TrimSpace(original))
	if normalized != original {
		fmt.Fprintf(&b, "Normalized: %s\n", strings.TrimSpace(normalized))
	}
	if len(hints) > 0 {
		b.WriteString("Vocabulary mapping:\n")
		for _, h := range hints {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}
	b.WriteString("SQL:")
	return b.String()
}

var (
	// 只去掉已知的语言标记，"```SELECT" 这类紧跟语句的关键字必须保留。长的候选放在前面
	openFence  = regexp.MustCompile("^```(?:(?i:postgresql|postgres|plsql|sqlite|mysql|sql)(?:[ \t]+|[ \t]*\r?\n|$)|[ \t]*\r?\n?)")
	closeFence = regexp.MustCompile("\r?\n?```\\s*$")
	sqlLabel   = regexp.MustCompile(`^(?i)sql\s*:\s*`)
)

// StripSQL 确定性地去掉代码块标记、反引号与 "SQL:" 前缀。
func StripSQL(raw string) string {
	s := strings.TrimSpace(raw)
	s = openFence.ReplaceAllString(s, "")
	s = closeFence.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "`", "")
	s = strings.TrimSpace(s)
	s = sqlLabel.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

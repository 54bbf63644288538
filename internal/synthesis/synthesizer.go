// Package synthesis 把查询结果连同原问题转写为自然语言回答。
package synthesis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sqlchat-go/internal/executor"
	"sqlchat-go/internal/model"
	"sqlchat-go/pkg/llm"
)

// Outcome 是交给合成器的执行结果。Failed 为 true 时 Result 为空，
// 表示语句执行失败，合成器只知道失败这一事实，不接触数据库原始报错。
type Outcome struct {
	Result *executor.Result
	Failed bool
}

// Synthesizer 定义了 ResponseSynthesizer 的契约。
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, outcome Outcome) (string, error)
}

// maxPromptRows 限制写入提示词的行数，超出部分只给出计数。
const maxPromptRows = 200

const systemPrompt = `You are a chatbot that interprets SQL query results and provides natural language responses.
The user has asked a question, and the database has returned some results.
Summarize the results for the user in natural language, following these presentation rules:
1. If the result is a single record, for example the details of one particular student, describe it in plain prose.
2. If there are multiple records, present them as an enumerated list with one item per line, for example:
   The students who scored above fifty marks are
   1. PARTHIBAN
   2. LOGITH
   3. KUMAR
3. If the user expected one result and none was found, or more results than expected were returned, do not dump the rows.
   Briefly state the reason (nothing matched, or several records matched), then on the next line suggest how to phrase
   the question to get the intended result (for example a fuller name, a roll number or the exact subject).
Answer only from the results given. Do not mention SQL or the database schema.`

type llmSynthesizer struct {
	client  llm.Client
	timeout time.Duration
}

// NewSynthesizer 创建基于 LLM 的合成器，每次调用都是独立的一次性请求。
func NewSynthesizer(client llm.Client, timeout time.Duration) Synthesizer {
	return &llmSynthesizer{client: client, timeout: timeout}
}

func (s *llmSynthesizer) Synthesize(ctx context.Context, question string, outcome Outcome) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text, err := s.client.Complete(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: BuildPrompt(question, outcome)},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrSynthesisUnavailable, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %v", model.ErrSynthesisUnavailable, errors.New("model returned empty answer"))
	}
	return text, nil
}

// BuildPrompt 组装用户消息：原问题、结果文本以及基于基数推断的提示行。
func BuildPrompt(question string, outcome Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User Query: %q\n", strings.TrimSpace(question))

	switch {
	case outcome.Failed || outcome.Result == nil:
		b.WriteString("SQL Query Results:\n(the query could not be executed)\n")
		b.WriteString("Note: the request failed. Tell the user it could not be answered and suggest rephrasing the question.\n")
	case outcome.Result.Kind == executor.KindMutation:
		fmt.Fprintf(&b, "SQL Query Results:\n(statement applied, %d rows affected)\n", outcome.Result.RowsAffected)
		b.WriteString("Note: confirm to the user that the change was applied.\n")
	default:
		b.WriteString("SQL Query Results:\n")
		writeRows(&b, outcome.Result.Rows)
		if hint := CardinalityHint(question, len(outcome.Result.Rows)); hint != "" {
			fmt.Fprintf(&b, "Note: %s\n", hint)
		}
	}

	b.WriteString("\nNow summarize the results for the user in natural language:")
	return b.String()
}

func writeRows(b *strings.Builder, rows []executor.Row) {
	if len(rows) == 0 {
		b.WriteString("(no rows)\n")
		return
	}
	for i, row := range rows {
		if i == maxPromptRows {
			fmt.Fprintf(b, "... and %d more rows\n", len(rows)-maxPromptRows)
			return
		}
		fmt.Fprintf(b, "%d. %s\n", i+1, formatRow(row))
	}
}

// CardinalityHint 在结果数量与问题期望不符时给出显式说明，否则返回空串。
func CardinalityHint(question string, rows int) string {
	switch {
	case rows == 0:
		return "no rows found. Explain that nothing matched and suggest how to refine the name, subject or test."
	case rows > 1 && ExpectsSingle(question):
		return fmt.Sprintf("more rows than expected: the question asks about one record but %d matched. "+
			"Explain this and suggest how to narrow the question.", rows)
	default:
		return ""
	}
}

func formatRow(row executor.Row) string {
	parts := make([]string, len(row))
	for i, f := range row {
		parts[i] = fmt.Sprintf("%s: %s", f.Column, formatValue(f.Value))
	}
	return strings.Join(parts, ", ")
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(x)
	}
}

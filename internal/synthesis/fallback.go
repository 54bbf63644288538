package synthesis

import (
	"fmt"
	"strings"

	"sqlchat-go/internal/executor"
)

// Fallback 在合成不可用时给出确定性的纯文本回答。
func Fallback(outcome Outcome) string {
	if outcome.Failed || outcome.Result == nil {
		return "The query could not be completed. Please rephrase your question."
	}
	res := outcome.Result
	if res.Kind == executor.KindMutation {
		return fmt.Sprintf("Statement applied, %d rows affected.", res.RowsAffected)
	}
	switch res.RowCount() {
	case 0:
		return "No results found."
	case 1:
		return formatRow(res.Rows[0])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d results:", res.RowCount())
	for i, row := range res.Rows {
		fmt.Fprintf(&b, "\n%d. %s", i+1, formatRow(row))
	}
	return b.String()
}

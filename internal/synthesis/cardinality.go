package synthesis

import (
	"regexp"
	"strings"
)

var (
	pluralCue = regexp.MustCompile(`(?i)\b(all|list|every|each|top\s+\d+|students|names|how\s+many|count|average|toppers)\b`)
	singleCue = regexp.MustCompile(`(?i)\b(details?\s+of|(mark|marks|score|scores)\s+(of|for)|roll\s*(no|number)|of\s+[a-z]+$|for\s+[a-z]+\b|student\s+[a-z]+)|\b\d{4,}[a-z]{2,}\d+\b`)
)

// ExpectsSingle 粗略判断问题是否只期望一条记录。
// 出现复数线索（all、list、top N 等）时一律视为多条。
func ExpectsSingle(question string) bool {
	q := strings.TrimSpace(question)
	if q == "" || pluralCue.MatchString(q) {
		return false
	}
	return singleCue.MatchString(q)
}

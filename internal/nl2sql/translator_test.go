package nl2sql

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlchat-go/internal/model"
	"sqlchat-go/pkg/llm"
)

type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	delay    time.Duration
	requests [][]llm.Message
}

func (f *fakeLLM) Complete(ctx context.Context, messages []llm.Message, _ *llm.GenerationParams) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, messages)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func TestStripSQL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "SELECT 1;", "SELECT 1;"},
		{"sql fence", "```sql\nSELECT * FROM students;\n```", "SELECT * FROM students;"},
		{"bare fence", "```\nSELECT 1;\n```", "SELECT 1;"},
		{"upper fence", "```SQL\nSELECT 1;\n```", "SELECT 1;"},
		{"inline fence", "```sql SELECT 1;```", "SELECT 1;"},
		{"backticks", "`SELECT name FROM students;`", "SELECT name FROM students;"},
		{"label", "SQL: UPDATE students SET dept = 'IT';", "UPDATE students SET dept = 'IT';"},
		{"whitespace", "  \n SELECT 1; \n ", "SELECT 1;"},
		{"only fence", "```sql\n```", ""},
		{"keyword on fence line", "```SELECT\n  name\nFROM students\n```", "SELECT\n  name\nFROM students"},
		{"mutation on fence line", "```UPDATE students SET dept = 'IT';\n```", "UPDATE students SET dept = 'IT';"},
		{"mysql fence", "```mysql\nSELECT 1;\n```", "SELECT 1;"},
		{"postgresql fence", "```postgresql\nSELECT 1;\n```", "SELECT 1;"},
		{"sqlite fence", "```sqlite\nSELECT 1;\n```", "SELECT 1;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripSQL(tt.in))
		})
	}
}

func TestVocabularyNormalize(t *testing.T) {
	v := DefaultVocabulary()

	out, hints := v.Normalize("Show DS-1 mark for Parthiban in PT1")
	assert.Equal(t, "Show Data Structures-1 mark for Parthiban in Periodical Test-1", out)

	rendered := make([]string, 0, len(hints))
	for _, h := range hints {
		rendered = append(rendered, h.String())
	}
	assert.Contains(t, rendered, `"DS-1" means subjects.subject_name LIKE '%DATA STRUCTURES-1%'`)
	assert.Contains(t, rendered, `"PT1" means subjects.exam_name LIKE '%PERIODICAL TEST-1%'`)
	assert.Contains(t, rendered, `"mark" refers to column subjects.total_mark`)
}

func TestVocabularyNormalize_LongestAliasWinsAndNoRescan(t *testing.T) {
	v := DefaultVocabulary()

	out, _ := v.Normalize("compare ds and ds-1 in periodic test 1")
	assert.Equal(t, "compare Data Structures and Data Structures-1 in Periodical Test-1", out)
}

func TestVocabularyNormalize_WholeWordOnly(t *testing.T) {
	v := DefaultVocabulary()

	out, hints := v.Normalize("Show students from Boston")
	assert.Equal(t, "Show students from Boston", out)
	assert.Empty(t, hints)
}

func TestVocabularyNormalize_Departments(t *testing.T) {
	v := DefaultVocabulary()

	out, hints := v.Normalize("Show students from mechanical department")
	assert.Equal(t, "Show students from MECH department", out)
	require.Len(t, hints, 1)
	assert.Equal(t, `"mechanical" means students.dept = 'MECH'`, hints[0].String())

	out, _ = v.Normalize("computer science and business systems toppers")
	assert.Equal(t, "CSBS toppers", out)
}

func TestTranslate_FreshContextPerCall(t *testing.T) {
	fake := &fakeLLM{reply: "```sql\nSELECT * FROM students WHERE dept = 'CSE';\n```"}
	tr := NewTranslator(fake, DefaultVocabulary(), time.Second)

	res, err := tr.Translate(context.Background(), "Show all CSE students")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM students WHERE dept = 'CSE';", res.SQL)

	_, err = tr.Translate(context.Background(), "List students in semester 3")
	require.NoError(t, err)

	require.Len(t, fake.requests, 2)
	for _, msgs := range fake.requests {
		require.Len(t, msgs, 2, "每次调用只包含 system + user")
		assert.Equal(t, "system", msgs[0].Role)
		assert.Contains(t, msgs[0].Content, "students table")
		assert.Contains(t, msgs[0].Content, "CSE: Computer Science and Engineering")
	}
	assert.Contains(t, fake.requests[1][1].Content, "List students in semester 3")
	assert.NotContains(t, fake.requests[1][1].Content, "CSE students")
}

func TestTranslate_PromptCarriesNormalization(t *testing.T) {
	fake := &fakeLLM{reply: "SELECT 1;"}
	tr := NewTranslator(fake, DefaultVocabulary(), time.Second)

	res, err := tr.Translate(context.Background(), "Get OOPS score of 7376231CS229 in test 1")
	require.NoError(t, err)
	assert.Equal(t, "Get Object Oriented Programming score of 7376231CS229 in Periodical Test-1", res.NormalizedQuestion)

	user := fake.requests[0][1].Content
	assert.True(t, strings.HasPrefix(user, "User: Get OOPS score"))
	assert.Contains(t, user, "Normalized: Get Object Oriented Programming score")
	assert.Contains(t, user, "LIKE '%OBJECT ORIENTED PROGRAMMING%'")
	assert.True(t, strings.HasSuffix(user, "SQL:"))
}

func TestTranslate_Unavailable(t *testing.T) {
	tests := []struct {
		name string
		llm  *fakeLLM
	}{
		{"transport error", &fakeLLM{err: errors.New("connection refused")}},
		{"timeout", &fakeLLM{reply: "SELECT 1;", delay: time.Second}},
		{"empty output", &fakeLLM{reply: "```sql\n```"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTranslator(tt.llm, DefaultVocabulary(), 20*time.Millisecond)
			_, err := tr.Translate(context.Background(), "Show all students")
			assert.ErrorIs(t, err, model.ErrTranslationUnavailable)
		})
	}
}

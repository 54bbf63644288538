package nl2sql

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Column 描述一个可供翻译使用的列。
type Column struct {
	Name string
	Type string
	Note string
}

// Table 描述一张业务表。
type Table struct {
	Name    string
	Columns []Column
}

// Code 是一个枚举领域编码，例如院系代码。Aliases 中的说法会被映射到 Code。
type Code struct {
	Code    string
	Name    string
	Aliases []string
}

// Alias 把若干用户说法映射到规范值。Column 指明规范值所作用的列。
type Alias struct {
	Terms     []string
	Canonical string
	Column    string
}

// Example 是一条问题到 SQL 的示例。
type Example struct {
	Question string
	SQL      string
}

// Hint 是一次归一化命中，会写入翻译请求。Exact 表示规范值按等值匹配（领域编码）。
type Hint struct {
	Term      string
	Canonical string
	Column    string
	Rewritten bool
	Exact     bool
}

// String 渲染为提示词中的一行。
func (h Hint) String() string {
	switch {
	case h.Rewritten && h.Exact:
		return fmt.Sprintf("%q means %s = '%s'", h.Term, h.Column, h.Canonical)
	case h.Rewritten && h.Column != "":
		return fmt.Sprintf("%q means %s LIKE '%%%s%%'", h.Term, h.Column, strings.ToUpper(h.Canonical))
	case h.Rewritten:
		return fmt.Sprintf("%q means %s", h.Term, h.Canonical)
	default:
		return fmt.Sprintf("%q refers to column %s", h.Term, h.Canonical)
	}
}

// Vocabulary 是翻译所需的静态上下文：表结构、领域编码、别名与同义词。
// 构建后只读，可被并发请求共享。
type Vocabulary struct {
	Tables        []Table
	Departments   []Code
	Aliases       []Alias
	FieldSynonyms []Alias
	Examples      []Example
	Rules         []string

	aliasRe   *regexp.Regexp
	aliasIdx  map[string]aliasTarget
	fieldRe   *regexp.Regexp
	fieldIdx  map[string]Alias
	rendering string
}

type aliasTarget struct {
	canonical string
	column    string
	exact     bool
}

// Compile 预编译别名匹配表达式并缓存提示词中的静态部分，必须在使用前调用一次。
func (v *Vocabulary) Compile() (*Vocabulary, error) {
	v.aliasIdx = make(map[string]aliasTarget)
	var aliasTerms []string
	for _, a := range v.Aliases {
		for _, t := range a.Terms {
			v.aliasIdx[strings.ToLower(t)] = aliasTarget{canonical: a.Canonical, column: a.Column}
			aliasTerms = append(aliasTerms, t)
		}
	}
	for _, d := range v.Departments {
		for _, t := range d.Aliases {
			v.aliasIdx[strings.ToLower(t)] = aliasTarget{canonical: d.Code, column: "students.dept", exact: true}
			aliasTerms = append(aliasTerms, t)
		}
	}
	re, err := compileTerms(aliasTerms)
	if err != nil {
		return nil, fmt.Errorf("compile aliases: %w", err)
	}
	v.aliasRe = re

	v.fieldIdx = make(map[string]Alias)
	var fieldTerms []string
	for _, f := range v.FieldSynonyms {
		for _, t := range f.Terms {
			v.fieldIdx[strings.ToLower(t)] = f
			fieldTerms = append(fieldTerms, t)
		}
	}
	if v.fieldRe, err = compileTerms(fieldTerms); err != nil {
		return nil, fmt.Errorf("compile field synonyms: %w", err)
	}

	v.rendering = v.render()
	return v, nil
}

// MustCompile 与 Compile 相同，失败时 panic，用于启动期的静态词表。
func (v *Vocabulary) MustCompile() *Vocabulary {
	out, err := v.Compile()
	if err != nil {
		panic(err)
	}
	return out
}

// compileTerms 生成一个整词、大小写不敏感的交替表达式，长词优先，保证 "DS-1" 先于 "DS"。
func compileTerms(terms []string) (*regexp.Regexp, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	sorted := append([]string(nil), terms...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	quoted := make([]string, len(sorted))
	for i, t := range sorted {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(t), " ", `\s+`)
	}
	return regexp.Compile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Normalize 单遍替换问题中的缩写与别名，返回改写后的问题与命中的提示。
// 替换结果不会被再次匹配；字段同义词只产生提示，不改写原文。
func (v *Vocabulary) Normalize(question string) (string, []Hint) {
	var hints []Hint
	seen := make(map[string]bool)
	add := func(h Hint) {
		key := strings.ToLower(h.Term) + "|" + h.Canonical
		if !seen[key] {
			seen[key] = true
			hints = append(hints, h)
		}
	}

	out := question
	if v.aliasRe != nil {
		out = v.aliasRe.ReplaceAllStringFunc(question, func(m string) string {
			target, ok := v.aliasIdx[normalizeSpace(strings.ToLower(m))]
			if !ok {
				return m
			}
			add(Hint{Term: m, Canonical: target.canonical, Column: target.column, Rewritten: true, Exact: target.exact})
			return target.canonical
		})
	}
	if v.fieldRe != nil {
		for _, m := range v.fieldRe.FindAllString(question, -1) {
			if f, ok := v.fieldIdx[normalizeSpace(strings.ToLower(m))]; ok {
				add(Hint{Term: m, Canonical: f.Canonical})
			}
		}
	}
	return out, hints
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Render 返回提示词中的静态词表部分。
func (v *Vocabulary) Render() string {
	if v.rendering == "" {
		return v.render()
	}
	return v.rendering
}

func (v *Vocabulary) render() string {
	var b strings.Builder
	b.WriteString("DATABASE SCHEMA:\n")
	for i, t := range v.Tables {
		fmt.Fprintf(&b, "%d. %s table:\n", i+1, t.Name)
		for _, c := range t.Columns {
			fmt.Fprintf(&b, "   - %s (%s)", c.Name, c.Type)
			if c.Note != "" {
				fmt.Fprintf(&b, " - %s", c.Note)
			}
			b.WriteString("\n")
		}
	}
	if len(v.Departments) > 0 {
		b.WriteString("\nDEPARTMENT CODES:\n")
		for _, d := range v.Departments {
			fmt.Fprintf(&b, "- %s: %s\n", d.Code, d.Name)
		}
	}
	if len(v.Aliases) > 0 {
		b.WriteString("\nABBREVIATIONS AND ALIASES:\n")
		for _, a := range v.Aliases {
			fmt.Fprintf(&b, "- %s -> %s (%s)\n", strings.Join(a.Terms, " / "), a.Canonical, a.Column)
		}
	}
	if len(v.FieldSynonyms) > 0 {
		b.WriteString("\nFIELD SYNONYMS:\n")
		for _, f := range v.FieldSynonyms {
			fmt.Fprintf(&b, "- %s -> %s\n", strings.Join(f.Terms, " / "), f.Canonical)
		}
	}
	if len(v.Rules) > 0 {
		b.WriteString("\nRULES:\n")
		for i, r := range v.Rules {
			fmt.Fprintf(&b, "%d. %s\n", i+1, r)
		}
	}
	if len(v.Examples) > 0 {
		b.WriteString("\nEXAMPLES:\n")
		for _, e := range v.Examples {
			fmt.Fprintf(&b, "User: %q\nSQL: %s\n\n", e.Question, e.SQL)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

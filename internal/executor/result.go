package executor

import (
	"bytes"
	"encoding/json"
)

// Field 是一行中的一个列值。
type Field struct {
	Column string
	Value  any
}

// Row 按语句声明的列顺序保存列名到值的映射。
type Row []Field

// Get 按列名取值。列名重复时返回第一个。
func (r Row) Get(column string) (any, bool) {
	for _, f := range r {
		if f.Column == column {
			return f.Value, true
		}
	}
	return nil, false
}

// Map 转换为无序 map，便于断言或模板渲染。
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, f := range r {
		if _, exists := m[f.Column]; !exists {
			m[f.Column] = f.Value
		}
	}
	return m
}

// MarshalJSON 输出按列顺序排列的 JSON 对象。
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Column)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Result 是一次执行的结构化结果。变更语句成功时 Rows 为空切片。
type Result struct {
	Statement    string   `json:"statement"`
	Kind         Kind     `json:"kind"`
	Columns      []string `json:"columns,omitempty"`
	Rows         []Row    `json:"rows"`
	RowsAffected int64    `json:"rowsAffected,omitempty"`
}

// RowCount 返回读语句的行数或变更语句影响的行数。
func (r *Result) RowCount() int64 {
	if r.Kind == KindRead {
		return int64(len(r.Rows))
	}
	return r.RowsAffected
}

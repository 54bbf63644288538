// Package executor 在关系库上执行翻译得到的单条 SQL 语句。
// 每条语句独占一个连接与事务：获取 → 执行 → 提交或回滚 → 释放，任何路径都不会遗留打开的事务。
package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sqlchat-go/internal/model"
	"sqlchat-go/pkg/log"
)

// Executor 定义了 QueryExecutor 的契约。
type Executor interface {
	Execute(ctx context.Context, stmt string) (*Result, error)
}

// Pool 是可以签出独占连接的连接池，*sql.DB 满足该接口。
type Pool interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

type sqlExecutor struct {
	pool    Pool
	timeout time.Duration
}

// NewExecutor 基于连接池创建执行器。timeout > 0 时限制单条语句的总耗时。
func NewExecutor(pool Pool, timeout time.Duration) Executor {
	return &sqlExecutor{pool: pool, timeout: timeout}
}

// Execute 归一化引号、分类并在独立事务中执行语句。
// 读语句物化全部行后回滚，变更语句提交；执行失败一律回滚并返回 ErrQueryExecution，
// 超过语句时限则返回 ErrStoreUnavailable。
func (e *sqlExecutor) Execute(ctx context.Context, stmt string) (*Result, error) {
	stmt = NormalizeQuotes(stmt)
	kind, err := Classify(stmt)
	if err != nil {
		return nil, err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	conn, err := e.pool.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire connection: %v", model.ErrStoreUnavailable, err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin transaction: %v", model.ErrStoreUnavailable, err)
	}

	log.Debugf("Executing %s statement: %s", kind, stmt)

	var result *Result
	if kind == KindRead {
		result, err = e.query(ctx, tx, stmt)
	} else {
		result, err = e.exec(ctx, tx, stmt)
	}
	if err != nil {
		rollback(tx)
		// 超时属于存储侧不可用，而不是语句本身的错误
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: statement timeout: %v", model.ErrStoreUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", model.ErrQueryExecution, err)
	}
	return result, nil
}

// query 执行读语句，读完后回滚，从不提交。
func (e *sqlExecutor) query(ctx context.Context, tx *sql.Tx, stmt string) (*Result, error) {
	rows, err := tx.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	columns, out, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	rollback(tx)
	return &Result{Statement: stmt, Kind: KindRead, Columns: columns, Rows: out}, nil
}

// exec 执行变更语句并提交，提交失败视为执行失败。
func (e *sqlExecutor) exec(ctx context.Context, tx *sql.Tx, stmt string) (*Result, error) {
	res, err := tx.ExecContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	var affected int64
	if n, rerr := res.RowsAffected(); rerr == nil {
		affected = n
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &Result{Statement: stmt, Kind: KindMutation, Rows: []Row{}, RowsAffected: affected}, nil
}

func scanRows(rows *sql.Rows) ([]string, []Row, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	out := make([]Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			row[i] = Field{Column: col, Value: normalizeValue(values[i])}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return columns, out, nil
}

// normalizeValue 把驱动返回的 []byte 转成字符串，其余类型原样保留。
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Warnf("rollback failed: %v", err)
	}
}

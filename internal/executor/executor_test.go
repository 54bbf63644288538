package executor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlchat-go/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestExecute_ReadRollsBackAndKeepsColumnOrder(t *testing.T) {
	db, mock := newMock(t)
	stmt := "SELECT name, dept FROM students WHERE dept = 'CSE';"

	mock.ExpectBegin()
	mock.ExpectQuery(stmt).WillReturnRows(
		sqlmock.NewRows([]string{"name", "dept"}).
			AddRow([]byte("PARTHIBAN"), "CSE").
			AddRow("KAVIN", "CSE"),
	)
	mock.ExpectRollback()

	res, err := NewExecutor(db, time.Second).Execute(context.Background(), stmt)
	require.NoError(t, err)
	assert.Equal(t, KindRead, res.Kind)
	assert.Equal(t, []string{"name", "dept"}, res.Columns)
	require.EqualValues(t, 2, res.RowCount())
	name, ok := res.Rows[0].Get("name")
	require.True(t, ok)
	assert.Equal(t, "PARTHIBAN", name)

	b, err := json.Marshal(res.Rows[1])
	require.NoError(t, err)
	assert.Equal(t, `{"name":"KAVIN","dept":"CSE"}`, string(b))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_ReadEmptyResult(t *testing.T) {
	db, mock := newMock(t)
	stmt := "SELECT s.total_mark FROM subjects s WHERE s.subject_name LIKE '%PHYSICS%';"

	mock.ExpectBegin()
	mock.ExpectQuery(stmt).WillReturnRows(sqlmock.NewRows([]string{"total_mark"}))
	mock.ExpectRollback()

	res, err := NewExecutor(db, 0).Execute(context.Background(), stmt)
	require.NoError(t, err)
	assert.EqualValues(t, 0, res.RowCount())
	assert.NotNil(t, res.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_MutationCommits(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE students SET dept = 'IT' WHERE name LIKE '%PARTHIBAN%';").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// 双引号会被替换为单引号后再执行
	res, err := NewExecutor(db, time.Second).Execute(context.Background(),
		`UPDATE students SET dept = "IT" WHERE name LIKE "%PARTHIBAN%";`)
	require.NoError(t, err)
	assert.Equal(t, KindMutation, res.Kind)
	assert.EqualValues(t, 1, res.RowsAffected)
	assert.Empty(t, res.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_FailureRollsBack(t *testing.T) {
	t.Run("read", func(t *testing.T) {
		db, mock := newMock(t)
		stmt := "SELECT * FROM nope;"
		mock.ExpectBegin()
		mock.ExpectQuery(stmt).WillReturnError(errors.New("Table 'sqlchat.nope' doesn't exist"))
		mock.ExpectRollback()

		_, err := NewExecutor(db, time.Second).Execute(context.Background(), stmt)
		assert.ErrorIs(t, err, model.ErrQueryExecution)
		assert.Contains(t, err.Error(), "doesn't exist")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mutation", func(t *testing.T) {
		db, mock := newMock(t)
		stmt := "DELETE FROM students WHERE roll_no = '1';"
		mock.ExpectBegin()
		mock.ExpectExec(stmt).WillReturnError(errors.New("foreign key constraint fails"))
		mock.ExpectRollback()

		_, err := NewExecutor(db, time.Second).Execute(context.Background(), stmt)
		assert.ErrorIs(t, err, model.ErrQueryExecution)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("row error", func(t *testing.T) {
		db, mock := newMock(t)
		stmt := "SELECT name FROM students;"
		mock.ExpectBegin()
		mock.ExpectQuery(stmt).WillReturnRows(
			sqlmock.NewRows([]string{"name"}).AddRow("A").RowError(0, errors.New("lost connection")),
		)
		mock.ExpectRollback()

		_, err := NewExecutor(db, time.Second).Execute(context.Background(), stmt)
		assert.ErrorIs(t, err, model.ErrQueryExecution)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestExecute_CommitFailure(t *testing.T) {
	db, mock := newMock(t)
	stmt := "ALTER TABLE students ADD COLUMN gpa REAL;"
	mock.ExpectBegin()
	mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit().WillReturnError(errors.New("deadlock"))

	_, err := NewExecutor(db, time.Second).Execute(context.Background(), stmt)
	assert.ErrorIs(t, err, model.ErrQueryExecution)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type brokenPool struct{}

func (brokenPool) Conn(context.Context) (*sql.Conn, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestExecute_StoreUnavailable(t *testing.T) {
	_, err := NewExecutor(brokenPool{}, time.Second).Execute(context.Background(), "SELECT 1;")
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)

	db, mock := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("server has gone away"))
	_, err = NewExecutor(db, time.Second).Execute(context.Background(), "SELECT 1;")
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_TimeoutIsStoreUnavailable(t *testing.T) {
	t.Run("read", func(t *testing.T) {
		db, mock := newMock(t)
		stmt := "SELECT name FROM students;"
		mock.ExpectBegin()
		mock.ExpectQuery(stmt).WillDelayFor(300 * time.Millisecond).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("A"))
		mock.ExpectRollback()

		start := time.Now()
		_, err := NewExecutor(db, 50*time.Millisecond).Execute(context.Background(), stmt)
		assert.ErrorIs(t, err, model.ErrStoreUnavailable)
		assert.NotErrorIs(t, err, model.ErrQueryExecution)
		assert.Contains(t, err.Error(), "statement timeout")
		assert.Less(t, time.Since(start), 300*time.Millisecond)
	})

	t.Run("mutation", func(t *testing.T) {
		db, mock := newMock(t)
		stmt := "UPDATE students SET dept = 'IT';"
		mock.ExpectBegin()
		mock.ExpectExec(stmt).WillDelayFor(300 * time.Millisecond).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		_, err := NewExecutor(db, 50*time.Millisecond).Execute(context.Background(), stmt)
		assert.ErrorIs(t, err, model.ErrStoreUnavailable)
		assert.NotErrorIs(t, err, model.ErrQueryExecution)
	})
}

func TestExecute_EmptyStatement(t *testing.T) {
	_, err := NewExecutor(brokenPool{}, time.Second).Execute(context.Background(), "   ")
	assert.ErrorIs(t, err, model.ErrQueryExecution)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		stmt string
		want Kind
	}{
		{"SELECT * FROM students;", KindRead},
		{"  select name from students", KindRead},
		{"\n\tSeLeCt 1", KindRead},
		{"UPDATE students SET dept = 'IT';", KindMutation},
		{"DELETE FROM students;", KindMutation},
		{"ALTER TABLE students ADD COLUMN gpa REAL;", KindMutation},
		{"WITH t AS (SELECT 1) SELECT * FROM t;", KindMutation},
		{"SELECTED", KindRead},
	}
	for _, tt := range tests {
		t.Run(tt.stmt, func(t *testing.T) {
			got, err := Classify(tt.stmt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeQuotes(t *testing.T) {
	assert.Equal(t, "SELECT * FROM students WHERE name = 'A';", NormalizeQuotes(`SELECT * FROM students WHERE name = "A";`))
	assert.Equal(t, "SELECT 1;", NormalizeQuotes("SELECT 1;"))
}

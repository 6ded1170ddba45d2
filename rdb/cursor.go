package rdb

import (
	"database/sql"

	"github.com/hatlonely/gora/dialect"
	"github.com/pkg/errors"
)

// Cursor 语句执行结果，查询语句逐行读取，其他语句提供影响行数和自增 id
type Cursor struct {
	rows     *sql.Rows
	columns  []string
	result   sql.Result
	folding  dialect.CaseFoldingPolicy
	absorbed string
	returned *int64
	fetched  int64
}

func newRowsCursor(rows *sql.Rows, folding dialect.CaseFoldingPolicy) (*Cursor, error) {
	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, errors.Wrap(err, "rows.Columns failed")
	}
	return &Cursor{rows: rows, columns: columns, folding: folding}, nil
}

func newResultCursor(result sql.Result, folding dialect.CaseFoldingPolicy) *Cursor {
	return &Cursor{result: result, folding: folding}
}

// Absorbed 被吸收的错误码，为空表示正常执行
func (c *Cursor) Absorbed() string {
	return c.absorbed
}

// Columns 折叠后的列名
func (c *Cursor) Columns() []string {
	columns := make([]string, len(c.columns))
	for i, col := range c.columns {
		columns[i] = dialect.FoldKey(col, c.folding)
	}
	return columns
}

// FetchRow 读取下一行，没有数据时返回 ErrNoMoreRows 并关闭游标
func (c *Cursor) FetchRow() (map[string]any, error) {
	if c.rows == nil {
		return nil, ErrNoMoreRows
	}
	if !c.rows.Next() {
		err := c.rows.Err()
		_ = c.Close()
		if err != nil {
			return nil, errors.Wrap(err, "rows.Next failed")
		}
		return nil, ErrNoMoreRows
	}

	values := make([]any, len(c.columns))
	ptrs := make([]any, len(c.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		_ = c.Close()
		return nil, errors.Wrap(err, "rows.Scan failed")
	}
	c.fetched++

	row := make(map[string]any, len(c.columns))
	for i, col := range c.columns {
		row[dialect.FoldKey(col, c.folding)] = values[i]
	}
	return row, nil
}

// FetchAll 读取剩余所有行
func (c *Cursor) FetchAll() ([]map[string]any, error) {
	rows := []map[string]any{}
	for {
		row, err := c.FetchRow()
		if errors.Is(err, ErrNoMoreRows) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// FetchCol 读取剩余行的第一列，全大写的字符串值按折叠策略处理
func (c *Cursor) FetchCol() ([]any, error) {
	if c.rows == nil {
		return []any{}, nil
	}
	first := ""
	if len(c.columns) > 0 {
		first = dialect.FoldKey(c.columns[0], c.folding)
	}

	rows, err := c.FetchAll()
	if err != nil {
		return nil, err
	}
	col := make([]any, 0, len(rows))
	for _, row := range rows {
		v := row[first]
		switch x := v.(type) {
		case string:
			v = dialect.FoldKey(x, c.folding)
		case []byte:
			v = dialect.FoldKey(string(x), c.folding)
		}
		col = append(col, v)
	}
	return col, nil
}

// RowCount 非查询语句返回影响行数，查询语句返回已读取的行数
func (c *Cursor) RowCount() (int64, error) {
	if c.result != nil {
		n, err := c.result.RowsAffected()
		if err != nil {
			return 0, errors.Wrap(err, "RowsAffected failed")
		}
		return n, nil
	}
	return c.fetched, nil
}

// LastInsertID 优先返回 RETURNING INTO 取回的值，其次使用驱动的 LastInsertId
func (c *Cursor) LastInsertID() (int64, error) {
	if c.returned != nil {
		return *c.returned, nil
	}
	if c.result == nil {
		return 0, ErrNoLastInsertID
	}
	id, err := c.result.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(ErrNoLastInsertID, err.Error())
	}
	return id, nil
}

func (c *Cursor) Close() error {
	if c.rows == nil {
		return nil
	}
	err := c.rows.Close()
	c.rows = nil
	return err
}

package rdb

import (
	"fmt"
	"regexp"

	"github.com/hatlonely/gora/dialect"
	"github.com/pkg/errors"
)

const (
	CodeUniqueViolation = "ORA-00001"
	CodeTableNotFound   = "ORA-00942"
	CodeAlreadyNullable = "ORA-01451"
)

var (
	ErrNoMoreRows      = errors.New("no more rows")
	ErrNoLastInsertID  = errors.New("last insert id not available")
	ErrVersionTooLow   = errors.New("server version too low")
	ErrUnsupportedType = errors.New("unsupported driver")
)

var reOracleCode = regexp.MustCompile(`ORA-(\d{5})`)

// ErrorCode 提取错误中的 ORA-NNNNN 错误码，没有时返回空
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var ee *ExecutionError
	if errors.As(err, &ee) && ee.Code != "" {
		return ee.Code
	}
	if m := reOracleCode.FindStringSubmatch(err.Error()); m != nil {
		return "ORA-" + m[1]
	}
	return ""
}

// ExecutionError 主语句被数据库拒绝
type ExecutionError struct {
	Code    string
	Message string
	SQL     string
	Err     error
}

func newExecutionError(sql string, err error) *ExecutionError {
	return &ExecutionError{Code: ErrorCode(err), Message: err.Error(), SQL: sql, Err: err}
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute failed: %s, sql [%s]", e.Message, e.SQL)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// CompanionExecutionError 主语句已成功，伴随语句失败，库表处于不完整状态
type CompanionExecutionError struct {
	Tag     dialect.CompanionTag
	SQL     string
	Primary string
	Code    string
	Err     error
}

func (e *CompanionExecutionError) Error() string {
	return fmt.Sprintf("companion %s failed after primary statement succeeded: %v, sql [%s]", e.Tag, e.Err, e.SQL)
}

func (e *CompanionExecutionError) Unwrap() error {
	return e.Err
}

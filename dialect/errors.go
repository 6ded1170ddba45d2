package dialect

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrMissingTableName  = errors.New("table name not found")
	ErrBindCountMismatch = errors.New("bind count mismatch")
	ErrEmptyTableBody    = errors.New("table has no column definitions")
	ErrAmbiguousIndex    = errors.New("ambiguous index clause")
)

// RewriteError 语句无法安全改写
type RewriteError struct {
	Op  string
	SQL string
	Err error
}

func (e *RewriteError) Error() string {
	return fmt.Sprintf("rewrite %s failed: %v, sql [%s]", e.Op, e.Err, e.SQL)
}

func (e *RewriteError) Unwrap() error {
	return e.Err
}

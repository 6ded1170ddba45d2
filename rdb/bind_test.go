package rdb

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/hatlonely/gora/dialect"
	"github.com/stretchr/testify/assert"
)

func TestBindValue(t *testing.T) {
	n := 7
	var nilPtr *int
	ts := time.Date(2010, 1, 2, 3, 4, 5, 0, time.UTC)

	cases := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"false", false, int64(0)},
		{"true", true, "1"},
		{"int", 3, int64(3)},
		{"int32", int32(-3), int64(-3)},
		{"uint8", uint8(2), int64(2)},
		{"uint64 max int64", uint64(math.MaxInt64), int64(math.MaxInt64)},
		{"uint64 overflow", uint64(math.MaxUint64), "18446744073709551615"},
		{"uint64 boundary", uint64(math.MaxInt64) + 1, "9223372036854775808"},
		{"float", 1.5, "1.5"},
		{"string", "x", "x"},
		{"bytes", []byte("x"), []byte("x")},
		{"time", ts, "2010-01-02 03:04:05"},
		{"pointer", &n, int64(7)},
		{"nil pointer", nilPtr, nil},
		{"other", struct{ A int }{1}, "{1}"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, bindValue(c.in))
		})
	}
}

func TestBindArgs(t *testing.T) {
	stmt := &dialect.RewrittenStatement{Params: map[string]any{":p1": "b", ":p0": 1}}

	assert.Equal(t, []any{sql.Named("p0", int64(1)), sql.Named("p1", "b")}, bindArgs(stmt, false))
	assert.Equal(t, []any{int64(1), "b"}, bindArgs(stmt, true))
	assert.Empty(t, bindArgs(&dialect.RewrittenStatement{}, false))
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "", ErrorCode(nil))
	assert.Equal(t, "", ErrorCode(errors.New("connection refused")))
	assert.Equal(t, CodeTableNotFound, ErrorCode(errors.New("ORA-00942: table or view does not exist")))
	assert.Equal(t, CodeTableNotFound, ErrorCode(fmt.Errorf("wrapped: %w", errors.New("ORA-00942: table or view does not exist"))))

	err := newExecutionError("SELECT 1 FROM t", errors.New("ORA-00001: unique constraint violated"))
	assert.Equal(t, CodeUniqueViolation, err.Code)
	assert.Equal(t, CodeUniqueViolation, ErrorCode(err))
	assert.Contains(t, err.Error(), "SELECT 1 FROM t")
}

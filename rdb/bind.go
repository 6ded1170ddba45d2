package rdb

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hatlonely/gora/dialect"
)

const timeLayout = "2006-01-02 15:04:05"

// bindValue 整数按整型绑定，false 转为 0，其余按字符串绑定
func bindValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		if !x {
			return int64(0)
		}
		return "1"
	case string, []byte, sql.Out, driver.Valuer:
		return x
	case time.Time:
		return x.Format(timeLayout)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		// 超出 int64 范围的按十进制字符串绑定
		u := rv.Uint()
		if u > math.MaxInt64 {
			return strconv.FormatUint(u, 10)
		}
		return int64(u)
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		return bindValue(rv.Elem().Interface())
	}
	return fmt.Sprint(v)
}

// bindArgs named 模式下生成 sql.Named("p0", v)，positional 模式下按顺序生成参数
func bindArgs(stmt *dialect.RewrittenStatement, positional bool) []any {
	names := stmt.Names()
	args := make([]any, 0, len(names))
	for _, name := range names {
		v := bindValue(stmt.Params[name])
		if positional {
			args = append(args, v)
			continue
		}
		args = append(args, sql.Named(strings.TrimPrefix(name, ":"), v))
	}
	return args
}

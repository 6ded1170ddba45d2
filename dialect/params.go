package dialect

import (
	"strconv"
	"strings"
)

// PlaceholderName 第 i 个位置参数对应的命名参数，不带冒号
func PlaceholderName(i int) string {
	return "p" + strconv.Itoa(i)
}

// ConvertPositional 把字面量之外的 ? 依次替换为 :p0, :p1 ...，返回改写后的语句和替换个数
func ConvertPositional(sql string, mode ScanMode) (string, int) {
	if strings.IndexByte(sql, '?') < 0 {
		return sql, 0
	}

	mask := LiteralMask(sql, mode)
	var b strings.Builder
	b.Grow(len(sql) + 8)
	n := 0
	for i := 0; i < len(sql); i++ {
		if sql[i] == '?' && !mask[i] {
			b.WriteByte(':')
			b.WriteString(PlaceholderName(n))
			n++
			continue
		}
		b.WriteByte(sql[i])
	}
	return b.String(), n
}

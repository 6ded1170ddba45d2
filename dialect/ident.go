package dialect

import "strings"

// GuardIdentifier 把超长的标识符截断到 max 以内。
// 从第一个下划线之后开始删除多出的字符，保留最后一个下划线起的后缀（_SEQ、_TRG、序号）；
// 中间部分不够删时截断前缀。结果是确定的，但不保证不冲突。
func GuardIdentifier(name string, max int) string {
	if max <= 0 || len(name) <= max {
		return name
	}

	excess := len(name) - max
	first := strings.IndexByte(name, '_')
	last := strings.LastIndexByte(name, '_')
	if first >= 0 && last-(first+1) >= excess {
		return name[:first+1] + name[first+1+excess:]
	}

	suffix := ""
	if last >= 0 {
		suffix = name[last:]
	}
	if len(suffix) >= max {
		return name[:max]
	}
	return name[:max-len(suffix)] + suffix
}

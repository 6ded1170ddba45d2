package dialect

import "strings"

// FoldKey 按策略折叠单个列名
func FoldKey(key string, policy CaseFoldingPolicy) string {
	if policy == FoldNone {
		return key
	}
	if upper := strings.ToUpper(key); upper == key {
		return strings.ToLower(key)
	}
	return key
}

// FoldRow 返回折叠列名后的新行，不修改入参
func FoldRow(row map[string]any, policy CaseFoldingPolicy) map[string]any {
	if row == nil || policy == FoldNone {
		return row
	}
	folded := make(map[string]any, len(row))
	for k, v := range row {
		folded[FoldKey(k, policy)] = v
	}
	return folded
}

func FoldRows(rows []map[string]any, policy CaseFoldingPolicy) []map[string]any {
	if policy == FoldNone {
		return rows
	}
	folded := make([]map[string]any, len(rows))
	for i, row := range rows {
		folded[i] = FoldRow(row, policy)
	}
	return folded
}

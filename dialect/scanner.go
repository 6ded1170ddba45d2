package dialect

import (
	"strings"

	"github.com/pkg/errors"
)

// ScanMode 字面量扫描模式
type ScanMode string

const (
	// LegacyScan 任意 ' " ` 都翻转同一个"在字面量中"状态，不处理转义。
	// 与旧适配器的行为保持一致，含引号字符的字符串会被误判。
	LegacyScan ScanMode = "legacy"
	// StrictScan 基于 Tokenize 的严格扫描
	StrictScan ScanMode = "strict"
)

func ParseScanMode(s string) (ScanMode, error) {
	switch ScanMode(strings.ToLower(s)) {
	case "", LegacyScan:
		return LegacyScan, nil
	case StrictScan:
		return StrictScan, nil
	}
	return "", errors.Errorf("unknown scan mode [%s]", s)
}

// LiteralMask 返回每个字节是否位于字面量内，引号字符本身计入字面量
func LiteralMask(sql string, mode ScanMode) []bool {
	mask := make([]bool, len(sql))
	if mode == StrictScan {
		for _, tok := range Tokenize(sql) {
			if tok.Literal() {
				for i := tok.Pos; i < tok.Pos+len(tok.Text); i++ {
					mask[i] = true
				}
			}
		}
		return mask
	}

	in := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'', '"', '`':
			if in {
				mask[i] = true
				in = false
				continue
			}
			in = true
		}
		mask[i] = in
	}
	return mask
}

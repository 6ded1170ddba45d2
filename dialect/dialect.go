package dialect

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// TypeRule 类型替换规则，Pattern 为不区分大小写的正则，Replacement 支持 $1 引用
type TypeRule struct {
	Pattern     string
	Replacement string

	re *regexp.Regexp
}

func NewTypeRule(pattern, replacement string) (TypeRule, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return TypeRule{}, errors.Wrapf(err, "compile type pattern [%s] failed", pattern)
	}
	return TypeRule{Pattern: pattern, Replacement: replacement, re: re}, nil
}

func mustTypeRule(pattern, replacement string) TypeRule {
	rule, err := NewTypeRule(pattern, replacement)
	if err != nil {
		panic(err)
	}
	return rule
}

// TypeMapping 有序的类型替换表，具体的模式排在通用模式之前
type TypeMapping []TypeRule

// CaseFoldingPolicy 结果集列名大小写折叠策略
type CaseFoldingPolicy string

const (
	// FoldNatural 全大写的列名折叠为小写，大小写混合的保持不变
	FoldNatural CaseFoldingPolicy = "natural"
	FoldNone    CaseFoldingPolicy = "none"
)

func ParseCaseFoldingPolicy(s string) (CaseFoldingPolicy, error) {
	switch CaseFoldingPolicy(strings.ToLower(s)) {
	case "", FoldNatural:
		return FoldNatural, nil
	case FoldNone:
		return FoldNone, nil
	}
	return "", errors.Errorf("unknown case folding policy [%s]", s)
}

// Dialect 方言的静态配置，构造后只读，可并发使用
type Dialect struct {
	Name                string
	Types               TypeMapping
	NumericTypes        TypeMapping
	ReservedWords       ReservedWordSet
	Folding             CaseFoldingPolicy
	ScanMode            ScanMode
	MaxIdentifierLength int

	// 为 true 时，建表语句找不到表名只记录告警并跳过序列、触发器和索引的生成
	TolerateMissingTableName bool
}

func oracleTypes() TypeMapping {
	return TypeMapping{
		mustTypeRule(`\bCHAR\b`, "VARCHAR"),
		mustTypeRule(`\bVARCHAR\b`, "VARCHAR2"),
		mustTypeRule(`\s+UNSIGNED\b`, ""),
		mustTypeRule(`\s+ZEROFILL\b`, ""),
		mustTypeRule(`\bFLOAT\s*\(`, "NUMBER("),
		mustTypeRule(`\bFLOAT\b`, "NUMBER(12,2)"),
		mustTypeRule(`\bDOUBLE\b`, "NUMBER(12,2)"),
		mustTypeRule(`\b(?:TINY|MEDIUM|LONG)?TEXT\b`, "VARCHAR2(4000)"),
		mustTypeRule(`\bVARBINARY\b`, "VARCHAR2"),
		mustTypeRule(`\bDATETIME\b`, "TIMESTAMP"),
		mustTypeRule(`\bTIME\b`, "INTERVAL DAY(1) TO SECOND(0)"),
		mustTypeRule(`\b(?:MEDIUM|LONG)BLOB\b`, "BLOB"),
	}
}

// 数值类型的宽度参数直接丢弃
func oracleNumericTypes() TypeMapping {
	const width = `(?:\s*\(\s*\d{1,4}\s*\))?`
	return TypeMapping{
		mustTypeRule(`\bBINARY\b`+width, "VARCHAR2(16)"),
		mustTypeRule(`\bBIGINT\b`+width, "NUMBER(20,0)"),
		mustTypeRule(`\bMEDIUMINT\b`+width, "NUMBER(8,0)"),
		mustTypeRule(`\bINTEGER\b`+width, "NUMBER(11,0)"),
		mustTypeRule(`\bTINYINT\b`+width, "NUMBER(3,0)"),
		mustTypeRule(`\bSMALLINT\b`+width, "NUMBER(11,0)"),
		mustTypeRule(`\bINT\b`+width, "NUMBER(11,0)"),
	}
}

// Oracle 默认的 MySQL -> Oracle 方言
func Oracle() *Dialect {
	return &Dialect{
		Name:                "oracle",
		Types:               oracleTypes(),
		NumericTypes:        oracleNumericTypes(),
		ReservedWords:       NewReservedWordSet("access", "group"),
		Folding:             FoldNatural,
		ScanMode:            LegacyScan,
		MaxIdentifierLength: 30,
	}
}

type TypeRuleOptions struct {
	Pattern     string `cfg:"pattern" validate:"required"`
	Replacement string `cfg:"replacement"`
}

// Options 方言配置，未设置的字段使用 Oracle 默认值
type Options struct {
	// 保留字，为空时使用默认的 access, group
	ReservedWords []string `cfg:"reservedWords"`

	// 追加的类型替换规则，排在默认规则之前
	ExtraTypes []TypeRuleOptions `cfg:"extraTypes"`

	// 结果集列名折叠策略：natural, none
	Folding string `cfg:"folding" def:"natural" validate:"omitempty,oneof=natural none"`

	// 字面量扫描模式：legacy, strict
	ScanMode string `cfg:"scanMode" def:"legacy" validate:"omitempty,oneof=legacy strict"`

	// 标识符最大长度
	MaxIdentifierLength int `cfg:"maxIdentifierLength" def:"30" validate:"gte=0"`

	TolerateMissingTableName bool `cfg:"tolerateMissingTableName"`
}

func NewDialectWithOptions(options *Options) (*Dialect, error) {
	d := Oracle()
	if options == nil {
		return d, nil
	}

	if len(options.ReservedWords) > 0 {
		d.ReservedWords = NewReservedWordSet(options.ReservedWords...)
	}
	if len(options.ExtraTypes) > 0 {
		types := make(TypeMapping, 0, len(options.ExtraTypes)+len(d.Types))
		for _, t := range options.ExtraTypes {
			rule, err := NewTypeRule(t.Pattern, t.Replacement)
			if err != nil {
				return nil, err
			}
			types = append(types, rule)
		}
		d.Types = append(types, d.Types...)
	}

	var err error
	if d.Folding, err = ParseCaseFoldingPolicy(options.Folding); err != nil {
		return nil, err
	}
	if d.ScanMode, err = ParseScanMode(options.ScanMode); err != nil {
		return nil, err
	}
	if options.MaxIdentifierLength > 0 {
		d.MaxIdentifierLength = options.MaxIdentifierLength
	}
	d.TolerateMissingTableName = options.TolerateMissingTableName

	return d, nil
}

// replaceOutsideLiterals 只替换起始位置不在字面量中的匹配，返回替换次数
func replaceOutsideLiterals(sql string, re *regexp.Regexp, repl string, mode ScanMode) (string, int) {
	return replaceUnmasked(sql, re, repl, func(s string) []bool {
		return LiteralMask(s, mode)
	})
}

// replaceUnmasked 只替换起始位置未被掩码标记的匹配，有匹配时才计算掩码
func replaceUnmasked(sql string, re *regexp.Regexp, repl string, maskOf func(string) []bool) (string, int) {
	matches := re.FindAllStringSubmatchIndex(sql, -1)
	if len(matches) == 0 {
		return sql, 0
	}

	mask := maskOf(sql)
	var b strings.Builder
	last, n := 0, 0
	for _, m := range matches {
		if mask[m[0]] {
			continue
		}
		b.WriteString(sql[last:m[0]])
		b.Write(re.ExpandString(nil, repl, sql, m))
		last = m[1]
		n++
	}
	b.WriteString(sql[last:])
	return b.String(), n
}

// apply 依次应用规则，字面量和列名不做替换
func (m TypeMapping) apply(sql string, kind Kind, mode ScanMode) string {
	maskOf := func(s string) []bool {
		return columnNameMask(s, kind, mode)
	}
	for _, rule := range m {
		sql, _ = replaceUnmasked(sql, rule.re, rule.Replacement, maskOf)
	}
	return sql
}

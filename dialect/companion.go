package dialect

import (
	"fmt"
	"strconv"
	"strings"
)

// CompanionTag 伴随语句类型
type CompanionTag string

const (
	CompanionSequence CompanionTag = "sequence"
	CompanionTrigger  CompanionTag = "trigger"
	CompanionIndex    CompanionTag = "index"
)

// 主语句的执行次序为 0，伴随语句都在主语句之后执行
func (t CompanionTag) Rank() int {
	switch t {
	case CompanionSequence:
		return 1
	case CompanionTrigger:
		return 2
	case CompanionIndex:
		return 3
	}
	return 4
}

// CompanionStatement 为模拟源库特性而生成的附加语句
type CompanionStatement struct {
	Tag  CompanionTag `msgpack:"tag"`
	SQL  string       `msgpack:"sql"`
	Rank int          `msgpack:"rank"`
}

func newCompanion(tag CompanionTag, sql string) CompanionStatement {
	return CompanionStatement{Tag: tag, SQL: sql, Rank: tag.Rank()}
}

// SequenceCompanions 为自增列生成序列和插入触发器
func SequenceCompanions(table, primaryKey string, maxLen int) []CompanionStatement {
	upper := strings.ToUpper(table)
	seq := GuardIdentifier(upper+"_SEQ", maxLen)
	trg := GuardIdentifier(upper+"_TRG", maxLen)
	return []CompanionStatement{
		newCompanion(CompanionSequence, fmt.Sprintf("CREATE SEQUENCE %s INCREMENT BY 1 START WITH 1 NOCACHE", seq)),
		newCompanion(CompanionTrigger, fmt.Sprintf(
			"CREATE OR REPLACE TRIGGER %s BEFORE INSERT ON %s FOR EACH ROW BEGIN SELECT %s.NEXTVAL INTO :NEW.%s FROM DUAL; END;",
			trg, upper, seq, primaryKey,
		)),
	}
}

// IndexCompanion 生成 CREATE INDEX，suffix 为序号或原索引名
func IndexCompanion(table, suffix, columns string, maxLen int) CompanionStatement {
	name := GuardIdentifier(table+"_"+suffix, maxLen)
	return newCompanion(CompanionIndex, fmt.Sprintf("CREATE INDEX %s ON %s (%s)", name, table, columns))
}

// SequenceName 表对应的序列名
func SequenceName(table string, maxLen int) string {
	return GuardIdentifier(strings.ToUpper(table)+"_SEQ", maxLen)
}

func ordinal(i int) string {
	return strconv.Itoa(i)
}

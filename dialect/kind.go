package dialect

import "strings"

// Kind 语句类型
type Kind string

const (
	KindSelect      Kind = "select"
	KindInsert      Kind = "insert"
	KindUpdate      Kind = "update"
	KindDelete      Kind = "delete"
	KindCreateTable Kind = "create_table"
	KindAlterTable  Kind = "alter_table"
	KindShowTables  Kind = "show_tables"
	KindOther       Kind = "other"
)

// Rows 是否返回结果集
func (k Kind) Rows() bool {
	return k == KindSelect || k == KindShowTables
}

// DDL 是否需要经过 DDL 改写
func (k Kind) DDL() bool {
	return k == KindCreateTable || k == KindAlterTable
}

// Classify 根据开头的关键字判断语句类型
func Classify(sql string) Kind {
	tokens := significantTokens(Tokenize(sql))
	i := 0
	for i < len(tokens) && tokens[i].Text == "(" {
		i++
	}
	if i >= len(tokens) || tokens[i].Kind != TokenWord {
		return KindOther
	}

	switch strings.ToUpper(tokens[i].Text) {
	case "SELECT", "WITH":
		return KindSelect
	case "INSERT", "REPLACE":
		return KindInsert
	case "UPDATE":
		return KindUpdate
	case "DELETE":
		return KindDelete
	case "CREATE":
		j := i + 1
		for isWord(tokens, j, "temporary") || isWord(tokens, j, "global") {
			j++
		}
		if isWord(tokens, j, "table") {
			return KindCreateTable
		}
	case "ALTER":
		if isWord(tokens, i+1, "table") {
			return KindAlterTable
		}
	case "SHOW":
		if isWord(tokens, i+1, "tables") {
			return KindShowTables
		}
	}
	return KindOther
}

func significantTokens(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Kind != TokenSpace && tok.Kind != TokenComment {
			out = append(out, tok)
		}
	}
	return out
}

// matchParen 返回与 tokens[open] 的 "(" 匹配的 ")" 下标，没有则返回 -1
func matchParen(tokens []Token, open int) int {
	depth := 0
	for i := open; i < len(tokens); i++ {
		if tokens[i].Kind != TokenPunct {
			continue
		}
		switch tokens[i].Text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel 在括号层级为 0 的逗号处切分，保留各段原始文本
func splitTopLevel(s string) []string {
	var parts []string
	depth, last := 0, 0
	for _, tok := range Tokenize(s) {
		if tok.Kind != TokenPunct {
			continue
		}
		switch tok.Text {
		case "(":
			depth++
		case ")":
			depth--
		case ",":
			if depth == 0 {
				parts = append(parts, s[last:tok.Pos])
				last = tok.Pos + 1
			}
		}
	}
	return append(parts, s[last:])
}

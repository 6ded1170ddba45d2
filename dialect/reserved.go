package dialect

import "strings"

// ReservedWordSet 目标库保留、但源库允许作为标识符的单词，统一小写存储
type ReservedWordSet map[string]struct{}

func NewReservedWordSet(words ...string) ReservedWordSet {
	set := make(ReservedWordSet, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

func (s ReservedWordSet) Contains(word string) bool {
	_, ok := s[strings.ToLower(word)]
	return ok
}

// QuoteReservedWords 把保留字改写为 "word"。
// 字符串、双引号标识符和注释保持原样；反引号包裹的保留字改为双引号。
// GROUP BY 之后直到其所在括号层级结束的区域不做改写。
func QuoteReservedWords(sql string, words ReservedWordSet) string {
	if len(words) == 0 {
		return sql
	}

	tokens := Tokenize(sql)
	var b strings.Builder
	b.Grow(len(sql) + 8)

	depth := 0
	groupDepth := -1
	for i, tok := range tokens {
		switch tok.Kind {
		case TokenPunct:
			switch tok.Text {
			case "(":
				depth++
			case ")":
				if groupDepth == depth {
					groupDepth = -1
				}
				depth--
			case ";":
				groupDepth = -1
			}
		case TokenWord:
			if groupDepth >= 0 {
				break
			}
			if strings.EqualFold(tok.Text, "group") && isWord(tokens, nextSignificant(tokens, i), "by") {
				groupDepth = depth
				break
			}
			if words.Contains(tok.Text) {
				b.WriteString(`"` + strings.ToLower(tok.Text) + `"`)
				continue
			}
		case TokenBacktick:
			if groupDepth < 0 && words.Contains(tok.Unquote()) {
				b.WriteString(`"` + strings.ToLower(tok.Unquote()) + `"`)
				continue
			}
		}
		b.WriteString(tok.Text)
	}
	return b.String()
}

package dialect

import "strings"

type TokenKind int

const (
	TokenWord TokenKind = iota
	TokenSpace
	TokenString   // '...'
	TokenIdent    // "..."
	TokenBacktick // `...`
	TokenComment
	TokenPunct
)

// Token 严格模式下的词法单元，Text 保留原始文本（包括引号）
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
}

// Literal 字符串、引号标识符以及注释都视为字面量，改写时整体跳过
func (t Token) Literal() bool {
	switch t.Kind {
	case TokenString, TokenIdent, TokenBacktick, TokenComment:
		return true
	}
	return false
}

// Unquote 返回引号内的内容，非引号 token 原样返回
func (t Token) Unquote() string {
	switch t.Kind {
	case TokenIdent, TokenBacktick:
		if len(t.Text) >= 2 && t.Text[len(t.Text)-1] == t.Text[0] {
			q := t.Text[:1]
			return strings.ReplaceAll(t.Text[1:len(t.Text)-1], q+q, q)
		}
		return t.Text[1:]
	}
	return t.Text
}

// Tokenize 严格分词：区分引号种类，支持引号双写转义和单引号内的反斜杠转义，识别 --、# 与 /* */ 注释。
// 未闭合的字面量延伸到输入末尾。
func Tokenize(sql string) []Token {
	var tokens []Token
	for i := 0; i < len(sql); {
		start := i
		c := sql[i]
		var kind TokenKind
		switch {
		case isSpace(c):
			kind = TokenSpace
			for i < len(sql) && isSpace(sql[i]) {
				i++
			}
		case c == '\'':
			kind = TokenString
			i = scanQuoted(sql, i, '\'', true)
		case c == '"':
			kind = TokenIdent
			i = scanQuoted(sql, i, '"', false)
		case c == '`':
			kind = TokenBacktick
			i = scanQuoted(sql, i, '`', false)
		case c == '#' || (c == '-' && i+1 < len(sql) && sql[i+1] == '-'):
			kind = TokenComment
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			kind = TokenComment
			if end := strings.Index(sql[i+2:], "*/"); end >= 0 {
				i += end + 4
			} else {
				i = len(sql)
			}
		case isWordByte(c):
			kind = TokenWord
			for i < len(sql) && isWordByte(sql[i]) {
				i++
			}
		default:
			kind = TokenPunct
			i++
		}
		tokens = append(tokens, Token{Kind: kind, Text: sql[start:i], Pos: start})
	}
	return tokens
}

func scanQuoted(sql string, i int, quote byte, backslash bool) int {
	for i++; i < len(sql); i++ {
		switch sql[i] {
		case '\\':
			if backslash {
				i++
			}
		case quote:
			if i+1 < len(sql) && sql[i+1] == quote {
				i++
				continue
			}
			return i + 1
		}
	}
	return len(sql)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

// 非 ASCII 字节按标识符处理
func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// nextSignificant 返回 i 之后第一个非空白、非注释的 token 下标，没有则返回 -1
func nextSignificant(tokens []Token, i int) int {
	for j := i + 1; j < len(tokens); j++ {
		if tokens[j].Kind != TokenSpace && tokens[j].Kind != TokenComment {
			return j
		}
	}
	return -1
}

func isWord(tokens []Token, i int, word string) bool {
	return i >= 0 && i < len(tokens) && tokens[i].Kind == TokenWord && strings.EqualFold(tokens[i].Text, word)
}

package dialect

import "strings"

// SplitStatements 按字面量和注释之外的分号切分脚本，丢弃空语句
func SplitStatements(script string) []string {
	var stmts []string
	last := 0
	for _, tok := range Tokenize(script) {
		if tok.Kind == TokenPunct && tok.Text == ";" {
			stmts = appendStatement(stmts, script[last:tok.Pos])
			last = tok.Pos + 1
		}
	}
	return appendStatement(stmts, script[last:])
}

func appendStatement(stmts []string, stmt string) []string {
	if len(significantTokens(Tokenize(stmt))) == 0 {
		return stmts
	}
	return append(stmts, strings.TrimSpace(stmt))
}

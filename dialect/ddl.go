package dialect

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	reEngineOption        = regexp.MustCompile(`(?i)\s*\bENGINE\s*=\s*\w+`)
	reAutoIncrementOption = regexp.MustCompile(`(?i)\s*\bAUTO_INCREMENT\s*=\s*\d+`)
	reDefaultCharset      = regexp.MustCompile(`(?is)\s*\bDEFAULT\s+(?:CHARSET|CHARACTER\s+SET)\b.*$`)
	reUniqueKey           = regexp.MustCompile(`(?i)\bUNIQUE\s+(?:KEY|INDEX)\s+(\w+)\s*\(`)
	reNullDefault         = regexp.MustCompile(`(?i)((?:\s+NOT)?\s+NULL)(\s+DEFAULT\s+(?:'[^']*'|[^,\s)]+))`)
	reAutoIncrement       = regexp.MustCompile(`(?i)\s*\bAUTO_INCREMENT\b`)
	reKeyList             = regexp.MustCompile(`(?i)\b(?:KEY|INDEX|UNIQUE)\b[^(,]*\(`)
	rePrefixLength        = regexp.MustCompile(`(\w|")\s*\(\s*\d+\s*\)`)
	reNumericList         = regexp.MustCompile(`^\d+(?:\s*,\s*\d+)*$`)
)

// DDLResult DDL 改写结果
type DDLResult struct {
	SQL        string
	Kind       Kind
	Table      string
	Companions []CompanionStatement

	// 被容忍的问题，由调用方记录日志
	Warnings []string
}

// TranslateDDL 把 MySQL 的 CREATE TABLE / ALTER TABLE 改写为 Oracle 语法，步骤顺序固定：
// 去反引号、类型替换、去掉表选项、UNIQUE KEY 改为 CONSTRAINT、调整 NULL DEFAULT 顺序、
// 去掉 AUTO_INCREMENT 并生成序列和触发器、抽取 INDEX 生成 CREATE INDEX。
func TranslateDDL(sql string, d *Dialect) (*DDLResult, error) {
	kind := Classify(sql)
	res := &DDLResult{SQL: sql, Kind: kind}
	if !kind.DDL() {
		return res, nil
	}
	mode := d.ScanMode

	// 反引号去掉之前记录哪些元素以引号标识符开头，`key` 列不能当成索引
	quoted := quotedLeads(sql, kind)
	sql = strings.ReplaceAll(sql, "`", "")

	sql = d.Types.apply(sql, kind, mode)
	sql = d.NumericTypes.apply(sql, kind, mode)

	sql, _ = replaceOutsideLiterals(sql, reDefaultCharset, "", mode)
	sql, _ = replaceOutsideLiterals(sql, reEngineOption, "", mode)
	sql, _ = replaceOutsideLiterals(sql, reAutoIncrementOption, "", mode)

	sql, _ = replaceOutsideLiterals(sql, reUniqueKey, "CONSTRAINT $1 UNIQUE (", mode)
	sql = stripKeyPrefixLengths(sql, mode)

	sql, _ = replaceOutsideLiterals(sql, reNullDefault, "$2$1", mode)

	table, bodyStart, bodyEnd := locateTable(sql, kind)
	res.Table = table
	var elements []string
	if table != "" {
		elements = splitTopLevel(sql[bodyStart:bodyEnd])
	}
	primaryKey := primaryKeyColumn(elements)
	autoColumn := autoIncrementColumn(elements, kind)

	sql, removed := replaceOutsideLiterals(sql, reAutoIncrement, "", mode)
	res.SQL = sql

	if table == "" {
		if !d.TolerateMissingTableName {
			return nil, &RewriteError{Op: "ddl", SQL: sql, Err: ErrMissingTableName}
		}
		res.Warnings = append(res.Warnings, "table name not found, skip companion statements")
		return res, nil
	}

	if removed > 0 {
		if primaryKey == "" {
			primaryKey = autoColumn
		}
		if primaryKey == "" {
			res.Warnings = append(res.Warnings, "auto increment column without primary key, skip sequence")
		} else {
			res.Companions = append(res.Companions, SequenceCompanions(table, primaryKey, d.MaxIdentifierLength)...)
		}
	}

	// 去掉 AUTO_INCREMENT 后位置已变化，重新定位
	_, bodyStart, bodyEnd = locateTable(sql, kind)
	elements = splitTopLevel(sql[bodyStart:bodyEnd])
	kept := make([]string, 0, len(elements))
	var indexes []CompanionStatement
	for i, elem := range elements {
		if i < len(quoted) && quoted[i] {
			kept = append(kept, elem)
			continue
		}
		name, columns, ok := parseIndexClause(elem, kind == KindAlterTable)
		if !ok {
			kept = append(kept, elem)
			continue
		}
		if reNumericList.MatchString(columns) {
			// 如 key VARCHAR(10)，无法区分列定义和索引
			return nil, &RewriteError{Op: "ddl", SQL: sql, Err: errors.WithMessagef(ErrAmbiguousIndex, "[%s]", strings.TrimSpace(elem))}
		}
		suffix := ordinal(len(indexes) + 1)
		if kind == KindAlterTable && name != "" {
			suffix = name
		}
		indexes = append(indexes, IndexCompanion(table, suffix, columns, d.MaxIdentifierLength))
	}

	if len(indexes) > 0 {
		switch {
		case len(kept) > 0:
			res.SQL = sql[:bodyStart] + strings.Join(kept, ",") + sql[bodyEnd:]
		case kind == KindAlterTable:
			// 只有加索引的 ALTER TABLE 直接改为第一条 CREATE INDEX
			res.SQL = indexes[0].SQL
			indexes = indexes[1:]
		default:
			return nil, &RewriteError{Op: "ddl", SQL: sql, Err: ErrEmptyTableBody}
		}
		res.Companions = append(res.Companions, indexes...)
	}

	sort.SliceStable(res.Companions, func(i, j int) bool {
		return res.Companions[i].Rank < res.Companions[j].Rank
	})
	return res, nil
}

// locateTable 返回表名以及列定义（CREATE）或操作列表（ALTER）在 sql 中的范围
func locateTable(sql string, kind Kind) (string, int, int) {
	tokens := significantTokens(Tokenize(sql))
	i := 0
	for i < len(tokens) && !isWord(tokens, i, "table") {
		i++
	}
	i++
	if isWord(tokens, i, "if") {
		i++
		if isWord(tokens, i, "not") {
			i++
		}
		if isWord(tokens, i, "exists") {
			i++
		}
	}
	if i >= len(tokens) || !isName(tokens[i]) {
		return "", 0, 0
	}

	table := tokens[i].Unquote()
	end := tokens[i].Pos + len(tokens[i].Text)
	for i+2 < len(tokens) && tokens[i+1].Text == "." && isName(tokens[i+2]) {
		i += 2
		table += "." + tokens[i].Unquote()
		end = tokens[i].Pos + len(tokens[i].Text)
	}

	if kind == KindAlterTable {
		return table, end, len(sql)
	}
	open := i + 1
	if open >= len(tokens) || tokens[open].Text != "(" {
		return table, end, end
	}
	closeAt := matchParen(tokens, open)
	if closeAt < 0 {
		return table, tokens[open].Pos + 1, len(sql)
	}
	return table, tokens[open].Pos + 1, tokens[closeAt].Pos
}

// stripKeyPrefixLengths 去掉索引列上的前缀长度，如 KEY k (name(10))
func stripKeyPrefixLengths(sql string, mode ScanMode) string {
	mask := LiteralMask(sql, mode)
	var b strings.Builder
	last := 0
	for _, m := range reKeyList.FindAllStringIndex(sql, -1) {
		if m[0] < last || mask[m[0]] {
			continue
		}
		open := m[1] - 1
		tokens := Tokenize(sql[open:])
		closeAt := matchParen(tokens, 0)
		if closeAt < 0 {
			continue
		}
		end := open + tokens[closeAt].Pos
		b.WriteString(sql[last : open+1])
		b.WriteString(rePrefixLength.ReplaceAllString(sql[open+1:end], "$1"))
		last = end
	}
	b.WriteString(sql[last:])
	return b.String()
}

// primaryKeyColumn 返回单列主键的列名，复合主键或没有主键时返回空
func primaryKeyColumn(elements []string) string {
	for _, elem := range elements {
		tokens := significantTokens(Tokenize(elem))
		for j := 0; j+1 < len(tokens); j++ {
			if !isWord(tokens, j, "primary") || !isWord(tokens, j+1, "key") {
				continue
			}
			head := 0
			if isWord(tokens, head, "add") {
				head++
			}
			if isWord(tokens, head, "constraint") {
				head += 2
			}
			if j > head {
				// 列定义中的 PRIMARY KEY
				return tokens[head].Text
			}
			if j+2 >= len(tokens) || tokens[j+2].Text != "(" {
				return ""
			}
			closeAt := matchParen(tokens, j+2)
			if closeAt != j+4 {
				return ""
			}
			return tokens[j+3].Text
		}
	}
	return ""
}

func autoIncrementColumn(elements []string, kind Kind) string {
	for _, elem := range elements {
		tokens := significantTokens(Tokenize(elem))
		for _, tok := range tokens {
			if tok.Kind == TokenWord && strings.EqualFold(tok.Text, "auto_increment") {
				// CHANGE old new 取新列名
				if names := columnNameTokens(tokens, kind); len(names) > 0 {
					return names[len(names)-1].Text
				}
				return ""
			}
		}
	}
	return ""
}

// 出现在元素开头时表示约束或索引而不是列名
var constraintWords = NewReservedWordSet(
	"primary", "unique", "key", "index", "constraint", "fulltext", "spatial", "foreign", "check",
)

// columnNameTokens 返回元素中的列名：建表时是开头的标识符，
// ALTER 时是 ADD/MODIFY [COLUMN] 之后的列名，CHANGE [COLUMN] 之后的旧列名和新列名
func columnNameTokens(tokens []Token, kind Kind) []Token {
	i, n := 0, 1
	if kind == KindAlterTable {
		switch {
		case isWord(tokens, 0, "add"), isWord(tokens, 0, "modify"):
		case isWord(tokens, 0, "change"):
			n = 2
		default:
			return nil
		}
		i = 1
		if isWord(tokens, i, "column") {
			i++
		}
	}
	if i+n > len(tokens) {
		return nil
	}
	for _, tok := range tokens[i : i+n] {
		if !isName(tok) || (tok.Kind == TokenWord && constraintWords.Contains(tok.Text)) {
			return nil
		}
	}
	return tokens[i : i+n]
}

// elementTokens 按括号层级为 0 的逗号切分，返回各元素的有效 token，Pos 相对于 s
func elementTokens(s string) [][]Token {
	var elems [][]Token
	var cur []Token
	depth := 0
	for _, tok := range significantTokens(Tokenize(s)) {
		if tok.Kind == TokenPunct {
			switch tok.Text {
			case "(":
				depth++
			case ")":
				depth--
			case ",":
				if depth == 0 {
					elems = append(elems, cur)
					cur = nil
					continue
				}
			}
		}
		cur = append(cur, tok)
	}
	return append(elems, cur)
}

// quotedLeads 每个元素开头的标识符（ALTER 为 ADD 之后）是否由反引号包裹
func quotedLeads(sql string, kind Kind) []bool {
	table, start, end := locateTable(sql, kind)
	if table == "" {
		return nil
	}
	elems := elementTokens(sql[start:end])
	leads := make([]bool, len(elems))
	for i, tokens := range elems {
		j := 0
		if kind == KindAlterTable && isWord(tokens, 0, "add") {
			j = 1
		}
		leads[i] = j < len(tokens) && tokens[j].Kind == TokenBacktick
	}
	return leads
}

// columnNameMask 在字面量掩码上标记列名，类型替换不改写与类型同名的列
func columnNameMask(sql string, kind Kind, mode ScanMode) []bool {
	mask := LiteralMask(sql, mode)
	if !kind.DDL() {
		return mask
	}
	table, start, end := locateTable(sql, kind)
	if table == "" {
		return mask
	}
	for _, tokens := range elementTokens(sql[start:end]) {
		for _, tok := range columnNameTokens(tokens, kind) {
			for i := start + tok.Pos; i < start+tok.Pos+len(tok.Text); i++ {
				mask[i] = true
			}
		}
	}
	return mask
}

func isName(tok Token) bool {
	return tok.Kind == TokenWord || tok.Kind == TokenIdent || tok.Kind == TokenBacktick
}

// parseIndexClause 识别 [ADD] [FULLTEXT|SPATIAL] INDEX|KEY [name] (cols)
func parseIndexClause(elem string, alter bool) (string, string, bool) {
	tokens := significantTokens(Tokenize(elem))
	i := 0
	if alter {
		if !isWord(tokens, i, "add") {
			return "", "", false
		}
		i++
	}
	prefixed := false
	if isWord(tokens, i, "fulltext") || isWord(tokens, i, "spatial") {
		i++
		prefixed = true
	}
	if isWord(tokens, i, "index") || isWord(tokens, i, "key") {
		i++
	} else if !prefixed {
		return "", "", false
	}

	name := ""
	if i+1 < len(tokens) && (tokens[i].Kind == TokenWord || tokens[i].Kind == TokenIdent) && tokens[i+1].Text == "(" {
		name = tokens[i].Unquote()
		i++
	}
	if i >= len(tokens) || tokens[i].Text != "(" {
		return "", "", false
	}
	closeAt := matchParen(tokens, i)
	if closeAt < 0 {
		return "", "", false
	}
	columns := strings.TrimSpace(elem[tokens[i].Pos+1 : tokens[closeAt].Pos])
	return name, rePrefixLength.ReplaceAllString(columns, "$1"), true
}

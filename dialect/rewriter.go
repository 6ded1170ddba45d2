package dialect

import (
	"regexp"
	"strings"

	"github.com/hatlonely/gora/log"
	"github.com/pkg/errors"
)

// Template 与绑定值无关的改写结果，可缓存复用
type Template struct {
	SQL          string               `msgpack:"sql"`
	Kind         Kind                 `msgpack:"kind"`
	Table        string               `msgpack:"table"`
	Placeholders int                  `msgpack:"placeholders"`
	Companions   []CompanionStatement `msgpack:"companions"`
}

// RewrittenStatement 一次改写的完整结果，Params 的 key 形如 ":p0"
type RewrittenStatement struct {
	SQL        string
	Kind       Kind
	Table      string
	Params     map[string]any
	Companions []CompanionStatement
}

// Names 按占位符顺序返回参数名
func (s *RewrittenStatement) Names() []string {
	names := make([]string, 0, len(s.Params))
	for i := 0; i < len(s.Params); i++ {
		names = append(names, ":"+PlaceholderName(i))
	}
	return names
}

// Bind 绑定位置参数，参数个数必须与占位符个数一致
func (t *Template) Bind(params []any) (*RewrittenStatement, error) {
	if len(params) != t.Placeholders {
		return nil, &RewriteError{
			Op:  "bind",
			SQL: t.SQL,
			Err: errors.WithMessagef(ErrBindCountMismatch, "want %d, got %d", t.Placeholders, len(params)),
		}
	}

	bound := make(map[string]any, len(params))
	for i, p := range params {
		bound[":"+PlaceholderName(i)] = p
	}
	companions := make([]CompanionStatement, len(t.Companions))
	copy(companions, t.Companions)

	return &RewrittenStatement{
		SQL:        t.SQL,
		Kind:       t.Kind,
		Table:      t.Table,
		Params:     bound,
		Companions: companions,
	}, nil
}

// Rewriter 语句改写流水线
type Rewriter struct {
	dialect *Dialect
	logger  log.Logger
}

func NewRewriter(d *Dialect, logger log.Logger) *Rewriter {
	if d == nil {
		d = Oracle()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Rewriter{dialect: d, logger: logger.WithGroup("rewriter")}
}

func (r *Rewriter) Dialect() *Dialect {
	return r.dialect
}

// Rewrite 改写语句并绑定位置参数
func (r *Rewriter) Rewrite(raw string, params ...any) (*RewrittenStatement, error) {
	tpl, err := r.Compile(raw)
	if err != nil {
		return nil, err
	}
	return tpl.Bind(params)
}

// Compile 依次执行：位置参数转换、保留字加引号、按语句类型做 DDL / SHOW TABLES / DML 改写
func (r *Rewriter) Compile(raw string) (*Template, error) {
	sql := trimTerminator(raw)
	sql, n := ConvertPositional(sql, r.dialect.ScanMode)
	kind := Classify(sql)

	tpl := &Template{Kind: kind, Placeholders: n}
	switch {
	case kind == KindShowTables:
		tpl.SQL = translateShowTables(sql)
	case kind.DDL():
		res, err := TranslateDDL(QuoteReservedWords(sql, r.dialect.ReservedWords), r.dialect)
		if err != nil {
			return nil, err
		}
		for _, w := range res.Warnings {
			r.logger.Warn(w, "sql", res.SQL)
		}
		tpl.SQL, tpl.Table, tpl.Companions = res.SQL, res.Table, res.Companions
	default:
		tpl.SQL = strings.ReplaceAll(QuoteReservedWords(sql, r.dialect.ReservedWords), "`", `"`)
	}

	r.logger.Debug("rewrite", "kind", kind, "sql", tpl.SQL, "companions", len(tpl.Companions))
	return tpl, nil
}

var reEndBlock = regexp.MustCompile(`(?i)\bEND\s*;$`)

// trimTerminator 去掉末尾的分号，PL/SQL 块的 END; 保留
func trimTerminator(sql string) string {
	sql = strings.TrimSpace(sql)
	if reEndBlock.MatchString(sql) {
		return sql
	}
	for strings.HasSuffix(sql, ";") {
		sql = strings.TrimSpace(strings.TrimSuffix(sql, ";"))
	}
	return sql
}

const showTablesSQL = "SELECT TABLE_NAME FROM USER_TABLES"

// translateShowTables 把 SHOW TABLES [LIKE 'pattern'] 改写为对 USER_TABLES 的查询
func translateShowTables(sql string) string {
	tokens := significantTokens(Tokenize(sql))
	for i := 0; i+1 < len(tokens); i++ {
		if !isWord(tokens, i, "like") {
			continue
		}
		pattern := tokens[i+1]
		switch {
		case pattern.Kind == TokenString:
			return showTablesSQL + " WHERE REGEXP_LIKE(TABLE_NAME, '" + likeToRegexp(pattern.Text) + "', 'i')"
		case pattern.Text == ":" && i+2 < len(tokens):
			return showTablesSQL + " WHERE TABLE_NAME LIKE UPPER(:" + tokens[i+2].Text + `) ESCAPE '\'`
		}
	}
	return showTablesSQL
}

// likeToRegexp 转换 LIKE 通配符：% -> .*，_ -> .，\x -> x
func likeToRegexp(pattern string) string {
	if len(pattern) >= 2 && pattern[0] == '\'' {
		pattern = strings.ReplaceAll(pattern[1:len(pattern)-1], "''", "'")
	}
	var b strings.Builder
	b.WriteByte('^')
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\' && i+1 < len(pattern):
			i++
			b.WriteString(regexp.QuoteMeta(pattern[i : i+1]))
		case c == '%':
			b.WriteString(".*")
		case c == '_':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(pattern[i : i+1]))
		}
	}
	b.WriteByte('$')
	return strings.ReplaceAll(b.String(), "'", "''")
}

// Passthrough 不做改写的语句，参数按 :pN 命名。用于直连 MySQL 和内部执行的目标库原生语句
func Passthrough(sql string, params []any) *RewrittenStatement {
	bound := make(map[string]any, len(params))
	for i, p := range params {
		bound[":"+PlaceholderName(i)] = p
	}
	return &RewrittenStatement{SQL: sql, Kind: Classify(sql), Params: bound}
}

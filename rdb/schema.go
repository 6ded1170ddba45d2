package rdb

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hatlonely/gora/dialect"
	"github.com/pkg/errors"
)

// TablesInstalled 返回带表前缀的表名，已按策略折叠
func (d *DB) TablesInstalled(ctx context.Context) ([]string, error) {
	pattern := strings.ReplaceAll(d.tablePrefix, "_", `\_`) + "%"
	col, err := d.FetchCol(ctx, "SHOW TABLES LIKE '"+strings.ReplaceAll(pattern, "'", "''")+"'")
	if err != nil {
		return nil, err
	}
	tables := make([]string, 0, len(col))
	for _, v := range col {
		tables = append(tables, toString(v))
	}
	sort.Strings(tables)
	return tables, nil
}

func (d *DB) prefixed(name string) bool {
	return strings.HasPrefix(strings.ToUpper(name), strings.ToUpper(d.tablePrefix))
}

func (d *DB) names(ctx context.Context, query string) ([]string, error) {
	col, err := d.FetchCol(ctx, query)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, v := range col {
		if name := toString(v); d.prefixed(name) {
			names = append(names, name)
		}
	}
	return names, nil
}

// DropAllTriggersAndSequences 删除带表前缀的触发器和序列
func (d *DB) DropAllTriggersAndSequences(ctx context.Context) error {
	triggers, err := d.names(ctx, "SELECT TRIGGER_NAME FROM USER_TRIGGERS")
	if err != nil {
		return err
	}
	for _, name := range triggers {
		if err := d.execNative(ctx, "DROP TRIGGER "+strings.ToUpper(name)); err != nil {
			return err
		}
	}

	sequences, err := d.names(ctx, "SELECT SEQUENCE_NAME FROM USER_SEQUENCES")
	if err != nil {
		return err
	}
	for _, name := range sequences {
		if err := d.execNative(ctx, "DROP SEQUENCE "+strings.ToUpper(name)); err != nil {
			return err
		}
	}
	return nil
}

// DropTables 删除带表前缀的表，doNotDelete 中的表保留。不加引号删除失败时用引号重试，oracle 下最后清空回收站
func (d *DB) DropTables(ctx context.Context, doNotDelete ...string) error {
	tables, err := d.TablesInstalled(ctx)
	if err != nil {
		return err
	}
	keep := map[string]bool{}
	for _, t := range doNotDelete {
		keep[strings.ToLower(t)] = true
	}

	for _, table := range tables {
		if keep[strings.ToLower(table)] {
			continue
		}
		if err := d.execNative(ctx, "DROP TABLE "+table); err != nil {
			d.logger.WarnContext(ctx, "drop table failed, retry quoted", "table", table, "error", err)
			if err := d.execNative(ctx, `DROP TABLE "`+table+`"`); err != nil {
				return err
			}
		}
	}
	if d.driver != "oracle" {
		return nil
	}
	return d.execNative(ctx, "PURGE RECYCLEBIN")
}

// DropDatabase 删除当前前缀下的所有触发器、序列和表
func (d *DB) DropDatabase(ctx context.Context) error {
	if err := d.DropAllTriggersAndSequences(ctx); err != nil {
		return err
	}
	return d.DropTables(ctx)
}

// TruncateAllTables 清空所有表，并把对应序列重置为从 1 开始
func (d *DB) TruncateAllTables(ctx context.Context) error {
	tables, err := d.TablesInstalled(ctx)
	if err != nil {
		return err
	}
	sequences, err := d.names(ctx, "SELECT SEQUENCE_NAME FROM USER_SEQUENCES")
	if err != nil {
		return err
	}
	exists := map[string]bool{}
	for _, s := range sequences {
		exists[strings.ToUpper(s)] = true
	}

	maxLen := d.rewriter.Dialect().MaxIdentifierLength
	for _, table := range tables {
		if err := d.execNative(ctx, "TRUNCATE TABLE "+table); err != nil {
			return err
		}
		seq := dialect.SequenceName(table, maxLen)
		if !exists[seq] {
			continue
		}
		if err := d.resetSequence(ctx, seq); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) resetSequence(ctx context.Context, seq string) error {
	v, err := d.FetchOne(ctx, "SELECT "+seq+".NEXTVAL FROM DUAL")
	if err != nil {
		return err
	}
	n, err := strconv.ParseInt(toString(v), 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid sequence value [%v]", v)
	}
	if n <= 0 {
		return nil
	}
	if err := d.execNative(ctx, fmt.Sprintf("ALTER SEQUENCE %s INCREMENT BY -%d MINVALUE 0", seq, n)); err != nil {
		return err
	}
	if _, err := d.FetchOne(ctx, "SELECT "+seq+".NEXTVAL FROM DUAL"); err != nil {
		return err
	}
	return d.execNative(ctx, fmt.Sprintf("ALTER SEQUENCE %s INCREMENT BY 1", seq))
}

// UniqueConstraints 返回表上主键和唯一约束的列，key 为约束名
func (d *DB) UniqueConstraints(ctx context.Context, table string) (map[string][]string, error) {
	rows, err := d.FetchAll(ctx, `SELECT c.CONSTRAINT_NAME, cc.COLUMN_NAME
FROM USER_CONSTRAINTS c JOIN USER_CONS_COLUMNS cc ON c.CONSTRAINT_NAME = cc.CONSTRAINT_NAME
WHERE c.TABLE_NAME = ? AND c.CONSTRAINT_TYPE IN ('P', 'U')
ORDER BY c.CONSTRAINT_NAME, cc.POSITION`, strings.ToUpper(table))
	if err != nil {
		return nil, err
	}

	constraints := map[string][]string{}
	for _, row := range rows {
		name := dialect.FoldKey(toString(row["constraint_name"]), d.rewriter.Dialect().Folding)
		column := dialect.FoldKey(toString(row["column_name"]), d.rewriter.Dialect().Folding)
		constraints[name] = append(constraints[name], column)
	}
	return constraints, nil
}

// IsConnectionUTF8 数据库字符集是否为 UTF8
func (d *DB) IsConnectionUTF8(ctx context.Context) (bool, error) {
	v, err := d.FetchOne(ctx, "SELECT VALUE FROM NLS_DATABASE_PARAMETERS WHERE PARAMETER = 'NLS_CHARACTERSET'")
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToUpper(toString(v)), "UTF8"), nil
}

func (d *DB) ServerVersion(ctx context.Context) (string, error) {
	v, err := d.FetchOne(ctx, "SELECT VERSION FROM PRODUCT_COMPONENT_VERSION WHERE PRODUCT LIKE 'Oracle%'")
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", errors.New("server version not found")
	}
	return toString(v), nil
}

// CheckServerVersion 服务端版本低于 minVersion 时返回 ErrVersionTooLow
func (d *DB) CheckServerVersion(ctx context.Context, minVersion string) error {
	version, err := d.ServerVersion(ctx)
	if err != nil {
		return err
	}
	if compareVersion(version, minVersion) < 0 {
		return errors.Wrapf(ErrVersionTooLow, "server version %s, require %s", version, minVersion)
	}
	return nil
}

// toString 驱动可能以 []byte 返回字符串列
func toString(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}

func compareVersion(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var x, y int
		if i < len(as) {
			x, _ = strconv.Atoi(strings.TrimSpace(as[i]))
		}
		if i < len(bs) {
			y, _ = strconv.Atoi(strings.TrimSpace(bs[i]))
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}

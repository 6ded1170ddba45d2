package rdb

import (
	"context"
	"database/sql"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/hatlonely/gora/dialect"
	"github.com/hatlonely/gora/kv"
	"github.com/hatlonely/gora/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	go_ora "github.com/sijms/go-ora/v2"
)

type Options struct {
	// 驱动：oracle, sqlite3, mysql。mysql 不做改写直接执行
	Driver string `cfg:"driver" def:"oracle" validate:"oneof=oracle sqlite3 mysql"`

	// 设置后忽略下面的连接参数
	DSN string `cfg:"dsn"`

	Host string `cfg:"host" def:"localhost"`

	// 为 0 时 oracle 使用 1521，mysql 使用 3306
	Port int `cfg:"port"`

	// oracle 服务名，与 SID 二选一
	Service string `cfg:"service"`
	SID     string `cfg:"sid"`

	// sqlite3 的文件路径或 mysql 的库名
	Database string `cfg:"database"`

	Username string `cfg:"username"`
	Password string `cfg:"password"`
	Charset  string `cfg:"charset" def:"utf8mb4"`

	// 表前缀，ORA-00942 重试和 schema 管理使用
	TablePrefix string `cfg:"tablePrefix"`

	MaxConns int `cfg:"maxConns" def:"10"`
	MaxIdle  int `cfg:"maxIdle" def:"5"`

	Dialect  dialect.Options `cfg:"dialect"`
	Executor ExecutorOptions `cfg:"executor"`

	// 改写模板缓存，为空时不缓存
	Cache *kv.StoreOptions `cfg:"cache"`

	// 为空时使用默认 logger
	Logger *log.Options `cfg:"logger"`
}

// DB 面向调用方的入口：改写、执行、结果折叠
type DB struct {
	db          *sql.DB
	driver      string
	tablePrefix string
	rewriter    *dialect.Rewriter
	executor    *Executor
	cache       kv.Store[string, dialect.Template]
	logger      log.Logger
}

// DSN 根据驱动生成连接串
func DSN(options *Options) (string, error) {
	if options.DSN != "" {
		return options.DSN, nil
	}
	switch options.Driver {
	case "oracle":
		port := options.Port
		if port == 0 {
			port = 1521
		}
		urlOptions := map[string]string{}
		if options.SID != "" {
			urlOptions["SID"] = options.SID
		}
		return go_ora.BuildUrl(options.Host, port, options.Service, options.Username, options.Password, urlOptions), nil
	case "sqlite3":
		return options.Database, nil
	case "mysql":
		port := options.Port
		if port == 0 {
			port = 3306
		}
		c := mysql.NewConfig()
		c.User = options.Username
		c.Passwd = options.Password
		c.Net = "tcp"
		c.Addr = net.JoinHostPort(options.Host, strconv.Itoa(port))
		c.DBName = options.Database
		c.ParseTime = true
		c.Params = map[string]string{"charset": options.Charset}
		return c.FormatDSN(), nil
	}
	return "", errors.Wrapf(ErrUnsupportedType, "driver [%s]", options.Driver)
}

func NewDBWithOptions(options *Options) (*DB, error) {
	dsn, err := DSN(options)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(options.Driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sql.Open failed")
	}
	db.SetMaxOpenConns(options.MaxConns)
	db.SetMaxIdleConns(options.MaxIdle)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "db.Ping failed")
	}

	d, err := NewDB(db, options)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

// NewDB 包装已打开的连接池，Close 时一并关闭
func NewDB(db *sql.DB, options *Options) (*DB, error) {
	logger := log.Default()
	if options.Logger != nil {
		l, err := log.NewLoggerWithOptions(options.Logger)
		if err != nil {
			return nil, errors.WithMessage(err, "create logger failed")
		}
		logger = l
	}

	d, err := dialect.NewDialectWithOptions(&options.Dialect)
	if err != nil {
		return nil, err
	}

	executorOptions := options.Executor
	if options.Driver == "mysql" {
		executorOptions.Placeholder = "positional"
	}
	executor, err := NewExecutor(db, d.Folding, &executorOptions, logger)
	if err != nil {
		return nil, err
	}

	var cache kv.Store[string, dialect.Template]
	if options.Cache != nil {
		if cache, err = kv.NewStoreWithOptions[string, dialect.Template](options.Cache); err != nil {
			return nil, errors.WithMessage(err, "create template cache failed")
		}
	}

	return &DB{
		db:          db,
		driver:      options.Driver,
		tablePrefix: options.TablePrefix,
		rewriter:    dialect.NewRewriter(d, logger),
		executor:    executor,
		cache:       cache,
		logger:      logger.WithGroup("db"),
	}, nil
}

func (d *DB) Rewriter() *dialect.Rewriter {
	return d.rewriter
}

func (d *DB) SQLDB() *sql.DB {
	return d.db
}

// Prepare 改写语句并绑定参数，mysql 驱动原样返回
func (d *DB) Prepare(ctx context.Context, raw string, params ...any) (*dialect.RewrittenStatement, error) {
	if d.driver == "mysql" {
		return dialect.Passthrough(raw, params), nil
	}

	tpl, err := d.template(ctx, raw)
	if err != nil {
		return nil, err
	}
	return tpl.Bind(params)
}

func (d *DB) template(ctx context.Context, raw string) (*dialect.Template, error) {
	if d.cache != nil {
		tpl, err := d.cache.Get(ctx, raw)
		if err == nil {
			return &tpl, nil
		}
		if !errors.Is(err, kv.ErrKeyNotFound) {
			d.logger.WarnContext(ctx, "template cache get failed", "error", err)
		}
	}

	tpl, err := d.rewriter.Compile(raw)
	if err != nil {
		return nil, err
	}
	if d.cache != nil {
		if err := d.cache.Set(ctx, raw, *tpl); err != nil {
			d.logger.WarnContext(ctx, "template cache set failed", "error", err)
		}
	}
	return tpl, nil
}

// Execute 改写并执行。表不存在（ORA-00942）时去掉带前缀表名的反引号重试一次
func (d *DB) Execute(ctx context.Context, raw string, params []any, opts ...ExecOption) (*Cursor, error) {
	stmt, err := d.Prepare(ctx, raw, params...)
	if err != nil {
		return nil, err
	}
	cur, err := d.executor.Execute(ctx, stmt, opts...)
	if !tableNotFound(err) || d.tablePrefix == "" {
		return cur, err
	}

	retry := unquotePrefixedTables(raw, d.tablePrefix)
	if retry == raw {
		return nil, err
	}
	d.logger.InfoContext(ctx, "table not found, retry without quotes", "sql", retry)
	if stmt, err = d.Prepare(ctx, retry, params...); err != nil {
		return nil, err
	}
	return d.executor.Execute(ctx, stmt, opts...)
}

// tableNotFound 只有主语句报 ORA-00942 才重试，伴随语句失败时主语句已经执行过
func tableNotFound(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee) && ee.Code == CodeTableNotFound
}

func unquotePrefixedTables(raw, prefix string) string {
	re := regexp.MustCompile("`(" + regexp.QuoteMeta(prefix) + "\\w*)`")
	return re.ReplaceAllString(raw, "$1")
}

func (d *DB) Query(ctx context.Context, raw string, params ...any) (*Cursor, error) {
	return d.Execute(ctx, raw, params)
}

// Exec 执行语句并返回影响行数
func (d *DB) Exec(ctx context.Context, raw string, params ...any) (int64, error) {
	cur, err := d.Execute(ctx, raw, params)
	if err != nil {
		return 0, err
	}
	defer cur.Close()
	return cur.RowCount()
}

// Insert 执行 INSERT 并通过 RETURNING INTO 取回主键
func (d *DB) Insert(ctx context.Context, raw, primaryKey string, params ...any) (int64, error) {
	cur, err := d.Execute(ctx, raw, params, WithReturningID(primaryKey))
	if err != nil {
		return 0, err
	}
	if cur.Absorbed() != "" {
		return 0, ErrNoLastInsertID
	}
	return cur.LastInsertID()
}

func (d *DB) FetchAll(ctx context.Context, raw string, params ...any) ([]map[string]any, error) {
	cur, err := d.Execute(ctx, raw, params)
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	return cur.FetchAll()
}

// FetchRow 返回第一行，没有数据时返回 nil
func (d *DB) FetchRow(ctx context.Context, raw string, params ...any) (map[string]any, error) {
	cur, err := d.Execute(ctx, raw, params)
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	row, err := cur.FetchRow()
	if errors.Is(err, ErrNoMoreRows) {
		return nil, nil
	}
	return row, err
}

// FetchOne 返回第一行第一列，没有数据时返回 nil
func (d *DB) FetchOne(ctx context.Context, raw string, params ...any) (any, error) {
	cur, err := d.Execute(ctx, raw, params)
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	columns := cur.Columns()
	row, err := cur.FetchRow()
	if errors.Is(err, ErrNoMoreRows) || len(columns) == 0 {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row[columns[0]], nil
}

func (d *DB) FetchCol(ctx context.Context, raw string, params ...any) ([]any, error) {
	cur, err := d.Execute(ctx, raw, params)
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	return cur.FetchCol()
}

// execNative 执行目标库原生语句，不经过改写
func (d *DB) execNative(ctx context.Context, query string, opts ...ExecOption) error {
	cur, err := d.executor.Execute(ctx, dialect.Passthrough(query, nil), opts...)
	if err != nil {
		return err
	}
	return cur.Close()
}

func (d *DB) Close() error {
	var errs []string
	if d.cache != nil {
		if err := d.cache.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := d.db.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return errors.Errorf("close db failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

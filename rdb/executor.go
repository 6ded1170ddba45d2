package rdb

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/hatlonely/gora/dialect"
	"github.com/hatlonely/gora/log"
	"github.com/hatlonely/gora/uid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Conn 执行语句的数据库句柄，*sql.DB、*sql.Conn、*sql.Tx 均满足
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// TxBeginner 支持事务的句柄
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

const (
	CompanionModeSerial = "serial"
	CompanionModeTx     = "tx"
)

type ExecutorOptions struct {
	// 伴随语句执行方式：serial 主语句成功后逐条执行；tx 与主语句在同一事务中执行。
	// Oracle 的 DDL 会隐式提交，tx 模式只对支持事务性 DDL 的库有效
	CompanionMode string `cfg:"companionMode" def:"serial" validate:"omitempty,oneof=serial tx"`

	// 为 true 时不吸收 ORA-00001 / ORA-01451
	DisableAbsorb bool `cfg:"disableAbsorb"`

	// 所有语句都忽略的错误码，如 ORA-01430
	IgnoredCodes []string `cfg:"ignoredCodes"`

	// 参数绑定方式：named 使用 sql.Named，positional 按顺序绑定
	Placeholder string `cfg:"placeholder" def:"named" validate:"omitempty,oneof=named positional"`

	EnableMetrics bool `cfg:"enableMetrics"`
	EnableTracing bool `cfg:"enableTracing"`

	// 指标名前缀和 tracer 名
	Name string `cfg:"name" def:"gora"`

	// 每次执行的 run_id，出现在日志和 span 属性中
	RunID uid.UUIDOptions `cfg:"runID"`
}

type execOptions struct {
	ignored   []string
	returning string
}

type ExecOption func(*execOptions)

// WithIgnoredCodes 本次执行额外忽略的错误码，升级脚本中使用
func WithIgnoredCodes(codes ...string) ExecOption {
	return func(o *execOptions) {
		o.ignored = append(o.ignored, codes...)
	}
}

// WithReturningID INSERT 语句追加 RETURNING column INTO :primary 取回主键
func WithReturningID(column string) ExecOption {
	return func(o *execOptions) {
		o.returning = column
	}
}

// Executor 执行改写后的语句及其伴随语句
type Executor struct {
	conn    Conn
	folding dialect.CaseFoldingPolicy
	options ExecutorOptions
	logger  log.Logger
	metrics *executorMetrics
	tracer  trace.Tracer
	runIDs  uid.Generator
}

func NewExecutor(conn Conn, folding dialect.CaseFoldingPolicy, options *ExecutorOptions, logger log.Logger) (*Executor, error) {
	var opts ExecutorOptions
	if options != nil {
		opts = *options
	}
	if opts.Name == "" {
		opts.Name = "gora"
	}
	if logger == nil {
		logger = log.Default()
	}

	runIDs, err := uid.NewUUIDGeneratorWithOptions(&opts.RunID)
	if err != nil {
		return nil, err
	}

	e := &Executor{
		conn:    conn,
		folding: folding,
		options: opts,
		logger:  logger.WithGroup("executor"),
		runIDs:  runIDs,
	}
	if opts.EnableMetrics {
		metrics, err := newExecutorMetrics(opts.Name, prometheus.DefaultRegisterer)
		if err != nil {
			return nil, err
		}
		e.metrics = metrics
	}
	if opts.EnableTracing {
		e.tracer = otel.Tracer(opts.Name + ".rdb")
	}
	return e, nil
}

// Execute 执行主语句，成功后按次序执行伴随语句。
// 主语句失败时不执行伴随语句；白名单内的错误被吸收，返回 Absorbed() 非空的游标。
func (e *Executor) Execute(ctx context.Context, stmt *dialect.RewrittenStatement, opts ...ExecOption) (cur *Cursor, err error) {
	o := &execOptions{}
	for _, opt := range opts {
		opt(o)
	}

	runID := e.runIDs.Generate()
	start := time.Now()
	var span trace.Span
	if e.tracer != nil {
		ctx, span = e.tracer.Start(ctx, "rdb.execute", trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.String("kind", string(stmt.Kind)),
			attribute.Int("companions", len(stmt.Companions)),
		))
		defer span.End()
	}
	defer func() {
		if span != nil {
			if err != nil {
				span.SetStatus(codes.Error, err.Error())
				span.RecordError(err)
			} else {
				span.SetStatus(codes.Ok, "")
			}
		}
		if e.metrics != nil {
			e.metrics.statements.WithLabelValues(string(stmt.Kind), status(err)).Inc()
			e.metrics.duration.WithLabelValues(string(stmt.Kind)).Observe(time.Since(start).Seconds())
		}
	}()

	logger := e.logger.With("run_id", runID)
	if e.options.CompanionMode == CompanionModeTx && len(stmt.Companions) > 0 {
		if beginner, ok := e.conn.(TxBeginner); ok {
			return e.executeTx(ctx, beginner, stmt, o, logger)
		}
		logger.WarnContext(ctx, "connection does not support transactions, execute companions serially")
	}
	return e.execute(ctx, e.conn, stmt, o, logger)
}

func (e *Executor) executeTx(ctx context.Context, beginner TxBeginner, stmt *dialect.RewrittenStatement, o *execOptions, logger log.Logger) (cur *Cursor, err error) {
	tx, err := beginner.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin transaction failed")
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	cur, err = e.execute(ctx, tx, stmt, o, logger)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.ErrorContext(ctx, "rollback failed", "error", rbErr)
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit transaction failed")
	}
	return cur, nil
}

func (e *Executor) execute(ctx context.Context, conn Conn, stmt *dialect.RewrittenStatement, o *execOptions, logger log.Logger) (*Cursor, error) {
	cur, err := e.executePrimary(ctx, conn, stmt, o)
	if err != nil {
		code := ErrorCode(err)
		if e.absorbable(stmt.Kind, code, o) {
			logger.WarnContext(ctx, "absorb database error", "kind", stmt.Kind, "code", code, "sql", stmt.SQL, "error", err)
			if e.metrics != nil {
				e.metrics.absorbed.WithLabelValues(string(stmt.Kind), code).Inc()
			}
			return &Cursor{folding: e.folding, absorbed: code}, nil
		}
		return nil, err
	}

	companions := make([]dialect.CompanionStatement, len(stmt.Companions))
	copy(companions, stmt.Companions)
	sort.SliceStable(companions, func(i, j int) bool {
		return companions[i].Rank < companions[j].Rank
	})
	for _, c := range companions {
		_, err := conn.ExecContext(ctx, c.SQL)
		if e.metrics != nil {
			e.metrics.companions.WithLabelValues(string(c.Tag), status(err)).Inc()
		}
		if err != nil {
			_ = cur.Close()
			logger.ErrorContext(ctx, "companion statement failed", "tag", c.Tag, "sql", c.SQL, "error", err)
			return nil, &CompanionExecutionError{Tag: c.Tag, SQL: c.SQL, Primary: stmt.SQL, Code: ErrorCode(err), Err: err}
		}
		logger.DebugContext(ctx, "companion statement executed", "tag", c.Tag, "sql", c.SQL)
	}
	return cur, nil
}

func (e *Executor) executePrimary(ctx context.Context, conn Conn, stmt *dialect.RewrittenStatement, o *execOptions) (*Cursor, error) {
	query := stmt.SQL
	args := bindArgs(stmt, e.options.Placeholder == "positional")

	if stmt.Kind.Rows() {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, newExecutionError(query, err)
		}
		return newRowsCursor(rows, e.folding)
	}

	var returned *int64
	if o.returning != "" && stmt.Kind == dialect.KindInsert {
		returned = new(int64)
		query += " RETURNING " + o.returning + " INTO :primary"
		args = append(args, sql.Named("primary", sql.Out{Dest: returned}))
	}
	res, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, newExecutionError(query, err)
	}
	cur := newResultCursor(res, e.folding)
	cur.returned = returned
	return cur, nil
}

// absorbable ORA-00001 只对 INSERT 吸收，ORA-01451 只对 ALTER TABLE 吸收
func (e *Executor) absorbable(kind dialect.Kind, code string, o *execOptions) bool {
	if code == "" {
		return false
	}
	if !e.options.DisableAbsorb {
		switch {
		case code == CodeUniqueViolation && kind == dialect.KindInsert:
			return true
		case code == CodeAlreadyNullable && kind == dialect.KindAlterTable:
			return true
		}
	}
	for _, c := range e.options.IgnoredCodes {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	for _, c := range o.ignored {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

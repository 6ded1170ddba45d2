// Command gora 把 MySQL 方言的 SQL 脚本改写为 Oracle 方言，或直接在目标库上执行。
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/hatlonely/gora/cfg"
	"github.com/hatlonely/gora/dialect"
	"github.com/hatlonely/gora/log"
	"github.com/hatlonely/gora/rdb"
	"github.com/pkg/errors"
)

var version = "dev"

// Config 配置文件结构
type Config struct {
	DB     rdb.Options `cfg:"db"`
	Logger log.Options `cfg:"logger"`
}

var CLI struct {
	Config string `name:"config" short:"c" help:"配置文件，支持 yaml/json/toml/ini" type:"path"`

	Rewrite RewriteCmd `cmd:"" help:"改写 SQL 脚本并输出"`
	Exec    ExecCmd    `cmd:"" help:"改写并在目标库上执行 SQL 脚本"`
	Watch   WatchCmd   `cmd:"" help:"监听 SQL 脚本，变化时重新改写"`
	Version VersionCmd `cmd:"" help:"输出版本号"`
}

// loadConfig 没有指定配置文件时使用默认值
func loadConfig(filename string) (*Config, error) {
	config := &Config{}
	if filename == "" {
		if err := cfg.SetDefaults(config); err != nil {
			return nil, err
		}
		return config, nil
	}
	if err := cfg.Load(filename, config); err != nil {
		return nil, err
	}
	return config, nil
}

func newRewriter(config *Config, logger log.Logger) (*dialect.Rewriter, error) {
	d, err := dialect.NewDialectWithOptions(&config.DB.Dialect)
	if err != nil {
		return nil, err
	}
	return dialect.NewRewriter(d, logger), nil
}

func newLogger(config *Config) (*log.SLog, error) {
	if config.Logger.Output == "" || config.Logger.Output == "stdout" {
		// stdout 留给改写结果
		config.Logger.Output = "stderr"
	}
	return log.NewLoggerWithOptions(&config.Logger)
}

func readScript(path string) (string, error) {
	if path == "" || path == "-" {
		buf, err := io.ReadAll(os.Stdin)
		return string(buf), errors.Wrap(err, "read stdin failed")
	}
	buf, err := os.ReadFile(path)
	return string(buf), errors.Wrapf(err, "read [%s] failed", path)
}

// rewriteScript 逐条改写脚本，伴随语句紧跟在主语句之后输出
func rewriteScript(r *dialect.Rewriter, script string, w io.Writer) error {
	for _, raw := range dialect.SplitStatements(script) {
		tpl, err := r.Compile(raw)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, terminate(tpl.SQL)); err != nil {
			return errors.Wrap(err, "write failed")
		}
		for _, c := range tpl.Companions {
			if _, err := fmt.Fprintln(w, terminate(c.SQL)); err != nil {
				return errors.Wrap(err, "write failed")
			}
		}
	}
	return nil
}

// terminate PL/SQL 块按 sqlplus 的习惯以 / 结束
func terminate(sql string) string {
	if strings.HasSuffix(sql, "END;") {
		return sql + "\n/"
	}
	return sql + ";"
}

type RewriteCmd struct {
	File string `arg:"" optional:"" help:"SQL 脚本，为空或 - 时读取标准输入"`
}

func (c *RewriteCmd) Run() error {
	config, err := loadConfig(CLI.Config)
	if err != nil {
		return err
	}
	logger, err := newLogger(config)
	if err != nil {
		return err
	}
	defer logger.Close()

	r, err := newRewriter(config, logger)
	if err != nil {
		return err
	}
	script, err := readScript(c.File)
	if err != nil {
		return err
	}
	return rewriteScript(r, script, os.Stdout)
}

type ExecCmd struct {
	File   string   `arg:"" help:"SQL 脚本" type:"existingfile"`
	Ignore []string `name:"ignore" help:"忽略的错误码，如 ORA-01430"`
}

func (c *ExecCmd) Run() error {
	if CLI.Config == "" {
		return errors.New("exec requires --config")
	}
	config, err := loadConfig(CLI.Config)
	if err != nil {
		return err
	}
	logger, err := newLogger(config)
	if err != nil {
		return err
	}
	defer logger.Close()
	if config.DB.Logger == nil {
		config.DB.Logger = &config.Logger
	}

	db, err := rdb.NewDBWithOptions(&config.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	script, err := readScript(c.File)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return execScript(ctx, db, script, c.Ignore, os.Stdout, logger)
}

// execScript 逐条执行，遇到错误立即停止；查询语句输出结果行
func execScript(ctx context.Context, db *rdb.DB, script string, ignore []string, w io.Writer, logger log.Logger) error {
	for i, raw := range dialect.SplitStatements(script) {
		cur, err := db.Execute(ctx, raw, nil, rdb.WithIgnoredCodes(ignore...))
		if err != nil {
			return errors.WithMessagef(err, "statement %d", i+1)
		}
		if code := cur.Absorbed(); code != "" {
			logger.Warn("statement absorbed", "index", i+1, "code", code)
			continue
		}

		rows, err := cur.FetchAll()
		if err != nil {
			_ = cur.Close()
			return err
		}
		for _, row := range rows {
			fmt.Fprintln(w, formatRow(row))
		}
		n, _ := cur.RowCount()
		_ = cur.Close()
		logger.Info("statement executed", "index", i+1, "rows", n)
	}
	return nil
}

func formatRow(row map[string]any) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		v := row[k]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		fields = append(fields, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(fields, "\t")
}

type WatchCmd struct {
	File string `arg:"" help:"SQL 脚本" type:"existingfile"`
}

func (c *WatchCmd) Run() error {
	config, err := loadConfig(CLI.Config)
	if err != nil {
		return err
	}
	logger, err := newLogger(config)
	if err != nil {
		return err
	}
	defer logger.Close()

	r, err := newRewriter(config, logger)
	if err != nil {
		return err
	}

	render := func() {
		script, err := readScript(c.File)
		if err != nil {
			logger.Error("read script failed", "error", err)
			return
		}
		fmt.Fprintf(os.Stdout, "-- %s\n", c.File)
		if err := rewriteScript(r, script, os.Stdout); err != nil {
			logger.Error("rewrite failed", "error", err)
		}
	}
	render()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return cfg.Watch(ctx, c.File, render)
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println("gora", version)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("gora"),
		kong.Description("MySQL -> Oracle SQL rewriter"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	ctx.FatalIfErrorf(ctx.Run())
}

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hatlonely/gora/dialect"
	"github.com/hatlonely/gora/log"
	"github.com/hatlonely/gora/rdb"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRewriteScript(t *testing.T) {
	Convey("测试 rewriteScript", t, func() {
		r := dialect.NewRewriter(dialect.Oracle(), log.Discard())
		var buf bytes.Buffer

		err := rewriteScript(r, "CREATE TABLE `x` (`id` INT AUTO_INCREMENT, PRIMARY KEY(`id`));\nSELECT `access` FROM x WHERE id = ?;", &buf)
		So(err, ShouldBeNil)
		So(buf.String(), ShouldEqual, "CREATE TABLE x (id NUMBER(11,0), PRIMARY KEY(id));\n"+
			"CREATE SEQUENCE X_SEQ INCREMENT BY 1 START WITH 1 NOCACHE;\n"+
			"CREATE OR REPLACE TRIGGER X_TRG BEFORE INSERT ON X FOR EACH ROW BEGIN SELECT X_SEQ.NEXTVAL INTO :NEW.id FROM DUAL; END;\n/\n"+
			"SELECT \"access\" FROM x WHERE id = :p0;\n")

		Convey("改写失败时返回错误", func() {
			So(rewriteScript(r, "CREATE TABLE (id INT);", &bytes.Buffer{}), ShouldNotBeNil)
		})
	})
}

func TestLoadConfig(t *testing.T) {
	Convey("测试 loadConfig", t, func() {
		config, err := loadConfig("")
		So(err, ShouldBeNil)
		So(config.DB.Driver, ShouldEqual, "oracle")
		So(config.DB.Dialect.ScanMode, ShouldEqual, "legacy")
		So(config.Logger.Level, ShouldEqual, "info")

		path := filepath.Join(t.TempDir(), "gora.yaml")
		So(os.WriteFile(path, []byte(`
db:
  driver: sqlite3
  database: ":memory:"
  maxConns: 1
  dialect:
    reservedWords: [access, group, level]
  executor:
    ignoredCodes: [ORA-01430]
logger:
  level: debug
  output: discard
`), 0644), ShouldBeNil)
		config, err = loadConfig(path)
		So(err, ShouldBeNil)
		So(config.DB.Driver, ShouldEqual, "sqlite3")
		So(config.DB.MaxConns, ShouldEqual, 1)
		So(config.DB.Dialect.ReservedWords, ShouldResemble, []string{"access", "group", "level"})
		So(config.DB.Executor.IgnoredCodes, ShouldResemble, []string{"ORA-01430"})
		So(config.DB.Executor.CompanionMode, ShouldEqual, "serial")
		So(config.Logger.Output, ShouldEqual, "discard")

		r, err := newRewriter(config, log.Discard())
		So(err, ShouldBeNil)
		So(r.Dialect().ReservedWords.Contains("level"), ShouldBeTrue)
	})
}

func TestExecScript(t *testing.T) {
	Convey("测试 execScript", t, func() {
		db, err := rdb.NewDBWithOptions(&rdb.Options{
			Driver:   "sqlite3",
			Database: ":memory:",
			MaxConns: 1,
			Logger:   &log.Options{Output: "discard"},
		})
		So(err, ShouldBeNil)
		defer db.Close()

		var buf bytes.Buffer
		err = execScript(context.Background(), db, `
CREATE TABLE piwik_site (idsite INTEGER, name VARCHAR(90));
INSERT INTO piwik_site (idsite, name) VALUES (1, 'demo');
SELECT idsite, name FROM piwik_site;
`, nil, &buf, log.Discard())
		So(err, ShouldBeNil)
		So(buf.String(), ShouldEqual, "idsite=1\tname=demo\n")

		err = execScript(context.Background(), db, "SELECT * FROM piwik_missing;", nil, &buf, log.Discard())
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "statement 1")
	})
}

func TestFormatRow(t *testing.T) {
	Convey("测试 formatRow", t, func() {
		So(formatRow(map[string]any{"b": []byte("x"), "a": 1, "c": nil}), ShouldEqual, "a=1\tb=x\tc=<nil>")
	})
}

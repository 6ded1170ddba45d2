package dialect

import (
	"testing"

	"github.com/hatlonely/gora/log"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/vmihailenco/msgpack/v5"
)

func TestRewriter(t *testing.T) {
	Convey("测试 Rewriter", t, func() {
		r := NewRewriter(Oracle(), log.Discard())

		Convey("位置参数改为命名参数", func() {
			stmt, err := r.Rewrite("SELECT * FROM t WHERE a = ? AND b = ?", 1, "x")
			So(err, ShouldBeNil)
			So(stmt.SQL, ShouldEqual, "SELECT * FROM t WHERE a = :p0 AND b = :p1")
			So(stmt.Kind, ShouldEqual, KindSelect)
			So(stmt.Params, ShouldResemble, map[string]any{":p0": 1, ":p1": "x"})
			So(stmt.Names(), ShouldResemble, []string{":p0", ":p1"})
		})

		Convey("参数个数不一致", func() {
			_, err := r.Rewrite("SELECT * FROM t WHERE a = ? AND b = ?", 1)
			So(errors.Is(err, ErrBindCountMismatch), ShouldBeTrue)

			var rerr *RewriteError
			So(errors.As(err, &rerr), ShouldBeTrue)
			So(rerr.Op, ShouldEqual, "bind")
		})

		Convey("反引号和保留字", func() {
			stmt, err := r.Rewrite("SELECT `idsite`, `access` FROM `piwik_access` WHERE `login` = ?", "anonymous")
			So(err, ShouldBeNil)
			So(stmt.SQL, ShouldEqual, `SELECT "idsite", "access" FROM "piwik_access" WHERE "login" = :p0`)

			stmt, err = r.Rewrite("SELECT `group`, COUNT(*) FROM t GROUP BY `group`")
			So(err, ShouldBeNil)
			So(stmt.SQL, ShouldEqual, `SELECT "group", COUNT(*) FROM t GROUP BY "group"`)
		})

		Convey("去掉末尾分号", func() {
			stmt, err := r.Rewrite("DELETE FROM t WHERE id = ?; ", 3)
			So(err, ShouldBeNil)
			So(stmt.SQL, ShouldEqual, "DELETE FROM t WHERE id = :p0")
			So(stmt.Kind, ShouldEqual, KindDelete)
		})

		Convey("PL/SQL 块保留 END;", func() {
			sql := "CREATE OR REPLACE TRIGGER X_TRG BEFORE INSERT ON X FOR EACH ROW BEGIN SELECT X_SEQ.NEXTVAL INTO :NEW.id FROM DUAL; END;"
			stmt, err := r.Rewrite(sql)
			So(err, ShouldBeNil)
			So(stmt.SQL, ShouldEqual, sql)
			So(stmt.Kind, ShouldEqual, KindOther)
		})

		Convey("SHOW TABLES", func() {
			stmt, err := r.Rewrite("SHOW TABLES")
			So(err, ShouldBeNil)
			So(stmt.Kind, ShouldEqual, KindShowTables)
			So(stmt.SQL, ShouldEqual, "SELECT TABLE_NAME FROM USER_TABLES")

			stmt, err = r.Rewrite(`SHOW TABLES LIKE 'piwik\_%'`)
			So(err, ShouldBeNil)
			So(stmt.SQL, ShouldEqual, "SELECT TABLE_NAME FROM USER_TABLES WHERE REGEXP_LIKE(TABLE_NAME, '^piwik_.*$', 'i')")

			stmt, err = r.Rewrite("SHOW TABLES LIKE ?", "piwik_%")
			So(err, ShouldBeNil)
			So(stmt.SQL, ShouldEqual, `SELECT TABLE_NAME FROM USER_TABLES WHERE TABLE_NAME LIKE UPPER(:p0) ESCAPE '\'`)
			So(stmt.Params, ShouldResemble, map[string]any{":p0": "piwik_%"})
		})

		Convey("建表语句带伴随语句", func() {
			stmt, err := r.Rewrite("CREATE TABLE `x` (`id` INT AUTO_INCREMENT, `access` VARCHAR(10), PRIMARY KEY(`id`), KEY (`access`));")
			So(err, ShouldBeNil)
			So(stmt.Kind, ShouldEqual, KindCreateTable)
			So(stmt.Table, ShouldEqual, "x")
			So(stmt.SQL, ShouldEqual, `CREATE TABLE x (id NUMBER(11,0), "access" VARCHAR2(10), PRIMARY KEY(id))`)
			So(len(stmt.Companions), ShouldEqual, 3)
			So(stmt.Companions[0].Tag, ShouldEqual, CompanionSequence)
			So(stmt.Companions[1].Tag, ShouldEqual, CompanionTrigger)
			So(stmt.Companions[2].SQL, ShouldEqual, `CREATE INDEX x_1 ON x ("access")`)
		})

		Convey("Template 可以序列化后复用", func() {
			tpl, err := r.Compile("UPDATE t SET v = ? WHERE id = ?")
			So(err, ShouldBeNil)
			So(tpl.Placeholders, ShouldEqual, 2)

			buf, err := msgpack.Marshal(tpl)
			So(err, ShouldBeNil)
			var decoded Template
			So(msgpack.Unmarshal(buf, &decoded), ShouldBeNil)
			So(&decoded, ShouldResemble, tpl)

			stmt, err := decoded.Bind([]any{"a", 1})
			So(err, ShouldBeNil)
			So(stmt.SQL, ShouldEqual, "UPDATE t SET v = :p0 WHERE id = :p1")
			So(stmt.Kind, ShouldEqual, KindUpdate)
		})
	})
}

func TestLikeToRegexp(t *testing.T) {
	Convey("测试 likeToRegexp", t, func() {
		So(likeToRegexp("'piwik_%'"), ShouldEqual, "^piwik..*$")
		So(likeToRegexp(`'a\%b'`), ShouldEqual, "^a%b$")
		So(likeToRegexp("'a.b'"), ShouldEqual, `^a\.b$`)
		So(likeToRegexp("'it''s'"), ShouldEqual, "^it''s$")
	})
}

func TestPassthrough(t *testing.T) {
	Convey("测试 Passthrough", t, func() {
		stmt := Passthrough("SELECT ? FROM DUAL", []any{1})
		So(stmt.SQL, ShouldEqual, "SELECT ? FROM DUAL")
		So(stmt.Kind, ShouldEqual, KindSelect)
		So(stmt.Params, ShouldResemble, map[string]any{":p0": 1})
	})
}

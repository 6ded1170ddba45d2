package dialect

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGuardIdentifier(t *testing.T) {
	Convey("测试 GuardIdentifier", t, func() {
		Convey("未超长时原样返回", func() {
			So(GuardIdentifier("PIWIK_LOG_SEQ", 30), ShouldEqual, "PIWIK_LOG_SEQ")
			So(GuardIdentifier(strings.Repeat("A", 40), 0), ShouldEqual, strings.Repeat("A", 40))
		})

		Convey("35 字符的表名加 _SEQ", func() {
			base := "PIWIK_" + strings.Repeat("X", 29)
			So(len(base), ShouldEqual, 35)

			name := GuardIdentifier(base+"_SEQ", 30)
			So(len(name), ShouldBeLessThanOrEqualTo, 30)
			So(name, ShouldEndWith, "_SEQ")
			So(name, ShouldStartWith, "PIWIK_")
			So(GuardIdentifier(base+"_SEQ", 30), ShouldEqual, name)
		})

		Convey("从第一个下划线之后删除", func() {
			So(GuardIdentifier("piwik_archive_numeric_2010_01_1", 30), ShouldEqual, "piwik_rchive_numeric_2010_01_1")
		})

		Convey("中间部分不够删时截断前缀", func() {
			name := GuardIdentifier(strings.Repeat("A", 35)+"_SEQ", 30)
			So(name, ShouldEqual, strings.Repeat("A", 26)+"_SEQ")
		})

		Convey("没有下划线", func() {
			So(GuardIdentifier(strings.Repeat("A", 35), 30), ShouldEqual, strings.Repeat("A", 30))
		})
	})
}

func TestFoldRow(t *testing.T) {
	Convey("测试 FoldRow", t, func() {
		row := map[string]any{"NAME": "x", "Id": 1, "ID_SITE": 2, "idvisit": 3}

		Convey("natural 只折叠全大写的列名", func() {
			So(FoldRow(row, FoldNatural), ShouldResemble, map[string]any{"name": "x", "Id": 1, "id_site": 2, "idvisit": 3})
			So(row, ShouldContainKey, "NAME")
		})

		Convey("none 不折叠", func() {
			So(FoldRow(row, FoldNone), ShouldResemble, row)
		})

		Convey("多行", func() {
			rows := FoldRows([]map[string]any{{"NAME": "a"}, {"Name": "b"}}, FoldNatural)
			So(rows, ShouldResemble, []map[string]any{{"name": "a"}, {"Name": "b"}})
		})

		Convey("混合大小写的列名保持不变", func() {
			So(FoldRow(map[string]any{"NAME": "x", "Id": 1}, FoldNatural), ShouldResemble, map[string]any{"name": "x", "Id": 1})
		})
	})
}

package log

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewLoggerWithOptions(t *testing.T) {
	Convey("测试 NewLoggerWithOptions", t, func() {
		Convey("默认选项", func() {
			l, err := NewLoggerWithOptions(nil)
			So(err, ShouldBeNil)
			So(l, ShouldNotBeNil)
		})

		Convey("非法级别", func() {
			_, err := NewLoggerWithOptions(&Options{Level: "trace"})
			So(err, ShouldNotBeNil)
		})

		Convey("非法格式", func() {
			_, err := NewLoggerWithOptions(&Options{Format: "xml", Output: "discard"})
			So(err, ShouldNotBeNil)
		})

		Convey("json 输出到文件", func() {
			path := filepath.Join(t.TempDir(), "logs", "gora.log")
			l, err := NewLoggerWithOptions(&Options{
				Level:  "debug",
				Format: "json",
				Output: path,
				Fields: map[string]any{"app": "gora"},
			})
			So(err, ShouldBeNil)

			l.WithGroup("executor").With("kind", "insert").Warn("absorbed", "code", "ORA-00001")
			l.Debug("rewrite")
			So(l.Close(), ShouldBeNil)

			buf, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(buf), ShouldContainSubstring, `"app":"gora"`)
			So(string(buf), ShouldContainSubstring, `"executor":{"kind":"insert","code":"ORA-00001"}`)
			So(string(buf), ShouldContainSubstring, `"msg":"rewrite"`)
		})

		Convey("级别过滤", func() {
			path := filepath.Join(t.TempDir(), "gora.log")
			l, err := NewLoggerWithOptions(&Options{Level: "warn", Output: path})
			So(err, ShouldBeNil)
			l.Info("hidden")
			l.Error("shown")
			So(l.Close(), ShouldBeNil)

			buf, _ := os.ReadFile(path)
			So(string(buf), ShouldNotContainSubstring, "hidden")
			So(string(buf), ShouldContainSubstring, "shown")
		})
	})
}

func TestDefault(t *testing.T) {
	Convey("测试默认 logger", t, func() {
		old := Default()
		defer SetDefault(old)

		l := Discard()
		SetDefault(l)
		So(Default(), ShouldEqual, l)
	})
}

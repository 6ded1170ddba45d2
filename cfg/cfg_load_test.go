package cfg

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type testExecutorOptions struct {
	CompanionMode string        `cfg:"companionMode" def:"serial" validate:"oneof=serial tx"`
	IgnoredCodes  []string      `cfg:"ignoredCodes"`
	Timeout       time.Duration `cfg:"timeout" def:"3s"`
}

type testConfig struct {
	Driver   string               `cfg:"driver" def:"oracle" validate:"oneof=oracle sqlite3 mysql"`
	Port     int                  `cfg:"port" def:"1521"`
	Absorb   bool                 `cfg:"absorb" def:"true"`
	Executor testExecutorOptions  `cfg:"executor"`
	Cache    *testExecutorOptions `cfg:"cache"`
	Fields   map[string]any       `cfg:"fields"`
}

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	Convey("测试 Load", t, func() {
		Convey("yaml", func() {
			path := writeFile(t, "gora.yaml", `
driver: sqlite3
port: 3306
executor:
  companionMode: tx
  ignoredCodes: [ORA-01430, ORA-01091]
  timeout: 500ms
fields:
  app: gora
`)
			var c testConfig
			So(Load(path, &c), ShouldBeNil)
			So(c.Driver, ShouldEqual, "sqlite3")
			So(c.Port, ShouldEqual, 3306)
			So(c.Absorb, ShouldBeTrue)
			So(c.Executor.CompanionMode, ShouldEqual, "tx")
			So(c.Executor.IgnoredCodes, ShouldResemble, []string{"ORA-01430", "ORA-01091"})
			So(c.Executor.Timeout, ShouldEqual, 500*time.Millisecond)
			So(c.Fields["app"], ShouldEqual, "gora")
			So(c.Cache, ShouldBeNil)
		})

		Convey("json 使用默认值", func() {
			path := writeFile(t, "gora.json", `{"executor": {}, "cache": {"companionMode": "tx"}}`)
			var c testConfig
			So(Load(path, &c), ShouldBeNil)
			So(c.Driver, ShouldEqual, "oracle")
			So(c.Port, ShouldEqual, 1521)
			So(c.Executor.CompanionMode, ShouldEqual, "serial")
			So(c.Executor.Timeout, ShouldEqual, 3*time.Second)
			So(c.Cache.CompanionMode, ShouldEqual, "tx")
			So(c.Cache.Timeout, ShouldEqual, 3*time.Second)
		})

		Convey("toml", func() {
			path := writeFile(t, "gora.toml", `
driver = "mysql"
port = 3307

[executor]
companionMode = "tx"
ignoredCodes = ["ORA-01430"]
`)
			var c testConfig
			So(Load(path, &c), ShouldBeNil)
			So(c.Driver, ShouldEqual, "mysql")
			So(c.Port, ShouldEqual, 3307)
			So(c.Executor.IgnoredCodes, ShouldResemble, []string{"ORA-01430"})
		})

		Convey("ini", func() {
			path := writeFile(t, "gora.ini", `
driver = sqlite3
port = 1522

[executor]
companionMode = tx
ignoredCodes = ORA-01430, ORA-01091
timeout = 2s
`)
			var c testConfig
			So(Load(path, &c), ShouldBeNil)
			So(c.Driver, ShouldEqual, "sqlite3")
			So(c.Port, ShouldEqual, 1522)
			So(c.Executor.CompanionMode, ShouldEqual, "tx")
			So(c.Executor.IgnoredCodes, ShouldResemble, []string{"ORA-01430", "ORA-01091"})
			So(c.Executor.Timeout, ShouldEqual, 2*time.Second)
		})

		Convey("校验失败", func() {
			path := writeFile(t, "gora.yaml", "driver: postgres\n")
			var c testConfig
			So(Load(path, &c), ShouldNotBeNil)
		})

		Convey("未知格式", func() {
			path := writeFile(t, "gora.xml", "<driver/>")
			var c testConfig
			So(Load(path, &c), ShouldNotBeNil)
		})

		Convey("文件不存在", func() {
			var c testConfig
			So(Load(filepath.Join(t.TempDir(), "missing.yaml"), &c), ShouldNotBeNil)
		})
	})
}

func TestWatch(t *testing.T) {
	Convey("测试 Watch", t, func() {
		path := writeFile(t, "gora.yaml", "driver: oracle\n")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changed := make(chan struct{}, 8)
		done := make(chan error, 1)
		go func() {
			done <- Watch(ctx, path, func() { changed <- struct{}{} })
		}()

		// 等待 watcher 注册
		time.Sleep(200 * time.Millisecond)
		So(os.WriteFile(path, []byte("driver: sqlite3\n"), 0644), ShouldBeNil)

		select {
		case <-changed:
		case <-time.After(5 * time.Second):
			t.Fatal("no change event")
		}

		cancel()
		So(<-done, ShouldBeNil)
	})
}

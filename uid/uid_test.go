package uid

import (
	"regexp"
	"testing"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"
)

func TestUUIDGenerator(t *testing.T) {
	Convey("测试 UUIDGenerator", t, func() {
		Convey("默认 v7，不带连字符", func() {
			g, err := NewUUIDGeneratorWithOptions(nil)
			So(err, ShouldBeNil)

			id := g.Generate()
			So(id, ShouldHaveLength, 32)
			So(regexp.MustCompile(`^[0-9a-f]{32}$`).MatchString(id), ShouldBeTrue)
			So(string(id[12]), ShouldEqual, "7")
		})

		Convey("带连字符", func() {
			for _, version := range []string{"v1", "v4", "v6", "v7"} {
				g, err := NewUUIDGeneratorWithOptions(&UUIDOptions{Version: version, WithHyphens: true})
				So(err, ShouldBeNil)

				u, err := uuid.Parse(g.Generate())
				So(err, ShouldBeNil)
				So(int(u.Version()), ShouldEqual, int(version[1]-'0'))
			}
		})

		Convey("不重复", func() {
			g, _ := NewUUIDGeneratorWithOptions(&UUIDOptions{Version: "v7"})
			seen := map[string]bool{}
			for i := 0; i < 1000; i++ {
				id := g.Generate()
				So(seen[id], ShouldBeFalse)
				seen[id] = true
			}
		})

		Convey("不支持的版本", func() {
			_, err := NewUUIDGeneratorWithOptions(&UUIDOptions{Version: "v3"})
			So(err, ShouldNotBeNil)
		})
	})
}

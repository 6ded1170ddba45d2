package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/bytedance/mockey"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

type cachedStatement struct {
	SQL          string   `msgpack:"sql"`
	Placeholders int      `msgpack:"placeholders"`
	Companions   []string `msgpack:"companions"`
}

func TestFreeCacheStore(t *testing.T) {
	Convey("测试 FreeCacheStore", t, func() {
		store, err := NewStoreWithOptions[string, cachedStatement](&StoreOptions{
			Type:      "freecache",
			FreeCache: FreeCacheStoreOptions{Size: 1024 * 1024},
		})
		So(err, ShouldBeNil)
		defer store.Close()
		ctx := context.Background()

		Convey("不存在的键", func() {
			_, err := store.Get(ctx, "SELECT 1")
			So(errors.Is(err, ErrKeyNotFound), ShouldBeTrue)
		})

		Convey("设置后读取", func() {
			val := cachedStatement{
				SQL:          "SELECT * FROM t WHERE a = :p0",
				Placeholders: 1,
				Companions:   []string{"CREATE SEQUENCE T_SEQ"},
			}
			So(store.Set(ctx, "SELECT * FROM t WHERE a = ?", val), ShouldBeNil)

			got, err := store.Get(ctx, "SELECT * FROM t WHERE a = ?")
			So(err, ShouldBeNil)
			So(got, ShouldResemble, val)

			So(store.Del(ctx, "SELECT * FROM t WHERE a = ?"), ShouldBeNil)
			_, err = store.Get(ctx, "SELECT * FROM t WHERE a = ?")
			So(err, ShouldEqual, ErrKeyNotFound)
		})
	})
}

func TestRedisStore(t *testing.T) {
	Convey("测试 RedisStore", t, func() {
		mr := miniredis.RunT(t)
		store, err := NewRedisStoreWithOptions[string, cachedStatement](&RedisStoreOptions{
			Endpoint:   mr.Addr(),
			Prefix:     "gora:",
			DefaultTTL: time.Minute,
		})
		So(err, ShouldBeNil)
		defer store.Close()
		ctx := context.Background()

		Convey("设置后读取", func() {
			val := cachedStatement{SQL: "SELECT TABLE_NAME FROM USER_TABLES"}
			So(store.Set(ctx, "SHOW TABLES", val), ShouldBeNil)

			keys := mr.Keys()
			So(len(keys), ShouldEqual, 1)
			So(keys[0], ShouldStartWith, "gora:")
			So(mr.TTL(keys[0]), ShouldEqual, time.Minute)

			got, err := store.Get(ctx, "SHOW TABLES")
			So(err, ShouldBeNil)
			So(got, ShouldResemble, val)
		})

		Convey("指定过期时间", func() {
			So(store.Set(ctx, "SELECT 1", cachedStatement{}, WithExpiration(time.Hour)), ShouldBeNil)
			So(mr.TTL(mr.Keys()[0]), ShouldEqual, time.Hour)
		})

		Convey("删除", func() {
			So(store.Set(ctx, "SELECT 1", cachedStatement{}), ShouldBeNil)
			So(store.Del(ctx, "SELECT 1"), ShouldBeNil)
			_, err := store.Get(ctx, "SELECT 1")
			So(err, ShouldEqual, ErrKeyNotFound)
			So(store.Del(ctx, "SELECT 1"), ShouldBeNil)
		})
	})
}

func TestNewRedisStoreWithOptions(t *testing.T) {
	PatchConvey("测试 NewRedisStoreWithOptions", t, func() {
		Convey("没有地址", func() {
			_, err := NewRedisStoreWithOptions[string, string](&RedisStoreOptions{})
			So(err, ShouldNotBeNil)
		})

		Convey("Ping 失败", func() {
			statusCmd := redis.NewStatusCmd(context.Background())
			statusCmd.SetErr(errors.New("connection refused"))
			Mock((*redis.Client).Ping).Return(statusCmd).Build()

			_, err := NewRedisStoreWithOptions[string, string](&RedisStoreOptions{Endpoint: "localhost:6379"})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "connection refused")
		})

		Convey("未知类型", func() {
			_, err := NewStoreWithOptions[string, string](&StoreOptions{Type: "pebble"})
			So(err, ShouldNotBeNil)
		})
	})
}

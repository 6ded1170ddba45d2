package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestObservableStore(t *testing.T) {
	Convey("测试 ObservableStore", t, func() {
		store, err := NewStoreWithOptions[string, cachedStatement](&StoreOptions{
			Type:          "freecache",
			FreeCache:     FreeCacheStoreOptions{Size: 1024 * 1024},
			EnableMetrics: true,
			EnableTracing: true,
			Name:          "gora_observable_test",
		})
		So(err, ShouldBeNil)
		defer store.Close()
		ctx := context.Background()

		obs, ok := store.(*ObservableStore[string, cachedStatement])
		So(ok, ShouldBeTrue)
		operations := obs.metrics.operations

		_, err = store.Get(ctx, "SELECT 1")
		So(errors.Is(err, ErrKeyNotFound), ShouldBeTrue)
		So(store.Set(ctx, "SELECT 1", cachedStatement{SQL: "SELECT 1 FROM DUAL"}), ShouldBeNil)
		val, err := store.Get(ctx, "SELECT 1")
		So(err, ShouldBeNil)
		So(val.SQL, ShouldEqual, "SELECT 1 FROM DUAL")
		So(store.Del(ctx, "SELECT 1"), ShouldBeNil)

		So(testutil.ToFloat64(operations.WithLabelValues("get", "miss")), ShouldEqual, 1.0)
		So(testutil.ToFloat64(operations.WithLabelValues("get", "hit")), ShouldEqual, 1.0)
		So(testutil.ToFloat64(operations.WithLabelValues("set", "success")), ShouldEqual, 1.0)
		So(testutil.ToFloat64(operations.WithLabelValues("del", "success")), ShouldEqual, 1.0)

		Convey("不开启观测时不包装", func() {
			plain, err := NewStoreWithOptions[string, cachedStatement](&StoreOptions{FreeCache: FreeCacheStoreOptions{Size: 1024 * 1024}})
			So(err, ShouldBeNil)
			_, ok := plain.(*FreeCacheStore[string, cachedStatement])
			So(ok, ShouldBeTrue)
			So(plain.Close(), ShouldBeNil)
		})
	})
}

func TestNewStoreWithOptionsKeepsOptions(t *testing.T) {
	Convey("测试 NewStoreWithOptions 不修改传入的选项", t, func() {
		options := &StoreOptions{
			Type:          "freecache",
			FreeCache:     FreeCacheStoreOptions{Size: 1024 * 1024},
			EnableTracing: true,
		}
		store, err := NewStoreWithOptions[string, cachedStatement](options)
		So(err, ShouldBeNil)
		defer store.Close()

		So(options.Name, ShouldBeEmpty)
		obs, ok := store.(*ObservableStore[string, cachedStatement])
		So(ok, ShouldBeTrue)
		So(obs.name, ShouldEqual, "gora_cache")
		So(obs.metrics, ShouldBeNil)
	})
}

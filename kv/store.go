package kv

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrKeyNotFound = errors.New("key not found")

type setOptions struct {
	Expiration time.Duration
}

type SetOption func(*setOptions)

func WithExpiration(expiration time.Duration) SetOption {
	return func(options *setOptions) {
		options.Expiration = expiration
	}
}

// Store KV 存储接口
type Store[K, V any] interface {
	// Set 设置键值对，WithExpiration 覆盖默认过期时间
	Set(ctx context.Context, key K, value V, opts ...SetOption) error
	// Get 获取键对应的值，键不存在时返回 ErrKeyNotFound
	Get(ctx context.Context, key K) (V, error)
	// Del 删除键，键不存在时也返回成功
	Del(ctx context.Context, key K) error
	Close() error
}

// StoreOptions 存储选项，Type 为 freecache 或 redis
type StoreOptions struct {
	Type      string                `cfg:"type" def:"freecache" validate:"oneof=freecache redis"`
	FreeCache FreeCacheStoreOptions `cfg:"freecache"`
	Redis     RedisStoreOptions     `cfg:"redis"`

	// 开启任意一项时用 ObservableStore 包装
	EnableMetrics bool `cfg:"enableMetrics"`
	EnableTracing bool `cfg:"enableTracing"`

	// 指标名前缀和 tracer 名
	Name string `cfg:"name" def:"gora_cache"`
}

func NewStoreWithOptions[K, V any](options *StoreOptions) (Store[K, V], error) {
	var store Store[K, V]
	var err error
	switch options.Type {
	case "", "freecache":
		store, err = NewFreeCacheStoreWithOptions[K, V](&options.FreeCache)
	case "redis":
		store, err = NewRedisStoreWithOptions[K, V](&options.Redis)
	default:
		return nil, errors.Errorf("unsupported store type [%s]", options.Type)
	}
	if err != nil {
		return nil, err
	}

	if !options.EnableMetrics && !options.EnableTracing {
		return store, nil
	}
	observed := *options
	if observed.Name == "" {
		observed.Name = "gora_cache"
	}
	obs, err := NewObservableStore(store, &observed, nil)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return obs, nil
}

func applySetOptions(opts []SetOption, defaultTTL time.Duration) time.Duration {
	options := &setOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.Expiration == 0 {
		return defaultTTL
	}
	return options.Expiration
}

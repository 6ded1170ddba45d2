package kv

import (
	"context"
	"time"

	"github.com/coocood/freecache"
	"github.com/pkg/errors"
)

type FreeCacheStoreOptions struct {
	// 缓存大小，单位字节，freecache 最小 512KB
	Size int `cfg:"size" def:"33554432"`

	// 默认过期时间，0 表示不过期
	DefaultTTL time.Duration `cfg:"defaultTTL"`
}

// FreeCacheStore 进程内缓存，键和值都用 msgpack 序列化
type FreeCacheStore[K, V any] struct {
	cache      *freecache.Cache
	defaultTTL time.Duration
	keys       Serializer[K]
	vals       Serializer[V]
}

func NewFreeCacheStoreWithOptions[K, V any](options *FreeCacheStoreOptions) (*FreeCacheStore[K, V], error) {
	if options.Size < 0 {
		return nil, errors.Errorf("invalid freecache size [%d]", options.Size)
	}
	return &FreeCacheStore[K, V]{
		cache:      freecache.NewCache(options.Size),
		defaultTTL: options.DefaultTTL,
		keys:       NewMsgPackSerializer[K](),
		vals:       NewMsgPackSerializer[V](),
	}, nil
}

func (s *FreeCacheStore[K, V]) Set(ctx context.Context, key K, value V, opts ...SetOption) error {
	keyBytes, err := s.keys.Serialize(key)
	if err != nil {
		return errors.Wrap(err, "serialize key failed")
	}
	valBytes, err := s.vals.Serialize(value)
	if err != nil {
		return errors.Wrap(err, "serialize value failed")
	}

	expiration := applySetOptions(opts, s.defaultTTL)
	if err := s.cache.Set(keyBytes, valBytes, int(expiration.Seconds())); err != nil {
		return errors.Wrap(err, "freecache.Set failed")
	}
	return nil
}

func (s *FreeCacheStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	var zero V
	keyBytes, err := s.keys.Serialize(key)
	if err != nil {
		return zero, errors.Wrap(err, "serialize key failed")
	}

	valBytes, err := s.cache.Get(keyBytes)
	if err != nil {
		return zero, ErrKeyNotFound
	}
	val, err := s.vals.Deserialize(valBytes)
	if err != nil {
		return zero, errors.Wrap(err, "deserialize value failed")
	}
	return val, nil
}

func (s *FreeCacheStore[K, V]) Del(ctx context.Context, key K) error {
	keyBytes, err := s.keys.Serialize(key)
	if err != nil {
		return errors.Wrap(err, "serialize key failed")
	}
	s.cache.Del(keyBytes)
	return nil
}

func (s *FreeCacheStore[K, V]) Close() error {
	s.cache.Clear()
	return nil
}

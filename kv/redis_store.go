package kv

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisStoreOptions struct {
	// host:port 地址
	Endpoint string `cfg:"endpoint"`

	// 集群节点的 host:port 地址列表
	Endpoints []string `cfg:"endpoints"`

	// 键前缀，多个应用共用一个 redis 时区分命名空间
	Prefix string `cfg:"prefix" def:"gora:"`

	// 默认过期时间，0 表示不过期
	DefaultTTL time.Duration `cfg:"defaultTTL"`

	Username string `cfg:"username"`
	Password string `cfg:"password"`

	// 连接到服务器后选择的数据库
	DB int `cfg:"db" def:"0"`

	// 放弃前的最大重试次数，-1 禁用重试
	MaxRetries int `cfg:"maxRetries" def:"3"`

	// 建立新连接的拨号超时时间
	DialTimeout time.Duration `cfg:"dialTimeout" def:"5s"`

	// 套接字读写超时
	ReadTimeout  time.Duration `cfg:"readTimeout" def:"3s"`
	WriteTimeout time.Duration `cfg:"writeTimeout" def:"3s"`

	// 连接池大小
	PoolSize int `cfg:"poolSize" def:"100"`
}

// RedisStore 多进程共享的缓存
type RedisStore[K, V any] struct {
	client     redis.UniversalClient
	prefix     string
	defaultTTL time.Duration
	keys       Serializer[K]
	vals       Serializer[V]
}

func NewRedisStoreWithOptions[K, V any](options *RedisStoreOptions) (*RedisStore[K, V], error) {
	var client redis.UniversalClient
	switch {
	case options.Endpoint != "":
		client = redis.NewClient(&redis.Options{
			Addr:         options.Endpoint,
			Username:     options.Username,
			Password:     options.Password,
			DB:           options.DB,
			MaxRetries:   options.MaxRetries,
			DialTimeout:  options.DialTimeout,
			ReadTimeout:  options.ReadTimeout,
			WriteTimeout: options.WriteTimeout,
			PoolSize:     options.PoolSize,
		})
	case len(options.Endpoints) > 0:
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        options.Endpoints,
			Username:     options.Username,
			Password:     options.Password,
			MaxRetries:   options.MaxRetries,
			DialTimeout:  options.DialTimeout,
			ReadTimeout:  options.ReadTimeout,
			WriteTimeout: options.WriteTimeout,
			PoolSize:     options.PoolSize,
		})
	default:
		return nil, errors.New("Endpoint or Endpoints must be set")
	}

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, errors.WithMessage(err, "redis.client.Ping failed")
	}

	return &RedisStore[K, V]{
		client:     client,
		prefix:     options.Prefix,
		defaultTTL: options.DefaultTTL,
		keys:       NewMsgPackSerializer[K](),
		vals:       NewMsgPackSerializer[V](),
	}, nil
}

func (s *RedisStore[K, V]) key(key K) (string, error) {
	buf, err := s.keys.Serialize(key)
	if err != nil {
		return "", errors.Wrap(err, "serialize key failed")
	}
	return s.prefix + string(buf), nil
}

func (s *RedisStore[K, V]) Set(ctx context.Context, key K, value V, opts ...SetOption) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	buf, err := s.vals.Serialize(value)
	if err != nil {
		return errors.Wrap(err, "serialize value failed")
	}

	if err := s.client.Set(ctx, k, buf, applySetOptions(opts, s.defaultTTL)).Err(); err != nil {
		return errors.Wrap(err, "redis.Set failed")
	}
	return nil
}

func (s *RedisStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	var zero V
	k, err := s.key(key)
	if err != nil {
		return zero, err
	}

	buf, err := s.client.Get(ctx, k).Bytes()
	if err == redis.Nil {
		return zero, ErrKeyNotFound
	}
	if err != nil {
		return zero, errors.Wrap(err, "redis.Get failed")
	}
	val, err := s.vals.Deserialize(buf)
	if err != nil {
		return zero, errors.Wrap(err, "deserialize value failed")
	}
	return val, nil
}

func (s *RedisStore[K, V]) Del(ctx context.Context, key K) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, k).Err(); err != nil {
		return errors.Wrap(err, "redis.Del failed")
	}
	return nil
}

func (s *RedisStore[K, V]) Close() error {
	return s.client.Close()
}

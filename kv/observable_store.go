package kv

import (
	"context"
	"time"

	"github.com/hatlonely/gora/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// storeMetrics 存储操作指标，get 的 status 区分 hit 和 miss
type storeMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func newStoreMetrics(name string, registerer prometheus.Registerer) (*storeMetrics, error) {
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name + "_operations_total",
		Help: "Total number of store operations",
	}, []string{"operation", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name + "_operation_duration_seconds",
		Help:    "Duration of store operations in seconds",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}, []string{"operation"})

	var err error
	if operations, err = registerCollector(registerer, operations); err != nil {
		return nil, err
	}
	if duration, err = registerCollector(registerer, duration); err != nil {
		return nil, err
	}
	return &storeMetrics{operations: operations, duration: duration}, nil
}

func registerCollector[C prometheus.Collector](registerer prometheus.Registerer, c C) (C, error) {
	if err := registerer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, errors.Wrap(err, "register metrics failed")
	}
	return c, nil
}

// ObservableStore 为任意 Store 添加指标、追踪和错误日志
type ObservableStore[K, V any] struct {
	store   Store[K, V]
	name    string
	metrics *storeMetrics
	tracer  trace.Tracer
	logger  log.Logger
}

func NewObservableStore[K, V any](store Store[K, V], options *StoreOptions, logger log.Logger) (*ObservableStore[K, V], error) {
	if logger == nil {
		logger = log.Default()
	}
	obs := &ObservableStore[K, V]{
		store:  store,
		name:   options.Name,
		logger: logger.WithGroup("store").With("component", options.Name),
	}
	if options.EnableMetrics {
		metrics, err := newStoreMetrics(options.Name, prometheus.DefaultRegisterer)
		if err != nil {
			return nil, err
		}
		obs.metrics = metrics
	}
	if options.EnableTracing {
		obs.tracer = otel.Tracer(options.Name + ".kv")
	}
	return obs, nil
}

func (obs *ObservableStore[K, V]) observe(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := time.Now()
	var span trace.Span
	if obs.tracer != nil {
		ctx, span = obs.tracer.Start(ctx, "store."+operation, trace.WithAttributes(
			attribute.String("component", obs.name),
			attribute.String("operation", operation),
		))
		defer span.End()
	}

	err := fn(ctx)
	miss := errors.Is(err, ErrKeyNotFound)

	if span != nil {
		if err != nil && !miss {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if obs.metrics != nil {
		status := "success"
		switch {
		case miss:
			status = "miss"
		case err != nil:
			status = "error"
		case operation == "get":
			status = "hit"
		}
		obs.metrics.operations.WithLabelValues(operation, status).Inc()
		obs.metrics.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}

	if err != nil && !miss {
		obs.logger.WarnContext(ctx, "store operation failed", "operation", operation, "error", err)
	}
	return err
}

func (obs *ObservableStore[K, V]) Set(ctx context.Context, key K, value V, opts ...SetOption) error {
	return obs.observe(ctx, "set", func(ctx context.Context) error {
		return obs.store.Set(ctx, key, value, opts...)
	})
}

func (obs *ObservableStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	var result V
	err := obs.observe(ctx, "get", func(ctx context.Context) error {
		var err error
		result, err = obs.store.Get(ctx, key)
		return err
	})
	return result, err
}

func (obs *ObservableStore[K, V]) Del(ctx context.Context, key K) error {
	return obs.observe(ctx, "del", func(ctx context.Context) error {
		return obs.store.Del(ctx, key)
	})
}

func (obs *ObservableStore[K, V]) Close() error {
	return obs.store.Close()
}

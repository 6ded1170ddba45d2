package rdb

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// executorMetrics 执行器指标，同名指标重复注册时复用已注册的采集器
type executorMetrics struct {
	statements *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	absorbed   *prometheus.CounterVec
	companions *prometheus.CounterVec
}

func newExecutorMetrics(name string, registerer prometheus.Registerer) (*executorMetrics, error) {
	m := &executorMetrics{
		statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: name + "_statements_total",
			Help: "Total number of executed statements",
		}, []string{"kind", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name + "_statement_duration_seconds",
			Help:    "Duration of statement execution in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}, []string{"kind"}),
		absorbed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: name + "_absorbed_errors_total",
			Help: "Total number of database errors absorbed as success",
		}, []string{"kind", "code"}),
		companions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: name + "_companion_statements_total",
			Help: "Total number of executed companion statements",
		}, []string{"tag", "status"}),
	}

	var err error
	if m.statements, err = register(registerer, m.statements); err != nil {
		return nil, err
	}
	if m.duration, err = register(registerer, m.duration); err != nil {
		return nil, err
	}
	if m.absorbed, err = register(registerer, m.absorbed); err != nil {
		return nil, err
	}
	if m.companions, err = register(registerer, m.companions); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](registerer prometheus.Registerer, c C) (C, error) {
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

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

type poolMetric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(*pgxpool.Stat) float64
}

// PoolCollector exports pgxpool statistics.
type PoolCollector struct {
	stat    func() *pgxpool.Stat
	service string
	metrics []poolMetric
}

func NewPoolCollector(pool *pgxpool.Pool, service string) *PoolCollector {
	return newPoolCollector(pool.Stat, service)
}

func newPoolCollector(stat func() *pgxpool.Stat, service string) *PoolCollector {
	gauge := func(name, help string, f func(*pgxpool.Stat) float64) poolMetric {
		return poolMetric{prometheus.NewDesc("db_pool_"+name, help, []string{"service"}, nil), prometheus.GaugeValue, f}
	}
	counter := func(name, help string, f func(*pgxpool.Stat) float64) poolMetric {
		return poolMetric{prometheus.NewDesc("db_pool_"+name+"_total", help, []string{"service"}, nil), prometheus.CounterValue, f}
	}

	return &PoolCollector{
		stat:    stat,
		service: service,
		metrics: []poolMetric{
			gauge("acquired_connections", "Connections currently checked out.",
				func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
			gauge("idle_connections", "Connections idle in the pool.",
				func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
			gauge("total_connections", "Connections open, idle or in use.",
				func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
			gauge("max_connections", "Configured pool size.",
				func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }),
			counter("acquires", "Connections handed out.",
				func(s *pgxpool.Stat) float64 { return float64(s.AcquireCount()) }),
			counter("acquire_wait_seconds", "Time spent waiting for a connection.",
				func(s *pgxpool.Stat) float64 { return s.AcquireDuration().Seconds() }),
			counter("empty_acquires", "Acquires that found no idle connection.",
				func(s *pgxpool.Stat) float64 { return float64(s.EmptyAcquireCount()) }),
			counter("canceled_acquires", "Acquires abandoned by their context.",
				func(s *pgxpool.Stat) float64 { return float64(s.CanceledAcquireCount()) }),
			counter("new_connections", "Connections opened.",
				func(s *pgxpool.Stat) float64 { return float64(s.NewConnsCount()) }),
		},
	}
}

func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stat()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.kind, m.value(s), c.service)
	}
}

// RegisterPoolMetrics registers a PoolCollector with the default registry.
func RegisterPoolMetrics(pool *pgxpool.Pool, service string) error {
	return prometheus.Register(NewPoolCollector(pool, service))
}

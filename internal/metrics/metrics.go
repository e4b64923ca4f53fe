// Package metrics provides Prometheus metrics for the API.
package metrics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"maroonline/internal/modules/matching"
)

// Metrics holds every collector. It implements matching.Observer.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	RankDuration      prometheus.Histogram
	RankPoolSize      prometheus.Histogram
	RankReturned      prometheus.Histogram
	CandidateVerdicts *prometheus.CounterVec

	DBConnectionsTotal    prometheus.Gauge
	DBConnectionsAcquired prometheus.Gauge
	DBConnectionsIdle     prometheus.Gauge
	DBAcquireSecondsTotal prometheus.Counter

	collectorStarted atomic.Bool
	cancel           context.CancelFunc
	wg               sync.WaitGroup
}

var _ matching.Observer = (*Metrics)(nil)

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maroonline_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "maroonline_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		RankDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "maroonline_rank_duration_seconds",
			Help:    "Time spent filtering and scoring one candidate pool",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		RankPoolSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "maroonline_rank_pool_size",
			Help:    "Candidates considered per ranking call",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		RankReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "maroonline_rank_returned",
			Help:    "Candidates returned per ranking call",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		}),
		CandidateVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maroonline_candidate_evaluations_total",
			Help: "Candidate evaluations by outcome",
		}, []string{"reason"}),
		DBConnectionsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "maroonline_db_connections_total",
			Help: "Number of open database connections",
		}),
		DBConnectionsAcquired: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "maroonline_db_connections_acquired",
			Help: "Number of database connections currently in use",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "maroonline_db_connections_idle",
			Help: "Number of idle database connections",
		}),
		DBAcquireSecondsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "maroonline_db_acquire_seconds_total",
			Help: "Total time spent acquiring database connections",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RankDuration,
		m.RankPoolSize,
		m.RankReturned,
		m.CandidateVerdicts,
		m.DBConnectionsTotal,
		m.DBConnectionsAcquired,
		m.DBConnectionsIdle,
		m.DBAcquireSecondsTotal,
	)
	return m
}

func (m *Metrics) ObserveRank(elapsed time.Duration, poolSize, returned int) {
	m.RankDuration.Observe(elapsed.Seconds())
	m.RankPoolSize.Observe(float64(poolSize))
	m.RankReturned.Observe(float64(returned))
}

func (m *Metrics) ObserveEvaluation(reason matching.Reason) {
	m.CandidateVerdicts.WithLabelValues(string(reason)).Inc()
}

// StartDBStatsCollector samples pool statistics every interval until
// Shutdown. Calling it again is a no-op.
func (m *Metrics) StartDBStatsCollector(pool *pgxpool.Pool, interval time.Duration) {
	if pool == nil {
		return
	}
	if !m.collectorStarted.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.wg.Add(1)
	m.cancel = cancel

	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var lastAcquire time.Duration
		for {
			select {
			case <-ticker.C:
				stat := pool.Stat()
				m.DBConnectionsTotal.Set(float64(stat.TotalConns()))
				m.DBConnectionsAcquired.Set(float64(stat.AcquiredConns()))
				m.DBConnectionsIdle.Set(float64(stat.IdleConns()))
				if delta := stat.AcquireDuration() - lastAcquire; delta > 0 {
					m.DBAcquireSecondsTotal.Add(delta.Seconds())
				}
				lastAcquire = stat.AcquireDuration()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Shutdown stops the collector and waits for it. Safe to call repeatedly.
func (m *Metrics) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

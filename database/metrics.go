/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
)

// MetricsHook records statement latency and outcome in Prometheus.
type MetricsHook struct {
	queries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ bun.QueryHook = (*MetricsHook)(nil)

// NewMetricsHook registers the query metrics on reg, or reuses collectors a
// previous hook registered there. A nil reg means prometheus.DefaultRegisterer.
func NewMetricsHook(reg prometheus.Registerer, namespace string) (*MetricsHook, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	queries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "queries_total",
		Help:      "Number of executed statements by operation and status",
	}, []string{"operation", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "query_duration_seconds",
		Help:      "Statement latency by operation",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	}, []string{"operation"})

	var err error
	if queries, err = register(reg, queries); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	return &MetricsHook{queries: queries, duration: duration}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (h *MetricsHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *MetricsHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	operation := event.Operation()
	status := "ok"
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		status = "error"
	}
	h.queries.WithLabelValues(operation, status).Inc()
	h.duration.WithLabelValues(operation).Observe(time.Since(event.StartTime).Seconds())
}

// RegisterPoolMetrics exports the connection pool statistics under dbName.
// pool is read on every scrape, so a manager's GetSQLDB keeps the metrics on
// the live pool across Reconnect. Registering the same name twice is not an
// error.
func RegisterPoolMetrics(reg prometheus.Registerer, pool func() *sql.DB, dbName string) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	_, err := register(reg, &poolCollector{pool: pool, dbName: dbName})
	return err
}

// poolCollector delegates to a DBStatsCollector built for the current pool.
type poolCollector struct {
	pool   func() *sql.DB
	dbName string
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	collectors.NewDBStatsCollector(nil, c.dbName).Describe(ch)
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	if db := c.pool(); db != nil {
		collectors.NewDBStatsCollector(db, c.dbName).Collect(ch)
	}
}

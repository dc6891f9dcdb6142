/*
 * Copyright 2024 caiflower Authors
 *
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

package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/caiflower/webserver/global/env"
	"github.com/caiflower/webserver/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	cacheHit   = "hit"
	cacheMiss  = "miss"
	cacheStale = "stale"
)

// Metric holds the server collectors on a registry of its own, so several servers can
// live in one process.
type Metric struct {
	registry         *prometheus.Registry
	httpRequestTotal *prometheus.CounterVec
	costHistogram    prometheus.Histogram
	cacheLookupTotal *prometheus.CounterVec
	cacheEntries     prometheus.Gauge
	cacheEvictions   prometheus.Gauge
}

func NewMetric(web string) *Metric {
	constLabels := prometheus.Labels{"ip": env.GetLocalHostIP(), "web": web}

	buckets := []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000}
	metric := &Metric{
		registry:         prometheus.NewRegistry(),
		httpRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "http_request_total", Help: "http_request_total counter", ConstLabels: constLabels}, []string{"code", "method"}),
		costHistogram:    prometheus.NewHistogram(prometheus.HistogramOpts{Name: "http_request_histogram", Help: "http request cost in milliseconds", Buckets: buckets, ConstLabels: constLabels}),
		cacheLookupTotal: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "file_cache_lookup_total", Help: "file cache lookups by result", ConstLabels: constLabels}, []string{"result"}),
		cacheEntries:     prometheus.NewGauge(prometheus.GaugeOpts{Name: "file_cache_entries", Help: "entries held by the file cache", ConstLabels: constLabels}),
		cacheEvictions:   prometheus.NewGauge(prometheus.GaugeOpts{Name: "file_cache_evictions", Help: "entries evicted from the file cache since start", ConstLabels: constLabels}),
	}

	metric.registry.MustRegister(
		metric.httpRequestTotal,
		metric.costHistogram,
		metric.cacheLookupTotal,
		metric.cacheEntries,
		metric.cacheEvictions,
	)
	return metric
}

func (m *Metric) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metric) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metric) saveRequest(code int, method string, cost time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestTotal.WithLabelValues(strconv.Itoa(code), method).Inc()
	m.costHistogram.Observe(float64(cost.Milliseconds()))
}

func (m *Metric) saveCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookupTotal.WithLabelValues(result).Inc()
}

func (m *Metric) saveCacheStats(stats cache.Stats) {
	if m == nil {
		return
	}
	m.cacheEntries.Set(float64(stats.Size))
	m.cacheEvictions.Set(float64(stats.Evictions))
}

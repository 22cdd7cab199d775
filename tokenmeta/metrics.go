// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tokenmeta

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type cacheMetrics struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	backoffHits   prometheus.Counter
	fetches       prometheus.Counter
	fetchFailures *prometheus.CounterVec
	entries       prometheus.Gauge
	failedEntries prometheus.Gauge
}

func (m *cacheMetrics) init(promRegistry prometheus.Registerer) {
	factory := promauto.With(promRegistry)
	m.hits = factory.NewCounter(prometheus.CounterOpts{
		Name: "tokenscope_metadata_cache_hits_total",
		Help: "metadata lookups answered from the cache",
	})
	m.misses = factory.NewCounter(prometheus.CounterOpts{
		Name: "tokenscope_metadata_cache_misses_total",
		Help: "metadata lookups not present in the cache",
	})
	m.backoffHits = factory.NewCounter(prometheus.CounterOpts{
		Name: "tokenscope_metadata_cache_backoff_total",
		Help: "metadata lookups skipped due to a recent failure",
	})
	m.fetches = factory.NewCounter(prometheus.CounterOpts{
		Name: "tokenscope_metadata_fetches_total",
		Help: "metadata fetches issued to the registry",
	})
	m.fetchFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenscope_metadata_fetch_failures_total",
			Help: "failed metadata fetches by failure class",
		},
		[]string{"class"},
	)
	m.entries = factory.NewGauge(prometheus.GaugeOpts{
		Name: "tokenscope_metadata_cache_entries",
		Help: "resolved units held in the cache",
	})
	m.failedEntries = factory.NewGauge(prometheus.GaugeOpts{
		Name: "tokenscope_metadata_cache_failed_entries",
		Help: "units currently in failure backoff",
	})
}

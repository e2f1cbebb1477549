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

package election

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type managerMetrics struct {
	initialized   prometheus.Gauge
	candidates    prometheus.Gauge
	votes         prometheus.Gauge
	rejections    *prometheus.CounterVec
	commitLatency prometheus.Histogram
}

func (m *managerMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.initialized = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "ballot_election_initialized",
		Help: "whether the election has been created (0 or 1)",
	})
	m.candidates = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "ballot_election_candidates",
		Help: "number of registered candidates",
	})
	m.votes = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "ballot_election_votes",
		Help: "number of accepted votes",
	})
	m.rejections = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ballot_election_rejections_total",
			Help: "rejected operations, by operation and reason",
		},
		[]string{"operation", "reason"},
	)
	m.commitLatency = promautoFactory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ballot_election_commit_seconds",
			Help:    "latency of durable state commits",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
	)
}

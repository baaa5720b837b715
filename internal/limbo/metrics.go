// Copyright 2023 The Cockroach Authors
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
//
// SPDX-License-Identifier: Apache-2.0

package limbo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cockroachdb/txn-limbo/internal/util/metrics"
)

var (
	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "limbo_queue_depth",
		Help: "the number of transactions currently held in the limbo queue",
	}, metrics.ReplicaLabels)
	rollbackCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "limbo_rollback_total",
		Help: "the number of transactions rolled back, by instance",
	}, metrics.ReplicaLabels)
	decisionCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "limbo_decision_total",
		Help: "the number of CONFIRM/ROLLBACK decision records written",
	}, append(append([]string{}, metrics.ReplicaLabels...), "kind"))
	decisionDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "limbo_decision_duration_seconds",
		Help:    "the length of time it took to write a decision record to the journal",
		Buckets: metrics.LatencyBuckets,
	}, append(append([]string{}, metrics.ReplicaLabels...), "kind"))
	ackLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "limbo_ack_to_confirm_duration_seconds",
		Help:    "the length of time between a transaction entering the queue and its CONFIRM being applied",
		Buckets: metrics.LatencyBuckets,
	}, metrics.ReplicaLabels)
)

// metricsSet holds the subset of the package's metric vectors already
// bound to this Limbo's selfID, so call sites never repeat the label
// value.
type metricsSet struct {
	queueDepth    prometheus.Gauge
	rollbackCount prometheus.Counter
	confirmCount  prometheus.Counter
	rollbackWrite prometheus.Counter
	confirmTime   prometheus.Observer
	rollbackTime  prometheus.Observer
	ackLatency    prometheus.Observer
}

func newMetricsSet(selfID string) *metricsSet {
	return &metricsSet{
		queueDepth:    queueDepth.WithLabelValues(selfID),
		rollbackCount: rollbackCount.WithLabelValues(selfID),
		confirmCount:  decisionCount.WithLabelValues(selfID, "confirm"),
		rollbackWrite: decisionCount.WithLabelValues(selfID, "rollback"),
		confirmTime:   decisionDurations.WithLabelValues(selfID, "confirm"),
		rollbackTime:  decisionDurations.WithLabelValues(selfID, "rollback"),
		ackLatency:    ackLatency.WithLabelValues(selfID),
	}
}

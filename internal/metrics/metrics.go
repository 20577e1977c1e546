/*
 * Copyright © 2023 Laminar Markets, Ltd.
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
 * the License. You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
 * an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
 * specific language governing permissions and limitations under the License.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SubmissionMetrics observes the submission engine. A nil-safe noop
// implementation is used when the caller provides no registry.
type SubmissionMetrics interface {
	IncSubmitted(operation string)
	IncConfirmed(operation string)
	IncFailed(operation string)
	IncExpired(operation string)
	IncSequenceMismatches()
	IncResubmissions()
	ObserveConfirmationLatency(operation string, d time.Duration)
	SetInFlight(n int)
}

var METRICS_SUBSYSTEM = "laminar_client"

type submissionMetrics struct {
	submitted           *prometheus.CounterVec
	confirmed           *prometheus.CounterVec
	failed              *prometheus.CounterVec
	expired             *prometheus.CounterVec
	sequenceMismatches  prometheus.Counter
	resubmissions       prometheus.Counter
	confirmationLatency *prometheus.HistogramVec
	inFlight            prometheus.Gauge
}

func InitMetrics(ctx context.Context, registry *prometheus.Registry) SubmissionMetrics {
	metrics := &submissionMetrics{}

	metrics.submitted = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "submitted_txns_total",
		Help: "Transactions submitted to the node", Subsystem: METRICS_SUBSYSTEM}, []string{"operation"})
	metrics.confirmed = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "confirmed_txns_total",
		Help: "Transactions confirmed on chain", Subsystem: METRICS_SUBSYSTEM}, []string{"operation"})
	metrics.failed = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "failed_txns_total",
		Help: "Transactions that reached a definitive failure", Subsystem: METRICS_SUBSYSTEM}, []string{"operation"})
	metrics.expired = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "expired_txns_total",
		Help: "Transactions that expired with no chain record", Subsystem: METRICS_SUBSYSTEM}, []string{"operation"})
	metrics.sequenceMismatches = prometheus.NewCounter(prometheus.CounterOpts{Name: "sequence_mismatches_total",
		Help: "Sequence number rejections reported by the node", Subsystem: METRICS_SUBSYSTEM})
	metrics.resubmissions = prometheus.NewCounter(prometheus.CounterOpts{Name: "resubmissions_total",
		Help: "Resubmissions after sequence resync", Subsystem: METRICS_SUBSYSTEM})
	metrics.confirmationLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "confirmation_latency_ms",
		Help: "Milliseconds from submission to terminal state", Subsystem: METRICS_SUBSYSTEM,
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}}, []string{"operation"})
	metrics.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{Name: "inflight_txns",
		Help: "Submissions not yet in a terminal state", Subsystem: METRICS_SUBSYSTEM})

	registry.MustRegister(metrics.submitted)
	registry.MustRegister(metrics.confirmed)
	registry.MustRegister(metrics.failed)
	registry.MustRegister(metrics.expired)
	registry.MustRegister(metrics.sequenceMismatches)
	registry.MustRegister(metrics.resubmissions)
	registry.MustRegister(metrics.confirmationLatency)
	registry.MustRegister(metrics.inFlight)
	return metrics
}

func (m *submissionMetrics) IncSubmitted(operation string) {
	m.submitted.WithLabelValues(operation).Inc()
}

func (m *submissionMetrics) IncConfirmed(operation string) {
	m.confirmed.WithLabelValues(operation).Inc()
}

func (m *submissionMetrics) IncFailed(operation string) {
	m.failed.WithLabelValues(operation).Inc()
}

func (m *submissionMetrics) IncExpired(operation string) {
	m.expired.WithLabelValues(operation).Inc()
}

func (m *submissionMetrics) IncSequenceMismatches() {
	m.sequenceMismatches.Inc()
}

func (m *submissionMetrics) IncResubmissions() {
	m.resubmissions.Inc()
}

func (m *submissionMetrics) ObserveConfirmationLatency(operation string, d time.Duration) {
	m.confirmationLatency.WithLabelValues(operation).Observe(float64(d.Milliseconds()))
}

func (m *submissionMetrics) SetInFlight(n int) {
	m.inFlight.Set(float64(n))
}

type noopMetrics struct{}

// Noop returns a metrics implementation that records nothing.
func Noop() SubmissionMetrics {
	return &noopMetrics{}
}

func (*noopMetrics) IncSubmitted(string)                              {}
func (*noopMetrics) IncConfirmed(string)                              {}
func (*noopMetrics) IncFailed(string)                                 {}
func (*noopMetrics) IncExpired(string)                                {}
func (*noopMetrics) IncSequenceMismatches()                           {}
func (*noopMetrics) IncResubmissions()                                {}
func (*noopMetrics) ObserveConfirmationLatency(string, time.Duration) {}
func (*noopMetrics) SetInFlight(int)                                  {}

// Copyright (c) 2018 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package topology

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/contiv/topobuilder/plugins/topology/wiring"
)

const (
	metricsNamespace = "topobuilder"

	pairsMetric         = "pairs_total"
	advisoriesMetric    = "advisories_total"
	stageFailuresMetric = "wiring_stage_failures_total"

	resultLabel = "result"
	kindLabel   = "kind"
	stageLabel  = "stage"
)

// pair results
const (
	resultWired     = "wired"
	resultReapplied = "reapplied"
	resultFailed    = "failed"
	resultRemoved   = "removed"
	resultAbsent    = "absent"
)

// Metrics counts outcomes of builder runs in a dedicated registry.
type Metrics struct {
	registry      *prometheus.Registry
	pairs         *prometheus.CounterVec
	advisories    *prometheus.CounterVec
	stageFailures *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them into a new registry.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      pairsMetric,
			Help:      "Number of handled pairs by result.",
		}, []string{resultLabel}),
		advisories: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      advisoriesMetric,
			Help:      "Number of pairing advisories by kind.",
		}, []string{kindLabel}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      stageFailuresMetric,
			Help:      "Number of failed pairs by wiring stage.",
		}, []string{stageLabel}),
	}
	for _, collector := range []prometheus.Collector{m.pairs, m.advisories, m.stageFailures} {
		if err := m.registry.Register(collector); err != nil {
			return nil, errors.Wrap(err, "failed to register metric")
		}
	}
	// export zero values for all stages
	for _, stage := range wiring.Stages {
		m.stageFailures.WithLabelValues(string(stage))
	}
	return m, nil
}

// Registry returns the registry holding the counters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteToTextfile stores the current values in the text exposition format,
// suitable for the node exporter textfile collector.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) observe(report *Report) {
	for _, adv := range report.Advisories {
		m.advisories.WithLabelValues(string(adv.Kind)).Inc()
	}
	for _, outcome := range report.Outcomes {
		var result string
		switch {
		case outcome.Err != nil:
			result = resultFailed
			m.stageFailures.WithLabelValues(string(outcome.Err.Stage)).Inc()
		case outcome.Removed:
			result = resultRemoved
		case outcome.Conflict:
			result = resultReapplied
		default:
			result = resultWired
		}
		m.pairs.WithLabelValues(result).Inc()
	}
}

// observeUnwire differs from observe in how a pair without a device is
// counted.
func (m *Metrics) observeUnwire(report *Report) {
	for _, outcome := range report.Outcomes {
		switch {
		case outcome.Err != nil:
			m.pairs.WithLabelValues(resultFailed).Inc()
			m.stageFailures.WithLabelValues(string(outcome.Err.Stage)).Inc()
		case outcome.Removed:
			m.pairs.WithLabelValues(resultRemoved).Inc()
		default:
			m.pairs.WithLabelValues(resultAbsent).Inc()
		}
	}
}

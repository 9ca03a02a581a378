// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// OpMetric tracks counts and latencies of engine operations such as parsing
// or writing a container, or discovering a chunk.
//
// OpMetric will create three metric sets:
//   - A counter vector with the given name, label "result", and any additional
//     labels. Start increments it with "result"="all", Failed with
//     "result"="failed".
//   - A summary vector with the given name + "_latency". End observes the
//     elapsed time unless Failed was called before it.
//   - A gauge vector with the given name + "_pending" reflecting the number of
//     operations between Start and End.
//
// Suggested usage:
//
//	op := readMetric.Start("read")
//	defer op.End()
//	...
//	if err != nil {
//	    op.Failed()
//	}
type OpMetric struct {
	name      string
	counters  *prometheus.CounterVec
	latencies *prometheus.SummaryVec
	pending   *prometheus.GaugeVec
}

// NewOpMetric returns a new op metric registered with the default registry.
func NewOpMetric(name string, labels ...string) *OpMetric {
	labelsWithResult := append([]string{"result"}, labels...)
	return &OpMetric{
		name:      name,
		counters:  promauto.NewCounterVec(prometheus.CounterOpts{Name: name}, labelsWithResult),
		latencies: promauto.NewSummaryVec(prometheus.SummaryOpts{Name: name + "_latency"}, labels),
		pending:   promauto.NewGaugeVec(prometheus.GaugeOpts{Name: name + "_pending"}, labels),
	}
}

// Start marks that a new operation has started and begins measuring the latency.
func (m *OpMetric) Start(values ...string) *Measurer {
	lm := &Measurer{opm: m, values: values}
	lm.Result("all") // this resets start, so set it below
	lm.start = time.Now().UnixNano()
	lm.opm.pending.WithLabelValues(values...).Inc()
	return lm
}

// Count returns the counter value for the given result and label values.
func (m *OpMetric) Count(result string, values ...string) uint64 {
	valuesWithResult := append([]string{result}, values...)
	var value dto.Metric
	if m.counters.WithLabelValues(valuesWithResult...).Write(&value) != nil {
		return 0
	}
	return uint64(value.Counter.GetValue())
}

// String returns a one line summary for the given label values.
func (m *OpMetric) String(values ...string) string {
	out := SummaryString(m.latencies.WithLabelValues(values...))
	return out + fmt.Sprintf(" / %d total / %d failed", m.Count("all", values...), m.Count("failed", values...))
}

// Measurer is returned by Start and records the outcome of one operation.
type Measurer struct {
	start  int64
	opm    *OpMetric
	values []string
}

// Failed records that the operation returned an error.
func (lm *Measurer) Failed() {
	lm.Result("failed")
}

// Result records an arbitrary result.
func (lm *Measurer) Result(result string) {
	lm.start = 0 // zero this so that End won't try to record latency
	valuesWithResult := append([]string{result}, lm.values...)
	lm.opm.counters.WithLabelValues(valuesWithResult...).Inc()
}

// End records the elapsed time since Start.
func (lm *Measurer) End() {
	if lm.start != 0 {
		d := time.Duration(time.Now().UnixNano() - lm.start)
		lm.opm.latencies.WithLabelValues(lm.values...).Observe(float64(d) / 1e9)
	}
	lm.opm.pending.WithLabelValues(lm.values...).Dec()
}

// EndWithError calls Failed if *err is not nil, and always calls End. It takes
// a pointer so that it can be deferred before the error is known.
func (lm *Measurer) EndWithError(err *error) {
	if *err != nil {
		lm.Failed()
	}
	lm.End()
}

// SummaryString formats the quantiles of a summary observer.
func SummaryString(obs prometheus.Observer) string {
	sum, ok := obs.(prometheus.Summary)
	if !ok {
		return ""
	}
	var value dto.Metric
	if sum.Write(&value) != nil || value.Summary == nil {
		return ""
	}
	out := fmt.Sprintf("%d ops", value.Summary.GetSampleCount())
	for _, q := range value.Summary.Quantile {
		out += fmt.Sprintf(" / p%g=%.3fms", q.GetQuantile()*100, q.GetValue()*1000)
	}
	return out
}

// Dump gathers every metric family in the default registry whose name starts
// with 'prefix' and formats it one sample per line.
func Dump(prefix string) (string, error) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return "", err
	}
	var lines []string
	for _, f := range families {
		if !strings.HasPrefix(f.GetName(), prefix) {
			continue
		}
		for _, m := range f.Metric {
			var labels []string
			for _, l := range m.Label {
				labels = append(labels, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %s", f.GetName(), strings.Join(labels, ","), sampleValue(m)))
		}
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n"), nil
}

func sampleValue(m *dto.Metric) string {
	switch {
	case m.Counter != nil:
		return fmt.Sprintf("%g", m.Counter.GetValue())
	case m.Gauge != nil:
		return fmt.Sprintf("%g", m.Gauge.GetValue())
	case m.Summary != nil:
		return fmt.Sprintf("count=%d sum=%g", m.Summary.GetSampleCount(), m.Summary.GetSampleSum())
	}
	return "?"
}

package main

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label sets stay small: family, input and task names are bounded by the
// family registry. Job names and run IDs never become labels.
var (
	dummyInputsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neuron_export_dummy_inputs_total",
		Help: "Total number of dummy input tensors generated, by family and input.",
	}, []string{"family", "input"})

	exportJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neuron_export_jobs_total",
		Help: "Total number of export jobs, by family and result (exported, cached, failed).",
	}, []string{"family", "result"})

	exportFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neuron_export_failures_total",
		Help: "Total number of failed export jobs, by failure kind.",
	}, []string{"kind"})

	exportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "neuron_export_duration_seconds",
		Help:    "Wall time of one export job, by family.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"family"})
)

// failureKind maps an export error to a metrics label.
func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrMissingMandatoryAxis):
		return "missing_axis"
	case errors.Is(err, ErrUnresolvableInput):
		return "unresolvable_input"
	case errors.Is(err, ErrInputCountMismatch):
		return "input_count"
	case errors.Is(err, ErrOutputMismatch):
		return "output_mismatch"
	case errors.Is(err, ErrUnknownFamily), errors.Is(err, ErrUnsupportedTask), errors.Is(err, ErrUnknownTask):
		return "config"
	default:
		return "other"
	}
}

// WriteMetrics dumps the default registry in text exposition format, for
// node_exporter's textfile collector.
func WriteMetrics(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

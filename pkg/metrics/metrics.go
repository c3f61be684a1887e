// Package metrics exposes lifecycle run results as Prometheus metrics,
// written to a node-exporter textfile after each scheduled run.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Bibi40k/vmware-template-lifecycle/pkg/lifecycle"
	"github.com/Bibi40k/vmware-template-lifecycle/pkg/promote"
)

const (
	namespace = "tmplctl"

	LabelSource      = "source"
	LabelDestination = "destination"
	LabelKind        = "kind"
	LabelResult      = "result"
	LabelStatus      = "status"
	LabelLibrary     = "library"

	ResultApplied = "applied"
	ResultFailed  = "failed"
)

// Recorder holds the run metrics on a private registry, so the textfile
// carries no Go runtime metrics.
type Recorder struct {
	registry *prometheus.Registry

	lastRun      *prometheus.GaugeVec
	lastSuccess  *prometheus.GaugeVec
	lastDuration *prometheus.GaugeVec
	actions      *prometheus.CounterVec
	artifacts    *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with all collectors registered.
func NewRecorder() *Recorder {
	runLabels := []string{LabelSource, LabelDestination}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last lifecycle run finished.",
		}, runLabels),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last run applied every planned action, 0 otherwise.",
		}, runLabels),
		lastDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last lifecycle run, in seconds.",
		}, runLabels),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Lifecycle actions by kind and result.",
		}, []string{LabelSource, LabelDestination, LabelKind, LabelResult}),
		artifacts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "templates",
			Help:      "Templates per library and status after the last run.",
		}, []string{LabelLibrary, LabelStatus}),
	}
	r.registry.MustRegister(r.lastRun, r.lastSuccess, r.lastDuration, r.actions, r.artifacts)
	return r
}

// Registry returns the registry backing the recorder.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe records a completed run.
func (r *Recorder) Observe(report *promote.RunReport) {
	src, dst := report.Source, report.Destination

	r.lastRun.WithLabelValues(src, dst).Set(float64(report.FinishedAt.Unix()))
	r.lastDuration.WithLabelValues(src, dst).Set(report.Duration().Seconds())
	r.lastSuccess.WithLabelValues(src, dst).Set(boolToFloat(report.OK()))

	for _, kind := range lifecycle.Phases {
		// Touch every series so dashboards see zeros instead of gaps.
		r.actions.WithLabelValues(src, dst, kind.String(), ResultApplied)
		r.actions.WithLabelValues(src, dst, kind.String(), ResultFailed)
	}
	for _, act := range report.Applied {
		r.actions.WithLabelValues(src, dst, act.Kind.String(), ResultApplied).Inc()
	}
	for _, f := range report.Failed {
		r.actions.WithLabelValues(src, dst, f.Action.Kind.String(), ResultFailed).Inc()
	}

	library := src
	if dst != "" {
		library = dst
	}
	counts := map[lifecycle.Status]int{lifecycle.Draft: 0, lifecycle.Published: 0, lifecycle.Retired: 0}
	for _, a := range report.FinalState {
		counts[a.Status]++
	}
	for status, n := range counts {
		r.artifacts.WithLabelValues(library, status.String()).Set(float64(n))
	}
}

// ObserveAbort records a run that stopped before applying anything.
func (r *Recorder) ObserveAbort(source, destination string, at time.Time, took time.Duration) {
	r.lastRun.WithLabelValues(source, destination).Set(float64(at.Unix()))
	r.lastDuration.WithLabelValues(source, destination).Set(took.Seconds())
	r.lastSuccess.WithLabelValues(source, destination).Set(0)
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

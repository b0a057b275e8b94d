// Package metrics exposes Prometheus counters for matching commits, clears,
// backup writes and profile access decisions.
//
// All methods are safe on a nil *Metrics so stores and handlers can be built
// without instrumentation in tests and tools.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Commit outcomes.
const (
	OutcomeCommitted        = "committed"
	OutcomeAlreadyCommitted = "already_committed"
	OutcomeValidation       = "validation"
	OutcomeCohortNotFound   = "cohort_not_found"
	OutcomeUnknown          = "unknown_outcome"
	OutcomeError            = "error"
)

// Metrics holds the registry and collectors.
type Metrics struct {
	reg *prometheus.Registry

	commits        *prometheus.CounterVec
	clears         prometheus.Counter
	backupFailures prometheus.Counter
	decisions      *prometheus.CounterVec
	submissions    *prometheus.CounterVec
}

// New registers all collectors on a fresh registry, along with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		commits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cohorthub_matching_commits_total",
			Help: "Assignment set commit attempts by outcome",
		}, []string{"outcome"}),
		clears: f.NewCounter(prometheus.CounterOpts{
			Name: "cohorthub_matching_clears_total",
			Help: "Assignment sets removed by administrative clear",
		}),
		backupFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "cohorthub_matching_backup_failures_total",
			Help: "Committed assignment sets whose backup write failed",
		}),
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cohorthub_profile_access_decisions_total",
			Help: "Profile access decisions by result and reason",
		}, []string{"allowed", "reason"}),
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cohorthub_submission_status_changes_total",
			Help: "Submission status transitions by new status",
		}, []string{"status"}),
	}
}

// Commit counts one commit attempt.
func (m *Metrics) Commit(outcome string) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(outcome).Inc()
}

// Cleared counts one administrative clear.
func (m *Metrics) Cleared() {
	if m == nil {
		return
	}
	m.clears.Inc()
}

// BackupFailed counts one failed backup write.
func (m *Metrics) BackupFailed() {
	if m == nil {
		return
	}
	m.backupFailures.Inc()
}

// Decision counts one access decision.
func (m *Metrics) Decision(allowed bool, reason string) {
	if m == nil {
		return
	}
	a := "false"
	if allowed {
		a = "true"
	}
	m.decisions.WithLabelValues(a, reason).Inc()
}

// SubmissionStatus counts one submission status change.
func (m *Metrics) SubmissionStatus(status string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(status).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

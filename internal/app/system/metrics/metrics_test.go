package metrics_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/cohorthub/internal/app/system/metrics"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *metrics.Metrics
	m.Commit(metrics.OutcomeCommitted)
	m.Cleared()
	m.BackupFailed()
	m.Decision(true, "self")
	m.SubmissionStatus("approved")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestCounters(t *testing.T) {
	m := metrics.New()
	m.Commit(metrics.OutcomeCommitted)
	m.Commit(metrics.OutcomeAlreadyCommitted)
	m.Commit(metrics.OutcomeAlreadyCommitted)
	m.Decision(false, "not_featured")

	families, err := m.Registry().Gather()
	assert.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "cohorthub_matching_commits_total" {
			assert.Len(t, mf.GetMetric(), 2, "one series per outcome")
		}
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `cohorthub_matching_commits_total{outcome="already_committed"} 2`), body)
	assert.True(t, strings.Contains(body, `cohorthub_profile_access_decisions_total{allowed="false",reason="not_featured"} 1`), body)
}
